package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dafibh/kredo/kredo-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accrualRunColumns = `id, run_date, triggered_by, started_at, finished_at,
	loans_processed, loans_failed, total_interest, summary`

// AccrualRunRepository implements domain.AccrualRunRepository using PostgreSQL
type AccrualRunRepository struct {
	pool *pgxpool.Pool
}

// NewAccrualRunRepository creates a new AccrualRunRepository
func NewAccrualRunRepository(pool *pgxpool.Pool) *AccrualRunRepository {
	return &AccrualRunRepository{pool: pool}
}

// Create records a finished batch run
func (r *AccrualRunRepository) Create(ctx context.Context, run *domain.AccrualRun) (*domain.AccrualRun, error) {
	total, err := decimalToPgNumeric(run.TotalInterest)
	if err != nil {
		return nil, fmt.Errorf("invalid total interest: %w", err)
	}
	summary := run.Summary
	if summary == nil {
		summary = map[string]any{}
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO accrual_runs (run_date, triggered_by, started_at, finished_at,
			loans_processed, loans_failed, total_interest, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+accrualRunColumns,
		pgtype.Date{Time: run.RunDate, Valid: true}, string(run.Trigger), run.StartedAt, run.FinishedAt,
		run.LoansProcessed, run.LoansFailed, total, summary,
	)
	return scanAccrualRun(row)
}

// GetLatest returns the most recently started run
func (r *AccrualRunRepository) GetLatest(ctx context.Context) (*domain.AccrualRun, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accrualRunColumns+` FROM accrual_runs
		ORDER BY started_at DESC, id DESC
		LIMIT 1`)
	run, err := scanAccrualRun(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

// GetByDate returns every run recorded for a calendar day
func (r *AccrualRunRepository) GetByDate(ctx context.Context, runDate time.Time) ([]*domain.AccrualRun, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accrualRunColumns+` FROM accrual_runs
		WHERE run_date = $1
		ORDER BY started_at ASC, id ASC`, pgtype.Date{Time: runDate, Valid: true})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.AccrualRun
	for rows.Next() {
		run, err := scanAccrualRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

func scanAccrualRun(row pgx.Row) (*domain.AccrualRun, error) {
	var (
		run     domain.AccrualRun
		runDate pgtype.Date
		trigger string
		total   pgtype.Numeric
	)
	err := row.Scan(
		&run.ID, &runDate, &trigger, &run.StartedAt, &run.FinishedAt,
		&run.LoansProcessed, &run.LoansFailed, &total, &run.Summary,
	)
	if err != nil {
		return nil, err
	}
	run.RunDate = runDate.Time
	run.Trigger = domain.AccrualTrigger(trigger)
	run.TotalInterest = pgNumericToDecimal(total)
	run.StartedAt = run.StartedAt.UTC()
	run.FinishedAt = run.FinishedAt.UTC()
	return &run, nil
}
