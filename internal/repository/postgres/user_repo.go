package postgres

import (
	"context"

	"github.com/dafibh/kredo/kredo-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, full_name, role, status, created_at, updated_at`

// UserRepository implements domain.UserRepository using PostgreSQL
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID retrieves a user by their UUID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uuidToPg(id))
	user, err := scanUser(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Create creates a new user, keeping the caller's ID when one is set
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	id := user.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	role := user.Role
	if role == "" {
		role = domain.RoleClient
	}
	status := user.Status
	if status == "" {
		status = domain.UserStatusPending
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, full_name, role, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		uuidToPg(id), user.Email, user.FullName, string(role), string(status),
	)
	return scanUser(row)
}

// GetStats counts users by onboarding status
func (r *UserRepository) GetStats(ctx context.Context) (*domain.UserStats, error) {
	var stats domain.UserStats
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'ACTIVE')
		FROM users`,
	).Scan(&stats.TotalUsers, &stats.PendingUsers, &stats.ActiveUsers)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u            domain.User
		id           pgtype.UUID
		role, status string
	)
	if err := row.Scan(&id, &u.Email, &u.FullName, &role, &status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.ID = pgToUUID(id)
	u.Role = domain.UserRole(role)
	u.Status = domain.UserStatus(status)
	return &u, nil
}
