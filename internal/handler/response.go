package handler

import (
	"errors"
	"net/http"

	"github.com/dafibh/kredo/kredo-backend/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

const errorTypeBase = "https://kredo.app/errors/"

// problemKind pairs a type slug with its title
type problemKind struct {
	slug  string
	title string
}

var problemKinds = map[int]problemKind{
	http.StatusBadRequest:          {"validation", "Validation Error"},
	http.StatusUnauthorized:        {"unauthorized", "Unauthorized"},
	http.StatusForbidden:           {"forbidden", "Forbidden"},
	http.StatusNotFound:            {"not-found", "Not Found"},
	http.StatusConflict:            {"conflict", "Conflict"},
	http.StatusInternalServerError: {"internal", "Internal Server Error"},
}

func problem(c echo.Context, status int, detail string, fieldErrors []ValidationError) error {
	kind := problemKinds[status]
	return c.JSON(status, ProblemDetails{
		Type:     errorTypeBase + kind.slug,
		Title:    kind.title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   fieldErrors,
	})
}

// NewValidationError responds 400 with per-field errors
func NewValidationError(c echo.Context, detail string, fieldErrors []ValidationError) error {
	return problem(c, http.StatusBadRequest, detail, fieldErrors)
}

// NewUnauthorizedError responds 401
func NewUnauthorizedError(c echo.Context, detail string) error {
	return problem(c, http.StatusUnauthorized, detail, nil)
}

// NewForbiddenError responds 403
func NewForbiddenError(c echo.Context, detail string) error {
	return problem(c, http.StatusForbidden, detail, nil)
}

// errorStatuses maps domain sentinels to HTTP statuses, first match wins
var errorStatuses = []struct {
	target error
	status int
}{
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrInvalidInput, http.StatusBadRequest},
	{domain.ErrLoanClosed, http.StatusConflict},
	{domain.ErrAccrualInProgress, http.StatusConflict},
	{domain.ErrTransactionConflict, http.StatusConflict},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},
}

// respondError maps a service error to its problem response. Unknown errors
// are logged and reported as 500 with msg as the only detail.
func respondError(c echo.Context, err error, msg string) error {
	for _, m := range errorStatuses {
		if !errors.Is(err, m.target) {
			continue
		}
		switch m.status {
		case http.StatusUnauthorized:
			return problem(c, m.status, "Authentication required", nil)
		case http.StatusForbidden:
			return problem(c, m.status, "Access denied", nil)
		}
		return problem(c, m.status, err.Error(), nil)
	}

	log.Error().Err(err).Str("path", c.Request().URL.Path).Msg(msg)
	return problem(c, http.StatusInternalServerError, msg, nil)
}
