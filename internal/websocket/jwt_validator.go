package websocket

import (
	"context"
	"errors"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/kredo/kredo-backend/internal/middleware"
)

// ErrInvalidToken is returned when the connect token is rejected
var ErrInvalidToken = errors.New("invalid token")

// ClaimsValidator is the subset of *validator.Validator used here
type ClaimsValidator interface {
	ValidateToken(ctx context.Context, token string) (interface{}, error)
}

// JWTValidator resolves the ?token= query parameter to a principal.
// Browsers cannot set headers on the upgrade request, so the bearer token travels in the URL.
type JWTValidator struct {
	validator ClaimsValidator
}

// NewJWTValidator creates a new JWTValidator
func NewJWTValidator(v ClaimsValidator) *JWTValidator {
	return &JWTValidator{validator: v}
}

// ValidateToken validates token and returns the principal it was issued to
func (v *JWTValidator) ValidateToken(ctx context.Context, token string) (*middleware.Principal, error) {
	claims, err := v.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	validated, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	principal, err := middleware.PrincipalFromClaims(validated)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return principal, nil
}
