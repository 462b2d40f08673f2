package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/kredo/kredo-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// CustomClaims contains the custom claims issued by the identity service
type CustomClaims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
}

// Validate implements validator.CustomClaims
func (c CustomClaims) Validate(ctx context.Context) error {
	switch domain.UserRole(c.Role) {
	case domain.RoleClient, domain.RoleAdmin:
		return nil
	}
	return fmt.Errorf("unknown role %q", c.Role)
}

// Principal is the authenticated caller
type Principal struct {
	UserID uuid.UUID
	Role   domain.UserRole
}

// IsAdmin returns true for administrators
func (p *Principal) IsAdmin() bool {
	return p.Role == domain.RoleAdmin
}

// CanAccessUser reports whether the principal may read or act on userID's data
func (p *Principal) CanAccessUser(userID uuid.UUID) bool {
	return p.IsAdmin() || p.UserID == userID
}

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"
	// PrincipalKey is the context key for the authenticated principal
	PrincipalKey contextKey = "principal"
)

var errInvalidClaims = errors.New("invalid claims")

// NewJWTValidator creates an HS256 validator for tokens signed with the shared secret
func NewJWTValidator(secret, issuer, audience string) (*validator.Validator, error) {
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return []byte(secret), nil
	}

	return validator.New(
		keyFunc,
		validator.HS256,
		issuer,
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
}

// PrincipalFromClaims maps validated claims to a Principal. The subject must be the user UUID.
func PrincipalFromClaims(claims *validator.ValidatedClaims) (*Principal, error) {
	userID, err := uuid.Parse(claims.RegisteredClaims.Subject)
	if err != nil {
		return nil, errInvalidClaims
	}

	custom, ok := claims.CustomClaims.(*CustomClaims)
	if !ok {
		return nil, errInvalidClaims
	}

	return &Principal{UserID: userID, Role: domain.UserRole(custom.Role)}, nil
}

// AuthMiddleware provides JWT validation middleware
type AuthMiddleware struct {
	validator *validator.Validator
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtValidator *validator.Validator) *AuthMiddleware {
	return &AuthMiddleware{validator: jwtValidator}
}

// Authenticate returns an Echo middleware that validates JWT tokens
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorizedError(c, "Missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return unauthorizedError(c, "Invalid authorization header format")
			}

			claims, err := m.validator.ValidateToken(c.Request().Context(), parts[1])
			if err != nil {
				log.Debug().Err(err).Msg("Token validation failed")
				return unauthorizedError(c, "Invalid token")
			}

			validatedClaims, ok := claims.(*validator.ValidatedClaims)
			if !ok {
				return unauthorizedError(c, "Invalid claims")
			}

			principal, err := PrincipalFromClaims(validatedClaims)
			if err != nil {
				log.Debug().Str("subject", validatedClaims.RegisteredClaims.Subject).Msg("Token subject is not a user id")
				return unauthorizedError(c, "Invalid claims")
			}

			ctx := context.WithValue(c.Request().Context(), ClaimsKey, validatedClaims)
			ctx = WithPrincipal(ctx, principal)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequireRole rejects principals whose role is not in roles. Must run after Authenticate.
func RequireRole(roles ...domain.UserRole) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := GetPrincipal(c)
			if principal == nil {
				return unauthorizedError(c, "Authentication required")
			}
			for _, role := range roles {
				if principal.Role == role {
					return next(c)
				}
			}
			log.Debug().
				Str("user_id", principal.UserID.String()).
				Str("role", string(principal.Role)).
				Str("path", c.Request().URL.Path).
				Msg("Role not permitted")
			return forbiddenError(c, "Insufficient role")
		}
	}
}

// WithPrincipal stores the principal in ctx
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// GetPrincipal extracts the authenticated principal from the context
func GetPrincipal(c echo.Context) *Principal {
	if p, ok := c.Request().Context().Value(PrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

// GetClaims extracts the validated claims from the context
func GetClaims(c echo.Context) *validator.ValidatedClaims {
	if claims, ok := c.Request().Context().Value(ClaimsKey).(*validator.ValidatedClaims); ok {
		return claims
	}
	return nil
}
