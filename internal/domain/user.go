package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRole is the role carried by an authenticated principal
type UserRole string

const (
	RoleClient UserRole = "CLIENT"
	RoleAdmin  UserRole = "ADMIN"
)

// UserStatus is the onboarding state of a borrower
type UserStatus string

const (
	UserStatusPending  UserStatus = "PENDING"
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusRejected UserStatus = "REJECTED"
)

// User represents a borrower or administrator
type User struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	FullName  *string    `json:"fullName"`
	Role      UserRole   `json:"role"`
	Status    UserStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// UserStats holds user counts by status
type UserStats struct {
	TotalUsers   int64
	PendingUsers int64
	ActiveUsers  int64
}

// UserRepository defines the interface for user persistence operations.
// Users are provisioned by the identity service; this service only reads them,
// Create exists for seeding and tests.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	GetStats(ctx context.Context) (*UserStats, error)
}
