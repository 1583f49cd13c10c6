package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User roles form the permission tiers of the chat pipeline:
// staff may query and read, admins may additionally propose data changes,
// approvers may additionally decide pending proposals.
const (
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
	RoleApprover = "approver"
)

type User struct {
	ID           uuid.UUID
	SchoolID     uuid.UUID
	Email        string
	PasswordHash string // argon2id
	Name         string
	Role         string // "staff", "admin", or "approver"
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, schoolID, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, schoolID uuid.UUID, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	List(ctx context.Context, schoolID uuid.UUID) ([]*User, error)
}
