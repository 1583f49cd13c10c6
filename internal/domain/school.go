package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// School is the top-level scope: every record in the platform belongs to
// exactly one school.
type School struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type SchoolRepository interface {
	Create(ctx context.Context, s *School) error
	GetByID(ctx context.Context, id uuid.UUID) (*School, error)
	GetBySlug(ctx context.Context, slug string) (*School, error)
	Update(ctx context.Context, s *School) error
	List(ctx context.Context) ([]*School, error)
}
