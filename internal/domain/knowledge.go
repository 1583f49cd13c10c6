package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// KnowledgeNote is an entry in the school's internal knowledge base. Notes
// are edited through the same approval pipeline as record mutations.
type KnowledgeNote struct {
	ID        uuid.UUID
	SchoolID  uuid.UUID
	Title     string
	Body      string
	Tags      []string
	UpdatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

type KnowledgeNoteRepository interface {
	Create(ctx context.Context, n *KnowledgeNote) error
	GetByID(ctx context.Context, schoolID, id uuid.UUID) (*KnowledgeNote, error)
	List(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*KnowledgeNote, error)
	Update(ctx context.Context, n *KnowledgeNote) error
	Delete(ctx context.Context, schoolID, id uuid.UUID) error
}
