package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type DocumentCategory string

const (
	DocumentCategoryTranscript DocumentCategory = "transcript"
	DocumentCategoryEnrollment DocumentCategory = "enrollment"
	DocumentCategoryMedical    DocumentCategory = "medical"
	DocumentCategoryConsent    DocumentCategory = "consent"
	DocumentCategoryCorrespond DocumentCategory = "correspondence"
	DocumentCategoryOther      DocumentCategory = "other"
)

var DocumentCategoryLabels = map[DocumentCategory]string{
	DocumentCategoryTranscript: "Transcript",
	DocumentCategoryEnrollment: "Enrollment form",
	DocumentCategoryMedical:    "Medical record",
	DocumentCategoryConsent:    "Consent form",
	DocumentCategoryCorrespond: "Correspondence",
	DocumentCategoryOther:      "Other",
}

func (c DocumentCategory) Valid() bool {
	_, ok := DocumentCategoryLabels[c]
	return ok
}

type Document struct {
	ID          uuid.UUID
	SchoolID    uuid.UUID
	Title       string
	Category    DocumentCategory
	StudentID   *uuid.UUID // nullable, set when the document belongs to a student file
	StoragePath string
	MimeType    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type DocumentRepository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, schoolID, id uuid.UUID) (*Document, error)
	List(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*Document, error)
	ListByStudent(ctx context.Context, schoolID, studentID uuid.UUID) ([]*Document, error)
	Update(ctx context.Context, d *Document) error
	Delete(ctx context.Context, schoolID, id uuid.UUID) error
}
