package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft  InvoiceStatus = "draft"
	InvoiceStatusIssued InvoiceStatus = "issued"
	InvoiceStatusPaid   InvoiceStatus = "paid"
	InvoiceStatusVoid   InvoiceStatus = "void"
)

var InvoiceStatusLabels = map[InvoiceStatus]string{
	InvoiceStatusDraft:  "Draft",
	InvoiceStatusIssued: "Issued",
	InvoiceStatusPaid:   "Paid",
	InvoiceStatusVoid:   "Void",
}

func (s InvoiceStatus) Valid() bool {
	_, ok := InvoiceStatusLabels[s]
	return ok
}

// Invoice is a billing record against a student. AmountCents avoids float
// rounding in money arithmetic.
type Invoice struct {
	ID          uuid.UUID
	SchoolID    uuid.UUID
	StudentID   uuid.UUID
	Description string
	AmountCents int64
	Currency    string
	Status      InvoiceStatus
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, schoolID, id uuid.UUID) (*Invoice, error)
	ListByStudent(ctx context.Context, schoolID, studentID uuid.UUID) ([]*Invoice, error)
	List(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	Delete(ctx context.Context, schoolID, id uuid.UUID) error
}
