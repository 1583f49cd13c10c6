package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/campusops/aula/internal/domain"
	"github.com/campusops/aula/internal/server/middleware"
)

type ListInvoicesInput struct {
	StudentID uuid.UUID `query:"student_id" doc:"Filter by student; zero lists all"`
	Limit     int       `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Page size"`
	Offset    int       `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
}

type ListInvoicesOutput struct {
	Body []*domain.Invoice
}

type GetInvoiceInput struct {
	ID uuid.UUID `path:"id" doc:"Invoice ID"`
}

type GetInvoiceOutput struct {
	Body *domain.Invoice
}

type CreateInvoiceInput struct {
	Body struct {
		StudentID   uuid.UUID `json:"student_id" doc:"Billed student"`
		Description string    `json:"description,omitempty" maxLength:"1000" doc:"Line description"`
		AmountCents int64     `json:"amount_cents" minimum:"0" doc:"Amount in minor units"`
		Currency    string    `json:"currency" minLength:"3" maxLength:"3" doc:"ISO 4217 code"`
		DueDate     *string   `json:"due_date,omitempty" doc:"Due date, RFC 3339"`
	}
}

type CreateInvoiceOutput struct {
	Body *domain.Invoice
}

type UpdateInvoiceInput struct {
	ID   uuid.UUID `path:"id" doc:"Invoice ID"`
	Body struct {
		Description *string `json:"description,omitempty" doc:"Line description"`
		AmountCents *int64  `json:"amount_cents,omitempty" minimum:"0" doc:"Amount in minor units"`
		Status      *string `json:"status,omitempty" doc:"Invoice status"`
		DueDate     *string `json:"due_date,omitempty" doc:"Due date, RFC 3339"`
	}
}

type UpdateInvoiceOutput struct {
	Body *domain.Invoice
}

type DeleteInvoiceInput struct {
	ID uuid.UUID `path:"id" doc:"Invoice ID"`
}

type DeleteInvoiceOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

func parseDueDate(raw string) (*time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		t, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func RegisterInvoiceRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-invoices",
		Method:      http.MethodGet,
		Path:        "/invoices",
		Summary:     "List invoices",
		Tags:        []string{"Invoices"},
	}, func(ctx context.Context, input *ListInvoicesInput) (*ListInvoicesOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}

		var (
			invoices []*domain.Invoice
			err      error
		)
		if input.StudentID != uuid.Nil {
			invoices, err = store.Invoices().ListByStudent(ctx, schoolID, input.StudentID)
		} else {
			invoices, err = store.Invoices().List(ctx, schoolID, input.Limit, input.Offset)
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list invoices", err)
		}

		return &ListInvoicesOutput{Body: invoices}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-invoice",
		Method:      http.MethodGet,
		Path:        "/invoices/{id}",
		Summary:     "Get an invoice by ID",
		Tags:        []string{"Invoices"},
	}, func(ctx context.Context, input *GetInvoiceInput) (*GetInvoiceOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}

		invoice, err := store.Invoices().GetByID(ctx, schoolID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("invoice not found")
			}
			return nil, huma.Error500InternalServerError("failed to get invoice", err)
		}

		return &GetInvoiceOutput{Body: invoice}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-invoice",
		Method:      http.MethodPost,
		Path:        "/invoices",
		Summary:     "Create an invoice",
		Tags:        []string{"Invoices"},
	}, func(ctx context.Context, input *CreateInvoiceInput) (*CreateInvoiceOutput, error) {
		schoolID, userID, ok := writerFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("write access required")
		}

		// The billed student must exist in this school.
		if _, err := store.Students().GetByID(ctx, schoolID, input.Body.StudentID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("student not found")
			}
			return nil, huma.Error500InternalServerError("failed to verify student", err)
		}

		var dueDate *time.Time
		if input.Body.DueDate != nil {
			parsed, err := parseDueDate(*input.Body.DueDate)
			if err != nil {
				return nil, huma.Error400BadRequest("invalid due_date: " + *input.Body.DueDate)
			}
			dueDate = parsed
		}

		now := time.Now()
		invoice := &domain.Invoice{
			ID:          uuid.New(),
			SchoolID:    schoolID,
			StudentID:   input.Body.StudentID,
			Description: input.Body.Description,
			AmountCents: input.Body.AmountCents,
			Currency:    input.Body.Currency,
			Status:      domain.InvoiceStatusDraft,
			DueDate:     dueDate,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := store.Invoices().Create(ctx, invoice); err != nil {
			return nil, huma.Error500InternalServerError("failed to create invoice", err)
		}

		recordAudit(ctx, store.Audit(), schoolID, userID, domain.AuditActionCreate, domain.EntityInvoice, invoice.ID, nil, snapshotRecord(invoice))

		return &CreateInvoiceOutput{Body: invoice}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-invoice",
		Method:      http.MethodPatch,
		Path:        "/invoices/{id}",
		Summary:     "Update an invoice",
		Tags:        []string{"Invoices"},
	}, func(ctx context.Context, input *UpdateInvoiceInput) (*UpdateInvoiceOutput, error) {
		schoolID, userID, ok := writerFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("write access required")
		}

		invoice, err := store.Invoices().GetByID(ctx, schoolID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("invoice not found")
			}
			return nil, huma.Error500InternalServerError("failed to get invoice", err)
		}
		before := snapshotRecord(invoice)

		if input.Body.Description != nil {
			invoice.Description = *input.Body.Description
		}
		if input.Body.AmountCents != nil {
			invoice.AmountCents = *input.Body.AmountCents
		}
		if input.Body.Status != nil {
			status := domain.InvoiceStatus(*input.Body.Status)
			if !status.Valid() {
				return nil, huma.Error400BadRequest("unknown invoice status: " + *input.Body.Status)
			}
			invoice.Status = status
		}
		if input.Body.DueDate != nil {
			parsed, err := parseDueDate(*input.Body.DueDate)
			if err != nil {
				return nil, huma.Error400BadRequest("invalid due_date: " + *input.Body.DueDate)
			}
			invoice.DueDate = parsed
		}
		invoice.UpdatedAt = time.Now()

		if err := store.Invoices().Update(ctx, invoice); err != nil {
			return nil, huma.Error500InternalServerError("failed to update invoice", err)
		}

		recordAudit(ctx, store.Audit(), schoolID, userID, domain.AuditActionUpdate, domain.EntityInvoice, invoice.ID, before, snapshotRecord(invoice))

		return &UpdateInvoiceOutput{Body: invoice}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-invoice",
		Method:      http.MethodDelete,
		Path:        "/invoices/{id}",
		Summary:     "Delete an invoice",
		Tags:        []string{"Invoices"},
	}, func(ctx context.Context, input *DeleteInvoiceInput) (*DeleteInvoiceOutput, error) {
		schoolID, userID, ok := writerFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("write access required")
		}

		invoice, err := store.Invoices().GetByID(ctx, schoolID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("invoice not found")
			}
			return nil, huma.Error500InternalServerError("failed to get invoice", err)
		}

		if err := store.Invoices().Delete(ctx, schoolID, input.ID); err != nil {
			return nil, huma.Error500InternalServerError("failed to delete invoice", err)
		}

		recordAudit(ctx, store.Audit(), schoolID, userID, domain.AuditActionDelete, domain.EntityInvoice, input.ID, snapshotRecord(invoice), nil)

		out := &DeleteInvoiceOutput{}
		out.Body.Deleted = true
		return out, nil
	})
}
