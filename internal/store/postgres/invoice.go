package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusops/aula/internal/domain"
)

type InvoiceRepo struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepo(pool *pgxpool.Pool) *InvoiceRepo {
	return &InvoiceRepo{pool: pool}
}

const invoiceColumns = `id, school_id, student_id, description, amount_cents, currency, status, due_date, created_at, updated_at`

func (r *InvoiceRepo) Create(ctx context.Context, inv *domain.Invoice) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO invoices (id, school_id, student_id, description, amount_cents, currency, status, due_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		inv.ID, inv.SchoolID, inv.StudentID, inv.Description, inv.AmountCents, inv.Currency, inv.Status, inv.DueDate, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Create: %w", err)
	}

	return nil
}

func (r *InvoiceRepo) GetByID(ctx context.Context, schoolID, id uuid.UUID) (*domain.Invoice, error) {
	var inv domain.Invoice

	err := r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE school_id = $1 AND id = $2`,
		schoolID, id,
	).Scan(&inv.ID, &inv.SchoolID, &inv.StudentID, &inv.Description, &inv.AmountCents, &inv.Currency, &inv.Status, &inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("invoiceRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.GetByID: %w", err)
	}

	return &inv, nil
}

func (r *InvoiceRepo) ListByStudent(ctx context.Context, schoolID, studentID uuid.UUID) ([]*domain.Invoice, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceColumns+`
		 FROM invoices WHERE school_id = $1 AND student_id = $2
		 ORDER BY created_at DESC`,
		schoolID, studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.ListByStudent: %w", err)
	}
	defer rows.Close()

	return scanInvoices(rows, "invoiceRepo.ListByStudent")
}

func (r *InvoiceRepo) List(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*domain.Invoice, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceColumns+`
		 FROM invoices WHERE school_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		schoolID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.List: %w", err)
	}
	defer rows.Close()

	return scanInvoices(rows, "invoiceRepo.List")
}

func (r *InvoiceRepo) Update(ctx context.Context, inv *domain.Invoice) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE invoices SET description = $1, amount_cents = $2, currency = $3, status = $4, due_date = $5, updated_at = $6
		 WHERE school_id = $7 AND id = $8`,
		inv.Description, inv.AmountCents, inv.Currency, inv.Status, inv.DueDate, inv.UpdatedAt, inv.SchoolID, inv.ID,
	)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoiceRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *InvoiceRepo) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM invoices WHERE school_id = $1 AND id = $2`,
		schoolID, id,
	)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoiceRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func scanInvoices(rows pgx.Rows, caller string) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		if err := rows.Scan(&inv.ID, &inv.SchoolID, &inv.StudentID, &inv.Description, &inv.AmountCents, &inv.Currency, &inv.Status, &inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		invoices = append(invoices, &inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return invoices, nil
}
