package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusops/aula/internal/domain"
)

// ApprovalRepo persists the approval ledger. The two race-sensitive writes
// (decision and execution marker) are single conditional statements so that
// concurrent attempts cannot both succeed.
type ApprovalRepo struct {
	pool *pgxpool.Pool
}

func NewApprovalRepo(pool *pgxpool.Pool) *ApprovalRepo {
	return &ApprovalRepo{pool: pool}
}

const approvalColumns = `id, school_id, type, status, origin_message_id, proposed_by, descriptor,
	        decided_by, decided_at, decision_note, exec_state, exec_error, created_at`

func (r *ApprovalRepo) Create(ctx context.Context, req *domain.ApprovalRequest) error {
	descriptor, err := json.Marshal(req.Descriptor)
	if err != nil {
		return fmt.Errorf("approvalRepo.Create: marshal descriptor: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO approval_requests (id, school_id, type, status, origin_message_id, proposed_by, descriptor,
		                                decided_by, decided_at, decision_note, exec_state, exec_error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		req.ID, req.SchoolID, req.Type, req.Status, req.OriginMessageID, req.ProposedBy, descriptor,
		req.DecidedBy, req.DecidedAt, req.DecisionNote, req.ExecState, req.ExecError, req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("approvalRepo.Create: %w", err)
	}

	return nil
}

func (r *ApprovalRepo) GetByID(ctx context.Context, schoolID, id uuid.UUID) (*domain.ApprovalRequest, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+approvalColumns+`
		 FROM approval_requests WHERE school_id = $1 AND id = $2`,
		schoolID, id,
	)

	req, err := scanApproval(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("approvalRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("approvalRepo.GetByID: %w", err)
	}

	return req, nil
}

func (r *ApprovalRepo) List(ctx context.Context, schoolID uuid.UUID, status domain.ApprovalStatus, limit, offset int) ([]*domain.ApprovalRequest, error) {
	var (
		rows pgx.Rows
		err  error
	)

	if status == "" {
		rows, err = r.pool.Query(ctx,
			`SELECT `+approvalColumns+`
			 FROM approval_requests WHERE school_id = $1
			 ORDER BY created_at DESC
			 LIMIT $2 OFFSET $3`,
			schoolID, limit, offset,
		)
	} else {
		rows, err = r.pool.Query(ctx,
			`SELECT `+approvalColumns+`
			 FROM approval_requests WHERE school_id = $1 AND status = $2
			 ORDER BY created_at DESC
			 LIMIT $3 OFFSET $4`,
			schoolID, status, limit, offset,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("approvalRepo.List: %w", err)
	}
	defer rows.Close()

	var requests []*domain.ApprovalRequest
	for rows.Next() {
		req, scanErr := scanApproval(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("approvalRepo.List: scan: %w", scanErr)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("approvalRepo.List: rows: %w", err)
	}

	return requests, nil
}

// Decide is the atomic compare-and-set from pending to a terminal status.
// Exactly one of two concurrent calls observes RowsAffected == 1; the other
// finds the row no longer pending and gets ErrAlreadyDecided.
func (r *ApprovalRepo) Decide(ctx context.Context, schoolID, id uuid.UUID, status domain.ApprovalStatus, decidedBy uuid.UUID, note string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE approval_requests
		 SET status = $1, decided_by = $2, decided_at = now(), decision_note = $3
		 WHERE school_id = $4 AND id = $5 AND status = $6`,
		status, decidedBy, note, schoolID, id, domain.ApprovalStatusPending,
	)
	if err != nil {
		return fmt.Errorf("approvalRepo.Decide: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a lost race from a missing row.
		if _, getErr := r.GetByID(ctx, schoolID, id); getErr != nil {
			return fmt.Errorf("approvalRepo.Decide: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("approvalRepo.Decide: %w", domain.ErrAlreadyDecided)
	}

	return nil
}

// ClaimExecution inserts the execution marker keyed by request ID. The
// insert-if-absent makes apply at-most-once under concurrent attempts.
func (r *ApprovalRepo) ClaimExecution(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO approval_executions (request_id, claimed_at)
		 VALUES ($1, now())
		 ON CONFLICT (request_id) DO NOTHING`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("approvalRepo.ClaimExecution: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ReleaseExecution removes a claimed marker after a failed apply so an
// operator-initiated retry can claim it again.
func (r *ApprovalRepo) ReleaseExecution(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM approval_executions WHERE request_id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("approvalRepo.ReleaseExecution: %w", err)
	}

	return nil
}

func (r *ApprovalRepo) MarkExecuted(ctx context.Context, schoolID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE approval_requests SET exec_state = $1, exec_error = ''
		 WHERE school_id = $2 AND id = $3`,
		domain.ExecutionStateExecuted, schoolID, id,
	)
	if err != nil {
		return fmt.Errorf("approvalRepo.MarkExecuted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("approvalRepo.MarkExecuted: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *ApprovalRepo) MarkExecutionFailed(ctx context.Context, schoolID, id uuid.UUID, reason string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE approval_requests SET exec_state = $1, exec_error = $2
		 WHERE school_id = $3 AND id = $4`,
		domain.ExecutionStateFailed, reason, schoolID, id,
	)
	if err != nil {
		return fmt.Errorf("approvalRepo.MarkExecutionFailed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("approvalRepo.MarkExecutionFailed: %w", domain.ErrNotFound)
	}

	return nil
}

func scanApproval(row pgx.Row) (*domain.ApprovalRequest, error) {
	var req domain.ApprovalRequest
	var descriptor []byte

	err := row.Scan(
		&req.ID, &req.SchoolID, &req.Type, &req.Status, &req.OriginMessageID, &req.ProposedBy, &descriptor,
		&req.DecidedBy, &req.DecidedAt, &req.DecisionNote, &req.ExecState, &req.ExecError, &req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(descriptor, &req.Descriptor); err != nil {
		return nil, fmt.Errorf("unmarshal descriptor: %w", err)
	}

	return &req, nil
}
