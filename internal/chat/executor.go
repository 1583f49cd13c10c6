package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/campusops/aula/internal/domain"
	"github.com/campusops/aula/internal/ids"
)

// RecordStore bundles the record repositories a mutation may touch.
// *postgres.Store satisfies it.
type RecordStore interface {
	Students() domain.StudentRepository
	Invoices() domain.InvoiceRepository
	Facilities() domain.FacilityRepository
	Documents() domain.DocumentRepository
	Knowledge() domain.KnowledgeNoteRepository
}

// ErrExecutionHeld is returned when the execution marker is already held by
// a failed run that passed the point of no return: the mutation was applied
// but its audit record was not written. Retrying cannot help; the request
// needs manual reconciliation.
var ErrExecutionHeld = errors.New("chat: execution marker held by a failed run")

// Executor applies approved mutations exactly once and writes the audit
// trail. It holds no state of its own; idempotency comes from the execution
// marker in the approval ledger.
type Executor struct {
	approvals domain.ApprovalRepository
	records   RecordStore
	audit     domain.AuditRepository
}

func NewExecutor(approvals domain.ApprovalRepository, records RecordStore, audit domain.AuditRepository) *Executor {
	return &Executor{approvals: approvals, records: records, audit: audit}
}

// Apply executes the mutation of an approved request. Calling it again after
// a successful run is a no-op; a request whose apply failed must be released
// first, which Apply does itself before returning the error. actorID is the
// deciding reviewer and becomes the audit actor.
func (e *Executor) Apply(ctx context.Context, schoolID, requestID, actorID uuid.UUID) error {
	req, err := e.approvals.GetByID(ctx, schoolID, requestID)
	if err != nil {
		return fmt.Errorf("chat.Executor.Apply: %w", err)
	}

	if req.Status != domain.ApprovalStatusApproved {
		return fmt.Errorf("chat.Executor.Apply: request %s is %s, not approved: %w", requestID, req.Status, domain.ErrConflict)
	}

	claimed, err := e.approvals.ClaimExecution(ctx, requestID)
	if err != nil {
		return fmt.Errorf("chat.Executor.Apply: claim: %w", err)
	}
	if !claimed {
		// A previous apply holds the marker: either it succeeded, or it
		// failed after the point of no return and sits in the
		// reconciliation queue. Never re-apply.
		if req.ExecState == domain.ExecutionStateFailed {
			return fmt.Errorf("chat.Executor.Apply: %w", ErrExecutionHeld)
		}
		return nil
	}

	before, after, entityID, applyErr := e.applyMutation(ctx, schoolID, actorID, &req.Descriptor)
	if applyErr != nil {
		e.flagFailure(ctx, schoolID, requestID, applyErr, true)
		if errors.Is(applyErr, domain.ErrNotFound) {
			return fmt.Errorf("chat.Executor.Apply: %v: %w", applyErr, domain.ErrStaleTarget)
		}
		return fmt.Errorf("chat.Executor.Apply: %w", applyErr)
	}

	entry := &domain.AuditEntry{
		ID:        ids.New(),
		SchoolID:  schoolID,
		ActorID:   actorID,
		ActorType: "pipeline",
		Action:    auditAction(&req.Descriptor),
		Entity:    req.Descriptor.Entity,
		EntityID:  entityID,
		Before:    before,
		After:     after,
		CreatedAt: time.Now(),
	}
	if auditErr := e.audit.Record(ctx, entry); auditErr != nil {
		// The mutation is already applied; keep the marker so a retry
		// cannot apply it twice, and flag for manual reconciliation.
		e.flagFailure(ctx, schoolID, requestID, fmt.Errorf("audit record: %w", auditErr), false)
		return fmt.Errorf("chat.Executor.Apply: audit record: %w", auditErr)
	}

	if err := e.approvals.MarkExecuted(ctx, schoolID, requestID); err != nil {
		return fmt.Errorf("chat.Executor.Apply: mark executed: %w", err)
	}

	return nil
}

// flagFailure records the failure reason on the request. release controls
// whether the execution marker is removed: true when the mutation did not
// happen (safe to retry), false when it did (retry must stay blocked).
func (e *Executor) flagFailure(ctx context.Context, schoolID, requestID uuid.UUID, cause error, release bool) {
	if err := e.approvals.MarkExecutionFailed(ctx, schoolID, requestID, cause.Error()); err != nil {
		log.Error().Err(err).Str("request_id", requestID.String()).Msg("executor: mark execution failed")
	}
	if release {
		if err := e.approvals.ReleaseExecution(ctx, requestID); err != nil {
			log.Error().Err(err).Str("request_id", requestID.String()).Msg("executor: release execution marker")
		}
	}
}

func auditAction(d *domain.MutationDescriptor) domain.AuditAction {
	if d.Entity == domain.EntityKnowledgeNote {
		return domain.AuditActionKnowledgeUpdate
	}
	switch d.Op {
	case domain.MutationOpCreate:
		return domain.AuditActionCreate
	case domain.MutationOpDelete:
		return domain.AuditActionDelete
	default:
		return domain.AuditActionUpdate
	}
}

// applyMutation dispatches on entity and op, returning before and after
// snapshots for the audit entry and the affected entity id.
func (e *Executor) applyMutation(ctx context.Context, schoolID, actorID uuid.UUID, d *domain.MutationDescriptor) (before, after map[string]any, entityID uuid.UUID, err error) {
	switch d.Entity {
	case domain.EntityStudent:
		return e.applyStudent(ctx, schoolID, d)
	case domain.EntityInvoice:
		return e.applyInvoice(ctx, schoolID, d)
	case domain.EntityFacility:
		return e.applyFacility(ctx, schoolID, d)
	case domain.EntityDocument:
		return e.applyDocument(ctx, schoolID, d)
	case domain.EntityKnowledgeNote:
		return e.applyKnowledge(ctx, schoolID, actorID, d)
	default:
		return nil, nil, uuid.Nil, fmt.Errorf("entity %q: %w", d.Entity, ErrMalformedProposal)
	}
}

func (e *Executor) applyStudent(ctx context.Context, schoolID uuid.UUID, d *domain.MutationDescriptor) (map[string]any, map[string]any, uuid.UUID, error) {
	repo := e.records.Students()
	now := time.Now()

	switch d.Op {
	case domain.MutationOpCreate:
		s := &domain.Student{
			ID:         uuid.New(),
			SchoolID:   schoolID,
			Status:     domain.StudentStatusEnrolled,
			EnrolledAt: now,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		setStudentFields(s, d.Fields)
		if err := repo.Create(ctx, s); err != nil {
			return nil, nil, uuid.Nil, err
		}
		return nil, snapshot(s), s.ID, nil

	case domain.MutationOpUpdate:
		s, err := repo.GetByID(ctx, schoolID, *d.TargetID)
		if err != nil {
			return nil, nil, uuid.Nil, err
		}
		before := snapshot(s)
		setStudentFields(s, d.Fields)
		s.UpdatedAt = now
		if err := repo.Update(ctx, s); err != nil {
			return nil, nil, uuid.Nil, err
		}
		return before, snapshot(s), s.ID, nil

	default:
		s, err := repo.GetByID(ctx, schoolID, *d.TargetID)
		if err != nil {
			return nil, nil, uuid.Nil, err
		}
		if err := repo.Delete(ctx, schoolID, s.ID); err != nil {
			return nil, nil, uuid.Nil, err
		}
		return snapshot(s), nil, s.ID, nil
	}
}

func (e *Executor) applyInvoice(ctx context.Context, schoolID uuid.UUID, d *domain.MutationDescriptor) (map[string]any, map[string]any, uuid.UUID, error) {
	repo := e.records.Invoices()
	now := time.Now()

	switch d.Op {
	case domain.MutationOpCreate:
		inv := &domain.Invoice{
			ID:        uuid.New(),
			SchoolID:  schoolID,
			Status:    domain.InvoiceStatusDraft,
			CreatedAt: now,
			UpdatedAt: now,
		}
		setInvoiceFields(inv, d.Fields)
		if err := repo.Create(ctx, inv); err != nil {
			return nil, nil, uuid.Nil, err
		}
		return nil, snapshot(inv), inv.ID, nil

	case domain.MutationOpUpdate:
		inv, err := repo.GetByID(ctx, schoolID, *d.TargetID)
		if err != nil {
			return nil, nil, uuid.Nil, err
		}
		before := snapshot(inv)
		setInvoiceFields(inv, d.Fields)
		inv.UpdatedAt = now
		if err := repo.Update(ctx, inv); err != nil {
			return nil, nil, uuid.Nil, err
		}
		return before, snapshot(inv), inv.ID, nil

	default:
		inv, err := repo.GetByID(ctx, schoolID, *d.TargetID)
		if err != nil {
			return nil, nil, uuid.Nil, err
		}
		if err := repo.Delete(ctx, schoolID, inv.ID); err != nil {
			return nil, nil, uuid.Nil, err
		}
		return snapshot(inv), nil, inv.ID, nil
	}
}

func (e *Executor) applyFacility(ctx context.Context, schoolID uuid.UUID, d *domain.MutationDescriptor) (map[string]any, map[string]any, uuid.UUID, error) {
	repo := e.records.Facilities()
	now := time.Now()

	switch d.Op {
	case domain.MutationOpCreate:
		f := &domain.Facility{
			ID:        uuid.New(),
			SchoolID:  schoolID,
			Category:  domain.FacilityCategoryOther,
			CreatedAt: now,
			UpdatedAt: now,
		}
		setFacilityFields(f, d.Fields)
		if err := repo.Create(ctx, f); err != nil {
			return nil, nil, uuid.Nil, err
		}
		return nil, snapshot(f), f.ID, nil

	case domain.MutationOpUpdate:
		f, err := repo.GetByID(ctx, schoolID, *d.TargetID)
		if err != nil {
			return nil, nil, uuid.Nil, err
		}
		before := snapshot(f)
		setFacilityFields(f, d.Fields)
		f.UpdatedAt = now
		if err := repo.Update(ctx, f); err != nil {
			return nil, nil, uuid.Nil, err
		}
		return before, snapshot(f), f.ID, nil

	default:
		f, err := repo.GetByID(ctx, schoolID, *d.TargetID)
		if err != nil {
			return nil, nil, uuid.Nil, err
		}
		if err := repo.Delete(ctx, schoolID, f.ID); err != nil {
			return nil, nil, uuid.Nil, err
		}
		return snapshot(f), nil, f.ID, nil
	}
}

func (e *Executor) applyDocument(ctx context.Context, schoolID uuid.UUID, d *domain.MutationDescriptor) (map[string]any, map[string]any, uuid.UUID, error) {
	repo := e.records.Documents()
	now := time.Now()

	switch d.Op {
	case domain.MutationOpCreate:
		doc := &domain.Document{
			ID:        uuid.New(),
			SchoolID:  schoolID,
			Category:  domain.DocumentCategoryOther,
			CreatedAt: now,
			UpdatedAt: now,
		}
		setDocumentFields(doc, d.Fields)
		if err := repo.Create(ctx, doc); err != nil {
			return nil, nil, uuid.Nil, err
		}
		return nil, snapshot(doc), doc.ID, nil

	case domain.MutationOpUpdate:
		doc, err := repo.GetByID(ctx, schoolID, *d.TargetID)
		if err != nil {
			return nil, nil, uuid.Nil, err
		}
		before := snapshot(doc)
		setDocumentFields(doc, d.Fields)
		doc.UpdatedAt = now
		if err := repo.Update(ctx, doc); err != nil {
			return nil, nil, uuid.Nil, err
		}
		return before, snapshot(doc), doc.ID, nil

	default:
		doc, err := repo.GetByID(ctx, schoolID, *d.TargetID)
		if err != nil {
			return nil, nil, uuid.Nil, err
		}
		if err := repo.Delete(ctx, schoolID, doc.ID); err != nil {
			return nil, nil, uuid.Nil, err
		}
		return snapshot(doc), nil, doc.ID, nil
	}
}

func (e *Executor) applyKnowledge(ctx context.Context, schoolID, actorID uuid.UUID, d *domain.MutationDescriptor) (map[string]any, map[string]any, uuid.UUID, error) {
	repo := e.records.Knowledge()
	now := time.Now()

	switch d.Op {
	case domain.MutationOpCreate:
		n := &domain.KnowledgeNote{
			ID:        uuid.New(),
			SchoolID:  schoolID,
			UpdatedBy: actorID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		setKnowledgeFields(n, d.Fields)
		if err := repo.Create(ctx, n); err != nil {
			return nil, nil, uuid.Nil, err
		}
		return nil, snapshot(n), n.ID, nil

	case domain.MutationOpUpdate:
		n, err := repo.GetByID(ctx, schoolID, *d.TargetID)
		if err != nil {
			return nil, nil, uuid.Nil, err
		}
		before := snapshot(n)
		setKnowledgeFields(n, d.Fields)
		n.UpdatedBy = actorID
		n.UpdatedAt = now
		if err := repo.Update(ctx, n); err != nil {
			return nil, nil, uuid.Nil, err
		}
		return before, snapshot(n), n.ID, nil

	default:
		n, err := repo.GetByID(ctx, schoolID, *d.TargetID)
		if err != nil {
			return nil, nil, uuid.Nil, err
		}
		if err := repo.Delete(ctx, schoolID, n.ID); err != nil {
			return nil, nil, uuid.Nil, err
		}
		return snapshot(n), nil, n.ID, nil
	}
}

func setStudentFields(s *domain.Student, fields map[string]any) {
	if v, ok := fieldString(fields, "first_name"); ok {
		s.FirstName = v
	}
	if v, ok := fieldString(fields, "last_name"); ok {
		s.LastName = v
	}
	if v, ok := fieldString(fields, "email"); ok {
		s.Email = v
	}
	if v, ok := fieldString(fields, "guardian_name"); ok {
		s.GuardianName = v
	}
	if v, ok := fieldString(fields, "status"); ok {
		s.Status = domain.StudentStatus(v)
	}
	if v, ok := fieldTime(fields, "enrolled_at"); ok {
		s.EnrolledAt = v
	}
}

func setInvoiceFields(inv *domain.Invoice, fields map[string]any) {
	if v, ok := fieldString(fields, "student_id"); ok {
		if id, err := uuid.Parse(v); err == nil {
			inv.StudentID = id
		}
	}
	if v, ok := fieldString(fields, "description"); ok {
		inv.Description = v
	}
	if v, ok := fieldInt64(fields, "amount_cents"); ok {
		inv.AmountCents = v
	}
	if v, ok := fieldString(fields, "currency"); ok {
		inv.Currency = v
	}
	if v, ok := fieldString(fields, "status"); ok {
		inv.Status = domain.InvoiceStatus(v)
	}
	if v, ok := fieldTime(fields, "due_date"); ok {
		inv.DueDate = &v
	}
}

func setFacilityFields(f *domain.Facility, fields map[string]any) {
	if v, ok := fieldString(fields, "name"); ok {
		f.Name = v
	}
	if v, ok := fieldString(fields, "category"); ok {
		f.Category = domain.FacilityCategory(v)
	}
	if v, ok := fieldInt64(fields, "capacity"); ok {
		f.Capacity = int(v)
	}
	if v, ok := fieldString(fields, "notes"); ok {
		f.Notes = v
	}
}

func setDocumentFields(doc *domain.Document, fields map[string]any) {
	if v, ok := fieldString(fields, "title"); ok {
		doc.Title = v
	}
	if v, ok := fieldString(fields, "category"); ok {
		doc.Category = domain.DocumentCategory(v)
	}
	if v, ok := fieldString(fields, "student_id"); ok {
		if id, err := uuid.Parse(v); err == nil {
			doc.StudentID = &id
		}
	}
	if v, ok := fieldString(fields, "storage_path"); ok {
		doc.StoragePath = v
	}
	if v, ok := fieldString(fields, "mime_type"); ok {
		doc.MimeType = v
	}
}

func setKnowledgeFields(n *domain.KnowledgeNote, fields map[string]any) {
	if v, ok := fieldString(fields, "title"); ok {
		n.Title = v
	}
	if v, ok := fieldString(fields, "body"); ok {
		n.Body = v
	}
	if raw, ok := fields["tags"]; ok {
		if items, ok := raw.([]any); ok {
			tags := make([]string, 0, len(items))
			for _, item := range items {
				if s, ok := item.(string); ok {
					tags = append(tags, s)
				}
			}
			n.Tags = tags
		}
	}
}

func fieldString(fields map[string]any, name string) (string, bool) {
	v, ok := fields[name].(string)
	return v, ok
}

func fieldInt64(fields map[string]any, name string) (int64, bool) {
	v, ok := fields[name].(float64)
	if !ok {
		return 0, false
	}
	return int64(v), true
}

func fieldTime(fields map[string]any, name string) (time.Time, bool) {
	s, ok := fields[name].(string)
	if !ok {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// snapshot renders an entity as the generic map stored in audit entries.
func snapshot(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
