package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrAlreadyDecided is returned when a decision is attempted on a request
// that already left the pending state. Expected under concurrent decisions.
var ErrAlreadyDecided = errors.New("approval: already decided")

// ErrStaleTarget is returned when an approved mutation can no longer be
// applied because its target disappeared or a reference broke since proposal.
var ErrStaleTarget = errors.New("approval: stale target")

type ApprovalType string

const (
	ApprovalTypeDataChange      ApprovalType = "data_change"
	ApprovalTypeKnowledgeUpdate ApprovalType = "knowledge_update"
)

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// Terminal reports whether the status permits no further transition.
func (s ApprovalStatus) Terminal() bool {
	return s == ApprovalStatusApproved || s == ApprovalStatusRejected
}

// ValidTransition checks a status transition. The only legal moves are
// pending->approved and pending->rejected.
func (s ApprovalStatus) ValidTransition(to ApprovalStatus) bool {
	return s == ApprovalStatusPending && to.Terminal()
}

// ExecutionState tracks what happened after approval. "none" until the
// execution engine runs; "failed" requests sit in the operator remediation
// queue until explicitly retried.
type ExecutionState string

const (
	ExecutionStateNone     ExecutionState = "none"
	ExecutionStateExecuted ExecutionState = "executed"
	ExecutionStateFailed   ExecutionState = "failed"
)

type MutationOp string

const (
	MutationOpCreate MutationOp = "create"
	MutationOpUpdate MutationOp = "update"
	MutationOpDelete MutationOp = "delete"
)

// EntityType names the record kinds a mutation descriptor may target.
type EntityType string

const (
	EntityStudent       EntityType = "student"
	EntityInvoice       EntityType = "invoice"
	EntityFacility      EntityType = "facility"
	EntityDocument      EntityType = "document"
	EntityKnowledgeNote EntityType = "knowledge_note"
)

// ValidEntity reports whether t is one of the closed set of entity types.
func ValidEntity(t EntityType) bool {
	switch t {
	case EntityStudent, EntityInvoice, EntityFacility, EntityDocument, EntityKnowledgeNote:
		return true
	default:
		return false
	}
}

// MutationDescriptor is the normalized, codec-validated form of a proposed
// change. It is the only thing the ledger persists about a proposal; the raw
// model payload is never stored.
type MutationDescriptor struct {
	Entity   EntityType     `json:"entity"`
	Op       MutationOp     `json:"op"`
	TargetID *uuid.UUID     `json:"target_id,omitempty"` // nil for create
	Fields   map[string]any `json:"fields"`              // field-level diff
}

// ApprovalRequest is a proposed action awaiting a human decision.
type ApprovalRequest struct {
	ID              uuid.UUID
	SchoolID        uuid.UUID
	Type            ApprovalType
	Status          ApprovalStatus
	OriginMessageID uuid.UUID
	ProposedBy      uuid.UUID
	Descriptor      MutationDescriptor
	DecidedBy       *uuid.UUID
	DecidedAt       *time.Time
	DecisionNote    string
	ExecState       ExecutionState
	ExecError       string
	CreatedAt       time.Time
}

type ApprovalRepository interface {
	Create(ctx context.Context, r *ApprovalRequest) error
	GetByID(ctx context.Context, schoolID, id uuid.UUID) (*ApprovalRequest, error)
	// List returns requests newest-first. An empty status matches all.
	List(ctx context.Context, schoolID uuid.UUID, status ApprovalStatus, limit, offset int) ([]*ApprovalRequest, error)
	// Decide performs the one-way pending->terminal transition as an atomic
	// compare-and-set. Returns ErrAlreadyDecided when the request has
	// already left pending, ErrNotFound when it does not exist.
	Decide(ctx context.Context, schoolID, id uuid.UUID, status ApprovalStatus, decidedBy uuid.UUID, note string) error
	// ClaimExecution inserts the at-most-once execution marker. Returns
	// false when the marker already exists (a prior apply ran to success).
	ClaimExecution(ctx context.Context, id uuid.UUID) (bool, error)
	// ReleaseExecution removes the marker after a failed apply so an
	// explicit operator retry can claim it again.
	ReleaseExecution(ctx context.Context, id uuid.UUID) error
	MarkExecuted(ctx context.Context, schoolID, id uuid.UUID) error
	MarkExecutionFailed(ctx context.Context, schoolID, id uuid.UUID, reason string) error
}
