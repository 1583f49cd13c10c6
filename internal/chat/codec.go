package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/campusops/aula/internal/domain"
	"github.com/campusops/aula/internal/llm"
)

// ErrMalformedProposal is returned when a proposal tool call fails structural
// or semantic validation. Malformed proposals are dropped without retry and
// surfaced to the user as a refusal; they never reach the approval ledger.
var ErrMalformedProposal = errors.New("chat: malformed proposal")

// ErrUnknownTool is returned for a tool call naming no known tool.
var ErrUnknownTool = errors.New("chat: unknown tool")

// Codec validates raw proposal tool calls and normalizes them into mutation
// descriptors. Validation is strict: unknown entities, unknown fields, bad
// enum values, and broken references all fail decoding.
type Codec struct {
	records RecordStore
}

func NewCodec(records RecordStore) *Codec {
	return &Codec{records: records}
}

// proposalPayload is the wire shape of a proposal tool call's arguments.
type proposalPayload struct {
	Entity   string         `json:"entity"`
	Op       string         `json:"op"`
	TargetID string         `json:"target_id"`
	Fields   map[string]any `json:"fields"`
}

// Decode validates one proposal tool call and returns its normalized
// descriptor and approval type. Only proposal tools decode; query tools and
// unknown names return ErrUnknownTool.
func (c *Codec) Decode(ctx context.Context, schoolID uuid.UUID, call llm.ToolCall) (*domain.MutationDescriptor, domain.ApprovalType, error) {
	var approvalType domain.ApprovalType

	switch call.Function.Name {
	case ToolProposeDataChange:
		approvalType = domain.ApprovalTypeDataChange
	case ToolProposeKnowledgeUpdate:
		approvalType = domain.ApprovalTypeKnowledgeUpdate
	default:
		return nil, "", fmt.Errorf("chat.Codec.Decode: %q: %w", call.Function.Name, ErrUnknownTool)
	}

	var payload proposalPayload
	if err := json.Unmarshal([]byte(call.Function.Arguments), &payload); err != nil {
		return nil, "", fmt.Errorf("chat.Codec.Decode: parse arguments: %v: %w", err, ErrMalformedProposal)
	}

	if approvalType == domain.ApprovalTypeKnowledgeUpdate {
		payload.Entity = string(domain.EntityKnowledgeNote)
	}

	entity := domain.EntityType(payload.Entity)
	if !domain.ValidEntity(entity) {
		return nil, "", fmt.Errorf("chat.Codec.Decode: entity %q: %w", payload.Entity, ErrMalformedProposal)
	}
	// Knowledge notes only travel through the knowledge proposal tool.
	if approvalType == domain.ApprovalTypeDataChange && entity == domain.EntityKnowledgeNote {
		return nil, "", fmt.Errorf("chat.Codec.Decode: knowledge notes require the knowledge tool: %w", ErrMalformedProposal)
	}

	op := domain.MutationOp(payload.Op)
	switch op {
	case domain.MutationOpCreate, domain.MutationOpUpdate, domain.MutationOpDelete:
	default:
		return nil, "", fmt.Errorf("chat.Codec.Decode: op %q: %w", payload.Op, ErrMalformedProposal)
	}

	var targetID *uuid.UUID
	if payload.TargetID != "" {
		id, err := uuid.Parse(payload.TargetID)
		if err != nil {
			return nil, "", fmt.Errorf("chat.Codec.Decode: target_id %q: %w", payload.TargetID, ErrMalformedProposal)
		}
		targetID = &id
	}

	switch op {
	case domain.MutationOpCreate:
		if targetID != nil {
			return nil, "", fmt.Errorf("chat.Codec.Decode: create takes no target_id: %w", ErrMalformedProposal)
		}
		if len(payload.Fields) == 0 {
			return nil, "", fmt.Errorf("chat.Codec.Decode: create requires fields: %w", ErrMalformedProposal)
		}
	case domain.MutationOpUpdate:
		if targetID == nil {
			return nil, "", fmt.Errorf("chat.Codec.Decode: update requires target_id: %w", ErrMalformedProposal)
		}
		if len(payload.Fields) == 0 {
			return nil, "", fmt.Errorf("chat.Codec.Decode: update requires fields: %w", ErrMalformedProposal)
		}
	case domain.MutationOpDelete:
		if targetID == nil {
			return nil, "", fmt.Errorf("chat.Codec.Decode: delete requires target_id: %w", ErrMalformedProposal)
		}
		if len(payload.Fields) != 0 {
			return nil, "", fmt.Errorf("chat.Codec.Decode: delete takes no fields: %w", ErrMalformedProposal)
		}
	}

	if err := c.validateFields(entity, op, payload.Fields); err != nil {
		return nil, "", fmt.Errorf("chat.Codec.Decode: %w", err)
	}

	if err := c.checkReferences(ctx, schoolID, entity, targetID, payload.Fields); err != nil {
		return nil, "", fmt.Errorf("chat.Codec.Decode: %w", err)
	}

	return &domain.MutationDescriptor{
		Entity:   entity,
		Op:       op,
		TargetID: targetID,
		Fields:   payload.Fields,
	}, approvalType, nil
}

// fieldCheck validates one field value after JSON decoding (numbers arrive
// as float64).
type fieldCheck func(v any) error

type entityRules struct {
	fields   map[string]fieldCheck
	required []string // required on create
}

var mutationRules = map[domain.EntityType]entityRules{
	domain.EntityStudent: {
		fields: map[string]fieldCheck{
			"first_name":    checkString,
			"last_name":     checkString,
			"email":         checkString,
			"guardian_name": checkString,
			"status": checkEnum(func(s string) bool {
				return domain.StudentStatus(s).Valid()
			}),
			"enrolled_at": checkDate,
		},
		required: []string{"first_name", "last_name"},
	},
	domain.EntityInvoice: {
		fields: map[string]fieldCheck{
			"student_id":   checkUUID,
			"description":  checkString,
			"amount_cents": checkNonNegativeInt,
			"currency":     checkCurrency,
			"status": checkEnum(func(s string) bool {
				return domain.InvoiceStatus(s).Valid()
			}),
			"due_date": checkDate,
		},
		required: []string{"student_id", "amount_cents", "currency"},
	},
	domain.EntityFacility: {
		fields: map[string]fieldCheck{
			"name": checkString,
			"category": checkEnum(func(s string) bool {
				return domain.FacilityCategory(s).Valid()
			}),
			"capacity": checkNonNegativeInt,
			"notes":    checkString,
		},
		required: []string{"name", "category"},
	},
	domain.EntityDocument: {
		fields: map[string]fieldCheck{
			"title": checkString,
			"category": checkEnum(func(s string) bool {
				return domain.DocumentCategory(s).Valid()
			}),
			"student_id":   checkUUID,
			"storage_path": checkString,
			"mime_type":    checkString,
		},
		required: []string{"title", "category", "storage_path"},
	},
	domain.EntityKnowledgeNote: {
		fields: map[string]fieldCheck{
			"title": checkString,
			"body":  checkString,
			"tags":  checkStringSlice,
		},
		required: []string{"title", "body"},
	},
}

func (c *Codec) validateFields(entity domain.EntityType, op domain.MutationOp, fields map[string]any) error {
	rules := mutationRules[entity]

	for name, value := range fields {
		check, known := rules.fields[name]
		if !known {
			return fmt.Errorf("field %q not allowed for %s: %w", name, entity, ErrMalformedProposal)
		}
		if err := check(value); err != nil {
			return fmt.Errorf("field %q: %v: %w", name, err, ErrMalformedProposal)
		}
	}

	if op == domain.MutationOpCreate {
		for _, name := range rules.required {
			if _, ok := fields[name]; !ok {
				return fmt.Errorf("field %q required to create %s: %w", name, entity, ErrMalformedProposal)
			}
		}
	}

	return nil
}

// checkReferences verifies the mutation target exists (update and delete)
// and that any student reference in the fields resolves. Both are
// best-effort pre-checks; the execution engine re-verifies at apply time.
func (c *Codec) checkReferences(ctx context.Context, schoolID uuid.UUID, entity domain.EntityType, targetID *uuid.UUID, fields map[string]any) error {
	if targetID != nil {
		if err := c.entityExists(ctx, schoolID, entity, *targetID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("target %s %s not found: %w", entity, targetID, ErrMalformedProposal)
			}
			return err
		}
	}

	if raw, ok := fields["student_id"]; ok && entity != domain.EntityStudent {
		s, _ := raw.(string)
		studentID, err := uuid.Parse(s)
		if err != nil {
			return fmt.Errorf("student_id %q: %w", s, ErrMalformedProposal)
		}
		if _, err := c.records.Students().GetByID(ctx, schoolID, studentID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("student %s not found: %w", studentID, ErrMalformedProposal)
			}
			return err
		}
	}

	return nil
}

func (c *Codec) entityExists(ctx context.Context, schoolID uuid.UUID, entity domain.EntityType, id uuid.UUID) error {
	var err error
	switch entity {
	case domain.EntityStudent:
		_, err = c.records.Students().GetByID(ctx, schoolID, id)
	case domain.EntityInvoice:
		_, err = c.records.Invoices().GetByID(ctx, schoolID, id)
	case domain.EntityFacility:
		_, err = c.records.Facilities().GetByID(ctx, schoolID, id)
	case domain.EntityDocument:
		_, err = c.records.Documents().GetByID(ctx, schoolID, id)
	case domain.EntityKnowledgeNote:
		_, err = c.records.Knowledge().GetByID(ctx, schoolID, id)
	}
	return err
}

func checkString(v any) error {
	s, ok := v.(string)
	if !ok {
		return errors.New("expected string")
	}
	if s == "" {
		return errors.New("must not be empty")
	}
	return nil
}

func checkUUID(v any) error {
	s, ok := v.(string)
	if !ok {
		return errors.New("expected string UUID")
	}
	if _, err := uuid.Parse(s); err != nil {
		return errors.New("invalid UUID")
	}
	return nil
}

func checkEnum(valid func(string) bool) fieldCheck {
	return func(v any) error {
		s, ok := v.(string)
		if !ok {
			return errors.New("expected string")
		}
		if !valid(s) {
			return fmt.Errorf("value %q not in allowed set", s)
		}
		return nil
	}
}

func checkNonNegativeInt(v any) error {
	f, ok := v.(float64)
	if !ok {
		return errors.New("expected number")
	}
	if f != math.Trunc(f) {
		return errors.New("expected integer")
	}
	if f < 0 {
		return errors.New("must not be negative")
	}
	return nil
}

func checkCurrency(v any) error {
	s, ok := v.(string)
	if !ok {
		return errors.New("expected string")
	}
	if len(s) != 3 {
		return errors.New("expected 3-letter currency code")
	}
	return nil
}

func checkDate(v any) error {
	s, ok := v.(string)
	if !ok {
		return errors.New("expected string date")
	}
	if _, err := time.Parse(time.RFC3339, s); err != nil {
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return errors.New("expected RFC 3339 timestamp or YYYY-MM-DD date")
		}
	}
	return nil
}

func checkStringSlice(v any) error {
	items, ok := v.([]any)
	if !ok {
		return errors.New("expected array of strings")
	}
	for _, item := range items {
		if _, ok := item.(string); !ok {
			return errors.New("expected array of strings")
		}
	}
	return nil
}
