package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/campusops/aula/internal/domain"
	"github.com/campusops/aula/internal/server/middleware"
)

type ListAuditInput struct {
	Limit  int `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Page size"`
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
}

type ListAuditOutput struct {
	Body []*domain.AuditEntry
}

type ListEntityAuditInput struct {
	Entity   string    `query:"entity" required:"true" enum:"student,invoice,facility,document,knowledge_note" doc:"Entity type"`
	EntityID uuid.UUID `query:"entity_id" required:"true" doc:"Entity ID"`
}

type ListEntityAuditOutput struct {
	Body []*domain.AuditEntry
}

func RegisterAuditRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-audit-entries",
		Method:      http.MethodGet,
		Path:        "/audit",
		Summary:     "List audit entries for the school, newest first",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *ListAuditInput) (*ListAuditOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}

		entries, err := store.Audit().ListBySchool(ctx, schoolID, input.Limit, input.Offset)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list audit entries", err)
		}

		return &ListAuditOutput{Body: entries}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-entity-audit-entries",
		Method:      http.MethodGet,
		Path:        "/audit/entity",
		Summary:     "List audit entries for one record",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *ListEntityAuditInput) (*ListEntityAuditOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}

		entries, err := store.Audit().ListByEntity(ctx, schoolID, domain.EntityType(input.Entity), input.EntityID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list audit entries", err)
		}

		return &ListEntityAuditOutput{Body: entries}, nil
	})
}
