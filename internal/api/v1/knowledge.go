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

type ListKnowledgeInput struct {
	Limit  int `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Page size"`
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
}

type ListKnowledgeOutput struct {
	Body []*domain.KnowledgeNote
}

type GetKnowledgeInput struct {
	ID uuid.UUID `path:"id" doc:"Knowledge note ID"`
}

type GetKnowledgeOutput struct {
	Body *domain.KnowledgeNote
}

type CreateKnowledgeInput struct {
	Body struct {
		Title string   `json:"title" minLength:"1" maxLength:"255" doc:"Note title"`
		Body  string   `json:"body" minLength:"1" doc:"Note body"`
		Tags  []string `json:"tags,omitempty" maxItems:"20" doc:"Tags"`
	}
}

type CreateKnowledgeOutput struct {
	Body *domain.KnowledgeNote
}

type UpdateKnowledgeInput struct {
	ID   uuid.UUID `path:"id" doc:"Knowledge note ID"`
	Body struct {
		Title *string   `json:"title,omitempty" doc:"Note title"`
		Body  *string   `json:"body,omitempty" doc:"Note body"`
		Tags  *[]string `json:"tags,omitempty" doc:"Tags"`
	}
}

type UpdateKnowledgeOutput struct {
	Body *domain.KnowledgeNote
}

type DeleteKnowledgeInput struct {
	ID uuid.UUID `path:"id" doc:"Knowledge note ID"`
}

type DeleteKnowledgeOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

func RegisterKnowledgeRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-knowledge-notes",
		Method:      http.MethodGet,
		Path:        "/knowledge",
		Summary:     "List knowledge notes",
		Tags:        []string{"Knowledge"},
	}, func(ctx context.Context, input *ListKnowledgeInput) (*ListKnowledgeOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}

		notes, err := store.Knowledge().List(ctx, schoolID, input.Limit, input.Offset)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list knowledge notes", err)
		}

		return &ListKnowledgeOutput{Body: notes}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-knowledge-note",
		Method:      http.MethodGet,
		Path:        "/knowledge/{id}",
		Summary:     "Get a knowledge note by ID",
		Tags:        []string{"Knowledge"},
	}, func(ctx context.Context, input *GetKnowledgeInput) (*GetKnowledgeOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}

		note, err := store.Knowledge().GetByID(ctx, schoolID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("knowledge note not found")
			}
			return nil, huma.Error500InternalServerError("failed to get knowledge note", err)
		}

		return &GetKnowledgeOutput{Body: note}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-knowledge-note",
		Method:      http.MethodPost,
		Path:        "/knowledge",
		Summary:     "Create a knowledge note",
		Tags:        []string{"Knowledge"},
	}, func(ctx context.Context, input *CreateKnowledgeInput) (*CreateKnowledgeOutput, error) {
		schoolID, userID, ok := writerFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("write access required")
		}

		now := time.Now()
		note := &domain.KnowledgeNote{
			ID:        uuid.New(),
			SchoolID:  schoolID,
			Title:     input.Body.Title,
			Body:      input.Body.Body,
			Tags:      input.Body.Tags,
			UpdatedBy: userID,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := store.Knowledge().Create(ctx, note); err != nil {
			return nil, huma.Error500InternalServerError("failed to create knowledge note", err)
		}

		recordAudit(ctx, store.Audit(), schoolID, userID, domain.AuditActionKnowledgeUpdate, domain.EntityKnowledgeNote, note.ID, nil, snapshotRecord(note))

		return &CreateKnowledgeOutput{Body: note}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-knowledge-note",
		Method:      http.MethodPatch,
		Path:        "/knowledge/{id}",
		Summary:     "Update a knowledge note",
		Tags:        []string{"Knowledge"},
	}, func(ctx context.Context, input *UpdateKnowledgeInput) (*UpdateKnowledgeOutput, error) {
		schoolID, userID, ok := writerFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("write access required")
		}

		note, err := store.Knowledge().GetByID(ctx, schoolID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("knowledge note not found")
			}
			return nil, huma.Error500InternalServerError("failed to get knowledge note", err)
		}
		before := snapshotRecord(note)

		if input.Body.Title != nil {
			note.Title = *input.Body.Title
		}
		if input.Body.Body != nil {
			note.Body = *input.Body.Body
		}
		if input.Body.Tags != nil {
			note.Tags = *input.Body.Tags
		}
		note.UpdatedBy = userID
		note.UpdatedAt = time.Now()

		if err := store.Knowledge().Update(ctx, note); err != nil {
			return nil, huma.Error500InternalServerError("failed to update knowledge note", err)
		}

		recordAudit(ctx, store.Audit(), schoolID, userID, domain.AuditActionKnowledgeUpdate, domain.EntityKnowledgeNote, note.ID, before, snapshotRecord(note))

		return &UpdateKnowledgeOutput{Body: note}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-knowledge-note",
		Method:      http.MethodDelete,
		Path:        "/knowledge/{id}",
		Summary:     "Delete a knowledge note",
		Tags:        []string{"Knowledge"},
	}, func(ctx context.Context, input *DeleteKnowledgeInput) (*DeleteKnowledgeOutput, error) {
		schoolID, userID, ok := writerFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("write access required")
		}

		note, err := store.Knowledge().GetByID(ctx, schoolID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("knowledge note not found")
			}
			return nil, huma.Error500InternalServerError("failed to get knowledge note", err)
		}

		if err := store.Knowledge().Delete(ctx, schoolID, input.ID); err != nil {
			return nil, huma.Error500InternalServerError("failed to delete knowledge note", err)
		}

		recordAudit(ctx, store.Audit(), schoolID, userID, domain.AuditActionDelete, domain.EntityKnowledgeNote, input.ID, snapshotRecord(note), nil)

		out := &DeleteKnowledgeOutput{}
		out.Body.Deleted = true
		return out, nil
	})
}
