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

type ListDocumentsInput struct {
	StudentID uuid.UUID `query:"student_id" doc:"Filter by student file; zero lists all"`
	Limit     int       `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Page size"`
	Offset    int       `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
}

type ListDocumentsOutput struct {
	Body []*domain.Document
}

type GetDocumentInput struct {
	ID uuid.UUID `path:"id" doc:"Document ID"`
}

type GetDocumentOutput struct {
	Body *domain.Document
}

type CreateDocumentInput struct {
	Body struct {
		Title       string     `json:"title" minLength:"1" maxLength:"255" doc:"Document title"`
		Category    string     `json:"category" enum:"transcript,enrollment,medical,consent,correspondence,other" doc:"Document category"`
		StudentID   *uuid.UUID `json:"student_id,omitempty" doc:"Owning student file, if any"`
		StoragePath string     `json:"storage_path" minLength:"1" maxLength:"1024" doc:"Object storage path"`
		MimeType    string     `json:"mime_type,omitempty" maxLength:"255" doc:"MIME type"`
	}
}

type CreateDocumentOutput struct {
	Body *domain.Document
}

type UpdateDocumentInput struct {
	ID   uuid.UUID `path:"id" doc:"Document ID"`
	Body struct {
		Title       *string `json:"title,omitempty" doc:"Document title"`
		Category    *string `json:"category,omitempty" doc:"Document category"`
		StoragePath *string `json:"storage_path,omitempty" doc:"Object storage path"`
		MimeType    *string `json:"mime_type,omitempty" doc:"MIME type"`
	}
}

type UpdateDocumentOutput struct {
	Body *domain.Document
}

type DeleteDocumentInput struct {
	ID uuid.UUID `path:"id" doc:"Document ID"`
}

type DeleteDocumentOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

func RegisterDocumentRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-documents",
		Method:      http.MethodGet,
		Path:        "/documents",
		Summary:     "List documents",
		Tags:        []string{"Documents"},
	}, func(ctx context.Context, input *ListDocumentsInput) (*ListDocumentsOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}

		var (
			documents []*domain.Document
			err       error
		)
		if input.StudentID != uuid.Nil {
			documents, err = store.Documents().ListByStudent(ctx, schoolID, input.StudentID)
		} else {
			documents, err = store.Documents().List(ctx, schoolID, input.Limit, input.Offset)
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list documents", err)
		}

		return &ListDocumentsOutput{Body: documents}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-document",
		Method:      http.MethodGet,
		Path:        "/documents/{id}",
		Summary:     "Get a document by ID",
		Tags:        []string{"Documents"},
	}, func(ctx context.Context, input *GetDocumentInput) (*GetDocumentOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}

		document, err := store.Documents().GetByID(ctx, schoolID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("document not found")
			}
			return nil, huma.Error500InternalServerError("failed to get document", err)
		}

		return &GetDocumentOutput{Body: document}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-document",
		Method:      http.MethodPost,
		Path:        "/documents",
		Summary:     "Create a document record",
		Tags:        []string{"Documents"},
	}, func(ctx context.Context, input *CreateDocumentInput) (*CreateDocumentOutput, error) {
		schoolID, userID, ok := writerFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("write access required")
		}

		category := domain.DocumentCategory(input.Body.Category)
		if !category.Valid() {
			return nil, huma.Error400BadRequest("unknown document category: " + input.Body.Category)
		}

		if input.Body.StudentID != nil {
			if _, err := store.Students().GetByID(ctx, schoolID, *input.Body.StudentID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil, huma.Error404NotFound("student not found")
				}
				return nil, huma.Error500InternalServerError("failed to verify student", err)
			}
		}

		now := time.Now()
		document := &domain.Document{
			ID:          uuid.New(),
			SchoolID:    schoolID,
			Title:       input.Body.Title,
			Category:    category,
			StudentID:   input.Body.StudentID,
			StoragePath: input.Body.StoragePath,
			MimeType:    input.Body.MimeType,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := store.Documents().Create(ctx, document); err != nil {
			return nil, huma.Error500InternalServerError("failed to create document", err)
		}

		recordAudit(ctx, store.Audit(), schoolID, userID, domain.AuditActionCreate, domain.EntityDocument, document.ID, nil, snapshotRecord(document))

		return &CreateDocumentOutput{Body: document}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-document",
		Method:      http.MethodPatch,
		Path:        "/documents/{id}",
		Summary:     "Update a document record",
		Tags:        []string{"Documents"},
	}, func(ctx context.Context, input *UpdateDocumentInput) (*UpdateDocumentOutput, error) {
		schoolID, userID, ok := writerFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("write access required")
		}

		document, err := store.Documents().GetByID(ctx, schoolID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("document not found")
			}
			return nil, huma.Error500InternalServerError("failed to get document", err)
		}
		before := snapshotRecord(document)

		if input.Body.Title != nil {
			document.Title = *input.Body.Title
		}
		if input.Body.Category != nil {
			category := domain.DocumentCategory(*input.Body.Category)
			if !category.Valid() {
				return nil, huma.Error400BadRequest("unknown document category: " + *input.Body.Category)
			}
			document.Category = category
		}
		if input.Body.StoragePath != nil {
			document.StoragePath = *input.Body.StoragePath
		}
		if input.Body.MimeType != nil {
			document.MimeType = *input.Body.MimeType
		}
		document.UpdatedAt = time.Now()

		if err := store.Documents().Update(ctx, document); err != nil {
			return nil, huma.Error500InternalServerError("failed to update document", err)
		}

		recordAudit(ctx, store.Audit(), schoolID, userID, domain.AuditActionUpdate, domain.EntityDocument, document.ID, before, snapshotRecord(document))

		return &UpdateDocumentOutput{Body: document}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-document",
		Method:      http.MethodDelete,
		Path:        "/documents/{id}",
		Summary:     "Delete a document record",
		Tags:        []string{"Documents"},
	}, func(ctx context.Context, input *DeleteDocumentInput) (*DeleteDocumentOutput, error) {
		schoolID, userID, ok := writerFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("write access required")
		}

		document, err := store.Documents().GetByID(ctx, schoolID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("document not found")
			}
			return nil, huma.Error500InternalServerError("failed to get document", err)
		}

		if err := store.Documents().Delete(ctx, schoolID, input.ID); err != nil {
			return nil, huma.Error500InternalServerError("failed to delete document", err)
		}

		recordAudit(ctx, store.Audit(), schoolID, userID, domain.AuditActionDelete, domain.EntityDocument, input.ID, snapshotRecord(document), nil)

		out := &DeleteDocumentOutput{}
		out.Body.Deleted = true
		return out, nil
	})
}
