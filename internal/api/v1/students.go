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

type ListStudentsInput struct {
	Limit  int `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Page size"`
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
}

type ListStudentsOutput struct {
	Body []*domain.Student
}

type GetStudentInput struct {
	ID uuid.UUID `path:"id" doc:"Student ID"`
}

type GetStudentOutput struct {
	Body *domain.Student
}

type CreateStudentInput struct {
	Body struct {
		FirstName    string `json:"first_name" minLength:"1" maxLength:"255" doc:"First name"`
		LastName     string `json:"last_name" minLength:"1" maxLength:"255" doc:"Last name"`
		Email        string `json:"email,omitempty" maxLength:"255" doc:"Contact email"`
		GuardianName string `json:"guardian_name,omitempty" maxLength:"255" doc:"Guardian name"`
		Status       string `json:"status,omitempty" enum:"enrolled,on_leave,withdrawn,graduated," doc:"Enrollment status"`
	}
}

type CreateStudentOutput struct {
	Body *domain.Student
}

type UpdateStudentInput struct {
	ID   uuid.UUID `path:"id" doc:"Student ID"`
	Body struct {
		FirstName    *string `json:"first_name,omitempty" doc:"First name"`
		LastName     *string `json:"last_name,omitempty" doc:"Last name"`
		Email        *string `json:"email,omitempty" doc:"Contact email"`
		GuardianName *string `json:"guardian_name,omitempty" doc:"Guardian name"`
		Status       *string `json:"status,omitempty" doc:"Enrollment status"`
	}
}

type UpdateStudentOutput struct {
	Body *domain.Student
}

type DeleteStudentInput struct {
	ID uuid.UUID `path:"id" doc:"Student ID"`
}

type DeleteStudentOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

func RegisterStudentRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-students",
		Method:      http.MethodGet,
		Path:        "/students",
		Summary:     "List students",
		Tags:        []string{"Students"},
	}, func(ctx context.Context, input *ListStudentsInput) (*ListStudentsOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}

		students, err := store.Students().List(ctx, schoolID, input.Limit, input.Offset)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list students", err)
		}

		return &ListStudentsOutput{Body: students}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-student",
		Method:      http.MethodGet,
		Path:        "/students/{id}",
		Summary:     "Get a student by ID",
		Tags:        []string{"Students"},
	}, func(ctx context.Context, input *GetStudentInput) (*GetStudentOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}

		student, err := store.Students().GetByID(ctx, schoolID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("student not found")
			}
			return nil, huma.Error500InternalServerError("failed to get student", err)
		}

		return &GetStudentOutput{Body: student}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-student",
		Method:      http.MethodPost,
		Path:        "/students",
		Summary:     "Create a student",
		Tags:        []string{"Students"},
	}, func(ctx context.Context, input *CreateStudentInput) (*CreateStudentOutput, error) {
		schoolID, userID, ok := writerFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("write access required")
		}

		status := domain.StudentStatus(input.Body.Status)
		if status == "" {
			status = domain.StudentStatusEnrolled
		}
		if !status.Valid() {
			return nil, huma.Error400BadRequest("unknown student status: " + input.Body.Status)
		}

		now := time.Now()
		student := &domain.Student{
			ID:           uuid.New(),
			SchoolID:     schoolID,
			FirstName:    input.Body.FirstName,
			LastName:     input.Body.LastName,
			Email:        input.Body.Email,
			GuardianName: input.Body.GuardianName,
			Status:       status,
			EnrolledAt:   now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := store.Students().Create(ctx, student); err != nil {
			return nil, huma.Error500InternalServerError("failed to create student", err)
		}

		recordAudit(ctx, store.Audit(), schoolID, userID, domain.AuditActionCreate, domain.EntityStudent, student.ID, nil, snapshotRecord(student))

		return &CreateStudentOutput{Body: student}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-student",
		Method:      http.MethodPatch,
		Path:        "/students/{id}",
		Summary:     "Update a student",
		Tags:        []string{"Students"},
	}, func(ctx context.Context, input *UpdateStudentInput) (*UpdateStudentOutput, error) {
		schoolID, userID, ok := writerFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("write access required")
		}

		student, err := store.Students().GetByID(ctx, schoolID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("student not found")
			}
			return nil, huma.Error500InternalServerError("failed to get student", err)
		}
		before := snapshotRecord(student)

		if input.Body.FirstName != nil {
			student.FirstName = *input.Body.FirstName
		}
		if input.Body.LastName != nil {
			student.LastName = *input.Body.LastName
		}
		if input.Body.Email != nil {
			student.Email = *input.Body.Email
		}
		if input.Body.GuardianName != nil {
			student.GuardianName = *input.Body.GuardianName
		}
		if input.Body.Status != nil {
			status := domain.StudentStatus(*input.Body.Status)
			if !status.Valid() {
				return nil, huma.Error400BadRequest("unknown student status: " + *input.Body.Status)
			}
			student.Status = status
		}
		student.UpdatedAt = time.Now()

		if err := store.Students().Update(ctx, student); err != nil {
			return nil, huma.Error500InternalServerError("failed to update student", err)
		}

		recordAudit(ctx, store.Audit(), schoolID, userID, domain.AuditActionUpdate, domain.EntityStudent, student.ID, before, snapshotRecord(student))

		return &UpdateStudentOutput{Body: student}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-student",
		Method:      http.MethodDelete,
		Path:        "/students/{id}",
		Summary:     "Delete a student",
		Tags:        []string{"Students"},
	}, func(ctx context.Context, input *DeleteStudentInput) (*DeleteStudentOutput, error) {
		schoolID, userID, ok := writerFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("write access required")
		}

		student, err := store.Students().GetByID(ctx, schoolID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("student not found")
			}
			return nil, huma.Error500InternalServerError("failed to get student", err)
		}

		if err := store.Students().Delete(ctx, schoolID, input.ID); err != nil {
			return nil, huma.Error500InternalServerError("failed to delete student", err)
		}

		recordAudit(ctx, store.Audit(), schoolID, userID, domain.AuditActionDelete, domain.EntityStudent, input.ID, snapshotRecord(student), nil)

		out := &DeleteStudentOutput{}
		out.Body.Deleted = true
		return out, nil
	})
}
