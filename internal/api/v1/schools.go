package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/campusops/aula/internal/domain"
	"github.com/campusops/aula/internal/server/middleware"
)

type CreateSchoolInput struct {
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"255" doc:"School name"`
		Slug string `json:"slug" minLength:"1" maxLength:"63" pattern:"^[a-z0-9]+(?:-[a-z0-9]+)*$" doc:"URL-safe slug (lowercase alphanumeric with hyphens)"`
	}
}

type CreateSchoolOutput struct {
	Body *domain.School
}

type ListSchoolsOutput struct {
	Body []*domain.School
}

func RegisterSchoolRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "create-school",
		Method:      http.MethodPost,
		Path:        "/schools",
		Summary:     "Create a new school",
		Tags:        []string{"Schools"},
	}, func(ctx context.Context, input *CreateSchoolInput) (*CreateSchoolOutput, error) {
		role, ok := middleware.RoleFromContext(ctx)
		if !ok || role != domain.RoleAdmin {
			return nil, huma.Error403Forbidden("admin role required")
		}

		now := time.Now()
		s := &domain.School{
			ID:        uuid.New(),
			Name:      input.Body.Name,
			Slug:      input.Body.Slug,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := store.Schools().Create(ctx, s); err != nil {
			return nil, huma.Error500InternalServerError("failed to create school", err)
		}

		return &CreateSchoolOutput{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-schools",
		Method:      http.MethodGet,
		Path:        "/schools",
		Summary:     "List all schools",
		Tags:        []string{"Schools"},
	}, func(ctx context.Context, _ *struct{}) (*ListSchoolsOutput, error) {
		role, ok := middleware.RoleFromContext(ctx)
		if !ok || role != domain.RoleAdmin {
			return nil, huma.Error403Forbidden("admin role required")
		}

		schools, err := store.Schools().List(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list schools", err)
		}

		return &ListSchoolsOutput{Body: schools}, nil
	})
}
