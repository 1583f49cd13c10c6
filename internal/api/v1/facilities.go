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

type ListFacilitiesOutput struct {
	Body []*domain.Facility
}

type GetFacilityInput struct {
	ID uuid.UUID `path:"id" doc:"Facility ID"`
}

type GetFacilityOutput struct {
	Body *domain.Facility
}

type CreateFacilityInput struct {
	Body struct {
		Name     string `json:"name" minLength:"1" maxLength:"255" doc:"Facility name"`
		Category string `json:"category" enum:"classroom,lab,gym,office,other" doc:"Facility category"`
		Capacity int    `json:"capacity,omitempty" minimum:"0" doc:"Seat capacity"`
		Notes    string `json:"notes,omitempty" maxLength:"2000" doc:"Free-form notes"`
	}
}

type CreateFacilityOutput struct {
	Body *domain.Facility
}

type UpdateFacilityInput struct {
	ID   uuid.UUID `path:"id" doc:"Facility ID"`
	Body struct {
		Name     *string `json:"name,omitempty" doc:"Facility name"`
		Category *string `json:"category,omitempty" doc:"Facility category"`
		Capacity *int    `json:"capacity,omitempty" minimum:"0" doc:"Seat capacity"`
		Notes    *string `json:"notes,omitempty" doc:"Free-form notes"`
	}
}

type UpdateFacilityOutput struct {
	Body *domain.Facility
}

type DeleteFacilityInput struct {
	ID uuid.UUID `path:"id" doc:"Facility ID"`
}

type DeleteFacilityOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

func RegisterFacilityRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-facilities",
		Method:      http.MethodGet,
		Path:        "/facilities",
		Summary:     "List facilities",
		Tags:        []string{"Facilities"},
	}, func(ctx context.Context, _ *struct{}) (*ListFacilitiesOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}

		facilities, err := store.Facilities().List(ctx, schoolID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list facilities", err)
		}

		return &ListFacilitiesOutput{Body: facilities}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-facility",
		Method:      http.MethodGet,
		Path:        "/facilities/{id}",
		Summary:     "Get a facility by ID",
		Tags:        []string{"Facilities"},
	}, func(ctx context.Context, input *GetFacilityInput) (*GetFacilityOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}

		facility, err := store.Facilities().GetByID(ctx, schoolID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("facility not found")
			}
			return nil, huma.Error500InternalServerError("failed to get facility", err)
		}

		return &GetFacilityOutput{Body: facility}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-facility",
		Method:      http.MethodPost,
		Path:        "/facilities",
		Summary:     "Create a facility",
		Tags:        []string{"Facilities"},
	}, func(ctx context.Context, input *CreateFacilityInput) (*CreateFacilityOutput, error) {
		schoolID, userID, ok := writerFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("write access required")
		}

		category := domain.FacilityCategory(input.Body.Category)
		if !category.Valid() {
			return nil, huma.Error400BadRequest("unknown facility category: " + input.Body.Category)
		}

		now := time.Now()
		facility := &domain.Facility{
			ID:        uuid.New(),
			SchoolID:  schoolID,
			Name:      input.Body.Name,
			Category:  category,
			Capacity:  input.Body.Capacity,
			Notes:     input.Body.Notes,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := store.Facilities().Create(ctx, facility); err != nil {
			return nil, huma.Error500InternalServerError("failed to create facility", err)
		}

		recordAudit(ctx, store.Audit(), schoolID, userID, domain.AuditActionCreate, domain.EntityFacility, facility.ID, nil, snapshotRecord(facility))

		return &CreateFacilityOutput{Body: facility}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-facility",
		Method:      http.MethodPatch,
		Path:        "/facilities/{id}",
		Summary:     "Update a facility",
		Tags:        []string{"Facilities"},
	}, func(ctx context.Context, input *UpdateFacilityInput) (*UpdateFacilityOutput, error) {
		schoolID, userID, ok := writerFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("write access required")
		}

		facility, err := store.Facilities().GetByID(ctx, schoolID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("facility not found")
			}
			return nil, huma.Error500InternalServerError("failed to get facility", err)
		}
		before := snapshotRecord(facility)

		if input.Body.Name != nil {
			facility.Name = *input.Body.Name
		}
		if input.Body.Category != nil {
			category := domain.FacilityCategory(*input.Body.Category)
			if !category.Valid() {
				return nil, huma.Error400BadRequest("unknown facility category: " + *input.Body.Category)
			}
			facility.Category = category
		}
		if input.Body.Capacity != nil {
			facility.Capacity = *input.Body.Capacity
		}
		if input.Body.Notes != nil {
			facility.Notes = *input.Body.Notes
		}
		facility.UpdatedAt = time.Now()

		if err := store.Facilities().Update(ctx, facility); err != nil {
			return nil, huma.Error500InternalServerError("failed to update facility", err)
		}

		recordAudit(ctx, store.Audit(), schoolID, userID, domain.AuditActionUpdate, domain.EntityFacility, facility.ID, before, snapshotRecord(facility))

		return &UpdateFacilityOutput{Body: facility}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-facility",
		Method:      http.MethodDelete,
		Path:        "/facilities/{id}",
		Summary:     "Delete a facility",
		Tags:        []string{"Facilities"},
	}, func(ctx context.Context, input *DeleteFacilityInput) (*DeleteFacilityOutput, error) {
		schoolID, userID, ok := writerFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("write access required")
		}

		facility, err := store.Facilities().GetByID(ctx, schoolID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("facility not found")
			}
			return nil, huma.Error500InternalServerError("failed to get facility", err)
		}

		if err := store.Facilities().Delete(ctx, schoolID, input.ID); err != nil {
			return nil, huma.Error500InternalServerError("failed to delete facility", err)
		}

		recordAudit(ctx, store.Audit(), schoolID, userID, domain.AuditActionDelete, domain.EntityFacility, input.ID, snapshotRecord(facility), nil)

		out := &DeleteFacilityOutput{}
		out.Body.Deleted = true
		return out, nil
	})
}
