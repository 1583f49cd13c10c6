package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type FacilityCategory string

const (
	FacilityCategoryClassroom FacilityCategory = "classroom"
	FacilityCategoryLab       FacilityCategory = "lab"
	FacilityCategoryGym       FacilityCategory = "gym"
	FacilityCategoryOffice    FacilityCategory = "office"
	FacilityCategoryOther     FacilityCategory = "other"
)

var FacilityCategoryLabels = map[FacilityCategory]string{
	FacilityCategoryClassroom: "Classroom",
	FacilityCategoryLab:       "Laboratory",
	FacilityCategoryGym:       "Gymnasium",
	FacilityCategoryOffice:    "Office",
	FacilityCategoryOther:     "Other",
}

func (c FacilityCategory) Valid() bool {
	_, ok := FacilityCategoryLabels[c]
	return ok
}

type Facility struct {
	ID        uuid.UUID
	SchoolID  uuid.UUID
	Name      string
	Category  FacilityCategory
	Capacity  int
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type FacilityRepository interface {
	Create(ctx context.Context, f *Facility) error
	GetByID(ctx context.Context, schoolID, id uuid.UUID) (*Facility, error)
	List(ctx context.Context, schoolID uuid.UUID) ([]*Facility, error)
	Update(ctx context.Context, f *Facility) error
	Delete(ctx context.Context, schoolID, id uuid.UUID) error
}
