package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type StudentStatus string

const (
	StudentStatusEnrolled  StudentStatus = "enrolled"
	StudentStatusOnLeave   StudentStatus = "on_leave"
	StudentStatusWithdrawn StudentStatus = "withdrawn"
	StudentStatusGraduated StudentStatus = "graduated"
)

// StudentStatusLabels maps each status code to its display label.
var StudentStatusLabels = map[StudentStatus]string{
	StudentStatusEnrolled:  "Enrolled",
	StudentStatusOnLeave:   "On leave",
	StudentStatusWithdrawn: "Withdrawn",
	StudentStatusGraduated: "Graduated",
}

// Valid reports whether s is one of the closed status set.
func (s StudentStatus) Valid() bool {
	_, ok := StudentStatusLabels[s]
	return ok
}

type Student struct {
	ID           uuid.UUID
	SchoolID     uuid.UUID
	FirstName    string
	LastName     string
	Email        string
	GuardianName string
	Status       StudentStatus
	EnrolledAt   time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type StudentRepository interface {
	Create(ctx context.Context, s *Student) error
	GetByID(ctx context.Context, schoolID, id uuid.UUID) (*Student, error)
	List(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*Student, error)
	Update(ctx context.Context, s *Student) error
	Delete(ctx context.Context, schoolID, id uuid.UUID) error
}
