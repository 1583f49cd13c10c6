package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusops/aula/internal/domain"
)

type StudentRepo struct {
	pool *pgxpool.Pool
}

func NewStudentRepo(pool *pgxpool.Pool) *StudentRepo {
	return &StudentRepo{pool: pool}
}

func (r *StudentRepo) Create(ctx context.Context, s *domain.Student) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO students (id, school_id, first_name, last_name, email, guardian_name, status, enrolled_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.SchoolID, s.FirstName, s.LastName, s.Email, s.GuardianName, s.Status, s.EnrolledAt, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("studentRepo.Create: %w", err)
	}

	return nil
}

func (r *StudentRepo) GetByID(ctx context.Context, schoolID, id uuid.UUID) (*domain.Student, error) {
	var s domain.Student

	err := r.pool.QueryRow(ctx,
		`SELECT id, school_id, first_name, last_name, email, guardian_name, status, enrolled_at, created_at, updated_at
		 FROM students WHERE school_id = $1 AND id = $2`,
		schoolID, id,
	).Scan(&s.ID, &s.SchoolID, &s.FirstName, &s.LastName, &s.Email, &s.GuardianName, &s.Status, &s.EnrolledAt, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("studentRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("studentRepo.GetByID: %w", err)
	}

	return &s, nil
}

func (r *StudentRepo) List(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*domain.Student, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, school_id, first_name, last_name, email, guardian_name, status, enrolled_at, created_at, updated_at
		 FROM students WHERE school_id = $1
		 ORDER BY last_name, first_name
		 LIMIT $2 OFFSET $3`,
		schoolID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("studentRepo.List: %w", err)
	}
	defer rows.Close()

	var students []*domain.Student
	for rows.Next() {
		var s domain.Student
		if err := rows.Scan(&s.ID, &s.SchoolID, &s.FirstName, &s.LastName, &s.Email, &s.GuardianName, &s.Status, &s.EnrolledAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("studentRepo.List: scan: %w", err)
		}
		students = append(students, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("studentRepo.List: rows: %w", err)
	}

	return students, nil
}

func (r *StudentRepo) Update(ctx context.Context, s *domain.Student) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE students SET first_name = $1, last_name = $2, email = $3, guardian_name = $4, status = $5, enrolled_at = $6, updated_at = $7
		 WHERE school_id = $8 AND id = $9`,
		s.FirstName, s.LastName, s.Email, s.GuardianName, s.Status, s.EnrolledAt, s.UpdatedAt, s.SchoolID, s.ID,
	)
	if err != nil {
		return fmt.Errorf("studentRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("studentRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *StudentRepo) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM students WHERE school_id = $1 AND id = $2`,
		schoolID, id,
	)
	if err != nil {
		return fmt.Errorf("studentRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("studentRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}
