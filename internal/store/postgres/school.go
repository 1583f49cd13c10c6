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

type SchoolRepo struct {
	pool *pgxpool.Pool
}

func NewSchoolRepo(pool *pgxpool.Pool) *SchoolRepo {
	return &SchoolRepo{pool: pool}
}

func (r *SchoolRepo) Create(ctx context.Context, s *domain.School) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO schools (id, name, slug, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.Name, s.Slug, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("schoolRepo.Create: %w", err)
	}

	return nil
}

func (r *SchoolRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.School, error) {
	var s domain.School

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM schools WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Name, &s.Slug, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("schoolRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("schoolRepo.GetByID: %w", err)
	}

	return &s, nil
}

func (r *SchoolRepo) GetBySlug(ctx context.Context, slug string) (*domain.School, error) {
	var s domain.School

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM schools WHERE slug = $1`,
		slug,
	).Scan(&s.ID, &s.Name, &s.Slug, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("schoolRepo.GetBySlug: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("schoolRepo.GetBySlug: %w", err)
	}

	return &s, nil
}

func (r *SchoolRepo) Update(ctx context.Context, s *domain.School) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE schools SET name = $1, slug = $2, updated_at = $3 WHERE id = $4`,
		s.Name, s.Slug, s.UpdatedAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("schoolRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("schoolRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *SchoolRepo) List(ctx context.Context) ([]*domain.School, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM schools ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("schoolRepo.List: %w", err)
	}
	defer rows.Close()

	var schools []*domain.School
	for rows.Next() {
		var s domain.School
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("schoolRepo.List: scan: %w", err)
		}
		schools = append(schools, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schoolRepo.List: rows: %w", err)
	}

	return schools, nil
}
