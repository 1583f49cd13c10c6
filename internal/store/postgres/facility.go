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

type FacilityRepo struct {
	pool *pgxpool.Pool
}

func NewFacilityRepo(pool *pgxpool.Pool) *FacilityRepo {
	return &FacilityRepo{pool: pool}
}

func (r *FacilityRepo) Create(ctx context.Context, f *domain.Facility) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO facilities (id, school_id, name, category, capacity, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		f.ID, f.SchoolID, f.Name, f.Category, f.Capacity, f.Notes, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("facilityRepo.Create: %w", err)
	}

	return nil
}

func (r *FacilityRepo) GetByID(ctx context.Context, schoolID, id uuid.UUID) (*domain.Facility, error) {
	var f domain.Facility

	err := r.pool.QueryRow(ctx,
		`SELECT id, school_id, name, category, capacity, notes, created_at, updated_at
		 FROM facilities WHERE school_id = $1 AND id = $2`,
		schoolID, id,
	).Scan(&f.ID, &f.SchoolID, &f.Name, &f.Category, &f.Capacity, &f.Notes, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("facilityRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("facilityRepo.GetByID: %w", err)
	}

	return &f, nil
}

func (r *FacilityRepo) List(ctx context.Context, schoolID uuid.UUID) ([]*domain.Facility, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, school_id, name, category, capacity, notes, created_at, updated_at
		 FROM facilities WHERE school_id = $1
		 ORDER BY name`,
		schoolID,
	)
	if err != nil {
		return nil, fmt.Errorf("facilityRepo.List: %w", err)
	}
	defer rows.Close()

	var facilities []*domain.Facility
	for rows.Next() {
		var f domain.Facility
		if err := rows.Scan(&f.ID, &f.SchoolID, &f.Name, &f.Category, &f.Capacity, &f.Notes, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("facilityRepo.List: scan: %w", err)
		}
		facilities = append(facilities, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("facilityRepo.List: rows: %w", err)
	}

	return facilities, nil
}

func (r *FacilityRepo) Update(ctx context.Context, f *domain.Facility) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE facilities SET name = $1, category = $2, capacity = $3, notes = $4, updated_at = $5
		 WHERE school_id = $6 AND id = $7`,
		f.Name, f.Category, f.Capacity, f.Notes, f.UpdatedAt, f.SchoolID, f.ID,
	)
	if err != nil {
		return fmt.Errorf("facilityRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("facilityRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *FacilityRepo) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM facilities WHERE school_id = $1 AND id = $2`,
		schoolID, id,
	)
	if err != nil {
		return fmt.Errorf("facilityRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("facilityRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}
