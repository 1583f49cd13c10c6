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

type ChatSessionRepo struct {
	pool *pgxpool.Pool
}

func NewChatSessionRepo(pool *pgxpool.Pool) *ChatSessionRepo {
	return &ChatSessionRepo{pool: pool}
}

func (r *ChatSessionRepo) Create(ctx context.Context, s *domain.ChatSession) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO chat_sessions (id, school_id, user_id, title, archived, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.SchoolID, s.UserID, s.Title, s.Archived, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("chatSessionRepo.Create: %w", err)
	}

	return nil
}

func (r *ChatSessionRepo) GetByID(ctx context.Context, schoolID, id uuid.UUID) (*domain.ChatSession, error) {
	var s domain.ChatSession

	err := r.pool.QueryRow(ctx,
		`SELECT id, school_id, user_id, title, archived, created_at, updated_at
		 FROM chat_sessions WHERE school_id = $1 AND id = $2`,
		schoolID, id,
	).Scan(&s.ID, &s.SchoolID, &s.UserID, &s.Title, &s.Archived, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("chatSessionRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("chatSessionRepo.GetByID: %w", err)
	}

	return &s, nil
}

func (r *ChatSessionRepo) ListByUser(ctx context.Context, schoolID, userID uuid.UUID) ([]*domain.ChatSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, school_id, user_id, title, archived, created_at, updated_at
		 FROM chat_sessions WHERE school_id = $1 AND user_id = $2
		 ORDER BY updated_at DESC
		 LIMIT 200`,
		schoolID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("chatSessionRepo.ListByUser: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.ChatSession
	for rows.Next() {
		var s domain.ChatSession
		if err := rows.Scan(&s.ID, &s.SchoolID, &s.UserID, &s.Title, &s.Archived, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("chatSessionRepo.ListByUser: scan: %w", err)
		}
		sessions = append(sessions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatSessionRepo.ListByUser: rows: %w", err)
	}

	return sessions, nil
}

func (r *ChatSessionRepo) Touch(ctx context.Context, schoolID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE chat_sessions SET updated_at = now() WHERE school_id = $1 AND id = $2`,
		schoolID, id,
	)
	if err != nil {
		return fmt.Errorf("chatSessionRepo.Touch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chatSessionRepo.Touch: %w", domain.ErrNotFound)
	}

	return nil
}

// Archive soft-archives a session. Messages stay; the session refuses new turns.
func (r *ChatSessionRepo) Archive(ctx context.Context, schoolID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE chat_sessions SET archived = true, updated_at = now() WHERE school_id = $1 AND id = $2`,
		schoolID, id,
	)
	if err != nil {
		return fmt.Errorf("chatSessionRepo.Archive: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chatSessionRepo.Archive: %w", domain.ErrNotFound)
	}

	return nil
}

type ChatMessageRepo struct {
	pool *pgxpool.Pool
}

func NewChatMessageRepo(pool *pgxpool.Pool) *ChatMessageRepo {
	return &ChatMessageRepo{pool: pool}
}

func (r *ChatMessageRepo) Append(ctx context.Context, m *domain.ChatMessage) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO chat_messages (id, school_id, session_id, role, content, tool_calls, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.SchoolID, m.SessionID, m.Role, m.Content, m.ToolCalls, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("chatMessageRepo.Append: %w", err)
	}

	return nil
}

func (r *ChatMessageRepo) ListBySession(ctx context.Context, schoolID, sessionID uuid.UUID) ([]*domain.ChatMessage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, school_id, session_id, role, content, tool_calls, created_at
		 FROM chat_messages WHERE school_id = $1 AND session_id = $2
		 ORDER BY created_at`,
		schoolID, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("chatMessageRepo.ListBySession: %w", err)
	}
	defer rows.Close()

	var messages []*domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.SchoolID, &m.SessionID, &m.Role, &m.Content, &m.ToolCalls, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("chatMessageRepo.ListBySession: scan: %w", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatMessageRepo.ListBySession: rows: %w", err)
	}

	return messages, nil
}

func (r *ChatMessageRepo) CountBySession(ctx context.Context, schoolID, sessionID uuid.UUID) (int64, error) {
	var count int64

	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM chat_messages WHERE school_id = $1 AND session_id = $2`,
		schoolID, sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("chatMessageRepo.CountBySession: %w", err)
	}

	return count, nil
}
