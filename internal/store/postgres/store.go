package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusops/aula/internal/domain"
)

type Store struct {
	pool       *pgxpool.Pool
	schools    *SchoolRepo
	users      *UserRepo
	sessions   *ChatSessionRepo
	messages   *ChatMessageRepo
	approvals  *ApprovalRepo
	audit      *AuditRepo
	students   *StudentRepo
	invoices   *InvoiceRepo
	facilities *FacilityRepo
	documents  *DocumentRepo
	knowledge  *KnowledgeRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:       pool,
		schools:    NewSchoolRepo(pool),
		users:      NewUserRepo(pool),
		sessions:   NewChatSessionRepo(pool),
		messages:   NewChatMessageRepo(pool),
		approvals:  NewApprovalRepo(pool),
		audit:      NewAuditRepo(pool),
		students:   NewStudentRepo(pool),
		invoices:   NewInvoiceRepo(pool),
		facilities: NewFacilityRepo(pool),
		documents:  NewDocumentRepo(pool),
		knowledge:  NewKnowledgeRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Schools() domain.SchoolRepository           { return s.schools }
func (s *Store) Users() domain.UserRepository               { return s.users }
func (s *Store) ChatSessions() domain.ChatSessionRepository { return s.sessions }
func (s *Store) ChatMessages() domain.ChatMessageRepository { return s.messages }
func (s *Store) Approvals() domain.ApprovalRepository       { return s.approvals }
func (s *Store) Audit() domain.AuditRepository              { return s.audit }
func (s *Store) Students() domain.StudentRepository         { return s.students }
func (s *Store) Invoices() domain.InvoiceRepository         { return s.invoices }
func (s *Store) Facilities() domain.FacilityRepository      { return s.facilities }
func (s *Store) Documents() domain.DocumentRepository       { return s.documents }
func (s *Store) Knowledge() domain.KnowledgeNoteRepository  { return s.knowledge }
