package v1_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/campusops/aula/internal/chat"
	"github.com/campusops/aula/internal/domain"
	"github.com/campusops/aula/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers that inject school/user/role for the Ctx request variants
// ---------------------------------------------------------------------------

func schoolCtx(schoolID uuid.UUID) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, middleware.ContextKeySchoolID, schoolID)
	return ctx
}

func userCtx(schoolID, userID uuid.UUID, role string) context.Context {
	ctx := schoolCtx(schoolID)
	ctx = context.WithValue(ctx, middleware.ContextKeyUserID, userID)
	ctx = context.WithValue(ctx, middleware.ContextKeyUserRole, role)
	return ctx
}

func staffCtx(schoolID, userID uuid.UUID) context.Context {
	return userCtx(schoolID, userID, domain.RoleStaff)
}

func adminCtx(schoolID, userID uuid.UUID) context.Context {
	return userCtx(schoolID, userID, domain.RoleAdmin)
}

func approverCtx(schoolID, userID uuid.UUID) context.Context {
	return userCtx(schoolID, userID, domain.RoleApprover)
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	schools    domain.SchoolRepository
	users      domain.UserRepository
	students   domain.StudentRepository
	invoices   domain.InvoiceRepository
	facilities domain.FacilityRepository
	documents  domain.DocumentRepository
	knowledge  domain.KnowledgeNoteRepository
	approvals  domain.ApprovalRepository
	audit      domain.AuditRepository
	sessions   domain.ChatSessionRepository
	messages   domain.ChatMessageRepository
}

func (m *mockDataStore) Schools() domain.SchoolRepository           { return m.schools }
func (m *mockDataStore) Users() domain.UserRepository               { return m.users }
func (m *mockDataStore) Students() domain.StudentRepository         { return m.students }
func (m *mockDataStore) Invoices() domain.InvoiceRepository         { return m.invoices }
func (m *mockDataStore) Facilities() domain.FacilityRepository      { return m.facilities }
func (m *mockDataStore) Documents() domain.DocumentRepository       { return m.documents }
func (m *mockDataStore) Knowledge() domain.KnowledgeNoteRepository  { return m.knowledge }
func (m *mockDataStore) Approvals() domain.ApprovalRepository       { return m.approvals }
func (m *mockDataStore) Audit() domain.AuditRepository              { return m.audit }
func (m *mockDataStore) ChatSessions() domain.ChatSessionRepository { return m.sessions }
func (m *mockDataStore) ChatMessages() domain.ChatMessageRepository { return m.messages }

// ---------------------------------------------------------------------------
// Mock SchoolRepository
// ---------------------------------------------------------------------------

type mockSchoolRepo struct {
	createFunc    func(ctx context.Context, s *domain.School) error
	getByIDFunc   func(ctx context.Context, id uuid.UUID) (*domain.School, error)
	getBySlugFunc func(ctx context.Context, slug string) (*domain.School, error)
	updateFunc    func(ctx context.Context, s *domain.School) error
	listFunc      func(ctx context.Context) ([]*domain.School, error)
}

func (m *mockSchoolRepo) Create(ctx context.Context, s *domain.School) error {
	return m.createFunc(ctx, s)
}

func (m *mockSchoolRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.School, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockSchoolRepo) GetBySlug(ctx context.Context, slug string) (*domain.School, error) {
	return m.getBySlugFunc(ctx, slug)
}

func (m *mockSchoolRepo) Update(ctx context.Context, s *domain.School) error {
	return m.updateFunc(ctx, s)
}

func (m *mockSchoolRepo) List(ctx context.Context) ([]*domain.School, error) {
	return m.listFunc(ctx)
}

// ---------------------------------------------------------------------------
// Mock StudentRepository
// ---------------------------------------------------------------------------

type mockStudentRepo struct {
	createFunc  func(ctx context.Context, s *domain.Student) error
	getByIDFunc func(ctx context.Context, schoolID, id uuid.UUID) (*domain.Student, error)
	listFunc    func(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*domain.Student, error)
	updateFunc  func(ctx context.Context, s *domain.Student) error
	deleteFunc  func(ctx context.Context, schoolID, id uuid.UUID) error
}

func (m *mockStudentRepo) Create(ctx context.Context, s *domain.Student) error {
	return m.createFunc(ctx, s)
}

func (m *mockStudentRepo) GetByID(ctx context.Context, schoolID, id uuid.UUID) (*domain.Student, error) {
	return m.getByIDFunc(ctx, schoolID, id)
}

func (m *mockStudentRepo) List(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*domain.Student, error) {
	return m.listFunc(ctx, schoolID, limit, offset)
}

func (m *mockStudentRepo) Update(ctx context.Context, s *domain.Student) error {
	return m.updateFunc(ctx, s)
}

func (m *mockStudentRepo) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	return m.deleteFunc(ctx, schoolID, id)
}

// ---------------------------------------------------------------------------
// Mock InvoiceRepository
// ---------------------------------------------------------------------------

type mockInvoiceRepo struct {
	createFunc        func(ctx context.Context, inv *domain.Invoice) error
	getByIDFunc       func(ctx context.Context, schoolID, id uuid.UUID) (*domain.Invoice, error)
	listByStudentFunc func(ctx context.Context, schoolID, studentID uuid.UUID) ([]*domain.Invoice, error)
	listFunc          func(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*domain.Invoice, error)
	updateFunc        func(ctx context.Context, inv *domain.Invoice) error
	deleteFunc        func(ctx context.Context, schoolID, id uuid.UUID) error
}

func (m *mockInvoiceRepo) Create(ctx context.Context, inv *domain.Invoice) error {
	return m.createFunc(ctx, inv)
}

func (m *mockInvoiceRepo) GetByID(ctx context.Context, schoolID, id uuid.UUID) (*domain.Invoice, error) {
	return m.getByIDFunc(ctx, schoolID, id)
}

func (m *mockInvoiceRepo) ListByStudent(ctx context.Context, schoolID, studentID uuid.UUID) ([]*domain.Invoice, error) {
	return m.listByStudentFunc(ctx, schoolID, studentID)
}

func (m *mockInvoiceRepo) List(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*domain.Invoice, error) {
	return m.listFunc(ctx, schoolID, limit, offset)
}

func (m *mockInvoiceRepo) Update(ctx context.Context, inv *domain.Invoice) error {
	return m.updateFunc(ctx, inv)
}

func (m *mockInvoiceRepo) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	return m.deleteFunc(ctx, schoolID, id)
}

// ---------------------------------------------------------------------------
// Mock FacilityRepository
// ---------------------------------------------------------------------------

type mockFacilityRepo struct {
	createFunc  func(ctx context.Context, f *domain.Facility) error
	getByIDFunc func(ctx context.Context, schoolID, id uuid.UUID) (*domain.Facility, error)
	listFunc    func(ctx context.Context, schoolID uuid.UUID) ([]*domain.Facility, error)
	updateFunc  func(ctx context.Context, f *domain.Facility) error
	deleteFunc  func(ctx context.Context, schoolID, id uuid.UUID) error
}

func (m *mockFacilityRepo) Create(ctx context.Context, f *domain.Facility) error {
	return m.createFunc(ctx, f)
}

func (m *mockFacilityRepo) GetByID(ctx context.Context, schoolID, id uuid.UUID) (*domain.Facility, error) {
	return m.getByIDFunc(ctx, schoolID, id)
}

func (m *mockFacilityRepo) List(ctx context.Context, schoolID uuid.UUID) ([]*domain.Facility, error) {
	return m.listFunc(ctx, schoolID)
}

func (m *mockFacilityRepo) Update(ctx context.Context, f *domain.Facility) error {
	return m.updateFunc(ctx, f)
}

func (m *mockFacilityRepo) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	return m.deleteFunc(ctx, schoolID, id)
}

// ---------------------------------------------------------------------------
// Mock DocumentRepository
// ---------------------------------------------------------------------------

type mockDocumentRepo struct {
	createFunc        func(ctx context.Context, d *domain.Document) error
	getByIDFunc       func(ctx context.Context, schoolID, id uuid.UUID) (*domain.Document, error)
	listFunc          func(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*domain.Document, error)
	listByStudentFunc func(ctx context.Context, schoolID, studentID uuid.UUID) ([]*domain.Document, error)
	updateFunc        func(ctx context.Context, d *domain.Document) error
	deleteFunc        func(ctx context.Context, schoolID, id uuid.UUID) error
}

func (m *mockDocumentRepo) Create(ctx context.Context, d *domain.Document) error {
	return m.createFunc(ctx, d)
}

func (m *mockDocumentRepo) GetByID(ctx context.Context, schoolID, id uuid.UUID) (*domain.Document, error) {
	return m.getByIDFunc(ctx, schoolID, id)
}

func (m *mockDocumentRepo) List(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*domain.Document, error) {
	return m.listFunc(ctx, schoolID, limit, offset)
}

func (m *mockDocumentRepo) ListByStudent(ctx context.Context, schoolID, studentID uuid.UUID) ([]*domain.Document, error) {
	return m.listByStudentFunc(ctx, schoolID, studentID)
}

func (m *mockDocumentRepo) Update(ctx context.Context, d *domain.Document) error {
	return m.updateFunc(ctx, d)
}

func (m *mockDocumentRepo) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	return m.deleteFunc(ctx, schoolID, id)
}

// ---------------------------------------------------------------------------
// Mock KnowledgeNoteRepository
// ---------------------------------------------------------------------------

type mockKnowledgeRepo struct {
	createFunc  func(ctx context.Context, n *domain.KnowledgeNote) error
	getByIDFunc func(ctx context.Context, schoolID, id uuid.UUID) (*domain.KnowledgeNote, error)
	listFunc    func(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*domain.KnowledgeNote, error)
	updateFunc  func(ctx context.Context, n *domain.KnowledgeNote) error
	deleteFunc  func(ctx context.Context, schoolID, id uuid.UUID) error
}

func (m *mockKnowledgeRepo) Create(ctx context.Context, n *domain.KnowledgeNote) error {
	return m.createFunc(ctx, n)
}

func (m *mockKnowledgeRepo) GetByID(ctx context.Context, schoolID, id uuid.UUID) (*domain.KnowledgeNote, error) {
	return m.getByIDFunc(ctx, schoolID, id)
}

func (m *mockKnowledgeRepo) List(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*domain.KnowledgeNote, error) {
	return m.listFunc(ctx, schoolID, limit, offset)
}

func (m *mockKnowledgeRepo) Update(ctx context.Context, n *domain.KnowledgeNote) error {
	return m.updateFunc(ctx, n)
}

func (m *mockKnowledgeRepo) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	return m.deleteFunc(ctx, schoolID, id)
}

// ---------------------------------------------------------------------------
// Mock ApprovalRepository
// ---------------------------------------------------------------------------

type mockApprovalRepo struct {
	createFunc              func(ctx context.Context, r *domain.ApprovalRequest) error
	getByIDFunc             func(ctx context.Context, schoolID, id uuid.UUID) (*domain.ApprovalRequest, error)
	listFunc                func(ctx context.Context, schoolID uuid.UUID, status domain.ApprovalStatus, limit, offset int) ([]*domain.ApprovalRequest, error)
	decideFunc              func(ctx context.Context, schoolID, id uuid.UUID, status domain.ApprovalStatus, decidedBy uuid.UUID, note string) error
	claimExecutionFunc      func(ctx context.Context, id uuid.UUID) (bool, error)
	releaseExecutionFunc    func(ctx context.Context, id uuid.UUID) error
	markExecutedFunc        func(ctx context.Context, schoolID, id uuid.UUID) error
	markExecutionFailedFunc func(ctx context.Context, schoolID, id uuid.UUID, reason string) error
}

func (m *mockApprovalRepo) Create(ctx context.Context, r *domain.ApprovalRequest) error {
	return m.createFunc(ctx, r)
}

func (m *mockApprovalRepo) GetByID(ctx context.Context, schoolID, id uuid.UUID) (*domain.ApprovalRequest, error) {
	return m.getByIDFunc(ctx, schoolID, id)
}

func (m *mockApprovalRepo) List(ctx context.Context, schoolID uuid.UUID, status domain.ApprovalStatus, limit, offset int) ([]*domain.ApprovalRequest, error) {
	return m.listFunc(ctx, schoolID, status, limit, offset)
}

func (m *mockApprovalRepo) Decide(ctx context.Context, schoolID, id uuid.UUID, status domain.ApprovalStatus, decidedBy uuid.UUID, note string) error {
	return m.decideFunc(ctx, schoolID, id, status, decidedBy, note)
}

func (m *mockApprovalRepo) ClaimExecution(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.claimExecutionFunc(ctx, id)
}

func (m *mockApprovalRepo) ReleaseExecution(ctx context.Context, id uuid.UUID) error {
	return m.releaseExecutionFunc(ctx, id)
}

func (m *mockApprovalRepo) MarkExecuted(ctx context.Context, schoolID, id uuid.UUID) error {
	return m.markExecutedFunc(ctx, schoolID, id)
}

func (m *mockApprovalRepo) MarkExecutionFailed(ctx context.Context, schoolID, id uuid.UUID, reason string) error {
	return m.markExecutionFailedFunc(ctx, schoolID, id, reason)
}

// ---------------------------------------------------------------------------
// Mock AuditRepository
// ---------------------------------------------------------------------------

type mockAuditRepo struct {
	recordFunc       func(ctx context.Context, e *domain.AuditEntry) error
	listBySchoolFunc func(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*domain.AuditEntry, error)
	listByEntityFunc func(ctx context.Context, schoolID uuid.UUID, entity domain.EntityType, entityID uuid.UUID) ([]*domain.AuditEntry, error)
}

func (m *mockAuditRepo) Record(ctx context.Context, e *domain.AuditEntry) error {
	return m.recordFunc(ctx, e)
}

func (m *mockAuditRepo) ListBySchool(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*domain.AuditEntry, error) {
	return m.listBySchoolFunc(ctx, schoolID, limit, offset)
}

func (m *mockAuditRepo) ListByEntity(ctx context.Context, schoolID uuid.UUID, entity domain.EntityType, entityID uuid.UUID) ([]*domain.AuditEntry, error) {
	return m.listByEntityFunc(ctx, schoolID, entity, entityID)
}

// ---------------------------------------------------------------------------
// Mock ChatSessionRepository
// ---------------------------------------------------------------------------

type mockSessionRepo struct {
	createFunc     func(ctx context.Context, s *domain.ChatSession) error
	getByIDFunc    func(ctx context.Context, schoolID, id uuid.UUID) (*domain.ChatSession, error)
	listByUserFunc func(ctx context.Context, schoolID, userID uuid.UUID) ([]*domain.ChatSession, error)
	touchFunc      func(ctx context.Context, schoolID, id uuid.UUID) error
	archiveFunc    func(ctx context.Context, schoolID, id uuid.UUID) error
}

func (m *mockSessionRepo) Create(ctx context.Context, s *domain.ChatSession) error {
	return m.createFunc(ctx, s)
}

func (m *mockSessionRepo) GetByID(ctx context.Context, schoolID, id uuid.UUID) (*domain.ChatSession, error) {
	return m.getByIDFunc(ctx, schoolID, id)
}

func (m *mockSessionRepo) ListByUser(ctx context.Context, schoolID, userID uuid.UUID) ([]*domain.ChatSession, error) {
	return m.listByUserFunc(ctx, schoolID, userID)
}

func (m *mockSessionRepo) Touch(ctx context.Context, schoolID, id uuid.UUID) error {
	return m.touchFunc(ctx, schoolID, id)
}

func (m *mockSessionRepo) Archive(ctx context.Context, schoolID, id uuid.UUID) error {
	return m.archiveFunc(ctx, schoolID, id)
}

// ---------------------------------------------------------------------------
// Mock ChatMessageRepository
// ---------------------------------------------------------------------------

type mockMessageRepo struct {
	appendFunc         func(ctx context.Context, msg *domain.ChatMessage) error
	listBySessionFunc  func(ctx context.Context, schoolID, sessionID uuid.UUID) ([]*domain.ChatMessage, error)
	countBySessionFunc func(ctx context.Context, schoolID, sessionID uuid.UUID) (int64, error)
}

func (m *mockMessageRepo) Append(ctx context.Context, msg *domain.ChatMessage) error {
	return m.appendFunc(ctx, msg)
}

func (m *mockMessageRepo) ListBySession(ctx context.Context, schoolID, sessionID uuid.UUID) ([]*domain.ChatMessage, error) {
	return m.listBySessionFunc(ctx, schoolID, sessionID)
}

func (m *mockMessageRepo) CountBySession(ctx context.Context, schoolID, sessionID uuid.UUID) (int64, error) {
	return m.countBySessionFunc(ctx, schoolID, sessionID)
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	registerFunc     func(ctx context.Context, schoolID uuid.UUID, email, password, name string) (*domain.User, error)
	loginFunc        func(ctx context.Context, schoolID uuid.UUID, email, password string) (string, string, error)
	refreshTokenFunc func(ctx context.Context, refreshToken string) (string, error)
}

func (m *mockAuthService) Register(ctx context.Context, schoolID uuid.UUID, email, password, name string) (*domain.User, error) {
	return m.registerFunc(ctx, schoolID, email, password, name)
}

func (m *mockAuthService) Login(ctx context.Context, schoolID uuid.UUID, email, password string) (accessToken, refreshToken string, err error) {
	return m.loginFunc(ctx, schoolID, email, password)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshTokenFunc(ctx, refreshToken)
}

// ---------------------------------------------------------------------------
// Mock ChatService
// ---------------------------------------------------------------------------

type mockChatService struct {
	submitFunc func(ctx context.Context, schoolID, userID uuid.UUID, role string, sessionID uuid.UUID, text string) (*chat.TurnResult, error)
}

func (m *mockChatService) SubmitUserTurn(ctx context.Context, schoolID, userID uuid.UUID, role string, sessionID uuid.UUID, text string) (*chat.TurnResult, error) {
	return m.submitFunc(ctx, schoolID, userID, role, sessionID, text)
}

// ---------------------------------------------------------------------------
// Mock ExecutionEngine
// ---------------------------------------------------------------------------

type mockExecutionEngine struct {
	applyFunc func(ctx context.Context, schoolID, requestID, actorID uuid.UUID) error
}

func (m *mockExecutionEngine) Apply(ctx context.Context, schoolID, requestID, actorID uuid.UUID) error {
	return m.applyFunc(ctx, schoolID, requestID, actorID)
}

type mockEventPublisher struct {
	publishFunc func(ctx context.Context, channel string, payload []byte) error
}

func (m *mockEventPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return m.publishFunc(ctx, channel, payload)
}
