package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campusops/aula/internal/domain"
	"github.com/campusops/aula/internal/llm"
)

// ---------------------------------------------------------------------------
// In-memory record store
// ---------------------------------------------------------------------------

type memStore struct {
	students   *memStudentRepo
	invoices   *memInvoiceRepo
	facilities *memFacilityRepo
	documents  *memDocumentRepo
	knowledge  *memKnowledgeRepo
}

func newMemStore() *memStore {
	return &memStore{
		students:   &memStudentRepo{items: map[uuid.UUID]*domain.Student{}},
		invoices:   &memInvoiceRepo{items: map[uuid.UUID]*domain.Invoice{}},
		facilities: &memFacilityRepo{items: map[uuid.UUID]*domain.Facility{}},
		documents:  &memDocumentRepo{items: map[uuid.UUID]*domain.Document{}},
		knowledge:  &memKnowledgeRepo{items: map[uuid.UUID]*domain.KnowledgeNote{}},
	}
}

func (m *memStore) Students() domain.StudentRepository        { return m.students }
func (m *memStore) Invoices() domain.InvoiceRepository        { return m.invoices }
func (m *memStore) Facilities() domain.FacilityRepository     { return m.facilities }
func (m *memStore) Documents() domain.DocumentRepository      { return m.documents }
func (m *memStore) Knowledge() domain.KnowledgeNoteRepository { return m.knowledge }

type memStudentRepo struct {
	items     map[uuid.UUID]*domain.Student
	failWrite bool
}

func (r *memStudentRepo) Create(_ context.Context, s *domain.Student) error {
	if r.failWrite {
		return errors.New("write failed")
	}
	cp := *s
	r.items[s.ID] = &cp
	return nil
}

func (r *memStudentRepo) GetByID(_ context.Context, schoolID, id uuid.UUID) (*domain.Student, error) {
	s, ok := r.items[id]
	if !ok || s.SchoolID != schoolID {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memStudentRepo) List(_ context.Context, schoolID uuid.UUID, _, _ int) ([]*domain.Student, error) {
	var out []*domain.Student
	for _, s := range r.items {
		if s.SchoolID == schoolID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memStudentRepo) Update(_ context.Context, s *domain.Student) error {
	if r.failWrite {
		return errors.New("write failed")
	}
	if _, ok := r.items[s.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *s
	r.items[s.ID] = &cp
	return nil
}

func (r *memStudentRepo) Delete(_ context.Context, schoolID, id uuid.UUID) error {
	s, ok := r.items[id]
	if !ok || s.SchoolID != schoolID {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

type memInvoiceRepo struct {
	items map[uuid.UUID]*domain.Invoice
}

func (r *memInvoiceRepo) Create(_ context.Context, inv *domain.Invoice) error {
	cp := *inv
	r.items[inv.ID] = &cp
	return nil
}

func (r *memInvoiceRepo) GetByID(_ context.Context, schoolID, id uuid.UUID) (*domain.Invoice, error) {
	inv, ok := r.items[id]
	if !ok || inv.SchoolID != schoolID {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *memInvoiceRepo) ListByStudent(_ context.Context, schoolID, studentID uuid.UUID) ([]*domain.Invoice, error) {
	var out []*domain.Invoice
	for _, inv := range r.items {
		if inv.SchoolID == schoolID && inv.StudentID == studentID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memInvoiceRepo) List(_ context.Context, schoolID uuid.UUID, _, _ int) ([]*domain.Invoice, error) {
	var out []*domain.Invoice
	for _, inv := range r.items {
		if inv.SchoolID == schoolID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memInvoiceRepo) Update(_ context.Context, inv *domain.Invoice) error {
	if _, ok := r.items[inv.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *inv
	r.items[inv.ID] = &cp
	return nil
}

func (r *memInvoiceRepo) Delete(_ context.Context, schoolID, id uuid.UUID) error {
	inv, ok := r.items[id]
	if !ok || inv.SchoolID != schoolID {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

type memFacilityRepo struct {
	items map[uuid.UUID]*domain.Facility
}

func (r *memFacilityRepo) Create(_ context.Context, f *domain.Facility) error {
	cp := *f
	r.items[f.ID] = &cp
	return nil
}

func (r *memFacilityRepo) GetByID(_ context.Context, schoolID, id uuid.UUID) (*domain.Facility, error) {
	f, ok := r.items[id]
	if !ok || f.SchoolID != schoolID {
		return nil, domain.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *memFacilityRepo) List(_ context.Context, schoolID uuid.UUID) ([]*domain.Facility, error) {
	var out []*domain.Facility
	for _, f := range r.items {
		if f.SchoolID == schoolID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memFacilityRepo) Update(_ context.Context, f *domain.Facility) error {
	if _, ok := r.items[f.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *f
	r.items[f.ID] = &cp
	return nil
}

func (r *memFacilityRepo) Delete(_ context.Context, schoolID, id uuid.UUID) error {
	f, ok := r.items[id]
	if !ok || f.SchoolID != schoolID {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

type memDocumentRepo struct {
	items map[uuid.UUID]*domain.Document
}

func (r *memDocumentRepo) Create(_ context.Context, d *domain.Document) error {
	cp := *d
	r.items[d.ID] = &cp
	return nil
}

func (r *memDocumentRepo) GetByID(_ context.Context, schoolID, id uuid.UUID) (*domain.Document, error) {
	d, ok := r.items[id]
	if !ok || d.SchoolID != schoolID {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *memDocumentRepo) List(_ context.Context, schoolID uuid.UUID, _, _ int) ([]*domain.Document, error) {
	var out []*domain.Document
	for _, d := range r.items {
		if d.SchoolID == schoolID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memDocumentRepo) ListByStudent(_ context.Context, schoolID, studentID uuid.UUID) ([]*domain.Document, error) {
	var out []*domain.Document
	for _, d := range r.items {
		if d.SchoolID == schoolID && d.StudentID != nil && *d.StudentID == studentID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memDocumentRepo) Update(_ context.Context, d *domain.Document) error {
	if _, ok := r.items[d.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *d
	r.items[d.ID] = &cp
	return nil
}

func (r *memDocumentRepo) Delete(_ context.Context, schoolID, id uuid.UUID) error {
	d, ok := r.items[id]
	if !ok || d.SchoolID != schoolID {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

type memKnowledgeRepo struct {
	items map[uuid.UUID]*domain.KnowledgeNote
}

func (r *memKnowledgeRepo) Create(_ context.Context, n *domain.KnowledgeNote) error {
	cp := *n
	r.items[n.ID] = &cp
	return nil
}

func (r *memKnowledgeRepo) GetByID(_ context.Context, schoolID, id uuid.UUID) (*domain.KnowledgeNote, error) {
	n, ok := r.items[id]
	if !ok || n.SchoolID != schoolID {
		return nil, domain.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *memKnowledgeRepo) List(_ context.Context, schoolID uuid.UUID, _, _ int) ([]*domain.KnowledgeNote, error) {
	var out []*domain.KnowledgeNote
	for _, n := range r.items {
		if n.SchoolID == schoolID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memKnowledgeRepo) Update(_ context.Context, n *domain.KnowledgeNote) error {
	if _, ok := r.items[n.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *n
	r.items[n.ID] = &cp
	return nil
}

func (r *memKnowledgeRepo) Delete(_ context.Context, schoolID, id uuid.UUID) error {
	n, ok := r.items[id]
	if !ok || n.SchoolID != schoolID {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// ---------------------------------------------------------------------------
// In-memory approval ledger and audit log
// ---------------------------------------------------------------------------

// memApprovalRepo serializes access with a mutex, matching the contract the
// SQL ledger gets from the database: concurrent Decide and ClaimExecution
// calls admit exactly one winner.
type memApprovalRepo struct {
	mu     sync.Mutex
	items  map[uuid.UUID]*domain.ApprovalRequest
	claims map[uuid.UUID]bool
}

func newMemApprovalRepo() *memApprovalRepo {
	return &memApprovalRepo{
		items:  map[uuid.UUID]*domain.ApprovalRequest{},
		claims: map[uuid.UUID]bool{},
	}
}

func (r *memApprovalRepo) Create(_ context.Context, req *domain.ApprovalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *req
	r.items[req.ID] = &cp
	return nil
}

func (r *memApprovalRepo) GetByID(_ context.Context, schoolID, id uuid.UUID) (*domain.ApprovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.items[id]
	if !ok || req.SchoolID != schoolID {
		return nil, domain.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *memApprovalRepo) List(_ context.Context, schoolID uuid.UUID, status domain.ApprovalStatus, _, _ int) ([]*domain.ApprovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ApprovalRequest
	for _, req := range r.items {
		if req.SchoolID != schoolID {
			continue
		}
		if status != "" && req.Status != status {
			continue
		}
		cp := *req
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memApprovalRepo) Decide(_ context.Context, schoolID, id uuid.UUID, status domain.ApprovalStatus, decidedBy uuid.UUID, note string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.items[id]
	if !ok || req.SchoolID != schoolID {
		return domain.ErrNotFound
	}
	if req.Status != domain.ApprovalStatusPending {
		return domain.ErrAlreadyDecided
	}
	now := time.Now()
	req.Status = status
	req.DecidedBy = &decidedBy
	req.DecidedAt = &now
	req.DecisionNote = note
	return nil
}

func (r *memApprovalRepo) ClaimExecution(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claims[id] {
		return false, nil
	}
	r.claims[id] = true
	return true, nil
}

func (r *memApprovalRepo) ReleaseExecution(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.claims, id)
	return nil
}

func (r *memApprovalRepo) MarkExecuted(_ context.Context, schoolID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.items[id]
	if !ok || req.SchoolID != schoolID {
		return domain.ErrNotFound
	}
	req.ExecState = domain.ExecutionStateExecuted
	req.ExecError = ""
	return nil
}

func (r *memApprovalRepo) MarkExecutionFailed(_ context.Context, schoolID, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.items[id]
	if !ok || req.SchoolID != schoolID {
		return domain.ErrNotFound
	}
	req.ExecState = domain.ExecutionStateFailed
	req.ExecError = reason
	return nil
}

type memAuditRepo struct {
	entries    []*domain.AuditEntry
	failRecord bool
}

func (r *memAuditRepo) Record(_ context.Context, e *domain.AuditEntry) error {
	if r.failRecord {
		return errors.New("audit store unavailable")
	}
	cp := *e
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *memAuditRepo) ListBySchool(_ context.Context, schoolID uuid.UUID, _, _ int) ([]*domain.AuditEntry, error) {
	var out []*domain.AuditEntry
	for _, e := range r.entries {
		if e.SchoolID == schoolID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memAuditRepo) ListByEntity(_ context.Context, schoolID uuid.UUID, entity domain.EntityType, entityID uuid.UUID) ([]*domain.AuditEntry, error) {
	var out []*domain.AuditEntry
	for _, e := range r.entries {
		if e.SchoolID == schoolID && e.Entity == entity && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// In-memory chat session and message repositories
// ---------------------------------------------------------------------------

type memSessionRepo struct {
	items map[uuid.UUID]*domain.ChatSession
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{items: map[uuid.UUID]*domain.ChatSession{}}
}

func (r *memSessionRepo) Create(_ context.Context, s *domain.ChatSession) error {
	cp := *s
	r.items[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) GetByID(_ context.Context, schoolID, id uuid.UUID) (*domain.ChatSession, error) {
	s, ok := r.items[id]
	if !ok || s.SchoolID != schoolID {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSessionRepo) ListByUser(_ context.Context, schoolID, userID uuid.UUID) ([]*domain.ChatSession, error) {
	var out []*domain.ChatSession
	for _, s := range r.items {
		if s.SchoolID == schoolID && s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memSessionRepo) Touch(_ context.Context, schoolID, id uuid.UUID) error {
	s, ok := r.items[id]
	if !ok || s.SchoolID != schoolID {
		return domain.ErrNotFound
	}
	s.UpdatedAt = time.Now()
	return nil
}

func (r *memSessionRepo) Archive(_ context.Context, schoolID, id uuid.UUID) error {
	s, ok := r.items[id]
	if !ok || s.SchoolID != schoolID {
		return domain.ErrNotFound
	}
	s.Archived = true
	return nil
}

type memMessageRepo struct {
	messages []*domain.ChatMessage
}

func (r *memMessageRepo) Append(_ context.Context, m *domain.ChatMessage) error {
	cp := *m
	r.messages = append(r.messages, &cp)
	return nil
}

func (r *memMessageRepo) ListBySession(_ context.Context, schoolID, sessionID uuid.UUID) ([]*domain.ChatMessage, error) {
	var out []*domain.ChatMessage
	for _, m := range r.messages {
		if m.SchoolID == schoolID && m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMessageRepo) CountBySession(_ context.Context, schoolID, sessionID uuid.UUID) (int64, error) {
	var count int64
	for _, m := range r.messages {
		if m.SchoolID == schoolID && m.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

// ---------------------------------------------------------------------------
// Fake completion client, publisher, notifier
// ---------------------------------------------------------------------------

// fakeCompletion returns scripted responses in order and records every
// request it receives.
type fakeCompletion struct {
	responses []*llm.ChatCompletionResponse
	err       error
	requests  []*llm.ChatCompletionRequest
}

func (f *fakeCompletion) CreateChatCompletion(_ context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, errors.New("fakeCompletion: no scripted response left")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func textResponse(content string) *llm.ChatCompletionResponse {
	return &llm.ChatCompletionResponse{
		Choices: []llm.Choice{{
			Message:      &llm.ChatMessage{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
	}
}

func toolResponse(calls ...llm.ToolCall) *llm.ChatCompletionResponse {
	return &llm.ChatCompletionResponse{
		Choices: []llm.Choice{{
			Message:      &llm.ChatMessage{Role: "assistant", ToolCalls: calls},
			FinishReason: "tool_calls",
		}},
	}
}

func proposalCall(id, tool, args string) llm.ToolCall {
	return llm.ToolCall{
		ID:   id,
		Type: "function",
		Function: llm.ToolCallFunction{
			Name:      tool,
			Arguments: args,
		},
	}
}

type fakePublisher struct {
	published map[string][][]byte
}

func (f *fakePublisher) Publish(_ context.Context, channel string, payload []byte) error {
	if f.published == nil {
		f.published = map[string][][]byte{}
	}
	f.published[channel] = append(f.published[channel], payload)
	return nil
}

type fakeNotifier struct {
	notified []*domain.ApprovalRequest
	err      error
}

func (f *fakeNotifier) NotifyProposal(_ context.Context, req *domain.ApprovalRequest) error {
	if f.err != nil {
		return f.err
	}
	f.notified = append(f.notified, req)
	return nil
}
