package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/campusops/aula/internal/domain"
	"github.com/campusops/aula/internal/llm"
	redisstore "github.com/campusops/aula/internal/store/redis"
)

// maxToolRounds bounds the model's tool loop within one user turn.
const maxToolRounds = 3

// maxSessionMessages caps a session's length; longer conversations must
// start a fresh session.
const maxSessionMessages = 500

// CompletionClient abstracts the chat completion call. *llm.Client
// satisfies it.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error)
}

// Publisher abstracts the Redis pub/sub publish operation.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Notifier pushes new pending proposals to an external review surface.
type Notifier interface {
	NotifyProposal(ctx context.Context, req *domain.ApprovalRequest) error
}

// Orchestrator runs one user turn end to end: history assembly, the model
// call, tool dispatch, proposal decoding, and persistence. Nothing is
// persisted until the model produces a complete turn, so a failed
// completion leaves the session exactly as it was.
type Orchestrator struct {
	model     string
	client    CompletionClient
	codec     *Codec
	sessions  domain.ChatSessionRepository
	messages  domain.ChatMessageRepository
	approvals domain.ApprovalRepository
	records   RecordStore
	pubsub    Publisher // optional
	notifier  Notifier  // optional
}

func NewOrchestrator(
	model string,
	client CompletionClient,
	codec *Codec,
	sessions domain.ChatSessionRepository,
	messages domain.ChatMessageRepository,
	approvals domain.ApprovalRepository,
	records RecordStore,
	pubsub Publisher,
	notifier Notifier,
) *Orchestrator {
	return &Orchestrator{
		model:     model,
		client:    client,
		codec:     codec,
		sessions:  sessions,
		messages:  messages,
		approvals: approvals,
		records:   records,
		pubsub:    pubsub,
		notifier:  notifier,
	}
}

// TurnResult is the outcome of one user turn.
type TurnResult struct {
	UserMessage      *domain.ChatMessage
	AssistantMessage *domain.ChatMessage
	// Approvals holds the pending requests created by this turn.
	Approvals []*domain.ApprovalRequest
	// Refusals lists proposals that were dropped and why: capability
	// denials and malformed tool calls.
	Refusals []string
}

// pendingProposal is a decoded proposal held until the turn completes.
type pendingProposal struct {
	descriptor   domain.MutationDescriptor
	approvalType domain.ApprovalType
}

// SubmitUserTurn processes one user message in a session and returns the
// assistant's reply plus any approval requests it spawned. The turn fails
// without persisting anything when the completion service is unavailable.
func (o *Orchestrator) SubmitUserTurn(ctx context.Context, schoolID, userID uuid.UUID, role string, sessionID uuid.UUID, text string) (*TurnResult, error) {
	session, err := o.sessions.GetByID(ctx, schoolID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("chat.Orchestrator.SubmitUserTurn: %w", err)
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("chat.Orchestrator.SubmitUserTurn: session belongs to another user: %w", domain.ErrForbidden)
	}
	if session.Archived {
		return nil, fmt.Errorf("chat.Orchestrator.SubmitUserTurn: session archived: %w", domain.ErrConflict)
	}

	count, err := o.messages.CountBySession(ctx, schoolID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("chat.Orchestrator.SubmitUserTurn: %w", err)
	}
	if count >= maxSessionMessages {
		return nil, fmt.Errorf("chat.Orchestrator.SubmitUserTurn: session full: %w", domain.ErrConflict)
	}

	history, err := o.messages.ListBySession(ctx, schoolID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("chat.Orchestrator.SubmitUserTurn: %w", err)
	}

	caps := CapabilitiesForRole(role)
	convo := buildConversation(role, history, text)
	tools := ToolDefs(caps)

	var (
		proposals    []pendingProposal
		refusals     []string
		allToolCalls []llm.ToolCall
		finalText    string
	)

	for round := 0; ; round++ {
		resp, err := o.client.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
			Model:    o.model,
			Messages: convo,
			Tools:    tools,
		})
		if err != nil {
			return nil, fmt.Errorf("chat.Orchestrator.SubmitUserTurn: completion: %w", err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
			return nil, fmt.Errorf("chat.Orchestrator.SubmitUserTurn: empty completion: %w", llm.ErrUnavailable)
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			finalText = msg.Content
			break
		}
		if round >= maxToolRounds {
			// The model kept calling tools after being told to stop;
			// take whatever text it produced and end the turn.
			finalText = msg.Content
			break
		}

		allToolCalls = append(allToolCalls, msg.ToolCalls...)
		convo = append(convo, *msg)

		for _, call := range msg.ToolCalls {
			result, refusal := o.dispatchToolCall(ctx, schoolID, caps, call, &proposals)
			if refusal != "" {
				refusals = append(refusals, refusal)
			}
			convo = append(convo, llm.ChatMessage{
				Role:       "tool",
				Content:    result,
				ToolCallID: call.ID,
			})
		}

		if round+1 >= maxToolRounds {
			// Force a textual answer on the last round.
			tools = nil
		}
	}

	result, err := o.persistTurn(ctx, session, userID, text, finalText, allToolCalls, proposals)
	if err != nil {
		return nil, err
	}
	result.Refusals = refusals

	o.announce(ctx, session, result)

	return result, nil
}

// dispatchToolCall runs one tool call: query tools execute against the
// record store, proposal tools decode into pending proposals. The returned
// result string is fed back to the model; refusal is non-empty when the
// call was denied or malformed.
func (o *Orchestrator) dispatchToolCall(ctx context.Context, schoolID uuid.UUID, caps []Capability, call llm.ToolCall, proposals *[]pendingProposal) (result, refusal string) {
	name := call.Function.Name

	required, known := RequiredCapability(name)
	if !known {
		return "error: unknown tool", fmt.Sprintf("tool %q is not available", name)
	}
	if !HasCapability(caps, required) {
		return "error: not permitted for this user", fmt.Sprintf("your role does not permit %s", name)
	}

	if required == CapabilityQuery {
		out, err := o.runQueryTool(ctx, schoolID, call)
		if err != nil {
			log.Debug().Err(err).Str("tool", name).Msg("orchestrator: query tool")
			return "error: " + err.Error(), ""
		}
		return out, ""
	}

	descriptor, approvalType, err := o.codec.Decode(ctx, schoolID, call)
	if err != nil {
		if errors.Is(err, ErrMalformedProposal) {
			return "error: proposal rejected: " + err.Error(),
				fmt.Sprintf("a proposed %s change was malformed and dropped", name)
		}
		return "error: " + err.Error(), fmt.Sprintf("a proposed %s change could not be processed", name)
	}

	*proposals = append(*proposals, pendingProposal{descriptor: *descriptor, approvalType: approvalType})
	return "proposal submitted for human review", ""
}

func (o *Orchestrator) runQueryTool(ctx context.Context, schoolID uuid.UUID, call llm.ToolCall) (string, error) {
	var args struct {
		StudentID string `json:"student_id"`
		Query     string `json:"query"`
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return "", fmt.Errorf("parse arguments: %w", err)
	}

	switch call.Function.Name {
	case ToolLookupStudent:
		id, err := uuid.Parse(args.StudentID)
		if err != nil {
			return "", fmt.Errorf("invalid student_id")
		}
		student, err := o.records.Students().GetByID(ctx, schoolID, id)
		if err != nil {
			return "", err
		}
		return toolJSON(student)

	case ToolListStudentInvoices:
		id, err := uuid.Parse(args.StudentID)
		if err != nil {
			return "", fmt.Errorf("invalid student_id")
		}
		invoices, err := o.records.Invoices().ListByStudent(ctx, schoolID, id)
		if err != nil {
			return "", err
		}
		return toolJSON(invoices)

	case ToolListFacilities:
		facilities, err := o.records.Facilities().List(ctx, schoolID)
		if err != nil {
			return "", err
		}
		return toolJSON(facilities)

	case ToolSearchKnowledge:
		notes, err := o.records.Knowledge().List(ctx, schoolID, 100, 0)
		if err != nil {
			return "", err
		}
		query := strings.ToLower(args.Query)
		var matched []*domain.KnowledgeNote
		for _, n := range notes {
			if strings.Contains(strings.ToLower(n.Title), query) || strings.Contains(strings.ToLower(n.Body), query) {
				matched = append(matched, n)
			}
		}
		return toolJSON(matched)

	default:
		return "", fmt.Errorf("unknown query tool %q", call.Function.Name)
	}
}

// persistTurn writes the user and assistant messages and creates the
// approval requests decoded during the turn. Runs only after the model
// produced a complete answer.
func (o *Orchestrator) persistTurn(ctx context.Context, session *domain.ChatSession, userID uuid.UUID, userText, assistantText string, toolCalls []llm.ToolCall, proposals []pendingProposal) (*TurnResult, error) {
	now := time.Now()

	userMsg := &domain.ChatMessage{
		ID:        uuid.New(),
		SchoolID:  session.SchoolID,
		SessionID: session.ID,
		Role:      domain.MessageRoleUser,
		Content:   userText,
		CreatedAt: now,
	}
	if err := o.messages.Append(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("chat.Orchestrator.SubmitUserTurn: append user message: %w", err)
	}

	var rawCalls json.RawMessage
	if len(toolCalls) > 0 {
		raw, err := json.Marshal(toolCalls)
		if err != nil {
			return nil, fmt.Errorf("chat.Orchestrator.SubmitUserTurn: marshal tool calls: %w", err)
		}
		rawCalls = raw
	}

	assistantMsg := &domain.ChatMessage{
		ID:        uuid.New(),
		SchoolID:  session.SchoolID,
		SessionID: session.ID,
		Role:      domain.MessageRoleAssistant,
		Content:   assistantText,
		ToolCalls: rawCalls,
		CreatedAt: now.Add(time.Millisecond), // keep ordering under equal clock reads
	}
	if err := o.messages.Append(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("chat.Orchestrator.SubmitUserTurn: append assistant message: %w", err)
	}

	if err := o.sessions.Touch(ctx, session.SchoolID, session.ID); err != nil {
		log.Error().Err(err).Str("session_id", session.ID.String()).Msg("orchestrator: touch session")
	}

	result := &TurnResult{UserMessage: userMsg, AssistantMessage: assistantMsg}

	for _, p := range proposals {
		req := &domain.ApprovalRequest{
			ID:              uuid.New(),
			SchoolID:        session.SchoolID,
			Type:            p.approvalType,
			Status:          domain.ApprovalStatusPending,
			OriginMessageID: assistantMsg.ID,
			ProposedBy:      userID,
			Descriptor:      p.descriptor,
			ExecState:       domain.ExecutionStateNone,
			CreatedAt:       now,
		}
		if err := o.approvals.Create(ctx, req); err != nil {
			return nil, fmt.Errorf("chat.Orchestrator.SubmitUserTurn: create approval: %w", err)
		}
		result.Approvals = append(result.Approvals, req)
	}

	return result, nil
}

// announce publishes turn and proposal events and pings the external review
// surface. All best-effort: the turn already succeeded.
func (o *Orchestrator) announce(ctx context.Context, session *domain.ChatSession, result *TurnResult) {
	if o.pubsub != nil {
		evt := map[string]string{
			"type":       "turn_completed",
			"session_id": session.ID.String(),
			"message_id": result.AssistantMessage.ID.String(),
		}
		o.publish(ctx, redisstore.SessionChannel(session.ID), evt)

		for _, req := range result.Approvals {
			o.publish(ctx, redisstore.ApprovalChannel(session.SchoolID), map[string]string{
				"type":       "approval_created",
				"request_id": req.ID.String(),
				"entity":     string(req.Descriptor.Entity),
				"op":         string(req.Descriptor.Op),
			})
		}
	}

	if o.notifier != nil {
		for _, req := range result.Approvals {
			if err := o.notifier.NotifyProposal(ctx, req); err != nil {
				log.Error().Err(err).Str("request_id", req.ID.String()).Msg("orchestrator: notify proposal")
			}
		}
	}
}

func (o *Orchestrator) publish(ctx context.Context, channel string, evt map[string]string) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := o.pubsub.Publish(ctx, channel, payload); err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("orchestrator: publish event")
	}
}

func buildConversation(role string, history []*domain.ChatMessage, userText string) []llm.ChatMessage {
	convo := make([]llm.ChatMessage, 0, len(history)+2)
	convo = append(convo, llm.ChatMessage{Role: "system", Content: BuildPreamble(role)})
	for _, m := range history {
		convo = append(convo, llm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	convo = append(convo, llm.ChatMessage{Role: "user", Content: userText})
	return convo
}

func toolJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(raw), nil
}
