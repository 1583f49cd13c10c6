package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/campusops/aula/internal/domain"
	"github.com/campusops/aula/internal/llm"
	"github.com/campusops/aula/internal/obs"
	"github.com/campusops/aula/internal/server/middleware"
)

type CreateSessionInput struct {
	Body struct {
		Title string `json:"title,omitempty" maxLength:"255" doc:"Session title"`
	}
}

type CreateSessionOutput struct {
	Body *domain.ChatSession
}

type ListSessionsOutput struct {
	Body []*domain.ChatSession
}

type GetSessionMessagesInput struct {
	SessionID uuid.UUID `path:"sessionID" doc:"Chat session ID"`
}

type GetSessionMessagesOutput struct {
	Body []*domain.ChatMessage
}

type SubmitTurnInput struct {
	SessionID uuid.UUID `path:"sessionID" doc:"Chat session ID"`
	Body      struct {
		Text string `json:"text" minLength:"1" maxLength:"8000" doc:"User message"`
	}
}

type SubmitTurnOutput struct {
	Body struct {
		UserMessage      *domain.ChatMessage       `json:"user_message"`
		AssistantMessage *domain.ChatMessage       `json:"assistant_message"`
		Approvals        []*domain.ApprovalRequest `json:"approvals,omitempty"`
		Refusals         []string                  `json:"refusals,omitempty"`
	}
}

type ArchiveSessionInput struct {
	SessionID uuid.UUID `path:"sessionID" doc:"Chat session ID"`
}

type ArchiveSessionOutput struct {
	Body struct {
		Archived bool `json:"archived"`
	}
}

func RegisterChatRoutes(api huma.API, store DataStore, chatSvc ChatService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-chat-session",
		Method:      http.MethodPost,
		Path:        "/chat/sessions",
		Summary:     "Create a chat session",
		Tags:        []string{"Chat"},
	}, func(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing user context")
		}

		title := input.Body.Title
		if title == "" {
			title = "New conversation"
		}

		now := time.Now()
		session := &domain.ChatSession{
			ID:        uuid.New(),
			SchoolID:  schoolID,
			UserID:    userID,
			Title:     title,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := store.ChatSessions().Create(ctx, session); err != nil {
			return nil, huma.Error500InternalServerError("failed to create session", err)
		}

		return &CreateSessionOutput{Body: session}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-chat-sessions",
		Method:      http.MethodGet,
		Path:        "/chat/sessions",
		Summary:     "List the caller's chat sessions",
		Tags:        []string{"Chat"},
	}, func(ctx context.Context, _ *struct{}) (*ListSessionsOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing user context")
		}

		sessions, err := store.ChatSessions().ListByUser(ctx, schoolID, userID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list sessions", err)
		}

		return &ListSessionsOutput{Body: sessions}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-chat-messages",
		Method:      http.MethodGet,
		Path:        "/chat/sessions/{sessionID}/messages",
		Summary:     "List messages in a session",
		Tags:        []string{"Chat"},
	}, func(ctx context.Context, input *GetSessionMessagesInput) (*GetSessionMessagesOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing user context")
		}

		session, err := store.ChatSessions().GetByID(ctx, schoolID, input.SessionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("session not found")
			}
			return nil, huma.Error500InternalServerError("failed to get session", err)
		}
		if session.UserID != userID {
			return nil, huma.Error403Forbidden("session belongs to another user")
		}

		messages, err := store.ChatMessages().ListBySession(ctx, schoolID, input.SessionID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list messages", err)
		}

		return &GetSessionMessagesOutput{Body: messages}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "submit-chat-turn",
		Method:      http.MethodPost,
		Path:        "/chat/sessions/{sessionID}/messages",
		Summary:     "Submit a user message and run one assistant turn",
		Tags:        []string{"Chat"},
	}, func(ctx context.Context, input *SubmitTurnInput) (*SubmitTurnOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing user context")
		}
		role, _ := middleware.RoleFromContext(ctx)

		result, err := chatSvc.SubmitUserTurn(ctx, schoolID, userID, role, input.SessionID, input.Body.Text)
		if err != nil {
			obs.ObserveChatTurn("error")
			switch {
			case errors.Is(err, domain.ErrNotFound):
				return nil, huma.Error404NotFound("session not found")
			case errors.Is(err, domain.ErrForbidden):
				return nil, huma.Error403Forbidden("session belongs to another user")
			case errors.Is(err, domain.ErrConflict):
				return nil, huma.Error409Conflict("session is archived or full")
			case errors.Is(err, llm.ErrUnavailable):
				return nil, huma.Error502BadGateway("assistant is unavailable, nothing was saved")
			default:
				return nil, huma.Error500InternalServerError("turn failed", err)
			}
		}

		obs.ObserveChatTurn("ok")
		for range result.Approvals {
			obs.ObserveProposal("submitted")
		}
		for range result.Refusals {
			obs.ObserveProposal("refused")
		}

		out := &SubmitTurnOutput{}
		out.Body.UserMessage = result.UserMessage
		out.Body.AssistantMessage = result.AssistantMessage
		out.Body.Approvals = result.Approvals
		out.Body.Refusals = result.Refusals
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-chat-session",
		Method:      http.MethodPost,
		Path:        "/chat/sessions/{sessionID}/archive",
		Summary:     "Archive a session",
		Tags:        []string{"Chat"},
	}, func(ctx context.Context, input *ArchiveSessionInput) (*ArchiveSessionOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing user context")
		}

		session, err := store.ChatSessions().GetByID(ctx, schoolID, input.SessionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("session not found")
			}
			return nil, huma.Error500InternalServerError("failed to get session", err)
		}
		if session.UserID != userID {
			return nil, huma.Error403Forbidden("session belongs to another user")
		}

		if err := store.ChatSessions().Archive(ctx, schoolID, input.SessionID); err != nil {
			return nil, huma.Error500InternalServerError("failed to archive session", err)
		}

		out := &ArchiveSessionOutput{}
		out.Body.Archived = true
		return out, nil
	})
}
