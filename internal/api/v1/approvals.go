package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/campusops/aula/internal/chat"
	"github.com/campusops/aula/internal/domain"
	"github.com/campusops/aula/internal/obs"
	"github.com/campusops/aula/internal/server/middleware"
	redisstore "github.com/campusops/aula/internal/store/redis"
)

type ListApprovalsInput struct {
	Status string `query:"status" enum:"pending,approved,rejected," doc:"Filter by status; empty matches all"`
	Limit  int    `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Page size"`
	Offset int    `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
}

type ListApprovalsOutput struct {
	Body []*domain.ApprovalRequest
}

type GetApprovalInput struct {
	ID uuid.UUID `path:"id" doc:"Approval request ID"`
}

type GetApprovalOutput struct {
	Body *domain.ApprovalRequest
}

type DecideApprovalInput struct {
	ID   uuid.UUID `path:"id" doc:"Approval request ID"`
	Body struct {
		Decision string `json:"decision" enum:"approved,rejected" doc:"Terminal status"`
		Note     string `json:"note,omitempty" maxLength:"2000" doc:"Optional decision note"`
	}
}

type DecideApprovalOutput struct {
	Body *domain.ApprovalRequest
}

type RetryExecutionInput struct {
	ID uuid.UUID `path:"id" doc:"Approval request ID"`
}

type RetryExecutionOutput struct {
	Body *domain.ApprovalRequest
}

func RegisterApprovalRoutes(api huma.API, store DataStore, engine ExecutionEngine, events EventPublisher) {
	huma.Register(api, huma.Operation{
		OperationID: "list-approvals",
		Method:      http.MethodGet,
		Path:        "/approvals",
		Summary:     "List approval requests",
		Tags:        []string{"Approvals"},
	}, func(ctx context.Context, input *ListApprovalsInput) (*ListApprovalsOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}

		requests, err := store.Approvals().List(ctx, schoolID, domain.ApprovalStatus(input.Status), input.Limit, input.Offset)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list approvals", err)
		}

		return &ListApprovalsOutput{Body: requests}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-approval",
		Method:      http.MethodGet,
		Path:        "/approvals/{id}",
		Summary:     "Get an approval request by ID",
		Tags:        []string{"Approvals"},
	}, func(ctx context.Context, input *GetApprovalInput) (*GetApprovalOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}

		request, err := store.Approvals().GetByID(ctx, schoolID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("approval request not found")
			}
			return nil, huma.Error500InternalServerError("failed to get approval request", err)
		}

		return &GetApprovalOutput{Body: request}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "decide-approval",
		Method:      http.MethodPost,
		Path:        "/approvals/{id}/decision",
		Summary:     "Approve or reject a pending request",
		Tags:        []string{"Approvals"},
	}, func(ctx context.Context, input *DecideApprovalInput) (*DecideApprovalOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}
		approverID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing user context")
		}
		role, _ := middleware.RoleFromContext(ctx)
		if role != domain.RoleApprover {
			return nil, huma.Error403Forbidden("only approvers may decide requests")
		}

		status := domain.ApprovalStatus(input.Body.Decision)
		if !status.Terminal() {
			return nil, huma.Error400BadRequest("decision must be approved or rejected")
		}

		err := store.Approvals().Decide(ctx, schoolID, input.ID, status, approverID, input.Body.Note)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				return nil, huma.Error404NotFound("approval request not found")
			case errors.Is(err, domain.ErrAlreadyDecided):
				return nil, huma.Error409Conflict("request has already been decided")
			default:
				return nil, huma.Error500InternalServerError("failed to record decision", err)
			}
		}
		obs.ObserveDecision(input.Body.Decision)

		// Apply immediately on approval. An apply failure does not undo the
		// decision; the request lands in the remediation queue with
		// exec_state=failed and is retried via the retry endpoint.
		if status == domain.ApprovalStatusApproved {
			if err := engine.Apply(ctx, schoolID, input.ID, approverID); err != nil {
				obs.ObserveExecution("failed")
				log.Error().Err(err).
					Str("request_id", input.ID.String()).
					Msg("approved mutation failed to apply")
			} else {
				obs.ObserveExecution("ok")
			}
		}

		request, err := store.Approvals().GetByID(ctx, schoolID, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("decision recorded but failed to reload request", err)
		}

		publishApprovalEvent(ctx, events, request, "approval_decided")

		return &DecideApprovalOutput{Body: request}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "retry-approval-execution",
		Method:      http.MethodPost,
		Path:        "/approvals/{id}/retry",
		Summary:     "Retry a failed execution",
		Tags:        []string{"Approvals"},
	}, func(ctx context.Context, input *RetryExecutionInput) (*RetryExecutionOutput, error) {
		schoolID, ok := middleware.SchoolIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing school context")
		}
		actorID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing user context")
		}
		role, _ := middleware.RoleFromContext(ctx)
		if role != domain.RoleApprover {
			return nil, huma.Error403Forbidden("only approvers may retry executions")
		}

		request, err := store.Approvals().GetByID(ctx, schoolID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("approval request not found")
			}
			return nil, huma.Error500InternalServerError("failed to get approval request", err)
		}
		if request.Status != domain.ApprovalStatusApproved || request.ExecState != domain.ExecutionStateFailed {
			return nil, huma.Error409Conflict("request is not in the failed execution state")
		}

		if err := engine.Apply(ctx, schoolID, input.ID, actorID); err != nil {
			if errors.Is(err, chat.ErrExecutionHeld) {
				// The mutation already happened; only the audit record is
				// missing. Retrying cannot repair that.
				return nil, huma.Error409Conflict("mutation was applied but its audit record failed; needs manual reconciliation")
			}
			obs.ObserveExecution("failed")
			log.Error().Err(err).
				Str("request_id", input.ID.String()).
				Msg("execution retry failed")
		} else {
			obs.ObserveExecution("ok")
		}

		request, err = store.Approvals().GetByID(ctx, schoolID, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to reload request", err)
		}

		publishApprovalEvent(ctx, events, request, "execution_retried")

		return &RetryExecutionOutput{Body: request}, nil
	})
}

// publishApprovalEvent pushes a lifecycle event to the school's approval
// channel. Best-effort: the state change is already committed.
func publishApprovalEvent(ctx context.Context, events EventPublisher, req *domain.ApprovalRequest, eventType string) {
	if events == nil {
		return
	}

	payload, err := json.Marshal(map[string]string{
		"type":       eventType,
		"request_id": req.ID.String(),
		"status":     string(req.Status),
		"exec_state": string(req.ExecState),
	})
	if err != nil {
		return
	}

	if err := events.Publish(ctx, redisstore.ApprovalChannel(req.SchoolID), payload); err != nil {
		log.Error().Err(err).Str("request_id", req.ID.String()).Msg("publish approval event")
	}
}
