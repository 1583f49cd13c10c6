package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/campusops/aula/internal/api/v1"
	"github.com/campusops/aula/internal/api/ws"
	"github.com/campusops/aula/internal/auth"
	"github.com/campusops/aula/internal/chat"
	"github.com/campusops/aula/internal/store/postgres"
)

func registerAuthRoutes(api huma.API, store *postgres.Store, authSvc *auth.Service) {
	v1.RegisterAuthRoutes(api, store, authSvc)
}

func registerAPIRoutes(api huma.API, store *postgres.Store, orchestrator *chat.Orchestrator, executor *chat.Executor, hub *ws.Hub) {
	v1.RegisterSchoolRoutes(api, store)
	v1.RegisterStudentRoutes(api, store)
	v1.RegisterInvoiceRoutes(api, store)
	v1.RegisterFacilityRoutes(api, store)
	v1.RegisterDocumentRoutes(api, store)
	v1.RegisterKnowledgeRoutes(api, store)
	v1.RegisterChatRoutes(api, store, orchestrator)
	v1.RegisterApprovalRoutes(api, store, executor, hub)
	v1.RegisterAuditRoutes(api, store)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/approvals", hub.ServeApprovals)
	r.Get("/sessions/{sessionID}", hub.ServeSession)
}
