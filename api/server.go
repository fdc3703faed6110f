package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"vigil-irs/api/handlers"
	"vigil-irs/config"
	"vigil-irs/core/auth"
	"vigil-irs/core/imports"
	"vigil-irs/core/rbac"
	"vigil-irs/core/store"
	"vigil-irs/core/utils"
)

type ServerDeps struct {
	Users     store.UsersStore
	Sessions  store.SessionStore
	Reports   store.ReportsStore
	Audits    store.AuditStore
	Analyzer  *imports.Analyzer
	Committer *imports.Committer
}

type Server struct {
	cfg            *config.AppConfig
	deps           ServerDeps
	policy         *rbac.Policy
	sessionManager *auth.SessionManager
	logger         *utils.Logger
}

func NewServer(cfg *config.AppConfig, deps ServerDeps, policy *rbac.Policy, sm *auth.SessionManager, logger *utils.Logger) *Server {
	return &Server{cfg: cfg, deps: deps, policy: policy, sessionManager: sm, logger: logger}
}

func (s *Server) Handler() http.Handler {
	authHandler := handlers.NewAuthHandler(s.cfg, s.deps.Users, s.sessionManager, s.deps.Audits, s.logger)
	importsHandler := handlers.NewImportsHandler(s.cfg, s.deps.Analyzer, s.deps.Committer, s.deps.Audits, s.logger)
	reportsHandler := handlers.NewReportsHandler(s.deps.Reports, s.logger)
	logsHandler := handlers.NewLogsHandler(s.deps.Audits)

	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Use(s.requestLogMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/me", authHandler.Me)

			r.With(s.requirePerm(rbac.PermImportsAnalyze)).Post("/imports/analyze", importsHandler.Analyze)
			r.With(s.requirePerm(rbac.PermImportsConfirm)).Post("/imports/confirm", importsHandler.Confirm)

			r.With(s.requirePerm(rbac.PermReportsView)).Get("/reports", reportsHandler.List)
			r.With(s.requirePerm(rbac.PermReportsView)).Get("/reports/case/{caseNo}", reportsHandler.GetByCaseNo)
			r.With(s.requirePerm(rbac.PermReportsView)).Get("/reports/{id}", reportsHandler.Get)

			r.With(s.requirePerm(rbac.PermLogsView)).Get("/logs", logsHandler.List)
		})
	})
	return r
}
