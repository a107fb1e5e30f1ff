// Package server assembles the HTTP API: the chi router, its middleware stack,
// and the route table with the access chain applied per route.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	adminhandler "prepmaster/backend/internal/admin/handler"
	adminservice "prepmaster/backend/internal/admin/service"
	"prepmaster/backend/internal/audit"
	"prepmaster/backend/internal/devotp"
	devotphandler "prepmaster/backend/internal/devotp/handler"
	healthhandler "prepmaster/backend/internal/health/handler"
	identityhandler "prepmaster/backend/internal/identity/handler"
	identityservice "prepmaster/backend/internal/identity/service"
	"prepmaster/backend/internal/observability"
	"prepmaster/backend/internal/platform/apperr"
	"prepmaster/backend/internal/platform/rbac"
	questionhandler "prepmaster/backend/internal/question/handler"
	questionservice "prepmaster/backend/internal/question/service"
	"prepmaster/backend/internal/server/httpx"
	"prepmaster/backend/internal/server/middleware"
)

// ResourceQuestion is the resource type CheckOwnership resolves for /questions/{id}.
const ResourceQuestion = "question"

// Deps holds the services and infrastructure the router mounts.
type Deps struct {
	// Auth, Questions, Admin and Chain are required.
	Auth      *identityservice.AuthService
	Questions *questionservice.QuestionService
	Admin     *adminservice.AdminService
	Chain     *middleware.Chain

	// AuditLogger records mutating requests of authenticated identities. If nil, nothing is audited.
	AuditLogger audit.AuditLogger
	// Metrics and Registry back /metrics. If Registry is nil, /metrics is not mounted.
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	// RateLimit guards the unauthenticated auth routes. If nil, they are not limited.
	RateLimit func(http.Handler) http.Handler
	// HealthPinger is used by /health for readiness (e.g. *sql.DB). If nil, the DB ping is skipped.
	HealthPinger healthhandler.Pinger
	// TrustedProxies are the peers whose forwarding headers name the client IP
	// for auditing and rate limiting. If empty, the remote address is used.
	TrustedProxies middleware.TrustedProxies
	// DevOTP backs GET /dev/otp. Set only when dev OTP mode is enabled outside production.
	DevOTP devotp.Store
	Log    logrus.FieldLogger
}

// NewRouter returns the HTTP handler for the whole API.
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	auditLogger := d.AuditLogger
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	limit := d.RateLimit
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}
	chain := d.Chain
	chain.RegisterLoader(ResourceQuestion, d.Questions.Load)

	identity := identityhandler.New(d.Auth, log)
	questions := questionhandler.New(d.Questions, log)
	admin := adminhandler.New(d.Admin, log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.ClientIP(d.TrustedProxies))
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(observability.HTTPMetricsMiddleware(d.Metrics))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.Error(w, req, log, apperr.New(apperr.ErrNotFound, "Can't find "+req.URL.Path+" on this server"))
	})

	r.Get("/health", healthhandler.New(d.HealthPinger, nil, log).Health)
	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", observability.Handler(d.Registry))
	}
	if d.DevOTP != nil {
		r.Get("/dev/otp", devotphandler.New(d.DevOTP, log).GetOTP)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Post("/register/student", identity.RegisterStudent)
			r.Post("/verify-otp", identity.VerifyOTP)
			r.Post("/resend-otp", identity.ResendOTP)
			r.Post("/login", identity.Login)
			r.Get("/verify-email/{token}", identity.VerifyEmail)
		})
		r.Group(func(r chi.Router) {
			r.Use(chain.Authenticate, middleware.Audit(auditLogger), chain.Authorize(rbac.RoleSuperAdmin))
			r.Post("/register/staff", identity.RegisterPrivileged(rbac.RoleStaff))
			r.Post("/register/admin", identity.RegisterPrivileged(rbac.RoleAdmin))
		})
	})

	r.Route("/users/me", func(r chi.Router) {
		r.Use(chain.Authenticate, middleware.Audit(auditLogger))
		r.Get("/", identity.Me)
		r.With(chain.HasPermission(rbac.PermUpdateOwnProfile)).Patch("/", identity.UpdateMe)
		r.Post("/password", identity.ChangePassword)
	})

	r.Route("/questions", func(r chi.Router) {
		r.Use(chain.Authenticate, middleware.Audit(auditLogger))
		r.With(chain.HasPermission(rbac.PermViewQuestions)).Get("/", questions.List)
		r.With(chain.HasPermission(rbac.PermCreateQuestions)).Post("/", questions.Create)
		r.With(chain.HasPermission(rbac.PermAttemptQuestions)).Get("/practice", questions.Practice)
		r.Route("/{id}", func(r chi.Router) {
			r.With(chain.HasPermission(rbac.PermViewQuestions)).Get("/", questions.Get)
			r.Group(func(r chi.Router) {
				r.Use(chain.HasPermission(rbac.PermEditOwnQuestions), chain.CheckOwnership(ResourceQuestion, "id"))
				r.Patch("/", questions.Update)
				r.Delete("/", questions.Delete)
			})
			r.With(chain.HasPermission(rbac.PermAttemptQuestions)).Post("/attempt", questions.Attempt)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Post("/register", identity.RegisterAdmin)
			r.Post("/verify-otp", identity.VerifyAdminOTP)
		})
		r.Group(func(r chi.Router) {
			r.Use(chain.Authenticate, middleware.Audit(auditLogger), chain.Authorize(rbac.RoleAdmin, rbac.RoleSuperAdmin))

			r.Group(func(r chi.Router) {
				r.Use(chain.HasPermission(rbac.PermManageUsers))
				r.Get("/users", admin.ListUsers)
				r.Get("/users/{id}", admin.GetUser)
				r.Delete("/users/{id}", admin.DeleteUser)
				r.Patch("/users/{id}/activate", admin.SetActive(true))
				r.Patch("/users/{id}/deactivate", admin.SetActive(false))
				r.Get("/audit-logs", admin.AuditLogs)
			})
			r.With(chain.HasPermission(rbac.PermViewStats)).Get("/stats", admin.Stats)

			r.Route("/questions", func(r chi.Router) {
				r.Use(chain.HasPermission(rbac.PermManageQuestions))
				r.Get("/", questions.List)
				r.Post("/", questions.Create)
				r.Get("/{id}", questions.Get)
				r.Patch("/{id}", questions.Update)
				r.Delete("/{id}", questions.Delete)
			})
		})
	})

	return r
}
