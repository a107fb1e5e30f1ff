// Package handler serves the admin user-management, statistics and audit routes.
package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"prepmaster/backend/internal/admin/service"
	auditrepo "prepmaster/backend/internal/audit/repository"
	identityhandler "prepmaster/backend/internal/identity/handler"
	identityrepo "prepmaster/backend/internal/identity/repository"
	"prepmaster/backend/internal/platform/rbac"
	"prepmaster/backend/internal/server/httpx"
	"prepmaster/backend/internal/server/middleware"
)

// Handler serves /admin routes. Role and permission checks run in the router's middleware.
type Handler struct {
	svc *service.AdminService
	log logrus.FieldLogger
}

func New(svc *service.AdminService, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, log: log}
}

// ListUsers handles GET /admin/users?role=&department=&page=&limit=.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := httpx.ParsePage(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	q := r.URL.Query()
	f := identityrepo.ListFilter{
		Role:       rbac.Role(strings.TrimSpace(q.Get("role"))),
		Department: strings.TrimSpace(q.Get("department")),
		Offset:     page.Offset(),
		Limit:      page.Limit,
	}
	users, total, err := h.svc.ListUsers(r.Context(), f)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	out := make([]identityhandler.UserResponse, len(users))
	for k, u := range users {
		out[k] = identityhandler.NewUserResponse(u)
	}
	httpx.Success(w, http.StatusOK, "", map[string]any{"users": out, "pagination": httpx.NewPagination(page, total)})
}

// GetUser handles GET /admin/users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", map[string]any{"user": identityhandler.NewUserResponse(*u)})
}

// DeleteUser handles DELETE /admin/users/{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteUser(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetActive returns the handler for PATCH /admin/users/{id}/activate and /deactivate.
func (h *Handler) SetActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := h.svc.SetActive(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "id"), active)
		if err != nil {
			httpx.Error(w, r, h.log, err)
			return
		}
		httpx.Success(w, http.StatusOK, "", map[string]any{"user": identityhandler.NewUserResponse(*u)})
	}
}

// Stats handles GET /admin/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", st)
}

type auditLogResponse struct {
	ID         string    `json:"id"`
	IdentityID string    `json:"identityId,omitempty"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	IP         string    `json:"ip"`
	Metadata   string    `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AuditLogs handles GET /admin/audit-logs?identityId=&action=&page=&limit=.
func (h *Handler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	page, err := httpx.ParsePage(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	q := r.URL.Query()
	logs, err := h.svc.AuditLogs(r.Context(), auditrepo.Filter{
		IdentityID: q.Get("identityId"),
		Action:     q.Get("action"),
		Limit:      page.Limit,
		Offset:     page.Offset(),
	})
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	out := make([]auditLogResponse, len(logs))
	for k, a := range logs {
		out[k] = auditLogResponse{
			ID: a.ID, IdentityID: a.IdentityID, Action: a.Action, Resource: a.Resource,
			IP: a.IP, Metadata: a.Metadata, CreatedAt: a.CreatedAt,
		}
	}
	httpx.Success(w, http.StatusOK, "", map[string]any{"auditLogs": out})
}
