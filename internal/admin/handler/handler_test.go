package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prepmaster/backend/internal/admin/service"
	"prepmaster/backend/internal/audit"
	auditrepo "prepmaster/backend/internal/audit/repository"
	"prepmaster/backend/internal/identity/domain"
	identityrepo "prepmaster/backend/internal/identity/repository"
	"prepmaster/backend/internal/platform/rbac"
	questionrepo "prepmaster/backend/internal/question/repository"
	"prepmaster/backend/internal/server/middleware"
)

func newRouter(t *testing.T) (http.Handler, *identityrepo.MemoryRepository) {
	t.Helper()
	identities := identityrepo.NewMemoryRepository(nil)
	logs := auditrepo.NewMemoryRepository()
	svc := service.NewAdminService(identities, questionrepo.NewMemoryRepository(), logs, audit.NewLogger(logs, nil, nil), nil)
	h := New(svc, nil)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for k, u := range []struct {
		id   string
		role rbac.Role
		dept string
	}{
		{"root", rbac.RoleAdmin, ""},
		{"alice", rbac.RoleStudent, "Physics"},
		{"bob", rbac.RoleStudent, "Maths"},
		{"carol", rbac.RoleStaff, "Physics"},
	} {
		require.NoError(t, identities.Create(context.Background(), &domain.Identity{
			ID: u.id, Email: u.id + "@example.com", Name: u.id, Role: u.role, Department: u.dept,
			StudentID: "S-" + u.id, EmailVerified: true, Active: true, CreatedAt: base.Add(time.Duration(k) * time.Hour),
		}))
	}
	admin, _ := identities.GetByID(context.Background(), "root")

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithIdentity(req.Context(), admin)))
		})
	})
	r.Get("/admin/users", h.ListUsers)
	r.Get("/admin/users/{id}", h.GetUser)
	r.Delete("/admin/users/{id}", h.DeleteUser)
	r.Patch("/admin/users/{id}/activate", h.SetActive(true))
	r.Patch("/admin/users/{id}/deactivate", h.SetActive(false))
	r.Get("/admin/stats", h.Stats)
	r.Get("/admin/audit-logs", h.AuditLogs)
	return r, identities
}

func get(t *testing.T, h http.Handler, method, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestListUsers(t *testing.T) {
	h, _ := newRouter(t)
	code, body := get(t, h, http.MethodGet, "/admin/users?role=student&page=1&limit=1")
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	users := data["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].(map[string]any)["id"], "newest first")
	assert.Equal(t, 2.0, data["pagination"].(map[string]any)["total"])

	_, body = get(t, h, http.MethodGet, "/admin/users?department=Physics")
	assert.Len(t, body["data"].(map[string]any)["users"], 2)

	code, _ = get(t, h, http.MethodGet, "/admin/users?role=wizard")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = get(t, h, http.MethodGet, "/admin/users?page=0")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSetActive(t *testing.T) {
	h, identities := newRouter(t)
	code, body := get(t, h, http.MethodPatch, "/admin/users/alice/deactivate")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["data"].(map[string]any)["user"].(map[string]any)["isActive"])
	stored, _ := identities.GetByID(context.Background(), "alice")
	assert.False(t, stored.Active)

	code, _ = get(t, h, http.MethodPatch, "/admin/users/alice/activate")
	assert.Equal(t, http.StatusOK, code)
	code, _ = get(t, h, http.MethodPatch, "/admin/users/root/deactivate")
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = get(t, h, http.MethodPatch, "/admin/users/nobody/deactivate")
	assert.Equal(t, http.StatusNotFound, code)

	_, body = get(t, h, http.MethodGet, "/admin/audit-logs?action="+audit.ActionIdentityActivated)
	logs := body["data"].(map[string]any)["auditLogs"].([]any)
	require.Len(t, logs, 1)
	assert.Equal(t, "root", logs[0].(map[string]any)["identityId"])
}

func TestGetAndDeleteUser(t *testing.T) {
	h, identities := newRouter(t)
	code, body := get(t, h, http.MethodGet, "/admin/users/alice")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", body["data"].(map[string]any)["user"].(map[string]any)["id"])
	code, _ = get(t, h, http.MethodGet, "/admin/users/nobody")
	assert.Equal(t, http.StatusNotFound, code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/users/alice", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	stored, _ := identities.GetByID(context.Background(), "alice")
	assert.Nil(t, stored)

	code, _ = get(t, h, http.MethodDelete, "/admin/users/root")
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = get(t, h, http.MethodDelete, "/admin/users/alice")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStats(t *testing.T) {
	h, _ := newRouter(t)
	code, body := get(t, h, http.MethodGet, "/admin/stats")
	require.Equal(t, http.StatusOK, code)
	users := body["data"].(map[string]any)["users"].(map[string]any)
	assert.Equal(t, 4.0, users["totalUsers"])
	assert.Equal(t, 100.0, users["verificationRate"])
	questions := body["data"].(map[string]any)["questions"].(map[string]any)
	assert.Equal(t, 0.0, questions["totalQuestions"])
}
