package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prepmaster/backend/internal/identity/domain"
	"prepmaster/backend/internal/platform/rbac"
	"prepmaster/backend/internal/question/repository"
	"prepmaster/backend/internal/question/service"
	"prepmaster/backend/internal/server/middleware"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	h := New(service.NewQuestionService(repository.NewMemoryRepository(), nil), nil)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := &domain.Identity{ID: r.Header.Get("X-Test-User"), Role: rbac.RoleStaff}
			next.ServeHTTP(w, r.WithContext(middleware.WithIdentity(r.Context(), ident)))
		})
	})
	r.Get("/questions", h.List)
	r.Get("/questions/practice", h.Practice)
	r.Post("/questions", h.Create)
	r.Get("/questions/{id}", h.Get)
	r.Patch("/questions/{id}", h.Update)
	r.Delete("/questions/{id}", h.Delete)
	r.Post("/questions/{id}/attempt", h.Attempt)
	return r
}

func call(t *testing.T, h http.Handler, method, path, user, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-Test-User", user)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

const createBody = `{"title":"Speed of light","category":"Physics","difficulty":"hard",
	"options":[{"text":"3e8 m/s","isCorrect":true},{"text":"3e5 m/s","isCorrect":false}]}`

func createQuestion(t *testing.T, h http.Handler, user string) string {
	t.Helper()
	rec, body := call(t, h, http.MethodPost, "/questions", user, createBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	q := body["data"].(map[string]any)["question"].(map[string]any)
	assert.Equal(t, user, q["createdBy"])
	return q["id"].(string)
}

func TestHandler_CreateGetUpdateDelete(t *testing.T) {
	h := newRouter(t)
	id := createQuestion(t, h, "carol")

	rec, body := call(t, h, http.MethodGet, "/questions/"+id, "carol", "")
	require.Equal(t, http.StatusOK, rec.Code)
	q := body["data"].(map[string]any)["question"].(map[string]any)
	assert.Equal(t, "hard", q["difficulty"])

	rec, body = call(t, h, http.MethodPatch, "/questions/"+id, "carol", `{"title":"Light"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Light", body["data"].(map[string]any)["question"].(map[string]any)["title"])

	rec, _ = call(t, h, http.MethodPatch, "/questions/"+id, "carol", `{"options":[{"text":"only","isCorrect":true}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = call(t, h, http.MethodDelete, "/questions/"+id, "carol", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, body = call(t, h, http.MethodGet, "/questions/"+id, "carol", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "fail", body["status"])
}

func TestHandler_CreateValidation(t *testing.T) {
	h := newRouter(t)
	rec, body := call(t, h, http.MethodPost, "/questions", "carol",
		`{"title":"T","category":"C","options":[{"text":"a","isCorrect":false},{"text":"b","isCorrect":false}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "at least one correct answer must be provided", body["message"])

	rec, _ = call(t, h, http.MethodPost, "/questions", "carol", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ListMineAndPagination(t *testing.T) {
	h := newRouter(t)
	createQuestion(t, h, "carol")
	createQuestion(t, h, "carol")
	createQuestion(t, h, "dave")

	rec, body := call(t, h, http.MethodGet, "/questions?limit=2", "carol", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Len(t, data["questions"], 2)
	pagination := data["pagination"].(map[string]any)
	assert.Equal(t, 3.0, pagination["total"])
	assert.Equal(t, 2.0, pagination["totalPages"])

	_, body = call(t, h, http.MethodGet, "/questions?mine=true", "dave", "")
	assert.Len(t, body["data"].(map[string]any)["questions"], 1)

	rec, _ = call(t, h, http.MethodGet, "/questions?difficulty=impossible", "carol", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_PracticeAndAttemptHideAnswers(t *testing.T) {
	h := newRouter(t)
	id := createQuestion(t, h, "carol")

	rec, _ := call(t, h, http.MethodGet, "/questions/practice", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "isCorrect")
	assert.Contains(t, rec.Body.String(), "3e8 m/s")

	rec, body := call(t, h, http.MethodPost, "/questions/"+id+"/attempt", "alice", `{"selected":[0]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "isCorrect")
	assert.Equal(t, true, body["data"].(map[string]any)["correct"])

	_, body = call(t, h, http.MethodPost, "/questions/"+id+"/attempt", "alice", `{"selected":[1]}`)
	assert.Equal(t, false, body["data"].(map[string]any)["correct"])
}
