// Package handler serves the question bank over HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"prepmaster/backend/internal/platform/apperr"
	"prepmaster/backend/internal/question/domain"
	"prepmaster/backend/internal/question/repository"
	"prepmaster/backend/internal/question/service"
	"prepmaster/backend/internal/server/httpx"
	"prepmaster/backend/internal/server/middleware"
)

// Handler serves the question routes. Access checks run in the router's middleware.
type Handler struct {
	svc *service.QuestionService
	log logrus.FieldLogger
}

func New(svc *service.QuestionService, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, log: log}
}

type questionResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category"`
	Difficulty  string          `json:"difficulty"`
	Options     []domain.Option `json:"options"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// practiceOption hides which options are correct.
type practiceOption struct {
	Text string `json:"text"`
}

type practiceResponse struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Category    string           `json:"category"`
	Difficulty  string           `json:"difficulty"`
	Options     []practiceOption `json:"options"`
}

func toResponse(q domain.Question) questionResponse {
	return questionResponse{
		ID: q.ID, Title: q.Title, Description: q.Description, Category: q.Category,
		Difficulty: string(q.Difficulty), Options: q.Options, CreatedBy: q.CreatedBy,
		CreatedAt: q.CreatedAt, UpdatedAt: q.UpdatedAt,
	}
}

func toPractice(q domain.Question) practiceResponse {
	opts := make([]practiceOption, len(q.Options))
	for k, o := range q.Options {
		opts[k] = practiceOption{Text: o.Text}
	}
	return practiceResponse{
		ID: q.ID, Title: q.Title, Description: q.Description, Category: q.Category,
		Difficulty: string(q.Difficulty), Options: opts,
	}
}

type questionRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Category    *string         `json:"category"`
	Difficulty  *string         `json:"difficulty"`
	Options     []domain.Option `json:"options"`
}

type attemptRequest struct {
	Selected []int `json:"selected"`
}

func (h *Handler) list(r *http.Request, mine bool) ([]domain.Question, httpx.Pagination, error) {
	page, err := httpx.ParsePage(r)
	if err != nil {
		return nil, httpx.Pagination{}, err
	}
	q := r.URL.Query()
	f := repository.Filter{
		Category:   q.Get("category"),
		Difficulty: domain.Difficulty(q.Get("difficulty")),
		Offset:     page.Offset(),
		Limit:      page.Limit,
	}
	if mine {
		if ident := middleware.IdentityFrom(r.Context()); ident != nil {
			f.CreatedBy = ident.ID
		}
	}
	items, total, err := h.svc.List(r.Context(), f)
	if err != nil {
		return nil, httpx.Pagination{}, err
	}
	return items, httpx.NewPagination(page, total), nil
}

// List handles GET /questions and GET /admin/questions. ?mine=true limits to the caller's questions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, pagination, err := h.list(r, r.URL.Query().Get("mine") == "true")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	out := make([]questionResponse, len(items))
	for k, q := range items {
		out[k] = toResponse(q)
	}
	httpx.Success(w, http.StatusOK, "", map[string]any{"questions": out, "pagination": pagination})
}

// Practice handles GET /questions/practice for students. Correct answers are not included.
func (h *Handler) Practice(w http.ResponseWriter, r *http.Request) {
	items, pagination, err := h.list(r, false)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	out := make([]practiceResponse, len(items))
	for k, q := range items {
		out[k] = toPractice(q)
	}
	httpx.Success(w, http.StatusOK, "", map[string]any{"questions": out, "pagination": pagination})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", map[string]any{"question": toResponse(*q)})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	ident := middleware.IdentityFrom(r.Context())
	if ident == nil {
		httpx.Error(w, r, h.log, apperr.New(apperr.ErrUnauthenticated, "Please log in to access this resource"))
		return
	}
	in := service.Input{Options: req.Options}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Category != nil {
		in.Category = *req.Category
	}
	if req.Difficulty != nil {
		in.Difficulty = domain.Difficulty(*req.Difficulty)
	}
	q, err := h.svc.Create(r.Context(), ident.ID, in)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusCreated, "", map[string]any{"question": toResponse(*q)})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	p := service.Patch{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Options:     req.Options,
	}
	if req.Difficulty != nil {
		d := domain.Difficulty(*req.Difficulty)
		p.Difficulty = &d
	}
	q, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", map[string]any{"question": toResponse(*q)})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Attempt handles POST /questions/{id}/attempt. Only the verdict is returned.
func (h *Handler) Attempt(w http.ResponseWriter, r *http.Request) {
	var req attemptRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	res, err := h.svc.Attempt(r.Context(), chi.URLParam(r, "id"), req.Selected)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", res)
}
