// Package httpx holds the JSON envelope shared by every HTTP handler.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"prepmaster/backend/internal/platform/apperr"
)

const maxBodyBytes = 1 << 20

// SuccessBody is the envelope of every 2xx response.
type SuccessBody struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorBody is the envelope of every error response. Status is "fail" for 4xx and "error" for 5xx.
type ErrorBody struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Success writes {status:"success", message, data}.
func Success(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, SuccessBody{Status: "success", Message: message, Data: data})
}

// Error maps err to its status code and safe message. Non-operational errors
// are logged with full detail and answered with a generic 500.
func Error(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	status := apperr.Status(err)
	if !apperr.IsOperational(err) && log != nil {
		log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
		}).WithError(err).Error("unhandled error")
	}
	state := "fail"
	if status >= http.StatusInternalServerError {
		state = "error"
	}
	JSON(w, status, ErrorBody{Status: state, StatusCode: status, Message: apperr.Message(err)})
}

// Decode reads a JSON body into v. Malformed or oversized bodies, unknown
// fields and trailing data are validation errors.
func Decode(r *http.Request, v any) error {
	if r.Body == nil {
		return apperr.Validation("request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		if strings.HasPrefix(err.Error(), "json: unknown field ") {
			return apperr.Validation("unknown field " + strings.TrimPrefix(err.Error(), "json: unknown field "))
		}
		return apperr.Validation("invalid JSON body")
	}
	if dec.More() {
		return apperr.Validation("invalid JSON body")
	}
	return nil
}

// Page is the parsed page/limit query.
type Page struct {
	Page  int
	Limit int
}

// Offset returns the row offset for the page.
func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// ParsePage reads ?page= and ?limit=. Defaults are page 1 and limit 10; limit is capped at 100.
func ParsePage(r *http.Request) (Page, error) {
	p := Page{Page: 1, Limit: 10}
	q := r.URL.Query()
	if s := strings.TrimSpace(q.Get("page")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return p, apperr.Validation("page must be a positive integer")
		}
		p.Page = n
	}
	if s := strings.TrimSpace(q.Get("limit")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return p, apperr.Validation("limit must be a positive integer")
		}
		if n > 100 {
			n = 100
		}
		p.Limit = n
	}
	return p, nil
}

// Pagination is the metadata returned alongside list results.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes page counts for total items.
func NewPagination(p Page, total int) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}
