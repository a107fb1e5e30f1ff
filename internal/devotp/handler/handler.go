// Package handler serves GET /dev/otp. Mounted only when dev OTP mode is enabled.
package handler

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"prepmaster/backend/internal/devotp"
	"prepmaster/backend/internal/platform/apperr"
	"prepmaster/backend/internal/server/httpx"
)

type Handler struct {
	store devotp.Store
	log   logrus.FieldLogger
}

func New(store devotp.Store, log logrus.FieldLogger) *Handler {
	return &Handler{store: store, log: log}
}

// GetOTP returns the last OTP issued to ?email= while it is unexpired.
func (h *Handler) GetOTP(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		httpx.Error(w, r, h.log, apperr.Validation("email is required"))
		return
	}
	code, ok := h.store.Get(r.Context(), email)
	if !ok {
		httpx.Error(w, r, h.log, apperr.NotFound("No OTP found for this email"))
		return
	}
	httpx.Success(w, http.StatusOK, "", map[string]string{"email": strings.ToLower(email), "otp": code})
}
