// Package handler serves registration, verification, login and profile routes.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"prepmaster/backend/internal/identity/service"
	"prepmaster/backend/internal/platform/apperr"
	"prepmaster/backend/internal/platform/rbac"
	"prepmaster/backend/internal/server/httpx"
	"prepmaster/backend/internal/server/middleware"
)

const (
	msgRegistered      = "Registration successful. Please check your email for the OTP"
	msgRegisteredLink  = "Registration successful. Please verify your email"
	msgOTPVerified     = "Email verified successfully"
	msgOTPResent       = "If the account exists and is not verified, a new OTP has been sent"
	msgPasswordChanged = "Password changed successfully"
)

// Handler serves the identity routes.
type Handler struct {
	auth *service.AuthService
	log  logrus.FieldLogger
}

func New(auth *service.AuthService, log logrus.FieldLogger) *Handler {
	return &Handler{auth: auth, log: log}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.Error(w, r, h.log, err)
}

func (r registerRequest) input() service.RegisterInput {
	return service.RegisterInput{
		Email:      r.Email,
		Password:   r.Password,
		Name:       r.name(),
		StudentID:  r.StudentID,
		StaffID:    r.StaffID,
		Department: r.Department,
		YearLevel:  r.YearLevel,
	}
}

// RegisterStudent handles POST /auth/register/student.
func (h *Handler) RegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	ident, err := h.auth.RegisterStudent(r.Context(), req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusCreated, msgRegistered, map[string]any{"user": NewUserResponse(*ident)})
}

// RegisterAdmin handles POST /admin/register.
func (h *Handler) RegisterAdmin(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	ident, err := h.auth.RegisterAdmin(r.Context(), req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusCreated, msgRegistered, map[string]any{"user": NewUserResponse(*ident)})
}

// RegisterPrivileged returns the handler for POST /auth/register/{staff,admin}.
// The authenticated caller must be the super admin.
func (h *Handler) RegisterPrivileged(role rbac.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := httpx.Decode(r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
		ident, err := h.auth.RegisterPrivileged(r.Context(), middleware.IdentityFrom(r.Context()), role, req.input())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.Success(w, http.StatusCreated, msgRegisteredLink, map[string]any{"user": NewUserResponse(*ident)})
	}
}

// VerifyOTP handles POST /auth/verify-otp.
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	ident, err := h.auth.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, msgOTPVerified, map[string]any{"user": NewUserResponse(*ident)})
}

// VerifyAdminOTP handles POST /admin/verify-otp and returns a session token.
func (h *Handler) VerifyAdminOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.auth.VerifyAdminOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, msgOTPVerified, authResponse{User: NewUserResponse(res.Identity), Token: res.Token, ExpiresAt: res.ExpiresAt})
}

// ResendOTP handles POST /auth/resend-otp. The response does not reveal whether the email exists.
func (h *Handler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.auth.ResendOTP(r.Context(), req.Email); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, msgOTPResent, nil)
}

// VerifyEmail handles GET /auth/verify-email/{token}.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.VerifyEmail(r.Context(), chi.URLParam(r, "token")); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, msgOTPVerified, nil)
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", authResponse{User: NewUserResponse(res.Identity), Token: res.Token, ExpiresAt: res.ExpiresAt})
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	ident := middleware.IdentityFrom(r.Context())
	if ident == nil {
		h.fail(w, r, apperr.New(apperr.ErrUnauthenticated, "Please log in to access this resource"))
		return "", false
	}
	return ident.ID, true
}

// Me handles GET /users/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	ident, err := h.auth.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", map[string]any{"user": NewUserResponse(*ident)})
}

// UpdateMe handles PATCH /users/me.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	upd := service.ProfileUpdate{Name: req.Name, Department: req.Department, YearLevel: req.YearLevel}
	if upd.Name == nil {
		upd.Name = req.FullName
	}
	ident, err := h.auth.UpdateProfile(r.Context(), id, upd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", map[string]any{"user": NewUserResponse(*ident)})
}

// ChangePassword handles POST /users/me/password and returns a fresh token.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.auth.ChangePassword(r.Context(), id, req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, msgPasswordChanged, authResponse{User: NewUserResponse(res.Identity), Token: res.Token, ExpiresAt: res.ExpiresAt})
}
