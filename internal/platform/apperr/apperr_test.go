package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthenticated", New(ErrUnauthenticated, "please log in"), http.StatusUnauthorized},
		{"invalid credentials", New(ErrInvalidCredentials, "Invalid email or password"), http.StatusUnauthorized},
		{"email not verified", ErrEmailNotVerified, http.StatusUnauthorized},
		{"locked", New(ErrAccountLocked, "locked"), http.StatusForbidden},
		{"forbidden", Forbidden("no"), http.StatusForbidden},
		{"otp", ErrInvalidOrExpiredOTP, http.StatusBadRequest},
		{"link token", ErrInvalidOrExpiredToken, http.StatusBadRequest},
		{"validation", Validation("bad"), http.StatusBadRequest},
		{"not found", NotFound("missing"), http.StatusNotFound},
		{"conflict", Conflict("dup"), http.StatusConflict},
		{"rate", ErrTooManyRequests, http.StatusTooManyRequests},
		{"wrapped", fmt.Errorf("login: %w", New(ErrForbidden, "x")), http.StatusForbidden},
		{"unknown", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Status(tc.err); got != tc.want {
				t.Errorf("Status = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	if got := Message(New(ErrInvalidCredentials, "Invalid email or password")); got != "Invalid email or password" {
		t.Errorf("Message = %q", got)
	}
	if got := Message(ErrNotFound); got != "not found" {
		t.Errorf("Message bare kind = %q", got)
	}
	if got := Message(errors.New("pq: connection refused")); got != InternalMessage {
		t.Errorf("internal error leaked: %q", got)
	}
}

func TestError_Is(t *testing.T) {
	err := New(ErrConflict, "Email already registered")
	if !errors.Is(err, ErrConflict) {
		t.Error("errors.Is should match kind")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("errors.Is should not match other kinds")
	}
	if !IsOperational(err) {
		t.Error("IsOperational = false")
	}
}
