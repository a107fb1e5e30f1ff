package handler

import (
	"time"

	"prepmaster/backend/internal/identity/domain"
)

// UserResponse is the public JSON shape of an identity. It never carries secrets.
type UserResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Role          string     `json:"role"`
	StudentID     string     `json:"studentId,omitempty"`
	StaffID       string     `json:"staffId,omitempty"`
	Department    string     `json:"department,omitempty"`
	YearLevel     int        `json:"yearLevel,omitempty"`
	EmailVerified bool       `json:"isEmailVerified"`
	Active        bool       `json:"isActive"`
	LastLogin     *time.Time `json:"lastLogin,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// NewUserResponse maps an identity to its public shape.
func NewUserResponse(i domain.Identity) UserResponse {
	return UserResponse{
		ID:            i.ID,
		Email:         i.Email,
		Name:          i.Name,
		Role:          string(i.Role),
		StudentID:     i.StudentID,
		StaffID:       i.StaffID,
		Department:    i.Department,
		YearLevel:     i.YearLevel,
		EmailVerified: i.EmailVerified,
		Active:        i.Active,
		LastLogin:     i.LastLogin,
		CreatedAt:     i.CreatedAt,
	}
}

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	FullName   string `json:"fullName"`
	StudentID  string `json:"studentId"`
	StaffID    string `json:"staffId"`
	Department string `json:"department"`
	YearLevel  int    `json:"yearLevel"`
}

func (r registerRequest) name() string {
	if r.Name != "" {
		return r.Name
	}
	return r.FullName
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileRequest struct {
	Name       *string `json:"name"`
	FullName   *string `json:"fullName"`
	Department *string `json:"department"`
	YearLevel  *int    `json:"yearLevel"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type authResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}
