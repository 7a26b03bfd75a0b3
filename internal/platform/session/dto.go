package session

import (
	"time"

	"github.com/google/uuid"

	"fintrack/internal/database"
)

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=64,personname"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

type RefreshInput struct {
	RefreshToken string
	UserAgent    string
	IPAddress    string
}

type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordInput struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// AuthResult is what a successful login or refresh hands back. RefreshToken
// is the raw value and never stored.
type AuthResult struct {
	AccessToken          string
	AccessTokenExpiresAt time.Time
	RefreshToken         string
	RefreshTokenExpires  time.Time
	User                 *database.User
}

type RegisterResponse struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Role              string    `json:"role"`
	PreferredCurrency string    `json:"preferredCurrency"`
	IsEmailVerified   bool      `json:"isEmailVerified"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func ToRegisterResponse(u *database.User) RegisterResponse {
	return RegisterResponse{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              u.Role,
		PreferredCurrency: u.PreferredCurrency,
		IsEmailVerified:   u.IsEmailVerified,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

type LoginResponse struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Role              string     `json:"role"`
	Token             string     `json:"token"`
	IsEmailVerified   bool       `json:"isEmailVerified"`
	PreferredCurrency string     `json:"preferredCurrency"`
	LastLoginAt       *time.Time `json:"lastLoginAt"`
	LoginAttempts     int        `json:"loginAttempts"`
	LockUntil         *time.Time `json:"lockUntil"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// ToLoginResponse is used for both login and refresh.
func ToLoginResponse(r *AuthResult) LoginResponse {
	u := r.User
	return LoginResponse{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              u.Role,
		Token:             r.AccessToken,
		IsEmailVerified:   u.IsEmailVerified,
		PreferredCurrency: u.PreferredCurrency,
		LastLoginAt:       u.LastLoginAt,
		LoginAttempts:     u.LoginAttempts,
		LockUntil:         u.LockUntil,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

// Session describes one live refresh token without exposing it.
type Session struct {
	ID        uuid.UUID `json:"id"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
