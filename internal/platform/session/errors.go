package session

import (
	"errors"
	"fmt"
	"math"
	"time"

	"fintrack/internal/apperror"
	"fintrack/internal/platform/user"
)

var (
	ErrInvalidCredentials  = apperror.NewUnauthorized("Invalid credentials")
	ErrInvalidRefreshToken = apperror.NewUnauthorized("Invalid refresh token")
	ErrMissingRefreshToken = apperror.NewUnauthorized("Refresh token missing")
	ErrInvalidResetToken   = apperror.NewUnauthorized("Invalid or expired reset token")
	ErrUserNotFound        = apperror.NewUnauthorized("User not found")
	ErrSessionNotFound     = apperror.NewNotFound("Session not found")
	ErrEmailTaken          = user.ErrEmailTaken

	// ErrAccountLocked is wrapped by every lockout error so callers can test
	// for it with errors.Is.
	ErrAccountLocked = errors.New("account locked")
)

func lockedError(remaining time.Duration) error {
	minutes := int(math.Ceil(remaining.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return apperror.Wrap(apperror.Unauthorized,
		fmt.Sprintf("Account is locked. Try again in %d minute(s)", minutes),
		ErrAccountLocked,
	)
}
