package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fintrack/internal/apperror"
	"fintrack/internal/database"
)

var (
	ErrUserNotFound = apperror.NewNotFound("User not found")
	ErrEmailTaken   = apperror.NewConflict("Email is already registered")
)

type UserService struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// NormalizeEmail is the canonical form every email is stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*database.User, error) {
	var user database.User
	result := s.db.WithContext(ctx).First(&user, "id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*database.User, error) {
	var user database.User
	result := s.db.WithContext(ctx).First(&user, "email = ?", NormalizeEmail(email))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (s *UserService) List(ctx context.Context) ([]database.User, error) {
	var users []database.User
	if err := s.db.WithContext(ctx).Order("created_at").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Create stores a new user. The email is normalized first and a duplicate,
// including one inserted concurrently, is reported as ErrEmailTaken.
func (s *UserService) Create(ctx context.Context, user *database.User) error {
	user.Email = NormalizeEmail(user.Email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&database.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

type UpdateInput struct {
	Name              *string `json:"name" validate:"omitempty,min=2,max=64,personname"`
	Email             *string `json:"email" validate:"omitempty,email"`
	PreferredCurrency *string `json:"preferredCurrency" validate:"omitempty,currency"`
	Role              *string `json:"role" validate:"omitempty,oneof=user admin"`
	IsEmailVerified   *bool   `json:"isEmailVerified"`
}

// Update applies the set fields of input to the user. Callers decide which
// fields a requester may touch.
func (s *UserService) Update(ctx context.Context, userID uuid.UUID, input UpdateInput) (*database.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		email := NormalizeEmail(*input.Email)
		if email != user.Email {
			var count int64
			if err := s.db.WithContext(ctx).Model(&database.User{}).Where("email = ? AND id <> ?", email, userID).Count(&count).Error; err != nil {
				return nil, err
			}
			if count > 0 {
				return nil, ErrEmailTaken
			}
			updates["email"] = email
			updates["is_email_verified"] = false
		}
	}
	if input.PreferredCurrency != nil {
		updates["preferred_currency"] = *input.PreferredCurrency
	}
	if input.Role != nil {
		updates["role"] = *input.Role
	}
	if input.IsEmailVerified != nil {
		updates["is_email_verified"] = *input.IsEmailVerified
	}

	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return s.GetUserByID(ctx, userID)
}

// IsLocked reports whether the user is inside a lockout window at now.
func (s *UserService) IsLocked(user *database.User, now time.Time) bool {
	return user.LockUntil != nil && user.LockUntil.After(now)
}

// RegisterFailedLogin counts a failed attempt and sets lockUntil once the
// counter reaches maxAttempts. Increment and comparison happen in a single
// statement so concurrent failures are never lost.
func (s *UserService) RegisterFailedLogin(ctx context.Context, userID uuid.UUID, maxAttempts int, lockUntil time.Time) (*database.User, error) {
	result := s.db.WithContext(ctx).Model(&database.User{}).Where("id = ?", userID).Updates(map[string]any{
		"login_attempts": gorm.Expr("login_attempts + 1"),
		"lock_until":     gorm.Expr("CASE WHEN login_attempts + 1 >= ? THEN ? ELSE lock_until END", maxAttempts, lockUntil),
	})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	return s.GetUserByID(ctx, userID)
}

// RegisterSuccessfulLogin clears the failure counter and any lock.
func (s *UserService) RegisterSuccessfulLogin(ctx context.Context, userID uuid.UUID, now time.Time) error {
	result := s.db.WithContext(ctx).Model(&database.User{}).Where("id = ?", userID).Updates(map[string]any{
		"login_attempts": 0,
		"lock_until":     nil,
		"last_login_at":  now,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
