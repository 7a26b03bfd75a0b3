package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"gorm.io/gorm"

	"fintrack/internal/auth"
	"fintrack/internal/config"
	"fintrack/internal/database"
	"fintrack/internal/events"
	"fintrack/internal/mail"
	"fintrack/internal/platform/user"
	"fintrack/pkg/utils"
)

const mailTimeout = 15 * time.Second

var mailBundle = sync.OnceValue(mail.NewBundle)

// resetDispatch is the outcome of a reset request. Both variants look the
// same to the caller so the endpoint never reveals whether an account exists.
type resetDispatch int

const (
	resetSilentNoOp resetDispatch = iota
	resetSent
)

// Service runs the account and session lifecycle.
type Service struct {
	db     *gorm.DB
	cfg    *config.Config
	users  *user.UserService
	signer *auth.Signer
	hasher *auth.BcryptHasher
	mailer mail.Mailer
	bundle *i18n.Bundle
	events events.Publisher
	now    func() time.Time
}

func NewService(db *gorm.DB, cfg *config.Config, mailer mail.Mailer, publisher events.Publisher) *Service {
	if mailer == nil {
		mailer = mail.LogMailer{}
	}
	if publisher == nil {
		publisher = events.Noop{}
	}

	return &Service{
		db:     db,
		cfg:    cfg,
		users:  user.NewService(db),
		signer: auth.NewSigner(cfg),
		hasher: auth.NewHasher(cfg.BcryptCost),
		mailer: mailer,
		bundle: mailBundle(),
		events: publisher,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source of the service and its token signer.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
	s.signer = s.signer.WithClock(now)
}

func (s *Service) Signer() *auth.Signer {
	return s.signer
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (*database.User, error) {
	hash, err := s.hasher.Hash(strings.TrimSpace(input.Password))
	if err != nil {
		return nil, err
	}

	u := &database.User{
		Name:              strings.TrimSpace(input.Name),
		Email:             input.Email,
		PasswordHash:      hash,
		Role:              database.RoleUser,
		PreferredCurrency: "INR",
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.publish(ctx, events.UserRegistered, u, "")

	return u, nil
}

// Login checks the lockout window before the password so a locked account
// never reveals whether the password was right.
func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	now := s.now()

	u, err := s.users.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if s.users.IsLocked(u, now) {
		return nil, lockedError(u.LockUntil.Sub(now))
	}

	if !s.hasher.Compare(strings.TrimSpace(input.Password), u.PasswordHash) {
		updated, err := s.users.RegisterFailedLogin(ctx, u.ID, s.cfg.MaxLoginAttempts, now.Add(s.cfg.LockDuration))
		if err != nil {
			return nil, err
		}
		if s.users.IsLocked(updated, now) {
			log.Warnw("account locked", "user_id", u.ID, "attempts", updated.LoginAttempts)
			s.publish(ctx, events.UserLocked, updated, input.IPAddress)
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.users.RegisterSuccessfulLogin(ctx, u.ID, now); err != nil {
		return nil, err
	}
	u.LoginAttempts = 0
	u.LockUntil = nil
	u.LastLoginAt = &now

	result, err := s.issue(s.db.WithContext(ctx), u, input.UserAgent, input.IPAddress, now)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.UserLoggedIn, u, input.IPAddress)

	return result, nil
}

// Refresh rotates a refresh token. The presented row is deleted in the same
// transaction that stores its replacement, and only the caller whose delete
// hit the row may continue, so a token is usable once.
func (s *Service) Refresh(ctx context.Context, input RefreshInput) (*AuthResult, error) {
	now := s.now()

	if input.RefreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	var row database.RefreshToken
	err := s.db.WithContext(ctx).
		Where("token_hash = ? AND expires_at > ?", utils.HashToken(input.RefreshToken), now).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	var result *AuthResult
	var ownerMissing bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted := tx.Delete(&database.RefreshToken{}, "id = ?", row.ID)
		if deleted.Error != nil {
			return deleted.Error
		}
		if deleted.RowsAffected != 1 {
			return ErrInvalidRefreshToken
		}

		var u database.User
		if err := tx.First(&u, "id = ?", row.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ownerMissing = true
				return nil
			}
			return err
		}

		var err error
		result, err = s.issue(tx, &u, input.UserAgent, input.IPAddress, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if ownerMissing {
		return nil, ErrUserNotFound
	}

	return result, nil
}

// ForgotPassword starts a password reset. It reports the same result whether
// or not the email belongs to an account.
func (s *Service) ForgotPassword(ctx context.Context, email string, langs ...string) error {
	_, err := s.requestReset(ctx, email, langs)
	return err
}

func (s *Service) requestReset(ctx context.Context, email string, langs []string) (resetDispatch, error) {
	now := s.now()

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return resetSilentNoOp, nil
		}
		return resetSilentNoOp, err
	}

	raw := utils.GenerateRandomToken()
	row := database.PasswordResetToken{
		UserID:    u.ID,
		TokenHash: utils.HashToken(raw),
		ExpiresAt: now.Add(s.cfg.ResetTokenTTL),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return resetSilentNoOp, err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(s.cfg.FrontendURL, "/"), raw)
	message, err := mail.ResetPasswordEmail(s.bundle, s.cfg.MailFrom, u.Email, mail.ResetPasswordData{
		Name:     u.Name,
		Link:     link,
		TTL:      s.cfg.ResetTokenTTL,
		Template: s.cfg.MailgunTemplate,
	}, langs...)
	if err != nil {
		return resetSilentNoOp, err
	}

	// The event and the mail leave the request path so response time does
	// not depend on whether an account exists.
	go func(u *database.User) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
		defer cancel()

		s.publish(ctx, events.PasswordResetRequested, u, "")

		if err := s.mailer.SendMail(ctx, message); err != nil {
			log.Errorw("failed to send password reset mail", "user_id", u.ID, "error", err)
		}
	}(u)

	return resetSent, nil
}

// ResetPassword consumes a reset token. The new hash, the token removal and
// the revocation of every refresh session commit together.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	now := s.now()

	if token == "" {
		return ErrInvalidResetToken
	}

	var row database.PasswordResetToken
	err := s.db.WithContext(ctx).First(&row, "token_hash = ?", utils.HashToken(token)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if !row.ExpiresAt.After(now) {
		return ErrInvalidResetToken
	}

	u, err := s.users.GetUserByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	hash, err := s.hasher.Hash(strings.TrimSpace(newPassword))
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&database.User{}).Where("id = ?", u.ID).Update("password_hash", hash).Error; err != nil {
			return err
		}

		consumed := tx.Delete(&database.PasswordResetToken{}, "id = ?", row.ID)
		if consumed.Error != nil {
			return consumed.Error
		}
		if consumed.RowsAffected != 1 {
			return ErrInvalidResetToken
		}

		if err := tx.Delete(&database.PasswordResetToken{}, "user_id = ?", u.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&database.RefreshToken{}, "user_id = ?", u.ID).Error
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.PasswordReset, u, "")

	return nil
}

// Logout revokes a refresh token. The access token stays valid until it
// expires.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return ErrMissingRefreshToken
	}

	var row database.RefreshToken
	err := s.db.WithContext(ctx).First(&row, "token_hash = ?", utils.HashToken(token)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidRefreshToken
		}
		return err
	}

	deleted := s.db.WithContext(ctx).Delete(&database.RefreshToken{}, "id = ?", row.ID)
	if deleted.Error != nil {
		return deleted.Error
	}
	if deleted.RowsAffected == 0 {
		return ErrInvalidRefreshToken
	}

	s.publish(ctx, events.UserLoggedOut, &database.User{ID: row.UserID}, row.IPAddress)

	return nil
}

// ListSessions returns the unexpired refresh sessions of a user, newest first.
func (s *Service) ListSessions(ctx context.Context, userID uuid.UUID) ([]Session, error) {
	var rows []database.RefreshToken
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, s.now()).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	sessions := make([]Session, len(rows))
	for i, r := range rows {
		sessions[i] = Session{
			ID:        r.ID,
			IPAddress: r.IPAddress,
			UserAgent: r.UserAgent,
			CreatedAt: r.CreatedAt,
			ExpiresAt: r.ExpiresAt,
		}
	}
	return sessions, nil
}

func (s *Service) RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	deleted := s.db.WithContext(ctx).Delete(&database.RefreshToken{}, "id = ? AND user_id = ?", sessionID, userID)
	if deleted.Error != nil {
		return deleted.Error
	}
	if deleted.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *Service) issue(db *gorm.DB, u *database.User, userAgent, ipAddress string, now time.Time) (*AuthResult, error) {
	accessToken, accessExpiresAt, err := s.signer.Sign(u.ID.String(), u.Role)
	if err != nil {
		return nil, err
	}

	raw := utils.GenerateRandomToken()
	row := database.RefreshToken{
		UserID:    u.ID,
		TokenHash: utils.HashToken(raw),
		IPAddress: ipAddress,
		UserAgent: userAgent,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	}
	if err := db.Create(&row).Error; err != nil {
		return nil, err
	}

	return &AuthResult{
		AccessToken:          accessToken,
		AccessTokenExpiresAt: accessExpiresAt,
		RefreshToken:         raw,
		RefreshTokenExpires:  row.ExpiresAt,
		User:                 u,
	}, nil
}

func (s *Service) publish(ctx context.Context, eventType string, u *database.User, ipAddress string) {
	event := events.Event{
		Type:       eventType,
		UserID:     u.ID.String(),
		Email:      u.Email,
		IPAddress:  ipAddress,
		OccurredAt: s.now(),
	}
	if err := s.events.Publish(ctx, event.UserID, event); err != nil {
		log.Warnw("failed to publish event", "type", eventType, "user_id", u.ID, "error", err)
	}
}
