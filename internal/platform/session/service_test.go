package session

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"fintrack/internal/apperror"
	"fintrack/internal/config"
	"fintrack/internal/database"
	"fintrack/internal/database/dbtest"
	"fintrack/internal/events"
	"fintrack/internal/mail"
	"fintrack/pkg/utils"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc    *Service
	db     *gorm.DB
	mailer *mail.Recorder
	events *events.Recorder
	clock  *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Env = config.EnvTest
	cfg.BcryptCost = bcrypt.MinCost
	require.NoError(t, cfg.Finalize())

	db := dbtest.Open(t)
	f := &fixture{
		db:     db,
		mailer: &mail.Recorder{},
		events: &events.Recorder{},
		clock:  &testClock{now: time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)},
	}
	f.svc = NewService(db, cfg, f.mailer, f.events)
	f.svc.SetClock(f.clock.Now)

	return f
}

func (f *fixture) register(t *testing.T, name, email, password string) *database.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: password})
	require.NoError(t, err)
	return u
}

func (f *fixture) login(email, password string) (*AuthResult, error) {
	return f.svc.Login(context.Background(), LoginInput{
		Email:     email,
		Password:  password,
		UserAgent: "go-test",
		IPAddress: "127.0.0.1",
	})
}

func (f *fixture) user(t *testing.T, email string) *database.User {
	t.Helper()
	var u database.User
	require.NoError(t, f.db.First(&u, "email = ?", email).Error)
	return &u
}

var resetLink = regexp.MustCompile(`reset-password\?token=([0-9a-f]{128})`)

func (f *fixture) resetTokenFromMail(t *testing.T) string {
	t.Helper()

	var sent []*mail.Email
	require.Eventually(t, func() bool {
		sent = f.mailer.Sent()
		return len(sent) > 0
	}, time.Second, 5*time.Millisecond)

	m := resetLink.FindStringSubmatch(sent[len(sent)-1].Body)
	require.Len(t, m, 2, "mail body carries the reset link")
	return m[1]
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	u := f.register(t, " Jane Doe ", " Jane@X.com ", "Secret123")

	assert.Equal(t, "Jane Doe", u.Name)
	assert.Equal(t, "jane@x.com", u.Email)
	assert.Equal(t, database.RoleUser, u.Role)
	assert.False(t, u.IsEmailVerified)
	assert.Equal(t, "INR", u.PreferredCurrency)
	assert.NotEqual(t, "Secret123", u.PasswordHash)
	assert.True(t, f.svc.hasher.Compare("Secret123", u.PasswordHash))
	assert.Equal(t, []string{events.UserRegistered}, f.events.Types())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Jane Doe", "jane@x.com", "Secret123")

	for _, email := range []string{"jane@x.com", "JANE@X.COM", "  jane@x.com\t"} {
		_, err := f.svc.Register(context.Background(), RegisterInput{Name: "Other", Email: email, Password: "pw"})
		assert.ErrorIs(t, err, ErrEmailTaken, email)
		assert.Equal(t, apperror.Conflict, apperror.KindOf(err))
	}

	var count int64
	require.NoError(t, f.db.Model(&database.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, []string{events.UserRegistered}, f.events.Types())
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.login("ghost@x.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, apperror.Unauthorized, apperror.KindOf(err))
}

func TestLoginSuccess(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "Jane Doe", "jane@x.com", "Secret123")

	res, err := f.login(" JANE@x.com", " Secret123 ")
	require.NoError(t, err)

	assert.Len(t, res.RefreshToken, 128)
	assert.Equal(t, f.clock.Now().Add(15*time.Minute), res.AccessTokenExpiresAt)
	assert.Equal(t, f.clock.Now().Add(7*24*time.Hour), res.RefreshTokenExpires)

	claims, err := f.svc.Signer().Verify(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), claims.Subject)
	assert.Equal(t, database.RoleUser, claims.Role)

	var row database.RefreshToken
	require.NoError(t, f.db.First(&row, "token_hash = ?", utils.HashToken(res.RefreshToken)).Error)
	assert.Equal(t, u.ID, row.UserID)
	assert.Equal(t, "go-test", row.UserAgent)
	assert.Equal(t, "127.0.0.1", row.IPAddress)

	stored := f.user(t, "jane@x.com")
	require.NotNil(t, stored.LastLoginAt)
	assert.True(t, stored.LastLoginAt.Equal(f.clock.Now()))
	assert.Contains(t, f.events.Types(), events.UserLoggedIn)
}

func TestLockoutScenario(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Jane Doe", "jane@x.com", "Secret123")

	for i := 1; i <= 3; i++ {
		_, err := f.login("jane@x.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials, "attempt %d", i)
	}

	locked := f.user(t, "jane@x.com")
	assert.Equal(t, 3, locked.LoginAttempts)
	require.NotNil(t, locked.LockUntil)
	assert.True(t, locked.LockUntil.Equal(f.clock.Now().Add(10*time.Minute)))
	assert.Contains(t, f.events.Types(), events.UserLocked)

	_, err := f.login("jane@x.com", "Secret123")
	require.ErrorIs(t, err, ErrAccountLocked)
	assert.Equal(t, "Account is locked. Try again in 10 minute(s)", err.(*apperror.Error).Message)
	assert.Equal(t, apperror.Unauthorized, apperror.KindOf(err))

	_, err = f.login("jane@x.com", "wrong")
	require.ErrorIs(t, err, ErrAccountLocked)
	assert.Equal(t, 3, f.user(t, "jane@x.com").LoginAttempts, "locked attempts are not counted")

	f.clock.Advance(10*time.Minute + time.Second)

	res, err := f.login("jane@x.com", "Secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Zero(t, res.User.LoginAttempts)
	assert.Nil(t, res.User.LockUntil)

	stored := f.user(t, "jane@x.com")
	assert.Zero(t, stored.LoginAttempts)
	assert.Nil(t, stored.LockUntil)
}

func TestLockMessageRoundsUp(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Jane Doe", "jane@x.com", "Secret123")

	for i := 0; i < 3; i++ {
		_, _ = f.login("jane@x.com", "wrong")
	}

	testCases := []struct {
		elapsed time.Duration
		message string
	}{
		{4*time.Minute + 30*time.Second, "Account is locked. Try again in 6 minute(s)"},
		{5 * time.Minute, "Account is locked. Try again in 1 minute(s)"},
		{29 * time.Second, "Account is locked. Try again in 1 minute(s)"},
	}

	for _, tc := range testCases {
		f.clock.Advance(tc.elapsed)
		_, err := f.login("jane@x.com", "Secret123")

		var appErr *apperror.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, tc.message, appErr.Message)
	}
}

func TestFailureAfterExpiredLockRelocks(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Jane Doe", "jane@x.com", "Secret123")

	for i := 0; i < 3; i++ {
		_, _ = f.login("jane@x.com", "wrong")
	}
	f.clock.Advance(11 * time.Minute)

	_, err := f.login("jane@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	u := f.user(t, "jane@x.com")
	assert.Equal(t, 4, u.LoginAttempts)
	require.NotNil(t, u.LockUntil)
	assert.True(t, u.LockUntil.Equal(f.clock.Now().Add(10*time.Minute)))
}

func TestSuccessfulLoginResetsPartialFailures(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Jane Doe", "jane@x.com", "Secret123")

	for i := 0; i < 2; i++ {
		_, _ = f.login("jane@x.com", "wrong")
	}
	assert.Equal(t, 2, f.user(t, "jane@x.com").LoginAttempts)

	_, err := f.login("jane@x.com", "Secret123")
	require.NoError(t, err)
	assert.Zero(t, f.user(t, "jane@x.com").LoginAttempts)
}

func TestConcurrentFailedLoginsAreAllCounted(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Jane Doe", "jane@x.com", "Secret123")

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.login("jane@x.com", "wrong")
			assert.Error(t, err)
		}()
	}
	wg.Wait()

	u := f.user(t, "jane@x.com")
	assert.GreaterOrEqual(t, u.LoginAttempts, 3)
	assert.NotNil(t, u.LockUntil)
}

func TestRefreshRotationScenario(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Jane Doe", "jane@x.com", "Secret123")
	ctx := context.Background()

	first, err := f.login("jane@x.com", "Secret123")
	require.NoError(t, err)
	r1 := first.RefreshToken

	second, err := f.svc.Refresh(ctx, RefreshInput{RefreshToken: r1, UserAgent: "ua-2", IPAddress: "10.0.0.2"})
	require.NoError(t, err)
	r2 := second.RefreshToken
	assert.NotEqual(t, r1, r2)
	assert.NotEmpty(t, second.AccessToken)
	assert.Equal(t, "jane@x.com", second.User.Email)

	_, err = f.svc.Refresh(ctx, RefreshInput{RefreshToken: r1})
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	third, err := f.svc.Refresh(ctx, RefreshInput{RefreshToken: r2})
	require.NoError(t, err)
	assert.NotEqual(t, r2, third.RefreshToken)

	var count int64
	require.NoError(t, f.db.Model(&database.RefreshToken{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRefreshConcurrentReplaySucceedsOnce(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Jane Doe", "jane@x.com", "Secret123")

	res, err := f.login("jane@x.com", "Secret123")
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Refresh(context.Background(), RefreshInput{RefreshToken: res.RefreshToken})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrInvalidRefreshToken)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestRefreshRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "Jane Doe", "jane@x.com", "Secret123")

	_, err := f.svc.Refresh(ctx, RefreshInput{})
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = f.svc.Refresh(ctx, RefreshInput{RefreshToken: "unknown"})
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	t.Run("expired", func(t *testing.T) {
		res, err := f.login("jane@x.com", "Secret123")
		require.NoError(t, err)

		f.clock.Advance(7*24*time.Hour + time.Second)
		_, err = f.svc.Refresh(ctx, RefreshInput{RefreshToken: res.RefreshToken})
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})

	t.Run("owner gone", func(t *testing.T) {
		res, err := f.login("jane@x.com", "Secret123")
		require.NoError(t, err)
		require.NoError(t, f.db.Delete(&database.User{}, "id = ?", u.ID).Error)

		_, err = f.svc.Refresh(ctx, RefreshInput{RefreshToken: res.RefreshToken})
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.Equal(t, apperror.Unauthorized, apperror.KindOf(err))

		var count int64
		require.NoError(t, f.db.Model(&database.RefreshToken{}).
			Where("token_hash = ?", utils.HashToken(res.RefreshToken)).Count(&count).Error)
		assert.Zero(t, count, "presented token is consumed")
	})
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outcome, err := f.svc.requestReset(ctx, "ghost@x.com", nil)
	require.NoError(t, err)
	assert.Equal(t, resetSilentNoOp, outcome)

	assert.NoError(t, f.svc.ForgotPassword(ctx, "ghost@x.com"))

	var count int64
	require.NoError(t, f.db.Model(&database.PasswordResetToken{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Never(t, func() bool { return len(f.mailer.Sent()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Empty(t, f.events.Types())
}

func TestForgotPasswordSendsResetLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "Jane Doe", "jane@x.com", "Secret123")

	outcome, err := f.svc.requestReset(ctx, " JANE@x.com ", []string{"hi"})
	require.NoError(t, err)
	assert.Equal(t, resetSent, outcome)

	token := f.resetTokenFromMail(t)
	sent := f.mailer.Sent()
	assert.Equal(t, []string{"jane@x.com"}, sent[0].To)
	assert.Contains(t, sent[0].Body, "नमस्ते")
	assert.Contains(t, sent[0].Body, "http://localhost:5173/reset-password?token="+token)

	var row database.PasswordResetToken
	require.NoError(t, f.db.First(&row, "token_hash = ?", utils.HashToken(token)).Error)
	assert.Equal(t, u.ID, row.UserID)
	assert.True(t, row.ExpiresAt.Equal(f.clock.Now().Add(time.Hour)))
	assert.Eventually(t, func() bool {
		return len(f.events.Types()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, f.events.Types(), events.PasswordResetRequested)
}

type slowPublisher struct {
	events.Recorder
	delay time.Duration
}

func (p *slowPublisher) Publish(ctx context.Context, key string, event events.Event) error {
	time.Sleep(p.delay)
	return p.Recorder.Publish(ctx, key, event)
}

func TestForgotPasswordTimingIndependentOfAccount(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Jane Doe", "jane@x.com", "Secret123")

	publisher := &slowPublisher{delay: 300 * time.Millisecond}
	f.svc.events = publisher
	ctx := context.Background()

	elapsed := func(email string) time.Duration {
		start := time.Now()
		require.NoError(t, f.svc.ForgotPassword(ctx, email))
		return time.Since(start)
	}

	unknown := elapsed("ghost@x.com")
	known := elapsed("jane@x.com")

	assert.Less(t, unknown, 150*time.Millisecond)
	assert.Less(t, known, 150*time.Millisecond, "event publishing stays off the request path")

	require.Eventually(t, func() bool {
		return len(publisher.Types()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{events.PasswordResetRequested}, publisher.Types())
	f.resetTokenFromMail(t)
}

func TestForgotPasswordMailFailureIsNotReported(t *testing.T) {
	f := newFixture(t)
	f.mailer.Err = errors.New("smtp down")
	f.register(t, "Jane Doe", "jane@x.com", "Secret123")

	assert.NoError(t, f.svc.ForgotPassword(context.Background(), "jane@x.com"))
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "Jane Doe", "jane@x.com", "Secret123")

	session, err := f.login("jane@x.com", "Secret123")
	require.NoError(t, err)

	require.NoError(t, f.svc.ForgotPassword(ctx, "jane@x.com"))
	token := f.resetTokenFromMail(t)

	require.NoError(t, f.svc.ResetPassword(ctx, token, "NewSecret456"))
	assert.Contains(t, f.events.Types(), events.PasswordReset)

	_, err = f.login("jane@x.com", "Secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.login("jane@x.com", "NewSecret456")
	assert.NoError(t, err)

	_, err = f.svc.Refresh(ctx, RefreshInput{RefreshToken: session.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "reset revokes existing sessions")

	err = f.svc.ResetPassword(ctx, token, "Another789")
	assert.ErrorIs(t, err, ErrInvalidResetToken, "reset tokens are single use")
}

func TestResetPasswordExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "Jane Doe", "jane@x.com", "Secret123")

	require.NoError(t, f.svc.ForgotPassword(ctx, "jane@x.com"))
	token := f.resetTokenFromMail(t)

	f.clock.Advance(time.Hour)

	err := f.svc.ResetPassword(ctx, token, "NewSecret456")
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	var count int64
	require.NoError(t, f.db.Model(&database.PasswordResetToken{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "row still present, only the timestamp rejects it")
}

func TestResetPasswordRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "Jane Doe", "jane@x.com", "Secret123")

	assert.ErrorIs(t, f.svc.ResetPassword(ctx, "", "pw"), ErrInvalidResetToken)
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, "bogus", "pw"), ErrInvalidResetToken)

	require.NoError(t, f.svc.ForgotPassword(ctx, "jane@x.com"))
	token := f.resetTokenFromMail(t)
	require.NoError(t, f.db.Delete(&database.User{}, "id = ?", u.ID).Error)

	assert.ErrorIs(t, f.svc.ResetPassword(ctx, token, "pw"), ErrUserNotFound)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "Jane Doe", "jane@x.com", "Secret123")

	assert.ErrorIs(t, f.svc.Logout(ctx, ""), ErrMissingRefreshToken)
	assert.ErrorIs(t, f.svc.Logout(ctx, "unknown"), ErrInvalidRefreshToken)

	res, err := f.login("jane@x.com", "Secret123")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, res.RefreshToken))
	assert.Contains(t, f.events.Types(), events.UserLoggedOut)

	assert.ErrorIs(t, f.svc.Logout(ctx, res.RefreshToken), ErrInvalidRefreshToken)

	_, err = f.svc.Refresh(ctx, RefreshInput{RefreshToken: res.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = f.svc.Signer().Verify(res.AccessToken)
	assert.NoError(t, err, "access tokens outlive logout")
}

func TestSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jane := f.register(t, "Jane Doe", "jane@x.com", "Secret123")
	john := f.register(t, "John Doe", "john@x.com", "Secret123")

	first, err := f.login("jane@x.com", "Secret123")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.login("jane@x.com", "Secret123")
	require.NoError(t, err)
	_, err = f.login("john@x.com", "Secret123")
	require.NoError(t, err)

	sessions, err := f.svc.ListSessions(ctx, jane.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "go-test", sessions[0].UserAgent)

	var firstRow database.RefreshToken
	require.NoError(t, f.db.First(&firstRow, "token_hash = ?", utils.HashToken(first.RefreshToken)).Error)

	err = f.svc.RevokeSession(ctx, john.ID, firstRow.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, f.svc.RevokeSession(ctx, jane.ID, firstRow.ID))

	sessions, err = f.svc.ListSessions(ctx, jane.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	_, err = f.svc.Refresh(ctx, RefreshInput{RefreshToken: first.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}
