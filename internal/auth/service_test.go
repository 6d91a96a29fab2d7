package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/koru-app/koru/internal/database"
	"github.com/koru-app/koru/internal/models"
	"github.com/koru-app/koru/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUserStore is a map-backed UserStore for tests
type fakeUserStore struct {
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (s *fakeUserStore) CreateUser(_ context.Context, user *models.User) error {
	s.users[user.Email] = user
	return nil
}

func (s *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := s.users[email]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	return user, nil
}

func (s *fakeUserStore) EmailExists(_ context.Context, email string) (bool, error) {
	_, ok := s.users[email]
	return ok, nil
}

// fakeDispatcher records published email jobs
type fakeDispatcher struct {
	jobs []queue.EmailJob
}

func (d *fakeDispatcher) PublishEmail(_ context.Context, job queue.EmailJob) error {
	d.jobs = append(d.jobs, job)
	return nil
}

type serviceFixture struct {
	service    *Service
	users      *fakeUserStore
	dispatcher *fakeDispatcher
}

func newServiceFixture(t *testing.T, signupEnabled bool) *serviceFixture {
	t.Helper()
	users := newFakeUserStore()
	dispatcher := &fakeDispatcher{}
	service := NewService(
		newTestTokenManager(),
		users,
		NewMemoryRevocationStore(),
		NewMemoryPendingSignupStore(),
		dispatcher,
		"https://koru.test",
		signupEnabled,
	)
	return &serviceFixture{service: service, users: users, dispatcher: dispatcher}
}

// confirmationToken extracts the raw email token from the last published
// confirmation link.
func (f *serviceFixture) confirmationToken(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.dispatcher.jobs)
	link := f.dispatcher.jobs[len(f.dispatcher.jobs)-1].Payload.ConfirmationLink
	i := strings.LastIndexByte(link, '/')
	require.Greater(t, i, 0)
	return link[i+1:]
}

func TestRegisterPublishesConfirmationEmail(t *testing.T) {
	f := newServiceFixture(t, true)
	ctx := context.Background()

	err := f.service.Register(ctx, "ada@example.com", "hunter2secret", "Ada Maria", "Lovelace")
	require.NoError(t, err)

	require.Len(t, f.dispatcher.jobs, 1)
	job := f.dispatcher.jobs[0]
	assert.Equal(t, "ada@example.com", job.To)
	assert.Equal(t, "Confirm your email address - Koru App", job.Subject)
	assert.Equal(t, "Ada", job.Payload.Name)
	assert.Equal(t, "signup", job.Payload.Type)
	assert.Equal(t, 24, job.Payload.ExpirationHours)
	assert.True(t, strings.HasPrefix(job.Payload.ConfirmationLink, "https://koru.test/api/auth/confirm-email/"))

	// No database row until the email is confirmed
	assert.Empty(t, f.users.users)
}

func TestRegisterSignupDisabled(t *testing.T) {
	f := newServiceFixture(t, false)

	err := f.service.Register(context.Background(), "ada@example.com", "hunter2secret", "Ada", "Lovelace")
	assert.ErrorIs(t, err, ErrSignupDisabled)
	assert.Empty(t, f.dispatcher.jobs)
}

func TestRegisterDuplicatePending(t *testing.T) {
	f := newServiceFixture(t, true)
	ctx := context.Background()

	require.NoError(t, f.service.Register(ctx, "ada@example.com", "hunter2secret", "Ada", "Lovelace"))

	err := f.service.Register(ctx, "ada@example.com", "othersecret99", "Ada", "Lovelace")
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Len(t, f.dispatcher.jobs, 1)
}

func TestRegisterDuplicateConfirmed(t *testing.T) {
	f := newServiceFixture(t, true)
	ctx := context.Background()

	require.NoError(t, f.service.Register(ctx, "ada@example.com", "hunter2secret", "Ada", "Lovelace"))
	_, _, err := f.service.ConfirmEmail(ctx, f.confirmationToken(t))
	require.NoError(t, err)

	err = f.service.Register(ctx, "ada@example.com", "othersecret99", "Ada", "Lovelace")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestConfirmEmail(t *testing.T) {
	f := newServiceFixture(t, true)
	ctx := context.Background()

	require.NoError(t, f.service.Register(ctx, "ada@example.com", "hunter2secret", "Ada", "Lovelace"))
	token := f.confirmationToken(t)

	user, creds, err := f.service.ConfirmEmail(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, user)
	require.NotNil(t, creds)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEmpty(t, creds.AccessToken.Value)
	assert.NotEmpty(t, creds.RefreshToken.Value)

	stored, ok := f.users.users["ada@example.com"]
	require.True(t, ok)
	assert.True(t, VerifyPassword("hunter2secret", stored.PasswordHash))

	t.Run("token is single use", func(t *testing.T) {
		_, _, err := f.service.ConfirmEmail(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidEmailToken)
		assert.Len(t, f.users.users, 1)
	})
}

func TestConfirmEmailRejectsWrongTokenType(t *testing.T) {
	f := newServiceFixture(t, true)
	tm := f.service.Tokens()

	access, err := tm.CreateToken("user-1", TokenTypeAccess)
	require.NoError(t, err)

	_, _, err = f.service.ConfirmEmail(context.Background(), access.Value)
	assert.ErrorIs(t, err, ErrInvalidEmailToken)
}

func TestLogin(t *testing.T) {
	f := newServiceFixture(t, true)
	ctx := context.Background()

	require.NoError(t, f.service.Register(ctx, "ada@example.com", "hunter2secret", "Ada", "Lovelace"))
	_, _, err := f.service.ConfirmEmail(ctx, f.confirmationToken(t))
	require.NoError(t, err)

	creds, err := f.service.Login(ctx, "ada@example.com", "hunter2secret")
	require.NoError(t, err)
	assert.NotEmpty(t, creds.AccessToken.Value)
	assert.NotEmpty(t, creds.RefreshToken.Value)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newServiceFixture(t, true)
	ctx := context.Background()

	require.NoError(t, f.service.Register(ctx, "ada@example.com", "hunter2secret", "Ada", "Lovelace"))
	_, _, err := f.service.ConfirmEmail(ctx, f.confirmationToken(t))
	require.NoError(t, err)

	_, wrongPassword := f.service.Login(ctx, "ada@example.com", "not-the-password")
	_, unknownEmail := f.service.Login(ctx, "nobody@example.com", "hunter2secret")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
}

// unavailableUserStore fails every lookup, as a down database would
type unavailableUserStore struct {
	err error
}

func (s *unavailableUserStore) CreateUser(context.Context, *models.User) error { return s.err }
func (s *unavailableUserStore) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, s.err
}
func (s *unavailableUserStore) EmailExists(context.Context, string) (bool, error) {
	return false, s.err
}

func TestLoginStoreFailureIsNotInvalidCredentials(t *testing.T) {
	storeErr := errors.New("dial tcp: connection refused")
	service := NewService(
		newTestTokenManager(),
		&unavailableUserStore{err: storeErr},
		NewMemoryRevocationStore(),
		NewMemoryPendingSignupStore(),
		&fakeDispatcher{},
		"https://koru.test",
		true,
	)

	_, err := service.Login(context.Background(), "ada@example.com", "hunter2secret")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, storeErr)
}

func TestRefresh(t *testing.T) {
	f := newServiceFixture(t, true)
	ctx := context.Background()
	tm := f.service.Tokens()

	refresh, err := tm.CreateToken("user-1", TokenTypeRefresh)
	require.NoError(t, err)

	access, err := f.service.Refresh(ctx, refresh.Value)
	require.NoError(t, err)

	claims := tm.DecodeToken(access.Value)
	require.NotNil(t, claims)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newServiceFixture(t, true)

	access, err := f.service.Tokens().CreateToken("user-1", TokenTypeAccess)
	require.NoError(t, err)

	_, err = f.service.Refresh(context.Background(), access.Value)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestLogoutRevokesTokens(t *testing.T) {
	f := newServiceFixture(t, true)
	ctx := context.Background()
	tm := f.service.Tokens()

	access, err := tm.CreateToken("user-1", TokenTypeAccess)
	require.NoError(t, err)
	refresh, err := tm.CreateToken("user-1", TokenTypeRefresh)
	require.NoError(t, err)

	f.service.Logout(ctx, access.Value, refresh.Value)

	_, err = f.service.Refresh(ctx, refresh.Value)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)

	_, err = f.service.VerifyAccess(ctx, access.Value)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)

	t.Run("idempotent", func(t *testing.T) {
		f.service.Logout(ctx, access.Value, refresh.Value)
		_, err := f.service.Refresh(ctx, refresh.Value)
		assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
	})
}

func TestLogoutIgnoresGarbageTokens(t *testing.T) {
	f := newServiceFixture(t, true)

	// Must not panic or surface errors for undecodable input
	f.service.Logout(context.Background(), "not-a-token", "")
}

func TestVerifyAccess(t *testing.T) {
	f := newServiceFixture(t, true)
	ctx := context.Background()
	tm := f.service.Tokens()

	access, err := tm.CreateToken("user-1", TokenTypeAccess)
	require.NoError(t, err)

	claims, err := f.service.VerifyAccess(ctx, access.Value)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)

	t.Run("rejects refresh token", func(t *testing.T) {
		refresh, err := tm.CreateToken("user-1", TokenTypeRefresh)
		require.NoError(t, err)
		_, err = f.service.VerifyAccess(ctx, refresh.Value)
		assert.ErrorIs(t, err, ErrInvalidAccessToken)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := f.service.VerifyAccess(ctx, "garbage")
		assert.ErrorIs(t, err, ErrInvalidAccessToken)
	})
}

func TestDurationsMatchSessionLifetimes(t *testing.T) {
	f := newServiceFixture(t, true)
	tm := f.service.Tokens()

	assert.Equal(t, 15*time.Minute, tm.Duration(TokenTypeAccess))
	assert.Equal(t, 7*24*time.Hour, tm.Duration(TokenTypeRefresh))
	assert.Equal(t, 24*time.Hour, tm.Duration(TokenTypeEmail))
}
