package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/koru-app/koru/internal/database"
	"github.com/koru-app/koru/internal/models"
	"github.com/koru-app/koru/internal/queue"
)

var (
	ErrSignupDisabled      = errors.New("signup is disabled")
	ErrEmailTaken          = errors.New("email already in use")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidEmailToken   = errors.New("invalid email token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenRevoked = errors.New("refresh token has been revoked")
	ErrInvalidAccessToken  = errors.New("invalid access token")
)

// UserStore is the slice of the database layer the auth flow depends on.
// GetUserByEmail reports an unknown email as database.ErrUserNotFound;
// any other error means the lookup itself failed.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// EmailDispatcher publishes confirmation-email jobs for asynchronous
// delivery. Publishing is fire-and-forget; retries belong to the broker.
type EmailDispatcher interface {
	PublishEmail(ctx context.Context, job queue.EmailJob) error
}

// Credentials is the access/refresh token pair minted when a session
// starts or an email is confirmed.
type Credentials struct {
	AccessToken  *Token
	RefreshToken *Token
}

// Service orchestrates the authentication flow: registration, email
// confirmation, password login, refresh and logout.
type Service struct {
	tokens        *TokenManager
	users         UserStore
	revocations   RevocationStore
	pending       PendingSignupStore
	dispatcher    EmailDispatcher
	appURL        string
	signupEnabled bool
}

// NewService creates the auth service
func NewService(tokens *TokenManager, users UserStore, revocations RevocationStore, pending PendingSignupStore, dispatcher EmailDispatcher, appURL string, signupEnabled bool) *Service {
	return &Service{
		tokens:        tokens,
		users:         users,
		revocations:   revocations,
		pending:       pending,
		dispatcher:    dispatcher,
		appURL:        appURL,
		signupEnabled: signupEnabled,
	}
}

// Tokens exposes the token manager for handlers that need cookie lifetimes
func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// Register starts a signup: the user is hashed and parked in the
// pending-signup store under the jti of a fresh email token, and a
// confirmation email is queued. No database row is written until the
// email is confirmed.
func (s *Service) Register(ctx context.Context, email, password, firstName, lastName string) error {
	if !s.signupEnabled {
		return ErrSignupDisabled
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check existing users: %w", err)
	}
	pending, err := s.pending.IsEmailPending(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check pending signups: %w", err)
	}
	if exists || pending {
		return ErrEmailTaken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		CreatedAt:    time.Now(),
	}

	emailToken, err := s.tokens.CreateToken(user.ID, TokenTypeEmail)
	if err != nil {
		return fmt.Errorf("failed to create email token: %w", err)
	}

	emailTTL := s.tokens.Duration(TokenTypeEmail)
	if err := s.pending.Store(ctx, user, emailToken.JTI, email, emailTTL); err != nil {
		return fmt.Errorf("failed to store pending signup: %w", err)
	}

	job := queue.EmailJob{
		To:      email,
		Subject: "Confirm your email address - Koru App",
		Payload: queue.ConfirmEmailPayload{
			Name:             user.GivenName(),
			Type:             "signup",
			ConfirmationLink: fmt.Sprintf("%s/api/auth/confirm-email/%s", s.appURL, emailToken.Value),
			ExpirationHours:  int(emailTTL.Hours()),
		},
	}
	if err := s.dispatcher.PublishEmail(ctx, job); err != nil {
		return fmt.Errorf("failed to publish confirmation email: %w", err)
	}

	return nil
}

// ConfirmEmail consumes a confirmation token, persists the pending user
// durably and mints a session. A reused or expired token fails without
// creating anything.
func (s *Service) ConfirmEmail(ctx context.Context, rawToken string) (*models.User, *Credentials, error) {
	claims := s.tokens.DecodeToken(rawToken)
	if claims == nil || claims.TokenType != TokenTypeEmail {
		return nil, nil, ErrInvalidEmailToken
	}

	user, err := s.pending.Pop(ctx, claims.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to pop pending signup: %w", err)
	}
	if user == nil {
		return nil, nil, ErrInvalidEmailToken
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	creds, err := s.mintSession(user.ID)
	if err != nil {
		return nil, nil, err
	}

	log.Printf("[AUTH] User %s confirmed email", user.ID)
	return user, creds, nil
}

// Login validates credentials and mints a fresh session. An unknown email
// and a wrong password both collapse into ErrInvalidCredentials so callers
// cannot tell them apart; store failures are surfaced as-is.
func (s *Service) Login(ctx context.Context, email, password string) (*Credentials, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.mintSession(user.ID)
}

// Refresh mints a new access token from a valid, unrevoked refresh token.
// The refresh token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (*Token, error) {
	claims := s.tokens.DecodeToken(rawRefresh)
	if claims == nil || claims.TokenType != TokenTypeRefresh {
		return nil, ErrInvalidRefreshToken
	}

	revoked, err := s.revocations.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return nil, ErrRefreshTokenRevoked
	}

	return s.tokens.CreateToken(claims.Subject, TokenTypeAccess)
}

// Logout denylists whichever of the presented tokens decode. Each jti is
// recorded with the nominal configured duration for its type rather than
// the token's remaining lifetime. Logout never fails outwardly and is
// idempotent; store errors are logged and swallowed.
func (s *Service) Logout(ctx context.Context, rawAccess, rawRefresh string) {
	if rawAccess != "" {
		if claims := s.tokens.DecodeToken(rawAccess); claims != nil {
			if err := s.revocations.Blacklist(ctx, claims.ID, s.tokens.Duration(TokenTypeAccess)); err != nil {
				log.Printf("[AUTH] Failed to blacklist access token: %v", err)
			}
		}
	}
	if rawRefresh != "" {
		if claims := s.tokens.DecodeToken(rawRefresh); claims != nil {
			if err := s.revocations.Blacklist(ctx, claims.ID, s.tokens.Duration(TokenTypeRefresh)); err != nil {
				log.Printf("[AUTH] Failed to blacklist refresh token: %v", err)
			}
		}
	}
}

// VerifyAccess validates an access token presented on a protected route,
// including the denylist check, and returns its claims.
func (s *Service) VerifyAccess(ctx context.Context, rawAccess string) (*Claims, error) {
	claims := s.tokens.DecodeToken(rawAccess)
	if claims == nil || claims.TokenType != TokenTypeAccess {
		return nil, ErrInvalidAccessToken
	}

	revoked, err := s.revocations.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return nil, ErrInvalidAccessToken
	}

	return claims, nil
}

// mintSession creates the access/refresh pair for a user
func (s *Service) mintSession(userID string) (*Credentials, error) {
	access, err := s.tokens.CreateToken(userID, TokenTypeAccess)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}
	refresh, err := s.tokens.CreateToken(userID, TokenTypeRefresh)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}
	return &Credentials{AccessToken: access, RefreshToken: refresh}, nil
}
