package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ctlmanager/ctlmanager/internal/auth"
	"github.com/ctlmanager/ctlmanager/internal/logger"
	"github.com/ctlmanager/ctlmanager/internal/model"
	"github.com/ctlmanager/ctlmanager/internal/repository"
)

// Common service errors
var (
	// ErrInvalidCredentials covers both unknown username and wrong
	// password, so a login failure never reveals whether the username
	// exists.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountInactive    = errors.New("account is inactive")
)

// CredentialStore is the persistence surface the services need for
// credential records.
type CredentialStore interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, actor *string, user *model.User) error
	UpdatePassword(ctx context.Context, username, hash string, algo model.HashAlgorithm, mustChange bool) error
	UpdateProfile(ctx context.Context, actor *string, username, displayName string, email *string, role model.Role, isActive bool) error
	List(ctx context.Context, limit int) ([]model.User, error)
}

// AuthResult is the outcome of a successful login attempt. It is produced
// per attempt and never persisted.
type AuthResult struct {
	Username string
	// RoleCode is the normalized (trimmed, lower-cased) role code
	RoleCode string
	// MustChangePassword gates the session: when set, the UI routes to
	// the password-rotation flow before normal use continues.
	MustChangePassword bool
}

// AuthService orchestrates login attempts
type AuthService struct {
	users    CredentialStore
	verifier *auth.Verifier
	log      *logger.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(users CredentialStore, verifier *auth.Verifier, log *logger.Logger) *AuthService {
	return &AuthService{
		users:    users,
		verifier: verifier,
		log:      log.WithComponent("auth_service"),
	}
}

// Login verifies a username/password pair and returns the authenticated
// identity. The flow is: lookup, active check, password verification,
// rotation gate. Failures have no side effects.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if !s.verifier.Verify(password, user.PasswordHash, user.PasswordAlgo) {
		return nil, ErrInvalidCredentials
	}

	// Transparent upgrade of legacy or weakly-parameterized hashes.
	// A failure here must not fail the login.
	s.rehashIfNeeded(ctx, user, password)

	return &AuthResult{
		Username:           user.Username,
		RoleCode:           strings.ToLower(strings.TrimSpace(string(user.Role))),
		MustChangePassword: user.MustChangePassword,
	}, nil
}

// rehashIfNeeded re-hashes a verified password with the preferred scheme
// when the stored hash is legacy or weaker than current parameters. The
// must-change flag is carried through unchanged; only explicit
// password-change operations may alter it.
func (s *AuthService) rehashIfNeeded(ctx context.Context, user *model.User, password string) {
	if !s.verifier.NeedsRehash(user.PasswordHash, user.PasswordAlgo) {
		return
	}

	hash, algo, err := s.verifier.Hash(password)
	if err != nil {
		s.log.Error().Err(err).Str("username", user.Username).Msg("failed to rehash password")
		return
	}

	if err := s.users.UpdatePassword(ctx, user.Username, hash, algo, user.MustChangePassword); err != nil {
		s.log.Error().Err(err).Str("username", user.Username).Msg("failed to persist rehashed password")
		return
	}

	s.log.Info().Str("username", user.Username).Msg("password hash upgraded to preferred algorithm")
}
