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

// User management errors. Administrative paths name the missing user
// explicitly; the operator is presumed authorized to know.
var (
	ErrUsernameRequired     = errors.New("username is required")
	ErrDisplayNameRequired  = errors.New("display name is required")
	ErrInvalidRole          = errors.New("invalid role: use admin, operator or viewer")
	ErrUsernameTaken        = errors.New("username already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrSamePassword         = errors.New("new password must be different from the current password")
	ErrWrongCurrentPassword = errors.New("current password is incorrect")
)

// UserService handles user management and the password lifecycle
type UserService struct {
	users     CredentialStore
	verifier  *auth.Verifier
	minLength int
	log       *logger.Logger
}

// NewUserService creates a new UserService
func NewUserService(users CredentialStore, verifier *auth.Verifier, minPasswordLength int, log *logger.Logger) *UserService {
	return &UserService{
		users:     users,
		verifier:  verifier,
		minLength: minPasswordLength,
		log:       log.WithComponent("user_service"),
	}
}

// CreateUserRequest contains the data for creating a user
type CreateUserRequest struct {
	Actor           *string
	Username        string
	DisplayName     string
	Email           string
	RoleCode        string
	InitialPassword string
}

// CreateUser creates a new credential record. New accounts start active
// with a forced password change at first login.
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) error {
	username := strings.TrimSpace(req.Username)
	displayName := strings.TrimSpace(req.DisplayName)
	email := strings.TrimSpace(req.Email)
	password := strings.TrimSpace(req.InitialPassword)

	if username == "" {
		return ErrUsernameRequired
	}
	if displayName == "" {
		return ErrDisplayNameRequired
	}
	role, ok := model.ParseRole(req.RoleCode)
	if !ok {
		return ErrInvalidRole
	}
	if err := auth.ValidatePassword(password, s.minLength); err != nil {
		return err
	}

	// Check-then-act uniqueness test; the UNIQUE constraint on the users
	// table backs it up under concurrent writers.
	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return ErrUsernameTaken
	}

	hash, algo, err := s.verifier.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:           username,
		DisplayName:        displayName,
		PasswordHash:       hash,
		PasswordAlgo:       algo,
		Role:               role,
		IsActive:           true,
		MustChangePassword: true,
	}
	if email != "" {
		user.Email = &email
	}

	if err := s.users.Create(ctx, req.Actor, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrUsernameTaken
		}
		return err
	}

	s.log.Info().Str("username", username).Str("role", string(role)).Msg("user created")
	return nil
}

// UpdateUser updates a user's profile fields. Password fields are untouched.
func (s *UserService) UpdateUser(ctx context.Context, actor *string, username, displayName, email, roleCode string, isActive bool) error {
	username = strings.TrimSpace(username)
	displayName = strings.TrimSpace(displayName)
	email = strings.TrimSpace(email)

	if username == "" {
		return ErrUsernameRequired
	}
	if displayName == "" {
		return ErrDisplayNameRequired
	}
	role, ok := model.ParseRole(roleCode)
	if !ok {
		return ErrInvalidRole
	}

	var emailPtr *string
	if email != "" {
		emailPtr = &email
	}

	err := s.users.UpdateProfile(ctx, actor, username, displayName, emailPtr, role, isActive)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	s.log.Info().Str("username", username).Msg("user updated")
	return nil
}

// ChangeOwnPasswordRequest contains the data for a self-service password change
type ChangeOwnPasswordRequest struct {
	Username        string
	CurrentPassword string
	NewPassword     string
}

// ChangeOwnPassword changes the caller's own password. It requires proof of
// the current password and always clears the must-change flag on success.
// Validation order is fixed: required fields, length, new != current,
// existence, current-password verification, write.
func (s *UserService) ChangeOwnPassword(ctx context.Context, req ChangeOwnPasswordRequest) error {
	username := strings.TrimSpace(req.Username)
	currentPassword := strings.TrimSpace(req.CurrentPassword)
	newPassword := strings.TrimSpace(req.NewPassword)

	if username == "" {
		return ErrUsernameRequired
	}
	if err := auth.ValidatePassword(newPassword, s.minLength); err != nil {
		return err
	}
	// Plaintext comparison of the two submitted values
	if newPassword == currentPassword {
		return ErrSamePassword
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !s.verifier.Verify(currentPassword, user.PasswordHash, user.PasswordAlgo) {
		return ErrWrongCurrentPassword
	}

	hash, algo, err := s.verifier.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, username, hash, algo, false); err != nil {
		return err
	}

	s.log.Info().Str("username", username).Msg("password changed")
	return nil
}

// AdminChangePasswordRequest contains the data for an administrative
// password change
type AdminChangePasswordRequest struct {
	TargetUsername string
	NewPassword    string
	// MustChangePassword forces a rotation at the target's next login
	MustChangePassword bool
}

// AdminChangePassword sets a new password for any user without proof of the
// current one. The caller decides whether the target must rotate at next
// login.
func (s *UserService) AdminChangePassword(ctx context.Context, req AdminChangePasswordRequest) error {
	username := strings.TrimSpace(req.TargetUsername)
	newPassword := strings.TrimSpace(req.NewPassword)

	if username == "" {
		return ErrUsernameRequired
	}
	if err := auth.ValidatePassword(newPassword, s.minLength); err != nil {
		return err
	}

	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if !exists {
		return ErrUserNotFound
	}

	hash, algo, err := s.verifier.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, username, hash, algo, req.MustChangePassword); err != nil {
		return err
	}

	s.log.Info().Str("username", username).Bool("must_change", req.MustChangePassword).Msg("password set by administrator")
	return nil
}

// ResetPassword issues a temporary password for a user whose current
// password is unknown. The must-change flag is always forced so the
// temporary password cannot outlive the next login.
func (s *UserService) ResetPassword(ctx context.Context, targetUsername, tempPassword string) error {
	return s.AdminChangePassword(ctx, AdminChangePasswordRequest{
		TargetUsername:     targetUsername,
		NewPassword:        tempPassword,
		MustChangePassword: true,
	})
}

// ListUsers returns credential records for the management view
func (s *UserService) ListUsers(ctx context.Context, limit int) ([]model.User, error) {
	if limit <= 0 {
		limit = 2000
	}
	return s.users.List(ctx, limit)
}
