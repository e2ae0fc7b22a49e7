package service

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/ctlmanager/ctlmanager/internal/model"
)

func newUserService(store *fakeCredentialStore) *UserService {
	return NewUserService(store, testVerifier(), 8, testLogger())
}

func TestCreateUser(t *testing.T) {
	store := newFakeCredentialStore()
	svc := newUserService(store)

	err := svc.CreateUser(context.Background(), CreateUserRequest{
		Username:        "carol",
		DisplayName:     "Carol Ops",
		Email:           "carol@example.com",
		RoleCode:        "Operator",
		InitialPassword: "initial-password",
	})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	u := store.users["carol"]
	if u == nil {
		t.Fatal("user should be stored")
	}
	if !u.IsActive {
		t.Error("new users should default to active")
	}
	if !u.MustChangePassword {
		t.Error("new users should be forced to change their password at first login")
	}
	if u.Role != model.RoleOperator {
		t.Errorf("Role = %q, want operator", u.Role)
	}
	if u.PasswordAlgo != model.HashArgon2id {
		t.Errorf("PasswordAlgo = %q, want argon2id", u.PasswordAlgo)
	}
	if !testVerifier().Verify("initial-password", u.PasswordHash, u.PasswordAlgo) {
		t.Error("stored hash should verify the initial password")
	}
}

func TestCreateUser_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateUserRequest
		wantErr error
	}{
		{
			name:    "missing username",
			req:     CreateUserRequest{DisplayName: "X", RoleCode: "admin", InitialPassword: "abcdefgh"},
			wantErr: ErrUsernameRequired,
		},
		{
			name:    "missing display name",
			req:     CreateUserRequest{Username: "x", RoleCode: "admin", InitialPassword: "abcdefgh"},
			wantErr: ErrDisplayNameRequired,
		},
		{
			name:    "invalid role",
			req:     CreateUserRequest{Username: "x", DisplayName: "X", RoleCode: "superuser", InitialPassword: "abcdefgh"},
			wantErr: ErrInvalidRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeCredentialStore()
			svc := newUserService(store)

			err := svc.CreateUser(context.Background(), tt.req)
			requireErrorIs(t, err, tt.wantErr)
			if store.creates != 0 {
				t.Error("failed validation should not create a user")
			}
		})
	}
}

func TestCreateUser_PasswordLengthBoundary(t *testing.T) {
	store := newFakeCredentialStore()
	svc := newUserService(store)

	err := svc.CreateUser(context.Background(), CreateUserRequest{
		Username: "x", DisplayName: "X", RoleCode: "viewer", InitialPassword: "short1",
	})
	if err == nil {
		t.Error("six-character password should fail validation")
	}
	if store.creates != 0 {
		t.Error("failed validation should not reach persistence")
	}

	err = svc.CreateUser(context.Background(), CreateUserRequest{
		Username: "x", DisplayName: "X", RoleCode: "viewer", InitialPassword: "abcdefgh",
	})
	if err != nil {
		t.Errorf("eight-character password should pass, got %v", err)
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	store := newFakeCredentialStore()
	seedUser(t, store, "carol", "whatever-pass", nil)
	svc := newUserService(store)

	err := svc.CreateUser(context.Background(), CreateUserRequest{
		Username: "carol", DisplayName: "Carol", RoleCode: "viewer", InitialPassword: "abcdefgh",
	})
	requireErrorIs(t, err, ErrUsernameTaken)
}

func TestUpdateUser(t *testing.T) {
	store := newFakeCredentialStore()
	seedUser(t, store, "carol", "whatever-pass", nil)
	svc := newUserService(store)

	err := svc.UpdateUser(context.Background(), nil, "carol", "Carol Renamed", "", "viewer", false)
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}

	u := store.users["carol"]
	if u.DisplayName != "Carol Renamed" || u.Role != model.RoleViewer || u.IsActive {
		t.Errorf("profile not updated: %+v", u)
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	svc := newUserService(newFakeCredentialStore())

	err := svc.UpdateUser(context.Background(), nil, "ghost", "Ghost", "", "viewer", true)
	requireErrorIs(t, err, ErrUserNotFound)
}

func TestChangeOwnPassword(t *testing.T) {
	store := newFakeCredentialStore()
	seedUser(t, store, "alice", "old-password", func(u *model.User) {
		u.MustChangePassword = true
	})
	svc := newUserService(store)

	err := svc.ChangeOwnPassword(context.Background(), ChangeOwnPasswordRequest{
		Username:        "alice",
		CurrentPassword: "old-password",
		NewPassword:     "new-password",
	})
	if err != nil {
		t.Fatalf("ChangeOwnPassword() error = %v", err)
	}

	u := store.users["alice"]
	if u.MustChangePassword {
		t.Error("self-change should always clear the must-change flag")
	}
	if !testVerifier().Verify("new-password", u.PasswordHash, u.PasswordAlgo) {
		t.Error("new password should verify")
	}
	if testVerifier().Verify("old-password", u.PasswordHash, u.PasswordAlgo) {
		t.Error("old password should no longer verify")
	}
}

func TestChangeOwnPassword_RejectsIdenticalPassword(t *testing.T) {
	store := newFakeCredentialStore()
	seedUser(t, store, "alice", "same123!!", nil)
	svc := newUserService(store)

	err := svc.ChangeOwnPassword(context.Background(), ChangeOwnPasswordRequest{
		Username:        "alice",
		CurrentPassword: "same123!!",
		NewPassword:     "same123!!",
	})
	requireErrorIs(t, err, ErrSamePassword)

	if store.passwordWrites != 0 {
		t.Error("rejected change should not mutate the store")
	}
}

func TestChangeOwnPassword_WrongCurrentPassword(t *testing.T) {
	store := newFakeCredentialStore()
	seedUser(t, store, "alice", "old-password", nil)
	svc := newUserService(store)

	err := svc.ChangeOwnPassword(context.Background(), ChangeOwnPasswordRequest{
		Username:        "alice",
		CurrentPassword: "not-the-password",
		NewPassword:     "new-password",
	})
	requireErrorIs(t, err, ErrWrongCurrentPassword)

	if store.passwordWrites != 0 {
		t.Error("rejected change should not mutate the store")
	}
}

func TestChangeOwnPassword_UpgradesLegacyHash(t *testing.T) {
	legacyHash, err := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("generating bcrypt hash: %v", err)
	}

	store := newFakeCredentialStore()
	seedUser(t, store, "bob", "old-password", func(u *model.User) {
		u.PasswordHash = string(legacyHash)
		u.PasswordAlgo = model.HashBcrypt
	})

	svc := newUserService(store)
	err = svc.ChangeOwnPassword(context.Background(), ChangeOwnPasswordRequest{
		Username:        "bob",
		CurrentPassword: "old-password",
		NewPassword:     "brand-new-password",
	})
	if err != nil {
		t.Fatalf("ChangeOwnPassword() error = %v", err)
	}

	u := store.users["bob"]
	if u.PasswordAlgo != model.HashArgon2id {
		t.Errorf("password write should upgrade the algorithm, got %q", u.PasswordAlgo)
	}
}

func TestAdminChangePassword(t *testing.T) {
	store := newFakeCredentialStore()
	seedUser(t, store, "carol", "current-pass", nil)
	svc := newUserService(store)

	err := svc.AdminChangePassword(context.Background(), AdminChangePasswordRequest{
		TargetUsername:     "carol",
		NewPassword:        "admin-set-pass",
		MustChangePassword: true,
	})
	if err != nil {
		t.Fatalf("AdminChangePassword() error = %v", err)
	}

	u := store.users["carol"]
	if !u.MustChangePassword {
		t.Error("caller-supplied must-change flag should be honored")
	}
	if !testVerifier().Verify("admin-set-pass", u.PasswordHash, u.PasswordAlgo) {
		t.Error("new password should verify")
	}
}

func TestAdminChangePassword_TargetMissing(t *testing.T) {
	svc := newUserService(newFakeCredentialStore())

	err := svc.AdminChangePassword(context.Background(), AdminChangePasswordRequest{
		TargetUsername: "ghost",
		NewPassword:    "abcdefgh",
	})
	requireErrorIs(t, err, ErrUserNotFound)
}

func TestAdminChangePassword_TooShort(t *testing.T) {
	store := newFakeCredentialStore()
	seedUser(t, store, "carol", "current-pass", nil)
	svc := newUserService(store)

	err := svc.AdminChangePassword(context.Background(), AdminChangePasswordRequest{
		TargetUsername: "carol",
		NewPassword:    "short1",
	})
	if err == nil {
		t.Error("six-character password should fail validation")
	}
	if store.passwordWrites != 0 {
		t.Error("failed validation should not reach persistence")
	}
}

func TestResetPassword_AlwaysForcesRotation(t *testing.T) {
	store := newFakeCredentialStore()
	seedUser(t, store, "carol", "current-pass", func(u *model.User) {
		u.MustChangePassword = false
	})
	svc := newUserService(store)

	if err := svc.ResetPassword(context.Background(), "carol", "temporary1"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}

	u := store.users["carol"]
	if !u.MustChangePassword {
		t.Error("reset must always force a password change at next login")
	}
	if u.PasswordAlgo != model.HashArgon2id {
		t.Errorf("reset should write the preferred algorithm, got %q", u.PasswordAlgo)
	}
}
