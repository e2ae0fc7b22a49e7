package service

import (
	"context"
	"testing"

	"github.com/ctlmanager/ctlmanager/internal/model"
	"golang.org/x/crypto/bcrypt"
)

func TestLogin_Success(t *testing.T) {
	store := newFakeCredentialStore()
	seedUser(t, store, "alice", "correct-password", nil)
	svc := NewAuthService(store, testVerifier(), testLogger())

	result, err := svc.Login(context.Background(), "alice", "correct-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if result.Username != "alice" {
		t.Errorf("Username = %q, want alice", result.Username)
	}
	if result.RoleCode != "operator" {
		t.Errorf("RoleCode = %q, want operator", result.RoleCode)
	}
	if result.MustChangePassword {
		t.Error("MustChangePassword should be false")
	}
}

func TestLogin_GenericFailureMessage(t *testing.T) {
	store := newFakeCredentialStore()
	seedUser(t, store, "alice", "correct-password", nil)
	svc := NewAuthService(store, testVerifier(), testLogger())

	// Unknown username and wrong password must produce the identical
	// error, so a failure never reveals whether the username exists.
	_, errUnknown := svc.Login(context.Background(), "nobody", "whatever")
	_, errWrongPw := svc.Login(context.Background(), "alice", "wrong-password")

	requireErrorIs(t, errUnknown, ErrInvalidCredentials)
	requireErrorIs(t, errWrongPw, ErrInvalidCredentials)
	if errUnknown.Error() != errWrongPw.Error() {
		t.Errorf("error texts differ: %q vs %q", errUnknown, errWrongPw)
	}
}

func TestLogin_InactiveAccountBlocked(t *testing.T) {
	store := newFakeCredentialStore()
	seedUser(t, store, "alice", "correct-password", func(u *model.User) {
		u.IsActive = false
	})
	svc := NewAuthService(store, testVerifier(), testLogger())

	_, err := svc.Login(context.Background(), "alice", "correct-password")
	requireErrorIs(t, err, ErrAccountInactive)

	// Distinguishable from the generic invalid-credentials message
	if err.Error() == ErrInvalidCredentials.Error() {
		t.Error("inactive error should be distinguishable from invalid credentials")
	}
}

func TestLogin_RotationGate(t *testing.T) {
	store := newFakeCredentialStore()
	seedUser(t, store, "alice", "correct-password", func(u *model.User) {
		u.MustChangePassword = true
	})
	svc := NewAuthService(store, testVerifier(), testLogger())

	result, err := svc.Login(context.Background(), "alice", "correct-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !result.MustChangePassword {
		t.Error("credential with must-change set should always surface the rotation flag")
	}
}

func TestLogin_RoleCodeNormalized(t *testing.T) {
	store := newFakeCredentialStore()
	seedUser(t, store, "alice", "correct-password", func(u *model.User) {
		u.Role = model.Role("ADMIN")
	})
	svc := NewAuthService(store, testVerifier(), testLogger())

	result, err := svc.Login(context.Background(), "alice", "correct-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.RoleCode != "admin" {
		t.Errorf("RoleCode = %q, want lower-cased admin", result.RoleCode)
	}
}

func TestLogin_RehashesLegacyHash(t *testing.T) {
	bcryptHash, err := bcrypt.GenerateFromPassword([]byte("legacy-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt.GenerateFromPassword() error = %v", err)
	}

	store := newFakeCredentialStore()
	seedUser(t, store, "bob", "placeholder", func(u *model.User) {
		u.PasswordHash = string(bcryptHash)
		u.PasswordAlgo = model.HashBcrypt
		u.MustChangePassword = true
	})
	svc := NewAuthService(store, testVerifier(), testLogger())

	result, err := svc.Login(context.Background(), "bob", "legacy-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	stored := store.users["bob"]
	if stored.PasswordAlgo != model.HashArgon2id {
		t.Errorf("stored algorithm = %q, want upgrade to argon2id", stored.PasswordAlgo)
	}
	if !testVerifier().Verify("legacy-password", stored.PasswordHash, stored.PasswordAlgo) {
		t.Error("upgraded hash should verify the same password")
	}
	// Rehash must not touch the rotation flag
	if !stored.MustChangePassword {
		t.Error("rehash-on-read must not clear the must-change flag")
	}
	if !result.MustChangePassword {
		t.Error("result should still carry the rotation flag")
	}
}

func TestLogin_RehashFailureDoesNotFailLogin(t *testing.T) {
	bcryptHash, err := bcrypt.GenerateFromPassword([]byte("legacy-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt.GenerateFromPassword() error = %v", err)
	}

	store := newFakeCredentialStore()
	seedUser(t, store, "bob", "placeholder", func(u *model.User) {
		u.PasswordHash = string(bcryptHash)
		u.PasswordAlgo = model.HashBcrypt
	})
	store.failUpdatePassword = context.DeadlineExceeded

	svc := NewAuthService(store, testVerifier(), testLogger())

	if _, err := svc.Login(context.Background(), "bob", "legacy-password"); err != nil {
		t.Errorf("login should succeed even when the rehash write fails, got %v", err)
	}
}

func TestLogin_NoSideEffectsOnFailure(t *testing.T) {
	store := newFakeCredentialStore()
	seedUser(t, store, "alice", "correct-password", nil)
	svc := NewAuthService(store, testVerifier(), testLogger())

	svc.Login(context.Background(), "alice", "wrong-password")

	if store.passwordWrites != 0 || store.profileWrites != 0 {
		t.Error("failed login should not mutate the store")
	}
}

func TestLogin_UnsetHashNeverVerifies(t *testing.T) {
	store := newFakeCredentialStore()
	seedUser(t, store, "ghost", "placeholder", func(u *model.User) {
		u.PasswordHash = ""
		u.PasswordAlgo = model.HashUnknown
	})
	svc := NewAuthService(store, testVerifier(), testLogger())

	_, err := svc.Login(context.Background(), "ghost", "")
	requireErrorIs(t, err, ErrInvalidCredentials)
}
