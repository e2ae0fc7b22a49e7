package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ctlmanager/ctlmanager/internal/auth"
	"github.com/ctlmanager/ctlmanager/internal/logger"
	"github.com/ctlmanager/ctlmanager/internal/model"
	"github.com/ctlmanager/ctlmanager/internal/repository"
)

// testVerifier uses reduced Argon2id parameters to keep tests fast
func testVerifier() *auth.Verifier {
	return auth.NewVerifier(auth.NewParams(8*1024, 1, 1))
}

func testLogger() *logger.Logger {
	return logger.New("disabled", "console")
}

// fakeCredentialStore is an in-memory CredentialStore
type fakeCredentialStore struct {
	users map[string]*model.User

	// passwordWrites counts UpdatePassword calls, letting tests assert
	// that failed validations perform no store mutation
	passwordWrites int
	profileWrites  int
	creates        int

	failUpdatePassword error
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{users: map[string]*model.User{}}
}

func (f *fakeCredentialStore) add(u *model.User) {
	f.users[u.Username] = u
}

func (f *fakeCredentialStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeCredentialStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, ok := f.users[username]
	return ok, nil
}

func (f *fakeCredentialStore) Create(ctx context.Context, actor *string, user *model.User) error {
	if _, ok := f.users[user.Username]; ok {
		return repository.ErrDuplicate
	}
	f.creates++
	copied := *user
	f.users[user.Username] = &copied
	return nil
}

func (f *fakeCredentialStore) UpdatePassword(ctx context.Context, username, hash string, algo model.HashAlgorithm, mustChange bool) error {
	if f.failUpdatePassword != nil {
		return f.failUpdatePassword
	}
	u, ok := f.users[username]
	if !ok {
		return repository.ErrNotFound
	}
	f.passwordWrites++
	u.PasswordHash = hash
	u.PasswordAlgo = algo
	u.MustChangePassword = mustChange
	return nil
}

func (f *fakeCredentialStore) UpdateProfile(ctx context.Context, actor *string, username, displayName string, email *string, role model.Role, isActive bool) error {
	u, ok := f.users[username]
	if !ok {
		return repository.ErrNotFound
	}
	f.profileWrites++
	u.DisplayName = displayName
	u.Email = email
	u.Role = role
	u.IsActive = isActive
	return nil
}

func (f *fakeCredentialStore) List(ctx context.Context, limit int) ([]model.User, error) {
	var out []model.User
	for _, u := range f.users {
		out = append(out, *u)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// seedUser hashes the password with the test verifier and stores a user
func seedUser(t *testing.T, store *fakeCredentialStore, username, password string, mutate func(*model.User)) {
	t.Helper()

	hash, algo, err := testVerifier().Hash(password)
	if err != nil {
		t.Fatalf("hashing seed password: %v", err)
	}

	u := &model.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: hash,
		PasswordAlgo: algo,
		Role:         model.RoleOperator,
		IsActive:     true,
	}
	if mutate != nil {
		mutate(u)
	}
	store.add(u)
}

// requireErrorIs fails the test unless errors.Is(err, target)
func requireErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}
