package auth

import (
	"testing"

	"github.com/ctlmanager/ctlmanager/internal/model"
	"golang.org/x/crypto/bcrypt"
)

func bcryptHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt.GenerateFromPassword() error = %v", err)
	}
	return string(hash)
}

func TestVerifier_PreferredScheme(t *testing.T) {
	v := NewVerifier(testParams())

	hash, algo, err := v.Hash("secret-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if algo != model.HashArgon2id {
		t.Errorf("Hash() algo = %q, want %q", algo, model.HashArgon2id)
	}

	if !v.Verify("secret-password", hash, model.HashArgon2id) {
		t.Error("correct password should verify through the preferred path")
	}
	if v.Verify("wrong-password", hash, model.HashArgon2id) {
		t.Error("wrong password should not verify")
	}
}

func TestVerifier_LegacyScheme(t *testing.T) {
	v := NewVerifier(testParams())
	hash := bcryptHash(t, "legacy-password")

	if !v.Verify("legacy-password", hash, model.HashBcrypt) {
		t.Error("correct password should verify through the legacy path")
	}
	if v.Verify("wrong-password", hash, model.HashBcrypt) {
		t.Error("wrong password should not verify through the legacy path")
	}
}

func TestVerifier_CrossSchemeDispatch(t *testing.T) {
	v := NewVerifier(testParams())

	argonHash, _, err := v.Hash("some-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	legacyHash := bcryptHash(t, "some-password")

	// An argon2 hash routed through the legacy path must fail, and a
	// bcrypt hash routed through the preferred path must fail.
	if v.Verify("some-password", argonHash, model.HashBcrypt) {
		t.Error("preferred-scheme hash should never verify through the legacy path")
	}
	if v.Verify("some-password", legacyHash, model.HashArgon2id) {
		t.Error("legacy hash should never verify through the preferred path")
	}
}

func TestVerifier_UnknownOrEmptyFails(t *testing.T) {
	v := NewVerifier(testParams())

	tests := []struct {
		name string
		hash string
		algo model.HashAlgorithm
	}{
		{"empty hash", "", model.HashArgon2id},
		{"unknown algorithm", "whatever", model.HashUnknown},
		{"stored plaintext", "secret-password", model.HashUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if v.Verify("secret-password", tt.hash, tt.algo) {
				t.Error("verification should fail unconditionally")
			}
		})
	}
}

func TestVerifier_NeedsRehash(t *testing.T) {
	current := NewParams(64*1024, 3, 4)
	v := NewVerifier(current)

	legacyHash := bcryptHash(t, "password123")
	if !v.NeedsRehash(legacyHash, model.HashBcrypt) {
		t.Error("legacy hash should always need rehash")
	}

	weakHash, err := HashPassword("password123", testParams())
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !v.NeedsRehash(weakHash, model.HashArgon2id) {
		t.Error("weakly-parameterized hash should need rehash")
	}

	currentHash, err := HashPassword("password123", current)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if v.NeedsRehash(currentHash, model.HashArgon2id) {
		t.Error("hash with current parameters should not need rehash")
	}

	if v.NeedsRehash("garbage", model.HashUnknown) {
		t.Error("unknown algorithm should not report needing rehash")
	}
}
