package auth

import (
	"github.com/ctlmanager/ctlmanager/internal/model"
)

// Verifier dispatches password verification by the credential's resolved
// hash algorithm and produces new hashes with the preferred scheme.
type Verifier struct {
	params *Argon2Params
}

// NewVerifier creates a Verifier using the given Argon2id parameters for
// new hashes and rehash decisions.
func NewVerifier(params *Argon2Params) *Verifier {
	if params == nil {
		params = DefaultParams()
	}
	return &Verifier{params: params}
}

// Verify checks a candidate password against a stored hash under the given
// algorithm. An empty hash or an unrecognized algorithm never verifies.
// Structural errors in the stored hash are verification failures, not
// fatal errors.
func (v *Verifier) Verify(password, storedHash string, algo model.HashAlgorithm) bool {
	if storedHash == "" {
		return false
	}

	switch algo {
	case model.HashArgon2id:
		ok, err := VerifyPassword(password, storedHash)
		if err != nil {
			return false
		}
		return ok
	case model.HashBcrypt:
		return VerifyLegacy(password, storedHash)
	default:
		return false
	}
}

// Hash produces a new hash of the password using the preferred scheme and
// returns it with its algorithm tag.
func (v *Verifier) Hash(password string) (string, model.HashAlgorithm, error) {
	hash, err := HashPassword(password, v.params)
	if err != nil {
		return "", model.HashUnknown, err
	}
	return hash, model.HashArgon2id, nil
}

// NeedsRehash reports whether a successfully verified credential should be
// transparently re-hashed: either it still uses the legacy scheme, or its
// Argon2id parameters are weaker than current.
func (v *Verifier) NeedsRehash(storedHash string, algo model.HashAlgorithm) bool {
	switch algo {
	case model.HashBcrypt:
		return true
	case model.HashArgon2id:
		return NeedsRehash(storedHash, v.params)
	default:
		return false
	}
}
