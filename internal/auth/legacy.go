package auth

import "golang.org/x/crypto/bcrypt"

// VerifyLegacy checks a password against a bcrypt hash. Legacy hashes are
// accepted for verification only; new hashes always use Argon2id.
// Any error, including a malformed hash, is treated as a mismatch.
func VerifyLegacy(password, encodedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
}
