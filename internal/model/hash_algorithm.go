package model

import "strings"

// HashAlgorithm identifies the scheme a stored password hash was produced
// with. It is resolved once, when the credential record is loaded.
type HashAlgorithm string

const (
	// HashArgon2id is the preferred scheme; all new hashes use it.
	HashArgon2id HashAlgorithm = "argon2id"
	// HashBcrypt is the legacy scheme, accepted for verification only.
	HashBcrypt HashAlgorithm = "bcrypt"
	// HashUnknown marks a hash that matches no recognized scheme.
	// Verification against it always fails.
	HashUnknown HashAlgorithm = ""
)

// AlgorithmTags holds the identifiers a deployment stores in its algorithm
// column. A pre-existing table may tag the same schemes with different
// strings; resolution accepts the configured identifiers alongside the
// canonical ones. New hashes always write the canonical preferred tag.
type AlgorithmTags struct {
	Preferred string
	Legacy    string
}

// DefaultAlgorithmTags returns the canonical identifiers
func DefaultAlgorithmTags() AlgorithmTags {
	return AlgorithmTags{Preferred: string(HashArgon2id), Legacy: string(HashBcrypt)}
}

// Resolve maps a stored algorithm tag to a HashAlgorithm. The tag is
// authoritative; when it is missing or unrecognized the stored hash's
// structural prefix decides instead.
func (t AlgorithmTags) Resolve(tag, storedHash string) HashAlgorithm {
	normalized := strings.ToLower(strings.TrimSpace(tag))
	if normalized != "" {
		switch normalized {
		case strings.ToLower(strings.TrimSpace(t.Preferred)), "argon2", "argon2id":
			return HashArgon2id
		case strings.ToLower(strings.TrimSpace(t.Legacy)), "bcrypt":
			return HashBcrypt
		}
	}

	// Tag missing or corrupt: fall back to sniffing the hash itself.
	if strings.HasPrefix(storedHash, "$argon2") {
		return HashArgon2id
	}
	if strings.HasPrefix(storedHash, "$2") {
		return HashBcrypt
	}
	return HashUnknown
}

// ResolveHashAlgorithm resolves a tag using the canonical identifiers
func ResolveHashAlgorithm(tag, storedHash string) HashAlgorithm {
	return DefaultAlgorithmTags().Resolve(tag, storedHash)
}
