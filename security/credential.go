package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordLength caps submitted credentials. Longer submissions are
// rejected before any hashing.
const MaxPasswordLength = 128

// maxBcryptPasswordLength is the number of password bytes bcrypt hashes.
// Anything beyond it would be ignored by the comparison.
const maxBcryptPasswordLength = 72

// bcryptPrefixes identify a configured secret that is already a bcrypt hash.
var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// Credential is the single shared secret guarding the site.
//
// The zero value is not configured and matches nothing.
type Credential struct {
	secret string
	hashed bool
}

// NewCredential wraps a configured secret. A secret starting with a bcrypt
// prefix is treated as a bcrypt hash of the password.
func NewCredential(secret string) Credential {
	return Credential{
		secret: secret,
		hashed: isBcryptHash(secret),
	}
}

// Configured reports whether a non-empty secret is present.
func (c Credential) Configured() bool {
	return c.secret != ""
}

// Hashed reports whether the secret is a bcrypt hash.
func (c Credential) Hashed() bool {
	return c.hashed
}

// SigningKey returns the secret bytes used to key session signatures.
func (c Credential) SigningKey() string {
	return c.secret
}

// Matches compares password against the secret.
//
// Plain secrets are compared as SHA-256 digests so both operands have equal
// length and the comparison runs in constant time. bcrypt secrets use
// bcrypt.CompareHashAndPassword, whose cost is fixed by the stored hash.
// Submissions longer than 72 bytes never match a bcrypt secret.
func (c Credential) Matches(password string) bool {
	if !c.Configured() {
		return false
	}
	if c.hashed {
		if len(password) > maxBcryptPasswordLength {
			return false
		}
		return bcrypt.CompareHashAndPassword([]byte(c.secret), []byte(password)) == nil
	}

	submitted := sha256.Sum256([]byte(password))
	expected := sha256.Sum256([]byte(c.secret))
	return subtle.ConstantTimeCompare(submitted[:], expected[:]) == 1
}

// ValidPasswordInput reports whether a submitted password is non-empty and
// within MaxPasswordLength. Both failures collapse into the same generic
// rejection so the size limit is not observable.
func ValidPasswordInput(password string) bool {
	return password != "" && len(password) <= MaxPasswordLength
}

// HashPassword returns a bcrypt hash suitable for use as a configured secret.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func isBcryptHash(s string) bool {
	for _, prefix := range bcryptPrefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
