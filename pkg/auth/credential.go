package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// CredentialLength is the exact length of a credential digest.
const CredentialLength = 64

var (
	// ErrBadName is returned for names that cannot be used in a path segment.
	ErrBadName = errors.New("invalid name")
	// ErrBadCredential is returned for credentials that are not a digest.
	ErrBadCredential = errors.New("invalid credential format")
	// ErrCredentialMismatch is returned when a credential does not match.
	ErrCredentialMismatch = errors.New("credential mismatch")
)

// ValidateName rejects names that are empty, begin with a dot, or contain a
// slash, backslash or question mark.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrBadName)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: must not start with '.'", ErrBadName)
	}
	if strings.ContainsAny(name, `/\?`) {
		return fmt.Errorf("%w: must not contain '/', '\\' or '?'", ErrBadName)
	}
	return nil
}

// ValidateCredential accepts exactly 64 uppercase hexadecimal characters.
func ValidateCredential(credential string) error {
	if len(credential) != CredentialLength {
		return fmt.Errorf("%w: want %d characters, got %d", ErrBadCredential, CredentialLength, len(credential))
	}
	for i := 0; i < len(credential); i++ {
		c := credential[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return fmt.Errorf("%w: unexpected character %q", ErrBadCredential, c)
		}
	}
	return nil
}

// DigestPassphrase derives the wire credential for a passphrase: the SHA-256
// digest as uppercase hex.
func DigestPassphrase(passphrase string) string {
	sum := sha256.Sum256([]byte(passphrase))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// Hasher stores credential digests with bcrypt.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher. A cost outside bcrypt's range falls back to
// bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash validates and hashes a credential digest.
func (h *Hasher) Hash(credential string) (string, error) {
	if err := ValidateCredential(credential); err != nil {
		return "", err
	}
	out, err := bcrypt.GenerateFromPassword([]byte(credential), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash credential: %w", err)
	}
	return string(out), nil
}

// Compare checks a credential digest against a stored hash.
func (h *Hasher) Compare(hash, credential string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(credential))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrCredentialMismatch
	}
	return err
}
