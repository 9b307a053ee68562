// Package auth implements the optional per-room password gate.
//
// The browser hashes the user's password with SHA-256 client-side and
// sends the hex digest on every protected request; the server never sees
// the plaintext password. What the server stores is the output of a
// slow, configurable-work-factor hash of that digest (bcrypt), so that a
// leaked database does not hand an attacker the SHA-256 digests needed
// to replay requests.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordRequired signals that a room has a password and the caller
// either presented none or presented one that failed verification.
var ErrPasswordRequired = errors.New("password required")

// MinPasswordDigestLength is the minimum accepted length of a password
// digest. A shorter new digest is rejected as a validation error (400)
// when a password is set; a shorter presented digest fails the gate with
// the password-required 401 without reaching the bcrypt comparison.
const MinPasswordDigestLength = 4

// Hash runs the slow hash function over the client-supplied SHA-256
// digest. The work factor is deliberately high; this is the one
// intentionally slow operation in the system (see §5 of the design).
func Hash(digest string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(digest), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(out), nil
}

// Verify compares a presented digest against the stored slow-hash using
// bcrypt's own constant-time comparison. A room with no stored hash
// always verifies (no password set).
func Verify(storedHash, presentedDigest string) bool {
	if storedHash == "" {
		return true
	}
	if presentedDigest == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(presentedDigest))
	return err == nil
}

// ConstantTimeEqual is used where two already-hex-encoded values must be
// compared without a timing oracle (outside the bcrypt path, e.g. future
// token comparisons mentioned as an open extension in the design).
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
