// Package pkce validates RFC 7636 verifiers and mints the polling session
// identifiers. Challenge derivation is left to oauth2.S256ChallengeOption.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"regexp"

	dErrors "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain-errors"
)

const sessionIDLength = 32

var verifierPattern = regexp.MustCompile(`^[A-Za-z0-9\-._~]{43,128}$`)

// ValidateVerifier checks the RFC 7636 shape: 43-128 unreserved characters.
func ValidateVerifier(verifier string) error {
	if !verifierPattern.MatchString(verifier) {
		return dErrors.New(dErrors.CodeInvalidVerifier, "code_verifier must be 43-128 characters of [A-Za-z0-9-._~]")
	}
	return nil
}

// NewSessionID derives an opaque 32-character session id from 32 random bytes.
func NewSessionID() (string, error) {
	raw, err := randomBytes(32)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return base64.RawURLEncoding.EncodeToString(sum[:])[:sessionIDLength], nil
}

// NewNonce returns 16 random bytes, base64url encoded.
func NewNonce() (string, error) {
	raw, err := randomBytes(16)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read random bytes")
	}
	return b, nil
}
