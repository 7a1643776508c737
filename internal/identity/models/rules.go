package models

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	dErrors "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain-errors"
)

const (
	UIDMin int64 = 100_000_000
	UIDMax int64 = 9_999_999_999
	// UIDMaxAttempts bounds uid allocation retries on collision.
	UIDMaxAttempts = 10
)

// nicknamePattern admits letters and marks of any script, digits, and _ . -
var nicknamePattern = regexp.MustCompile(`^[\p{L}\p{M}\p{N}_.\-]{2,16}$`)

// NormalizeNickname trims and NFC-normalizes raw.
func NormalizeNickname(raw string) string {
	return norm.NFC.String(strings.TrimSpace(raw))
}

// ValidateNickname returns the normalized nickname or invalid_nickname.
func ValidateNickname(raw string) (string, error) {
	nn := NormalizeNickname(raw)
	if !nicknamePattern.MatchString(nn) {
		return "", dErrors.New(dErrors.CodeInvalidNickname, "Invalid nickname")
	}
	return nn, nil
}

// GenerateUID draws a uniformly random uid in [UIDMin, UIDMax].
func GenerateUID() (string, error) {
	span := big.NewInt(UIDMax - UIDMin + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(UIDMin+n.Int64(), 10), nil
}

// ValidateUID trims raw and requires 9 or 10 ASCII digits.
func ValidateUID(raw string) (string, error) {
	uid := strings.TrimSpace(raw)
	if len(uid) < 9 || len(uid) > 10 {
		return "", dErrors.New(dErrors.CodeInvalidUID, "Invalid uid.")
	}
	for _, r := range uid {
		if r < '0' || r > '9' {
			return "", dErrors.New(dErrors.CodeInvalidUID, "Invalid uid.")
		}
	}
	return uid, nil
}
