package models

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain"
	dErrors "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain-errors"
)

func TestValidateNickname(t *testing.T) {
	valid := map[string]string{
		"two ascii":      "ab",
		"sixteen ascii":  strings.Repeat("a", 16),
		"hangul":         "모험가",
		"sixteen hangul": strings.Repeat("가", 16),
		"kana":           "たろう",
		"cyrillic":       "Игрок",
		"punctuation":    "a_b.c-d",
		"digits":         "player01",
		"two hangul":     "용사",
	}
	for name, input := range valid {
		t.Run("accepts "+name, func(t *testing.T) {
			got, err := ValidateNickname(input)
			require.NoError(t, err)
			assert.Equal(t, input, got)
		})
	}

	invalid := map[string]string{
		"one char":         "a",
		"seventeen ascii":  strings.Repeat("a", 17),
		"space":            "ab cd",
		"bang":             "hey!",
		"empty":            "",
		"only spaces":      "    ",
		"seventeen hangul": strings.Repeat("가", 17),
	}
	for name, input := range invalid {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := ValidateNickname(input)
			assert.True(t, dErrors.Is(err, dErrors.CodeInvalidNickname))
		})
	}

	t.Run("trims before checking", func(t *testing.T) {
		got, err := ValidateNickname("  " + strings.Repeat("b", 16) + "\t")
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("b", 16), got)
	})

	t.Run("normalizes decomposed hangul", func(t *testing.T) {
		decomposed := "\u1100\u1161\u1102\u1161"
		got, err := ValidateNickname(decomposed)
		require.NoError(t, err)
		assert.Equal(t, "가나", got)
	})
}

func TestGenerateUID(t *testing.T) {
	for range 1000 {
		uid, err := GenerateUID()
		require.NoError(t, err)

		assert.GreaterOrEqual(t, len(uid), 9)
		assert.LessOrEqual(t, len(uid), 10)
		n, err := strconv.ParseInt(uid, 10, 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, UIDMin)
		assert.LessOrEqual(t, n, UIDMax)

		_, err = ValidateUID(uid)
		assert.NoError(t, err)
	}
}

func TestValidateUID(t *testing.T) {
	got, err := ValidateUID(" 123456789 ")
	require.NoError(t, err)
	assert.Equal(t, "123456789", got)

	for _, bad := range []string{"", "12345678", "12345678901", "12345678a", "-12345678", "１２３４５６７８９"} {
		_, err := ValidateUID(bad)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidUID), "input %q", bad)
	}
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider("Google")
	require.NoError(t, err)
	assert.Equal(t, ProviderGoogle, p)

	p, err = ParseProvider("steam")
	require.NoError(t, err)
	assert.Equal(t, ProviderSteam, p)

	_, err = ParseProvider("facebook")
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidProvider))
}

func TestNewIdentityLiftsEmail(t *testing.T) {
	claims := map[string]any{"sub": "x", "email": "a@b.com", "email_verified": true}
	ident := NewIdentity(id.NewUserID(), ProviderGoogle, "x", claims, fixedNow)
	assert.Equal(t, "a@b.com", ident.Email)
	assert.True(t, ident.EmailVerified)
	assert.Equal(t, claims, ident.Profile)

	bare := NewIdentity(id.NewUserID(), ProviderSteam, "y", nil, fixedNow)
	assert.Empty(t, bare.Email)
	assert.False(t, bare.EmailVerified)
}

var fixedNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
