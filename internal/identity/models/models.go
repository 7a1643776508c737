// Package models holds the identity context's entities and the validation
// rules for nicknames, numeric uids and provider tags.
package models

import (
	"strings"
	"time"

	id "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain"
	dErrors "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain-errors"
)

// Provider tags an external identity provider.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderSteam  Provider = "steam"
)

func (p Provider) String() string { return string(p) }

// ParseProvider accepts only the known provider tags.
func ParseProvider(raw string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(raw))); p {
	case ProviderGoogle, ProviderSteam:
		return p, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidProvider, "unsupported provider").
			WithDetails(map[string]any{"provider": raw})
	}
}

// User is an internal account. UID and Nickname are empty until assigned.
type User struct {
	ID          id.UserID
	UID         string
	Nickname    string
	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasUID reports whether a numeric uid has been assigned.
func (u *User) HasUID() bool { return u.UID != "" }

// HasNickname reports whether a nickname has been set.
func (u *User) HasNickname() bool { return u.Nickname != "" }

// Identity links an external provider subject to a user.
type Identity struct {
	ID            id.IdentityID
	UserID        id.UserID
	Provider      Provider
	ProviderSub   string
	Email         string
	EmailVerified bool
	// Profile is the provider's raw claim document, kept schema-less.
	Profile   map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewIdentity builds an identity for userID from the provider's claims.
// email and email_verified are lifted out of the claims when present.
func NewIdentity(userID id.UserID, provider Provider, sub string, claims map[string]any, now time.Time) *Identity {
	ident := &Identity{
		ID:          id.NewIdentityID(),
		UserID:      userID,
		Provider:    provider,
		ProviderSub: sub,
		Profile:     claims,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if email, ok := claims["email"].(string); ok {
		ident.Email = email
	}
	if verified, ok := claims["email_verified"].(bool); ok {
		ident.EmailVerified = verified
	}
	return ident
}
