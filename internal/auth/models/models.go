// Package models holds the auth context's DTOs and persisted records.
package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeBearer is the token_type returned to clients.
const TokenTypeBearer = "bearer"

// TokenResponse is returned by every flow that yields credentials.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	IsNewUser    bool   `json:"is_new_user"`
	// UserID is not serialized; it lets callers log and audit without
	// re-parsing the access token.
	UserID string `json:"-"`
}

// SessionStatus is the lifecycle state of a polling login session.
type SessionStatus string

const (
	SessionStatusPending  SessionStatus = "pending"
	SessionStatusReady    SessionStatus = "ready"
	SessionStatusError    SessionStatus = "error"
	SessionStatusNotFound SessionStatus = "not_found"
)

// IsTerminal reports whether no further transition is allowed.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusReady || s == SessionStatusError
}

// AuthSession is the record kept in the key-value store while a browser
// login is in flight.
type AuthSession struct {
	ID           string         `json:"-"`
	Status       SessionStatus  `json:"status"`
	CodeVerifier string         `json:"code_verifier"`
	Nonce        string         `json:"nonce"`
	CreatedAt    int64          `json:"created_at"`
	Result       *TokenResponse `json:"result"`
	Error        string         `json:"error"`
}

// SessionInit is returned to the client that started a polling login.
type SessionInit struct {
	AuthURL   string `json:"auth_url"`
	SessionID string `json:"session_id"`
}

// PollResult is the observable state of a session.
type PollResult struct {
	Status SessionStatus
	Result *TokenResponse
	Error  string
}

// RefreshRecord is stored under the hash of a refresh token.
type RefreshRecord struct {
	UserID    string `json:"user_id"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// ProviderToken is the provider's token endpoint response.
type ProviderToken struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	IDToken      string
	Scope        string
	Expiry       time.Time
}

// CallbackRequest carries the provider's redirect query.
type CallbackRequest struct {
	State            string
	Code             string
	Error            string
	ErrorDescription string
}

// GoogleClaims are the verified claims of a provider ID token.
type GoogleClaims struct {
	Email           string `json:"email,omitempty"`
	EmailVerified   bool   `json:"email_verified,omitempty"`
	Name            string `json:"name,omitempty"`
	GivenName       string `json:"given_name,omitempty"`
	FamilyName      string `json:"family_name,omitempty"`
	Picture         string `json:"picture,omitempty"`
	Locale          string `json:"locale,omitempty"`
	Nonce           string `json:"nonce,omitempty"`
	AuthorizedParty string `json:"azp,omitempty"`
	jwt.RegisteredClaims
}

// Profile flattens the claims into the schema-less document stored with an
// identity. Empty values are omitted.
func (c *GoogleClaims) Profile() map[string]any {
	out := map[string]any{"sub": c.Subject}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("iss", c.Issuer)
	set("email", c.Email)
	set("name", c.Name)
	set("given_name", c.GivenName)
	set("family_name", c.FamilyName)
	set("picture", c.Picture)
	set("locale", c.Locale)
	set("azp", c.AuthorizedParty)
	if c.Email != "" {
		out["email_verified"] = c.EmailVerified
	}
	if len(c.Audience) > 0 {
		out["aud"] = []string(c.Audience)
	}
	if c.IssuedAt != nil {
		out["iat"] = c.IssuedAt.Unix()
	}
	if c.ExpiresAt != nil {
		out["exp"] = c.ExpiresAt.Unix()
	}
	return out
}
