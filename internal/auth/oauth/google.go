// Package oauth talks to the external identity provider: building the
// authorization URL, exchanging codes, and verifying ID tokens against the
// provider's published keys.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/models"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/config"
	dErrors "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain-errors"
)

var tracer = otel.Tracer("github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/oauth")

// ProviderGoogle is the provider tag for Google identities.
const ProviderGoogle = "google"

const idTokenLeeway = 10 * time.Second

var defaultScopes = []string{"openid", "email", "profile"}

// KeySource yields the provider's current verification keys.
type KeySource interface {
	Get(ctx context.Context) (*KeySet, error)
}

// ExchangeRequest is one authorization-code-for-token exchange.
type ExchangeRequest struct {
	Code         string
	CodeVerifier string
	ClientID     string
	RedirectURI  string
}

// GoogleClient implements the provider side of the login flows.
type GoogleClient struct {
	clientIDs    []string
	webClientID  string
	clientSecret string
	redirectURI  string
	endpoint     oauth2.Endpoint
	issuers      []string
	keys         KeySource
	httpClient   *http.Client
	now          func() time.Time
}

// GoogleOption configures a GoogleClient.
type GoogleOption func(*GoogleClient)

// WithHTTPClient overrides the HTTP client used for the token endpoint.
func WithHTTPClient(client *http.Client) GoogleOption {
	return func(c *GoogleClient) { c.httpClient = client }
}

// WithClock overrides the time source used for exp/iat checks.
func WithClock(now func() time.Time) GoogleOption {
	return func(c *GoogleClient) { c.now = now }
}

func NewGoogleClient(cfg config.GoogleConfig, keys KeySource, opts ...GoogleOption) *GoogleClient {
	webClientID := cfg.WebClientID
	if webClientID == "" && len(cfg.ClientIDs) > 0 {
		webClientID = cfg.ClientIDs[0]
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &GoogleClient{
		clientIDs:    slices.Clone(cfg.ClientIDs),
		webClientID:  webClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthURL,
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		issuers:    slices.Clone(cfg.Issuers),
		keys:       keys,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WebClientID is the client id used by the browser redirect flow.
func (c *GoogleClient) WebClientID() string { return c.webClientID }

// DefaultClientID is the first accepted client id, used by native exchanges.
func (c *GoogleClient) DefaultClientID() string {
	if len(c.clientIDs) == 0 {
		return ""
	}
	return c.clientIDs[0]
}

// RedirectURI is the configured callback URL.
func (c *GoogleClient) RedirectURI() string { return c.redirectURI }

func (c *GoogleClient) oauthConfig(clientID, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: c.clientSecret,
		Endpoint:     c.endpoint,
		RedirectURL:  redirectURI,
		Scopes:       defaultScopes,
	}
}

// AuthCodeURL builds the provider authorization URL for a PKCE S256 flow.
// state carries the polling session id; only the challenge derived from
// verifier leaves the server.
func (c *GoogleClient) AuthCodeURL(state, nonce, verifier string) (string, error) {
	if c.webClientID == "" || c.redirectURI == "" {
		return "", dErrors.New(dErrors.CodeServerMisconfigured, "SERVER_MISCONFIG: google web client id or redirect uri not configured")
	}
	return c.oauthConfig(c.webClientID, c.redirectURI).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.S256ChallengeOption(verifier),
	), nil
}

// Exchange trades an authorization code plus PKCE verifier for provider
// tokens. Any non-success response is exchange_failed; there are no retries.
func (c *GoogleClient) Exchange(ctx context.Context, req ExchangeRequest) (*models.ProviderToken, error) {
	ctx, span := tracer.Start(ctx, "oauth.exchange")
	defer span.End()

	redirectURI := req.RedirectURI
	if redirectURI == "" {
		redirectURI = c.redirectURI
	}
	if req.ClientID == "" || redirectURI == "" {
		return nil, dErrors.New(dErrors.CodeServerMisconfigured, "SERVER_MISCONFIG: google client id or redirect uri not configured")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauthConfig(req.ClientID, redirectURI).Exchange(ctx, req.Code, oauth2.VerifierOption(req.CodeVerifier))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exchange failed")
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			if retrieveErr.Response != nil {
				span.SetAttributes(attribute.Int("http.status_code", retrieveErr.Response.StatusCode))
			}
			return nil, dErrors.Wrap(err, dErrors.CodeExchangeFailed, "google token exchange failed").
				WithDetails(map[string]any{"provider_error": retrieveErr.ErrorCode})
		}
		return nil, dErrors.Wrap(err, dErrors.CodeExchangeFailed, "google token exchange failed")
	}

	out := &models.ProviderToken{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		out.IDToken = idToken
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		out.Scope = scope
	}
	return out, nil
}

// VerifyIDToken checks an ID token's RS256 signature against the provider key
// set, then its issuer, audience, expiry and issued-at.
func (c *GoogleClient) VerifyIDToken(ctx context.Context, raw string) (*models.GoogleClaims, error) {
	ctx, span := tracer.Start(ctx, "oauth.verify_id_token")
	defer span.End()

	if len(c.clientIDs) == 0 {
		return nil, dErrors.New(dErrors.CodeServerMisconfigured, "SERVER_MISCONFIG: GOOGLE_CLIENT_IDS is empty")
	}
	if raw == "" {
		return nil, dErrors.New(dErrors.CodeMissingToken, "missing id_token")
	}

	keys, err := c.keys.Get(ctx)
	if err != nil || keys == nil || keys.Len() == 0 {
		span.SetStatus(codes.Error, "jwks unavailable")
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "JWKS not available")
	}

	claims := &models.GoogleClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithLeeway(idTokenLeeway),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	_, err = parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		return keys.PublicKey(kid)
	})
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidIDToken, "invalid id_token")
	}
	if claims.IssuedAt == nil {
		return nil, dErrors.New(dErrors.CodeInvalidIDToken, "invalid id_token: missing iat")
	}
	if !slices.Contains(c.issuers, claims.Issuer) {
		return nil, dErrors.New(dErrors.CodeInvalidIDToken, fmt.Sprintf("invalid id_token: unexpected issuer %q", claims.Issuer))
	}
	if !c.audienceAllowed(claims.Audience) {
		aud := []string(claims.Audience)
		return nil, dErrors.New(dErrors.CodeInvalidAudience,
			fmt.Sprintf("INVALID_AUDIENCE: token aud=%v, allowed=%v", aud, c.clientIDs),
		).WithDetails(map[string]any{"aud": aud, "allowed": slices.Clone(c.clientIDs)})
	}
	return claims, nil
}

func (c *GoogleClient) audienceAllowed(aud jwt.ClaimStrings) bool {
	for _, a := range aud {
		if slices.Contains(c.clientIDs, a) {
			return true
		}
	}
	return false
}
