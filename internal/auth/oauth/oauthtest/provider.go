// Package oauthtest runs an in-process identity provider for tests: a token
// endpoint, a JWKS endpoint and an RSA key to sign ID tokens with.
package oauthtest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/config"
)

const (
	Issuer = "https://accounts.google.com"
	KeyID  = "test-key-1"
)

// Provider is a fake OAuth/OIDC provider backed by httptest.
type Provider struct {
	Server   *httptest.Server
	Key      *rsa.PrivateKey
	ClientID string

	mu          sync.Mutex
	codes       map[string]string
	lastForm    url.Values
	keysFetched atomic.Int32
	failKeys    atomic.Bool
}

// New starts a provider; it is closed with the test.
func New(t testing.TB, clientID string) *Provider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	p := &Provider{Key: key, ClientID: clientID, codes: map[string]string{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /certs", p.serveKeys)
	mux.HandleFunc("POST /token", p.serveToken)
	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Server.Close)
	return p
}

// Config returns a GoogleConfig pointing at this provider.
func (p *Provider) Config() config.GoogleConfig {
	return config.GoogleConfig{
		ClientIDs:    []string{p.ClientID},
		WebClientID:  p.ClientID,
		ClientSecret: "secret",
		RedirectURI:  "https://api.example.test/v1/auth/google/callback",
		AuthURL:      p.Server.URL + "/auth",
		TokenURL:     p.Server.URL + "/token",
		JWKSURL:      p.Server.URL + "/certs",
		Issuers:      []string{Issuer, "accounts.google.com"},
		JWKSCacheTTL: time.Hour,
		HTTPTimeout:  5 * time.Second,
	}
}

// Claims returns a valid claim set for sub, issued now.
func (p *Provider) Claims(sub string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":            Issuer,
		"aud":            p.ClientID,
		"sub":            sub,
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
		"email":          sub + "@example.com",
		"email_verified": true,
		"name":           "Test " + sub,
	}
}

// SignIDToken signs claims with the provider key (RS256).
func (p *Provider) SignIDToken(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = KeyID
	signed, err := token.SignedString(p.Key)
	if err != nil {
		t.Fatalf("sign id token: %v", err)
	}
	return signed
}

// RegisterCode makes the token endpoint answer code with idToken.
func (p *Provider) RegisterCode(code, idToken string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.codes[code] = idToken
}

// LastTokenForm is the most recent form posted to the token endpoint.
func (p *Provider) LastTokenForm() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastForm
}

// KeyFetches counts JWKS requests served.
func (p *Provider) KeyFetches() int { return int(p.keysFetched.Load()) }

// FailKeys makes the JWKS endpoint return 500.
func (p *Provider) FailKeys(fail bool) { p.failKeys.Store(fail) }

func (p *Provider) serveKeys(w http.ResponseWriter, _ *http.Request) {
	p.keysFetched.Add(1)
	if p.failKeys.Load() {
		http.Error(w, "unavailable", http.StatusInternalServerError)
		return
	}
	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &p.Key.PublicKey,
		KeyID:     KeyID,
		Algorithm: "RS256",
		Use:       "sig",
	}}}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(set)
}

func (p *Provider) serveToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	p.mu.Lock()
	p.lastForm = r.PostForm
	idToken, ok := p.codes[r.PostForm.Get("code")]
	delete(p.codes, r.PostForm.Get("code"))
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok || r.PostForm.Get("grant_type") != "authorization_code" || r.PostForm.Get("code_verifier") == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		return
	}
	resp := map[string]any{
		"access_token": "provider-access-token",
		"token_type":   "Bearer",
		"expires_in":   3599,
		"scope":        "openid email profile",
	}
	if idToken != "" {
		resp["id_token"] = idToken
	}
	_ = json.NewEncoder(w).Encode(resp)
}
