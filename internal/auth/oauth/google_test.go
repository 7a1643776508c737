package oauth

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
	"golang.org/x/oauth2"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/oauth/oauthtest"
	dErrors "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain-errors"
)

type GoogleClientSuite struct {
	suite.Suite
	provider *oauthtest.Provider
	client   *GoogleClient
}

func TestGoogleClientSuite(t *testing.T) {
	suite.Run(t, new(GoogleClientSuite))
}

func (s *GoogleClientSuite) SetupTest() {
	s.provider = oauthtest.New(s.T(), "client-web")
	cfg := s.provider.Config()
	s.client = NewGoogleClient(cfg, NewKeyCache(cfg.JWKSURL))
}

func (s *GoogleClientSuite) TestAuthCodeURL() {
	// RFC 7636 appendix B.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	raw, err := s.client.AuthCodeURL("state-1", "nonce-1", verifier)
	s.Require().NoError(err)

	u, err := url.Parse(raw)
	s.Require().NoError(err)
	q := u.Query()
	s.Equal("client-web", q.Get("client_id"))
	s.Equal("code", q.Get("response_type"))
	s.Equal("state-1", q.Get("state"))
	s.Equal("nonce-1", q.Get("nonce"))
	s.Equal("E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", q.Get("code_challenge"))
	s.NotContains(raw, verifier, "the verifier never leaves the server")
	s.Equal("S256", q.Get("code_challenge_method"))
	s.Equal("offline", q.Get("access_type"))
	s.Equal("consent", q.Get("prompt"))
	s.Equal("openid email profile", q.Get("scope"))
	s.Equal(s.client.RedirectURI(), q.Get("redirect_uri"))
}

func (s *GoogleClientSuite) TestAuthCodeURLChallengeIsDeterministic() {
	verifier := strings.Repeat("v", 50)
	first, err := s.client.AuthCodeURL("s", "n", verifier)
	s.Require().NoError(err)
	second, err := s.client.AuthCodeURL("s", "n", verifier)
	s.Require().NoError(err)

	u1, _ := url.Parse(first)
	u2, _ := url.Parse(second)
	challenge := u1.Query().Get("code_challenge")
	s.Equal(challenge, u2.Query().Get("code_challenge"))
	s.Equal(oauth2.S256ChallengeFromVerifier(verifier), challenge)
	s.NotContains(challenge, "=")
}

func (s *GoogleClientSuite) TestAuthCodeURLMisconfigured() {
	cfg := s.provider.Config()
	cfg.RedirectURI = ""
	client := NewGoogleClient(cfg, NewKeyCache(cfg.JWKSURL))

	_, err := client.AuthCodeURL("s", "n", "c")
	s.True(dErrors.Is(err, dErrors.CodeServerMisconfigured))
}

func (s *GoogleClientSuite) TestExchange() {
	idToken := s.provider.SignIDToken(s.T(), s.provider.Claims("sub-1"))
	s.provider.RegisterCode("code-1", idToken)

	tok, err := s.client.Exchange(context.Background(), ExchangeRequest{
		Code:         "code-1",
		CodeVerifier: "verifier-1",
		ClientID:     s.client.WebClientID(),
	})
	s.Require().NoError(err)
	s.Equal(idToken, tok.IDToken)
	s.Equal("provider-access-token", tok.AccessToken)

	form := s.provider.LastTokenForm()
	s.Equal("verifier-1", form.Get("code_verifier"))
	s.Equal("client-web", form.Get("client_id"))
	s.Equal("secret", form.Get("client_secret"))
	s.Equal(s.client.RedirectURI(), form.Get("redirect_uri"))
}

func (s *GoogleClientSuite) TestExchangeRejected() {
	_, err := s.client.Exchange(context.Background(), ExchangeRequest{
		Code:         "unknown",
		CodeVerifier: "verifier-1",
		ClientID:     s.client.WebClientID(),
	})
	s.Require().Error(err)
	de, ok := dErrors.As(err)
	s.Require().True(ok)
	s.Equal(dErrors.CodeExchangeFailed, de.Code)
	s.Equal("invalid_grant", de.Details["provider_error"])
}

func (s *GoogleClientSuite) TestVerifyIDToken() {
	raw := s.provider.SignIDToken(s.T(), s.provider.Claims("sub-1"))

	claims, err := s.client.VerifyIDToken(context.Background(), raw)
	s.Require().NoError(err)
	s.Equal("sub-1", claims.Subject)
	s.Equal("sub-1@example.com", claims.Email)
	s.True(claims.EmailVerified)
}

func (s *GoogleClientSuite) TestVerifyIDTokenAudienceMismatch() {
	claims := s.provider.Claims("sub-1")
	claims["aud"] = "someone-else"
	raw := s.provider.SignIDToken(s.T(), claims)

	_, err := s.client.VerifyIDToken(context.Background(), raw)
	de, ok := dErrors.As(err)
	s.Require().True(ok)
	s.Equal(dErrors.CodeInvalidAudience, de.Code)
	s.Contains(de.Message, "INVALID_AUDIENCE")
	s.Contains(de.Message, "someone-else")
	s.Equal([]string{"someone-else"}, de.Details["aud"])
	s.Equal([]string{"client-web"}, de.Details["allowed"])
}

func (s *GoogleClientSuite) TestVerifyIDTokenRejections() {
	expired := s.provider.Claims("sub-1")
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	expired["iat"] = time.Now().Add(-2 * time.Hour).Unix()

	badIssuer := s.provider.Claims("sub-1")
	badIssuer["iss"] = "https://evil.example"

	noIat := s.provider.Claims("sub-1")
	delete(noIat, "iat")

	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, s.provider.Claims("sub-1"))
	hsRaw, err := hs.SignedString([]byte("shared"))
	s.Require().NoError(err)

	cases := map[string]string{
		"expired":      s.provider.SignIDToken(s.T(), expired),
		"bad issuer":   s.provider.SignIDToken(s.T(), badIssuer),
		"missing iat":  s.provider.SignIDToken(s.T(), noIat),
		"hs256 signed": hsRaw,
		"garbage":      "not.a.jwt",
	}
	for name, raw := range cases {
		s.Run(name, func() {
			_, err := s.client.VerifyIDToken(context.Background(), raw)
			s.True(dErrors.Is(err, dErrors.CodeInvalidIDToken), "got %v", err)
		})
	}
}

func (s *GoogleClientSuite) TestVerifyIDTokenMissingToken() {
	_, err := s.client.VerifyIDToken(context.Background(), "")
	s.True(dErrors.Is(err, dErrors.CodeMissingToken))
}

func (s *GoogleClientSuite) TestVerifyIDTokenWithoutClientIDs() {
	cfg := s.provider.Config()
	cfg.ClientIDs = nil
	client := NewGoogleClient(cfg, NewKeyCache(cfg.JWKSURL))

	raw := s.provider.SignIDToken(s.T(), s.provider.Claims("sub-1"))
	_, err := client.VerifyIDToken(context.Background(), raw)
	de, ok := dErrors.As(err)
	s.Require().True(ok)
	s.Equal(dErrors.CodeServerMisconfigured, de.Code)
	s.Contains(de.Message, "SERVER_MISCONFIG")
}

func (s *GoogleClientSuite) TestVerifyIDTokenKeysUnavailable() {
	s.provider.FailKeys(true)
	raw := s.provider.SignIDToken(s.T(), s.provider.Claims("sub-1"))

	_, err := s.client.VerifyIDToken(context.Background(), raw)
	s.True(dErrors.Is(err, dErrors.CodeUnavailable))
}
