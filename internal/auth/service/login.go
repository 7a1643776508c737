package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/models"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/oauth"
	identitymodels "github.com/sangcheol-games/sangcheol-odyssey-api/internal/identity/models"
	id "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain"
	dErrors "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain-errors"
	audit "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/audit"
	"github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/sentinel"
)

// HandleLogin resolves the account behind verified provider claims and
// issues credentials. The account transaction commits before any token is
// written, so a refresh store failure leaves a valid account without a
// refresh token rather than a token for a rolled-back account.
func (s *Service) HandleLogin(ctx context.Context, claims *models.GoogleClaims) (*models.TokenResponse, error) {
	ctx, span := tracer.Start(ctx, "auth.handle_login")
	defer span.End()

	if claims == nil || strings.TrimSpace(claims.Subject) == "" {
		s.authFailure(ctx, "missing_subject", nil)
		return nil, dErrors.New(dErrors.CodeMissingSubject, "id_token missing sub")
	}

	user, isNew, err := s.users.CreateOrGetSocialUser(ctx, identitymodels.ProviderGoogle, claims.Subject, claims.Profile())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "account resolution failed")
		s.authFailure(ctx, "account_resolution_failed", err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("auth.new_user", isNew))

	resp, err := s.issueTokens(ctx, user.ID, isNew)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.metrics.ObserveLogin(isNew)
	s.logAudit(ctx, audit.EventTokenIssued, user.ID, "")
	s.logger.InfoContext(ctx, "login completed",
		"user_id", user.ID.String(),
		"is_new_user", isNew,
	)
	return resp, nil
}

// HandleRefresh consumes a refresh token and returns a new access token and a
// new refresh token. A token can be consumed once.
func (s *Service) HandleRefresh(ctx context.Context, plaintext string) (*models.TokenResponse, error) {
	ctx, span := tracer.Start(ctx, "auth.handle_refresh")
	defer span.End()

	plaintext = strings.TrimSpace(plaintext)
	if plaintext == "" {
		return nil, dErrors.New(dErrors.CodeMissingToken, "missing refresh_token")
	}

	userID, err := s.refresh.Rotate(ctx, plaintext)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrInvalidState) {
			s.metrics.ObserveRefresh("rejected")
			s.authFailure(ctx, "refresh_token_rejected", err)
			return nil, dErrors.New(dErrors.CodeInvalidRefreshToken, "invalid or used refresh_token")
		}
		s.metrics.ObserveRefresh("error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to rotate refresh token")
	}

	resp, err := s.issueTokens(ctx, userID, false)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.metrics.ObserveRefresh("ok")
	s.logAudit(ctx, audit.EventTokenRefreshed, userID, "")
	return resp, nil
}

// HandleLogout revokes every refresh token of userID. Revoking a user with no
// live tokens succeeds.
func (s *Service) HandleLogout(ctx context.Context, userID id.UserID) error {
	ctx, span := tracer.Start(ctx, "auth.handle_logout")
	defer span.End()

	if userID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "user ID required")
	}
	if err := s.refresh.RevokeAll(ctx, userID); err != nil {
		span.RecordError(err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke refresh tokens")
	}

	s.metrics.IncrementLogouts()
	s.logAudit(ctx, audit.EventSessionsRevoked, userID, "logout")
	return nil
}

// ExchangeCode trades a native client's authorization code and PKCE verifier
// for provider tokens, verifies the returned ID token and logs the user in.
func (s *Service) ExchangeCode(ctx context.Context, code, verifier string) (*models.TokenResponse, error) {
	if strings.TrimSpace(code) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "missing code")
	}
	tok, err := s.provider.Exchange(ctx, oauth.ExchangeRequest{
		Code:         code,
		CodeVerifier: verifier,
		ClientID:     s.provider.DefaultClientID(),
		RedirectURI:  s.provider.RedirectURI(),
	})
	if err != nil {
		s.authFailure(ctx, "exchange_failed", err)
		return nil, err
	}
	if tok.IDToken == "" {
		s.authFailure(ctx, "no_id_token", nil)
		return nil, dErrors.New(dErrors.CodeProviderError, "no id_token from google")
	}
	return s.LoginWithIDToken(ctx, tok.IDToken)
}

// LoginWithIDToken verifies a provider ID token and logs its subject in.
func (s *Service) LoginWithIDToken(ctx context.Context, idToken string) (*models.TokenResponse, error) {
	claims, err := s.provider.VerifyIDToken(ctx, idToken)
	if err != nil {
		s.authFailure(ctx, "id_token_rejected", err)
		return nil, err
	}
	return s.HandleLogin(ctx, claims)
}

func (s *Service) issueTokens(ctx context.Context, userID id.UserID, isNew bool) (*models.TokenResponse, error) {
	access, err := s.tokens.IssueAccessToken(userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}
	refresh, err := s.refresh.Issue(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to issue refresh token",
			"user_id", userID.String(),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue refresh token")
	}
	return &models.TokenResponse{
		AccessToken:  access,
		TokenType:    models.TokenTypeBearer,
		RefreshToken: refresh,
		ExpiresIn:    int(s.tokens.TTL().Seconds()),
		IsNewUser:    isNew,
		UserID:       userID.String(),
	}, nil
}
