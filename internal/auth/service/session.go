package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/models"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/oauth"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/pkce"
	dErrors "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain-errors"
	"github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/sentinel"
)

// Session error messages stored for the polling client.
const (
	sessionErrMissingCode   = "missing_code"
	sessionErrMisconfigured = "SERVER_MISCONFIG"
	sessionErrNoIDToken     = "no_id_token"
	sessionErrNonceMismatch = "nonce_mismatch"
	sessionErrGeneric       = "auth failed"
)

// InitSession starts a polling login for a client-held PKCE verifier and
// returns the provider URL the browser should open.
func (s *Service) InitSession(ctx context.Context, verifier string) (*models.SessionInit, error) {
	ctx, span := tracer.Start(ctx, "auth.init_session")
	defer span.End()

	if err := pkce.ValidateVerifier(verifier); err != nil {
		return nil, err
	}
	sid, err := pkce.NewSessionID()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate session id")
	}
	nonce, err := pkce.NewNonce()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate nonce")
	}

	authURL, err := s.provider.AuthCodeURL(sid, nonce, verifier)
	if err != nil {
		return nil, err
	}

	err = s.sessions.Create(ctx, &models.AuthSession{
		ID:           sid,
		Status:       models.SessionStatusPending,
		CodeVerifier: verifier,
		Nonce:        nonce,
		CreatedAt:    s.now().Unix(),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create auth session")
	}

	s.metrics.ObserveAuthSession(string(models.SessionStatusPending))
	return &models.SessionInit{AuthURL: authURL, SessionID: sid}, nil
}

// PollSession reports the state of a login session. Unknown and expired
// sessions report not_found rather than an error.
func (s *Service) PollSession(ctx context.Context, sessionID string) (*models.PollResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return &models.PollResult{Status: models.SessionStatusNotFound}, nil
	}
	sess, err := s.sessions.Find(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return &models.PollResult{Status: models.SessionStatusNotFound}, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load auth session")
	}

	switch sess.Status {
	case models.SessionStatusReady:
		if sess.Result == nil {
			return &models.PollResult{Status: models.SessionStatusPending}, nil
		}
		return &models.PollResult{Status: models.SessionStatusReady, Result: sess.Result}, nil
	case models.SessionStatusError:
		msg := sess.Error
		if msg == "" {
			msg = sessionErrGeneric
		}
		return &models.PollResult{Status: models.SessionStatusError, Error: msg}, nil
	default:
		return &models.PollResult{Status: models.SessionStatusPending}, nil
	}
}

// HandleCallback completes the browser flow for the session named by the
// callback state. Every failure after the session is found is also written to
// the session so the polling client observes it. The returned error describes
// the same failure to the browser.
func (s *Service) HandleCallback(ctx context.Context, req models.CallbackRequest) error {
	ctx, span := tracer.Start(ctx, "auth.handle_callback")
	defer span.End()

	sid := strings.TrimSpace(req.State)
	if sid == "" {
		return dErrors.New(dErrors.CodeSessionNotFound, "session not found")
	}
	sess, err := s.sessions.Find(ctx, sid)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeSessionNotFound, "session not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load auth session")
	}

	if req.Error != "" {
		return s.failSession(ctx, sid, "google_error:"+req.Error,
			dErrors.New(dErrors.CodeProviderError, "google_error:"+req.Error))
	}
	if strings.TrimSpace(req.Code) == "" {
		return s.failSession(ctx, sid, sessionErrMissingCode,
			dErrors.New(dErrors.CodeBadRequest, "missing code"))
	}
	if s.provider.WebClientID() == "" || s.provider.RedirectURI() == "" {
		return s.failSession(ctx, sid, sessionErrMisconfigured,
			dErrors.New(dErrors.CodeServerMisconfigured, sessionErrMisconfigured))
	}

	tok, err := s.provider.Exchange(ctx, oauth.ExchangeRequest{
		Code:         req.Code,
		CodeVerifier: sess.CodeVerifier,
		ClientID:     s.provider.WebClientID(),
		RedirectURI:  s.provider.RedirectURI(),
	})
	if err != nil {
		return s.failSession(ctx, sid, failureMessage(err), err)
	}
	if tok.IDToken == "" {
		return s.failSession(ctx, sid, sessionErrNoIDToken,
			dErrors.New(dErrors.CodeProviderError, "no id_token from google"))
	}

	claims, err := s.provider.VerifyIDToken(ctx, tok.IDToken)
	if err != nil {
		return s.failSession(ctx, sid, failureMessage(err), err)
	}
	if sess.Nonce != "" && claims.Nonce != sess.Nonce {
		return s.failSession(ctx, sid, sessionErrNonceMismatch,
			dErrors.New(dErrors.CodeInvalidIDToken, "id_token nonce mismatch"))
	}

	result, err := s.HandleLogin(ctx, claims)
	if err != nil {
		return s.failSession(ctx, sid, failureMessage(err), err)
	}
	if err := s.sessions.Complete(ctx, sid, result); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeSessionNotFound, "session not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store auth session result")
	}
	s.metrics.ObserveAuthSession(string(models.SessionStatusReady))
	return nil
}

// failSession records msg on the session and returns cause.
func (s *Service) failSession(ctx context.Context, sid, msg string, cause error) error {
	s.authFailure(ctx, msg, cause)
	if err := s.sessions.Fail(ctx, sid, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to record auth session error",
			"error", err,
			"session_error", msg,
		)
	}
	s.metrics.ObserveAuthSession(string(models.SessionStatusError))
	return cause
}

func failureMessage(err error) string {
	if de, ok := dErrors.As(err); ok && de.Message != "" {
		return de.Message
	}
	return sessionErrGeneric
}
