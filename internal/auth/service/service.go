// Package service implements the login flows: provider code exchange, ID-token
// login, refresh rotation, logout and the polling browser session.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/device"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/models"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/oauth"
	identitymodels "github.com/sangcheol-games/sangcheol-odyssey-api/internal/identity/models"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/metrics"
	id "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain"
	audit "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/audit"
	"github.com/sangcheol-games/sangcheol-odyssey-api/pkg/requestcontext"
)

var tracer = otel.Tracer("github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/service")

// Users is the identity context's account API.
type Users interface {
	CreateOrGetSocialUser(ctx context.Context, provider identitymodels.Provider, sub string, claims map[string]any) (*identitymodels.User, bool, error)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	IssueAccessToken(userID id.UserID) (string, error)
	TTL() time.Duration
}

// RefreshTokens issues, rotates and revokes opaque refresh tokens.
type RefreshTokens interface {
	Issue(ctx context.Context, userID id.UserID) (string, error)
	Rotate(ctx context.Context, plaintext string) (id.UserID, error)
	RevokeAll(ctx context.Context, userID id.UserID) error
}

// Sessions persists polling login sessions.
type Sessions interface {
	Create(ctx context.Context, sess *models.AuthSession) error
	Find(ctx context.Context, sessionID string) (*models.AuthSession, error)
	Complete(ctx context.Context, sessionID string, result *models.TokenResponse) error
	Fail(ctx context.Context, sessionID, message string) error
}

// Provider is the external identity provider.
type Provider interface {
	AuthCodeURL(state, nonce, verifier string) (string, error)
	Exchange(ctx context.Context, req oauth.ExchangeRequest) (*models.ProviderToken, error)
	VerifyIDToken(ctx context.Context, raw string) (*models.GoogleClaims, error)
	WebClientID() string
	DefaultClientID() string
	RedirectURI() string
}

// Service composes the provider, the identity context and the token stores.
type Service struct {
	users    Users
	tokens   TokenIssuer
	refresh  RefreshTokens
	sessions Sessions
	provider Provider

	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor audit.Emitter
	devices *device.Service
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditor(a audit.Emitter) Option {
	return func(s *Service) { s.auditor = a }
}

// WithDeviceService enables device fingerprints on audit events.
func WithDeviceService(d *device.Service) Option {
	return func(s *Service) { s.devices = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(users Users, tokens TokenIssuer, refresh RefreshTokens, sessions Sessions, provider Provider, opts ...Option) *Service {
	s := &Service{
		users:    users,
		tokens:   tokens,
		refresh:  refresh,
		sessions: sessions,
		provider: provider,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// logAudit emits action for userID enriched with request metadata. Audit
// failures are logged and never fail the flow.
func (s *Service) logAudit(ctx context.Context, action audit.AuditEvent, userID id.UserID, reason string) {
	if s.auditor == nil {
		return
	}
	userAgent := requestcontext.UserAgent(ctx)
	event := audit.NewEvent(action, userID)
	event.Provider = oauth.ProviderGoogle
	event.Reason = reason
	event.RequestID = requestcontext.RequestID(ctx)
	event.IP = requestcontext.ClientIP(ctx)
	event.Device = device.ParseUserAgent(userAgent)
	event.DeviceFingerprint = s.devices.ComputeFingerprint(userAgent)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", string(action),
			"error", err,
			"request_id", event.RequestID,
		)
	}
}

// authFailure logs and audits a rejected login or refresh.
func (s *Service) authFailure(ctx context.Context, reason string, err error) {
	s.logger.WarnContext(ctx, "authentication failed",
		"reason", reason,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.logAudit(ctx, audit.EventAuthFailed, id.UserID{}, reason)
}
