// Package service implements account creation, identity linking and
// nickname rules on top of the identity store.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/identity/models"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/identity/store"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/metrics"
	id "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain"
	dErrors "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain-errors"
	audit "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/audit"
	"github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/sentinel"
	"github.com/sangcheol-games/sangcheol-odyssey-api/pkg/requestcontext"
)

// Service owns user and identity invariants. Every mutation runs in one
// transaction through the TxRunner; reads go straight to the store.
type Service struct {
	store   store.Store
	tx      store.TxRunner
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor audit.Emitter
	newUID  func() (string, error)
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

// WithUIDGenerator replaces the random uid source.
func WithUIDGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newUID = gen }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(st store.Store, tx store.TxRunner, opts ...Option) *Service {
	s := &Service{
		store:  st,
		tx:     tx,
		logger: slog.Default(),
		newUID: models.GenerateUID,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateOrGetSocialUser returns the user owning (provider, sub), creating the
// user, its identity and a numeric uid when the pair is unknown.
func (s *Service) CreateOrGetSocialUser(ctx context.Context, provider models.Provider, sub string, claims map[string]any) (*models.User, bool, error) {
	if strings.TrimSpace(sub) == "" {
		return nil, false, dErrors.New(dErrors.CodeMissingSubject, "missing subject")
	}

	var (
		user  *models.User
		isNew bool
	)
	err := s.tx.RunInTx(ctx, func(st store.Store) error {
		now := s.now()
		existing, err := st.FindIdentity(ctx, provider, sub)
		switch {
		case err == nil:
			user, err = st.FindUser(ctx, existing.UserID)
			if err != nil {
				return s.userLookupError(err)
			}
			if err := st.TouchLastLogin(ctx, user.ID, now); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update last login")
			}
			user.LastLoginAt = &now
			user.UpdatedAt = now
			return s.assignUID(ctx, st, user)
		case !errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up identity")
		}

		user = &models.User{ID: id.NewUserID(), LastLoginAt: &now, CreatedAt: now, UpdatedAt: now}
		if err := st.CreateUser(ctx, user); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
		}
		if err := st.CreateIdentity(ctx, models.NewIdentity(user.ID, provider, sub, claims, now)); err != nil {
			return identityInsertError(err)
		}
		if err := s.assignUID(ctx, st, user); err != nil {
			return err
		}
		isNew = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if isNew {
		s.metrics.IncrementUsersCreated()
		s.emit(ctx, audit.EventUserCreated, user.ID, string(provider))
	}
	return user, isNew, nil
}

// assignUID draws random uids until one persists or the attempts run out.
// A user that already has a uid keeps it, including one assigned by a
// concurrent login after user was read.
func (s *Service) assignUID(ctx context.Context, st store.Store, user *models.User) error {
	if user.HasUID() {
		return nil
	}
	for attempt := 1; attempt <= models.UIDMaxAttempts; attempt++ {
		uid, err := s.newUID()
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate uid")
		}
		err = st.AssignUID(ctx, user.ID, uid, s.now())
		if errors.Is(err, store.ErrUIDTaken) {
			s.metrics.IncrementUIDCollisions()
			s.logger.WarnContext(ctx, "uid collision",
				"attempt", attempt,
				"request_id", requestcontext.RequestID(ctx),
			)
			continue
		}
		if errors.Is(err, store.ErrUIDAlreadySet) {
			return s.adoptAssignedUID(ctx, st, user)
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to assign uid")
		}
		user.UID = uid
		return nil
	}
	return dErrors.New(dErrors.CodeUIDCreateFailed, "Failed to create uid.")
}

func (s *Service) adoptAssignedUID(ctx context.Context, st store.Store, user *models.User) error {
	current, err := st.FindUser(ctx, user.ID)
	if err != nil {
		return s.userLookupError(err)
	}
	if !current.HasUID() {
		return dErrors.New(dErrors.CodeInternal, "uid reported as assigned but missing")
	}
	user.UID = current.UID
	return nil
}

// LinkIdentity attaches (provider, sub) to an existing user. A pair owned by
// this user or a provider the user already holds is provider_already_linked;
// a pair owned by another user is identity_conflict.
func (s *Service) LinkIdentity(ctx context.Context, userID id.UserID, provider models.Provider, sub string, claims map[string]any) (*models.Identity, error) {
	if strings.TrimSpace(sub) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "provider_sub is required")
	}

	var ident *models.Identity
	err := s.tx.RunInTx(ctx, func(st store.Store) error {
		user, err := st.FindUser(ctx, userID)
		if err != nil {
			return s.userLookupError(err)
		}

		existing, err := st.FindIdentity(ctx, provider, sub)
		switch {
		case err == nil && existing.UserID == user.ID:
			return dErrors.New(dErrors.CodeProviderAlreadyLinked, "This identity is already linked to the user.")
		case err == nil:
			return dErrors.New(dErrors.CodeIdentityConflict, "This identity is already linked to another user.")
		case !errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up identity")
		}

		linked, err := st.HasProviderIdentity(ctx, user.ID, provider)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up identities")
		}
		if linked {
			return dErrors.New(dErrors.CodeProviderAlreadyLinked, "This provider is already linked to the user.")
		}

		ident = models.NewIdentity(user.ID, provider, sub, claims, s.now())
		if err := st.CreateIdentity(ctx, ident); err != nil {
			return identityInsertError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.EventIdentityLinked, userID, string(provider))
	return ident, nil
}

// UnlinkResult lists the identities an unlink removed.
type UnlinkResult struct {
	Deleted    int
	Identities []*models.Identity
}

// UnlinkIdentity removes every identity of provider held by userID. Removing
// nothing is not an error.
func (s *Service) UnlinkIdentity(ctx context.Context, userID id.UserID, provider models.Provider) (*UnlinkResult, error) {
	var removed []*models.Identity
	err := s.tx.RunInTx(ctx, func(st store.Store) error {
		var err error
		removed, err = st.DeleteIdentities(ctx, userID, provider)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to unlink identity")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		s.emit(ctx, audit.EventIdentityUnlinked, userID, string(provider))
	}
	return &UnlinkResult{Deleted: len(removed), Identities: removed}, nil
}

// UpdateNicknameOnce sets the nickname of a user that has none.
func (s *Service) UpdateNicknameOnce(ctx context.Context, userID id.UserID, nickname string) (*models.User, error) {
	return s.setNickname(ctx, userID, nickname, true)
}

// ChangeNickname overwrites the nickname unconditionally.
func (s *Service) ChangeNickname(ctx context.Context, userID id.UserID, nickname string) (*models.User, error) {
	return s.setNickname(ctx, userID, nickname, false)
}

func (s *Service) setNickname(ctx context.Context, userID id.UserID, nickname string, once bool) (*models.User, error) {
	var user *models.User
	err := s.tx.RunInTx(ctx, func(st store.Store) error {
		var err error
		user, err = st.FindUserForUpdate(ctx, userID)
		if err != nil {
			return s.userLookupError(err)
		}
		if once && user.HasNickname() {
			return dErrors.New(dErrors.CodeNicknameAlreadySet, "Nickname already set")
		}
		nn, err := models.ValidateNickname(nickname)
		if err != nil {
			return err
		}
		now := s.now()
		if err := st.UpdateNickname(ctx, user.ID, nn, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update nickname")
		}
		user.Nickname = nn
		user.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, audit.EventNicknameSet, userID, "")
	return user, nil
}

// GetUser returns the user or nil when absent.
func (s *Service) GetUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.store.FindUser(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// RequireUser returns the user or user_not_found.
func (s *Service) RequireUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return nil, s.userLookupError(err)
	}
	return user, nil
}

// RequireUserByUID validates uid's shape before looking it up.
func (s *Service) RequireUserByUID(ctx context.Context, uid string) (*models.User, error) {
	valid, err := models.ValidateUID(uid)
	if err != nil {
		return nil, err
	}
	user, err := s.store.FindUserByUID(ctx, valid)
	if err != nil {
		return nil, s.userLookupError(err)
	}
	return user, nil
}

// ListUsersByNickname matches the trimmed nickname exactly.
func (s *Service) ListUsersByNickname(ctx context.Context, nickname string) ([]*models.User, error) {
	nn := models.NormalizeNickname(nickname)
	if nn == "" {
		return nil, dErrors.New(dErrors.CodeInvalidNickname, "Invalid nickname: empty nickname.")
	}
	users, err := s.store.ListUsersByNickname(ctx, nn)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

// ListIdentities returns the identities linked to userID.
func (s *Service) ListIdentities(ctx context.Context, userID id.UserID) ([]*models.Identity, error) {
	idents, err := s.store.ListIdentities(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list identities")
	}
	return idents, nil
}

func (s *Service) userLookupError(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeUserNotFound, "User not found.")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
}

// identityInsertError converts a late uniqueness violation, from a concurrent
// linker, into the matching domain conflict.
func identityInsertError(err error) error {
	switch {
	case errors.Is(err, store.ErrIdentityTaken):
		return dErrors.Wrap(err, dErrors.CodeIdentityConflict, "This identity is already linked to another user.")
	case errors.Is(err, store.ErrProviderLinked):
		return dErrors.Wrap(err, dErrors.CodeProviderAlreadyLinked, "This provider is already linked to the user.")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeIdentityConflict, "Failed to link identity due to a conflict.")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create identity")
	}
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, userID id.UserID, provider string) {
	if s.auditor == nil {
		return
	}
	event := audit.NewEvent(action, userID)
	event.Provider = provider
	event.RequestID = requestcontext.RequestID(ctx)
	event.IP = requestcontext.ClientIP(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", string(action),
			"error", err,
			"request_id", event.RequestID,
		)
	}
}
