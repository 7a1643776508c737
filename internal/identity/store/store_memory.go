package store

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/identity/models"
	id "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain"
	dErrors "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain-errors"
	"github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/sentinel"
	"github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/tx"
)

// MemoryStore keeps users and identities in process memory.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[id.UserID]models.User
	identities map[id.IdentityID]models.Identity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[id.UserID]models.User),
		identities: make(map[id.IdentityID]models.Identity),
	}
}

type memorySnapshot struct {
	users      map[id.UserID]models.User
	identities map[id.IdentityID]models.Identity
}

func (s *MemoryStore) snapshot() memorySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return memorySnapshot{users: maps.Clone(s.users), identities: maps.Clone(s.identities)}
}

func (s *MemoryStore) restore(snap memorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.identities = snap.identities
}

// MemoryTx serializes transactions on a MemoryStore and restores a snapshot
// when fn fails.
type MemoryTx struct {
	mu      sync.Mutex
	store   *MemoryStore
	timeout time.Duration
}

func NewMemoryTx(store *MemoryStore) *MemoryTx {
	return &MemoryTx{store: store, timeout: tx.DefaultTimeout}
}

func (t *MemoryTx) RunInTx(ctx context.Context, fn func(Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.store.snapshot()
	if err := fn(t.store); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

func (s *MemoryStore) FindUser(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &user, nil
}

func (s *MemoryStore) FindUserForUpdate(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.FindUser(ctx, userID)
}

func (s *MemoryStore) FindUserByUID(_ context.Context, uid string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.UID == uid {
			return &user, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) ListUsersByNickname(_ context.Context, nickname string) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.User
	for _, user := range s.users {
		if user.Nickname == nickname {
			out = append(out, &user)
		}
	}
	slices.SortFunc(out, func(a, b *models.User) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.ID]; exists {
		return sentinel.ErrConflict
	}
	if user.UID != "" && s.uidTakenLocked(user.UID) {
		return ErrUIDTaken
	}
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) AssignUID(_ context.Context, userID id.UserID, uid string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if s.uidTakenLocked(uid) {
		return ErrUIDTaken
	}
	if user.UID != "" {
		return ErrUIDAlreadySet
	}
	user.UID = uid
	user.UpdatedAt = at
	s.users[userID] = user
	return nil
}

func (s *MemoryStore) uidTakenLocked(uid string) bool {
	for _, u := range s.users {
		if u.UID == uid {
			return true
		}
	}
	return false
}

func (s *MemoryStore) TouchLastLogin(_ context.Context, userID id.UserID, at time.Time) error {
	return s.mutateUser(userID, func(u *models.User) {
		u.LastLoginAt = &at
		u.UpdatedAt = at
	})
}

func (s *MemoryStore) UpdateNickname(_ context.Context, userID id.UserID, nickname string, at time.Time) error {
	return s.mutateUser(userID, func(u *models.User) {
		u.Nickname = nickname
		u.UpdatedAt = at
	})
}

func (s *MemoryStore) mutateUser(userID id.UserID, fn func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	fn(&user)
	s.users[userID] = user
	return nil
}

func (s *MemoryStore) FindIdentity(_ context.Context, provider models.Provider, sub string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ident := range s.identities {
		if ident.Provider == provider && ident.ProviderSub == sub {
			return &ident, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) HasProviderIdentity(_ context.Context, userID id.UserID, provider models.Provider) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ident := range s.identities {
		if ident.UserID == userID && ident.Provider == provider {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ListIdentities(_ context.Context, userID id.UserID) ([]*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Identity
	for _, ident := range s.identities {
		if ident.UserID == userID {
			out = append(out, &ident)
		}
	}
	slices.SortFunc(out, func(a, b *models.Identity) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CreateIdentity(_ context.Context, ident *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[ident.UserID]; !ok {
		return sentinel.ErrNotFound
	}
	for _, existing := range s.identities {
		if existing.Provider == ident.Provider && existing.ProviderSub == ident.ProviderSub {
			return ErrIdentityTaken
		}
		if existing.UserID == ident.UserID && existing.Provider == ident.Provider {
			return ErrProviderLinked
		}
	}
	s.identities[ident.ID] = *ident
	return nil
}

func (s *MemoryStore) DeleteIdentities(_ context.Context, userID id.UserID, provider models.Provider) ([]*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Identity
	for key, ident := range s.identities {
		if ident.UserID == userID && ident.Provider == provider {
			out = append(out, &ident)
			delete(s.identities, key)
		}
	}
	return out, nil
}
