// Package store persists users and their linked identities.
//
// Two implementations share the Store contract: PostgresStore for production
// and MemoryStore for tests and local runs. Both enforce the same uniqueness
// rules: uid, (provider, provider_sub), and (user_id, provider).
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/identity/models"
	id "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain"
	"github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/sentinel"
)

var (
	ErrUIDTaken       = fmt.Errorf("uid already taken: %w", sentinel.ErrConflict)
	ErrIdentityTaken  = fmt.Errorf("provider subject already linked: %w", sentinel.ErrConflict)
	ErrProviderLinked = fmt.Errorf("user already has an identity for provider: %w", sentinel.ErrConflict)
	ErrUIDAlreadySet  = fmt.Errorf("uid already assigned: %w", sentinel.ErrInvalidState)
)

// Store is the persistence contract of the identity context. Lookups of
// missing rows return sentinel.ErrNotFound.
type Store interface {
	FindUser(ctx context.Context, userID id.UserID) (*models.User, error)
	// FindUserForUpdate locks the user row for the rest of the transaction.
	FindUserForUpdate(ctx context.Context, userID id.UserID) (*models.User, error)
	FindUserByUID(ctx context.Context, uid string) (*models.User, error)
	ListUsersByNickname(ctx context.Context, nickname string) ([]*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	// AssignUID sets uid on a user that has none. A taken uid returns
	// ErrUIDTaken and leaves the surrounding transaction usable.
	AssignUID(ctx context.Context, userID id.UserID, uid string, at time.Time) error
	TouchLastLogin(ctx context.Context, userID id.UserID, at time.Time) error
	UpdateNickname(ctx context.Context, userID id.UserID, nickname string, at time.Time) error

	FindIdentity(ctx context.Context, provider models.Provider, sub string) (*models.Identity, error)
	HasProviderIdentity(ctx context.Context, userID id.UserID, provider models.Provider) (bool, error)
	ListIdentities(ctx context.Context, userID id.UserID) ([]*models.Identity, error)
	CreateIdentity(ctx context.Context, ident *models.Identity) error
	DeleteIdentities(ctx context.Context, userID id.UserID, provider models.Provider) ([]*models.Identity, error)
}

// TxRunner runs fn against a Store bound to one transaction. fn's error
// rolls the transaction back.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(Store) error) error
}
