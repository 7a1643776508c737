package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/identity/models"
	id "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain"
	"github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/sentinel"
)

// storeFactory returns a fresh, empty store with its transaction runner.
type storeFactory func(t *testing.T) (Store, TxRunner)

var contractNow = time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

func newUser() *models.User {
	return &models.User{ID: id.NewUserID(), CreatedAt: contractNow, UpdatedAt: contractNow}
}

func runStoreContract(t *testing.T, factory storeFactory) {
	ctx := context.Background()

	t.Run("user round trip", func(t *testing.T) {
		st, _ := factory(t)
		user := newUser()
		require.NoError(t, st.CreateUser(ctx, user))

		got, err := st.FindUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.False(t, got.HasUID())
		assert.False(t, got.HasNickname())

		_, err = st.FindUser(ctx, id.NewUserID())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("uid is unique and assigned once", func(t *testing.T) {
		st, _ := factory(t)
		a, b := newUser(), newUser()
		require.NoError(t, st.CreateUser(ctx, a))
		require.NoError(t, st.CreateUser(ctx, b))

		require.NoError(t, st.AssignUID(ctx, a.ID, "123456789", contractNow))
		assert.ErrorIs(t, st.AssignUID(ctx, b.ID, "123456789", contractNow), ErrUIDTaken)
		assert.ErrorIs(t, st.AssignUID(ctx, a.ID, "987654321", contractNow), ErrUIDAlreadySet)

		got, err := st.FindUserByUID(ctx, "123456789")
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
	})

	t.Run("uid collision inside a transaction keeps it usable", func(t *testing.T) {
		st, runner := factory(t)
		taken := newUser()
		require.NoError(t, st.CreateUser(ctx, taken))
		require.NoError(t, st.AssignUID(ctx, taken.ID, "111111111", contractNow))

		fresh := newUser()
		err := runner.RunInTx(ctx, func(txStore Store) error {
			if err := txStore.CreateUser(ctx, fresh); err != nil {
				return err
			}
			if err := txStore.AssignUID(ctx, fresh.ID, "111111111", contractNow); !assert.ErrorIs(t, err, ErrUIDTaken) {
				return err
			}
			return txStore.AssignUID(ctx, fresh.ID, "222222222", contractNow)
		})
		require.NoError(t, err)

		got, err := st.FindUser(ctx, fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, "222222222", got.UID)
	})

	t.Run("failed transaction rolls back", func(t *testing.T) {
		st, runner := factory(t)
		user := newUser()
		err := runner.RunInTx(ctx, func(txStore Store) error {
			require.NoError(t, txStore.CreateUser(ctx, user))
			return sentinel.ErrInvalidState
		})
		require.ErrorIs(t, err, sentinel.ErrInvalidState)

		_, err = st.FindUser(ctx, user.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("identity uniqueness", func(t *testing.T) {
		st, _ := factory(t)
		a, b := newUser(), newUser()
		require.NoError(t, st.CreateUser(ctx, a))
		require.NoError(t, st.CreateUser(ctx, b))

		claims := map[string]any{"email": "a@b.com", "email_verified": true, "sub": "X"}
		require.NoError(t, st.CreateIdentity(ctx, models.NewIdentity(a.ID, models.ProviderGoogle, "X", claims, contractNow)))

		err := st.CreateIdentity(ctx, models.NewIdentity(b.ID, models.ProviderGoogle, "X", nil, contractNow))
		assert.ErrorIs(t, err, ErrIdentityTaken)
		assert.ErrorIs(t, err, sentinel.ErrConflict)

		err = st.CreateIdentity(ctx, models.NewIdentity(a.ID, models.ProviderGoogle, "Y", nil, contractNow))
		assert.ErrorIs(t, err, ErrProviderLinked)

		require.NoError(t, st.CreateIdentity(ctx, models.NewIdentity(a.ID, models.ProviderSteam, "S", nil, contractNow)))

		found, err := st.FindIdentity(ctx, models.ProviderGoogle, "X")
		require.NoError(t, err)
		assert.Equal(t, a.ID, found.UserID)
		assert.Equal(t, "a@b.com", found.Email)
		assert.True(t, found.EmailVerified)
		assert.Equal(t, "X", found.Profile["sub"])

		has, err := st.HasProviderIdentity(ctx, a.ID, models.ProviderSteam)
		require.NoError(t, err)
		assert.True(t, has)

		list, err := st.ListIdentities(ctx, a.ID)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("delete identities returns removed rows", func(t *testing.T) {
		st, _ := factory(t)
		user := newUser()
		require.NoError(t, st.CreateUser(ctx, user))
		require.NoError(t, st.CreateIdentity(ctx, models.NewIdentity(user.ID, models.ProviderGoogle, "G1", nil, contractNow)))

		removed, err := st.DeleteIdentities(ctx, user.ID, models.ProviderGoogle)
		require.NoError(t, err)
		require.Len(t, removed, 1)
		assert.Equal(t, "G1", removed[0].ProviderSub)

		removed, err = st.DeleteIdentities(ctx, user.ID, models.ProviderGoogle)
		require.NoError(t, err)
		assert.Empty(t, removed)
	})

	t.Run("nickname and last login updates", func(t *testing.T) {
		st, _ := factory(t)
		user := newUser()
		require.NoError(t, st.CreateUser(ctx, user))

		later := contractNow.Add(time.Hour)
		require.NoError(t, st.UpdateNickname(ctx, user.ID, "모험가", later))
		require.NoError(t, st.TouchLastLogin(ctx, user.ID, later))

		got, err := st.FindUserForUpdate(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "모험가", got.Nickname)
		require.NotNil(t, got.LastLoginAt)
		assert.True(t, later.Equal(*got.LastLoginAt))

		users, err := st.ListUsersByNickname(ctx, "모험가")
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, user.ID, users[0].ID)

		assert.ErrorIs(t, st.UpdateNickname(ctx, id.NewUserID(), "x", later), sentinel.ErrNotFound)
	})
}
