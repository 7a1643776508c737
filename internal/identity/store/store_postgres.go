package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/identity/models"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/postgres"
	id "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain"
	"github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/sentinel"
	"github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/tx"
)

const (
	constraintUID          = "uq_users_uid"
	constraintProviderSub  = "uq_identity_provider_sub"
	constraintUserProvider = "uq_identity_user_provider"
	userColumns            = `id, uid, nickname, last_login_at, created_at, updated_at`
	identityColumns        = `id, user_id, provider, provider_sub, email, email_verified, profile_json, created_at, updated_at`
	uidSavepoint           = "uid_attempt"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresStore persists users and identities in PostgreSQL.
type PostgresStore struct {
	q    querier
	inTx bool
}

// NewPostgres constructs a store that runs each statement on its own.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{q: db}
}

// NewPostgresTx constructs a store bound to an open transaction.
func NewPostgresTx(sqlTx *sql.Tx) *PostgresStore {
	return &PostgresStore{q: sqlTx, inTx: true}
}

// PostgresTx runs identity mutations in one database transaction.
type PostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresTxRunner(db *sql.DB) *PostgresTx {
	return &PostgresTx{db: db, timeout: tx.DefaultTimeout}
}

func (t *PostgresTx) RunInTx(ctx context.Context, fn func(Store) error) error {
	return tx.Run(ctx, t.db, t.timeout, func(sqlTx *sql.Tx) error {
		return fn(NewPostgresTx(sqlTx))
	})
}

func (s *PostgresStore) FindUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uuid.UUID(userID))
}

func (s *PostgresStore) FindUserForUpdate(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, uuid.UUID(userID))
}

func (s *PostgresStore) FindUserByUID(ctx context.Context, uid string) (*models.User, error) {
	return s.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE uid = $1`, uid)
}

func (s *PostgresStore) findUser(ctx context.Context, query string, arg any) (*models.User, error) {
	user, err := scanUser(s.q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) ListUsersByNickname(ctx context.Context, nickname string) ([]*models.User, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE nickname = $1 ORDER BY created_at`, nickname)
	if err != nil {
		return nil, fmt.Errorf("list users by nickname: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO users (id, uid, nickname, last_login_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(user.ID), nullString(user.UID), nullString(user.Nickname),
		nullTime(user.LastLoginAt), user.CreatedAt, user.UpdatedAt,
	)
	if postgres.IsUniqueViolation(err, constraintUID) {
		return ErrUIDTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// AssignUID wraps the update in a savepoint when running inside a transaction,
// so a unique violation rolls back only this attempt.
func (s *PostgresStore) AssignUID(ctx context.Context, userID id.UserID, uid string, at time.Time) error {
	if s.inTx {
		if _, err := s.q.ExecContext(ctx, `SAVEPOINT `+uidSavepoint); err != nil {
			return fmt.Errorf("savepoint: %w", err)
		}
	}
	res, err := s.q.ExecContext(ctx,
		`UPDATE users SET uid = $2, updated_at = $3 WHERE id = $1 AND uid IS NULL`,
		uuid.UUID(userID), uid, at)
	if err != nil {
		if s.inTx {
			if _, rbErr := s.q.ExecContext(ctx, `ROLLBACK TO SAVEPOINT `+uidSavepoint); rbErr != nil {
				return fmt.Errorf("rollback uid attempt: %w", rbErr)
			}
		}
		if postgres.IsUniqueViolation(err, constraintUID) {
			return ErrUIDTaken
		}
		return fmt.Errorf("assign uid: %w", err)
	}
	if s.inTx {
		if _, err := s.q.ExecContext(ctx, `RELEASE SAVEPOINT `+uidSavepoint); err != nil {
			return fmt.Errorf("release savepoint: %w", err)
		}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.missingOrAssigned(ctx, userID)
	}
	return nil
}

func (s *PostgresStore) missingOrAssigned(ctx context.Context, userID id.UserID) error {
	if _, err := s.FindUser(ctx, userID); err != nil {
		return err
	}
	return ErrUIDAlreadySet
}

func (s *PostgresStore) TouchLastLogin(ctx context.Context, userID id.UserID, at time.Time) error {
	return s.updateUser(ctx, `UPDATE users SET last_login_at = $2, updated_at = $2 WHERE id = $1`, uuid.UUID(userID), at)
}

func (s *PostgresStore) UpdateNickname(ctx context.Context, userID id.UserID, nickname string, at time.Time) error {
	return s.updateUser(ctx, `UPDATE users SET nickname = $2, updated_at = $3 WHERE id = $1`, uuid.UUID(userID), nickname, at)
}

func (s *PostgresStore) updateUser(ctx context.Context, query string, args ...any) error {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindIdentity(ctx context.Context, provider models.Provider, sub string) (*models.Identity, error) {
	ident, err := scanIdentity(s.q.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE provider = $1 AND provider_sub = $2`,
		string(provider), sub))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return ident, nil
}

func (s *PostgresStore) HasProviderIdentity(ctx context.Context, userID id.UserID, provider models.Provider) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM identities WHERE user_id = $1 AND provider = $2)`,
		uuid.UUID(userID), string(provider)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check provider identity: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListIdentities(ctx context.Context, userID id.UserID) ([]*models.Identity, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE user_id = $1 ORDER BY created_at`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	return collectIdentities(rows)
}

func (s *PostgresStore) CreateIdentity(ctx context.Context, ident *models.Identity) error {
	profile, err := marshalProfile(ident.Profile)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO identities (id, user_id, provider, provider_sub, email, email_verified, profile_json, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)`,
		uuid.UUID(ident.ID), uuid.UUID(ident.UserID), string(ident.Provider), ident.ProviderSub,
		nullString(ident.Email), ident.EmailVerified, profile, ident.CreatedAt, ident.UpdatedAt,
	)
	switch {
	case err == nil:
		return nil
	case postgres.IsUniqueViolation(err, constraintProviderSub):
		return ErrIdentityTaken
	case postgres.IsUniqueViolation(err, constraintUserProvider):
		return ErrProviderLinked
	case postgres.IsUniqueViolation(err, ""):
		return fmt.Errorf("create identity: %w", sentinel.ErrConflict)
	default:
		return fmt.Errorf("create identity: %w", err)
	}
}

func (s *PostgresStore) DeleteIdentities(ctx context.Context, userID id.UserID, provider models.Provider) ([]*models.Identity, error) {
	rows, err := s.q.QueryContext(ctx,
		`DELETE FROM identities WHERE user_id = $1 AND provider = $2 RETURNING `+identityColumns,
		uuid.UUID(userID), string(provider))
	if err != nil {
		return nil, fmt.Errorf("delete identities: %w", err)
	}
	return collectIdentities(rows)
}

func collectIdentities(rows *sql.Rows) ([]*models.Identity, error) {
	defer rows.Close()
	var out []*models.Identity
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out = append(out, ident)
	}
	return out, rows.Err()
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		rawID     uuid.UUID
		uid       sql.NullString
		nickname  sql.NullString
		lastLogin sql.NullTime
		user      models.User
	)
	if err := row.Scan(&rawID, &uid, &nickname, &lastLogin, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	user.ID = id.UserID(rawID)
	user.UID = uid.String
	user.Nickname = nickname.String
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLoginAt = &t
	}
	return &user, nil
}

func scanIdentity(row rowScanner) (*models.Identity, error) {
	var (
		rawID, rawUserID uuid.UUID
		provider         string
		email            sql.NullString
		profile          []byte
		ident            models.Identity
	)
	if err := row.Scan(&rawID, &rawUserID, &provider, &ident.ProviderSub, &email,
		&ident.EmailVerified, &profile, &ident.CreatedAt, &ident.UpdatedAt); err != nil {
		return nil, err
	}
	ident.ID = id.IdentityID(rawID)
	ident.UserID = id.UserID(rawUserID)
	ident.Provider = models.Provider(provider)
	ident.Email = email.String
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &ident.Profile); err != nil {
			return nil, fmt.Errorf("decode identity profile: %w", err)
		}
	}
	return &ident, nil
}

func marshalProfile(profile map[string]any) (string, error) {
	if profile == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return "", fmt.Errorf("marshal identity profile: %w", err)
	}
	return string(raw), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
