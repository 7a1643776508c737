// Package domain holds typed identifiers shared across bounded contexts.
//
// Each ID wraps a UUID but is a distinct type, so a UserID can never be passed
// where an IdentityID is expected. Parse functions are the trust boundary:
// they reject empty, malformed and nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain-errors"
)

// UserID is the internal primary key of a user.
type UserID uuid.UUID

// IdentityID is the internal primary key of an external identity link.
type IdentityID uuid.UUID

// NewUserID allocates a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewIdentityID allocates a fresh random IdentityID.
func NewIdentityID() IdentityID { return IdentityID(uuid.New()) }

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id IdentityID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether id is the zero UUID.
func (id UserID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// IsNil reports whether id is the zero UUID.
func (id IdentityID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id IdentityID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *IdentityID) UnmarshalText(b []byte) error {
	parsed, err := ParseIdentityID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseUserID parses a UserID from its canonical string form.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	return UserID(u), err
}

// ParseIdentityID parses an IdentityID from its canonical string form.
func ParseIdentityID(s string) (IdentityID, error) {
	u, err := parseUUID(s, "identity ID")
	return IdentityID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
