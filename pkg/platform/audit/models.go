// Package audit defines the audit trail event model shared by the identity
// and auth contexts. Publishers and sinks live in subpackages.
package audit

import (
	"context"
	"time"

	id "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// apply different retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers account lifecycle changes.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers failures and revocations worth alerting on.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine credential issuance.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	Subject   string
	Action    string
	Reason    string
	RequestID string
	IP        string
	Device    string
	// DeviceFingerprint is a coarse hash of the user agent, empty when disabled.
	DeviceFingerprint string
	// Provider is the external identity provider involved, if any.
	Provider string
}

type AuditEvent string

const (
	// Identity events
	EventUserCreated      AuditEvent = "user_created"
	EventIdentityLinked   AuditEvent = "identity_linked"
	EventIdentityUnlinked AuditEvent = "identity_unlinked"
	EventNicknameSet      AuditEvent = "nickname_set"

	// Auth events
	EventTokenIssued     AuditEvent = "token_issued"
	EventTokenRefreshed  AuditEvent = "token_refreshed"
	EventSessionsRevoked AuditEvent = "sessions_revoked"
	EventAuthFailed      AuditEvent = "auth_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventUserCreated:      CategoryCompliance,
	EventIdentityLinked:   CategoryCompliance,
	EventIdentityUnlinked: CategoryCompliance,
	EventNicknameSet:      CategoryCompliance,

	EventAuthFailed:      CategorySecurity,
	EventSessionsRevoked: CategorySecurity,

	EventTokenIssued:    CategoryOperations,
	EventTokenRefreshed: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// NewEvent builds an event for action with its category filled in.
func NewEvent(action AuditEvent, userID id.UserID) Event {
	return Event{
		Category: action.Category(),
		UserID:   userID,
		Action:   string(action),
	}
}

// Emitter is the narrow port domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
