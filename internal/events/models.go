// Package events carries the "something changed" signal out of the domain
// services. Sinks fan events out to the in-process store (read by tests and
// local tooling) and to Kafka for UI refresh and audit consumers. Emission
// is best-effort: a sink failure is logged, never surfaced to the business
// operation that produced the event.
package events

import (
	"time"

	"luckdraw/pkg/domain"
)

// Type names what changed.
type Type string

const (
	TypeActivityCreated     Type = "activity_created"
	TypeActivityUpdated     Type = "activity_updated"
	TypeActivityPublished   Type = "activity_published"
	TypeActivityUnpublished Type = "activity_unpublished"
	TypeActivityDeleted     Type = "activity_deleted"
	TypeRegistrationCreated Type = "registration_created"
	TypeDrawCompleted       Type = "draw_completed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Type           Type                  `json:"type"`
	OccurredAt     time.Time             `json:"occurred_at"`
	ActivityID     domain.ActivityID     `json:"activity_id"`
	RegistrationID domain.RegistrationID `json:"registration_id,omitempty"`
	// Actor is the organizer principal behind the action, empty for
	// anonymous registrations.
	Actor     domain.PrincipalID `json:"actor,omitempty"`
	RequestID string             `json:"request_id,omitempty"`
	ClientIP  string             `json:"client_ip,omitempty"`
	Device    string             `json:"device,omitempty"`
	// Winners is set on draw_completed.
	Winners int `json:"winners,omitempty"`
}
