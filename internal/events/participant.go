// Package events defines the participant event payloads exchanged over Kafka.
package events

import "time"

// Kafka framing metadata for participant events.
const (
	SchemaSubject = "participant_events-value"
	SchemaID      = 1
)

// ParticipantChanged is emitted after a student joins or leaves an activity.
type ParticipantChanged struct {
	EventID          string    `json:"event_id"`
	EventType        string    `json:"event_type"`
	Activity         string    `json:"activity"`
	Email            string    `json:"email"`
	ParticipantCount int       `json:"participant_count"`
	OccurredAt       time.Time `json:"occurred_at"`
}
