package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventVerificationEmailRequested EventType = "verification_email_requested"
	EventWelcomeEmailRequested      EventType = "welcome_email_requested"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// VerificationEmailPayload carries what is needed to send a verification link.
type VerificationEmailPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Token string `json:"-"`
	Link  string `json:"link"`
}

// WelcomeEmailPayload payload.
type WelcomeEmailPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}
