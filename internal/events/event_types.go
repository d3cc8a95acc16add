package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/feedback-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintCreated       EventType = "complaint_created"
	EventComplaintClassified    EventType = "complaint_classified"
	EventComplaintAssigned      EventType = "complaint_assigned"
	EventComplaintStatusChanged EventType = "complaint_status_changed"
	EventReplyCreated           EventType = "reply_created"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	ComplaintID int64     `json:"complaint_id"`
	// ActorID is the account that triggered the event; nil for submissions
	// and automatic transitions.
	ActorID   *int64    `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// New builds an event envelope with a fresh identifier.
func New(eventType EventType, complaintID int64, actorID *int64, payload any) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		ComplaintID: complaintID,
		ActorID:     actorID,
		Timestamp:   time.Now().UTC(),
		Payload:     payload,
	}
}

// ComplaintCreatedPayload payload.
type ComplaintCreatedPayload struct {
	EmpID    string          `json:"emp_id"`
	Category string          `json:"category"`
	Priority domain.Priority `json:"priority"`
	Plant    *string         `json:"plant,omitempty"`
}

// ComplaintClassifiedPayload payload.
type ComplaintClassifiedPayload struct {
	Kind       domain.ComplaintKind `json:"kind"`
	Category   string               `json:"category"`
	Priority   domain.Priority      `json:"priority"`
	Confidence float64              `json:"confidence"`
	Outcome    string               `json:"outcome"`
}

// ComplaintAssignedPayload payload.
type ComplaintAssignedPayload struct {
	AssigneeID int64  `json:"assignee_id"`
	Source     string `json:"source"`
	Notes      string `json:"notes,omitempty"`
}

// ComplaintStatusChangedPayload payload.
type ComplaintStatusChangedPayload struct {
	OldStatus domain.ComplaintStatus `json:"old_status"`
	NewStatus domain.ComplaintStatus `json:"new_status"`
}

// ReplyCreatedPayload payload.
type ReplyCreatedPayload struct {
	ReplyID       int64 `json:"reply_id"`
	AdminID       int64 `json:"admin_id"`
	EmailSent     bool  `json:"email_sent"`
	FirstResponse bool  `json:"first_response"`
}
