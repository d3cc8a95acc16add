package domain

import "time"

// ComplaintStatus enumerates lifecycle states for complaints.
type ComplaintStatus string

const (
	StatusPending    ComplaintStatus = "Pending"
	StatusInProgress ComplaintStatus = "In Progress"
	StatusResolved   ComplaintStatus = "Resolved"
)

// Priority enumerates the urgency axis.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityUrgent Priority = "urgent"
)

// ComplaintKind distinguishes complaints from positive feedback.
type ComplaintKind string

const (
	KindComplaint ComplaintKind = "complaint"
	KindFeedback  ComplaintKind = "feedback"
)

// CategoryUnclassified is the bucket for records without a confident category.
const CategoryUnclassified = "Unclassified"

// AssignmentSourceManual marks an ownership decision taken by a person.
// Automatic decisions carry an "auto:<rule>" tag instead.
const AssignmentSourceManual = "manual"

// InternalNote is a collaboration note attached to a complaint, never shown
// to the submitter.
type InternalNote struct {
	ID         int64     `json:"id"`
	AuthorID   int64     `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	Pinned     bool      `json:"pinned"`
	CreatedAt  time.Time `json:"created_at"`
}

// Complaint is the central aggregate for one submitted issue or feedback item.
type Complaint struct {
	ID            int64           `json:"id"`
	EmpID         string          `json:"emp_id"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	ComplaintText string          `json:"complaint_text"`
	Kind          ComplaintKind   `json:"kind"`
	Category      string          `json:"category"`
	Plant         *string         `json:"plant,omitempty"`
	Priority      Priority        `json:"priority"`
	Status        ComplaintStatus `json:"status"`

	AIConfidence   *float64 `json:"ai_confidence,omitempty"`
	KindConfidence *float64 `json:"kind_confidence,omitempty"`

	AssignedTo       *int64  `json:"assigned_to,omitempty"`
	AssignmentSource *string `json:"assignment_source,omitempty"`
	AssignmentNotes  *string `json:"assignment_notes,omitempty"`

	// AttachmentIDs mirrors the set of attachments whose ComplaintID equals
	// this complaint's ID. The store keeps both sides in sync.
	AttachmentIDs []int64        `json:"attachment_ids"`
	InternalNotes []InternalNote `json:"internal_notes"`
	Watchers      []int64        `json:"watchers"`

	SourceChannel string `json:"source_channel"`

	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	FirstResponseAt     *time.Time `json:"first_response_at,omitempty"`
	ResolvedAt          *time.Time `json:"resolved_at,omitempty"`
	ResolutionTimeHours *float64   `json:"resolution_time_hours,omitempty"`
}

// ManuallyAssigned reports whether automation must leave ownership alone.
func (c *Complaint) ManuallyAssigned() bool {
	return c.AssignmentSource != nil && *c.AssignmentSource == AssignmentSourceManual
}
