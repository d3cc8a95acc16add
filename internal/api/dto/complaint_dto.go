package dto

// CreateComplaintRequest payload for a new submission.
type CreateComplaintRequest struct {
	EmpID         string  `json:"emp_id"`
	Email         string  `json:"email"`
	Phone         string  `json:"phone"`
	ComplaintText string  `json:"complaint_text"`
	Plant         *string `json:"plant,omitempty"`
	SourceChannel string  `json:"source_channel,omitempty"`
}

// UpdateComplaintRequest payload for admin edits; nil fields are untouched.
type UpdateComplaintRequest struct {
	Kind       *string  `json:"kind,omitempty"`
	Category   *string  `json:"category,omitempty"`
	Priority   *string  `json:"priority,omitempty"`
	Status     *string  `json:"status,omitempty"`
	AssignedTo *int64   `json:"assigned_to,omitempty"`
	Confidence *float64 `json:"ai_confidence,omitempty"`
}

// AddNoteRequest payload for an internal collaboration note.
type AddNoteRequest struct {
	Content string `json:"content"`
	Pinned  bool   `json:"pinned"`
}
