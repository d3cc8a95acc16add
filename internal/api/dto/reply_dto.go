package dto

// CreateReplyRequest payload for an admin response.
type CreateReplyRequest struct {
	ReplyText string `json:"reply_text"`
	SendEmail bool   `json:"send_email"`
}

// UpdateReplyRequest payload for editing a response.
type UpdateReplyRequest struct {
	ReplyText string `json:"reply_text"`
}

// CategoryCreateRequest payload for a new category.
type CategoryCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// GenerateReportRequest payload for report generation.
type GenerateReportRequest struct {
	Period string `json:"period"`
}
