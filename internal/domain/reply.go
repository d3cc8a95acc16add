package domain

import "time"

// Reply is a response written by an admin against one complaint. The first
// reply ever created for a complaint stamps its first-response time.
type Reply struct {
	ID          int64      `json:"id"`
	ComplaintID int64      `json:"complaint_id"`
	AdminID     int64      `json:"admin_id"`
	ReplyText   string     `json:"reply_text"`
	EmailSent   bool       `json:"email_sent"`
	EmailSentAt *time.Time `json:"email_sent_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
