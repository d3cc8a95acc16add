package domain

import "time"

// Attachment describes one stored binary object owned by a complaint and
// optionally tied to a reply.
type Attachment struct {
	ID          int64     `json:"id"`
	ComplaintID int64     `json:"complaint_id"`
	ReplyID     *int64    `json:"reply_id,omitempty"`
	FileName    string    `json:"file_name"`
	FilePath    string    `json:"file_path"`
	FileType    string    `json:"file_type"`
	FileSize    int64     `json:"file_size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
