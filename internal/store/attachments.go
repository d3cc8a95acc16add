package store

import (
	"sort"

	"github.com/spec-kit/feedback-service/internal/domain"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// CreateAttachmentInput describes one uploaded binary object.
type CreateAttachmentInput struct {
	ComplaintID int64
	ReplyID     *int64
	FileName    string
	FilePath    string
	FileType    string
	FileSize    int64
}

// CreateAttachment stores the descriptor and appends its id to the owning
// complaint's attachment list in the same mutation.
func (s *Store) CreateAttachment(input CreateAttachmentInput) (domain.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	complaint, ok := s.complaints[input.ComplaintID]
	if !ok {
		return domain.Attachment{}, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": input.ComplaintID})
	}
	if input.ReplyID != nil {
		if _, ok := s.replies[*input.ReplyID]; !ok {
			return domain.Attachment{}, apperrors.NewNotFound("reply", map[string]any{"reply_id": *input.ReplyID})
		}
	}
	attachment := domain.Attachment{
		ID:          s.nextIDLocked(bucketAttachments),
		ComplaintID: input.ComplaintID,
		ReplyID:     input.ReplyID,
		FileName:    input.FileName,
		FilePath:    input.FilePath,
		FileType:    input.FileType,
		FileSize:    input.FileSize,
		UploadedAt:  now(),
	}
	s.attachments[attachment.ID] = attachment
	indexAdd(s.attachmentsByComplaint, attachment.ComplaintID, attachment.ID)
	if attachment.ReplyID != nil {
		indexAdd(s.attachmentsByReply, *attachment.ReplyID, attachment.ID)
	}

	complaint.AttachmentIDs = append(append([]int64(nil), complaint.AttachmentIDs...), attachment.ID)
	complaint.UpdatedAt = now()
	s.complaints[complaint.ID] = complaint

	s.persistLocked()
	return attachment, nil
}

// GetAttachment returns one attachment by id.
func (s *Store) GetAttachment(id int64) (domain.Attachment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attachment, ok := s.attachments[id]
	return attachment, ok
}

// ListAttachmentsForComplaint returns the attachments owned by one
// complaint, ordered by id.
func (s *Store) ListAttachmentsForComplaint(complaintID int64) []domain.Attachment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectAttachmentsLocked(s.attachmentsByComplaint[complaintID])
}

// ListAttachmentsForReply returns the attachments tied to one reply, ordered
// by id.
func (s *Store) ListAttachmentsForReply(replyID int64) []domain.Attachment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectAttachmentsLocked(s.attachmentsByReply[replyID])
}

func (s *Store) collectAttachmentsLocked(ids map[int64]struct{}) []domain.Attachment {
	out := make([]domain.Attachment, 0, len(ids))
	for id := range ids {
		if attachment, ok := s.attachments[id]; ok {
			out = append(out, attachment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DeleteAttachment removes the descriptor and detaches it from the owning
// complaint's attachment list.
func (s *Store) DeleteAttachment(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attachment, ok := s.attachments[id]
	if !ok {
		return apperrors.NewNotFound("attachment", map[string]any{"attachment_id": id})
	}
	s.removeAttachmentLocked(attachment)
	s.persistLocked()
	return nil
}

// removeAttachmentLocked deletes an attachment record, its index entries and
// its slot in the owning complaint's id list. Callers hold the write lock.
func (s *Store) removeAttachmentLocked(attachment domain.Attachment) {
	delete(s.attachments, attachment.ID)
	indexRemove(s.attachmentsByComplaint, attachment.ComplaintID, attachment.ID)
	if attachment.ReplyID != nil {
		indexRemove(s.attachmentsByReply, *attachment.ReplyID, attachment.ID)
	}
	if complaint, ok := s.complaints[attachment.ComplaintID]; ok {
		filtered := make([]int64, 0, len(complaint.AttachmentIDs))
		for _, existing := range complaint.AttachmentIDs {
			if existing != attachment.ID {
				filtered = append(filtered, existing)
			}
		}
		complaint.AttachmentIDs = filtered
		s.complaints[complaint.ID] = complaint
	}
}
