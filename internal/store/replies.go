package store

import (
	"sort"
	"time"

	"github.com/spec-kit/feedback-service/internal/domain"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// CreateReplyInput describes a new admin response.
type CreateReplyInput struct {
	ComplaintID int64
	AdminID     int64
	ReplyText   string
	EmailSent   bool
	EmailSentAt *time.Time
}

// ReplyPatch is an explicit partial update for a reply.
type ReplyPatch struct {
	ReplyText   *string
	EmailSent   *bool
	EmailSentAt *time.Time
}

// CreateReply stores a response. The first reply ever created against a
// complaint stamps its first-response time; later replies never touch it.
func (s *Store) CreateReply(input CreateReplyInput) (domain.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	complaint, ok := s.complaints[input.ComplaintID]
	if !ok {
		return domain.Reply{}, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": input.ComplaintID})
	}
	reply := domain.Reply{
		ID:          s.nextIDLocked(bucketReplies),
		ComplaintID: input.ComplaintID,
		AdminID:     input.AdminID,
		ReplyText:   input.ReplyText,
		EmailSent:   input.EmailSent,
		EmailSentAt: input.EmailSentAt,
		CreatedAt:   now(),
	}
	s.replies[reply.ID] = reply
	indexAdd(s.repliesByComplaint, reply.ComplaintID, reply.ID)

	if complaint.FirstResponseAt == nil {
		first := reply.CreatedAt
		complaint.FirstResponseAt = &first
		complaint.UpdatedAt = now()
		s.complaints[complaint.ID] = complaint
	}

	s.persistLocked()
	return reply, nil
}

// GetReply returns one reply by id.
func (s *Store) GetReply(id int64) (domain.Reply, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reply, ok := s.replies[id]
	return reply, ok
}

// ListRepliesForComplaint returns the replies against one complaint ordered
// by id.
func (s *Store) ListRepliesForComplaint(complaintID int64) []domain.Reply {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.repliesByComplaint[complaintID]
	out := make([]domain.Reply, 0, len(ids))
	for id := range ids {
		if reply, ok := s.replies[id]; ok {
			out = append(out, reply)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateReply applies a partial update to a reply.
func (s *Store) UpdateReply(id int64, patch ReplyPatch) (domain.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reply, ok := s.replies[id]
	if !ok {
		return domain.Reply{}, apperrors.NewNotFound("reply", map[string]any{"reply_id": id})
	}
	if patch.ReplyText != nil {
		reply.ReplyText = *patch.ReplyText
	}
	if patch.EmailSent != nil {
		reply.EmailSent = *patch.EmailSent
	}
	if patch.EmailSentAt != nil {
		reply.EmailSentAt = patch.EmailSentAt
	}
	s.replies[id] = reply
	s.persistLocked()
	return reply, nil
}

// DeleteReply removes a reply and cascades to every attachment referencing
// it, detaching each from its owning complaint's attachment list.
func (s *Store) DeleteReply(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reply, ok := s.replies[id]
	if !ok {
		return apperrors.NewNotFound("reply", map[string]any{"reply_id": id})
	}
	for attachmentID := range s.attachmentsByReply[id] {
		if attachment, ok := s.attachments[attachmentID]; ok {
			s.removeAttachmentLocked(attachment)
		}
	}
	delete(s.attachmentsByReply, id)
	delete(s.replies, id)
	indexRemove(s.repliesByComplaint, reply.ComplaintID, id)
	s.persistLocked()
	return nil
}
