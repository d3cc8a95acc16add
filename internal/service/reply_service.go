package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/events"
	"github.com/spec-kit/feedback-service/internal/store"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// Mailer delivers outbound mail. Failures are reflected in the reply's
// email_sent flag instead of failing the operation.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ReplyService coordinates admin responses and outbound notification mail.
type ReplyService struct {
	store      *store.Store
	mailer     Mailer
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewReplyService constructs the service. mailer may be nil, in which case
// replies are recorded without outbound mail.
func NewReplyService(s *store.Store, mailer Mailer, dispatcher events.Dispatcher, logger *zap.Logger) *ReplyService {
	return &ReplyService{store: s, mailer: mailer, dispatcher: dispatcher, logger: logger}
}

// ReplyInput describes one admin response.
type ReplyInput struct {
	ComplaintID int64
	ReplyText   string
	SendEmail   bool
}

// Create records a response. The first response against a complaint stamps
// its first-response time; outbound mail is best effort.
func (s *ReplyService) Create(ctx context.Context, input ReplyInput, author domain.User) (domain.Reply, error) {
	text := strings.TrimSpace(input.ReplyText)
	if text == "" {
		return domain.Reply{}, apperrors.NewValidationError("reply text cannot be empty", nil)
	}
	complaint, ok := s.store.GetComplaint(input.ComplaintID)
	if !ok {
		return domain.Reply{}, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": input.ComplaintID})
	}
	firstResponse := complaint.FirstResponseAt == nil

	emailSent := false
	var emailSentAt *time.Time
	if input.SendEmail && s.mailer != nil {
		subject := fmt.Sprintf("Response to Your Complaint - Ticket #%d", complaint.ID)
		body := replyEmailBody(complaint, text, author.Username)
		if err := s.mailer.Send(ctx, complaint.Email, subject, body); err != nil {
			s.logger.Warn("reply email delivery failed",
				zap.Int64("complaint_id", complaint.ID), zap.Error(err))
		} else {
			ts := time.Now().UTC()
			emailSent = true
			emailSentAt = &ts
		}
	}

	reply, err := s.store.CreateReply(store.CreateReplyInput{
		ComplaintID: input.ComplaintID,
		AdminID:     author.ID,
		ReplyText:   text,
		EmailSent:   emailSent,
		EmailSentAt: emailSentAt,
	})
	if err != nil {
		return domain.Reply{}, err
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.New(events.EventReplyCreated, complaint.ID, &author.ID, events.ReplyCreatedPayload{
			ReplyID:       reply.ID,
			AdminID:       author.ID,
			EmailSent:     emailSent,
			FirstResponse: firstResponse,
		}))
	}

	s.store.LogAction(store.LogActionInput{
		UserID:     author.ID,
		Action:     "reply_created",
		EntityType: "reply",
		EntityID:   &reply.ID,
		Details:    map[string]string{"complaint_id": fmt.Sprintf("%d", complaint.ID)},
	})
	return reply, nil
}

func replyEmailBody(complaint domain.Complaint, replyText, responder string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", complaint.EmpID)
	fmt.Fprintf(&b, "An update has been posted on your ticket #%d (%s, %s priority, %s).\n\n",
		complaint.ID, complaint.Category, complaint.Priority, complaint.Status)
	b.WriteString(replyText)
	fmt.Fprintf(&b, "\n\nRegards,\n%s", responder)
	return b.String()
}

// ReplyPage is one page of replies for a complaint.
type ReplyPage struct {
	Items      []domain.Reply `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

// List pages through a complaint's replies, oldest first unless descending
// order is requested.
func (s *ReplyService) List(ctx context.Context, complaintID int64, page, pageSize int, order string) (ReplyPage, error) {
	if _, ok := s.store.GetComplaint(complaintID); !ok {
		return ReplyPage{}, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": complaintID})
	}
	replies := s.store.ListRepliesForComplaint(complaintID)
	if strings.ToLower(order) == "desc" {
		for i, j := 0, len(replies)-1; i < j; i, j = i+1, j-1 {
			replies[i], replies[j] = replies[j], replies[i]
		}
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	total := len(replies)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	totalPages := 0
	if total > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return ReplyPage{
		Items:      replies[start:end],
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// Update edits a reply's text.
func (s *ReplyService) Update(ctx context.Context, id int64, text string, actorID int64) (domain.Reply, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.Reply{}, apperrors.NewValidationError("reply text cannot be empty", nil)
	}
	reply, err := s.store.UpdateReply(id, store.ReplyPatch{ReplyText: &trimmed})
	if err != nil {
		return domain.Reply{}, err
	}
	s.store.LogAction(store.LogActionInput{
		UserID:     actorID,
		Action:     "reply_updated",
		EntityType: "reply",
		EntityID:   &id,
	})
	return reply, nil
}

// Delete removes a reply and its attachments.
func (s *ReplyService) Delete(ctx context.Context, id int64, actorID int64) error {
	if err := s.store.DeleteReply(id); err != nil {
		return err
	}
	s.store.LogAction(store.LogActionInput{
		UserID:     actorID,
		Action:     "reply_deleted",
		EntityType: "reply",
		EntityID:   &id,
	})
	return nil
}
