package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/config"
	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/events"
	"github.com/spec-kit/feedback-service/internal/observability"
	"github.com/spec-kit/feedback-service/internal/store"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// NotificationService turns domain events into in-app notifications for
// assignees and watchers, plus outbound stubs for email and webhooks.
type NotificationService struct {
	store      *store.Store
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(s *store.Store, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		store:      s,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventComplaintAssigned, n.handleComplaintAssigned)
	n.dispatcher.Subscribe(events.EventComplaintStatusChanged, n.handleComplaintStatusChanged)
	n.dispatcher.Subscribe(events.EventReplyCreated, n.handleReplyCreated)
}

func complaintLink(id int64) *string {
	link := fmt.Sprintf("/complaints/%d", id)
	return &link
}

func (n *NotificationService) notify(userID int64, title, message string, kind domain.NotificationType, complaintID int64) {
	n.store.CreateNotification(userID, title, message, kind, complaintLink(complaintID))
	if n.metrics != nil {
		n.metrics.NotificationsPublished.Inc()
	}
}

// notifyWatchers fans a message out to everyone watching the complaint,
// except the actor who triggered it.
func (n *NotificationService) notifyWatchers(complaint domain.Complaint, title, message string, kind domain.NotificationType, actorID *int64) {
	for _, watcherID := range complaint.Watchers {
		if actorID != nil && watcherID == *actorID {
			continue
		}
		n.notify(watcherID, title, message, kind, complaint.ID)
	}
}

func (n *NotificationService) handleComplaintAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintAssignedPayload)
	if !ok {
		return nil
	}
	complaint, found := n.store.GetComplaint(event.ComplaintID)
	if !found {
		return nil
	}
	title := fmt.Sprintf("Ticket #%d assigned to you", complaint.ID)
	message := payload.Notes
	if message == "" {
		message = fmt.Sprintf("You are now the owner of ticket #%d (%s).", complaint.ID, complaint.Category)
	}
	kind := domain.NotificationInfo
	if complaint.Priority == domain.PriorityUrgent {
		kind = domain.NotificationWarning
	}
	n.notify(payload.AssigneeID, title, message, kind, complaint.ID)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleComplaintStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintStatusChangedPayload)
	if !ok {
		return nil
	}
	complaint, found := n.store.GetComplaint(event.ComplaintID)
	if !found {
		return nil
	}
	title := fmt.Sprintf("Ticket #%d is now %s", complaint.ID, payload.NewStatus)
	message := fmt.Sprintf("Status changed from %s to %s.", payload.OldStatus, payload.NewStatus)
	kind := domain.NotificationInfo
	if payload.NewStatus == domain.StatusResolved {
		kind = domain.NotificationSuccess
	}
	if complaint.AssignedTo != nil {
		if event.ActorID == nil || *event.ActorID != *complaint.AssignedTo {
			n.notify(*complaint.AssignedTo, title, message, kind, complaint.ID)
		}
	}
	n.notifyWatchers(complaint, title, message, kind, event.ActorID)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleReplyCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReplyCreatedPayload)
	if !ok {
		return nil
	}
	complaint, found := n.store.GetComplaint(event.ComplaintID)
	if !found {
		return nil
	}
	title := fmt.Sprintf("New reply on ticket #%d", complaint.ID)
	message := "A response has been posted."
	if payload.FirstResponse {
		message = "First response has been posted."
	}
	if complaint.AssignedTo != nil && *complaint.AssignedTo != payload.AdminID {
		n.notify(*complaint.AssignedTo, title, message, domain.NotificationInfo, complaint.ID)
	}
	n.notifyWatchers(complaint, title, message, domain.NotificationInfo, &payload.AdminID)
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.Int64("complaint_id", event.ComplaintID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.Int64("complaint_id", event.ComplaintID),
		zap.String("event_type", string(event.Type)))
}

// NotificationPage is one page of a user's notifications.
type NotificationPage struct {
	Items       []domain.Notification `json:"items"`
	UnreadCount int                   `json:"unread_count"`
}

// ListForUser returns a user's notifications, newest first.
func (n *NotificationService) ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) NotificationPage {
	var isRead *bool
	if unreadOnly {
		f := false
		isRead = &f
	}
	items := n.store.ListNotifications(&userID, isRead, limit)
	return NotificationPage{Items: items, UnreadCount: n.store.CountUnreadNotifications(userID)}
}

// MarkRead marks one notification read, verifying ownership.
func (n *NotificationService) MarkRead(ctx context.Context, id, userID int64) (domain.Notification, error) {
	notification, ok := n.store.GetNotification(id)
	if !ok {
		return domain.Notification{}, apperrors.NewNotFound("notification", map[string]any{"notification_id": id})
	}
	if notification.UserID != userID {
		return domain.Notification{}, apperrors.NewForbidden("notification belongs to another user")
	}
	return n.store.MarkNotificationRead(id)
}

// MarkAllRead marks every unread notification for the user and returns the
// number updated.
func (n *NotificationService) MarkAllRead(ctx context.Context, userID int64) int {
	return n.store.MarkAllNotificationsRead(userID)
}
