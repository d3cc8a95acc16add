package store

import (
	"sort"

	"github.com/spec-kit/feedback-service/internal/domain"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// CreateNotification stores an in-app message for one account.
func (s *Store) CreateNotification(userID int64, title, message string, kind domain.NotificationType, link *string) domain.Notification {
	if kind == "" {
		kind = domain.NotificationInfo
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	notification := domain.Notification{
		ID:        s.nextIDLocked(bucketNotifications),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      kind,
		Link:      link,
		IsRead:    false,
		CreatedAt: now(),
	}
	s.notifications[notification.ID] = notification
	s.persistLocked()
	return notification
}

// GetNotification returns one notification by id.
func (s *Store) GetNotification(id int64) (domain.Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	notification, ok := s.notifications[id]
	return notification, ok
}

// ListNotifications returns notifications, optionally filtered by account
// and read state, newest first, capped at limit.
func (s *Store) ListNotifications(userID *int64, isRead *bool, limit int) []domain.Notification {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Notification, 0, len(s.notifications))
	for _, notification := range s.notifications {
		if userID != nil && notification.UserID != *userID {
			continue
		}
		if isRead != nil && notification.IsRead != *isRead {
			continue
		}
		out = append(out, notification)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// CountUnreadNotifications returns how many unread notifications an
// account has.
func (s *Store) CountUnreadNotifications(userID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, notification := range s.notifications {
		if notification.UserID == userID && !notification.IsRead {
			count++
		}
	}
	return count
}

// MarkNotificationRead flags one notification as read; already-read
// notifications are returned unchanged.
func (s *Store) MarkNotificationRead(id int64) (domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	notification, ok := s.notifications[id]
	if !ok {
		return domain.Notification{}, apperrors.NewNotFound("notification", map[string]any{"notification_id": id})
	}
	if !notification.IsRead {
		ts := now()
		notification.IsRead = true
		notification.ReadAt = &ts
		s.notifications[id] = notification
		s.persistLocked()
	}
	return notification, nil
}

// MarkAllNotificationsRead flags every unread notification for an account
// and reports how many changed.
func (s *Store) MarkAllNotificationsRead(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, notification := range s.notifications {
		if notification.UserID != userID || notification.IsRead {
			continue
		}
		ts := now()
		notification.IsRead = true
		notification.ReadAt = &ts
		s.notifications[id] = notification
		count++
	}
	if count > 0 {
		s.persistLocked()
	}
	return count
}

// DeleteNotification removes a notification by id.
func (s *Store) DeleteNotification(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[id]; !ok {
		return apperrors.NewNotFound("notification", map[string]any{"notification_id": id})
	}
	delete(s.notifications, id)
	s.persistLocked()
	return nil
}
