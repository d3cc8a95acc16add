package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/config"
	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/events"
	"github.com/spec-kit/feedback-service/internal/store"
)

func newNotificationService(t *testing.T) (*NotificationService, *store.Store, events.Dispatcher) {
	t.Helper()
	s := newServiceStore(t)
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(s, dispatcher, nil, zap.NewNop(), config.NotificationConfig{})
	svc.RegisterHandlers()
	return svc, s, dispatcher
}

func seedAssignedComplaint(t *testing.T, s *store.Store, assigneeID int64, priority domain.Priority) domain.Complaint {
	t.Helper()
	complaint, err := s.CreateComplaint(store.CreateComplaintInput{
		EmpID:         "EMP1001",
		Email:         "emp@example.com",
		ComplaintText: "vpn down",
		Category:      "IT",
		Priority:      priority,
	})
	require.NoError(t, err)
	complaint, err = s.UpdateComplaint(complaint.ID, store.ComplaintPatch{AssignedTo: &assigneeID})
	require.NoError(t, err)
	return complaint
}

func TestAssignmentEventNotifiesAssignee(t *testing.T) {
	_, s, dispatcher := newNotificationService(t)
	complaint := seedAssignedComplaint(t, s, 5, domain.PriorityUrgent)

	err := dispatcher.Publish(context.Background(), events.New(events.EventComplaintAssigned, complaint.ID, nil, events.ComplaintAssignedPayload{
		AssigneeID: 5,
		Source:     "auto:it-urgent",
	}))
	require.NoError(t, err)

	assigneeID := int64(5)
	notifications := s.ListNotifications(&assigneeID, nil, 0)
	require.Len(t, notifications, 1)
	assert.Contains(t, notifications[0].Title, "assigned to you")
	assert.Equal(t, domain.NotificationWarning, notifications[0].Type, "urgent assignments warn")
	require.NotNil(t, notifications[0].Link)
	assert.Contains(t, *notifications[0].Link, "/complaints/")
}

func TestStatusChangeNotifiesAssigneeAndWatchersButNotActor(t *testing.T) {
	_, s, dispatcher := newNotificationService(t)
	complaint := seedAssignedComplaint(t, s, 5, domain.PriorityNormal)
	_, err := s.AddWatcher(complaint.ID, 7)
	require.NoError(t, err)
	_, err = s.AddWatcher(complaint.ID, 8)
	require.NoError(t, err)

	actor := int64(8)
	err = dispatcher.Publish(context.Background(), events.New(events.EventComplaintStatusChanged, complaint.ID, &actor, events.ComplaintStatusChangedPayload{
		OldStatus: domain.StatusPending,
		NewStatus: domain.StatusResolved,
	}))
	require.NoError(t, err)

	assignee := int64(5)
	assigneeNotes := s.ListNotifications(&assignee, nil, 0)
	require.Len(t, assigneeNotes, 1)
	assert.Equal(t, domain.NotificationSuccess, assigneeNotes[0].Type, "resolution reads as success")

	watcher := int64(7)
	assert.Len(t, s.ListNotifications(&watcher, nil, 0), 1)
	assert.Empty(t, s.ListNotifications(&actor, nil, 0), "the actor is not notified about their own change")
}

func TestReplyEventSkipsAuthor(t *testing.T) {
	_, s, dispatcher := newNotificationService(t)
	complaint := seedAssignedComplaint(t, s, 5, domain.PriorityNormal)
	_, err := s.AddWatcher(complaint.ID, 9)
	require.NoError(t, err)

	// The assignee authored the reply; only the watcher hears about it.
	author := int64(5)
	err = dispatcher.Publish(context.Background(), events.New(events.EventReplyCreated, complaint.ID, &author, events.ReplyCreatedPayload{
		ReplyID:       1,
		AdminID:       author,
		FirstResponse: true,
	}))
	require.NoError(t, err)

	assert.Empty(t, s.ListNotifications(&author, nil, 0))
	watcher := int64(9)
	watcherNotes := s.ListNotifications(&watcher, nil, 0)
	require.Len(t, watcherNotes, 1)
	assert.Contains(t, watcherNotes[0].Message, "First response")
}

func TestListForUserReportsUnreadBeyondPageLimit(t *testing.T) {
	svc, s, _ := newNotificationService(t)
	userID := int64(4)
	for i := 0; i < 6; i++ {
		s.CreateNotification(userID, "Title", "Message", domain.NotificationInfo, nil)
	}

	page := svc.ListForUser(context.Background(), userID, false, 3)

	assert.Len(t, page.Items, 3)
	assert.Equal(t, 6, page.UnreadCount)
}

func TestMarkReadEnforcesOwnership(t *testing.T) {
	svc, s, _ := newNotificationService(t)
	mine := s.CreateNotification(4, "Mine", "msg", domain.NotificationInfo, nil)
	theirs := s.CreateNotification(5, "Theirs", "msg", domain.NotificationInfo, nil)

	_, err := svc.MarkRead(context.Background(), theirs.ID, 4)
	require.Error(t, err)

	read, err := svc.MarkRead(context.Background(), mine.ID, 4)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	assert.Equal(t, 0, svc.MarkAllRead(context.Background(), 4))
	s.CreateNotification(4, "Another", "msg", domain.NotificationInfo, nil)
	assert.Equal(t, 1, svc.MarkAllRead(context.Background(), 4))
}
