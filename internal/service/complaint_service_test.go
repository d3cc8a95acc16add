package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/events"
	"github.com/spec-kit/feedback-service/internal/routing"
	"github.com/spec-kit/feedback-service/internal/store"
)

// recordingDispatcher retains every published event for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

func newComplaintService(t *testing.T) (*ComplaintService, *store.Store, *recordingDispatcher) {
	t.Helper()
	s := newServiceStore(t)
	dispatcher := &recordingDispatcher{}
	svc := NewComplaintService(ComplaintDependencies{
		Store:      s,
		Classifier: heuristicClassifier(),
		Router:     routing.NewEngine(s, nil, zap.NewNop()),
		Dispatcher: dispatcher,
		Plants:     testPlants,
		Logger:     zap.NewNop(),
	})
	return svc, s, dispatcher
}

func submitInput(text string) store.CreateComplaintInput {
	return store.CreateComplaintInput{
		EmpID:         "EMP1001",
		Email:         "emp@example.com",
		ComplaintText: text,
		Plant:         ptr("P1"),
	}
}

func TestCreateRequiresValidPlant(t *testing.T) {
	svc, _, _ := newComplaintService(t)
	ctx := context.Background()

	input := submitInput("vpn down")
	input.Plant = nil
	_, err := svc.Create(ctx, input)
	require.Error(t, err)

	input.Plant = ptr("P9")
	_, err = svc.Create(ctx, input)
	require.Error(t, err)
}

func TestCreateClassifiesAndRoutes(t *testing.T) {
	svc, s, dispatcher := newComplaintService(t)
	specialist := createAdminAccount(t, s, "network_specialist", ptr("IT"), nil)

	complaint, err := svc.Create(context.Background(), submitInput("the vpn keeps disconnecting"))

	require.NoError(t, err)
	assert.Equal(t, "IT", complaint.Category)
	assert.Equal(t, domain.KindComplaint, complaint.Kind)
	require.NotNil(t, complaint.AIConfidence)
	assert.Greater(t, *complaint.AIConfidence, 0.0)
	require.NotNil(t, complaint.AssignedTo)
	assert.Equal(t, specialist.ID, *complaint.AssignedTo)

	assert.Len(t, dispatcher.byType(events.EventComplaintCreated), 1)
	assert.Len(t, dispatcher.byType(events.EventComplaintClassified), 1)
	assigned := dispatcher.byType(events.EventComplaintAssigned)
	require.Len(t, assigned, 1)
	payload, ok := assigned[0].Payload.(events.ComplaintAssignedPayload)
	require.True(t, ok)
	assert.Equal(t, specialist.ID, payload.AssigneeID)
	assert.Equal(t, "auto:vpn-network-specialist", payload.Source)
}

func TestUpdateManualAssignmentIsTerminal(t *testing.T) {
	svc, s, dispatcher := newComplaintService(t)
	createAdminAccount(t, s, "network_specialist", ptr("IT"), nil)
	owner := createAdminAccount(t, s, "chosen_admin", ptr("IT"), nil)
	complaint, err := svc.Create(context.Background(), submitInput("the vpn keeps disconnecting"))
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), complaint.ID, store.ComplaintPatch{AssignedTo: &owner.ID}, 1)

	require.NoError(t, err)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, owner.ID, *updated.AssignedTo)
	require.NotNil(t, updated.AssignmentSource)
	assert.Equal(t, domain.AssignmentSourceManual, *updated.AssignmentSource)

	// A later read re-runs routing but must not override the manual choice.
	again, err := svc.Get(context.Background(), complaint.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, *again.AssignedTo)

	manualEvents := dispatcher.byType(events.EventComplaintAssigned)
	require.NotEmpty(t, manualEvents)
	last := manualEvents[len(manualEvents)-1]
	payload := last.Payload.(events.ComplaintAssignedPayload)
	assert.Equal(t, domain.AssignmentSourceManual, payload.Source)
}

func TestUpdateWritesManualProvenanceWithAssignee(t *testing.T) {
	svc, s, dispatcher := newComplaintService(t)
	owner := createAdminAccount(t, s, "chosen_admin", ptr("IT"), nil)
	complaint, err := svc.Create(context.Background(), submitInput("the office printer is jammed"))
	require.NoError(t, err)

	// Assignee and status land in one patch; the manual tag must arrive
	// together with the assignee, never in a separate later write.
	inProgress := domain.StatusInProgress
	updated, err := svc.Update(context.Background(), complaint.ID, store.ComplaintPatch{
		AssignedTo: &owner.ID,
		Status:     &inProgress,
	}, 1)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, updated.Status)
	require.NotNil(t, updated.AssignmentSource)
	assert.Equal(t, domain.AssignmentSourceManual, *updated.AssignmentSource)

	stored, err := svc.Get(context.Background(), complaint.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.UpdatedAt, stored.UpdatedAt)

	assigned := dispatcher.byType(events.EventComplaintAssigned)
	require.NotEmpty(t, assigned)
	payload := assigned[len(assigned)-1].Payload.(events.ComplaintAssignedPayload)
	assert.Equal(t, owner.ID, payload.AssigneeID)
	assert.Equal(t, domain.AssignmentSourceManual, payload.Source)
}

func TestUpdateStatusChangePublishesEvent(t *testing.T) {
	svc, _, dispatcher := newComplaintService(t)
	complaint, err := svc.Create(context.Background(), submitInput("the vpn keeps disconnecting"))
	require.NoError(t, err)

	resolved := domain.StatusResolved
	_, err = svc.Update(context.Background(), complaint.ID, store.ComplaintPatch{Status: &resolved}, 1)
	require.NoError(t, err)

	changes := dispatcher.byType(events.EventComplaintStatusChanged)
	require.Len(t, changes, 1)
	payload := changes[0].Payload.(events.ComplaintStatusChangedPayload)
	assert.Equal(t, domain.StatusPending, payload.OldStatus)
	assert.Equal(t, domain.StatusResolved, payload.NewStatus)
}

func TestListSearchAndPaging(t *testing.T) {
	svc, _, _ := newComplaintService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, submitInput("the office printer is jammed"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, submitInput("salary was short this month"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, submitInput("aircon in the meeting room leaks"))
	require.NoError(t, err)

	page, err := svc.List(ctx, ComplaintQuery{Search: "salary"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, second.ID, page.Items[0].ID)

	byID, err := svc.List(ctx, ComplaintQuery{Search: "#2"})
	require.NoError(t, err)
	require.Len(t, byID.Items, 1)
	assert.Equal(t, int64(2), byID.Items[0].ID)

	paged, err := svc.List(ctx, ComplaintQuery{Page: 2, PageSize: 2, Sort: "created_at", Order: "asc"})
	require.NoError(t, err)
	assert.Equal(t, 3, paged.Total)
	assert.Equal(t, 2, paged.TotalPages)
	require.Len(t, paged.Items, 1)
}

func TestAddNoteRequiresContent(t *testing.T) {
	svc, _, _ := newComplaintService(t)
	complaint, err := svc.Create(context.Background(), submitInput("the vpn keeps disconnecting"))
	require.NoError(t, err)
	author := domain.User{ID: 1, Username: "admin"}

	_, err = svc.AddNote(context.Background(), complaint.ID, author, "   ", false)
	require.Error(t, err)

	updated, err := svc.AddNote(context.Background(), complaint.ID, author, "escalated to network team", true)
	require.NoError(t, err)
	require.Len(t, updated.InternalNotes, 1)
	assert.Equal(t, "admin", updated.InternalNotes[0].AuthorName)
	assert.True(t, updated.InternalNotes[0].Pinned)
}

func TestClassifyOnDemandWritesBack(t *testing.T) {
	svc, s, _ := newComplaintService(t)
	complaint, err := svc.Create(context.Background(), submitInput("just some text with no signal"))
	require.NoError(t, err)

	verdict, err := svc.Classify(context.Background(), complaint.ID)
	require.NoError(t, err)

	stored, ok := s.GetComplaint(complaint.ID)
	require.True(t, ok)
	assert.Equal(t, verdict.Category, stored.Category)
	require.NotNil(t, stored.AIConfidence)
	assert.Equal(t, verdict.Confidence, *stored.AIConfidence)
}
