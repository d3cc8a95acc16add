package store

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/feedback-service/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{
		SnapshotPath: filepath.Join(t.TempDir(), "db.json"),
		UploadDir:    t.TempDir(),
		BcryptCost:   bcrypt.MinCost,
		SkipSeed:     true,
	})
	require.NoError(t, err)
	return s
}

func reopen(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(Options{SnapshotPath: path, BcryptCost: bcrypt.MinCost, SkipSeed: true})
	require.NoError(t, err)
	return s
}

func mustCreateComplaint(t *testing.T, s *Store, text string) domain.Complaint {
	t.Helper()
	complaint, err := s.CreateComplaint(CreateComplaintInput{
		EmpID:         "EMP1001",
		Email:         "emp1001@example.com",
		ComplaintText: text,
	})
	require.NoError(t, err)
	return complaint
}

func TestCreateComplaintDefaults(t *testing.T) {
	s := newTestStore(t)

	complaint := mustCreateComplaint(t, s, "the vpn is down")

	assert.Equal(t, int64(1), complaint.ID)
	assert.Equal(t, domain.KindComplaint, complaint.Kind)
	assert.Equal(t, domain.CategoryUnclassified, complaint.Category)
	assert.Equal(t, domain.PriorityNormal, complaint.Priority)
	assert.Equal(t, domain.StatusPending, complaint.Status)
	assert.Equal(t, "web", complaint.SourceChannel)
	assert.NotNil(t, complaint.AttachmentIDs)
	assert.Empty(t, complaint.AttachmentIDs)
}

func TestComplaintCopiesKeepEmptySlices(t *testing.T) {
	s := newTestStore(t)
	created := mustCreateComplaint(t, s, "the vpn is down")

	stored, ok := s.GetComplaint(created.ID)
	require.True(t, ok)

	// Empty lists must stay non-nil so they serialize as [] and not null.
	assert.NotNil(t, stored.AttachmentIDs)
	assert.NotNil(t, stored.InternalNotes)
	assert.NotNil(t, stored.Watchers)

	encoded, err := json.Marshal(stored)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"attachment_ids":[]`)
}

func TestLogActionDetachesDetailsFromCaller(t *testing.T) {
	s := newTestStore(t)

	details := map[string]string{"status": "Pending"}
	entry := s.LogAction(LogActionInput{UserID: 1, Action: "complaint_updated", EntityType: "complaint", Details: details})
	details["status"] = "Resolved"
	entry.Details["action"] = "tampered"

	logs := s.ListAuditLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, map[string]string{"status": "Pending"}, logs[0].Details)
}

func TestCreateComplaintRequiresText(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateComplaint(CreateComplaintInput{ComplaintText: "   "})

	require.Error(t, err)
}

func TestUpdateComplaintRejectsInvalidPatch(t *testing.T) {
	s := newTestStore(t)
	complaint := mustCreateComplaint(t, s, "the vpn is down")

	badStatus := domain.ComplaintStatus("closed")
	_, err := s.UpdateComplaint(complaint.ID, ComplaintPatch{Status: &badStatus})
	require.Error(t, err)

	over := 1.5
	_, err = s.UpdateComplaint(complaint.ID, ComplaintPatch{AIConfidence: &over})
	require.Error(t, err)
}

func TestFirstResponseStampedOnceByReplies(t *testing.T) {
	s := newTestStore(t)
	complaint := mustCreateComplaint(t, s, "the vpn is down")

	first, err := s.CreateReply(CreateReplyInput{ComplaintID: complaint.ID, AdminID: 1, ReplyText: "looking into it"})
	require.NoError(t, err)
	_, err = s.CreateReply(CreateReplyInput{ComplaintID: complaint.ID, AdminID: 1, ReplyText: "fixed"})
	require.NoError(t, err)

	stored, ok := s.GetComplaint(complaint.ID)
	require.True(t, ok)
	require.NotNil(t, stored.FirstResponseAt)
	assert.Equal(t, first.CreatedAt, *stored.FirstResponseAt)
}

func TestFirstResponsePatchIsWriteOnce(t *testing.T) {
	s := newTestStore(t)
	complaint := mustCreateComplaint(t, s, "the vpn is down")

	initial := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	later := initial.Add(2 * time.Hour)

	_, err := s.UpdateComplaint(complaint.ID, ComplaintPatch{FirstResponseAt: &initial})
	require.NoError(t, err)
	updated, err := s.UpdateComplaint(complaint.ID, ComplaintPatch{FirstResponseAt: &later})
	require.NoError(t, err)

	require.NotNil(t, updated.FirstResponseAt)
	assert.Equal(t, initial, *updated.FirstResponseAt)
}

func TestResolvedAtComputesResolutionTime(t *testing.T) {
	s := newTestStore(t)
	complaint := mustCreateComplaint(t, s, "the vpn is down")

	resolvedAt := complaint.CreatedAt.Add(5 * time.Hour)
	updated, err := s.UpdateComplaint(complaint.ID, ComplaintPatch{ResolvedAt: &resolvedAt})
	require.NoError(t, err)

	require.NotNil(t, updated.ResolutionTimeHours)
	assert.InDelta(t, 5.0, *updated.ResolutionTimeHours, 0.001)
}

func TestDeleteComplaintCascades(t *testing.T) {
	s := newTestStore(t)
	complaint := mustCreateComplaint(t, s, "the vpn is down")
	reply, err := s.CreateReply(CreateReplyInput{ComplaintID: complaint.ID, AdminID: 1, ReplyText: "on it"})
	require.NoError(t, err)
	direct, err := s.CreateAttachment(CreateAttachmentInput{ComplaintID: complaint.ID, FileName: "log.txt"})
	require.NoError(t, err)
	onReply, err := s.CreateAttachment(CreateAttachmentInput{ComplaintID: complaint.ID, ReplyID: &reply.ID, FileName: "fix.png"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteComplaint(complaint.ID))

	_, ok := s.GetComplaint(complaint.ID)
	assert.False(t, ok)
	_, ok = s.GetReply(reply.ID)
	assert.False(t, ok)
	_, ok = s.GetAttachment(direct.ID)
	assert.False(t, ok)
	_, ok = s.GetAttachment(onReply.ID)
	assert.False(t, ok)
	assert.Empty(t, s.ListRepliesForComplaint(complaint.ID))
	assert.Empty(t, s.ListAttachmentsForComplaint(complaint.ID))
}

func TestDeleteReplyCascadesToItsAttachments(t *testing.T) {
	s := newTestStore(t)
	complaint := mustCreateComplaint(t, s, "the vpn is down")
	reply, err := s.CreateReply(CreateReplyInput{ComplaintID: complaint.ID, AdminID: 1, ReplyText: "on it"})
	require.NoError(t, err)
	direct, err := s.CreateAttachment(CreateAttachmentInput{ComplaintID: complaint.ID, FileName: "log.txt"})
	require.NoError(t, err)
	onReply, err := s.CreateAttachment(CreateAttachmentInput{ComplaintID: complaint.ID, ReplyID: &reply.ID, FileName: "fix.png"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteReply(reply.ID))

	_, ok := s.GetAttachment(onReply.ID)
	assert.False(t, ok)
	_, ok = s.GetAttachment(direct.ID)
	assert.True(t, ok, "attachments on the complaint itself survive")
	stored, ok := s.GetComplaint(complaint.ID)
	require.True(t, ok)
	assert.Equal(t, []int64{direct.ID}, stored.AttachmentIDs)
}

func TestAttachmentIDsMirroredOnComplaint(t *testing.T) {
	s := newTestStore(t)
	complaint := mustCreateComplaint(t, s, "the vpn is down")

	a1, err := s.CreateAttachment(CreateAttachmentInput{ComplaintID: complaint.ID, FileName: "a.txt"})
	require.NoError(t, err)
	a2, err := s.CreateAttachment(CreateAttachmentInput{ComplaintID: complaint.ID, FileName: "b.txt"})
	require.NoError(t, err)

	stored, _ := s.GetComplaint(complaint.ID)
	assert.Equal(t, []int64{a1.ID, a2.ID}, stored.AttachmentIDs)

	require.NoError(t, s.DeleteAttachment(a1.ID))
	stored, _ = s.GetComplaint(complaint.ID)
	assert.Equal(t, []int64{a2.ID}, stored.AttachmentIDs)
}

func TestFilterComplaints(t *testing.T) {
	s := newTestStore(t)
	plant := "P1"
	_, err := s.CreateComplaint(CreateComplaintInput{ComplaintText: "vpn down", Category: "IT", Plant: &plant})
	require.NoError(t, err)
	second, err := s.CreateComplaint(CreateComplaintInput{ComplaintText: "aircon broken", Category: "Facilities"})
	require.NoError(t, err)
	resolved := domain.StatusResolved
	_, err = s.UpdateComplaint(second.ID, ComplaintPatch{Status: &resolved})
	require.NoError(t, err)

	category := "IT"
	byCategory := s.FilterComplaints(ComplaintFilter{Category: &category})
	require.Len(t, byCategory, 1)
	assert.Equal(t, "IT", byCategory[0].Category)

	byStatus := s.FilterComplaints(ComplaintFilter{Status: &resolved})
	require.Len(t, byStatus, 1)
	assert.Equal(t, second.ID, byStatus[0].ID)

	byPlant := s.FilterComplaints(ComplaintFilter{Plant: &plant})
	require.Len(t, byPlant, 1)
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.json")
	s, err := Open(Options{SnapshotPath: path, BcryptCost: bcrypt.MinCost, SkipSeed: true})
	require.NoError(t, err)

	complaint := mustCreateComplaint(t, s, "the vpn is down")
	reply, err := s.CreateReply(CreateReplyInput{ComplaintID: complaint.ID, AdminID: 1, ReplyText: "on it"})
	require.NoError(t, err)
	user, err := s.CreateUser(CreateUserInput{Username: "it_lead", Email: "it@example.com", Password: "s3cret", Role: domain.RoleAdmin})
	require.NoError(t, err)

	restored := reopen(t, path)

	loadedComplaint, ok := restored.GetComplaint(complaint.ID)
	require.True(t, ok)
	assert.Equal(t, complaint.ComplaintText, loadedComplaint.ComplaintText)
	require.NotNil(t, loadedComplaint.FirstResponseAt)

	loadedReplies := restored.ListRepliesForComplaint(complaint.ID)
	require.Len(t, loadedReplies, 1)
	assert.Equal(t, reply.ReplyText, loadedReplies[0].ReplyText)

	loadedUser, ok := restored.GetUserByUsername("it_lead")
	require.True(t, ok)
	assert.Equal(t, user.ID, loadedUser.ID)
}

func TestCounterHighWaterSurvivesDeletes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.json")
	s, err := Open(Options{SnapshotPath: path, BcryptCost: bcrypt.MinCost, SkipSeed: true})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		complaint := mustCreateComplaint(t, s, "disposable")
		require.NoError(t, s.DeleteComplaint(complaint.ID))
	}

	restored := reopen(t, path)
	next := mustCreateComplaint(t, restored, "survivor")

	// Identifiers are never reused, even across restarts with an empty
	// collection.
	assert.Equal(t, int64(4), next.ID)
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateUser(CreateUserInput{Username: "admin", Password: "pw", Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = s.CreateUser(CreateUserInput{Username: "admin", Password: "pw2", Role: domain.RoleAdmin})
	require.Error(t, err)
}

func TestDeactivateUserIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	user, err := s.CreateUser(CreateUserInput{Username: "temp", Password: "pw", Role: domain.RoleUser})
	require.NoError(t, err)

	require.NoError(t, s.DeactivateUser(user.ID))
	require.NoError(t, s.DeactivateUser(user.ID))

	stored, ok := s.GetUser(user.ID)
	require.True(t, ok)
	assert.False(t, stored.Active)
	assert.NotNil(t, stored.DeactivatedAt)
}

func TestFindAdminForCategoryPreference(t *testing.T) {
	s := newTestStore(t)
	p1 := "P1"
	global, err := s.CreateUser(CreateUserInput{Username: "it_global", Password: "pw", Role: domain.RoleAdmin, Department: strPtr("IT")})
	require.NoError(t, err)
	scoped, err := s.CreateUser(CreateUserInput{Username: "it_p1", Password: "pw", Role: domain.RoleAdmin, Department: strPtr("IT"), Plant: &p1})
	require.NoError(t, err)
	_, err = s.CreateUser(CreateUserInput{Username: "payroll", Password: "pw", Role: domain.RoleAdmin, Department: strPtr("Payroll")})
	require.NoError(t, err)

	match, ok := s.FindAdminForCategory("IT", &p1)
	require.True(t, ok)
	assert.Equal(t, scoped.ID, match.ID, "plant-scoped admin wins for its plant")

	p9 := "P9"
	match, ok = s.FindAdminForCategory("IT", &p9)
	require.True(t, ok)
	assert.Equal(t, global.ID, match.ID, "unknown plant falls back to the unscoped admin")

	match, ok = s.FindAdminForCategory("IT", nil)
	require.True(t, ok)
	assert.Equal(t, global.ID, match.ID)

	_, ok = s.FindAdminForCategory("Safety", nil)
	assert.False(t, ok)
}

func TestFindAdminForCategorySkipsInactive(t *testing.T) {
	s := newTestStore(t)
	first, err := s.CreateUser(CreateUserInput{Username: "hr_one", Password: "pw", Role: domain.RoleAdmin, Department: strPtr("HR")})
	require.NoError(t, err)
	second, err := s.CreateUser(CreateUserInput{Username: "hr_two", Password: "pw", Role: domain.RoleAdmin, Department: strPtr("HR")})
	require.NoError(t, err)
	require.NoError(t, s.DeactivateUser(first.ID))

	match, ok := s.FindAdminForCategory("HR", nil)
	require.True(t, ok)
	assert.Equal(t, second.ID, match.ID)
}

func TestNotificationsUnreadFlow(t *testing.T) {
	s := newTestStore(t)
	userID := int64(7)
	s.CreateNotification(userID, "Assigned", "Case assigned to you", domain.NotificationInfo, nil)
	s.CreateNotification(userID, "Resolved", "Case resolved", domain.NotificationSuccess, nil)
	s.CreateNotification(99, "Other", "Not yours", domain.NotificationInfo, nil)

	assert.Equal(t, 2, s.CountUnreadNotifications(userID))

	listed := s.ListNotifications(&userID, nil, 0)
	require.Len(t, listed, 2)

	_, err := s.MarkNotificationRead(listed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, s.CountUnreadNotifications(userID))

	changed := s.MarkAllNotificationsRead(userID)
	assert.Equal(t, 1, changed)
	assert.Equal(t, 0, s.CountUnreadNotifications(userID))
	assert.Equal(t, 0, s.MarkAllNotificationsRead(userID))
}

func TestAddWatcherIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	complaint := mustCreateComplaint(t, s, "the vpn is down")

	_, err := s.AddWatcher(complaint.ID, 5)
	require.NoError(t, err)
	updated, err := s.AddWatcher(complaint.ID, 5)
	require.NoError(t, err)

	assert.Equal(t, []int64{5}, updated.Watchers)
}

func TestAddInternalNoteNumbersSequentially(t *testing.T) {
	s := newTestStore(t)
	complaint := mustCreateComplaint(t, s, "the vpn is down")

	_, err := s.AddInternalNote(complaint.ID, 1, "admin", "checking with network team", false)
	require.NoError(t, err)
	updated, err := s.AddInternalNote(complaint.ID, 1, "admin", "escalated", true)
	require.NoError(t, err)

	require.Len(t, updated.InternalNotes, 2)
	assert.Equal(t, int64(1), updated.InternalNotes[0].ID)
	assert.Equal(t, int64(2), updated.InternalNotes[1].ID)
	assert.True(t, updated.InternalNotes[1].Pinned)
}

func TestCategoryLifecycle(t *testing.T) {
	s := newTestStore(t)

	category, err := s.CreateCategory("IT", "systems")
	require.NoError(t, err)
	_, err = s.CreateCategory("IT", "dup")
	require.Error(t, err)

	byName, ok := s.GetCategoryByName("IT")
	require.True(t, ok)
	assert.Equal(t, category.ID, byName.ID)

	require.NoError(t, s.DeleteCategory(category.ID))
	_, ok = s.GetCategoryByName("IT")
	assert.False(t, ok)
}

func TestSeedDefaultsPopulatesFreshStore(t *testing.T) {
	s, err := Open(Options{
		SnapshotPath: filepath.Join(t.TempDir(), "db.json"),
		UploadDir:    t.TempDir(),
		BcryptCost:   bcrypt.MinCost,
	})
	require.NoError(t, err)

	_, ok := s.GetUserByUsername("superadmin")
	assert.True(t, ok)
	_, ok = s.GetUserByUsername("admin")
	assert.True(t, ok)

	assert.Len(t, s.ListCategories(), 6)

	complaints := s.ListComplaints()
	require.NotEmpty(t, complaints)

	payroll := s.FilterComplaints(ComplaintFilter{Category: strPtr("Payroll")})
	require.Len(t, payroll, 1)
	assert.NotNil(t, payroll[0].FirstResponseAt)
}

func TestCheckSnapshot(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.CheckSnapshot())

	pathless, err := Open(Options{BcryptCost: bcrypt.MinCost, SkipSeed: true})
	require.NoError(t, err)
	assert.NoError(t, pathless.CheckSnapshot())
}
