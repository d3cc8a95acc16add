package routing

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/store"
)

func strPtr(v string) *string { return &v }

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	s, err := store.Open(store.Options{
		SnapshotPath: filepath.Join(t.TempDir(), "db.json"),
		BcryptCost:   bcrypt.MinCost,
		SkipSeed:     true,
	})
	require.NoError(t, err)
	return NewEngine(s, nil, zap.NewNop()), s
}

func addAdmin(t *testing.T, s *store.Store, username string, department, plant *string) domain.User {
	t.Helper()
	user, err := s.CreateUser(store.CreateUserInput{
		Username:   username,
		Email:      username + "@example.com",
		Password:   "pw",
		Role:       domain.RoleAdmin,
		Department: department,
		Plant:      plant,
	})
	require.NoError(t, err)
	return user
}

func submit(t *testing.T, s *store.Store, text, category string, priority domain.Priority, plant *string) domain.Complaint {
	t.Helper()
	complaint, err := s.CreateComplaint(store.CreateComplaintInput{
		EmpID:         "EMP1001",
		Email:         "emp@example.com",
		ComplaintText: text,
		Category:      category,
		Priority:      priority,
		Plant:         plant,
	})
	require.NoError(t, err)
	return complaint
}

func TestApplyKeywordRuleBeatsCategoryRouting(t *testing.T) {
	engine, s := newTestEngine(t)
	specialist := addAdmin(t, s, "network_specialist", strPtr("IT"), nil)
	addAdmin(t, s, "it_lead", strPtr("IT"), nil)
	complaint := submit(t, s, "the vpn keeps dropping during meetings", "IT", domain.PriorityUrgent, nil)

	routed, err := engine.Apply(complaint)

	require.NoError(t, err)
	require.NotNil(t, routed.AssignedTo)
	assert.Equal(t, specialist.ID, *routed.AssignedTo)
	require.NotNil(t, routed.AssignmentSource)
	assert.Equal(t, "auto:vpn-network-specialist", *routed.AssignmentSource)
	require.NotNil(t, routed.AssignmentNotes)
	assert.Contains(t, *routed.AssignmentNotes, "Network Specialist")
}

func TestApplyUrgentITRule(t *testing.T) {
	engine, s := newTestEngine(t)
	lead := addAdmin(t, s, "it_lead", strPtr("IT"), nil)
	complaint := submit(t, s, "laptop battery swollen and smoking", "IT", domain.PriorityUrgent, nil)

	routed, err := engine.Apply(complaint)

	require.NoError(t, err)
	require.NotNil(t, routed.AssignedTo)
	assert.Equal(t, lead.ID, *routed.AssignedTo)
	assert.Equal(t, "auto:it-urgent", *routed.AssignmentSource)
}

func TestApplyPlantRoutingPrefersPlantAdmin(t *testing.T) {
	engine, s := newTestEngine(t)
	addAdmin(t, s, "facilities_global", strPtr("Facilities"), nil)
	p2Admin := addAdmin(t, s, "facilities_p2", strPtr("Facilities"), strPtr("P2"))
	complaint := submit(t, s, "meeting room chairs are broken", "Facilities", domain.PriorityNormal, strPtr("P2"))

	routed, err := engine.Apply(complaint)

	require.NoError(t, err)
	require.NotNil(t, routed.AssignedTo)
	assert.Equal(t, p2Admin.ID, *routed.AssignedTo)
	assert.Equal(t, "auto:plant-routing-facilities-p2", *routed.AssignmentSource)
	assert.Contains(t, *routed.AssignmentNotes, "plant P2")
}

func TestApplyFallsBackToServiceDesk(t *testing.T) {
	engine, s := newTestEngine(t)
	desk := addAdmin(t, s, "service_desk", nil, nil)
	complaint := submit(t, s, "something vague happened", domain.CategoryUnclassified, domain.PriorityNormal, nil)

	routed, err := engine.Apply(complaint)

	require.NoError(t, err)
	require.NotNil(t, routed.AssignedTo)
	assert.Equal(t, desk.ID, *routed.AssignedTo)
	assert.Equal(t, "auto:service-desk-default", *routed.AssignmentSource)
}

func TestApplyLeavesManualAssignmentsAlone(t *testing.T) {
	engine, s := newTestEngine(t)
	addAdmin(t, s, "network_specialist", strPtr("IT"), nil)
	owner := addAdmin(t, s, "chosen_admin", strPtr("IT"), nil)
	complaint := submit(t, s, "vpn outage on the factory floor", "IT", domain.PriorityUrgent, nil)
	manual := "manual"
	complaint, err := s.UpdateComplaint(complaint.ID, store.ComplaintPatch{
		AssignedTo:       &owner.ID,
		AssignmentSource: &manual,
	})
	require.NoError(t, err)

	routed, err := engine.Apply(complaint)

	require.NoError(t, err)
	require.NotNil(t, routed.AssignedTo)
	assert.Equal(t, owner.ID, *routed.AssignedTo)
	assert.Equal(t, "manual", *routed.AssignmentSource)
}

func TestApplyIsIdempotent(t *testing.T) {
	engine, s := newTestEngine(t)
	addAdmin(t, s, "network_specialist", strPtr("IT"), nil)
	complaint := submit(t, s, "vpn keeps disconnecting", "IT", domain.PriorityNormal, nil)

	first, err := engine.Apply(complaint)
	require.NoError(t, err)
	second, err := engine.Apply(first)
	require.NoError(t, err)

	assert.Equal(t, *first.AssignedTo, *second.AssignedTo)
	assert.Equal(t, *first.AssignmentSource, *second.AssignmentSource)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt, "a settled assignment triggers no further writes")
}

func TestApplyFallsThroughWhenKeywordTargetMissing(t *testing.T) {
	engine, s := newTestEngine(t)
	// The keyword rule matches but network_specialist does not exist;
	// evaluation continues down to plant routing for the IT department.
	itAdmin := addAdmin(t, s, "it_admin", strPtr("IT"), nil)
	complaint := submit(t, s, "vpn is down again", "IT", domain.PriorityNormal, nil)

	routed, err := engine.Apply(complaint)

	require.NoError(t, err)
	require.NotNil(t, routed.AssignedTo)
	assert.Equal(t, itAdmin.ID, *routed.AssignedTo)
	assert.Equal(t, "auto:plant-routing-it-global", *routed.AssignmentSource)
}

func TestApplyUnresolvedKeywordTargetReachesServiceDesk(t *testing.T) {
	engine, s := newTestEngine(t)
	desk := addAdmin(t, s, "service_desk", nil, nil)
	complaint := submit(t, s, "vpn is down again", domain.CategoryUnclassified, domain.PriorityNormal, nil)

	routed, err := engine.Apply(complaint)

	require.NoError(t, err)
	require.NotNil(t, routed.AssignedTo)
	assert.Equal(t, desk.ID, *routed.AssignedTo)
	assert.Equal(t, "auto:service-desk-default", *routed.AssignmentSource)
}

func TestRefreshAllPicksUpNewTargets(t *testing.T) {
	engine, s := newTestEngine(t)
	complaint := submit(t, s, "vpn is down again", domain.CategoryUnclassified, domain.PriorityNormal, nil)

	routed, err := engine.Apply(complaint)
	require.NoError(t, err)
	require.Nil(t, routed.AssignedTo)

	specialist := addAdmin(t, s, "network_specialist", strPtr("IT"), nil)
	require.NoError(t, engine.RefreshAll())

	stored, ok := s.GetComplaint(complaint.ID)
	require.True(t, ok)
	require.NotNil(t, stored.AssignedTo)
	assert.Equal(t, specialist.ID, *stored.AssignedTo)
}
