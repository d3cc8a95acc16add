package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/store"
)

func newUserService(t *testing.T) (*UserService, *store.Store) {
	t.Helper()
	s := newServiceStore(t)
	for _, name := range []string{"HR", "IT", "Payroll"} {
		_, err := s.CreateCategory(name, "")
		require.NoError(t, err)
	}
	return NewUserService(s, testPlants, zap.NewNop()), s
}

func TestCreateAdminValidations(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.CreateAdmin(ctx, 1, CreateAccountInput{Username: "", Email: "x@example.com", Password: "pw"})
	require.Error(t, err, "username required")

	_, err = svc.CreateAdmin(ctx, 1, CreateAccountInput{Username: "a", Email: "a@example.com", Password: "pw", Department: ptr("Legal")})
	require.Error(t, err, "department must be an existing category")

	_, err = svc.CreateAdmin(ctx, 1, CreateAccountInput{Username: "a", Email: "a@example.com", Password: "pw", Plant: ptr("P9")})
	require.Error(t, err, "plant must be configured")

	admin, err := svc.CreateAdmin(ctx, 1, CreateAccountInput{Username: "a", Email: "a@example.com", Password: "pw", Department: ptr("IT"), Plant: ptr("P1")})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.Equal(t, "pw", admin.InitialPassword)
}

func TestCreateEmployeeRejectsDuplicateEmailCaseInsensitive(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.CreateEmployee(ctx, 1, CreateAccountInput{Username: "first", Email: "worker@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.CreateEmployee(ctx, 1, CreateAccountInput{Username: "second", Email: "WORKER@Example.com", Password: "pw"})
	require.Error(t, err)
}

func TestDeactivatePermissions(t *testing.T) {
	svc, s := newUserService(t)
	ctx := context.Background()

	super, err := s.CreateUser(store.CreateUserInput{Username: "root", Password: "pw", Role: domain.RoleSuperAdmin})
	require.NoError(t, err)
	admin := createAdminAccount(t, s, "it_admin", ptr("IT"), ptr("P1"))
	sameTeam, err := svc.CreateEmployee(ctx, super.ID, CreateAccountInput{Username: "emp1", Email: "e1@example.com", Password: "pw", Department: ptr("IT"), Plant: ptr("P1")})
	require.NoError(t, err)
	otherTeam, err := svc.CreateEmployee(ctx, super.ID, CreateAccountInput{Username: "emp2", Email: "e2@example.com", Password: "pw", Department: ptr("HR"), Plant: ptr("P1")})
	require.NoError(t, err)

	// Super admins can remove anyone but themselves.
	require.Error(t, svc.Deactivate(ctx, super, super.ID))
	require.NoError(t, svc.Deactivate(ctx, super, otherTeam.ID))

	// Admins cannot remove other admins, or employees outside their own
	// department and plant.
	require.Error(t, svc.Deactivate(ctx, admin, super.ID))
	require.Error(t, svc.Deactivate(ctx, admin, otherTeam.ID))
	require.NoError(t, svc.Deactivate(ctx, admin, sameTeam.ID))

	stored, ok := s.GetUser(sameTeam.ID)
	require.True(t, ok)
	assert.False(t, stored.Active)
}

func TestUpdateValidatesDepartmentAndPlant(t *testing.T) {
	svc, s := newUserService(t)
	ctx := context.Background()
	user := createAdminAccount(t, s, "it_admin", ptr("IT"), nil)

	_, err := svc.Update(ctx, 1, user.ID, store.UserPatch{Department: ptr("Legal")})
	require.Error(t, err)
	_, err = svc.Update(ctx, 1, user.ID, store.UserPatch{Plant: ptr("P9")})
	require.Error(t, err)

	updated, err := svc.Update(ctx, 1, user.ID, store.UserPatch{Department: ptr("Payroll"), Plant: ptr("P2")})
	require.NoError(t, err)
	assert.Equal(t, "Payroll", *updated.Department)
	assert.Equal(t, "P2", *updated.Plant)
}

func TestDepartmentsAreSortedCategoryNames(t *testing.T) {
	svc, _ := newUserService(t)

	assert.Equal(t, []string{"HR", "IT", "Payroll"}, svc.Departments(context.Background()))
}

func TestPlantsReturnsCopy(t *testing.T) {
	svc, _ := newUserService(t)

	plants := svc.Plants(context.Background())
	plants[0] = "mutated"

	assert.Equal(t, "P1", svc.Plants(context.Background())[0])
}
