package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/store"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// UserService covers admin and employee account management.
type UserService struct {
	store  *store.Store
	plants []string
	logger *zap.Logger
}

// NewUserService creates the service.
func NewUserService(s *store.Store, plants []string, logger *zap.Logger) *UserService {
	return &UserService{store: s, plants: plants, logger: logger}
}

// CreateAccountInput carries fields for onboarding an admin or employee.
type CreateAccountInput struct {
	Username   string
	Email      string
	Password   string
	Department *string
	Plant      *string
}

func (u *UserService) validPlant(plant string) bool {
	for _, candidate := range u.plants {
		if candidate == plant {
			return true
		}
	}
	return false
}

func (u *UserService) validDepartment(department string) bool {
	_, found := u.store.GetCategoryByName(department)
	return found
}

func trimOptional(val *string) *string {
	if val == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (u *UserService) emailTaken(email string) bool {
	lowered := strings.ToLower(email)
	for _, existing := range u.store.ListUsers(nil) {
		if strings.ToLower(existing.Email) == lowered {
			return true
		}
	}
	return false
}

// createAccount validates shared constraints and onboards one account.
// The plaintext starter password is retained so a super admin can hand
// credentials to the new account holder.
func (u *UserService) createAccount(ctx context.Context, actorID int64, input CreateAccountInput, role domain.Role) (domain.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if input.Username == "" || input.Email == "" || input.Password == "" {
		return domain.User{}, apperrors.NewValidationError("username, email and password required", nil)
	}
	if u.emailTaken(input.Email) {
		return domain.User{}, apperrors.NewConflict("email already exists", map[string]any{"email": input.Email})
	}

	department := trimOptional(input.Department)
	plant := trimOptional(input.Plant)
	if department != nil && !u.validDepartment(*department) {
		return domain.User{}, apperrors.NewValidationError("invalid department selected", map[string]any{"department": *department})
	}
	if plant != nil && !u.validPlant(*plant) {
		return domain.User{}, apperrors.NewValidationError("invalid plant selected", map[string]any{"plant": *plant})
	}

	user, err := u.store.CreateUser(store.CreateUserInput{
		Username:        input.Username,
		Email:           input.Email,
		Password:        input.Password,
		Role:            role,
		Department:      department,
		Plant:           plant,
		InitialPassword: input.Password,
	})
	if err != nil {
		return domain.User{}, err
	}

	u.store.LogAction(store.LogActionInput{
		UserID:     actorID,
		Action:     "user_created",
		EntityType: "user",
		EntityID:   &user.ID,
		Details:    map[string]string{"username": user.Username, "role": string(role)},
	})
	u.logger.Info("account created",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("role", string(role)))
	return user, nil
}

// CreateAdmin onboards a department administrator.
func (u *UserService) CreateAdmin(ctx context.Context, actorID int64, input CreateAccountInput) (domain.User, error) {
	return u.createAccount(ctx, actorID, input, domain.RoleAdmin)
}

// CreateEmployee onboards a department employee.
func (u *UserService) CreateEmployee(ctx context.Context, actorID int64, input CreateAccountInput) (domain.User, error) {
	return u.createAccount(ctx, actorID, input, domain.RoleUser)
}

// ListAdmins returns active and deactivated admin accounts.
func (u *UserService) ListAdmins(ctx context.Context) []domain.User {
	role := domain.RoleAdmin
	return u.store.ListUsers(&role)
}

// List returns all accounts, optionally filtered by role.
func (u *UserService) List(ctx context.Context, role *domain.Role) []domain.User {
	return u.store.ListUsers(role)
}

// Get returns one account.
func (u *UserService) Get(ctx context.Context, id int64) (domain.User, error) {
	user, found := u.store.GetUser(id)
	if !found {
		return domain.User{}, apperrors.NewNotFound("user", map[string]any{"user_id": id})
	}
	return user, nil
}

// Update applies a validated patch to an account.
func (u *UserService) Update(ctx context.Context, actorID, id int64, patch store.UserPatch) (domain.User, error) {
	if patch.Department != nil && *patch.Department != "" && !u.validDepartment(*patch.Department) {
		return domain.User{}, apperrors.NewValidationError("invalid department selected", map[string]any{"department": *patch.Department})
	}
	if patch.Plant != nil && *patch.Plant != "" && !u.validPlant(*patch.Plant) {
		return domain.User{}, apperrors.NewValidationError("invalid plant selected", map[string]any{"plant": *patch.Plant})
	}
	user, err := u.store.UpdateUser(id, patch)
	if err != nil {
		return domain.User{}, err
	}
	u.store.LogAction(store.LogActionInput{
		UserID:     actorID,
		Action:     "user_updated",
		EntityType: "user",
		EntityID:   &id,
	})
	return user, nil
}

// Deactivate soft-removes an account. A super admin can deactivate any
// account but their own; a regular admin only employees in their own
// department and plant.
func (u *UserService) Deactivate(ctx context.Context, actor domain.User, id int64) error {
	target, found := u.store.GetUser(id)
	if !found {
		return apperrors.NewNotFound("user", map[string]any{"user_id": id})
	}

	if actor.Role == domain.RoleSuperAdmin {
		if actor.ID == id {
			return apperrors.NewValidationError("cannot deactivate yourself", nil)
		}
	} else {
		if target.Role != domain.RoleUser {
			return apperrors.NewForbidden("only employees can be removed by admins")
		}
		if !sameOptional(actor.Department, target.Department) || !sameOptional(actor.Plant, target.Plant) {
			return apperrors.NewForbidden("employee belongs to another department or plant")
		}
	}

	if err := u.store.DeactivateUser(id); err != nil {
		return err
	}
	u.store.LogAction(store.LogActionInput{
		UserID:     actor.ID,
		Action:     "user_deactivated",
		EntityType: "user",
		EntityID:   &id,
		Details:    map[string]string{"username": target.Username},
	})
	return nil
}

func sameOptional(a, b *string) bool {
	av, bv := "", ""
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Plants returns the configured plant codes.
func (u *UserService) Plants(ctx context.Context) []string {
	out := make([]string, len(u.plants))
	copy(out, u.plants)
	return out
}

// Departments returns the distinct category names, sorted.
func (u *UserService) Departments(ctx context.Context) []string {
	categories := u.store.ListCategories()
	names := make([]string, 0, len(categories))
	for _, category := range categories {
		names = append(names, category.Name)
	}
	sort.Strings(names)
	return names
}
