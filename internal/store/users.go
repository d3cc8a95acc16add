package store

import (
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/feedback-service/internal/domain"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// CreateUserInput carries the fields required for onboarding an account.
type CreateUserInput struct {
	Username        string
	Email           string
	Password        string
	Role            domain.Role
	Department      *string
	Plant           *string
	ManagerID       *int64
	InitialPassword string
}

// UserPatch is an explicit partial update; nil fields are left untouched.
type UserPatch struct {
	Email        *string
	PasswordHash *string
	Role         *domain.Role
	Department   *string
	Plant        *string
	ManagerID    *int64
}

// CreateUser onboards an account, hashing the supplied password.
func (s *Store) CreateUser(input CreateUserInput) (domain.User, error) {
	if strings.TrimSpace(input.Username) == "" {
		return domain.User{}, apperrors.NewValidationError("username required", nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return domain.User{}, err
	}
	initial := input.InitialPassword
	if initial == "" {
		initial = input.Password
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == input.Username {
			return domain.User{}, apperrors.NewConflict("username taken", map[string]any{"username": input.Username})
		}
	}
	ts := now()
	user := domain.User{
		ID:              s.nextIDLocked(bucketUsers),
		Username:        input.Username,
		Email:           input.Email,
		PasswordHash:    string(hash),
		Role:            input.Role,
		Department:      input.Department,
		Plant:           input.Plant,
		ManagerID:       input.ManagerID,
		InitialPassword: initial,
		Active:          true,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	s.users[user.ID] = user
	s.persistLocked()
	return user, nil
}

// GetUser returns one account by id.
func (s *Store) GetUser(id int64) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	return user, ok
}

// GetUserByUsername returns one account by its unique name.
func (s *Store) GetUserByUsername(username string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Username == username {
			return user, true
		}
	}
	return domain.User{}, false
}

// UpdateUser applies a validated patch to an account.
func (s *Store) UpdateUser(id int64, patch UserPatch) (domain.User, error) {
	if patch.Role != nil {
		switch *patch.Role {
		case domain.RoleUser, domain.RoleAdmin, domain.RoleSuperAdmin, domain.RoleEmployee:
		default:
			return domain.User{}, apperrors.NewValidationError("invalid role", map[string]any{"role": *patch.Role})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, apperrors.NewNotFound("user", map[string]any{"user_id": id})
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.PasswordHash != nil {
		user.PasswordHash = *patch.PasswordHash
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	if patch.Department != nil {
		user.Department = patch.Department
	}
	if patch.Plant != nil {
		user.Plant = patch.Plant
	}
	if patch.ManagerID != nil {
		user.ManagerID = patch.ManagerID
	}
	user.UpdatedAt = now()
	s.users[id] = user
	s.persistLocked()
	return user, nil
}

// DeactivateUser soft-removes an account. Accounts referenced by historical
// records are never hard-deleted.
func (s *Store) DeactivateUser(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return apperrors.NewNotFound("user", map[string]any{"user_id": id})
	}
	if user.Active {
		ts := now()
		user.Active = false
		user.DeactivatedAt = &ts
		user.UpdatedAt = ts
		s.users[id] = user
		s.persistLocked()
	}
	return nil
}

// ListUsers returns all accounts, optionally filtered by role, ordered by id.
func (s *Store) ListUsers(role *domain.Role) []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		if role != nil && user.Role != *role {
			continue
		}
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindAdminForCategory locates the administrator owning a category
// (department), preferring one scoped to the given plant, then one with no
// plant restriction, then the earliest-onboarded admin in that department.
func (s *Store) FindAdminForCategory(category string, plant *string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var admins []domain.User
	for _, user := range s.users {
		if user.Role != domain.RoleAdmin || !user.Active {
			continue
		}
		if user.Department == nil || *user.Department != category {
			continue
		}
		admins = append(admins, user)
	}
	if len(admins) == 0 {
		return domain.User{}, false
	}
	byOnboarding := func(candidates []domain.User) domain.User {
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		})
		return candidates[0]
	}

	if plant != nil && *plant != "" {
		var plantSpecific []domain.User
		for _, admin := range admins {
			if admin.Plant != nil && *admin.Plant == *plant {
				plantSpecific = append(plantSpecific, admin)
			}
		}
		if len(plantSpecific) > 0 {
			return byOnboarding(plantSpecific), true
		}
	}
	var global []domain.User
	for _, admin := range admins {
		if admin.Plant == nil || *admin.Plant == "" {
			global = append(global, admin)
		}
	}
	if len(global) > 0 {
		return byOnboarding(global), true
	}
	return byOnboarding(admins), true
}
