package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedback-service/internal/api/dto"
	"github.com/spec-kit/feedback-service/internal/auth"
	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/service"
	"github.com/spec-kit/feedback-service/internal/store"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// AdminHandler covers account, category and audit administration.
type AdminHandler struct {
	users      *service.UserService
	categories *service.CategoryService
	store      *store.Store
}

// NewAdminHandler constructs handler.
func NewAdminHandler(users *service.UserService, categories *service.CategoryService, s *store.Store) *AdminHandler {
	return &AdminHandler{users: users, categories: categories, store: s}
}

// ListAdmins GET /api/admins.
func (h *AdminHandler) ListAdmins(c *fiber.Ctx) error {
	admins := h.users.ListAdmins(c.UserContext())
	items := make([]dto.AdminResponse, 0, len(admins))
	for _, admin := range admins {
		items = append(items, adminResponse(admin))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateAdmin POST /api/admins.
func (h *AdminHandler) CreateAdmin(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AdminCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.users.CreateAdmin(c.UserContext(), principal.User.ID, service.CreateAccountInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		Department: req.Department,
		Plant:      req.Plant,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": adminResponse(user)})
}

// CreateEmployee POST /api/departments/:department/:plant/employees.
func (h *AdminHandler) CreateEmployee(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	department := c.Params("department")
	plant := c.Params("plant")
	if principal.User.Role != domain.RoleSuperAdmin {
		if !optionalEquals(principal.User.Department, department) || !optionalEquals(principal.User.Plant, plant) {
			return apperrors.NewForbidden("employees can only be added to your own department and plant")
		}
	}

	var req dto.EmployeeCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.users.CreateEmployee(c.UserContext(), principal.User.ID, service.CreateAccountInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		Department: &department,
		Plant:      &plant,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": adminResponse(user)})
}

// ListUsers GET /api/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	var role *domain.Role
	if raw := c.Query("role"); raw != "" {
		parsed := domain.Role(raw)
		role = &parsed
	}
	users := h.users.List(c.UserContext(), role)
	items := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		items = append(items, userResponse(user))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateUser PUT /api/users/:id.
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UserUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	patch := store.UserPatch{
		Email:      req.Email,
		Department: req.Department,
		Plant:      req.Plant,
		ManagerID:  req.ManagerID,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		patch.Role = &role
	}
	user, err := h.users.Update(c.UserContext(), principal.User.ID, id, patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// DeactivateUser DELETE /api/users/:id.
func (h *AdminHandler) DeactivateUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.users.Deactivate(c.UserContext(), principal.User, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListPlants GET /api/plants.
func (h *AdminHandler) ListPlants(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.users.Plants(c.UserContext())})
}

// ListDepartments GET /api/departments/names.
func (h *AdminHandler) ListDepartments(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.users.Departments(c.UserContext())})
}

// ListCategories GET /api/categories.
func (h *AdminHandler) ListCategories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.categories.List(c.UserContext())})
}

// CreateCategory POST /api/categories.
func (h *AdminHandler) CreateCategory(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CategoryCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	category, err := h.categories.Create(c.UserContext(), principal.User.ID, req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": category})
}

// DeleteCategory DELETE /api/categories/:name.
func (h *AdminHandler) DeleteCategory(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	name := c.Params("name")
	if err := h.categories.Delete(c.UserContext(), principal.User.ID, name); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListAuditLogs GET /api/logs.
func (h *AdminHandler) ListAuditLogs(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.store.ListAuditLogs()})
}

func optionalEquals(val *string, expected string) bool {
	return val != nil && *val == expected
}
