package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedback-service/internal/api/dto"
	"github.com/spec-kit/feedback-service/internal/auth"
	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/service"
	"github.com/spec-kit/feedback-service/internal/store"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// ComplaintsHandler manages complaint endpoints.
type ComplaintsHandler struct {
	service *service.ComplaintService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaintService *service.ComplaintService) *ComplaintsHandler {
	return &ComplaintsHandler{service: complaintService}
}

// Create POST /api/complaints. Submission is public.
func (h *ComplaintsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.ComplaintText) == "" {
		return apperrors.NewValidationError("complaint_text required", nil)
	}
	if strings.TrimSpace(req.EmpID) == "" || strings.TrimSpace(req.Email) == "" {
		return apperrors.NewValidationError("emp_id and email required", nil)
	}

	complaint, err := h.service.Create(c.UserContext(), store.CreateComplaintInput{
		EmpID:         req.EmpID,
		Email:         req.Email,
		Phone:         req.Phone,
		ComplaintText: req.ComplaintText,
		Plant:         req.Plant,
		SourceChannel: req.SourceChannel,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": complaint})
}

// List GET /api/complaints.
func (h *ComplaintsHandler) List(c *fiber.Ctx) error {
	page, err := h.service.List(c.UserContext(), parseComplaintQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": page})
}

// Get GET /api/complaints/:id.
func (h *ComplaintsHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	complaint, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaint})
}

// Update PUT /api/complaints/:id.
func (h *ComplaintsHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	patch := store.ComplaintPatch{
		AssignedTo:   req.AssignedTo,
		AIConfidence: req.Confidence,
	}
	if req.Kind != nil {
		kind := domain.ComplaintKind(*req.Kind)
		patch.Kind = &kind
	}
	if req.Category != nil {
		patch.Category = req.Category
	}
	if req.Priority != nil {
		priority := domain.Priority(*req.Priority)
		patch.Priority = &priority
	}
	if req.Status != nil {
		status := domain.ComplaintStatus(*req.Status)
		patch.Status = &status
	}

	complaint, err := h.service.Update(c.UserContext(), id, patch, principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaint})
}

// Delete DELETE /api/complaints/:id.
func (h *ComplaintsHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.Delete(c.UserContext(), id, principal.User.ID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Classify POST /api/complaints/:id/classify re-runs classification.
func (h *ComplaintsHandler) Classify(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	verdict, err := h.service.Classify(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": verdict})
}

// Suggestions GET /api/complaints/:id/suggestions.
func (h *ComplaintsHandler) Suggestions(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	suggestions, err := h.service.SuggestCategories(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": suggestions})
}

// Summary GET /api/complaints/:id/summary.
func (h *ComplaintsHandler) Summary(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	insight, err := h.service.Summarize(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": insight})
}

// Assist GET /api/complaints/:id/assist drafts a suggested reply.
func (h *ComplaintsHandler) Assist(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	assistance, err := h.service.Assist(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assistance})
}

// AddNote POST /api/complaints/:id/notes.
func (h *ComplaintsHandler) AddNote(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AddNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	complaint, err := h.service.AddNote(c.UserContext(), id, principal.User, req.Content, req.Pinned)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": complaint})
}

// Watch POST /api/complaints/:id/watch subscribes the caller.
func (h *ComplaintsHandler) Watch(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	complaint, err := h.service.Watch(c.UserContext(), id, principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaint})
}

func parseComplaintQuery(c *fiber.Ctx) service.ComplaintQuery {
	query := service.ComplaintQuery{
		Search:   c.Query("search"),
		Sort:     c.Query("sort", "created_at"),
		Order:    c.Query("order", "desc"),
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("page_size"), 25),
	}
	if status := c.Query("status"); status != "" {
		parsed := domain.ComplaintStatus(status)
		query.Filter.Status = &parsed
	}
	if priority := c.Query("priority"); priority != "" {
		parsed := domain.Priority(priority)
		query.Filter.Priority = &parsed
	}
	if kind := c.Query("kind"); kind != "" {
		parsed := domain.ComplaintKind(kind)
		query.Filter.Kind = &parsed
	}
	if category := c.Query("category"); category != "" {
		query.Filter.Category = &category
	}
	if plant := c.Query("plant"); plant != "" {
		query.Filter.Plant = &plant
	}
	if empID := c.Query("emp_id"); empID != "" {
		query.Filter.EmpID = &empID
	}
	if assigned := c.Query("assigned_to"); assigned != "" {
		if id, err := strconv.ParseInt(assigned, 10, 64); err == nil {
			query.Filter.AssignedTo = &id
		}
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		query.Filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		query.Filter.CreatedTo = to
	}
	return query
}

func parseID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid identifier", map[string]any{"param": name})
	}
	return id, nil
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
