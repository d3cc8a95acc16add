package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedback-service/internal/api/dto"
	"github.com/spec-kit/feedback-service/internal/auth"
	"github.com/spec-kit/feedback-service/internal/service"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// RepliesHandler manages admin responses to complaints.
type RepliesHandler struct {
	service *service.ReplyService
}

// NewRepliesHandler constructs handler.
func NewRepliesHandler(replyService *service.ReplyService) *RepliesHandler {
	return &RepliesHandler{service: replyService}
}

// Create POST /api/complaints/:id/replies.
func (h *RepliesHandler) Create(c *fiber.Ctx) error {
	complaintID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	reply, err := h.service.Create(c.UserContext(), service.ReplyInput{
		ComplaintID: complaintID,
		ReplyText:   req.ReplyText,
		SendEmail:   req.SendEmail,
	}, principal.User)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": reply})
}

// List GET /api/complaints/:id/replies.
func (h *RepliesHandler) List(c *fiber.Ctx) error {
	complaintID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 10)
	order := c.Query("order", "asc")

	replies, err := h.service.List(c.UserContext(), complaintID, page, pageSize, order)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": replies})
}

// Update PUT /api/replies/:id.
func (h *RepliesHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	reply, err := h.service.Update(c.UserContext(), id, req.ReplyText, principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reply})
}

// Delete DELETE /api/replies/:id.
func (h *RepliesHandler) Delete(c *fiber.Ctx) error {
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
