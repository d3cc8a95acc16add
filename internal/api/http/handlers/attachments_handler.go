package handlers

import (
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedback-service/internal/auth"
	"github.com/spec-kit/feedback-service/internal/service"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// AttachmentsHandler manages uploaded evidence files.
type AttachmentsHandler struct {
	service *service.AttachmentService
}

// NewAttachmentsHandler constructs handler.
func NewAttachmentsHandler(attachmentService *service.AttachmentService) *AttachmentsHandler {
	return &AttachmentsHandler{service: attachmentService}
}

// Upload POST /api/complaints/:id/attachments. Accepts one multipart file
// under the "file" field; reply_id optionally ties it to a response.
func (h *AttachmentsHandler) Upload(c *fiber.Ctx) error {
	complaintID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file field required", nil)
	}

	var replyID *int64
	if raw := c.FormValue("reply_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			return apperrors.NewValidationError("invalid reply_id", nil)
		}
		replyID = &parsed
	}

	file, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable upload", nil)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return apperrors.NewValidationError("unreadable upload", nil)
	}

	attachment, err := h.service.Attach(c.UserContext(), complaintID, replyID, fileHeader.Filename, data)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": attachment})
}

// List GET /api/complaints/:id/attachments.
func (h *AttachmentsHandler) List(c *fiber.Ctx) error {
	complaintID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	attachments, err := h.service.ListForComplaint(c.UserContext(), complaintID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": attachments})
}

// Download GET /api/attachments/:id/download streams the stored file.
func (h *AttachmentsHandler) Download(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	attachment, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, attachment.FileType)
	return c.Download(attachment.FilePath, attachment.FileName)
}

// Delete DELETE /api/attachments/:id.
func (h *AttachmentsHandler) Delete(c *fiber.Ctx) error {
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
