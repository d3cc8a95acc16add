package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedback-service/internal/api/dto"
	"github.com/spec-kit/feedback-service/internal/auth"
	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/service"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// ReportsHandler manages periodic insight reports.
type ReportsHandler struct {
	service *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// Generate POST /api/reports/generate.
func (h *ReportsHandler) Generate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.GenerateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	report, err := h.service.Generate(c.UserContext(), domain.ReportPeriod(req.Period), principal.User.ID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": reportSummary(report)})
}

// List GET /api/reports.
func (h *ReportsHandler) List(c *fiber.Ctx) error {
	var period *domain.ReportPeriod
	if raw := c.Query("period"); raw != "" {
		parsed := domain.ReportPeriod(raw)
		period = &parsed
	}
	reports := h.service.List(c.UserContext(), period)
	items := make([]fiber.Map, 0, len(reports))
	for _, report := range reports {
		items = append(items, reportSummary(report))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /api/reports/:id.
func (h *ReportsHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	report, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

// Download GET /api/reports/:id/download serves the rendered HTML.
func (h *ReportsHandler) Download(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	report, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("report-%s-%d.html", report.Period, report.ID)))
	return c.SendString(report.HTMLContent)
}

// Delete DELETE /api/reports/:id.
func (h *ReportsHandler) Delete(c *fiber.Ctx) error {
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

// reportSummary omits the rendered HTML from listings.
func reportSummary(report domain.Report) fiber.Map {
	return fiber.Map{
		"id":         report.ID,
		"period":     report.Period,
		"from_date":  report.FromDate,
		"to_date":    report.ToDate,
		"summary":    report.Summary,
		"recipients": report.Recipients,
		"metadata":   report.Metadata,
		"created_at": report.CreatedAt,
	}
}
