package service

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/ai"
	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/store"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// ReportService builds periodic insight reports over a bounded date range.
type ReportService struct {
	store      *store.Store
	classifier *ai.Classifier
	recipients []string
	logger     *zap.Logger
}

// NewReportService constructs the service.
func NewReportService(s *store.Store, classifier *ai.Classifier, recipients []string, logger *zap.Logger) *ReportService {
	return &ReportService{store: s, classifier: classifier, recipients: recipients, logger: logger}
}

// periodRange computes the covered window for a period, truncated to whole
// days so regenerating within the same day finds the existing report.
func periodRange(period domain.ReportPeriod, now time.Time) (time.Time, time.Time) {
	end := now.UTC().Truncate(24 * time.Hour)
	switch period {
	case domain.PeriodWeekly:
		return end.AddDate(0, 0, -7), end
	case domain.PeriodMonthly:
		return end.AddDate(0, 0, -30), end
	default:
		return end.AddDate(0, 0, -365), end
	}
}

// Generate builds the report for the period ending today. Generation is
// idempotent per (period, from, to): an existing report for the same window
// is returned unchanged.
func (s *ReportService) Generate(ctx context.Context, period domain.ReportPeriod, actorID int64) (domain.Report, error) {
	switch period {
	case domain.PeriodWeekly, domain.PeriodMonthly, domain.PeriodYearly:
	default:
		return domain.Report{}, apperrors.NewValidationError("invalid report period", map[string]any{"period": period})
	}

	from, to := periodRange(period, time.Now())
	if existing, ok := s.store.FindReportByPeriod(period, from, to); ok {
		return existing, nil
	}

	complaints := s.store.FilterComplaints(store.ComplaintFilter{
		CreatedFrom: &from,
		CreatedTo:   &to,
	})
	stats := computeStats(complaints)

	summary := s.classifier.GenerateReportSummary(ctx, period, complaints, stats)
	summaryText := stripMarkdown(summary.Summary)
	if summaryText == "" {
		summaryText = "AI summary unavailable."
	}

	periodLabel := fmt.Sprintf("%s to %s", from.Format("Jan 02, 2006"), to.Format("Jan 02, 2006"))
	topCategories := topCategoryCounts(complaints, 5)
	htmlContent := buildReportHTML(periodLabel, summary, stats, topCategories)

	metadata := map[string]any{
		"generated_at":               time.Now().UTC().Format(time.RFC3339),
		"period":                     string(period),
		"period_label":               periodLabel,
		"stats":                      map[string]int{"total": stats.Total, "resolved": stats.Resolved, "pending": stats.Pending, "urgent": stats.Urgent},
		"summary_markdown":           summary.Summary,
		"summary_plain":              summaryText,
		"prevention_recommendations": summary.PreventionRecommendations,
		"focus_areas":                summary.FocusAreas,
		"key_issues":                 summary.KeyIssues,
		"top_categories":             topCategories,
	}

	report, err := s.store.CreateReport(store.CreateReportInput{
		Period:      period,
		FromDate:    from,
		ToDate:      to,
		Summary:     summaryText,
		HTMLContent: htmlContent,
		Recipients:  s.recipients,
		Metadata:    metadata,
	})
	if err != nil {
		return domain.Report{}, err
	}

	s.store.LogAction(store.LogActionInput{
		UserID:     actorID,
		Action:     "report_generated",
		EntityType: "report",
		EntityID:   &report.ID,
		Details:    map[string]string{"period": string(period)},
	})
	return report, nil
}

// List returns reports, optionally restricted to one period, newest first.
func (s *ReportService) List(ctx context.Context, period *domain.ReportPeriod) []domain.Report {
	reports := s.store.ListReports()
	if period != nil {
		filtered := reports[:0]
		for _, report := range reports {
			if report.Period == *period {
				filtered = append(filtered, report)
			}
		}
		reports = filtered
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].FromDate.After(reports[j].FromDate)
	})
	return reports
}

// Get returns one report.
func (s *ReportService) Get(ctx context.Context, id int64) (domain.Report, error) {
	report, ok := s.store.GetReport(id)
	if !ok {
		return domain.Report{}, apperrors.NewNotFound("report", map[string]any{"report_id": id})
	}
	return report, nil
}

// Delete removes a report.
func (s *ReportService) Delete(ctx context.Context, id int64, actorID int64) error {
	if err := s.store.DeleteReport(id); err != nil {
		return err
	}
	s.store.LogAction(store.LogActionInput{
		UserID:     actorID,
		Action:     "report_deleted",
		EntityType: "report",
		EntityID:   &id,
	})
	return nil
}

func computeStats(complaints []domain.Complaint) ai.ReportStats {
	stats := ai.ReportStats{Total: len(complaints)}
	for _, complaint := range complaints {
		switch complaint.Status {
		case domain.StatusResolved:
			stats.Resolved++
		case domain.StatusPending:
			stats.Pending++
		}
		if complaint.Priority == domain.PriorityUrgent {
			stats.Urgent++
		}
	}
	return stats
}

// CategoryCount is one entry of a category breakdown.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

func topCategoryCounts(complaints []domain.Complaint, limit int) []CategoryCount {
	counts := make(map[string]int)
	for _, complaint := range complaints {
		counts[complaint.Category]++
	}
	out := make([]CategoryCount, 0, len(counts))
	for category, count := range counts {
		out = append(out, CategoryCount{Category: category, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

var markdownChars = regexp.MustCompile("[*_`#>]+")
var whitespaceRuns = regexp.MustCompile(`\s+`)

func stripMarkdown(value string) string {
	if value == "" {
		return ""
	}
	cleaned := markdownChars.ReplaceAllString(value, "")
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(cleaned, " "))
}

func buildReportHTML(periodLabel string, summary ai.ReportSummary, stats ai.ReportStats, categories []CategoryCount) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head><meta charset=\"utf-8\"/><title>Complaint Insight Report</title></head>\n<body>\n")
	fmt.Fprintf(&b, "<h1>Complaint Insight Report</h1>\n<p>Period: %s</p>\n", html.EscapeString(periodLabel))

	b.WriteString("<h2>Summary</h2>\n")
	summaryText := strings.TrimSpace(summary.Summary)
	if summaryText == "" {
		b.WriteString("<p>No summary available.</p>\n")
	} else {
		for _, line := range strings.Split(summaryText, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(trimmed))
			}
		}
	}

	fmt.Fprintf(&b, "<h2>Totals</h2>\n<p>Total: %d | Resolved: %d | Pending: %d | Urgent: %d</p>\n",
		stats.Total, stats.Resolved, stats.Pending, stats.Urgent)

	b.WriteString("<h2>Top Categories</h2>\n<ul>\n")
	if len(categories) == 0 {
		b.WriteString("<li>No complaints recorded.</li>\n")
	}
	for _, entry := range categories {
		fmt.Fprintf(&b, "<li>%s: %d</li>\n", html.EscapeString(entry.Category), entry.Count)
	}
	b.WriteString("</ul>\n")

	b.WriteString("<h2>Key Issues To Watch</h2>\n<table border=\"1\">\n<tr><th>ID</th><th>Category</th><th>Status</th><th>Main Issue</th><th>Confidence</th></tr>\n")
	limit := len(summary.KeyIssues)
	if limit > 8 {
		limit = 8
	}
	if limit == 0 {
		b.WriteString("<tr><td colspan=\"5\">No priority issues identified.</td></tr>\n")
	}
	for _, issue := range summary.KeyIssues[:limit] {
		fmt.Fprintf(&b, "<tr><td>#%d</td><td>%s</td><td>%s</td><td>%s</td><td>%.0f%%</td></tr>\n",
			issue.ComplaintID, html.EscapeString(issue.Category), html.EscapeString(string(issue.Status)),
			html.EscapeString(issue.KeyIssue), issue.Probability*100)
	}
	b.WriteString("</table>\n")

	writeListSection(&b, "Preventative Actions", summary.PreventionRecommendations, "No preventative actions suggested.")
	writeListSection(&b, "Focus Areas Next Cycle", summary.FocusAreas, "No focus areas identified.")

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func writeListSection(b *strings.Builder, title string, items []string, emptyText string) {
	fmt.Fprintf(b, "<h2>%s</h2>\n<ul>\n", title)
	if len(items) == 0 {
		fmt.Fprintf(b, "<li>%s</li>\n", html.EscapeString(emptyText))
	}
	for _, item := range items {
		fmt.Fprintf(b, "<li>%s</li>\n", html.EscapeString(item))
	}
	b.WriteString("</ul>\n")
}
