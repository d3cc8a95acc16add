package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/domain"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// CategorySuggestion is one ranked category candidate for a submission.
type CategorySuggestion struct {
	Category    string  `json:"category"`
	KeywordHits int     `json:"keyword_hits"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

// KeyIssue is one highlighted case inside a report summary.
type KeyIssue struct {
	ComplaintID int64                  `json:"complaint_id"`
	Kind        domain.ComplaintKind   `json:"kind"`
	Category    string                 `json:"category"`
	Status      domain.ComplaintStatus `json:"status"`
	KeyIssue    string                 `json:"key_issue"`
	Probability float64                `json:"probability"`
}

// ReportStats carries the counts a report summary is built from.
type ReportStats struct {
	Total    int
	Resolved int
	Pending  int
	Urgent   int
}

// ReportSummary is the narrative section of a generated report.
type ReportSummary struct {
	Summary                   string     `json:"summary"`
	PreventionRecommendations []string   `json:"prevention_recommendations"`
	FocusAreas                []string   `json:"focus_areas"`
	KeyIssues                 []KeyIssue `json:"key_issues"`
}

// ComplaintInsight is a short model-written overview of one complaint.
type ComplaintInsight struct {
	ComplaintID int64   `json:"complaint_id"`
	Category    string  `json:"category"`
	Probability float64 `json:"probability"`
	Summary     string  `json:"summary"`
}

// ReplyAssistance carries drafting help for an admin response.
type ReplyAssistance struct {
	RecommendedActions []string `json:"recommended_actions"`
	SuggestedReply     string   `json:"suggested_reply"`
	Tone               string   `json:"tone"`
	Source             string   `json:"source"`
}

func (c *Classifier) callJSON(ctx context.Context, prompt string) (map[string]any, bool) {
	payload, outcome := c.callPrompt(ctx, prompt)
	return payload, outcome == OutcomeModel
}

// callPrompt runs one prompt against the provider and parses the response
// as JSON. The payload is only valid for OutcomeModel.
func (c *Classifier) callPrompt(ctx context.Context, prompt string) (map[string]any, Outcome) {
	if c.client == nil {
		return nil, OutcomeUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	content, err := c.client.Complete(ctx, CompletionRequest{
		UserPrompt:  prompt,
		Temperature: 0.2,
		MaxTokens:   1200,
	})
	if err != nil {
		c.logger.Warn("model call failed", zap.Error(err))
		return nil, OutcomeUnavailable
	}
	payload, ok := parseJSONPayload(content)
	if !ok {
		preview := content
		if len(preview) > 200 {
			preview = preview[:200]
		}
		c.logger.Warn("model response unparseable", zap.String("preview", preview))
		return nil, OutcomeMalformed
	}
	return payload, OutcomeModel
}

func categorySuggestionsPrompt(text string) string {
	allowed := strings.Join(AllowedCategories, ", ")
	return "You are an HR triage assistant helping classify employee complaints.\n" +
		"Analyse the text and propose up to five category suggestions ordered by likelihood.\n" +
		"Return JSON with key `suggestions` (array) where each item has:\n" +
		"- category (one of: " + allowed + ")\n" +
		"- probability (0-1 confidence)\n" +
		"- reasoning (short justification)\n" +
		"Do not include duplicate categories. Choose the closest valid category rather than inventing new ones; if the " +
		"text is vague, pick the nearest fit and lower the probability instead of returning 'Unclassified'.\n" +
		fmt.Sprintf("Complaint text: \"\"\"%s\"\"\"\n", strings.TrimSpace(text)) +
		"JSON:"
}

// SuggestCategories ranks likely categories for a submission, merging model
// suggestions with keyword evidence. Heuristic entries fill any slots the
// model leaves open, so the result is never empty.
func (c *Classifier) SuggestCategories(ctx context.Context, text string) []CategorySuggestion {
	scores := categoryScores(text)
	var results []CategorySuggestion
	seen := make(map[string]struct{})

	if payload, ok := c.callJSON(ctx, categorySuggestionsPrompt(text)); ok {
		raw, exists := payload["suggestions"]
		if !exists {
			raw = payload["categories"]
		}
		items, _ := raw.([]any)
		for _, entry := range items {
			item, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			category := NormalizeCategory(asString(item["category"]), domain.CategoryUnclassified)
			if _, dup := seen[category]; dup {
				continue
			}
			reasoning := strings.TrimSpace(asString(item["reasoning"]))
			if reasoning == "" {
				reasoning = "AI generated suggestion"
			}
			results = append(results, CategorySuggestion{
				Category:    category,
				KeywordHits: scores[category],
				Confidence:  clampProbability(item["probability"], 0.4),
				Reasoning:   reasoning,
			})
			seen[category] = struct{}{}
		}
	}

	type scored struct {
		category string
		score    int
	}
	ranked := make([]scored, 0, len(scores))
	for category, score := range scores {
		ranked = append(ranked, scored{category, score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].category < ranked[j].category
	})
	for _, entry := range ranked {
		if _, dup := seen[entry.category]; dup {
			continue
		}
		confidence := 0.2
		reasoning := "No direct keyword match"
		if entry.score > 0 {
			confidence = minFloat(0.3+0.1*float64(entry.score), 0.95)
			reasoning = "Matched keywords"
		}
		results = append(results, CategorySuggestion{
			Category:    entry.category,
			KeywordHits: entry.score,
			Confidence:  round2(confidence),
			Reasoning:   reasoning,
		})
		seen[entry.category] = struct{}{}
		if len(results) >= 5 {
			break
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	if len(results) > 5 {
		results = results[:5]
	}
	return results
}

func complaintSummaryPrompt(complaint domain.Complaint) string {
	return "You are an expert HR analyst. Read the complaint and provide insight.\n" +
		"Return JSON with keys:\n" +
		"- summary (2-3 sentence plain-language overview of the key issue)\n" +
		"- category (best guess among HR, Payroll, Facilities, IT, Safety)\n" +
		"- probability (0-1 confidence for that category)\n" +
		"If the complaint is vague, choose the closest matching category and lower the probability rather than " +
		"responding with Unclassified.\n" +
		fmt.Sprintf("Complaint ID: %d\n", complaint.ID) +
		fmt.Sprintf("Existing category: %s\n", complaint.Category) +
		fmt.Sprintf("Status: %s\n", complaint.Status) +
		fmt.Sprintf("Priority: %s\n", complaint.Priority) +
		fmt.Sprintf("Text: \"\"\"%s\"\"\"\n", strings.TrimSpace(complaint.ComplaintText)) +
		"JSON:"
}

// SummarizeComplaint produces a short overview of one complaint, falling
// back to the heuristic and the raw text when the model is unreachable.
func (c *Classifier) SummarizeComplaint(ctx context.Context, complaint domain.Complaint) ComplaintInsight {
	heuristic := heuristicClassification(complaint.ComplaintText)
	fallbackSummary := truncate(strings.TrimSpace(complaint.ComplaintText), 400)

	if payload, ok := c.callJSON(ctx, complaintSummaryPrompt(complaint)); ok {
		category := strings.TrimSpace(asString(payload["category"]))
		if category == "" {
			category = complaint.Category
		}
		if category == "" {
			category = heuristic.category
		}
		probFallback := heuristic.confidence
		if complaint.AIConfidence != nil && *complaint.AIConfidence > 0 {
			probFallback = *complaint.AIConfidence
		}
		probability := clampProbability(payload["probability"], probFallback)
		if probability < 0.3 && heuristic.confidence > probability {
			category = heuristic.category
			probability = heuristic.confidence
		}
		summary := strings.TrimSpace(asString(payload["summary"]))
		if summary == "" {
			summary = fallbackSummary
		}
		return ComplaintInsight{
			ComplaintID: complaint.ID,
			Category:    category,
			Probability: probability,
			Summary:     summary,
		}
	}

	summary := fallbackSummary
	if summary == "" {
		summary = heuristic.reasoning
	}
	return ComplaintInsight{
		ComplaintID: complaint.ID,
		Category:    heuristic.category,
		Probability: heuristic.confidence,
		Summary:     summary,
	}
}

func reportSummaryPrompt(period domain.ReportPeriod, complaints []domain.Complaint, stats ReportStats) string {
	var sample strings.Builder
	for i, complaint := range complaints {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&sample, "- #%d [%s] (%s) priority=%s: %s...\n",
			complaint.ID, complaint.Category, complaint.Status, complaint.Priority,
			truncate(complaint.ComplaintText, 140))
	}
	sampleText := strings.TrimRight(sample.String(), "\n")
	if sampleText == "" {
		sampleText = "No sample available"
	}

	breakdown := categoryBreakdown(complaints)
	if breakdown == "" {
		breakdown = "No complaints logged"
	}

	return "You are an HR analytics and compliance specialist. Provide the following as JSON with keys:\n" +
		"- summary (markdown string summarising overall trends)\n" +
		"- key_issues (array of objects with fields complaint_id (int), category (best-guess among HR/Payroll/" +
		"Facilities/IT/Safety/Unclassified), status (original status text), key_issue (concise sentence outlining the" +
		" main issue), probability (0-1 confidence for the chosen category))\n" +
		"- prevention_recommendations (array of strings)\n" +
		"- focus_areas (array of strings)\n" +
		"Always provide a best-guess category even if the original record was unclassified; use a low probability when" +
		" confidence is limited.\n" +
		fmt.Sprintf("Period: %s\n", period) +
		fmt.Sprintf("Total complaints: %d\n", stats.Total) +
		fmt.Sprintf("Resolved: %d | Pending: %d | Urgent: %d\n", stats.Resolved, stats.Pending, stats.Urgent) +
		fmt.Sprintf("Category breakdown: %s\n", breakdown) +
		fmt.Sprintf("Recent complaints sample:\n%s\n", sampleText) +
		"Offer tailored preventative recommendations across relevant teams and highlight up to three focus areas."
}

func categoryBreakdown(complaints []domain.Complaint) string {
	counts := make(map[string]int)
	var order []string
	for _, complaint := range complaints {
		if _, seen := counts[complaint.Category]; !seen {
			order = append(order, complaint.Category)
		}
		counts[complaint.Category]++
	}
	parts := make([]string, 0, len(order))
	for _, category := range order {
		parts = append(parts, fmt.Sprintf("%s: %d", category, counts[category]))
	}
	return strings.Join(parts, ", ")
}

// GenerateReportSummary builds the narrative section of a report. When the
// model is unreachable the summary degrades to a deterministic statistical
// digest so report generation never fails outright.
func (c *Classifier) GenerateReportSummary(ctx context.Context, period domain.ReportPeriod, complaints []domain.Complaint, stats ReportStats) ReportSummary {
	if payload, ok := c.callJSON(ctx, reportSummaryPrompt(period, complaints, stats)); ok {
		keyIssues := extractKeyIssues(payload["key_issues"], complaints)
		if len(keyIssues) == 0 {
			keyIssues = fallbackKeyIssues(complaints)
		}
		return ReportSummary{
			Summary:                   strings.TrimSpace(asString(payload["summary"])),
			PreventionRecommendations: stringList(payload["prevention_recommendations"], 5),
			FocusAreas:                stringList(payload["focus_areas"], 3),
			KeyIssues:                 keyIssues,
		}
	}
	return fallbackReportSummary(period, complaints, stats)
}

func extractKeyIssues(raw any, complaints []domain.Complaint) []KeyIssue {
	lookup := make(map[int64]domain.Complaint, len(complaints))
	for _, complaint := range complaints {
		lookup[complaint.ID] = complaint
	}
	items, _ := raw.([]any)
	var issues []KeyIssue
	for _, entry := range items {
		item, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		id := int64(asFloat(item["complaint_id"], -1))
		if id < 0 {
			continue
		}
		complaint, known := lookup[id]

		status := domain.StatusPending
		if known {
			status = complaint.Status
		}
		if parsed, ok := parseStatus(asString(item["status"])); ok {
			status = parsed
		}

		category := strings.TrimSpace(asString(item["category"]))
		if category == "" {
			if known {
				category = complaint.Category
			} else {
				category = domain.CategoryUnclassified
			}
		}

		text := strings.TrimSpace(asString(item["key_issue"]))
		if text == "" && known {
			text = truncate(strings.TrimSpace(complaint.ComplaintText), 200)
		}

		probFallback := 0.5
		if known && complaint.AIConfidence != nil && *complaint.AIConfidence > 0 {
			probFallback = *complaint.AIConfidence
		}

		kind := domain.KindComplaint
		if known {
			kind = complaint.Kind
		}

		issues = append(issues, KeyIssue{
			ComplaintID: id,
			Kind:        kind,
			Category:    category,
			Status:      status,
			KeyIssue:    text,
			Probability: clampProbability(item["probability"], probFallback),
		})
	}
	return issues
}

func fallbackKeyIssues(complaints []domain.Complaint) []KeyIssue {
	issues := make([]KeyIssue, 0, len(complaints))
	for _, complaint := range complaints {
		heuristic := heuristicClassification(complaint.ComplaintText)
		summary := truncate(strings.TrimSpace(complaint.ComplaintText), 200)
		if summary == "" {
			summary = heuristic.reasoning
		}
		issues = append(issues, KeyIssue{
			ComplaintID: complaint.ID,
			Kind:        complaint.Kind,
			Category:    heuristic.category,
			Status:      complaint.Status,
			KeyIssue:    summary,
			Probability: heuristic.confidence,
		})
	}
	return issues
}

func fallbackReportSummary(period domain.ReportPeriod, complaints []domain.Complaint, stats ReportStats) ReportSummary {
	topCategory, topCount := "None", 0
	counts := make(map[string]int)
	for _, complaint := range complaints {
		counts[complaint.Category]++
		if counts[complaint.Category] > topCount {
			topCategory = complaint.Category
			topCount = counts[complaint.Category]
		}
	}

	summaryLines := []string{
		fmt.Sprintf("Executive summary for %s period ending %s:",
			capitalize(string(period)), time.Now().UTC().Format("2006-01-02")),
		fmt.Sprintf("- Processed %d complaints with %d resolved and %d awaiting action.", stats.Total, stats.Resolved, stats.Pending),
		fmt.Sprintf("- Urgent workload represents %d cases; primary category trend: %s (%d).", stats.Urgent, topCategory, topCount),
		"- Recommended next actions: prioritise urgent queue, notify department leads, audit AI classifications.",
	}
	focusLead := "Emerging complaint categories"
	if topCategory != "None" {
		focusLead = topCategory + " incidents"
	}
	return ReportSummary{
		Summary: strings.Join(summaryLines, "\n"),
		PreventionRecommendations: []string{
			"Coordinate a focused remediation plan for the leading complaint category.",
			"Communicate preventative guidance with clear owners and deadlines.",
			"Track improvements via weekly checkpoints and adjust resources accordingly.",
		},
		FocusAreas: []string{
			focusLead,
			"Urgent ticket turnaround time",
			"Effectiveness of preventative communications",
		},
		KeyIssues: fallbackKeyIssues(complaints),
	}
}

func assistancePrompt(complaint domain.Complaint, replies []domain.Reply) string {
	var previous strings.Builder
	for i, reply := range replies {
		if i >= 5 {
			break
		}
		sent := "no"
		if reply.EmailSent {
			sent = "yes"
		}
		fmt.Fprintf(&previous, "- Reply #%d (sent=%s): %s\n", reply.ID, sent, truncate(reply.ReplyText, 200))
	}
	history := strings.TrimRight(previous.String(), "\n")
	if history == "" {
		history = "No previous replies."
	}
	return "You are an experienced HR support specialist helping admins craft responses to employee complaints.\n" +
		"Return JSON with keys recommended_actions (array of strings), suggested_reply (plain text), tone (string).\n" +
		"Provide concrete actions tailored to the complaint, and keep the suggested reply professional and empathetic.\n" +
		fmt.Sprintf("Complaint text: \"\"\"%s\"\"\"\n", complaint.ComplaintText) +
		fmt.Sprintf("Category: %s\n", complaint.Category) +
		fmt.Sprintf("Priority: %s\n", complaint.Priority) +
		fmt.Sprintf("Status: %s\n", complaint.Status) +
		fmt.Sprintf("Historical replies:\n%s\n", history) +
		"JSON:"
}

// GenerateReplyAssistance drafts a suggested response. Unlike the other
// helpers this surface has no heuristic fallback; an unreachable model
// yields a service-unavailable error.
func (c *Classifier) GenerateReplyAssistance(ctx context.Context, complaint domain.Complaint, replies []domain.Reply) (ReplyAssistance, error) {
	payload, ok := c.callJSON(ctx, assistancePrompt(complaint, replies))
	if !ok {
		return ReplyAssistance{}, apperrors.NewServiceUnavailable("reply assistance unavailable")
	}
	actions := stringList(payload["recommended_actions"], 5)
	if len(actions) == 0 {
		if single := strings.TrimSpace(asString(payload["recommended_actions"])); single != "" {
			actions = []string{single}
		}
	}
	tone := strings.TrimSpace(asString(payload["tone"]))
	if tone == "" {
		tone = "supportive"
	}
	return ReplyAssistance{
		RecommendedActions: actions,
		SuggestedReply:     strings.TrimSpace(asString(payload["suggested_reply"])),
		Tone:               tone,
		Source:             "groq",
	}, nil
}

func parseStatus(value string) (domain.ComplaintStatus, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, status := range []domain.ComplaintStatus{domain.StatusPending, domain.StatusInProgress, domain.StatusResolved} {
		if strings.ToLower(string(status)) == normalized {
			return status, true
		}
	}
	return "", false
}

func stringList(raw any, limit int) []string {
	items, _ := raw.([]any)
	var out []string
	for _, item := range items {
		if text := strings.TrimSpace(asString(item)); text != "" {
			out = append(out, text)
		}
		if len(out) >= limit {
			break
		}
	}
	return out
}

func capitalize(text string) string {
	if text == "" {
		return text
	}
	return strings.ToUpper(text[:1]) + text[1:]
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
