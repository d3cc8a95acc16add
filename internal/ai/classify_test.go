package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/domain"
)

type stubClient struct {
	response string
	err      error
	calls    int
}

func (s *stubClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func newTestClassifier(client Client) *Classifier {
	return NewClassifier(client, nil, nil, zap.NewNop(), time.Second)
}

func TestHeuristicClassificationEmptyText(t *testing.T) {
	result := heuristicClassification("")

	assert.Equal(t, domain.CategoryUnclassified, result.category)
	assert.Equal(t, domain.PriorityNormal, result.priority)
	assert.Equal(t, 0.35, result.confidence)
	assert.Equal(t, domain.KindComplaint, result.kind)
	assert.Equal(t, 0.5, result.kindConfidence)
}

func TestHeuristicClassificationKeywordCategory(t *testing.T) {
	result := heuristicClassification("vpn login password")

	assert.Equal(t, "IT", result.category)
	assert.Equal(t, 3, result.score)
	assert.Equal(t, 0.76, result.confidence)
	assert.Equal(t, domain.PriorityNormal, result.priority)
	assert.Equal(t, domain.KindComplaint, result.kind)
}

func TestHeuristicClassificationUrgentKeyword(t *testing.T) {
	result := heuristicClassification("urgent payroll salary issue")

	assert.Equal(t, "Payroll", result.category)
	assert.Equal(t, domain.PriorityUrgent, result.priority)
	assert.Equal(t, domain.KindComplaint, result.kind)
}

func TestHeuristicClassificationUnclassifiedNeverUrgent(t *testing.T) {
	result := heuristicClassification("this is urgent!!!")

	assert.Equal(t, domain.CategoryUnclassified, result.category)
	assert.Equal(t, domain.PriorityNormal, result.priority)
}

func TestHeuristicKindFeedback(t *testing.T) {
	result := heuristicClassification("thank you, really appreciate the quick turnaround")

	assert.Equal(t, domain.KindFeedback, result.kind)
	assert.Greater(t, result.kindConfidence, 0.6)
}

func TestClassifyWithoutProvider(t *testing.T) {
	classifier := newTestClassifier(nil)

	result := classifier.Classify(context.Background(), "vpn login password")

	assert.Equal(t, OutcomeUnavailable, result.Outcome)
	assert.Equal(t, "IT", result.Category)
	assert.Equal(t, domain.PriorityNormal, result.Priority)
	assert.Equal(t, 0.76, result.Confidence)
	assert.Equal(t, domain.KindComplaint, result.Kind)
}

func TestClassifyProviderError(t *testing.T) {
	client := &stubClient{err: errors.New("connection refused")}
	classifier := newTestClassifier(client)

	result := classifier.Classify(context.Background(), "vpn login password")

	assert.Equal(t, OutcomeUnavailable, result.Outcome)
	assert.Equal(t, "IT", result.Category)
	assert.Equal(t, 1, client.calls)
}

func TestClassifyModelAgreesWithHeuristic(t *testing.T) {
	client := &stubClient{response: `{
		"kind": "complaint",
		"kind_confidence": 0.9,
		"category": "IT",
		"priority": "normal",
		"confidence": 0.88,
		"reasoning": "VPN access failure"
	}`}
	classifier := newTestClassifier(client)

	result := classifier.Classify(context.Background(), "vpn login password")

	require.Equal(t, OutcomeModel, result.Outcome)
	assert.Equal(t, "IT", result.Category)
	assert.Equal(t, domain.PriorityNormal, result.Priority)
	assert.Equal(t, 0.88, result.Confidence)
	assert.Equal(t, domain.KindComplaint, result.Kind)
	assert.Equal(t, 0.9, result.KindConfidence)
	assert.Contains(t, result.Reasoning, "VPN access failure")
	assert.Contains(t, result.Reasoning, "agree on complaint")
}

func TestClassifyHeuristicUrgencyOverridesModel(t *testing.T) {
	client := &stubClient{response: `{
		"kind": "complaint",
		"kind_confidence": 0.8,
		"category": "Payroll",
		"priority": "normal",
		"confidence": 0.9,
		"reasoning": "Pay dispute"
	}`}
	classifier := newTestClassifier(client)

	result := classifier.Classify(context.Background(), "urgent payroll salary issue")

	require.Equal(t, OutcomeModel, result.Outcome)
	assert.Equal(t, domain.PriorityUrgent, result.Priority)
	assert.Contains(t, result.Reasoning, "flagged urgent keywords")
}

func TestClassifyLowModelConfidenceFallsBackToKeywords(t *testing.T) {
	client := &stubClient{response: `{
		"kind": "complaint",
		"kind_confidence": 0.5,
		"category": "Unclassified",
		"priority": "normal",
		"confidence": 0.2,
		"reasoning": "not sure"
	}`}
	classifier := newTestClassifier(client)

	result := classifier.Classify(context.Background(), "vpn login password")

	require.Equal(t, OutcomeModel, result.Outcome)
	assert.Equal(t, "IT", result.Category)
	assert.Equal(t, 0.76, result.Confidence)
	assert.Contains(t, result.Reasoning, "Heuristic reinforcement")
}

func TestClassifyUnknownModelCategoryRejected(t *testing.T) {
	client := &stubClient{response: `{
		"kind": "complaint",
		"kind_confidence": 0.7,
		"category": "Legal",
		"priority": "normal",
		"confidence": 0.9,
		"reasoning": "contract dispute"
	}`}
	classifier := newTestClassifier(client)

	result := classifier.Classify(context.Background(), "vpn login password")

	require.Equal(t, OutcomeModel, result.Outcome)
	// Unknown categories degrade to Unclassified, which the confident
	// heuristic then replaces.
	assert.Equal(t, "IT", result.Category)
}

func TestClassifyMalformedResponse(t *testing.T) {
	client := &stubClient{response: "I am sorry, I cannot help with that."}
	classifier := newTestClassifier(client)

	result := classifier.Classify(context.Background(), "vpn login password")

	assert.Equal(t, OutcomeMalformed, result.Outcome)
	assert.Equal(t, "IT", result.Category)
	assert.Equal(t, 0.76, result.Confidence)
}

func TestClassifyKindHeuristicOverride(t *testing.T) {
	// Model says feedback with weak confidence; the heuristic is more
	// certain it is a complaint and wins.
	client := &stubClient{response: `{
		"kind": "feedback",
		"kind_confidence": 0.3,
		"category": "Payroll",
		"priority": "urgent",
		"confidence": 0.9,
		"reasoning": "Pay dispute"
	}`}
	classifier := newTestClassifier(client)

	result := classifier.Classify(context.Background(), "urgent payroll salary issue")

	require.Equal(t, OutcomeModel, result.Outcome)
	assert.Equal(t, domain.KindComplaint, result.Kind)
	assert.Contains(t, result.Reasoning, "Heuristic override")
}

func TestSuggestCategoriesWithoutProvider(t *testing.T) {
	classifier := newTestClassifier(nil)

	suggestions := classifier.SuggestCategories(context.Background(), "vpn login password")

	require.NotEmpty(t, suggestions)
	assert.LessOrEqual(t, len(suggestions), 5)
	assert.Equal(t, "IT", suggestions[0].Category)
	assert.Equal(t, 3, suggestions[0].KeywordHits)
	for i := 1; i < len(suggestions); i++ {
		assert.LessOrEqual(t, suggestions[i].Confidence, suggestions[i-1].Confidence)
	}
}

func TestSuggestCategoriesMergesModelAndKeywords(t *testing.T) {
	client := &stubClient{response: `{
		"suggestions": [
			{"category": "IT", "probability": 0.9, "reasoning": "network terms"},
			{"category": "IT", "probability": 0.8, "reasoning": "duplicate"},
			{"category": "Facilities", "probability": 0.2, "reasoning": "maybe hardware"}
		]
	}`}
	classifier := newTestClassifier(client)

	suggestions := classifier.SuggestCategories(context.Background(), "vpn login password")

	require.NotEmpty(t, suggestions)
	seen := make(map[string]int)
	for _, s := range suggestions {
		seen[s.Category]++
	}
	assert.Equal(t, 1, seen["IT"], "duplicate model categories must collapse")
	assert.Equal(t, "IT", suggestions[0].Category)
	assert.Equal(t, 0.9, suggestions[0].Confidence)
}

func TestGenerateReplyAssistanceUnavailable(t *testing.T) {
	classifier := newTestClassifier(nil)

	_, err := classifier.GenerateReplyAssistance(context.Background(), domain.Complaint{ComplaintText: "broken printer"}, nil)

	require.Error(t, err)
}

func TestGenerateReportSummaryFallback(t *testing.T) {
	classifier := newTestClassifier(nil)
	complaints := []domain.Complaint{
		{ID: 1, Kind: domain.KindComplaint, Category: "IT", Status: domain.StatusPending, ComplaintText: "vpn down"},
		{ID: 2, Kind: domain.KindComplaint, Category: "IT", Status: domain.StatusResolved, ComplaintText: "printer jam"},
	}
	stats := ReportStats{Total: 2, Resolved: 1, Pending: 1}

	summary := classifier.GenerateReportSummary(context.Background(), domain.PeriodWeekly, complaints, stats)

	assert.NotEmpty(t, summary.Summary)
	assert.NotEmpty(t, summary.PreventionRecommendations)
	assert.NotEmpty(t, summary.FocusAreas)
	require.Len(t, summary.KeyIssues, 2)
	assert.Equal(t, int64(1), summary.KeyIssues[0].ComplaintID)
}
