package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/cache"
	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/observability"
)

// Outcome records how a classification was produced, so callers and
// operators can tell model output from fallbacks without string parsing.
type Outcome string

const (
	// OutcomeModel means the external model answered and parsed cleanly.
	OutcomeModel Outcome = "model"
	// OutcomeCached means a previous model result was served from cache.
	OutcomeCached Outcome = "cached"
	// OutcomeMalformed means the model answered but no candidate parsed.
	OutcomeMalformed Outcome = "malformed"
	// OutcomeUnavailable means no provider is configured or the call failed.
	OutcomeUnavailable Outcome = "unavailable"
)

// Classification is the blended verdict for one submission.
type Classification struct {
	Kind           domain.ComplaintKind `json:"kind"`
	KindConfidence float64              `json:"kind_confidence"`
	Category       string               `json:"category"`
	Priority       domain.Priority      `json:"priority"`
	Confidence     float64              `json:"confidence"`
	Reasoning      string               `json:"reasoning"`
	Outcome        Outcome              `json:"outcome"`
}

// Classifier combines the keyword heuristic with the external model. The
// heuristic always runs; the model refines it when reachable, and the
// reconciliation rules below decide which signal wins.
type Classifier struct {
	client  Client
	cache   *cache.ClassificationCache
	metrics *observability.Metrics
	logger  *zap.Logger
	timeout time.Duration
}

// NewClassifier wires a classifier. client may be nil (no provider
// configured); cache may be nil (caching disabled).
func NewClassifier(client Client, cc *cache.ClassificationCache, metrics *observability.Metrics, logger *zap.Logger, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Classifier{client: client, cache: cc, metrics: metrics, logger: logger, timeout: timeout}
}

type heuristicResult struct {
	category       string
	priority       domain.Priority
	confidence     float64
	reasoning      string
	score          int
	kind           domain.ComplaintKind
	kindConfidence float64
	kindReason     string
}

func heuristicKind(text string, scores map[string]int) (domain.ComplaintKind, float64, string) {
	normalized := strings.ToLower(text)
	positiveHits := matchKeywords(normalized, feedbackPositiveKeywords)
	suggestionHits := matchKeywords(normalized, feedbackSuggestionKeywords)
	feedbackHits := positiveHits + suggestionHits
	complaintHits := matchKeywords(normalized, complaintMarkers)
	urgentHits := matchKeywords(normalized, urgentKeywords)
	categoryTotal := 0
	for _, score := range scores {
		categoryTotal += score
	}
	negativeStrength := complaintHits + urgentHits + categoryTotal

	switch {
	case feedbackHits >= 2 && negativeStrength == 0:
		confidence := minFloat(0.9, 0.55+0.08*float64(feedbackHits))
		return domain.KindFeedback, round2(confidence), "Detected positive or appreciation language without issue indicators."
	case negativeStrength > feedbackHits:
		confidence := minFloat(0.95, 0.55+0.07*float64(negativeStrength))
		return domain.KindComplaint, round2(confidence), "Detected issue or urgency language consistent with a complaint."
	case feedbackHits > 0 && complaintHits == 0 && urgentHits == 0:
		return domain.KindFeedback, 0.65, "Positive or suggestion phrasing outweighs issue indicators."
	}
	confidence := 0.5
	if negativeStrength > 0 {
		confidence = 0.6
	}
	return domain.KindComplaint, confidence, "Defaulting to complaint due to mixed or limited signals."
}

func heuristicClassification(text string) heuristicResult {
	scores := categoryScores(text)
	category := ""
	maxScore := -1
	// Deterministic winner on ties.
	for _, name := range AllowedCategories {
		if score, ok := scores[name]; ok && score > maxScore {
			category = name
			maxScore = score
		}
	}

	var confidence float64
	var reasoning string
	if maxScore == 0 {
		category = domain.CategoryUnclassified
		confidence = 0.35
		reasoning = "No keyword matches found; defaulting to manual review."
	} else {
		confidence = minFloat(0.92, 0.55+0.07*float64(maxScore))
		reasoning = fmt.Sprintf("Detected keywords matching %s category.", category)
	}

	priority := domain.PriorityNormal
	if matchKeywords(strings.ToLower(text), urgentKeywords) > 0 {
		priority = domain.PriorityUrgent
	}
	if category == domain.CategoryUnclassified {
		priority = domain.PriorityNormal
	}

	kind, kindConfidence, kindReason := heuristicKind(text, scores)

	return heuristicResult{
		category:       category,
		priority:       priority,
		confidence:     round2(confidence),
		reasoning:      reasoning,
		score:          maxScore,
		kind:           kind,
		kindConfidence: kindConfidence,
		kindReason:     kindReason,
	}
}

func classificationPrompt(text string) string {
	return "You are an HR operations assistant. Analyse the complaint below and classify it.\n" +
		"Return a JSON object with fields: kind (complaint or feedback), kind_confidence (0.0-1.0), " +
		"category (one of HR, Payroll, Facilities, IT, Safety, Unclassified), priority (normal or urgent), " +
		"confidence (0.0-1.0), reasoning (short sentence).\n" +
		"Always choose the most likely category; only use Unclassified when there is no information at all. " +
		"If you are uncertain, select the closest match and reflect that with a lower confidence value.\n" +
		fmt.Sprintf("Complaint: \"\"\"%s\"\"\"\n", strings.TrimSpace(text)) +
		"JSON:"
}

// Classify produces the blended verdict for one submission. It never
// returns an error; any provider failure degrades to the heuristic.
func (c *Classifier) Classify(ctx context.Context, text string) Classification {
	heuristic := heuristicClassification(text)

	if cached, ok := c.lookupCache(ctx, text); ok {
		c.record(cached)
		return cached
	}

	payload, outcome := c.callPrompt(ctx, classificationPrompt(text))
	if outcome != OutcomeModel {
		result := heuristicOnly(heuristic, outcome)
		c.record(result)
		return result
	}

	result := reconcile(heuristic, payload)
	c.record(result)
	c.storeCache(ctx, text, result)
	return result
}

func heuristicOnly(h heuristicResult, outcome Outcome) Classification {
	reasoning := h.reasoning
	if h.kindReason != "" {
		reasoning = reasoning + " | " + h.kindReason
	}
	return Classification{
		Kind:           h.kind,
		KindConfidence: round2(h.kindConfidence),
		Category:       h.category,
		Priority:       h.priority,
		Confidence:     round2(h.confidence),
		Reasoning:      reasoning,
		Outcome:        outcome,
	}
}

// reconcile blends the parsed model payload with the heuristic verdict.
// The model is authoritative except where the heuristic has stronger
// evidence: a confident keyword category beats a vague model answer, and
// heuristic urgency always wins.
func reconcile(h heuristicResult, payload map[string]any) Classification {
	category := asString(payload["category"])
	if category == "" {
		category = domain.CategoryUnclassified
	}
	if !isKnownCategory(category) {
		category = domain.CategoryUnclassified
	}
	priority := domain.PriorityNormal
	if strings.EqualFold(strings.TrimSpace(asString(payload["priority"])), "urgent") {
		priority = domain.PriorityUrgent
	}
	confidence := clampProbability(payload["confidence"], h.confidence)
	reasoning := strings.TrimSpace(asString(payload["reasoning"]))
	if reasoning == "" {
		reasoning = "AI classification"
	}
	kind := normalizeKind(asString(payload["kind"]), h.kind)
	kindConfidence := clampProbability(payload["kind_confidence"], h.kindConfidence)
	if kindConfidence < 0.01 {
		kindConfidence = 0.01
	}
	kindReason := fmt.Sprintf("AI classified as %s.", kind)
	reasonParts := []string{reasoning}

	if (category == domain.CategoryUnclassified || confidence < 0.6) && h.category != domain.CategoryUnclassified {
		category = h.category
		priority = h.priority
		confidence = round2(maxFloat(confidence, maxFloat(h.confidence, 0.68)))
		reasonParts = append(reasonParts, "Heuristic reinforcement: "+h.reasoning)
	}

	if h.priority == domain.PriorityUrgent && priority != domain.PriorityUrgent {
		priority = domain.PriorityUrgent
		reasonParts = append(reasonParts, "Heuristic override: flagged urgent keywords.")
	}

	if kind != h.kind {
		if kindConfidence+0.05 < h.kindConfidence {
			kind = h.kind
			kindConfidence = h.kindConfidence
			kindReason = "Heuristic override: " + h.kindReason
		} else {
			kindReason = fmt.Sprintf("AI suggested %s (%.2f) vs heuristic %s (%.2f).",
				kind, kindConfidence, h.kind, h.kindConfidence)
		}
	} else {
		kindConfidence = round2(maxFloat(kindConfidence, h.kindConfidence))
		kindReason = fmt.Sprintf("AI and heuristic agree on %s.", kind)
	}

	finalReasoning := strings.Join(nonEmpty(reasonParts), " | ")
	if kindReason != "" {
		if finalReasoning != "" {
			finalReasoning = finalReasoning + " | " + kindReason
		} else {
			finalReasoning = kindReason
		}
	}

	return Classification{
		Kind:           kind,
		KindConfidence: round2(kindConfidence),
		Category:       category,
		Priority:       priority,
		Confidence:     round2(confidence),
		Reasoning:      finalReasoning,
		Outcome:        OutcomeModel,
	}
}

func (c *Classifier) lookupCache(ctx context.Context, text string) (Classification, bool) {
	if c.cache == nil {
		return Classification{}, false
	}
	var cached Classification
	if c.cache.Get(ctx, text, &cached) {
		if c.metrics != nil {
			c.metrics.ClassifyCacheHits.Inc()
		}
		cached.Outcome = OutcomeCached
		return cached, true
	}
	if c.metrics != nil {
		c.metrics.ClassifyCacheMisses.Inc()
	}
	return Classification{}, false
}

func (c *Classifier) storeCache(ctx context.Context, text string, result Classification) {
	if c.cache == nil {
		return
	}
	c.cache.Set(ctx, text, result)
}

func (c *Classifier) record(result Classification) {
	if c.metrics == nil {
		return
	}
	c.metrics.ClassifierCalls.WithLabelValues(string(result.Outcome)).Inc()
	c.metrics.ClassifierConfidence.Observe(result.Confidence)
}

func nonEmpty(values []string) []string {
	out := values[:0]
	for _, value := range values {
		if value != "" {
			out = append(out, value)
		}
	}
	return out
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
