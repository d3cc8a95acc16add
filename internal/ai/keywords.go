package ai

import (
	"strings"

	"github.com/spec-kit/feedback-service/internal/domain"
)

// categoryKeywords drives the heuristic classifier. Matching is substring
// based and case insensitive; every occurrence counts, not just the first.
var categoryKeywords = map[string][]string{
	"HR":      {"harass", "manager", "leave", "promotion", "hr", "appraisal", "discipline", "supervisor"},
	"Payroll": {"salary", "payroll", "bonus", "compensation", "paycheck", "overtime", "allowance"},
	"Facilities": {
		"office", "aircon", "facility", "maintenance", "clean", "restroom", "toilet",
		"elevator", "lift", "lighting", "door", "lock", "cafeteria", "pantry", "machine",
	},
	"IT":     {"computer", "login", "email", "vpn", "system", "password", "network", "printer", "software"},
	"Safety": {"injury", "unsafe", "accident", "danger", "safety", "emergency", "fire", "exit", "evacuation", "alarm", "hazard", "spill", "locked exit"},
}

var urgentKeywords = []string{
	"immediately", "urgent", "asap", "critical", "danger", "threat",
	"emergency", "fire", "injury", "locked", "unsafe",
}

var feedbackPositiveKeywords = []string{
	"thank", "thanks", "appreciate", "grateful", "great", "excellent",
	"awesome", "love", "happy", "well done", "kudos", "amazing",
}

var feedbackSuggestionKeywords = []string{
	"suggest", "recommend", "could you", "would be great", "would love",
	"maybe consider", "feedback", "idea", "improve", "enhance",
	"appreciated if", "nice to have",
}

var complaintMarkers = []string{
	"complain", "complaint", "issue", "problem", "not working", "broken",
	"delay", "missing", "escalate", "unacceptable", "frustrated", "angry",
	"breach", "fail", "failure", "defect",
}

// AllowedCategories lists every category the classifier may emit.
var AllowedCategories = []string{"HR", "Payroll", "Facilities", "IT", "Safety", domain.CategoryUnclassified}

// matchKeywords counts every keyword occurrence in text. The text must
// already be lowercased.
func matchKeywords(text string, keywords []string) int {
	total := 0
	for _, keyword := range keywords {
		total += strings.Count(text, keyword)
	}
	return total
}

func categoryScores(text string) map[string]int {
	normalized := strings.ToLower(text)
	scores := make(map[string]int, len(categoryKeywords))
	for category, keywords := range categoryKeywords {
		scores[category] = matchKeywords(normalized, keywords)
	}
	return scores
}

// NormalizeCategory maps free-form model output onto an allowed category,
// first by exact case-insensitive match and then by containment.
func NormalizeCategory(value, fallback string) string {
	candidate := strings.TrimSpace(value)
	if candidate == "" {
		return fallback
	}
	lowered := strings.ToLower(candidate)
	for _, category := range AllowedCategories {
		if strings.ToLower(category) == lowered {
			return category
		}
	}
	for _, category := range AllowedCategories {
		if strings.Contains(lowered, strings.ToLower(category)) {
			return category
		}
	}
	return fallback
}

func isKnownCategory(value string) bool {
	if value == domain.CategoryUnclassified {
		return true
	}
	_, ok := categoryKeywords[value]
	return ok
}

func normalizeKind(value string, fallback domain.ComplaintKind) domain.ComplaintKind {
	cleaned := strings.ToLower(strings.TrimSpace(value))
	switch {
	case cleaned == "":
		return fallback
	case strings.HasPrefix(cleaned, "feed"):
		return domain.KindFeedback
	case strings.HasPrefix(cleaned, "complaint") || cleaned == "complain":
		return domain.KindComplaint
	}
	return fallback
}
