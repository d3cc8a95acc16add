package ai

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Language models wrap JSON in markdown fences, use typographic quotes,
// leave trailing commas, and embed raw newlines inside string values. The
// repair pipeline tries progressively smaller slices of the response and
// falls back to YAML, which tolerates most of the remaining damage.

var (
	openFenceRe     = regexp.MustCompile("^```(?:json)?")
	fencedObjectRe  = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
)

func stripCodeFence(payload string) string {
	value := strings.TrimSpace(payload)
	if strings.HasPrefix(value, "```") {
		value = strings.TrimSpace(openFenceRe.ReplaceAllString(value, ""))
		if strings.HasSuffix(value, "```") {
			value = strings.TrimSpace(value[:len(value)-3])
		}
	}
	return value
}

func sanitizeJSONCandidate(candidate string) string {
	cleaned := stripCodeFence(candidate)
	replacer := strings.NewReplacer(
		"“", `"`,
		"”", `"`,
		"‘", "'",
		"’", "'",
	)
	cleaned = replacer.Replace(cleaned)
	for {
		updated := trailingCommaRe.ReplaceAllString(cleaned, "$1")
		if updated == cleaned {
			break
		}
		cleaned = updated
	}
	return escapeUnescapedNewlines(strings.TrimSpace(cleaned))
}

// escapeUnescapedNewlines rewrites literal line breaks inside quoted strings
// as \n escapes. CRLF pairs collapse to one escape.
func escapeUnescapedNewlines(value string) string {
	var builder strings.Builder
	builder.Grow(len(value))
	inString := false
	escapeNext := false
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if escapeNext {
			builder.WriteByte(ch)
			escapeNext = false
			continue
		}
		switch {
		case ch == '\\':
			builder.WriteByte(ch)
			escapeNext = true
		case ch == '"':
			inString = !inString
			builder.WriteByte(ch)
		case inString && (ch == '\n' || ch == '\r'):
			if ch == '\r' && i+1 < len(value) && value[i+1] == '\n' {
				i++
			}
			builder.WriteString(`\n`)
		default:
			builder.WriteByte(ch)
		}
	}
	return builder.String()
}

// parseJSONPayload extracts a JSON object from a raw model response. It
// tries the sanitized whole response, then a fenced block, then the
// outermost brace span, decoding each with JSON first and YAML second.
func parseJSONPayload(content string) (map[string]any, bool) {
	var candidates []string
	if primary := sanitizeJSONCandidate(content); primary != "" {
		candidates = append(candidates, primary)
	}
	if match := fencedObjectRe.FindStringSubmatch(content); match != nil {
		candidates = append(candidates, sanitizeJSONCandidate(match[1]))
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end > start {
		candidates = append(candidates, sanitizeJSONCandidate(content[start:end+1]))
	}

	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		var parsed map[string]any
		decoder := json.NewDecoder(strings.NewReader(candidate))
		decoder.UseNumber()
		if err := decoder.Decode(&parsed); err == nil && parsed != nil {
			return parsed, true
		}
		var loose map[string]any
		if err := yaml.Unmarshal([]byte(candidate), &loose); err == nil && loose != nil {
			return loose, true
		}
	}
	return nil, false
}

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func asFloat(value any, fallback float64) float64 {
	switch v := value.(type) {
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

// clampProbability bounds a confidence value to [0, 1] and rounds it to two
// decimal places.
func clampProbability(value any, fallback float64) float64 {
	prob := asFloat(value, fallback)
	if prob < 0 {
		prob = 0
	}
	if prob > 1 {
		prob = 1
	}
	return round2(prob)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
