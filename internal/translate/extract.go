package translate

import (
	"strings"

	"github.com/tidwall/gjson"
)

// minAcceptedLength is the shortest extracted text treated as a real answer;
// anything at or below it counts as empty.
const minAcceptedLength = 5

// strategy pulls text out of a raw generator response. Strategies are total:
// they return "" rather than failing.
type strategy struct {
	name string
	fn   func(body []byte) string
}

// Tried in order; the first non-empty result wins.
var strategies = []strategy{
	{"text_field", textField},
	{"candidate_parts", candidateParts},
	{"string_coercion", coerceString},
}

func textField(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	v := gjson.GetBytes(body, "text")
	if v.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(v.String())
}

// candidateParts joins the text parts of the first candidate (Gemini) or
// the first choice (OpenAI-compatible).
func candidateParts(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	var parts []string
	for _, p := range gjson.GetBytes(body, "candidates.0.content.parts").Array() {
		if t := p.Get("text"); t.Exists() {
			parts = append(parts, strings.TrimSpace(t.String()))
		}
	}
	if len(parts) == 0 {
		if c := gjson.GetBytes(body, "choices.0.message.content"); c.Type == gjson.String {
			parts = append(parts, strings.TrimSpace(c.String()))
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// coerceString accepts plain-text bodies and bare JSON strings. Objects and
// arrays are never coerced, so an empty envelope stays empty.
func coerceString(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	if gjson.Valid(trimmed) {
		v := gjson.Parse(trimmed)
		if v.Type == gjson.String {
			return strings.TrimSpace(v.String())
		}
		return ""
	}
	return trimmed
}

// Extract runs the strategies in order and reports which one matched.
// ok is false when no strategy produced acceptable text.
func Extract(body []byte) (text, matched string, ok bool) {
	for _, s := range strategies {
		if t := s.fn(body); t != "" {
			return t, s.name, len([]rune(t)) > minAcceptedLength
		}
	}
	return "", "", false
}
