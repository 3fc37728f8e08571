package newstrader

import (
	"regexp"
	"strconv"
	"strings"
)

// Last-resort extraction patterns for free text that contained no parseable
// JSON. Matches are whole-word and case-insensitive.
var (
	salvageActionRE     = regexp.MustCompile(`(?i)\b(buy|sell|hold|add|reduce)\b`)
	salvageConfidenceRE = regexp.MustCompile(`(?i)\b(high|medium|low)\b`)
	salvageQuantityRE   = regexp.MustCompile(`(?i)\b(?:quantity|shares?)\s*[:=]\s*(-?\d+)\b`)
	salvageActionQtyRE  = regexp.MustCompile(`(?i)\b(buy|sell|add|reduce)\s+(-?\d+)\b`)
	salvageReasonRE     = regexp.MustCompile(`(?i)\b(?:because|reason(?:ing)?s?\s*:?)\s+(\S.*)`)
)

// salvageText scans raw model output for recommendation, quantity,
// confidence, and reasoning tokens. It returns a candidate containing only
// the fields it found, or nil when nothing matched. The result must always
// pass through lenientParse before leaving the engine.
func salvageText(raw string) map[string]any {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	found := map[string]any{}

	if m := salvageActionRE.FindStringSubmatch(raw); m != nil {
		found[FieldRecommendation] = canonicalEnumValue(m[1], RecommendationActions)
	}
	if m := salvageConfidenceRE.FindStringSubmatch(raw); m != nil {
		found[FieldConfidence] = canonicalEnumValue(m[1], ConfidenceLevels)
	}

	if m := salvageQuantityRE.FindStringSubmatch(raw); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			found[FieldQuantity] = n
		}
	} else if m := salvageActionQtyRE.FindStringSubmatch(raw); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil {
			// Sign convention: sell/reduce quantities are negative.
			verb := strings.ToLower(m[1])
			if (verb == "sell" || verb == "reduce") && n > 0 {
				n = -n
			}
			found[FieldQuantity] = n
		}
	}

	if m := salvageReasonRE.FindStringSubmatch(raw); m != nil {
		if clause := strings.TrimSpace(m[1]); clause != "" {
			found[FieldReasoning] = clause
		}
	}

	if len(found) == 0 {
		return nil
	}
	return found
}

// canonicalEnumValue maps a case-insensitive token back onto its canonical
// enum spelling.
func canonicalEnumValue(token string, allowed []string) string {
	for _, v := range allowed {
		if strings.EqualFold(v, token) {
			return v
		}
	}
	return token
}
