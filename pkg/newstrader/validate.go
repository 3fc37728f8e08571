package newstrader

import (
	"math"
	"strings"
)

// validateCandidate checks a candidate object against the recommendation
// schema. It returns ok=true iff every required field is present with a valid
// value; the second return lists every missing or invalid field name.
// Pure and deterministic, no side effects.
func validateCandidate(candidate map[string]any) (bool, []string) {
	missing := []string{}

	if v, ok := candidate[FieldRecommendation]; !ok || !isValidAction(v) {
		missing = append(missing, FieldRecommendation)
	}
	if v, ok := candidate[FieldQuantity]; !ok {
		missing = append(missing, FieldQuantity)
	} else if _, ok := intFromAny(v); !ok {
		missing = append(missing, FieldQuantity)
	}
	if v, ok := candidate[FieldReasoning]; !ok || !isNonEmptyString(v) {
		missing = append(missing, FieldReasoning)
	}
	if v, ok := candidate[FieldQuantityReasoning]; !ok || !isNonEmptyString(v) {
		missing = append(missing, FieldQuantityReasoning)
	}
	if v, ok := candidate[FieldConfidence]; !ok || !isValidConfidence(v) {
		missing = append(missing, FieldConfidence)
	}

	// Optional fields are not required, but when present they must be
	// numeric or null.
	for _, field := range []string{FieldTargetPrice, FieldStopLoss} {
		if v, ok := candidate[field]; ok && v != nil {
			if _, ok := floatFromAny(v); !ok {
				missing = append(missing, field)
			}
		}
	}

	return len(missing) == 0, missing
}

func isValidAction(v any) bool {
	s, ok := v.(string)
	return ok && contains(RecommendationActions, s)
}

func isValidConfidence(v any) bool {
	s, ok := v.(string)
	return ok && contains(ConfidenceLevels, s)
}

func isNonEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) != ""
}

// intFromAny accepts the integer shapes a JSON decoder or SDK may produce.
// Whole-number floats count as integers; anything else does not.
func intFromAny(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) && !math.IsNaN(n) {
			return int(n), true
		}
		return 0, false
	case float32:
		f := float64(n)
		if f == math.Trunc(f) {
			return int(f), true
		}
		return 0, false
	}
	return 0, false
}

func floatFromAny(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
