package newstrader

import "strings"

// lenientParse fabricates a fully-keyed Recommendation from any candidate
// shape. Fields that are missing or fail validation are substituted with
// sentinel markers (or zero for the numeric quantity) and collected in
// MissingFields; a clean candidate produces a clean result with no flags.
// Never panics regardless of input shape.
func lenientParse(candidate map[string]any) Recommendation {
	var rec Recommendation
	var flagged []string

	rec.Action, flagged = lenientEnum(candidate, FieldRecommendation, RecommendationActions, flagged)
	rec.Confidence, flagged = lenientEnum(candidate, FieldConfidence, ConfidenceLevels, flagged)
	rec.Reasoning, flagged = lenientText(candidate, FieldReasoning, flagged)
	rec.QuantityReasoning, flagged = lenientText(candidate, FieldQuantityReasoning, flagged)

	if v, ok := candidate[FieldQuantity]; !ok {
		// Quantity stays zero; it is numeric, so no sentinel string fits.
		flagged = append(flagged, FieldQuantity)
	} else if n, ok := intFromAny(v); ok {
		rec.Quantity = n
	} else {
		flagged = append(flagged, FieldQuantity)
	}

	// Optional numerics become null on any trouble, never flagged.
	rec.TargetPrice = lenientOptionalNumber(candidate, FieldTargetPrice)
	rec.StopLoss = lenientOptionalNumber(candidate, FieldStopLoss)

	if len(flagged) > 0 {
		rec.ParseFailed = true
		rec.MissingFields = flagged
	}
	return rec
}

func lenientEnum(candidate map[string]any, field string, allowed []string, flagged []string) (string, []string) {
	v, ok := candidate[field]
	if !ok {
		return SentinelMissing, append(flagged, field)
	}
	if s, ok := v.(string); ok && contains(allowed, s) {
		return s, flagged
	}
	return SentinelInvalid, append(flagged, field)
}

func lenientText(candidate map[string]any, field string, flagged []string) (string, []string) {
	v, ok := candidate[field]
	if !ok {
		return SentinelMissing, append(flagged, field)
	}
	if isNonEmptyString(v) {
		return v.(string), flagged
	}
	return SentinelInvalid, append(flagged, field)
}

func lenientOptionalNumber(candidate map[string]any, field string) *float64 {
	v, ok := candidate[field]
	if !ok || v == nil {
		return nil
	}
	if f, ok := floatFromAny(v); ok {
		return &f
	}
	return nil
}

// buildFailureResult synthesizes the terminal-failure object returned when
// every resolution tier came up empty. The reasoning fields explain in plain
// text which required fields could not be obtained; rawPreview carries at
// most 200 characters of the last raw response for diagnosis.
func buildFailureResult(missing []string, rawPreview string) Recommendation {
	fields := make([]string, len(missing))
	copy(fields, missing)
	return Recommendation{
		Action:   SentinelParseFailed,
		Quantity: 0,
		Reasoning: "[Incomplete] The model response could not be parsed into a recommendation. " +
			"Raw response preview: " + truncateForPreview(rawPreview),
		QuantityReasoning: "Required fields could not be obtained: " + strings.Join(fields, ", "),
		Confidence:        "Low",
		TargetPrice:       nil,
		StopLoss:          nil,
		ParseFailed:       true,
		MissingFields:     fields,
	}
}

const rawPreviewLimit = 200

// truncateForPreview cuts on rune boundaries so a multi-byte character is
// never split mid-sequence.
func truncateForPreview(raw string) string {
	if len(raw) <= rawPreviewLimit {
		return raw
	}
	runes := []rune(raw)
	if len(runes) <= rawPreviewLimit {
		return raw
	}
	return string(runes[:rawPreviewLimit])
}
