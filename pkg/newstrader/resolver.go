package newstrader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

const defaultMultiStepThreshold = 8192

// failureKind classifies why a resolution tier produced nothing usable.
// Used for logging only; the ladder reacts to the absence of a result, not
// to the classification.
type failureKind int

const (
	failureNone failureKind = iota
	failureEmptyResponse
	failureParseError
	failureSchemaViolation
	failureBackendError
)

func (k failureKind) String() string {
	switch k {
	case failureNone:
		return "none"
	case failureEmptyResponse:
		return "empty_response"
	case failureParseError:
		return "parse_error"
	case failureSchemaViolation:
		return "schema_violation"
	case failureBackendError:
		return "backend_error"
	}
	return "unknown"
}

// ResolverConfig tunes the resolution strategy. MultiStep takes "auto", "on",
// or "off"; a zero MultiStepThreshold means defaultMultiStepThreshold tokens.
type ResolverConfig struct {
	MultiStep          string
	MultiStepThreshold int
}

// Resolver turns one asset's market and portfolio context into a schema-shaped
// recommendation by walking a ladder of progressively more forgiving
// extraction tiers. Resolve always returns a fully-keyed result and never
// returns an error.
type Resolver struct {
	provider Provider
	cfg      ResolverConfig
	logger   *slog.Logger
}

// NewResolver wires a resolver to a backend provider. A nil logger falls back
// to slog.Default().
func NewResolver(provider Provider, cfg ResolverConfig, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{provider: provider, cfg: cfg, logger: logger}
}

// ProviderName returns the active backend identifier.
func (r *Resolver) ProviderName() string { return r.provider.Name() }

// ProviderModel returns the active model identifier.
func (r *Resolver) ProviderModel() string { return r.provider.Model() }

// Resolve runs the full resolution ladder for one asset. entry may be nil
// when diagnostic capture is off. Any panic escaping a backend call or a
// transform is converted into the terminal-failure object here.
func (r *Resolver) Resolve(ctx context.Context, asset AssetContext, market MarketSnapshot, portfolio PortfolioContext, entry *DebugEntry) (rec Recommendation) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("recommendation resolution panicked",
				"asset", asset.Name, "panic", p)
			rec = buildFailureResult(RequiredFields, fmt.Sprint(p))
		}
	}()

	if r.useMultiStep(ctx) {
		if out, ok := r.resolveMultiStep(ctx, asset, market, portfolio, entry); ok {
			return out
		}
		r.logger.Warn("multi-step resolution aborted, falling back to single-shot",
			"asset", asset.Name)
	}
	return r.resolveSingleShot(ctx, asset, market, portfolio, entry)
}

// useMultiStep decides the strategy: an explicit override wins; "auto" probes
// the backend's context window and goes multi-step only for small models.
// Backends without a determinable context size resolve single-shot.
func (r *Resolver) useMultiStep(ctx context.Context) bool {
	switch strings.ToLower(strings.TrimSpace(r.cfg.MultiStep)) {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	size, ok := r.provider.ContextSize(ctx)
	if !ok {
		return false
	}
	threshold := r.cfg.MultiStepThreshold
	if threshold <= 0 {
		threshold = defaultMultiStepThreshold
	}
	if size <= threshold {
		r.logger.Info("small context window detected, using multi-step resolution",
			"provider", r.provider.Name(), "context_size", size, "threshold", threshold)
		return true
	}
	return false
}

// resolveMultiStep runs the three-prompt decomposition. ok=false means the
// summary step produced nothing and the caller should fall back to
// single-shot; any later shortfall is absorbed by coercion instead.
func (r *Resolver) resolveMultiStep(ctx context.Context, asset AssetContext, market MarketSnapshot, portfolio PortfolioContext, entry *DebugEntry) (Recommendation, bool) {
	summaryPrompt := buildSummaryPrompt(asset, market, portfolio)
	summary, err := r.provider.Invoke(ctx, summaryPrompt, InvokeOptions{})
	entry.Record("summary", summaryPrompt, summary, err)
	if err != nil {
		r.logger.Warn("summary step failed", "asset", asset.Name,
			"kind", failureBackendError.String(), "error", err)
		return Recommendation{}, false
	}
	if strings.TrimSpace(summary) == "" {
		r.logger.Warn("summary step returned empty response", "asset", asset.Name,
			"kind", failureEmptyResponse.String())
		return Recommendation{}, false
	}

	recCandidate := r.stepCandidate(ctx, "recommendation",
		buildRecommendationPrompt(summary, asset, portfolio, false),
		buildRecommendationPrompt(summary, asset, portfolio, true),
		entry)

	action := "Hold"
	if s, ok := recCandidate[FieldRecommendation].(string); ok && strings.TrimSpace(s) != "" {
		action = s
	}
	qtyCandidate := r.stepCandidate(ctx, "quantity",
		buildQuantityPrompt(action, asset, market, portfolio, false),
		buildQuantityPrompt(action, asset, market, portfolio, true),
		entry)

	merged := map[string]any{}
	for k, v := range normalizeCandidateKeys(recCandidate) {
		merged[k] = v
	}
	// Quantity fields from step 3 win over anything step 2 volunteered.
	for k, v := range normalizeCandidateKeys(qtyCandidate) {
		merged[k] = v
	}

	entry.SetOutcome("multistep", true)
	return r.finishCandidate(asset, merged), true
}

// stepCandidate issues one multi-step sub-prompt: schema-constrained first,
// then free-form with JSON-bracket extraction. Returns nil when neither path
// yielded a candidate.
func (r *Resolver) stepCandidate(ctx context.Context, step, structuredPrompt, freeformPrompt string, entry *DebugEntry) map[string]any {
	candidate, err := r.provider.InvokeStructured(ctx, structuredPrompt, defaultMaxTokens)
	entry.Record(step+"-structured", structuredPrompt, candidateJSON(candidate), err)
	if err != nil {
		r.logger.Warn("structured step failed", "step", step,
			"kind", failureBackendError.String(), "error", err)
	}
	if candidate != nil {
		return candidate
	}

	raw, err := r.provider.Invoke(ctx, freeformPrompt, InvokeOptions{})
	entry.Record(step, freeformPrompt, raw, err)
	if err != nil {
		r.logger.Warn("free-form step failed", "step", step,
			"kind", failureBackendError.String(), "error", err)
		return nil
	}
	return extractJSONCandidate(raw)
}

// resolveSingleShot walks the single-shot tiers in order: structured,
// free-form JSON, regex salvage, one reduced-temperature retry, terminal
// failure.
func (r *Resolver) resolveSingleShot(ctx context.Context, asset AssetContext, market MarketSnapshot, portfolio PortfolioContext, entry *DebugEntry) Recommendation {
	structuredPrompt := buildSingleShotPrompt(asset, market, portfolio, false)
	candidate, err := r.provider.InvokeStructured(ctx, structuredPrompt, defaultMaxTokens)
	entry.Record("structured", structuredPrompt, candidateJSON(candidate), err)
	if err != nil {
		r.logger.Warn("structured call failed", "asset", asset.Name,
			"kind", failureBackendError.String(), "error", err)
	}
	if candidate != nil {
		entry.SetOutcome("structured", false)
		return r.finishCandidate(asset, candidate)
	}

	freeformPrompt := buildSingleShotPrompt(asset, market, portfolio, true)
	raw, err := r.provider.Invoke(ctx, freeformPrompt, InvokeOptions{})
	entry.Record("freeform", freeformPrompt, raw, err)
	lastRaw := raw
	if err != nil {
		r.logger.Warn("free-form call failed", "asset", asset.Name,
			"kind", failureBackendError.String(), "error", err)
		lastRaw = err.Error()
	} else if rec, kind := r.resolveRawText(asset, raw, entry, "freeform"); kind == failureNone {
		return rec
	} else {
		r.logger.Warn("free-form response yielded nothing", "asset", asset.Name,
			"kind", kind.String())
	}

	temp := retryTemperature
	retryRaw, err := r.provider.Invoke(ctx, freeformPrompt, InvokeOptions{
		MaxTokens:   retryMaxTokens,
		Temperature: &temp,
	})
	entry.Record("retry", freeformPrompt, retryRaw, err)
	if err != nil {
		r.logger.Warn("retry call failed", "asset", asset.Name,
			"kind", failureBackendError.String(), "error", err)
		if lastRaw == "" {
			lastRaw = err.Error()
		}
	} else {
		lastRaw = retryRaw
		if rec, kind := r.resolveRawText(asset, retryRaw, entry, "retry"); kind == failureNone {
			return rec
		} else {
			r.logger.Warn("retry response yielded nothing", "asset", asset.Name,
				"kind", kind.String())
		}
	}

	entry.SetOutcome("failure", false)
	r.logger.Error("all resolution tiers failed", "asset", asset.Name)
	return buildFailureResult(RequiredFields, lastRaw)
}

// resolveRawText tries JSON-bracket extraction and then regex salvage on one
// raw free-form response.
func (r *Resolver) resolveRawText(asset AssetContext, raw string, entry *DebugEntry, tier string) (Recommendation, failureKind) {
	if strings.TrimSpace(raw) == "" {
		return Recommendation{}, failureEmptyResponse
	}
	if candidate := extractJSONCandidate(raw); candidate != nil {
		entry.SetOutcome(tier+"-json", false)
		return r.finishCandidate(asset, candidate), failureNone
	}
	if found := salvageText(raw); found != nil {
		entry.SetOutcome(tier+"-salvage", false)
		return r.finishCandidate(asset, found), failureNone
	}
	return Recommendation{}, failureParseError
}

// finishCandidate is the single exit for every tier that obtained a candidate
// object: normalize keys, validate for the log line, coerce leniently.
func (r *Resolver) finishCandidate(asset AssetContext, candidate map[string]any) Recommendation {
	normalized := normalizeCandidateKeys(candidate)
	if ok, missing := validateCandidate(normalized); !ok {
		r.logger.Warn("recommendation degraded", "asset", asset.Name,
			"kind", failureSchemaViolation.String(), "fields", strings.Join(missing, ", "))
	}
	return lenientParse(normalized)
}

// extractJSONCandidate pulls the outermost brace span from raw text and
// decodes it. On a parse failure it repairs the span once and retries.
// Returns nil when no object could be decoded.
func extractJSONCandidate(raw string) map[string]any {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil
	}
	span := raw[start : end+1]

	candidate := map[string]any{}
	if err := json.Unmarshal([]byte(span), &candidate); err == nil {
		return candidate
	}
	candidate = map[string]any{}
	if err := json.Unmarshal([]byte(repairJSONSpan(span)), &candidate); err == nil {
		return candidate
	}
	return nil
}

// repairJSONSpan rewrites a brace span so a second decode can succeed.
// Models frequently emit literal newlines and tabs inside string values
// (multiline reasoning text), which strict JSON rejects; those are escaped.
// Other control characters are dropped. Outside string literals, whitespace
// control characters stay and the rest are dropped.
func repairJSONSpan(span string) string {
	var b strings.Builder
	b.Grow(len(span) + 16)
	inString := false
	escaped := false
	for _, r := range span {
		if inString {
			if escaped {
				b.WriteRune(r)
				escaped = false
				continue
			}
			switch r {
			case '\\':
				b.WriteRune(r)
				escaped = true
			case '"':
				b.WriteRune(r)
				inString = false
			case '\n':
				b.WriteString(`\n`)
			case '\t':
				b.WriteString(`\t`)
			case '\r':
				b.WriteString(`\r`)
			default:
				if r < 0x20 || r == 0x7F {
					continue
				}
				b.WriteRune(r)
			}
			continue
		}
		switch {
		case r == '"':
			inString = true
			b.WriteRune(r)
		case r == '\n' || r == '\t' || r == '\r' || r == ' ':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7F:
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func candidateJSON(candidate map[string]any) string {
	if candidate == nil {
		return ""
	}
	data, err := json.Marshal(candidate)
	if err != nil {
		return ""
	}
	return string(data)
}
