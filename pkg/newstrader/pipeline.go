package newstrader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

const (
	targetAllocationShare = 0.05
	minTargetPosition     = 1000.0
	defaultCurrency       = "EUR"
)

// LoadPositions reads the positions file: a JSON array of asset entries.
func LoadPositions(path string) ([]AssetContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapError(ErrCodeInvalidInput, "failed to read positions file", err)
	}
	var assets []AssetContext
	if err := json.Unmarshal(data, &assets); err != nil {
		return nil, WrapError(ErrCodeInvalidInput, "failed to parse positions file", err)
	}
	for i, asset := range assets {
		if asset.Name == "" {
			return nil, NewError(ErrCodeInvalidInput, fmt.Sprintf("positions entry %d has no asset name", i))
		}
	}
	return assets, nil
}

// LoadMarketSnapshots reads a JSON object mapping asset names to their
// pre-fetched market snapshots. Assets without an entry resolve against an
// empty snapshot.
func LoadMarketSnapshots(path string) (map[string]MarketSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapError(ErrCodeInvalidInput, "failed to read market data file", err)
	}
	snapshots := map[string]MarketSnapshot{}
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return nil, WrapError(ErrCodeInvalidInput, "failed to parse market data file", err)
	}
	return snapshots, nil
}

// BuildPortfolioContext computes the deterministic aggregates for one asset:
// total invested capital across all non-watchlist positions, this position's
// current value and allocation share, and the 5% target position with a
// minimum floor.
func BuildPortfolioContext(assets []AssetContext, asset AssetContext, market MarketSnapshot) PortfolioContext {
	total := 0.0
	for _, a := range assets {
		if a.Watch {
			continue
		}
		total += a.InvestedValue()
	}

	invested := asset.InvestedValue()
	positionValue := invested
	if market.Price != nil && asset.Quantity > 0 {
		positionValue = *market.Price * asset.Quantity
	}

	// Allocation compares invested capital to invested capital. Mixing the
	// market-value position into a purchase-value total would inflate the
	// share of any risen position.
	allocationPct := 0.0
	if total > 0 {
		allocationPct = invested / total * 100
	}

	target := total * targetAllocationShare
	if target < minTargetPosition {
		target = minTargetPosition
	}

	currency := market.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	return PortfolioContext{
		TotalInvested:  NewAmount(total),
		PositionValue:  NewAmount(positionValue),
		AllocationPct:  allocationPct,
		TargetPosition: NewAmount(target),
		Currency:       currency,
	}
}

// PipelineResult pairs one asset with its resolved recommendation and the
// portfolio numbers it was based on.
type PipelineResult struct {
	Asset          AssetContext     `json:"asset"`
	Portfolio      PortfolioContext `json:"portfolio"`
	Recommendation Recommendation   `json:"recommendation"`
}

// Pipeline drives one run: assets are resolved strictly one at a time in
// input order, each awaited to completion before the next begins. A nil core
// skips persistence; dummy mode skips backend calls entirely.
type Pipeline struct {
	resolver *Resolver
	core     *Core
	logger   *slog.Logger
	dummy    bool
}

// NewPipeline wires a pipeline. A nil logger falls back to slog.Default().
func NewPipeline(resolver *Resolver, core *Core, logger *slog.Logger, dummy bool) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{resolver: resolver, core: core, logger: logger, dummy: dummy}
}

// Run resolves every asset sequentially and returns one result per asset, in
// input order. session may be nil when diagnostic capture is off. Persistence
// failures are logged, not fatal; the run continues to the next asset.
func (p *Pipeline) Run(ctx context.Context, assets []AssetContext, market map[string]MarketSnapshot, session *DebugSession) []PipelineResult {
	results := make([]PipelineResult, 0, len(assets))
	for _, asset := range assets {
		snapshot := market[asset.Name]
		portfolio := BuildPortfolioContext(assets, asset, snapshot)

		var rec Recommendation
		if p.dummy {
			rec = dummyRecommendation()
		} else {
			entry := session.NewEntry(asset.Name)
			rec = p.resolver.Resolve(ctx, asset, snapshot, portfolio, entry)
		}

		if rec.Degraded() {
			p.logger.Warn("recommendation degraded",
				"asset", asset.Name, "missing_fields", rec.MissingFields)
		} else {
			p.logger.Info("recommendation resolved",
				"asset", asset.Name, "recommendation", rec.Action,
				"quantity", rec.Quantity, "confidence", rec.Confidence)
		}

		if p.core != nil {
			provider, model := "dummy", "dummy"
			if p.resolver != nil && p.resolver.provider != nil {
				provider = p.resolver.provider.Name()
				model = p.resolver.provider.Model()
			}
			if _, err := p.core.SaveRecommendation(ctx, asset, portfolio, provider, model, rec); err != nil {
				p.logger.Error("failed to persist recommendation",
					"asset", asset.Name, "error", err)
			}
		}

		results = append(results, PipelineResult{
			Asset:          asset,
			Portfolio:      portfolio,
			Recommendation: rec,
		})
	}
	return results
}

// dummyRecommendation is the fixed result used when analysis is disabled, so
// downstream report writers can be exercised without backend credentials.
func dummyRecommendation() Recommendation {
	return Recommendation{
		Action:            "Hold",
		Quantity:          0,
		Reasoning:         "[DUMMY] Analysis skipped, dummy mode is active.",
		QuantityReasoning: "[DUMMY] No quantity calculated.",
		Confidence:        "Low",
	}
}
