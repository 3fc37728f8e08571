package newstrader

import (
	"strings"
	"testing"
)

func TestBuildSingleShotPrompt_FreeForm(t *testing.T) {
	t.Parallel()

	prompt := buildSingleShotPrompt(testAsset(), testMarket(), testPortfolio(), true)

	assertContains(t, prompt, "Senior Portfolio Manager", "role preamble")
	assertContains(t, prompt, "Siemens AG", "asset name")
	assertContains(t, prompt, "DE0007236101", "isin")
	assertContains(t, prompt, "MARKET_DATA", "market section")
	assertContains(t, prompt, "Siemens raises guidance", "news headline")
	assertContains(t, prompt, "PORTFOLIO_CONTEXT", "portfolio section")
	assertContains(t, prompt, "OUTPUT (JSON)", "example block marker")
	assertContains(t, prompt, `"recommended_quantity"`, "example json keys")
	assertContains(t, prompt, ">6%", "over-allocation threshold")
	assertContains(t, prompt, "<3%", "under-allocation threshold")
}

func TestBuildSingleShotPrompt_Structured(t *testing.T) {
	t.Parallel()

	prompt := buildSingleShotPrompt(testAsset(), testMarket(), testPortfolio(), false)

	if strings.Contains(prompt, "OUTPUT (JSON)") {
		t.Error("structured prompt must not embed the example json block")
	}
	assertContains(t, prompt, FieldRecommendation, "field names still listed")
	assertContains(t, prompt, FieldQuantity, "field names still listed")
}

func TestBuildSingleShotPrompt_PositionLines(t *testing.T) {
	t.Parallel()

	prompt := buildSingleShotPrompt(testAsset(), testMarket(), testPortfolio(), true)
	assertContains(t, prompt, "POSITIONS_DATA", "position section for held asset")
	assertContains(t, prompt, "P&L", "profit and loss line")

	watch := AssetContext{Name: "Watched Corp", Watch: true}
	watchPrompt := buildSingleShotPrompt(watch, MarketSnapshot{}, testPortfolio(), true)
	if strings.Contains(watchPrompt, "POSITIONS_DATA") {
		t.Error("watchlist asset without a position must not carry a position section")
	}
}

func TestBuildSummaryPrompt(t *testing.T) {
	t.Parallel()

	prompt := buildSummaryPrompt(testAsset(), testMarket(), testPortfolio())

	assertContains(t, prompt, "3-5 sentences", "length instruction")
	assertContains(t, prompt, "no JSON", "free-form instruction")
	assertContains(t, prompt, "Siemens AG", "asset name")
}

func TestBuildRecommendationPrompt(t *testing.T) {
	t.Parallel()

	prompt := buildRecommendationPrompt("The stock is doing fine.", testAsset(), testPortfolio(), true)

	assertContains(t, prompt, "The stock is doing fine.", "summary embedded")
	assertContains(t, prompt, ">6%", "bias rule for over-allocation")
	assertContains(t, prompt, "REDUCE or SELL", "reduce bias")
	assertContains(t, prompt, "ADD or BUY", "add bias")
	assertContains(t, prompt, `"Recommendation"`, "json block")
	if strings.Contains(prompt, FieldQuantity) {
		t.Error("recommendation step must not request the quantity field")
	}
}

func TestBuildQuantityPrompt(t *testing.T) {
	t.Parallel()

	prompt := buildQuantityPrompt("Buy", testAsset(), testMarket(), testPortfolio(), true)

	assertContains(t, prompt, "Buy", "action embedded")
	assertContains(t, prompt, "quantity = round((target_value - current_value) / price)", "formula")
	assertContains(t, prompt, "negative for Sell/Reduce", "sign convention")
	assertContains(t, prompt, "150.00 EUR", "current price")
	assertContains(t, prompt, `"recommended_quantity"`, "json block")
}

func TestBuildQuantityPrompt_NoPrice(t *testing.T) {
	t.Parallel()

	prompt := buildQuantityPrompt("Sell", testAsset(), MarketSnapshot{}, testPortfolio(), false)
	assertContains(t, prompt, "unknown", "missing price marker")
}
