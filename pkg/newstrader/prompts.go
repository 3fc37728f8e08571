package newstrader

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const analystRolePreamble = `ROLE: Senior Portfolio Manager.
INSTRUCTION: Never be sycophantic. Prioritize factual accuracy and logical consistency over politeness or agreement. If an assumption is wrong, say so directly without hedging. If you are uncertain, say so instead of hallucinating. Be a critical auditor, not an assistant.`

const recommendationExampleJSON = `{
  "Recommendation": "Buy" | "Sell" | "Hold" | "Add" | "Reduce",
  "recommended_quantity": <integer> (Positive for Buy/Add, Negative for Sell/Reduce, 0 for Hold),
  "Reasoning": "News-List...\n\nAnalysis: ...",
  "quantity_reasoning": "EXPLAIN CLEARLY: current position as % of total portfolio, target allocation, and the resulting share count.",
  "Confidence": "High" | "Medium" | "Low",
  "target_price": <number or null>,
  "stop_loss": <number or null>
}`

// buildSingleShotPrompt embeds the full market, news, and portfolio context
// into one comprehensive prompt. withExample selects the free-form phrasing
// with an explicit example-JSON block; without it the prompt is phrased for a
// schema-constrained call and carries no embedded JSON.
func buildSingleShotPrompt(asset AssetContext, market MarketSnapshot, portfolio PortfolioContext, withExample bool) string {
	var sb strings.Builder
	sb.WriteString(analystRolePreamble)
	sb.WriteString("\n\nDATE: ")
	sb.WriteString(time.Now().Format("2006-01-02"))
	sb.WriteString("\n\n")
	sb.WriteString(assetHeader(asset))
	sb.WriteString(positionLines(asset, market))
	sb.WriteString("\nMARKET_DATA:\n")
	sb.WriteString(marketDataJSON(market))
	sb.WriteString("\n\n")
	sb.WriteString(portfolioContextLines(portfolio))
	sb.WriteString("\nTASK:\n")
	sb.WriteString("1. Analyze the asset based on TODAY's news.\n")
	sb.WriteString("2. Provide a concrete TRADING RECOMMENDATION to balance the portfolio.\n")
	sb.WriteString(allocationGuidelines(portfolio))
	sb.WriteString("3. CALCULATE EXACT QUANTITY:\n")
	sb.WriteString(quantityFormulaLines(portfolio))
	sb.WriteString("\nFORMAT:\n")
	sb.WriteString("- List ABSOLUTELY EVERY news headline (each on a new line: '- [Source] : [Title]').\n")
	sb.WriteString("- If no news: \"No current headlines.\"\n")

	if withExample {
		sb.WriteString("\nOUTPUT (JSON):\n")
		sb.WriteString(recommendationExampleJSON)
		sb.WriteString("\n")
	} else {
		sb.WriteString("\nProvide the recommendation using the requested structured fields: ")
		sb.WriteString("Recommendation, recommended_quantity, Reasoning, quantity_reasoning, Confidence, target_price, stop_loss.\n")
	}
	return sb.String()
}

// buildSummaryPrompt is step 1 of the multi-step decomposition: a free-form
// synthesis small enough for context-limited backends. No schema involved.
func buildSummaryPrompt(asset AssetContext, market MarketSnapshot, portfolio PortfolioContext) string {
	var sb strings.Builder
	sb.WriteString("You are a financial analyst. Summarize the situation of the following asset in 3-5 sentences: ")
	sb.WriteString("news sentiment, price development, and portfolio allocation. Plain text only, no JSON.\n\n")
	sb.WriteString(assetHeader(asset))
	sb.WriteString(positionLines(asset, market))
	sb.WriteString("\nMARKET_DATA:\n")
	sb.WriteString(marketDataJSON(market))
	sb.WriteString("\n\n")
	sb.WriteString(portfolioContextLines(portfolio))
	return sb.String()
}

// buildRecommendationPrompt is step 2: summary plus portfolio numbers in,
// the qualitative recommendation fields out.
func buildRecommendationPrompt(summary string, asset AssetContext, portfolio PortfolioContext, withExample bool) string {
	var sb strings.Builder
	sb.WriteString("Based on the analyst summary and portfolio numbers below, give a trading recommendation for ")
	sb.WriteString(asset.Name)
	sb.WriteString(".\n\nSUMMARY:\n")
	sb.WriteString(summary)
	sb.WriteString("\n\n")
	sb.WriteString(portfolioContextLines(portfolio))
	sb.WriteString("\nRULES:\n")
	sb.WriteString(allocationGuidelines(portfolio))
	if withExample {
		sb.WriteString("\nOUTPUT (JSON):\n")
		sb.WriteString(`{
  "Recommendation": "Buy" | "Sell" | "Hold" | "Add" | "Reduce",
  "Reasoning": "...",
  "Confidence": "High" | "Medium" | "Low",
  "target_price": <number or null>,
  "stop_loss": <number or null>
}`)
		sb.WriteString("\n")
	} else {
		sb.WriteString("\nProvide the fields: Recommendation, Reasoning, Confidence, target_price, stop_loss.\n")
	}
	return sb.String()
}

// buildQuantityPrompt is step 3: the step-2 recommendation plus prices in,
// the exact share count out.
func buildQuantityPrompt(action string, asset AssetContext, market MarketSnapshot, portfolio PortfolioContext, withExample bool) string {
	price := "unknown (estimate from purchase price)"
	if market.Price != nil {
		price = fmt.Sprintf("%.2f %s", *market.Price, marketCurrency(market, portfolio))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "The recommendation for %s is: %s.\n", asset.Name, action)
	fmt.Fprintf(&sb, "Current price per share: %s\n", price)
	fmt.Fprintf(&sb, "Current position value: %.2f %s\n", portfolio.PositionValue.Float(), portfolio.Currency)
	fmt.Fprintf(&sb, "Target position value: %.2f %s\n", portfolio.TargetPosition.Float(), portfolio.Currency)
	sb.WriteString("\nCalculate the exact number of shares to trade.\n")
	sb.WriteString("Formula: quantity = round((target_value - current_value) / price)\n")
	sb.WriteString("Sign convention: positive for Buy/Add, negative for Sell/Reduce, 0 for Hold.\n")
	if withExample {
		sb.WriteString("\nOUTPUT (JSON):\n")
		sb.WriteString(`{
  "recommended_quantity": <integer>,
  "quantity_reasoning": "..."
}`)
		sb.WriteString("\n")
	} else {
		sb.WriteString("\nProvide the fields: recommended_quantity, quantity_reasoning.\n")
	}
	return sb.String()
}

func assetHeader(asset AssetContext) string {
	header := fmt.Sprintf("ASSET: %s", asset.Name)
	if asset.Ticker != "" {
		header += fmt.Sprintf(" (%s)", asset.Ticker)
	}
	if asset.ISIN != "" {
		header += fmt.Sprintf("\nISIN: %s", asset.ISIN)
	}
	return header + "\n"
}

func positionLines(asset AssetContext, market MarketSnapshot) string {
	if asset.PurchasePrice == 0 || asset.Quantity == 0 || market.Price == nil {
		return ""
	}
	current := *market.Price
	pnl := (current - asset.PurchasePrice) * asset.Quantity
	pnlPct := (current - asset.PurchasePrice) / asset.PurchasePrice * 100

	var sb strings.Builder
	sb.WriteString("POSITIONS_DATA:\n")
	fmt.Fprintf(&sb, "P&L: %.2f (%+.2f%%)\n", pnl, pnlPct)
	fmt.Fprintf(&sb, "Purchase: %.2f on %s\n", asset.PurchasePrice, asset.PurchaseDate)
	fmt.Fprintf(&sb, "Current: %.2f\n", current)
	fmt.Fprintf(&sb, "Position Value: %.2f\n", current*asset.Quantity)
	return sb.String()
}

func marketDataJSON(market MarketSnapshot) string {
	data, err := json.MarshalIndent(market, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

func portfolioContextLines(portfolio PortfolioContext) string {
	var sb strings.Builder
	sb.WriteString("PORTFOLIO_CONTEXT:\n")
	fmt.Fprintf(&sb, "Total Portfolio Capital: %.2f %s\n", portfolio.TotalInvested.Float(), portfolio.Currency)
	fmt.Fprintf(&sb, "Current Position Value: %.2f %s (%.1f%% of Portfolio)\n",
		portfolio.PositionValue.Float(), portfolio.Currency, portfolio.AllocationPct)
	fmt.Fprintf(&sb, "Target Position Sizing: ~5%% (%.2f %s) per asset for diversification.\n",
		portfolio.TargetPosition.Float(), portfolio.Currency)
	return sb.String()
}

func allocationGuidelines(portfolio PortfolioContext) string {
	var sb strings.Builder
	sb.WriteString("   - Target allocation per asset should be ~3-5% OF TOTAL PORTFOLIO VALUE.\n")
	sb.WriteString("   - IMPORTANT: The 5% refers to the TOTAL portfolio value, NOT the value of the individual position!\n")
	sb.WriteString("   - If allocation is too high (>6% of total portfolio), recommend REDUCE or SELL to trim risk.\n")
	sb.WriteString("   - If allocation is low (<3% of total portfolio) and sentiment is positive, recommend ADD or BUY.\n")
	sb.WriteString("   - If sentiment is neutral/negative, recommend HOLD or SELL.\n")
	return sb.String()
}

func quantityFormulaLines(portfolio PortfolioContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "   - Based on the Target Position (approx %.2f %s = 5%% of %.2f %s total portfolio), calculate how many shares to Buy/Sell.\n",
		portfolio.TargetPosition.Float(), portfolio.Currency, portfolio.TotalInvested.Float(), portfolio.Currency)
	sb.WriteString("   - Formula: (Target_Value - Current_Value) / Current_Price_per_Share\n")
	sb.WriteString("   - Use the Current Price from MARKET_DATA. If missing, estimate from Purchase Price or News.\n")
	return sb.String()
}

func marketCurrency(market MarketSnapshot, portfolio PortfolioContext) string {
	if market.Currency != "" {
		return market.Currency
	}
	return portfolio.Currency
}
