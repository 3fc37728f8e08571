package newstrader

// Sentinel markers substituted for fields that could not be resolved, so a
// result object leaving the engine is never short a key.
const (
	SentinelMissing     = "[Missing]"
	SentinelInvalid     = "[Invalid]"
	SentinelParseFailed = "[Parse failed]"
)

// Canonical schema keys. Downstream report writers read results by these
// names and must tolerate sentinel strings in place of normal values.
const (
	FieldRecommendation    = "Recommendation"
	FieldQuantity          = "recommended_quantity"
	FieldReasoning         = "Reasoning"
	FieldQuantityReasoning = "quantity_reasoning"
	FieldConfidence        = "Confidence"
	FieldTargetPrice       = "target_price"
	FieldStopLoss          = "stop_loss"
)

// RequiredFields lists the five mandatory schema keys in reporting order.
var RequiredFields = []string{
	FieldRecommendation,
	FieldQuantity,
	FieldReasoning,
	FieldQuantityReasoning,
	FieldConfidence,
}

// RecommendationActions are the valid values for the Recommendation field.
// Sign convention for quantities: positive for Buy/Add, negative for
// Sell/Reduce, zero for Hold.
var RecommendationActions = []string{"Buy", "Sell", "Hold", "Add", "Reduce"}

// ConfidenceLevels are the valid values for the Confidence field.
var ConfidenceLevels = []string{"High", "Medium", "Low"}

// Recommendation is the fully-keyed, schema-shaped result produced by the
// resolver. All five required fields are always present; string fields may
// carry a sentinel marker when the backend response could not be resolved.
type Recommendation struct {
	Action            string   `json:"Recommendation"`
	Quantity          int      `json:"recommended_quantity"`
	Reasoning         string   `json:"Reasoning"`
	QuantityReasoning string   `json:"quantity_reasoning"`
	Confidence        string   `json:"Confidence"`
	TargetPrice       *float64 `json:"target_price"`
	StopLoss          *float64 `json:"stop_loss"`
	ParseFailed       bool     `json:"_parse_failed,omitempty"`
	MissingFields     []string `json:"_missing_fields,omitempty"`
}

// Degraded reports whether any field had to be substituted or coerced.
func (r Recommendation) Degraded() bool {
	return r.ParseFailed
}

// AssetContext describes one position (or watchlist entry) as loaded from
// the positions file. Read-only input to the engine.
type AssetContext struct {
	Name          string   `json:"asset"`
	Ticker        string   `json:"ticker,omitempty"`
	ISIN          string   `json:"isin,omitempty"`
	Quantity      float64  `json:"quantity,omitempty"`
	PurchasePrice float64  `json:"purchase_price,omitempty"`
	PurchaseDate  string   `json:"purchase_date,omitempty"`
	Invest        *float64 `json:"invest,omitempty"`
	Watch         bool     `json:"watch,omitempty"`
}

// InvestedValue returns the capital bound in this position: the explicit
// invest override when present, otherwise quantity times purchase price.
func (a AssetContext) InvestedValue() float64 {
	if a.Invest != nil {
		return *a.Invest
	}
	return a.Quantity * a.PurchasePrice
}

// NewsItem is one pre-fetched headline handed in by the news collaborator.
type NewsItem struct {
	Source string `json:"source"`
	Title  string `json:"title"`
	Date   string `json:"date,omitempty"`
	URL    string `json:"url,omitempty"`
}

// MarketSnapshot carries the externally-discovered current price (or the
// reason none was found) plus the news digest for one asset.
type MarketSnapshot struct {
	Price      *float64   `json:"price,omitempty"`
	Currency   string     `json:"currency,omitempty"`
	Source     string     `json:"source,omitempty"`
	PriceError string     `json:"price_error,omitempty"`
	News       []NewsItem `json:"news,omitempty"`
	FetchedAt  string     `json:"fetched_at,omitempty"`
}

// PortfolioContext holds the deterministic aggregates computed by the caller
// before a resolution: total capital, this asset's share of it, and the
// target position size used for quantity calculation.
type PortfolioContext struct {
	TotalInvested  Amount  `json:"total_invested"`
	PositionValue  Amount  `json:"position_value"`
	AllocationPct  float64 `json:"allocation_pct"`
	TargetPosition Amount  `json:"target_position"`
	Currency       string  `json:"currency"`
}
