package newstrader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setupTestDB creates a temporary database for testing and returns a Core instance.
// The caller should defer cleanup() to remove the temp file.
func setupTestDB(t *testing.T) (*Core, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "newstrader-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	core, err := Open(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open test db: %v", err)
	}

	cleanup := func() {
		core.Close()
		os.RemoveAll(tmpDir)
	}

	return core, cleanup
}

// stubProvider is a scriptable Provider for orchestrator tests.
type stubProvider struct {
	name       string
	model      string
	structured func(prompt string, maxTokens int) (map[string]any, error)
	invoke     func(prompt string, opts InvokeOptions) (string, error)
	ctxSize    int
	ctxOK      bool
	verifyErr  error
}

func (s *stubProvider) Name() string {
	if s.name == "" {
		return "stub"
	}
	return s.name
}

func (s *stubProvider) Model() string {
	if s.model == "" {
		return "stub-model"
	}
	return s.model
}

func (s *stubProvider) Verify(ctx context.Context) error {
	return s.verifyErr
}

func (s *stubProvider) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (string, error) {
	if s.invoke == nil {
		return "", nil
	}
	return s.invoke(prompt, opts)
}

func (s *stubProvider) InvokeStructured(ctx context.Context, prompt string, maxTokens int) (map[string]any, error) {
	if s.structured == nil {
		return nil, nil
	}
	return s.structured(prompt, maxTokens)
}

func (s *stubProvider) ContextSize(ctx context.Context) (int, bool) {
	return s.ctxSize, s.ctxOK
}

// validCandidate returns a candidate that passes validation untouched.
func validCandidate() map[string]any {
	return map[string]any{
		FieldRecommendation:    "Buy",
		FieldQuantity:          10,
		FieldReasoning:         "Positive earnings surprise.",
		FieldQuantityReasoning: "Position is 2% of portfolio, target is 5%.",
		FieldConfidence:        "High",
	}
}

func testAsset() AssetContext {
	return AssetContext{
		Name:          "Siemens AG",
		Ticker:        "SIE.DE",
		ISIN:          "DE0007236101",
		Quantity:      10,
		PurchasePrice: 120,
		PurchaseDate:  "2024-03-01",
	}
}

func testMarket() MarketSnapshot {
	price := 150.0
	return MarketSnapshot{
		Price:    &price,
		Currency: "EUR",
		Source:   "test",
		News: []NewsItem{
			{Source: "Reuters", Title: "Siemens raises guidance"},
		},
	}
}

func testPortfolio() PortfolioContext {
	return PortfolioContext{
		TotalInvested:  NewAmount(50000),
		PositionValue:  NewAmount(1500),
		AllocationPct:  3.0,
		TargetPosition: NewAmount(2500),
		Currency:       "EUR",
	}
}

// assertNoError fails the test if err is not nil.
func assertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", msg, err)
	}
}

// assertContains checks if the string contains the substring.
func assertContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s: string %q does not contain %q", msg, s, substr)
	}
}

func assertMissing(t *testing.T, missing []string, field string) {
	t.Helper()
	for _, m := range missing {
		if m == field {
			return
		}
	}
	t.Errorf("expected %q in missing fields, got %v", field, missing)
}
