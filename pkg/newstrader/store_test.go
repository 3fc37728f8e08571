package newstrader

import (
	"context"
	"testing"
)

func TestSaveAndLoadRecommendation(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	target := 185.0
	rec := Recommendation{
		Action:            "Add",
		Quantity:          4,
		Reasoning:         "underweight",
		QuantityReasoning: "allocation 2% vs target 5%",
		Confidence:        "Medium",
		TargetPrice:       &target,
	}

	id, err := core.SaveRecommendation(ctx, testAsset(), testPortfolio(), "anthropic", "claude-3-5-haiku-latest", rec)
	assertNoError(t, err, "save recommendation")
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	items, err := core.GetLatestRecommendations(ctx)
	assertNoError(t, err, "get latest")
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	got := items[0]
	if got.Asset != "Siemens AG" || got.Ticker != "SIE.DE" {
		t.Errorf("unexpected asset fields: %+v", got)
	}
	if got.Result.Action != "Add" || got.Result.Quantity != 4 {
		t.Errorf("unexpected result fields: %+v", got.Result)
	}
	if got.Result.TargetPrice == nil || *got.Result.TargetPrice != target {
		t.Errorf("expected target price %.2f, got %v", target, got.Result.TargetPrice)
	}
	if got.Result.StopLoss != nil {
		t.Errorf("expected nil stop loss, got %v", got.Result.StopLoss)
	}
	if got.AllocationPct != 3.0 || got.Currency != "EUR" {
		t.Errorf("unexpected portfolio fields: %+v", got)
	}
}

func TestSaveRecommendation_DegradedResult(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	rec := buildFailureResult(RequiredFields, "raw garbage")
	_, err := core.SaveRecommendation(ctx, testAsset(), testPortfolio(), "ollama", "llama3", rec)
	assertNoError(t, err, "save degraded recommendation")

	items, err := core.GetLatestRecommendations(ctx)
	assertNoError(t, err, "get latest")
	got := items[0].Result
	if !got.ParseFailed {
		t.Error("expected parse failed flag round-tripped")
	}
	if len(got.MissingFields) != len(RequiredFields) {
		t.Errorf("expected missing fields round-tripped, got %v", got.MissingFields)
	}
	if got.Action != SentinelParseFailed {
		t.Errorf("expected sentinel action, got %q", got.Action)
	}
}

func TestGetRecommendationHistory(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	asset := testAsset()
	for _, action := range []string{"Buy", "Hold", "Sell"} {
		rec := Recommendation{
			Action:            action,
			Reasoning:         "r",
			QuantityReasoning: "qr",
			Confidence:        "Low",
		}
		_, err := core.SaveRecommendation(ctx, asset, testPortfolio(), "stub", "stub-model", rec)
		assertNoError(t, err, "save")
	}

	history, err := core.GetRecommendationHistory(ctx, asset.Name, 2)
	assertNoError(t, err, "get history")
	if len(history) != 2 {
		t.Fatalf("expected limit honored, got %d items", len(history))
	}
	// Newest first.
	if history[0].Result.Action != "Sell" || history[1].Result.Action != "Hold" {
		t.Errorf("unexpected order: %q, %q", history[0].Result.Action, history[1].Result.Action)
	}

	empty, err := core.GetRecommendationHistory(ctx, "Unknown Corp", 0)
	assertNoError(t, err, "get empty history")
	if len(empty) != 0 {
		t.Errorf("expected no rows for unknown asset, got %d", len(empty))
	}
}

func TestGetLatestRecommendations_OnePerAsset(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	rec := Recommendation{Action: "Buy", Reasoning: "r", QuantityReasoning: "qr", Confidence: "High"}
	for _, name := range []string{"Alpha", "Alpha", "Beta"} {
		_, err := core.SaveRecommendation(ctx, AssetContext{Name: name}, testPortfolio(), "stub", "stub-model", rec)
		assertNoError(t, err, "save")
	}

	items, err := core.GetLatestRecommendations(ctx)
	assertNoError(t, err, "get latest")
	if len(items) != 2 {
		t.Fatalf("expected one row per asset, got %d", len(items))
	}
	if items[0].Asset != "Alpha" || items[1].Asset != "Beta" {
		t.Errorf("expected assets ordered by name, got %+v", items)
	}
}

func TestDebugSessionRoundTrip(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := core.GetLatestDebugSession(ctx); !IsErrorCode(err, ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND before any session, got %v", err)
	}

	session := NewDebugSession("gemini", "gemini-2.5-flash")
	entry := session.NewEntry("Alpha")
	entry.Record("structured", "p", "r", nil)
	entry.SetOutcome("structured", false)

	assertNoError(t, core.SaveDebugSession(ctx, session), "save session")
	assertNoError(t, core.SaveDebugSession(ctx, nil), "nil session is a no-op")

	got, err := core.GetLatestDebugSession(ctx)
	assertNoError(t, err, "load session")
	if got.Provider != "gemini" || got.Model != "gemini-2.5-flash" {
		t.Errorf("unexpected session identity: %+v", got)
	}
	if len(got.Entries) != 1 || got.Entries[0].Asset != "Alpha" {
		t.Errorf("unexpected entries: %+v", got.Entries)
	}
}
