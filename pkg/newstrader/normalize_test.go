package newstrader

import "testing"

func TestNormalizeCandidateKeys_GermanAliases(t *testing.T) {
	t.Parallel()

	candidate := map[string]any{
		"Empfehlung":            "Buy",
		"Empfohlene_Stueckzahl": 5,
		"Begruendung":           "gute Nachrichten",
		"Grund_fuer_Menge":      "Zielallokation",
		"Genauigkeit":           "High",
		"Zielpreis":             180.0,
		"Stop_Loss":             120.0,
	}

	out := normalizeCandidateKeys(candidate)

	if out[FieldRecommendation] != "Buy" {
		t.Errorf("expected Recommendation mapped, got %v", out[FieldRecommendation])
	}
	if out[FieldQuantity] != 5 {
		t.Errorf("expected quantity mapped, got %v", out[FieldQuantity])
	}
	if out[FieldReasoning] != "gute Nachrichten" {
		t.Errorf("expected reasoning mapped, got %v", out[FieldReasoning])
	}
	if out[FieldQuantityReasoning] != "Zielallokation" {
		t.Errorf("expected quantity reasoning mapped, got %v", out[FieldQuantityReasoning])
	}
	if out[FieldConfidence] != "High" {
		t.Errorf("expected confidence mapped, got %v", out[FieldConfidence])
	}
	if out[FieldTargetPrice] != 180.0 {
		t.Errorf("expected target price mapped, got %v", out[FieldTargetPrice])
	}
	if out[FieldStopLoss] != 120.0 {
		t.Errorf("expected stop loss mapped, got %v", out[FieldStopLoss])
	}
}

func TestNormalizeCandidateKeys_UmlautAlias(t *testing.T) {
	t.Parallel()

	out := normalizeCandidateKeys(map[string]any{"Begründung": "Begründungstext"})
	if out[FieldReasoning] != "Begründungstext" {
		t.Errorf("expected umlaut alias mapped, got %v", out[FieldReasoning])
	}
}

func TestNormalizeCandidateKeys_CanonicalWinsOverAlias(t *testing.T) {
	t.Parallel()

	out := normalizeCandidateKeys(map[string]any{
		FieldRecommendation: "Hold",
		"Empfehlung":        "Buy",
	})
	if out[FieldRecommendation] != "Hold" {
		t.Errorf("expected canonical key to win, got %v", out[FieldRecommendation])
	}
	if len(out) != 1 {
		t.Errorf("expected alias dropped, got %v", out)
	}
}

func TestNormalizeCandidateKeys_Idempotent(t *testing.T) {
	t.Parallel()

	candidate := validCandidate()
	once := normalizeCandidateKeys(candidate)
	twice := normalizeCandidateKeys(once)

	if len(once) != len(candidate) || len(twice) != len(once) {
		t.Fatalf("expected stable key count, got %d then %d", len(once), len(twice))
	}
	for k, v := range candidate {
		if twice[k] != v {
			t.Errorf("key %q changed: %v -> %v", k, v, twice[k])
		}
	}
}

func TestNormalizeCandidateKeys_UnknownKeysPassThrough(t *testing.T) {
	t.Parallel()

	out := normalizeCandidateKeys(map[string]any{"extra_field": 42})
	if out["extra_field"] != 42 {
		t.Errorf("expected unknown key preserved, got %v", out)
	}
}
