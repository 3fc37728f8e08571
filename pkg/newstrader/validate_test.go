package newstrader

import "testing"

func TestValidateCandidate_Valid(t *testing.T) {
	t.Parallel()

	ok, missing := validateCandidate(validCandidate())
	if !ok {
		t.Fatalf("expected valid candidate, missing: %v", missing)
	}
	if len(missing) != 0 {
		t.Errorf("expected no missing fields, got %v", missing)
	}
}

func TestValidateCandidate_ValidWithOptionalFields(t *testing.T) {
	t.Parallel()

	candidate := validCandidate()
	candidate[FieldTargetPrice] = 175.5
	candidate[FieldStopLoss] = nil

	ok, missing := validateCandidate(candidate)
	if !ok {
		t.Fatalf("expected valid candidate, missing: %v", missing)
	}
}

func TestValidateCandidate_WholeFloatQuantity(t *testing.T) {
	t.Parallel()

	// JSON decoding produces float64 for all numbers.
	candidate := validCandidate()
	candidate[FieldQuantity] = float64(10)

	ok, missing := validateCandidate(candidate)
	if !ok {
		t.Fatalf("expected whole float to count as integer, missing: %v", missing)
	}
}

func TestValidateCandidate_FractionalQuantity(t *testing.T) {
	t.Parallel()

	candidate := validCandidate()
	candidate[FieldQuantity] = 10.5

	ok, missing := validateCandidate(candidate)
	if ok {
		t.Fatal("expected fractional quantity to fail validation")
	}
	assertMissing(t, missing, FieldQuantity)
}

func TestValidateCandidate_MissingFields(t *testing.T) {
	t.Parallel()

	ok, missing := validateCandidate(map[string]any{})
	if ok {
		t.Fatal("expected empty candidate to fail validation")
	}
	if len(missing) != len(RequiredFields) {
		t.Fatalf("expected %d missing fields, got %d: %v", len(RequiredFields), len(missing), missing)
	}
	for _, field := range RequiredFields {
		assertMissing(t, missing, field)
	}
}

func TestValidateCandidate_InvalidEnum(t *testing.T) {
	t.Parallel()

	candidate := validCandidate()
	candidate[FieldRecommendation] = "Strong Buy"

	ok, missing := validateCandidate(candidate)
	if ok {
		t.Fatal("expected unknown action to fail validation")
	}
	assertMissing(t, missing, FieldRecommendation)
}

func TestValidateCandidate_EnumCaseSensitive(t *testing.T) {
	t.Parallel()

	candidate := validCandidate()
	candidate[FieldConfidence] = "high"

	ok, missing := validateCandidate(candidate)
	if ok {
		t.Fatal("expected lowercase confidence to fail validation")
	}
	assertMissing(t, missing, FieldConfidence)
}

func TestValidateCandidate_EmptyReasoning(t *testing.T) {
	t.Parallel()

	candidate := validCandidate()
	candidate[FieldReasoning] = "   "

	ok, missing := validateCandidate(candidate)
	if ok {
		t.Fatal("expected whitespace reasoning to fail validation")
	}
	assertMissing(t, missing, FieldReasoning)
}

func TestValidateCandidate_BadOptionalField(t *testing.T) {
	t.Parallel()

	candidate := validCandidate()
	candidate[FieldTargetPrice] = "around 180"

	ok, missing := validateCandidate(candidate)
	if ok {
		t.Fatal("expected non-numeric target price to fail validation")
	}
	assertMissing(t, missing, FieldTargetPrice)
}
