package newstrader

// candidateKeyAliases maps localized and legacy field names onto canonical
// schema keys. Earlier report generations used German field names; models
// prompted with mixed-language context still occasionally emit them.
var candidateKeyAliases = map[string]string{
	"Empfehlung":            FieldRecommendation,
	"Empfohlene_Stueckzahl": FieldQuantity,
	"Begründung":            FieldReasoning,
	"Begruendung":           FieldReasoning,
	"Grund_fuer_Menge":      FieldQuantityReasoning,
	"Genauigkeit":           FieldConfidence,
	"Zielpreis":             FieldTargetPrice,
	"Stop_Loss":             FieldStopLoss,
}

// normalizeCandidateKeys maps alias keys onto canonical schema keys; unmapped
// keys pass through unchanged. Idempotent: canonical input is returned as an
// equal copy. A canonical key already present wins over an alias.
func normalizeCandidateKeys(candidate map[string]any) map[string]any {
	out := make(map[string]any, len(candidate))
	for k, v := range candidate {
		canonical, ok := candidateKeyAliases[k]
		if !ok {
			out[k] = v
			continue
		}
		if _, exists := candidate[canonical]; exists {
			continue
		}
		out[canonical] = v
	}
	return out
}
