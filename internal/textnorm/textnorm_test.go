package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldStripsDiacriticsAndCase(t *testing.T) {
	assert.Equal(t, "echeance", Fold("Échéance"))
	assert.Equal(t, "baloise assurance zurich", Fold("Bâloise Assurance Zürich"))
	assert.Equal(t, "facture 2025-001", Fold("FACTURE 2025-001"))
}

func TestTokenizeDropsNoise(t *testing.T) {
	tokens := Tokenize("Virement SEPA PUBLIGRAMA SA, Facture 2025-001")

	assert.Equal(t, []string{"publigrama", "facture", "2025", "001"}, tokens)
}

func TestTokenizeKeepsDigitRuns(t *testing.T) {
	tokens := Tokenize("REF 210000000003139471430009017")

	assert.Contains(t, tokens, "210000000003139471430009017")
	assert.Contains(t, tokens, "ref")
}

func TestOverlapRatio(t *testing.T) {
	probe := TokenSet("Virement PUBLIGRAMA Facture 2025-001")

	assert.InDelta(t, 1.0, OverlapRatio(probe, Tokenize("PUBLIGRAMA 2025-001")), 1e-9)
	assert.InDelta(t, 0.5, OverlapRatio(probe, Tokenize("PUBLIGRAMA 2024")), 1e-9)
	assert.Zero(t, OverlapRatio(probe, nil))
}
