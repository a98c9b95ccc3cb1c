package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hypervisual/fincore/internal/models"
)

func testClassifier() *Classifier {
	return New(DefaultConfig(Identity{
		Names:  []string{"HYPERVISUAL"},
		TaxIDs: []string{"CHE-100.968.497"},
	}), zap.NewNop())
}

const outgoingInvoiceText = `HYPERVISUAL
Chemin du Closel 5, 1020 Renens
CHE-100.968.497 TVA

FACTURE N° 2025-0042
Date: 15.01.2025
Échéance: 14.02.2025

Destinataire: PUBLIGRAMA SA
Avenue de la Gare 10
1003 Lausanne

Prestations de conseil digital
Montant net: 13'500.00
TVA 8.1%: 1'093.50
Total CHF: 14'593.50`

const incomingInvoiceText = `Microsoft Azure
One Microsoft Way, Redmond WA

INVOICE
Invoice #: AZ-778812
Date: January 5, 2025

Bill To: HYPERVISUAL
Chemin du Closel 5
1020 Renens, Switzerland

Cloud services subscription
Total due: 412.80 CHF`

func TestClassifyOutgoingInvoice(t *testing.T) {
	c := testClassifier()

	result := c.Classify(models.RawDocument{Text: outgoingInvoiceText})

	assert.Equal(t, models.DocTypeClientInvoice, result.DocType)
	assert.GreaterOrEqual(t, result.ClassificationConfidence, 0.7)
	require.NotEmpty(t, result.ClassificationRationale)
	assert.Equal(t, "issuer_identity_leads", result.ClassificationRationale[0].Code)
}

func TestClassifyIncomingInvoice(t *testing.T) {
	c := testClassifier()

	result := c.Classify(models.RawDocument{Text: incomingInvoiceText})

	assert.Equal(t, models.DocTypeSupplierInvoice, result.DocType)
	assert.GreaterOrEqual(t, result.ClassificationConfidence, 0.7)
	assert.Equal(t, "issuer_identity_in_recipient_block", result.ClassificationRationale[0].Code)
}

func TestClassifyExpenseNote(t *testing.T) {
	c := testClassifier()

	result := c.Classify(models.RawDocument{Text: `NOTE DE FRAIS
Collaborateur: J. Martin
Repas client, Lausanne: 84.50
Approuvé par: C. Dubois`})

	assert.Equal(t, models.DocTypeExpenseNote, result.DocType)
	assert.GreaterOrEqual(t, result.ClassificationConfidence, 0.7)
}

func TestClassifyAmbiguousInvoiceIsUnknown(t *testing.T) {
	c := testClassifier()

	// Invoice wording with no identity anywhere: direction is unresolvable.
	result := c.Classify(models.RawDocument{Text: `FACTURE
Acme Corp
Total: 100.00`})

	assert.Equal(t, models.DocTypeUnknown, result.DocType)
	assert.LessOrEqual(t, result.ClassificationConfidence, 0.5)
}

func TestClassifyGibberishIsUnknown(t *testing.T) {
	c := testClassifier()

	result := c.Classify(models.RawDocument{Text: "lorem ipsum dolor sit amet"})

	assert.Equal(t, models.DocTypeUnknown, result.DocType)
	assert.LessOrEqual(t, result.ClassificationConfidence, 0.5)
}

func TestClassifySourceConfidenceCapsResult(t *testing.T) {
	c := testClassifier()

	result := c.Classify(models.RawDocument{
		Text:             outgoingInvoiceText,
		SourceConfidence: 0.6,
	})

	assert.Equal(t, models.DocTypeClientInvoice, result.DocType)
	assert.InDelta(t, 0.6, result.ClassificationConfidence, 1e-9)
}

func TestClassifyDeclaredTypeHintBreaksTie(t *testing.T) {
	c := testClassifier()

	result := c.Classify(models.RawDocument{
		Text:         "FACTURE\nAcme Corp\nTotal: 100.00",
		DeclaredType: models.DocTypeSupplierInvoice,
	})

	assert.Equal(t, models.DocTypeSupplierInvoice, result.DocType)
}
