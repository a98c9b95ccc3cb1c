package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/hypervisual/fincore/internal/ledger"
	"github.com/hypervisual/fincore/internal/matcher"
	"github.com/hypervisual/fincore/internal/models"
)

func TestWriteRun(t *testing.T) {
	w := NewWriter(zap.NewNop())
	out := filepath.Join(t.TempDir(), "run.xlsx")

	result := matcher.Result{
		Commits: []models.CommitInstruction{
			{TransactionID: "T-1", InvoiceID: "INV-1", Score: 93.75},
		},
		Candidates: []models.MatchCandidate{
			{TransactionID: "T-2", InvoiceID: "INV-2", Score: 62.5,
				Signals: models.MatchedSignals{DateDeltaDays: 3, TextSimilarity: 0.5}},
		},
		Processed: 3,
		NoMatch:   1,
		Skipped:   2,
	}
	queue := []ledger.QueuedExtraction{{
		ID:         7,
		Confidence: 0.45,
		Status:     models.ReviewPending,
		Invoice: models.ExtractedInvoice{
			DocType:          models.DocTypeSupplierInvoice,
			Issuer:           models.PartyRef{Name: "Microsoft Azure"},
			GrossAmount:      14593.50,
			Currency:         "CHF",
			UnresolvedFields: []string{models.FieldNetAmount, models.FieldVATAmount},
		},
	}}

	require.NoError(t, w.WriteRun(result, queue, out))

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Summary", "Commits", "Candidates", "Review Queue"}, f.GetSheetList())

	cell, err := f.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "3", cell)

	cell, err = f.GetCellValue("Summary", "B4")
	require.NoError(t, err)
	assert.Equal(t, "1", cell)

	cell, err = f.GetCellValue("Commits", "B2")
	require.NoError(t, err)
	assert.Equal(t, "INV-1", cell)

	cell, err = f.GetCellValue("Review Queue", "D2")
	require.NoError(t, err)
	assert.Equal(t, "14'593.50", cell)

	cell, err = f.GetCellValue("Review Queue", "G2")
	require.NoError(t, err)
	assert.Equal(t, "netAmount, vatAmount", cell)
}
