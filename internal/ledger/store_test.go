package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hypervisual/fincore/internal/config"
	"github.com/hypervisual/fincore/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(config.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	n, err := s.ImportTransactions(ctx, []models.BankTransaction{
		{ID: "T-1", Amount: 1081.00, Currency: "CHF", Date: time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), Description: "VIREMENT PUBLIGRAMA"},
		{ID: "T-2", Amount: -412.80, Currency: "CHF", Date: time.Date(2025, 2, 4, 0, 0, 0, 0, time.UTC), Description: "MICROSOFT AZURE"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = s.ImportInvoices(ctx, []models.OpenInvoice{
		{ID: "INV-1", Amount: 1081.00, Currency: "CHF", DueDate: time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), PartyName: "Publigrama SA"},
		{ID: "INV-2", Amount: 412.80, Currency: "CHF", DueDate: time.Date(2025, 2, 4, 0, 0, 0, 0, time.UTC), PartyName: "Microsoft Azure"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestImportIsIdempotent(t *testing.T) {
	s := testStore(t)
	seed(t, s)
	ctx := context.Background()

	n, err := s.ImportTransactions(ctx, []models.BankTransaction{
		{ID: "T-1", Amount: 1081.00, Currency: "CHF", Date: time.Now(), Description: "dup"},
	})
	require.NoError(t, err)
	assert.Zero(t, n)

	txs, err := s.Transactions(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
	// The original row wins over the replayed import.
	assert.Equal(t, "VIREMENT PUBLIGRAMA", txs[1].Description)
}

func TestApplyCommitsLinksAndSettles(t *testing.T) {
	s := testStore(t)
	seed(t, s)
	ctx := context.Background()

	commits := []models.CommitInstruction{
		{TransactionID: "T-1", InvoiceID: "INV-1", Score: 93.75},
	}
	applied, err := s.ApplyCommits(ctx, commits)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	txs, err := s.Transactions(ctx)
	require.NoError(t, err)
	var linked *models.BankTransaction
	for i := range txs {
		if txs[i].ID == "T-1" {
			linked = &txs[i]
		}
	}
	require.NotNil(t, linked)
	require.True(t, linked.Reconciled())
	assert.Equal(t, "INV-1", *linked.ReconciledInvoiceID)

	open, err := s.OpenInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "INV-2", open[0].ID)

	// Replaying the same batch writes nothing new.
	applied, err = s.ApplyCommits(ctx, commits)
	require.NoError(t, err)
	assert.Zero(t, applied)
}

func TestExtractionReviewQueue(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.QueueExtraction(ctx, models.ExtractedInvoice{
		DocType:              models.DocTypeSupplierInvoice,
		Issuer:               models.PartyRef{Name: "Microsoft Azure"},
		GrossAmount:          412.80,
		Currency:             "CHF",
		ExtractionConfidence: 0.45,
		UnresolvedFields:     []string{models.FieldNetAmount},
	})
	require.NoError(t, err)

	pending, err := s.PendingExtractions(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)
	assert.Equal(t, models.ReviewPending, pending[0].Status)
	assert.InDelta(t, 412.80, pending[0].Invoice.GrossAmount, 1e-9)
	assert.True(t, pending[0].Invoice.Unresolved(models.FieldNetAmount))

	require.NoError(t, s.ReviewExtraction(ctx, id, models.ReviewAccepted))

	pending, err = s.PendingExtractions(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// A verdict is final.
	err = s.ReviewExtraction(ctx, id, models.ReviewRejected)
	assert.Error(t, err)
}
