package matcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hypervisual/fincore/internal/models"
)

func testMatcher() *Matcher {
	return New(DefaultConfig(), zap.NewNop())
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func openInvoice(id string, amount float64, due time.Time, party, reference string) models.OpenInvoice {
	return models.OpenInvoice{
		ID:        id,
		Amount:    amount,
		Currency:  "CHF",
		IssueDate: due.AddDate(0, -1, 0),
		DueDate:   due,
		Reference: reference,
		PartyName: party,
	}
}

func TestRunCommitsExactMatch(t *testing.T) {
	m := testMatcher()

	txs := []models.BankTransaction{{
		ID:          "T-1",
		Amount:      1081.00,
		Currency:    "CHF",
		Date:        day(2025, 2, 14),
		Description: "VIREMENT PUBLIGRAMA SA FACTURE 2025-0042",
	}}
	invs := []models.OpenInvoice{
		openInvoice("INV-1", 1081.00, day(2025, 2, 14), "Publigrama SA", "2025-0042"),
	}

	result := m.Run(txs, invs)

	require.Len(t, result.Commits, 1)
	assert.Equal(t, "T-1", result.Commits[0].TransactionID)
	assert.Equal(t, "INV-1", result.Commits[0].InvoiceID)
	assert.GreaterOrEqual(t, result.Commits[0].Score, 85.0)
	assert.Empty(t, result.Candidates)
}

func TestRunOnlyBestOfTwoCommits(t *testing.T) {
	m := testMatcher()

	txs := []models.BankTransaction{{
		ID:          "T-1",
		Amount:      1081.00,
		Currency:    "CHF",
		Date:        day(2025, 2, 14),
		Description: "VIREMENT PUBLIGRAMA SA FACTURE 2025-0042",
	}}
	invs := []models.OpenInvoice{
		// Same amount and date; the reference hit separates them.
		openInvoice("INV-A", 1081.00, day(2025, 2, 14), "Publigrama SA", "2025-0042"),
		openInvoice("INV-B", 1081.00, day(2025, 2, 14), "Publigrama SA", ""),
	}

	result := m.Run(txs, invs)

	require.Len(t, result.Commits, 1)
	assert.Equal(t, "INV-A", result.Commits[0].InvoiceID)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "INV-B", result.Candidates[0].InvoiceID)
}

func TestRunEqualScoreContentionStaysCandidate(t *testing.T) {
	m := testMatcher()

	// Two indistinguishable transactions against one invoice: committing
	// either would be a guess.
	tx := models.BankTransaction{
		Amount:      1081.00,
		Currency:    "CHF",
		Date:        day(2025, 2, 14),
		Description: "VIREMENT PUBLIGRAMA SA FACTURE 2025-0042",
	}
	tx1, tx2 := tx, tx
	tx1.ID = "T-1"
	tx2.ID = "T-2"
	invs := []models.OpenInvoice{
		openInvoice("INV-1", 1081.00, day(2025, 2, 14), "Publigrama SA", "2025-0042"),
	}

	result := m.Run([]models.BankTransaction{tx1, tx2}, invs)

	assert.Empty(t, result.Commits)
	assert.Len(t, result.Candidates, 2)
}

func TestRunSkipsReconciledTransactions(t *testing.T) {
	m := testMatcher()

	linked := "INV-0"
	txs := []models.BankTransaction{{
		ID:                  "T-1",
		Amount:              1081.00,
		Currency:            "CHF",
		Date:                day(2025, 2, 14),
		Description:         "VIREMENT PUBLIGRAMA SA FACTURE 2025-0042",
		ReconciledInvoiceID: &linked,
	}}
	invs := []models.OpenInvoice{
		openInvoice("INV-1", 1081.00, day(2025, 2, 14), "Publigrama SA", "2025-0042"),
	}

	result := m.Run(txs, invs)

	assert.Empty(t, result.Commits)
	assert.Empty(t, result.Candidates)
	assert.Equal(t, 1, result.Skipped)
}

func TestRunDateDecaySpansConfiguredWindow(t *testing.T) {
	// Exact amount, full token overlap, paid 40 days late.
	txs := []models.BankTransaction{{
		ID:          "T-1",
		Amount:      1081.00,
		Currency:    "CHF",
		Date:        day(2025, 3, 26),
		Description: "VIREMENT PUBLIGRAMA SA FACTURE 2025-0042",
	}}
	invs := []models.OpenInvoice{
		openInvoice("2025-0042", 1081.00, day(2025, 2, 14), "Publigrama SA", "2025-0042"),
	}

	// 50 + 25*(1-40/90) + 25 with the default 90-day window.
	result := testMatcher().Run(txs, invs)
	require.Len(t, result.Commits, 1)
	assert.InDelta(t, 88.89, result.Commits[0].Score, 0.01)

	// The same pair under a 45-day window decays to 50 + 25*(1-40/45) + 25
	// and stays below the commit threshold.
	tight := New(Config{WindowDays: 45}, zap.NewNop())
	result = tight.Run(txs, invs)
	assert.Empty(t, result.Commits)
	require.Len(t, result.Candidates, 1)
	assert.InDelta(t, 77.78, result.Candidates[0].Score, 0.01)
}

func TestRunReportsCounters(t *testing.T) {
	m := testMatcher()

	linked := "INV-0"
	txs := []models.BankTransaction{
		{
			ID:          "T-1",
			Amount:      1081.00,
			Currency:    "CHF",
			Date:        day(2025, 2, 14),
			Description: "VIREMENT PUBLIGRAMA SA FACTURE 2025-0042",
		},
		{
			ID:          "T-2",
			Amount:      19.90,
			Currency:    "CHF",
			Date:        day(2025, 2, 14),
			Description: "CARTE 2025-02-14 KIOSK BAHNHOF",
		},
		{
			ID:                  "T-3",
			Amount:              500.00,
			Currency:            "CHF",
			Date:                day(2025, 2, 14),
			Description:         "VIREMENT DIVERS",
			ReconciledInvoiceID: &linked,
		},
	}
	invs := []models.OpenInvoice{
		openInvoice("INV-1", 1081.00, day(2025, 2, 14), "Publigrama SA", "2025-0042"),
	}

	result := m.Run(txs, invs)

	require.Len(t, result.Commits, 1)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.NoMatch)
	assert.Equal(t, 1, result.Skipped)
}

func TestRunTwiceProducesSameCommits(t *testing.T) {
	m := testMatcher()

	txs := []models.BankTransaction{{
		ID:          "T-1",
		Amount:      1081.00,
		Currency:    "CHF",
		Date:        day(2025, 2, 14),
		Description: "VIREMENT PUBLIGRAMA SA FACTURE 2025-0042",
	}}
	invs := []models.OpenInvoice{
		openInvoice("INV-1", 1081.00, day(2025, 2, 14), "Publigrama SA", "2025-0042"),
	}

	first := m.Run(txs, invs)
	require.Len(t, first.Commits, 1)

	// Unchanged inputs give the identical commit set.
	again := m.Run(txs, invs)
	assert.Equal(t, first.Commits, again.Commits)

	// After the ledger applies the link, a re-run commits nothing.
	txs[0].ReconciledInvoiceID = &first.Commits[0].InvoiceID
	settled := m.Run(txs, invs)
	assert.Empty(t, settled.Commits)
	assert.Empty(t, settled.Candidates)
	assert.Equal(t, 1, settled.Skipped)
}

func TestRunNearMissIsReviewCandidate(t *testing.T) {
	m := testMatcher()

	txs := []models.BankTransaction{{
		ID:          "T-1",
		Amount:      1005.00, // 0.5% off
		Currency:    "CHF",
		Date:        day(2025, 2, 14),
		Description: "PUBLIGRAMA",
	}}
	invs := []models.OpenInvoice{
		openInvoice("INV-1", 1000.00, day(2025, 2, 14), "Publigrama SA", ""),
	}

	result := m.Run(txs, invs)

	assert.Empty(t, result.Commits)
	require.Len(t, result.Candidates, 1)
	c := result.Candidates[0]
	assert.False(t, c.Signals.AmountExact)
	assert.Equal(t, 0, c.Signals.DateDeltaDays)
	assert.Less(t, c.Score, 85.0)
	assert.GreaterOrEqual(t, c.Score, 60.0)
}

func TestRunCurrencyMismatchExcluded(t *testing.T) {
	m := testMatcher()

	txs := []models.BankTransaction{{
		ID:          "T-1",
		Amount:      1081.00,
		Currency:    "EUR",
		Date:        day(2025, 2, 14),
		Description: "PUBLIGRAMA FACTURE 2025-0042",
	}}
	invs := []models.OpenInvoice{
		openInvoice("INV-1", 1081.00, day(2025, 2, 14), "Publigrama SA", "2025-0042"),
	}

	result := m.Run(txs, invs)

	assert.Empty(t, result.Commits)
	assert.Empty(t, result.Candidates)
}

func TestRunOutsideDateWindowExcluded(t *testing.T) {
	m := testMatcher()

	txs := []models.BankTransaction{{
		ID:          "T-1",
		Amount:      1081.00,
		Currency:    "CHF",
		Date:        day(2025, 9, 14),
		Description: "PUBLIGRAMA FACTURE 2025-0042",
	}}
	invs := []models.OpenInvoice{
		openInvoice("INV-1", 1081.00, day(2025, 2, 14), "Publigrama SA", "2025-0042"),
	}

	result := m.Run(txs, invs)

	assert.Empty(t, result.Commits)
	assert.Empty(t, result.Candidates)
}

func TestRunDebitMatchesByAbsoluteAmount(t *testing.T) {
	m := testMatcher()

	txs := []models.BankTransaction{{
		ID:          "T-1",
		Amount:      -412.80,
		Currency:    "CHF",
		Date:        day(2025, 2, 4),
		Description: "MICROSOFT AZURE AZ-778812",
	}}
	invs := []models.OpenInvoice{
		openInvoice("INV-AZ", 412.80, day(2025, 2, 4), "Microsoft Azure", "AZ-778812"),
	}

	result := m.Run(txs, invs)

	require.Len(t, result.Commits, 1)
	assert.Equal(t, "INV-AZ", result.Commits[0].InvoiceID)
}
