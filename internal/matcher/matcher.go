// Package matcher pairs bank transactions with open invoices. Scoring is
// deterministic per pair; allocation is a single rank-ordered pass so that
// no transaction or invoice is ever committed twice in one run.
package matcher

import (
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/hypervisual/fincore/internal/models"
	"github.com/hypervisual/fincore/internal/textnorm"
)

// Config tunes the matcher thresholds.
type Config struct {
	// CommitThreshold: pairs at or above it are auto-committed.
	CommitThreshold float64
	// ReviewThreshold: pairs at or above it (but below commit) surface as
	// review candidates. Anything below is discarded.
	ReviewThreshold float64
	// WindowDays limits how far a transaction may sit from the invoice's
	// nearest anchor date to be considered at all. The date component
	// decays linearly to zero across the same window.
	WindowDays int
	// AmountTolerance is the relative difference at which the amount
	// component reaches zero.
	AmountTolerance float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		CommitThreshold: 85,
		ReviewThreshold: 60,
		WindowDays:      90,
		AmountTolerance: 0.01,
	}
}

// Result is one reconciliation run: instructions the ledger should apply
// plus everything left for a human.
type Result struct {
	Commits    []models.CommitInstruction `json:"commits"`
	Candidates []models.MatchCandidate    `json:"candidates"`
	Processed  int                        `json:"processed"` // unreconciled transactions scored
	NoMatch    int                        `json:"no_match"`  // scored transactions without any candidate
	Skipped    int                        `json:"skipped"`   // already-reconciled transactions
}

// Matcher scores and allocates transaction/invoice pairs.
type Matcher struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Matcher.
func New(cfg Config, logger *zap.Logger) *Matcher {
	if cfg.CommitThreshold <= 0 {
		cfg.CommitThreshold = 85
	}
	if cfg.ReviewThreshold <= 0 {
		cfg.ReviewThreshold = 60
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 90
	}
	if cfg.AmountTolerance <= 0 {
		cfg.AmountTolerance = 0.01
	}
	return &Matcher{cfg: cfg, logger: logger}
}

// Run scores every unreconciled transaction against every open invoice and
// allocates matches. Scoring is fanned out per transaction; allocation is
// sequential over the ranked pair list. Running twice over the same inputs
// is a no-op: transactions carrying a link are skipped up front.
func (m *Matcher) Run(transactions []models.BankTransaction, invoices []models.OpenInvoice) Result {
	result := Result{}

	eligible := make([]models.BankTransaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.Reconciled() {
			result.Skipped++
			continue
		}
		eligible = append(eligible, tx)
	}

	perTx := make([][]models.MatchCandidate, len(eligible))
	var wg sync.WaitGroup
	for i := range eligible {
		wg.Add(1)
		go func(slot int, tx models.BankTransaction) {
			defer wg.Done()
			perTx[slot] = m.scoreOne(tx, invoices)
		}(i, eligible[i])
	}
	wg.Wait()

	result.Processed = len(eligible)

	var pairs []models.MatchCandidate
	for _, list := range perTx {
		if len(list) == 0 {
			result.NoMatch++
			continue
		}
		pairs = append(pairs, list...)
	}
	sortPairs(pairs)

	commits, leftover := m.allocate(pairs)
	result.Commits = commits
	result.Candidates = leftover

	if m.logger != nil {
		m.logger.Info("reconciliation run complete",
			zap.Int("processed", result.Processed),
			zap.Int("invoices", len(invoices)),
			zap.Int("commits", len(result.Commits)),
			zap.Int("candidates", len(result.Candidates)),
			zap.Int("no_match", result.NoMatch),
			zap.Int("skipped", result.Skipped))
	}
	return result
}

// scoreOne returns every invoice pairing for one transaction that clears
// the review threshold.
func (m *Matcher) scoreOne(tx models.BankTransaction, invoices []models.OpenInvoice) []models.MatchCandidate {
	var out []models.MatchCandidate
	txTokens := textnorm.TokenSet(tx.Description)
	for _, inv := range invoices {
		if tx.Currency != "" && inv.Currency != "" && tx.Currency != inv.Currency {
			continue
		}
		delta := dateDeltaDays(tx, inv)
		if delta > m.cfg.WindowDays {
			continue
		}
		score, signals := m.scorePair(tx, inv, txTokens, delta)
		if score < m.cfg.ReviewThreshold {
			continue
		}
		out = append(out, models.MatchCandidate{
			TransactionID: tx.ID,
			InvoiceID:     inv.ID,
			Score:         score,
			Signals:       signals,
		})
	}
	return out
}

// scorePair computes the 0..100 pair score: amount 0..50, date 0..25,
// text 0..25.
func (m *Matcher) scorePair(tx models.BankTransaction, inv models.OpenInvoice, txTokens map[string]struct{}, delta int) (float64, models.MatchedSignals) {
	signals := models.MatchedSignals{DateDeltaDays: delta}

	txAmount := math.Abs(tx.Amount)
	amountScore := 0.0
	diff := math.Abs(txAmount - inv.Amount)
	switch {
	case diff < 0.005:
		amountScore = 50
		signals.AmountExact = true
	case inv.Amount > 0:
		rel := diff / inv.Amount
		if rel < m.cfg.AmountTolerance {
			amountScore = 50 * (1 - rel/m.cfg.AmountTolerance)
		}
	}

	dateScore := 25 * (1 - float64(delta)/float64(m.cfg.WindowDays))
	if dateScore < 0 {
		dateScore = 0
	}

	refTokens := inv.PartyName
	if inv.Reference != "" {
		refTokens += " " + inv.Reference
	}
	if inv.ID != "" {
		refTokens += " " + inv.ID
	}
	similarity := textnorm.OverlapRatio(txTokens, textnorm.Tokenize(refTokens))
	signals.TextSimilarity = similarity

	return amountScore + dateScore + 25*similarity, signals
}

// dateDeltaDays is the distance in whole days from the transaction date to
// the invoice's nearest anchor (due date, or issue date when set). Payment
// shortly before the due date must not be penalized by the full term.
func dateDeltaDays(tx models.BankTransaction, inv models.OpenInvoice) int {
	delta := absDays(tx.Date.Sub(inv.DueDate).Hours() / 24)
	if !inv.IssueDate.IsZero() {
		if d := absDays(tx.Date.Sub(inv.IssueDate).Hours() / 24); d < delta {
			delta = d
		}
	}
	return delta
}

func absDays(d float64) int {
	return int(math.Round(math.Abs(d)))
}

// sortPairs ranks best-first with a deterministic tie-break so allocation
// never depends on goroutine completion order.
func sortPairs(pairs []models.MatchCandidate) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Score != pairs[j].Score {
			return pairs[i].Score > pairs[j].Score
		}
		if pairs[i].TransactionID != pairs[j].TransactionID {
			return pairs[i].TransactionID < pairs[j].TransactionID
		}
		return pairs[i].InvoiceID < pairs[j].InvoiceID
	})
}

// allocate walks the ranked pairs once. A pair commits when it clears the
// commit threshold, both sides are unclaimed, and no other pair of the
// same score contends for either side. Everything else, contested or
// outranked, stays a candidate: a coin flip here would post to the wrong
// invoice.
func (m *Matcher) allocate(pairs []models.MatchCandidate) ([]models.CommitInstruction, []models.MatchCandidate) {
	contested := contestedAtScore(pairs)

	claimedTx := map[string]struct{}{}
	claimedInv := map[string]struct{}{}
	var commits []models.CommitInstruction
	var leftover []models.MatchCandidate

	for i, pair := range pairs {
		_, txTaken := claimedTx[pair.TransactionID]
		_, invTaken := claimedInv[pair.InvoiceID]
		if pair.Score >= m.cfg.CommitThreshold && !contested[i] && !txTaken && !invTaken {
			commits = append(commits, models.CommitInstruction{
				TransactionID: pair.TransactionID,
				InvoiceID:     pair.InvoiceID,
				Score:         pair.Score,
			})
			claimedTx[pair.TransactionID] = struct{}{}
			claimedInv[pair.InvoiceID] = struct{}{}
			continue
		}
		leftover = append(leftover, pair)
	}
	return commits, leftover
}

// contestedAtScore flags pairs that share their exact score with another
// pair wanting the same transaction or the same invoice.
func contestedAtScore(pairs []models.MatchCandidate) map[int]bool {
	contested := map[int]bool{}
	for i := 0; i < len(pairs); i++ {
		for j := i + 1; j < len(pairs) && pairs[j].Score == pairs[i].Score; j++ {
			if pairs[i].TransactionID == pairs[j].TransactionID || pairs[i].InvoiceID == pairs[j].InvoiceID {
				contested[i] = true
				contested[j] = true
			}
		}
	}
	return contested
}
