package models

import "time"

// BankTransaction is a bank-feed entry owned by the external ledger.
// Amount is signed: positive = credit (incoming), negative = debit.
type BankTransaction struct {
	ID                  string    `json:"id"`
	Amount              float64   `json:"amount"`
	Currency            string    `json:"currency"`
	Date                time.Time `json:"date"`
	Description         string    `json:"description"`
	ReconciledInvoiceID *string   `json:"reconciled_invoice_id,omitempty"`
}

// Reconciled reports whether the transaction already carries a committed link.
func (t *BankTransaction) Reconciled() bool {
	return t.ReconciledInvoiceID != nil && *t.ReconciledInvoiceID != ""
}

// OpenInvoice is an unpaid invoice owned by the external ledger.
type OpenInvoice struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	IssueDate time.Time `json:"issue_date,omitempty"`
	DueDate   time.Time `json:"due_date"`
	Reference string    `json:"reference,omitempty"`
	PartyName string    `json:"party_name"`
}

// MatchedSignals breaks a candidate score down per component.
type MatchedSignals struct {
	AmountExact    bool    `json:"amount_exact"`
	DateDeltaDays  int     `json:"date_delta_days"`
	TextSimilarity float64 `json:"text_similarity"` // 0..1
}

// MatchCandidate is a scored, uncommitted transaction/invoice pairing.
// Candidates are ephemeral: produced per run, never persisted by this core.
type MatchCandidate struct {
	TransactionID string         `json:"transaction_id"`
	InvoiceID     string         `json:"invoice_id"`
	Score         float64        `json:"score"` // 0..100
	Signals       MatchedSignals `json:"matched_signals"`
}

// CommitInstruction tells the external ledger to link one transaction to
// one invoice. The ledger applies it; this core never mutates records.
type CommitInstruction struct {
	TransactionID string  `json:"transaction_id"`
	InvoiceID     string  `json:"invoice_id"`
	Score         float64 `json:"score"`
}

// AccountSuggestion maps a free-text description to a chart-of-accounts code.
type AccountSuggestion struct {
	MerchantPattern string  `json:"merchant_pattern"`
	AccountCode     string  `json:"account_code"`
	AccountLabel    string  `json:"account_label"`
	Confidence      float64 `json:"confidence"` // 0..1
}
