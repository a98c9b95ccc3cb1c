package models

import "time"

// DocType labels the business meaning of a scanned document.
type DocType string

const (
	DocTypeClientInvoice   DocType = "client_invoice"
	DocTypeSupplierInvoice DocType = "supplier_invoice"
	DocTypeExpenseNote     DocType = "expense_note"
	DocTypeUnknown         DocType = "unknown"
)

// RawDocument is the immutable input of the pipeline: OCR text plus the
// upstream engine's own confidence estimate.
type RawDocument struct {
	Text             string  `json:"text"`
	SourceConfidence float64 `json:"source_confidence"` // 0..1, 0 = no estimate
	DeclaredType     DocType `json:"declared_type,omitempty"`
}

// Signal is one matched classification rule, kept for auditability.
type Signal struct {
	Code    string  `json:"code"`
	DocType DocType `json:"doc_type"`
	Weight  float64 `json:"weight"`
	Detail  string  `json:"detail,omitempty"`
}

// ClassifiedDocument is a RawDocument with its assigned type and the
// ordered list of signals that produced the decision.
type ClassifiedDocument struct {
	RawDocument
	DocType                  DocType  `json:"doc_type"`
	ClassificationConfidence float64  `json:"classification_confidence"`
	ClassificationRationale  []Signal `json:"classification_rationale"`
}

// PartyRef describes an issuer or recipient as printed on the document.
// It carries no ownership beyond the document itself.
type PartyRef struct {
	Name    string `json:"name"`
	TaxID   string `json:"tax_id,omitempty"`
	Address string `json:"address,omitempty"`
}

// LineItem is one row of the document's monetary table.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

// Extraction field names, as recorded in UnresolvedFields.
const (
	FieldIssuer        = "issuer"
	FieldRecipient     = "recipient"
	FieldInvoiceNumber = "invoiceNumber"
	FieldIssueDate     = "issueDate"
	FieldDueDate       = "dueDate"
	FieldLineItems     = "lineItems"
	FieldNetAmount     = "netAmount"
	FieldVATRate       = "vatRate"
	FieldVATAmount     = "vatAmount"
	FieldGrossAmount   = "grossAmount"
	FieldCurrency      = "currency"
	FieldReference     = "paymentReference"
	FieldIBAN          = "ibanOrAccount"
)

// ReviewStatus is the lifecycle of an extraction queued for a human
// reviewer. Transitions happen outside this core.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending_review"
	ReviewAccepted ReviewStatus = "accepted"
	ReviewRejected ReviewStatus = "rejected"
)

// ExtractedInvoice is the structured result of field extraction. Absent
// fields stay at their zero value AND are listed in UnresolvedFields;
// a zero amount is only ever recorded when the text states one.
type ExtractedInvoice struct {
	DocType          DocType    `json:"doc_type"`
	Issuer           PartyRef   `json:"issuer"`
	Recipient        PartyRef   `json:"recipient"`
	InvoiceNumber    string     `json:"invoice_number,omitempty"`
	IssueDate        *time.Time `json:"issue_date,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	LineItems        []LineItem `json:"line_items,omitempty"`
	NetAmount        float64    `json:"net_amount"`
	VATRate          string     `json:"vat_rate,omitempty"` // rate-class code
	VATAmount        float64    `json:"vat_amount"`
	GrossAmount      float64    `json:"gross_amount"`
	Currency         string     `json:"currency,omitempty"`
	PaymentReference string     `json:"payment_reference,omitempty"`
	ReferenceInvalid bool       `json:"reference_invalid,omitempty"`
	IBANOrAccount    string     `json:"iban_or_account,omitempty"`

	// TotalsInconsistent is set when the printed net, VAT and gross do
	// not add up on the 0.05 grid. The printed values are kept as-is.
	TotalsInconsistent bool `json:"totals_inconsistent,omitempty"`

	ExtractionConfidence float64  `json:"extraction_confidence"`
	UnresolvedFields     []string `json:"unresolved_fields,omitempty"`
}

// Unresolved reports whether the named field is listed as unresolved.
func (e *ExtractedInvoice) Unresolved(field string) bool {
	for _, f := range e.UnresolvedFields {
		if f == field {
			return true
		}
	}
	return false
}
