// Package extractor turns classified OCR text into a structured invoice.
// Every field is located by label patterns, never by position alone, and
// anything the text does not state is reported as unresolved instead of
// guessed.
package extractor

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hypervisual/fincore/internal/classifier"
	"github.com/hypervisual/fincore/internal/models"
	"github.com/hypervisual/fincore/internal/money"
	"github.com/hypervisual/fincore/internal/textnorm"
)

// Config tunes the extractor.
type Config struct {
	Identity classifier.Identity
	// SnapTolerance, in percentage points, for snapping a printed or
	// back-computed VAT percentage to a known rate class.
	SnapTolerance float64
}

// DefaultConfig returns the production settings.
func DefaultConfig(identity classifier.Identity) Config {
	return Config{Identity: identity, SnapTolerance: 0.3}
}

// Extractor pulls structured fields out of classified documents.
type Extractor struct {
	cfg    Config
	logger *zap.Logger
}

// New creates an Extractor.
func New(cfg Config, logger *zap.Logger) *Extractor {
	if cfg.SnapTolerance <= 0 {
		cfg.SnapTolerance = 0.3
	}
	return &Extractor{cfg: cfg, logger: logger}
}

var (
	invoiceNumberRe = regexp.MustCompile(`(?i)(?:facture\s*n[°o]?|invoice\s*#|invoice\s*no\.?|rechnung\s*nr\.?|fattura\s*n[°o]?)\s*:?\s*([A-Za-z0-9][A-Za-z0-9\-/_.]*)`)
	numericDateRe   = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})\b`)
	namedDateRe     = regexp.MustCompile(`(?i)\b(janvier|fevrier|février|mars|avril|mai|juin|juillet|aout|août|septembre|octobre|novembre|decembre|décembre|january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2}),?\s+(\d{4})\b`)
	namedDateUSRe   = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(janvier|fevrier|février|mars|avril|mai|juin|juillet|aout|août|septembre|octobre|novembre|decembre|décembre|january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{4})\b`)
	currencyRe      = regexp.MustCompile(`\b(CHF|EUR|USD|GBP)\b`)
	amountTokenRe   = regexp.MustCompile(`-?\d{1,3}(?:'\d{3})+\.\d{2}|-?\d+\.\d{2}`)
	percentRe       = regexp.MustCompile(`(\d{1,2}(?:\.\d{1,2})?)\s*%`)
	taxIDRe         = regexp.MustCompile(`CHE[-\s]?\d{3}[.\s]?\d{3}[.\s]?\d{3}`)
	ibanRe          = regexp.MustCompile(`\b[A-Z]{2}\d{2}(?:\s?[A-Z0-9]{4}){2,7}\s?[A-Z0-9]{1,4}\b`)
	qrReferenceRe   = regexp.MustCompile(`\b\d[\d ]{26,39}\b`)
	markerRe        = regexp.MustCompile(`(?:bill(?:ed)? to|destinataire|facture a|facturer a|rechnung an|invoice to)`)
	employeeRe      = regexp.MustCompile(`(?i)(?:collaborateur|employe|employee|mitarbeiter)\s*:\s*(.+)`)
	lineItemRe      = regexp.MustCompile(`^(\S.{2,}?)\s{2,}(\d+(?:\.\d+)?)\s+(-?[\d'.,]+\.\d{2})\s+(-?[\d'.,]+\.\d{2})\s*$`)
)

var monthNames = map[string]time.Month{
	"janvier": time.January, "fevrier": time.February, "mars": time.March,
	"avril": time.April, "mai": time.May, "juin": time.June,
	"juillet": time.July, "aout": time.August, "septembre": time.September,
	"octobre": time.October, "novembre": time.November, "decembre": time.December,
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// Field weights for the coverage fraction. Amount and party fields carry
// the downstream matching, so missing them costs more than a missing
// invoice number.
var fieldWeights = map[string]float64{
	models.FieldIssuer:        2,
	models.FieldRecipient:     2,
	models.FieldInvoiceNumber: 1,
	models.FieldIssueDate:     1,
	models.FieldDueDate:       1,
	models.FieldLineItems:     1,
	models.FieldNetAmount:     2,
	models.FieldVATRate:       1,
	models.FieldVATAmount:     2,
	models.FieldGrossAmount:   3,
	models.FieldCurrency:      1,
	models.FieldReference:     1,
	models.FieldIBAN:          1,
}

var invoiceFields = []string{
	models.FieldIssuer, models.FieldRecipient, models.FieldInvoiceNumber,
	models.FieldIssueDate, models.FieldDueDate, models.FieldLineItems,
	models.FieldNetAmount, models.FieldVATRate, models.FieldVATAmount,
	models.FieldGrossAmount, models.FieldCurrency, models.FieldReference,
	models.FieldIBAN,
}

var expenseFields = []string{
	models.FieldIssuer, models.FieldIssueDate, models.FieldLineItems,
	models.FieldGrossAmount, models.FieldCurrency,
}

// Extract pulls every recognizable field out of the document. The result
// confidence is the weighted fraction of expected fields found, capped by
// the classification confidence: extraction can never be more certain
// than the type it was extracted as.
func (e *Extractor) Extract(doc models.ClassifiedDocument) models.ExtractedInvoice {
	inv := models.ExtractedInvoice{DocType: doc.DocType}
	lines := strings.Split(doc.Text, "\n")

	e.extractNumber(doc.Text, &inv)
	e.extractDates(lines, &inv)
	e.extractAmounts(lines, &inv)
	e.reconcileVAT(&inv)
	e.checkTotals(&inv)
	e.extractParties(lines, doc.DocType, &inv)
	e.extractPayment(doc.Text, &inv)
	e.extractLineItems(lines, &inv)

	if m := currencyRe.FindString(doc.Text); m != "" {
		inv.Currency = m
	}

	e.score(&inv, doc.ClassificationConfidence)

	if e.logger != nil {
		e.logger.Debug("fields extracted",
			zap.String("doc_type", string(inv.DocType)),
			zap.Float64("confidence", inv.ExtractionConfidence),
			zap.Strings("unresolved", inv.UnresolvedFields))
	}
	return inv
}

func (e *Extractor) extractNumber(text string, inv *models.ExtractedInvoice) {
	if m := invoiceNumberRe.FindStringSubmatch(text); m != nil {
		inv.InvoiceNumber = strings.TrimRight(m[1], ".")
	}
}

// parseLineDate returns the first date on a line, in any supported shape.
func parseLineDate(line string) *time.Time {
	if m := numericDateRe.FindStringSubmatch(line); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			return &t
		}
	}
	if m := namedDateRe.FindStringSubmatch(line); m != nil {
		month := monthNames[textnorm.Fold(m[1])]
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		return &t
	}
	if m := namedDateUSRe.FindStringSubmatch(line); m != nil {
		day, _ := strconv.Atoi(m[1])
		month := monthNames[textnorm.Fold(m[2])]
		year, _ := strconv.Atoi(m[3])
		t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		return &t
	}
	return nil
}

func (e *Extractor) extractDates(lines []string, inv *models.ExtractedInvoice) {
	for _, line := range lines {
		folded := textnorm.Fold(line)
		d := parseLineDate(line)
		if d == nil {
			continue
		}
		switch {
		case inv.DueDate == nil && containsAny(folded, "echeance", "due date", "payable", "zahlbar", "falligkeit", "scadenza"):
			inv.DueDate = d
		case inv.IssueDate == nil && strings.Contains(folded, "date"):
			inv.IssueDate = d
		case inv.IssueDate == nil:
			inv.IssueDate = d
		}
	}
}

// extractAmounts assigns each labeled monetary line to net, VAT or gross.
// Net labels are checked before gross because "sous-total" and "subtotal"
// contain "total".
func (e *Extractor) extractAmounts(lines []string, inv *models.ExtractedInvoice) {
	var netSeen, vatSeen, grossSeen bool
	for _, line := range lines {
		folded := textnorm.Fold(line)
		// Tax IDs and dotted dates would otherwise scan as amounts.
		scrubbed := taxIDRe.ReplaceAllString(line, "")
		scrubbed = numericDateRe.ReplaceAllString(scrubbed, "")
		tok := lastAmountToken(scrubbed)
		if tok == "" {
			continue
		}
		amount, err := money.ParseAmount(tok)
		if err != nil {
			continue
		}
		switch {
		case !vatSeen && containsAny(folded, "tva", "vat", "mwst", "iva "):
			inv.VATAmount = amount
			vatSeen = true
			if m := percentRe.FindStringSubmatch(line); m != nil {
				percent, _ := strconv.ParseFloat(m[1], 64)
				if class, ok := money.ClassForPercent(percent, e.cfg.SnapTolerance); ok {
					inv.VATRate = string(class)
				}
			}
		case !netSeen && containsAny(folded, "montant net", "net", "sous-total", "subtotal", "montant ht", "zwischensumme"):
			inv.NetAmount = amount
			netSeen = true
		case !grossSeen && containsAny(folded, "total", "due", "gesamtbetrag", "betrag", "montant a payer"):
			inv.GrossAmount = amount
			grossSeen = true
		}
	}
}

// reconcileVAT fills in whichever of net, VAT amount, gross and rate class
// the text omitted, when the stated fields pin it down. A back-computed
// percentage only counts when it snaps onto a known rate class.
func (e *Extractor) reconcileVAT(inv *models.ExtractedInvoice) {
	net, vat, gross := inv.NetAmount, inv.VATAmount, inv.GrossAmount

	if inv.VATRate == "" && net > 0 && gross > net {
		percent := (gross/net - 1) * 100
		if class, ok := money.ClassForPercent(percent, e.cfg.SnapTolerance); ok {
			inv.VATRate = string(class)
		}
	}
	if vat == 0 && net > 0 && gross > net {
		inv.VATAmount = money.RoundRappen(gross - net)
		return
	}
	if inv.VATRate == "" {
		return
	}
	class := money.RateClass(inv.VATRate)
	switch {
	case gross == 0 && net > 0:
		if b, err := money.VATFromNet(net, class); err == nil {
			inv.VATAmount = b.VATAmount
			inv.GrossAmount = b.Gross
		}
	case net == 0 && gross > 0:
		if b, err := money.VATFromGross(gross, class); err == nil {
			inv.NetAmount = b.Net
			inv.VATAmount = b.VATAmount
		}
	}
}

// checkTotals flags documents whose printed totals do not add up on the
// 0.05 grid. The printed values stay untouched.
func (e *Extractor) checkTotals(inv *models.ExtractedInvoice) {
	if inv.NetAmount <= 0 || inv.VATAmount <= 0 || inv.GrossAmount <= 0 {
		return
	}
	if math.Abs(inv.GrossAmount-money.RoundRappen(inv.NetAmount+inv.VATAmount)) > 0.005 {
		inv.TotalsInconsistent = true
		if e.logger != nil {
			e.logger.Warn("printed totals do not add up",
				zap.Float64("net", inv.NetAmount),
				zap.Float64("vat", inv.VATAmount),
				zap.Float64("gross", inv.GrossAmount))
		}
	}
}

func (e *Extractor) extractParties(lines []string, docType models.DocType, inv *models.ExtractedInvoice) {
	identity := e.identityParty()

	if docType == models.DocTypeExpenseNote {
		inv.Recipient = identity
		for _, line := range lines {
			if m := employeeRe.FindStringSubmatch(line); m != nil {
				inv.Issuer = models.PartyRef{Name: strings.TrimSpace(m[1])}
				break
			}
		}
		return
	}

	top := topBlock(lines)
	marker := markerBlock(lines)

	switch docType {
	case models.DocTypeSupplierInvoice:
		inv.Issuer = top
		inv.Recipient = marker
		// The recipient block is our own address; normalize the tax ID
		// from configuration when the print omitted it.
		if inv.Recipient.TaxID == "" {
			inv.Recipient.TaxID = identity.TaxID
		}
	default:
		inv.Issuer = top
		inv.Recipient = marker
	}
}

func (e *Extractor) identityParty() models.PartyRef {
	p := models.PartyRef{}
	if len(e.cfg.Identity.Names) > 0 {
		p.Name = e.cfg.Identity.Names[0]
	}
	if len(e.cfg.Identity.TaxIDs) > 0 {
		p.TaxID = e.cfg.Identity.TaxIDs[0]
	}
	return p
}

// topBlock reads the letterhead: the first non-empty line is the name,
// following non-empty lines up to the first blank are the address.
func topBlock(lines []string) models.PartyRef {
	var p models.PartyRef
	var addr []string
	started := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if started {
				break
			}
			continue
		}
		if !started {
			p.Name = line
			started = true
			continue
		}
		if m := taxIDRe.FindString(line); m != "" {
			p.TaxID = m
			continue
		}
		addr = append(addr, line)
		if len(addr) >= 3 {
			break
		}
	}
	p.Address = strings.Join(addr, ", ")
	return p
}

// markerBlock reads the recipient block introduced by a "bill to" style
// marker.
func markerBlock(lines []string) models.PartyRef {
	var p models.PartyRef
	for i, line := range lines {
		folded := textnorm.Fold(line)
		loc := markerRe.FindStringIndex(folded)
		if loc == nil {
			continue
		}
		rest := line
		if idx := strings.Index(line, ":"); idx >= 0 {
			rest = line[idx+1:]
		}
		rest = strings.TrimSpace(rest)

		var addr []string
		j := i + 1
		if rest != "" {
			p.Name = rest
		}
		for ; j < len(lines) && len(addr) < 3; j++ {
			next := strings.TrimSpace(lines[j])
			if next == "" {
				break
			}
			if m := taxIDRe.FindString(next); m != "" {
				p.TaxID = m
				continue
			}
			if p.Name == "" {
				p.Name = next
				continue
			}
			addr = append(addr, next)
		}
		p.Address = strings.Join(addr, ", ")
		return p
	}
	return p
}

func (e *Extractor) extractPayment(text string, inv *models.ExtractedInvoice) {
	if m := ibanRe.FindString(text); m != "" {
		compact := strings.ReplaceAll(m, " ", "")
		if money.ValidateIBAN(compact) {
			inv.IBANOrAccount = compact
		}
	}
	for _, m := range qrReferenceRe.FindAllString(text, -1) {
		digits := strings.ReplaceAll(m, " ", "")
		if len(digits) != 27 {
			continue
		}
		inv.PaymentReference = digits
		inv.ReferenceInvalid = !money.ValidateReference(digits)
		return
	}
}

func (e *Extractor) extractLineItems(lines []string, inv *models.ExtractedInvoice) {
	for _, line := range lines {
		m := lineItemRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		qty, _ := strconv.ParseFloat(m[2], 64)
		unit, err1 := money.ParseAmount(strings.ReplaceAll(m[3], ",", ""))
		total, err2 := money.ParseAmount(strings.ReplaceAll(m[4], ",", ""))
		if err1 != nil || err2 != nil {
			continue
		}
		inv.LineItems = append(inv.LineItems, models.LineItem{
			Description: strings.TrimSpace(m[1]),
			Quantity:    qty,
			UnitPrice:   unit,
			LineTotal:   total,
		})
	}
}

func (e *Extractor) score(inv *models.ExtractedInvoice, classificationConfidence float64) {
	expected := invoiceFields
	if inv.DocType == models.DocTypeExpenseNote {
		expected = expenseFields
	}

	var got, total float64
	for _, field := range expected {
		w := fieldWeights[field]
		total += w
		if fieldResolved(inv, field) {
			got += w
		} else {
			inv.UnresolvedFields = append(inv.UnresolvedFields, field)
		}
	}

	fraction := 0.0
	if total > 0 {
		fraction = got / total
	}
	if inv.TotalsInconsistent {
		fraction *= 0.8
	}
	inv.ExtractionConfidence = fraction
	if classificationConfidence < fraction {
		inv.ExtractionConfidence = classificationConfidence
	}
}

func fieldResolved(inv *models.ExtractedInvoice, field string) bool {
	switch field {
	case models.FieldIssuer:
		return inv.Issuer.Name != ""
	case models.FieldRecipient:
		return inv.Recipient.Name != ""
	case models.FieldInvoiceNumber:
		return inv.InvoiceNumber != ""
	case models.FieldIssueDate:
		return inv.IssueDate != nil
	case models.FieldDueDate:
		return inv.DueDate != nil
	case models.FieldLineItems:
		return len(inv.LineItems) > 0
	case models.FieldNetAmount:
		return inv.NetAmount != 0
	case models.FieldVATRate:
		return inv.VATRate != ""
	case models.FieldVATAmount:
		return inv.VATAmount != 0
	case models.FieldGrossAmount:
		return inv.GrossAmount != 0
	case models.FieldCurrency:
		return inv.Currency != ""
	case models.FieldReference:
		return inv.PaymentReference != ""
	case models.FieldIBAN:
		return inv.IBANOrAccount != ""
	default:
		return false
	}
}

func lastAmountToken(line string) string {
	all := amountTokenRe.FindAllString(line, -1)
	if len(all) == 0 {
		return ""
	}
	return all[len(all)-1]
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
