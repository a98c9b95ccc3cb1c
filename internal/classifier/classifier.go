// Package classifier assigns a document type to raw OCR text using a
// rule-weighted signal table. It is deliberately not a trained model: new
// layouts are supported by extending the table, and every decision carries
// the ordered list of matched signals for audit.
package classifier

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hypervisual/fincore/internal/models"
	"github.com/hypervisual/fincore/internal/money"
	"github.com/hypervisual/fincore/internal/textnorm"
)

// Identity is the configured "known issuer" of the company operating the
// system. It is external configuration, never a constant: classification
// direction flips entirely on where these names appear.
type Identity struct {
	Names  []string
	TaxIDs []string
}

// Config tunes the classifier.
type Config struct {
	Identity Identity
	// TieEpsilon: when the top two type scores are closer than this the
	// result degrades to unknown. Client vs supplier invoices post to
	// opposite ledger sides, so ambiguity must never be silently resolved.
	TieEpsilon float64
	// MinScore: a top score below this is not a classification.
	MinScore float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig(identity Identity) Config {
	return Config{Identity: identity, TieEpsilon: 10, MinScore: 25}
}

// Classifier labels raw OCR text as one of the known document types.
type Classifier struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Classifier.
func New(cfg Config, logger *zap.Logger) *Classifier {
	if cfg.TieEpsilon <= 0 {
		cfg.TieEpsilon = 10
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = 25
	}
	return &Classifier{cfg: cfg, logger: logger}
}

var (
	recipientMarkerRe = regexp.MustCompile(`(?:bill(?:ed)? to|destinataire|facture a|facturer a|rechnung an|invoice to|client\s*:|customer\s*:)`)
	invoiceMarkerRe   = regexp.MustCompile(`(?:facture|invoice|rechnung|fattura)`)
	expenseRe         = regexp.MustCompile(`(?:note de frais|expense report|expense note|spesenabrechnung|frais professionnels)`)
	approverRe        = regexp.MustCompile(`(?:approuve par|approved by|genehmigt von|approbateur)`)
	amountTokenRe     = regexp.MustCompile(`\d{1,3}(?:'\d{3})*\.\d{2}|\d+\.\d{2}`)
)

// scan holds everything the signal table needs, computed once per document.
type scan struct {
	folded      string
	identityIdx int // first occurrence of a known identity name, -1 if absent
	markerIdx   int // first recipient marker, -1 if absent
	identityHit string
}

// rule is one entry of the signal table. A matched rule contributes its
// weight to every target type.
type rule struct {
	code    string
	weight  float64
	targets []models.DocType
	match   func(*scan, models.RawDocument) (bool, string)
}

func headWindow(n int) int {
	if n/4 > 400 {
		return n / 4
	}
	return 400
}

var signalTable = []rule{
	{
		code:    "issuer_identity_leads",
		weight:  50,
		targets: []models.DocType{models.DocTypeClientInvoice},
		match: func(s *scan, _ models.RawDocument) (bool, string) {
			if s.identityIdx < 0 {
				return false, ""
			}
			if s.markerIdx >= 0 {
				return s.identityIdx < s.markerIdx, s.identityHit
			}
			return s.identityIdx < headWindow(len(s.folded)), s.identityHit
		},
	},
	{
		code:    "issuer_identity_in_recipient_block",
		weight:  50,
		targets: []models.DocType{models.DocTypeSupplierInvoice},
		match: func(s *scan, _ models.RawDocument) (bool, string) {
			return s.identityIdx >= 0 && s.markerIdx >= 0 && s.identityIdx > s.markerIdx, s.identityHit
		},
	},
	{
		code:    "expense_note_keywords",
		weight:  40,
		targets: []models.DocType{models.DocTypeExpenseNote},
		match: func(s *scan, _ models.RawDocument) (bool, string) {
			return expenseRe.MatchString(s.folded), expenseRe.FindString(s.folded)
		},
	},
	{
		code:    "approver_line",
		weight:  30,
		targets: []models.DocType{models.DocTypeExpenseNote},
		match: func(s *scan, _ models.RawDocument) (bool, string) {
			return approverRe.MatchString(s.folded), approverRe.FindString(s.folded)
		},
	},
	{
		code:    "invoice_marker",
		weight:  15,
		targets: []models.DocType{models.DocTypeClientInvoice, models.DocTypeSupplierInvoice},
		match: func(s *scan, _ models.RawDocument) (bool, string) {
			return invoiceMarkerRe.MatchString(s.folded), invoiceMarkerRe.FindString(s.folded)
		},
	},
	{
		code:    "declared_type_hint",
		weight:  15,
		targets: nil, // resolved at match time from the hint itself
		match: func(_ *scan, doc models.RawDocument) (bool, string) {
			switch doc.DeclaredType {
			case models.DocTypeClientInvoice, models.DocTypeSupplierInvoice, models.DocTypeExpenseNote:
				return true, string(doc.DeclaredType)
			}
			return false, ""
		},
	},
	{
		code:    "monetary_amount_present",
		weight:  10,
		targets: []models.DocType{models.DocTypeClientInvoice, models.DocTypeSupplierInvoice, models.DocTypeExpenseNote},
		match: func(s *scan, _ models.RawDocument) (bool, string) {
			tok := amountTokenRe.FindString(s.folded)
			if tok == "" {
				return false, ""
			}
			if _, err := money.ParseAmount(tok); err != nil {
				return false, ""
			}
			return true, tok
		},
	},
}

// Classify scores the text against the signal table and returns the
// winning type. Ties inside TieEpsilon and weak top scores degrade to
// unknown with confidence capped at 0.5.
func (c *Classifier) Classify(doc models.RawDocument) models.ClassifiedDocument {
	s := c.scanText(doc.Text)

	scores := map[models.DocType]float64{}
	var matched []models.Signal

	for _, r := range signalTable {
		ok, detail := r.match(s, doc)
		if !ok {
			continue
		}
		targets := r.targets
		if r.code == "declared_type_hint" {
			targets = []models.DocType{doc.DeclaredType}
		}
		for _, target := range targets {
			scores[target] += r.weight
			matched = append(matched, models.Signal{
				Code:    r.code,
				DocType: target,
				Weight:  r.weight,
				Detail:  detail,
			})
		}
	}

	top, second := rank(scores)
	docType := top.docType
	confidence := 0.0
	if top.score > 0 {
		confidence = top.score / (top.score + second.score)
		if confidence > 0.95 {
			confidence = 0.95
		}
	}

	switch {
	case top.score < c.cfg.MinScore:
		docType = models.DocTypeUnknown
		confidence = math.Min(confidence, 0.5)
	case top.score-second.score < c.cfg.TieEpsilon:
		// Ambiguous direction: never pick a ledger side on a coin flip.
		docType = models.DocTypeUnknown
		confidence = math.Min(confidence, 0.5)
	}

	if doc.SourceConfidence > 0 && doc.SourceConfidence < confidence {
		confidence = doc.SourceConfidence
	}

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Weight > matched[j].Weight })

	if c.logger != nil {
		c.logger.Debug("document classified",
			zap.String("doc_type", string(docType)),
			zap.Float64("confidence", confidence),
			zap.Int("signals", len(matched)))
	}

	return models.ClassifiedDocument{
		RawDocument:              doc,
		DocType:                  docType,
		ClassificationConfidence: confidence,
		ClassificationRationale:  matched,
	}
}

func (c *Classifier) scanText(text string) *scan {
	s := &scan{folded: textnorm.Fold(text), identityIdx: -1, markerIdx: -1}

	for _, name := range c.cfg.Identity.Names {
		needle := textnorm.Fold(name)
		if needle == "" {
			continue
		}
		if idx := strings.Index(s.folded, needle); idx >= 0 && (s.identityIdx < 0 || idx < s.identityIdx) {
			s.identityIdx = idx
			s.identityHit = name
		}
	}
	for _, taxID := range c.cfg.Identity.TaxIDs {
		needle := textnorm.Fold(taxID)
		if needle == "" {
			continue
		}
		if idx := strings.Index(s.folded, needle); idx >= 0 && (s.identityIdx < 0 || idx < s.identityIdx) {
			s.identityIdx = idx
			s.identityHit = taxID
		}
	}

	if loc := recipientMarkerRe.FindStringIndex(s.folded); loc != nil {
		s.markerIdx = loc[0]
	}
	return s
}

type ranked struct {
	docType models.DocType
	score   float64
}

// rank returns the best and runner-up scores with a deterministic
// tie-break on the type name.
func rank(scores map[models.DocType]float64) (ranked, ranked) {
	all := make([]ranked, 0, len(scores))
	for t, v := range scores {
		all = append(all, ranked{t, v})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].docType < all[j].docType
	})
	switch len(all) {
	case 0:
		return ranked{models.DocTypeUnknown, 0}, ranked{models.DocTypeUnknown, 0}
	case 1:
		return all[0], ranked{models.DocTypeUnknown, 0}
	default:
		return all[0], all[1]
	}
}
