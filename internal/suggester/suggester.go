// Package suggester maps free-text merchant descriptions to Käfer PME
// chart-of-accounts codes. Matching is a fixed keyword table with a fuzzy
// fallback; unknown merchants get the generic expense account at zero
// confidence so a human always books them consciously.
package suggester

import (
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/hypervisual/fincore/internal/models"
	"github.com/hypervisual/fincore/internal/textnorm"
)

type account struct {
	code  string
	label string
}

// Käfer PME expense and asset accounts reachable from the supplier rules.
var categoryAccounts = map[string]account{
	"fournitures":             {"4200", "Fournitures de bureau"},
	"logiciel":                {"4411", "Licences logiciels"},
	"hebergement_web":         {"4412", "Hébergement web"},
	"telecom":                 {"4420", "Télécommunications"},
	"loyer":                   {"6000", "Loyer"},
	"electricite":             {"6110", "Électricité"},
	"chauffage":               {"6120", "Chauffage"},
	"transport":               {"6200", "Transport"},
	"carburant":               {"6211", "Carburant"},
	"deplacements":            {"6220", "Frais de déplacement"},
	"assurances":              {"6300", "Assurances"},
	"fiduciaire":              {"6510", "Frais fiduciaire"},
	"avocat":                  {"6520", "Frais avocat"},
	"notaire":                 {"6530", "Frais notaire"},
	"marketing":               {"6610", "Marketing"},
	"imprimerie":              {"6630", "Imprimerie"},
	"formation":               {"6700", "Formation"},
	"poste":                   {"6820", "Frais postaux"},
	"informatique_immobilise": {"1520", "Matériel informatique"},
	"mobilier":                {"1510", "Mobilier et installations"},
	"autre":                   {"6900", "Frais divers"},
}

type supplierRule struct {
	keywords []string
	category string
}

// Swiss merchant keyword table. Order matters: the first matching rule
// wins, so the more specific merchant lists come before generic terms.
var supplierRules = []supplierRule{
	{[]string{"swisscom", "sunrise", "salt", "upc"}, "telecom"},
	{[]string{"microsoft", "google", "adobe", "oracle", "sap", "atlassian"}, "logiciel"},
	{[]string{"amazon web services", "aws", "azure", "digitalocean", "infomaniak"}, "hebergement_web"},
	{[]string{"sbb", "cff", "ffs", "bls"}, "deplacements"},
	{[]string{"uber", "taxi", "bolt"}, "transport"},
	{[]string{"shell", "bp", "avia", "migrol", "tamoil", "carburant", "essence", "diesel"}, "carburant"},
	{[]string{"migros", "coop", "denner", "aldi", "lidl", "volg"}, "fournitures"},
	{[]string{"electricite", "services industriels", "sig", "romande energie", "groupe e"}, "electricite"},
	{[]string{"chauffage", "mazout", "pellet"}, "chauffage"},
	{[]string{"loyer", "bail", "regie", "gerance"}, "loyer"},
	{[]string{"axa", "zurich", "mobiliar", "helvetia", "baloise", "vaudoise", "generali", "allianz"}, "assurances"},
	{[]string{"avocat", "etude", "legal", "juridique"}, "avocat"},
	{[]string{"fiduciaire", "comptable", "revision", "audit"}, "fiduciaire"},
	{[]string{"notaire", "notariat"}, "notaire"},
	{[]string{"publicite", "marketing", "google ads", "facebook ads", "linkedin"}, "marketing"},
	{[]string{"imprimerie", "print", "impression", "flyeralarm"}, "imprimerie"},
	{[]string{"formation", "cours", "seminaire", "conference"}, "formation"},
	{[]string{"poste", "la poste"}, "poste"},
	{[]string{"apple", "dell", "lenovo", "asus"}, "informatique_immobilise"},
	{[]string{"ikea", "pfister", "conforama", "interio"}, "mobilier"},
}

const (
	exactConfidence = 0.9
	fuzzyBase       = 0.8 // minus 0.1 per edit of distance
)

// Suggester resolves descriptions to account suggestions.
type Suggester struct {
	logger *zap.Logger
}

// New creates a Suggester.
func New(logger *zap.Logger) *Suggester {
	return &Suggester{logger: logger}
}

// Suggest returns the best account for a merchant description. Exact
// keyword hits beat fuzzy ones; an unmatched description falls back to
// 6900 at zero confidence.
func (s *Suggester) Suggest(description string) models.AccountSuggestion {
	folded := textnorm.Fold(description)
	tokens := textnorm.Tokenize(description)
	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, rule := range supplierRules {
		for _, kw := range rule.keywords {
			if keywordHit(folded, words, kw) {
				return s.suggestion(rule.category, kw, exactConfidence)
			}
		}
	}

	// Second pass: OCR output misspells merchant names often enough that
	// an edit-distance net recovers real hits.
	bestDist := 3
	var bestKw, bestCat string
	for _, rule := range supplierRules {
		for _, kw := range rule.keywords {
			if strings.Contains(kw, " ") || len(kw) < 5 {
				continue
			}
			for _, tok := range tokens {
				if d := levenshtein(tok, kw); d < bestDist {
					bestDist, bestKw, bestCat = d, kw, rule.category
				}
			}
		}
	}
	if bestKw != "" {
		return s.suggestion(bestCat, bestKw, fuzzyBase-0.1*float64(bestDist))
	}

	fallback := categoryAccounts["autre"]
	return models.AccountSuggestion{
		AccountCode:  fallback.code,
		AccountLabel: fallback.label,
		Confidence:   0,
	}
}

func (s *Suggester) suggestion(category, keyword string, confidence float64) models.AccountSuggestion {
	acct := categoryAccounts[category]
	if s.logger != nil {
		s.logger.Debug("account suggested",
			zap.String("keyword", keyword),
			zap.String("account", acct.code),
			zap.Float64("confidence", confidence))
	}
	return models.AccountSuggestion{
		MerchantPattern: keyword,
		AccountCode:     acct.code,
		AccountLabel:    acct.label,
		Confidence:      confidence,
	}
}

// keywordHit matches short keywords as whole words only; "bp" inside
// another word is noise, "bp" as a word is a petrol station.
func keywordHit(folded string, words []string, kw string) bool {
	if len(kw) <= 3 {
		for _, w := range words {
			if w == kw {
				return true
			}
		}
		return false
	}
	return strings.Contains(folded, kw)
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
