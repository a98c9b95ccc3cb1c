// Package textnorm provides the text canonicalization shared by the
// classifier, matcher and suggester: lower-casing, diacritics folding and
// tokenization of OCR text and bank descriptions.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lower-cases and strips diacritics: "Échéance" -> "echeance".
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Stopwords that carry no matching signal in bank descriptions or
// invoice references (French/German/English/Italian connectives plus
// payment-rail noise words).
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "von": {}, "und": {}, "der": {}, "die": {},
	"les": {}, "des": {}, "une": {}, "pour": {}, "avec": {}, "del": {}, "della": {},
	"sarl": {}, "gmbh": {}, "srl": {}, "llc": {}, "ltd": {}, "inc": {},
	"virement": {}, "paiement": {}, "payment": {}, "zahlung": {}, "transfer": {},
	"credit": {}, "debit": {}, "twint": {}, "sepa": {}, "qrr": {},
}

// Tokenize folds s and splits it into meaningful tokens: alphanumeric
// runs of length >= 3 that are not stopwords. Digit runs are kept, since
// invoice and reference numbers are the strongest matching tokens.
func Tokenize(s string) []string {
	folded := Fold(s)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// TokenSet returns Tokenize(s) as a set.
func TokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokenize(s) {
		set[tok] = struct{}{}
	}
	return set
}

// OverlapRatio is the fraction of reference tokens present in the probe
// set: 1 at full overlap of meaningful tokens, 0 at none or when the
// reference side has no tokens.
func OverlapRatio(probe map[string]struct{}, reference []string) float64 {
	if len(reference) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(reference))
	hits := 0
	for _, tok := range reference {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := probe[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(seen))
}
