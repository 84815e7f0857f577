package lexical

import (
	"strings"
	"unicode"
)

// Tokenizer turns raw text into index/query terms. Korean morphological
// analysis is intentionally pluggable: the default tokenizer approximates it
// with Hangul character bigrams, a dedicated analyzer can be swapped in
// without touching the index.
type Tokenizer interface {
	Tokenize(text string) []string
}

// StandardTokenizer lowercases, splits on non-letter/digit boundaries, and
// expands every Hangul run into overlapping character bigrams so that
// agglutinated Korean forms ("전세금을", "전세보증금") still share terms with
// the query. Single-rune Hangul tokens are kept as-is.
type StandardTokenizer struct{}

func NewStandardTokenizer() *StandardTokenizer {
	return &StandardTokenizer{}
}

func (t *StandardTokenizer) Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var terms []string
	for _, f := range fields {
		runes := []rune(f)
		if !containsHangul(runes) {
			terms = append(terms, f)
			continue
		}
		terms = append(terms, hangulBigrams(runes)...)
	}
	return terms
}

func containsHangul(runes []rune) bool {
	for _, r := range runes {
		if unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}

// hangulBigrams emits the surface token plus its character bigrams.
// Keeping the full token preserves exact-match weight; the bigrams give
// partial matches across particles and compounds.
func hangulBigrams(runes []rune) []string {
	terms := []string{string(runes)}
	if len(runes) < 2 {
		return terms
	}
	for i := 0; i+1 < len(runes); i++ {
		terms = append(terms, string(runes[i:i+2]))
	}
	return terms
}
