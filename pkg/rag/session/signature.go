package session

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// anaphoricCues are referential markers that signal a follow-up even when
// the query shares no content terms with the previous one ("그럼 보증금은?").
var anaphoricCues = []string{
	// Korean
	"그럼", "그러면", "그렇다면", "그건", "그거", "그것", "이건", "이거", "이것",
	"저건", "저거", "아까", "방금", "위에서", "그래서", "그리고", "추가로",
	// English
	"it", "that", "this", "then", "also",
}

// signatureStopwords are interrogatives and function words excluded from
// topic signatures so overlap measures subject matter, not phrasing.
var signatureStopwords = map[string]bool{
	"무엇": true, "뭔가요": true, "어떻게": true, "어떤": true, "왜": true,
	"언제": true, "어디": true, "누가": true, "하나요": true, "인가요": true,
	"합니다": true, "있나요": true, "주세요": true, "알려주세요": true,
	"what": true, "how": true, "why": true, "when": true, "where": true,
	"the": true, "is": true, "are": true, "a": true, "an": true, "do": true,
	"about": true,
}

const maxSignatureTerms = 12

// TopicSignature extracts a lightweight subject fingerprint from a query:
// surface tokens with interrogatives, cues and single-rune tokens removed,
// first-occurrence order, capped. No embedding call is involved.
func TopicSignature(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool)
	var sig []string
	for _, tok := range fields {
		if utf8.RuneCountInString(tok) < 2 {
			continue
		}
		if signatureStopwords[tok] || isCue(tok) {
			continue
		}
		if seen[tok] {
			continue
		}
		seen[tok] = true
		sig = append(sig, tok)
		if len(sig) >= maxSignatureTerms {
			break
		}
	}
	return sig
}

// signatureOverlap measures how much of the new signature is already in the
// previous one. Terms are compared as Hangul character bigrams so that
// agglutinated variants of one subject ("보증금은" / "보증금을") still
// register as shared. Containment rather than Jaccard: a short follow-up
// re-mentioning one prior subject should count as continuous.
func signatureOverlap(newSig, prevSig []string) float64 {
	newGrams := signatureGrams(newSig)
	if len(newGrams) == 0 {
		return 0
	}
	prevGrams := signatureGrams(prevSig)
	if len(prevGrams) == 0 {
		return 0
	}

	prev := make(map[string]bool, len(prevGrams))
	for _, g := range prevGrams {
		prev[g] = true
	}
	shared := 0
	for _, g := range newGrams {
		if prev[g] {
			shared++
		}
	}
	return float64(shared) / float64(len(newGrams))
}

func signatureGrams(sig []string) []string {
	var grams []string
	seen := make(map[string]bool)
	add := func(g string) {
		if !seen[g] {
			seen[g] = true
			grams = append(grams, g)
		}
	}
	for _, term := range sig {
		runes := []rune(term)
		if len(runes) < 2 {
			continue
		}
		if !containsHangul(runes) {
			add(term)
			continue
		}
		for i := 0; i+1 < len(runes); i++ {
			add(string(runes[i : i+2]))
		}
	}
	return grams
}

func containsHangul(runes []rune) bool {
	for _, r := range runes {
		if unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}

// HasAnaphoricCue reports whether the query leans on a referential marker.
func HasAnaphoricCue(query string) bool {
	for _, field := range strings.Fields(strings.ToLower(query)) {
		if isCue(strings.Trim(field, "?!.,")) {
			return true
		}
	}
	return false
}

func isCue(token string) bool {
	for _, cue := range anaphoricCues {
		if token == cue {
			return true
		}
		// Korean cues agglutinate particles: "그거는", "그것은". English
		// cues must match whole tokens.
		if containsHangul([]rune(cue)) && strings.HasPrefix(token, cue) {
			return true
		}
	}
	return false
}
