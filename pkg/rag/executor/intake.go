package executor

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationError reports input rejected at intake. It is returned to the
// caller, never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid query: %s", e.Reason)
}

// legalLexicon is the domain gate vocabulary. A query mentioning none of
// these terms is redirected with the non-legal template instead of being
// retrieved against the corpus.
var legalLexicon = []string{
	"법률", "법령", "법원", "법적", "조항", "조문", "판례", "소송", "고소", "고발", "재판",
	"계약", "전세", "월세", "임대", "임차", "보증금", "등기", "대항력", "갱신",
	"상속", "유언", "증여", "이혼", "양육권", "위자료", "재산분할",
	"근로", "해고", "임금", "퇴직금", "산재", "노동",
	"형사", "처벌", "벌금", "징역", "집행유예", "음주운전", "폭행", "사기",
	"손해배상", "배상", "채무", "채권", "파산", "회생", "압류",
	"세금", "과태료", "행정", "허가", "권리", "의무", "위반", "침해",
	"변호사", "상담",
}

// validateQuery enforces length bounds on the raw query.
func validateQuery(query string, maxLen int) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return &ValidationError{Reason: "query is empty"}
	}
	if utf8.RuneCountInString(trimmed) > maxLen {
		return &ValidationError{Reason: fmt.Sprintf("query exceeds %d characters", maxLen)}
	}
	return nil
}

// isLegalQuery runs the lexicon gate.
func isLegalQuery(query string) bool {
	lowered := strings.ToLower(query)
	for _, term := range legalLexicon {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}
