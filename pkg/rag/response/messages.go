package response

// Fixed answer templates. These are returned verbatim so clients and tests
// can rely on them; they are answers, not errors.
const (
	// NonLegalRedirect is returned when the query falls outside the legal
	// domain.
	NonLegalRedirect = "죄송합니다. 법률 관련 질문만 답변할 수 있습니다. 법률 상담이 필요한 질문을 해주세요."

	// InsufficientEvidence is returned when retrieval found nothing above
	// the relevance floor.
	InsufficientEvidence = "관련된 법률 정보를 찾을 수 없습니다. 다른 방식으로 질문해 주시거나 더 구체적인 내용을 포함해 주세요."

	// ProviderFallback is returned when every generative provider failed.
	// The response carries degraded=true alongside it.
	ProviderFallback = "죄송합니다. 현재 답변 생성에 일시적인 문제가 발생했습니다. 잠시 후 다시 질문해 주세요."

	// Disclaimer is appended guidance; generated answers close with it.
	Disclaimer = "보다 구체적인 상담이 필요하시다면 전문가와 상담하시기 바랍니다."
)
