package prompt

import (
	"fmt"
	"strings"

	"law-mate-be/pkg/llm"
	"law-mate-be/pkg/rag/search"
	"law-mate-be/pkg/rag/session"
)

const systemPrompt = `당신은 대한민국 법률 정보를 안내하는 AI 상담 도우미 'Law Mate'입니다.

다음 원칙을 반드시 지키세요:
1. 아래 제공된 법률 근거 자료의 내용에 근거해서만 답변합니다.
2. 근거 자료에 없는 내용은 추측하지 않고, 해당 내용이 자료에 없다고 밝힙니다.
3. 답변에 인용한 법령명을 함께 표기합니다.
4. 쉬운 한국어로 설명하되, 법률 용어는 정확하게 사용합니다.
5. 답변 마지막에 구체적인 사안은 전문가 상담이 필요하다는 안내를 덧붙입니다.`

// maxHistoryTurns bounds how much conversation is replayed to the model.
const maxHistoryTurns = 6

// Build assembles the chat history for generation: system prompt, recent
// session turns, then the user query with its evidence block. Evidence is
// numbered so the model can cite it.
func Build(query string, evidence []search.Evidence, history session.Memory) []llm.Message {
	messages := []llm.Message{{Role: "system", Content: systemPrompt}}

	turns := history.Turns
	if len(turns) > maxHistoryTurns {
		turns = turns[len(turns)-maxHistoryTurns:]
	}
	for _, turn := range turns {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Text})
	}

	messages = append(messages, llm.Message{Role: "user", Content: userContent(query, evidence)})
	return messages
}

func userContent(query string, evidence []search.Evidence) string {
	var sb strings.Builder
	sb.WriteString("[법률 근거 자료]\n")
	for i, ev := range evidence {
		fmt.Fprintf(&sb, "%d. (%s) %s\n", i+1, ev.Title, strings.TrimSpace(ev.Text))
	}
	sb.WriteString("\n[질문]\n")
	sb.WriteString(query)
	return sb.String()
}
