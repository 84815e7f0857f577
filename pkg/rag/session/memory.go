package session

import (
	"time"

	"github.com/google/uuid"
)

// Classification of an incoming query against the session's history.
type Classification string

const (
	NewSession   Classification = "NEW_SESSION"
	Continuation Classification = "CONTINUATION"
	TopicShift   Classification = "TOPIC_SHIFT"
)

// Turn is one utterance in a session. Immutable once appended.
type Turn struct {
	Role               string // "user" or "assistant"
	Text               string
	Timestamp          time.Time
	ReferencedChunkIds []uuid.UUID
}

// Memory is the bounded conversation state for one session: at most
// Capacity turns (oldest evicted first) plus the topic signature of the
// last user query. Only the pipeline mutates it, under the per-session
// critical section handed out by Manager.Acquire.
type Memory struct {
	SessionId     string
	Turns         []Turn
	LastSignature []string
	LastActivity  time.Time
}

// Snapshot returns a read-only copy so callers can build prompts without
// holding the session lock.
func (m *Memory) Snapshot() Memory {
	cp := Memory{
		SessionId:    m.SessionId,
		LastActivity: m.LastActivity,
	}
	cp.Turns = make([]Turn, len(m.Turns))
	copy(cp.Turns, m.Turns)
	cp.LastSignature = make([]string, len(m.LastSignature))
	copy(cp.LastSignature, m.LastSignature)
	return cp
}

// RecentUserTexts returns the last n user turns, oldest first. Used for
// query enrichment on continuation.
func (m *Memory) RecentUserTexts(n int) []string {
	var texts []string
	for i := len(m.Turns) - 1; i >= 0 && len(texts) < n; i-- {
		if m.Turns[i].Role == "user" {
			texts = append(texts, m.Turns[i].Text)
		}
	}
	// Reverse into chronological order.
	for i, j := 0, len(texts)-1; i < j; i, j = i+1, j-1 {
		texts[i], texts[j] = texts[j], texts[i]
	}
	return texts
}
