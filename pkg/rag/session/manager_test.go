package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userTurn(text string) Turn {
	return Turn{Role: "user", Text: text, Timestamp: time.Now()}
}

func assistantTurn(text string) Turn {
	return Turn{Role: "assistant", Text: text, Timestamp: time.Now()}
}

func TestClassifyNewSession(t *testing.T) {
	m := NewManager(DefaultConfig())
	assert.Equal(t, NewSession, m.Classify("s1", "전세 계약 시 주의사항이 뭔가요?"))
}

func TestClassifyContinuationByCue(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.Append("s1",
		userTurn("전세 계약 시 주의사항이 뭔가요?"),
		assistantTurn("계약 전 등기부등본을 확인하세요."),
	)

	// No shared subject terms, but the referential cue marks a follow-up.
	assert.Equal(t, Continuation, m.Classify("s1", "그럼 보증금은 어떻게 하나요?"))
}

func TestClassifyContinuationByOverlap(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.Append("s1",
		userTurn("전세 보증금 반환 절차가 궁금합니다"),
		assistantTurn("임대차 종료 후 반환을 청구할 수 있습니다."),
	)

	// Particle differs (보증금을 vs 보증금) but the subject carries over.
	assert.Equal(t, Continuation, m.Classify("s1", "보증금을 돌려받지 못하면?"))
}

func TestClassifyTopicShift(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.Append("s1",
		userTurn("전세 계약 시 주의사항이 뭔가요?"),
		assistantTurn("계약 전 등기부등본을 확인하세요."),
	)

	assert.Equal(t, TopicShift, m.Classify("s1", "음주운전 처벌 기준을 알려주세요"))
}

func TestAppendEvictsFIFOAtCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = 10
	m := NewManager(cfg)

	for i := 0; i < 12; i++ {
		m.Append("s1",
			userTurn(fmt.Sprintf("질문 %d", i)),
			assistantTurn(fmt.Sprintf("답변 %d", i)),
		)
	}

	snap, ok := m.Snapshot("s1")
	require.True(t, ok)
	require.Len(t, snap.Turns, 10)
	// Oldest turns were evicted; the window starts at pair 7.
	assert.Equal(t, "질문 7", snap.Turns[0].Text)
	assert.Equal(t, "답변 11", snap.Turns[9].Text)
}

func TestResetSignatureForcesShiftDetectionFromScratch(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.Append("s1", userTurn("전세 보증금 반환"), assistantTurn("..."))

	m.ResetSignature("s1")

	// With the signature cleared, overlap cannot fire; only a cue can.
	assert.Equal(t, TopicShift, m.Classify("s1", "전세 보증금 반환"))
}

func TestSweepRemovesIdleSessionsOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TTL = 10 * time.Minute
	m := NewManager(cfg)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.clock = func() time.Time { return base }
	m.Append("idle", userTurn("오래된 질문"))

	m.clock = func() time.Time { return base.Add(9 * time.Minute) }
	m.Append("fresh", userTurn("최근 질문"))

	removed := m.Sweep(base.Add(11 * time.Minute))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, m.ActiveSessions())

	_, ok := m.Snapshot("idle")
	assert.False(t, ok)
	_, ok = m.Snapshot("fresh")
	assert.True(t, ok)
}

func TestSnapshotIsACopy(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.Append("s1", userTurn("전세 계약"))

	snap, ok := m.Snapshot("s1")
	require.True(t, ok)
	snap.Turns[0].Text = "변조"

	again, _ := m.Snapshot("s1")
	assert.Equal(t, "전세 계약", again.Turns[0].Text)
}

func TestAcquireSerializesOneSession(t *testing.T) {
	m := NewManager(DefaultConfig())

	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	release := m.Acquire("s1")

	wg.Add(1)
	go func() {
		defer wg.Done()
		r := m.Acquire("s1")
		defer r()
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
	}()

	// The goroutine must wait until we release.
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	order = append(order, 1)
	mu.Unlock()
	release()

	wg.Wait()
	assert.Equal(t, []int{1, 2}, order)
}

func TestDifferentSessionsDoNotContend(t *testing.T) {
	m := NewManager(DefaultConfig())

	release := m.Acquire("s1")
	defer release()

	done := make(chan struct{})
	go func() {
		r := m.Acquire("s2")
		r()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquiring a different session blocked")
	}
}

func TestConcurrentAppendsRespectCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = 10
	m := NewManager(cfg)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			release := m.Acquire("s1")
			defer release()
			m.Append("s1", userTurn(fmt.Sprintf("질문 %d", i)), assistantTurn("답"))
		}(i)
	}
	wg.Wait()

	snap, ok := m.Snapshot("s1")
	require.True(t, ok)
	assert.Len(t, snap.Turns, 10)
}
