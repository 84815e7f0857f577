package session

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

type Config struct {
	Capacity         int           // max turns kept per session (W)
	TTL              time.Duration // inactivity window before Sweep evicts
	OverlapThreshold float64       // signature overlap at or above which a query continues the topic
}

func DefaultConfig() Config {
	return Config{
		Capacity:         10,
		TTL:              30 * time.Minute,
		OverlapThreshold: 0.25,
	}
}

// entry pairs the memory with its ordering lock. ordMu is held across a
// whole classify+append sequence (via Acquire) so two racing queries for
// one session cannot interleave their turns; dataMu guards individual
// reads/writes so observers like Sweep stay race-free.
type entry struct {
	ordMu  sync.Mutex
	dataMu sync.Mutex
	mem    *Memory
}

// Manager owns every session's Memory. Sessions are created on first use
// and evicted only by Sweep; the go-cache janitor is disabled so eviction
// stays under the scheduler's explicit control.
type Manager struct {
	store *cache.Cache
	cfg   Config

	createMu sync.Mutex
	clock    func() time.Time
}

func NewManager(cfg Config) *Manager {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig().Capacity
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.OverlapThreshold <= 0 {
		cfg.OverlapThreshold = DefaultConfig().OverlapThreshold
	}
	return &Manager{
		store: cache.New(cache.NoExpiration, 0),
		cfg:   cfg,
		clock: time.Now,
	}
}

func (m *Manager) getOrCreate(sessionID string) *entry {
	if v, ok := m.store.Get(sessionID); ok {
		return v.(*entry)
	}

	m.createMu.Lock()
	defer m.createMu.Unlock()
	if v, ok := m.store.Get(sessionID); ok {
		return v.(*entry)
	}
	e := &entry{mem: &Memory{SessionId: sessionID, LastActivity: m.clock()}}
	m.store.Set(sessionID, e, cache.NoExpiration)
	return e
}

// GetOrCreate ensures the session exists and returns a snapshot of it.
func (m *Manager) GetOrCreate(sessionID string) Memory {
	e := m.getOrCreate(sessionID)
	e.dataMu.Lock()
	defer e.dataMu.Unlock()
	return e.mem.Snapshot()
}

// Acquire takes the per-session critical section and returns its release.
// The pipeline holds it across classify+append so turns from racing
// requests for one session apply in arrival order. Different sessions
// never contend.
func (m *Manager) Acquire(sessionID string) func() {
	e := m.getOrCreate(sessionID)
	e.ordMu.Lock()
	return e.ordMu.Unlock
}

// Classify compares the query's topic signature against the session's last
// one. No prior turns means NEW_SESSION. Signature overlap at or above the
// threshold, or a referential cue in the query, means CONTINUATION;
// anything else is a TOPIC_SHIFT.
func (m *Manager) Classify(sessionID, query string) Classification {
	e := m.getOrCreate(sessionID)
	e.dataMu.Lock()
	defer e.dataMu.Unlock()

	if len(e.mem.Turns) == 0 {
		return NewSession
	}
	if signatureOverlap(TopicSignature(query), e.mem.LastSignature) >= m.cfg.OverlapThreshold {
		return Continuation
	}
	if HasAnaphoricCue(query) {
		return Continuation
	}
	return TopicShift
}

// Append applies one or more turns in order as one atomic step, with FIFO
// eviction keeping the window at capacity. The signature is refreshed from
// the last user turn in the batch.
func (m *Manager) Append(sessionID string, turns ...Turn) {
	if len(turns) == 0 {
		return
	}
	e := m.getOrCreate(sessionID)
	e.dataMu.Lock()
	defer e.dataMu.Unlock()

	e.mem.Turns = append(e.mem.Turns, turns...)
	if over := len(e.mem.Turns) - m.cfg.Capacity; over > 0 {
		e.mem.Turns = append([]Turn(nil), e.mem.Turns[over:]...)
	}

	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == "user" {
			e.mem.LastSignature = TopicSignature(turns[i].Text)
			break
		}
	}
	e.mem.LastActivity = m.clock()
}

// ResetSignature clears the topic signature after a topic shift so the next
// classification starts from the new subject.
func (m *Manager) ResetSignature(sessionID string) {
	e := m.getOrCreate(sessionID)
	e.dataMu.Lock()
	defer e.dataMu.Unlock()
	e.mem.LastSignature = nil
}

// Snapshot returns a read-only copy of the session, if it exists.
func (m *Manager) Snapshot(sessionID string) (Memory, bool) {
	v, ok := m.store.Get(sessionID)
	if !ok {
		return Memory{}, false
	}
	e := v.(*entry)
	e.dataMu.Lock()
	defer e.dataMu.Unlock()
	return e.mem.Snapshot(), true
}

// Sweep evicts sessions idle since before now-TTL and returns how many it
// removed.
func (m *Manager) Sweep(now time.Time) int {
	cutoff := now.Add(-m.cfg.TTL)
	removed := 0
	for id, item := range m.store.Items() {
		e := item.Object.(*entry)
		e.dataMu.Lock()
		idle := e.mem.LastActivity.Before(cutoff)
		e.dataMu.Unlock()
		if idle {
			m.store.Delete(id)
			removed++
		}
	}
	return removed
}

// ActiveSessions reports how many sessions are currently held.
func (m *Manager) ActiveSessions() int {
	return m.store.ItemCount()
}
