package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedAnswer is what gets stored for a repeatable query.
type CachedAnswer struct {
	Answer             string   `json:"answer"`
	Provider           string   `json:"provider"`
	Confidence         float64  `json:"confidence"`
	SearchMethod       string   `json:"search_method"`
	ReferencedChunkIds []string `json:"referenced_chunk_ids"`
	SourceTitles       []string `json:"source_titles"`
}

// AnswerCache memoizes grounded answers in Redis. Only session-independent
// answers are cacheable (first query of a session, full pipeline, not
// degraded), and keys carry the index generation so a rebuild invalidates
// everything implicitly.
type AnswerCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewAnswerCache(rdb *redis.Client, ttl time.Duration) *AnswerCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AnswerCache{rdb: rdb, ttl: ttl}
}

func (c *AnswerCache) key(query string, generation int64) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("lawmate:answer:%d:%s", generation, hex.EncodeToString(sum[:16]))
}

// Get returns the cached answer for the query under the given generation,
// or nil on miss. Redis being down is treated as a miss.
func (c *AnswerCache) Get(ctx context.Context, query string, generation int64) *CachedAnswer {
	if c.rdb == nil {
		return nil
	}

	raw, err := c.rdb.Get(ctx, c.key(query, generation)).Result()
	if err != nil {
		return nil
	}

	var cached CachedAnswer
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil
	}
	return &cached
}

// Set stores the answer best-effort; failures are ignored.
func (c *AnswerCache) Set(ctx context.Context, query string, generation int64, answer *CachedAnswer) {
	if c.rdb == nil || answer == nil {
		return
	}

	raw, err := json.Marshal(answer)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, c.key(query, generation), raw, c.ttl)
}
