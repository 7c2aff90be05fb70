package cache

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hrygo/shoptalk/ai/intent"
	"github.com/hrygo/shoptalk/ai/match"
)

// HitKind is the outcome of a cache lookup.
type HitKind string

const (
	// HitExact means the fingerprint tier matched.
	HitExact HitKind = "exact"
	// HitSimilarity means a near-duplicate cached query matched.
	HitSimilarity HitKind = "similarity"
	// HitMiss means no reusable answer was found.
	HitMiss HitKind = "miss"
)

// Entry is a cached answer. Counters and LastAccess mutate on every hit.
type Entry struct {
	Query      string
	Answer     string
	Intent     intent.Intent
	CreatedAt  time.Time
	LastAccess time.Time
	Hits       int64

	expiresAt time.Time
}

// exactKey is the exact-tier key: fingerprint plus intent, so an answer is
// never reused across intents even for identical text.
type exactKey struct {
	fingerprint string
	intent      intent.Intent
}

// Stats are the lookup counters exposed for observability.
type Stats struct {
	ExactMatches      int64 `json:"exact_matches"`
	SimilarityMatches int64 `json:"similarity_matches"`
	CacheMisses       int64 `json:"cache_misses"`
	TotalRequests     int64 `json:"total_requests"`
}

// Config configures the response cache.
type Config struct {
	// Capacity bounds the exact tier and the total similarity window.
	Capacity int
	// ExactTTL is the exact-tier entry lifetime (CACHE_TIMEOUT).
	ExactTTL time.Duration
	// SimilarityTTL is the similarity-tier lifetime (SEARCH_CACHE_TIMEOUT).
	// Similarity hits are intentionally reused more broadly, so this may
	// exceed ExactTTL.
	SimilarityTTL time.Duration
	// SimilarityThreshold is the minimum score for a similarity hit.
	// Independent from the retrieval matcher threshold.
	SimilarityThreshold float64
	// PerIntentWindow bounds how many recent queries per intent the
	// similarity tier scans.
	PerIntentWindow int
	// Scorer computes query similarity; the same metric family as the
	// fuzzy matcher.
	Scorer match.Scorer
}

// ResponseCache maps normalized queries to previously generated answers.
// Two tiers are checked in order: exact fingerprint, then fuzzy similarity
// against a bounded window of recently cached queries with the same intent.
type ResponseCache struct {
	cfg   Config
	exact *LRU[exactKey, *Entry]

	mu     sync.Mutex
	recent map[intent.Intent][]*Entry // newest first
	total  int

	statsMu sync.Mutex
	stats   Stats
}

// NewResponseCache creates a response cache.
func NewResponseCache(cfg Config) *ResponseCache {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 500
	}
	if cfg.ExactTTL <= 0 {
		cfg.ExactTTL = 300 * time.Second
	}
	if cfg.SimilarityTTL <= 0 {
		cfg.SimilarityTTL = 600 * time.Second
	}
	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
		cfg.SimilarityThreshold = 0.75
	}
	if cfg.PerIntentWindow <= 0 {
		cfg.PerIntentWindow = 100
	}
	return &ResponseCache{
		cfg:    cfg,
		exact:  NewLRU[exactKey, *Entry](cfg.Capacity, cfg.ExactTTL),
		recent: make(map[intent.Intent][]*Entry),
	}
}

// Fingerprint derives the deterministic exact-tier key text: lower-cased
// with whitespace collapsed. Token order is preserved so unrelated
// questions with the same bag of words do not collide.
func Fingerprint(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Get looks up a reusable answer for the query under the given intent.
// Returns (nil, HitMiss) when no tier matches.
func (c *ResponseCache) Get(query string, it intent.Intent) (*Entry, HitKind) {
	c.statsMu.Lock()
	c.stats.TotalRequests++
	c.statsMu.Unlock()

	key := exactKey{fingerprint: Fingerprint(query), intent: it}
	if e, ok := c.exact.Get(key); ok {
		// Stale intent mismatch would be an invariant violation; treat
		// it as a forced miss rather than returning a wrong answer.
		if e.Intent == it {
			c.touch(e)
			c.count(HitExact)
			slog.Debug("response cache exact hit", "intent", it, "hits", e.Hits)
			return e, HitExact
		}
		c.exact.Remove(key)
	}

	if e := c.findSimilar(query, it); e != nil {
		c.touch(e)
		c.count(HitSimilarity)
		slog.Debug("response cache similarity hit", "intent", it, "cached_query", e.Query)
		return e, HitSimilarity
	}

	c.count(HitMiss)
	return nil, HitMiss
}

// Put stores a generated answer under both tiers. Fallback answers must not
// be stored; that is the caller's contract.
func (c *ResponseCache) Put(query string, it intent.Intent, answer string) {
	now := time.Now()
	e := &Entry{
		Query:      query,
		Answer:     answer,
		Intent:     it,
		CreatedAt:  now,
		LastAccess: now,
		expiresAt:  now.Add(c.cfg.SimilarityTTL),
	}

	c.exact.Set(exactKey{fingerprint: Fingerprint(query), intent: it}, e, c.cfg.ExactTTL)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.recent[it] = append([]*Entry{e}, c.recent[it]...)
	c.total++

	// Per-intent bucket bound.
	if len(c.recent[it]) > c.cfg.PerIntentWindow {
		c.recent[it] = c.recent[it][:c.cfg.PerIntentWindow]
		c.total--
	}
	// Global bound: drop the oldest entry across intents.
	for c.total > c.cfg.Capacity {
		c.dropOldest()
	}
}

// findSimilar scans the same-intent window for the best fuzzy match at or
// above the similarity threshold. Expired entries found on the way are
// removed.
func (c *ResponseCache) findSimilar(query string, it intent.Intent) *Entry {
	if c.cfg.Scorer == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	window := c.recent[it]
	kept := window[:0]
	var best *Entry
	bestScore := 0.0
	for _, e := range window {
		if now.After(e.expiresAt) {
			c.total--
			continue
		}
		kept = append(kept, e)
		if score := c.cfg.Scorer.Score(query, e.Query); score > bestScore {
			bestScore = score
			best = e
		}
	}
	c.recent[it] = kept

	if best != nil && bestScore >= c.cfg.SimilarityThreshold {
		return best
	}
	return nil
}

func (c *ResponseCache) dropOldest() {
	var oldestIntent intent.Intent
	oldestIdx := -1
	var oldestAt time.Time
	for it, window := range c.recent {
		if len(window) == 0 {
			continue
		}
		last := window[len(window)-1]
		if oldestIdx == -1 || last.CreatedAt.Before(oldestAt) {
			oldestIntent = it
			oldestIdx = len(window) - 1
			oldestAt = last.CreatedAt
		}
	}
	if oldestIdx == -1 {
		c.total = 0
		return
	}
	c.recent[oldestIntent] = c.recent[oldestIntent][:oldestIdx]
	c.total--
}

func (c *ResponseCache) touch(e *Entry) {
	c.mu.Lock()
	e.LastAccess = time.Now()
	e.Hits++
	c.mu.Unlock()
}

func (c *ResponseCache) count(kind HitKind) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	switch kind {
	case HitExact:
		c.stats.ExactMatches++
	case HitSimilarity:
		c.stats.SimilarityMatches++
	case HitMiss:
		c.stats.CacheMisses++
	}
}

// GetStats returns a snapshot of the lookup counters.
func (c *ResponseCache) GetStats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// Clear drops all cached answers and resets counters.
func (c *ResponseCache) Clear() {
	c.exact.Clear()

	c.mu.Lock()
	c.recent = make(map[intent.Intent][]*Entry)
	c.total = 0
	c.mu.Unlock()

	c.statsMu.Lock()
	c.stats = Stats{}
	c.statsMu.Unlock()
}
