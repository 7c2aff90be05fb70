// Package match scores candidate records against a query with a pluggable
// string-similarity function.
package match

import (
	"sort"
	"strings"

	"github.com/hrygo/shoptalk/ai/catalog"
	"github.com/hrygo/shoptalk/ai/segment"
)

// Scorer computes a normalized similarity in [0, 1] between two strings.
// Implementations must be pure functions so retrieval stays deterministic.
type Scorer interface {
	Score(a, b string) float64
}

// TokenSetScorer implements a token-set ratio: the Dice coefficient over the
// unique token sets of both strings. Order-independent and robust to partial
// overlap, so "几点配送" and "配送几点" score 1.0.
type TokenSetScorer struct {
	source func() *segment.Segmenter
}

// NewTokenSetScorer creates a scorer backed by a fixed segmenter.
func NewTokenSetScorer(seg *segment.Segmenter) *TokenSetScorer {
	return &TokenSetScorer{source: func() *segment.Segmenter { return seg }}
}

// NewLiveTokenSetScorer creates a scorer that resolves its segmenter on
// every call. Use with an index accessor so scoring picks up the vocabulary
// of a freshly reloaded catalog instead of segmenting with a stale
// dictionary.
func NewLiveTokenSetScorer(source func() *segment.Segmenter) *TokenSetScorer {
	return &TokenSetScorer{source: source}
}

// Score returns 2*|A∩B| / (|A|+|B|) over the token sets of a and b.
func (s *TokenSetScorer) Score(a, b string) float64 {
	seg := s.source()
	setA := tokenSet(seg.Tokenize(a))
	setB := tokenSet(seg.Tokenize(b))
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	common := 0
	for tok := range setA {
		if setB[tok] {
			common++
		}
	}
	return 2 * float64(common) / float64(len(setA)+len(setB))
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		set[tok] = true
	}
	return set
}

// Result is a scored candidate. Ephemeral: produced per query, not persisted.
type Result struct {
	Record *catalog.Record
	Score  float64
	// Field is the record field that scored best: name, keywords,
	// description or specification.
	Field string
}

// Matcher ranks candidates with a scorer and an acceptance threshold.
type Matcher struct {
	scorer    Scorer
	threshold float64
}

// NewMatcher creates a matcher. Candidates scoring below threshold are
// discarded; a score exactly at threshold is accepted.
func NewMatcher(scorer Scorer, threshold float64) *Matcher {
	return &Matcher{scorer: scorer, threshold: threshold}
}

// Threshold returns the configured acceptance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match scores candidates against the query and returns accepted results,
// best first. Equal scores tie-break on: kind matching preferred, then
// shorter searchable text, then record ID, so ordering is reproducible.
func (m *Matcher) Match(query string, candidates []*catalog.Record, preferred catalog.Kind) []Result {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	var results []Result
	for _, r := range candidates {
		score, field := m.scoreRecord(query, r)
		if score >= m.threshold {
			results = append(results, Result{Record: r, Score: score, Field: field})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		aPref := a.Record.Kind == preferred
		bPref := b.Record.Kind == preferred
		if aPref != bPref {
			return aPref
		}
		aLen := len([]rune(a.Record.SearchText()))
		bLen := len([]rune(b.Record.SearchText()))
		if aLen != bLen {
			return aLen < bLen
		}
		return a.Record.ID < b.Record.ID
	})
	return results
}

// scoreRecord scores each searchable field and keeps the best.
func (m *Matcher) scoreRecord(query string, r *catalog.Record) (float64, string) {
	fields := []struct {
		name string
		text string
	}{
		{"name", r.Name},
		{"keywords", strings.Join(r.Keywords, " ")},
		{"description", r.Description},
		{"specification", r.Specification},
	}

	best := 0.0
	bestField := ""
	for _, f := range fields {
		if f.text == "" {
			continue
		}
		if score := m.scorer.Score(query, f.text); score > best {
			best = score
			bestField = f.name
		}
	}
	return best, bestField
}
