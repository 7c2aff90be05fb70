package match

import (
	"reflect"
	"testing"

	"github.com/hrygo/shoptalk/ai/catalog"
	"github.com/hrygo/shoptalk/ai/segment"
)

// stubScorer returns a fixed score per candidate text.
type stubScorer struct {
	scores map[string]float64
}

func (s *stubScorer) Score(_, b string) float64 {
	return s.scores[b]
}

func TestTokenSetScorer_OrderIndependent(t *testing.T) {
	scorer := NewTokenSetScorer(segment.NewSegmenter())

	if got := scorer.Score("几点配送", "配送几点"); got != 1.0 {
		t.Errorf("expected 1.0 for reordered tokens, got %f", got)
	}
	if got := scorer.Score("配送时间", "退货政策"); got != 0 {
		t.Errorf("expected 0 for disjoint tokens, got %f", got)
	}
	if got := scorer.Score("", "配送"); got != 0 {
		t.Errorf("expected 0 for empty query, got %f", got)
	}
}

func TestLiveTokenSetScorer_FollowsSegmenterSwaps(t *testing.T) {
	seg := segment.NewSegmenter()
	scorer := NewLiveTokenSetScorer(func() *segment.Segmenter { return seg })

	// 魑魅 and 魍魉 are not dictionary words yet: the joined run groups as a
	// single token, sharing nothing with the spaced variant.
	if got := scorer.Score("魑魅魍魉", "魑魅 魍魉"); got != 0 {
		t.Fatalf("expected 0 before vocabulary update, got %f", got)
	}

	// A catalog reload style vocabulary swap must reach the scorer.
	seg = segment.NewSegmenter("魑魅", "魍魉")
	if got := scorer.Score("魑魅魍魉", "魑魅 魍魉"); got != 1.0 {
		t.Errorf("expected 1.0 after vocabulary update, got %f", got)
	}
}

func TestTokenSetScorer_PartialOverlap(t *testing.T) {
	scorer := NewTokenSetScorer(segment.NewSegmenter())

	// {a,b,c,d,e} vs {a,b,c,f,g}: 2*3/10 = 0.6.
	got := scorer.Score("a b c d e", "a b c f g")
	if got != 0.6 {
		t.Errorf("expected 0.6, got %f", got)
	}
}

func TestMatcher_ThresholdBoundaryInclusive(t *testing.T) {
	records := []*catalog.Record{
		{ID: "at", Kind: catalog.KindProduct, Name: "a b c d e"},
		{ID: "below", Kind: catalog.KindProduct, Name: "a b c d e f g h i j"},
	}
	m := NewMatcher(NewTokenSetScorer(segment.NewSegmenter()), 0.6)

	// "at" scores exactly 0.6 (3 common of 5+5); "below" scores
	// 2*3/13 ≈ 0.46.
	results := m.Match("a b c x y", records, catalog.KindProduct)
	if len(results) != 1 {
		t.Fatalf("expected exactly the boundary candidate, got %d results", len(results))
	}
	if results[0].Record.ID != "at" {
		t.Errorf("expected boundary candidate accepted, got %s", results[0].Record.ID)
	}
	if results[0].Score != 0.6 {
		t.Errorf("expected score 0.6, got %f", results[0].Score)
	}
}

func TestMatcher_TieBreakOrdering(t *testing.T) {
	records := []*catalog.Record{
		{ID: "z-policy", Kind: catalog.KindPolicy, Name: "tie"},
		{ID: "a-product-long", Kind: catalog.KindProduct, Name: "tie", Description: "much longer searchable text here"},
		{ID: "b-product", Kind: catalog.KindProduct, Name: "tie"},
	}
	scorer := &stubScorer{scores: map[string]float64{"tie": 0.8}}
	m := NewMatcher(scorer, 0.5)

	results := m.Match("query", records, catalog.KindProduct)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// Preferred kind first, then shorter text, then ID; policy last.
	var order []string
	for _, r := range results {
		order = append(order, r.Record.ID)
	}
	want := []string{"b-product", "a-product-long", "z-policy"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("tie-break order = %v, want %v", order, want)
	}
}

func TestMatcher_MatchedField(t *testing.T) {
	seg := segment.NewSegmenter("爱妃苹果", "苹果", "进口")
	records := []*catalog.Record{
		{
			ID:       "p-001",
			Kind:     catalog.KindProduct,
			Name:     "爱妃苹果",
			Keywords: []string{"苹果", "进口"},
		},
	}
	m := NewMatcher(NewTokenSetScorer(seg), 0.6)

	results := m.Match("苹果", records, catalog.KindProduct)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Field != "keywords" {
		t.Errorf("expected keywords field to score best, got %s", results[0].Field)
	}
}

func TestMatcher_Deterministic(t *testing.T) {
	seg := segment.NewSegmenter()
	records := []*catalog.Record{
		{ID: "pol-1", Kind: catalog.KindPolicy, Name: "配送时间", Keywords: []string{"配送"}},
		{ID: "pol-2", Kind: catalog.KindPolicy, Name: "配送范围", Keywords: []string{"配送"}},
	}
	m := NewMatcher(NewTokenSetScorer(seg), 0.3)

	first := m.Match("配送", records, catalog.KindPolicy)
	second := m.Match("配送", records, catalog.KindPolicy)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("matching not deterministic")
	}
}

func TestMatcher_EmptyQuery(t *testing.T) {
	m := NewMatcher(NewTokenSetScorer(segment.NewSegmenter()), 0.6)
	if results := m.Match("  ", nil, ""); results != nil {
		t.Errorf("expected nil for empty query, got %v", results)
	}
}
