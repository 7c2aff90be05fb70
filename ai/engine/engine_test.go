package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/shoptalk/ai/cache"
	"github.com/hrygo/shoptalk/ai/catalog"
	"github.com/hrygo/shoptalk/ai/conversation"
	"github.com/hrygo/shoptalk/ai/intent"
	"github.com/hrygo/shoptalk/ai/llm"
	"github.com/hrygo/shoptalk/ai/match"
	"github.com/hrygo/shoptalk/ai/prompt"
	"github.com/hrygo/shoptalk/ai/segment"
)

// fakeLLM echoes a canned answer and counts calls; err, when set, simulates
// an unavailable gateway.
type fakeLLM struct {
	answer string
	err    error
	calls  atomic.Int64
	last   []llm.Message
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message) (string, error) {
	f.calls.Add(1)
	f.last = messages
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func testRecords() []*catalog.Record {
	return []*catalog.Record{
		{
			ID: "p-001", Kind: catalog.KindProduct, Name: "爱妃苹果",
			Category: "水果", Price: 60, Unit: "斤",
			Keywords: []string{"苹果", "进口"},
		},
		{
			ID: "p-002", Kind: catalog.KindProduct, Name: "红心火龙果",
			Category: "水果", Price: 25, Unit: "斤",
			Keywords: []string{"火龙果"},
		},
		{
			ID: "pol-001", Kind: catalog.KindPolicy, Name: "配送时间",
			Category: "配送", Section: "物流",
			Description: "每天上午9点至晚上8点配送",
			Keywords:    []string{"配送", "几点", "时间"},
		},
	}
}

func newTestEngine(t *testing.T, fake *fakeLLM) *Engine {
	t.Helper()
	cat := catalog.NewCatalog(testRecords())
	scorer := match.NewLiveTokenSetScorer(func() *segment.Segmenter {
		return cat.Index().Tokenizer()
	})
	return New(Config{
		Catalog:    cat,
		Classifier: intent.NewClassifier(),
		Matcher:    match.NewMatcher(scorer, 0.6),
		Cache: cache.NewResponseCache(cache.Config{
			Capacity:            100,
			ExactTTL:            time.Minute,
			SimilarityTTL:       time.Minute,
			SimilarityThreshold: 0.75,
			Scorer:              scorer,
		}),
		Conversations: conversation.NewStore(20),
		Assembler:     prompt.NewAssembler(5, 200),
		LLM:           fake,
	})
}

func TestChat_ProductInquiry(t *testing.T) {
	fake := &fakeLLM{answer: "爱妃苹果60元一斤。"}
	e := newTestEngine(t, fake)

	reply, err := e.Chat(context.Background(), "sess-1", "爱妃苹果多少钱")

	require.NoError(t, err)
	assert.Equal(t, "爱妃苹果60元一斤。", reply.Answer)
	assert.Equal(t, intent.IntentProduct, reply.Intent)
	assert.Equal(t, cache.HitMiss, reply.CacheHit)
	assert.False(t, reply.Fallback)
	require.NotEmpty(t, reply.Matches)
	assert.Equal(t, "p-001", reply.Matches[0].Record.ID)

	// Matched record rendered into the system prompt, price included.
	require.NotEmpty(t, fake.last)
	assert.Contains(t, fake.last[0].Content, "爱妃苹果")
	assert.Contains(t, fake.last[0].Content, "60元/斤")
}

func TestChat_ProductInquiryByKeyword(t *testing.T) {
	fake := &fakeLLM{answer: "苹果60元一斤。"}
	e := newTestEngine(t, fake)

	// The question word must not drag the match below threshold; retrieval
	// searches for 苹果, which is a keyword of p-001.
	reply, err := e.Chat(context.Background(), "sess-1", "苹果多少钱")

	require.NoError(t, err)
	assert.Equal(t, intent.IntentProduct, reply.Intent)
	require.NotEmpty(t, reply.Matches)
	assert.Equal(t, "p-001", reply.Matches[0].Record.ID)
	assert.Contains(t, fake.last[0].Content, "60元/斤")
}

func TestChat_IdenticalQueryHitsExactCache(t *testing.T) {
	fake := &fakeLLM{answer: "爱妃苹果60元一斤。"}
	e := newTestEngine(t, fake)

	_, err := e.Chat(context.Background(), "sess-1", "爱妃苹果多少钱")
	require.NoError(t, err)
	reply, err := e.Chat(context.Background(), "sess-2", "爱妃苹果多少钱")
	require.NoError(t, err)

	assert.Equal(t, cache.HitExact, reply.CacheHit)
	assert.Equal(t, "爱妃苹果60元一斤。", reply.Answer)
	assert.Equal(t, int64(1), fake.calls.Load(), "cached turn must not call the LLM")
}

func TestChat_FallbackNotCached(t *testing.T) {
	fake := &fakeLLM{err: fmt.Errorf("boom: %w", llm.ErrUnavailable)}
	e := newTestEngine(t, fake)

	reply, err := e.Chat(context.Background(), "sess-1", "爱妃苹果多少钱")
	require.NoError(t, err)
	assert.Equal(t, FallbackAnswer, reply.Answer)
	assert.True(t, reply.Fallback)

	// Gateway recovers; the same query must reach the LLM, not the cache.
	fake.err = nil
	fake.answer = "爱妃苹果60元一斤。"
	reply, err = e.Chat(context.Background(), "sess-1", "爱妃苹果多少钱")
	require.NoError(t, err)
	assert.Equal(t, cache.HitMiss, reply.CacheHit)
	assert.Equal(t, "爱妃苹果60元一斤。", reply.Answer)
	assert.Equal(t, int64(2), fake.calls.Load())
}

func TestChat_PolicyInquiry(t *testing.T) {
	fake := &fakeLLM{answer: "每天上午9点至晚上8点配送。"}
	e := newTestEngine(t, fake)

	reply, err := e.Chat(context.Background(), "sess-1", "你们几点配送")

	require.NoError(t, err)
	assert.Equal(t, intent.IntentPolicy, reply.Intent)
	require.NotEmpty(t, reply.Matches)
	assert.Equal(t, "pol-001", reply.Matches[0].Record.ID)
}

func TestChat_GeneralChatSkipsRetrieval(t *testing.T) {
	fake := &fakeLLM{answer: "您好！请问有什么可以帮您？"}
	e := newTestEngine(t, fake)

	reply, err := e.Chat(context.Background(), "sess-1", "你好")

	require.NoError(t, err)
	assert.Equal(t, intent.IntentGeneral, reply.Intent)
	assert.Empty(t, reply.Matches)
	assert.Contains(t, fake.last[0].Content, "没有检索到相关资料")
}

func TestChat_HistoryRecordedIncludingCachedTurns(t *testing.T) {
	fake := &fakeLLM{answer: "爱妃苹果60元一斤。"}
	e := newTestEngine(t, fake)

	_, err := e.Chat(context.Background(), "sess-1", "爱妃苹果多少钱")
	require.NoError(t, err)
	_, err = e.Chat(context.Background(), "sess-1", "爱妃苹果多少钱")
	require.NoError(t, err)

	// Two turns each: user message plus assistant answer.
	assert.False(t, e.ClearSession("missing"))
	assert.True(t, e.ClearSession("sess-1"))
}

func TestChat_CacheIsolatedByIntent(t *testing.T) {
	fake := &fakeLLM{answer: "answer one"}
	e := newTestEngine(t, fake)

	_, err := e.Chat(context.Background(), "sess-1", "苹果价格")
	require.NoError(t, err)

	fake.answer = "answer two"
	reply, err := e.Chat(context.Background(), "sess-1", "苹果退货")
	require.NoError(t, err)

	assert.NotEqual(t, "answer one", reply.Answer)
	assert.Equal(t, int64(2), fake.calls.Load())
}

func TestReload_SwapsIndex(t *testing.T) {
	fake := &fakeLLM{answer: "ok"}
	e := newTestEngine(t, fake)

	n := e.Reload([]*catalog.Record{
		{ID: "p-100", Kind: catalog.KindProduct, Name: "阳光玫瑰葡萄", Category: "水果", Price: 45, Unit: "斤"},
	})
	assert.Equal(t, 1, n)

	reply, err := e.Chat(context.Background(), "sess-1", "阳光玫瑰葡萄多少钱")
	require.NoError(t, err)
	require.NotEmpty(t, reply.Matches)
	assert.Equal(t, "p-100", reply.Matches[0].Record.ID)
}

func TestCacheStats(t *testing.T) {
	fake := &fakeLLM{answer: "ok"}
	e := newTestEngine(t, fake)

	_, err := e.Chat(context.Background(), "sess-1", "爱妃苹果多少钱")
	require.NoError(t, err)
	_, err = e.Chat(context.Background(), "sess-1", "爱妃苹果多少钱")
	require.NoError(t, err)

	stats := e.CacheStats()
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.ExactMatches)
	assert.Equal(t, int64(1), stats.CacheMisses)
}
