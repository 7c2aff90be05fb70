// Package engine orchestrates the chat pipeline: tokenize, classify, check
// the response cache, retrieve catalog context, call the LLM, record the
// conversation.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/shoptalk/ai/cache"
	"github.com/hrygo/shoptalk/ai/catalog"
	"github.com/hrygo/shoptalk/ai/conversation"
	"github.com/hrygo/shoptalk/ai/intent"
	"github.com/hrygo/shoptalk/ai/llm"
	"github.com/hrygo/shoptalk/ai/match"
	"github.com/hrygo/shoptalk/ai/metrics"
	"github.com/hrygo/shoptalk/ai/prompt"
)

// FallbackAnswer is returned whenever the LLM gateway is unavailable. It is
// never written to the response cache.
const FallbackAnswer = "抱歉，系统暂时繁忙，请稍后再试。"

// Reply is the outcome of one chat turn.
type Reply struct {
	Answer     string         `json:"answer"`
	Intent     intent.Intent  `json:"intent"`
	Confidence float64        `json:"confidence"`
	CacheHit   cache.HitKind  `json:"cache_hit"`
	Matches    []match.Result `json:"-"`
	Fallback   bool           `json:"fallback"`
	LatencyMs  int64          `json:"latency_ms"`
}

// Engine wires the pipeline stages together. All stages are injected so
// tests can substitute fakes, in particular the LLM service.
type Engine struct {
	catalog       *catalog.Catalog
	classifier    *intent.Classifier
	matcher       *match.Matcher
	cache         *cache.ResponseCache
	conversations *conversation.Store
	assembler     *prompt.Assembler
	llm           llm.Service
	exporter      *metrics.PrometheusExporter
}

// Config bundles the engine's collaborators.
type Config struct {
	Catalog       *catalog.Catalog
	Classifier    *intent.Classifier
	Matcher       *match.Matcher
	Cache         *cache.ResponseCache
	Conversations *conversation.Store
	Assembler     *prompt.Assembler
	LLM           llm.Service
	Exporter      *metrics.PrometheusExporter
}

// New creates an engine.
func New(cfg Config) *Engine {
	return &Engine{
		catalog:       cfg.Catalog,
		classifier:    cfg.Classifier,
		matcher:       cfg.Matcher,
		cache:         cfg.Cache,
		conversations: cfg.Conversations,
		assembler:     cfg.Assembler,
		llm:           cfg.LLM,
		exporter:      cfg.Exporter,
	}
}

// Chat runs one turn of the pipeline for the session. Every turn, cached or
// not, is appended to the conversation history.
func (e *Engine) Chat(ctx context.Context, sessionID, message string) (*Reply, error) {
	start := time.Now()

	idx := e.catalog.Index()
	tokens := idx.Tokenizer().Tokenize(message)
	it, confidence := e.classifier.Classify(tokens)

	if entry, hit := e.cache.Get(message, it); hit != cache.HitMiss {
		e.record(it, hit, false, start)
		e.remember(sessionID, message, entry.Answer)
		return &Reply{
			Answer:     entry.Answer,
			Intent:     it,
			Confidence: confidence,
			CacheHit:   hit,
			LatencyMs:  time.Since(start).Milliseconds(),
		}, nil
	}

	matches := e.retrieve(idx, tokens, it)
	payload := e.assembler.Assemble(it, matches, e.conversations.History(sessionID), message)

	answer, err := e.llm.Chat(ctx, payload.Messages)
	fallback := false
	if err != nil {
		// Any gateway failure degrades to the canned answer. It must not
		// enter the cache: the next identical query should retry the LLM.
		slog.Warn("chat falling back", "session", sessionID, "intent", it, "error", err)
		answer = FallbackAnswer
		fallback = true
	} else {
		e.cache.Put(message, it, answer)
	}

	e.record(it, cache.HitMiss, fallback, start)
	e.remember(sessionID, message, answer)

	return &Reply{
		Answer:     answer,
		Intent:     it,
		Confidence: confidence,
		CacheHit:   cache.HitMiss,
		Matches:    matches,
		Fallback:   fallback,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// retrieve narrows candidates by exact token lookup first, widening to every
// record of the intent's kinds when the lookup finds nothing, then fuzzy
// ranks. General chat skips retrieval entirely.
//
// Product queries are matched on content tokens only: "苹果多少钱" should
// search for 苹果, not 多少钱. Policy queries keep their signal words, since
// policy sections are named by exactly those words (配送, 退货).
func (e *Engine) retrieve(idx *catalog.Index, tokens []string, it intent.Intent) []match.Result {
	if it == intent.IntentGeneral {
		return nil
	}
	kinds := intent.Kinds(it)

	queryTokens := e.classifier.FilterStopwords(tokens)
	if it == intent.IntentProduct {
		if content := e.classifier.ContentTokens(tokens); len(content) > 0 {
			queryTokens = content
		}
	}
	if len(queryTokens) == 0 {
		queryTokens = tokens
	}

	candidates := filterKinds(idx.LookupExact(queryTokens), kinds)
	if len(candidates) == 0 {
		for _, k := range kinds {
			candidates = append(candidates, idx.RecordsOfKind(k)...)
		}
	}

	return e.matcher.Match(strings.Join(queryTokens, " "), candidates, intent.PreferredKind(it))
}

// ClearSession drops a session's history. Returns true if it existed.
func (e *Engine) ClearSession(sessionID string) bool {
	return e.conversations.Clear(sessionID)
}

// CacheStats exposes the response cache counters.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.GetStats()
}

// Reload swaps in a freshly built catalog index.
func (e *Engine) Reload(records []*catalog.Record) int {
	idx := e.catalog.Reload(records)
	if e.exporter != nil {
		e.exporter.RecordCatalogReload(map[string]int{
			string(catalog.KindProduct): len(idx.RecordsOfKind(catalog.KindProduct)),
			string(catalog.KindPolicy):  len(idx.RecordsOfKind(catalog.KindPolicy)),
		})
	}
	slog.Info("catalog reloaded", "records", idx.Size())
	return idx.Size()
}

func (e *Engine) remember(sessionID, userText, assistantText string) {
	e.conversations.Append(sessionID, conversation.RoleUser, userText)
	e.conversations.Append(sessionID, conversation.RoleAssistant, assistantText)
}

func (e *Engine) record(it intent.Intent, hit cache.HitKind, fallback bool, start time.Time) {
	if e.exporter == nil {
		return
	}
	e.exporter.RecordChatRequest(string(it), string(hit), time.Since(start))
	e.exporter.RecordCacheLookup(string(hit))
	if fallback {
		e.exporter.RecordFallback()
	}
}

func filterKinds(records []*catalog.Record, kinds []catalog.Kind) []*catalog.Record {
	allowed := make(map[catalog.Kind]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}
	out := records[:0:0]
	for _, r := range records {
		if allowed[r.Kind] {
			out = append(out, r)
		}
	}
	return out
}
