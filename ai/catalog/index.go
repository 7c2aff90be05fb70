package catalog

import (
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/hrygo/shoptalk/ai/segment"
)

// Index is a query-time-built inverted index over catalog records.
// It is read-only after construction; concurrent readers need no locking.
type Index struct {
	records []*Record
	byToken map[string][]*Record
	byKind  map[Kind][]*Record
	seg     *segment.Segmenter
}

// BuildIndex constructs an index from the full record set. The catalog
// vocabulary (names, categories, keywords) is folded into the segmenter
// dictionary so product names segment as whole words.
func BuildIndex(records []*Record) *Index {
	vocab := collectVocabulary(records)
	seg := segment.NewSegmenter(vocab...)

	idx := &Index{
		records: records,
		byToken: make(map[string][]*Record),
		byKind:  make(map[Kind][]*Record),
		seg:     seg,
	}
	for _, r := range records {
		idx.byKind[r.Kind] = append(idx.byKind[r.Kind], r)
		seen := make(map[string]bool)
		for _, tok := range seg.Tokenize(r.SearchText()) {
			if seen[tok] {
				continue
			}
			seen[tok] = true
			idx.byToken[tok] = append(idx.byToken[tok], r)
		}
	}
	slog.Debug("catalog index built",
		"records", len(records),
		"tokens", len(idx.byToken),
	)
	return idx
}

// Tokenizer returns the segmenter carrying this index's vocabulary.
func (idx *Index) Tokenizer() *segment.Segmenter {
	return idx.seg
}

// LookupExact returns the records whose searchable text contains any of the
// given tokens. Result order is stable: sorted by record ID.
func (idx *Index) LookupExact(tokens []string) []*Record {
	seen := make(map[string]*Record)
	for _, tok := range tokens {
		for _, r := range idx.byToken[tok] {
			seen[r.ID] = r
		}
	}
	out := make([]*Record, 0, len(seen))
	for _, r := range seen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RecordsOfKind returns all records of the given kind.
func (idx *Index) RecordsOfKind(kind Kind) []*Record {
	return idx.byKind[kind]
}

// Size returns the number of indexed records.
func (idx *Index) Size() int {
	return len(idx.records)
}

func collectVocabulary(records []*Record) []string {
	var vocab []string
	for _, r := range records {
		vocab = append(vocab, r.Name, r.Category)
		vocab = append(vocab, r.Keywords...)
	}
	return vocab
}

// Catalog owns the current index and supports atomic refresh: a new index is
// built off to the side and swapped in, so in-flight queries always see one
// consistent snapshot.
type Catalog struct {
	current atomic.Pointer[Index]
}

// NewCatalog builds a catalog from an initial record set.
func NewCatalog(records []*Record) *Catalog {
	c := &Catalog{}
	c.current.Store(BuildIndex(records))
	return c
}

// Index returns the current immutable index snapshot.
func (c *Catalog) Index() *Index {
	return c.current.Load()
}

// Reload builds a fresh index from the given records and swaps it in.
func (c *Catalog) Reload(records []*Record) *Index {
	idx := BuildIndex(records)
	c.current.Store(idx)
	slog.Info("catalog reloaded", "records", idx.Size())
	return idx
}
