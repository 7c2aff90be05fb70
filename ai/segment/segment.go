// Package segment splits mixed Chinese/English queries into normalized tokens.
package segment

import (
	"strings"
	"unicode"
)

// Segmenter tokenizes free text. ASCII runs are split on whitespace and
// punctuation; contiguous CJK runs are segmented against a word dictionary
// using forward longest match. A Segmenter is immutable after construction
// and safe for concurrent use.
type Segmenter struct {
	words      map[string]struct{}
	maxWordLen int
}

// NewSegmenter creates a segmenter from the built-in dictionary plus any
// extra words (typically catalog vocabulary: names, categories, keywords).
func NewSegmenter(extra ...string) *Segmenter {
	s := &Segmenter{
		words:      make(map[string]struct{}, len(builtinWords)+len(extra)),
		maxWordLen: 1,
	}
	for _, w := range builtinWords {
		s.addWord(w)
	}
	for _, w := range extra {
		s.addWord(w)
	}
	return s
}

func (s *Segmenter) addWord(w string) {
	w = strings.ToLower(strings.TrimSpace(w))
	if w == "" {
		return
	}
	s.words[w] = struct{}{}
	if n := len([]rune(w)); n > s.maxWordLen {
		s.maxWordLen = n
	}
}

// Tokenize splits text into an ordered sequence of lowercased tokens.
// It never fails: scripts the dictionary does not cover degrade to
// character-grouped tokens instead of erroring. Non-CJK letter runs
// (Latin, Cyrillic, Greek, accented characters) stay whole words.
func (s *Segmenter) Tokenize(text string) []string {
	var tokens []string
	var word []rune
	var cjk []rune

	flushWord := func() {
		if len(word) > 0 {
			tokens = append(tokens, strings.ToLower(string(word)))
			word = word[:0]
		}
	}
	flushCJK := func() {
		if len(cjk) > 0 {
			tokens = append(tokens, s.segmentRun(cjk)...)
			cjk = cjk[:0]
		}
	}

	for _, r := range text {
		switch {
		case isCJK(r):
			flushWord()
			cjk = append(cjk, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushCJK()
			word = append(word, r)
		default:
			// Whitespace, punctuation, symbols: token boundary.
			flushWord()
			flushCJK()
		}
	}
	flushWord()
	flushCJK()
	return tokens
}

// segmentRun segments a contiguous CJK run with forward longest match.
// Runs of characters not covered by the dictionary are grouped together
// rather than emitted character by character.
func (s *Segmenter) segmentRun(run []rune) []string {
	var tokens []string
	var unknown []rune

	flushUnknown := func() {
		if len(unknown) > 0 {
			tokens = append(tokens, string(unknown))
			unknown = unknown[:0]
		}
	}

	i := 0
	for i < len(run) {
		matched := 0
		limit := s.maxWordLen
		if rest := len(run) - i; rest < limit {
			limit = rest
		}
		for n := limit; n >= 2; n-- {
			if _, ok := s.words[string(run[i:i+n])]; ok {
				matched = n
				break
			}
		}
		if matched == 0 {
			if _, ok := s.words[string(run[i:i+1])]; ok {
				matched = 1
			}
		}
		if matched > 0 {
			flushUnknown()
			tokens = append(tokens, string(run[i:i+matched]))
			i += matched
			continue
		}
		unknown = append(unknown, run[i])
		i++
	}
	flushUnknown()
	return tokens
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
