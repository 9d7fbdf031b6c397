// Package search provides a simple, deterministic, concurrency-safe in-memory
// keyword index over the exercise library. It is intentionally small and
// dependency-free:
//
//   - No logging in the library (callers decide how/what to log)
//   - Unicode-aware tokenization with optional stop-word removal
//   - Immutable, read-only index after construction (safe for concurrent use)
//   - Deterministic scoring and sorting (stable order for ties)
//
// Scoring uses Jaccard similarity between the query token set and each
// document's token set: score = |Q ∩ D| / |Q ∪ D|.
package search

import (
	"regexp"
	"sort"
	"strings"
)

// Doc is one indexable exercise: its id plus the searchable text fields.
type Doc struct {
	ID       string
	Title    string
	Text     string // description, category, step texts, joined
}

// Result is a ranked document with its similarity score.
type Result struct {
	ID    string
	Title string
	Score float64
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	TopK(query string, k int) []Result
}

// Option configures index construction.
type Option func(*config)

type config struct {
	stopwords map[string]struct{}
}

// WithStopwords removes the given words from both documents and queries.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

type indexedDoc struct {
	id     string
	title  string
	tokens map[string]struct{}
	tLen   int
}

type index struct {
	cfg  config
	docs []indexedDoc
}

// NewIndex builds an immutable Index from the given documents. Documents
// whose searchable text yields no tokens are skipped.
func NewIndex(docs []Doc, opts ...Option) Index {
	cfg := config{}
	for _, o := range opts {
		o(&cfg)
	}

	out := make([]indexedDoc, 0, len(docs))
	for _, d := range docs {
		toks := tokenize(d.Title+" "+d.Text, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		out = append(out, indexedDoc{id: d.ID, title: d.Title, tokens: toks, tLen: len(toks)})
	}
	return &index{cfg: cfg, docs: out}
}

// TopK returns up to k best-matching documents by Jaccard similarity.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 10
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	buf := make([]Result, 0, len(i.docs))
	for _, d := range i.docs {
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(qLen + d.tLen - over)
		if union <= 0 {
			continue
		}
		buf = append(buf, Result{ID: d.id, Title: d.title, Score: float64(over) / union})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].Score != buf[b].Score {
			return buf[a].Score > buf[b].Score
		}
		if buf[a].Title != buf[b].Title {
			return buf[a].Title < buf[b].Title
		}
		return buf[a].ID < buf[b].ID
	})

	if k > len(buf) {
		k = len(buf)
	}
	return buf[:k]
}

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(strings.ToLower(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
