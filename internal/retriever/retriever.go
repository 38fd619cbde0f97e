// Package retriever selects the corpus chunks most relevant to a normalized
// query. It answers exact character and word lookups without touching the
// vector store, and biases similarity ranking with long-term access counts.
package retriever

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tanvirhossain/oporichita/internal/embeddings"
	"github.com/tanvirhossain/oporichita/internal/kb"
	"github.com/tanvirhossain/oporichita/internal/memory"
	"github.com/tanvirhossain/oporichita/internal/textnorm"
)

var log = logrus.WithField("component", "retriever")

// RetrievalError reports a failure while producing candidates for a query.
// The session layer degrades to lookup-only answering when it sees one.
type RetrievalError struct {
	Stage string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed during %s: %v", e.Stage, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// Options tunes a Retriever. Zero values fall back to defaults.
type Options struct {
	// K is the maximum number of chunks returned by vector search.
	K int
	// BoostCap limits the access-frequency boost to this fraction of the
	// base similarity score.
	BoostCap float64
	// LookupMaxDistance is the Levenshtein tolerance for direct lookups.
	LookupMaxDistance int
}

func (o *Options) fill() {
	if o.K < 1 {
		o.K = 5
	}
	if o.BoostCap <= 0 {
		o.BoostCap = 0.10
	}
	if o.LookupMaxDistance < 0 {
		o.LookupMaxDistance = 0
	}
}

// Result is the outcome of one retrieval.
type Result struct {
	// Hits is the ranked candidate list. For a direct lookup it is a
	// singleton with score 1.0.
	Hits kb.RetrievalResult
	// Direct is true when the query resolved as an exact character or
	// word-meaning lookup and vector search was skipped.
	Direct bool
	// QueryKey is the stopword-stripped pattern recorded in long-term stats.
	QueryKey string
}

// Retriever runs lookups and vector search over one knowledge base.
type Retriever struct {
	index    *kb.Index
	embedder embeddings.Embedder
	stats    *memory.LongTermStats
	opts     Options
}

// New creates a Retriever. stats may not be nil; callers without persistence
// pass memory.NewLongTermStats().
func New(index *kb.Index, embedder embeddings.Embedder, stats *memory.LongTermStats, opts Options) *Retriever {
	opts.fill()
	return &Retriever{index: index, embedder: embedder, stats: stats, opts: opts}
}

// englishHonorifics are leading tokens dropped before the direct-lookup
// check, so "who is Anupam" and "Anupam" resolve the same way.
var englishHonorifics = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true,
	"sri": true, "shri": true, "babu": true,
}

// maxEntityQuestionTokens bounds the short-question shape that still
// qualifies for a direct lookup, e.g. "অনুপমের বয়স কত" after stopword
// stripping.
const maxEntityQuestionTokens = 3

// Retrieve produces ranked candidates for a normalized query. Every returned
// chunk has its access counter incremented, and the query pattern is
// recorded, so repeated questions gradually bias future rankings.
func (r *Retriever) Retrieve(ctx context.Context, q textnorm.Result) (*Result, error) {
	key := textnorm.QueryKey(q)

	if chunk := r.directLookup(q, key); chunk != nil {
		log.WithField("chunk", chunk.ID).Debug("direct lookup hit")
		r.record(key, kb.RetrievalResult{{Chunk: chunk, Score: 1.0}})
		return &Result{
			Hits:     kb.RetrievalResult{{Chunk: chunk, Score: 1.0}},
			Direct:   true,
			QueryKey: key,
		}, nil
	}

	vecs, err := r.embedder.Embed(ctx, []string{q.Text})
	if err != nil {
		return nil, &RetrievalError{Stage: "embedding", Err: err}
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, &RetrievalError{Stage: "embedding", Err: fmt.Errorf("embedder returned no vector")}
	}

	hits, err := r.index.Search(ctx, embeddings.Normalize(vecs[0]), r.opts.K, nil)
	if err != nil {
		return nil, &RetrievalError{Stage: "search", Err: err}
	}

	hits = r.boost(hits)
	r.record(key, hits)

	return &Result{Hits: hits, QueryKey: key}, nil
}

// directLookup checks whether the query names a character or vocabulary word
// outright. A bare name qualifies, and so does a short question whose content
// tokens include one. The Levenshtein tolerance lets inflected forms match,
// so the genitive "অনুপমের" resolves to the "অনুপম" entry.
func (r *Retriever) directLookup(q textnorm.Result, key string) *kb.Chunk {
	tokens := strings.Fields(key)
	if q.Language == textnorm.LangEnglish {
		for len(tokens) > 1 && englishHonorifics[tokens[0]] {
			tokens = tokens[1:]
		}
	}
	if len(tokens) == 0 || len(tokens) > maxEntityQuestionTokens {
		return nil
	}

	for _, ct := range []kb.ContentType{kb.TypeCharacter, kb.TypeWordMeaning} {
		for _, tok := range tokens {
			if c := r.index.LookupByKey(ct, textnorm.Fold(tok), r.opts.LookupMaxDistance); c != nil {
				return c
			}
		}
	}
	return nil
}

// boost reranks hits by adding an access-frequency bonus capped at BoostCap
// of the base score. Frequencies are log-scaled against the current maximum,
// so a handful of repeat queries cannot swamp semantic similarity. The
// re-sort is stable: equal boosted scores keep corpus order.
func (r *Retriever) boost(hits kb.RetrievalResult) kb.RetrievalResult {
	maxAccess := r.stats.MaxAccessCount()
	if maxAccess == 0 {
		return hits
	}
	denom := math.Log1p(float64(maxAccess))

	boosted := make(kb.RetrievalResult, len(hits))
	for i, h := range hits {
		bonus := 0.0
		if n := r.stats.AccessCount(h.Chunk.ID); n > 0 && h.Score > 0 {
			bonus = r.opts.BoostCap * h.Score * math.Log1p(float64(n)) / denom
		}
		boosted[i] = kb.Hit{Chunk: h.Chunk, Score: h.Score + bonus}
	}
	sort.SliceStable(boosted, func(i, j int) bool {
		if boosted[i].Score != boosted[j].Score {
			return boosted[i].Score > boosted[j].Score
		}
		return boosted[i].Chunk.Ordinal < boosted[j].Chunk.Ordinal
	})
	return boosted
}

func (r *Retriever) record(key string, hits kb.RetrievalResult) {
	r.stats.RecordQueryPattern(key)
	for _, h := range hits {
		r.stats.RecordAccess(h.Chunk.ID)
	}
}
