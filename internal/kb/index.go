// Package kb holds the knowledge base index: an immutable, pre-segmented
// corpus of chunks embedded once at load time and searched by cosine
// similarity, plus a direct key index for character and word lookups.
package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/agnivade/levenshtein"
	chromem "github.com/philippgille/chromem-go"
	"github.com/sirupsen/logrus"

	"github.com/tanvirhossain/oporichita/internal/embeddings"
	"github.com/tanvirhossain/oporichita/internal/textnorm"
)

const (
	collectionName = "aparichita"
	embedBatchSize = 32

	storeFile  = "kb.gob.gz"
	chunksFile = "chunks.json"
)

var log = logrus.WithField("component", "kb")

// Index is the knowledge base: read-only after construction and safe for
// unlimited concurrent readers.
type Index struct {
	db       *chromem.DB
	col      *chromem.Collection
	embedder embeddings.Embedder

	chunks []*Chunk            // corpus order
	byID   map[string]*Chunk   //
	counts map[ContentType]int //
}

// Progress reports embedding progress during Load.
type Progress func(done, total int)

// Load builds the index from a corpus source file, embedding every chunk via
// the external embedding collaborator. Embeddings are computed exactly once
// here and cached in the vector store; they are never recomputed afterwards.
// A missing, empty, or malformed source fails with CorpusLoadError.
func Load(ctx context.Context, path string, embedder embeddings.Embedder, progress Progress) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &CorpusLoadError{Path: path, Err: err}
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &CorpusLoadError{Path: path, Err: fmt.Errorf("parsing corpus: %w", err)}
	}
	if err := validateCorpus(doc); err != nil {
		return nil, &CorpusLoadError{Path: path, Err: fmt.Errorf("corpus schema: %w", err)}
	}

	var corpus Corpus
	if err := json.Unmarshal(data, &corpus); err != nil {
		return nil, &CorpusLoadError{Path: path, Err: err}
	}

	chunks, err := corpusChunks(corpus)
	if err != nil {
		return nil, &CorpusLoadError{Path: path, Err: err}
	}
	if len(chunks) == 0 {
		return nil, &CorpusLoadError{Path: path, Err: fmt.Errorf("corpus contains no records")}
	}

	idx, err := newIndex(chunks, embedder)
	if err != nil {
		return nil, &CorpusLoadError{Path: path, Err: err}
	}

	if err := idx.embedAll(ctx, progress); err != nil {
		return nil, &CorpusLoadError{Path: path, Err: err}
	}

	log.WithField("chunks", len(chunks)).Debug("corpus loaded and embedded")
	return idx, nil
}

// corpusChunks flattens the corpus map into chunks in canonical order:
// content types in fixed order, records in file order within each type.
func corpusChunks(corpus Corpus) ([]*Chunk, error) {
	var chunks []*Chunk
	for _, ct := range ContentTypes {
		for i, rec := range corpus[ct] {
			id := rec.ID
			if id == "" {
				id = fmt.Sprintf("%s_%d", ct, i)
			}
			lang := rec.Language
			if lang == "" {
				lang = "bn"
			}
			chunks = append(chunks, &Chunk{
				ID:           id,
				Text:         rec.Text,
				ContentType:  ct,
				Language:     lang,
				Key:          textnorm.Fold(rec.Key),
				SourceOffset: rec.SourceOffset,
				Ordinal:      len(chunks),
			})
		}
	}
	return chunks, nil
}

func newIndex(chunks []*Chunk, embedder embeddings.Embedder) (*Index, error) {
	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collectionName, nil, embeddings.ToChromemFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	idx := &Index{
		db:       db,
		col:      col,
		embedder: embedder,
		chunks:   chunks,
		byID:     make(map[string]*Chunk, len(chunks)),
		counts:   make(map[ContentType]int),
	}
	for _, c := range chunks {
		if _, dup := idx.byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate chunk id %q", c.ID)
		}
		idx.byID[c.ID] = c
		idx.counts[c.ContentType]++
	}
	return idx, nil
}

// embedAll batch-embeds every chunk and stores the vectors in the collection.
func (idx *Index) embedAll(ctx context.Context, progress Progress) error {
	total := len(idx.chunks)
	done := 0

	for start := 0; start < total; start += embedBatchSize {
		end := start + embedBatchSize
		if end > total {
			end = total
		}
		batch := idx.chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vecs, err := idx.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
		}
		if len(vecs) != len(batch) {
			return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vecs), len(batch))
		}

		docs := make([]chromem.Document, len(batch))
		for i, c := range batch {
			docs[i] = chromem.Document{
				ID:        c.ID,
				Content:   c.Text,
				Embedding: embeddings.Normalize(vecs[i]),
				Metadata:  chunkMetadata(c),
			}
		}
		if err := idx.col.AddDocuments(ctx, docs, 1); err != nil {
			return fmt.Errorf("storing chunks: %w", err)
		}

		done += len(batch)
		if progress != nil {
			progress(done, total)
		}
	}
	return nil
}

func chunkMetadata(c *Chunk) map[string]string {
	return map[string]string{
		"content_type":  string(c.ContentType),
		"language":      c.Language,
		"key":           c.Key,
		"source_offset": strconv.Itoa(c.SourceOffset),
		"ordinal":       strconv.Itoa(c.Ordinal),
	}
}

// Search returns the top-k chunks by cosine similarity, optionally restricted
// to the given content types. k must be >= 1. A filtered subset smaller than
// k yields all of its chunks; an empty subset yields an empty result and no
// error. Ties are broken by original corpus order.
func (idx *Index) Search(ctx context.Context, queryVec []float32, k int, filter []ContentType) (RetrievalResult, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d", k)
	}

	candidates := len(idx.chunks)
	if len(filter) > 0 {
		candidates = 0
		for _, ct := range filter {
			candidates += idx.counts[ct]
		}
	}
	if candidates == 0 {
		return nil, nil
	}
	n := k
	if n > candidates {
		n = candidates
	}

	queryVec = embeddings.Normalize(queryVec)

	var raw []chromem.Result
	if len(filter) == 0 {
		res, err := idx.col.QueryEmbedding(ctx, queryVec, n, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("vector query: %w", err)
		}
		raw = res
	} else {
		// chromem filters on a single metadata equality, so a multi-type
		// filter queries per type and merges.
		for _, ct := range filter {
			cnt := idx.counts[ct]
			if cnt == 0 {
				continue
			}
			m := n
			if m > cnt {
				m = cnt
			}
			res, err := idx.col.QueryEmbedding(ctx, queryVec, m, map[string]string{"content_type": string(ct)}, nil)
			if err != nil {
				return nil, fmt.Errorf("vector query (%s): %w", ct, err)
			}
			raw = append(raw, res...)
		}
	}

	hits := make(RetrievalResult, 0, len(raw))
	for _, r := range raw {
		c, ok := idx.byID[r.ID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{Chunk: c, Score: clampScore(float64(r.Similarity))})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.Ordinal < hits[j].Chunk.Ordinal
	})

	if len(hits) > n {
		hits = hits[:n]
	}
	return hits, nil
}

// clampScore keeps float rounding from pushing a cosine outside [-1, 1].
func clampScore(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

// LookupByKey finds a chunk of the given content type by its lookup key,
// bypassing vector search. It prefers an exact match, then the closest
// Levenshtein match within maxDistance. Returns nil when nothing qualifies.
func (idx *Index) LookupByKey(contentType ContentType, key string, maxDistance int) *Chunk {
	needle := textnorm.Fold(key)
	if needle == "" {
		return nil
	}

	var best *Chunk
	bestDist := maxDistance + 1
	for _, c := range idx.chunks {
		if c.ContentType != contentType || c.Key == "" {
			continue
		}
		if c.Key == needle {
			return c
		}
		if d := levenshtein.ComputeDistance(needle, c.Key); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// HasKey reports whether some chunk of the given type matches key within
// maxDistance.
func (idx *Index) HasKey(contentType ContentType, key string, maxDistance int) bool {
	return idx.LookupByKey(contentType, key, maxDistance) != nil
}

// Get returns the chunk with the given id, or nil.
func (idx *Index) Get(id string) *Chunk {
	return idx.byID[id]
}

// Stats reports chunk counts by content type.
func (idx *Index) Stats() map[ContentType]int {
	out := make(map[ContentType]int, len(idx.counts))
	for ct, n := range idx.counts {
		out[ct] = n
	}
	return out
}

// Count returns the total number of chunks.
func (idx *Index) Count() int { return len(idx.chunks) }

// Persist writes the embedded vector store and the chunk table to dir, so a
// later Open can skip re-embedding the corpus.
func (idx *Index) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	if err := idx.db.ExportToFile(filepath.Join(dir, storeFile), true, ""); err != nil {
		return fmt.Errorf("exporting vector store: %w", err)
	}

	data, err := json.Marshal(idx.chunks)
	if err != nil {
		return fmt.Errorf("marshalling chunk table: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, chunksFile), data, 0o644); err != nil {
		return fmt.Errorf("writing chunk table: %w", err)
	}
	return nil
}

// Open restores a previously persisted index from dir without touching the
// embedding collaborator. Fails with CorpusLoadError if the persisted store
// is missing or inconsistent with the chunk table.
func Open(dir string, embedder embeddings.Embedder) (*Index, error) {
	chunkPath := filepath.Join(dir, chunksFile)
	data, err := os.ReadFile(chunkPath)
	if err != nil {
		return nil, &CorpusLoadError{Path: chunkPath, Err: err}
	}

	var chunks []*Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, &CorpusLoadError{Path: chunkPath, Err: fmt.Errorf("parsing chunk table: %w", err)}
	}
	if len(chunks) == 0 {
		return nil, &CorpusLoadError{Path: chunkPath, Err: fmt.Errorf("chunk table is empty")}
	}

	idx, err := newIndex(chunks, embedder)
	if err != nil {
		return nil, &CorpusLoadError{Path: chunkPath, Err: err}
	}

	storePath := filepath.Join(dir, storeFile)
	if err := idx.db.ImportFromFile(storePath, ""); err != nil {
		return nil, &CorpusLoadError{Path: storePath, Err: fmt.Errorf("importing vector store: %w", err)}
	}
	col := idx.db.GetCollection(collectionName, embeddings.ToChromemFunc(embedder))
	if col == nil {
		return nil, &CorpusLoadError{Path: storePath, Err: fmt.Errorf("collection %q not found in store", collectionName)}
	}
	idx.col = col

	if got := col.Count(); got != len(chunks) {
		return nil, &CorpusLoadError{Path: storePath, Err: fmt.Errorf("store has %d documents, chunk table has %d", got, len(chunks))}
	}

	log.WithField("chunks", len(chunks)).Debug("persisted index opened")
	return idx, nil
}
