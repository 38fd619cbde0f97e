package kb

import "fmt"

// ContentType categorizes the kind of chunk stored in the knowledge base.
// The set is closed: filtering is a membership test on this tag.
type ContentType string

const (
	TypeStory       ContentType = "story"
	TypeCharacter   ContentType = "character"
	TypeQA          ContentType = "qa"
	TypeWordMeaning ContentType = "word_meaning"
)

// ContentTypes lists every content type in canonical corpus order.
var ContentTypes = []ContentType{TypeStory, TypeCharacter, TypeQA, TypeWordMeaning}

// Chunk is a segmented, independently retrievable unit of corpus text.
// Chunks are immutable after load; the embedding lives in the vector store
// keyed by ID.
type Chunk struct {
	ID          string      `json:"id"`
	Text        string      `json:"text"`
	ContentType ContentType `json:"content_type"`
	Language    string      `json:"language"`
	// Key is the lookup key for character and word_meaning chunks: the
	// character's name or the word itself, NFC-normalized and case-folded.
	Key string `json:"key,omitempty"`
	// SourceOffset is the rune offset of this chunk in its source section.
	SourceOffset int `json:"source_offset"`
	// Ordinal is the chunk's position in original corpus order, used for
	// stable tie-breaking when similarity scores are equal.
	Ordinal int `json:"ordinal"`
}

// Hit pairs a chunk with its similarity score.
type Hit struct {
	Chunk *Chunk
	Score float64
}

// RetrievalResult is an ordered list of hits, descending by score, ties
// broken by corpus order.
type RetrievalResult []Hit

// IDs returns the chunk ids of the result in rank order.
func (r RetrievalResult) IDs() []string {
	ids := make([]string, len(r))
	for i, h := range r {
		ids[i] = h.Chunk.ID
	}
	return ids
}

// CorpusLoadError reports a fatal failure to construct the knowledge base.
type CorpusLoadError struct {
	Path string
	Err  error
}

func (e *CorpusLoadError) Error() string {
	return fmt.Sprintf("loading corpus %s: %v", e.Path, e.Err)
}

func (e *CorpusLoadError) Unwrap() error { return e.Err }

// Record is one entry of the corpus source file.
type Record struct {
	ID           string `json:"id,omitempty"`
	Text         string `json:"text"`
	Language     string `json:"language,omitempty"`
	Key          string `json:"key,omitempty"`
	SourceOffset int    `json:"source_offset,omitempty"`
}

// Corpus is the on-disk knowledge-base source: content type to records.
type Corpus map[ContentType][]Record
