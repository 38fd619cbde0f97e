// Package assembler packs retrieved knowledge and recent conversation into a
// prompt context bounded by a token budget. Packing is by priority: a direct
// lookup answer outranks conversation history, which outranks similarity
// hits. The first segment that does not fit ends the packing; nothing of
// lower priority is skipped ahead.
package assembler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rivo/uniseg"
	"github.com/tiktoken-go/tokenizer"

	"github.com/tanvirhossain/oporichita/internal/kb"
	"github.com/tanvirhossain/oporichita/internal/memory"
)

// Kind tags what a segment carries.
type Kind string

const (
	KindDirect Kind = "direct"
	KindTurn   Kind = "turn"
	KindChunk  Kind = "chunk"
)

// Segment is one packed piece of prompt context.
type Segment struct {
	Kind Kind
	// Text is the rendered segment including its label.
	Text string
	// Ref is the chunk id for direct and chunk segments, empty for turns.
	Ref string
	// Tokens is the segment's token count as packed.
	Tokens int
	// Truncated marks a segment cut at a grapheme boundary to fit the
	// budget. Only ever set on the single highest-priority segment.
	Truncated bool
}

// PromptContext is the assembled context in render order: direct lookup
// first, then retrieved chunks by rank, then conversation turns oldest
// first.
type PromptContext struct {
	Segments   []Segment
	TokenCount int
	Truncated  bool
}

// Render joins the segments into the context block handed to the model.
func (p *PromptContext) Render() string {
	parts := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, "\n\n")
}

// ChunkIDs returns the ids of every corpus chunk included in the context.
func (p *PromptContext) ChunkIDs() []string {
	var ids []string
	for _, s := range p.Segments {
		if s.Ref != "" {
			ids = append(ids, s.Ref)
		}
	}
	return ids
}

// Assembler packs prompt contexts under a fixed token budget.
type Assembler struct {
	codec       tokenizer.Codec
	budget      int
	recentTurns int
}

// New creates an Assembler counting tokens with the cl100k_base encoding.
func New(tokenBudget, recentTurns int) (*Assembler, error) {
	if tokenBudget < 1 {
		return nil, fmt.Errorf("token budget must be positive, got %d", tokenBudget)
	}
	if recentTurns < 0 {
		recentTurns = 0
	}
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer: %w", err)
	}
	return &Assembler{codec: codec, budget: tokenBudget, recentTurns: recentTurns}, nil
}

// candidate is a segment awaiting packing, ordered by priority.
type candidate struct {
	seg Segment
	// order positions the segment in the final render: direct, chunks by
	// rank, then turns chronologically.
	order int
}

// Assemble packs a context from an optional direct-lookup chunk, the
// session's recent turns, and ranked retrieval hits. Turns are considered
// most recent first, bounded by the configured window. If even the single
// highest-priority segment overflows the budget, it is included truncated at
// a grapheme boundary rather than dropped, so the context is never empty
// when there is anything to say.
func (a *Assembler) Assemble(direct *kb.Chunk, turns []memory.ConversationTurn, hits kb.RetrievalResult) (*PromptContext, error) {
	candidates := a.collect(direct, turns, hits)
	if len(candidates) == 0 {
		return &PromptContext{}, nil
	}

	var packed []candidate
	remaining := a.budget
	for i, c := range candidates {
		n, err := a.count(c.seg.Text)
		if err != nil {
			return nil, fmt.Errorf("counting tokens: %w", err)
		}
		if n > remaining {
			if i == 0 {
				seg, tokens, err := a.truncate(c.seg, remaining)
				if err != nil {
					return nil, err
				}
				packed = append(packed, candidate{seg: seg, order: c.order})
				remaining -= tokens
			}
			break
		}
		c.seg.Tokens = n
		packed = append(packed, c)
		remaining -= n
	}

	sort.SliceStable(packed, func(i, j int) bool { return packed[i].order < packed[j].order })

	ctx := &PromptContext{TokenCount: a.budget - remaining}
	for _, c := range packed {
		ctx.Segments = append(ctx.Segments, c.seg)
		if c.seg.Truncated {
			ctx.Truncated = true
		}
	}
	return ctx, nil
}

// collect renders all potential segments in packing priority order and
// assigns each its render position.
func (a *Assembler) collect(direct *kb.Chunk, turns []memory.ConversationTurn, hits kb.RetrievalResult) []candidate {
	var out []candidate

	const (
		orderDirect = 0
		orderChunks = 1000
		orderTurns  = 2000
	)

	if direct != nil {
		out = append(out, candidate{
			seg:   Segment{Kind: KindDirect, Text: renderChunk(direct), Ref: direct.ID},
			order: orderDirect,
		})
	}

	window := turns
	if len(window) > a.recentTurns {
		window = window[len(window)-a.recentTurns:]
	}
	// Pack most recent first; render chronologically.
	for i := len(window) - 1; i >= 0; i-- {
		t := window[i]
		out = append(out, candidate{
			seg: Segment{
				Kind: KindTurn,
				Text: fmt.Sprintf("পূর্ববর্তী প্রশ্ন: %s\nপূর্ববর্তী উত্তর: %s", t.Query, t.Answer),
			},
			order: orderTurns + i,
		})
	}

	for i, h := range hits {
		if direct != nil && h.Chunk.ID == direct.ID {
			continue
		}
		out = append(out, candidate{
			seg:   Segment{Kind: KindChunk, Text: renderChunk(h.Chunk), Ref: h.Chunk.ID},
			order: orderChunks + i,
		})
	}
	return out
}

// renderChunk labels a chunk for the prompt. Character, qa and word-meaning
// texts already carry their labels from ingestion; story passages get one.
func renderChunk(c *kb.Chunk) string {
	switch c.ContentType {
	case kb.TypeStory:
		return "গল্পাংশ: " + c.Text
	case kb.TypeCharacter:
		return "চরিত্র তথ্য: " + c.Text
	default:
		return c.Text
	}
}

func (a *Assembler) count(text string) (int, error) {
	return a.codec.Count(text)
}

// truncate cuts a segment to at most budget tokens at a grapheme boundary.
// Binary search over grapheme prefixes finds the longest fit; token counts
// are monotone in prefix length for cl100k_base.
func (a *Assembler) truncate(seg Segment, budget int) (Segment, int, error) {
	offsets := graphemeOffsets(seg.Text)

	lo, hi := 0, len(offsets)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		n, err := a.count(seg.Text[:offsets[mid]])
		if err != nil {
			return Segment{}, 0, fmt.Errorf("counting tokens: %w", err)
		}
		if n <= budget {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	seg.Text = seg.Text[:offsets[lo]]
	seg.Truncated = true
	tokens, err := a.count(seg.Text)
	if err != nil {
		return Segment{}, 0, fmt.Errorf("counting tokens: %w", err)
	}
	seg.Tokens = tokens
	return seg, tokens, nil
}

// graphemeOffsets returns every grapheme-cluster boundary of s as a byte
// offset, including 0 and len(s).
func graphemeOffsets(s string) []int {
	offsets := []int{0}
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		_, end := g.Positions()
		offsets = append(offsets, end)
	}
	return offsets
}
