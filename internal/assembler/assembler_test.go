package assembler

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tanvirhossain/oporichita/internal/kb"
	"github.com/tanvirhossain/oporichita/internal/memory"
	"github.com/tanvirhossain/oporichita/internal/textnorm"
)

func chunk(id string, ct kb.ContentType, text string) *kb.Chunk {
	return &kb.Chunk{ID: id, Text: text, ContentType: ct}
}

func testHits() kb.RetrievalResult {
	return kb.RetrievalResult{
		{Chunk: chunk("qa_0", kb.TypeQA, "প্রশ্ন: গল্পের মূল বিষয়বস্তু কী? উত্তর: যৌতুক প্রথার বিরুদ্ধে প্রতিবাদ।"), Score: 0.9},
		{Chunk: chunk("story_0", kb.TypeStory, "বিবাহসভায় যৌতুকের গহনা লইয়া বিরোধ বাধিল।"), Score: 0.7},
		{Chunk: chunk("story_1", kb.TypeStory, "রেলগাড়িতে অনুপমের সহিত কল্যাণীর আবার দেখা হইল।"), Score: 0.5},
	}
}

func testTurns(n int) []memory.ConversationTurn {
	turns := make([]memory.ConversationTurn, n)
	for i := range turns {
		turns[i] = memory.ConversationTurn{
			Query:     fmt.Sprintf("প্রশ্ন %d", i+1),
			Language:  textnorm.LangBengali,
			Answer:    fmt.Sprintf("উত্তর %d", i+1),
			Timestamp: time.Now(),
		}
	}
	return turns
}

func TestAssembleWithinBudget(t *testing.T) {
	a, err := New(2048, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, err := a.Assemble(nil, testTurns(5), testHits())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if ctx.TokenCount > 2048 {
		t.Errorf("token count %d exceeds budget", ctx.TokenCount)
	}
	if ctx.Truncated {
		t.Error("generous budget should not truncate")
	}

	// All three hits fit.
	ids := ctx.ChunkIDs()
	if len(ids) != 3 {
		t.Fatalf("chunk ids: got %v", ids)
	}
	// Chunks render in rank order.
	if ids[0] != "qa_0" || ids[1] != "story_0" || ids[2] != "story_1" {
		t.Errorf("render order: got %v", ids)
	}

	// Only the last 3 of 5 turns appear.
	rendered := ctx.Render()
	if strings.Contains(rendered, "প্রশ্ন 2") {
		t.Error("turn outside the recent window included")
	}
	if !strings.Contains(rendered, "প্রশ্ন 5") || !strings.Contains(rendered, "প্রশ্ন 3") {
		t.Error("recent turns missing")
	}
}

func TestAssembleDirectFirst(t *testing.T) {
	a, err := New(2048, 3)
	if err != nil {
		t.Fatal(err)
	}

	direct := chunk("character_0", kb.TypeCharacter, "চরিত্র: অনুপম। বয়স ২৭ বছর।")
	ctx, err := a.Assemble(direct, testTurns(2), testHits())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if len(ctx.Segments) == 0 || ctx.Segments[0].Kind != KindDirect {
		t.Fatalf("direct segment not first: %+v", ctx.Segments)
	}
	if !strings.HasPrefix(ctx.Segments[0].Text, "চরিত্র তথ্য:") {
		t.Errorf("direct label: %q", ctx.Segments[0].Text)
	}
}

func TestAssembleDirectNotDuplicated(t *testing.T) {
	a, err := New(2048, 3)
	if err != nil {
		t.Fatal(err)
	}

	hits := testHits()
	direct := hits[0].Chunk
	ctx, err := a.Assemble(direct, nil, hits)
	if err != nil {
		t.Fatal(err)
	}

	seen := 0
	for _, id := range ctx.ChunkIDs() {
		if id == direct.ID {
			seen++
		}
	}
	if seen != 1 {
		t.Errorf("direct chunk appears %d times", seen)
	}
}

func TestAssemblePriorityDrop(t *testing.T) {
	// A budget that fits the direct segment and little else. Lower-priority
	// chunks must be dropped wholesale, never truncated.
	a, err := New(40, 3)
	if err != nil {
		t.Fatal(err)
	}

	direct := chunk("word_meaning_0", kb.TypeWordMeaning, "শব্দ: গজানন অর্থ: গণেশ।")
	ctx, err := a.Assemble(direct, testTurns(3), testHits())
	if err != nil {
		t.Fatal(err)
	}

	if ctx.TokenCount > 40 {
		t.Errorf("token count %d exceeds budget 40", ctx.TokenCount)
	}
	if len(ctx.Segments) == 0 || ctx.Segments[0].Kind != KindDirect {
		t.Fatal("direct segment missing under tight budget")
	}
	for _, s := range ctx.Segments[1:] {
		if s.Truncated {
			t.Error("lower-priority segment truncated instead of dropped")
		}
	}
}

func TestAssembleTruncatesOversizedHead(t *testing.T) {
	a, err := New(10, 3)
	if err != nil {
		t.Fatal(err)
	}

	long := chunk("character_0", kb.TypeCharacter,
		strings.Repeat("অনুপমের মামা তাহার ভাগ্য দেবতার প্রধান এজেন্ট ছিলেন। ", 20))
	ctx, err := a.Assemble(long, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	if !ctx.Truncated {
		t.Fatal("expected truncation flag")
	}
	if ctx.TokenCount > 10 {
		t.Errorf("token count %d exceeds budget 10", ctx.TokenCount)
	}
	if len(ctx.Segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(ctx.Segments))
	}
	full := renderChunk(long)
	got := ctx.Segments[0].Text
	if !strings.HasPrefix(full, got) {
		t.Error("truncated text is not a prefix of the original")
	}
	// The cut must land on a rune boundary at minimum.
	if !strings.HasSuffix(got, string([]rune(got)[len([]rune(got))-1:])) {
		t.Error("truncation split a rune")
	}
}

func TestAssembleMonotoneUnderRemoval(t *testing.T) {
	a, err := New(120, 3)
	if err != nil {
		t.Fatal(err)
	}

	direct := chunk("character_0", kb.TypeCharacter, "চরিত্র: অনুপম। বয়স ২৭ বছর।")
	full, err := a.Assemble(direct, testTurns(3), testHits())
	if err != nil {
		t.Fatal(err)
	}

	// Removing the highest-priority segment can only free budget: every
	// chunk packed before stays packed.
	reduced, err := a.Assemble(nil, testTurns(3), testHits())
	if err != nil {
		t.Fatal(err)
	}

	before := make(map[string]bool)
	for _, id := range full.ChunkIDs() {
		if id != direct.ID {
			before[id] = true
		}
	}
	after := make(map[string]bool)
	for _, id := range reduced.ChunkIDs() {
		after[id] = true
	}
	for id := range before {
		if !after[id] {
			t.Errorf("chunk %s lost after removing a higher-priority segment", id)
		}
	}
}

func TestAssembleEmpty(t *testing.T) {
	a, err := New(100, 3)
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := a.Assemble(nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(ctx.Segments) != 0 || ctx.TokenCount != 0 || ctx.Render() != "" {
		t.Errorf("empty assemble: %+v", ctx)
	}
}

func TestNewRejectsBadBudget(t *testing.T) {
	if _, err := New(0, 3); err == nil {
		t.Error("expected error for zero budget")
	}
}
