package kb

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildCorpus(t *testing.T) {
	src := SourceDocument{
		StorySections: []StorySection{
			{Title: "প্রথম পরিচ্ছেদ", Content: "আজ আমার বয়স সাতাশ মাত্র। এ জীবনটা দৈর্ঘ্যের হিসাবে বড়ো নয়।"},
		},
		Characters: map[string]string{
			"অনুপম":   "বয়স ২৭ বছর, মামার উপর নির্ভরশীল।",
			"কল্যাণী": "শম্ভুনাথ সেনের কন্যা।",
		},
		QA: []QAPair{
			{Question: "গল্পের কথক কে?", Answer: "অনুপম।"},
		},
		WordMeanings: map[string]string{
			"গজানন": "গণেশ।",
		},
	}

	corpus, err := BuildCorpus(src, 200, 40)
	if err != nil {
		t.Fatalf("BuildCorpus: %v", err)
	}

	if len(corpus[TypeStory]) == 0 {
		t.Error("no story chunks")
	}
	if len(corpus[TypeCharacter]) != 2 {
		t.Errorf("characters: got %d, want 2", len(corpus[TypeCharacter]))
	}
	if len(corpus[TypeQA]) != 1 {
		t.Errorf("qa: got %d, want 1", len(corpus[TypeQA]))
	}
	if len(corpus[TypeWordMeaning]) != 1 {
		t.Errorf("word meanings: got %d, want 1", len(corpus[TypeWordMeaning]))
	}

	// Character records carry their lookup key.
	for _, rec := range corpus[TypeCharacter] {
		if rec.Key == "" {
			t.Errorf("character record %s has no key", rec.ID)
		}
	}

	// Map-driven types are emitted in deterministic order.
	again, _ := BuildCorpus(src, 200, 40)
	for i, rec := range corpus[TypeCharacter] {
		if again[TypeCharacter][i].Key != rec.Key {
			t.Errorf("character order not deterministic at %d", i)
		}
	}
}

func TestBuildCorpusValidation(t *testing.T) {
	if _, err := BuildCorpus(SourceDocument{}, 0, 0); err == nil {
		t.Error("expected error for zero chunk size")
	}
	if _, err := BuildCorpus(SourceDocument{}, 100, 100); err == nil {
		t.Error("expected error for overlap >= chunk size")
	}
}

func TestChunkSentences(t *testing.T) {
	content := "প্রথম বাক্য এখানে। দ্বিতীয় বাক্য একটু লম্বা হইল। তৃতীয় বাক্য। চতুর্থ বাক্য শেষ করে।"
	chunks := chunkSentences(content, 40, 15)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if got := len([]rune(c.text)); got > 40+1 {
			t.Errorf("chunk %d has %d runes, budget 40", i, got)
		}
		if i > 0 && c.offset <= chunks[i-1].offset {
			t.Errorf("offsets not increasing: %d then %d", chunks[i-1].offset, c.offset)
		}
	}
}

func TestChunkSentencesOversized(t *testing.T) {
	// A single sentence longer than the chunk size is kept whole.
	long := "এই বাক্যটি ইচ্ছা করিয়া অনেক লম্বা করা হইয়াছে যাহাতে ইহা একা একটি খণ্ড হয়।"
	chunks := chunkSentences(long, 10, 2)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
}

func TestIngestRoundTrip(t *testing.T) {
	dir := t.TempDir()

	src := SourceDocument{
		StorySections: []StorySection{{Title: "অংশ", Content: "ছোট গল্প। আরেক বাক্য।"}},
		Characters:    map[string]string{"অনুপম": "কথক।"},
	}
	data, err := json.Marshal(src)
	if err != nil {
		t.Fatal(err)
	}
	srcPath := filepath.Join(dir, "source.json")
	if err := os.WriteFile(srcPath, data, 0o644); err != nil {
		t.Fatal(err)
	}

	outPath := filepath.Join(dir, "corpus.json")
	n, err := Ingest(srcPath, outPath, 500, 100)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if n == 0 {
		t.Fatal("Ingest wrote zero records")
	}

	// The produced corpus must pass the loader's schema and load cleanly.
	idx, err := Load(context.Background(), outPath, newMockEmbedder(32), nil)
	if err != nil {
		t.Fatalf("Load of ingested corpus: %v", err)
	}
	if idx.Count() != n {
		t.Errorf("index has %d chunks, ingest reported %d", idx.Count(), n)
	}
}
