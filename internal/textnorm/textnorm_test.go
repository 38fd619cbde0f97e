package textnorm

import (
	"errors"
	"testing"

	"golang.org/x/text/unicode/norm"
)

func TestNormalizeEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		_, err := Normalize(raw)
		var iqe *InvalidQueryError
		if !errors.As(err, &iqe) {
			t.Errorf("Normalize(%q): expected InvalidQueryError, got %v", raw, err)
		}
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	res, err := Normalize("  কল্যাণীর   বাবা \t কে?  ")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Text != "কল্যাণীর বাবা কে?" {
		t.Errorf("got %q", res.Text)
	}
	if res.Language != LangBengali {
		t.Errorf("language: got %q, want bn", res.Language)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"অনুপমের বয়স কত?",
		"What is the main theme of Aparichita?",
		"কল্যাণী  কে ছিল",
		"mixed প্রশ্ন with english",
	}
	for _, in := range inputs {
		once, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		twice, err := Normalize(once.Text)
		if err != nil {
			t.Fatalf("Normalize(normalize(%q)): %v", in, err)
		}
		if once.Text != twice.Text {
			t.Errorf("not idempotent: %q -> %q -> %q", in, once.Text, twice.Text)
		}
		if once.Language != twice.Language {
			t.Errorf("detection unstable for %q: %q vs %q", in, once.Language, twice.Language)
		}
	}
}

func TestNormalizeNFC(t *testing.T) {
	// Normalized output is in NFC form regardless of input composition.
	res, err := Normalize("অনুপমের বয়স")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Text != norm.NFC.String("অনুপমের বয়স") {
		t.Errorf("output not NFC: %q", res.Text)
	}
}

func TestNormalizeCaseFolding(t *testing.T) {
	res, err := Normalize("Who Is ANUPAM?")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Text != "Who Is ANUPAM?" {
		t.Errorf("original casing not preserved: %q", res.Text)
	}
	if res.Folded != "who is anupam?" {
		t.Errorf("folded: got %q", res.Folded)
	}
	if res.Language != LangEnglish {
		t.Errorf("language: got %q, want en", res.Language)
	}
}

func TestNormalizeJoiners(t *testing.T) {
	// A loose ZWNJ between letters is dropped.
	res, err := Normalize("রবি‌ঠাকুর")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Text != "রবিঠাকুর" {
		t.Errorf("loose joiner kept: %q", res.Text)
	}

	// A ZWNJ after hasanta alters conjunct rendering and must survive.
	res, err = Normalize("র্‌য")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Text != "র্‌য" {
		t.Errorf("conjunct joiner lost: %q", res.Text)
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		text string
		want Language
	}{
		{"অনুপমের বয়স কত?", LangBengali},
		{"What is the dowry theme?", LangEnglish},
		{"Aparichita গল্পের theme কী?", LangBengali}, // Bengali share above threshold
		{"123 456", LangBengali},                     // no letters defaults to Bengali
		{"অপরিচিতা", LangBengali},
	}
	for _, tt := range tests {
		if got := Detect(tt.text); got != tt.want {
			t.Errorf("Detect(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestDetectDeterministic(t *testing.T) {
	for _, q := range []string{"অনুপম কে?", "Who is Anupam?", "থিম theme"} {
		once, _ := Normalize(q)
		twice, _ := Normalize(once.Text)
		if Detect(once.Text) != Detect(twice.Text) {
			t.Errorf("detect(normalize(q)) != detect(normalize(normalize(q))) for %q", q)
		}
	}
}

func TestQueryKey(t *testing.T) {
	res, err := Normalize("কল্যাণীর বাবা কে?")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	// "কে" is a stopword, the danda-adjacent "?" is stripped.
	if got := QueryKey(res); got != "কল্যাণীর বাবা" {
		t.Errorf("QueryKey: got %q", got)
	}

	en, _ := Normalize("What is the main theme of Aparichita?")
	if got := QueryKey(en); got != "main theme aparichita" {
		t.Errorf("QueryKey(en): got %q", got)
	}

	// Stopword-only queries fall back to the folded text.
	sw, _ := Normalize("what is the")
	if got := QueryKey(sw); got != "what is the" {
		t.Errorf("QueryKey(stopwords): got %q", got)
	}
}

func TestSentences(t *testing.T) {
	got := Sentences("প্রথম বাক্য। দ্বিতীয় বাক্য! শেষ?")
	want := []string{"প্রথম বাক্য", "দ্বিতীয় বাক্য", "শেষ"}
	if len(got) != len(want) {
		t.Fatalf("Sentences: got %d pieces, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sentences[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}
