// Package textnorm canonicalizes query text and detects whether it is
// written in Bengali or English. Normalization is a pure function: no side
// effects, deterministic, and idempotent.
package textnorm

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Language is a detected query language.
type Language string

const (
	LangBengali Language = "bn"
	LangEnglish Language = "en"
)

// bengaliThreshold is the fraction of alphabetic runes that must fall in the
// Bengali Unicode block for a query to classify as Bengali. Tunable in
// principle, but the corpus is Bengali-first so the default is deliberately low.
const bengaliThreshold = 0.3

const (
	hasanta = '্' // Bengali virama, joins conjunct clusters
	zwnj    = '‌'
	zwj     = '‍'
)

// InvalidQueryError reports an empty or otherwise unusable query.
type InvalidQueryError struct {
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query: %s", e.Reason)
}

// Result is the output of Normalize.
type Result struct {
	// Text is the canonicalized query with original casing preserved.
	Text string
	// Folded is Text case-folded for matching. Identical to Text for Bengali,
	// which has no case.
	Folded string
	// Language is the detected query language.
	Language Language
}

// Normalize canonicalizes a raw query string and detects its language.
// It applies Unicode NFC composition, collapses whitespace runs, trims, and
// drops zero-width joiners that sit outside a conjunct cluster. Bengali
// grapheme clusters are never split: NFC only composes, and ZWJ/ZWNJ are
// kept whenever they follow a hasanta.
func Normalize(raw string) (Result, error) {
	if strings.TrimSpace(raw) == "" {
		return Result{}, &InvalidQueryError{Reason: "empty query"}
	}

	text := norm.NFC.String(raw)
	text = stripLooseJoiners(text)
	text = collapseWhitespace(text)

	if text == "" {
		return Result{}, &InvalidQueryError{Reason: "query contains no usable characters"}
	}

	return Result{
		Text:     text,
		Folded:   strings.ToLower(text),
		Language: Detect(text),
	}, nil
}

// Detect classifies text as Bengali or English by the share of alphabetic
// runes in the Bengali block. Queries without alphabetic content default to
// Bengali, the corpus's primary language.
func Detect(text string) Language {
	var letters, bengali int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if isBengali(r) {
			bengali++
		}
	}
	if letters == 0 {
		return LangBengali
	}
	if float64(bengali)/float64(letters) > bengaliThreshold {
		return LangBengali
	}
	return LangEnglish
}

// Fold canonicalizes a lookup key: NFC, case-folded, single-spaced. Unlike
// Normalize it accepts empty input, returning "".
func Fold(s string) string {
	return strings.ToLower(collapseWhitespace(norm.NFC.String(s)))
}

func isBengali(r rune) bool {
	return r >= 0x0980 && r <= 0x09FF
}

// stripLooseJoiners removes ZWJ/ZWNJ runes that do not follow a hasanta.
// A joiner after a hasanta changes how the conjunct renders and must stay.
func stripLooseJoiners(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prev := rune(-1)
	for _, r := range s {
		if (r == zwj || r == zwnj) && prev != hasanta {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
