package textnorm

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// bengaliStopwords are common function words stripped when building a
// query-pattern key, so that variants of the same question bucket together.
// Keys are NFC-normalized at init so they compare equal to normalized query
// tokens (NFC decomposes the nukta letters ড়, ঢ়, য়).
var bengaliStopwords = map[string]bool{}

var bengaliStopwordList = []string{
	"এবং", "বা", "কিন্তু", "তবে", "যদি", "তাহলে", "কারণ", "যেহেতু",
	"অথচ", "তথাপি", "সুতরাং", "অতএব", "কিংবা", "অথবা", "না", "নয়",
	"আর", "ও", "এর", "এই", "সেই", "ওই", "যে", "যা", "যার", "যাকে",
	"যাদের", "কে", "কী", "কোন", "কোথায়", "কখন", "কেন", "কীভাবে",
}

func init() {
	for _, w := range bengaliStopwordList {
		bengaliStopwords[norm.NFC.String(w)] = true
	}
}

var englishStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "of": true, "in": true, "on": true, "to": true, "for": true,
	"and": true, "or": true, "but": true, "what": true, "who": true,
	"where": true, "when": true, "why": true, "how": true, "does": true,
	"do": true, "did": true, "about": true, "tell": true, "me": true,
}

// QueryKey derives the coarse bucket key used by the long-term query-pattern
// histogram: folded text with punctuation and stopwords removed. Distinct
// phrasings of the same question tend to collapse into one bucket.
func QueryKey(res Result) string {
	var kept []string
	for _, w := range strings.Fields(res.Folded) {
		w = strings.TrimFunc(w, isQueryPunct)
		if w == "" {
			continue
		}
		if bengaliStopwords[w] || englishStopwords[w] {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return res.Folded
	}
	return strings.Join(kept, " ")
}

func isQueryPunct(r rune) bool {
	switch r {
	case '।', ',', ';', ':', '!', '?', '(', ')', '[', ']', '{', '}', '"', '\'', '-', '.':
		return true
	}
	return false
}

// Sentences splits text on Bengali and Latin sentence terminators, trimming
// each piece and dropping empties. Used by corpus ingestion to keep chunk
// boundaries on sentence edges.
func Sentences(text string) []string {
	var out []string
	var cur strings.Builder
	for _, r := range text {
		switch r {
		case '।', '!', '?':
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, s)
			}
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}
