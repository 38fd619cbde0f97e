package kb

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tanvirhossain/oporichita/internal/textnorm"
)

// SourceDocument is the organized study-material JSON that the corpus is
// built from: the story text in sections, character sketches, question/answer
// pairs, and a vocabulary list.
type SourceDocument struct {
	StorySections []StorySection    `json:"story_sections"`
	Characters    map[string]string `json:"characters"`
	QA            []QAPair          `json:"qa"`
	WordMeanings  map[string]string `json:"word_meanings"`
}

// StorySection is one titled section of the story text.
type StorySection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// QAPair is one question with its model answer.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// BuildCorpus converts a source document into the corpus format the index
// loads: story sections are split into overlapping chunks on sentence
// boundaries, everything else maps one record per entry.
func BuildCorpus(src SourceDocument, chunkSize, chunkOverlap int) (Corpus, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive")
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be non-negative and smaller than chunk size")
	}

	corpus := Corpus{}

	var story []Record
	for _, sec := range src.StorySections {
		for _, piece := range chunkSentences(sec.Content, chunkSize, chunkOverlap) {
			text := piece.text
			if sec.Title != "" {
				text = sec.Title + ": " + text
			}
			story = append(story, Record{
				ID:           fmt.Sprintf("story_%d", len(story)),
				Text:         text,
				SourceOffset: piece.offset,
			})
		}
	}
	corpus[TypeStory] = story

	var characters []Record
	for _, name := range sortedKeys(src.Characters) {
		characters = append(characters, Record{
			ID:   fmt.Sprintf("character_%d", len(characters)),
			Text: fmt.Sprintf("চরিত্র: %s। %s", name, src.Characters[name]),
			Key:  name,
		})
	}
	corpus[TypeCharacter] = characters

	var qa []Record
	for i, pair := range src.QA {
		qa = append(qa, Record{
			ID:   fmt.Sprintf("qa_%d", i),
			Text: fmt.Sprintf("প্রশ্ন: %s উত্তর: %s", pair.Question, pair.Answer),
		})
	}
	corpus[TypeQA] = qa

	var words []Record
	for _, word := range sortedKeys(src.WordMeanings) {
		words = append(words, Record{
			ID:   fmt.Sprintf("word_meaning_%d", len(words)),
			Text: fmt.Sprintf("শব্দ: %s অর্থ: %s", word, src.WordMeanings[word]),
			Key:  word,
		})
	}
	corpus[TypeWordMeaning] = words

	return corpus, nil
}

// Ingest reads a source document, builds the corpus, and writes it to
// outPath as the JSON file the index loads.
func Ingest(srcPath, outPath string, chunkSize, chunkOverlap int) (int, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return 0, fmt.Errorf("reading source %s: %w", srcPath, err)
	}

	var src SourceDocument
	if err := json.Unmarshal(data, &src); err != nil {
		return 0, fmt.Errorf("parsing source %s: %w", srcPath, err)
	}

	corpus, err := BuildCorpus(src, chunkSize, chunkOverlap)
	if err != nil {
		return 0, err
	}

	out, err := json.MarshalIndent(corpus, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshalling corpus: %w", err)
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return 0, fmt.Errorf("writing corpus %s: %w", outPath, err)
	}

	total := 0
	for _, recs := range corpus {
		total += len(recs)
	}
	return total, nil
}

type sentenceChunk struct {
	text   string
	offset int
}

// chunkSentences packs sentences into chunks of at most chunkSize runes,
// carrying roughly chunkOverlap trailing runes into the next chunk so that
// no sentence is ever cut in half.
func chunkSentences(content string, chunkSize, chunkOverlap int) []sentenceChunk {
	sentences := textnorm.Sentences(content)
	if len(sentences) == 0 {
		return nil
	}

	type positioned struct {
		text   string
		offset int
	}
	pos := make([]positioned, len(sentences))
	offset := 0
	for i, s := range sentences {
		pos[i] = positioned{text: s, offset: offset}
		offset += len([]rune(s)) + 1 // +1 for the terminator
	}

	var out []sentenceChunk
	start := 0
	for start < len(pos) {
		var b strings.Builder
		size := 0
		end := start
		for end < len(pos) {
			sl := len([]rune(pos[end].text))
			if size > 0 && size+sl+1 > chunkSize {
				break
			}
			if size > 0 {
				b.WriteString(" ")
				size++
			}
			b.WriteString(pos[end].text)
			b.WriteString("।")
			size += sl + 1
			end++
		}
		if end == start { // single oversized sentence, keep it whole
			b.WriteString(pos[start].text)
			b.WriteString("।")
			end = start + 1
		}
		out = append(out, sentenceChunk{text: b.String(), offset: pos[start].offset})

		if end >= len(pos) {
			break
		}
		// Step back over trailing sentences that fit in the overlap window.
		next := end
		carried := 0
		for next > start+1 {
			sl := len([]rune(pos[next-1].text)) + 1
			if carried+sl > chunkOverlap {
				break
			}
			carried += sl
			next--
		}
		start = next
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
