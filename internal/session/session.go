package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tanvirhossain/oporichita/internal/kb"
	"github.com/tanvirhossain/oporichita/internal/llm"
	"github.com/tanvirhossain/oporichita/internal/memory"
	"github.com/tanvirhossain/oporichita/internal/retriever"
	"github.com/tanvirhossain/oporichita/internal/textnorm"
)

// DegradedKind classifies why an answer fell back from the full pipeline.
type DegradedKind string

const (
	DegradedInvalidQuery DegradedKind = "invalid_query"
	DegradedRetrieval    DegradedKind = "retrieval"
	DegradedAssembly     DegradedKind = "assembly"
	DegradedGeneration   DegradedKind = "generation"
)

// Answer is the result of one query. Degraded answers are explicitly
// labeled; the text never silently pretends to be generated prose when it
// is not.
type Answer struct {
	Text      string            `json:"text"`
	Language  textnorm.Language `json:"language"`
	SessionID string            `json:"session_id"`
	// ChunkIDs lists the corpus chunks behind the answer, rank order.
	ChunkIDs []string `json:"chunk_ids,omitempty"`
	// Direct marks an exact character or word lookup.
	Direct    bool         `json:"direct,omitempty"`
	Degraded  bool         `json:"degraded,omitempty"`
	Kind      DegradedKind `json:"degraded_kind,omitempty"`
	Truncated bool         `json:"truncated,omitempty"`
}

// Session is one conversation. Queries are answered strictly in submission
// order: each depends on the prior turn's memory, so a mutex serializes Ask.
type Session struct {
	ID string

	engine *Engine

	mu         sync.Mutex
	shortTerm  *memory.ShortTerm
	lastActive time.Time
}

// NewSession creates a Session with an empty conversation buffer.
func (e *Engine) NewSession() *Session {
	return &Session{
		ID:         uuid.New().String(),
		engine:     e,
		shortTerm:  memory.NewShortTerm(e.cfg.ShortTermMemorySize),
		lastActive: time.Now(),
	}
}

// LastActive reports when the session last answered a query. Used by the
// HTTP layer to evict idle sessions.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// TurnCount returns the number of turns currently in short-term memory.
func (s *Session) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shortTerm.Len()
}

// SessionReport is the per-conversation stats surface: the session's own
// short-term state plus the shared long-term counters.
type SessionReport struct {
	SessionID          string `json:"session_id"`
	ShortTermTurnCount int    `json:"short_term_turn_count"`
	Report
}

// Report returns the session's statistics.
func (s *Session) Report() SessionReport {
	return SessionReport{
		SessionID:          s.ID,
		ShortTermTurnCount: s.TurnCount(),
		Report:             s.engine.Report(),
	}
}

// Ask answers one query. Failures degrade per stage instead of propagating:
// an invalid query asks for clarification, a retrieval failure reports
// nothing found, an assembly or generation failure returns the retrieved
// context as a labeled excerpt tagged with the failing stage. The session
// stays usable after any of them. A turn is recorded in short-term memory
// only when generation succeeds.
func (s *Session) Ask(ctx context.Context, raw string) *Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()

	slog := log.WithField("session", s.ID)

	q, err := textnorm.Normalize(raw)
	if err != nil {
		var iqe *textnorm.InvalidQueryError
		if errors.As(err, &iqe) {
			slog.WithError(err).Debug("invalid query")
			return s.degraded(textnorm.Detect(raw), DegradedInvalidQuery, clarificationMessage(textnorm.Detect(raw)))
		}
		return s.degraded(textnorm.LangBengali, DegradedInvalidQuery, clarificationMessage(textnorm.LangBengali))
	}

	res, err := s.engine.retriever.Retrieve(ctx, q)
	if err != nil {
		var re *retriever.RetrievalError
		if errors.As(err, &re) {
			slog.WithError(err).Warn("retrieval failed")
		} else {
			slog.WithError(err).Error("unexpected retrieval failure")
		}
		return s.degraded(q.Language, DegradedRetrieval, notFoundMessage(q.Language))
	}
	if len(res.Hits) == 0 {
		return s.degraded(q.Language, DegradedRetrieval, notFoundMessage(q.Language))
	}

	var direct *kb.Chunk
	hits := res.Hits
	if res.Direct {
		direct = res.Hits[0].Chunk
		hits = nil
	}

	pctx, err := s.engine.assembler.Assemble(direct, s.shortTerm.Recent(s.shortTerm.Capacity()), hits)
	if err != nil {
		slog.WithError(err).Error("context assembly failed")
		return s.degradedExcerpt(q.Language, DegradedAssembly, rawExcerpt(res.Hits), res)
	}

	genCtx := ctx
	if timeout := s.engine.cfg.GenerationTimeoutSeconds; timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}

	resp, err := s.engine.provider.Complete(genCtx, llm.CompletionRequest{
		Messages: llm.BuildMessages(q.Language, q.Text, pctx.Render()),
	})
	if err != nil {
		slog.WithError(err).Warn("generation failed, returning context excerpt")
		return s.degradedExcerpt(q.Language, DegradedGeneration, pctx.Render(), res)
	}

	s.shortTerm.Append(memory.ConversationTurn{
		Query:      q.Text,
		Language:   q.Language,
		ContextRef: strings.Join(pctx.ChunkIDs(), ","),
		Answer:     resp.Content,
		Timestamp:  time.Now(),
	})

	return &Answer{
		Text:      resp.Content,
		Language:  q.Language,
		SessionID: s.ID,
		ChunkIDs:  pctx.ChunkIDs(),
		Direct:    res.Direct,
		Truncated: pctx.Truncated,
	}
}

func (s *Session) degraded(lang textnorm.Language, kind DegradedKind, text string) *Answer {
	return &Answer{
		Text:      text,
		Language:  lang,
		SessionID: s.ID,
		Degraded:  true,
		Kind:      kind,
	}
}

// degradedExcerpt labels the retrieved context and returns it in place of
// generated prose, tagged with the stage that failed. Retrieval accesses are
// already recorded; no conversation turn is appended.
func (s *Session) degradedExcerpt(lang textnorm.Language, kind DegradedKind, excerpt string, res *retriever.Result) *Answer {
	a := s.degraded(lang, kind, excerptMessage(lang)+"\n\n"+excerpt)
	a.ChunkIDs = res.Hits.IDs()
	a.Direct = res.Direct
	return a
}

func rawExcerpt(hits kb.RetrievalResult) string {
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = h.Chunk.Text
	}
	return strings.Join(parts, "\n\n")
}

func clarificationMessage(lang textnorm.Language) string {
	if lang == textnorm.LangEnglish {
		return "Please ask a question about the story অপরিচিতা, for example about a character, a word meaning, or the plot."
	}
	return "অনুগ্রহ করে অপরিচিতা গল্প সম্পর্কে একটি প্রশ্ন করুন, যেমন কোনো চরিত্র, শব্দার্থ বা কাহিনী নিয়ে।"
}

func notFoundMessage(lang textnorm.Language) string {
	if lang == textnorm.LangEnglish {
		return "Sorry, nothing matching this question was found in the corpus."
	}
	return "দুঃখিত, জ্ঞানভান্ডারে এই প্রশ্নের সঙ্গে মেলে এমন কিছু পাওয়া যায়নি।"
}

func excerptMessage(lang textnorm.Language) string {
	if lang == textnorm.LangEnglish {
		return "The answer could not be generated. Relevant passages from the corpus are shown instead:"
	}
	return "উত্তর তৈরি করা যায়নি। পরিবর্তে জ্ঞানভান্ডারের প্রাসঙ্গিক অংশ দেখানো হলো:"
}
