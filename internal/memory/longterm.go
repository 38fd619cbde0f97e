package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

var log = logrus.WithField("component", "memory")

// PersistError reports a failure to persist long-term statistics. It is
// never fatal: the in-memory counters keep working regardless.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persisting long-term stats (%s): %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// KeyCount is one entry of a usage ranking.
type KeyCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Snapshot is a read-only copy of the long-term counters.
type Snapshot struct {
	Access   map[string]int64
	Patterns map[string]int64
}

// LongTermStats tracks chunk access counts and query-pattern frequencies
// across all sessions. Counters are monotonically non-decreasing and never
// reset during the process lifetime. All methods are safe for concurrent
// use; a single mutex guards both maps so increments are never lost.
type LongTermStats struct {
	mu       sync.Mutex
	access   map[string]int64
	patterns map[string]int64
	db       *sql.DB
}

// NewLongTermStats creates in-memory stats with no durability.
func NewLongTermStats() *LongTermStats {
	return &LongTermStats{
		access:   make(map[string]int64),
		patterns: make(map[string]int64),
	}
}

// OpenLongTermStats creates stats backed by a SQLite database at path,
// restoring previously persisted counters. Persistence is best effort: on
// any failure the returned stats still work in memory and the error is a
// PersistError for the caller to log.
func OpenLongTermStats(path string) (*LongTermStats, error) {
	s := NewLongTermStats()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return s, &PersistError{Op: "mkdir", Err: err}
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return s, &PersistError{Op: "open", Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return s, &PersistError{Op: "open", Err: err}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return s, &PersistError{Op: "migrate", Err: err}
	}

	if err := restore(db, s); err != nil {
		db.Close()
		return s, &PersistError{Op: "restore", Err: err}
	}

	s.db = db
	return s, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS chunk_access (
			chunk_id TEXT PRIMARY KEY,
			count    INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS query_patterns (
			pattern TEXT PRIMARY KEY,
			count   INTEGER NOT NULL
		);
	`)
	return err
}

func restore(db *sql.DB, s *LongTermStats) error {
	rows, err := db.Query(`SELECT chunk_id, count FROM chunk_access`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return err
		}
		s.access[id] = n
	}
	if err := rows.Err(); err != nil {
		return err
	}

	prows, err := db.Query(`SELECT pattern, count FROM query_patterns`)
	if err != nil {
		return err
	}
	defer prows.Close()
	for prows.Next() {
		var p string
		var n int64
		if err := prows.Scan(&p, &n); err != nil {
			return err
		}
		s.patterns[p] = n
	}
	return prows.Err()
}

// RecordAccess increments the access counter for a chunk.
func (s *LongTermStats) RecordAccess(chunkID string) {
	s.mu.Lock()
	s.access[chunkID]++
	s.mu.Unlock()
}

// RecordQueryPattern increments the histogram bucket for a query key.
func (s *LongTermStats) RecordQueryPattern(key string) {
	if key == "" {
		return
	}
	s.mu.Lock()
	s.patterns[key]++
	s.mu.Unlock()
}

// AccessCount returns the current access counter for a chunk.
func (s *LongTermStats) AccessCount(chunkID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access[chunkID]
}

// MaxAccessCount returns the largest access counter across all chunks.
func (s *LongTermStats) MaxAccessCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var max int64
	for _, n := range s.access {
		if n > max {
			max = n
		}
	}
	return max
}

// TotalAccesses returns the sum of all access counters.
func (s *LongTermStats) TotalAccesses() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, n := range s.access {
		total += n
	}
	return total
}

// GetStats returns a read-only copy of both counter maps.
func (s *LongTermStats) GetStats() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Access:   make(map[string]int64, len(s.access)),
		Patterns: make(map[string]int64, len(s.patterns)),
	}
	for k, v := range s.access {
		snap.Access[k] = v
	}
	for k, v := range s.patterns {
		snap.Patterns[k] = v
	}
	return snap
}

// TopAccessed returns the n most accessed chunks, count descending, key
// ascending on ties.
func (s *LongTermStats) TopAccessed(n int) []KeyCount {
	snap := s.GetStats()
	return topN(snap.Access, n)
}

// TopPatterns returns the n most frequent query patterns.
func (s *LongTermStats) TopPatterns(n int) []KeyCount {
	snap := s.GetStats()
	return topN(snap.Patterns, n)
}

func topN(m map[string]int64, n int) []KeyCount {
	out := make([]KeyCount, 0, len(m))
	for k, v := range m {
		out = append(out, KeyCount{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Flush writes the current counters to the backing database. Counters are
// monotonic, so overwriting is always safe. No-op without a database.
func (s *LongTermStats) Flush(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	snap := s.GetStats()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &PersistError{Op: "flush", Err: err}
	}
	defer tx.Rollback()

	for id, n := range snap.Access {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunk_access (chunk_id, count) VALUES (?, ?)
			 ON CONFLICT(chunk_id) DO UPDATE SET count = excluded.count`,
			id, n,
		); err != nil {
			return &PersistError{Op: "flush", Err: err}
		}
	}
	for p, n := range snap.Patterns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO query_patterns (pattern, count) VALUES (?, ?)
			 ON CONFLICT(pattern) DO UPDATE SET count = excluded.count`,
			p, n,
		); err != nil {
			return &PersistError{Op: "flush", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &PersistError{Op: "flush", Err: err}
	}
	return nil
}

// Close flushes and releases the backing database, if any. Flush failures
// are logged, not returned: losing a flush loses statistics, never answers.
func (s *LongTermStats) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if err := s.Flush(ctx); err != nil {
		log.WithError(err).Warn("final stats flush failed")
	}
	err := s.db.Close()
	s.db = nil
	return err
}
