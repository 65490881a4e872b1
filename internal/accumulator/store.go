// Package accumulator implements the append-only JSONL-backed insight
// queue the Insight Digest Responder (C7) flushes on a schedule.
package accumulator

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/openclaw/openclaw/internal/signals"
)

const (
	lineTypeInsight = "insight"
	lineTypeDequeue = "dequeue"
	lineTypeFlush   = "flush"
	lineTypeClear   = "clear"
)

// line is the on-disk tagged-union record shape.
type line struct {
	Type string         `json:"type"`
	Data *insightRecord `json:"data,omitempty"`
	IDs  []string       `json:"ids,omitempty"`
	At   int64          `json:"at,omitempty"`
}

// insightRecord is the JSON wire shape for a signals.QueuedInsight.
type insightRecord struct {
	ID             string                `json:"id"`
	QueuedAt       int64                 `json:"queuedAt"`
	SourceSignalID string                `json:"sourceSignalId"`
	SourcePath     string                `json:"sourcePath"`
	Topic          string                `json:"topic"`
	Pillar         *string               `json:"pillar,omitempty"`
	Hook           string                `json:"hook"`
	Excerpt        string                `json:"excerpt"`
	Scores         signals.InsightScores `json:"scores"`
	Formats        []string              `json:"formats"`
}

func toRecord(i signals.QueuedInsight) insightRecord {
	return insightRecord{
		ID: i.ID, QueuedAt: i.QueuedAt, SourceSignalID: i.SourceSignalID,
		SourcePath: i.SourcePath, Topic: i.Topic, Pillar: i.Pillar,
		Hook: i.Hook, Excerpt: i.Excerpt, Scores: i.Scores, Formats: i.Formats,
	}
}

func fromRecord(r insightRecord) signals.QueuedInsight {
	return signals.QueuedInsight{
		ID: r.ID, QueuedAt: r.QueuedAt, SourceSignalID: r.SourceSignalID,
		SourcePath: r.SourcePath, Topic: r.Topic, Pillar: r.Pillar,
		Hook: r.Hook, Excerpt: r.Excerpt, Scores: r.Scores, Formats: r.Formats,
	}
}

// Store is one append-only JSONL accumulator file. Each mutating
// operation appends exactly one line; reads replay the file from the
// beginning. Callers must not run two Store instances against the
// same path concurrently.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger

	loaded      bool
	lastFlushAt int64
}

// New creates a Store backed by the JSONL file at path. The directory
// is created lazily on first write, not at construction time.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{path: path, logger: logger}
}

// Enqueue appends an insight record.
func (s *Store) Enqueue(insight signals.QueuedInsight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.append(line{Type: lineTypeInsight, Data: ptr(toRecord(insight))})
}

func ptr[T any](v T) *T { return &v }

// Dequeue appends a dequeue record listing ids. A no-op if ids is
// empty.
func (s *Store) Dequeue(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.append(line{Type: lineTypeDequeue, IDs: ids})
}

// RecordFlush appends a flush record stamped at now and updates the
// cached lastFlushAt.
func (s *Store) RecordFlush(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := now.UnixMilli()
	if err := s.append(line{Type: lineTypeFlush, At: ts}); err != nil {
		return err
	}
	s.lastFlushAt = ts
	s.loaded = true
	return nil
}

// Clear appends a clear record and resets the cached lastFlushAt to 0.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.append(line{Type: lineTypeClear}); err != nil {
		return err
	}
	s.lastFlushAt = 0
	s.loaded = true
	return nil
}

// GetQueue replays the file and returns every insight that was ever
// enqueued and not later subsumed by a same-id enqueue, listed in any
// subsequent dequeue, or preceded by a clear. Results are ordered by
// QueuedAt ascending.
func (s *Store) GetQueue() ([]signals.QueuedInsight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	insights, order, lastFlushAt, err := s.replay()
	if err != nil {
		return nil, err
	}
	if !s.loaded {
		s.lastFlushAt = lastFlushAt
		s.loaded = true
	}

	out := make([]signals.QueuedInsight, 0, len(order))
	for _, id := range order {
		if ins, ok := insights[id]; ok {
			out = append(out, ins)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].QueuedAt < out[j].QueuedAt })
	return out, nil
}

// GetSettled returns the subset of GetQueue() whose age at now is at
// least cooldown.
func (s *Store) GetSettled(now time.Time, cooldown time.Duration) ([]signals.QueuedInsight, error) {
	queue, err := s.GetQueue()
	if err != nil {
		return nil, err
	}
	cutoff := now.Add(-cooldown).UnixMilli()
	var settled []signals.QueuedInsight
	for _, ins := range queue {
		if ins.QueuedAt <= cutoff {
			settled = append(settled, ins)
		}
	}
	return settled, nil
}

// LastFlushAt returns the cached last-flush timestamp (milliseconds
// since epoch), loading it from disk on first use.
func (s *Store) LastFlushAt() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.lastFlushAt, nil
	}
	_, _, lastFlushAt, err := s.replay()
	if err != nil {
		return 0, err
	}
	s.lastFlushAt = lastFlushAt
	s.loaded = true
	return s.lastFlushAt, nil
}

// replay reads the file from the beginning and reconstructs the
// insight map, insertion order, and last flush timestamp. Malformed
// lines are skipped and logged at debug level. A missing file is
// treated as an empty queue. Must be called with s.mu held.
func (s *Store) replay() (map[string]signals.QueuedInsight, []string, int64, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return map[string]signals.QueuedInsight{}, nil, 0, nil
	}
	if err != nil {
		return nil, nil, 0, fmt.Errorf("accumulator: open %s: %w", s.path, err)
	}
	defer f.Close()

	insights := make(map[string]signals.QueuedInsight)
	var order []string
	var lastFlushAt int64

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var l line
		if err := json.Unmarshal(raw, &l); err != nil {
			s.logger.Debug("accumulator: skipping malformed line", "path", s.path, "line", lineNum, "error", err)
			continue
		}

		switch l.Type {
		case lineTypeInsight:
			if l.Data == nil {
				continue
			}
			id := l.Data.ID
			if _, exists := insights[id]; !exists {
				order = append(order, id)
			}
			insights[id] = fromRecord(*l.Data)
		case lineTypeDequeue:
			for _, id := range l.IDs {
				if _, ok := insights[id]; ok {
					delete(insights, id)
					order = removeID(order, id)
				}
			}
		case lineTypeFlush:
			lastFlushAt = l.At
		case lineTypeClear:
			insights = make(map[string]signals.QueuedInsight)
			order = nil
			lastFlushAt = 0
		default:
			s.logger.Debug("accumulator: skipping unknown line type", "path", s.path, "line", lineNum, "type", l.Type)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, 0, fmt.Errorf("accumulator: scan %s: %w", s.path, err)
	}

	return insights, order, lastFlushAt, nil
}

// removeID drops the first occurrence of id from order, so a later
// re-enqueue of the same id starts a fresh insertion-order entry
// instead of leaving a stale duplicate behind.
func removeID(order []string, id string) []string {
	for i, existing := range order {
		if existing == id {
			return append(order[:i:i], order[i+1:]...)
		}
	}
	return order
}

// append writes one JSON line to the file, creating its directory on
// first use. Must be called with s.mu held.
func (s *Store) append(l line) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("accumulator: mkdir %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("accumulator: open %s: %w", s.path, err)
	}
	defer f.Close()

	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("accumulator: marshal line: %w", err)
	}
	data = append(data, '\n')

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("accumulator: append %s: %w", s.path, err)
	}
	return nil
}
