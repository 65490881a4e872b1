// Package signals defines the closed set of signal types carried over
// the signal bus and the payload shapes associated with each type.
package signals

import (
	"time"

	"github.com/google/uuid"
)

// Type is a signal tag. The set is closed and known at build time.
type Type string

const (
	TypeFileChanged      Type = "file-changed"
	TypeNoteModified     Type = "note-modified"
	TypeBlockTransition  Type = "block-transition"
	TypeUserIdle         Type = "user-idle"
	TypeUserActive       Type = "user-active"
	TypeCronFired        Type = "cron-fired"
	TypeInsightExtracted Type = "insight-extracted"
	TypeDigestReady      Type = "digest-ready"
)

// Signal is an immutable value emitted on the bus. Identity is carried
// by ID; equality between two in-flight signals is by reference, not
// by value, unless comparing persisted records.
type Signal struct {
	Type    Type
	ID      string
	TS      int64 // monotonic milliseconds since an arbitrary epoch
	Payload any
}

// processStart is the epoch for Signal.TS.
var processStart = time.Now()

// New constructs a Signal with a generated id and the current
// monotonic timestamp (milliseconds).
func New(t Type, payload any) Signal {
	return Signal{
		Type:    t,
		ID:      uuid.NewString(),
		TS:      time.Since(processStart).Milliseconds(),
		Payload: payload,
	}
}

// NoteModifiedPayload is carried by TypeNoteModified signals.
type NoteModifiedPayload struct {
	Path        string
	Content     string
	Frontmatter map[string]any
}

// FileChangedPayload is carried by TypeFileChanged signals.
type FileChangedPayload struct {
	Path string
	Kind string // created, modified, deleted
}

// BlockTransitionPayload is carried by TypeBlockTransition signals.
type BlockTransitionPayload struct {
	From string
	To   string
}

// CronFiredPayload is carried by TypeCronFired signals.
type CronFiredPayload struct {
	JobID string
}

// InsightSource describes where an extracted insight came from.
type InsightSource struct {
	SignalType  Type
	SignalID    string
	Path        string
	ContentHash string
}

// ExtractedInsight is one LLM-produced insight candidate, prior to
// being queued in the accumulator.
type ExtractedInsight struct {
	ID      string
	Topic   string
	Pillar  *string
	Hook    string
	Excerpt string
	Scores  InsightScores
	Formats []string
}

// InsightScores holds the three bounded quality scores an extracted
// insight is rated on.
type InsightScores struct {
	TopicClarity float64
	PublishReady float64
	Novelty      float64
}

// InsightExtractedPayload is carried by TypeInsightExtracted signals.
type InsightExtractedPayload struct {
	Source          InsightSource
	Insights        []ExtractedInsight
	ExtractedAt     int64
	ExtractorVersion string
}

// DigestReadyPayload is carried by TypeDigestReady signals.
type DigestReadyPayload struct {
	Insights []QueuedInsight
	Trigger  FlushTrigger
}

// FlushTrigger names which condition caused a digest flush.
type FlushTrigger string

const (
	TriggerCount FlushTrigger = "count"
	TriggerTime  FlushTrigger = "time"
)

// QueuedInsight is the accumulator's on-disk record shape. Later
// records with the same ID replace earlier ones.
type QueuedInsight struct {
	ID             string
	QueuedAt       int64
	SourceSignalID string
	SourcePath     string
	Topic          string
	Pillar         *string
	Hook           string
	Excerpt        string
	Scores         InsightScores
	Formats        []string
}
