// Package extractor implements the Insight Extractor (C4): a filter →
// debounce → batch → LLM → parse → emit pipeline that turns
// note-modified signals marked with a magic string into
// insight-extracted signals.
package extractor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openclaw/openclaw/internal/clock"
	"github.com/openclaw/openclaw/internal/debounce"
	"github.com/openclaw/openclaw/internal/llm"
	"github.com/openclaw/openclaw/internal/signalbus"
	"github.com/openclaw/openclaw/internal/signals"
)

// Version is stamped on every insight-extracted signal's payload as
// ExtractorVersion.
const Version = "1"

// Pillar names a content pillar the system prompt is built from.
type Pillar struct {
	ID       string
	Name     string
	Keywords []string
}

// Config holds the extractor's tunable thresholds, sourced from the
// extractor section of the loaded configuration.
type Config struct {
	Pillars          []Pillar
	MagicString      string
	MinContentLength int
	DebounceDelay    time.Duration
	MinBatchDelay    time.Duration
	MaxBatchSize     int
	Model            string
}

// Dispose tears down the responder: it unsubscribes from the bus and
// cancels all pending per-path debounce timers. Idempotent.
type Dispose func()

// pendingExtraction is the payload a surviving note-modified signal is
// packaged into before it reaches the debouncer/batcher.
type pendingExtraction struct {
	path       string
	content    string
	pillarHint string
	signalID   string
}

// Responder wires the signal bus, debouncer, batcher, and an LLM
// client into the filter, debounce, batch, LLM-call, parse, emit
// pipeline.
type Responder struct {
	bus    *signalbus.Bus
	llm    llm.Client
	cfg    Config
	logger *slog.Logger

	systemPrompt string
	debouncer    *debounce.Debouncer[string, pendingExtraction]
	batcher      *debounce.Batcher[pendingExtraction]
}

// New constructs a Responder. The system prompt is built once, here,
// from cfg.Pillars.
func New(bus *signalbus.Bus, llmClient llm.Client, c clock.Clock, cfg Config, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Responder{
		bus:          bus,
		llm:          llmClient,
		cfg:          cfg,
		logger:       logger,
		systemPrompt: buildSystemPrompt(cfg.Pillars),
	}
	r.debouncer = debounce.New[string, pendingExtraction](c, cfg.DebounceDelay)
	r.batcher = debounce.NewBatcher[pendingExtraction](c, cfg.MinBatchDelay, cfg.MaxBatchSize, r.deliverBatch)
	return r
}

// Start subscribes to note-modified signals. The returned Dispose
// unsubscribes and cancels all pending per-path timers; it does not
// wait for an in-flight batch delivery to finish.
func (r *Responder) Start() Dispose {
	unsubscribe := r.bus.Subscribe(signals.TypeNoteModified, r.handleNoteModified)

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			r.debouncer.Clear()
			r.batcher.Clear()
		})
	}
}

// handleNoteModified runs the filter pipeline and, on survival,
// (re)schedules the per-path debounce timer with the latest content.
func (r *Responder) handleNoteModified(s signals.Signal) error {
	payload, ok := s.Payload.(signals.NoteModifiedPayload)
	if !ok {
		return fmt.Errorf("extractor: unexpected payload type %T for note-modified signal", s.Payload)
	}

	pending, ok := r.filter(payload, s.ID)
	if !ok {
		return nil
	}

	r.debouncer.Schedule(payload.Path, pending, func(p pendingExtraction) {
		r.batcher.Add(p)
	})
	return nil
}

// filter applies the four-step filter pipeline and returns the
// packaged extraction candidate if the content survives.
func (r *Responder) filter(payload signals.NoteModifiedPayload, signalID string) (pendingExtraction, bool) {
	base := path.Base(payload.Path)
	if strings.HasPrefix(base, "_cadence-") || strings.HasPrefix(base, "_debug-") || strings.HasPrefix(base, ".") {
		return pendingExtraction{}, false
	}

	content := strings.TrimLeft(payload.Content, " \t\r\n")
	magic := r.cfg.MagicString
	if magic == "" {
		magic = "::publish"
	}
	if !strings.HasPrefix(content, magic) {
		return pendingExtraction{}, false
	}

	content = strings.TrimLeft(content[len(magic):], " \t\r\n")
	if len(content) < r.cfg.MinContentLength {
		return pendingExtraction{}, false
	}

	var pillarHint string
	if payload.Frontmatter != nil {
		if raw, ok := payload.Frontmatter["pillar"]; ok {
			if s, ok := raw.(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					pillarHint = trimmed
				}
			}
		}
	}

	return pendingExtraction{
		path:       payload.Path,
		content:    content,
		pillarHint: pillarHint,
		signalID:   signalID,
	}, true
}

// deliverBatch processes each extraction in the batch sequentially —
// never in parallel — so an LLM failure on one does not skip the
// others.
func (r *Responder) deliverBatch(batch []pendingExtraction) {
	for _, p := range batch {
		r.processOne(p)
	}
}

// processOne builds the prompt, calls the LLM, parses the response,
// and emits insight-extracted if at least one insight survived
// parsing. LLM errors are logged and do not stop the batch.
func (r *Responder) processOne(p pendingExtraction) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	messages := []llm.Message{
		{Role: "system", Content: r.systemPrompt},
		{Role: "user", Content: buildUserPrompt(p.content, p.pillarHint)},
	}

	resp, err := r.llm.Chat(ctx, r.cfg.Model, messages)
	if err != nil {
		r.logger.Warn("extractor: llm call failed", "path", p.path, "error", err)
		return
	}

	insights := parseResponse(resp.Message.Content)
	if len(insights) == 0 {
		return
	}

	hash := sha256.Sum256([]byte(p.content))
	now := time.Now()

	r.bus.Emit(signals.New(signals.TypeInsightExtracted, signals.InsightExtractedPayload{
		Source: signals.InsightSource{
			SignalType:  signals.TypeNoteModified,
			SignalID:    p.signalID,
			Path:        p.path,
			ContentHash: hex.EncodeToString(hash[:]),
		},
		Insights:         insights,
		ExtractedAt:      now.UnixMilli(),
		ExtractorVersion: Version,
	}))
}

// buildSystemPrompt is constructed once, at responder construction,
// from the pillar list.
func buildSystemPrompt(pillars []Pillar) string {
	var b strings.Builder
	b.WriteString("You are an insight extractor for a personal knowledge vault. ")
	b.WriteString("Given the body of a note marked for publishing, identify zero or more " +
		"publishable insights. Respond with a JSON array of objects, each with " +
		`"topic", "pillar", "hook", "excerpt", "scores" ({"topicClarity","publishReady","novelty"} in [0,1]), and "formats" (array of strings).`)
	if len(pillars) > 0 {
		b.WriteString(" Available pillars:")
		for _, p := range pillars {
			fmt.Fprintf(&b, "\n- %s (%s): %s", p.Name, p.ID, strings.Join(p.Keywords, ", "))
		}
	}
	return b.String()
}

// buildUserPrompt includes the content and, when present, a one-line
// hint referencing the pillar the frontmatter named.
func buildUserPrompt(content, pillarHint string) string {
	if pillarHint == "" {
		return content
	}
	return fmt.Sprintf("Hint: this note's frontmatter suggests the pillar %q.\n\n%s", pillarHint, content)
}

// parseResponse extracts the first [...] JSON-array substring from raw
// and normalizes each well-formed element into an ExtractedInsight.
// An unparseable response or one with no surviving elements yields nil
// (no signal emission).
func parseResponse(raw string) []signals.ExtractedInsight {
	start := strings.Index(raw, "[")
	if start < 0 {
		return nil
	}
	end := strings.LastIndex(raw, "]")
	if end < start {
		return nil
	}

	var elements []map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &elements); err != nil {
		return nil
	}

	var out []signals.ExtractedInsight
	for _, el := range elements {
		topic, ok := el["topic"].(string)
		if !ok || topic == "" {
			continue
		}
		hook, ok := el["hook"].(string)
		if !ok {
			continue
		}
		excerpt, ok := el["excerpt"].(string)
		if !ok {
			continue
		}
		scoresRaw, ok := el["scores"].(map[string]any)
		if !ok {
			continue
		}
		formatsRaw, ok := el["formats"].([]any)
		if !ok {
			continue
		}

		var pillar *string
		if s, ok := el["pillar"].(string); ok && s != "" {
			pillar = &s
		}

		var formats []string
		for _, f := range formatsRaw {
			if s, ok := f.(string); ok {
				formats = append(formats, s)
			}
		}

		out = append(out, signals.ExtractedInsight{
			ID:      uuid.NewString(),
			Topic:   topic,
			Pillar:  pillar,
			Hook:    hook,
			Excerpt: excerpt,
			Scores: signals.InsightScores{
				TopicClarity: clampScore(scoresRaw["topicClarity"]),
				PublishReady: clampScore(scoresRaw["publishReady"]),
				Novelty:      clampScore(scoresRaw["novelty"]),
			},
			Formats: formats,
		})
	}
	return out
}

// clampScore coerces v to a float64 and clamps it to [0,1]; NaN and
// non-numeric values become 0.
func clampScore(v any) float64 {
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	if f != f { // NaN
		return 0
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
