// Package digest implements the Insight Digest Responder: it enqueues
// extracted insights into the accumulator as they arrive and, on a
// periodic check, decides whether the queue should flush and emits the
// resulting digest.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openclaw/openclaw/internal/accumulator"
	"github.com/openclaw/openclaw/internal/clock"
	"github.com/openclaw/openclaw/internal/digestsched"
	"github.com/openclaw/openclaw/internal/signalbus"
	"github.com/openclaw/openclaw/internal/signals"
)

// OnFlush is invoked with the settled insights chosen for a flush. Its
// error is logged but never prevents the dequeue/record/emit sequence
// that follows it.
type OnFlush func(ctx context.Context, insights []signals.QueuedInsight, trigger signals.FlushTrigger) error

// Config holds the responder's tunable thresholds, sourced from the
// digest section of the loaded configuration.
type Config struct {
	CooldownDuration   time.Duration
	MinInsightsToFlush int
	MaxFlushInterval   time.Duration
	CheckInterval      time.Duration
	QuietHoursTimezone string
	QuietHoursStart    string
	QuietHoursEnd      string
}

// Dispose stops the responder: it unsubscribes from the signal bus and
// stops the periodic check. Idempotent.
type Dispose func()

// Responder wires the signal bus, the accumulator, and the digest
// scheduler together per the insight-digest flow.
type Responder struct {
	bus     *signalbus.Bus
	store   *accumulator.Store
	clock   clock.Clock
	cfg     Config
	onFlush OnFlush
	logger  *slog.Logger
}

// New constructs a Responder. Call Start to subscribe and begin the
// periodic check.
func New(bus *signalbus.Bus, store *accumulator.Store, c clock.Clock, cfg Config, onFlush OnFlush, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Responder{bus: bus, store: store, clock: c, cfg: cfg, onFlush: onFlush, logger: logger}
}

// Start subscribes to insight-extracted signals and begins the
// periodic flush check. The returned Dispose tears both down.
func (r *Responder) Start() Dispose {
	unsubscribe := r.bus.Subscribe(signals.TypeInsightExtracted, r.handleInsightExtracted)
	disposeSched := digestsched.ScheduleCheck(r.clock, r.cfg.CheckInterval, r.checkAndFlush, r.logger)

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			disposeSched()
		})
	}
}

// handleInsightExtracted enqueues every insight carried by an
// insight-extracted signal, stamped with the source path and the
// insight's own id.
func (r *Responder) handleInsightExtracted(s signals.Signal) error {
	payload, ok := s.Payload.(signals.InsightExtractedPayload)
	if !ok {
		return fmt.Errorf("digest: unexpected payload type %T for insight-extracted signal", s.Payload)
	}

	now := r.clock.Now().UnixMilli()
	for _, ins := range payload.Insights {
		queued := signals.QueuedInsight{
			ID:             ins.ID,
			QueuedAt:       now,
			SourceSignalID: payload.Source.SignalID,
			SourcePath:     payload.Source.Path,
			Topic:          ins.Topic,
			Pillar:         ins.Pillar,
			Hook:           ins.Hook,
			Excerpt:        ins.Excerpt,
			Scores:         ins.Scores,
			Formats:        ins.Formats,
		}
		if err := r.store.Enqueue(queued); err != nil {
			return fmt.Errorf("digest: enqueue %s: %w", ins.ID, err)
		}
	}
	return nil
}

// checkAndFlush runs the periodic flush decision: quiet hours suppress
// flushing entirely; otherwise the count/time flush rule decides, and
// on fire the flush callback runs before the settled insights are
// dequeued, the flush timestamp recorded, and digest-ready emitted.
func (r *Responder) checkAndFlush() error {
	now := r.clock.Now()
	if digestsched.InQuietNow(now, r.cfg.QuietHoursTimezone, r.cfg.QuietHoursStart, r.cfg.QuietHoursEnd, r.logger) {
		return nil
	}

	settled, err := r.store.GetSettled(now, r.cfg.CooldownDuration)
	if err != nil {
		return fmt.Errorf("digest: get settled: %w", err)
	}

	lastFlushAt, err := r.store.LastFlushAt()
	if err != nil {
		return fmt.Errorf("digest: last flush at: %w", err)
	}

	fire, trigger := accumulator.ShouldFlush(settled, lastFlushAt, now.UnixMilli(), r.cfg.MinInsightsToFlush, r.cfg.MaxFlushInterval.Milliseconds())
	if !fire {
		return nil
	}

	if r.onFlush != nil {
		if err := r.onFlush(context.Background(), settled, trigger); err != nil {
			r.logger.Error("digest: flush callback failed", "error", err, "trigger", trigger, "count", len(settled))
		}
	}

	ids := make([]string, len(settled))
	for i, ins := range settled {
		ids[i] = ins.ID
	}
	if err := r.store.Dequeue(ids); err != nil {
		return fmt.Errorf("digest: dequeue: %w", err)
	}
	if err := r.store.RecordFlush(now); err != nil {
		return fmt.Errorf("digest: record flush: %w", err)
	}

	r.bus.Emit(signals.New(signals.TypeDigestReady, signals.DigestReadyPayload{
		Insights: settled,
		Trigger:  trigger,
	}))
	return nil
}
