// Command openclawd boots the ambient-agency-runtime core: the signal
// bus, the insight extractor and digest responders, the sidecar
// connection, the learning client, and the local bandit selector. It
// is boot wiring only; subcommands and operator tooling live in
// separate binaries.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/openclaw/openclaw/internal/accumulator"
	"github.com/openclaw/openclaw/internal/bandit"
	"github.com/openclaw/openclaw/internal/buildinfo"
	"github.com/openclaw/openclaw/internal/clock"
	"github.com/openclaw/openclaw/internal/config"
	"github.com/openclaw/openclaw/internal/digest"
	"github.com/openclaw/openclaw/internal/extractor"
	"github.com/openclaw/openclaw/internal/learning"
	"github.com/openclaw/openclaw/internal/llm"
	"github.com/openclaw/openclaw/internal/paths"
	"github.com/openclaw/openclaw/internal/sidecar"
	"github.com/openclaw/openclaw/internal/signalbus"
	"github.com/openclaw/openclaw/internal/signals"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	llmBaseURL := flag.String("llm-base-url", "", "generic chat-completions endpoint for the insight extractor (extractor disabled if empty)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(buildinfo.String())
		return
	}

	path, err := config.FindConfig(*configPath)
	var cfg *config.Config
	if err != nil {
		cfg = config.Default()
	} else {
		cfg, err = config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))

	if err := run(logger, cfg, *llmBaseURL); err != nil {
		logger.Error("openclawd: fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfg *config.Config, llmBaseURL string) error {
	logger.Info("openclawd starting", "version", buildinfo.Version, "data_dir", cfg.DataDir)

	c := clock.Real()
	bus := signalbus.New()
	bus.OnError(func(t signals.Type, index int, err error) {
		logger.Error("handler failed", "signal_type", t, "handler_index", index, "error", err)
	})

	store := accumulator.New(cfg.Digest.StorePath, logger)

	digestResponder := digest.New(bus, store, c, digest.Config{
		CooldownDuration:   time.Duration(cfg.Digest.CooldownHours * float64(time.Hour)),
		MinInsightsToFlush: cfg.Digest.MinInsightsToFlush,
		MaxFlushInterval:   time.Duration(cfg.Digest.MaxHoursBetweenFlushes * float64(time.Hour)),
		CheckInterval:      time.Duration(cfg.Digest.CheckIntervalMs) * time.Millisecond,
		QuietHoursTimezone: cfg.Digest.Timezone,
		QuietHoursStart:    cfg.Digest.QuietHoursStart,
		QuietHoursEnd:      cfg.Digest.QuietHoursEnd,
	}, logDigestFlush(logger), logger)
	disposeDigest := digestResponder.Start()
	defer disposeDigest()

	if llmBaseURL != "" {
		pillars := make([]extractor.Pillar, len(cfg.Extractor.Pillars))
		for i, p := range cfg.Extractor.Pillars {
			pillars[i] = extractor.Pillar{ID: p.ID, Name: p.Name, Keywords: p.Keywords}
		}
		llmClient := llm.NewGenericHTTPClient(llmBaseURL, logger)
		extractorResponder := extractor.New(bus, llmClient, c, extractor.Config{
			Pillars:          pillars,
			MagicString:      cfg.Extractor.MagicString,
			MinContentLength: cfg.Extractor.MinContentLength,
			DebounceDelay:    time.Duration(cfg.Extractor.DebounceMs) * time.Millisecond,
			MinBatchDelay:    time.Duration(cfg.Extractor.MinBatchDelayMs) * time.Millisecond,
			MaxBatchSize:     cfg.Extractor.MaxBatchSize,
		}, logger)
		disposeExtractor := extractorResponder.Start()
		defer disposeExtractor()
		logger.Info("insight extractor enabled", "llm_base_url", llmBaseURL)
	} else {
		logger.Warn("insight extractor disabled: no -llm-base-url configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Learning.Enabled {
		conn, err := buildSidecarConnection(cfg.Learning.Sidecar, logger)
		if err != nil {
			return fmt.Errorf("sidecar: %w", err)
		}
		if err := conn.Init(ctx); err != nil {
			logger.Warn("sidecar: init failed, learning client will operate in fallback mode", "error", err)
		} else {
			logger.Info("sidecar connected", "transport", cfg.Learning.Sidecar.Transport, "healthy", sidecar.IsHealthy(ctx, conn))
		}
		sidecar.SetShared(conn)
		defer conn.Close()

		// learningClient.Select falls back to the deterministic
		// include-as-many-as-fit rule whenever the sidecar is
		// unreachable; banditStore backs the local Thompson-sampling
		// path for callers that need a selection without round-tripping
		// to the sidecar at all.
		learningClient := learning.New(conn, logger)
		sessionID := uuid.NewString()
		learningClient.SessionStart(ctx, sessionID)
		defer learningClient.SessionEnd(context.Background(), sessionID)

		banditStore, err := bandit.Open(paths.BanditDB(cfg.DataDir))
		if err != nil {
			return fmt.Errorf("bandit: %w", err)
		}
		defer banditStore.Close()
		logger.Info("learning layer enabled", "phase", cfg.Learning.Phase, "learner", cfg.Learning.LearnerName)
	}

	logger.Info("openclawd ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("openclawd shutting down")
	return nil
}

// logDigestFlush is the default OnFlush callback: it just logs the
// digest. Downstream publishing (vault writers, dashboards) is wired
// in by the host that embeds this daemon.
func logDigestFlush(logger *slog.Logger) digest.OnFlush {
	return func(ctx context.Context, insights []signals.QueuedInsight, trigger signals.FlushTrigger) error {
		logger.Info("digest flush", "count", len(insights), "trigger", trigger)
		return nil
	}
}

// buildSidecarConnection constructs the configured transport.
func buildSidecarConnection(cfg config.SidecarConfig, logger *slog.Logger) (sidecar.Connection, error) {
	switch cfg.Transport {
	case "http":
		return sidecar.NewHTTPConnection(sidecar.HTTPConfig{
			BaseURL: cfg.HTTP.BaseURL,
			Headers: cfg.HTTP.Headers,
			Logger:  logger,
		}), nil
	case "stdio", "":
		return sidecar.NewStdioConnection(sidecar.StdioConfig{
			Command: cfg.Command,
			Logger:  logger,
		})
	default:
		return nil, fmt.Errorf("unknown sidecar transport %q", cfg.Transport)
	}
}
