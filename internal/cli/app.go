package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/boxcoder/boxcoder/internal/agent"
	"github.com/boxcoder/boxcoder/internal/config"
	"github.com/boxcoder/boxcoder/internal/logging"
	"github.com/boxcoder/boxcoder/internal/memory"
	"github.com/boxcoder/boxcoder/internal/policy"
	"github.com/boxcoder/boxcoder/internal/provider"
	"github.com/boxcoder/boxcoder/internal/sandbox"
	"github.com/boxcoder/boxcoder/internal/timeline"
	"github.com/boxcoder/boxcoder/internal/tools"
	"github.com/boxcoder/boxcoder/internal/tracepub"
)

// newProvider builds the model client. Tests replace it.
var newProvider = func(ctx context.Context, cfg *config.Config) (provider.LLMProvider, error) {
	return provider.NewGeminiProvider(ctx, cfg.Providers.Gemini.APIKey, cfg.Model.Name)
}

// app holds the components shared by every command.
type app struct {
	cfg       *config.Config
	closeLog  func() error
	memory    *memory.Store
	timeline  *timeline.Service
	publisher tracepub.Publisher
}

// newApp loads configuration and sets up logging. The timeline and span
// stream are optional: failures to open them are logged and skipped.
func newApp(debug bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	logger, closeLog, err := logging.Setup(logging.Options{
		Level:   level,
		File:    cfg.Log.File,
		Journal: cfg.Log.Journal,
	})
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	slog.SetDefault(logger)

	a := &app{
		cfg:      cfg,
		closeLog: closeLog,
		memory:   memory.Open(cfg.Paths.MemoryFile),
	}

	if cfg.Paths.TimelineDB != "" {
		tl, err := timeline.Open(cfg.Paths.TimelineDB)
		if err != nil {
			slog.Warn("Timeline disabled", "path", cfg.Paths.TimelineDB, "error", err)
		} else {
			a.timeline = tl
		}
	}
	if cfg.Trace.KafkaBrokers != "" {
		a.publisher = tracepub.NewKafkaPublisher(cfg.Trace.KafkaBrokers, cfg.Trace.Topic)
	}
	return a, nil
}

func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			slog.Warn("Closing span publisher", "error", err)
		}
	}
	if a.timeline != nil {
		if err := a.timeline.Close(); err != nil {
			slog.Warn("Closing timeline", "error", err)
		}
	}
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

// loop wires the sandbox, tools and policy into an agent loop. The working
// root is created if missing.
func (a *app) loop(prov provider.LLMProvider, opts agent.LoopOptions) (*agent.Loop, error) {
	if err := config.EnsureDir(a.cfg.Paths.WorkingRoot); err != nil {
		return nil, fmt.Errorf("create working root: %w", err)
	}
	sb, err := sandbox.New(a.cfg.Paths.WorkingRoot, a.cfg.Tools.Limits())
	if err != nil {
		return nil, err
	}

	opts.Provider = prov
	opts.Registry = tools.NewDefaultRegistry(sb, a.memory)
	opts.Memory = a.memory
	opts.Policy = &policy.DefaultEngine{MaxAutoTier: a.cfg.Tools.MaxAutoTier, Deny: a.cfg.Tools.Deny}
	opts.Timeline = a.timeline
	opts.Publisher = a.publisher
	opts.WorkingRoot = sb.Root()
	opts.Model = a.cfg.Model.Name
	opts.MaxTokens = a.cfg.Model.MaxTokens
	opts.Temperature = a.cfg.Model.Temperature
	opts.MaxIterations = a.cfg.Model.MaxToolIterations
	return agent.NewLoop(opts), nil
}

// requireTimeline reports a useful error when the audit database is off.
func (a *app) requireTimeline() error {
	if a.timeline == nil {
		return fmt.Errorf("timeline is disabled (set paths.timelineDb or BOXCODER_PATHS_TIMELINE_DB)")
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
