// Package config provides configuration types and loading for boxcoder.
package config

import (
	"time"

	"github.com/boxcoder/boxcoder/internal/sandbox"
)

// Config is the root configuration struct.
// Top-level groups: Paths, Model, Providers, Tools, Trace, Log.
// Each group is overridden from BOXCODER_<GROUP>_<FIELD> variables, for
// example BOXCODER_TOOLS_MAX_CHARS. Unprefixed names are never read.
type Config struct {
	Paths     PathsConfig     `json:"paths"`
	Model     ModelConfig     `json:"model"`
	Providers ProvidersConfig `json:"providers"`
	Tools     ToolsConfig     `json:"tools"`
	Trace     TraceConfig     `json:"trace"`
	Log       LogConfig       `json:"log"`
}

// ---------------------------------------------------------------------------
// Paths – filesystem locations
// ---------------------------------------------------------------------------

// PathsConfig groups all filesystem path settings.
type PathsConfig struct {
	// WorkingRoot is the sandbox every tool is confined to.
	WorkingRoot string `json:"workingRoot" split_words:"true"`
	// MemoryFile holds the remembered question/answer pairs.
	MemoryFile string `json:"memoryFile" split_words:"true"`
	// TimelineDB is the sqlite audit database. Empty disables it.
	TimelineDB string `json:"timelineDb" split_words:"true"`
}

// ---------------------------------------------------------------------------
// Model – LLM behaviour
// ---------------------------------------------------------------------------

// ModelConfig groups LLM model and agent-loop settings.
type ModelConfig struct {
	Name              string  `json:"name" split_words:"true"`
	MaxTokens         int     `json:"maxTokens" split_words:"true"`
	Temperature       float64 `json:"temperature" split_words:"true"`
	MaxToolIterations int     `json:"maxToolIterations" split_words:"true"`
}

// ---------------------------------------------------------------------------
// Providers – LLM backends
// ---------------------------------------------------------------------------

// ProvidersConfig contains LLM provider configurations.
type ProvidersConfig struct {
	Gemini GeminiConfig `json:"gemini"`
}

// GeminiConfig configures the Gemini API.
type GeminiConfig struct {
	APIKey string `json:"apiKey" split_words:"true"`
}

// ---------------------------------------------------------------------------
// Tools – sandbox limits and policy
// ---------------------------------------------------------------------------

// ToolsConfig bounds what tools may do and which of them may run.
type ToolsConfig struct {
	MaxChars       int    `json:"maxChars" split_words:"true"`
	MaxWriteChars  int    `json:"maxWriteChars" split_words:"true"`
	MaxRunArgs     int    `json:"maxRunArgs" split_words:"true"`
	MaxArgLen      int    `json:"maxArgLen" split_words:"true"`
	RunTimeoutSecs int    `json:"runTimeoutSecs" split_words:"true"`
	// Interpreter and SourceExt come from the config file only; the
	// environment cannot swap the binary scripts run under.
	Interpreter string `json:"interpreter" ignored:"true"`
	SourceExt   string `json:"sourceExt" ignored:"true"`
	// MaxAutoTier is the highest risk tier allowed to run (0 read-only,
	// 1 writes, 2 process execution and deletion).
	MaxAutoTier int `json:"maxAutoTier" split_words:"true"`
	// Deny names tools that never run.
	Deny []string `json:"deny" split_words:"true"`
}

// Limits converts the tool settings into sandbox limits.
func (t ToolsConfig) Limits() sandbox.Limits {
	return sandbox.Limits{
		MaxChars:      t.MaxChars,
		MaxWriteChars: t.MaxWriteChars,
		MaxRunArgs:    t.MaxRunArgs,
		MaxArgLen:     t.MaxArgLen,
		RunTimeout:    time.Duration(t.RunTimeoutSecs) * time.Second,
		Interpreter:   t.Interpreter,
		SourceExt:     t.SourceExt,
	}
}

// ---------------------------------------------------------------------------
// Trace – span stream
// ---------------------------------------------------------------------------

// TraceConfig configures publishing of spans to Kafka.
type TraceConfig struct {
	// KafkaBrokers is a comma-separated broker list. Empty disables publishing.
	KafkaBrokers string `json:"kafkaBrokers" split_words:"true"`
	Topic        string `json:"topic" split_words:"true"`
}

// ---------------------------------------------------------------------------
// Log – diagnostics
// ---------------------------------------------------------------------------

// LogConfig configures logging.
type LogConfig struct {
	Level   string `json:"level" split_words:"true"`
	File    string `json:"file" split_words:"true"`
	Journal bool   `json:"journal" split_words:"true"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	limits := sandbox.DefaultLimits()
	return &Config{
		Paths: PathsConfig{
			WorkingRoot: "./code-files",
			MemoryFile:  "db/memory.json",
			TimelineDB:  "~/.boxcoder/timeline.db",
		},
		Model: ModelConfig{
			Name:              "gemini-2.5-flash",
			MaxTokens:         8192,
			Temperature:       0,
			MaxToolIterations: 20,
		},
		Tools: ToolsConfig{
			MaxChars:       limits.MaxChars,
			MaxWriteChars:  limits.MaxWriteChars,
			MaxRunArgs:     limits.MaxRunArgs,
			MaxArgLen:      limits.MaxArgLen,
			RunTimeoutSecs: int(limits.RunTimeout / time.Second),
			Interpreter:    limits.Interpreter,
			SourceExt:      limits.SourceExt,
			MaxAutoTier:    2,
		},
		Trace: TraceConfig{
			Topic: "boxcoder.spans",
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}
