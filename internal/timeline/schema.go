package timeline

import (
	"time"
)

// Trace is one run of the agent: a prompt and everything done to answer it.
type Trace struct {
	TraceID          string     `json:"trace_id"`
	Prompt           string     `json:"prompt"`
	Mode             string     `json:"mode"`   // run, plan
	Status           string     `json:"status"` // running, answered, exhausted, failed, planned
	Answer           string     `json:"answer,omitempty"`
	Turns            int        `json:"turns"`
	PromptTokens     int        `json:"prompt_tokens"`
	CompletionTokens int        `json:"completion_tokens"`
	StartedAt        time.Time  `json:"started_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
}

const (
	ModeRun  = "run"
	ModePlan = "plan"

	StatusRunning   = "running"
	StatusAnswered  = "answered"
	StatusExhausted = "exhausted"
	StatusFailed    = "failed"
	StatusPlanned   = "planned"
)

// Span is a single step inside a trace.
type Span struct {
	ID         int64     `json:"id"`
	TraceID    string    `json:"trace_id"`
	Turn       int       `json:"turn"`
	Kind       string    `json:"kind"` // LLM, TOOL
	Name       string    `json:"name"`
	Arguments  string    `json:"arguments,omitempty"` // JSON
	Result     string    `json:"result,omitempty"`
	IsError    bool      `json:"is_error"`
	DurationMS int64     `json:"duration_ms"`
	StartedAt  time.Time `json:"started_at"`
}

const (
	SpanLLM  = "LLM"
	SpanTool = "TOOL"
)

// Outcome is how a trace ended.
type Outcome struct {
	Status           string
	Answer           string
	Turns            int
	PromptTokens     int
	CompletionTokens int
}

// PolicyDecisionRecord is a stored policy evaluation.
type PolicyDecisionRecord struct {
	ID        int64     `json:"id"`
	TraceID   string    `json:"trace_id,omitempty"`
	Tool      string    `json:"tool"`
	Tier      int       `json:"tier"`
	Allowed   bool      `json:"allowed"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const Schema = `
CREATE TABLE IF NOT EXISTS traces (
	trace_id TEXT PRIMARY KEY,
	prompt TEXT NOT NULL,
	mode TEXT NOT NULL DEFAULT 'run',
	status TEXT NOT NULL DEFAULT 'running',
	answer TEXT DEFAULT '',
	turns INTEGER NOT NULL DEFAULT 0,
	prompt_tokens INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	started_at DATETIME NOT NULL,
	ended_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_traces_started ON traces(started_at);

CREATE TABLE IF NOT EXISTS spans (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trace_id TEXT NOT NULL,
	turn INTEGER NOT NULL,
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	arguments TEXT DEFAULT '',
	result TEXT DEFAULT '',
	is_error BOOLEAN NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	started_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_spans_trace ON spans(trace_id);

CREATE TABLE IF NOT EXISTS policy_decisions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trace_id TEXT,
	tool TEXT NOT NULL,
	tier INTEGER NOT NULL,
	allowed BOOLEAN NOT NULL,
	reason TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_policy_trace ON policy_decisions(trace_id);
`
