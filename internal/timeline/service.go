// Package timeline records agent runs and their steps in a sqlite database.
package timeline

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Service struct {
	db *sql.DB
}

// Open opens (creating if needed) the timeline database at dbPath.
// ":memory:" gives a private in-memory database.
func Open(dbPath string) (*Service, error) {
	dsn := "file::memory:"
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create timeline dir: %w", err)
		}
		dsn = "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open timeline db: %w", err)
	}
	// One connection: sqlite has a single writer, and an in-memory
	// database is per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Service{db: db}, nil
}

func (s *Service) Close() error {
	return s.db.Close()
}

// StartTrace opens a new trace in the running state and returns its id.
func (s *Service) StartTrace(prompt, mode string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`INSERT INTO traces (trace_id, prompt, mode, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, prompt, mode, StatusRunning, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("start trace: %w", err)
	}
	return id, nil
}

// FinishTrace records how a trace ended.
func (s *Service) FinishTrace(traceID string, out Outcome) error {
	res, err := s.db.Exec(`UPDATE traces SET status = ?, answer = ?, turns = ?, prompt_tokens = ?, completion_tokens = ?, ended_at = ?
		WHERE trace_id = ?`,
		out.Status, out.Answer, out.Turns, out.PromptTokens, out.CompletionTokens, time.Now().UTC(), traceID)
	if err != nil {
		return fmt.Errorf("finish trace: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("trace not found: %s", traceID)
	}
	return nil
}

// AddSpan stores span and sets its ID.
func (s *Service) AddSpan(span *Span) error {
	if span.StartedAt.IsZero() {
		span.StartedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(`INSERT INTO spans (trace_id, turn, kind, name, arguments, result, is_error, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		span.TraceID, span.Turn, span.Kind, span.Name, span.Arguments, span.Result, span.IsError, span.DurationMS, span.StartedAt)
	if err != nil {
		return fmt.Errorf("add span: %w", err)
	}
	span.ID, _ = res.LastInsertId()
	return nil
}

const traceColumns = `trace_id, prompt, mode, status, COALESCE(answer,''), turns, prompt_tokens, completion_tokens, started_at, ended_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrace(row rowScanner) (*Trace, error) {
	var t Trace
	var endedAt sql.NullTime
	if err := row.Scan(&t.TraceID, &t.Prompt, &t.Mode, &t.Status, &t.Answer, &t.Turns,
		&t.PromptTokens, &t.CompletionTokens, &t.StartedAt, &endedAt); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		t.EndedAt = &endedAt.Time
	}
	return &t, nil
}

// GetTrace returns a trace by id.
func (s *Service) GetTrace(traceID string) (*Trace, error) {
	t, err := scanTrace(s.db.QueryRow(`SELECT `+traceColumns+` FROM traces WHERE trace_id = ?`, traceID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("trace not found: %s", traceID)
	}
	if err != nil {
		return nil, fmt.Errorf("get trace: %w", err)
	}
	return t, nil
}

// ListTraces returns the most recent traces, newest first.
func (s *Service) ListTraces(limit int) ([]Trace, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT `+traceColumns+` FROM traces ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list traces: %w", err)
	}
	defer rows.Close()

	var out []Trace
	for rows.Next() {
		t, err := scanTrace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ListSpans returns the spans of a trace in insertion order.
func (s *Service) ListSpans(traceID string) ([]Span, error) {
	rows, err := s.db.Query(`SELECT id, trace_id, turn, kind, name, COALESCE(arguments,''), COALESCE(result,''), is_error, duration_ms, started_at
		FROM spans WHERE trace_id = ? ORDER BY id ASC`, traceID)
	if err != nil {
		return nil, fmt.Errorf("list spans: %w", err)
	}
	defer rows.Close()

	var out []Span
	for rows.Next() {
		var sp Span
		if err := rows.Scan(&sp.ID, &sp.TraceID, &sp.Turn, &sp.Kind, &sp.Name, &sp.Arguments,
			&sp.Result, &sp.IsError, &sp.DurationMS, &sp.StartedAt); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// LogPolicyDecision records a policy evaluation result.
func (s *Service) LogPolicyDecision(rec *PolicyDecisionRecord) error {
	_, err := s.db.Exec(`INSERT INTO policy_decisions (trace_id, tool, tier, allowed, reason)
		VALUES (?, ?, ?, ?, ?)`,
		rec.TraceID, rec.Tool, rec.Tier, rec.Allowed, rec.Reason)
	return err
}

// ListPolicyDecisions returns policy decisions matching the given trace_id.
func (s *Service) ListPolicyDecisions(traceID string) ([]PolicyDecisionRecord, error) {
	rows, err := s.db.Query(`SELECT id, COALESCE(trace_id,''), tool, tier, allowed, COALESCE(reason,''), created_at
		FROM policy_decisions WHERE trace_id = ? ORDER BY id ASC`, traceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PolicyDecisionRecord
	for rows.Next() {
		var r PolicyDecisionRecord
		if err := rows.Scan(&r.ID, &r.TraceID, &r.Tool, &r.Tier, &r.Allowed, &r.Reason, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
