package timeline

import (
	"path/filepath"
	"testing"
)

func newTestTimeline(t *testing.T) *Service {
	t.Helper()
	svc, err := Open(filepath.Join(t.TempDir(), "nested", "timeline.db"))
	if err != nil {
		t.Fatalf("failed to open timeline: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestTraceLifecycle(t *testing.T) {
	svc := newTestTimeline(t)

	id, err := svc.StartTrace("fix calc.py", ModeRun)
	if err != nil {
		t.Fatalf("start trace: %v", err)
	}
	if len(id) != 36 {
		t.Fatalf("expected uuid trace id, got %q", id)
	}

	tr, err := svc.GetTrace(id)
	if err != nil {
		t.Fatalf("get trace: %v", err)
	}
	if tr.Status != StatusRunning || tr.EndedAt != nil || tr.Prompt != "fix calc.py" {
		t.Fatalf("unexpected running trace %+v", tr)
	}

	out := Outcome{Status: StatusAnswered, Answer: "fixed", Turns: 3, PromptTokens: 120, CompletionTokens: 30}
	if err := svc.FinishTrace(id, out); err != nil {
		t.Fatalf("finish trace: %v", err)
	}
	tr, _ = svc.GetTrace(id)
	if tr.Status != StatusAnswered || tr.Answer != "fixed" || tr.Turns != 3 || tr.PromptTokens != 120 {
		t.Errorf("unexpected finished trace %+v", tr)
	}
	if tr.EndedAt == nil {
		t.Error("expected ended_at to be set")
	}

	if err := svc.FinishTrace("missing", out); err == nil {
		t.Error("expected error finishing unknown trace")
	}
	if _, err := svc.GetTrace("missing"); err == nil {
		t.Error("expected error for unknown trace")
	}
}

func TestSpans(t *testing.T) {
	svc := newTestTimeline(t)
	id, _ := svc.StartTrace("p", ModeRun)
	other, _ := svc.StartTrace("q", ModeRun)

	spans := []*Span{
		{TraceID: id, Turn: 1, Kind: SpanLLM, Name: "gemini-2.5-flash", DurationMS: 900},
		{TraceID: id, Turn: 1, Kind: SpanTool, Name: "read", Arguments: `{"file_path":"a.py"}`, Result: "print(1)"},
		{TraceID: id, Turn: 1, Kind: SpanTool, Name: "run_python", Result: "timed out", IsError: true},
		{TraceID: other, Turn: 1, Kind: SpanLLM, Name: "gemini-2.5-flash"},
	}
	for _, sp := range spans {
		if err := svc.AddSpan(sp); err != nil {
			t.Fatalf("add span: %v", err)
		}
		if sp.ID == 0 || sp.StartedAt.IsZero() {
			t.Errorf("expected id and start time to be set, got %+v", sp)
		}
	}

	got, err := svc.ListSpans(id)
	if err != nil {
		t.Fatalf("list spans: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(got))
	}
	if got[1].Name != "read" || got[1].Arguments != `{"file_path":"a.py"}` {
		t.Errorf("unexpected span %+v", got[1])
	}
	if !got[2].IsError || got[0].DurationMS != 900 {
		t.Errorf("span fields not round-tripped: %+v", got)
	}
}

func TestListTracesNewestFirst(t *testing.T) {
	svc := newTestTimeline(t)
	var ids []string
	for _, p := range []string{"a", "b", "c"} {
		id, _ := svc.StartTrace(p, ModeRun)
		ids = append(ids, id)
	}

	got, err := svc.ListTraces(2)
	if err != nil {
		t.Fatalf("list traces: %v", err)
	}
	if len(got) != 2 || got[0].TraceID != ids[2] || got[1].TraceID != ids[1] {
		t.Errorf("unexpected order %+v", got)
	}
}

func TestInMemory(t *testing.T) {
	svc, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory: %v", err)
	}
	defer svc.Close()

	id, err := svc.StartTrace("p", ModePlan)
	if err != nil {
		t.Fatalf("start trace: %v", err)
	}
	if tr, err := svc.GetTrace(id); err != nil || tr.Mode != ModePlan {
		t.Errorf("unexpected trace %+v (%v)", tr, err)
	}
}

func TestPolicyDecisions(t *testing.T) {
	svc := newTestTimeline(t)
	svc.LogPolicyDecision(&PolicyDecisionRecord{TraceID: "t1", Tool: "delete", Tier: 2, Allowed: false, Reason: "tool_delete_denied"})
	svc.LogPolicyDecision(&PolicyDecisionRecord{TraceID: "t1", Tool: "read", Tier: 0, Allowed: true})
	svc.LogPolicyDecision(&PolicyDecisionRecord{TraceID: "t2", Tool: "read", Tier: 0, Allowed: true})

	got, err := svc.ListPolicyDecisions("t1")
	if err != nil {
		t.Fatalf("list decisions: %v", err)
	}
	if len(got) != 2 || got[0].Tool != "delete" || got[0].Allowed || got[0].Reason != "tool_delete_denied" {
		t.Errorf("unexpected decisions %+v", got)
	}
}
