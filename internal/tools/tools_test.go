package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/boxcoder/boxcoder/internal/memory"
	"github.com/boxcoder/boxcoder/internal/provider"
	"github.com/boxcoder/boxcoder/internal/sandbox"
)

func newTestRegistry(t *testing.T, limits sandbox.Limits) (*Registry, string, *memory.Store) {
	t.Helper()
	root := t.TempDir()
	sb, err := sandbox.New(root, limits)
	if err != nil {
		t.Fatalf("sandbox.New() error: %v", err)
	}
	store := memory.Open(filepath.Join(t.TempDir(), "memory.json"))
	return NewDefaultRegistry(sb, store), sb.Root(), store
}

func call(name string, args map[string]any) provider.ToolCall {
	return provider.ToolCall{ID: "call-1", Name: name, Arguments: args}
}

func dispatch(t *testing.T, r *Registry, name string, args map[string]any) Result {
	t.Helper()
	res := r.Dispatch(context.Background(), call(name, args))
	if res.CallID != "call-1" || res.Name != name {
		t.Errorf("result not correlated with call: %+v", res)
	}
	return res
}

func wantErrKind(t *testing.T, res Result, kind sandbox.Kind) {
	t.Helper()
	if res.Err == nil {
		t.Fatalf("expected %s error, got payload %q", kind, res.Payload)
	}
	if res.Err.Kind != kind {
		t.Errorf("expected %s error, got %s (%s)", kind, res.Err.Kind, res.Err.Message)
	}
}

func TestKindNames(t *testing.T) {
	want := []string{"get_files_info", "read", "write", "run_python", "delete", "search_memory"}
	var got []string
	for _, k := range Kinds() {
		got = append(got, k.String())
		parsed, ok := ParseKind(k.String())
		if !ok || parsed != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), parsed, ok)
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("kind names mismatch (-want +got):\n%s", diff)
	}
	if _, ok := ParseKind("exec"); ok {
		t.Error("expected exec to be unknown")
	}
}

func TestRegistryDefinitions(t *testing.T) {
	r, _, _ := newTestRegistry(t, sandbox.Limits{})

	defs := r.Definitions()
	if len(defs) != 6 {
		t.Fatalf("expected 6 definitions, got %d", len(defs))
	}
	for i, k := range Kinds() {
		if defs[i].Name != k.String() {
			t.Errorf("definition %d: expected %s, got %s", i, k, defs[i].Name)
		}
		if defs[i].Parameters["type"] != "object" {
			t.Errorf("%s: expected object schema", defs[i].Name)
		}
	}
}

func TestDispatch_UnknownFunction(t *testing.T) {
	r, _, _ := newTestRegistry(t, sandbox.Limits{})

	res := dispatch(t, r, "exec", map[string]any{"command": "rm -rf /"})
	wantErrKind(t, res, sandbox.KindValidation)
	if res.Err.Message != "unknown function: exec" {
		t.Errorf("unexpected message %q", res.Err.Message)
	}
}

func TestDispatch_ArgumentValidation(t *testing.T) {
	r, _, _ := newTestRegistry(t, sandbox.Limits{})

	cases := []struct {
		name    string
		tool    string
		args    map[string]any
		contain string
	}{
		{"unknown key", "read", map[string]any{"file_path": "a.txt", "mode": "rb"}, `unknown field "mode"`},
		{"wrong type", "read", map[string]any{"file_path": 42}, "file_path must be string"},
		{"missing required", "read", map[string]any{}, `"file_path"`},
		{"missing content", "write", map[string]any{"file_path": "a.txt"}, `"content"`},
		{"confirm not bool", "delete", map[string]any{"file_path": "a.txt", "confirm": "yes"}, "confirm must be bool"},
		{"missing query", "search_memory", nil, `"query"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := dispatch(t, r, tc.tool, tc.args)
			wantErrKind(t, res, sandbox.KindValidation)
			if !strings.Contains(res.Err.Message, tc.contain) {
				t.Errorf("expected message containing %q, got %q", tc.contain, res.Err.Message)
			}
		})
	}
}

type panicTool struct{}

func (panicTool) Kind() Kind                 { return KindRead }
func (panicTool) Description() string        { return "panics" }
func (panicTool) Parameters() map[string]any { return objectSchema(nil) }
func (panicTool) Execute(context.Context, map[string]any) (string, error) {
	panic("boom")
}

func TestDispatch_RecoversPanic(t *testing.T) {
	r := NewRegistry()
	r.Register(panicTool{})

	res := dispatch(t, r, "read", nil)
	wantErrKind(t, res, sandbox.KindInternal)
	if !strings.Contains(res.Err.Message, "boom") {
		t.Errorf("expected panic value in message, got %q", res.Err.Message)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	r, root, _ := newTestRegistry(t, sandbox.Limits{})

	res := dispatch(t, r, "write", map[string]any{"file_path": "pkg/sub/hello.py", "content": "print('héllo')\n"})
	if res.Err != nil {
		t.Fatalf("write failed: %s", res.Err.Message)
	}
	if res.Payload != `Successfully wrote 16 bytes to "pkg/sub/hello.py"` {
		t.Errorf("unexpected write payload %q", res.Payload)
	}
	if _, err := os.Stat(filepath.Join(root, "pkg", "sub", "hello.py")); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}

	res = dispatch(t, r, "read", map[string]any{"file_path": "pkg/sub/hello.py"})
	if res.Err != nil || res.Payload != "print('héllo')\n" {
		t.Errorf("unexpected read result %+v", res)
	}
}

func TestWrite_Limits(t *testing.T) {
	r, root, _ := newTestRegistry(t, sandbox.Limits{MaxWriteChars: 5})

	res := dispatch(t, r, "write", map[string]any{"file_path": "new/dir/big.txt", "content": "123456"})
	wantErrKind(t, res, sandbox.KindResourceLimit)
	if _, err := os.Stat(filepath.Join(root, "new")); !os.IsNotExist(err) {
		t.Error("rejected write must not create directories")
	}

	res = dispatch(t, r, "write", map[string]any{"file_path": "ok.txt", "content": "ééééé"})
	if res.Err != nil {
		t.Errorf("five characters must fit, got %s", res.Err.Message)
	}

	os.Mkdir(filepath.Join(root, "adir"), 0755)
	wantErrKind(t, dispatch(t, r, "write", map[string]any{"file_path": "adir", "content": "x"}), sandbox.KindValidation)
}

func TestRead_Truncation(t *testing.T) {
	r, root, _ := newTestRegistry(t, sandbox.Limits{MaxChars: 10})

	os.WriteFile(filepath.Join(root, "long.txt"), []byte(strings.Repeat("ü", 25)), 0644)
	res := dispatch(t, r, "read", map[string]any{"file_path": "long.txt"})
	want := strings.Repeat("ü", 10) + `[...File "long.txt" truncated at 10 characters]`
	if res.Payload != want {
		t.Errorf("expected %q, got %q", want, res.Payload)
	}

	os.WriteFile(filepath.Join(root, "short.txt"), []byte("short"), 0644)
	if res := dispatch(t, r, "read", map[string]any{"file_path": "short.txt"}); res.Payload != "short" {
		t.Errorf("expected untruncated content, got %q", res.Payload)
	}
}

func TestRead_Errors(t *testing.T) {
	r, root, _ := newTestRegistry(t, sandbox.Limits{})
	os.Mkdir(filepath.Join(root, "dir"), 0755)

	wantErrKind(t, dispatch(t, r, "read", map[string]any{"file_path": "missing.txt"}), sandbox.KindNotFound)
	wantErrKind(t, dispatch(t, r, "read", map[string]any{"file_path": "dir"}), sandbox.KindNotFound)
	wantErrKind(t, dispatch(t, r, "read", map[string]any{"file_path": "../outside.txt"}), sandbox.KindContainment)
	wantErrKind(t, dispatch(t, r, "read", map[string]any{"file_path": "/etc/passwd"}), sandbox.KindContainment)
}

func TestListFiles(t *testing.T) {
	r, root, _ := newTestRegistry(t, sandbox.Limits{})
	os.WriteFile(filepath.Join(root, "b.txt"), []byte("hello"), 0644)
	os.Mkdir(filepath.Join(root, "a"), 0755)
	os.WriteFile(filepath.Join(root, "a", "nested.txt"), []byte("x"), 0644)

	res := dispatch(t, r, "get_files_info", map[string]any{})
	if res.Err != nil {
		t.Fatalf("list failed: %s", res.Err.Message)
	}
	lines := strings.Split(res.Payload, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 entries (no recursion), got %q", res.Payload)
	}
	if !strings.HasPrefix(lines[0], "- a: file_size=") || !strings.HasSuffix(lines[0], "is_directory=true") {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if lines[1] != "- b.txt: file_size=5 bytes, is_directory=false" {
		t.Errorf("unexpected second line %q", lines[1])
	}

	wantErrKind(t, dispatch(t, r, "get_files_info", map[string]any{"directory": "../"}), sandbox.KindContainment)
	wantErrKind(t, dispatch(t, r, "get_files_info", map[string]any{"directory": "nope"}), sandbox.KindNotFound)
	wantErrKind(t, dispatch(t, r, "get_files_info", map[string]any{"directory": "b.txt"}), sandbox.KindValidation)
}

func TestDelete(t *testing.T) {
	r, root, _ := newTestRegistry(t, sandbox.Limits{})
	target := filepath.Join(root, "x.txt")
	os.WriteFile(target, []byte("x"), 0644)

	res := dispatch(t, r, "delete", map[string]any{"file_path": "x.txt"})
	if res.Err != nil || res.Payload != sandbox.RefusedMessage {
		t.Fatalf("expected refusal, got %+v", res)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatal("refused delete must leave the file in place")
	}

	res = dispatch(t, r, "delete", map[string]any{"file_path": "x.txt", "confirm": true})
	if res.Err != nil {
		t.Fatalf("delete failed: %s", res.Err.Message)
	}
	if _, err := os.Stat(filepath.Join(root, ".trash", "x.txt")); err != nil {
		t.Errorf("expected file in trash: %v", err)
	}

	wantErrKind(t, dispatch(t, r, "delete", map[string]any{"file_path": "x.txt", "confirm": true}), sandbox.KindNotFound)
}

func TestRunPython_PreconditionOrder(t *testing.T) {
	r, root, _ := newTestRegistry(t, sandbox.Limits{MaxRunArgs: 2, MaxArgLen: 4})
	os.WriteFile(filepath.Join(root, "ok.py"), []byte("print(1)\n"), 0644)
	os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644)

	cases := []struct {
		name string
		args map[string]any
		kind sandbox.Kind
	}{
		{"outside root beats bad args", map[string]any{"file_path": "../x.py", "args": 7}, sandbox.KindContainment},
		{"missing file beats bad args", map[string]any{"file_path": "gone.py", "args": 7}, sandbox.KindNotFound},
		{"wrong extension", map[string]any{"file_path": "notes.txt"}, sandbox.KindValidation},
		{"args not a list", map[string]any{"file_path": "ok.py", "args": "a b"}, sandbox.KindValidation},
		{"non-string arg", map[string]any{"file_path": "ok.py", "args": []any{"a", 1}}, sandbox.KindValidation},
		{"too many args", map[string]any{"file_path": "ok.py", "args": []any{"a", "b", "c"}}, sandbox.KindResourceLimit},
		{"arg too long", map[string]any{"file_path": "ok.py", "args": []any{"abcde"}}, sandbox.KindResourceLimit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wantErrKind(t, dispatch(t, r, "run_python", tc.args), tc.kind)
		})
	}
}

func TestStringSlice(t *testing.T) {
	for _, raw := range []string{"", "null", " null "} {
		got, err := stringSlice(json.RawMessage(raw))
		if err != nil || len(got) != 0 {
			t.Errorf("stringSlice(%q) = %v, %v; want empty", raw, got, err)
		}
	}
	got, err := stringSlice(json.RawMessage(`["a","b"]`))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchMemory(t *testing.T) {
	r, _, store := newTestRegistry(t, sandbox.Limits{})
	store.Append("how do I reverse a string", "use s[::-1]")
	store.Append("what is <b>bold</b>", "html & markup")

	res := dispatch(t, r, "search_memory", map[string]any{"query": "reverse a string"})
	if res.Err != nil {
		t.Fatalf("search failed: %s", res.Err.Message)
	}
	var payload struct {
		Results []memory.Record `json:"results"`
	}
	if err := json.Unmarshal([]byte(res.Payload), &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if len(payload.Results) != 1 || payload.Results[0].ID != 1 {
		t.Errorf("unexpected results %+v", payload.Results)
	}

	res = dispatch(t, r, "search_memory", map[string]any{"query": "last question", "top_k": 3})
	if !strings.Contains(res.Payload, "<b>bold</b>") {
		t.Errorf("expected unescaped last record, got %q", res.Payload)
	}

	res = dispatch(t, r, "search_memory", map[string]any{"query": "nothing matches zzz"})
	if res.Payload != `{"results":[]}` {
		t.Errorf("expected empty results, got %q", res.Payload)
	}
}

func TestResultMessage(t *testing.T) {
	ok := Result{CallID: "1", Name: "read", Payload: "data"}
	if m := ok.Message(); m.Role != provider.RoleTool || m.Content != "data" || m.IsError {
		t.Errorf("unexpected message %+v", m)
	}
	failed := ErrorResult(provider.ToolCall{ID: "2", Name: "read"}, sandbox.KindNotFound, "gone")
	if m := failed.Message(); !m.IsError || m.Content != "gone" || m.ToolCallID != "2" {
		t.Errorf("unexpected message %+v", m)
	}
	if failed.Text() != "Error: gone" {
		t.Errorf("unexpected text %q", failed.Text())
	}
}
