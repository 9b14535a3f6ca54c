package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/boxcoder/boxcoder/internal/sandbox"
)

// RunPythonTool executes a script inside the working root.
type RunPythonTool struct {
	runner *sandbox.Runner
	limits sandbox.Limits
}

// NewRunPythonTool creates the run_python tool.
func NewRunPythonTool(sb *sandbox.Sandbox) *RunPythonTool {
	return &RunPythonTool{runner: sandbox.NewRunner(sb), limits: sb.Limits()}
}

func (t *RunPythonTool) Kind() Kind { return KindRunPython }

func (t *RunPythonTool) Description() string {
	return fmt.Sprintf("Executes a %s file with %s from the working directory and returns its output. Killed after %v.",
		t.limits.SourceExt, t.limits.Interpreter, t.limits.RunTimeout)
}

func (t *RunPythonTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"file_path": stringProp("The script to execute, relative to the working directory."),
		"args": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": fmt.Sprintf("Optional command-line arguments (at most %d).", t.limits.MaxRunArgs),
		},
	}, "file_path")
}

type runArgs struct {
	FilePath string          `json:"file_path"`
	Args     json.RawMessage `json:"args"`
}

func (a *runArgs) validate() error {
	if a.FilePath == "" {
		return missingArg("file_path")
	}
	return nil
}

func (t *RunPythonTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	args, err := decodeArgs[runArgs](params)
	if err != nil {
		return "", err
	}
	if _, err := t.runner.Target(args.FilePath); err != nil {
		return "", err
	}
	argv, err := stringSlice(args.Args)
	if err != nil {
		return "", err
	}
	if err := t.runner.CheckArgs(argv); err != nil {
		return "", err
	}
	return t.runner.Run(ctx, args.FilePath, argv)
}
