package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// NoOutputMessage is returned when a script writes nothing to either stream.
const NoOutputMessage = "No output produced."

// waitDelay bounds how long Run waits for output pipes after the process
// has been killed, in case it left children holding them open.
const waitDelay = 2 * time.Second

// Runner executes scripts inside a sandbox with the configured interpreter.
type Runner struct {
	sb *Sandbox
}

// NewRunner creates a Runner for sb.
func NewRunner(sb *Sandbox) *Runner {
	return &Runner{sb: sb}
}

// Target validates path as a runnable script: inside the root, an existing
// regular file, with the interpreter's source extension. It returns the
// absolute path.
func (r *Runner) Target(path string) (string, error) {
	abs, err := r.sb.Resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return "", Errorf(KindNotFound, path, "%q is not a file", path)
	}
	ext := r.sb.limits.SourceExt
	if !strings.HasSuffix(path, ext) {
		return "", Errorf(KindValidation, path, "%q is not a %s file", path, ext)
	}
	return abs, nil
}

// CheckArgs enforces the argument count and length limits.
func (r *Runner) CheckArgs(args []string) error {
	limits := r.sb.limits
	if len(args) > limits.MaxRunArgs {
		return Errorf(KindResourceLimit, "", "too many args (%d > %d)", len(args), limits.MaxRunArgs)
	}
	for i, a := range args {
		if len(a) > limits.MaxArgLen {
			return Errorf(KindResourceLimit, "", "arg %d exceeds max length (%d > %d)", i, len(a), limits.MaxArgLen)
		}
	}
	return nil
}

// Run executes the script at path with args, from the working root, and
// returns its captured output. The process is killed when RunTimeout elapses.
func (r *Runner) Run(ctx context.Context, path string, args []string) (string, error) {
	abs, err := r.Target(path)
	if err != nil {
		return "", err
	}
	if err := r.CheckArgs(args); err != nil {
		return "", err
	}

	limits := r.sb.limits
	ctx, cancel := context.WithTimeout(ctx, limits.RunTimeout)
	defer cancel()

	argv := append([]string{r.sb.Rel(abs)}, args...)
	cmd := exec.CommandContext(ctx, limits.Interpreter, argv...)
	cmd.Dir = r.sb.Root()
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	slog.Debug("Script finished", "path", path, "args", len(args), "duration", time.Since(start), "error", err)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", Errorf(KindTimeout, path, "%q timed out after %v and was killed", path, limits.RunTimeout)
	}
	if ctx.Err() != nil {
		return "", Wrap(KindInternal, path, ctx.Err(), "%q was cancelled", path)
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", Wrap(KindInternal, path, err, "%q ran with error", path)
		}
		exitCode = processExitCode(exitErr)
	}

	return formatOutput(stdout.String(), stderr.String(), exitCode), nil
}

func formatOutput(stdout, stderr string, exitCode int) string {
	var out string
	if stdout == "" && stderr == "" {
		out = NoOutputMessage
		if exitCode != 0 {
			out += "\n"
		}
	} else {
		out = fmt.Sprintf("STDOUT:%s\nSTDERR:%s\n", stdout, stderr)
	}
	if exitCode != 0 {
		out += fmt.Sprintf("Process exited with code %d", exitCode)
	}
	return out
}
