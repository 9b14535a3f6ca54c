package sandbox

import (
	"fmt"
	"time"
)

// TrashDir is the reserved directory, relative to the working root, that
// safe deletes move targets into.
const TrashDir = ".trash"

// Limits bounds what a single tool call may do.
type Limits struct {
	// MaxChars is the most characters read returns before truncating.
	MaxChars int
	// MaxWriteChars is the largest content write accepts.
	MaxWriteChars int
	// MaxRunArgs is the most arguments run accepts.
	MaxRunArgs int
	// MaxArgLen is the longest single run argument.
	MaxArgLen int
	// RunTimeout is the wall-clock budget of a subprocess.
	RunTimeout time.Duration
	// Interpreter is the binary scripts are run with.
	Interpreter string
	// SourceExt is the extension a runnable script must have.
	SourceExt string
}

// DefaultLimits returns the stock limits.
func DefaultLimits() Limits {
	return Limits{
		MaxChars:      10000,
		MaxWriteChars: 200000,
		MaxRunArgs:    20,
		MaxArgLen:     1000,
		RunTimeout:    30 * time.Second,
		Interpreter:   "python3",
		SourceExt:     ".py",
	}
}

// withDefaults fills zero fields from DefaultLimits.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxChars <= 0 {
		l.MaxChars = d.MaxChars
	}
	if l.MaxWriteChars <= 0 {
		l.MaxWriteChars = d.MaxWriteChars
	}
	if l.MaxRunArgs <= 0 {
		l.MaxRunArgs = d.MaxRunArgs
	}
	if l.MaxArgLen <= 0 {
		l.MaxArgLen = d.MaxArgLen
	}
	if l.RunTimeout <= 0 {
		l.RunTimeout = d.RunTimeout
	}
	if l.Interpreter == "" {
		l.Interpreter = d.Interpreter
	}
	if l.SourceExt == "" {
		l.SourceExt = d.SourceExt
	}
	return l
}

// TruncationMarker is appended to reads cut off at MaxChars.
func (l Limits) TruncationMarker(path string) string {
	return fmt.Sprintf("[...File %q truncated at %d characters]", path, l.MaxChars)
}
