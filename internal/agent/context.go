package agent

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/boxcoder/boxcoder/internal/tools"
)

// ContextBuilder assembles the system instruction sent with every turn.
type ContextBuilder struct {
	workingRoot string
	registry    *tools.Registry
	now         func() time.Time
}

// NewContextBuilder creates a new ContextBuilder.
func NewContextBuilder(workingRoot string, registry *tools.Registry) *ContextBuilder {
	return &ContextBuilder{workingRoot: workingRoot, registry: registry, now: time.Now}
}

// BuildSystemPrompt constructs the system instruction for tool-using runs.
func (b *ContextBuilder) BuildSystemPrompt() string {
	var parts []string
	parts = append(parts, b.identity())
	if summary := b.toolSummary(); summary != "" {
		parts = append(parts, "## Tools\n\n"+summary)
	}
	parts = append(parts, rules)
	return strings.Join(parts, "\n\n")
}

// BuildPlanPrompt constructs the system instruction for plan mode.
func (b *ContextBuilder) BuildPlanPrompt() string {
	var parts []string
	parts = append(parts, b.identity())
	if summary := b.toolSummary(); summary != "" {
		parts = append(parts, "## Tools you could call later\n\n"+summary)
	}
	parts = append(parts, planRules)
	return strings.Join(parts, "\n\n")
}

func (b *ContextBuilder) identity() string {
	return fmt.Sprintf(`# boxcoder

You are a helpful AI coding agent. When a user asks a question or makes a request, make a plan and carry it out with the function calls available to you.

## Runtime
%s %s, %s

## Working directory
All paths you provide must be relative to the working directory; it is injected automatically and you cannot leave it.
Working directory: %s`, runtime.GOOS, runtime.GOARCH, b.now().Format("2006-01-02 15:04"), b.workingRoot)
}

func (b *ContextBuilder) toolSummary() string {
	if b.registry == nil {
		return ""
	}
	var lines []string
	for _, t := range b.registry.List() {
		lines = append(lines, fmt.Sprintf("- %s: %s", t.Kind(), t.Description()))
	}
	return strings.Join(lines, "\n")
}

const rules = `## Rules
- Inspect before changing: list and read files before you write them.
- After changing code, run it or its tests to check the fix.
- Deleting needs confirm=true. Prefer the default move to .trash/ over permanent=true.
- When the user refers to an earlier question or fix, call search_memory first.
- When you are done, answer in plain text without calling any function.`

const planRules = `## Planning
Do not call any function. Reply with a JSON plan only: the goal, the ordered steps with a reason for each, and the tool calls you would make, each with its parameters encoded as a JSON string.`
