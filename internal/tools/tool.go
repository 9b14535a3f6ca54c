// Package tools provides the tool framework and the sandboxed tools the model
// may call.
package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/boxcoder/boxcoder/internal/provider"
	"github.com/boxcoder/boxcoder/internal/sandbox"
)

// Kind identifies one of the tools the model can call.
type Kind int

const (
	KindListFiles Kind = iota
	KindRead
	KindWrite
	KindRunPython
	KindDelete
	KindSearchMemory
)

var kindNames = [...]string{
	KindListFiles:    "get_files_info",
	KindRead:         "read",
	KindWrite:        "write",
	KindRunPython:    "run_python",
	KindDelete:       "delete",
	KindSearchMemory: "search_memory",
}

// Kinds lists every tool kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindListFiles, KindRead, KindWrite, KindRunPython, KindDelete, KindSearchMemory}
}

// String returns the function name the model uses for k.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a function name to its Kind.
func ParseKind(name string) (Kind, bool) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), true
		}
	}
	return 0, false
}

// Tool is the interface that all agent tools must implement.
type Tool interface {
	// Kind returns the tool identifier used in function calls.
	Kind() Kind
	// Description returns a human-readable description for the LLM.
	Description() string
	// Parameters returns the JSON Schema for tool parameters.
	Parameters() map[string]any
	// Execute runs the tool with the given parameters. Failures are
	// returned as errors; the registry turns them into results.
	Execute(ctx context.Context, params map[string]any) (string, error)
}

// Risk tier constants.
const (
	TierReadOnly = 0 // Read-only tools
	TierWrite    = 1 // Controlled writes inside the sandbox
	TierHighRisk = 2 // Process execution and deletion
)

// Tier returns the risk tier of a tool kind.
func Tier(k Kind) int {
	switch k {
	case KindWrite:
		return TierWrite
	case KindRunPython, KindDelete:
		return TierHighRisk
	default:
		return TierReadOnly
	}
}

// ResultError is the structured failure carried by a Result.
type ResultError struct {
	Kind    sandbox.Kind `json:"kind"`
	Message string       `json:"message"`
}

// Result is the outcome of one tool call. Exactly one of Payload and Err is
// meaningful.
type Result struct {
	CallID  string
	Name    string
	Payload string
	Err     *ResultError
}

// Text returns the payload, or the error rendered as "Error: <message>".
func (r Result) Text() string {
	if r.Err != nil {
		return "Error: " + r.Err.Message
	}
	return r.Payload
}

// Message converts the result into a tool message for the conversation.
func (r Result) Message() provider.Message {
	msg := provider.Message{
		Role:       provider.RoleTool,
		ToolCallID: r.CallID,
		ToolName:   r.Name,
		Content:    r.Payload,
	}
	if r.Err != nil {
		msg.Content = r.Err.Message
		msg.IsError = true
	}
	return msg
}

// ErrorResult builds a failed Result for call.
func ErrorResult(call provider.ToolCall, kind sandbox.Kind, format string, args ...any) Result {
	return Result{
		CallID: call.ID,
		Name:   call.Name,
		Err:    &ResultError{Kind: kind, Message: fmt.Sprintf(format, args...)},
	}
}

// Registry is the fixed table of tools, one per Kind.
type Registry struct {
	tools map[Kind]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[Kind]Tool)}
}

// Register adds a tool, replacing any tool of the same kind.
func (r *Registry) Register(tool Tool) {
	r.tools[tool.Kind()] = tool
}

// Get returns a tool by function name.
func (r *Registry) Get(name string) (Tool, bool) {
	kind, ok := ParseKind(name)
	if !ok {
		return nil, false
	}
	tool, ok := r.tools[kind]
	return tool, ok
}

// List returns the registered tools in Kind order.
func (r *Registry) List() []Tool {
	result := make([]Tool, 0, len(r.tools))
	for _, k := range Kinds() {
		if tool, ok := r.tools[k]; ok {
			result = append(result, tool)
		}
	}
	return result
}

// Definitions returns the tool declarations sent to the model.
func (r *Registry) Definitions() []provider.ToolDefinition {
	tools := r.List()
	defs := make([]provider.ToolDefinition, len(tools))
	for i, tool := range tools {
		defs[i] = provider.ToolDefinition{
			Name:        tool.Kind().String(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		}
	}
	return defs
}

// Dispatch runs one tool call. It never fails: unknown functions, bad
// arguments, tool errors and panics all come back as error results so the
// conversation can continue.
func (r *Registry) Dispatch(ctx context.Context, call provider.ToolCall) (res Result) {
	tool, ok := r.Get(call.Name)
	if !ok {
		return ErrorResult(call, sandbox.KindValidation, "unknown function: %s", call.Name)
	}

	defer func() {
		if p := recover(); p != nil {
			slog.Error("Tool panicked", "tool", call.Name, "panic", p)
			res = ErrorResult(call, sandbox.KindInternal, "%s failed: %v", call.Name, p)
		}
	}()

	params := call.Arguments
	if params == nil {
		params = map[string]any{}
	}
	payload, err := tool.Execute(ctx, params)
	if err != nil {
		return ErrorResult(call, sandbox.KindOf(err), "%s", err.Error())
	}
	return Result{CallID: call.ID, Name: call.Name, Payload: payload}
}

// stringProp and friends build JSON Schema fragments for Parameters.
func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func boolProp(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

func intProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
