// Package provider implements the LLM provider interface and the Gemini client.
package provider

import (
	"context"
)

// Message roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
	RoleTool  = "tool"
)

// LLMProvider is the interface for LLM API clients.
type LLMProvider interface {
	// Chat sends a completion request and returns the response.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	// DefaultModel returns the configured default model.
	DefaultModel() string
}

// ChatRequest contains the parameters for a chat completion request.
type ChatRequest struct {
	Messages    []Message
	Tools       []ToolDefinition
	System      string
	Model       string
	MaxTokens   int
	Temperature float64
	// ResponseSchema asks for a JSON response matching the schema. Tools are
	// ignored when it is set.
	ResponseSchema map[string]any
}

// ChatResponse contains the response from a chat completion request.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
	// Candidates holds every candidate's content as a model message, ready
	// to be appended to the conversation.
	Candidates   []Message
	FinishReason string
	// Usage is nil when the backend reported no usage metadata.
	Usage *Usage
}

// Message represents a chat message.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
	// Raw is the backend's native content for model messages. Providers
	// replay it verbatim when present.
	Raw any `json:"-"`
}

// ToolCall represents a tool call from the LLM.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolDefinition declares a function the model may call.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Usage contains token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	ThoughtsTokens   int `json:"thoughts_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
