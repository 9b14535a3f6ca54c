// Package agent drives the conversation between the model and the tools.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/boxcoder/boxcoder/internal/memory"
	"github.com/boxcoder/boxcoder/internal/policy"
	"github.com/boxcoder/boxcoder/internal/provider"
	"github.com/boxcoder/boxcoder/internal/sandbox"
	"github.com/boxcoder/boxcoder/internal/timeline"
	"github.com/boxcoder/boxcoder/internal/tools"
	"github.com/boxcoder/boxcoder/internal/tracepub"
)

// DefaultMaxIterations bounds the turns of a single Run.
const DefaultMaxIterations = 20

// MaxIterationsMessage is the text of an exhausted Result.
const MaxIterationsMessage = "maximum iterations reached"

var (
	// ErrProtocol reports a failed or malformed exchange with the model.
	ErrProtocol = errors.New("model protocol error")
	// ErrIterationsExhausted reports that no final answer arrived in time.
	ErrIterationsExhausted = errors.New("maximum iterations reached")
)

// Status is how a Run ended.
type Status string

const (
	StatusAnswered  Status = "answered"
	StatusExhausted Status = "exhausted"
)

// Result is the outcome of a Run.
type Result struct {
	Text   string
	Status Status
	Turns  int
	// PersistErr is set when the answer could not be saved to memory. The
	// answer itself is still valid.
	PersistErr error
	TraceID    string
	Usage      provider.Usage
}

// LoopOptions configures a Loop.
type LoopOptions struct {
	Provider      provider.LLMProvider
	Registry      *tools.Registry
	Memory        *memory.Store
	Policy        policy.Engine
	Timeline      *timeline.Service
	Publisher     tracepub.Publisher
	WorkingRoot   string
	Model         string
	MaxTokens     int
	Temperature   float64
	MaxIterations int
	// OnToolCall is called before each tool call is evaluated.
	OnToolCall func(call provider.ToolCall)
	// OnUsage is called after each model response.
	OnUsage func(turn int, usage provider.Usage)
}

// Loop is the core agent processing engine. A Loop holds no per-prompt
// state; each Run owns its conversation.
type Loop struct {
	provider       provider.LLMProvider
	registry       *tools.Registry
	memory         *memory.Store
	policy         policy.Engine
	timeline       *timeline.Service
	publisher      tracepub.Publisher
	contextBuilder *ContextBuilder
	model          string
	maxTokens      int
	temperature    float64
	maxIterations  int
	onToolCall     func(provider.ToolCall)
	onUsage        func(int, provider.Usage)
}

// NewLoop creates a new agent loop.
func NewLoop(opts LoopOptions) *Loop {
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	registry := opts.Registry
	if registry == nil {
		registry = tools.NewRegistry()
	}
	return &Loop{
		provider:       opts.Provider,
		registry:       registry,
		memory:         opts.Memory,
		policy:         opts.Policy,
		timeline:       opts.Timeline,
		publisher:      opts.Publisher,
		contextBuilder: NewContextBuilder(opts.WorkingRoot, registry),
		model:          opts.Model,
		maxTokens:      opts.MaxTokens,
		temperature:    opts.Temperature,
		maxIterations:  maxIter,
		onToolCall:     opts.OnToolCall,
		onUsage:        opts.OnUsage,
	}
}

// run is the state of one prompt.
type run struct {
	traceID string
	usage   provider.Usage
}

// Run answers prompt, calling tools as the model requests, for at most
// MaxIterations turns. An exhausted run returns its Result together with
// ErrIterationsExhausted.
func (l *Loop) Run(ctx context.Context, prompt string) (*Result, error) {
	r := l.startTrace(prompt, timeline.ModeRun)
	messages := []provider.Message{{Role: provider.RoleUser, Content: prompt}}
	toolDefs := l.registry.Definitions()
	system := l.contextBuilder.BuildSystemPrompt()

	for turn := 1; turn <= l.maxIterations; turn++ {
		resp, err := l.chat(ctx, r, turn, &provider.ChatRequest{
			Messages:    messages,
			Tools:       toolDefs,
			System:      system,
			Model:       l.model,
			MaxTokens:   l.maxTokens,
			Temperature: l.temperature,
		})
		if err != nil {
			l.finishTrace(r, timeline.Outcome{Status: timeline.StatusFailed, Answer: err.Error(), Turns: turn})
			return nil, err
		}

		messages = appendCandidates(messages, resp)

		if len(resp.ToolCalls) == 0 {
			if resp.Content == "" {
				err := fmt.Errorf("%w: response has neither text nor function calls (finish reason %q)", ErrProtocol, resp.FinishReason)
				l.finishTrace(r, timeline.Outcome{Status: timeline.StatusFailed, Answer: err.Error(), Turns: turn})
				return nil, err
			}
			result := &Result{Text: resp.Content, Status: StatusAnswered, Turns: turn, TraceID: r.traceID, Usage: r.usage}
			if l.memory != nil {
				if _, err := l.memory.Append(prompt, resp.Content); err != nil {
					slog.Warn("Failed to save answer to memory", "error", err)
					result.PersistErr = err
				}
			}
			l.finishTrace(r, timeline.Outcome{Status: timeline.StatusAnswered, Answer: resp.Content, Turns: turn})
			return result, nil
		}

		for _, call := range resp.ToolCalls {
			res := l.executeTool(ctx, r, turn, call)
			messages = append(messages, res.Message())
		}
	}

	slog.Warn("Agent stopped without a final answer", "turns", l.maxIterations, "trace_id", r.traceID)
	l.finishTrace(r, timeline.Outcome{Status: timeline.StatusExhausted, Answer: MaxIterationsMessage, Turns: l.maxIterations})
	return &Result{
		Text:    MaxIterationsMessage,
		Status:  StatusExhausted,
		Turns:   l.maxIterations,
		TraceID: r.traceID,
		Usage:   r.usage,
	}, ErrIterationsExhausted
}

// appendCandidates adds the model's turn to the conversation. Providers that
// report no candidates get a message rebuilt from the response.
func appendCandidates(messages []provider.Message, resp *provider.ChatResponse) []provider.Message {
	if len(resp.Candidates) > 0 {
		return append(messages, resp.Candidates...)
	}
	return append(messages, provider.Message{
		Role:      provider.RoleModel,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	})
}

// chat sends one request and records it as an LLM span. A missing usage
// report is a protocol error.
func (l *Loop) chat(ctx context.Context, r *run, turn int, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	model := req.Model
	if model == "" && l.provider != nil {
		model = l.provider.DefaultModel()
	}

	start := time.Now()
	resp, err := l.provider.Chat(ctx, req)
	duration := time.Since(start)

	span := &timeline.Span{
		TraceID:    r.traceID,
		Turn:       turn,
		Kind:       timeline.SpanLLM,
		Name:       model,
		DurationMS: duration.Milliseconds(),
		StartedAt:  start.UTC(),
	}
	switch {
	case err != nil:
		err = fmt.Errorf("%w: LLM call failed: %v", ErrProtocol, err)
	case resp == nil:
		err = fmt.Errorf("%w: empty response", ErrProtocol)
	case resp.Usage == nil:
		err = fmt.Errorf("%w: response has no usage metadata", ErrProtocol)
	}
	if err != nil {
		span.IsError = true
		span.Result = err.Error()
		l.recordSpan(ctx, span)
		return nil, err
	}

	r.usage.PromptTokens += resp.Usage.PromptTokens
	r.usage.CompletionTokens += resp.Usage.CompletionTokens
	r.usage.ThoughtsTokens += resp.Usage.ThoughtsTokens
	r.usage.TotalTokens += resp.Usage.TotalTokens
	if l.onUsage != nil {
		l.onUsage(turn, *resp.Usage)
	}

	span.Result = llmSummary(resp)
	l.recordSpan(ctx, span)
	slog.Debug("LLM response", "turn", turn, "tool_calls", len(resp.ToolCalls),
		"prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens, "duration", duration)
	return resp, nil
}

func llmSummary(resp *provider.ChatResponse) string {
	summary := map[string]any{
		"finish_reason": resp.FinishReason,
		"total_tokens":  resp.Usage.TotalTokens,
	}
	if resp.Content != "" {
		summary["text"] = truncateStr(resp.Content, 2048)
	}
	if len(resp.ToolCalls) > 0 {
		names := make([]string, len(resp.ToolCalls))
		for i, tc := range resp.ToolCalls {
			names[i] = tc.Name
		}
		summary["tool_calls"] = names
	}
	data, _ := json.Marshal(summary)
	return string(data)
}

// executeTool checks a call against the policy, dispatches it and records
// it as a TOOL span.
func (l *Loop) executeTool(ctx context.Context, r *run, turn int, call provider.ToolCall) tools.Result {
	if l.onToolCall != nil {
		l.onToolCall(call)
	}

	start := time.Now()
	var res tools.Result
	if denied, reason := l.checkToolPolicy(r, call); denied {
		slog.Warn("Tool denied by policy", "tool", call.Name, "reason", reason)
		res = tools.ErrorResult(call, sandbox.KindDenied, "Policy denied: %s", reason)
	} else {
		res = l.registry.Dispatch(ctx, call)
	}
	duration := time.Since(start)

	args, _ := json.Marshal(call.Arguments)
	l.recordSpan(ctx, &timeline.Span{
		TraceID:    r.traceID,
		Turn:       turn,
		Kind:       timeline.SpanTool,
		Name:       call.Name,
		Arguments:  string(args),
		Result:     truncateStr(res.Text(), 10240),
		IsError:    res.Err != nil,
		DurationMS: duration.Milliseconds(),
		StartedAt:  start.UTC(),
	})
	slog.Debug("Tool executed", "name", call.Name, "error", res.Err != nil, "result_length", len(res.Payload))
	return res
}

// checkToolPolicy evaluates whether a tool call should proceed.
// Unknown tools pass through so the dispatcher can report them.
func (l *Loop) checkToolPolicy(r *run, call provider.ToolCall) (bool, string) {
	if l.policy == nil {
		return false, ""
	}
	kind, ok := tools.ParseKind(call.Name)
	if !ok {
		return false, ""
	}
	d := l.policy.Evaluate(policy.Context{
		Tool:      call.Name,
		Tier:      tools.Tier(kind),
		Arguments: call.Arguments,
		TraceID:   r.traceID,
	})
	if l.timeline != nil {
		if err := l.timeline.LogPolicyDecision(&timeline.PolicyDecisionRecord{
			TraceID: r.traceID,
			Tool:    call.Name,
			Tier:    d.Tier,
			Allowed: d.Allow,
			Reason:  d.Reason,
		}); err != nil {
			slog.Warn("Failed to log policy decision", "error", err)
		}
	}
	return !d.Allow, d.Reason
}

func (l *Loop) startTrace(prompt, mode string) *run {
	if l.timeline != nil {
		id, err := l.timeline.StartTrace(prompt, mode)
		if err == nil {
			return &run{traceID: id}
		}
		slog.Warn("Failed to start trace", "error", err)
	}
	return &run{traceID: uuid.NewString()}
}

func (l *Loop) finishTrace(r *run, out timeline.Outcome) {
	if l.timeline == nil {
		return
	}
	out.PromptTokens = r.usage.PromptTokens
	out.CompletionTokens = r.usage.CompletionTokens
	if err := l.timeline.FinishTrace(r.traceID, out); err != nil {
		slog.Warn("Failed to finish trace", "trace_id", r.traceID, "error", err)
	}
}

// recordSpan stores span and publishes it. Failures are logged only.
func (l *Loop) recordSpan(ctx context.Context, span *timeline.Span) {
	if l.timeline != nil {
		if err := l.timeline.AddSpan(span); err != nil {
			slog.Warn("Failed to record span", "kind", span.Kind, "name", span.Name, "error", err)
		}
	}
	if l.publisher != nil {
		if err := l.publisher.PublishSpan(ctx, *span); err != nil {
			slog.Warn("Failed to publish span", "kind", span.Kind, "name", span.Name, "error", err)
		}
	}
}

// truncateStr returns s trimmed to maxLen bytes.
func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
