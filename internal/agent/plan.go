package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/boxcoder/boxcoder/internal/provider"
	"github.com/boxcoder/boxcoder/internal/timeline"
)

// Plan is a dry-run answer: what the model would do, without doing it.
type Plan struct {
	Goal      string        `json:"goal"`
	Steps     []PlanStep    `json:"steps"`
	ToolCalls []PlannedCall `json:"tool_calls"`
}

// PlanStep is one ordered step of a Plan.
type PlanStep struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// PlannedCall is a tool call the model intends to make. ParamsJSON holds the
// call's parameters as a JSON document.
type PlannedCall struct {
	Tool       string `json:"tool"`
	ParamsJSON string `json:"params_json"`
}

// PlanSchema returns the JSON schema the model's plan must follow.
func PlanSchema() map[string]any {
	str := map[string]any{"type": "string"}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"goal": str,
			"steps": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"action": str,
						"reason": str,
					},
					"required": []string{"action", "reason"},
				},
			},
			"tool_calls": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"tool":        str,
						"params_json": str,
					},
					"required": []string{"tool", "params_json"},
				},
			},
		},
		"required": []string{"goal", "steps", "tool_calls"},
	}
}

// Plan asks the model for a structured plan in a single turn. No tools are
// declared and nothing is dispatched or remembered.
func (l *Loop) Plan(ctx context.Context, prompt string) (*Plan, error) {
	r := l.startTrace(prompt, timeline.ModePlan)

	resp, err := l.chat(ctx, r, 1, &provider.ChatRequest{
		Messages:       []provider.Message{{Role: provider.RoleUser, Content: prompt}},
		System:         l.contextBuilder.BuildPlanPrompt(),
		Model:          l.model,
		MaxTokens:      l.maxTokens,
		Temperature:    l.temperature,
		ResponseSchema: PlanSchema(),
	})
	if err != nil {
		l.finishTrace(r, timeline.Outcome{Status: timeline.StatusFailed, Answer: err.Error(), Turns: 1})
		return nil, err
	}

	plan, err := parsePlan(resp.Content)
	if err != nil {
		l.finishTrace(r, timeline.Outcome{Status: timeline.StatusFailed, Answer: err.Error(), Turns: 1})
		return nil, err
	}
	l.finishTrace(r, timeline.Outcome{Status: timeline.StatusPlanned, Answer: resp.Content, Turns: 1})
	return plan, nil
}

func parsePlan(content string) (*Plan, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return nil, fmt.Errorf("%w: empty plan", ErrProtocol)
	}
	var plan Plan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return nil, fmt.Errorf("%w: invalid plan JSON: %v", ErrProtocol, err)
	}
	return &plan, nil
}
