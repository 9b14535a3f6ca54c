// Package policy decides whether a tool call the model requested may run.
package policy

import (
	"fmt"
	"time"

	"github.com/boxcoder/boxcoder/internal/tools"
)

// Context holds information about a pending tool execution.
type Context struct {
	Tool      string
	Tier      int
	Arguments map[string]any
	TraceID   string
}

// Decision is the result of a policy evaluation.
type Decision struct {
	Allow   bool
	Reason  string
	Tier    int
	Ts      time.Time
	TraceID string
}

// Engine evaluates whether a tool execution should proceed.
type Engine interface {
	Evaluate(ctx Context) Decision
}

// DefaultEngine checks the tool against a deny list and a maximum tier.
type DefaultEngine struct {
	// MaxAutoTier is the highest tier that runs without refusal.
	MaxAutoTier int
	// Deny names tools that are always refused.
	Deny []string
}

// NewDefaultEngine creates a policy engine that allows every tool.
func NewDefaultEngine() *DefaultEngine {
	return &DefaultEngine{MaxAutoTier: tools.TierHighRisk}
}

// Evaluate checks the deny list, then the tool tier.
func (e *DefaultEngine) Evaluate(ctx Context) Decision {
	d := Decision{
		Tier:    ctx.Tier,
		Ts:      time.Now(),
		TraceID: ctx.TraceID,
	}

	for _, name := range e.Deny {
		if name == ctx.Tool {
			d.Reason = fmt.Sprintf("tool_%s_denied", ctx.Tool)
			return d
		}
	}

	if ctx.Tier == tools.TierReadOnly {
		d.Allow = true
		d.Reason = "tier_0_always_allowed"
		return d
	}

	if ctx.Tier > e.MaxAutoTier {
		d.Reason = fmt.Sprintf("tier_%d_exceeds_max_%d", ctx.Tier, e.MaxAutoTier)
		return d
	}

	d.Allow = true
	d.Reason = fmt.Sprintf("tier_%d_auto_approved", ctx.Tier)
	return d
}
