package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/boxcoder/boxcoder/internal/agent"
	"github.com/boxcoder/boxcoder/internal/provider"
)

func runPrompt(cmd *cobra.Command, args []string) error {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	out := cmd.OutOrStdout()
	if prompt == "" {
		fmt.Fprintln(out, "I didn't receive a prompt!")
		return errReported
	}

	a, err := newApp(verbose)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	prov, err := newProvider(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("provider: %w", err)
	}

	loop, err := a.loop(prov, agent.LoopOptions{
		OnToolCall: func(call provider.ToolCall) {
			if verbose {
				argsJSON, _ := json.Marshal(call.Arguments)
				fmt.Fprintf(out, "Calling function: %s(%s)\n", call.Name, argsJSON)
				return
			}
			fmt.Fprintf(out, " - Calling function: %s\n", call.Name)
		},
		OnUsage: func(turn int, usage provider.Usage) {
			if verbose {
				fmt.Fprintf(out, "Prompt tokens: %d\nResponse tokens: %d\n", usage.PromptTokens, usage.CompletionTokens)
			}
		},
	})
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(out, "User prompt: %s\n", prompt)
	}

	if structured {
		plan, err := loop.Plan(ctx, prompt)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	result, err := loop.Run(ctx, prompt)
	if errors.Is(err, agent.ErrIterationsExhausted) {
		fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString(result.Text))
		return errReported
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Final response:")
	fmt.Fprintln(out, result.Text)
	if result.PersistErr != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("Warning: answer not saved to memory: %v", result.PersistErr))
	}
	if verbose && result.TraceID != "" {
		fmt.Fprintf(out, "Trace: %s (%d turns, %d tokens)\n", result.TraceID, result.Turns, result.Usage.TotalTokens)
	}
	return nil
}
