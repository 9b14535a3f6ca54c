package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var traceListLimit int

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect recorded runs",
}

var traceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent traces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireTimeline(); err != nil {
			return err
		}

		traces, err := a.timeline.ListTraces(traceListLimit)
		if err != nil {
			return err
		}
		if len(traces) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No traces recorded.")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TRACE\tSTARTED\tMODE\tSTATUS\tTURNS\tPROMPT")
		for _, t := range traces {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				t.TraceID, t.StartedAt.Local().Format(time.DateTime), t.Mode, t.Status, t.Turns, oneLine(t.Prompt, 60))
		}
		return w.Flush()
	},
}

var traceShowCmd = &cobra.Command{
	Use:   "show <trace-id>",
	Short: "Show one trace with its spans and policy decisions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireTimeline(); err != nil {
			return err
		}

		t, err := a.timeline.GetTrace(args[0])
		if err != nil {
			return err
		}
		spans, err := a.timeline.ListSpans(t.TraceID)
		if err != nil {
			return err
		}
		decisions, err := a.timeline.ListPolicyDecisions(t.TraceID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", color.CyanString("Trace"), t.TraceID)
		fmt.Fprintf(out, "Prompt:  %s\n", t.Prompt)
		fmt.Fprintf(out, "Mode:    %s\n", t.Mode)
		fmt.Fprintf(out, "Status:  %s after %d turns\n", t.Status, t.Turns)
		fmt.Fprintf(out, "Tokens:  %d prompt, %d completion\n", t.PromptTokens, t.CompletionTokens)
		fmt.Fprintln(out)

		for _, s := range spans {
			marker := color.GreenString("ok ")
			if s.IsError {
				marker = color.RedString("err")
			}
			fmt.Fprintf(out, "[%d] %s %-4s %s (%dms)\n", s.Turn, marker, s.Kind, s.Name, s.DurationMS)
			if s.Arguments != "" {
				fmt.Fprintf(out, "      args:   %s\n", oneLine(s.Arguments, 120))
			}
			if s.Result != "" {
				fmt.Fprintf(out, "      result: %s\n", oneLine(s.Result, 120))
			}
		}

		if len(decisions) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Policy decisions:")
			for _, d := range decisions {
				verdict := color.GreenString("allow")
				if !d.Allowed {
					verdict = color.RedString("deny")
				}
				fmt.Fprintf(out, "  %s %s (tier %d): %s\n", verdict, d.Tool, d.Tier, d.Reason)
			}
		}
		if t.Answer != "" {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Answer:")
			fmt.Fprintln(out, t.Answer)
		}
		return nil
	},
}

func init() {
	traceListCmd.Flags().IntVarP(&traceListLimit, "limit", "n", 20, "Number of traces to show")
	traceCmd.AddCommand(traceListCmd)
	traceCmd.AddCommand(traceShowCmd)
}

// oneLine flattens s and cuts it to at most n runes.
func oneLine(s string, n int) string {
	r := []rune(s)
	for i, c := range r {
		if c == '\n' || c == '\r' || c == '\t' {
			r[i] = ' '
		}
	}
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return string(r)
}
