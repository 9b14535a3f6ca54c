package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/boxcoder/boxcoder/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "boxcoder %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and storage status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		printHeader(out, "boxcoder status")
		fmt.Fprintf(out, "Version:  %s\n", version)

		if path, err := config.ConfigPath(); err == nil && fileExists(path) {
			fmt.Fprintln(out, "Config:   "+check(true)+" "+path)
		} else {
			fmt.Fprintln(out, "Config:   "+check(false)+" not found (using defaults)")
		}

		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()
		cfg := a.cfg

		fmt.Fprintln(out, "API key:  "+check(cfg.Providers.Gemini.APIKey != ""))
		fmt.Fprintf(out, "Model:    %s\n", cfg.Model.Name)

		root, _ := filepath.Abs(cfg.Paths.WorkingRoot)
		fmt.Fprintf(out, "Sandbox:  %s %s\n", check(fileExists(root)), root)
		fmt.Fprintf(out, "Memory:   %d records in %s\n", len(a.memory.All()), a.memory.Path())

		switch {
		case cfg.Paths.TimelineDB == "":
			fmt.Fprintln(out, "Timeline: disabled")
		case a.timeline == nil:
			fmt.Fprintf(out, "Timeline: %s %s\n", check(false), cfg.Paths.TimelineDB)
		default:
			fmt.Fprintf(out, "Timeline: %s %s\n", check(true), cfg.Paths.TimelineDB)
		}
		if cfg.Trace.KafkaBrokers == "" {
			fmt.Fprintln(out, "Spans:    not published")
		} else {
			fmt.Fprintf(out, "Spans:    %s -> %s\n", cfg.Trace.KafkaBrokers, cfg.Trace.Topic)
		}
		fmt.Fprintf(out, "Policy:   max tier %d, denied %v\n", cfg.Tools.MaxAutoTier, cfg.Tools.Deny)
		return nil
	},
}

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w, color.CyanString(title))
	fmt.Fprintln(w)
}

func check(ok bool) string {
	if ok {
		return color.GreenString("✓")
	}
	return color.RedString("✗")
}
