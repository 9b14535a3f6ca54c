// Package cli implements the boxcoder command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/boxcoder/boxcoder/internal/cli.version=1.2.3"
	version = "0.3.0"
	logo    = "\n" +
		"  _                             _\n" +
		" | |__   _____  _____ ___   __| | ___ _ __\n" +
		" | '_ \\ / _ \\ \\/ / __/ _ \\ / _` |/ _ \\ '__|\n" +
		" | |_) | (_) >  < (_| (_) | (_| |  __/ |\n" +
		" |_.__/ \\___/_/\\_\\___\\___/ \\__,_|\\___|_|\n"
)

// errReported marks a failure that has already been shown to the user.
var errReported = errors.New("reported")

var (
	verbose    bool
	structured bool
)

var rootCmd = &cobra.Command{
	Use:           "boxcoder <prompt>",
	Short:         "boxcoder - a coding assistant confined to one directory",
	Long:          color.CyanString(logo) + "\nAnswers a prompt by reading, writing and running files inside a sandboxed working directory.",
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPrompt,
}

// Execute runs the root command. Errors are printed here; the caller only
// picks the exit code.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
	}
	return err
}

func init() {
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show each function call with its arguments, token usage and debug logs")
	rootCmd.Flags().BoolVar(&structured, "structured", false, "Ask for a JSON plan instead of acting")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(traceCmd)
}
