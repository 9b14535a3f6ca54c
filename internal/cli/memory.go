package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/boxcoder/boxcoder/internal/memory"
)

var memorySearchTopK int

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect remembered questions and answers",
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every remembered exchange",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		records := a.memory.All()
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No memories yet.")
			return nil
		}
		printRecords(cmd.OutOrStdout(), records)
		return nil
	},
}

var memorySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Show the exchanges most relevant to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		records := a.memory.Query(strings.Join(args, " "), memorySearchTopK)
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No relevant memories.")
			return nil
		}
		printRecords(cmd.OutOrStdout(), records)
		return nil
	},
}

func init() {
	memorySearchCmd.Flags().IntVarP(&memorySearchTopK, "top", "k", memory.DefaultTopK, "Maximum number of results")
	memoryCmd.AddCommand(memoryListCmd)
	memoryCmd.AddCommand(memorySearchCmd)
}

func printRecords(w io.Writer, records []memory.Record) {
	for _, r := range records {
		fmt.Fprintf(w, "%s %s\n", color.CyanString("#%d", r.ID), r.User)
		fmt.Fprintf(w, "   %s\n", strings.ReplaceAll(r.Assistant, "\n", "\n   "))
	}
}
