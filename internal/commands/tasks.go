package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"thegrid/internal/board"
	"thegrid/internal/model"
	"thegrid/internal/server"
)

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"ls"},
	Short:   "Print every task grouped by context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := server.OpenStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.StoreTimeout)
		defer cancel()
		tasks, err := store.FetchAll(ctx)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tasks)
		}
		renderTasks(cmd.OutOrStdout(), tasks)
		return nil
	},
}

func renderTasks(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks yet.")
		return
	}

	columns, unsorted := board.Partition(tasks)
	if len(unsorted) > 0 {
		columns = append(columns, board.Column{Context: "(no context)", Tasks: unsorted})
	}
	for _, col := range columns {
		if len(col.Tasks) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s (%d)\n", col.Context, len(col.Tasks))
		fmt.Fprintln(w, strings.Repeat("-", 60))
		for _, t := range col.Tasks {
			mark := " "
			if t.Completed {
				mark = "x"
			}
			line := fmt.Sprintf("[%s] %-40s", mark, truncate(t.Description, 40))
			if model.IsSchedulable(t) {
				line += fmt.Sprintf(" %s %s (%dm)", t.EventDate, t.Time, model.EffectiveDuration(t))
			} else if t.Deadline != "" {
				line += " due " + t.Deadline
			}
			fmt.Fprintln(w, strings.TrimRight(line, " "))
		}
		fmt.Fprintln(w)
	}
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func init() {
	tasksCmd.Flags().Bool("json", false, "print JSON instead of a table")
}
