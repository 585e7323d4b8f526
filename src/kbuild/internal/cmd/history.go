package cmd

import (
	"fmt"
	"time"

	"github.com/rsuntk/kbuild/src/kbuild/internal/history"
	"github.com/rsuntk/kbuild/src/kbuild/internal/output"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded build runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded build runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

func init() {
	historyCmd.AddCommand(historyListCmd)

	historyListCmd.Flags().Int("limit", 20, "Maximum number of runs to show (0 for all)")
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	db, err := history.Open(cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer db.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	records, err := db.List(limit)
	if err != nil {
		return err
	}

	switch getOutputFormat() {
	case "json":
		return output.PrintJSON(records)
	default:
		if len(records) == 0 {
			output.PrintMessage("No recorded builds.")
			return nil
		}

		rows := make([][]string, len(records))
		for i, r := range records {
			rows[i] = []string{
				r.CreatedAt.Format(time.RFC3339),
				r.Device,
				r.Status,
				r.Archive,
				fmt.Sprintf("%dm", r.DurationMs/60000),
			}
		}
		output.PrintTable([]string{"TIME", "DEVICE", "STATUS", "ARCHIVE", "DURATION"}, rows)
		return nil
	}
}
