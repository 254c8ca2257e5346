package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yairfalse/amireaper/config"
	"github.com/yairfalse/amireaper/storage"
)

var (
	historyConfigPath string
	historyLimit      int
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show previously recorded scan runs",
	Long: `List recorded scan runs, newest first.

Comparing the candidate counts of consecutive runs is the cheapest
sanity check before acting on a candidate list: a sudden jump usually
means a reference source was misconfigured, not that dozens of AMIs
became garbage overnight.`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVarP(&historyConfigPath, "config", "c", "", "Path to configuration file")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Maximum number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if historyConfigPath != "" {
		loaded, err := config.Load(historyConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	store, err := storage.Open(cfg.StatePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.Runs(historyLimit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tREGION\tOWNED\tREFERENCED\tCANDIDATES")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n",
			run.Timestamp.Local().Format(time.RFC3339),
			run.Region,
			run.CatalogSize,
			run.ReferencedCount,
			len(run.Candidates),
		)
	}
	return w.Flush()
}
