package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logsentry/logsentry/internal/config"
	"github.com/logsentry/logsentry/internal/output"
	"github.com/logsentry/logsentry/internal/store"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if !cfg.History.Enabled {
			return fmt.Errorf("run history is disabled in the configuration")
		}

		db, err := store.Open(cmd.Context(), cfg.History.Path)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		if err := db.Migrate(cmd.Context()); err != nil {
			return err
		}

		records, err := db.ListRuns(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}

		if historyJSON {
			payload, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), output.FormatRuns(records))
		return err
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Emit JSON instead of a table")
}
