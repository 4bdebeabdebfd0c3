package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/logsentry/logsentry/internal/config"
	"github.com/logsentry/logsentry/internal/counter"
)

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Show persisted call counts against the configured limits",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		state, err := counter.NewStore(cfg.StatePath).Load()
		if err != nil {
			// Corrupt state renders as empty, same as the pipeline treats it.
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}

		now := time.Now().UTC()
		lastRun := "-"
		if !state.LastRunAt.IsZero() {
			lastRun = state.LastRunAt.UTC().Format(time.RFC3339)
		}

		lines := []string{
			"Rate Limits",
			"",
			fmt.Sprintf("hourly:       %d/%d", state.CountSince(now.Add(-time.Hour)), cfg.Limits.MaxPerHour),
			fmt.Sprintf("daily:        %d/%d", state.CountSince(now.Add(-24*time.Hour)), cfg.Limits.MaxPerDay),
			fmt.Sprintf("min interval: %s", cfg.Limits.MinInterval),
			fmt.Sprintf("last run:     %s", lastRun),
		}

		_, _ = fmt.Fprint(cmd.OutOrStdout(), ascii.DrawBox(strings.Join(lines, "\n"), 0))
		return nil
	},
}
