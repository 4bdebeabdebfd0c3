// Package cmd wires the logsentry command tree. The root command runs one
// guarded classification pass; subcommands inspect limits and run history.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/logsentry/logsentry/internal/observability"
)

var (
	cfgFile string
	verbose bool
	dryRun  bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by the main package to set version information.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   "logsentry",
	Short: "AI-graded log digest alerting",
	Long: `logsentry classifies a daily log digest with an external AI model and
emails a severity-graded alert when the verdict crosses the configured
threshold. Calls are guarded by persisted rate limits, a cross-process
lock, and bounded retries, so a cron-driven deployment cannot overrun
the provider.`,
	SilenceUsage: true,
	RunE:         runPipeline,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default /etc/logsentry/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "run the pipeline but skip SMTP delivery")

	rootCmd.AddCommand(limitsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func initLogging() {
	observability.InitCLILogger("logsentry", verbose)
}
