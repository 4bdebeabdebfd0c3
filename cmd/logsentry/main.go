package main

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/joho/godotenv"

	"github.com/logsentry/logsentry/internal/cmd"
)

// Version information set via ldflags during build
// Example: go build -ldflags="-X main.version=1.0.0 -X main.commit=abc123 -X main.buildDate=2026-08-30"
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// Optional .env for LOGSENTRY_API_KEY and friends; absence is fine.
	_ = godotenv.Load()

	cmd.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		cmd.ExitWithCodeStderr(foundry.ExitFailure, "Command execution failed", err)
	}
}
