package main

import (
	"log/slog"
	"os"

	"github.com/pixbin/pixbin/pkg/prettylog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pixbin",
	Short: "SAML-protected image bin",
}

func main() {
	if os.Getenv("PRETTY_LOGS") != "false" {
		logger := slog.New(prettylog.NewHandler(slog.LevelDebug))
		slog.SetDefault(logger)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
