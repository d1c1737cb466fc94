// Command voicesim simulates the voice side of interview calls: a scripted
// voice provider for local runs and a load driver for the gateway.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	root := &cobra.Command{
		Use:           "voicesim",
		Short:         "Scripted voice provider and gateway load driver",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCMD(), callCMD())

	if err := root.Execute(); err != nil {
		slog.Error("voicesim failed", "error", err)
		os.Exit(1)
	}
}
