package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "naimeta",
		Short: "Extract generation metadata from AI-generated images",
		Long: `naimeta recovers the prompt, negative prompt, model and sampler settings
that image generators embed in their output.

It reads PNG text chunks, detects stealth-encoded images, normalizes JSON,
key-value and free-text descriptions, and merges every source by priority
into a single record.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			// Logs go to stderr so exports can be piped from stdout
			logLevel := slog.LevelInfo
			if verbose {
				logLevel = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
			slog.SetDefault(logger)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(newExtractCmd())
	cmd.AddCommand(newChunksCmd())
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}
