// Command screenctl runs one-off screenings and cache maintenance without
// going through the HTTP service.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"screener/internal/platform/config"
	"screener/internal/platform/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "screenctl",
		Short: "Operator tool for the entity screening service",
		Long: `screenctl runs the screening pipeline directly against the configured
registry and web search providers, and maintains the shared result cache.

Configuration is read from the same environment variables and SCREENER_CONFIG
overlay file as the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().Bool("verbose", false, "Log pipeline activity to stderr")

	root.AddCommand(newCheckCmd(), newCacheCmd(), newConfigCmd())
	return root
}

// loadConfig reads configuration and builds the stderr logger for a command.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger) {
	cfg := config.Load()
	if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
		return cfg, logger.Discard()
	}
	return cfg, slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logger.ParseLevel(cfg.Log.Level),
	}))
}
