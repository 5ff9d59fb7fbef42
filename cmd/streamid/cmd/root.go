// Package cmd implements the CLI commands for streamid.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/afylking/streamid/internal/config"
	"github.com/afylking/streamid/internal/observability"
	"github.com/afylking/streamid/internal/version"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "streamid",
	Short:   "Identify encrypted adaptive-bitrate video streams from traffic shape",
	Version: version.Short(),
	Long: `streamid observes TLS-encrypted segment sizes on the wire and matches
their shape against a fingerprint database of known video titles, without
decrypting or inspecting payload.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./.streamid.yaml, /etc/streamid, $HOME)")
}

// loadConfig reads configuration via internal/config.Load and wires up a
// masq-redacting slog logger as the process default.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger := observability.NewLogger(cfg.Logging)
	observability.SetDefault(logger)

	return cfg, logger, nil
}
