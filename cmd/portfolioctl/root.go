package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bimakw/chain-portfolio/internal/config"
	"github.com/bimakw/chain-portfolio/internal/logger"
)

var (
	logLevel  string
	logFormat string

	cfg *config.Config
	log *zap.Logger
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "portfolioctl",
	Short: "Operate the chain-portfolio cache",
	Long: `portfolioctl manages the cache schema and runs one-off portfolio and
transaction lookups against Ethereum and Solana using the same configuration
as the API server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		level := cfg.Log.Level
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		format := cfg.Log.Format
		if cmd.Flags().Changed("log-format") {
			format = logFormat
		}

		log, err = logger.New(level, format)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	// Global flags override LOG_LEVEL and LOG_FORMAT
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (json, console)")
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
