package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastygo/leadboard/internal/config"
	"github.com/fastygo/leadboard/pkg/logger"
)

var (
	configPath string
	logLevel   string

	cfg       *config.Config
	zapLogger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "leadboard",
	Short:         "Lead and task tracking API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if cmd.Flags().Changed("log-level") {
			loaded.Logger.Level = logLevel
		}

		l, err := logger.New(logger.Config{
			Level:    loaded.Logger.Level,
			Encoding: loaded.Logger.Encoding,
		})
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}

		cfg = loaded
		zapLogger = l.With(zap.String("app", loaded.AppName), zap.String("env", loaded.Environment))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if zapLogger != nil {
			_ = zapLogger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (defaults to $CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	// Running the binary without a subcommand starts the server.
	if len(os.Args) == 1 {
		rootCmd.SetArgs([]string{"serve"})
	}
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("leadboard: %v", err)
	}
}
