package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mcp-nutrition-log/internal/config"
	"mcp-nutrition-log/internal/logging"
)

var (
	configPath  string
	envFile     string
	logLevel    string
	dbPath      string
	caloriesCSV string
)

var rootCmd = &cobra.Command{
	Use:   "nutrition-log",
	Short: "Food logging server with calorie totals and logging streaks",
	Long: `nutrition-log stores food log entries in SQLite, estimates daily calories
from a reference CSV, and tracks how many consecutive days have been logged.
It serves these as MCP tools over HTTP, and the same reports are available
from the command line.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file (ignored if missing)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: DEBUG, INFO, WARN, ERROR")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "Database path")
	rootCmd.PersistentFlags().StringVar(&caloriesCSV, "calories-csv", "", "Calorie reference CSV")
}

// loadConfig layers command-line flags over the file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("db-path") {
		cfg.DBPath = dbPath
	}
	if flags.Changed("calories-csv") {
		cfg.CaloriesCSV = caloriesCSV
	}
	if flags.Changed("port") {
		cfg.Port = servePort
	}
	if flags.Changed("host") {
		cfg.Host = serveHost
	}
	if flags.Changed("watch") {
		cfg.WatchCSV = serveWatch
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
