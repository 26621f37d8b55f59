package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jordanella.com/auto-clicker/internal/config"
	"jordanella.com/auto-clicker/internal/logging"
)

const version = "dev"

var (
	configPath string
	envPath    string
	targetsDir string
	verbose    bool
	noJournal  bool
)

// rootCmd scans the desktop and clicks targets until interrupted
var rootCmd = &cobra.Command{
	Use:   "auto-clicker",
	Short: "Click on-screen targets found by template matching",
	Long: `Repeatedly captures the whole virtual desktop, looks for each target
image in order and clicks the first one found.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runScan,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigFile, "path to the INI settings file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", config.DefaultEnvFile, "path to a dotenv file")
	rootCmd.PersistentFlags().StringVar(&targetsDir, "targets", "", "directory holding target images (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&noJournal, "no-journal", false, "do not record sessions and clicks in the journal database")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves settings from files, environment and flags and
// applies the log level
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath, envPath)
	if err != nil {
		return nil, err
	}
	if targetsDir != "" {
		cfg.TargetsDir = targetsDir
	}
	if verbose {
		cfg.LogLevel = "DEBUG"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logging.SetLevel(level)

	return cfg, nil
}
