// =============================================================================
// UWV Sickness Notification XML Generator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (uwvzw)
//   ├── processCmd      (uwvzw process)
//   ├── validateCmd     (uwvzw validate)
//   ├── extractBodyCmd  (uwvzw extract-body)
//   ├── tagDatasetsCmd  (uwvzw tag-datasets)
//   └── versionCmd      (uwvzw version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the main configuration before any subcommand runs
//   3. Setting up the zap logger from the configuration
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ginjaninja78/uwv-zw-xml/internal/config"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging to the console.
var verbose bool

// mainConfig is loaded in PersistentPreRunE.
var mainConfig *config.MainConfig

// logger is built from mainConfig in PersistentPreRunE.
var logger = zap.NewNop()

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "uwvzw",
	Short: "UWV sickness notification generator - spreadsheet uploads to UwvML XML",
	Long: `uwvzw turns spreadsheet uploads of sickness notifications into UWV
UwvML SOAP envelopes (ZBM, VM or Digipoort/OTP3), validates the message
bodies against the XSD and packages the generated files for download.

Example Usage:
  uwvzw process meldingen.xlsx --sender ZBM --validate
  uwvzw process ./uploads --config ./uwv.toml
  uwvzw validate output/v0428/zbm_bulk_20240301_093000.xml
  uwvzw extract-body envelope.xml -o body.xml
  uwvzw tag-datasets --file docs/datasets.yml --auto`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		mainConfig = cfg

		l, err := newLogger(cfg, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file (YAML or TOML)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging on the console",
	)
}

// loadConfig reads --config. A missing default config file is not an error:
// the built-in defaults are used instead.
func loadConfig(cmd *cobra.Command) (*config.MainConfig, error) {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, config.ErrConfigNotFound) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	return nil, fmt.Errorf("failed to load main config: %w", err)
}

// newLogger builds the zap logger for the configured level and log file.
//
// PARAMETERS:
//   - cfg: Supplies log_level and log_file.
//   - debug: Use the development console encoder at debug level.
//
// RETURNS:
//   - The logger.
//   - An error if the level is invalid or the log file cannot be opened.
func newLogger(cfg *config.MainConfig, debug bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if debug {
		zc = zap.NewDevelopmentConfig()
	} else {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}

	if cfg.LogFile != "" {
		zc.OutputPaths = append(zc.OutputPaths, cfg.LogFile)
	}
	return zc.Build()
}
