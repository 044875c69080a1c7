// Package cmd implements the hydra CLI: doctor, race, and merge, wired
// against the orchestration packages under internal/.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hydra-cli/hydra/internal/config"
	"github.com/hydra-cli/hydra/internal/core"
	"github.com/hydra-cli/hydra/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	jsonOut   bool

	appVersion string
	appCommit  string
	appDate    string

	loader *config.Loader
	cfg    *config.Config
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:           "hydra",
	Short:         "Race multiple coding agents against one prompt and merge the best diff",
	Long:          `hydra fans a single prompt out across several coding agent CLIs, each in its own git worktree, scores the resulting diffs against a captured baseline, and merges the winner on operator confirmation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initConfig(cmd)
	},
}

// Execute runs the root command and returns the process exit code per the
// CLI contract: 0 success, 1 operational failure, 2 usage error, 3
// readiness failure.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	code := exitCodeForError(err)
	fmt.Fprintln(os.Stderr, "hydra: "+err.Error())
	return code
}

func exitCodeForError(err error) int {
	var domErr *core.DomainError
	if de, ok := err.(*core.DomainError); ok {
		domErr = de
	}
	if domErr == nil {
		return 1
	}
	switch domErr.Category {
	case core.ErrCatReadiness:
		return 3
	case core.ErrCatValidation:
		return 2
	default:
		return 1
	}
}

// SetVersion injects build metadata supplied by the linker.
func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .hydra/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto", "log format (auto, text, json)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "emit machine-readable JSON to stdout instead of a rendered table")
}

func initConfig(_ *cobra.Command) error {
	v := viper.New()
	loader = config.NewLoaderWithViper(v)
	if cfgFile != "" {
		loader = loader.WithConfigFile(cfgFile)
	}

	loaded, err := loader.Load()
	if err != nil {
		return core.ErrValidation("CONFIG_LOAD_FAILED", err.Error())
	}
	if err := config.ValidateConfig(loaded); err != nil {
		return core.ErrValidation("CONFIG_INVALID", err.Error())
	}
	cfg = loaded

	level := logLevel
	if level == "" {
		level = cfg.Log.Level
	}
	format := logFormat
	if format == "" {
		format = cfg.Log.Format
	}
	logger = logging.New(logging.Config{Level: level, Format: format, Output: os.Stderr, File: cfg.Log.File})

	return nil
}
