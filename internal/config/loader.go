package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from flags, environment, and a
// project config file, in that precedence order.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
	projectDir string
	mu         sync.Mutex
}

// NewLoader creates a configuration loader seeded with defaults.
func NewLoader() *Loader {
	return &Loader{v: viper.New(), envPrefix: "HYDRA"}
}

// NewLoaderWithViper creates a loader using an existing viper instance,
// for integration with cobra flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v, envPrefix: "HYDRA"}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads configuration from (highest to lowest precedence): CLI flags
// bound onto the viper instance, HYDRA_* environment variables,
// .hydra/config.yaml in the project directory, and the built-in defaults.
// Recognized options are a closed set: any unrecognized top-level key in
// the config file produces a parse error naming the offending key.
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".hydra")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "hydra"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := checkUnknownKeys(l.v.AllSettings(), recognizedKeys); err != nil {
		return nil, err
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Worktree.BaseDir != "" && !filepath.IsAbs(cfg.Worktree.BaseDir) {
		wd, err := os.Getwd()
		if err == nil {
			cfg.Worktree.BaseDir = filepath.Join(wd, cfg.Worktree.BaseDir)
		}
	}
	l.projectDir, _ = os.Getwd()

	return &cfg, nil
}

// ProjectDir returns the working directory resolved during the last Load.
func (l *Loader) ProjectDir() string {
	return l.projectDir
}

// ConfigFile returns the config file path actually used, if any.
func (l *Loader) ConfigFile() string {
	if l.configFile != "" {
		return l.configFile
	}
	return l.v.ConfigFileUsed()
}

// recognizedKeys is the closed set of top-level config sections. Anything
// else in a config file is rejected rather than silently ignored.
var recognizedKeys = map[string]bool{
	"log": true, "scoring": true, "adapters": true,
	"worktree": true, "supervisor": true, "budget": true,
}

func checkUnknownKeys(settings map[string]interface{}, allowed map[string]bool) error {
	for k := range settings {
		if !allowed[k] {
			return fmt.Errorf("unrecognized config key %q: recognized top-level keys are log, scoring, adapters, worktree, supervisor, budget", k)
		}
	}
	return nil
}

func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("scoring.profile", "default")
	l.v.SetDefault("scoring.command_timeout", "10m")
	l.v.SetDefault("scoring.weights.build", 0.25)
	l.v.SetDefault("scoring.weights.tests", 0.35)
	l.v.SetDefault("scoring.weights.lint", 0.10)
	l.v.SetDefault("scoring.weights.diff_scope", 0.15)
	l.v.SetDefault("scoring.weights.speed", 0.15)
	l.v.SetDefault("scoring.require_build_pass", true)
	l.v.SetDefault("scoring.max_test_regression", 0)
	l.v.SetDefault("scoring.diff_scope.max_lines_changed", 800)
	l.v.SetDefault("scoring.diff_scope.max_files_touched", 40)
	l.v.SetDefault("scoring.diff_scope.protected_cap", 40.0)
	l.v.SetDefault("scoring.regression_penalty_per_test", 0.05)
	l.v.SetDefault("scoring.new_test_bonus_per_test", 1.0)
	l.v.SetDefault("scoring.allowed_test_drop", 0.1)
	l.v.SetDefault("scoring.test_drop_cap_score", 50.0)
	l.v.SetDefault("scoring.lint_penalty_per_warning", 2.0)

	l.v.SetDefault("adapters.claude.enabled", true)
	l.v.SetDefault("adapters.claude.path", "claude")
	l.v.SetDefault("adapters.codex.enabled", true)
	l.v.SetDefault("adapters.codex.path", "codex")
	l.v.SetDefault("adapters.gemini.enabled", true)
	l.v.SetDefault("adapters.gemini.path", "gemini")
	l.v.SetDefault("adapters.copilot.enabled", false)
	l.v.SetDefault("adapters.copilot.path", "copilot")
	l.v.SetDefault("adapters.opencode.enabled", false)
	l.v.SetDefault("adapters.opencode.path", "opencode")

	l.v.SetDefault("worktree.base_dir", ".hydra/worktrees")
	l.v.SetDefault("worktree.retention_days", 7)

	l.v.SetDefault("supervisor.hard_timeout", "30m")
	l.v.SetDefault("supervisor.idle_timeout", "5m")
	l.v.SetDefault("supervisor.grace_period", "10s")
	l.v.SetDefault("supervisor.buffer_cap", 2000)

	l.v.SetDefault("budget.max_total_tokens", 0)
	l.v.SetDefault("budget.max_cost_usd", 0.0)
}
