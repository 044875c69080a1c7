package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default returns the built-in configuration values, mirroring the
// defaults Loader.setDefaults registers with viper. It is the single
// source of truth for `hydra config init`'s starter file.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "auto"},
		Scoring: ScoringConfig{
			Profile:           "default",
			CommandTimeout:    "10m",
			Weights:           map[string]float64{"build": 0.25, "tests": 0.35, "lint": 0.10, "diff_scope": 0.15, "speed": 0.15},
			RequireBuildPass:  true,
			MaxTestRegression: 0,
			DiffScope:         DiffScopeConfig{MaxLinesChanged: 800, MaxFilesTouched: 40, ProtectedCap: 40.0},
			RegressionPenaltyPerTest: 0.05,
			NewTestBonusPerTest:      1.0,
			AllowedTestDrop:          0.1,
			TestDropCapScore:         50.0,
			LintPenaltyPerWarning:    2.0,
		},
		Adapters: AdaptersConfig{
			Claude:   AdapterConfig{Enabled: true, Path: "claude"},
			Codex:    AdapterConfig{Enabled: true, Path: "codex"},
			Gemini:   AdapterConfig{Enabled: true, Path: "gemini"},
			Copilot:  AdapterConfig{Enabled: false, Path: "copilot"},
			Opencode: AdapterConfig{Enabled: false, Path: "opencode"},
		},
		Worktree:   WorktreeConfig{BaseDir: ".hydra/worktrees", RetentionDays: 7},
		Supervisor: SupervisorConfig{HardTimeout: "30m", IdleTimeout: "5m", GracePeriod: "10s", BufferCap: 2000},
		Budget:     BudgetConfig{},
	}
}

// WriteDefault marshals the default configuration to YAML and writes it to
// path atomically, failing if a file already exists there so `config init`
// never clobbers an operator's edits.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshaling default config: %w", err)
	}
	return AtomicWriteIfAbsent(path, data)
}

// AtomicWriteIfAbsent calls AtomicWrite but refuses to overwrite an
// existing file.
func AtomicWriteIfAbsent(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", filepath.Clean(path))
	}
	return AtomicWrite(path, data)
}
