package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Scoring: ScoringConfig{
			Weights:          map[string]float64{"build": 0.25, "tests": 0.35, "lint": 0.1, "diff_scope": 0.15, "speed": 0.15},
			MaxTestRegression: 0,
			DiffScope:        DiffScopeConfig{ProtectedCap: 40},
			AllowedTestDrop:  0.1,
			TestDropCapScore: 50,
		},
		Worktree: WorktreeConfig{BaseDir: ".hydra/worktrees", RetentionDays: 7},
		Supervisor: SupervisorConfig{
			HardTimeout: "30m", IdleTimeout: "5m", GracePeriod: "10s", BufferCap: 2000,
		},
		Budget: BudgetConfig{MaxTotalTokens: 0, MaxCostUSD: 0},
	}
}

func TestValidateConfig_AcceptsDefaults(t *testing.T) {
	require.NoError(t, ValidateConfig(validConfig()))
}

func TestValidateConfig_RejectsNegativeWeight(t *testing.T) {
	cfg := validConfig()
	cfg.Scoring.Weights["tests"] = -1
	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scoring.weights.tests")
}

func TestValidateConfig_RejectsMalformedDuration(t *testing.T) {
	cfg := validConfig()
	cfg.Supervisor.HardTimeout = "not-a-duration"
	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supervisor.hard_timeout")
}

func TestValidateConfig_RejectsEmptyWorktreeBaseDir(t *testing.T) {
	cfg := validConfig()
	cfg.Worktree.BaseDir = ""
	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worktree.base_dir")
}

func TestValidateConfig_AggregatesMultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Worktree.BaseDir = ""
	cfg.Budget.MaxCostUSD = -5
	err := ValidateConfig(cfg)
	require.Error(t, err)
	verrs, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, verrs, 2)
}
