package config

// Config holds all application configuration for a race/merge invocation.
// Every field here is the closed set of recognized keys; loading rejects
// anything outside it (see Loader.Load).
type Config struct {
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Scoring    ScoringConfig    `mapstructure:"scoring" yaml:"scoring"`
	Adapters   AdaptersConfig   `mapstructure:"adapters" yaml:"adapters"`
	Worktree   WorktreeConfig   `mapstructure:"worktree" yaml:"worktree"`
	Supervisor SupervisorConfig `mapstructure:"supervisor" yaml:"supervisor"`
	Budget     BudgetConfig     `mapstructure:"budget" yaml:"budget"`
}

// LogConfig configures structured logging output.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file,omitempty"`
}

// ScoringConfig configures the Scoring Engine's per-dimension weights,
// mergeability gates, and the command profile run inside every worktree.
type ScoringConfig struct {
	Profile                  string             `mapstructure:"profile" yaml:"profile"`
	Build                    []string           `mapstructure:"build" yaml:"build,omitempty"`
	Test                     []string           `mapstructure:"test" yaml:"test,omitempty"`
	Lint                     []string           `mapstructure:"lint" yaml:"lint,omitempty"`
	CommandTimeout           string             `mapstructure:"command_timeout" yaml:"command_timeout"`
	Weights                  map[string]float64 `mapstructure:"weights" yaml:"weights"`
	RequireBuildPass         bool               `mapstructure:"require_build_pass" yaml:"require_build_pass"`
	MaxTestRegression        int                `mapstructure:"max_test_regression" yaml:"max_test_regression"`
	DiffScope                DiffScopeConfig    `mapstructure:"diff_scope" yaml:"diff_scope"`
	RegressionPenaltyPerTest float64            `mapstructure:"regression_penalty_per_test" yaml:"regression_penalty_per_test"`
	NewTestBonusPerTest      float64            `mapstructure:"new_test_bonus_per_test" yaml:"new_test_bonus_per_test"`
	AllowedTestDrop          float64            `mapstructure:"allowed_test_drop" yaml:"allowed_test_drop"`
	TestDropCapScore         float64            `mapstructure:"test_drop_cap_score" yaml:"test_drop_cap_score"`
	LintPenaltyPerWarning    float64            `mapstructure:"lint_penalty_per_warning" yaml:"lint_penalty_per_warning"`
}

// DiffScopeConfig bounds how much churn an agent may introduce before the
// diff-scope dimension starts penalizing it.
type DiffScopeConfig struct {
	MaxLinesChanged int      `mapstructure:"max_lines_changed" yaml:"max_lines_changed"`
	MaxFilesTouched int      `mapstructure:"max_files_touched" yaml:"max_files_touched"`
	ProtectedPaths  []string `mapstructure:"protected_paths" yaml:"protected_paths,omitempty"`
	ProtectedCap    float64  `mapstructure:"protected_cap" yaml:"protected_cap"`
}

// AdaptersConfig holds per-adapter overrides layered on top of the
// registry's built-in defaults.
type AdaptersConfig struct {
	Claude   AdapterConfig `mapstructure:"claude" yaml:"claude"`
	Codex    AdapterConfig `mapstructure:"codex" yaml:"codex"`
	Gemini   AdapterConfig `mapstructure:"gemini" yaml:"gemini"`
	Copilot  AdapterConfig `mapstructure:"copilot" yaml:"copilot"`
	Opencode AdapterConfig `mapstructure:"opencode" yaml:"opencode"`
}

// AdapterConfig configures one adapter's binary path and extra invocation
// arguments. Enabled defaults to true for tier-one adapters; an adapter
// set to enabled=false is excluded from an unqualified `--agents all`.
type AdapterConfig struct {
	Enabled   bool     `mapstructure:"enabled" yaml:"enabled"`
	Path      string   `mapstructure:"path" yaml:"path"`
	ExtraArgs []string `mapstructure:"extra_args" yaml:"extra_args,omitempty"`
}

// WorktreeConfig configures where per-agent worktrees are created and how
// long their artifacts are retained after a run completes.
type WorktreeConfig struct {
	BaseDir       string `mapstructure:"base_dir" yaml:"base_dir"`
	RetentionDays int    `mapstructure:"retention_days" yaml:"retention_days"`
}

// SupervisorConfig bounds every agent process the Process Supervisor
// spawns.
type SupervisorConfig struct {
	HardTimeout string `mapstructure:"hard_timeout" yaml:"hard_timeout"`
	IdleTimeout string `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	GracePeriod string `mapstructure:"grace_period" yaml:"grace_period"`
	BufferCap   int    `mapstructure:"buffer_cap" yaml:"buffer_cap"`
}

// BudgetConfig configures the Budget Controller's shared-stop thresholds.
type BudgetConfig struct {
	MaxTotalTokens int64   `mapstructure:"max_total_tokens" yaml:"max_total_tokens,omitempty"`
	MaxCostUSD     float64 `mapstructure:"max_cost_usd" yaml:"max_cost_usd,omitempty"`
}
