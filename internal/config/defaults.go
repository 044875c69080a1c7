package config

// DefaultConfigYAML is the scaffold written by a first-run doctor check
// when no project config exists yet. Values not specified here fall back
// to the defaults set in Loader.setDefaults.
const DefaultConfigYAML = `# Hydra configuration
#
# Values not specified here use sensible defaults.

scoring:
  profile: default
  build: []
  test: []
  lint: []
  command_timeout: 10m
  weights:
    build: 0.25
    tests: 0.35
    lint: 0.10
    diff_scope: 0.15
    speed: 0.15
  require_build_pass: true
  max_test_regression: 0
  diff_scope:
    max_lines_changed: 800
    max_files_touched: 40
    protected_paths: []
    protected_cap: 40
  regression_penalty_per_test: 0.05
  new_test_bonus_per_test: 1.0
  allowed_test_drop: 0.1
  test_drop_cap_score: 50
  lint_penalty_per_warning: 2.0

adapters:
  claude:
    enabled: true
    path: claude
  codex:
    enabled: true
    path: codex
  gemini:
    enabled: true
    path: gemini
  copilot:
    enabled: false
    path: copilot
  opencode:
    enabled: false
    path: opencode

worktree:
  base_dir: .hydra/worktrees
  retention_days: 7

supervisor:
  hard_timeout: 30m
  idle_timeout: 5m
  grace_period: 10s
  buffer_cap: 2000

budget:
  max_total_tokens: 0
  max_cost_usd: 0
`
