package config

import (
	"fmt"
	"time"
)

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors aggregates every problem found in one pass so the
// operator sees all of them at once instead of fixing one at a time.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msg := fmt.Sprintf("%d configuration error(s):", len(e))
	for _, verr := range e {
		msg += "\n  - " + verr.Error()
	}
	return msg
}

// HasErrors reports whether any errors were recorded.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator checks configuration consistency beyond what mapstructure's
// type coercion already enforces.
type Validator struct {
	errors ValidationErrors
}

// NewValidator constructs an empty validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs every check and returns the aggregated errors, or nil.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = nil
	v.validateScoring(&cfg.Scoring)
	v.validateWorktree(&cfg.Worktree)
	v.validateSupervisor(&cfg.Supervisor)
	v.validateBudget(&cfg.Budget)
	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: msg})
}

func (v *Validator) validateScoring(cfg *ScoringConfig) {
	for name, weight := range cfg.Weights {
		if weight < 0 {
			v.addError("scoring.weights."+name, weight, "must be >= 0")
		}
	}
	if cfg.MaxTestRegression < 0 {
		v.addError("scoring.max_test_regression", cfg.MaxTestRegression, "must be >= 0")
	}
	if cfg.DiffScope.ProtectedCap < 0 || cfg.DiffScope.ProtectedCap > 100 {
		v.addError("scoring.diff_scope.protected_cap", cfg.DiffScope.ProtectedCap, "must be in [0,100]")
	}
	if cfg.AllowedTestDrop < 0 || cfg.AllowedTestDrop > 1 {
		v.addError("scoring.allowed_test_drop", cfg.AllowedTestDrop, "must be a fraction in [0,1]")
	}
	if cfg.TestDropCapScore < 0 || cfg.TestDropCapScore > 100 {
		v.addError("scoring.test_drop_cap_score", cfg.TestDropCapScore, "must be in [0,100]")
	}
}

func (v *Validator) validateWorktree(cfg *WorktreeConfig) {
	if cfg.BaseDir == "" {
		v.addError("worktree.base_dir", cfg.BaseDir, "must not be empty")
	}
	if cfg.RetentionDays < 0 {
		v.addError("worktree.retention_days", cfg.RetentionDays, "must be >= 0")
	}
}

func (v *Validator) validateSupervisor(cfg *SupervisorConfig) {
	for field, raw := range map[string]string{
		"supervisor.hard_timeout": cfg.HardTimeout,
		"supervisor.idle_timeout": cfg.IdleTimeout,
		"supervisor.grace_period": cfg.GracePeriod,
	} {
		if _, err := time.ParseDuration(raw); err != nil {
			v.addError(field, raw, "must be a valid duration (e.g. \"30m\")")
		}
	}
	if cfg.BufferCap <= 0 {
		v.addError("supervisor.buffer_cap", cfg.BufferCap, "must be > 0")
	}
}

func (v *Validator) validateBudget(cfg *BudgetConfig) {
	if cfg.MaxTotalTokens < 0 {
		v.addError("budget.max_total_tokens", cfg.MaxTotalTokens, "must be >= 0")
	}
	if cfg.MaxCostUSD < 0 {
		v.addError("budget.max_cost_usd", cfg.MaxCostUSD, "must be >= 0")
	}
}

// ValidateConfig is the package-level convenience wrapper used by the
// doctor command.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
