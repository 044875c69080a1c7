// Package scoring implements the Scoring Engine: per-agent dimension
// scoring against a baseline snapshot, composite weighting, mergeability
// gates, and final ranking across a race's agents.
package scoring

import (
	"context"

	"github.com/hydra-cli/hydra/internal/baseline"
	"github.com/hydra-cli/hydra/internal/core"
)

// GitFactory scopes a GitClient to a specific working directory, typically
// one agent's worktree.
type GitFactory func(path string) core.GitClient

// Engine computes and ranks ScoreBreakdowns for one race. It implements
// both the Race Driver's Scorer and Ranker ports.
type Engine struct {
	Baseline core.BaselineSnapshot
	BaseRef  string
	Commands baseline.Profile // Build/Test/Lint/Timeout only; Dir is overridden per agent
	GitFor   GitFactory
	Config   Config
}

// Score runs the configured build/test/lint commands inside the agent's
// worktree, diffs it against the base ref, and computes every dimension
// except speed (deferred to Rank, which needs every agent's duration).
func (e *Engine) Score(ctx context.Context, agentKey core.AgentKey, wt core.WorktreeHandle, outcome core.SupervisorOutcome) (core.ScoreBreakdown, error) {
	profile := e.Commands
	profile.Dir = wt.Path
	current := baseline.Capture(ctx, profile)

	dims := make(map[string]core.DimensionScore, 5)

	buildDim, buildPassed := computeBuild(current.Build)
	dims["build"] = buildDim

	testDim, testGates, regressions := computeTests(e.Baseline.Tests, current.Tests, e.Config.TestParams)
	dims["tests"] = testDim

	dims["lint"] = computeLint(e.Baseline.Lint, current.Lint, e.Config.LintParams)

	if e.GitFor != nil {
		dims["diff_scope"] = computeDiffScope(ctx, e.GitFor(wt.Path), e.BaseRef, e.Config.DiffScope)
	} else {
		dims["diff_scope"] = core.DimensionScore{}
	}

	// Speed is resolved once every agent's duration is known; record the
	// raw duration now so Rank can fill in the relative score later.
	dims["speed"] = core.DimensionScore{
		Evidence: map[string]interface{}{"duration_ms": outcome.Duration.Milliseconds()},
	}

	var gateFailures []string
	gateFailures = append(gateFailures, testGates...)
	if e.Config.Gates.RequireBuildPass && current.Build.Outcome.Status != core.CommandOutcomeUnavailable && !buildPassed {
		gateFailures = append(gateFailures, "build_failed")
	}
	if regressions > e.Config.Gates.MaxTestRegression {
		gateFailures = append(gateFailures, "test_regression")
	}
	if !outcome.Succeeded {
		gateFailures = append(gateFailures, "agent_process_failed")
	}

	return core.ScoreBreakdown{
		AgentKey:     agentKey,
		Dimensions:   dims,
		Mergeable:    len(gateFailures) == 0,
		GateFailures: gateFailures,
	}, nil
}
