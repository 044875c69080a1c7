package scoring

import (
	"context"
	"strings"

	"github.com/hydra-cli/hydra/internal/core"
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ptr(v float64) *float64 { return &v }

// computeBuild scores the binary build dimension: 100 on a zero exit code,
// 0 otherwise. An unconfigured build command is a missing dimension, not a
// failure.
func computeBuild(dim core.BaselineDimension) (core.DimensionScore, bool) {
	if dim.Outcome.Status == core.CommandOutcomeUnavailable {
		return core.DimensionScore{}, true
	}
	passed := dim.Outcome.ExitCode == 0
	val := 0.0
	if passed {
		val = 100
	}
	return core.DimensionScore{
		Value:    ptr(val),
		Evidence: map[string]interface{}{"exit_code": dim.Outcome.ExitCode},
	}, passed
}

// computeTests scores the tests dimension against the baseline's counts,
// returning the dimension score, any gate failures it trips, and the
// number of baseline-passing tests now failing (for the caller's
// max-regression gate).
func computeTests(baselineDim, currentDim core.BaselineDimension, params TestParams) (core.DimensionScore, []string, int) {
	if currentDim.Outcome.Status == core.CommandOutcomeUnavailable || currentDim.TestCounts == nil {
		return core.DimensionScore{}, nil, 0
	}

	cur := *currentDim.TestCounts
	var base core.TestCounts
	if baselineDim.TestCounts != nil {
		base = *baselineDim.TestCounts
	}

	passRate := 0.0
	if cur.Total > 0 {
		passRate = float64(cur.Passed) / float64(cur.Total) * 100
	}

	regressions := 0
	if base.Passed > cur.Passed {
		regressions = base.Passed - cur.Passed
	}
	regPenalty := clamp(float64(regressions)*params.RegressionPenaltyPerTest, 0, 1)

	newTests := 0
	if cur.Total > base.Total {
		newTests = cur.Total - base.Total
	}
	bonus := float64(newTests) * params.NewTestBonusPerTest

	score := clamp(passRate*(1-regPenalty)+bonus, 0, 100)

	var gates []string
	if base.Total > 0 && float64(cur.Total) < float64(base.Total)*(1-params.AllowedTestDrop) {
		score = clamp(score, 0, params.TestDropCapScore)
		gates = append(gates, "test_drop")
	}

	evidence := map[string]interface{}{
		"passed": cur.Passed, "failed": cur.Failed, "total": cur.Total,
		"baseline_total": base.Total, "regressions": regressions,
	}
	return core.DimensionScore{Value: ptr(score), Evidence: evidence}, gates, regressions
}

// computeLint scores the lint dimension by penalizing new warnings beyond
// whatever the baseline already had.
func computeLint(baselineDim, currentDim core.BaselineDimension, params LintParams) core.DimensionScore {
	if currentDim.Outcome.Status == core.CommandOutcomeUnavailable || currentDim.LintCounts == nil {
		return core.DimensionScore{}
	}
	curWarn := currentDim.LintCounts.Warnings
	baseWarn := 0
	if baselineDim.LintCounts != nil {
		baseWarn = baselineDim.LintCounts.Warnings
	}
	delta := curWarn - baseWarn
	if delta < 0 {
		delta = 0
	}
	score := clamp(100-params.PenaltyPerWarning*float64(delta), 0, 100)
	return core.DimensionScore{
		Value:    ptr(score),
		Evidence: map[string]interface{}{"warnings_current": curWarn, "warnings_baseline": baseWarn},
	}
}

// computeDiffScope scores churn against the base ref inside the agent's
// worktree, capping the score hard if any protected path was touched.
func computeDiffScope(ctx context.Context, git core.GitClient, baseRef string, th DiffScopeThresholds) core.DimensionScore {
	stats, err := git.DiffNumstat(ctx, baseRef, "HEAD")
	if err != nil {
		return core.DimensionScore{}
	}

	filesTouched := 0
	linesChanged := 0
	var protectedHit []string
	for _, s := range stats {
		filesTouched++
		linesChanged += s.Added + s.Removed
		for _, p := range th.ProtectedPaths {
			if strings.HasPrefix(s.Path, p) {
				protectedHit = append(protectedHit, s.Path)
				break
			}
		}
	}

	score := 100.0
	if th.MaxLinesChanged > 0 && linesChanged > th.MaxLinesChanged {
		over := float64(linesChanged-th.MaxLinesChanged) / float64(th.MaxLinesChanged)
		score -= over * 100
	}
	if th.MaxFilesTouched > 0 && filesTouched > th.MaxFilesTouched {
		over := float64(filesTouched-th.MaxFilesTouched) / float64(th.MaxFilesTouched)
		score -= over * 100
	}
	score = clamp(score, 0, 100)

	if len(protectedHit) > 0 {
		cap := th.ProtectedCap
		if cap <= 0 {
			cap = 40
		}
		score = clamp(score, 0, cap)
	}

	return core.DimensionScore{
		Value: ptr(score),
		Evidence: map[string]interface{}{
			"files_touched": filesTouched, "lines_changed": linesChanged, "protected_paths_hit": protectedHit,
		},
	}
}

// computeComposite takes a weighted mean over every dimension that has a
// value, renormalizing the remaining weights so the result is always on
// [0,100]. Returns nil when no dimension has a value.
func computeComposite(dims map[string]core.DimensionScore, weights Weights) *float64 {
	var sum, totalWeight float64
	for name, w := range weights {
		d, ok := dims[name]
		if !ok || d.Value == nil {
			continue
		}
		sum += *d.Value * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return nil
	}
	v := sum / totalWeight
	return &v
}
