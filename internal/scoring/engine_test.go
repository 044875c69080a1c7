package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydra-cli/hydra/internal/baseline"
	"github.com/hydra-cli/hydra/internal/core"
)

type fakeGit struct {
	stats []core.FileDiffStat
	err   error
}

func (f *fakeGit) RepoRoot(ctx context.Context) (string, error)      { return "/repo", nil }
func (f *fakeGit) IsGitRepo(ctx context.Context) bool                { return true }
func (f *fakeGit) CurrentBranch(ctx context.Context) (string, error) { return "main", nil }
func (f *fakeGit) HeadCommit(ctx context.Context) (string, error)    { return "deadbeef", nil }
func (f *fakeGit) IsClean(ctx context.Context) (bool, error)         { return true, nil }
func (f *fakeGit) WorktreeAdd(ctx context.Context, path, branch, baseRef string) error {
	return nil
}
func (f *fakeGit) WorktreeRemove(ctx context.Context, path string, force bool) error { return nil }
func (f *fakeGit) WorktreeList(ctx context.Context) ([]core.GitWorktreeEntry, error) {
	return nil, nil
}
func (f *fakeGit) DiffNumstat(ctx context.Context, base, head string) ([]core.FileDiffStat, error) {
	return f.stats, f.err
}
func (f *fakeGit) DiffPatch(ctx context.Context, base, head string) (string, error) { return "", nil }
func (f *fakeGit) MergeNoCommitNoFF(ctx context.Context, branch string) (core.MergeAttempt, error) {
	return core.MergeAttempt{}, nil
}
func (f *fakeGit) MergeAbort(ctx context.Context) error { return nil }
func (f *fakeGit) MergeCommit(ctx context.Context, branch, message string) (string, error) {
	return "deadbeef", nil
}
func (f *fakeGit) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	return false, nil
}
func (f *fakeGit) BranchExists(ctx context.Context, name string) (bool, error) { return false, nil }
func (f *fakeGit) DeleteBranch(ctx context.Context, name string, force bool) error {
	return nil
}
func (f *fakeGit) IsBranchReachable(ctx context.Context, name string) (bool, error) {
	return false, nil
}

func TestEngine_Score_BuildFailureGatesMergeability(t *testing.T) {
	e := &Engine{
		Config: DefaultConfig(),
		Commands: baseline.Profile{
			Build: []string{"sh", "-c", "exit 1"},
		},
		GitFor: func(path string) core.GitClient { return &fakeGit{} },
	}

	sb, err := e.Score(context.Background(), "claude", core.WorktreeHandle{Path: t.TempDir()}, core.SupervisorOutcome{Succeeded: true})
	require.NoError(t, err)

	assert.False(t, sb.Mergeable)
	assert.Contains(t, sb.GateFailures, "build_failed")
	require.NotNil(t, sb.Dimensions["build"].Value)
	assert.Equal(t, 0.0, *sb.Dimensions["build"].Value)
}

func TestEngine_Score_DiffScopeProtectedPathCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DiffScope.ProtectedPaths = []string{".github/"}
	cfg.DiffScope.ProtectedCap = 40

	e := &Engine{
		Config: cfg,
		GitFor: func(path string) core.GitClient {
			return &fakeGit{stats: []core.FileDiffStat{{Path: ".github/workflows/ci.yml", Added: 1, Removed: 1}}}
		},
	}

	sb, err := e.Score(context.Background(), "codex", core.WorktreeHandle{Path: t.TempDir()}, core.SupervisorOutcome{Succeeded: true})
	require.NoError(t, err)

	require.NotNil(t, sb.Dimensions["diff_scope"].Value)
	assert.LessOrEqual(t, *sb.Dimensions["diff_scope"].Value, 40.0)
	assert.Contains(t, sb.Dimensions["diff_scope"].Evidence["protected_paths_hit"], ".github/workflows/ci.yml")
}

func TestEngine_Rank_OrdersByCompositeAndFillsSpeed(t *testing.T) {
	e := &Engine{Config: DefaultConfig()}

	scores := []core.ScoreBreakdown{
		{
			AgentKey: "slow",
			Dimensions: map[string]core.DimensionScore{
				"build": {Value: ptr(100)},
				"speed": {Evidence: map[string]interface{}{"duration_ms": int64(4000)}},
			},
		},
		{
			AgentKey: "fast",
			Dimensions: map[string]core.DimensionScore{
				"build": {Value: ptr(100)},
				"speed": {Evidence: map[string]interface{}{"duration_ms": int64(1000)}},
			},
		},
	}

	ranked := e.Rank(scores)

	require.Len(t, ranked, 2)
	assert.Equal(t, core.AgentKey("fast"), ranked[0].AgentKey)
	require.NotNil(t, ranked[0].Dimensions["speed"].Value)
	assert.InDelta(t, 100.0, *ranked[0].Dimensions["speed"].Value, 0.001)
	require.NotNil(t, ranked[1].Dimensions["speed"].Value)
	assert.InDelta(t, 25.0, *ranked[1].Dimensions["speed"].Value, 0.001)
}

func TestComputeComposite_RenormalizesMissingDimensions(t *testing.T) {
	dims := map[string]core.DimensionScore{
		"build": {Value: ptr(100)},
		"tests": {}, // missing
	}
	weights := Weights{"build": 0.5, "tests": 0.5}

	composite := computeComposite(dims, weights)
	require.NotNil(t, composite)
	assert.InDelta(t, 100.0, *composite, 0.001)
}
