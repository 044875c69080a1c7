package doctor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydra-cli/hydra/internal/adapter"
	"github.com/hydra-cli/hydra/internal/core"
)

type fakeGit struct {
	isRepo bool
	clean  bool
	err    error
}

func (f *fakeGit) RepoRoot(ctx context.Context) (string, error)      { return "/repo", nil }
func (f *fakeGit) IsGitRepo(ctx context.Context) bool                { return f.isRepo }
func (f *fakeGit) CurrentBranch(ctx context.Context) (string, error) { return "main", nil }
func (f *fakeGit) HeadCommit(ctx context.Context) (string, error)    { return "deadbeef", nil }
func (f *fakeGit) IsClean(ctx context.Context) (bool, error)         { return f.clean, f.err }
func (f *fakeGit) WorktreeAdd(ctx context.Context, path, branch, baseRef string) error {
	return nil
}
func (f *fakeGit) WorktreeRemove(ctx context.Context, path string, force bool) error { return nil }
func (f *fakeGit) WorktreeList(ctx context.Context) ([]core.GitWorktreeEntry, error) {
	return nil, nil
}
func (f *fakeGit) DiffNumstat(ctx context.Context, base, head string) ([]core.FileDiffStat, error) {
	return nil, nil
}
func (f *fakeGit) DiffPatch(ctx context.Context, base, head string) (string, error) { return "", nil }
func (f *fakeGit) MergeNoCommitNoFF(ctx context.Context, branch string) (core.MergeAttempt, error) {
	return core.MergeAttempt{}, nil
}
func (f *fakeGit) MergeAbort(ctx context.Context) error { return nil }
func (f *fakeGit) MergeCommit(ctx context.Context, branch, message string) (string, error) {
	return "", nil
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

func TestRun_UnknownAdapterKeyReportsMissingNotFatal(t *testing.T) {
	reg := adapter.NewRegistry()
	d := New(reg, &fakeGit{isRepo: true, clean: true}, t.TempDir(), "")

	report := d.Run(context.Background(), []core.AgentKey{"nonexistent-agent"})
	require.Len(t, report.Adapters, 1)
	assert.Equal(t, core.ProbeMissing, report.Adapters[0].Status)
	assert.False(t, report.Ready)
}

func TestRun_NotAGitRepoIsNotReady(t *testing.T) {
	reg := adapter.NewRegistry()
	d := New(reg, &fakeGit{isRepo: false}, t.TempDir(), "")

	report := d.Run(context.Background(), nil)
	assert.False(t, report.Repo.IsRepo)
	assert.False(t, report.Ready)
}

func TestRun_ResourceCheckPopulatesDiskAndFDFields(t *testing.T) {
	reg := adapter.NewRegistry()
	d := New(reg, &fakeGit{isRepo: true, clean: true}, t.TempDir(), "")

	report := d.Run(context.Background(), nil)
	assert.GreaterOrEqual(t, report.Resources.DiskTotalGB, 0.0)
}
