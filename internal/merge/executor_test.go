package merge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydra-cli/hydra/internal/core"
)

type fakeGit struct {
	clean        bool
	isAncestor   bool
	mergeAttempt core.MergeAttempt
	mergeErr     error
	abortCalls   int
	commitSHA    string
	commitErr    error
	diffStats    []core.FileDiffStat
}

func (f *fakeGit) RepoRoot(ctx context.Context) (string, error)      { return "/repo", nil }
func (f *fakeGit) IsGitRepo(ctx context.Context) bool                { return true }
func (f *fakeGit) CurrentBranch(ctx context.Context) (string, error) { return "main", nil }
func (f *fakeGit) HeadCommit(ctx context.Context) (string, error)    { return "deadbeef", nil }
func (f *fakeGit) IsClean(ctx context.Context) (bool, error)         { return f.clean, nil }
func (f *fakeGit) WorktreeAdd(ctx context.Context, path, branch, baseRef string) error {
	return nil
}
func (f *fakeGit) WorktreeRemove(ctx context.Context, path string, force bool) error { return nil }
func (f *fakeGit) WorktreeList(ctx context.Context) ([]core.GitWorktreeEntry, error) {
	return nil, nil
}
func (f *fakeGit) DiffNumstat(ctx context.Context, base, head string) ([]core.FileDiffStat, error) {
	return f.diffStats, nil
}
func (f *fakeGit) DiffPatch(ctx context.Context, base, head string) (string, error) { return "", nil }
func (f *fakeGit) MergeNoCommitNoFF(ctx context.Context, branch string) (core.MergeAttempt, error) {
	return f.mergeAttempt, f.mergeErr
}
func (f *fakeGit) MergeAbort(ctx context.Context) error {
	f.abortCalls++
	return nil
}
func (f *fakeGit) MergeCommit(ctx context.Context, branch, message string) (string, error) {
	return f.commitSHA, f.commitErr
}
func (f *fakeGit) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	return f.isAncestor, nil
}
func (f *fakeGit) BranchExists(ctx context.Context, name string) (bool, error) { return false, nil }
func (f *fakeGit) DeleteBranch(ctx context.Context, name string, force bool) error {
	return nil
}
func (f *fakeGit) IsBranchReachable(ctx context.Context, name string) (bool, error) {
	return false, nil
}

func TestPreview_DirtyWorkingTreeFails(t *testing.T) {
	git := &fakeGit{clean: false}
	e := New(git)

	_, err := e.Preview(context.Background(), "run-1", "claude", "main")
	require.Error(t, err)
	var domErr *core.DomainError
	require.ErrorAs(t, err, &domErr)
	assert.Equal(t, core.CodeWorkingTreeDirty, domErr.Code)
}

func TestPreview_AlwaysAbortsAfterAttempt(t *testing.T) {
	git := &fakeGit{clean: true, mergeAttempt: core.MergeAttempt{Conflicted: true, ConflictPaths: []string{"a.go"}}}
	e := New(git)

	preview, err := e.Preview(context.Background(), "run-1", "claude", "main")
	require.NoError(t, err)
	assert.False(t, preview.Clean)
	assert.Equal(t, []string{"a.go"}, preview.ConflictPaths)
	assert.Equal(t, 1, git.abortCalls)
}

func TestPreview_AlreadyMergedShortCircuits(t *testing.T) {
	git := &fakeGit{clean: true, isAncestor: true}
	e := New(git)

	preview, err := e.Preview(context.Background(), "run-1", "claude", "main")
	require.NoError(t, err)
	assert.True(t, preview.AlreadyMerged)
	assert.True(t, preview.Clean)
	assert.Equal(t, 0, git.abortCalls)
}

func TestExecute_GatesBlockWithoutForce(t *testing.T) {
	git := &fakeGit{clean: true}
	e := New(git)

	_, err := e.Execute(context.Background(), "run-1", "claude", "main", false, []string{"build_failed"})
	require.Error(t, err)
}

func TestExecute_ForceBypassesGates(t *testing.T) {
	git := &fakeGit{clean: true, commitSHA: "abc123"}
	e := New(git)

	result, err := e.Execute(context.Background(), "run-1", "claude", "main", true, []string{"build_failed"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "abc123", result.CommitSHA)
	assert.True(t, result.Forced)
}

func TestExecute_DirtyWorkingTreeFails(t *testing.T) {
	git := &fakeGit{clean: false}
	e := New(git)

	_, err := e.Execute(context.Background(), "run-1", "claude", "main", false, nil)
	require.Error(t, err)
	var domErr *core.DomainError
	require.ErrorAs(t, err, &domErr)
	assert.Equal(t, core.CodeWorkingTreeDirty, domErr.Code)
}
