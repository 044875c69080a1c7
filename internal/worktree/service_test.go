package worktree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydra-cli/hydra/internal/core"
)

type fakeGit struct {
	worktrees    []core.GitWorktreeEntry
	addCalls     []string
	removeCalls  []string
	reachable    map[string]bool
	deletedBranches []string
	addErr       error
}

func (f *fakeGit) RepoRoot(ctx context.Context) (string, error)    { return "/repo", nil }
func (f *fakeGit) IsGitRepo(ctx context.Context) bool              { return true }
func (f *fakeGit) CurrentBranch(ctx context.Context) (string, error) { return "main", nil }
func (f *fakeGit) HeadCommit(ctx context.Context) (string, error)  { return "deadbeef", nil }
func (f *fakeGit) IsClean(ctx context.Context) (bool, error)       { return true, nil }

func (f *fakeGit) WorktreeAdd(ctx context.Context, path, branch, baseRef string) error {
	f.addCalls = append(f.addCalls, path)
	if f.addErr != nil {
		return f.addErr
	}
	f.worktrees = append(f.worktrees, core.GitWorktreeEntry{Path: path, Branch: branch})
	return nil
}

func (f *fakeGit) WorktreeRemove(ctx context.Context, path string, force bool) error {
	f.removeCalls = append(f.removeCalls, path)
	kept := f.worktrees[:0]
	for _, w := range f.worktrees {
		if w.Path != path {
			kept = append(kept, w)
		}
	}
	f.worktrees = kept
	return nil
}

func (f *fakeGit) WorktreeList(ctx context.Context) ([]core.GitWorktreeEntry, error) {
	return f.worktrees, nil
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
	return "deadbeef", nil
}
func (f *fakeGit) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	return false, nil
}
func (f *fakeGit) BranchExists(ctx context.Context, name string) (bool, error) { return false, nil }
func (f *fakeGit) DeleteBranch(ctx context.Context, name string, force bool) error {
	f.deletedBranches = append(f.deletedBranches, name)
	return nil
}
func (f *fakeGit) IsBranchReachable(ctx context.Context, name string) (bool, error) {
	if f.reachable == nil {
		return false, nil
	}
	return f.reachable[name], nil
}

func TestService_Create(t *testing.T) {
	g := &fakeGit{}
	svc := New(g, "/base")

	h, err := svc.Create(context.Background(), "run1", "claude", "main")
	require.NoError(t, err)
	assert.Equal(t, "hydra/run1/agent/claude", h.Branch)
	assert.Equal(t, "/base/run1/claude", h.Path)
	assert.Len(t, g.addCalls, 1)
}

func TestService_ForceCleanup_IsIdempotent(t *testing.T) {
	g := &fakeGit{
		worktrees: []core.GitWorktreeEntry{
			{Path: "/base/run1/claude", Branch: "hydra/run1/agent/claude"},
			{Path: "/base/run1/codex", Branch: "hydra/run1/agent/codex"},
			{Path: "/other", Branch: "hydra/run2/agent/claude"},
		},
	}
	svc := New(g, "/base")

	errs := svc.ForceCleanup(context.Background(), "run1")
	assert.Empty(t, errs)
	assert.Len(t, g.removeCalls, 2)
	assert.Len(t, g.worktrees, 1)

	errs = svc.ForceCleanup(context.Background(), "run1")
	assert.Empty(t, errs)
	assert.Len(t, g.removeCalls, 2, "second call must be a no-op")
}

func TestService_Remove_DeletesUnreachableBranch(t *testing.T) {
	g := &fakeGit{reachable: map[string]bool{}}
	svc := New(g, "/base")
	h := core.WorktreeHandle{Path: "/base/run1/claude", Branch: "hydra/run1/agent/claude"}

	require.NoError(t, svc.Remove(context.Background(), h))
	assert.Contains(t, g.deletedBranches, "hydra/run1/agent/claude")
}

func TestService_Remove_KeepsReachableBranch(t *testing.T) {
	g := &fakeGit{reachable: map[string]bool{"hydra/run1/agent/claude": true}}
	svc := New(g, "/base")
	h := core.WorktreeHandle{Path: "/base/run1/claude", Branch: "hydra/run1/agent/claude"}

	require.NoError(t, svc.Remove(context.Background(), h))
	assert.Empty(t, g.deletedBranches)
}
