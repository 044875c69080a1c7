// Package gitutil wraps the git command-line tool with the
// machine-readable invocation forms the orchestration core needs:
// worktree lifecycle, numstat/patch diffs, and no-commit merge preview.
package gitutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/hydra-cli/hydra/internal/core"
)

// Compile-time interface conformance check.
var _ core.GitClient = (*Client)(nil)

// DefaultTimeout bounds every individual git invocation this client makes.
const DefaultTimeout = 300 * time.Second

// Client wraps git CLI operations scoped to one repository checkout (the
// main repo or one of its worktrees).
type Client struct {
	repoPath string
	gitPath  string
	timeout  time.Duration
}

// NewClient resolves the git binary and verifies repoPath is inside a git
// repository.
func NewClient(repoPath string) (*Client, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	gitPath, err := resolveGitBinaryPath(abs)
	if err != nil {
		return nil, core.ErrReadiness(core.CodeGitUnavailable, err.Error())
	}

	c := &Client{repoPath: abs, gitPath: gitPath, timeout: DefaultTimeout}
	if !c.IsGitRepo(context.Background()) {
		return nil, core.ErrReadiness(core.CodeNotGitRepo, fmt.Sprintf("%s is not a git repository", abs))
	}
	return c, nil
}

// WithTimeout returns a shallow copy of the client bound to the worktree at
// path, reusing the resolved git binary.
func (c *Client) WithTimeout(d time.Duration) *Client {
	clone := *c
	clone.timeout = d
	return &clone
}

// At returns a client scoped to a different working directory (typically a
// worktree) sharing the same resolved git binary.
func (c *Client) At(path string) *Client {
	clone := *c
	clone.repoPath = path
	return &clone
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	stdout, stderr, err := c.runRaw(ctx, args...)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", core.ErrTimeout("git command timed out: " + strings.Join(args, " "))
		}
		return "", fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), stderr, err)
	}
	return stdout, nil
}

func (c *Client) runRaw(ctx context.Context, args ...string) (stdout, stderr string, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.gitPath, args...)
	cmd.Dir = c.repoPath

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	return strings.TrimSpace(outBuf.String()), strings.TrimSpace(errBuf.String()), err
}

// RepoRoot returns the absolute path this client operates in.
func (c *Client) RepoRoot(_ context.Context) (string, error) {
	return c.repoPath, nil
}

// IsGitRepo reports whether repoPath is inside a working git repository.
func (c *Client) IsGitRepo(ctx context.Context) bool {
	_, err := c.run(ctx, "rev-parse", "--git-dir")
	return err == nil
}

// CurrentBranch returns the checked-out branch name.
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	return c.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// HeadCommit returns the current HEAD commit SHA.
func (c *Client) HeadCommit(ctx context.Context) (string, error) {
	return c.run(ctx, "rev-parse", "HEAD")
}

// IsClean reports whether the working tree has no staged or unstaged
// modifications (untracked files do not count as dirty).
func (c *Client) IsClean(ctx context.Context) (bool, error) {
	out, err := c.run(ctx, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return false, err
	}
	return out == "", nil
}

// WorktreeAdd creates a new worktree at path on branch, creating the branch
// from baseRef if it does not already exist.
func (c *Client) WorktreeAdd(ctx context.Context, path, branch, baseRef string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating worktree parent directory: %w", err)
	}
	exists, err := c.BranchExists(ctx, branch)
	if err != nil {
		return err
	}
	var args []string
	if exists {
		args = []string{"worktree", "add", path, branch}
	} else if baseRef != "" {
		args = []string{"worktree", "add", "-b", branch, path, baseRef}
	} else {
		args = []string{"worktree", "add", "-b", branch, path}
	}
	_, err = c.run(ctx, args...)
	return err
}

// WorktreeRemove removes a worktree directory.
func (c *Client) WorktreeRemove(ctx context.Context, path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	_, err := c.run(ctx, args...)
	return err
}

// WorktreeList returns every worktree known to the repository.
func (c *Client) WorktreeList(ctx context.Context) ([]core.GitWorktreeEntry, error) {
	out, err := c.run(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parseWorktreePorcelain(out), nil
}

func parseWorktreePorcelain(output string) []core.GitWorktreeEntry {
	var entries []core.GitWorktreeEntry
	var current *core.GitWorktreeEntry

	flush := func() {
		if current != nil {
			entries = append(entries, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(output, "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			current = &core.GitWorktreeEntry{Path: strings.TrimPrefix(line, "worktree ")}
		case current == nil:
			continue
		case strings.HasPrefix(line, "HEAD "):
			current.HeadSHA = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			current.Branch = strings.TrimPrefix(line, "branch refs/heads/")
		case line == "locked":
			current.Locked = true
		case line == "prunable":
			current.Prunable = true
		}
	}
	flush()
	return entries
}

// DiffNumstat returns per-file added/removed line counts between two refs.
func (c *Client) DiffNumstat(ctx context.Context, baseRef, headRef string) ([]core.FileDiffStat, error) {
	out, err := c.run(ctx, "diff", "--numstat", fmt.Sprintf("%s...%s", baseRef, headRef))
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	var stats []core.FileDiffStat
	for _, line := range strings.Split(out, "\n") {
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			continue
		}
		stat := core.FileDiffStat{Path: fields[2]}
		if fields[0] == "-" || fields[1] == "-" {
			stat.Binary = true
		} else {
			stat.Added, _ = strconv.Atoi(fields[0])
			stat.Removed, _ = strconv.Atoi(fields[1])
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

// DiffPatch returns a no-color unified patch between two refs. Written even
// when empty.
func (c *Client) DiffPatch(ctx context.Context, baseRef, headRef string) (string, error) {
	stdout, stderr, err := c.runRaw(ctx, "diff", "--no-color", "--patch", fmt.Sprintf("%s...%s", baseRef, headRef))
	if err != nil {
		return "", fmt.Errorf("git diff: %s: %w", stderr, err)
	}
	return stdout, nil
}

// MergeNoCommitNoFF attempts a preview merge of branch, leaving the result
// staged but uncommitted so the caller can abort it unconditionally.
func (c *Client) MergeNoCommitNoFF(ctx context.Context, branch string) (core.MergeAttempt, error) {
	stdout, stderr, err := c.runRaw(ctx, "merge", "--no-commit", "--no-ff", branch)
	attempt := core.MergeAttempt{Stderr: stderr}

	if err == nil {
		return attempt, nil
	}

	if strings.Contains(stdout, "CONFLICT") || strings.Contains(stderr, "CONFLICT") {
		attempt.Conflicted = true
		paths, lerr := c.conflictFiles(ctx)
		if lerr == nil {
			attempt.ConflictPaths = paths
		}
		treeOut, _ := c.run(ctx, "diff", "--name-only", "--cached")
		attempt.MergeTreeEmpty = treeOut == ""
		return attempt, nil
	}

	return attempt, fmt.Errorf("git merge: %s: %w", stderr, err)
}

func (c *Client) conflictFiles(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// MergeAbort unconditionally aborts an in-progress merge, tolerating the
// case where none is in progress.
func (c *Client) MergeAbort(ctx context.Context) error {
	_, stderr, err := c.runRaw(ctx, "merge", "--abort")
	if err != nil && !strings.Contains(stderr, "no merge to abort") && !strings.Contains(stderr, "There is no merge to abort") {
		return fmt.Errorf("git merge --abort: %s: %w", stderr, err)
	}
	return nil
}

// MergeCommit completes a previously staged merge with an explicit message
// and returns the resulting commit SHA.
func (c *Client) MergeCommit(ctx context.Context, branch, message string) (string, error) {
	if _, err := c.run(ctx, "merge", "--no-ff", "-m", message, branch); err != nil {
		return "", err
	}
	return c.HeadCommit(ctx)
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (c *Client) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	_, _, err := c.runRaw(ctx, "merge-base", "--is-ancestor", ancestor, descendant)
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if ok := asExitError(err, &exitErr); ok && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, err
}

func asExitError(err error, target **exec.ExitError) bool {
	ee, ok := err.(*exec.ExitError)
	if ok {
		*target = ee
	}
	return ok
}

// BranchExists reports whether a local branch exists.
func (c *Client) BranchExists(ctx context.Context, name string) (bool, error) {
	_, _, err := c.runRaw(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	return err == nil, nil
}

// DeleteBranch removes a local branch.
func (c *Client) DeleteBranch(ctx context.Context, name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := c.run(ctx, "branch", flag, name)
	return err
}

// IsBranchReachable reports whether name is reachable from any other ref,
// used to decide if the Worktree Service may delete it after cleanup.
func (c *Client) IsBranchReachable(ctx context.Context, name string) (bool, error) {
	out, err := c.run(ctx, "branch", "--all", "--contains", name)
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(line, "* "))
		if line != "" && line != name {
			return true, nil
		}
	}
	return false, nil
}

func resolveGitBinaryPath(repoAbs string) (string, error) {
	p, err := exec.LookPath("git")
	if err != nil {
		return "", fmt.Errorf("git not found in PATH: %w", err)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving git path: %w", err)
	}

	real := abs
	if rr, err := filepath.EvalSymlinks(abs); err == nil {
		real = rr
	}

	info, err := os.Stat(real)
	if err != nil {
		return "", fmt.Errorf("stat git binary: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("git binary is not a regular file: %s", real)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return "", fmt.Errorf("git binary is not executable: %s", real)
	}
	if isPathWithinDir(repoAbs, real) {
		return "", fmt.Errorf("refusing to execute git from within repository: %s", real)
	}
	return real, nil
}

func isPathWithinDir(root, path string) bool {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	pathAbs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(rootAbs, pathAbs)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}
