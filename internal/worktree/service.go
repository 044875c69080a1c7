// Package worktree owns the lifecycle of per-agent git worktrees: creation,
// listing, and cleanup. It is the exclusive writer of directories under the
// configured worktree base, and the exclusive creator of branches shaped
// hydra/<run_id>/agent/<agent_key>.
package worktree

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hydra-cli/hydra/internal/core"
)

// DefaultGitTimeout bounds every git shell-out the service makes.
const DefaultGitTimeout = 300 * time.Second

// Service manages isolated git worktrees for one race's agents. All
// operations are serialized through a mutex so concurrent agent worktree
// creation never races the shared repository's ref namespace.
type Service struct {
	git     core.GitClient
	baseDir string
	mu      sync.Mutex
}

// New constructs a worktree service rooted at baseDir, using git to manage
// the given repository.
func New(git core.GitClient, baseDir string) *Service {
	return &Service{git: git, baseDir: baseDir}
}

// Create creates an isolated worktree for one agent in a run, on a
// deterministically-named branch.
func (s *Service) Create(ctx context.Context, runID string, agentKey core.AgentKey, baseRef string) (core.WorktreeHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	branch := core.BranchName(runID, agentKey)
	path := filepath.Join(s.baseDir, runID, string(agentKey))

	if err := s.git.WorktreeAdd(ctx, path, branch, baseRef); err != nil {
		return core.WorktreeHandle{}, core.ErrReadiness("WORKTREE_CREATE_FAILED",
			fmt.Sprintf("creating worktree for agent %s: %v", agentKey, err))
	}

	return core.WorktreeHandle{
		Path:      path,
		Branch:    branch,
		AgentKey:  agentKey,
		RunID:     runID,
		CreatedAt: time.Now(),
	}, nil
}

// List returns every worktree git currently knows about.
func (s *Service) List(ctx context.Context) ([]core.GitWorktreeEntry, error) {
	return s.git.WorktreeList(ctx)
}

// Remove removes a single worktree by its handle. Idempotent: removing an
// already-removed worktree is not an error.
func (s *Service) Remove(ctx context.Context, handle core.WorktreeHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.git.WorktreeRemove(ctx, handle.Path, false); err != nil {
		if err2 := s.git.WorktreeRemove(ctx, handle.Path, true); err2 != nil {
			return fmt.Errorf("removing worktree %s: %w", handle.Path, err2)
		}
	}
	return s.deleteBranchIfUnreachable(ctx, handle.Branch)
}

// ForceCleanup removes every worktree belonging to runID, collecting every
// error encountered rather than stopping at the first. Idempotent: a
// second call against an already-clean run returns no errors.
func (s *Service) ForceCleanup(ctx context.Context, runID string) []error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.git.WorktreeList(ctx)
	if err != nil {
		return []error{fmt.Errorf("listing worktrees: %w", err)}
	}

	var errs []error
	prefix := fmt.Sprintf("hydra/%s/agent/", runID)
	for _, e := range entries {
		if !strings.HasPrefix(e.Branch, prefix) {
			continue
		}
		if err := s.git.WorktreeRemove(ctx, e.Path, true); err != nil {
			errs = append(errs, fmt.Errorf("removing worktree %s: %w", e.Path, err))
			continue
		}
		if err := s.deleteBranchIfUnreachable(ctx, e.Branch); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// deleteBranchIfUnreachable removes branch only when no other ref points to
// it, so in-progress work on a still-referenced branch is never destroyed.
func (s *Service) deleteBranchIfUnreachable(ctx context.Context, branch string) error {
	if branch == "" {
		return nil
	}
	reachable, err := s.git.IsBranchReachable(ctx, branch)
	if err != nil || reachable {
		return nil
	}
	if err := s.git.DeleteBranch(ctx, branch, true); err != nil {
		return fmt.Errorf("deleting unreachable branch %s: %w", branch, err)
	}
	return nil
}
