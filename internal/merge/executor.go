// Package merge implements the Merge Executor: an operator-invoked,
// separate step that previews or performs merging one agent's branch into
// the target repository, always leaving the working tree exactly as it
// found it unless an execute is explicitly confirmed.
package merge

import (
	"context"
	"time"

	"github.com/hydra-cli/hydra/internal/core"
)

// Executor previews and performs merges against one target repository.
// Execute requires the caller to have already obtained a clean Preview in
// the same operator session (enforced by the cmd/hydra merge command's
// --dry-run/--confirm flow, not by the Executor itself, since nothing in
// the Executor's lifetime otherwise spans two CLI invocations).
type Executor struct {
	Git core.GitClient
}

// New constructs an Executor bound to a target repository's git client.
func New(git core.GitClient) *Executor {
	return &Executor{Git: git}
}

// Preview attempts a no-commit, no-fast-forward merge of the agent's
// branch, always aborting before returning so the working tree is
// unchanged regardless of outcome.
func (e *Executor) Preview(ctx context.Context, runID string, agentKey core.AgentKey, targetBranch string) (core.MergePreview, error) {
	sourceBranch := core.BranchName(runID, agentKey)
	preview := core.MergePreview{
		RunID: runID, AgentKey: agentKey,
		SourceBranch: sourceBranch, TargetBranch: targetBranch,
	}

	clean, err := e.Git.IsClean(ctx)
	if err != nil {
		return preview, core.ErrMerge(core.CodeWorkingTreeDirty, "checking working tree cleanliness: "+err.Error())
	}
	if !clean {
		return preview, core.ErrMerge(core.CodeWorkingTreeDirty, "target working tree has uncommitted changes")
	}

	alreadyMerged, err := e.Git.IsAncestor(ctx, sourceBranch, targetBranch)
	if err == nil && alreadyMerged {
		preview.AlreadyMerged = true
		preview.Clean = true
		return preview, nil
	}

	attempt, err := e.Git.MergeNoCommitNoFF(ctx, sourceBranch)
	// Always abort: preview must never leave a staged merge behind.
	_ = e.Git.MergeAbort(ctx)
	if err != nil {
		return preview, core.ErrMerge("MERGE_PREVIEW_FAILED", err.Error())
	}

	preview.Clean = !attempt.Conflicted
	preview.ConflictPaths = attempt.ConflictPaths
	preview.MergeTreeEmpty = attempt.MergeTreeEmpty
	return preview, nil
}

// Execute performs and commits the merge. Callers must have obtained a
// clean Preview for the same run/agent in the current operator session;
// Execute re-verifies the working tree regardless.
func (e *Executor) Execute(ctx context.Context, runID string, agentKey core.AgentKey, targetBranch string, force bool, gateFailures []string) (core.MergeResult, error) {
	sourceBranch := core.BranchName(runID, agentKey)
	result := core.MergeResult{
		RunID: runID, AgentKey: agentKey,
		SourceBranch: sourceBranch, TargetBranch: targetBranch, Forced: force,
	}

	if !force && len(gateFailures) > 0 {
		result.FailureReason = "mergeability gates failed: " + joinComma(gateFailures)
		result.CompletedAt = time.Now()
		return result, core.ErrMerge("GATES_FAILED", result.FailureReason)
	}

	clean, err := e.Git.IsClean(ctx)
	if err != nil {
		result.FailureReason = err.Error()
		result.CompletedAt = time.Now()
		return result, core.ErrMerge(core.CodeWorkingTreeDirty, err.Error())
	}
	if !clean {
		result.FailureReason = "target working tree has uncommitted changes"
		result.CompletedAt = time.Now()
		return result, core.ErrMerge(core.CodeWorkingTreeDirty, result.FailureReason)
	}

	stats, _ := e.Git.DiffNumstat(ctx, targetBranch, sourceBranch)
	for _, s := range stats {
		result.FilesChanged++
		result.LinesAdded += s.Added
		result.LinesRemoved += s.Removed
	}

	message := "hydra: merge " + string(agentKey) + " from run " + runID
	sha, err := e.Git.MergeCommit(ctx, sourceBranch, message)
	result.CompletedAt = time.Now()
	if err != nil {
		result.FailureReason = err.Error()
		return result, core.ErrMerge(core.CodeMergeConflict, err.Error())
	}

	result.Success = true
	result.CommitSHA = sha
	return result, nil
}

func joinComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
