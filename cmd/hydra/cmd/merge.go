package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hydra-cli/hydra/internal/artifact"
	"github.com/hydra-cli/hydra/internal/core"
	"github.com/hydra-cli/hydra/internal/gitutil"
	"github.com/hydra-cli/hydra/internal/merge"
)

var (
	mergeRunID  string
	mergeAgent  string
	mergeDryRun bool
	mergeConfirm bool
	mergeForce  bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Preview or execute merging a race's winning (or chosen) agent branch",
	RunE:  runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&mergeRunID, "run-id", "", "run ID to merge from (required)")
	mergeCmd.Flags().StringVar(&mergeAgent, "agent", "", "agent key to merge (default: highest-ranked mergeable agent)")
	mergeCmd.Flags().BoolVar(&mergeDryRun, "dry-run", false, "preview the merge without committing")
	mergeCmd.Flags().BoolVar(&mergeConfirm, "confirm", false, "commit the previewed merge")
	mergeCmd.Flags().BoolVar(&mergeForce, "force", false, "merge even if mergeability gates failed")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if mergeRunID == "" {
		return core.ErrValidation("RUN_ID_REQUIRED", "--run-id is required")
	}
	if mergeDryRun == mergeConfirm {
		return core.ErrValidation("PREVIEW_OR_EXECUTE_REQUIRED", "exactly one of --dry-run or --confirm is required")
	}

	manifest, err := artifact.ReadManifest(".hydra", mergeRunID)
	if err != nil {
		return err
	}

	agentKey := core.AgentKey(mergeAgent)
	var gateFailures []string
	if agentKey == "" {
		winner, failures, err := selectWinner(manifest, mergeRunID)
		if err != nil {
			return err
		}
		agentKey = winner
		gateFailures = failures
	} else {
		if sb, err := artifact.ReadAgentScore(".hydra", mergeRunID, agentKey); err == nil {
			gateFailures = sb.GateFailures
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	git, err := gitutil.NewClient(wd)
	if err != nil {
		return err
	}

	executor := merge.New(git)
	targetBranch, err := git.CurrentBranch(ctx)
	if err != nil {
		return core.ErrReadiness(core.CodeGitUnavailable, "resolving target branch: "+err.Error())
	}

	if mergeDryRun {
		preview, err := executor.Preview(ctx, mergeRunID, agentKey, targetBranch)
		if err != nil {
			return err
		}
		return printJSONOrLine(preview, fmt.Sprintf("preview: clean=%v already_merged=%v conflicts=%v", preview.Clean, preview.AlreadyMerged, preview.ConflictPaths))
	}

	result, err := executor.Execute(ctx, mergeRunID, agentKey, targetBranch, mergeForce, gateFailures)
	store, openErr := artifact.Open(".hydra", mergeRunID, nil)
	if openErr == nil {
		_ = store.WriteMergeReport(result)
		_ = store.Close()
	}
	if err != nil {
		return err
	}

	return printJSONOrLine(result, fmt.Sprintf("merged %s into %s at %s", agentKey, targetBranch, result.CommitSHA))
}

// selectWinner picks the highest-scoring mergeable agent recorded in the
// run's manifest, falling back to the highest composite score if none are
// mergeable (the caller still needs --force to actually merge it).
func selectWinner(manifest core.RunManifest, runID string) (core.AgentKey, []string, error) {
	type scored struct {
		key          core.AgentKey
		composite    float64
		mergeable    bool
		gateFailures []string
	}

	var candidates []scored
	for _, a := range manifest.Adapters {
		sb, err := artifact.ReadAgentScore(".hydra", runID, a.Key)
		if err != nil || sb.Composite == nil {
			continue
		}
		candidates = append(candidates, scored{key: a.Key, composite: *sb.Composite, mergeable: sb.Mergeable, gateFailures: sb.GateFailures})
	}
	if len(candidates) == 0 {
		return "", nil, core.ErrNotFound("scored agent", runID)
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		switch {
		case c.mergeable && !best.mergeable:
			best = c
		case c.mergeable == best.mergeable && c.composite > best.composite:
			best = c
		}
	}
	return best.key, best.gateFailures, nil
}

func printJSONOrLine(v interface{}, line string) error {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Println(line)
	return nil
}
