package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hydra-cli/hydra/internal/adapter"
	"github.com/hydra-cli/hydra/internal/artifact"
	"github.com/hydra-cli/hydra/internal/artifact/runindex"
	"github.com/hydra-cli/hydra/internal/baseline"
	"github.com/hydra-cli/hydra/internal/budget"
	"github.com/hydra-cli/hydra/internal/core"
	"github.com/hydra-cli/hydra/internal/diagnostics"
	"github.com/hydra-cli/hydra/internal/gitutil"
	"github.com/hydra-cli/hydra/internal/race"
	"github.com/hydra-cli/hydra/internal/redact"
	"github.com/hydra-cli/hydra/internal/render"
	"github.com/hydra-cli/hydra/internal/scoring"
	"github.com/hydra-cli/hydra/internal/supervisor"
	"github.com/hydra-cli/hydra/internal/worktree"
)

var (
	raceAgentsFlag      string
	raceAllowExperiment bool
	racePromptFlag      string
)

var raceCmd = &cobra.Command{
	Use:   "race",
	Short: "Fan a prompt out across agents in isolated worktrees and score the results",
	RunE:  runRace,
}

func init() {
	raceCmd.Flags().StringVar(&raceAgentsFlag, "agents", "", "comma-separated agent keys to race (required)")
	raceCmd.Flags().BoolVar(&raceAllowExperiment, "allow-experimental-adapters", false, "opt in to experimental-tier adapters")
	raceCmd.Flags().StringVar(&racePromptFlag, "prompt", "", "prompt text sent to every agent (required)")
	rootCmd.AddCommand(raceCmd)
}

func runRace(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if racePromptFlag == "" {
		return core.ErrValidation("PROMPT_REQUIRED", "--prompt is required")
	}
	agentKeys := parseAgentKeys(raceAgentsFlag)
	if len(agentKeys) == 0 {
		return core.ErrValidation("AGENTS_REQUIRED", "--agents is required")
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	git, err := gitutil.NewClient(wd)
	if err != nil {
		return err
	}

	baseRef, err := git.CurrentBranch(ctx)
	if err != nil {
		return core.ErrReadiness(core.CodeGitUnavailable, "resolving base ref: "+err.Error())
	}
	clean, err := git.IsClean(ctx)
	if err != nil {
		return core.ErrReadiness(core.CodeGitUnavailable, "checking working tree: "+err.Error())
	}
	if !clean {
		return core.ErrReadiness(core.CodeWorkingTreeDirty, "working tree has uncommitted changes; commit or stash before racing")
	}

	runID := uuid.NewString()
	runLogger := logger.WithRun(runID)
	runLogger.Info("race starting", "base_ref", baseRef, "agents", agentKeys)

	reg := adapter.NewRegistry()
	applyAdapterOverrides(reg, cfg)

	redactor := redact.New()
	store, err := artifact.Open(".hydra", runID, redactor)
	if err != nil {
		return err
	}
	defer store.Close()

	hardTimeout, _ := time.ParseDuration(cfg.Supervisor.HardTimeout)
	idleTimeout, _ := time.ParseDuration(cfg.Supervisor.IdleTimeout)
	gracePeriod, _ := time.ParseDuration(cfg.Supervisor.GracePeriod)

	resourceMonitor := diagnostics.NewResourceMonitor(5*time.Second, 90, 0, 0, 0, logger.Logger)
	resourceMonitor.Start(ctx)
	defer resourceMonitor.Stop()
	preflight := diagnostics.NewSafeExecutor(resourceMonitor, logger.Logger, true, 10, 256)

	policy := supervisor.Policy{
		HardTimeout: hardTimeout,
		IdleTimeout: idleTimeout,
		GracePeriod: gracePeriod,
		BufferCap:   cfg.Supervisor.BufferCap,
		Preflight:   preflight,
	}

	limits := budget.Limits{MaxTotalTokens: cfg.Budget.MaxTotalTokens, MaxCostUSD: cfg.Budget.MaxCostUSD}
	budgetCtrl := budget.New(limits, func(ev budget.StopEvent) {
		logger.Warn("budget threshold crossed", "reason", ev.Reason)
	})

	commandTimeout, err := time.ParseDuration(cfg.Scoring.CommandTimeout)
	if err != nil {
		commandTimeout = 10 * time.Minute
	}

	baselineProfile := baseline.Profile{
		Dir:     wd,
		Build:   cfg.Scoring.Build,
		Test:    cfg.Scoring.Test,
		Lint:    cfg.Scoring.Lint,
		Timeout: commandTimeout,
	}
	baselineSnapshot := baseline.Capture(ctx, baselineProfile)
	if err := store.WriteBaseline(baselineSnapshot); err != nil {
		return err
	}

	scoringConfig := scoring.Config{
		Weights: cfg.Scoring.Weights,
		Gates: scoring.Gates{
			RequireBuildPass:  cfg.Scoring.RequireBuildPass,
			MaxTestRegression: cfg.Scoring.MaxTestRegression,
		},
		DiffScope: scoring.DiffScopeThresholds{
			MaxLinesChanged: cfg.Scoring.DiffScope.MaxLinesChanged,
			MaxFilesTouched: cfg.Scoring.DiffScope.MaxFilesTouched,
			ProtectedPaths:  cfg.Scoring.DiffScope.ProtectedPaths,
			ProtectedCap:    cfg.Scoring.DiffScope.ProtectedCap,
		},
		TestParams: scoring.TestParams{
			RegressionPenaltyPerTest: cfg.Scoring.RegressionPenaltyPerTest,
			NewTestBonusPerTest:      cfg.Scoring.NewTestBonusPerTest,
			AllowedTestDrop:          cfg.Scoring.AllowedTestDrop,
			TestDropCapScore:         cfg.Scoring.TestDropCapScore,
		},
		LintParams: scoring.LintParams{PenaltyPerWarning: cfg.Scoring.LintPenaltyPerWarning},
	}

	engine := &scoring.Engine{
		Baseline: baselineSnapshot,
		BaseRef:  baseRef,
		Commands: baseline.Profile{Build: cfg.Scoring.Build, Test: cfg.Scoring.Test, Lint: cfg.Scoring.Lint, Timeout: commandTimeout},
		GitFor: func(path string) core.GitClient {
			return git.At(path)
		},
		Config: scoringConfig,
	}

	wtService := worktree.New(git, cfg.Worktree.BaseDir)

	raceCfg := race.Config{
		RunID:             runID,
		BaseRef:           baseRef,
		Prompt:            racePromptFlag,
		AgentKeys:         agentKeys,
		AllowExperimental: raceAllowExperiment,
		Policy:            policy,
		ExecuteOptions:    core.ExecuteOptions{Prompt: racePromptFlag, Timeout: hardTimeout},
	}
	deps := race.Deps{
		Registry:  reg,
		Git:       git,
		Worktrees: wtService,
		Redactor:  redactor,
		Events:    store,
		Budget:    budgetCtrl,
		Scorer:    engine,
		Ranker:    engine,
	}

	manifest := core.RunManifest{
		SchemaVersion: core.CurrentSchemaVersion,
		RunID:         runID,
		CreatedAt:     time.Now(),
		BaseRef:       baseRef,
		Status:        core.RunStatusRunning,
	}
	if head, err := git.HeadCommit(ctx); err == nil {
		manifest.BaseCommit = head
	}
	if err := store.WriteManifest(manifest); err != nil {
		return err
	}
	recordRunIndex(manifest, race.Result{})

	result, err := race.Run(ctx, raceCfg, deps)
	if err != nil {
		runLogger.Error("race failed", "error", err)
		manifest.Status = core.RunStatusFailed
		_ = store.WriteManifest(manifest)
		recordRunIndex(manifest, race.Result{})
		return err
	}
	for _, ar := range result.Agents {
		runLogger.WithAgent(string(ar.AgentKey)).Info("agent finished", "succeeded", ar.Outcome.Succeeded)
	}

	for _, sb := range result.Scores {
		if err := store.WriteAgentScore(sb.AgentKey, sb); err != nil {
			logger.Warn("writing agent score", "agent", sb.AgentKey, "error", err)
		}
	}
	for _, ar := range result.Agents {
		if ar.Outcome.Succeeded {
			if patch, err := git.DiffPatch(ctx, baseRef, core.BranchName(runID, ar.AgentKey)); err == nil {
				_ = store.WriteAgentDiff(ar.AgentKey, patch)
			}
		}
	}

	manifest.Status = core.RunStatusCompleted
	now := time.Now()
	manifest.CompletedAt = &now
	for _, ar := range result.Agents {
		manifest.Adapters = append(manifest.Adapters, core.AdapterEntry{
			Key:     ar.AgentKey,
			Tier:    string(ar.Probe.Tier),
			Version: ar.Probe.Version,
		})
	}
	if err := store.WriteManifest(manifest); err != nil {
		return err
	}

	recordRunIndex(manifest, result)
	runLogger.Info("race completed", "status", manifest.Status)

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		fmt.Printf("run %s\n", runID)
		fmt.Print(render.Scoreboard(result.Scores))
	}

	return nil
}

// recordRunIndex catalogs a completed run in the local sqlite index, best
// effort: a catalog write failure must never fail an otherwise-successful
// race.
func recordRunIndex(manifest core.RunManifest, result race.Result) {
	idx, err := runindex.Open(filepath.Join(".hydra", "index.db"))
	if err != nil {
		logger.Warn("opening run index", "error", err)
		return
	}
	defer idx.Close()

	var winner string
	var bestComposite float64
	for _, sb := range result.Scores {
		if sb.Mergeable && sb.Composite != nil && (winner == "" || *sb.Composite > bestComposite) {
			winner = string(sb.AgentKey)
			bestComposite = *sb.Composite
		}
	}

	agentKeys := make([]string, 0, len(manifest.Adapters))
	for _, a := range manifest.Adapters {
		agentKeys = append(agentKeys, string(a.Key))
	}

	err = idx.Upsert(context.Background(), runindex.Summary{
		RunID:         manifest.RunID,
		CreatedAt:     manifest.CreatedAt,
		CompletedAt:   manifest.CompletedAt,
		BaseRef:       manifest.BaseRef,
		BaseCommit:    manifest.BaseCommit,
		Status:        manifest.Status,
		AgentKeys:     agentKeys,
		WinnerAgent:   winner,
		BudgetStopped: manifest.BudgetStopped,
	})
	if err != nil {
		logger.Warn("recording run index", "error", err)
	}
}
