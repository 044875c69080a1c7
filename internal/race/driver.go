// Package race fans out one prompt across N resolved adapters in parallel,
// each inside its own isolated worktree, with full failure isolation: a
// panic or failure in one agent's task can never abort another's, and can
// never make the overall run status "completed".
package race

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/hydra-cli/hydra/internal/adapter"
	"github.com/hydra-cli/hydra/internal/core"
	"github.com/hydra-cli/hydra/internal/redact"
	"github.com/hydra-cli/hydra/internal/supervisor"
	"github.com/hydra-cli/hydra/internal/worktree"
)

// EventSink persists one EventRecord. Implemented by the Artifact Store.
type EventSink interface {
	Write(ctx context.Context, rec core.EventRecord) error
}

// BudgetSink receives usage updates and holds the cancellation handles the
// Budget Controller dispatches to on threshold crossing.
type BudgetSink interface {
	Register(agentKey core.AgentKey, cancel func())
	Observe(agentKey core.AgentKey, usage core.UsageReport)
}

// Scorer computes one agent's ScoreBreakdown from its finished worktree.
type Scorer interface {
	Score(ctx context.Context, agentKey core.AgentKey, worktree core.WorktreeHandle, outcome core.SupervisorOutcome) (core.ScoreBreakdown, error)
}

// Ranker orders a set of ScoreBreakdowns into the final race standings.
type Ranker interface {
	Rank(scores []core.ScoreBreakdown) []core.ScoreBreakdown
}

// Config is one race's invocation parameters.
type Config struct {
	RunID             string
	BaseRef           string
	Prompt            string
	AgentKeys         []core.AgentKey
	AllowExperimental bool
	Policy            supervisor.Policy
	ExecuteOptions    core.ExecuteOptions
}

// Deps wires the Race Driver to its collaborators.
type Deps struct {
	Registry  *adapter.Registry
	Git       core.GitClient
	Worktrees *worktree.Service
	Redactor  *redact.Redactor
	Events    EventSink
	Budget    BudgetSink
	Scorer    Scorer
	Ranker    Ranker
}

// AgentTaskResult is one agent's complete task outcome, whether it
// finished normally, failed, timed out, or panicked.
type AgentTaskResult struct {
	AgentKey  core.AgentKey
	Worktree  core.WorktreeHandle
	Probe     core.ProbeReport
	Outcome   core.SupervisorOutcome
	Panicked  bool
	PanicInfo string
}

// Result is the full outcome of one race.
type Result struct {
	RunID  string
	Agents []AgentTaskResult
	Scores []core.ScoreBreakdown
}

type preparedAgent struct {
	resolved adapter.ResolvedAdapter
	handle   core.WorktreeHandle
}

// Run executes one race end to end: resolve adapters, create worktrees,
// fan out supervised agent processes with panic isolation, score the
// results, and always clean up worktrees before returning.
func Run(ctx context.Context, cfg Config, deps Deps) (Result, error) {
	if !deps.Git.IsGitRepo(ctx) {
		return Result{}, core.ErrReadiness(core.CodeNotGitRepo, "workspace is not a git repository")
	}

	resolved, err := deps.Registry.ResolveMany(ctx, cfg.AgentKeys, cfg.AllowExperimental)
	if err != nil {
		return Result{}, err
	}

	writeEvent(ctx, deps, cfg.RunID, core.SystemAgentKey, core.EventRaceProcessStarted, map[string]interface{}{
		"agents": cfg.AgentKeys,
	})

	prepared := make([]preparedAgent, 0, len(resolved))
	for _, r := range resolved {
		handle, err := deps.Worktrees.Create(ctx, cfg.RunID, r.Adapter.Key(), cfg.BaseRef)
		if err != nil {
			// Earlier worktrees already exist; clean them all up before
			// surfacing the failure.
			cleanupAll(deps, prepared)
			return Result{}, err
		}
		prepared = append(prepared, preparedAgent{resolved: r, handle: handle})
	}

	results := runAgents(ctx, cfg, deps, prepared)

	scores := scoreAndRank(ctx, cfg.RunID, deps, results)

	cleanupAll(deps, prepared)

	writeEvent(ctx, deps, cfg.RunID, core.SystemAgentKey, core.EventRaceCompleted, nil)

	return Result{RunID: cfg.RunID, Agents: results, Scores: scores}, nil
}

func runAgents(ctx context.Context, cfg Config, deps Deps, prepared []preparedAgent) []AgentTaskResult {
	p := pool.NewWithResults[AgentTaskResult]().WithContext(ctx)

	for _, pa := range prepared {
		pa := pa
		p.Go(func(taskCtx context.Context) (res AgentTaskResult, _ error) {
			defer func() {
				if r := recover(); r != nil {
					res = AgentTaskResult{
						AgentKey:  pa.resolved.Adapter.Key(),
						Worktree:  pa.handle,
						Probe:     pa.resolved.Probe,
						Panicked:  true,
						PanicInfo: fmt.Sprintf("%v", r),
						Outcome: core.SupervisorOutcome{
							AgentKey:    pa.resolved.Adapter.Key(),
							Succeeded:   false,
							FailureKind: core.FailurePanic,
						},
					}
					writeEvent(context.Background(), deps, cfg.RunID, pa.resolved.Adapter.Key(), core.EventAgentFailed, map[string]interface{}{
						"failure_kind": core.FailurePanic,
						"panic":        res.PanicInfo,
					})
				}
			}()
			return runOneAgent(taskCtx, cfg, deps, pa), nil
		})
	}

	// Every task returns a nil error regardless of outcome, so this error
	// is always nil: one agent's failure must never cancel the others.
	agentResults, _ := p.Wait()
	return agentResults
}

func runOneAgent(ctx context.Context, cfg Config, deps Deps, pa preparedAgent) AgentTaskResult {
	key := pa.resolved.Adapter.Key()

	spec, err := pa.resolved.Adapter.BuildCommand(cfg.Prompt, pa.handle.Path, cfg.ExecuteOptions)
	if err != nil {
		outcome := core.SupervisorOutcome{AgentKey: key, Succeeded: false, FailureKind: core.FailureSpawn, Err: err}
		writeEvent(ctx, deps, cfg.RunID, key, core.EventAgentFailed, map[string]interface{}{"failure_kind": core.FailureSpawn, "error": err.Error()})
		return AgentTaskResult{AgentKey: key, Worktree: pa.handle, Probe: pa.resolved.Probe, Outcome: outcome}
	}

	cancel := supervisor.NewCancelHandle()
	policy := cfg.Policy
	policy.Cancel = cancel
	deps.Budget.Register(key, cancel.Cancel)

	writeEvent(ctx, deps, cfg.RunID, key, core.EventAgentStarted, map[string]interface{}{"path": spec.Path})

	outcome := supervisor.Run(ctx, key, spec, policy, pa.resolved.Adapter.ParseLine, deps.Redactor, func(ev core.SupervisorEvent) {
		translateEvent(ctx, deps, cfg.RunID, key, ev)
	})

	return AgentTaskResult{AgentKey: key, Worktree: pa.handle, Probe: pa.resolved.Probe, Outcome: outcome}
}

func translateEvent(ctx context.Context, deps Deps, runID string, key core.AgentKey, ev core.SupervisorEvent) {
	switch ev.Kind {
	case core.SupervisorStdoutLine:
		writeEvent(ctx, deps, runID, key, core.EventAgentStdout, map[string]interface{}{"line": ev.Line, "dropped": ev.DroppedLines})
	case core.SupervisorStderrLine:
		writeEvent(ctx, deps, runID, key, core.EventAgentStderr, map[string]interface{}{"line": ev.Line, "dropped": ev.DroppedLines})
	case core.SupervisorUsage:
		if ev.Usage != nil {
			deps.Budget.Observe(key, *ev.Usage)
			writeEvent(ctx, deps, runID, key, core.EventAgentUsage, map[string]interface{}{
				"input_tokens": ev.Usage.InputTokens, "output_tokens": ev.Usage.OutputTokens,
			})
		}
	case core.SupervisorCompleted:
		writeEvent(ctx, deps, runID, key, core.EventAgentCompleted, map[string]interface{}{"exit_code": ev.ExitCode, "duration_ms": ev.Duration.Milliseconds()})
	case core.SupervisorFailed:
		writeEvent(ctx, deps, runID, key, core.EventAgentFailed, map[string]interface{}{"failure_kind": ev.FailureKind, "exit_code": ev.ExitCode})
	case core.SupervisorTimedOut:
		writeEvent(ctx, deps, runID, key, core.EventAgentTimedOut, map[string]interface{}{"timeout_kind": ev.TimeoutKind})
	case core.SupervisorWarning:
		writeEvent(ctx, deps, runID, key, core.EventAgentWarning, map[string]interface{}{"message": ev.Message})
	}
}

func scoreAndRank(ctx context.Context, runID string, deps Deps, results []AgentTaskResult) []core.ScoreBreakdown {
	if deps.Scorer == nil {
		return nil
	}

	writeEvent(ctx, deps, runID, core.SystemAgentKey, core.EventScoringStarted, nil)

	scores := make([]core.ScoreBreakdown, 0, len(results))
	for _, res := range results {
		sb, err := deps.Scorer.Score(ctx, res.AgentKey, res.Worktree, res.Outcome)
		if err != nil {
			sb = core.ScoreBreakdown{AgentKey: res.AgentKey, Mergeable: false, GateFailures: []string{"scoring_error"}}
		}
		scores = append(scores, sb)
	}

	if deps.Ranker != nil {
		scores = deps.Ranker.Rank(scores)
	}

	writeEvent(ctx, deps, runID, core.SystemAgentKey, core.EventScoringFinished, nil)
	return scores
}

func cleanupAll(deps Deps, prepared []preparedAgent) {
	cleanupCtx := context.Background()
	for _, pa := range prepared {
		_ = deps.Worktrees.Remove(cleanupCtx, pa.handle)
	}
}

func writeEvent(ctx context.Context, deps Deps, runID string, key core.AgentKey, kind core.EventKind, payload map[string]interface{}) {
	if deps.Events == nil {
		return
	}
	_ = deps.Events.Write(ctx, core.EventRecord{
		Timestamp: time.Now(),
		RunID:     runID,
		AgentKey:  key,
		Kind:      kind,
		Payload:   payload,
	})
}
