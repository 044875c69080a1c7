package race

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydra-cli/hydra/internal/adapter"
	"github.com/hydra-cli/hydra/internal/core"
	"github.com/hydra-cli/hydra/internal/redact"
	"github.com/hydra-cli/hydra/internal/supervisor"
	"github.com/hydra-cli/hydra/internal/worktree"
)

func wrapAdapter(a core.Adapter) adapter.ResolvedAdapter {
	return adapter.ResolvedAdapter{Adapter: a, Probe: core.ProbeReport{AgentKey: a.Key(), Tier: a.Tier(), Status: core.ProbeReady}}
}

// fakeAdapter is a minimal core.Adapter for exercising the driver without
// shelling out to a real agent CLI.
type fakeAdapter struct {
	key        core.AgentKey
	tier       core.Tier
	buildPanic bool
	script     string
}

func (f *fakeAdapter) Key() core.AgentKey { return f.key }
func (f *fakeAdapter) Tier() core.Tier    { return f.tier }
func (f *fakeAdapter) Probe(ctx context.Context, binaryPath string) (core.ProbeReport, error) {
	return core.ProbeReport{AgentKey: f.key, Tier: f.tier, Status: core.ProbeReady}, nil
}
func (f *fakeAdapter) BuildCommand(prompt, worktreePath string, opts core.ExecuteOptions) (core.CommandSpec, error) {
	if f.buildPanic {
		panic("boom: adapter misconfigured")
	}
	return core.CommandSpec{Path: "sh", Args: []string{"-c", f.script}}, nil
}
func (f *fakeAdapter) ParseLine(raw string) core.NormalizedEvent {
	return core.NormalizedEvent{Kind: core.NormalizedIgnored, Raw: raw}
}

type fakeEventSink struct {
	mu      sync.Mutex
	records []core.EventRecord
}

func (s *fakeEventSink) Write(ctx context.Context, rec core.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *fakeEventSink) kinds() []core.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.EventKind, len(s.records))
	for i, r := range s.records {
		out[i] = r.Kind
	}
	return out
}

type fakeBudget struct {
	mu        sync.Mutex
	cancels   map[core.AgentKey]func()
	observed  []core.UsageReport
}

func newFakeBudget() *fakeBudget {
	return &fakeBudget{cancels: make(map[core.AgentKey]func())}
}

func (b *fakeBudget) Register(agentKey core.AgentKey, cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancels[agentKey] = cancel
}

func (b *fakeBudget) Observe(agentKey core.AgentKey, usage core.UsageReport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observed = append(b.observed, usage)
}

type fakeGit struct {
	removeCalls []string
}

func (f *fakeGit) RepoRoot(ctx context.Context) (string, error)       { return "/repo", nil }
func (f *fakeGit) IsGitRepo(ctx context.Context) bool                 { return true }
func (f *fakeGit) CurrentBranch(ctx context.Context) (string, error)  { return "main", nil }
func (f *fakeGit) HeadCommit(ctx context.Context) (string, error)     { return "deadbeef", nil }
func (f *fakeGit) IsClean(ctx context.Context) (bool, error)          { return true, nil }
func (f *fakeGit) WorktreeAdd(ctx context.Context, path, branch, baseRef string) error {
	return nil
}
func (f *fakeGit) WorktreeRemove(ctx context.Context, path string, force bool) error {
	f.removeCalls = append(f.removeCalls, path)
	return nil
}
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

type fakeScorer struct{}

func (fakeScorer) Score(ctx context.Context, agentKey core.AgentKey, wt core.WorktreeHandle, outcome core.SupervisorOutcome) (core.ScoreBreakdown, error) {
	return core.ScoreBreakdown{AgentKey: agentKey, Mergeable: outcome.Succeeded}, nil
}

func TestRunAgents_PanicIsolation(t *testing.T) {
	budget := newFakeBudget()
	deps := Deps{
		Redactor: redact.New(),
		Events:   &fakeEventSink{},
		Budget:   budget,
	}
	cfg := Config{RunID: "run-1", Policy: supervisor.DefaultPolicy()}

	prepared := []preparedAgent{
		{
			resolved: wrapAdapter(&fakeAdapter{key: "boom", tier: core.TierOne, buildPanic: true}),
			handle:   core.WorktreeHandle{AgentKey: "boom", RunID: "run-1"},
		},
		{
			resolved: wrapAdapter(&fakeAdapter{key: "ok", tier: core.TierOne, script: "echo fine"}),
			handle:   core.WorktreeHandle{AgentKey: "ok", RunID: "run-1"},
		},
	}

	results := runAgents(context.Background(), cfg, deps, prepared)
	require.Len(t, results, 2)

	byKey := map[core.AgentKey]AgentTaskResult{}
	for _, r := range results {
		byKey[r.AgentKey] = r
	}

	boom := byKey["boom"]
	assert.True(t, boom.Panicked)
	assert.Equal(t, core.FailurePanic, boom.Outcome.FailureKind)

	ok := byKey["ok"]
	assert.False(t, ok.Panicked)
	assert.True(t, ok.Outcome.Succeeded)
}

func TestCleanupAll_RunsForEveryPreparedAgent(t *testing.T) {
	git := &fakeGit{}
	svc := worktree.New(git, t.TempDir())
	deps := Deps{Worktrees: svc}

	prepared := []preparedAgent{
		{handle: core.WorktreeHandle{Path: "/a", AgentKey: "a"}},
		{handle: core.WorktreeHandle{Path: "/b", AgentKey: "b"}},
	}

	cleanupAll(deps, prepared)

	assert.ElementsMatch(t, []string{"/a", "/b"}, git.removeCalls)
}

func TestScoreAndRank_EmitsStartAndFinishEvents(t *testing.T) {
	sink := &fakeEventSink{}
	deps := Deps{Events: sink, Scorer: fakeScorer{}}

	results := []AgentTaskResult{
		{AgentKey: "a", Outcome: core.SupervisorOutcome{Succeeded: true}},
		{AgentKey: "b", Outcome: core.SupervisorOutcome{Succeeded: false}},
	}

	scores := scoreAndRank(context.Background(), "run-2", deps, results)

	require.Len(t, scores, 2)
	kinds := sink.kinds()
	assert.Contains(t, kinds, core.EventScoringStarted)
	assert.Contains(t, kinds, core.EventScoringFinished)
	for _, rec := range sink.records {
		assert.Equal(t, "run-2", rec.RunID)
	}
}

func TestRunOneAgent_RegistersWithBudget(t *testing.T) {
	budget := newFakeBudget()
	deps := Deps{
		Redactor: redact.New(),
		Events:   &fakeEventSink{},
		Budget:   budget,
	}
	cfg := Config{RunID: "run-3", Policy: supervisor.DefaultPolicy()}
	pa := preparedAgent{
		resolved: wrapAdapter(&fakeAdapter{key: "ok", tier: core.TierOne, script: "echo hi"}),
		handle:   core.WorktreeHandle{AgentKey: "ok", RunID: "run-3"},
	}

	res := runOneAgent(context.Background(), cfg, deps, pa)

	require.True(t, res.Outcome.Succeeded)
	budget.mu.Lock()
	_, registered := budget.cancels["ok"]
	budget.mu.Unlock()
	assert.True(t, registered)
}
