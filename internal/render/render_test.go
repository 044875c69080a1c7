package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hydra-cli/hydra/internal/core"
	"github.com/hydra-cli/hydra/internal/doctor"
)

func TestReadiness_ReadyReportMentionsEveryAdapter(t *testing.T) {
	report := doctor.Report{
		GeneratedAt: time.Now(),
		Adapters: []doctor.AdapterCheck{
			{AgentKey: "claude", Tier: core.TierOne, Status: core.ProbeReady},
			{AgentKey: "copilot", Tier: core.TierExperimental, Status: core.ProbeBlocked, Message: "not opted in"},
		},
		Repo:  doctor.RepoCheck{GitAvailable: true, IsRepo: true, Clean: true, WorktreeSane: true},
		Ready: false,
	}

	out := Readiness(report)
	assert.Contains(t, out, "claude")
	assert.Contains(t, out, "copilot")
	assert.Contains(t, out, "not opted in")
	assert.Contains(t, out, "NOT READY")
}

func TestReadiness_ReadyReportSaysReady(t *testing.T) {
	report := doctor.Report{
		Repo:  doctor.RepoCheck{GitAvailable: true, IsRepo: true, Clean: true, WorktreeSane: true},
		Ready: true,
	}
	assert.Contains(t, Readiness(report), "READY")
}

func TestScoreboard_RendersRankAndMergeability(t *testing.T) {
	composite := 87.5
	scores := []core.ScoreBreakdown{
		{AgentKey: "claude", Composite: &composite, Mergeable: true},
		{AgentKey: "codex", Composite: nil, Mergeable: false, GateFailures: []string{"build_failed"}},
	}

	out := Scoreboard(scores)
	assert.Contains(t, out, "1. claude")
	assert.Contains(t, out, "87.5")
	assert.Contains(t, out, "2. codex")
	assert.Contains(t, out, "build_failed")
}
