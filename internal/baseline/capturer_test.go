package baseline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydra-cli/hydra/internal/core"
)

func TestCapture_UnavailableWhenUnconfigured(t *testing.T) {
	snap := Capture(context.Background(), Profile{})

	assert.Equal(t, core.CommandOutcomeUnavailable, snap.Build.Outcome.Status)
	assert.Equal(t, core.CommandOutcomeUnavailable, snap.Tests.Outcome.Status)
	assert.Equal(t, core.CommandOutcomeUnavailable, snap.Lint.Outcome.Status)
	assert.Nil(t, snap.Tests.TestCounts)
	assert.Nil(t, snap.Lint.LintCounts)
}

func TestCapture_RunsConfiguredCommands(t *testing.T) {
	profile := Profile{
		Build: []string{"sh", "-c", "exit 0"},
		Test:  []string{"sh", "-c", "echo 'Tests:       1 failed, 4 passed, 5 total'"},
		Lint:  []string{"sh", "-c", "echo '3 issues found'"},
	}

	snap := Capture(context.Background(), profile)

	require.Equal(t, core.CommandOutcomeOK, snap.Build.Outcome.Status)
	assert.Equal(t, 0, snap.Build.Outcome.ExitCode)

	require.NotNil(t, snap.Tests.TestCounts)
	assert.Equal(t, 5, snap.Tests.TestCounts.Total)
	assert.Equal(t, 4, snap.Tests.TestCounts.Passed)
	assert.Equal(t, 1, snap.Tests.TestCounts.Failed)

	require.NotNil(t, snap.Lint.LintCounts)
	assert.Equal(t, 3, snap.Lint.LintCounts.Warnings)
}

func TestParseTestCounts_GoTestFallback(t *testing.T) {
	outcome := core.CommandOutcome{Stdout: "--- PASS: TestA\n--- PASS: TestB\n--- FAIL: TestC\n", ExitCode: 1}
	counts := parseTestCounts(outcome)
	assert.Equal(t, 3, counts.Total)
	assert.Equal(t, 2, counts.Passed)
	assert.Equal(t, 1, counts.Failed)
}

func TestParseTestCounts_ExitCodeFallback(t *testing.T) {
	counts := parseTestCounts(core.CommandOutcome{ExitCode: 0})
	assert.Equal(t, core.TestCounts{Total: 1, Passed: 1, Failed: 0}, counts)

	counts = parseTestCounts(core.CommandOutcome{ExitCode: 1})
	assert.Equal(t, core.TestCounts{Total: 1, Passed: 0, Failed: 1}, counts)
}
