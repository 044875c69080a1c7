package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydra-cli/hydra/internal/core"
	"github.com/hydra-cli/hydra/internal/diagnostics"
	"github.com/hydra-cli/hydra/internal/redact"
)

func collectEvents(events *[]core.SupervisorEvent) func(core.SupervisorEvent) {
	return func(e core.SupervisorEvent) { *events = append(*events, e) }
}

func TestRun_SuccessfulExit(t *testing.T) {
	spec := core.CommandSpec{Path: "sh", Args: []string{"-c", "echo hello; echo world 1>&2"}}
	var events []core.SupervisorEvent

	outcome := Run(context.Background(), "claude", spec, DefaultPolicy(), nil, redact.New(), collectEvents(&events))

	require.True(t, outcome.Succeeded)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.Contains(t, outcome.StdoutTail, "hello")
	assert.Contains(t, outcome.StderrTail, "world")
}

func TestRun_NonZeroExit(t *testing.T) {
	spec := core.CommandSpec{Path: "sh", Args: []string{"-c", "exit 3"}}
	var events []core.SupervisorEvent

	outcome := Run(context.Background(), "codex", spec, DefaultPolicy(), nil, redact.New(), collectEvents(&events))

	require.False(t, outcome.Succeeded)
	assert.Equal(t, core.FailureNonZeroExit, outcome.FailureKind)
	assert.Equal(t, 3, outcome.ExitCode)
}

func TestRun_PreflightWarningDoesNotBlockSpawn(t *testing.T) {
	spec := core.CommandSpec{Path: "sh", Args: []string{"-c", "echo hi"}}
	policy := DefaultPolicy()
	monitor := diagnostics.NewResourceMonitor(0, 0, 0, 0, 0, nil)
	policy.Preflight = diagnostics.NewSafeExecutor(monitor, nil, true, 1000, 0)
	var events []core.SupervisorEvent

	outcome := Run(context.Background(), "claude", spec, policy, nil, redact.New(), collectEvents(&events))

	require.True(t, outcome.Succeeded)
	found := false
	for _, e := range events {
		if e.Kind == core.SupervisorWarning {
			found = true
		}
	}
	assert.True(t, found, "expected a preflight warning event before spawn")
}

func TestRun_HardTimeout(t *testing.T) {
	spec := core.CommandSpec{Path: "sh", Args: []string{"-c", "sleep 5"}}
	policy := DefaultPolicy()
	policy.HardTimeout = 50 * time.Millisecond
	policy.IdleTimeout = time.Hour
	policy.GracePeriod = 50 * time.Millisecond
	var events []core.SupervisorEvent

	outcome := Run(context.Background(), "gemini", spec, policy, nil, redact.New(), collectEvents(&events))

	require.False(t, outcome.Succeeded)
	assert.Equal(t, core.TimeoutHard, outcome.TimeoutKind)
}

func TestRun_Cancellation(t *testing.T) {
	spec := core.CommandSpec{Path: "sh", Args: []string{"-c", "sleep 5"}}
	policy := DefaultPolicy()
	policy.HardTimeout = time.Hour
	policy.IdleTimeout = time.Hour
	policy.GracePeriod = 50 * time.Millisecond
	cancel := NewCancelHandle()
	policy.Cancel = cancel

	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel.Cancel()
	}()

	outcome := Run(context.Background(), "claude", spec, policy, nil, redact.New(), func(core.SupervisorEvent) {})

	require.False(t, outcome.Succeeded)
	assert.Equal(t, core.FailureCancelled, outcome.FailureKind)
}

func TestRun_SpawnFailure(t *testing.T) {
	spec := core.CommandSpec{Path: "/no/such/binary-hydra-test"}
	outcome := Run(context.Background(), "claude", spec, DefaultPolicy(), nil, redact.New(), func(core.SupervisorEvent) {})

	require.False(t, outcome.Succeeded)
	assert.Equal(t, core.FailureSpawn, outcome.FailureKind)
}

func TestRingBuffer_DropsOldest(t *testing.T) {
	rb := newRingBuffer(2)
	rb.push("a")
	rb.push("b")
	rb.push("c")

	assert.Equal(t, []string{"b", "c"}, rb.snapshot())
	assert.Equal(t, 1, rb.droppedCount())
}
