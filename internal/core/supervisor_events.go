package core

import "time"

// SupervisorEventKind is the closed set of events a Process Supervisor
// emits while it owns one child process.
type SupervisorEventKind string

const (
	SupervisorStarted    SupervisorEventKind = "started"
	SupervisorStdoutLine SupervisorEventKind = "stdout_line"
	SupervisorStderrLine SupervisorEventKind = "stderr_line"
	SupervisorUsage      SupervisorEventKind = "usage"
	SupervisorCompleted  SupervisorEventKind = "completed"
	SupervisorFailed     SupervisorEventKind = "failed"
	SupervisorTimedOut   SupervisorEventKind = "timed_out"
	SupervisorWarning    SupervisorEventKind = "warning"
)

// FailureKind enumerates the distinguished error kinds a supervisor (or the
// Race Driver wrapping it) can surface.
type FailureKind string

const (
	FailureSpawn        FailureKind = "spawn_failure"
	FailurePipeRead     FailureKind = "pipe_read_error"
	FailureNonZeroExit  FailureKind = "non_zero_exit"
	FailureCancelled    FailureKind = "cancelled"
	FailurePanic        FailureKind = "panic"
)

// TimeoutKind distinguishes the two timeout tiers a supervisor enforces.
type TimeoutKind string

const (
	TimeoutHard TimeoutKind = "hard"
	TimeoutIdle TimeoutKind = "idle"
)

// SupervisorEvent is one item in the stream a Process Supervisor produces
// for its owning Race Driver task to drain into persisted EventRecords.
type SupervisorEvent struct {
	Kind      SupervisorEventKind
	Timestamp time.Time

	Line      string // stdout_line / stderr_line
	Normalized *NormalizedEvent

	ExitCode int           // completed
	Duration time.Duration // completed

	FailureKind FailureKind // failed
	Err         error       // failed

	TimeoutKind TimeoutKind // timed_out

	Usage *UsageReport // usage

	DroppedLines int // set on stdout_line/stderr_line when the buffer cap evicted older lines

	Message string // warning
}

// SupervisorOutcome is the terminal result of supervising one process,
// independent of the event stream, used by the Race Driver to decide which
// EventRecord to synthesize and whether scoring should run.
type SupervisorOutcome struct {
	AgentKey    AgentKey
	ExitCode    int
	Duration    time.Duration
	Succeeded   bool
	FailureKind FailureKind
	TimeoutKind TimeoutKind
	Err         error
	StdoutTail  []string
	StderrTail  []string
	Usage       UsageReport
}
