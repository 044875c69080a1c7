// Package supervisor runs one agent process to completion: spawning it in
// an isolated process group, streaming its output through bounded,
// redacted, line-buffered capture, and enforcing idle/hard timeouts and
// cooperative cancellation with an escalating termination sequence.
package supervisor

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/hydra-cli/hydra/internal/core"
	"github.com/hydra-cli/hydra/internal/redact"
)

const maxScanTokenSize = 1024 * 1024

type lineMsg struct {
	stream string // "stdout" or "stderr"
	line   string
}

// Run spawns spec as a child process under policy, redacting every line of
// output with redactor and optionally enriching it via parseLine, invoking
// sink for every SupervisorEvent as it happens. Run blocks until the
// process exits, is terminated by a timeout, or is cancelled, and returns
// the final outcome.
func Run(ctx context.Context, agentKey core.AgentKey, spec core.CommandSpec, policy Policy, parseLine func(string) core.NormalizedEvent, redactor *redact.Redactor, sink func(core.SupervisorEvent)) core.SupervisorOutcome {
	start := time.Now()
	outcome := core.SupervisorOutcome{AgentKey: agentKey}

	if policy.Preflight != nil {
		result := policy.Preflight.RunPreflight()
		for _, w := range append(append([]string{}, result.Errors...), result.Warnings...) {
			sink(core.SupervisorEvent{Kind: core.SupervisorWarning, Timestamp: time.Now(), Message: w})
		}
	}

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = os.Environ()
	for k, v := range spec.EnvAdd {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	configureProcAttr(cmd)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return spawnFailure(outcome, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return spawnFailure(outcome, err)
	}

	if err := cmd.Start(); err != nil {
		return spawnFailure(outcome, err)
	}

	sink(core.SupervisorEvent{Kind: core.SupervisorStarted, Timestamp: time.Now()})

	lines := make(chan lineMsg, 64)
	doneReaders := make(chan struct{}, 2)
	go scanPipe(stdoutPipe, "stdout", lines, doneReaders)
	go scanPipe(stderrPipe, "stderr", lines, doneReaders)

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	stdoutBuf := newRingBuffer(policy.BufferCap)
	stderrBuf := newRingBuffer(policy.BufferCap)

	hardTimer := time.NewTimer(orDefault(policy.HardTimeout, 30*time.Minute))
	defer hardTimer.Stop()

	idleWindow := orDefault(policy.IdleTimeout, 5*time.Minute)
	idleTimer := time.NewTimer(idleWindow)
	defer idleTimer.Stop()

	readersOpen := 2
	var finalErr error
	var timeoutKind core.TimeoutKind
	var terminatedByUs bool
	var killOnce bool

	kill := func(kind core.TimeoutKind) {
		terminatedByUs = true
		timeoutKind = kind
		if killOnce {
			return
		}
		killOnce = true
		_ = gracefulKill(cmd, policy.GracePeriod)
	}

loop:
	for {
		select {
		case msg, ok := <-lines:
			if !ok {
				continue
			}
			if !idleTimer.Stop() {
				select {
				case <-idleTimer.C:
				default:
				}
			}
			if readersOpen > 0 {
				idleTimer.Reset(idleWindow)
			}

			clean := redactor.Redact(msg.line)
			var norm *core.NormalizedEvent
			if parseLine != nil {
				n := parseLine(clean)
				norm = &n
			}

			kind := core.SupervisorStdoutLine
			buf := stdoutBuf
			if msg.stream == "stderr" {
				kind = core.SupervisorStderrLine
				buf = stderrBuf
			}
			before := buf.droppedCount()
			buf.push(clean)
			if buf.droppedCount() > before {
				sink(core.SupervisorEvent{Kind: kind, DroppedLines: buf.droppedCount()})
			}

			sink(core.SupervisorEvent{Kind: kind, Timestamp: time.Now(), Line: clean, Normalized: norm})

			if norm != nil && norm.Kind == core.NormalizedUsageUpdate && norm.Usage != nil {
				sink(core.SupervisorEvent{Kind: core.SupervisorUsage, Timestamp: time.Now(), Usage: norm.Usage})
			}

		case <-doneReaders:
			readersOpen--
			if readersOpen == 0 {
				// Both streams closed: a normal exit is imminent. Stop
				// the idle timer so it cannot race cmd.Wait.
				if !idleTimer.Stop() {
					select {
					case <-idleTimer.C:
					default:
					}
				}
			}

		case <-idleTimer.C:
			if readersOpen == 0 {
				continue
			}
			kill(core.TimeoutIdle)

		case <-hardTimer.C:
			kill(core.TimeoutHard)

		case <-policy.Cancel:
			kill("")

		case <-ctx.Done():
			kill("")

		case err := <-waitDone:
			finalErr = err
			break loop
		}
	}

	duration := time.Since(start)
	outcome.Duration = duration
	outcome.StdoutTail = stdoutBuf.snapshot()
	outcome.StderrTail = stderrBuf.snapshot()

	switch {
	case terminatedByUs && timeoutKind != "":
		outcome.Succeeded = false
		outcome.FailureKind = core.FailureNonZeroExit
		outcome.TimeoutKind = timeoutKind
		sink(core.SupervisorEvent{Kind: core.SupervisorTimedOut, Timestamp: time.Now(), TimeoutKind: timeoutKind, Duration: duration})
	case terminatedByUs:
		outcome.Succeeded = false
		outcome.FailureKind = core.FailureCancelled
		sink(core.SupervisorEvent{Kind: core.SupervisorFailed, Timestamp: time.Now(), FailureKind: core.FailureCancelled, Duration: duration})
	case finalErr != nil:
		outcome.Succeeded = false
		outcome.FailureKind = core.FailureNonZeroExit
		outcome.Err = finalErr
		if exitErr, ok := finalErr.(*exec.ExitError); ok {
			outcome.ExitCode = exitErr.ExitCode()
		}
		sink(core.SupervisorEvent{Kind: core.SupervisorFailed, Timestamp: time.Now(), FailureKind: core.FailureNonZeroExit, Err: finalErr, ExitCode: outcome.ExitCode, Duration: duration})
	default:
		outcome.Succeeded = true
		outcome.ExitCode = 0
		sink(core.SupervisorEvent{Kind: core.SupervisorCompleted, Timestamp: time.Now(), ExitCode: 0, Duration: duration})
	}

	return outcome
}

func spawnFailure(outcome core.SupervisorOutcome, err error) core.SupervisorOutcome {
	outcome.Succeeded = false
	outcome.FailureKind = core.FailureSpawn
	outcome.Err = err
	return outcome
}

func scanPipe(pipe io.Reader, stream string, lines chan<- lineMsg, done chan<- struct{}) {
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanTokenSize)
	for scanner.Scan() {
		lines <- lineMsg{stream: stream, line: scanner.Text()}
	}
	done <- struct{}{}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Cancel mirrors the hard-timeout termination path but is driven by an
// explicit caller-held handle rather than elapsed time.
type CancelHandle chan struct{}

func NewCancelHandle() CancelHandle { return make(chan struct{}) }

func (c CancelHandle) Cancel() {
	select {
	case <-c:
	default:
		close(c)
	}
}
