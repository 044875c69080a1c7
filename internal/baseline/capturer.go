// Package baseline records build/test/lint state on a repository's base
// ref before any agent starts, so the Scoring Engine has something to
// compare each agent's post-run state against.
package baseline

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hydra-cli/hydra/internal/core"
)

// maxCapturedOutput bounds how much of a command's stdout/stderr is
// retained for baseline evidence; commands that produce more are
// truncated, not rejected.
const maxCapturedOutput = 256 * 1024

// Profile names the project-profile-resolved commands for one repository.
// An empty command slice means that dimension is not configured.
type Profile struct {
	Dir     string
	Build   []string
	Test    []string
	Lint    []string
	Timeout time.Duration
}

// Capture runs the build, test, and lint commands concurrently against
// profile.Dir and returns the resulting snapshot. A command that is not
// configured yields an explicit "unavailable" status, never a zero score.
func Capture(ctx context.Context, profile Profile) core.BaselineSnapshot {
	var snap core.BaselineSnapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		outcome := run(gctx, profile, profile.Build)
		snap.Build = core.BaselineDimension{Outcome: outcome}
		return nil
	})
	g.Go(func() error {
		outcome := run(gctx, profile, profile.Test)
		dim := core.BaselineDimension{Outcome: outcome}
		if outcome.Status == core.CommandOutcomeOK {
			counts := parseTestCounts(outcome)
			dim.TestCounts = &counts
		}
		snap.Tests = dim
		return nil
	})
	g.Go(func() error {
		outcome := run(gctx, profile, profile.Lint)
		dim := core.BaselineDimension{Outcome: outcome}
		if outcome.Status == core.CommandOutcomeOK {
			counts := parseLintCounts(outcome)
			dim.LintCounts = &counts
		}
		snap.Lint = dim
		return nil
	})
	// Every goroutine above always returns nil: a failing command is a
	// captured CommandOutcome, not a baseline-capture error.
	_ = g.Wait()

	return snap
}

func run(ctx context.Context, profile Profile, command []string) core.CommandOutcome {
	if len(command) == 0 {
		return core.CommandOutcome{Status: core.CommandOutcomeUnavailable}
	}

	timeout := profile.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(cmdCtx, command[0], command[1:]...)
	cmd.Dir = profile.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &boundedWriter{buf: &stdout, limit: maxCapturedOutput}
	cmd.Stderr = &boundedWriter{buf: &stderr, limit: maxCapturedOutput}

	err := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if err != nil {
		exitCode = -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
	}

	return core.CommandOutcome{
		Status:   core.CommandOutcomeOK,
		Command:  command,
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}
}

// boundedWriter discards writes once limit bytes have been buffered,
// preventing a noisy command from exhausting memory.
type boundedWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *boundedWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	w.buf.Write(p)
	return len(p), nil
}
