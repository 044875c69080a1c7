package supervisor

import (
	"time"

	"github.com/hydra-cli/hydra/internal/diagnostics"
)

// Policy bounds one supervised process: how long it may run, how long it
// may sit idle, and how much output per stream is retained.
type Policy struct {
	HardTimeout time.Duration
	IdleTimeout time.Duration
	BufferCap   int
	GracePeriod time.Duration
	Cancel      <-chan struct{}

	// Preflight, if set, is consulted immediately before the process is
	// spawned. A failing or warning result never blocks the spawn; it is
	// surfaced as a SupervisorWarning event so the race can be graded with
	// the resource pressure on record.
	Preflight *diagnostics.SafeExecutor
}

// DefaultPolicy mirrors conservative defaults for an unconfigured race.
func DefaultPolicy() Policy {
	return Policy{
		HardTimeout: 30 * time.Minute,
		IdleTimeout: 5 * time.Minute,
		BufferCap:   2000,
		GracePeriod: 10 * time.Second,
	}
}
