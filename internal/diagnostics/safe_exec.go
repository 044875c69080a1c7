package diagnostics

import (
	"fmt"

	"log/slog"
)

// PreflightResult contains the result of the Process Supervisor's
// pre-spawn health check for one agent process.
type PreflightResult struct {
	OK       bool
	Warnings []string
	Errors   []string
	Snapshot ResourceSnapshot
}

// SafeExecutor runs resource preflight checks before the Process Supervisor
// spawns an agent. It never touches the spawned process's pipes — those are
// owned end-to-end by the Supervisor itself.
type SafeExecutor struct {
	monitor          *ResourceMonitor
	logger           *slog.Logger
	preflightEnabled bool
	minFreeFDPercent int
	minFreeMemoryMB  int
}

// NewSafeExecutor creates a safe executor.
func NewSafeExecutor(
	monitor *ResourceMonitor,
	logger *slog.Logger,
	preflightEnabled bool,
	minFreeFDPercent int,
	minFreeMemoryMB int,
) *SafeExecutor {
	return &SafeExecutor{
		monitor:          monitor,
		logger:           logger,
		preflightEnabled: preflightEnabled,
		minFreeFDPercent: minFreeFDPercent,
		minFreeMemoryMB:  minFreeMemoryMB,
	}
}

// RunPreflight performs pre-execution health checks ahead of spawning one
// agent process.
func (e *SafeExecutor) RunPreflight() PreflightResult {
	result := PreflightResult{OK: true}

	if !e.preflightEnabled || e.monitor == nil {
		return result
	}

	// Take snapshot for the result
	result.Snapshot = e.monitor.TakeSnapshot()

	// Check FD availability
	freeFDPercent := 100.0 - result.Snapshot.FDUsagePercent
	if e.minFreeFDPercent > 0 && freeFDPercent < float64(e.minFreeFDPercent) {
		result.OK = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("insufficient free FDs: %.1f%% free (minimum: %d%%)",
				freeFDPercent, e.minFreeFDPercent))
	} else if e.minFreeFDPercent > 0 && freeFDPercent < float64(e.minFreeFDPercent)*1.5 {
		// Warning if approaching threshold
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("FD usage approaching limit: %.1f%% free", freeFDPercent))
	}

	// Check trends if we have enough history
	if e.monitor != nil {
		trend := e.monitor.GetTrend()
		if !trend.IsHealthy {
			result.Warnings = append(result.Warnings, trend.Warnings...)
		}
	}

	return result
}
