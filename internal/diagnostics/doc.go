// Package diagnostics provides the resource-health checks Doctor and the
// Process Supervisor rely on before and during a race.
//
// The package implements two components:
//
//   - ResourceMonitor: snapshots file descriptors, goroutines, and memory,
//     optionally tracked over time (Start/Stop) to detect leak-shaped trends
//     across a long-running race.
//
//   - SafeExecutor: runs ResourceMonitor-backed preflight checks immediately
//     before the Process Supervisor spawns an agent process, turning low FD
//     or memory headroom into a warning event rather than a hard failure.
//
// SystemMetricsCollector additionally feeds Doctor's CPU/memory/disk/load
// readiness numbers. Process pipe management belongs to the Process
// Supervisor, not this package.
package diagnostics
