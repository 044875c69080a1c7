package diagnostics

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func TestNewSafeExecutor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	executor := NewSafeExecutor(
		nil, // no monitor
		logger,
		true, // preflight enabled
		20,   // min free FD percent
		256,  // min free memory MB
	)

	if executor == nil {
		t.Fatal("expected non-nil executor")
	}

	if !executor.preflightEnabled {
		t.Error("expected preflight to be enabled")
	}
}

func TestSafeExecutor_RunPreflight_Disabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	executor := NewSafeExecutor(
		nil,
		logger,
		false, // preflight disabled
		20,
		256,
	)

	result := executor.RunPreflight()

	if !result.OK {
		t.Error("expected OK when preflight is disabled")
	}
}

func TestSafeExecutor_RunPreflight_NoMonitor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	executor := NewSafeExecutor(
		nil, // no monitor
		logger,
		true,
		20,
		256,
	)

	result := executor.RunPreflight()

	if !result.OK {
		t.Error("expected OK when no monitor is available")
	}
}

func TestSafeExecutor_RunPreflight_WithMonitor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	monitor := NewResourceMonitor(time.Second, 80, 10000, 4096, 10, logger)

	executor := NewSafeExecutor(
		monitor,
		logger,
		true,
		20, // 20% free FDs required
		256,
	)

	result := executor.RunPreflight()

	// Under normal conditions, preflight should pass
	if !result.OK {
		t.Logf("Preflight failed: %v", result.Errors)
	}

	// Should have a snapshot
	if result.Snapshot.Timestamp.IsZero() {
		t.Error("expected non-zero snapshot timestamp")
	}
}

func TestSafeExecutor_RunPreflight_LowFDHeadroomWarns(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	monitor := NewResourceMonitor(time.Second, 80, 10000, 4096, 10, logger)

	// Demand all but 0.1% of FDs be free, which nothing can satisfy, so the
	// preflight should fail closed with an explicit error rather than a warning.
	executor := NewSafeExecutor(
		monitor,
		logger,
		true,
		100,
		256,
	)

	result := executor.RunPreflight()

	if result.OK {
		t.Error("expected preflight to fail when demanding 100% free FDs")
	}
	if len(result.Errors) == 0 {
		t.Error("expected at least one error describing insufficient FD headroom")
	}
}
