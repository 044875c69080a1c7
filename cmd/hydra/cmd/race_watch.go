package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hydra-cli/hydra/internal/core"
	"github.com/hydra-cli/hydra/internal/tail"
)

var raceWatchRunID string

var raceWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live-tail a run's event log as agents produce output",
	RunE:  runRaceWatch,
}

func init() {
	raceWatchCmd.Flags().StringVar(&raceWatchRunID, "run-id", "", "run ID to tail (required)")
	raceCmd.AddCommand(raceWatchCmd)
}

func runRaceWatch(cmd *cobra.Command, _ []string) error {
	if raceWatchRunID == "" {
		return core.ErrValidation("RUN_ID_REQUIRED", "--run-id is required")
	}

	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	ctx, stop := signal.NotifyContext(base, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := filepath.Join(".hydra", "runs", raceWatchRunID, "events.jsonl")
	events := make(chan core.EventRecord, 64)

	errCh := make(chan error, 1)
	go func() { errCh <- tail.Follow(ctx, path, events) }()

	for {
		select {
		case ev := <-events:
			fmt.Printf("[%s] %s %s\n", ev.AgentKey, ev.Kind, summarizePayload(ev.Payload))
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return nil
		}
	}
}

func summarizePayload(payload map[string]interface{}) string {
	if payload == nil {
		return ""
	}
	if line, ok := payload["line"]; ok {
		return fmt.Sprintf("%v", line)
	}
	if msg, ok := payload["message"]; ok {
		return fmt.Sprintf("%v", msg)
	}
	return fmt.Sprintf("%v", payload)
}
