package tail

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydra-cli/hydra/internal/core"
)

func TestFollow_StreamsAppendedEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")
	require.NoError(t, os.WriteFile(path, nil, 0o640))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out := make(chan core.EventRecord, 8)
	done := make(chan error, 1)
	go func() { done <- Follow(ctx, path, out) }()

	time.Sleep(50 * time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o640)
	require.NoError(t, err)
	rec := core.EventRecord{RunID: "run-1", AgentKey: "claude", Kind: core.EventAgentStarted}
	line, err := json.Marshal(rec)
	require.NoError(t, err)
	_, err = f.Write(append(line, '\n'))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case got := <-out:
		assert.Equal(t, core.AgentKey("claude"), got.AgentKey)
		assert.Equal(t, core.EventAgentStarted, got.Kind)
	case <-time.After(1500 * time.Millisecond):
		t.Fatal("timed out waiting for tailed event")
	}

	cancel()
	<-done
}

func TestFollow_WaitsForFileToBeCreated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	out := make(chan core.EventRecord, 8)
	done := make(chan error, 1)
	go func() { done <- Follow(ctx, path, out) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, nil, 0o640))

	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o640)
	require.NoError(t, err)
	rec := core.EventRecord{RunID: "run-1", AgentKey: "claude", Kind: core.EventAgentStarted}
	line, err := json.Marshal(rec)
	require.NoError(t, err)
	_, err = f.Write(append(line, '\n'))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case got := <-out:
		assert.Equal(t, core.AgentKey("claude"), got.AgentKey)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event after file creation")
	}

	cancel()
	<-done
}
