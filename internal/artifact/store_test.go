package artifact

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydra-cli/hydra/internal/core"
	"github.com/hydra-cli/hydra/internal/redact"
)

func TestStore_WriteEventsAppendsAndRedacts(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "run-1", redact.New())
	require.NoError(t, err)
	defer s.Close()

	err = s.Write(context.Background(), core.EventRecord{
		RunID: "run-1", AgentKey: "claude", Kind: core.EventAgentStdout,
		Payload: map[string]interface{}{"line": "token sk-ant-REDACTED"},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "runs", "run-1", "events.jsonl"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-ant-REDACTED")

	var rec core.EventRecord
	require.NoError(t, json.Unmarshal(data[:len(data)-1], &rec))
	assert.Equal(t, core.EventAgentStdout, rec.Kind)
}

func TestStore_WriteManifestAndReadBack(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "run-2", redact.New())
	require.NoError(t, err)
	defer s.Close()

	manifest := core.RunManifest{SchemaVersion: core.CurrentSchemaVersion, RunID: "run-2", Status: core.RunStatusCompleted}
	require.NoError(t, s.WriteManifest(manifest))

	got, err := ReadManifest(dir, "run-2")
	require.NoError(t, err)
	assert.Equal(t, "run-2", got.RunID)
	assert.Equal(t, core.RunStatusCompleted, got.Status)
}

func TestStore_WriteAgentDiffEvenWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "run-3", redact.New())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WriteAgentDiff("claude", ""))

	_, err = os.Stat(filepath.Join(dir, "runs", "run-3", "agents", "claude", "diff.patch"))
	assert.NoError(t, err)
}
