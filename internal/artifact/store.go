// Package artifact implements the Artifact Store: the on-disk layout
// under .hydra/runs/<run_id>/ that every other component writes its
// durable output to, and that the (out-of-scope) desktop shell and the
// Merge Executor read back from.
package artifact

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/hydra-cli/hydra/internal/core"
	"github.com/hydra-cli/hydra/internal/redact"
)

// Store owns one run's artifact directory tree.
type Store struct {
	runDir   string
	redactor *redact.Redactor

	mu        sync.Mutex
	eventFile *os.File
}

// Open creates (if needed) the run directory layout and opens the
// append-only event log for writing.
func Open(baseDir, runID string, redactor *redact.Redactor) (*Store, error) {
	runDir := filepath.Join(baseDir, "runs", runID)
	if err := os.MkdirAll(runDir, 0o750); err != nil {
		return nil, core.ErrArtifact("ARTIFACT_DIR_CREATE_FAILED", err.Error())
	}
	if err := os.MkdirAll(filepath.Join(runDir, "agents"), 0o750); err != nil {
		return nil, core.ErrArtifact("ARTIFACT_DIR_CREATE_FAILED", err.Error())
	}
	if err := os.MkdirAll(filepath.Join(runDir, "baseline"), 0o750); err != nil {
		return nil, core.ErrArtifact("ARTIFACT_DIR_CREATE_FAILED", err.Error())
	}

	f, err := os.OpenFile(filepath.Join(runDir, "events.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, core.ErrArtifact("ARTIFACT_EVENTS_OPEN_FAILED", err.Error())
	}

	return &Store{runDir: runDir, redactor: redactor, eventFile: f}, nil
}

// Close releases the event log file handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventFile.Close()
}

// Write appends one EventRecord to events.jsonl, redacting every string
// field first. Implements the Race Driver's EventSink port.
func (s *Store) Write(_ context.Context, rec core.EventRecord) error {
	redactPayload(rec.Payload, s.redactor)

	line, err := json.Marshal(rec)
	if err != nil {
		return core.ErrArtifact("ARTIFACT_EVENT_MARSHAL_FAILED", err.Error())
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.eventFile.Write(line); err != nil {
		return core.ErrArtifact("ARTIFACT_EVENT_WRITE_FAILED", err.Error())
	}
	return nil
}

func redactPayload(payload map[string]interface{}, redactor *redact.Redactor) {
	if payload == nil || redactor == nil {
		return
	}
	for k, v := range payload {
		if s, ok := v.(string); ok {
			payload[k] = redactor.Redact(s)
		}
	}
}

// WriteManifest atomically overwrites manifest.json.
func (s *Store) WriteManifest(manifest core.RunManifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return core.ErrArtifact("ARTIFACT_MANIFEST_MARSHAL_FAILED", err.Error())
	}
	if err := renameio.WriteFile(filepath.Join(s.runDir, "manifest.json"), data, 0o640); err != nil {
		return core.ErrArtifact("ARTIFACT_MANIFEST_WRITE_FAILED", err.Error())
	}
	return nil
}

// WriteAgentStdout writes one agent's captured stdout tail, redacted.
func (s *Store) WriteAgentStdout(agentKey core.AgentKey, lines []string) error {
	return s.writeAgentLog(agentKey, "stdout.log", lines)
}

// WriteAgentStderr writes one agent's captured stderr tail, redacted.
func (s *Store) WriteAgentStderr(agentKey core.AgentKey, lines []string) error {
	return s.writeAgentLog(agentKey, "stderr.log", lines)
}

func (s *Store) writeAgentLog(agentKey core.AgentKey, name string, lines []string) error {
	dir := filepath.Join(s.runDir, "agents", string(agentKey))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return core.ErrArtifact("ARTIFACT_DIR_CREATE_FAILED", err.Error())
	}
	var buf []byte
	for _, l := range lines {
		if s.redactor != nil {
			l = s.redactor.Redact(l)
		}
		buf = append(buf, []byte(l)...)
		buf = append(buf, '\n')
	}
	if err := renameio.WriteFile(filepath.Join(dir, name), buf, 0o640); err != nil {
		return core.ErrArtifact("ARTIFACT_LOG_WRITE_FAILED", err.Error())
	}
	return nil
}

// WriteAgentDiff writes diff.patch for an agent, even when patch is empty,
// so the merge UI can always render something after worktree cleanup.
func (s *Store) WriteAgentDiff(agentKey core.AgentKey, patch string) error {
	dir := filepath.Join(s.runDir, "agents", string(agentKey))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return core.ErrArtifact("ARTIFACT_DIR_CREATE_FAILED", err.Error())
	}
	if err := renameio.WriteFile(filepath.Join(dir, "diff.patch"), []byte(patch), 0o640); err != nil {
		return core.ErrArtifact("ARTIFACT_DIFF_WRITE_FAILED", err.Error())
	}
	return nil
}

// WriteAgentScore persists one agent's ScoreBreakdown.
func (s *Store) WriteAgentScore(agentKey core.AgentKey, score core.ScoreBreakdown) error {
	dir := filepath.Join(s.runDir, "agents", string(agentKey))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return core.ErrArtifact("ARTIFACT_DIR_CREATE_FAILED", err.Error())
	}
	data, err := json.MarshalIndent(score, "", "  ")
	if err != nil {
		return core.ErrArtifact("ARTIFACT_SCORE_MARSHAL_FAILED", err.Error())
	}
	if err := renameio.WriteFile(filepath.Join(dir, "score.json"), data, 0o640); err != nil {
		return core.ErrArtifact("ARTIFACT_SCORE_WRITE_FAILED", err.Error())
	}
	return nil
}

// WriteBaseline persists the pre-run baseline snapshot.
func (s *Store) WriteBaseline(snapshot core.BaselineSnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return core.ErrArtifact("ARTIFACT_BASELINE_MARSHAL_FAILED", err.Error())
	}
	if err := renameio.WriteFile(filepath.Join(s.runDir, "baseline", "snapshot.json"), data, 0o640); err != nil {
		return core.ErrArtifact("ARTIFACT_BASELINE_WRITE_FAILED", err.Error())
	}
	return nil
}

// WriteMergeReport persists the Merge Executor's result, always, even on
// failure.
func (s *Store) WriteMergeReport(result core.MergeResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return core.ErrArtifact("ARTIFACT_MERGE_REPORT_MARSHAL_FAILED", err.Error())
	}
	if err := renameio.WriteFile(filepath.Join(s.runDir, "merge_report.json"), data, 0o640); err != nil {
		return core.ErrArtifact("ARTIFACT_MERGE_REPORT_WRITE_FAILED", err.Error())
	}
	return nil
}

// ReadManifest reads back a run's manifest, tolerating forward-compatible
// unknown fields.
func ReadManifest(baseDir, runID string) (core.RunManifest, error) {
	var manifest core.RunManifest
	data, err := os.ReadFile(filepath.Join(baseDir, "runs", runID, "manifest.json"))
	if err != nil {
		return manifest, core.ErrNotFound("run manifest", runID)
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return manifest, fmt.Errorf("parsing manifest for run %s: %w", runID, err)
	}
	return manifest, nil
}

// ReadEvents reads back every EventRecord logged for a run, in append
// order. A malformed trailing line (e.g. a torn write after a crash) is
// skipped rather than failing the whole read.
func ReadEvents(baseDir, runID string) ([]core.EventRecord, error) {
	f, err := os.Open(filepath.Join(baseDir, "runs", runID, "events.jsonl"))
	if err != nil {
		return nil, core.ErrNotFound("run events", runID)
	}
	defer f.Close()

	var events []core.EventRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec core.EventRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		events = append(events, rec)
	}
	return events, scanner.Err()
}

// ReadAgentScore reads back one agent's persisted ScoreBreakdown.
func ReadAgentScore(baseDir, runID string, agentKey core.AgentKey) (core.ScoreBreakdown, error) {
	var score core.ScoreBreakdown
	path := filepath.Join(baseDir, "runs", runID, "agents", string(agentKey), "score.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return score, core.ErrNotFound("agent score", string(agentKey))
	}
	if err := json.Unmarshal(data, &score); err != nil {
		return score, fmt.Errorf("parsing score for agent %s: %w", agentKey, err)
	}
	return score, nil
}
