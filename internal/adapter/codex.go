package adapter

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hydra-cli/hydra/internal/core"
)

// CodexAdapter integrates the OpenAI Codex CLI.
type CodexAdapter struct {
	binaryPath string
}

func NewCodexAdapter(binaryPath string) core.Adapter {
	return &CodexAdapter{binaryPath: binaryPath}
}

func (a *CodexAdapter) Key() core.AgentKey { return "codex" }
func (a *CodexAdapter) Tier() core.Tier    { return core.TierOne }

func (a *CodexAdapter) Probe(ctx context.Context, binaryPath string) (core.ProbeReport, error) {
	return Probe(ctx, a.Key(), a.Tier(), binaryPath, Signature{
		RequiredFlags: []string{"--json", "exec"},
		VersionArgs:   []string{"--version"},
	}), nil
}

func (a *CodexAdapter) BuildCommand(prompt, worktreePath string, opts core.ExecuteOptions) (core.CommandSpec, error) {
	path := a.binaryPath
	if path == "" {
		path = "codex"
	}

	args := []string{"exec", "--json", "--skip-git-repo-check"}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if !opts.AllowSandbox {
		args = append(args, "-c", `web_search="disabled"`)
	}
	args = append(args, "--cd", worktreePath)
	args = append(args, opts.ExtraArgs...)
	args = append(args, prompt)

	return core.CommandSpec{Path: path, Args: args, Dir: worktreePath}, nil
}

type codexStreamEvent struct {
	Type     string     `json:"type"`
	ThreadID string     `json:"thread_id,omitempty"`
	Item     *codexItem `json:"item,omitempty"`
	Usage    *codexUsage `json:"usage,omitempty"`
}

type codexItem struct {
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
	Text    string `json:"text,omitempty"`
}

type codexUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

func (a *CodexAdapter) ParseLine(raw string) core.NormalizedEvent {
	line := strings.TrimSpace(raw)
	if line == "" || !strings.HasPrefix(line, "{") {
		return core.NormalizedEvent{Kind: core.NormalizedIgnored, Raw: raw}
	}

	var event codexStreamEvent
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		return core.NormalizedEvent{Kind: core.NormalizedIgnored, Raw: raw}
	}

	switch event.Type {
	case "item.completed", "item.started":
		if event.Item == nil {
			return core.NormalizedEvent{Kind: core.NormalizedIgnored, Raw: raw}
		}
		switch event.Item.Type {
		case "command_execution":
			return core.NormalizedEvent{Kind: core.NormalizedToolInvocation, Tool: "shell", Raw: raw}
		case "file_edit":
			return core.NormalizedEvent{Kind: core.NormalizedToolInvocation, Tool: "file_edit", Raw: raw}
		case "agent_message":
			if event.Item.Text != "" {
				return core.NormalizedEvent{Kind: core.NormalizedTextChunk, Text: event.Item.Text, Raw: raw}
			}
		}
	case "turn.completed":
		if event.Usage != nil {
			return usageEvent(event.Usage.InputTokens, event.Usage.OutputTokens, raw)
		}
		return core.NormalizedEvent{Kind: core.NormalizedCompletionMark, Raw: raw}
	}
	return core.NormalizedEvent{Kind: core.NormalizedIgnored, Raw: raw}
}

var _ core.Adapter = (*CodexAdapter)(nil)
