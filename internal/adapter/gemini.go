package adapter

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hydra-cli/hydra/internal/core"
)

// GeminiAdapter integrates the Gemini CLI.
type GeminiAdapter struct {
	binaryPath string
}

func NewGeminiAdapter(binaryPath string) core.Adapter {
	return &GeminiAdapter{binaryPath: binaryPath}
}

func (a *GeminiAdapter) Key() core.AgentKey { return "gemini" }
func (a *GeminiAdapter) Tier() core.Tier    { return core.TierOne }

func (a *GeminiAdapter) Probe(ctx context.Context, binaryPath string) (core.ProbeReport, error) {
	return Probe(ctx, a.Key(), a.Tier(), binaryPath, Signature{
		RequiredFlags: []string{"--output-format", "--approval-mode"},
		VersionArgs:   []string{"--version"},
	}), nil
}

func (a *GeminiAdapter) BuildCommand(prompt, worktreePath string, opts core.ExecuteOptions) (core.CommandSpec, error) {
	path := a.binaryPath
	if path == "" {
		path = "gemini"
	}

	args := []string{"--output-format", "stream-json", "--approval-mode", "yolo"}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	args = append(args, "--include-directories", worktreePath)
	args = append(args, opts.ExtraArgs...)
	args = append(args, "--prompt", prompt)

	return core.CommandSpec{Path: path, Args: args, Dir: worktreePath}, nil
}

type geminiStreamEvent struct {
	Type       string        `json:"type"`
	Model      string        `json:"model,omitempty"`
	ToolName   string        `json:"tool_name,omitempty"`
	Text       string        `json:"text,omitempty"`
	Usage      *geminiUsage  `json:"usage,omitempty"`
}

type geminiUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CandidateTokens  int64 `json:"candidate_tokens"`
}

func (a *GeminiAdapter) ParseLine(raw string) core.NormalizedEvent {
	line := strings.TrimSpace(raw)
	if line == "" || !strings.HasPrefix(line, "{") {
		return core.NormalizedEvent{Kind: core.NormalizedIgnored, Raw: raw}
	}

	var event geminiStreamEvent
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		return core.NormalizedEvent{Kind: core.NormalizedIgnored, Raw: raw}
	}

	switch event.Type {
	case "tool_use":
		return core.NormalizedEvent{Kind: core.NormalizedToolInvocation, Tool: event.ToolName, Raw: raw}
	case "text":
		if event.Text != "" {
			return core.NormalizedEvent{Kind: core.NormalizedTextChunk, Text: event.Text, Raw: raw}
		}
	case "usage":
		if event.Usage != nil {
			return usageEvent(event.Usage.PromptTokens, event.Usage.CandidateTokens, raw)
		}
	case "done", "result":
		return core.NormalizedEvent{Kind: core.NormalizedCompletionMark, Raw: raw}
	}
	return core.NormalizedEvent{Kind: core.NormalizedIgnored, Raw: raw}
}

var _ core.Adapter = (*GeminiAdapter)(nil)
