package adapter

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hydra-cli/hydra/internal/core"
)

// ClaudeAdapter integrates the Claude Code CLI.
type ClaudeAdapter struct {
	binaryPath string
}

// NewClaudeAdapter constructs the tier-1 Claude adapter. An empty
// binaryPath means "resolve claude from PATH at probe/build time".
func NewClaudeAdapter(binaryPath string) core.Adapter {
	return &ClaudeAdapter{binaryPath: binaryPath}
}

func (a *ClaudeAdapter) Key() core.AgentKey { return "claude" }
func (a *ClaudeAdapter) Tier() core.Tier    { return core.TierOne }

func (a *ClaudeAdapter) Probe(ctx context.Context, binaryPath string) (core.ProbeReport, error) {
	return Probe(ctx, a.Key(), a.Tier(), binaryPath, Signature{
		RequiredFlags: []string{"--print", "--output-format", "--dangerously-skip-permissions"},
		VersionArgs:   []string{"--version"},
	}), nil
}

func (a *ClaudeAdapter) BuildCommand(prompt, worktreePath string, opts core.ExecuteOptions) (core.CommandSpec, error) {
	path := a.binaryPath
	if path == "" {
		path = "claude"
	}

	args := []string{"--print", "--output-format", "stream-json", "--verbose"}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	args = append(args, "--cwd", worktreePath)
	if opts.ResumeSessionID != "" {
		args = append(args, "--resume", opts.ResumeSessionID)
	}
	// Non-interactive races never have a human present to approve edits.
	args = append(args, "--dangerously-skip-permissions")
	args = append(args, opts.ExtraArgs...)
	args = append(args, prompt)

	return core.CommandSpec{Path: path, Args: args, Dir: worktreePath}, nil
}

type claudeStreamEvent struct {
	Type    string         `json:"type"`
	Subtype string         `json:"subtype"`
	Message *claudeMessage `json:"message,omitempty"`
	Result  string         `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
	Usage   *claudeUsage   `json:"usage,omitempty"`
}

type claudeMessage struct {
	Content []claudeContent `json:"content"`
	Usage   *claudeUsage    `json:"usage,omitempty"`
}

type claudeContent struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
}

type claudeUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

func (a *ClaudeAdapter) ParseLine(raw string) core.NormalizedEvent {
	line := strings.TrimSpace(raw)
	if line == "" || !strings.HasPrefix(line, "{") {
		return core.NormalizedEvent{Kind: core.NormalizedIgnored, Raw: raw}
	}

	var event claudeStreamEvent
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		return core.NormalizedEvent{Kind: core.NormalizedIgnored, Raw: raw}
	}

	switch event.Type {
	case "assistant":
		if event.Message == nil {
			return core.NormalizedEvent{Kind: core.NormalizedIgnored, Raw: raw}
		}
		for _, c := range event.Message.Content {
			switch c.Type {
			case "tool_use":
				return core.NormalizedEvent{Kind: core.NormalizedToolInvocation, Tool: c.Name, Raw: raw}
			case "text":
				if c.Text != "" {
					return core.NormalizedEvent{Kind: core.NormalizedTextChunk, Text: c.Text, Raw: raw}
				}
			}
		}
		if event.Message.Usage != nil {
			return usageEvent(event.Message.Usage.InputTokens, event.Message.Usage.OutputTokens, raw)
		}
	case "result":
		if event.Usage != nil {
			return usageEvent(event.Usage.InputTokens, event.Usage.OutputTokens, raw)
		}
		return core.NormalizedEvent{Kind: core.NormalizedCompletionMark, Text: event.Result, Raw: raw}
	}
	return core.NormalizedEvent{Kind: core.NormalizedIgnored, Raw: raw}
}

func usageEvent(in, out int64, raw string) core.NormalizedEvent {
	u := &core.UsageReport{InputTokens: in, OutputTokens: out}
	return core.NormalizedEvent{Kind: core.NormalizedUsageUpdate, Usage: u, Raw: raw}
}

var _ core.Adapter = (*ClaudeAdapter)(nil)
