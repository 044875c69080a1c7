package adapter

import (
	"context"
	"strings"

	"github.com/hydra-cli/hydra/internal/core"
)

// OpenCodeAdapter integrates the opencode CLI. Like Copilot, it has no
// known structured streaming mode, so output is treated as plain text.
type OpenCodeAdapter struct {
	binaryPath string
}

func NewOpenCodeAdapter(binaryPath string) core.Adapter {
	return &OpenCodeAdapter{binaryPath: binaryPath}
}

func (a *OpenCodeAdapter) Key() core.AgentKey { return "opencode" }
func (a *OpenCodeAdapter) Tier() core.Tier    { return core.TierExperimental }

func (a *OpenCodeAdapter) Probe(ctx context.Context, binaryPath string) (core.ProbeReport, error) {
	return Probe(ctx, a.Key(), a.Tier(), binaryPath, Signature{
		RequiredFlags: []string{"run"},
		VersionArgs:   []string{"--version"},
	}), nil
}

func (a *OpenCodeAdapter) BuildCommand(prompt, worktreePath string, opts core.ExecuteOptions) (core.CommandSpec, error) {
	path := a.binaryPath
	if path == "" {
		path = "opencode"
	}

	args := []string{"run"}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	args = append(args, opts.ExtraArgs...)
	args = append(args, prompt)

	return core.CommandSpec{Path: path, Args: args, Dir: worktreePath}, nil
}

func (a *OpenCodeAdapter) ParseLine(raw string) core.NormalizedEvent {
	line := strings.TrimSpace(raw)
	if line == "" {
		return core.NormalizedEvent{Kind: core.NormalizedIgnored, Raw: raw}
	}
	lower := strings.ToLower(line)
	if strings.HasPrefix(lower, "tool:") || strings.HasPrefix(lower, "running ") {
		return core.NormalizedEvent{Kind: core.NormalizedToolInvocation, Tool: line, Raw: raw}
	}
	if strings.Contains(lower, "session finished") || strings.Contains(lower, "done") {
		return core.NormalizedEvent{Kind: core.NormalizedCompletionMark, Raw: raw}
	}
	return core.NormalizedEvent{Kind: core.NormalizedTextChunk, Text: line, Raw: raw}
}

var _ core.Adapter = (*OpenCodeAdapter)(nil)
