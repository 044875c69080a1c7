package adapter

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hydra-cli/hydra/internal/core"
)

// CopilotAdapter integrates the GitHub Copilot CLI. Copilot has no
// stream-json mode; its log file (enabled via --log-dir/--log-level debug)
// is tailed externally by the supervisor and fed line-by-line here.
type CopilotAdapter struct {
	binaryPath string
}

func NewCopilotAdapter(binaryPath string) core.Adapter {
	return &CopilotAdapter{binaryPath: binaryPath}
}

func (a *CopilotAdapter) Key() core.AgentKey { return "copilot" }
func (a *CopilotAdapter) Tier() core.Tier    { return core.TierExperimental }

func (a *CopilotAdapter) Probe(ctx context.Context, binaryPath string) (core.ProbeReport, error) {
	return Probe(ctx, a.Key(), a.Tier(), binaryPath, Signature{
		RequiredFlags: []string{"--allow-all-tools", "--log-dir"},
		VersionArgs:   []string{"--version"},
	}), nil
}

func (a *CopilotAdapter) BuildCommand(prompt, worktreePath string, opts core.ExecuteOptions) (core.CommandSpec, error) {
	path := a.binaryPath
	if path == "" {
		path = "copilot"
	}

	logDir := fmt.Sprintf("%s/.hydra-copilot-log", worktreePath)
	args := []string{
		"--allow-all-tools",
		"--allow-all-paths",
		"--allow-all-urls",
		"--silent",
		"--log-dir", logDir,
		"--log-level", "debug",
	}
	args = append(args, opts.ExtraArgs...)
	args = append(args, "-p", prompt)

	return core.CommandSpec{Path: path, Args: args, Dir: worktreePath}, nil
}

var (
	copilotToolPattern  = regexp.MustCompile(`(?i)(?:running|executing|using)\s+tool[:\s]+([a-zA-Z0-9_.-]+)`)
	copilotTokenInPat   = regexp.MustCompile(`(?i)(?:input|prompt)[_\s]?tokens?:?\s*(\d+)`)
	copilotTokenOutPat  = regexp.MustCompile(`(?i)(?:output|completion)[_\s]?tokens?:?\s*(\d+)`)
)

// ParseLine reads one tailed log line. Copilot's log format is unstructured
// text, so this scans for known markers rather than unmarshalling JSON.
func (a *CopilotAdapter) ParseLine(raw string) core.NormalizedEvent {
	line := strings.TrimSpace(raw)
	if line == "" {
		return core.NormalizedEvent{Kind: core.NormalizedIgnored, Raw: raw}
	}

	if m := copilotToolPattern.FindStringSubmatch(line); len(m) == 2 {
		return core.NormalizedEvent{Kind: core.NormalizedToolInvocation, Tool: m[1], Raw: raw}
	}

	inMatch := copilotTokenInPat.FindStringSubmatch(line)
	outMatch := copilotTokenOutPat.FindStringSubmatch(line)
	if inMatch != nil || outMatch != nil {
		var in, out int64
		if inMatch != nil {
			in, _ = strconv.ParseInt(inMatch[1], 10, 64)
		}
		if outMatch != nil {
			out, _ = strconv.ParseInt(outMatch[1], 10, 64)
		}
		return usageEvent(in, out, raw)
	}

	if strings.Contains(strings.ToLower(line), "session complete") ||
		strings.Contains(strings.ToLower(line), "done.") {
		return core.NormalizedEvent{Kind: core.NormalizedCompletionMark, Raw: raw}
	}

	return core.NormalizedEvent{Kind: core.NormalizedTextChunk, Text: line, Raw: raw}
}

var _ core.Adapter = (*CopilotAdapter)(nil)
