// Package adapter implements the Adapter Probe, Registry, and the
// per-agent command/parse runtimes for each built-in coding-agent CLI.
package adapter

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/hydra-cli/hydra/internal/core"
)

// ProbeTimeout bounds the help/version subcommand invocations a probe runs.
const ProbeTimeout = 5 * time.Second

var versionPattern = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?(?:-[a-zA-Z0-9.]+)?)`)

// Signature describes what a probe looks for to decide an adapter's binary
// is usable: the help-output flag tokens that must all be present.
type Signature struct {
	RequiredFlags []string
	VersionArgs   []string
}

// Probe inspects one adapter's binary without ever running it against a
// repository: a bounded help invocation, a token scan for known flags, and
// a version parse.
func Probe(ctx context.Context, key core.AgentKey, tier core.Tier, binaryPath string, sig Signature) core.ProbeReport {
	report := core.ProbeReport{AgentKey: key, BinaryPath: binaryPath, Tier: tier}

	if binaryPath == "" {
		report.Status = core.ProbeMissing
		report.Message = "binary not found on PATH"
		return report
	}

	helpOut, err := runBounded(ctx, binaryPath, "--help")
	if err != nil {
		if tier == core.TierExperimental {
			report.Status = core.ProbeExperimentalReady
			report.Message = "experimental adapter: help invocation failed but binary runs"
			return report
		}
		report.Status = core.ProbeBlocked
		report.Message = "help invocation failed: " + err.Error()
		return report
	}

	missing := missingFlags(helpOut, sig.RequiredFlags)
	if len(missing) > 0 {
		if tier == core.TierExperimental {
			report.Status = core.ProbeExperimentalReady
			report.Message = "experimental adapter: missing flags " + strings.Join(missing, ", ")
			return report
		}
		report.Status = core.ProbeBlocked
		report.Message = "missing required flags: " + strings.Join(missing, ", ")
		return report
	}

	if len(sig.VersionArgs) > 0 {
		if versionOut, err := runBounded(ctx, binaryPath, sig.VersionArgs...); err == nil {
			report.Version = parseVersion(versionOut)
		}
	}

	if tier == core.TierExperimental {
		report.Status = core.ProbeExperimentalReady
	} else {
		report.Status = core.ProbeReady
	}
	return report
}

func missingFlags(helpOutput string, required []string) []string {
	var missing []string
	for _, f := range required {
		if !strings.Contains(helpOutput, f) {
			missing = append(missing, f)
		}
	}
	return missing
}

func parseVersion(output string) string {
	m := versionPattern.FindString(output)
	return m
}

func runBounded(ctx context.Context, path string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.String(), err
	}
	return out.String(), nil
}
