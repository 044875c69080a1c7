// Package doctor implements the Doctor component: a readiness snapshot
// aggregating adapter probes, repository checks, and a resource snapshot,
// run before a race starts (and available standalone via the doctor CLI
// command).
package doctor

import (
	"context"
	"os/exec"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/hydra-cli/hydra/internal/adapter"
	"github.com/hydra-cli/hydra/internal/core"
	"github.com/hydra-cli/hydra/internal/diagnostics"
	"github.com/hydra-cli/hydra/internal/sandbox"
)

// RepoCheck reports whether the working directory is usable as a race
// target.
type RepoCheck struct {
	GitAvailable  bool   `json:"git_available"`
	IsRepo        bool   `json:"is_repo"`
	Clean         bool   `json:"clean"`
	WorktreeSane  bool   `json:"worktree_sane"`
	Message       string `json:"message,omitempty"`
}

// ResourceCheck reports headroom the Worktree Service and Process
// Supervisor will consume against.
type ResourceCheck struct {
	DiskFreeGB     float64 `json:"disk_free_gb"`
	DiskTotalGB    float64 `json:"disk_total_gb"`
	DiskPercentUse float64 `json:"disk_percent_use"`
	OpenFDs        int     `json:"open_fds"`
	MaxFDs         int     `json:"max_fds"`
	Goroutines     int     `json:"goroutines"`
	CPUCores       int     `json:"cpu_cores"`
	CPUPercent     float64 `json:"cpu_percent"`
	MemPercent     float64 `json:"mem_percent"`
	LoadAvg1       float64 `json:"load_avg_1"`
	Message        string  `json:"message,omitempty"`
}

// AdapterCheck is one adapter key's probe outcome, flattened for reporting.
type AdapterCheck struct {
	AgentKey core.AgentKey   `json:"agent_key"`
	Tier     core.Tier       `json:"tier"`
	Status   core.ProbeStatus `json:"status"`
	Message  string          `json:"message,omitempty"`
}

// Report is the full readiness snapshot.
type Report struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Adapters    []AdapterCheck `json:"adapters"`
	Repo        RepoCheck      `json:"repo"`
	Resources   ResourceCheck  `json:"resources"`
	Ready       bool           `json:"ready"`
}

// Doctor aggregates the readiness checks that gate a race from starting.
type Doctor struct {
	Registry    *adapter.Registry
	Git         core.GitClient
	WorktreeDir string
	RepoRoot    string
}

// New constructs a Doctor bound to a registry, git client, the worktree
// base directory whose filesystem headroom should be reported, and the
// repository root the worktree directory must stay confined under.
func New(registry *adapter.Registry, git core.GitClient, worktreeDir, repoRoot string) *Doctor {
	return &Doctor{Registry: registry, Git: git, WorktreeDir: worktreeDir, RepoRoot: repoRoot}
}

// Run produces a readiness report for the given agent keys. Unknown keys
// are reported as "missing" rather than aborting the whole check, so the
// operator sees every requested adapter's status at once.
func (d *Doctor) Run(ctx context.Context, agentKeys []core.AgentKey) Report {
	report := Report{GeneratedAt: time.Now()}

	report.Adapters = d.checkAdapters(ctx, agentKeys)
	report.Repo = d.checkRepo(ctx)
	report.Resources = d.checkResources()

	report.Ready = report.Repo.IsRepo && report.Repo.GitAvailable && report.Repo.WorktreeSane
	for _, a := range report.Adapters {
		if a.Status != core.ProbeReady && a.Status != core.ProbeExperimentalReady {
			report.Ready = false
		}
	}

	return report
}

func (d *Doctor) checkAdapters(ctx context.Context, agentKeys []core.AgentKey) []AdapterCheck {
	keys := agentKeys
	if len(keys) == 0 {
		keys = d.Registry.List()
	}

	checks := make([]AdapterCheck, 0, len(keys))
	for _, key := range keys {
		tier, known := d.Registry.Tier(key)
		if !known {
			checks = append(checks, AdapterCheck{AgentKey: key, Status: core.ProbeMissing, Message: "unknown adapter key"})
			continue
		}

		ad, err := d.Registry.Get(key)
		if err != nil {
			checks = append(checks, AdapterCheck{AgentKey: key, Tier: tier, Status: core.ProbeMissing, Message: err.Error()})
			continue
		}

		binPath, _ := exec.LookPath(string(key))
		probe, err := ad.Probe(ctx, binPath)
		if err != nil {
			checks = append(checks, AdapterCheck{AgentKey: key, Tier: tier, Status: core.ProbeMissing, Message: err.Error()})
			continue
		}

		checks = append(checks, AdapterCheck{AgentKey: key, Tier: tier, Status: probe.Status, Message: probe.Message})
	}
	return checks
}

func (d *Doctor) checkRepo(ctx context.Context) RepoCheck {
	check := RepoCheck{}
	if _, err := exec.LookPath("git"); err != nil {
		check.Message = "git executable not found on PATH"
		return check
	}
	check.GitAvailable = true

	if d.Git == nil {
		check.Message = "no git client configured"
		return check
	}

	check.IsRepo = d.Git.IsGitRepo(ctx)
	if !check.IsRepo {
		check.Message = "current directory is not a git repository"
		return check
	}

	clean, err := d.Git.IsClean(ctx)
	if err != nil {
		check.Message = "checking working tree cleanliness: " + err.Error()
		return check
	}
	check.Clean = clean

	if d.RepoRoot != "" && d.WorktreeDir != "" {
		policy := sandbox.New(d.RepoRoot)
		sane, err := policy.Allowed(d.WorktreeDir)
		if err != nil {
			check.Message = "worktree base dir: " + err.Error()
		} else if !sane {
			check.Message = "worktree base dir " + d.WorktreeDir + " escapes the repository root " + d.RepoRoot
		}
		check.WorktreeSane = sane && err == nil
	} else {
		check.WorktreeSane = true
	}

	return check
}

func (d *Doctor) checkResources() ResourceCheck {
	check := ResourceCheck{}

	dir := d.WorktreeDir
	if dir == "" {
		dir = "."
	}
	if usage, err := disk.Usage(dir); err == nil {
		check.DiskTotalGB = float64(usage.Total) / (1 << 30)
		check.DiskFreeGB = float64(usage.Free) / (1 << 30)
		check.DiskPercentUse = usage.UsedPercent
	} else {
		check.Message = "disk usage unavailable: " + err.Error()
	}

	monitor := diagnostics.NewResourceMonitor(0, 0, 0, 0, 0, nil)
	snapshot := monitor.TakeSnapshot()
	check.OpenFDs = snapshot.OpenFDs
	check.MaxFDs = snapshot.MaxFDs
	check.Goroutines = snapshot.Goroutines

	metrics := diagnostics.NewSystemMetricsCollector().Collect()
	check.CPUCores = metrics.CPUCores
	check.CPUPercent = metrics.CPUPercent
	check.MemPercent = metrics.MemPercent
	check.LoadAvg1 = metrics.LoadAvg1

	return check
}
