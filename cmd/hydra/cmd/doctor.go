package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hydra-cli/hydra/internal/adapter"
	"github.com/hydra-cli/hydra/internal/artifact/runindex"
	"github.com/hydra-cli/hydra/internal/core"
	"github.com/hydra-cli/hydra/internal/doctor"
	"github.com/hydra-cli/hydra/internal/gitutil"
	"github.com/hydra-cli/hydra/internal/render"
)

var (
	doctorAgentsFlag  string
	doctorHistoryFlag bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the current repository and configured adapters are ready to race",
	RunE:  runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorAgentsFlag, "agents", "", "comma-separated agent keys to probe (default: enabled adapters)")
	doctorCmd.Flags().BoolVar(&doctorHistoryFlag, "history", false, "list past runs from the local catalog instead of probing readiness")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if doctorHistoryFlag {
		return runDoctorHistory(ctx)
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	git, err := gitutil.NewClient(wd)
	if err != nil {
		return err
	}

	reg := adapter.NewRegistry()
	applyAdapterOverrides(reg, cfg)

	agentKeys := parseAgentKeys(doctorAgentsFlag)
	if len(agentKeys) == 0 {
		agentKeys = enabledAgentKeys(cfg)
	}

	repoRoot, _ := git.RepoRoot(ctx)
	d := doctor.New(reg, git, cfg.Worktree.BaseDir, repoRoot)
	report := d.Run(ctx, agentKeys)

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		fmt.Print(render.Readiness(report))
	}

	if !report.Ready {
		return core.ErrReadiness("NOT_READY", "one or more readiness checks failed")
	}
	return nil
}

func runDoctorHistory(ctx context.Context) error {
	idx, err := runindex.Open(filepath.Join(".hydra", "index.db"))
	if err != nil {
		return err
	}
	defer idx.Close()

	runs, err := idx.List(ctx, 20)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("no runs recorded yet")
		return nil
	}
	for _, r := range runs {
		winner := r.WinnerAgent
		if winner == "" {
			winner = "-"
		}
		fmt.Printf("%s  %-10s  %-8s  winner=%s\n", r.RunID, r.Status, r.CreatedAt.Format("2006-01-02 15:04"), winner)
	}
	return nil
}
