package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hydra-cli/hydra/internal/artifact/runindex"
)

var raceListLimit int

var raceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past races from the local run catalog",
	RunE:  runRaceList,
}

func init() {
	raceListCmd.Flags().IntVar(&raceListLimit, "limit", 20, "maximum number of runs to show, 0 for unlimited")
	raceCmd.AddCommand(raceListCmd)
}

func runRaceList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	idx, err := runindex.Open(filepath.Join(".hydra", "index.db"))
	if err != nil {
		return err
	}
	defer idx.Close()

	runs, err := idx.List(ctx, raceListLimit)
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
		fmt.Printf("%s  %-10s  %s  base=%s  agents=%v  winner=%s\n",
			r.RunID, r.Status, r.CreatedAt.Format("2006-01-02 15:04"), r.BaseRef, r.AgentKeys, winner)
	}
	return nil
}
