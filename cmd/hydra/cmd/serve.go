package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hydra-cli/hydra/internal/artifact/runindex"
	"github.com/hydra-cli/hydra/internal/statusapi"
)

var serveAddrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a read-only HTTP status API over past and present runs",
	Long:  `serve starts a localhost-only HTTP server exposing run manifests, events, and scores from .hydra/runs for a consumer such as a desktop shell. It never mutates run state.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddrFlag, "addr", "127.0.0.1:4190", "address to listen on (bind to localhost only)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	ctx, stop := signal.NotifyContext(base, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	idx, err := runindex.Open(".hydra/index.db")
	if err != nil {
		logger.Warn("run index unavailable, GET /runs disabled", "error", err)
	} else {
		defer idx.Close()
	}

	opts := []statusapi.Option{statusapi.WithLogger(logger.Logger)}
	if idx != nil {
		opts = append(opts, statusapi.WithRunIndex(idx))
	}
	srv := statusapi.NewServer(".hydra", opts...)

	return srv.ListenAndServe(ctx, serveAddrFlag)
}
