package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hydra-cli/hydra/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or bootstrap hydra configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter .hydra/config.yaml with the built-in defaults",
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := filepath.Join(".hydra", "config.yaml")
	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
