package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize minidb storage",
		Long: "Create the configuration directory with a default config.yaml, the data\n" +
			"and image directories, and both stores with their reference data.",
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	// Attach creates the data dir, both schemas and the seed rows; Detach
	// then leaves the stores ready for serve.
	b, cfg, err := openBackend()
	if err != nil {
		return err
	}
	if err := b.Detach(); err != nil {
		return sysError("finalize storage: %w", err)
	}
	if err := os.MkdirAll(cfg.ImageDir, 0o755); err != nil {
		return sysError("create image directory: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "MiniatureDB initialized successfully")
	fmt.Fprintf(out, "  config: %s\n  data:   %s\n  images: %s\n", cfg.ConfigDir, cfg.DataDir, cfg.ImageDir)
	return nil
}
