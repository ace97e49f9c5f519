// Package cli implements the minidb command-line interface: the server,
// local administration of the stores and remote catalog listings.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/miniaturedb/internal/config"
	"github.com/mesh-intelligence/miniaturedb/pkg/sqlite"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// exitError carries the process exit code of a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func sysError(format string, args ...any) error {
	return &exitError{code: exitSysError, err: fmt.Errorf(format, args...)}
}

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	imageDir  string
	jsonMode  bool
}

var flags rootFlags

// NewRootCmd creates the top-level "minidb" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "minidb",
		Short: "MiniatureDB catalog server and tools",
		Long: "minidb serves the MiniatureDB catalog API, manages its local stores\n" +
			"and lists catalog data from a running server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/miniaturedb)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: $XDG_DATA_HOME/miniaturedb)")
	root.PersistentFlags().StringVar(&flags.imageDir, "image-dir", "", "image directory (default: <data-dir>/images)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newUserCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newImportCmd())
	for _, c := range newRemoteCmds() {
		root.AddCommand(c)
	}

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		code := exitUserError
		var ee *exitError
		if errors.As(err, &ee) {
			code = ee.code
		}
		os.Exit(code)
	}
}

// loadConfig resolves the configuration from the global flags.
func loadConfig(port int) (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		ConfigDir: flags.configDir,
		DataDir:   flags.dataDir,
		ImageDir:  flags.imageDir,
		Port:      port,
	})
	if err != nil {
		return nil, sysError("load config: %w", err)
	}
	return cfg, nil
}

// openBackend attaches the stores of the resolved data directory. The
// caller detaches.
func openBackend() (*sqlite.Backend, *config.Config, error) {
	cfg, err := loadConfig(0)
	if err != nil {
		return nil, nil, err
	}
	b, err := sqlite.Open(cfg.Store())
	if err != nil {
		return nil, nil, sysError("open storage: %w", err)
	}
	return b, cfg, nil
}
