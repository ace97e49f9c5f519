package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/miniaturedb/internal/auth"
	"github.com/mesh-intelligence/miniaturedb/internal/images"
	"github.com/mesh-intelligence/miniaturedb/internal/logging"
	"github.com/mesh-intelligence/miniaturedb/internal/server"
	"github.com/mesh-intelligence/miniaturedb/pkg/sqlite"
)

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long:  "Serve the catalog API until SIGINT or SIGTERM, then shut down gracefully.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default: config port, MINIDB_PORT, PORT or 3001)")
	return cmd
}

func runServe(parent context.Context, port int) error {
	cfg, err := loadConfig(port)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Mode)
	if err != nil {
		return sysError("create logger: %w", err)
	}
	defer logger.Sync()

	backend, err := sqlite.Open(cfg.Store())
	if err != nil {
		return sysError("open storage: %w", err)
	}
	defer func() {
		if err := backend.Detach(); err != nil {
			logger.Error("detaching storage", zap.Error(err))
		}
	}()

	if err := os.MkdirAll(cfg.ImageDir, 0o755); err != nil {
		return sysError("create image directory: %w", err)
	}

	authSvc := auth.NewService(backend.Users(), backend.Sessions(), cfg.SessionTTL, logger.Named("auth"))
	sweeper, err := authSvc.StartSweeper(auth.SweepSchedule)
	if err != nil {
		return sysError("start session sweeper: %w", err)
	}
	defer func() { <-sweeper.Stop().Done() }()

	srv := server.New(backend, authSvc, images.NewStore(cfg.ImageDir), logger.Named("server"), server.Options{
		Production:  cfg.Production(),
		CORSOrigins: cfg.CORSOrigins,
	})

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting minidb",
		zap.String("version", Version),
		zap.String("mode", cfg.Mode),
		zap.String("data_dir", cfg.DataDir),
		zap.String("image_dir", cfg.ImageDir))

	if err := server.Run(ctx, srv.HTTPServer(cfg.Addr()), logger); err != nil {
		return sysError("serve: %w", err)
	}
	return nil
}
