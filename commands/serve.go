package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/envergo/moulinette/config"
	"github.com/envergo/moulinette/geo"
	"github.com/envergo/moulinette/moulinette"
	"github.com/envergo/moulinette/plantation"
	"github.com/envergo/moulinette/server"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the evaluation HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Serve.Addr = addr
			}
			logger := setupLogging(cfg)
			return runServe(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	index, departments, configs, err := loadEngineData(cfg, logger)
	if err != nil {
		return err
	}

	plantEval := newPlantationEvaluator(cfg, logger)
	srv := server.New(index, departments, configs, plantEval, logger)

	signalCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Departments.Watch {
		watcher, err := moulinette.NewConfigWatcher(
			cfg.Departments.Dir, cfg.Departments.Glob, 0, logger,
			srv.SwapConfigs,
		)
		if err != nil {
			return fmt.Errorf("create config watcher: %w", err)
		}
		if err := watcher.Start(signalCtx); err != nil {
			return fmt.Errorf("start config watcher: %w", err)
		}
		defer watcher.Stop()
	}

	httpServer := &http.Server{
		Addr:    cfg.Serve.Addr,
		Handler: srv.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Serve.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-signalCtx.Done():
	}

	logger.Info("Received shutdown signal")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Serve.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	logger.Info("Shutdown complete")
	return nil
}

// loadEngineData loads the zone maps, department boundaries and department
// configs named by the configuration.
func loadEngineData(cfg *config.Config, logger *slog.Logger) (*geo.ZoneIndex, *geo.DepartmentIndex, *moulinette.ConfigSet, error) {
	index, err := geo.LoadZoneIndex(cfg.Data.Dir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load zone maps: %w", err)
	}
	departments, err := geo.LoadDepartments(cfg.DepartmentsPath())
	if err != nil {
		return nil, nil, nil, err
	}
	configs, err := moulinette.LoadConfigDir(cfg.Departments.Dir, cfg.Departments.Glob)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load department configs: %w", err)
	}

	logger.Info("Engine data loaded",
		"data_dir", cfg.Data.Dir,
		"configs", len(configs.Configs))
	return index, departments, configs, nil
}

// newPlantationEvaluator wires the optional publicodes quality service.
func newPlantationEvaluator(cfg *config.Config, logger *slog.Logger) *plantation.Evaluator {
	opts := []plantation.Option{plantation.WithLogger(logger)}
	if cfg.Publicodes.Endpoint != "" {
		opts = append(opts, plantation.WithQualityClient(
			plantation.NewQualityClient(cfg.Publicodes.Endpoint, cfg.Publicodes.Timeout)))
	}
	return plantation.NewEvaluator(opts...)
}
