package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/silli-ai/reasoner/pkg/audit"
	"github.com/silli-ai/reasoner/pkg/gateway"
	"github.com/silli-ai/reasoner/pkg/gating"
	"github.com/silli-ai/reasoner/pkg/ollama"
	"github.com/silli-ai/reasoner/pkg/server"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the reasoning gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger, err := newLogger(debug)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			families, err := gating.NewFamilyStore(cfg.DBPath, cfg.Gating.DefaultOn)
			if err != nil {
				return fmt.Errorf("init family store: %w", err)
			}
			defer func() { _ = families.Close() }()

			var auditor *audit.Logger
			if cfg.Audit.Enabled {
				auditor, err = audit.New(cfg.Audit)
				if err != nil {
					return fmt.Errorf("init audit log: %w", err)
				}
				defer func() { _ = auditor.Close() }()
			}

			runtime := ollama.New(cfg.Ollama.Host, cfg.Ollama.Timeout)
			gate := gating.New(cfg.Gating.Enabled, families)
			gw := gateway.New(cfg, runtime, gate, auditor, logger)
			srv := server.New(cfg, gw, runtime, logger)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("starting reasoner",
				zap.String("listen", cfg.Listen),
				zap.String("model_hint", cfg.Model.Hint),
				zap.Bool("gating", cfg.Gating.Enabled))
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
