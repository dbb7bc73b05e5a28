// Package main is the entry point for the vboarder CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vboarder/vboarder/internal/config"
	"github.com/vboarder/vboarder/internal/cron"
	"github.com/vboarder/vboarder/internal/gateway"
	"github.com/vboarder/vboarder/internal/knowledge"
	"github.com/vboarder/vboarder/internal/memory"
	"github.com/vboarder/vboarder/internal/provider"
	"github.com/vboarder/vboarder/internal/session"
	"github.com/vboarder/vboarder/internal/telemetry"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vboarder",
		Short:         "Multi-persona executive assistant runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), serveCmd(), configCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("vboarder %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agent runtime",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			if cfgPath == "" {
				resolved, err := resolveConfigPath()
				if err != nil {
					return err
				}
				cfgPath = resolved
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}

func serve(cfg *config.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Setup(ctx, cfg.Telemetry.Endpoint, version)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("telemetry shutdown failed", "error", err)
			}
		}()
	}

	know, err := knowledge.Open(cfg.Storage.KnowledgeDB, logger)
	if err != nil {
		return err
	}
	defer func() { _ = know.Close() }()

	mem := memory.NewStore(cfg.Storage.AgentsDir, memory.NewLockRegistry(), logger)
	sessions := session.NewManager(cfg.Storage.SessionsDir, cfg.Session.MaxTurns, logger)
	resolver := provider.NewResolver(
		provider.Mode(cfg.Models.Mode),
		cfg.Models.LocalURL,
		cfg.Models.OpenAIURL,
		cfg.Models.APIKey,
	)

	srv := gateway.NewServer(cfg, logger, mem, sessions, know, resolver)
	if err := srv.Start(); err != nil {
		return err
	}

	var scheduler *cron.Scheduler
	if cfg.Maintenance.Enabled {
		scheduler = cron.NewScheduler(logger)
		jobs := []cron.Job{
			&cron.SessionCleanupJob{
				Sessions: sessions,
				TTL:      cfg.Maintenance.SessionTTL,
				Cron:     cfg.Maintenance.Schedule,
				Logger:   logger,
			},
			&cron.KnowledgeCompactionJob{
				Store:  know,
				Keep:   cfg.Maintenance.KeepFacts,
				Cron:   cfg.Maintenance.Schedule,
				Logger: logger,
			},
		}
		for _, job := range jobs {
			if err := scheduler.Register(job); err != nil {
				return err
			}
		}
		if err := scheduler.Start(); err != nil {
			return err
		}
	}

	logger.Info("runtime started", "version", version)
	<-ctx.Done()
	logger.Info("shutdown signal received")

	if scheduler != nil {
		scheduler.Stop()
	}
	return srv.Shutdown(context.Background())
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Configuration OK (listen %s, models %s)\n", cfg.Server.Listen, cfg.Models.Mode)
			return nil
		},
	})
	return cmd
}

// resolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/vboarder/vboarder.yaml → ./vboarder.yaml
func resolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "vboarder", "vboarder.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "vboarder", "vboarder.yaml"))
	}

	candidates = append(candidates, "vboarder.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}
