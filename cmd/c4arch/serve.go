package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"c4arch/internal/config"
	"c4arch/server"
	"c4arch/session"
	"c4arch/session/memory"
	"c4arch/session/redis"
	"c4arch/workspace"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serves editing sessions over a JSON HTTP API, with Prometheus metrics
on /metrics. Sessions are kept in memory or in Redis.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().String("listen", "", "Address to listen on (default from config)")
	cmd.Flags().String("store", "", "Session store: memory or redis")
	cmd.Flags().String("font", "", "TrueType font for PNG export")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	remote, err := a.remote()
	if err != nil {
		return err
	}

	store, closeStore, err := a.sessionStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	sessions := session.NewManager(store, func() *workspace.Workspace {
		return workspace.New(remote, a.workspaceOptions()...)
	}, session.WithLogger(a.logger), session.WithMetrics(a.metrics), session.WithIdleTimeout(a.cfg.Store.TTL))
	if a.cfg.Store.TTL > 0 {
		go sessions.Janitor(ctx, min(a.cfg.Store.TTL, time.Minute))
	}

	srv := server.New(sessions, remote,
		server.WithLogger(a.logger),
		server.WithMetrics(a.metrics),
		server.WithFont(a.cfg.Font),
	)
	a.logger.Info("starting", "remote", a.cfg.RemoteURL, "store", a.cfg.Store.Kind)
	return srv.ListenAndServe(ctx, a.cfg.Listen)
}

// sessionStore opens the configured store. The returned func releases it.
func (a *app) sessionStore(ctx context.Context) (session.Store, func(), error) {
	switch a.cfg.Store.Kind {
	case config.StoreRedis:
		s := redis.New(a.cfg.Store.RedisAddr, a.cfg.Store.RedisPassword, a.cfg.Store.RedisDB,
			redis.WithTTL(a.cfg.Store.TTL))
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", a.cfg.Store.RedisAddr, err)
		}
		return s, func() {
			if err := s.Close(); err != nil {
				a.logger.Warn("closing redis store", "error", err)
			}
		}, nil
	default:
		return memory.NewStore(), func() {}, nil
	}
}
