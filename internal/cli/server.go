package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"break-the-query/internal/app"
	"break-the-query/internal/config"
	"break-the-query/internal/domain"
	"break-the-query/internal/infra/file"
	"break-the-query/internal/infra/memory"
	pgpersist "break-the-query/internal/infra/postgres"
	redispersist "break-the-query/internal/infra/redis"
	transport "break-the-query/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the contest server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	finalPort := resolvePort(portFlag, os.Getenv("PORT"), cfg.Server.Port)

	persister, closeStorage, err := openPersister(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStorage()

	teams, err := memory.NewTeamRegistry(ctx, persister)
	if err != nil {
		return fmt.Errorf("load teams: %w", err)
	}
	submissions, err := memory.NewSubmissionStore(ctx, persister)
	if err != nil {
		return fmt.Errorf("load submissions: %w", err)
	}
	log.Info("state loaded",
		zap.String("driver", cfg.Storage.Driver),
		zap.Int("teams", len(teams.List())),
		zap.Int("submissions", len(submissions.List())))

	service := app.NewEventService(teams, submissions,
		app.WithLogger(log.Named("event")),
		app.WithMarksPolicy(domain.MarksPolicy{Min: cfg.Marks.Min, Max: cfg.Marks.Max}),
		app.WithDefaultRound(cfg.Round.DefaultLabel),
	)
	handler := transport.NewHandler(service, log.Named("http"))

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: handler.Routes(transport.RouteOptions{
			StaticDir:   cfg.Server.StaticDir,
			CORSOrigins: cfg.Server.CORSOrigins,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting contest server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	}

	timeout := config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// resolvePort prefers the --port flag, then the PORT environment variable,
// then server.port from the config, then 8080.
func resolvePort(flag, env, configured string) string {
	for _, p := range []string{flag, env, configured} {
		if p != "" {
			return p
		}
	}
	return "8080"
}

// openPersister picks the storage backend named by storage.driver. The
// returned func releases any connections it opened.
func openPersister(ctx context.Context, cfg config.Config, log *zap.Logger) (memory.Persister, func(), error) {
	noop := func() {}
	switch cfg.Storage.Driver {
	case "memory":
		log.Warn("storage driver memory: state is lost on restart")
		return memory.NopPersister{}, noop, nil
	case "file":
		p, err := file.NewPersister(cfg.Storage.Dir)
		if err != nil {
			return nil, noop, err
		}
		return p, noop, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("redis ping: %w", err)
		}
		return redispersist.NewPersister(client, cfg.Redis.Prefix), func() { _ = client.Close() }, nil
	case "postgres":
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return nil, noop, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, noop, err
		}
		return pgpersist.NewPersister(pool), pool.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
