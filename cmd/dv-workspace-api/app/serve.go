package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"

	"github.com/docuvault/docuvault-server/internal/api"
	"github.com/docuvault/docuvault-server/internal/authz"
	"github.com/docuvault/docuvault-server/internal/config"
	"github.com/docuvault/docuvault-server/internal/docs"
	"github.com/docuvault/docuvault-server/internal/groups"
	"github.com/docuvault/docuvault-server/internal/perms"
	"github.com/docuvault/docuvault-server/internal/store"
	storedb "github.com/docuvault/docuvault-server/internal/store/db"
	"github.com/docuvault/docuvault-server/internal/store/inmemory"
	"github.com/docuvault/docuvault-server/internal/workspace"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the workspace API server",
	Long: `Start the workspace API server.

Without a configuration file (--config) the server runs on the in-memory
backend with default deployment flags, which is only useful for local
development. Production deployments configure the postgres backend.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 15 * time.Second
	serverIdleTimeout      = 60 * time.Second
)

func init() {
	serveCmd.Flags().String("address", ":8080", "Address to listen on")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format)")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		slog.Error("Failed to bind address flag", "error", err)
		os.Exit(1)
	}
	if err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config")); err != nil {
		slog.Error("Failed to bind config flag", "error", err)
		os.Exit(1)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	address := viper.GetString("address")

	cfg, err := loadConfig(viper.GetString("config"))
	if err != nil {
		return err
	}

	st, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	permSvc := perms.NewService(st, st)
	groupReg := groups.NewRegistry(st)
	workspaceSvc := workspace.NewService(st, permSvc, groupReg, cfg)
	engine := authz.NewEngine(workspaceSvc, permSvc, cfg)
	docSvc := docs.NewService(st, engine, cfg)

	if err := bootstrap(ctx, permSvc, groupReg, workspaceSvc); err != nil {
		return err
	}

	router := api.NewServer(api.Services{
		Store:      st,
		Workspaces: workspaceSvc,
		Documents:  docSvc,
		Groups:     groupReg,
	}, api.WithMiddlewares(api.LoggingMiddleware))

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting workspace API server", "address", address, "backend", cfg.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		slog.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, defaultGracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func loadConfig(configPath string) (*config.Config, error) {
	var opts []config.Option
	if configPath != "" {
		opts = append(opts, config.WithConfigPath(configPath))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildStore creates the configured storage backend and returns it together
// with its cleanup function.
func buildStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendMemory:
		slog.Warn("Using the in-memory backend, state is lost on restart")
		return inmemory.New(), func() {}, nil
	case config.BackendPostgres:
		connString, err := cfg.Database.ConnectionString()
		if err != nil {
			return nil, nil, err
		}
		poolCfg, err := pgxpool.ParseConfig(connString)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse database configuration: %w", err)
		}
		if cfg.Database.MaxConns > 0 {
			poolCfg.MaxConns = cfg.Database.MaxConns
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		st, err := storedb.New(
			storedb.WithConnectionPool(pool),
			storedb.WithTracer(otel.Tracer(storedb.TracerName)),
		)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := st.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return st, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// bootstrap creates the records the server expects to exist: the system
// capabilities, the well-known groups and the global workspace.
func bootstrap(ctx context.Context, permSvc *perms.Service, groupReg *groups.Registry, workspaceSvc *workspace.Service) error {
	if err := permSvc.EnsureSystemRights(ctx); err != nil {
		return fmt.Errorf("failed to create system rights: %w", err)
	}
	if err := groupReg.EnsureWellKnownGroups(ctx); err != nil {
		return fmt.Errorf("failed to create well-known groups: %w", err)
	}
	if err := workspaceSvc.EnsureGlobalWorkspace(ctx); err != nil {
		return err
	}
	return nil
}
