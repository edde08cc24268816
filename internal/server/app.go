// Package server initializes and runs the blobvault server: it opens the
// configured backend, applies migrations, and serves the gRPC API and the
// metrics endpoint until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/blobvault/internal/logging"
	"github.com/dmitrijs2005/blobvault/internal/server/config"
	gs "github.com/dmitrijs2005/blobvault/internal/server/grpc"
	"github.com/dmitrijs2005/blobvault/internal/server/metrics"
	"github.com/dmitrijs2005/blobvault/internal/server/migrations"
	"github.com/dmitrijs2005/blobvault/internal/server/repositories/largeobjects"
	"github.com/dmitrijs2005/blobvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/blobvault/internal/server/services"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

// seams for tests
var (
	newObjectAPI = func(ctx context.Context, c *config.Config) (largeobjects.ObjectAPI, error) {
		return largeobjects.NewS3Client(ctx, largeobjects.S3Options{
			Region:       c.S3Region,
			RootUser:     c.S3RootUser,
			RootPassword: c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	}
	notifySignals = func(ctx context.Context) (context.Context, context.CancelFunc) {
		return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	}
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	metrics *metrics.Metrics
	grpc    *gs.GRPCServer
}

// NewApp opens the backend selected by c.Backend and wires the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel)

	rm, driverName, err := newRepositoryManager(ctx, c)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	m := metrics.New()
	blobs := services.NewBlobService(db, rm, c,
		services.WithObserver(m),
		services.WithLogger(logger))

	server := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, blobs, rm.Records(db), c.SpoolDir, c.SecretKey)

	return &App{config: c, logger: logger, db: db, metrics: m, grpc: server}, nil
}

func newRepositoryManager(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, string, error) {
	switch c.Backend {
	case migrations.BackendPostgres:
		return repomanager.NewPostgresRepositoryManager(), "pgx", nil
	case migrations.BackendSQLite:
		api, err := newObjectAPI(ctx, c)
		if err != nil {
			return nil, "", fmt.Errorf("s3 client init error: %w", err)
		}
		return repomanager.NewSQLiteRepositoryManager(api, c.S3Bucket), "sqlite", nil
	default:
		return nil, "", fmt.Errorf("unknown backend %q", c.Backend)
	}
}

func (app *App) startMetricsServer(ctx context.Context) error {
	if app.config.MetricsAddr == "" {
		return nil
	}

	listen, err := net.Listen("tcp", app.config.MetricsAddr)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: app.metrics.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Warn(ctx, "metrics server shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting metrics server", "address", listen.Addr().String())
	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run serves until ctx is cancelled, the process receives SIGINT, SIGTERM
// or SIGQUIT, or one of the servers fails.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := notifySignals(ctx)
	defer stop()

	app.logger.Info(ctx, "Starting app...", "backend", app.config.Backend)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.grpc.Run(ctx) })
	g.Go(func() error { return app.startMetricsServer(ctx) })

	err := g.Wait()

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Warn(context.Background(), "closing database", "error", cerr)
	}
	app.logger.Info(context.Background(), "App stopped")
	return err
}
