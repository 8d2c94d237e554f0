// Package server initializes and runs the account service. It wires the
// database, repositories, token issuer, blob storage and HTTP gateway
// together and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/clipstream/clipstream/internal/logging"
	"github.com/clipstream/clipstream/internal/server/auth"
	"github.com/clipstream/clipstream/internal/server/blobstore"
	"github.com/clipstream/clipstream/internal/server/config"
	"github.com/clipstream/clipstream/internal/server/httpapi"
	"github.com/clipstream/clipstream/internal/server/repositories/repomanager"
	"github.com/clipstream/clipstream/internal/server/services"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	manager    repomanager.RepositoryManager
	httpServer *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	manager := repomanager.NewPostgresRepositoryManager()

	hasher := auth.NewHasher(cfg.BcryptCost)
	issuer := auth.NewIssuer(
		[]byte(cfg.AccessTokenSecret), []byte(cfg.RefreshTokenSecret),
		cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry,
	)
	blobs := blobstore.NewS3Store(cfg)

	service := services.NewSessionService(db, manager, hasher, issuer, blobs, logger)
	httpServer := httpapi.NewServer(cfg.Address, service, issuer, cfg.UploadDir, logger)

	return &App{
		config:     cfg,
		logger:     logger,
		db:         db,
		manager:    manager,
		httpServer: httpServer,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.manager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, "http server error", "error", err)
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing db", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
	return nil
}
