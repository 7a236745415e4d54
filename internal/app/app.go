package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"anpr-api/internal/config"
	"anpr-api/internal/db"
	httpapi "anpr-api/internal/http"
	"anpr-api/internal/repository"
	"anpr-api/internal/service"
)

type App struct {
	config  *config.Config
	log     zerolog.Logger
	Service *service.ANPRService
	closers []func(context.Context) error
}

// New opens the configured store and builds the service on top of it.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{config: cfg, log: log}

	repo, err := a.openRepository(ctx)
	if err != nil {
		return nil, err
	}
	a.Service = service.NewANPRService(repo, cfg.Stats.Cameras, cfg.Stats.Sites, log)
	return a, nil
}

func (a *App) openRepository(ctx context.Context) (repository.ANPRRepository, error) {
	switch a.config.Store.Driver {
	case config.StoreMongo:
		client, coll, err := db.ConnectMongo(ctx, a.config.Mongo)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Disconnect)
		a.log.Info().
			Str("database", a.config.Mongo.Database).
			Str("collection", a.config.Mongo.Collection).
			Msg("connected to mongodb")
		return repository.NewMongoRepository(coll), nil

	case config.StorePostgres:
		gdb, err := db.ConnectPostgres(a.config.Postgres)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return db.ClosePostgres(gdb) })
		a.log.Info().Str("table", a.config.Postgres.Table).Msg("connected to postgres")
		return repository.NewPostgresRepository(gdb, a.config.Postgres.Table), nil

	case config.StoreMemory:
		a.log.Warn().Msg("using in-memory store, detections are not persisted")
		return repository.NewMemoryRepository(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", a.config.Store.Driver)
}

// Serve runs the HTTP API until ctx is cancelled, then drains in-flight
// requests for up to the configured shutdown timeout.
func (a *App) Serve(ctx context.Context) error {
	handler := httpapi.NewHandler(a.Service, a.config, a.log)
	srv := &http.Server{
		Addr:    a.config.HTTP.Addr,
		Handler: httpapi.NewRouter(handler, a.config.HTTP, a.log),
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.HTTP.ShutdownTimeout)
	defer cancel()
	a.log.Info().Msg("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}

func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
