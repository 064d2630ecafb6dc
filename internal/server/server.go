package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type RouteRegistrar interface {
	RegisterRoutes(router Router)
}

// App struct with middleware support
type App struct {
	router     Router
	registrars []RouteRegistrar
	server     *http.Server
	log        *zerolog.Logger
}

func NewApp(addr string, router Router, log *zerolog.Logger, registrars ...RouteRegistrar) *App {
	return &App{
		router:     router,
		registrars: registrars,
		log:        log,
		server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (a *App) SetupRoutes() {
	for _, registrar := range a.registrars {
		registrar.RegisterRoutes(a.router)
	}
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Start blocks serving HTTP. A graceful shutdown is not an error.
func (a *App) Start() error {
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// SetupServer runs the server in g and shuts it down when ctx is done.
func (a *App) SetupServer(ctx context.Context, g *errgroup.Group) {
	g.Go(func() error {
		a.log.Info().Str("address", a.server.Addr).Msg("Starting HTTP server")
		return a.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.log.Info().Msg("Shutting down HTTP server")
		return a.Shutdown(shutdownCtx)
	})
}
