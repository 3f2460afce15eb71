package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/zakgeld/moni/internal/config"
	"github.com/zakgeld/moni/internal/utils"
)

// Application wires configuration, stores, router, and server lifecycle.
type Application struct {
	cfg    config.Application
	router *mux.Router
	srv    *http.Server
	stores *Stores
}

// NewApplication constructs the full HTTP application, ready to Run().
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	stores, err := OpenStores(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	deps, err := BuildDependencies(stores, cfg, utils.SystemClock{})
	if err != nil {
		stores.Close()
		return nil, err
	}

	r := NewRouter(deps)

	srv := &http.Server{
		Handler:      r,
		Addr:         cfg.Addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Application{cfg: cfg, router: r, srv: srv, stores: stores}, nil
}

// NewRouter builds the router with middleware and all routes.
func NewRouter(deps *Dependencies) *mux.Router {
	r := mux.NewRouter()
	SetupMiddleware(r, deps)
	RegisterRoutes(r, deps)
	return r
}

// Run starts the HTTP server and blocks. Stores are closed when the server stops.
func (a *Application) Run() error {
	defer a.stores.Close()
	log.Infof("Starting server on %s", a.srv.Addr)
	if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (a *Application) Shutdown(ctx context.Context) error {
	return a.srv.Shutdown(ctx)
}
