package daemon

import (
	"context"
	"errors"
	"net/http"
	"time"

	"mirror/internal/logging"
)

type Daemon struct {
	addr    string
	token   string
	version string
	logger  logging.Logger
	manager *SessionManager
	server  *http.Server
}

func New(addr, token, version string, manager *SessionManager, logger logging.Logger) *Daemon {
	if logger == nil {
		logger = logging.Nop()
	}
	if manager == nil {
		manager = NewSessionManager(logger)
	}
	return &Daemon{
		addr:    addr,
		token:   token,
		version: version,
		logger:  logger,
		manager: manager,
	}
}

func (d *Daemon) Manager() *SessionManager {
	return d.manager
}

func (d *Daemon) Run(ctx context.Context) error {
	api := &API{
		Version: d.version,
		Manager: d.manager,
		Logger:  d.logger,
	}
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	d.server = &http.Server{
		Addr:    d.addr,
		Handler: TokenAuthMiddleware(d.token, mux),
	}
	api.Shutdown = d.server.Shutdown

	errCh := make(chan error, 1)
	go func() {
		d.logger.Info("daemon_listening", logging.F("addr", d.addr))
		errCh <- d.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return d.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
