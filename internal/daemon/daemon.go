package daemon

import (
	"context"
	"errors"
	"net/http"
	"time"

	"triage/internal/logging"
)

type Daemon struct {
	addr     string
	token    string
	version  string
	server   *http.Server
	logger   logging.Logger
	repos    *RepoService
	sessions *SessionService
}

func New(addr, token, version string, repos *RepoService, sessions *SessionService, logger logging.Logger) *Daemon {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Daemon{
		addr:     addr,
		token:    token,
		version:  version,
		logger:   logger,
		repos:    repos,
		sessions: sessions,
	}
}

func (d *Daemon) Run(ctx context.Context) error {
	api := &API{
		Version:  d.version,
		Repos:    d.repos,
		Sessions: d.sessions,
		Logger:   d.logger,
	}

	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	handler := LoggingMiddleware(d.logger, TokenAuthMiddleware(d.token, mux))
	d.server = &http.Server{
		Addr:    d.addr,
		Handler: handler,
	}
	api.Shutdown = d.server.Shutdown

	errCh := make(chan error, 1)
	go func() {
		d.logger.Info("daemon_listening", logging.F("addr", "http://"+d.addr))
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
