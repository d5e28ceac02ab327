package infra

import (
	"context"
	"net/http"
	"time"
)

// headerTimeout bounds how long a client may take to send request
// headers. Bodies are exempt; video submissions stream for minutes and
// are governed by the configurable read/write timeouts instead.
const headerTimeout = 5 * time.Second

// HTTPServer wraps http.Server with the module's timeout policy and
// graceful shutdown.
type HTTPServer struct {
	server *http.Server
}

// NewHTTPServer configures the listener from the loaded config.
func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	return &HTTPServer{server: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: headerTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}}
}

// Start blocks on ListenAndServe.
func (s *HTTPServer) Start() error {
	if s.server == nil {
		return nil
	}
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires. In-progress
// part uploads count as in-flight requests, so callers should budget
// the shutdown context accordingly.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
