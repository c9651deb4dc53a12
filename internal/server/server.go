package server

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Server owns the bridge's single HTTP listener: REST API, swagger and the
// WebSocket device stream all share it.
type Server struct {
	httpServer *http.Server
}

const (
	maxHeaderBytes    = 1 << 20
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 60 * time.Second
)

// newHTTPServer builds the listener configuration. No WriteTimeout is set:
// the /ws device stream is a long-lived response, and the WebSocket handler
// enforces its own per-message write deadlines instead.
func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
}

// Run starts listening on the given port ("8080" and ":8080" both work) and
// blocks until the listener closes.
func (s *Server) Run(port string, handler http.Handler) error {
	s.httpServer = newHTTPServer(listenAddr(port), handler)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func listenAddr(port string) string {
	if port == "" || strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}
