// Package httpserver builds the process HTTP server.
package httpserver

import (
	"net/http"
	"time"
)

// writeTimeout sits above the 30s handler timeout so the middleware deadline
// fires first and the client gets a JSON error instead of a dropped
// connection.
const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 35 * time.Second
	idleTimeout       = 2 * time.Minute
)

// New builds an HTTP server around the router. Registration traffic spikes
// right before a deadline, so keep-alives are held open between retries.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
