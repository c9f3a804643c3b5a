// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/tomtom215/labelkeeper/internal/logging"
)

// DefaultShutdownTimeout is used when NewHTTPServerService is given a
// non-positive timeout.
const DefaultShutdownTimeout = 30 * time.Second

// HTTPServer is the subset of *http.Server the service drives.
//
// Satisfied by *http.Server from net/http:
//   - Serve(net.Listener) error
//   - Shutdown(ctx context.Context) error
//   - Close() error
type HTTPServer interface {
	Serve(l net.Listener) error
	Shutdown(ctx context.Context) error
	Close() error
}

// HTTPServerService runs the Labelkeeper API as a supervised service.
//
// Serve binds the listen address itself before handing the listener to the
// server, so a port conflict is reported synchronously with the address in
// the error and the supervisor backs off and retries. The bound address is
// logged, which matters when the configured port is 0.
//
// Shutdown has two phases:
//
//  1. Graceful: http.Server.Shutdown waits for in-flight requests. Restore
//     requests are answered only when the restore finishes, so this phase
//     can take as long as a restore does.
//  2. Forced: when shutdownTimeout elapses the remaining connections are
//     closed. Restore and fetch subprocesses are not tied to the request
//     and keep running; only their HTTP response is lost.
//
// Example usage:
//
//	server := &http.Server{Handler: router}
//	svc := services.NewHTTPServerService(server, cfg.Server.Addr(), 30*time.Second)
//	tree.AddAPIService(svc)
type HTTPServerService struct {
	server          HTTPServer
	addr            string
	shutdownTimeout time.Duration

	// listen is net.Listen outside of tests.
	listen func(network, address string) (net.Listener, error)
}

// NewHTTPServerService wraps server, which will listen on addr.
func NewHTTPServerService(server HTTPServer, addr string, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	return &HTTPServerService{
		server:          server,
		addr:            addr,
		shutdownTimeout: shutdownTimeout,
		listen:          net.Listen,
	}
}

// Serve implements suture.Service.
//
// It returns:
//   - a wrapped bind error when addr cannot be listened on;
//   - a wrapped serve error when the server stops on its own;
//   - ctx.Err() after a shutdown, graceful or forced;
//   - a wrapped error when Shutdown fails for any reason other than the
//     timeout.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	ln, err := h.listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", h.addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logging.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		if err := h.shutdown(); err != nil {
			return err
		}
		<-errCh
		logging.Info().Msg("HTTP server stopped")
		return ctx.Err()
	}
}

// shutdown drains in-flight requests for up to shutdownTimeout and then
// closes whatever is left.
func (h *HTTPServerService) shutdown() error {
	// The Serve context is already cancelled.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
	defer cancel()

	err := h.server.Shutdown(shutdownCtx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	logging.Warn().Dur("timeout", h.shutdownTimeout).
		Msg("HTTP requests still in flight at shutdown timeout, closing connections")
	if cerr := h.server.Close(); cerr != nil {
		return fmt.Errorf("http server close failed: %w", cerr)
	}
	return nil
}

// String implements fmt.Stringer; suture uses it in log events.
func (h *HTTPServerService) String() string {
	return "http-server"
}
