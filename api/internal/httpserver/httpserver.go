package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Serve runs every server until ctx is cancelled or one of them fails, then
// shuts all of them down gracefully.
func Serve(ctx context.Context, logger *slog.Logger, servers ...*http.Server) error {
	listeners := make([]net.Listener, 0, len(servers))
	for _, srv := range servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, l := range listeners {
				_ = l.Close()
			}
			return err
		}
		listeners = append(listeners, ln)
	}
	return ServeListeners(ctx, logger, servers, listeners)
}

// ServeListeners is Serve for listeners the caller already opened;
// servers[i] serves listeners[i].
func ServeListeners(ctx context.Context, logger *slog.Logger, servers []*http.Server, listeners []net.Listener) error {
	g, groupCtx := errgroup.WithContext(ctx)
	for i, srv := range servers {
		srv, ln := srv, listeners[i]
		g.Go(func() error {
			logger.Info("http_listen", "addr", ln.Addr().String())
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http_shutdown_failed", "addr", ln.Addr().String(), "error", err.Error())
				return err
			}
			logger.Info("http_shutdown", "addr", ln.Addr().String())
			return nil
		})
	}
	return g.Wait()
}
