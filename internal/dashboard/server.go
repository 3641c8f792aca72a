// Package dashboard is the read-oriented HTTP facade over the store,
// started by whichever process wins singleton coordination.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zulandar/streamyard/internal/store"
)

// Opts holds configuration for the dashboard server.
type Opts struct {
	Store *store.Store
	Port  int // 0 binds an ephemeral port
	Out   io.Writer
}

// Start binds the configured port (or an ephemeral one when Port is 0),
// then serves in the background until ctx is cancelled. It returns the
// bound port so the caller can record it in the coordination lock.
func Start(ctx context.Context, opts Opts) (int, error) {
	if opts.Store == nil {
		return 0, fmt.Errorf("dashboard: store is required")
	}
	if opts.Port < 0 {
		return 0, fmt.Errorf("dashboard: invalid port %d", opts.Port)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts.Store)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", opts.Port))
	if err != nil {
		return 0, fmt.Errorf("dashboard: listen on port %d: %w", opts.Port, err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	srv := &http.Server{Handler: router}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			if opts.Out != nil {
				fmt.Fprintf(opts.Out, "dashboard: serve: %v\n", err)
			}
		}
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://localhost:%d\n", port)
	}
	return port, nil
}
