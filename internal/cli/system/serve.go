package system

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julianstephens/stride/internal/cli"
	"github.com/julianstephens/stride/internal/constants"
	"github.com/julianstephens/stride/internal/httpserver"
	"github.com/julianstephens/stride/internal/logger"
	"github.com/julianstephens/stride/internal/refresher"
)

const shutdownTimeout = 30 * time.Second

type ServeCmd struct {
	Addr     string `help:"Address for the metrics and health endpoints." default:"${serve_addr}"`
	Schedule string `help:"Refresh schedule (cron expression or @every descriptor)." default:"${serve_schedule}"`
}

func (c *ServeCmd) Validate() error {
	return refresher.ValidateSchedule(c.Schedule)
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.serve(sigCtx, ctx)
}

// serve runs the refresher and HTTP endpoints until runCtx is done.
func (c *ServeCmd) serve(runCtx context.Context, ctx *cli.Context) error {
	l, err := ctx.NewLoader()
	if err != nil {
		return err
	}

	r, err := refresher.New(ctx.Store, l, c.Schedule)
	if err != nil {
		return err
	}

	// Score once up front so the gauges are populated before the first tick.
	if err := r.RunOnce(runCtx); err != nil {
		logger.Error("Initial refresh failed", "error", err)
	}
	r.Start()

	srv := &http.Server{
		Addr:              c.Addr,
		Handler:           httpserver.NewRouter(ctx.Store, ctx.Debug),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", "addr", c.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx.Printf("Serving metrics on %s/metrics (refresh %s)\n", displayAddr(c.Addr), c.Schedule)

	var serveErr error
	select {
	case <-runCtx.Done():
	case err := <-errCh:
		if err != nil {
			serveErr = fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	logger.Info("Shutting down")
	<-r.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if serveErr == nil {
		ctx.Println("Stopped")
	}
	return serveErr
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

// Vars returns the kong variables used for serve defaults.
func Vars() map[string]string {
	return map[string]string{
		"serve_addr":     constants.DefaultServeAddr,
		"serve_schedule": constants.DefaultServeSchedule,
	}
}
