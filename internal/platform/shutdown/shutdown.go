// Package shutdown drives the two-phase stop of the server and its
// background services.
package shutdown

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/SlpAus/imagynex-season-backend/pkg/lifecycle"
)

// Default phase deadlines.
const (
	HTTPTimeout     = 15 * time.Second
	GracefulTimeout = 30 * time.Second
	ForcefulTimeout = 1 * time.Second
)

// Coordinator broadcasts the graceful phase first and escalates to the
// forceful phase only when services miss the graceful deadline.
type Coordinator struct {
	GracefulManager *lifecycle.Manager
	ForcefulManager *lifecycle.Manager

	HTTPTimeout     time.Duration
	GracefulTimeout time.Duration
	ForcefulTimeout time.Duration

	log *logger.Logger
}

func NewCoordinator(gracefulMgr, forcefulMgr *lifecycle.Manager, log *logger.Logger) *Coordinator {
	return &Coordinator{
		GracefulManager: gracefulMgr,
		ForcefulManager: forcefulMgr,
		HTTPTimeout:     HTTPTimeout,
		GracefulTimeout: GracefulTimeout,
		ForcefulTimeout: ForcefulTimeout,
		log:             log,
	}
}

// ListenForSignalsAndShutdown blocks until SIGINT/SIGTERM and then stops
// everything.
func (c *Coordinator) ListenForSignalsAndShutdown(server *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	c.log.Info("received shutdown signal", "signal", sig.String())

	c.Shutdown(server)
}

// Shutdown stops the HTTP server and then the background services.
func (c *Coordinator) Shutdown(server *http.Server) {
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.HTTPTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			c.log.Error("http server shutdown failed", "error", err)
		} else {
			c.log.Info("http server stopped")
		}
	}

	c.log.Info("phase one: waiting for background services", "timeout", c.GracefulTimeout)
	c.GracefulManager.Shutdown()
	remaining := c.GracefulManager.WaitWithTimeout(c.GracefulTimeout)
	if len(remaining) == 0 {
		c.log.Info("all services stopped gracefully")
		return
	}

	c.log.Warn("phase one timed out, forcing remaining services", "services", remaining, "timeout", c.ForcefulTimeout)
	c.ForcefulManager.Shutdown()
	if left := c.ForcefulManager.WaitWithTimeout(c.ForcefulTimeout); len(left) > 0 {
		c.log.Error("services did not stop", "services", left)
	}
}
