package shutdown

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/SlpAus/imagynex-season-backend/pkg/lifecycle"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator() *Coordinator {
	c := NewCoordinator(lifecycle.NewManager(), lifecycle.NewManager(), logger.Nop())
	c.GracefulTimeout = 50 * time.Millisecond
	c.ForcefulTimeout = time.Second
	return c
}

func TestGracefulServicesSkipForcefulPhase(t *testing.T) {
	c := newTestCoordinator()
	graceful, err := c.GracefulManager.NewServiceHandle("worker")
	require.NoError(t, err)
	forceful, err := c.ForcefulManager.NewServiceHandle("worker")
	require.NoError(t, err)

	go func() {
		defer graceful.Close()
		defer forceful.Close()
		<-graceful.Done()
	}()

	c.Shutdown(nil)
	require.Empty(t, c.GracefulManager.Running())
	require.NoError(t, forceful.Err())
}

func TestStuckServiceIsForced(t *testing.T) {
	c := newTestCoordinator()
	graceful, err := c.GracefulManager.NewServiceHandle("reset")
	require.NoError(t, err)
	forceful, err := c.ForcefulManager.NewServiceHandle("reset")
	require.NoError(t, err)

	var forced atomic.Bool
	go func() {
		defer graceful.Close()
		defer forceful.Close()
		<-graceful.Done()
		// still busy until forced
		<-forceful.Done()
		forced.Store(true)
	}()

	c.Shutdown(nil)
	require.True(t, forced.Load())
	require.Empty(t, c.ForcefulManager.Running())
}
