package lifecycle

import (
	"context"
	"time"
)

// Handle is given to one background service. The service watches Done and
// must call Close exactly once before its goroutine returns.
type Handle struct {
	name string
	ctx  context.Context
	// Close reports the service as stopped to its Manager.
	Close func()
}

// Name is the name the service registered under.
func (h *Handle) Name() string {
	return h.name
}

func (h *Handle) Ctx() context.Context {
	return h.ctx
}

// Done is closed when the Manager broadcasts shutdown.
func (h *Handle) Done() <-chan struct{} {
	return h.ctx.Done()
}

func (h *Handle) Err() error {
	return h.ctx.Err()
}

// Sleep waits for duration, returning early with the handle's error once
// shutdown has been broadcast.
func (h *Handle) Sleep(duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-h.Done():
		return h.Err()
	case <-timer.C:
		return nil
	}
}
