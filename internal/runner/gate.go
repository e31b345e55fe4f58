package runner

import (
	"context"
	"sync"
)

// Gate is a cooperative pause switch consulted between records.
// It implements domain.Checkpoint.
type Gate struct {
	mu     sync.Mutex
	paused bool
	resume chan struct{}
}

// NewGate returns an open gate
func NewGate() *Gate {
	return &Gate{}
}

// Pause closes the gate. It reports false when the gate was already paused.
func (g *Gate) Pause() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.paused {
		return false
	}
	g.paused = true
	g.resume = make(chan struct{})
	return true
}

// Resume opens the gate and releases any waiters. It reports false when the
// gate was not paused.
func (g *Gate) Resume() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.paused {
		return false
	}
	g.paused = false
	close(g.resume)
	return true
}

// Paused reports whether the gate is closed
func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// Wait blocks while the gate is paused. It returns the context error if the
// context ends first.
func (g *Gate) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		g.mu.Lock()
		if !g.paused {
			g.mu.Unlock()
			return nil
		}
		resume := g.resume
		g.mu.Unlock()

		select {
		case <-resume:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
