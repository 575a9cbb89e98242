// Package capability tracks optional features that become available at runtime.
//
// A Gate starts pending, becomes ready when its loader succeeds and stays
// failed for the life of the process when the loader returns an error.
package capability

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// State is the lifecycle position of a gate
type State int32

const (
	StatePending State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "pending"
	}
}

// ErrAlreadyLoaded is returned when Load is called on a resolved gate
var ErrAlreadyLoaded = errors.New("capability already loaded")

// Loader brings a capability up
type Loader func(ctx context.Context) error

// Gate is the readiness flag of one optional capability
type Gate struct {
	name  string
	state atomic.Int32
	once  sync.Once
	done  chan struct{}
	err   error
}

// NewGate creates a pending gate
func NewGate(name string) *Gate {
	return &Gate{
		name: name,
		done: make(chan struct{}),
	}
}

// Name returns the capability name
func (g *Gate) Name() string {
	return g.name
}

// Load runs loader once and resolves the gate with its result.
func (g *Gate) Load(ctx context.Context, loader Loader) error {
	ran := false
	g.once.Do(func() {
		ran = true
		err := loader(ctx)
		if err != nil {
			g.err = err
			g.state.Store(int32(StateFailed))
		} else {
			g.state.Store(int32(StateReady))
		}
		close(g.done)
	})
	if !ran {
		return ErrAlreadyLoaded
	}
	return g.err
}

// State returns the current state
func (g *Gate) State() State {
	return State(g.state.Load())
}

// Ready reports whether the capability can be used
func (g *Gate) Ready() bool {
	return g.State() == StateReady
}

// Err returns the load error of a failed gate
func (g *Gate) Err() error {
	if g.State() != StateFailed {
		return nil
	}
	return g.err
}

// Wait blocks until the gate resolves or ctx is done
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.done:
		return g.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
