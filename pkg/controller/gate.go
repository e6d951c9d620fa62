package controller

import (
	"context"
	"sync"

	"github.com/matt-steen/taskboard/pkg/api"
	"github.com/rs/zerolog/log"
)

// ConnectionFailed is shown when the backend does not answer the probe.
const ConnectionFailed = "Failed to connect to the server. Check that the server is running."

// Prober checks whether the backend is reachable. *api.Client implements it.
type Prober interface {
	CheckConnection(ctx context.Context) bool
}

// GateState is the outcome of the startup connection check.
type GateState int

// These constants refer to the states of the connection gate.
const (
	GateChecking GateState = iota
	GateFailed
	GateConnected
)

// Gate holds the main layout back until the backend answers.
type Gate struct {
	mu       sync.Mutex
	prober   Prober
	notifier api.Notifier
	state    GateState
	onChange func(GateState)
}

// NewGate creates a gate in the checking state. onChange runs after every transition.
func NewGate(prober Prober, notifier api.Notifier, onChange func(GateState)) *Gate {
	if notifier == nil {
		notifier = api.LogNotifier{}
	}

	if onChange == nil {
		onChange = func(GateState) {}
	}

	return &Gate{
		prober:   prober,
		notifier: notifier,
		onChange: onChange,
	}
}

// State returns the current state.
func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.state
}

func (g *Gate) set(state GateState) {
	g.mu.Lock()
	g.state = state
	g.mu.Unlock()

	g.onChange(state)
}

// Check probes the backend and moves to GateConnected or GateFailed. It may be
// called again to retry after a failure.
func (g *Gate) Check(ctx context.Context) GateState {
	g.set(GateChecking)

	if !g.prober.CheckConnection(ctx) {
		log.Warn().Msg("backend unreachable")
		g.notifier.Error(ConnectionFailed)
		g.set(GateFailed)

		return GateFailed
	}

	log.Info().Msg("connected to backend")
	g.set(GateConnected)

	return GateConnected
}

// pageForGate is the page shown for each gate state.
func pageForGate(state GateState) string {
	switch state {
	case GateFailed:
		return pageError
	case GateConnected:
		return pageBoards
	}

	return pageLoading
}
