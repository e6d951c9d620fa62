package controller

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type probeSequence struct {
	mu      sync.Mutex
	results []bool
}

func (p *probeSequence) CheckConnection(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := p.results[0]
	p.results = p.results[1:]

	return result
}

type notices struct {
	errors []string
}

func (n *notices) Success(string) {}

func (n *notices) Error(msg string) {
	n.errors = append(n.errors, msg)
}

func TestGateRetryAfterFailure(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	var pages []string

	notifications := &notices{}
	gate := NewGate(&probeSequence{results: []bool{false, true}}, notifications, func(state GateState) {
		pages = append(pages, pageForGate(state))
	})

	assert.Equal(GateFailed, gate.Check(context.Background()))
	assert.Equal([]string{pageLoading, pageError}, pages)
	assert.Equal([]string{ConnectionFailed}, notifications.errors)

	assert.Equal(GateConnected, gate.Check(context.Background()))
	assert.Equal([]string{pageLoading, pageError, pageLoading, pageBoards}, pages)
	assert.Equal(GateConnected, gate.State())
}

func TestGateConnectedFirstTime(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	notifications := &notices{}
	gate := NewGate(&probeSequence{results: []bool{true}}, notifications, nil)

	assert.Equal(GateChecking, gate.State())
	assert.Equal(GateConnected, gate.Check(context.Background()))
	assert.Empty(notifications.errors)
}
