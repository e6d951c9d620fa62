package draft

import (
	"context"
	"errors"
	"sync"
)

// Slot is the name under which the task form draft is kept.
const Slot = "task-form-draft"

// ErrNoDraft is returned by Load when nothing is saved.
var ErrNoDraft = errors.New("no draft saved")

// Store keeps a single serialized draft.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, payload []byte) error
	Remove(ctx context.Context) error
}

// Memory is a Store that lives only as long as the process.
type Memory struct {
	mu      sync.Mutex
	payload []byte
}

// Load returns the saved payload or ErrNoDraft.
func (m *Memory) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.payload == nil {
		return nil, ErrNoDraft
	}

	return append([]byte{}, m.payload...), nil
}

// Save replaces the payload.
func (m *Memory) Save(_ context.Context, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.payload = append([]byte{}, payload...)

	return nil
}

// Remove drops the payload.
func (m *Memory) Remove(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.payload = nil

	return nil
}
