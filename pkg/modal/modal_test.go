package modal_test

import (
	"testing"

	"github.com/matt-steen/taskboard/pkg/modal"
	"github.com/matt-steen/taskboard/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestOpenAndClose(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	m := modal.New()
	assert.False(m.IsOpen())

	task := &models.Task{ID: 3, Title: "Fix login", BoardID: 1}
	m.OpenTaskModal(task, true)

	state := m.State()
	assert.True(state.Open)
	assert.True(state.RedirectToBoard)
	assert.Equal(3, state.Task.ID)

	// the modal keeps its own copy
	task.Title = "changed"
	assert.Equal("Fix login", m.State().Task.Title)

	m.CloseTaskModal()
	assert.Equal(modal.State{}, m.State())
}

func TestOpenBlank(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	m := modal.New()
	m.OpenTaskModal(nil, false)

	assert.True(m.IsOpen())
	assert.Nil(m.State().Task)
	assert.False(m.State().RedirectToBoard)
}

func TestOnChange(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	m := modal.New()

	var seen []bool

	m.OnChange(func(state modal.State) {
		seen = append(seen, state.Open)
		// listeners may read the context
		assert.Equal(state.Open, m.IsOpen())
	})

	m.OpenTaskModal(nil, false)
	m.CloseTaskModal()

	assert.Equal([]bool{true, false}, seen)
}
