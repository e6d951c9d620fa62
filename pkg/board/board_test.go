package board_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/matt-steen/taskboard/pkg/board"
	"github.com/matt-steen/taskboard/pkg/models"
	"github.com/stretchr/testify/assert"
)

type call struct {
	taskID int
	status models.Status
}

type fakeUpdater struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeUpdater) UpdateStatus(_ context.Context, taskID int, status models.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call{taskID: taskID, status: status})

	return f.err
}

func newBoard(updater board.StatusUpdater) *board.Board {
	b := board.New(7, updater)
	b.Sync([]*models.Task{
		{ID: 1, Title: "Fix login", Status: models.StatusBacklog},
		{ID: 2, Title: "Add dark mode", Status: models.StatusInProgress},
		{ID: 3, Title: "Crash on start", Status: models.StatusBacklog},
	})

	return b
}

func columnIDs(b *board.Board) map[models.Status][]int {
	ids := map[models.Status][]int{}

	for _, column := range b.Columns() {
		ids[column.Status] = []int{}
		for _, task := range column.Tasks {
			ids[column.Status] = append(ids[column.Status], task.ID)
		}
	}

	return ids
}

func TestColumnsPartitionByStatus(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(&fakeUpdater{})

	columns := b.Columns()
	assert.Equal(3, len(columns))
	assert.Equal("To Do", columns[0].Label())
	assert.Equal("In Progress", columns[1].Label())
	assert.Equal("Done", columns[2].Label())

	assert.Equal(map[models.Status][]int{
		models.StatusBacklog:    {1, 3},
		models.StatusInProgress: {2},
		models.StatusDone:       {},
	}, columnIDs(b))
}

func TestCanDrop(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	column := board.Column{Status: models.StatusDone, Accept: board.TypeTask}

	assert.True(column.CanDrop(board.DragPayload{Type: board.TypeTask, TaskID: 1, Status: models.StatusBacklog}))
	assert.False(column.CanDrop(board.DragPayload{Type: board.TypeTask, TaskID: 1, Status: models.StatusDone}))
	assert.False(column.CanDrop(board.DragPayload{Type: "BOARD", TaskID: 1, Status: models.StatusBacklog}))
}

func TestDropSameColumnDoesNotMutate(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	updater := &fakeUpdater{}
	b := newBoard(updater)

	payload, err := b.BeginDrag(1)
	assert.Nil(err)
	assert.Equal(board.DragPayload{Type: board.TypeTask, TaskID: 1, Status: models.StatusBacklog}, payload)
	assert.Equal(board.Dragging, b.State(1))

	accepted, err := b.Drop(context.Background(), models.StatusBacklog)
	assert.Nil(err)
	assert.False(accepted)
	assert.Equal(board.Cancelled, b.State(1))
	assert.Empty(updater.calls)
}

func TestDropSuccessMovesCard(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	updater := &fakeUpdater{}
	b := newBoard(updater)

	accepted, err := b.Move(context.Background(), 1, models.StatusDone)
	assert.Nil(err)
	assert.True(accepted)
	assert.Equal(board.Dropped, b.State(1))
	assert.Equal([]call{{taskID: 1, status: models.StatusDone}}, updater.calls)

	assert.Equal([]int{3}, columnIDs(b)[models.StatusBacklog])
	assert.Equal([]int{1}, columnIDs(b)[models.StatusDone])
}

func TestDropFailureReverts(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	updater := &fakeUpdater{err: errors.New("server down")}
	b := newBoard(updater)

	accepted, err := b.Move(context.Background(), 2, models.StatusDone)
	assert.True(accepted)
	assert.NotNil(err)

	assert.Equal(models.StatusInProgress, b.Task(2).Status)
	assert.Equal([]int{2}, columnIDs(b)[models.StatusInProgress])
	assert.Equal([]int{}, columnIDs(b)[models.StatusDone])
}

func TestDropShowsMoveWhileInFlight(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	var b *board.Board

	seen := models.Status("")
	b = newBoard(board.StatusUpdaterFunc(func(_ context.Context, taskID int, _ models.Status) error {
		seen = b.Task(taskID).Status

		return nil
	}))

	_, err := b.Move(context.Background(), 3, models.StatusInProgress)
	assert.Nil(err)
	assert.Equal(models.StatusInProgress, seen)
}

func TestDropWithoutDrag(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(&fakeUpdater{})

	_, err := b.Drop(context.Background(), models.StatusDone)
	assert.ErrorIs(err, board.ErrNotDragging)

	_, err = b.BeginDrag(42)
	assert.NotNil(err)
}

func TestCancelDrag(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	updater := &fakeUpdater{}
	b := newBoard(updater)

	_, err := b.BeginDrag(1)
	assert.Nil(err)

	// picking up another card cancels the first
	_, err = b.BeginDrag(2)
	assert.Nil(err)
	assert.Equal(board.Cancelled, b.State(1))

	b.CancelDrag()
	assert.Equal(board.Cancelled, b.State(2))

	_, dragging := b.Dragged()
	assert.False(dragging)
	assert.Empty(updater.calls)
}

func TestSyncReplacesLists(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(&fakeUpdater{err: errors.New("nope")})
	b.Sync([]*models.Task{{ID: 9, Status: models.StatusDone}})

	_, _ = b.Move(context.Background(), 9, models.StatusBacklog)

	assert.Equal(map[models.Status][]int{
		models.StatusBacklog:    {},
		models.StatusInProgress: {},
		models.StatusDone:       {9},
	}, columnIDs(b))
}

func TestNeighbor(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	assert.Equal(models.StatusInProgress, board.Neighbor(models.StatusBacklog, 1))
	assert.Equal(models.StatusBacklog, board.Neighbor(models.StatusBacklog, -1))
	assert.Equal(models.StatusDone, board.Neighbor(models.StatusInProgress, 5))
}

func TestFocus(t *testing.T) {
	t.Parallel()

	b := newBoard(&fakeUpdater{})
	b.Focus(3)

	assert.Equal(t, 3, b.Focused())
}

func TestPlaceMovesCardBeforeCommit(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	updater := &fakeUpdater{err: errors.New("server down")}
	b := newBoard(updater)

	_, err := b.BeginDrag(3)
	assert.Nil(err)

	pending, err := b.Place(models.StatusInProgress)
	assert.Nil(err)
	assert.NotNil(pending)
	assert.Equal(3, pending.TaskID())

	// shown in the new column and no longer dragged, with nothing sent yet
	_, dragging := b.Dragged()
	assert.False(dragging)
	assert.Equal(board.Dropped, b.State(3))
	assert.Equal([]int{2, 3}, columnIDs(b)[models.StatusInProgress])
	assert.Empty(updater.calls)

	assert.NotNil(pending.Commit(context.Background()))
	assert.Equal([]call{{taskID: 3, status: models.StatusInProgress}}, updater.calls)
	assert.Equal([]int{1, 3}, columnIDs(b)[models.StatusBacklog])
}

func TestPlaceRejectedReturnsNothing(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(&fakeUpdater{})

	pending, err := b.Place(models.StatusDone)
	assert.ErrorIs(err, board.ErrNotDragging)
	assert.Nil(pending)

	_, err = b.BeginDrag(2)
	assert.Nil(err)

	pending, err = b.Place(models.StatusInProgress)
	assert.Nil(err)
	assert.Nil(pending)
	assert.Equal(board.Cancelled, b.State(2))
}
