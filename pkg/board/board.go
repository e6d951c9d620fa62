package board

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/matt-steen/taskboard/pkg/models"
	"github.com/rs/zerolog/log"
)

// TypeTask is the drag type carried by task cards.
const TypeTask = "TASK"

// ErrNotDragging is returned by Drop when no card is being dragged.
var ErrNotDragging = errors.New("no card is being dragged")

// DragPayload describes the card being dragged.
type DragPayload struct {
	Type   string
	TaskID int
	Status models.Status
}

// Column is a drop target for one status.
type Column struct {
	Status models.Status
	Accept string
	Tasks  []*models.Task
}

// CanDrop reports whether the payload may land in this column: same type, other status.
func (c Column) CanDrop(payload DragPayload) bool {
	return payload.Type == c.Accept && payload.Status != c.Status
}

// Label is the display name of the column.
func (c Column) Label() string {
	return c.Status.Label()
}

// CardState tracks a card through a drag.
type CardState int

// These constants refer to the states of a card.
const (
	Idle CardState = iota
	Dragging
	Dropped
	Cancelled
)

func (s CardState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Dropped:
		return "dropped"
	case Cancelled:
		return "cancelled"
	}

	return fmt.Sprintf("CardState(%d)", int(s))
}

// StatusUpdater persists a status change.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, taskID int, status models.Status) error
}

// StatusUpdaterFunc adapts a function to StatusUpdater.
type StatusUpdaterFunc func(ctx context.Context, taskID int, status models.Status) error

// UpdateStatus calls f.
func (f StatusUpdaterFunc) UpdateStatus(ctx context.Context, taskID int, status models.Status) error {
	return f(ctx, taskID, status)
}

// Board is the kanban view of one board's tasks. confirmed is the last list the
// server sent; local is what is shown, including moves still in flight.
type Board struct {
	mu        sync.Mutex
	id        int
	updater   StatusUpdater
	confirmed []*models.Task
	local     []*models.Task
	drag      *DragPayload
	states    map[int]CardState
	focus     int
}

// New creates an empty board view.
func New(id int, updater StatusUpdater) *Board {
	return &Board{
		id:        id,
		updater:   updater,
		confirmed: []*models.Task{},
		local:     []*models.Task{},
		states:    map[int]CardState{},
	}
}

// ID is the board id.
func (b *Board) ID() int {
	return b.id
}

// Sync replaces both lists with a fresh server list.
func (b *Board) Sync(tasks []*models.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.confirmed = cloneAll(tasks)
	b.local = cloneAll(tasks)
}

// Columns partitions the shown tasks by status, in status order.
func (b *Board) Columns() []Column {
	b.mu.Lock()
	defer b.mu.Unlock()

	columns := make([]Column, 0, len(models.Statuses()))

	for _, status := range models.Statuses() {
		column := Column{Status: status, Accept: TypeTask, Tasks: []*models.Task{}}

		for _, task := range b.local {
			if task.Status == status {
				column.Tasks = append(column.Tasks, task)
			}
		}

		columns = append(columns, column)
	}

	return columns
}

// Task returns the shown task with the given id or nil.
func (b *Board) Task(id int) *models.Task {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.find(id)
}

func (b *Board) find(id int) *models.Task {
	for _, task := range b.local {
		if task.ID == id {
			return task
		}
	}

	return nil
}

// State returns the drag state of a card.
func (b *Board) State(taskID int) CardState {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.states[taskID]
}

// Dragged returns the payload being dragged, if any.
func (b *Board) Dragged() (DragPayload, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.drag == nil {
		return DragPayload{}, false
	}

	return *b.drag, true
}

// BeginDrag picks up the card for taskID. Any other drag in progress is cancelled.
func (b *Board) BeginDrag(taskID int) (DragPayload, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	task := b.find(taskID)
	if task == nil {
		return DragPayload{}, fmt.Errorf("error dragging task %d: not on board %d", taskID, b.id)
	}

	if b.drag != nil {
		b.states[b.drag.TaskID] = Cancelled
	}

	b.drag = &DragPayload{Type: TypeTask, TaskID: taskID, Status: task.Status}
	b.states[taskID] = Dragging

	return *b.drag, nil
}

// CancelDrag puts the dragged card back without a mutation.
func (b *Board) CancelDrag() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.drag == nil {
		return
	}

	b.states[b.drag.TaskID] = Cancelled
	b.drag = nil
}

// Pending is a drop that is shown locally but not yet sent to the server.
type Pending struct {
	board   *Board
	payload DragPayload
	status  models.Status
}

// Place ends the current drag over the status column. An accepted drop moves the
// card locally right away and returns the Pending mutation; a rejected one returns
// nil and leaves the lists untouched.
func (b *Board) Place(status models.Status) (*Pending, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.drag == nil {
		return nil, ErrNotDragging
	}

	payload := *b.drag
	b.drag = nil

	column := Column{Status: status, Accept: TypeTask}
	if !column.CanDrop(payload) {
		b.states[payload.TaskID] = Cancelled

		return nil, nil
	}

	b.local = moved(b.local, payload.TaskID, status)
	b.states[payload.TaskID] = Dropped

	log.Debug().Int("board_id", b.id).Int("task_id", payload.TaskID).Str("status", string(status)).Msg("dropped task")

	return &Pending{board: b, payload: payload, status: status}, nil
}

// TaskID is the card being moved.
func (p *Pending) TaskID() int {
	return p.payload.TaskID
}

// Commit sends the status change. On failure the local view goes back to the last
// confirmed list.
func (p *Pending) Commit(ctx context.Context) error {
	b := p.board

	err := b.updater.UpdateStatus(ctx, p.payload.TaskID, p.status)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.local = cloneAll(b.confirmed)

		return fmt.Errorf("error moving task %d to %s: %w", p.payload.TaskID, p.status, err)
	}

	b.confirmed = moved(b.confirmed, p.payload.TaskID, p.status)

	return nil
}

// Drop is Place followed by Commit. It reports whether the column accepted the card.
func (b *Board) Drop(ctx context.Context, status models.Status) (bool, error) {
	pending, err := b.Place(status)
	if err != nil || pending == nil {
		return false, err
	}

	return true, pending.Commit(ctx)
}

// Move drags taskID to status in one step.
func (b *Board) Move(ctx context.Context, taskID int, status models.Status) (bool, error) {
	if _, err := b.BeginDrag(taskID); err != nil {
		return false, err
	}

	return b.Drop(ctx, status)
}

// Focus marks the card to select when the board is next shown.
func (b *Board) Focus(taskID int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.focus = taskID
}

// Focused returns the card marked by Focus, or 0.
func (b *Board) Focused() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.focus
}

// Neighbor returns the status delta columns away from status, clamped to the ends.
func Neighbor(status models.Status, delta int) models.Status {
	statuses := models.Statuses()

	for i, s := range statuses {
		if s == status {
			j := i + delta
			if j < 0 {
				j = 0
			}

			if j >= len(statuses) {
				j = len(statuses) - 1
			}

			return statuses[j]
		}
	}

	return status
}

func moved(tasks []*models.Task, id int, status models.Status) []*models.Task {
	for _, task := range tasks {
		if task.ID == id {
			next := task.Clone()
			next.Status = status

			return models.ReplaceTask(tasks, next)
		}
	}

	return tasks
}

func cloneAll(tasks []*models.Task) []*models.Task {
	cloned := make([]*models.Task, 0, len(tasks))

	for _, task := range tasks {
		cloned = append(cloned, task.Clone())
	}

	return cloned
}
