package controller

import (
	"context"
	"fmt"

	"github.com/matt-steen/taskboard/pkg/board"
	"github.com/matt-steen/taskboard/pkg/models"
	"github.com/matt-steen/taskboard/pkg/query"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

func (c *Controller) getBoardGrid() *tview.Grid {
	c.boardTitle = tview.NewTextView().SetDynamicColors(true)

	columns := tview.NewFlex()

	for i, status := range models.Statuses() {
		content := &ColumnContent{column: board.Column{Status: status, Accept: board.TypeTask}}

		table := tview.NewTable().SetBorders(false)
		table.SetContent(content)
		table.SetSelectable(true, false).SetFixed(1, 0)
		table.SetBorder(true)

		c.columnContents = append(c.columnContents, content)
		c.columnTables = append(c.columnTables, table)

		columns.AddItem(table, 0, 1, i == 0)
	}

	// placeholder until a board is opened
	c.board = board.New(0, board.StatusUpdaterFunc(func(context.Context, int, models.Status) error { return nil }))

	grid := tview.NewGrid().SetBorders(true).SetRows(1, 0, -4)

	grid.AddItem(c.boardTitle, 0, 0, 1, 1, 0, 0, false)
	grid.AddItem(c.getHeader(pageBoard, "Board"), 1, 0, 1, 1, 0, 0, false)
	grid.AddItem(columns, 2, 0, 1, 1, 0, 0, true)

	return grid
}

// openBoard shows the kanban view of boardID, selecting focusTask if it is on the board.
func (c *Controller) openBoard(boardID, focusTask int) {
	if boardID < 1 {
		c.showBoards()

		return
	}

	if c.boardSub != nil {
		c.boardSub.Unsubscribe()
	}

	c.board = board.New(boardID, board.StatusUpdaterFunc(
		func(ctx context.Context, taskID int, status models.Status) error {
			return c.svc.UpdateTaskStatus(ctx, taskID, status, boardID)
		},
	))
	c.board.Focus(focusTask)
	c.activeColumn = 0

	c.boardSub = c.svc.Subscribe(c.svc.BoardTasksQuery(boardID), func(snapshot query.Snapshot) {
		c.onBoardTasks(boardID, snapshot)
	})

	c.refreshBoardTitle()
	c.renderBoard()
	c.switchTo(pageBoard)

	go c.fetch(c.boardSub)
}

func (c *Controller) onBoardTasks(boardID int, snapshot query.Snapshot) {
	tasks, ok := snapshot.Data.([]*models.Task)

	c.app.QueueUpdateDraw(func() {
		// a different board was opened meanwhile
		if c.board.ID() != boardID {
			return
		}

		if snapshot.Status == query.StatusError && !snapshot.HasData {
			c.boardTitle.SetText("[red]Failed to load board. [white]Press <r> to try again.")

			return
		}

		if snapshot.HasData && ok {
			c.board.Sync(tasks)
			c.refreshBoardTitle()
			c.renderBoard()
		}
	})
}

func (c *Controller) refreshBoardTitle() {
	if c.boardTitle == nil || c.board.ID() == 0 {
		return
	}

	name := fmt.Sprintf("Board %d", c.board.ID())
	if current := models.FindBoard(c.boards, c.board.ID()); current != nil {
		name = current.Name
	}

	text := fmt.Sprintf("[yellow]%s", tview.Escape(name))

	if payload, dragging := c.board.Dragged(); dragging {
		text += fmt.Sprintf("  [orange]moving #%d to %s", payload.TaskID, c.dropTarget().Label())
	}

	c.boardTitle.SetText(text)
}

// dropTarget is the status of the active column.
func (c *Controller) dropTarget() models.Status {
	return models.Statuses()[c.activeColumn]
}

// renderBoard copies the board's columns into the tables. It must run on the UI goroutine.
func (c *Controller) renderBoard() {
	payload, dragging := c.board.Dragged()
	focus := c.board.Focused()

	for i, column := range c.board.Columns() {
		content := c.columnContents[i]
		content.column = column
		content.dragged = 0
		content.target = dragging && i == c.activeColumn

		if dragging {
			content.dragged = payload.TaskID
		}

		if focus != 0 {
			if row := content.Row(focus); row > 0 {
				c.activeColumn = i
				c.columnTables[i].Select(row, 0)
			}
		}

		if row, _ := c.columnTables[i].GetSelection(); row < 1 || row >= content.GetRowCount() {
			c.columnTables[i].Select(1, 0)
		}
	}

	if focus != 0 {
		c.board.Focus(0)
	}

	if c.current == pageBoard {
		c.app.SetFocus(c.columnTables[c.activeColumn])
	}

	c.refreshBoardTitle()
}

func (c *Controller) selectedCard() *models.Task {
	row, _ := c.columnTables[c.activeColumn].GetSelection()

	return c.columnContents[c.activeColumn].Task(row)
}

func (c *Controller) moveColumn(delta int) {
	next := c.activeColumn + delta
	if next < 0 || next >= len(c.columnTables) {
		return
	}

	c.activeColumn = next
	c.renderBoard()
}

// toggleDrag picks up the selected card, or drops the card being moved.
func (c *Controller) toggleDrag() {
	if _, dragging := c.board.Dragged(); dragging {
		c.dropSelected()

		return
	}

	task := c.selectedCard()
	if task == nil {
		return
	}

	if _, err := c.board.BeginDrag(task.ID); err != nil {
		log.Warn().Err(err).Msg("error starting move")

		return
	}

	c.renderBoard()
}

// dropSelected drops the dragged card on the active column. The mutation runs in the
// background; the card shows in its new column right away.
func (c *Controller) dropSelected() {
	current := c.board
	target := c.dropTarget()

	// the card moves locally before this handler returns, so the next draw shows it
	pending, err := current.Place(target)
	if err != nil {
		log.Warn().Err(err).Msg("error dropping task")
	}

	c.renderBoard()

	if pending == nil {
		return
	}

	go func() {
		if err := pending.Commit(c.ctx); err != nil {
			log.Warn().Err(err).Msg("error dropping task")
		} else {
			c.notifier.Success("Task status updated")
		}

		c.app.QueueUpdateDraw(func() {
			if c.board == current {
				current.Focus(pending.TaskID())
				c.renderBoard()
			}
		})
	}()
}

func (c *Controller) openSelectedCard() {
	task := c.selectedCard()
	if task == nil {
		return
	}

	enriched := task.Clone()
	if enriched.BoardID == 0 {
		enriched.BoardID = c.board.ID()
	}

	if enriched.BoardName == "" {
		if current := models.FindBoard(c.boards, enriched.BoardID); current != nil {
			enriched.BoardName = current.Name
		}
	}

	c.modal.OpenTaskModal(enriched, false)
}

func (c *Controller) newTaskOnBoard() {
	c.modal.OpenTaskModal(&models.Task{BoardID: c.board.ID()}, false)
}
