package controller

import (
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/matt-steen/taskboard/pkg/board"
	"github.com/matt-steen/taskboard/pkg/models"
	"github.com/rivo/tview"
)

func headerCell(text string, expansion int) *tview.TableCell {
	return tview.NewTableCell(text).SetExpansion(expansion).
		SetTextColor(tcell.ColorYellow).SetSelectable(false)
}

func priorityText(priority models.Priority) string {
	return fmt.Sprintf("[%s]%s", priority.Color(), priority)
}

func assigneeName(task *models.Task) string {
	if task.Assignee == nil {
		return ""
	}

	return task.Assignee.FullName
}

// BoardsContent implements tview.TableContent for the board list.
type BoardsContent struct {
	tview.TableContentReadOnly
	boards []*models.Board
}

// GetCell returns the cell at the given position or nil if no cell.
func (b *BoardsContent) GetCell(row, col int) *tview.TableCell {
	if row == 0 {
		switch col {
		case 0:
			return headerCell("name", 1)
		case 1:
			return headerCell("description", descTitleRatio)
		case 2:
			return headerCell("tasks", 0)
		}
	}

	if row-1 >= len(b.boards) {
		return nil
	}

	item := b.boards[row-1]

	switch col {
	case 0:
		return tview.NewTableCell(item.Name).SetExpansion(1).SetReference(item)
	case 1:
		description := item.Description
		if description == "" {
			description = "No description"
		}

		return tview.NewTableCell(description).SetExpansion(descTitleRatio)
	case 2:
		return tview.NewTableCell(strconv.Itoa(item.TaskCount)).SetAlign(tview.AlignRight)
	}

	return nil
}

// GetRowCount returns the number of rows in the table.
func (b *BoardsContent) GetRowCount() int {
	return len(b.boards) + 1
}

// GetColumnCount returns the number of columns in the table.
func (b *BoardsContent) GetColumnCount() int {
	return 3
}

// Board returns the board shown in the given row or nil.
func (b *BoardsContent) Board(row int) *models.Board {
	if idx := row - 1; idx >= 0 && idx < len(b.boards) {
		return b.boards[idx]
	}

	return nil
}

// ColumnContent implements tview.TableContent for one kanban column.
type ColumnContent struct {
	tview.TableContentReadOnly
	column board.Column
	// dragged is the id of the card being dragged, if it is in this column
	dragged int
	// target marks the column as the current drop target
	target bool
}

// GetCell returns the cell at the given position or nil if no cell.
func (s *ColumnContent) GetCell(row, col int) *tview.TableCell {
	if row == 0 {
		title := fmt.Sprintf("%s (%d)", s.column.Label(), len(s.column.Tasks))
		if s.target {
			title = "> " + title
		}

		switch col {
		case 0:
			return headerCell(title, 1)
		case 1:
			return headerCell("", 0)
		}
	}

	if row-1 >= len(s.column.Tasks) {
		return nil
	}

	task := s.column.Tasks[row-1]

	switch col {
	case 0:
		text := fmt.Sprintf("#%d %s", task.ID, task.Title)
		cell := tview.NewTableCell(text).SetExpansion(1).SetReference(task)

		if task.ID == s.dragged {
			cell.SetAttributes(tcell.AttrDim | tcell.AttrItalic)
		}

		return cell
	case 1:
		return tview.NewTableCell(priorityText(task.Priority))
	}

	return nil
}

// GetRowCount returns the number of rows in the table.
func (s *ColumnContent) GetRowCount() int {
	return len(s.column.Tasks) + 1
}

// GetColumnCount returns the number of columns in the table.
func (s *ColumnContent) GetColumnCount() int {
	return 2
}

// Task returns the task shown in the given row or nil.
func (s *ColumnContent) Task(row int) *models.Task {
	if idx := row - 1; idx >= 0 && idx < len(s.column.Tasks) {
		return s.column.Tasks[idx]
	}

	return nil
}

// Row returns the row showing task id, or 0 when it is not in the column.
func (s *ColumnContent) Row(id int) int {
	for i, task := range s.column.Tasks {
		if task.ID == id {
			return i + 1
		}
	}

	return 0
}

// TaskListContent implements tview.TableContent for the task list.
type TaskListContent struct {
	tview.TableContentReadOnly
	tasks []*models.Task
}

// GetCell returns the cell at the given position or nil if no cell.
func (t *TaskListContent) GetCell(row, col int) *tview.TableCell {
	if row == 0 {
		switch col {
		case 0:
			return headerCell("id", 0)
		case 1:
			return headerCell("title", descTitleRatio)
		case 2:
			return headerCell("status", 1)
		case 3:
			return headerCell("priority", 1)
		case 4:
			return headerCell("assignee", 1)
		case 5:
			return headerCell("board", 1)
		}
	}

	if row-1 >= len(t.tasks) {
		return nil
	}

	task := t.tasks[row-1]

	switch col {
	case 0:
		return tview.NewTableCell(strconv.Itoa(task.ID)).SetReference(task)
	case 1:
		return tview.NewTableCell(task.Title).SetExpansion(descTitleRatio).SetAttributes(tcell.AttrBold)
	case 2:
		return tview.NewTableCell(task.Status.Label()).SetExpansion(1)
	case 3:
		return tview.NewTableCell(priorityText(task.Priority)).SetExpansion(1)
	case 4:
		return tview.NewTableCell(assigneeName(task)).SetExpansion(1)
	case 5:
		return tview.NewTableCell(task.BoardName).SetExpansion(1)
	}

	return nil
}

// GetRowCount returns the number of rows in the table.
func (t *TaskListContent) GetRowCount() int {
	return len(t.tasks) + 1
}

// GetColumnCount returns the number of columns in the table.
func (t *TaskListContent) GetColumnCount() int {
	return 6
}

// Task returns the task shown in the given row or nil.
func (t *TaskListContent) Task(row int) *models.Task {
	if idx := row - 1; idx >= 0 && idx < len(t.tasks) {
		return t.tasks[idx]
	}

	return nil
}
