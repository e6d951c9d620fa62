package controller

import (
	"errors"
	"fmt"

	"github.com/matt-steen/taskboard/pkg/form"
	"github.com/matt-steen/taskboard/pkg/modal"
	"github.com/matt-steen/taskboard/pkg/models"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const (
	titleMax       = 100
	descriptionMax = 500
)

func (c *Controller) getFormGrid() *tview.Grid {
	c.formTitle = tview.NewTextView().SetDynamicColors(true)
	c.formNotice = tview.NewTextView().SetDynamicColors(true)
	c.taskForm = tview.NewForm()

	grid := tview.NewGrid().SetBorders(true).SetRows(1, 0, 1, -4)

	grid.AddItem(c.formTitle, 0, 0, 1, 1, 0, 0, false)
	grid.AddItem(c.getHeader(pageForm, "Task"), 1, 0, 1, 1, 0, 0, false)
	grid.AddItem(c.formNotice, 2, 0, 1, 1, 0, 0, false)
	grid.AddItem(c.taskForm, 3, 0, 1, 1, 0, 0, true)

	return grid
}

// onModalChange follows the modal context: opening shows the form, closing goes back
// to the page the form was opened from.
func (c *Controller) onModalChange(state modal.State) {
	if !state.Open {
		c.form = nil

		returnTo := c.returnTo
		if returnTo == "" {
			returnTo = pageBoards
		}

		c.switchTo(returnTo)

		return
	}

	if c.current != pageForm {
		c.returnTo = c.current
	}

	c.openForm(state.Task)
	c.switchTo(pageForm)
}

func (c *Controller) openForm(task *models.Task) {
	f := form.New(c.ctx, c.store, task)
	c.form = f

	if f.IsEdit() {
		text := fmt.Sprintf("[yellow]Editing a task: %s", tview.Escape(task.Title))
		if task.BoardName != "" {
			text += fmt.Sprintf(" [white](%s)", tview.Escape(task.BoardName))
		}

		c.formTitle.SetText(text)
	} else {
		c.formTitle.SetText("[yellow]Creating a new task")
	}

	c.refreshFormNotice()
	c.buildForm(f)
}

func (c *Controller) refreshFormNotice() {
	if c.form != nil && c.form.IsDraft() && !c.form.IsEdit() {
		c.formNotice.SetText("[blue]" + form.DraftNotice)

		return
	}

	c.formNotice.SetText("")
}

// buildForm lays out the fields for f. Change callbacks are attached after the
// initial values are in place so filling the form does not save a draft.
func (c *Controller) buildForm(f *form.Form) {
	values := f.Values()
	ready := false

	onChange := func(apply func()) {
		if ready && c.form == f {
			apply()
			c.refreshFormNotice()
		}
	}

	c.taskForm.Clear(true)

	c.taskForm.AddInputField("Title", values.Title, titleMax, nil, func(text string) {
		onChange(func() { f.SetTitle(c.ctx, text) })
	})

	c.taskForm.AddInputField("Description", values.Description, descriptionMax, nil, func(text string) {
		onChange(func() { f.SetDescription(c.ctx, text) })
	})

	priorities := models.Priorities()
	priorityLabels := make([]string, 0, len(priorities))
	priorityIndex := -1

	for i, priority := range priorities {
		priorityLabels = append(priorityLabels, string(priority))
		if priority == values.Priority {
			priorityIndex = i
		}
	}

	c.taskForm.AddDropDown("Priority", priorityLabels, priorityIndex, func(_ string, index int) {
		if index >= 0 {
			onChange(func() { f.SetPriority(c.ctx, priorities[index]) })
		}
	})

	// the backend does not move tasks between boards, so the project is only chosen on create
	if !f.IsEdit() {
		boardLabels, boardIndex := c.boardOptions(values.BoardID)
		boards := c.boards

		c.taskForm.AddDropDown("Project", boardLabels, boardIndex, func(_ string, index int) {
			if index >= 0 && index < len(boards) {
				onChange(func() { f.SetBoard(c.ctx, boards[index].ID) })
			}
		})
	}

	if f.IsEdit() {
		statuses := models.Statuses()
		statusLabels := make([]string, 0, len(statuses))
		statusIndex := -1

		for i, status := range statuses {
			statusLabels = append(statusLabels, status.Label())
			if status == values.Status {
				statusIndex = i
			}
		}

		c.taskForm.AddDropDown("Status", statusLabels, statusIndex, func(_ string, index int) {
			if index >= 0 {
				onChange(func() { f.SetStatus(c.ctx, statuses[index]) })
			}
		})
	}

	userLabels, userIndex := c.userOptions(values.AssigneeID)
	users := c.users

	c.taskForm.AddDropDown("Assignee", userLabels, userIndex, func(_ string, index int) {
		if index >= 0 && index < len(users) {
			onChange(func() { f.SetAssignee(c.ctx, users[index].ID) })
		}
	})

	c.taskForm.AddButton("Save", c.submitForm)
	c.taskForm.AddButton("Reset", func() {
		f.Reset()
		c.buildForm(f)
		c.taskForm.SetFocus(0)
	})

	if f.IsEdit() || values.BoardID != 0 {
		c.taskForm.AddButton("Go to board", c.formGoToBoard)
	}

	c.taskForm.AddButton("Cancel", c.modal.CloseTaskModal)

	ready = true
}

func (c *Controller) boardOptions(selected int) ([]string, int) {
	labels := make([]string, 0, len(c.boards))
	index := -1

	for i, b := range c.boards {
		labels = append(labels, b.Name)
		if b.ID == selected {
			index = i
		}
	}

	return labels, index
}

func (c *Controller) userOptions(selected int) ([]string, int) {
	labels := make([]string, 0, len(c.users))
	index := -1

	for i, u := range c.users {
		labels = append(labels, u.FullName)
		if u.ID == selected {
			index = i
		}
	}

	return labels, index
}

// submitForm saves the open form in the background and closes the modal on success.
func (c *Controller) submitForm() {
	f := c.form
	if f == nil {
		return
	}

	if err := f.Validate(); err != nil {
		c.formNotice.SetText("[red]" + tview.Escape(err.Error()))

		return
	}

	redirect := c.modal.State().RedirectToBoard

	c.formNotice.SetText("[white]Saving ...")

	go func() {
		result, err := f.Submit(c.ctx, c.svc)

		c.app.QueueUpdateDraw(func() {
			if err != nil {
				log.Error().Err(err).Msg("error submitting task form")

				if !errors.Is(err, form.ErrValidation) && !canceled(err) {
					c.notifier.Error("Failed to save task")
				}

				if c.form == f {
					c.refreshFormNotice()
				}

				return
			}

			if c.form != f {
				return
			}

			c.modal.CloseTaskModal()

			if redirect && result.BoardID != 0 {
				c.openBoard(result.BoardID, result.TaskID)
			}
		})
	}()
}

func (c *Controller) formGoToBoard() {
	f := c.form
	if f == nil {
		return
	}

	boardID := f.BoardID()
	if boardID == 0 {
		c.notifier.Error("Board ID not found")

		return
	}

	taskID := 0
	if initial := f.Initial(); initial != nil {
		taskID = initial.ID
	}

	c.modal.CloseTaskModal()
	c.openBoard(boardID, taskID)
}
