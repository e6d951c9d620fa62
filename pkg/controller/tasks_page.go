package controller

import (
	"fmt"
	"strings"

	"github.com/matt-steen/taskboard/pkg/models"
	"github.com/matt-steen/taskboard/pkg/query"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

func (c *Controller) getTasksGrid() *tview.Grid {
	c.tasksContent = &TaskListContent{}

	c.tasksTable = tview.NewTable().SetBorders(false)
	c.tasksTable.SetContent(c.tasksContent)
	c.tasksTable.SetSelectable(true, false).SetFixed(1, 0)
	c.tasksTable.Select(1, 0)

	c.searchField = tview.NewInputField().SetLabel("Search: ").SetFieldWidth(40)
	c.searchField.SetChangedFunc(func(text string) {
		c.search.Trigger(func() {
			c.app.QueueUpdateDraw(func() {
				c.setSearch(text)
			})
		})
	})

	c.filterView = tview.NewTextView().SetDynamicColors(true)
	c.refreshFilterView()

	filters := tview.NewFlex().
		AddItem(c.searchField, 0, 1, false).
		AddItem(c.filterView, 0, 2, false)

	grid := tview.NewGrid().SetBorders(true).SetRows(0, 1, -4)

	grid.AddItem(c.getHeader(pageTasks, "Tasks"), 0, 0, 1, 1, 0, 0, false)
	grid.AddItem(filters, 1, 0, 1, 1, 0, 0, false)
	grid.AddItem(c.tasksTable, 2, 0, 1, 1, 0, 0, true)

	return grid
}

func (c *Controller) showTasks() {
	c.switchTo(pageTasks)

	if c.tasksSub == nil {
		c.reloadTasks()

		return
	}

	go c.fetch(c.tasksSub)
}

// reloadTasks subscribes to the list for the current filter. It must run on the UI goroutine.
func (c *Controller) reloadTasks() {
	if c.tasksSub != nil {
		c.tasksSub.Unsubscribe()
	}

	filter := c.filter
	c.tasksSub = c.svc.Subscribe(c.svc.TasksQuery(filter), func(snapshot query.Snapshot) {
		c.onTasks(filter, snapshot)
	})

	c.refreshFilterView()

	go c.fetch(c.tasksSub)
}

func (c *Controller) onTasks(filter models.TaskFilter, snapshot query.Snapshot) {
	tasks, ok := snapshot.Data.([]*models.Task)
	if !snapshot.HasData || !ok {
		return
	}

	c.app.QueueUpdateDraw(func() {
		// the filter changed meanwhile
		if c.filter != filter {
			return
		}

		c.tasksContent.tasks = tasks

		if row, _ := c.tasksTable.GetSelection(); row < 1 || row > len(tasks) {
			c.tasksTable.Select(1, 0)
		}
	})
}

func (c *Controller) setSearch(text string) {
	if c.filter.Search == text {
		return
	}

	c.filter.Search = text
	c.reloadTasks()
}

func (c *Controller) refreshFilterView() {
	if c.filterView == nil {
		return
	}

	status := "all"
	if c.filter.Status != "" {
		status = c.filter.Status.Label()
	}

	project := "all"
	if c.filter.Board != 0 {
		project = fmt.Sprintf("#%d", c.filter.Board)
		if found := models.FindBoard(c.boards, c.filter.Board); found != nil {
			project = found.Name
		}
	}

	assignee := "all"
	if c.filter.Assignee != 0 {
		assignee = fmt.Sprintf("#%d", c.filter.Assignee)
		if found := models.FindUser(c.users, c.filter.Assignee); found != nil {
			assignee = found.FullName
		}
	}

	c.filterView.SetText(fmt.Sprintf(
		"[yellow]status:[white] %s  [yellow]project:[white] %s  [yellow]assignee:[white] %s",
		status, tview.Escape(project), tview.Escape(assignee),
	))
}

// nextStatus cycles through "no filter" and every status.
func nextStatus(current models.Status) models.Status {
	options := append([]models.Status{""}, models.Statuses()...)

	for i, option := range options {
		if option == current {
			return options[(i+1)%len(options)]
		}
	}

	return ""
}

// nextID cycles through 0 ("no filter") and ids.
func nextID(current int, ids []int) int {
	options := append([]int{0}, ids...)

	for i, option := range options {
		if option == current {
			return options[(i+1)%len(options)]
		}
	}

	return 0
}

func (c *Controller) cycleStatusFilter() {
	c.filter.Status = nextStatus(c.filter.Status)
	c.reloadTasks()
}

func (c *Controller) cycleBoardFilter() {
	ids := make([]int, 0, len(c.boards))
	for _, b := range c.boards {
		ids = append(ids, b.ID)
	}

	c.filter.Board = nextID(c.filter.Board, ids)
	c.reloadTasks()
}

func (c *Controller) cycleAssigneeFilter() {
	ids := make([]int, 0, len(c.users))
	for _, u := range c.users {
		ids = append(ids, u.ID)
	}

	c.filter.Assignee = nextID(c.filter.Assignee, ids)
	c.reloadTasks()
}

func (c *Controller) resetFilters() {
	c.filter = models.TaskFilter{}
	c.searchField.SetText("")
	// SetText schedules a search of its own
	c.search.Stop()
	c.reloadTasks()
}

func (c *Controller) selectedTask() *models.Task {
	row, _ := c.tasksTable.GetSelection()

	return c.tasksContent.Task(row)
}

// enrich fills in what the list endpoint left out, from the filter and reference data.
func (c *Controller) enrich(task *models.Task) *models.Task {
	return models.Enrich([]*models.Task{task}, c.boards, c.users, c.filter)[0]
}

func (c *Controller) openSelectedTask() {
	task := c.selectedTask()
	if task == nil {
		return
	}

	c.modal.OpenTaskModal(c.enrich(task), false)
}

// boardFor resolves the board of a listed task: its own id, the board filter, or
// a board with a matching name.
func (c *Controller) boardFor(task *models.Task) int {
	if task.BoardID != 0 {
		return task.BoardID
	}

	if c.filter.Board != 0 {
		return c.filter.Board
	}

	if task.BoardName != "" {
		for _, b := range c.boards {
			if strings.EqualFold(b.Name, task.BoardName) {
				return b.ID
			}
		}
	}

	return 0
}

func (c *Controller) goToSelectedTaskBoard() {
	task := c.selectedTask()
	if task == nil {
		return
	}

	boardID := c.boardFor(task)
	if boardID == 0 {
		log.Warn().Int("task_id", task.ID).Msg("no board found for task")
		c.notifier.Error("Board ID not found")

		return
	}

	c.openBoard(boardID, task.ID)
}
