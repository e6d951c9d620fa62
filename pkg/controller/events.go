package controller

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

// pageSearch holds the events used while the search field has focus.
const pageSearch = "search"

func (c *Controller) initEvents() {
	c.events = map[string]map[tcell.Key]KeyEvent{}

	for _, page := range []string{pageLoading, pageError, pageBoards, pageBoard, pageTasks, pageForm, pageSearch} {
		c.events[page] = map[tcell.Key]KeyEvent{}
	}

	c.initExitEvent(c.events[pageLoading])
	c.initExitEvent(c.events[pageError])
	c.initRetryEvent(c.events[pageError])

	for _, page := range []string{pageBoards, pageBoard, pageTasks} {
		c.initExitEvent(c.events[page])
		c.initShowEvents(c.events[page])
		c.initNewTaskEvent(c.events[page])
	}

	c.initBoardsEvents(c.events[pageBoards])
	c.initBoardEvents(c.events[pageBoard])
	c.initTasksEvents(c.events[pageTasks])
	c.initSearchEvents(c.events[pageSearch])
	c.initFormEvents(c.events[pageForm])
}

func (c *Controller) getExitAction() func(key *tcell.EventKey) *tcell.EventKey {
	return func(key *tcell.EventKey) *tcell.EventKey {
		log.Info().Msg("terminating application")

		c.search.Stop()
		c.app.Stop()

		return nil
	}
}

func (c *Controller) initExitEvent(events map[tcell.Key]KeyEvent) {
	events[KeyQ] = KeyEvent{
		Description: "Exit",
		Action:      c.getExitAction(),
	}
}

func (c *Controller) initRetryEvent(events map[tcell.Key]KeyEvent) {
	events[KeyR] = KeyEvent{
		Description: "Try again",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			go c.gate.Check(c.ctx)

			return nil
		},
	}
}

func (c *Controller) initShowEvents(events map[tcell.Key]KeyEvent) {
	events[KeyB] = KeyEvent{
		Description: "Show Boards",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.showBoards()

			return nil
		},
	}

	events[KeyT] = KeyEvent{
		Description: "Show Tasks",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.showTasks()

			return nil
		},
	}
}

func (c *Controller) initNewTaskEvent(events map[tcell.Key]KeyEvent) {
	events[KeyN] = KeyEvent{
		Description: "New Task",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.modal.OpenTaskModal(nil, false)

			return nil
		},
	}
}

func (c *Controller) initBoardsEvents(events map[tcell.Key]KeyEvent) {
	events[KeyR] = KeyEvent{
		Description: "Refresh",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			go c.refresh(c.boardsSub)

			return nil
		},
	}
}

func (c *Controller) initBoardEvents(events map[tcell.Key]KeyEvent) {
	left := KeyEvent{
		Description: "Column Left",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.moveColumn(-1)

			return nil
		},
	}
	right := KeyEvent{
		Description: "Column Right",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.moveColumn(1)

			return nil
		},
	}

	events[KeyH] = left
	events[tcell.KeyLeft] = left
	events[KeyL] = right
	events[tcell.KeyRight] = right

	events[KeyM] = KeyEvent{
		Description: "Move (pick up / drop)",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.toggleDrag()

			return nil
		},
	}

	events[tcell.KeyEnter] = KeyEvent{
		Description: "Open Task / Drop",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			if _, dragging := c.board.Dragged(); dragging {
				c.dropSelected()

				return nil
			}

			c.openSelectedCard()

			return nil
		},
	}

	events[tcell.KeyEscape] = KeyEvent{
		Description: "Cancel Move / Back",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			if _, dragging := c.board.Dragged(); dragging {
				c.board.CancelDrag()
				c.renderBoard()

				return nil
			}

			c.showBoards()

			return nil
		},
	}

	events[KeyR] = KeyEvent{
		Description: "Refresh",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			go c.refresh(c.boardSub)

			return nil
		},
	}

	events[KeyN] = KeyEvent{
		Description: "New Task on Board",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.newTaskOnBoard()

			return nil
		},
	}
}

func (c *Controller) initTasksEvents(events map[tcell.Key]KeyEvent) {
	events[KeySlash] = KeyEvent{
		Description: "Search",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.app.SetFocus(c.searchField)

			return nil
		},
	}

	events[KeyS] = KeyEvent{
		Description: "Filter Status",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.cycleStatusFilter()

			return nil
		},
	}

	events[KeyP] = KeyEvent{
		Description: "Filter Project",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.cycleBoardFilter()

			return nil
		},
	}

	events[KeyA] = KeyEvent{
		Description: "Filter Assignee",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.cycleAssigneeFilter()

			return nil
		},
	}

	events[KeyX] = KeyEvent{
		Description: "Reset Filters",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.resetFilters()

			return nil
		},
	}

	events[KeyG] = KeyEvent{
		Description: "Go to Board",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.goToSelectedTaskBoard()

			return nil
		},
	}

	events[tcell.KeyEnter] = KeyEvent{
		Description: "Open Task",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.openSelectedTask()

			return nil
		},
	}

	events[KeyR] = KeyEvent{
		Description: "Refresh",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			go c.refresh(c.tasksSub)

			return nil
		},
	}
}

func (c *Controller) initSearchEvents(events map[tcell.Key]KeyEvent) {
	leave := KeyEvent{
		Description: "Back to List",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.app.SetFocus(c.tasksTable)

			return nil
		},
	}

	events[tcell.KeyEscape] = leave
	events[tcell.KeyEnter] = leave
	events[tcell.KeyTab] = leave
}

func (c *Controller) initFormEvents(events map[tcell.Key]KeyEvent) {
	events[tcell.KeyEscape] = KeyEvent{
		Description: "Cancel",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			// an open drop-down list closes first
			if _, ok := c.app.GetFocus().(*tview.List); ok {
				return key
			}

			c.modal.CloseTaskModal()

			return nil
		},
	}

	events[tcell.KeyCtrlS] = KeyEvent{
		Description: "Save",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.submitForm()

			return nil
		},
	}
}
