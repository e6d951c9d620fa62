package controller

import (
	"errors"

	"github.com/matt-steen/taskboard/pkg/api"
	"github.com/matt-steen/taskboard/pkg/query"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

func (c *Controller) getBoardsGrid() *tview.Grid {
	c.boardsContent = &BoardsContent{}

	c.boardsTable = tview.NewTable().SetBorders(false)
	c.boardsTable.SetContent(c.boardsContent)
	c.boardsTable.SetSelectable(true, false).SetFixed(1, 0)
	c.boardsTable.Select(1, 0)

	c.boardsTable.SetSelectedFunc(func(row, col int) {
		if selected := c.boardsContent.Board(row); selected != nil {
			c.openBoard(selected.ID, 0)
		}
	})

	grid := tview.NewGrid().SetBorders(true).SetRows(0, -4)

	grid.AddItem(c.getHeader(pageBoards, "Project boards"), 0, 0, 1, 1, 0, 0, false)
	grid.AddItem(c.boardsTable, 1, 0, 1, 1, 0, 0, true)

	return grid
}

func (c *Controller) showBoards() {
	c.switchTo(pageBoards)

	go c.fetch(c.boardsSub)
}

func canceled(err error) bool {
	return errors.Is(err, query.ErrCanceled) || errors.Is(err, api.ErrCanceled)
}

// fetch loads the subscribed query; the backend is only hit when the cached data is
// missing or stale. Results reach the view through the subscription's listener.
func (c *Controller) fetch(sub *query.Subscription) {
	if sub == nil {
		return
	}

	if _, err := sub.Fetch(c.ctx); err != nil && !canceled(err) {
		log.Warn().Err(err).Str("key", sub.Key().String()).Msg("error fetching")
	}
}
