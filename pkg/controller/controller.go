package controller

import (
	"context"
	"fmt"
	"sort"

	"github.com/gdamore/tcell/v2"
	"github.com/matt-steen/taskboard/pkg/api"
	"github.com/matt-steen/taskboard/pkg/board"
	"github.com/matt-steen/taskboard/pkg/draft"
	"github.com/matt-steen/taskboard/pkg/form"
	"github.com/matt-steen/taskboard/pkg/modal"
	"github.com/matt-steen/taskboard/pkg/models"
	"github.com/matt-steen/taskboard/pkg/query"
	"github.com/matt-steen/taskboard/pkg/service"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// These constants refer to the pages of the app.
const (
	pageLoading = "loading"
	pageError   = "error"
	pageBoards  = "boards"
	pageBoard   = "board"
	pageTasks   = "tasks"
	pageForm    = "form"
)

const (
	descTitleRatio = 2
)

// Controller mediates between the task service and the view.
type Controller struct {
	ctx      context.Context
	client   *api.Client
	svc      *service.Service
	store    draft.Store
	modal    *modal.Context
	gate     *Gate
	notifier *statusNotifier

	app       *tview.Application
	pages     *tview.Pages
	statusBar *tview.TextView
	current   string
	// page to go back to when the form closes
	returnTo string
	events   map[string]map[tcell.Key]KeyEvent

	boards    []*models.Board
	users     []*models.User
	boardsSub *query.Subscription
	usersSub  *query.Subscription

	boardsTable   *tview.Table
	boardsContent *BoardsContent

	board          *board.Board
	boardSub       *query.Subscription
	boardTitle     *tview.TextView
	columnTables   []*tview.Table
	columnContents []*ColumnContent
	activeColumn   int

	filter       models.TaskFilter
	tasksSub     *query.Subscription
	tasksTable   *tview.Table
	tasksContent *TaskListContent
	searchField  *tview.InputField
	filterView   *tview.TextView
	search       *debouncer

	form       *form.Form
	taskForm   *tview.Form
	formTitle  *tview.TextView
	formNotice *tview.TextView
}

// KeyEvent defines an event associated with a keypress.
type KeyEvent struct {
	Description string
	Action      func(*tcell.EventKey) *tcell.EventKey
}

// NewController creates a new Controller to run the app. Notifications from the client
// and the service are redirected to the status bar.
func NewController(ctx context.Context, client *api.Client, svc *service.Service, store draft.Store) (*Controller, error) {
	if client == nil || svc == nil || store == nil {
		return nil, fmt.Errorf("error creating controller: client, service and draft store are required")
	}

	c := Controller{
		ctx:    ctx,
		client: client,
		svc:    svc,
		store:  store,
		modal:  modal.New(),
		app:    tview.NewApplication(),
		pages:  tview.NewPages(),
	}

	c.statusBar = tview.NewTextView().SetDynamicColors(true)
	c.notifier = &statusNotifier{app: c.app, view: c.statusBar}
	client.SetNotifier(c.notifier)
	svc.SetNotifier(c.notifier)

	c.gate = NewGate(client, c.notifier, c.onGateChange)
	c.modal.OnChange(c.onModalChange)
	c.search = newDebouncer(searchDelay)

	initKeys()
	c.initEvents()
	c.initPages()

	c.boardsSub = svc.Subscribe(svc.BoardsQuery(), c.onBoards)
	c.usersSub = svc.Subscribe(svc.UsersQuery(), c.onUsers)

	return &c, nil
}

// Go runs the app until it is stopped.
func (c *Controller) Go() error {
	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(c.pages, 0, 1, true).
		AddItem(c.statusBar, 1, 0, false)

	c.app.SetInputCapture(c.handleKeys)

	go c.gate.Check(c.ctx)

	if err := c.app.SetRoot(root, true).Run(); err != nil {
		return fmt.Errorf("error running app: %w", err)
	}

	c.unsubscribeAll()

	return nil
}

func (c *Controller) initPages() {
	loading := tview.NewTextView().SetTextAlign(tview.AlignCenter).
		SetText(fmt.Sprintf("\n\nConnecting to %s ...", c.client.BaseURL()))

	c.pages.AddPage(pageLoading, loading, true, true)
	c.pages.AddPage(pageError, c.getErrorGrid(), true, false)
	c.pages.AddPage(pageBoards, c.getBoardsGrid(), true, false)
	c.pages.AddPage(pageBoard, c.getBoardGrid(), true, false)
	c.pages.AddPage(pageTasks, c.getTasksGrid(), true, false)
	c.pages.AddPage(pageForm, c.getFormGrid(), true, false)

	c.current = pageLoading
}

func (c *Controller) getErrorGrid() *tview.Grid {
	grid := tview.NewGrid().SetBorders(true)

	text := tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignCenter)
	text.SetText(fmt.Sprintf("\n[red]%s\n\n[white]Press [orange]<r>[white] to try again or [orange]<q>[white] to quit.", ConnectionFailed))

	grid.AddItem(c.getHeader(pageError, "Connection error"), 0, 0, 1, 1, 0, 0, false)
	grid.AddItem(text, 1, 0, 1, 1, 0, 0, true)

	return grid
}

// onGateChange runs on the goroutine doing the check.
func (c *Controller) onGateChange(state GateState) {
	c.app.QueueUpdateDraw(func() {
		c.switchTo(pageForGate(state))
	})

	if state == GateConnected {
		c.loadReferenceData()
	}
}

// loadReferenceData loads boards and users in parallel. The subscriptions made in
// NewController deliver the results to the view.
func (c *Controller) loadReferenceData() {
	var group errgroup.Group

	group.Go(func() error {
		_, err := c.svc.Boards(c.ctx)

		return err
	})
	group.Go(func() error {
		_, err := c.svc.Users(c.ctx)

		return err
	})

	if err := group.Wait(); err != nil {
		log.Warn().Err(err).Msg("error loading boards and users")
	}
}

func (c *Controller) onBoards(snapshot query.Snapshot) {
	boards, ok := snapshot.Data.([]*models.Board)
	if !snapshot.HasData || !ok {
		return
	}

	c.app.QueueUpdateDraw(func() {
		c.boards = boards
		c.boardsContent.boards = boards
		c.refreshBoardTitle()
		c.refreshFilterView()
	})
}

func (c *Controller) onUsers(snapshot query.Snapshot) {
	users, ok := snapshot.Data.([]*models.User)
	if !snapshot.HasData || !ok {
		return
	}

	c.app.QueueUpdateDraw(func() {
		c.users = users
		c.refreshFilterView()
	})
}

// refresh refetches the subscribed query.
func (c *Controller) refresh(sub *query.Subscription) {
	if sub == nil {
		return
	}

	if _, err := c.svc.Cache().Refetch(c.ctx, sub.Key()); err != nil {
		log.Warn().Err(err).Str("key", sub.Key().String()).Msg("error refreshing")
	}
}

func (c *Controller) unsubscribeAll() {
	for _, sub := range []*query.Subscription{c.boardsSub, c.usersSub, c.boardSub, c.tasksSub} {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
}

// switchTo shows the named page and focuses its main widget. It must run on the UI goroutine.
func (c *Controller) switchTo(name string) {
	log.Debug().Str("from", c.current).Str("to", name).Msg("switching page")

	c.current = name
	c.pages.SwitchToPage(name)

	switch name {
	case pageBoards:
		c.app.SetFocus(c.boardsTable)
	case pageBoard:
		c.app.SetFocus(c.columnTables[c.activeColumn])
	case pageTasks:
		c.app.SetFocus(c.tasksTable)
	case pageForm:
		c.taskForm.SetFocus(0)
		c.app.SetFocus(c.taskForm)
	}
}

func (c *Controller) keyboardEvents() map[tcell.Key]KeyEvent {
	if c.current == pageForm {
		return c.events[pageForm]
	}

	// typing into the search field must not trigger rune shortcuts
	if _, ok := c.app.GetFocus().(*tview.InputField); ok && c.current == pageTasks {
		return c.events[pageSearch]
	}

	return c.events[c.current]
}

func (c *Controller) handleKeys(evt *tcell.EventKey) *tcell.EventKey {
	key := AsKey(evt)
	if k, ok := c.keyboardEvents()[key]; ok {
		return k.Action(evt)
	}

	return evt
}

// getHeader returns the header used for each page.
// it shows the title at the top, followed by the page's keyboard shortcuts in two
// columns, sorted alphabetically.
func (c *Controller) getHeader(page, title string) *tview.Table {
	table := tview.NewTable().SetBorders(false).SetSelectable(false, false)

	table.SetCell(0, 0, tview.NewTableCell(fmt.Sprintf("[yellow]%s", title)))

	shortcuts := []string{}
	for key, event := range c.events[page] {
		shortcuts = append(shortcuts, fmt.Sprintf("[orange]<%s>[white] %s", keyName(key), event.Description))
	}

	sort.Strings(shortcuts)

	half := (len(shortcuts) + 1) / 2
	for i, text := range shortcuts {
		table.SetCell(1+i%half, i/half, tview.NewTableCell(text).SetExpansion(1))
	}

	return table
}

// statusNotifier shows notifications in the status bar.
type statusNotifier struct {
	app  *tview.Application
	view *tview.TextView
}

func (n *statusNotifier) Success(msg string) {
	log.Info().Msg(msg)
	n.show("green", msg)
}

func (n *statusNotifier) Error(msg string) {
	log.Warn().Msg(msg)
	n.show("red", msg)
}

func (n *statusNotifier) show(color, msg string) {
	n.app.QueueUpdateDraw(func() {
		n.view.SetText(fmt.Sprintf("[%s]%s", color, tview.Escape(msg)))
	})
}
