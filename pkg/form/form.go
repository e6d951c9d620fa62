package form

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/matt-steen/taskboard/pkg/draft"
	"github.com/matt-steen/taskboard/pkg/models"
	"github.com/rs/zerolog/log"
)

// DraftNotice is shown while the form holds a draft restored from an earlier session.
const DraftNotice = "Loaded draft from previous session"

// ErrValidation is wrapped by every validation failure.
var ErrValidation = errors.New("invalid task form")

// ValidationError lists the failing fields and their messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}

	sort.Strings(names)

	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, e.Fields[name])
	}

	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Values are the editable fields of the task form. This is also the draft format.
type Values struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    models.Priority `json:"priority"`
	BoardID     int             `json:"boardId"`
	AssigneeID  int             `json:"assigneeId"`
	Status      models.Status   `json:"status,omitempty"`
}

// empty ignores the priority, which always has a value.
func (v Values) empty() bool {
	return v.Title == "" && v.Description == "" && v.BoardID == 0 && v.AssigneeID == 0 && v.Status == ""
}

// Submitter persists the form. *service.Service implements it.
type Submitter interface {
	CreateTask(ctx context.Context, task models.CreateTaskRequest) (int, error)
	UpdateTask(ctx context.Context, id int, update models.UpdateTaskRequest) error
}

// Result describes a successful submit.
type Result struct {
	TaskID  int
	BoardID int
	Created bool
}

// Form is the state of the create/edit task form.
type Form struct {
	mu      sync.Mutex
	store   draft.Store
	initial *models.Task
	values  Values
	isDraft bool
}

// New opens the form. With an initial task the fields come from it and the draft
// is left alone; otherwise a saved draft is restored if there is one.
func New(ctx context.Context, store draft.Store, initial *models.Task) *Form {
	f := &Form{
		store:   store,
		initial: initial.Clone(),
	}

	f.values = f.initialValues()

	if initial == nil {
		f.loadDraft(ctx)
	}

	return f
}

func (f *Form) initialValues() Values {
	values := Values{Priority: models.PriorityMedium}

	if f.initial == nil {
		return values
	}

	values.Title = f.initial.Title
	values.Description = f.initial.Description
	values.BoardID = f.initial.BoardID
	values.AssigneeID = f.initial.AssigneeID()
	values.Status = f.initial.Status

	if f.initial.Priority != "" {
		values.Priority = f.initial.Priority
	}

	return values
}

func (f *Form) loadDraft(ctx context.Context) {
	payload, err := f.store.Load(ctx)
	if errors.Is(err, draft.ErrNoDraft) {
		return
	}

	if err != nil {
		log.Warn().Err(err).Msg("error loading task form draft")

		return
	}

	values := f.values
	if err := json.Unmarshal(payload, &values); err != nil {
		log.Warn().Err(err).Msg("error parsing task form draft, discarding it")

		if err := f.store.Remove(ctx); err != nil {
			log.Warn().Err(err).Msg("error removing task form draft")
		}

		return
	}

	if values.Priority == "" {
		values.Priority = models.PriorityMedium
	}

	f.values = values
	f.isDraft = true
}

// IsEdit reports whether the form edits an existing task.
func (f *Form) IsEdit() bool {
	return f.initial != nil && f.initial.ID != 0
}

// Initial returns the task the form was opened with, or nil.
func (f *Form) Initial() *models.Task {
	return f.initial
}

// IsDraft reports whether the shown values come from, or have been saved to, the draft.
func (f *Form) IsDraft() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.isDraft
}

// Values returns the current field values.
func (f *Form) Values() Values {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.values
}

// SetTitle changes the title.
func (f *Form) SetTitle(ctx context.Context, title string) {
	f.change(ctx, func(v *Values) { v.Title = title })
}

// SetDescription changes the description.
func (f *Form) SetDescription(ctx context.Context, description string) {
	f.change(ctx, func(v *Values) { v.Description = description })
}

// SetPriority changes the priority.
func (f *Form) SetPriority(ctx context.Context, priority models.Priority) {
	f.change(ctx, func(v *Values) { v.Priority = priority })
}

// SetBoard changes the board. Moving an existing task to another board is not
// supported by the backend, so the value only matters on create.
func (f *Form) SetBoard(ctx context.Context, boardID int) {
	f.change(ctx, func(v *Values) { v.BoardID = boardID })
}

// SetAssignee changes the assignee.
func (f *Form) SetAssignee(ctx context.Context, userID int) {
	f.change(ctx, func(v *Values) { v.AssigneeID = userID })
}

// SetStatus changes the status.
func (f *Form) SetStatus(ctx context.Context, status models.Status) {
	f.change(ctx, func(v *Values) { v.Status = status })
}

func (f *Form) change(ctx context.Context, apply func(*Values)) {
	f.mu.Lock()
	apply(&f.values)
	values := f.values
	f.mu.Unlock()

	f.saveDraft(ctx, values)
}

func (f *Form) saveDraft(ctx context.Context, values Values) {
	if f.IsEdit() || values.empty() {
		return
	}

	payload, err := json.Marshal(values)
	if err != nil {
		log.Error().Err(err).Msg("error encoding task form draft")

		return
	}

	if err := f.store.Save(ctx, payload); err != nil {
		log.Warn().Err(err).Msg("error saving task form draft")

		return
	}

	f.mu.Lock()
	f.isDraft = true
	f.mu.Unlock()
}

// ClearDraft removes the saved draft.
func (f *Form) ClearDraft(ctx context.Context) {
	if err := f.store.Remove(ctx); err != nil {
		log.Warn().Err(err).Msg("error removing task form draft")
	}

	f.mu.Lock()
	f.isDraft = false
	f.mu.Unlock()
}

// Reset restores the values the form was opened with. The draft is not touched.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values = f.initialValues()
}

// Validate checks the required fields.
func (f *Form) Validate() error {
	values := f.Values()
	fields := map[string]string{}

	if strings.TrimSpace(values.Title) == "" {
		fields["title"] = "Please enter a task name"
	}

	if !f.IsEdit() {
		if values.BoardID == 0 {
			fields["board"] = "Please select a project"
		}

		if values.AssigneeID == 0 {
			fields["assignee"] = "Please select an assignee"
		}
	}

	if values.Status != "" && !values.Status.Valid() {
		fields["status"] = fmt.Sprintf("Unknown status '%s'", values.Status)
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	return nil
}

// Submit validates and saves the form. The draft is cleared only when the save succeeds.
func (f *Form) Submit(ctx context.Context, svc Submitter) (Result, error) {
	if err := f.Validate(); err != nil {
		return Result{}, err
	}

	values := f.Values()

	if f.IsEdit() {
		update := models.UpdateTaskRequest{
			Title:       &values.Title,
			Description: &values.Description,
			Priority:    &values.Priority,
		}

		if values.Status != "" {
			update.Status = &values.Status
		}

		if values.AssigneeID != 0 {
			update.AssigneeID = &values.AssigneeID
		}

		if err := svc.UpdateTask(ctx, f.initial.ID, update); err != nil {
			return Result{}, fmt.Errorf("error saving task %d: %w", f.initial.ID, err)
		}

		f.ClearDraft(ctx)

		boardID := values.BoardID
		if boardID == 0 {
			boardID = f.initial.BoardID
		}

		return Result{TaskID: f.initial.ID, BoardID: boardID}, nil
	}

	id, err := svc.CreateTask(ctx, models.CreateTaskRequest{
		Title:       values.Title,
		Description: values.Description,
		Priority:    values.Priority,
		BoardID:     values.BoardID,
		AssigneeID:  values.AssigneeID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("error saving task '%s': %w", values.Title, err)
	}

	f.ClearDraft(ctx)

	return Result{TaskID: id, BoardID: values.BoardID, Created: true}, nil
}

// BoardID is the board to navigate to from the form: the selected one, else the
// initial task's board, else 0.
func (f *Form) BoardID() int {
	if id := f.Values().BoardID; id != 0 {
		return id
	}

	if f.initial != nil {
		return f.initial.BoardID
	}

	return 0
}
