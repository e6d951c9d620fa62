package models

import (
	"encoding/json"
	"fmt"
)

// Status is the workflow state of a task. Only the values in Statuses are valid.
type Status string

// These constants refer to the statuses supported by the backend, in column order.
const (
	StatusBacklog    Status = "Backlog"
	StatusInProgress Status = "InProgress"
	StatusDone       Status = "Done"
)

// Statuses returns every status in board column order.
func Statuses() []Status {
	return []Status{StatusBacklog, StatusInProgress, StatusDone}
}

// Label is the human readable name shown in column headers and tables.
func (s Status) Label() string {
	switch s {
	case StatusBacklog:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	}

	return string(s)
}

// Valid reports whether s is one of the fixed statuses.
func (s Status) Valid() bool {
	for _, status := range Statuses() {
		if s == status {
			return true
		}
	}

	return false
}

// ParseStatus accepts either the wire value or the display label.
func ParseStatus(value string) (Status, error) {
	for _, status := range Statuses() {
		if value == string(status) || value == status.Label() {
			return status, nil
		}
	}

	return "", fmt.Errorf("unknown status '%s'", value)
}

// UnmarshalJSON rejects statuses outside the fixed set. An empty or null status
// is read as Backlog, where the server puts new tasks.
func (s *Status) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("error decoding status: %w", err)
	}

	if value == "" {
		*s = StatusBacklog

		return nil
	}

	status, err := ParseStatus(value)
	if err != nil {
		return err
	}

	*s = status

	return nil
}

// Priority of a task.
type Priority string

// These constants refer to the priorities supported by the backend.
const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Priorities returns every priority from lowest to highest.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh}
}

// ParsePriority returns the priority matching value.
func ParsePriority(value string) (Priority, error) {
	for _, priority := range Priorities() {
		if value == string(priority) {
			return priority, nil
		}
	}

	return "", fmt.Errorf("unknown priority '%s'", value)
}

// Color is the tview color tag used when rendering the priority.
func (p Priority) Color() string {
	switch p {
	case PriorityLow:
		return "green"
	case PriorityHigh:
		return "red"
	}

	return "blue"
}

// User is a member who can be assigned to tasks.
type User struct {
	ID          int    `json:"id"`
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Description string `json:"description,omitempty"`
	TasksCount  int    `json:"tasksCount,omitempty"`
}

// Board groups tasks. TaskCount is computed by the server.
type Board struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TaskCount   int    `json:"taskCount"`
}

// Task is a single unit of work on a board.
type Task struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
	Assignee    *User    `json:"assignee,omitempty"`
	// BoardID is required by the server; it is only zero while a task from a
	// partial listing is waiting to be enriched from the board list.
	BoardID   int    `json:"boardId,omitempty"`
	BoardName string `json:"boardName,omitempty"`
}

// UnmarshalJSON defaults a missing status to Backlog so every task lands in a column.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task

	decoded := plain{Status: StatusBacklog}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("error decoding task: %w", err)
	}

	*t = Task(decoded)

	return nil
}

// AssigneeID returns the id of the assignee or 0 when unassigned.
func (t *Task) AssigneeID() int {
	if t.Assignee == nil {
		return 0
	}

	return t.Assignee.ID
}

// Clone returns a copy that shares no pointers with t.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}

	c := *t

	if t.Assignee != nil {
		assignee := *t.Assignee
		c.Assignee = &assignee
	}

	return &c
}

// CreateTaskRequest is the body of POST /tasks/create.
type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	BoardID     int      `json:"boardId"`
	AssigneeID  int      `json:"assigneeId"`
}

// CreateTaskResponse carries the id assigned by the server.
type CreateTaskResponse struct {
	ID int `json:"id"`
}

// UpdateTaskRequest is the body of PUT /tasks/update/{id}. Nil fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	AssigneeID  *int      `json:"assigneeId,omitempty"`
}

// Apply merges the set fields of r into a copy of task.
func (r UpdateTaskRequest) Apply(task *Task) *Task {
	merged := task.Clone()

	if r.Title != nil {
		merged.Title = *r.Title
	}

	if r.Description != nil {
		merged.Description = *r.Description
	}

	if r.Priority != nil {
		merged.Priority = *r.Priority
	}

	if r.Status != nil {
		merged.Status = *r.Status
	}

	if r.AssigneeID != nil && merged.AssigneeID() != *r.AssigneeID {
		// only the id is known until the server responds
		merged.Assignee = &User{ID: *r.AssigneeID}
	}

	return merged
}

// UpdateTaskStatusRequest is the body of PUT /tasks/updateStatus/{id}.
type UpdateTaskStatusRequest struct {
	Status Status `json:"status"`
}

// UpdateTaskResponse is returned by both update endpoints.
type UpdateTaskResponse struct {
	Message string `json:"message"`
}
