package models

import (
	"net/url"
	"strconv"
	"strings"
)

// TaskFilter narrows the task list. Zero values mean "no filter".
type TaskFilter struct {
	Search   string `json:"search,omitempty"`
	Status   Status `json:"status,omitempty"`
	Assignee int    `json:"assignee,omitempty"`
	Board    int    `json:"board,omitempty"`
}

// IsZero reports whether no dimension is set.
func (f TaskFilter) IsZero() bool {
	return f == TaskFilter{}
}

// Values encodes the filter as query parameters for GET /tasks.
func (f TaskFilter) Values() url.Values {
	values := url.Values{}

	if f.Search != "" {
		values.Set("search", f.Search)
	}

	if f.Status != "" {
		values.Set("status", string(f.Status))
	}

	if f.Assignee != 0 {
		values.Set("assignee", strconv.Itoa(f.Assignee))
	}

	if f.Board != 0 {
		values.Set("board", strconv.Itoa(f.Board))
	}

	return values
}

// Matches reports whether task satisfies every set dimension of the filter.
// Tasks with an unknown board are kept when filtering by board since they were
// fetched from that board's listing.
func (f TaskFilter) Matches(task *Task) bool {
	if f.Status != "" && task.Status != f.Status {
		return false
	}

	if f.Search != "" && !strings.Contains(strings.ToLower(task.Title), strings.ToLower(f.Search)) {
		return false
	}

	if f.Board != 0 && task.BoardID != 0 && task.BoardID != f.Board {
		return false
	}

	if f.Assignee != 0 && task.AssigneeID() != f.Assignee {
		return false
	}

	return true
}

// Apply returns the tasks matching the filter, preserving order.
func (f TaskFilter) Apply(tasks []*Task) []*Task {
	filtered := make([]*Task, 0, len(tasks))

	for _, task := range tasks {
		if f.Matches(task) {
			filtered = append(filtered, task)
		}
	}

	return filtered
}

// Enrich fills in denormalised fields the backend omits depending on the endpoint:
// board id from board name and vice versa, the board from the filter when listing
// a single board, and the assignee from the filter when listing a user's tasks.
// The input tasks are not modified.
func Enrich(tasks []*Task, boards []*Board, users []*User, filter TaskFilter) []*Task {
	enriched := make([]*Task, 0, len(tasks))

	for _, task := range tasks {
		t := task.Clone()

		if t.BoardID == 0 && filter.Board != 0 {
			t.BoardID = filter.Board
		}

		if t.BoardID == 0 && t.BoardName != "" {
			if board := FindBoardByName(boards, t.BoardName); board != nil {
				t.BoardID = board.ID
			}
		}

		if t.BoardID != 0 && t.BoardName == "" {
			if board := FindBoard(boards, t.BoardID); board != nil {
				t.BoardName = board.Name
			}
		}

		if t.Assignee == nil && filter.Assignee != 0 {
			if user := FindUser(users, filter.Assignee); user != nil {
				u := *user
				t.Assignee = &u
			}
		}

		enriched = append(enriched, t)
	}

	return enriched
}

// FindBoard returns the board with the given id or nil.
func FindBoard(boards []*Board, id int) *Board {
	for _, board := range boards {
		if board.ID == id {
			return board
		}
	}

	return nil
}

// FindBoardByName returns the first board with the given name or nil.
func FindBoardByName(boards []*Board, name string) *Board {
	for _, board := range boards {
		if board.Name == name {
			return board
		}
	}

	return nil
}

// FindUser returns the user with the given id or nil.
func FindUser(users []*User, id int) *User {
	for _, user := range users {
		if user.ID == id {
			return user
		}
	}

	return nil
}

// ReplaceTask returns a copy of tasks with the task matching replacement.ID swapped out.
func ReplaceTask(tasks []*Task, replacement *Task) []*Task {
	replaced := make([]*Task, len(tasks))

	for i, task := range tasks {
		if task.ID == replacement.ID {
			replaced[i] = replacement
		} else {
			replaced[i] = task
		}
	}

	return replaced
}
