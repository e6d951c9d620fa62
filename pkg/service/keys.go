package service

import (
	"github.com/matt-steen/taskboard/pkg/models"
	"github.com/matt-steen/taskboard/pkg/query"
)

// These constants refer to the query names used as cache key prefixes.
const (
	KeyBoards     = "boards"
	KeyBoardTasks = "board-tasks"
	KeyTasks      = "tasks"
	KeyTask       = "task"
	KeyUsers      = "users"
	KeyUserTasks  = "user-tasks"
)

// BoardsKey identifies the board list.
func BoardsKey() query.Key {
	return query.NewKey(KeyBoards)
}

// BoardTasksKey identifies the task list of one board. Use query.NewKey(KeyBoardTasks)
// to address every board.
func BoardTasksKey(boardID int) query.Key {
	return query.NewKey(KeyBoardTasks, boardID)
}

// AllTasksKey identifies the unfiltered task list. It is also the prefix of every filtered list.
func AllTasksKey() query.Key {
	return query.NewKey(KeyTasks)
}

// TasksKey identifies a filtered task list.
func TasksKey(filter models.TaskFilter) query.Key {
	if filter.IsZero() {
		return AllTasksKey()
	}

	return query.NewKey(KeyTasks, filter.Search, filter.Status, filter.Assignee, filter.Board)
}

// TaskKey identifies a single task.
func TaskKey(id int) query.Key {
	return query.NewKey(KeyTask, id)
}

// UsersKey identifies the user list.
func UsersKey() query.Key {
	return query.NewKey(KeyUsers)
}

// UserTasksKey identifies the tasks assigned to one user.
func UserTasksKey(userID int) query.Key {
	return query.NewKey(KeyUserTasks, userID)
}
