package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/matt-steen/taskboard/pkg/models"
)

// GetBoards lists all boards with their task counts.
func (c *Client) GetBoards(ctx context.Context) *Request[[]*models.Board] {
	return start[[]*models.Board](ctx, c, http.MethodGet, "/boards", nil, nil)
}

// GetBoardTasks lists the tasks of board id.
func (c *Client) GetBoardTasks(ctx context.Context, id int) *Request[[]*models.Task] {
	return start[[]*models.Task](ctx, c, http.MethodGet, fmt.Sprintf("/boards/%d", id), nil, nil)
}

// GetTasks lists tasks. The backend may honour only some of the filter dimensions.
func (c *Client) GetTasks(ctx context.Context, filter models.TaskFilter) *Request[[]*models.Task] {
	return start[[]*models.Task](ctx, c, http.MethodGet, "/tasks", filter.Values(), nil)
}

// GetTask fetches a single task.
func (c *Client) GetTask(ctx context.Context, id int) *Request[*models.Task] {
	return start[*models.Task](ctx, c, http.MethodGet, fmt.Sprintf("/tasks/%d", id), nil, nil)
}

// CreateTask creates a task and returns its new id.
func (c *Client) CreateTask(ctx context.Context, task models.CreateTaskRequest) *Request[models.CreateTaskResponse] {
	return start[models.CreateTaskResponse](ctx, c, http.MethodPost, "/tasks/create", nil, task)
}

// UpdateTask updates the fields of task id that are set in update.
func (c *Client) UpdateTask(
	ctx context.Context, id int, update models.UpdateTaskRequest,
) *Request[models.UpdateTaskResponse] {
	return start[models.UpdateTaskResponse](ctx, c, http.MethodPut, fmt.Sprintf("/tasks/update/%d", id), nil, update)
}

// UpdateTaskStatus changes only the status of task id.
func (c *Client) UpdateTaskStatus(ctx context.Context, id int, status models.Status) *Request[models.UpdateTaskResponse] {
	return start[models.UpdateTaskResponse](
		ctx, c, http.MethodPut, fmt.Sprintf("/tasks/updateStatus/%d", id), nil,
		models.UpdateTaskStatusRequest{Status: status},
	)
}

// GetUsers lists all users.
func (c *Client) GetUsers(ctx context.Context) *Request[[]*models.User] {
	return start[[]*models.User](ctx, c, http.MethodGet, "/users", nil, nil)
}

// GetUserTasks lists the tasks assigned to user id.
func (c *Client) GetUserTasks(ctx context.Context, id int) *Request[[]*models.Task] {
	return start[[]*models.Task](ctx, c, http.MethodGet, fmt.Sprintf("/users/%d/tasks", id), nil, nil)
}
