package models_test

import (
	"encoding/json"
	"testing"

	"github.com/matt-steen/taskboard/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestStatusUnmarshalRejectsUnknown(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	var task models.Task
	err := json.Unmarshal([]byte(`{"id": 1, "status": "Archived"}`), &task)
	assert.NotNil(err)
	assert.Contains(err.Error(), "unknown status 'Archived'")

	err = json.Unmarshal([]byte(`{"id": 1, "status": "InProgress"}`), &task)
	assert.Nil(err)
	assert.Equal(models.StatusInProgress, task.Status)
}

func TestTaskWithoutStatusIsBacklog(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	var tasks []*models.Task
	err := json.Unmarshal([]byte(`[{"id": 1}, {"id": 2, "status": ""}, {"id": 3, "status": null}, {"id": 4, "status": "Done"}]`), &tasks)
	assert.Nil(err)

	statuses := []models.Status{}
	for _, task := range tasks {
		statuses = append(statuses, task.Status)
	}

	assert.Equal([]models.Status{models.StatusBacklog, models.StatusBacklog, models.StatusBacklog, models.StatusDone}, statuses)
}

func TestParseStatusAcceptsLabel(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	status, err := models.ParseStatus("In Progress")
	assert.Nil(err)
	assert.Equal(models.StatusInProgress, status)

	assert.Equal("To Do", models.StatusBacklog.Label())
}

func TestUpdateTaskRequestApply(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	task := &models.Task{ID: 4, Title: "old", Priority: models.PriorityLow, Assignee: &models.User{ID: 2, FullName: "Ann"}}
	title := "new"
	assignee := 2

	merged := models.UpdateTaskRequest{Title: &title, AssigneeID: &assignee}.Apply(task)

	assert.Equal("new", merged.Title)
	assert.Equal(models.PriorityLow, merged.Priority)
	// unchanged assignee keeps the full record
	assert.Equal("Ann", merged.Assignee.FullName)
	// the source task is untouched
	assert.Equal("old", task.Title)
}

func TestFilterBoardAndAssignee(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	tasks := []*models.Task{
		{ID: 1, BoardID: 7, Assignee: &models.User{ID: 3}},
		{ID: 2, BoardID: 7, Assignee: &models.User{ID: 4}},
		{ID: 3, BoardID: 8, Assignee: &models.User{ID: 3}},
		{ID: 4, BoardID: 7},
	}

	filtered := models.TaskFilter{Board: 7, Assignee: 3}.Apply(tasks)
	assert.Equal(1, len(filtered))
	assert.Equal(1, filtered[0].ID)
}

func TestFilterSearchAndStatus(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	tasks := []*models.Task{
		{ID: 1, Title: "Fix bug", Status: models.StatusBacklog},
		{ID: 2, Title: "fix typo", Status: models.StatusDone},
		{ID: 3, Title: "Write docs", Status: models.StatusBacklog},
	}

	filtered := models.TaskFilter{Search: "FIX"}.Apply(tasks)
	assert.Equal(2, len(filtered))

	filtered = models.TaskFilter{Search: "fix", Status: models.StatusDone}.Apply(tasks)
	assert.Equal(1, len(filtered))
	assert.Equal(2, filtered[0].ID)
}

func TestEnrich(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	boards := []*models.Board{{ID: 1, Name: "Web"}, {ID: 2, Name: "Mobile"}}
	users := []*models.User{{ID: 5, FullName: "Bo"}}

	tasks := []*models.Task{
		{ID: 1, BoardName: "Mobile"},
		{ID: 2, BoardID: 1},
	}

	enriched := models.Enrich(tasks, boards, users, models.TaskFilter{Assignee: 5})
	assert.Equal(2, enriched[0].BoardID)
	assert.Equal("Web", enriched[1].BoardName)
	assert.Equal("Bo", enriched[0].Assignee.FullName)
	assert.Nil(tasks[0].Assignee)
}

func TestFilterValues(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	values := models.TaskFilter{Search: "x", Board: 3}.Values()
	assert.Equal("board=3&search=x", values.Encode())
	assert.True(models.TaskFilter{}.IsZero())
}
