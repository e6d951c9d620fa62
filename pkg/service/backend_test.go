package service_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/matt-steen/taskboard/pkg/api"
	"github.com/matt-steen/taskboard/pkg/models"
	"github.com/matt-steen/taskboard/pkg/query"
	"github.com/matt-steen/taskboard/pkg/service"
)

// fakeBackend is an in-memory version of the REST API.
type fakeBackend struct {
	mu       sync.Mutex
	boards   []*models.Board
	users    []*models.User
	tasks    []*models.Task
	nextID   int
	failNext int
	hits     map[string]int
	// release, when set, blocks status updates until it is closed
	release chan struct{}
	// holdTask, when set, blocks the next single-task read after its answer is
	// taken; taskHeld is closed once that read is waiting
	holdTask chan struct{}
	taskHeld chan struct{}
}

func newFakeBackend() *fakeBackend {
	users := []*models.User{{ID: 2, FullName: "Ann Lee"}, {ID: 3, FullName: "Bo Kim"}}

	return &fakeBackend{
		boards: []*models.Board{{ID: 1, Name: "Web"}, {ID: 7, Name: "Mobile"}},
		users:  users,
		tasks: []*models.Task{
			{ID: 1, Title: "Fix login", Status: models.StatusBacklog, Priority: models.PriorityHigh, BoardID: 1, Assignee: users[0]},
			{ID: 2, Title: "Add dark mode", Status: models.StatusInProgress, Priority: models.PriorityLow, BoardID: 7, Assignee: users[1]},
			{ID: 3, Title: "Crash on start", Status: models.StatusBacklog, Priority: models.PriorityHigh, BoardID: 7, Assignee: users[0]},
			{ID: 4, Title: "Release notes", Status: models.StatusDone, Priority: models.PriorityMedium, BoardID: 7, Assignee: users[1]},
		},
		nextID: 5,
		hits:   map[string]int{},
	}
}

func (b *fakeBackend) hit(name string) {
	b.hits[name]++
}

func (b *fakeBackend) Hits(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.hits[name]
}

// FailNext makes the next n mutations answer with a server error.
func (b *fakeBackend) FailNext(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failNext = n
}

func (b *fakeBackend) shouldFail() bool {
	if b.failNext > 0 {
		b.failNext--

		return true
	}

	return false
}

func (b *fakeBackend) find(id int) *models.Task {
	for _, task := range b.tasks {
		if task.ID == id {
			return task
		}
	}

	return nil
}

func (b *fakeBackend) filter(keep func(*models.Task) bool) []*models.Task {
	out := []*models.Task{}

	for _, task := range b.tasks {
		if keep(task) {
			out = append(out, task.Clone())
		}
	}

	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request) int {
	id, _ := strconv.Atoi(r.PathValue("id"))

	return id
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /boards", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.hit("boards")

		writeJSON(w, http.StatusOK, map[string]any{"data": b.boards})
	})

	mux.HandleFunc("GET /boards/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.hit("board-tasks/" + r.PathValue("id"))

		id := pathID(r)
		// board listings omit the board id, like the real backend
		tasks := b.filter(func(t *models.Task) bool { return t.BoardID == id })
		for _, task := range tasks {
			task.BoardID = 0
		}

		writeJSON(w, http.StatusOK, map[string]any{"data": tasks})
	})

	mux.HandleFunc("GET /tasks", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.hit("tasks")

		writeJSON(w, http.StatusOK, b.filter(func(*models.Task) bool { return true }))
	})

	mux.HandleFunc("GET /tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hit("task/" + r.PathValue("id"))

		task := b.find(pathID(r)).Clone()
		hold, held := b.holdTask, b.taskHeld
		b.holdTask, b.taskHeld = nil, nil
		b.mu.Unlock()

		if hold != nil {
			close(held)
			<-hold
		}

		if task == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "no such task"})

			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"data": task})
	})

	mux.HandleFunc("POST /tasks/create", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()

		if b.shouldFail() {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal", "message": "db down"})

			return
		}

		var req models.CreateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": "title is required"})

			return
		}

		task := &models.Task{
			ID:          b.nextID,
			Title:       req.Title,
			Description: req.Description,
			Status:      models.StatusBacklog,
			Priority:    req.Priority,
			BoardID:     req.BoardID,
		}

		for _, user := range b.users {
			if user.ID == req.AssigneeID {
				task.Assignee = user
			}
		}

		b.nextID++
		b.tasks = append(b.tasks, task)

		writeJSON(w, http.StatusOK, map[string]any{"data": models.CreateTaskResponse{ID: task.ID}})
	})

	mux.HandleFunc("PUT /tasks/update/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()

		if b.shouldFail() {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal", "message": "db down"})

			return
		}

		var req models.UpdateTaskRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		task := b.find(pathID(r))
		if task == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "no such task"})

			return
		}

		*task = *req.Apply(task)

		if task.Assignee != nil {
			for _, user := range b.users {
				if user.ID == task.Assignee.ID {
					task.Assignee = user
				}
			}
		}

		writeJSON(w, http.StatusOK, models.UpdateTaskResponse{Message: "updated"})
	})

	mux.HandleFunc("PUT /tasks/updateStatus/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		release := b.release
		b.mu.Unlock()

		if release != nil {
			<-release
		}

		b.mu.Lock()
		defer b.mu.Unlock()

		if b.shouldFail() {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal", "message": "db down"})

			return
		}

		var req models.UpdateTaskStatusRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		task := b.find(pathID(r))
		if task == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "no such task"})

			return
		}

		task.Status = req.Status

		writeJSON(w, http.StatusOK, models.UpdateTaskResponse{Message: "status updated"})
	})

	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.hit("users")

		writeJSON(w, http.StatusOK, b.users)
	})

	mux.HandleFunc("GET /users/{id}/tasks", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.hit("user-tasks/" + r.PathValue("id"))

		id := pathID(r)
		// user listings omit the assignee
		tasks := b.filter(func(t *models.Task) bool { return t.Assignee != nil && t.Assignee.ID == id })
		for _, task := range tasks {
			task.Assignee = nil
		}

		writeJSON(w, http.StatusOK, tasks)
	})

	return mux
}

type recorder struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (r *recorder) Success(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.successes = append(r.successes, msg)
}

func (r *recorder) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, msg)
}

func (r *recorder) Successes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string{}, r.successes...)
}

func (r *recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string{}, r.errors...)
}

type fixture struct {
	backend       *fakeBackend
	service       *service.Service
	cache         *query.Cache
	notifications *recorder
}

func newFixture(t *testing.T, opts service.Options) *fixture {
	t.Helper()

	backend := newFakeBackend()

	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	notifications := &recorder{}
	client := api.NewClient(server.URL, time.Second, notifications)
	cache := query.NewCache(query.Options{StalePolicy: query.Never{}, Retry: -1})

	return &fixture{
		backend:       backend,
		service:       service.New(client, cache, notifications, opts),
		cache:         cache,
		notifications: notifications,
	}
}
