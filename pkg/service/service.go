package service

import (
	"context"
	"errors"

	"github.com/matt-steen/taskboard/pkg/api"
	"github.com/matt-steen/taskboard/pkg/models"
	"github.com/matt-steen/taskboard/pkg/query"
	"github.com/rs/zerolog/log"
)

// Backend is the set of endpoints the service uses. *api.Client implements it.
type Backend interface {
	GetBoards(ctx context.Context) *api.Request[[]*models.Board]
	GetBoardTasks(ctx context.Context, id int) *api.Request[[]*models.Task]
	GetTasks(ctx context.Context, filter models.TaskFilter) *api.Request[[]*models.Task]
	GetTask(ctx context.Context, id int) *api.Request[*models.Task]
	CreateTask(ctx context.Context, task models.CreateTaskRequest) *api.Request[models.CreateTaskResponse]
	UpdateTask(ctx context.Context, id int, update models.UpdateTaskRequest) *api.Request[models.UpdateTaskResponse]
	UpdateTaskStatus(ctx context.Context, id int, status models.Status) *api.Request[models.UpdateTaskResponse]
	GetUsers(ctx context.Context) *api.Request[[]*models.User]
	GetUserTasks(ctx context.Context, id int) *api.Request[[]*models.Task]
}

// Options tunes the mutation behaviour.
type Options struct {
	// RollbackLists also restores the list caches when an update fails. By default
	// only the single-task cache is restored and the lists catch up on their next
	// refetch.
	RollbackLists bool
}

// Service exposes cached queries and task mutations with optimistic updates.
type Service struct {
	backend  Backend
	cache    *query.Cache
	notifier api.Notifier
	opts     Options
}

// New creates a Service.
func New(backend Backend, cache *query.Cache, notifier api.Notifier, opts Options) *Service {
	if notifier == nil {
		notifier = api.LogNotifier{}
	}

	return &Service{
		backend:  backend,
		cache:    cache,
		notifier: notifier,
		opts:     opts,
	}
}

// SetNotifier replaces the notifier used for mutation results.
func (s *Service) SetNotifier(notifier api.Notifier) {
	s.notifier = notifier
}

// Cache returns the underlying query cache.
func (s *Service) Cache() *query.Cache {
	return s.cache
}

// Query pairs a cache key with the loader that fills it.
type Query struct {
	Key    query.Key
	Loader query.Loader
}

// Subscribe keeps q's entry alive and calls listener on every change until the
// subscription ends.
func (s *Service) Subscribe(q Query, listener query.Listener) *query.Subscription {
	return s.cache.Subscribe(q.Key, q.Loader, listener)
}

func fetch[T any](ctx context.Context, s *Service, q Query) (T, error) {
	data, err := s.cache.Fetch(ctx, q.Key, q.Loader)

	value, _ := data.(T)

	return value, err
}

// list waits for a list request. Failures are logged and produce an empty list
// so views degrade to "no items" rather than an error state.
func list[T any](ctx context.Context, name string, request *api.Request[[]T]) ([]T, error) {
	items, err := request.Wait(ctx)
	if err != nil {
		if errors.Is(err, api.ErrCanceled) {
			return nil, err
		}

		log.Error().Err(err).Msgf("error fetching %s", name)

		return []T{}, nil
	}

	if items == nil {
		items = []T{}
	}

	return items, nil
}

// BoardsQuery lists all boards.
func (s *Service) BoardsQuery() Query {
	return Query{
		Key: BoardsKey(),
		Loader: func(ctx context.Context) (any, error) {
			return list(ctx, "boards", s.backend.GetBoards(ctx))
		},
	}
}

// Boards returns the cached board list.
func (s *Service) Boards(ctx context.Context) ([]*models.Board, error) {
	return fetch[[]*models.Board](ctx, s, s.BoardsQuery())
}

// BoardTasksQuery lists the tasks of one board.
func (s *Service) BoardTasksQuery(boardID int) Query {
	return Query{
		Key: BoardTasksKey(boardID),
		Loader: func(ctx context.Context) (any, error) {
			tasks, err := list(ctx, "board tasks", s.backend.GetBoardTasks(ctx, boardID))
			if err != nil {
				return nil, err
			}

			return models.Enrich(tasks, nil, nil, models.TaskFilter{Board: boardID}), nil
		},
	}
}

// BoardTasks returns the cached task list of one board.
func (s *Service) BoardTasks(ctx context.Context, boardID int) ([]*models.Task, error) {
	return fetch[[]*models.Task](ctx, s, s.BoardTasksQuery(boardID))
}

// TaskQuery fetches a single task. Unlike the lists its errors are returned.
func (s *Service) TaskQuery(id int) Query {
	return Query{
		Key: TaskKey(id),
		Loader: func(ctx context.Context) (any, error) {
			return s.backend.GetTask(ctx, id).Wait(ctx)
		},
	}
}

// Task returns the cached task.
func (s *Service) Task(ctx context.Context, id int) (*models.Task, error) {
	return fetch[*models.Task](ctx, s, s.TaskQuery(id))
}

// UsersQuery lists all users.
func (s *Service) UsersQuery() Query {
	return Query{
		Key: UsersKey(),
		Loader: func(ctx context.Context) (any, error) {
			return list(ctx, "users", s.backend.GetUsers(ctx))
		},
	}
}

// Users returns the cached user list.
func (s *Service) Users(ctx context.Context) ([]*models.User, error) {
	return fetch[[]*models.User](ctx, s, s.UsersQuery())
}

// UserTasksQuery lists the tasks assigned to one user.
func (s *Service) UserTasksQuery(userID int) Query {
	return Query{
		Key: UserTasksKey(userID),
		Loader: func(ctx context.Context) (any, error) {
			return list(ctx, "user tasks", s.backend.GetUserTasks(ctx, userID))
		},
	}
}

// UserTasks returns the cached task list of one user.
func (s *Service) UserTasks(ctx context.Context, userID int) ([]*models.Task, error) {
	return fetch[[]*models.Task](ctx, s, s.UserTasksQuery(userID))
}

// TasksQuery lists tasks matching filter. The backend can only narrow by board or
// by assignee, so the rest of the filter is applied here after enrichment.
func (s *Service) TasksQuery(filter models.TaskFilter) Query {
	return Query{
		Key: TasksKey(filter),
		Loader: func(ctx context.Context) (any, error) {
			return s.loadTasks(ctx, filter)
		},
	}
}

// Tasks returns the cached, filtered task list.
func (s *Service) Tasks(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error) {
	return fetch[[]*models.Task](ctx, s, s.TasksQuery(filter))
}

func (s *Service) loadTasks(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error) {
	var request *api.Request[[]*models.Task]

	switch {
	case filter.Board != 0:
		request = s.backend.GetBoardTasks(ctx, filter.Board)
	case filter.Assignee != 0:
		request = s.backend.GetUserTasks(ctx, filter.Assignee)
	default:
		request = s.backend.GetTasks(ctx, models.TaskFilter{})
	}

	tasks, err := list(ctx, "tasks", request)
	if err != nil {
		return nil, err
	}

	boards, err := s.Boards(ctx)
	if err != nil && !errors.Is(err, query.ErrCanceled) {
		log.Warn().Err(err).Msg("error loading boards for task enrichment")
	}

	users, err := s.Users(ctx)
	if err != nil && !errors.Is(err, query.ErrCanceled) {
		log.Warn().Err(err).Msg("error loading users for task enrichment")
	}

	return filter.Apply(models.Enrich(tasks, boards, users, filter)), nil
}
