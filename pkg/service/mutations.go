package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/matt-steen/taskboard/pkg/api"
	"github.com/matt-steen/taskboard/pkg/models"
	"github.com/matt-steen/taskboard/pkg/query"
	"github.com/rs/zerolog/log"
)

func (s *Service) invalidate(ctx context.Context, keys ...query.Key) {
	for _, key := range keys {
		if err := s.cache.Invalidate(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key.String()).Msg("error refetching after mutation")
		}
	}
}

func (s *Service) notifyError(err error, msg string) {
	if errors.Is(err, api.ErrCanceled) {
		return
	}

	s.notifier.Error(msg)
}

// replaceInList swaps the task with the given id for replace(old) in the list at key, if cached.
func (s *Service) replaceInList(key query.Key, id int, replace func(old *models.Task) *models.Task) ([]*models.Task, bool) {
	return query.UpdateAs(s.cache, key, func(tasks []*models.Task) []*models.Task {
		updated := make([]*models.Task, len(tasks))

		for i, task := range tasks {
			if task.ID == id {
				updated[i] = replace(task)
			} else {
				updated[i] = task
			}
		}

		return updated
	})
}

// CreateTask creates a task. Nothing is written optimistically because the id is
// only known once the server answers; on success the task lists refetch.
func (s *Service) CreateTask(ctx context.Context, task models.CreateTaskRequest) (int, error) {
	resp, err := s.backend.CreateTask(ctx, task).Wait(ctx)
	if err != nil {
		s.notifyError(err, "Failed to create task")

		return 0, fmt.Errorf("error creating task '%s': %w", task.Title, err)
	}

	log.Info().Int("task_id", resp.ID).Int("board_id", task.BoardID).Msg("created task")

	s.invalidate(ctx, AllTasksKey(), BoardTasksKey(task.BoardID))
	s.notifier.Success("Task created successfully")

	return resp.ID, nil
}

// optimistic holds what was in the cache before an optimistic write.
type optimistic struct {
	task     *models.Task
	hadTask  bool
	tasks    []*models.Task
	hadTasks bool
	board    []*models.Task
	hadBoard bool
	boardID  int
}

// applyOptimistic writes next into the single-task cache and, when cached, into the
// all-tasks list and the task's board list. listTask maps the list entry for the task.
func (s *Service) applyOptimistic(
	id int, next func(prev *models.Task) *models.Task, listTask func(old *models.Task) *models.Task,
) optimistic {
	var snap optimistic

	snap.task, snap.hadTask = query.GetAs[*models.Task](s.cache, TaskKey(id))
	if !snap.hadTask || snap.task == nil {
		return snap
	}

	merged := next(snap.task)
	s.cache.SetData(TaskKey(id), func(any) any { return merged })

	snap.tasks, snap.hadTasks = s.replaceInList(AllTasksKey(), id, listTask)

	if snap.task.BoardID != 0 {
		snap.boardID = snap.task.BoardID
		snap.board, snap.hadBoard = s.replaceInList(BoardTasksKey(snap.boardID), id, listTask)
	}

	return snap
}

// restore puts the single-task snapshot back, plus the lists when lists is set.
func (s *Service) restore(id int, snap optimistic, lists bool) {
	if !snap.hadTask || snap.task == nil {
		return
	}

	s.cache.SetData(TaskKey(id), func(any) any { return snap.task })

	if !lists {
		return
	}

	if snap.hadTasks {
		s.cache.UpdateData(AllTasksKey(), func(any) any { return snap.tasks })
	}

	if snap.hadBoard {
		s.cache.UpdateData(BoardTasksKey(snap.boardID), func(any) any { return snap.board })
	}
}

// UpdateTask edits the fields of task id set in update. The merged task is shown
// immediately; on failure only the single-task cache is restored unless
// Options.RollbackLists is set, and the lists converge on their next refetch.
func (s *Service) UpdateTask(ctx context.Context, id int, update models.UpdateTaskRequest) error {
	s.cache.Cancel(TaskKey(id))
	s.cache.Cancel(AllTasksKey())

	if update.Status != nil {
		s.cache.Cancel(query.NewKey(KeyBoardTasks))
	}

	var merged *models.Task

	snap := s.applyOptimistic(id,
		func(prev *models.Task) *models.Task {
			merged = update.Apply(prev)

			return merged
		},
		func(*models.Task) *models.Task {
			return merged
		},
	)

	_, err := s.backend.UpdateTask(ctx, id, update).Wait(ctx)
	if err != nil {
		s.restore(id, snap, s.opts.RollbackLists)
		s.notifyError(err, "Failed to update task")

		return fmt.Errorf("error updating task %d: %w", id, err)
	}

	log.Info().Int("task_id", id).Msg("updated task")

	s.invalidate(ctx, TaskKey(id), AllTasksKey(), query.NewKey(KeyBoardTasks))
	s.notifier.Success("Task updated successfully")

	return nil
}

// UpdateTaskStatus moves task id to status. The new status is shown immediately; on
// failure the single-task cache is restored. Either way the task, the task lists and
// the task's board list are refetched afterwards. boardID is used when the task's
// board is not known from the cache.
func (s *Service) UpdateTaskStatus(ctx context.Context, id int, status models.Status, boardID int) error {
	if !status.Valid() {
		return fmt.Errorf("error updating task %d: unknown status '%s'", id, status)
	}

	s.cache.Cancel(TaskKey(id))
	s.cache.Cancel(AllTasksKey())

	withStatus := func(old *models.Task) *models.Task {
		moved := old.Clone()
		moved.Status = status

		return moved
	}

	snap := s.applyOptimistic(id, withStatus, withStatus)

	_, err := s.backend.UpdateTaskStatus(ctx, id, status).Wait(ctx)
	if err != nil {
		s.restore(id, snap, s.opts.RollbackLists)
		s.notifyError(err, "Failed to update task status")

		err = fmt.Errorf("error moving task %d to %s: %w", id, status, err)
	} else {
		log.Info().Int("task_id", id).Str("status", string(status)).Msg("updated task status")
	}

	keys := []query.Key{TaskKey(id), AllTasksKey()}

	if task, ok := query.GetAs[*models.Task](s.cache, TaskKey(id)); ok && task != nil && task.BoardID != 0 {
		boardID = task.BoardID
	}

	if boardID != 0 {
		keys = append(keys, BoardTasksKey(boardID))
	}

	// a cancelled caller still needs the caches to converge
	s.invalidate(context.WithoutCancel(ctx), keys...)

	return err
}
