package cli

import (
	"fmt"
	"strconv"

	"github.com/matt-steen/taskboard/pkg/draft"
	"github.com/matt-steen/taskboard/pkg/form"
	"github.com/matt-steen/taskboard/pkg/models"
	"github.com/spf13/cobra"
)

func parseID(value string) (int, error) {
	id, err := strconv.Atoi(value)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("error parsing task id '%s': must be a positive integer", value)
	}

	return id, nil
}

func newTasksCmd(app *App) *cobra.Command {
	var (
		filter models.TaskFilter
		status string
	)

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" {
				parsed, err := models.ParseStatus(status)
				if err != nil {
					return err
				}

				filter.Status = parsed
			}

			ctx, cancel := commandContext(cmd, app)
			defer cancel()

			tasks, err := app.Service(cmd.ErrOrStderr()).Tasks(ctx, filter)
			if err != nil {
				return err
			}

			return writeOut(cmd, app, tasks)
		},
	}

	cmd.Flags().StringVar(&filter.Search, "search", "", "Case-insensitive title search")
	cmd.Flags().StringVar(&status, "status", "", "Only tasks with this status (Backlog, InProgress, Done)")
	cmd.Flags().IntVar(&filter.Board, "board", 0, "Only tasks of this board id")
	cmd.Flags().IntVar(&filter.Assignee, "assignee", 0, "Only tasks assigned to this user id")

	cmd.AddCommand(newTaskShowCmd(app))
	cmd.AddCommand(newTaskCreateCmd(app))
	cmd.AddCommand(newTaskUpdateCmd(app))
	cmd.AddCommand(newTaskMoveCmd(app))

	return cmd
}

func newTaskShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd, app)
			defer cancel()

			task, err := app.Service(cmd.ErrOrStderr()).Task(ctx, id)
			if err != nil {
				return err
			}

			return writeOut(cmd, app, task)
		},
	}
}

// newTaskCreateCmd goes through the same form state as the TUI so the
// required-field checks match.
func newTaskCreateCmd(app *App) *cobra.Command {
	var (
		values   form.Values
		priority string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := models.ParsePriority(priority)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd, app)
			defer cancel()

			f := form.New(ctx, &draft.Memory{}, nil)
			f.SetTitle(ctx, values.Title)
			f.SetDescription(ctx, values.Description)
			f.SetPriority(ctx, parsed)
			f.SetBoard(ctx, values.BoardID)
			f.SetAssignee(ctx, values.AssigneeID)

			result, err := f.Submit(ctx, app.Service(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			return writeOut(cmd, app, models.CreateTaskResponse{ID: result.TaskID})
		},
	}

	cmd.Flags().StringVar(&values.Title, "title", "", "Task title")
	cmd.Flags().StringVar(&values.Description, "description", "", "Task description")
	cmd.Flags().StringVar(&priority, "priority", string(models.PriorityMedium), "Priority (Low, Medium, High)")
	cmd.Flags().IntVar(&values.BoardID, "board", 0, "Board id")
	cmd.Flags().IntVar(&values.AssigneeID, "assignee", 0, "Assignee user id")

	return cmd
}

func newTaskUpdateCmd(app *App) *cobra.Command {
	var (
		title, description, priority, status string
		assignee                              int
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var update models.UpdateTaskRequest

			flags := cmd.Flags()

			if flags.Changed("title") {
				update.Title = &title
			}

			if flags.Changed("description") {
				update.Description = &description
			}

			if flags.Changed("priority") {
				parsed, err := models.ParsePriority(priority)
				if err != nil {
					return err
				}

				update.Priority = &parsed
			}

			if flags.Changed("status") {
				parsed, err := models.ParseStatus(status)
				if err != nil {
					return err
				}

				update.Status = &parsed
			}

			if flags.Changed("assignee") {
				update.AssigneeID = &assignee
			}

			if update == (models.UpdateTaskRequest{}) {
				return fmt.Errorf("error updating task %d: nothing to update", id)
			}

			ctx, cancel := commandContext(cmd, app)
			defer cancel()

			svc := app.Service(cmd.ErrOrStderr())
			if err := svc.UpdateTask(ctx, id, update); err != nil {
				return err
			}

			task, err := svc.Task(ctx, id)
			if err != nil {
				return err
			}

			return writeOut(cmd, app, task)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&priority, "priority", "", "New priority (Low, Medium, High)")
	cmd.Flags().StringVar(&status, "status", "", "New status (Backlog, InProgress, Done)")
	cmd.Flags().IntVar(&assignee, "assignee", 0, "New assignee user id")

	return cmd
}

func newTaskMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			status, err := models.ParseStatus(args[1])
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd, app)
			defer cancel()

			svc := app.Service(cmd.ErrOrStderr())
			if err := svc.UpdateTaskStatus(ctx, id, status, 0); err != nil {
				return err
			}

			task, err := svc.Task(ctx, id)
			if err != nil {
				return err
			}

			return writeOut(cmd, app, task)
		},
	}
}
