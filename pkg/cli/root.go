package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/matt-steen/taskboard/pkg/api"
	"github.com/matt-steen/taskboard/pkg/config"
	"github.com/matt-steen/taskboard/pkg/controller"
	"github.com/matt-steen/taskboard/pkg/draft"
	"github.com/matt-steen/taskboard/pkg/query"
	"github.com/matt-steen/taskboard/pkg/service"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// App carries the settings and the lazily built clients shared by the commands.
type App struct {
	Config config.Config

	envErr  error
	logFile io.Closer
	client  *api.Client
	svc     *service.Service
	runTUI  func(ctx context.Context, app *App) error
}

// NewRootCmd builds the taskboard command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(runTUI)
}

func newRootCmd(tui func(ctx context.Context, app *App) error) *cobra.Command {
	cfg, err := config.FromEnv()
	app := &App{Config: cfg, envErr: err, runTUI: tui}

	cmd := &cobra.Command{
		Use:          "taskboard",
		Short:        "Terminal client for the project management API",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  taskboard

  # Scriptable commands
  taskboard boards
  taskboard tasks --board 7 --assignee 3
  taskboard tasks move 12 Done
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			return app.runTUI(cmd.Context(), app)
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if app.envErr != nil {
			return app.envErr
		}

		if err := app.Config.Validate(); err != nil {
			return err
		}

		closer, err := initLogger(app.Config)
		if err != nil {
			return err
		}

		app.logFile = closer

		log.Info().Str("command", cmd.CommandPath()).Str("api_url", app.Config.APIURL).Msg("starting taskboard")

		return nil
	}

	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app.logFile != nil {
			return app.logFile.Close()
		}

		return nil
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&app.Config.APIURL, "api-url", app.Config.APIURL, "Base URL of the API (env "+config.EnvAPIURL+")")
	flags.DurationVar(&app.Config.Timeout, "timeout", app.Config.Timeout, "Request timeout (env "+config.EnvTimeout+")")
	flags.StringVar(&app.Config.LogFile, "log-file", app.Config.LogFile, "Log file (env "+config.EnvLogFile+")")
	flags.StringVar(&app.Config.LogLevel, "log-level", app.Config.LogLevel, "Log level (env "+config.EnvLogLevel+")")
	flags.StringVar(&app.Config.DraftDB, "draft-db", app.Config.DraftDB, "Task form draft database (env "+config.EnvDraftDB+")")
	flags.BoolVar(&app.Config.Pretty, "pretty", app.Config.Pretty, "Pretty-print JSON output (env "+config.EnvPretty+")")

	cmd.AddCommand(newCheckCmd(app))
	cmd.AddCommand(newBoardsCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newUsersCmd(app))
	cmd.AddCommand(newDraftCmd(app))

	return cmd
}

// Client returns the API client, reporting notifications on w.
func (app *App) Client(w io.Writer) *api.Client {
	if app.client == nil {
		app.client = api.NewClient(app.Config.APIURL, app.Config.Timeout, &api.WriterNotifier{W: w})
	}

	return app.client
}

// Service returns the task service over Client(w).
func (app *App) Service(w io.Writer) *service.Service {
	if app.svc == nil {
		notifier := &api.WriterNotifier{W: w}
		cache := query.NewCache(query.Options{})
		app.svc = service.New(app.Client(w), cache, notifier, service.Options{})
	}

	return app.svc
}

func runTUI(ctx context.Context, app *App) error {
	store, err := draft.NewDatabase(ctx, app.Config.DraftDB)
	if err != nil {
		return err
	}
	defer store.Close()

	client := api.NewClient(app.Config.APIURL, app.Config.Timeout, nil)
	svc := service.New(client, query.NewCache(query.Options{}), nil, service.Options{})

	ctrl, err := controller.NewController(ctx, client, svc, store)
	if err != nil {
		return err
	}

	return ctrl.Go()
}

// commandContext bounds a one-shot command by a few request timeouts.
func commandContext(cmd *cobra.Command, app *App) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithTimeout(ctx, 3*app.Config.Timeout+time.Second)
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	var (
		data []byte
		err  error
	)

	if app.Config.Pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return fmt.Errorf("error encoding output: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))

	return err
}
