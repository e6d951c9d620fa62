package cli

import (
	"errors"
	"fmt"

	"github.com/matt-steen/taskboard/pkg/draft"
	"github.com/spf13/cobra"
)

// ErrUnreachable is returned by the check command when the API does not answer.
var ErrUnreachable = errors.New("api unreachable")

func newCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the API is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd, app)
			defer cancel()

			client := app.Client(cmd.ErrOrStderr())
			if !client.CheckConnection(ctx) {
				return fmt.Errorf("error connecting to %s: %w", client.BaseURL(), ErrUnreachable)
			}

			return writeOut(cmd, app, map[string]any{"api_url": client.BaseURL(), "connected": true})
		},
	}
}

func newBoardsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "boards",
		Short: "List boards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd, app)
			defer cancel()

			boards, err := app.Service(cmd.ErrOrStderr()).Boards(ctx)
			if err != nil {
				return err
			}

			return writeOut(cmd, app, boards)
		},
	}
}

func newUsersCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd, app)
			defer cancel()

			users, err := app.Service(cmd.ErrOrStderr()).Users(ctx)
			if err != nil {
				return err
			}

			return writeOut(cmd, app, users)
		},
	}
}

func newDraftCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Inspect the saved task form draft",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the saved draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := draft.NewDatabase(cmd.Context(), app.Config.DraftDB)
			if err != nil {
				return err
			}
			defer store.Close()

			payload, err := store.Load(cmd.Context())
			if errors.Is(err, draft.ErrNoDraft) {
				return writeOut(cmd, app, nil)
			}

			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(payload))

			return err
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Discard the saved draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := draft.NewDatabase(cmd.Context(), app.Config.DraftDB)
			if err != nil {
				return err
			}
			defer store.Close()

			return store.Remove(cmd.Context())
		},
	}

	cmd.AddCommand(show, clearCmd)

	return cmd
}
