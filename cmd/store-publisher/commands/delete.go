package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/ubuntu/store-publisher/internal/publisher"
)

type deleteConfig struct {
	Force bool `mapstructure:"force"`
}

func installDeleteCmd(app *App) error {
	deleteCmd := &cobra.Command{
		Use:   "delete-submission [submission-id](optional argument)",
		Short: "Delete a submission that was not committed",
		Long: `Delete a submission of the application.

If no submission ID is provided, the submission of the last submission receipt is deleted, and the receipt is removed.
A committed submission of the receipt is only deleted with --force.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) > 0 {
				id = args[0]
			}

			slog.Info("Running delete-submission command")
			return app.deleteRun(cmd.Context(), cmd.OutOrStdout(), id)
		},
	}

	deleteCmd.Flags().BoolVarP(&app.config.Delete.Force, "force", "f", false, "delete the submission of the receipt even when it was committed")

	app.cmd.AddCommand(deleteCmd)
	return app.viper.BindPFlags(deleteCmd.Flags())
}

func (a *App) deleteRun(ctx context.Context, out io.Writer, id string) error {
	fromReceipt := id == ""
	if fromReceipt {
		rec, err := publisher.ReadReceipt(a.config.StateDir)
		if err != nil {
			if errors.Is(err, publisher.ErrNoReceipt) {
				a.cmd.SilenceUsage = false
				return fmt.Errorf("no submission ID given and %w", err)
			}
			return err
		}
		if a.config.AppID != "" && a.config.AppID != rec.AppID {
			return fmt.Errorf("last submission %s belongs to application %s, not %s", rec.SubmissionID, rec.AppID, a.config.AppID)
		}
		if rec.Committed && !a.config.Delete.Force {
			return fmt.Errorf("last submission %s was committed, use --force to delete it anyway", rec.SubmissionID)
		}
		a.config.AppID, id = rec.AppID, rec.SubmissionID
	}
	if err := a.requireAppID(); err != nil {
		return err
	}

	client, err := a.newClient(uuid.NewString())
	if err != nil {
		return err
	}
	token, err := client.Authenticate(ctx)
	if err != nil {
		return err
	}
	if err := client.DeleteSubmission(ctx, token, a.config.AppID, id); err != nil {
		return err
	}

	if fromReceipt {
		if err := publisher.RemoveReceipt(a.config.StateDir); err != nil {
			slog.Warn("Failed to remove submission receipt", "error", err)
		}
	}
	_, err = fmt.Fprintf(out, "Deleted submission %s\n", id)
	return err
}
