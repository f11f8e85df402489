package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/ubuntu/store-publisher/internal/constants"
	"github.com/ubuntu/store-publisher/internal/devcenter"
	"github.com/ubuntu/store-publisher/internal/poller"
	"github.com/ubuntu/store-publisher/internal/publisher"
	"gopkg.in/yaml.v3"
)

type statusConfig struct {
	Wait bool `mapstructure:"wait"`
}

// statusReport is the output of the status command.
type statusReport struct {
	SubmissionID string   `yaml:"submission_id"`
	Status       string   `yaml:"status"`
	Result       string   `yaml:"result"`
	PublishMode  string   `yaml:"publish_mode,omitempty"`
	Errors       []string `yaml:"errors,omitempty"`
	Warnings     []string `yaml:"warnings,omitempty"`
	DashboardURL string   `yaml:"dashboard_url"`
}

func installStatusCmd(app *App) error {
	statusCmd := &cobra.Command{
		Use:   "status [submission-id](optional argument)",
		Short: "Print the status of a submission",
		Long: `Print the status of a submission of the application, as YAML.

If no submission ID is provided, the submission of the last submission receipt is used.
With --wait, the command waits for the submission to be processed, with the polling settings of the publish command.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) > 0 {
				id = args[0]
			}

			slog.Info("Running status command")
			return app.statusRun(cmd.Context(), cmd.OutOrStdout(), id)
		},
	}

	statusCmd.Flags().BoolVarP(&app.config.Status.Wait, "wait", "w", false, "wait for the submission to be processed")

	app.cmd.AddCommand(statusCmd)
	return app.viper.BindPFlags(statusCmd.Flags())
}

func (a *App) statusRun(ctx context.Context, out io.Writer, id string) error {
	if id == "" {
		rec, err := publisher.ReadReceipt(a.config.StateDir)
		if err != nil {
			if errors.Is(err, publisher.ErrNoReceipt) {
				a.cmd.SilenceUsage = false
				return fmt.Errorf("no submission ID given and %w", err)
			}
			return err
		}
		if a.config.AppID == "" {
			a.config.AppID = rec.AppID
		}
		id = rec.SubmissionID
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
	sub, err := client.GetSubmission(ctx, token, a.config.AppID, id)
	if err != nil {
		return err
	}

	mode := sub.TargetPublishMode
	if mode == "" {
		mode = devcenter.PublishImmediate
	}
	locator := devcenter.SubmissionLocator(a.config.AppID, id)

	var pollErr error
	if a.config.Status.Wait {
		p := poller.New(client, append(a.config.Publish.pollerOptions(), poller.WithLogger(slog.Default()))...)
		if _, pollErr = p.Poll(ctx, token, locator, mode); pollErr != nil && !isTerminal(pollErr) {
			return pollErr
		}
	}

	st, err := client.GetSubmissionStatus(ctx, token, locator)
	if err != nil {
		return err
	}

	r := statusReport{
		SubmissionID: id,
		Status:       st.Status,
		Result:       poller.Classify(st.Status, mode).String(),
		PublishMode:  string(sub.TargetPublishMode),
		Errors:       issues(st.StatusDetails.Errors),
		Warnings:     issues(st.StatusDetails.Warnings),
		DashboardURL: fmt.Sprintf(constants.DashboardURLFormat, a.config.AppID, id),
	}
	d, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("could not format status: %v", err)
	}
	if _, err := out.Write(d); err != nil {
		return err
	}

	// A rejected submission is a failure of the wait.
	return pollErr
}

// isTerminal reports whether a polling error comes from the submission reaching a final state.
func isTerminal(err error) bool {
	return errors.Is(err, poller.ErrSubmissionFailed) || errors.Is(err, poller.ErrNeedsAttention)
}

func issues(in []devcenter.StatusIssue) []string {
	var out []string
	for _, i := range in {
		out = append(out, fmt.Sprintf("%s: %s", i.Code, i.Details))
	}
	return out
}
