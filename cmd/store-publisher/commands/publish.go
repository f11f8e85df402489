package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/ubuntu/store-publisher/internal/constants"
	"github.com/ubuntu/store-publisher/internal/poller"
	"github.com/ubuntu/store-publisher/internal/publisher"
)

type publishConfig struct {
	PackagePath string `mapstructure:"package-path"`
	ImagesPath  string `mapstructure:"images-path"`
	ListingFile string `mapstructure:"listing-file"`

	DeletePackages bool `mapstructure:"delete-packages"`
	PackagesKeep   int  `mapstructure:"packages-keep"`
	DeletePending  bool `mapstructure:"delete-pending"`
	SkipPolling    bool `mapstructure:"skip-polling"`

	PollInterval    time.Duration `mapstructure:"poll-interval"`
	PollMaxInterval time.Duration `mapstructure:"poll-max-interval"`
	PollTimeout     time.Duration `mapstructure:"poll-timeout"`
	PollMaxAttempts int           `mapstructure:"poll-max-attempts"`
}

func installPublishCmd(app *App) error {
	publishCmd := &cobra.Command{
		Use:   "publish",
		Short: "Create, upload and commit a new submission",
		Long: `Create a new submission of the application with the packages of the package directory.

The packages and the listing images waiting for an upload are sent in a single archive, then the submission is committed.
Unless polling is skipped, the command waits until the store published the submission or rejected it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Running publish command")
			return app.publishRun(cmd.Context(), cmd.OutOrStdout())
		},
	}

	flags := publishCmd.Flags()
	flags.StringVar(&app.config.Publish.PackagePath, "package-path", "", "directory holding the packages to publish")
	flags.StringVar(&app.config.Publish.ImagesPath, "images-path", ".", "directory the listing images are read from, following their name in the listing")
	flags.StringVar(&app.config.Publish.ListingFile, "listing-file", "", "JSON file of base listing fields to set, per locale")

	flags.BoolVar(&app.config.Publish.DeletePackages, "delete-packages", false, "delete the oldest packages of the submission")
	flags.IntVar(&app.config.Publish.PackagesKeep, "packages-keep", constants.DefaultPackagesToKeep, "amount of packages to keep when deleting old packages")
	flags.BoolVar(&app.config.Publish.DeletePending, "delete-pending", false, "delete the pending submission of the application before creating a new one")
	flags.BoolVar(&app.config.Publish.SkipPolling, "skip-polling", false, "do not wait for the submission to be processed once committed")

	flags.DurationVar(&app.config.Publish.PollInterval, "poll-interval", constants.DefaultPollInterval, "base wait between two status checks")
	flags.DurationVar(&app.config.Publish.PollMaxInterval, "poll-max-interval", constants.DefaultPollMaxInterval, "maximum wait between two status checks")
	flags.DurationVar(&app.config.Publish.PollTimeout, "poll-timeout", constants.DefaultPollTimeout, "maximum time to wait for the submission to be processed")
	flags.IntVar(&app.config.Publish.PollMaxAttempts, "poll-max-attempts", constants.DefaultPollMaxAttempts, "maximum amount of status checks")

	if err := publishCmd.MarkFlagDirname("package-path"); err != nil {
		return err
	}
	if err := publishCmd.MarkFlagDirname("images-path"); err != nil {
		return err
	}
	if err := publishCmd.MarkFlagFilename("listing-file", "json", "jsonc"); err != nil {
		return err
	}

	app.cmd.AddCommand(publishCmd)
	return app.viper.BindPFlags(flags)
}

// pollerOptions returns the status poller settings of the configuration.
func (c publishConfig) pollerOptions() []poller.Options {
	return []poller.Options{
		poller.WithInterval(c.PollInterval, c.PollMaxInterval),
		poller.WithTimeout(c.PollTimeout),
		poller.WithMaxAttempts(c.PollMaxAttempts),
	}
}

func (a *App) publishRun(ctx context.Context, out io.Writer) error {
	if err := a.requireAppID(); err != nil {
		return err
	}

	runID := uuid.NewString()
	client, err := a.newClient(runID)
	if err != nil {
		return err
	}

	conf := a.config.Publish
	p, err := publisher.New(client, publisher.Config{
		AppID:       a.config.AppID,
		PackageDir:  conf.PackagePath,
		ImagesDir:   conf.ImagesPath,
		ListingFile: conf.ListingFile,
		StateDir:    a.config.StateDir,
		Steps: publisher.Steps{
			Prune:         conf.DeletePackages,
			KeepPackages:  conf.PackagesKeep,
			DeletePending: conf.DeletePending,
			Poll:          !conf.SkipPolling,
		},
	},
		publisher.WithRunID(runID),
		publisher.WithProgress(out),
		publisher.WithLogger(slog.Default()),
		publisher.WithPollerOptions(conf.pollerOptions()...),
	)
	if err != nil {
		if errors.Is(err, publisher.ErrMissingConfig) {
			a.cmd.SilenceUsage = false
		}
		return err
	}

	report, err := p.Run(ctx)
	if err != nil {
		return err
	}

	if report.Committed && report.Result == poller.Processing {
		_, err = fmt.Fprintf(out, "Submission %s committed: %s\n", report.SubmissionID, report.DashboardURL)
		return err
	}
	_, err = fmt.Fprintf(out, "Submission %s %s: %s\n", report.SubmissionID, report.Result, report.DashboardURL)
	return err
}
