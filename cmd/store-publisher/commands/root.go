// Package commands is the command line surface of store-publisher.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/ubuntu/store-publisher/internal/cli"
	"github.com/ubuntu/store-publisher/internal/constants"
	"github.com/ubuntu/store-publisher/internal/devcenter"
)

// App represents the application.
type App struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	config appConfig

	opts options
}

// appConfig holds the configuration for the application.
type appConfig struct {
	Verbosity int  `mapstructure:"verbose"`
	JSONLogs  bool `mapstructure:"json-logs"`

	AppID        string `mapstructure:"app-id"`
	TenantID     string `mapstructure:"tenant-id"`
	ClientID     string `mapstructure:"client-id"`
	ClientSecret string `mapstructure:"client-secret"`

	APIURL          string        `mapstructure:"api-url"`
	AuthURL         string        `mapstructure:"auth-url"`
	RequestAttempts int           `mapstructure:"request-attempts"`
	ResponseTimeout time.Duration `mapstructure:"response-timeout"`
	UploadTimeout   time.Duration `mapstructure:"upload-timeout"`

	StateDir string   `mapstructure:"state-dir"`
	EnvFiles []string `mapstructure:"env-file"`

	Publish publishConfig `mapstructure:",squash"`
	Delete  deleteConfig  `mapstructure:",squash"`
	Status  statusConfig  `mapstructure:",squash"`
}

type options struct {
	clientOpts []devcenter.Options
}

// Options represents an optional function to override App default values.
type Options func(*options)

// New registers commands and return a new App.
func New(args ...Options) (*App, error) {
	a := App{}
	for _, opt := range args {
		opt(&a.opts)
	}

	a.cmd = &cobra.Command{
		Use:   constants.CmdName,
		Short: "Publish application packages to the Microsoft Store",
		Long: `Publish application packages and their listing images to the Microsoft Store.

Credentials and settings can be given as flags, in a configuration file, as STORE_PUBLISHER_ prefixed
environment variables, or in a .env file of the current directory.`,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Command parsing has been successful. Returns to not print usage anymore.
			a.cmd.SilenceUsage = true
			cli.SetSlog(a.config.Verbosity, a.config.JSONLogs) // Set verbosity before loading config

			if err := cli.LoadDotEnv(a.config.EnvFiles...); err != nil {
				return err
			}
			if err := cli.InitViperConfig(constants.CmdName, cmd, a.viper); err != nil {
				return err
			}
			if err := a.viper.Unmarshal(&a.config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			))); err != nil {
				return fmt.Errorf("unable to decode configuration into struct: %w", err)
			}
			slog.Debug("Got app config", "app", a.config.AppID, "tenant", a.config.TenantID, "client", a.config.ClientID, "api", a.config.APIURL)

			cli.SetSlog(a.config.Verbosity, a.config.JSONLogs) // Update logging after loading config if necessary
			return nil
		},
	}
	a.viper = viper.New()
	a.cmd.CompletionOptions.HiddenDefaultCmd = true

	installRootCmd(&a)
	cli.InstallConfigFlag(a.cmd)

	if err := a.viper.BindPFlags(a.cmd.PersistentFlags()); err != nil {
		return nil, err
	}

	for _, install := range []func(*App) error{installPublishCmd, installDeleteCmd, installStatusCmd} {
		if err := install(&a); err != nil {
			return nil, err
		}
	}
	a.installVersion()

	return &a, nil
}

func installRootCmd(app *App) {
	cmd := app.cmd

	cmd.PersistentFlags().CountVarP(&app.config.Verbosity, "verbose", "v", "issue INFO (-v), DEBUG (-vv)")
	cmd.PersistentFlags().BoolVar(&app.config.JSONLogs, "json-logs", false, "enable JSON formatted logs")
	cmd.PersistentFlags().StringSliceVar(&app.config.EnvFiles, "env-file", []string{".env"}, "dotenv files to load variables from, when they exist")

	cmd.PersistentFlags().StringVar(&app.config.AppID, "app-id", "", "Store ID of the application")
	cmd.PersistentFlags().StringVar(&app.config.TenantID, "tenant-id", "", "Azure AD tenant ID of the Partner Center account")
	cmd.PersistentFlags().StringVar(&app.config.ClientID, "client-id", "", "client ID of the Azure AD application")
	cmd.PersistentFlags().StringVar(&app.config.ClientSecret, "client-secret", "", "client secret of the Azure AD application")

	cmd.PersistentFlags().StringVar(&app.config.APIURL, "api-url", constants.DefaultAPIURL, "root URL of the submission API")
	cmd.PersistentFlags().StringVar(&app.config.AuthURL, "auth-url", constants.DefaultAuthURL, "URL of the Azure AD authority")
	cmd.PersistentFlags().IntVar(&app.config.RequestAttempts, "request-attempts", constants.DefaultMaxAttempts, "maximum attempts of a request failing with a server error")
	cmd.PersistentFlags().DurationVar(&app.config.ResponseTimeout, "response-timeout", constants.DefaultResponseTimeout, "timeout of a single API request")
	cmd.PersistentFlags().DurationVar(&app.config.UploadTimeout, "upload-timeout", constants.DefaultUploadTimeout, "timeout of the archive upload")

	cmd.PersistentFlags().StringVar(&app.config.StateDir, "state-dir", constants.GetDefaultStatePath(), "directory of the last submission receipt")

	if err := cmd.MarkPersistentFlagDirname("state-dir"); err != nil {
		panic(fmt.Errorf("failed to mark state-dir flag as directory: %w", err))
	}
}

// Run executes the command and associated process, returning an error if any.
// An interrupt signal cancels the running command.
func (a App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.cmd.ExecuteContext(ctx)
}

// UsageError returns if the error is a command parsing or runtime one.
func (a App) UsageError() bool {
	return !a.cmd.SilenceUsage
}

// RootCmd returns the root command.
func (a App) RootCmd() cobra.Command {
	return *a.cmd
}

// newClient returns a store API client from the configuration.
// Missing credentials are reported as a usage error.
func (a *App) newClient(correlationID string) (*devcenter.Client, error) {
	opts := []devcenter.Options{
		devcenter.WithAPIURL(a.config.APIURL),
		devcenter.WithAuthURL(a.config.AuthURL),
		devcenter.WithCorrelationID(correlationID),
		devcenter.WithMaxAttempts(a.config.RequestAttempts),
		devcenter.WithResponseTimeout(a.config.ResponseTimeout),
		devcenter.WithUploadTimeout(a.config.UploadTimeout),
	}
	opts = append(opts, a.opts.clientOpts...)

	c, err := devcenter.New(devcenter.Credentials{
		TenantID:     a.config.TenantID,
		ClientID:     a.config.ClientID,
		ClientSecret: a.config.ClientSecret,
	}, opts...)
	if errors.Is(err, devcenter.ErrMissingCredentials) {
		a.cmd.SilenceUsage = false
	}
	return c, err
}

// requireAppID reports a missing application ID as a usage error.
func (a *App) requireAppID() error {
	if a.config.AppID == "" {
		a.cmd.SilenceUsage = false
		return errors.New("an application ID is required, set it with --app-id")
	}
	return nil
}
