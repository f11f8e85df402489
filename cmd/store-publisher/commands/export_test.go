package commands

import (
	"io"

	"github.com/ubuntu/store-publisher/internal/devcenter"
)

type (
	AppConfig = appConfig
)

// Config returns the configuration of the app.
func (a *App) Config() AppConfig {
	return a.config
}

// SetArgs sets the arguments for the command.
func (a *App) SetArgs(args ...string) {
	a.cmd.SetArgs(args)
}

// SetOut sets where the commands print their output.
func (a *App) SetOut(w io.Writer) {
	a.cmd.SetOut(w)
}

// WithClientOptions adds options to the store API clients created by the app.
func WithClientOptions(opts ...devcenter.Options) Options {
	return func(o *options) {
		o.clientOpts = append(o.clientOpts, opts...)
	}
}
