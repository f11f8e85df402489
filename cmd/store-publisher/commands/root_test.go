package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ubuntu/store-publisher/cmd/store-publisher/commands"
	"github.com/ubuntu/store-publisher/internal/constants"
	"github.com/ubuntu/store-publisher/internal/testutils"
)

func TestRootCmd(t *testing.T) {
	t.Parallel()

	app, err := commands.New()
	require.NoError(t, err)

	cmd := app.RootCmd()
	assert.Equal(t, constants.CmdName, cmd.Name())

	for _, f := range []testutils.FlagCase{
		{Name: "verbose", Shorthand: "v", Persistent: true},
		{Name: "json-logs", Default: "false", Persistent: true},
		{Name: "config", Persistent: true},
		{Name: "app-id", Persistent: true},
		{Name: "client-secret", Persistent: true},
		{Name: "api-url", Default: constants.DefaultAPIURL, Persistent: true},
		{Name: "request-attempts", Default: "5", Persistent: true},
		{Name: "state-dir", Persistent: true, Dirname: true},
	} {
		testutils.CheckFlag(t, &cmd, f)
	}

	subs := make(map[string]bool)
	for _, c := range cmd.Commands() {
		subs[c.Name()] = true
	}
	for _, name := range []string{"publish", "delete-submission", "status", "version"} {
		assert.True(t, subs[name], "Root command should have the %s subcommand", name)
	}
}

func TestPublishFlags(t *testing.T) {
	t.Parallel()

	app, err := commands.New()
	require.NoError(t, err)

	root := app.RootCmd()
	cmd, _, err := root.Find([]string{"publish"})
	require.NoError(t, err, "publish command should exist")

	for _, f := range []testutils.FlagCase{
		{Name: "package-path", Dirname: true},
		{Name: "images-path", Default: ".", Dirname: true},
		{Name: "listing-file"},
		{Name: "delete-packages", Default: "false"},
		{Name: "packages-keep", Default: "5"},
		{Name: "delete-pending", Default: "false"},
		{Name: "skip-polling", Default: "false"},
		{Name: "poll-interval", Default: "1m0s"},
		{Name: "poll-max-interval", Default: "5m0s"},
		{Name: "poll-timeout", Default: "2h0m0s"},
		{Name: "poll-max-attempts", Default: "500"},
	} {
		testutils.CheckFlag(t, cmd, f)
	}
}

func TestConfigSources(t *testing.T) {
	tests := map[string]struct {
		config string
		env    map[string]string
		dotenv string
		args   []string

		wantAppID   string
		wantSecret  string
		wantKeep    int
		wantTimeout string
	}{
		"Defaults": {wantKeep: 5, wantTimeout: "2h0m0s"},
		"Configuration file": {
			config:    "app-id: FROMFILE\npackages-keep: 2\npoll-timeout: 30m\n",
			wantAppID: "FROMFILE", wantKeep: 2, wantTimeout: "30m0s",
		},
		"Environment over configuration file": {
			config:    "app-id: FROMFILE\n",
			env:       map[string]string{"STORE_PUBLISHER_APP_ID": "FROMENV", "STORE_PUBLISHER_POLL_TIMEOUT": "1h"},
			wantAppID: "FROMENV", wantKeep: 5, wantTimeout: "1h0m0s",
		},
		"Dotenv file": {
			dotenv:     "STORE_PUBLISHER_CLIENT_SECRET=fromdotenv\n",
			wantSecret: "fromdotenv", wantKeep: 5, wantTimeout: "2h0m0s",
		},
		"Flags over everything": {
			config:    "app-id: FROMFILE\n",
			env:       map[string]string{"STORE_PUBLISHER_APP_ID": "FROMENV"},
			args:      []string{"--app-id", "FROMFLAG", "--packages-keep", "3"},
			wantAppID: "FROMFLAG", wantKeep: 3, wantTimeout: "2h0m0s",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			dotenv := filepath.Join(t.TempDir(), "test.env")
			if tc.dotenv != "" {
				require.NoError(t, os.WriteFile(dotenv, []byte(tc.dotenv), 0600), "Setup: could not write dotenv file")
				// Loading the dotenv file sets the process environment.
				t.Cleanup(func() { _ = os.Unsetenv("STORE_PUBLISHER_CLIENT_SECRET") })
			}

			args := []string{"publish", "--skip-polling", "--env-file", dotenv}
			if tc.config != "" {
				args = append(args, "--config", writeConfig(t, tc.config))
			}
			args = append(args, tc.args...)

			app, err := commands.New()
			require.NoError(t, err)
			app.SetOut(&bytes.Buffer{})
			app.SetArgs(args...)

			// The run fails on missing credentials or app ID, after the configuration is loaded.
			_ = app.Run()

			conf := app.Config()
			require.Equal(t, tc.wantAppID, conf.AppID, "App ID should come from the expected source")
			require.Equal(t, tc.wantSecret, conf.ClientSecret, "Client secret should come from the expected source")
			require.Equal(t, tc.wantKeep, conf.Publish.PackagesKeep, "Packages to keep should come from the expected source")
			require.Equal(t, tc.wantTimeout, conf.Publish.PollTimeout.String(), "Poll timeout should come from the expected source")
		})
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()

	app, err := commands.New()
	require.NoError(t, err)

	out := &bytes.Buffer{}
	app.SetOut(out)
	app.SetArgs("version")
	require.NoError(t, app.Run(), "version should not return an error")
	require.Equal(t, constants.CmdName+"\t"+constants.Version+"\n", out.String())
}

func TestUsageError(t *testing.T) {
	t.Parallel()

	app, err := commands.New()
	require.NoError(t, err)

	app.SetOut(&bytes.Buffer{})
	app.SetArgs("--unknown-flag")
	require.Error(t, app.Run(), "Unknown flag should fail")
	assert.True(t, app.UsageError(), "Unknown flag should be a usage error")
}
