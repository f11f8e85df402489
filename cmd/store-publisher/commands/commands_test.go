package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ubuntu/store-publisher/cmd/store-publisher/commands"
	"github.com/ubuntu/store-publisher/internal/devcenter"
	"github.com/ubuntu/store-publisher/internal/testutils"
)

const appID = "9NBLGGH4R315"

// newAppForTests returns an app talking to store, with its state in stateDir, and the buffer its output goes to.
// Credentials are given unless noCreds is set.
func newAppForTests(t *testing.T, store *testutils.FakeStore, stateDir string, noCreds bool, args ...string) (*commands.App, *bytes.Buffer) {
	t.Helper()

	args = append(args,
		"--api-url", store.APIURL(),
		"--auth-url", store.URL,
		"--state-dir", stateDir,
		"--env-file", filepath.Join(t.TempDir(), "missing.env"),
	)
	if !noCreds {
		args = append(args, "--tenant-id", "tenant", "--client-id", "client", "--client-secret", "s3cr3t")
	}

	app, err := commands.New(commands.WithClientOptions(
		devcenter.WithRetryPeriods(time.Millisecond, time.Millisecond),
	))
	require.NoError(t, err, "Setup: could not create app")

	out := &bytes.Buffer{}
	app.SetOut(out)
	app.SetArgs(args...)
	return app, out
}

// writeConfig writes a configuration file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "store-publisher.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0600), "Setup: could not write configuration file")
	return p
}
