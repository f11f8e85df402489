package cmdutils_test

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ubuntu/store-publisher/internal/cmdutils"
)

func TestRun(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		exitCode int
		timeout  time.Duration

		wantErr bool
	}{
		"Successful command":       {},
		"Command failing":          {exitCode: 3},
		"Error on command timeout": {timeout: time.Nanosecond, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if tc.timeout == 0 {
				tc.timeout = time.Minute
			}
			env := []string{"CMDUTILS_HELPER_PROCESS=1", "CMDUTILS_HELPER_EXIT=" + strconv.Itoa(tc.exitCode)}

			got, err := cmdutils.RunWithTimeout(context.Background(), tc.timeout, "", env, os.Args[0], "-test.run=TestHelperProcess")
			if tc.wantErr {
				require.Error(t, err, "RunWithTimeout should return an error")
				return
			}
			require.NoError(t, err, "RunWithTimeout should not return an error")
			require.Equal(t, tc.exitCode, got.ExitCode, "RunWithTimeout should report the exit code")
			require.Contains(t, got.Stdout, "to stdout", "RunWithTimeout should capture stdout")
			require.Contains(t, got.Stderr, "to stderr", "RunWithTimeout should capture stderr")
		})
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("CMDUTILS_HELPER_PROCESS") != "1" {
		t.Skip("Helper process for TestRun")
	}

	fmt.Fprintln(os.Stdout, "to stdout")
	fmt.Fprintln(os.Stderr, "to stderr")
	code, _ := strconv.Atoi(os.Getenv("CMDUTILS_HELPER_EXIT"))
	os.Exit(code)
}
