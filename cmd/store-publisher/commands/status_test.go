package commands_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ubuntu/store-publisher/internal/publisher"
	"github.com/ubuntu/store-publisher/internal/testutils"
	"gopkg.in/yaml.v3"
)

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		args     []string
		statuses []string
		receipt  bool
		wait     bool

		wantStatus   string
		wantResult   string
		wantErrors   []string
		wantCalls    []string
		wantErr      bool
		wantUsageErr bool
	}{
		"Prints the status of the given submission": {
			args:       []string{testutils.DefaultSubmissionID, "--app-id", appID},
			statuses:   []string{"Certification"},
			wantStatus: "Certification",
			wantResult: "processing",
			wantCalls:  []string{"token", "get", "status"},
		},
		"Prints the status of the receipt submission": {
			receipt:    true,
			statuses:   []string{"Published"},
			wantStatus: "Published",
			wantResult: "published",
			wantCalls:  []string{"token", "get", "status"},
		},
		"Prints the errors of a failed submission": {
			receipt:    true,
			statuses:   []string{"CertificationFailed"},
			wantStatus: "CertificationFailed",
			wantResult: "failed",
			wantErrors: []string{"InvalidPackage: The package is not signed"},
			wantCalls:  []string{"token", "get", "status"},
		},
		"Waits for the submission": {
			receipt:    true,
			wait:       true,
			statuses:   []string{"PreProcessing", "Certification", "Published"},
			wantStatus: "Published",
			wantResult: "published",
			wantCalls:  []string{"token", "get", "status", "status", "status", "status"},
		},

		"Error when waiting for a failing submission": {
			receipt:    true,
			wait:       true,
			statuses:   []string{"PreProcessing", "PreProcessingFailed"},
			wantStatus: "PreProcessingFailed",
			wantResult: "failed",
			wantErrors: []string{"InvalidPackage: The package is not signed"},
			wantCalls:  []string{"token", "get", "status", "status", "status"},
			wantErr:    true,
		},

		"Usage error without submission nor receipt": {wantErr: true, wantUsageErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := testutils.NewFakeStore(t)
			if tc.statuses != nil {
				store.Statuses = tc.statuses
			}
			stateDir := t.TempDir()
			if tc.receipt {
				rec := publisher.Receipt{AppID: appID, SubmissionID: testutils.DefaultSubmissionID, Committed: true, UpdatedAt: time.Now()}
				require.NoError(t, publisher.WriteReceipt(stateDir, rec), "Setup: could not write receipt")
			}

			args := append([]string{"status"}, tc.args...)
			if tc.wait {
				args = append(args, "--wait", "--config", writeConfig(t, "poll-interval: 1ms\npoll-max-interval: 2ms\n"))
			}

			app, out := newAppForTests(t, store, stateDir, false, args...)
			err := app.Run()

			require.Equal(t, tc.wantCalls, store.Calls(), "status should call the store in the expected order")
			if tc.wantUsageErr {
				require.Error(t, err, "status should return an error")
				require.True(t, app.UsageError(), "Error should be a usage error")
				return
			}
			if tc.wantErr {
				require.Error(t, err, "status should return an error")
				require.False(t, app.UsageError(), "Error should not be a usage error")
			} else {
				require.NoError(t, err, "status should not return an error")
			}

			var got struct {
				SubmissionID string   `yaml:"submission_id"`
				Status       string   `yaml:"status"`
				Result       string   `yaml:"result"`
				PublishMode  string   `yaml:"publish_mode"`
				Errors       []string `yaml:"errors"`
				DashboardURL string   `yaml:"dashboard_url"`
			}
			require.NoError(t, yaml.Unmarshal(out.Bytes(), &got), "status should print YAML")
			require.Equal(t, testutils.DefaultSubmissionID, got.SubmissionID)
			require.Equal(t, tc.wantStatus, got.Status)
			require.Equal(t, tc.wantResult, got.Result)
			require.Equal(t, "Immediate", got.PublishMode)
			require.Equal(t, tc.wantErrors, got.Errors)
			require.Contains(t, got.DashboardURL, appID)
		})
	}
}
