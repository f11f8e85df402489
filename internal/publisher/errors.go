package publisher

import (
	"fmt"

	"github.com/ubuntu/store-publisher/internal/constants"
)

// StepError is the failure of a run step.
// When a submission was created and not committed, it is left on the store and the error tells how to remove it.
type StepError struct {
	Step         string
	AppID        string
	SubmissionID string
	Committed    bool
	Err          error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
	if e.SubmissionID == "" || e.Committed {
		return msg
	}
	return fmt.Sprintf("%s\nsubmission %s is left uncommitted, delete it with: %s",
		msg, e.SubmissionID, DeleteCommand(e.AppID, e.SubmissionID))
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Stale reports whether the failure left an uncommitted submission on the store.
func (e *StepError) Stale() bool {
	return e.SubmissionID != "" && !e.Committed
}

// DeleteCommand returns the command line deleting a submission.
func DeleteCommand(appID, submissionID string) string {
	return fmt.Sprintf("%s delete-submission --app-id %s %s", constants.CmdName, appID, submissionID)
}
