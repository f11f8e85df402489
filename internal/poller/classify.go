package poller

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ubuntu/store-publisher/internal/devcenter"
)

// Result is the classification of a submission status.
type Result int

const (
	// Processing means the service is still working on the submission.
	Processing Result = iota
	// Published means the submission reached the success state of its publish mode.
	Published
	// Failed means the service rejected the submission.
	Failed
	// NeedsAttention means the submission stopped without failing, and a manual action is required.
	NeedsAttention
)

func (r Result) String() string {
	switch r {
	case Processing:
		return "processing"
	case Published:
		return "published"
	case Failed:
		return "failed"
	case NeedsAttention:
		return "needs-attention"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

var (
	// ErrSubmissionFailed matches a FailedError of a rejected submission.
	ErrSubmissionFailed = errors.New("submission failed")
	// ErrNeedsAttention matches a FailedError of a submission requiring a manual action.
	ErrNeedsAttention = errors.New("submission requires a manual action")
)

// FailedError is returned when polling stops on a terminal state other than success.
type FailedError struct {
	Result  Result
	Status  string
	Reasons []string
}

func (e *FailedError) Error() string {
	msg := fmt.Sprintf("submission ended with status %s", e.Status)
	if e.Result == NeedsAttention {
		msg = fmt.Sprintf("submission stopped with status %s and requires a manual action", e.Status)
	}
	if len(e.Reasons) == 0 {
		return msg
	}
	return fmt.Sprintf("%s: %s", msg, strings.Join(e.Reasons, "; "))
}

// Is makes FailedError match ErrSubmissionFailed or ErrNeedsAttention, following its Result.
func (e *FailedError) Is(target error) bool {
	switch target {
	case ErrSubmissionFailed:
		return e.Result == Failed
	case ErrNeedsAttention:
		return e.Result == NeedsAttention
	}
	return false
}

var failedStatuses = map[string]bool{
	"CommitFailed":        true,
	"PreProcessingFailed": true,
	"CertificationFailed": true,
	"ReleaseFailed":       true,
	"PublishFailed":       true,
}

// Classify maps a remote submission status to a Result.
// Success depends on mode: a manually published submission is done once pending publication,
// and a scheduled one once released or pending publication.
func Classify(status string, mode devcenter.PublishMode) Result {
	if failedStatuses[status] {
		return Failed
	}

	switch status {
	case "Canceled":
		return NeedsAttention
	case "Published":
		return Published
	case "PendingPublication":
		if mode == devcenter.PublishManual || mode == devcenter.PublishSpecificDate {
			return Published
		}
	case "Release":
		if mode == devcenter.PublishSpecificDate {
			return Published
		}
	}
	return Processing
}

// reasons flattens the errors reported by the service, falling back to the certification reports.
func reasons(d devcenter.StatusDetails) []string {
	var r []string
	for _, e := range d.Errors {
		switch {
		case e.Code != "" && e.Details != "":
			r = append(r, fmt.Sprintf("%s: %s", e.Code, e.Details))
		case e.Details != "":
			r = append(r, e.Details)
		case e.Code != "":
			r = append(r, e.Code)
		}
	}
	if len(r) > 0 {
		return r
	}
	for _, c := range d.CertificationReports {
		if c.ReportURL != "" {
			r = append(r, fmt.Sprintf("certification report: %s", c.ReportURL))
		}
	}
	return r
}
