// Package publisher runs the submission lifecycle of an application:
// it creates a submission, attaches the local packages, uploads them with the pending listing images, commits,
// and waits for the store to process it.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/ubuntu/store-publisher/internal/artifact"
	"github.com/ubuntu/store-publisher/internal/constants"
	"github.com/ubuntu/store-publisher/internal/devcenter"
	"github.com/ubuntu/store-publisher/internal/poller"
)

// ErrMissingConfig is returned by New when a required setting is empty.
var ErrMissingConfig = errors.New("missing required setting")

// Client is the store API used along a run.
type Client interface {
	Authenticate(ctx context.Context) (devcenter.AccessToken, error)
	GetApplication(ctx context.Context, token devcenter.AccessToken, appID string) (devcenter.Application, error)
	CreateSubmission(ctx context.Context, token devcenter.AccessToken, appID string) (devcenter.Submission, error)
	PutSubmission(ctx context.Context, token devcenter.AccessToken, appID string, sub devcenter.Submission) (devcenter.Submission, error)
	UploadArtifact(ctx context.Context, uploadURL, path string) error
	CommitSubmission(ctx context.Context, token devcenter.AccessToken, appID, submissionID string) error
	DeleteSubmission(ctx context.Context, token devcenter.AccessToken, appID, submissionID string) error
	GetSubmissionStatus(ctx context.Context, token devcenter.AccessToken, locator string) (devcenter.SubmissionStatus, error)
}

// Steps selects the optional steps of a run.
type Steps struct {
	// Prune flags the oldest packages of the submission for deletion, keeping KeepPackages of them.
	Prune        bool
	KeepPackages int
	// DeletePending deletes the pending submission of the application, left by an earlier run, before creating a new one.
	DeletePending bool
	// Poll waits for the committed submission to be published.
	Poll bool
}

// Config is the input of a run.
type Config struct {
	AppID      string
	PackageDir string
	// ImagesDir is the directory the pending listing images are read from, following their remote file name.
	ImagesDir string
	// ListingFile is an optional JSON with comments file of base listing fields to set per locale.
	ListingFile string
	// StateDir is where the run receipt is written. No receipt is written when empty.
	StateDir string
	// WorkDir is where the archive is assembled. A temporary directory is used when empty.
	WorkDir string

	Steps Steps
}

// Report sums up a run.
type Report struct {
	RunID          string
	SubmissionID   string
	DashboardURL   string
	Uploaded       bool
	ArtifactDigest string
	Committed      bool
	// Result is Processing when polling is skipped.
	Result poller.Result
}

// Publisher runs the submission lifecycle of one application.
type Publisher struct {
	client Client
	cfg    Config
	poller *poller.Poller

	runID    string
	progress io.Writer
	now      func() time.Time
	log      *slog.Logger
}

type options struct {
	runID      string
	progress   io.Writer
	pollerOpts []poller.Options
	now        func() time.Time
	log        *slog.Logger
}

// Options represents an optional function to override Publisher default values.
type Options func(*options)

// WithRunID sets the identifier of the run, used in logs. A random UUID is used by default.
func WithRunID(id string) Options {
	return func(o *options) {
		o.runID = id
	}
}

// WithProgress sets where the step progress lines are printed. They are discarded by default.
func WithProgress(w io.Writer) Options {
	return func(o *options) {
		o.progress = w
	}
}

// WithPollerOptions sets the options of the status poller.
func WithPollerOptions(opts ...poller.Options) Options {
	return func(o *options) {
		o.pollerOpts = append(o.pollerOpts, opts...)
	}
}

// WithLogger sets the logger of the publisher.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// New returns a Publisher running cfg against client.
func New(client Client, cfg Config, args ...Options) (*Publisher, error) {
	if cfg.AppID == "" {
		return nil, fmt.Errorf("%w: application ID", ErrMissingConfig)
	}
	if cfg.PackageDir == "" {
		return nil, fmt.Errorf("%w: package directory", ErrMissingConfig)
	}
	if cfg.Steps.Prune && cfg.Steps.KeepPackages < 1 {
		return nil, fmt.Errorf("amount of packages to keep must be at least 1, got %d", cfg.Steps.KeepPackages)
	}
	if cfg.ImagesDir == "" {
		cfg.ImagesDir = "."
	}

	opts := options{
		runID:    uuid.NewString(),
		progress: io.Discard,
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range args {
		opt(&opts)
	}

	log := opts.log.With("run", opts.runID)
	return &Publisher{
		client:   client,
		cfg:      cfg,
		poller:   poller.New(client, append([]poller.Options{poller.WithLogger(log)}, opts.pollerOpts...)...),
		runID:    opts.runID,
		progress: opts.progress,
		now:      opts.now,
		log:      log,
	}, nil
}

// run is the state shared by the steps of one Run call.
type run struct {
	token      devcenter.AccessToken
	packages   []string
	overlay    listingOverlay
	workDir    string
	submission devcenter.Submission
	archive    *artifact.Archive
	report     Report
}

// step is one state of the run. Steps are executed in order, a failure stops the run.
type step struct {
	name     string
	progress string
	do       func(context.Context, *run) error
}

// plan returns the steps of a run, optional ones included following the configuration.
func (p *Publisher) plan() []step {
	steps := []step{{"authenticate", "Authenticating", p.authenticate}}
	if p.cfg.Steps.DeletePending {
		steps = append(steps, step{"delete-pending", "Deleting pending submission", p.deletePending})
	}
	steps = append(steps, step{"create", "Creating submission", p.create})
	if p.cfg.Steps.Prune {
		steps = append(steps, step{"prune", "Deleting old packages", p.prune})
	}
	steps = append(steps,
		step{"update", "Updating submission metadata", p.update},
		step{"build", "Building upload archive", p.build},
		step{"upload", "Uploading archive", p.upload},
		step{"commit", "Committing submission", p.commit},
	)
	if p.cfg.Steps.Poll {
		steps = append(steps, step{"poll", "Waiting for submission processing", p.poll})
	}
	return steps
}

// Run publishes the local packages as a new submission.
// Local files are checked before any remote call.
// A failure after the submission creation is returned as a *StepError naming the submission left behind.
func (p *Publisher) Run(ctx context.Context) (Report, error) {
	r := &run{report: Report{RunID: p.runID}}

	if err := p.prepare(r); err != nil {
		return r.report, err
	}
	defer p.cleanup(r)

	for _, s := range p.plan() {
		p.printf("%s...", s.progress)
		p.log.Info("Starting step", "step", s.name)
		if err := s.do(ctx, r); err != nil {
			p.log.Debug("Step failed", "step", s.name, "error", err)
			return r.report, &StepError{
				Step:         s.name,
				AppID:        p.cfg.AppID,
				SubmissionID: r.report.SubmissionID,
				Committed:    r.report.Committed,
				Err:          err,
			}
		}
	}

	return r.report, nil
}

// prepare reads every local input of the run.
func (p *Publisher) prepare(r *run) (err error) {
	r.packages, err = artifact.DiscoverPackages(p.cfg.PackageDir)
	if err != nil {
		return err
	}
	p.log.Info("Found packages", "count", len(r.packages), "dir", p.cfg.PackageDir)
	if len(r.packages) == 0 {
		p.log.Warn("No package found, only pending images will be uploaded", "dir", p.cfg.PackageDir)
	}

	if p.cfg.ListingFile != "" {
		if r.overlay, err = readListingOverlay(p.cfg.ListingFile); err != nil {
			return err
		}
	}

	r.workDir = p.cfg.WorkDir
	if r.workDir == "" {
		if r.workDir, err = os.MkdirTemp("", constants.CmdName+"-*"); err != nil {
			return fmt.Errorf("could not create work directory: %v", err)
		}
	}
	return nil
}

func (p *Publisher) cleanup(r *run) {
	if r.archive != nil {
		if err := r.archive.Remove(); err != nil {
			p.log.Warn("Failed to remove upload archive", "file", r.archive.Path(), "error", err)
		}
	}
	if p.cfg.WorkDir == "" {
		if err := os.RemoveAll(r.workDir); err != nil {
			p.log.Warn("Failed to remove work directory", "dir", r.workDir, "error", err)
		}
	}
}

func (p *Publisher) printf(format string, a ...any) {
	fmt.Fprintf(p.progress, format+"\n", a...)
}

// checkToken fails when the token of the run can no longer be sent.
func (p *Publisher) checkToken(r *run) error {
	if !r.token.Valid(p.now()) {
		return devcenter.ErrTokenExpired
	}
	return nil
}
