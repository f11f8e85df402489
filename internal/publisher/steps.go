package publisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/ubuntu/decorate"
	"github.com/ubuntu/store-publisher/internal/artifact"
	"github.com/ubuntu/store-publisher/internal/constants"
	"github.com/ubuntu/store-publisher/internal/devcenter"
	"github.com/ubuntu/store-publisher/internal/poller"
)

func (p *Publisher) authenticate(ctx context.Context, r *run) (err error) {
	r.token, err = p.client.Authenticate(ctx)
	return err
}

func (p *Publisher) deletePending(ctx context.Context, r *run) (err error) {
	defer decorate.OnError(&err, "could not delete pending submission")

	app, err := p.client.GetApplication(ctx, r.token, p.cfg.AppID)
	if err != nil {
		return err
	}
	if app.PendingApplicationSubmission == nil || app.PendingApplicationSubmission.ID == "" {
		p.log.Info("No pending submission to delete")
		return nil
	}

	id := app.PendingApplicationSubmission.ID
	p.printf("Deleting submission %s", id)
	if err := p.client.DeleteSubmission(ctx, r.token, p.cfg.AppID, id); err != nil {
		return err
	}
	p.log.Info("Deleted pending submission", "submission", id)
	return nil
}

func (p *Publisher) create(ctx context.Context, r *run) (err error) {
	defer decorate.OnError(&err, "could not create submission")

	sub, err := p.client.CreateSubmission(ctx, r.token, p.cfg.AppID)
	if err != nil {
		return err
	}

	r.submission = sub
	r.report.SubmissionID = sub.ID
	r.report.DashboardURL = fmt.Sprintf(constants.DashboardURLFormat, p.cfg.AppID, sub.ID)
	p.printf("Created submission %s: %s", sub.ID, r.report.DashboardURL)
	p.log.Info("Created submission", "submission", sub.ID, "status", sub.Status, "mode", sub.TargetPublishMode)
	p.saveReceipt(r, "created")
	return nil
}

func (p *Publisher) prune(_ context.Context, r *run) error {
	n := devcenter.DeleteOldPackages(r.submission.ApplicationPackages, p.cfg.Steps.KeepPackages)
	p.log.Info("Flagged old packages for deletion", "count", n, "keep", p.cfg.Steps.KeepPackages)
	return nil
}

func (p *Publisher) update(ctx context.Context, r *run) (err error) {
	defer decorate.OnError(&err, "could not update submission metadata")

	r.submission.ApplicationPackages = devcenter.IncludePackages(r.packages, r.submission.ApplicationPackages)
	r.overlay.apply(&r.submission, p.log)

	updated, err := p.client.PutSubmission(ctx, r.token, p.cfg.AppID, r.submission)
	if err != nil {
		return err
	}
	if updated.ID == "" {
		updated.ID = r.submission.ID
	}
	if updated.FileUploadURL == "" {
		updated.FileUploadURL = r.submission.FileUploadURL
	}
	r.submission = updated
	return nil
}

func (p *Publisher) build(_ context.Context, r *run) (err error) {
	defer decorate.OnError(&err, "could not build upload archive")

	images := artifact.PendingImages(r.submission)
	p.log.Info("Found pending images", "count", len(images))

	r.archive, err = artifact.Build(r.workDir, r.packages, images, p.cfg.ImagesDir, p.log)
	if err != nil {
		return err
	}
	if r.archive.Len() == 0 {
		return nil
	}

	r.report.ArtifactDigest, err = r.archive.Digest()
	return err
}

func (p *Publisher) upload(ctx context.Context, r *run) (err error) {
	defer decorate.OnError(&err, "could not upload archive")

	if r.archive.Len() == 0 {
		p.printf("Nothing to upload")
		p.log.Info("Archive is empty, skipping upload")
		return nil
	}
	if r.submission.FileUploadURL == "" {
		return errors.New("submission has no file upload URL")
	}

	if err := p.client.UploadArtifact(ctx, r.submission.FileUploadURL, r.archive.Path()); err != nil {
		return err
	}
	r.report.Uploaded = true
	p.log.Info("Uploaded archive", "entries", r.archive.Len(), "digest", r.report.ArtifactDigest)
	p.saveReceipt(r, "uploaded")
	return nil
}

func (p *Publisher) commit(ctx context.Context, r *run) (err error) {
	defer decorate.OnError(&err, "could not commit submission")

	if err := p.checkToken(r); err != nil {
		return err
	}
	if err := p.client.CommitSubmission(ctx, r.token, p.cfg.AppID, r.submission.ID); err != nil {
		return err
	}

	r.report.Committed = true
	p.saveReceipt(r, "committed")
	if !p.cfg.Steps.Poll {
		p.printf("Submission %s committed, skipping status polling", r.submission.ID)
	}
	return nil
}

func (p *Publisher) poll(ctx context.Context, r *run) (err error) {
	defer decorate.OnError(&err, "submission processing did not complete")

	if err := p.checkToken(r); err != nil {
		return err
	}

	mode := r.submission.TargetPublishMode
	if mode == "" {
		mode = devcenter.PublishImmediate
	}

	res, err := p.poller.Poll(ctx, r.token, devcenter.SubmissionLocator(p.cfg.AppID, r.submission.ID), mode)
	r.report.Result = res
	if res != poller.Processing {
		p.saveReceipt(r, res.String())
	}
	if err != nil {
		return err
	}

	p.printf("Submission %s %s", r.submission.ID, res)
	return nil
}
