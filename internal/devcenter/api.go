package devcenter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// SubmissionLocator returns the resource location of a submission, relative to the API root.
func SubmissionLocator(appID, submissionID string) string {
	return strings.Join([]string{"applications", appID, "submissions", submissionID}, "/")
}

// GetApplication returns the application resource.
func (c *Client) GetApplication(ctx context.Context, token AccessToken, appID string) (app Application, err error) {
	body, err := c.send(ctx, request{
		client: c.httpClient,
		method: http.MethodGet,
		url:    c.endpoint("applications", appID),
		token:  token.Value,
	})
	if err != nil {
		return app, fmt.Errorf("failed to get application %s: %w", appID, err)
	}
	if err := json.Unmarshal(body, &app); err != nil {
		return app, fmt.Errorf("failed to parse application %s: %v", appID, err)
	}
	return app, nil
}

// CreateSubmission creates a new submission for the application, cloned by the service from the last published one.
func (c *Client) CreateSubmission(ctx context.Context, token AccessToken, appID string) (sub Submission, err error) {
	body, err := c.send(ctx, request{
		client: c.httpClient,
		method: http.MethodPost,
		url:    c.endpoint("applications", appID, "submissions"),
		token:  token.Value,
		header: http.Header{"Content-Type": {"application/json"}},
	})
	if err != nil {
		return sub, fmt.Errorf("failed to create submission for %s: %w", appID, err)
	}
	if err := json.Unmarshal(body, &sub); err != nil {
		return sub, fmt.Errorf("failed to parse created submission: %v", err)
	}
	if sub.ID == "" {
		return sub, fmt.Errorf("created submission has no ID")
	}
	return sub, nil
}

// GetSubmission returns the submission resource.
func (c *Client) GetSubmission(ctx context.Context, token AccessToken, appID, submissionID string) (sub Submission, err error) {
	body, err := c.send(ctx, request{
		client: c.httpClient,
		method: http.MethodGet,
		url:    c.endpoint(SubmissionLocator(appID, submissionID)),
		token:  token.Value,
	})
	if err != nil {
		return sub, fmt.Errorf("failed to get submission %s: %w", submissionID, err)
	}
	if err := json.Unmarshal(body, &sub); err != nil {
		return sub, fmt.Errorf("failed to parse submission %s: %v", submissionID, err)
	}
	return sub, nil
}

// PutSubmission replaces the whole submission document with sub, and returns the document as stored by the service.
func (c *Client) PutSubmission(ctx context.Context, token AccessToken, appID string, sub Submission) (updated Submission, err error) {
	payload, err := jsonBody(sub)
	if err != nil {
		return updated, err
	}

	body, err := c.send(ctx, request{
		client: c.httpClient,
		method: http.MethodPut,
		url:    c.endpoint(SubmissionLocator(appID, sub.ID)),
		token:  token.Value,
		header: http.Header{"Content-Type": {"application/json"}},
		body:   payload,
	})
	if err != nil {
		return updated, fmt.Errorf("failed to update submission %s: %w", sub.ID, err)
	}
	if len(body) == 0 {
		return sub, nil
	}
	if err := json.Unmarshal(body, &updated); err != nil {
		return updated, fmt.Errorf("failed to parse updated submission %s: %v", sub.ID, err)
	}
	return updated, nil
}

// CommitSubmission asks the service to start processing the submission.
func (c *Client) CommitSubmission(ctx context.Context, token AccessToken, appID, submissionID string) error {
	_, err := c.send(ctx, request{
		client: c.httpClient,
		method: http.MethodPost,
		url:    c.endpoint(SubmissionLocator(appID, submissionID), "commit"),
		token:  token.Value,
		header: http.Header{"Content-Type": {"application/json"}},
	})
	if err != nil {
		return fmt.Errorf("failed to commit submission %s: %w", submissionID, err)
	}
	return nil
}

// GetSubmissionStatus returns the current status of the submission at locator.
func (c *Client) GetSubmissionStatus(ctx context.Context, token AccessToken, locator string) (status SubmissionStatus, err error) {
	body, err := c.send(ctx, request{
		client: c.httpClient,
		method: http.MethodGet,
		url:    c.endpoint(locator, "status"),
		token:  token.Value,
	})
	if err != nil {
		return status, fmt.Errorf("failed to get status of %s: %w", locator, err)
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return status, fmt.Errorf("failed to parse status of %s: %v", locator, err)
	}
	return status, nil
}

// DeleteSubmission deletes a submission that has not been committed yet.
func (c *Client) DeleteSubmission(ctx context.Context, token AccessToken, appID, submissionID string) error {
	_, err := c.send(ctx, request{
		client:  c.httpClient,
		method:  http.MethodDelete,
		url:     c.endpoint(SubmissionLocator(appID, submissionID)),
		token:   token.Value,
		success: http.StatusNoContent,
	})
	if err != nil {
		return fmt.Errorf("failed to delete submission %s: %w", submissionID, err)
	}
	return nil
}

// UploadArtifact uploads the archive at path to the blob URL of a submission.
// The file is streamed, and opened again for each attempt.
func (c *Client) UploadArtifact(ctx context.Context, uploadURL, path string) error {
	if uploadURL == "" {
		return fmt.Errorf("submission has no file upload URL")
	}

	_, err := c.send(ctx, request{
		client: c.uploadClient,
		method: http.MethodPut,
		url:    uploadURL,
		header: http.Header{
			"Content-Type":   {"application/octet-stream"},
			"X-Ms-Blob-Type": {"BlockBlob"},
		},
		body: func() (io.ReadCloser, int64, error) {
			f, err := os.Open(path)
			if err != nil {
				return nil, 0, fmt.Errorf("failed to open archive: %v", err)
			}
			fi, err := f.Stat()
			if err != nil {
				_ = f.Close()
				return nil, 0, fmt.Errorf("failed to stat archive: %v", err)
			}
			return f, fi.Size(), nil
		},
		success: http.StatusCreated,
	})
	if err != nil {
		return fmt.Errorf("failed to upload archive: %w", err)
	}
	return nil
}

// endpoint returns the absolute URL of the API path made of elems.
func (c *Client) endpoint(elems ...string) string {
	return c.apiURL.JoinPath(elems...).String()
}
