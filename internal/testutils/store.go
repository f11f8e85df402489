package testutils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// DefaultSubmissionID is the ID of the submissions created by FakeStore.
const DefaultSubmissionID = "1152921504621243540"

// DefaultSubmission is the submission document created by FakeStore.
// UPLOAD_URL is replaced by the blob URL of the store.
const DefaultSubmission = `{
	"id": "1152921504621243540",
	"status": "PendingCommit",
	"targetPublishMode": "Immediate",
	"applicationPackages": [
		{"id": "1", "fileName": "old.appx", "fileStatus": "Uploaded", "version": "1.0.0.0"}
	],
	"listings": {
		"en-us": {
			"baseListing": {
				"title": "My app",
				"images": [
					{"fileName": "images\\hero.png", "fileStatus": "PendingUpload", "imageType": "Screenshot"},
					{"fileName": "images\\logo.png", "fileStatus": "Uploaded", "imageType": "StoreLogo"}
				]
			}
		}
	},
	"pricing": {"trialPeriod": "NoFreeTrial", "priceId": "Free"},
	"fileUploadUrl": "UPLOAD_URL"
}`

// FakeStore is an HTTP fake of the submission API, of its token endpoint and of the blob storage.
type FakeStore struct {
	*httptest.Server

	mu sync.Mutex

	// Submission is the document answered on creation and lookup.
	Submission string
	// Statuses are the statuses answered in order, the last one repeating.
	Statuses []string
	// PendingSubmissionID is the pending submission of the application, if any.
	PendingSubmissionID string
	// FailOn maps a call name to the HTTP status it fails with.
	FailOn map[string]int

	calls       []string
	statusCalls int
	put         []byte
	uploads     [][]byte
	deleted     []string
}

// NewFakeStore starts a FakeStore, closed with the test.
func NewFakeStore(t *testing.T) *FakeStore {
	t.Helper()

	s := &FakeStore{
		Submission: DefaultSubmission,
		Statuses:   []string{"CommitStarted", "Published"},
		FailOn:     make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /{tenant}/oauth2/token", s.token)
	mux.HandleFunc("GET /v1.0/my/applications/{app}", s.api("get-application", s.application))
	mux.HandleFunc("POST /v1.0/my/applications/{app}/submissions", s.api("create", s.submission))
	mux.HandleFunc("GET /v1.0/my/applications/{app}/submissions/{id}", s.api("get", s.submission))
	mux.HandleFunc("PUT /v1.0/my/applications/{app}/submissions/{id}", s.api("put", s.update))
	mux.HandleFunc("DELETE /v1.0/my/applications/{app}/submissions/{id}", s.api("delete", s.delete))
	mux.HandleFunc("POST /v1.0/my/applications/{app}/submissions/{id}/commit", s.api("commit", s.commit))
	mux.HandleFunc("GET /v1.0/my/applications/{app}/submissions/{id}/status", s.api("status", s.status))
	mux.HandleFunc("PUT /blob", s.upload)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// APIURL is the root URL of the submission API.
func (s *FakeStore) APIURL() string {
	return s.URL + "/v1.0/my/"
}

// Calls returns the names of the calls received, in order.
func (s *FakeStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// LastPut returns the last submission document received.
func (s *FakeStore) LastPut() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put
}

// Uploads returns the archives received by the blob storage.
func (s *FakeStore) Uploads() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.uploads...)
}

// Deleted returns the IDs of the deleted submissions.
func (s *FakeStore) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

// record registers the call and reports whether it must fail.
func (s *FakeStore) record(w http.ResponseWriter, name string) (failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, name)
	code, ok := s.FailOn[name]
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"code":"InvalidState","message":"%s refused by the fake store"}`, name)
	return true
}

func (s *FakeStore) token(w http.ResponseWriter, r *http.Request) {
	if s.record(w, "token") {
		return
	}
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" || r.PostForm.Get("client_secret") == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"invalid_client"}`)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"token_type":"Bearer","expires_in":3600,"access_token":"fake-token"}`)
}

// api wraps an API handler with the call record and the authorization check.
func (s *FakeStore) api(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fake-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if s.record(w, name) {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}
}

func (s *FakeStore) application(w http.ResponseWriter, r *http.Request) {
	app := map[string]any{"id": r.PathValue("app"), "primaryName": "My app"}
	if s.PendingSubmissionID != "" {
		app["pendingApplicationSubmission"] = map[string]string{
			"id":               s.PendingSubmissionID,
			"resourceLocation": "applications/" + r.PathValue("app") + "/submissions/" + s.PendingSubmissionID,
		}
	}
	_ = json.NewEncoder(w).Encode(app)
}

func (s *FakeStore) submission(w http.ResponseWriter, _ *http.Request) {
	_, _ = io.WriteString(w, strings.ReplaceAll(s.Submission, "UPLOAD_URL", s.URL+"/blob?sv=fake"))
}

func (s *FakeStore) update(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.put = body
	s.mu.Unlock()
	_, _ = w.Write(body)
}

func (s *FakeStore) delete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.deleted = append(s.deleted, r.PathValue("id"))
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *FakeStore) commit(w http.ResponseWriter, _ *http.Request) {
	_, _ = io.WriteString(w, `{"status":"CommitStarted"}`)
}

func (s *FakeStore) status(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	st := s.Statuses[min(s.statusCalls, len(s.Statuses)-1)]
	s.statusCalls++
	s.mu.Unlock()

	var errs []map[string]string
	if strings.HasSuffix(st, "Failed") {
		errs = append(errs, map[string]string{"code": "InvalidPackage", "details": "The package is not signed"})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":        st,
		"statusDetails": map[string]any{"errors": errs, "warnings": []any{}, "certificationReports": []any{}},
	})
}

func (s *FakeStore) upload(w http.ResponseWriter, r *http.Request) {
	if s.record(w, "upload") {
		return
	}
	if r.Header.Get("X-Ms-Blob-Type") != "BlockBlob" || r.Header.Get("Authorization") != "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.uploads = append(s.uploads, body)
	s.mu.Unlock()
	w.WriteHeader(http.StatusCreated)
}
