package devcenter

import (
	"encoding/json"
	"maps"
	"reflect"
	"strings"
)

// PublishMode is the way a submission goes live once certified.
type PublishMode string

const (
	// PublishImmediate publishes as soon as certification completes.
	PublishImmediate PublishMode = "Immediate"
	// PublishManual waits for a manual publication from the dashboard.
	PublishManual PublishMode = "Manual"
	// PublishSpecificDate waits for the configured release date.
	PublishSpecificDate PublishMode = "SpecificDate"
)

// fields holds the JSON members of a resource that are not modelled here.
// They are written back untouched, so a document read from the API survives a full replace.
type fields map[string]json.RawMessage

// Submission is an application submission resource.
type Submission struct {
	ID                  string              `json:"id"`
	Status              string              `json:"status,omitempty"`
	StatusDetails       *StatusDetails      `json:"statusDetails,omitempty"`
	TargetPublishMode   PublishMode         `json:"targetPublishMode,omitempty"`
	ApplicationPackages []*Package          `json:"applicationPackages,omitempty"`
	Listings            map[string]*Listing `json:"listings,omitempty"`
	FileUploadURL       string              `json:"fileUploadUrl,omitempty"`

	Extra fields `json:"-"`
}

// Listing is the store page metadata of one locale.
type Listing struct {
	BaseListing       *BaseListing            `json:"baseListing,omitempty"`
	PlatformOverrides map[string]*BaseListing `json:"platformOverrides,omitempty"`

	Extra fields `json:"-"`
}

// BaseListing is the metadata of a listing, or of one of its platform overrides.
// Only images are modelled, every other member is kept in Extra.
type BaseListing struct {
	Images []*Image `json:"images,omitempty"`

	Extra fields `json:"-"`
}

// Image is a listing image. Images in PendingUpload state are expected in the next uploaded archive.
type Image struct {
	FileName   string `json:"fileName"`
	FileStatus string `json:"fileStatus"`
	ImageType  string `json:"imageType,omitempty"`

	Extra fields `json:"-"`
}

// Package is an application package referenced by a submission.
type Package struct {
	ID         string `json:"id,omitempty"`
	FileName   string `json:"fileName"`
	FileStatus string `json:"fileStatus"`
	Version    string `json:"version,omitempty"`

	Extra fields `json:"-"`
}

// StatusDetails carries the remote explanations attached to a submission status.
type StatusDetails struct {
	Errors               []StatusIssue         `json:"errors"`
	Warnings             []StatusIssue         `json:"warnings"`
	CertificationReports []CertificationReport `json:"certificationReports"`
}

// StatusIssue is one error or warning of a submission status.
type StatusIssue struct {
	Code    string `json:"code"`
	Details string `json:"details"`
}

// CertificationReport links to a certification report of the submission.
type CertificationReport struct {
	Date      string `json:"date"`
	ReportURL string `json:"reportUrl"`
}

// SubmissionStatus is the answer of the submission status endpoint.
type SubmissionStatus struct {
	Status        string        `json:"status"`
	StatusDetails StatusDetails `json:"statusDetails"`
}

// Application is the application resource, as much as this tool needs of it.
type Application struct {
	ID                                 string         `json:"id"`
	PrimaryName                        string         `json:"primaryName"`
	PendingApplicationSubmission       *SubmissionRef `json:"pendingApplicationSubmission,omitempty"`
	LastPublishedApplicationSubmission *SubmissionRef `json:"lastPublishedApplicationSubmission,omitempty"`
}

// SubmissionRef points to a submission from an application resource.
type SubmissionRef struct {
	ID               string `json:"id"`
	ResourceLocation string `json:"resourceLocation"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Submission) UnmarshalJSON(data []byte) error {
	type plain Submission
	return unmarshalWithFields(data, (*plain)(s), &s.Extra)
}

// MarshalJSON implements json.Marshaler.
func (s Submission) MarshalJSON() ([]byte, error) {
	type plain Submission
	return marshalWithFields(plain(s), s.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Listing) UnmarshalJSON(data []byte) error {
	type plain Listing
	return unmarshalWithFields(data, (*plain)(l), &l.Extra)
}

// MarshalJSON implements json.Marshaler.
func (l Listing) MarshalJSON() ([]byte, error) {
	type plain Listing
	return marshalWithFields(plain(l), l.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *BaseListing) UnmarshalJSON(data []byte) error {
	type plain BaseListing
	return unmarshalWithFields(data, (*plain)(b), &b.Extra)
}

// MarshalJSON implements json.Marshaler.
func (b BaseListing) MarshalJSON() ([]byte, error) {
	type plain BaseListing
	return marshalWithFields(plain(b), b.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *Image) UnmarshalJSON(data []byte) error {
	type plain Image
	return unmarshalWithFields(data, (*plain)(i), &i.Extra)
}

// MarshalJSON implements json.Marshaler.
func (i Image) MarshalJSON() ([]byte, error) {
	type plain Image
	return marshalWithFields(plain(i), i.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Package) UnmarshalJSON(data []byte) error {
	type plain Package
	return unmarshalWithFields(data, (*plain)(p), &p.Extra)
}

// MarshalJSON implements json.Marshaler.
func (p Package) MarshalJSON() ([]byte, error) {
	type plain Package
	return marshalWithFields(plain(p), p.Extra)
}

// SetField sets a member that is not modelled by BaseListing, replacing any previous value.
func (b *BaseListing) SetField(name string, value json.RawMessage) {
	if b.Extra == nil {
		b.Extra = make(fields)
	}
	b.Extra[name] = value
}

// Field returns a member that is not modelled by BaseListing.
func (b BaseListing) Field(name string) (json.RawMessage, bool) {
	v, ok := b.Extra[name]
	return v, ok
}

// unmarshalWithFields decodes data into known, and keeps every member of the object into extra.
func unmarshalWithFields(data []byte, known any, extra *fields) error {
	if err := json.Unmarshal(data, known); err != nil {
		return err
	}
	return json.Unmarshal(data, (*map[string]json.RawMessage)(extra))
}

// marshalWithFields encodes known on top of extra: modelled members win over the kept ones,
// and a modelled member left empty is not written back from extra.
func marshalWithFields(known any, extra fields) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, len(extra)+len(members))
	maps.Copy(out, extra)
	for _, k := range modelledKeys(reflect.TypeOf(known)) {
		delete(out, k)
	}
	maps.Copy(out, members)
	return json.Marshal(out)
}

// modelledKeys returns the JSON member names of the struct type t.
func modelledKeys(t reflect.Type) []string {
	var keys []string
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		keys = append(keys, name)
	}
	return keys
}
