package devcenter_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ubuntu/store-publisher/internal/devcenter"
)

const createdSubmission = `{
  "id": "1152921504621243540",
  "status": "PendingCommit",
  "targetPublishMode": "Manual",
  "targetPublishDate": "1601-01-01T00:00:00Z",
  "pricing": {"trialPeriod": "NoFreeTrial", "priceId": "Tier2"},
  "visibility": "Public",
  "applicationPackages": [
    {"fileName": "app_1.0.0.0_x64.appxupload", "fileStatus": "Uploaded", "id": "1152921504620138797", "version": "1.0.0.0", "architecture": "x64"}
  ],
  "listings": {
    "en-us": {
      "baseListing": {
        "description": "An app",
        "keywords": ["one", "two"],
        "images": [{"fileName": "img\\hero.png", "fileStatus": "Uploaded", "imageType": "Screenshot", "description": "hero"}]
      },
      "platformOverrides": {
        "Windows81": {"description": "8.1 text", "images": []}
      }
    }
  },
  "fileUploadUrl": "https://productingestionbin1.blob.core.windows.net/ingestion/abc?sv=2014"
}`

func TestSubmissionKeepsUnknownFields(t *testing.T) {
	t.Parallel()

	var sub devcenter.Submission
	require.NoError(t, json.Unmarshal([]byte(createdSubmission), &sub), "Setup: could not parse submission")

	require.Equal(t, "1152921504621243540", sub.ID)
	require.Equal(t, devcenter.PublishManual, sub.TargetPublishMode)
	require.Len(t, sub.ApplicationPackages, 1)
	require.Equal(t, "1.0.0.0", sub.ApplicationPackages[0].Version)
	require.Equal(t, `img\hero.png`, sub.Listings["en-us"].BaseListing.Images[0].FileName)

	sub.ApplicationPackages = devcenter.IncludePackages([]string{"/tmp/pkgs/app_1.1.0.0_x64.msixupload"}, sub.ApplicationPackages)
	sub.Listings["en-us"].BaseListing.Images[0].FileStatus = "PendingUpload"

	data, err := json.Marshal(sub)
	require.NoError(t, err, "Marshal should not return an error")

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got), "Marshalled submission should be valid JSON")

	require.Equal(t, "1601-01-01T00:00:00Z", got["targetPublishDate"], "top level unknown members should be kept")
	require.Equal(t, map[string]any{"trialPeriod": "NoFreeTrial", "priceId": "Tier2"}, got["pricing"])

	pkgs := got["applicationPackages"].([]any)
	require.Len(t, pkgs, 2, "new package should be appended")
	require.Equal(t, "x64", pkgs[0].(map[string]any)["architecture"], "package unknown members should be kept")
	require.Equal(t, map[string]any{"fileName": "app_1.1.0.0_x64.msixupload", "fileStatus": "PendingUpload"}, pkgs[1])

	listing := got["listings"].(map[string]any)["en-us"].(map[string]any)
	base := listing["baseListing"].(map[string]any)
	require.Equal(t, "An app", base["description"], "listing unknown members should be kept")
	require.Equal(t, []any{"one", "two"}, base["keywords"])
	img := base["images"].([]any)[0].(map[string]any)
	require.Equal(t, "PendingUpload", img["fileStatus"], "modelled members should win over kept ones")
	require.Equal(t, "hero", img["description"], "image unknown members should be kept")
	override := listing["platformOverrides"].(map[string]any)["Windows81"].(map[string]any)
	require.Equal(t, "8.1 text", override["description"], "override unknown members should be kept")
}

func TestSubmissionDropsClearedMembers(t *testing.T) {
	t.Parallel()

	var sub devcenter.Submission
	require.NoError(t, json.Unmarshal([]byte(createdSubmission), &sub), "Setup: could not parse submission")

	sub.FileUploadURL = ""
	sub.ApplicationPackages = nil
	sub.Listings["en-us"].BaseListing.Images = nil

	data, err := json.Marshal(sub)
	require.NoError(t, err, "Marshal should not return an error")

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got), "Marshalled submission should be valid JSON")

	require.NotContains(t, got, "fileUploadUrl", "Cleared members should not be written back")
	require.NotContains(t, got, "applicationPackages", "Cleared members should not be written back")
	base := got["listings"].(map[string]any)["en-us"].(map[string]any)["baseListing"].(map[string]any)
	require.NotContains(t, base, "images", "Cleared nested members should not be written back")
	require.Equal(t, "An app", base["description"], "Unknown members should still be kept")
	require.Equal(t, "Public", got["visibility"], "Unknown members should still be kept")
}

func TestBaseListingFields(t *testing.T) {
	t.Parallel()

	var b devcenter.BaseListing
	_, ok := b.Field("title")
	require.False(t, ok, "empty listing should have no field")

	b.SetField("title", json.RawMessage(`"My app"`))
	v, ok := b.Field("title")
	require.True(t, ok, "field should be set")
	require.JSONEq(t, `"My app"`, string(v))

	data, err := json.Marshal(b)
	require.NoError(t, err)
	require.JSONEq(t, `{"title":"My app"}`, string(data))
}
