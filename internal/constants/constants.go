// Package constants is responsible for defining the constants used in the application.
// It also provides utility functions to get the default configuration and state paths.
package constants

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

var (
	// Version is the version of the application.
	Version = "Dev"
)

const (
	// CmdName is the name of the command line tool.
	CmdName = "store-publisher"

	// DefaultAppFolder is the name of the default root folder.
	DefaultAppFolder = "store-publisher"

	// DefaultLogLevel is the default log level selected without any verbosity flags.
	DefaultLogLevel = slog.LevelWarn

	// DefaultAPIURL is the root of the Dev Center submission API. It must end with a slash.
	DefaultAPIURL = "https://manage.devcenter.microsoft.com/v1.0/my/"

	// DefaultAuthURL is the Azure AD authority used to exchange client credentials for a token.
	DefaultAuthURL = "https://login.microsoftonline.com"

	// DefaultAuthResource is the resource the access token is requested for.
	DefaultAuthResource = "https://manage.devcenter.microsoft.com"

	// DashboardURLFormat is the partner dashboard page of a submission, formatted with app ID and submission ID.
	DashboardURLFormat = "https://partner.microsoft.com/dashboard/products/%s/submissions/%s"

	// ArtifactName is the fixed temporary name of the upload archive.
	ArtifactName = "temp.zip"

	// ReceiptFileName is the name of the run receipt file in the state directory.
	ReceiptFileName = "last-submission.toml"

	// DefaultPackagesToKeep is the default amount of packages kept when deleting old packages.
	DefaultPackagesToKeep = 5

	// DefaultPollInterval is the default base wait between two status fetches.
	DefaultPollInterval = time.Minute

	// DefaultPollMaxInterval is the default cap of the wait between two status fetches.
	DefaultPollMaxInterval = 5 * time.Minute

	// DefaultPollTimeout is the default wall clock ceiling of the status polling.
	DefaultPollTimeout = 2 * time.Hour

	// DefaultPollMaxAttempts is the default ceiling of status fetches.
	DefaultPollMaxAttempts = 500

	// DefaultResponseTimeout is the default timeout of a single API request.
	DefaultResponseTimeout = 2 * time.Minute

	// DefaultUploadTimeout is the default timeout of the artifact upload.
	DefaultUploadTimeout = 30 * time.Minute

	// DefaultMaxAttempts is the default amount of attempts of a request failing with a server error.
	DefaultMaxAttempts = 5

	// DefaultBaseRetryPeriod is the default initial backoff of a failed request.
	DefaultBaseRetryPeriod = 2 * time.Second

	// DefaultMaxRetryPeriod is the default backoff cap of a failed request.
	DefaultMaxRetryPeriod = 30 * time.Second
)

// PackageExtensions is the allow-list of package file extensions accepted by the store.
// Matching is case sensitive.
var PackageExtensions = []string{".msix", ".msixbundle", ".msixupload", ".appx", ".appxbundle", ".appxupload", ".xap"}

// File status values of images and packages in a submission.
const (
	FileStatusPendingUpload = "PendingUpload"
	FileStatusUploaded      = "Uploaded"
	FileStatusPendingDelete = "PendingDelete"
)

type options struct {
	baseDir func() (string, error)
}

type option func(*options)

// GetDefaultConfigPath is the default path to the configuration directory.
func GetDefaultConfigPath(opts ...option) string {
	o := options{baseDir: os.UserConfigDir}
	for _, opt := range opts {
		opt(&o)
	}

	return filepath.Join(getBaseDir(o.baseDir), DefaultAppFolder)
}

// GetDefaultStatePath is the default path to the directory holding the run receipt.
func GetDefaultStatePath(opts ...option) string {
	o := options{baseDir: os.UserCacheDir}
	for _, opt := range opts {
		opt(&o)
	}

	return filepath.Join(getBaseDir(o.baseDir), DefaultAppFolder)
}

// getBaseDir is a helper function to handle the case where the baseDir function returns an error, and instead return an empty string.
func getBaseDir(baseDirFunc func() (string, error)) string {
	dir, err := baseDirFunc()
	if err != nil {
		return ""
	}
	return dir
}
