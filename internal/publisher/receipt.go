package publisher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ubuntu/decorate"
	"github.com/ubuntu/store-publisher/internal/constants"
	"github.com/ubuntu/store-publisher/internal/fileutils"
)

// ErrNoReceipt is returned when reading a receipt that was never written.
var ErrNoReceipt = errors.New("no submission receipt")

// Receipt records the last submission created, so it can be found again for a manual cleanup.
// It is never used to resume a run.
type Receipt struct {
	AppID          string    `toml:"app_id"`
	SubmissionID   string    `toml:"submission_id"`
	DashboardURL   string    `toml:"dashboard_url"`
	Committed      bool      `toml:"committed"`
	Status         string    `toml:"status"`
	ArtifactDigest string    `toml:"artifact_digest,omitempty"`
	UpdatedAt      time.Time `toml:"updated_at"`
}

// ReadReceipt reads the receipt from the state directory.
func ReadReceipt(stateDir string) (r Receipt, err error) {
	defer decorate.OnError(&err, "could not read submission receipt")

	p := filepath.Join(stateDir, constants.ReceiptFileName)
	if _, err := toml.DecodeFile(p, &r); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return r, fmt.Errorf("%w in %s", ErrNoReceipt, stateDir)
		}
		return r, err
	}
	return r, nil
}

// WriteReceipt atomically replaces the receipt of the state directory.
func WriteReceipt(stateDir string, r Receipt) (err error) {
	defer decorate.OnError(&err, "could not write submission receipt")

	data, err := toml.Marshal(r)
	if err != nil {
		return err
	}
	return fileutils.AtomicWrite(filepath.Join(stateDir, constants.ReceiptFileName), data)
}

// RemoveReceipt deletes the receipt of the state directory, if any.
func RemoveReceipt(stateDir string) error {
	err := os.Remove(filepath.Join(stateDir, constants.ReceiptFileName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not remove submission receipt: %v", err)
	}
	return nil
}

// saveReceipt records the state of the run. A failure is logged, not returned: the receipt is informational.
func (p *Publisher) saveReceipt(r *run, status string) {
	if p.cfg.StateDir == "" {
		return
	}

	rec := Receipt{
		AppID:          p.cfg.AppID,
		SubmissionID:   r.report.SubmissionID,
		DashboardURL:   r.report.DashboardURL,
		Committed:      r.report.Committed,
		Status:         status,
		ArtifactDigest: r.report.ArtifactDigest,
		UpdatedAt:      p.now().UTC().Truncate(time.Second),
	}
	if err := WriteReceipt(p.cfg.StateDir, rec); err != nil {
		p.log.Warn("Failed to save submission receipt", "dir", p.cfg.StateDir, "error", err)
		return
	}
	p.log.Debug("Saved submission receipt", "dir", p.cfg.StateDir, "status", status)
}
