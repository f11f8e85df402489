// Package artifact assembles the archive uploaded with a submission.
// The archive bundles the local package files and the listing images the service expects.
package artifact

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/zeebo/blake3"
)

var (
	// ErrDuplicateEntry is returned when two files would be stored under the same archive name.
	ErrDuplicateEntry = errors.New("archive entry already exists")
	// ErrInvalidEntryName is returned for archive names that are empty, absolute or escape the archive root.
	ErrInvalidEntryName = errors.New("invalid archive entry name")
	// ErrClosed is returned when adding to an archive that has been closed.
	ErrClosed = errors.New("archive is closed")
)

// Archive is a deflate zip archive streamed to a file on disk.
// Entry names are forward slash separated and unique.
type Archive struct {
	path    string
	f       *os.File
	zw      *zip.Writer
	entries []string
	closed  bool

	log *slog.Logger
}

// Create creates an empty archive at path, replacing any existing file.
func Create(path string, log *slog.Logger) (*Archive, error) {
	if log == nil {
		log = slog.Default()
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create archive: %v", err)
	}

	return &Archive{
		path: path,
		f:    f,
		zw:   zip.NewWriter(f),
		log:  log,
	}, nil
}

// AddFile stores the content of the file src under name, compressed with deflate.
func (a *Archive) AddFile(name, src string) (err error) {
	if a.closed {
		return ErrClosed
	}
	if name == "" || !filepath.IsLocal(filepath.FromSlash(name)) {
		return fmt.Errorf("%w: %q", ErrInvalidEntryName, name)
	}
	if slices.Contains(a.entries, name) {
		return fmt.Errorf("%w: %q", ErrDuplicateEntry, name)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("could not open %s: %v", src, err)
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return fmt.Errorf("could not stat %s: %v", src, err)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	w, err := a.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: fi.ModTime().UTC().Truncate(time.Second),
	})
	if err != nil {
		return fmt.Errorf("could not add %s to archive: %v", name, err)
	}
	n, err := io.Copy(w, in)
	if err != nil {
		return fmt.Errorf("could not compress %s: %v", src, err)
	}

	a.entries = append(a.entries, name)
	a.log.Debug("Added file to archive", "file", src, "entry", name, "bytes", n)
	return nil
}

// Close writes the archive directory and closes the file. Closing twice is a no-op.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	return errors.Join(a.zw.Close(), a.f.Close())
}

// Remove closes the archive and deletes its file.
func (a *Archive) Remove() error {
	err := a.Close()
	if rmErr := os.Remove(a.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		err = errors.Join(err, rmErr)
	}
	return err
}

// Len returns the number of entries in the archive.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Entries returns the archive entry names, in insertion order.
func (a *Archive) Entries() []string {
	return slices.Clone(a.entries)
}

// Path returns the location of the archive file.
func (a *Archive) Path() string {
	return a.path
}

// Digest returns the hex encoded BLAKE3 hash of the closed archive file.
func (a *Archive) Digest() (string, error) {
	if !a.closed {
		return "", errors.New("archive must be closed before hashing")
	}

	f, err := os.Open(a.path)
	if err != nil {
		return "", fmt.Errorf("could not open archive: %v", err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("could not hash archive: %v", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
