// Package testutils provides helper functions for testing.
package testutils

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// WriteFiles creates the files in dir, with their name as content.
// Names are slash separated and parent directories are created.
func WriteFiles(t *testing.T, dir string, names ...string) {
	t.Helper()

	for _, n := range names {
		p := filepath.Join(dir, filepath.FromSlash(n))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0700), "Setup: could not create parent directory of %s", n)
		require.NoError(t, os.WriteFile(p, []byte(n), 0600), "Setup: could not write %s", n)
	}
}

// ZipEntries returns the entries of a zip archive, mapped to their content.
func ZipEntries(t *testing.T, data []byte) map[string]string {
	t.Helper()

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err, "Archive should be a valid zip file")

	entries := make(map[string]string)
	for _, f := range r.File {
		require.Equal(t, zip.Deflate, f.Method, "Entry %s should be deflated", f.Name)
		rc, err := f.Open()
		require.NoError(t, err, "Entry %s should open", f.Name)
		content, err := io.ReadAll(rc)
		_ = rc.Close()
		require.NoError(t, err, "Entry %s should be readable", f.Name)
		entries[f.Name] = string(content)
	}
	return entries
}
