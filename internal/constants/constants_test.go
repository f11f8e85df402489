package constants_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ubuntu/store-publisher/internal/constants"
)

func TestDefaultPaths(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		baseDir func() (string, error)

		want string
	}{
		"Base dir is used":       {baseDir: func() (string, error) { return "abc/def", nil }, want: filepath.Join("abc/def", constants.DefaultAppFolder)},
		"Error gives app folder": {baseDir: func() (string, error) { return "", errors.New("error") }, want: constants.DefaultAppFolder},
		"Error ignores dir":      {baseDir: func() (string, error) { return "abc", errors.New("error") }, want: constants.DefaultAppFolder},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.want, constants.GetDefaultConfigPath(constants.WithBaseDir(tc.baseDir)), "config path")
			require.Equal(t, tc.want, constants.GetDefaultStatePath(constants.WithBaseDir(tc.baseDir)), "state path")
		})
	}
}

func TestPackageExtensions(t *testing.T) {
	t.Parallel()

	for _, ext := range constants.PackageExtensions {
		require.True(t, strings.HasPrefix(ext, "."), "extension %q should start with a dot", ext)
		require.Equal(t, strings.ToLower(ext), ext, "extension %q should be lowercase", ext)
	}
}
