package testutils

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// FlagCase describes the expected declaration of a command flag.
type FlagCase struct {
	Name       string
	Shorthand  string
	Default    string
	Persistent bool
	Dirname    bool
}

// CheckFlag checks that cmd declares the flag as described.
func CheckFlag(t *testing.T, cmd *cobra.Command, want FlagCase) {
	t.Helper()

	var flag *pflag.Flag
	if want.Persistent {
		flag = cmd.PersistentFlags().Lookup(want.Name)
	} else {
		flag = cmd.Flags().Lookup(want.Name)
	}
	require.NotNil(t, flag, "Flag %s should be declared", want.Name)
	require.Equal(t, want.Shorthand, flag.Shorthand, "Flag %s should have the expected shorthand", want.Name)
	if want.Default != "" {
		require.Equal(t, want.Default, flag.DefValue, "Flag %s should have the expected default", want.Name)
	}

	if want.Dirname {
		require.Equal(t, []string{}, flag.Annotations[cobra.BashCompSubdirsInDir], "Flag %s should complete directories", want.Name)
	} else {
		require.Nil(t, flag.Annotations[cobra.BashCompSubdirsInDir], "Flag %s should not complete directories", want.Name)
	}
}
