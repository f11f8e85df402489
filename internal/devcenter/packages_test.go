package devcenter_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ubuntu/store-publisher/internal/devcenter"
)

func TestIncludePackages(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		paths    []string
		existing []*devcenter.Package

		want []*devcenter.Package
	}{
		"No packages": {},
		"Appends new packages": {
			paths:    []string{"/a/app.msixbundle", "/a/app.appxupload"},
			existing: []*devcenter.Package{{FileName: "old.appx", FileStatus: "Uploaded"}},
			want: []*devcenter.Package{
				{FileName: "old.appx", FileStatus: "Uploaded"},
				{FileName: "app.msixbundle", FileStatus: "PendingUpload"},
				{FileName: "app.appxupload", FileStatus: "PendingUpload"},
			},
		},
		"Same name is flagged again": {
			paths:    []string{"/a/app.msixbundle"},
			existing: []*devcenter.Package{{FileName: "app.msixbundle", FileStatus: "Uploaded", ID: "42"}},
			want:     []*devcenter.Package{{FileName: "app.msixbundle", FileStatus: "PendingUpload", ID: "42"}},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := devcenter.IncludePackages(tc.paths, tc.existing)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDeleteOldPackages(t *testing.T) {
	t.Parallel()

	pkg := func(name, version, status string) *devcenter.Package {
		return &devcenter.Package{FileName: name, Version: version, FileStatus: status}
	}

	tests := map[string]struct {
		packages []*devcenter.Package
		keep     int

		wantDeleted []string
	}{
		"Nothing to delete": {
			packages: []*devcenter.Package{pkg("a", "1.0.0.0", "Uploaded")},
			keep:     1,
		},
		"Oldest versions are deleted": {
			packages: []*devcenter.Package{
				pkg("c", "1.10.0.0", "Uploaded"),
				pkg("a", "1.2.0.0", "Uploaded"),
				pkg("b", "1.9.0.0", "Uploaded"),
			},
			keep:        1,
			wantDeleted: []string{"a", "b"},
		},
		"Already deleted packages do not count": {
			packages: []*devcenter.Package{
				pkg("a", "1.0.0.0", "PendingDelete"),
				pkg("b", "2.0.0.0", "Uploaded"),
				pkg("c", "3.0.0.0", "Uploaded"),
			},
			keep:        2,
			wantDeleted: []string{"a"},
		},
		"Missing versions are oldest, in order": {
			packages: []*devcenter.Package{
				pkg("a", "", "Uploaded"),
				pkg("b", "", "Uploaded"),
				pkg("c", "1.0.0.0", "Uploaded"),
			},
			keep:        2,
			wantDeleted: []string{"a"},
		},
		"Keep zero deletes all": {
			packages:    []*devcenter.Package{pkg("a", "1.0", "Uploaded"), pkg("b", "2.0", "Uploaded")},
			keep:        0,
			wantDeleted: []string{"a", "b"},
		},
		"Negative keep is zero": {
			packages:    []*devcenter.Package{pkg("a", "1.0", "Uploaded")},
			keep:        -3,
			wantDeleted: []string{"a"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var before int
			for _, p := range tc.packages {
				if p.FileStatus == "PendingDelete" {
					before++
				}
			}

			n := devcenter.DeleteOldPackages(tc.packages, tc.keep)

			var got []string
			for _, p := range tc.packages {
				if p.FileStatus == "PendingDelete" {
					got = append(got, p.FileName)
				}
			}
			require.ElementsMatch(t, tc.wantDeleted, got, "unexpected deleted packages")
			require.Equal(t, len(tc.wantDeleted)-before, n, "unexpected count of newly deleted packages")
		})
	}
}

func TestCompareVersions(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		a, b string
		want int
	}{
		"Equal":               {a: "1.2.3.4", b: "1.2.3.4", want: 0},
		"Numeric not lexical": {a: "1.10.0.0", b: "1.9.0.0", want: 1},
		"Shorter is padded":   {a: "1.2", b: "1.2.0.0", want: 0},
		"Empty is oldest":     {a: "", b: "0.0.0.1", want: -1},
		"Non numeric parts":   {a: "1.0.beta", b: "1.0.alpha", want: 1},

		"Numeric part before non numeric": {a: "10", b: "9a", want: -1},
		"Missing part before non numeric": {a: "1", b: "1.beta", want: -1},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.want, devcenter.CompareVersions(tc.a, tc.b))
			require.Equal(t, -tc.want, devcenter.CompareVersions(tc.b, tc.a), "comparison should be antisymmetric")
		})
	}
}

func TestCompareVersionsOrderIsConsistent(t *testing.T) {
	t.Parallel()

	want := []string{"", "1.0", "1.2", "1.10", "1.beta", "9", "10", "9a"}
	for _, start := range [][]string{
		{"9a", "10", "9", "1.beta", "1.10", "1.2", "1.0", ""},
		{"10", "9a", "", "9", "1.2", "1.beta", "1.0", "1.10"},
		{"1.10", "9", "9a", "1.0", "10", "", "1.beta", "1.2"},
	} {
		got := slices.Clone(start)
		slices.SortFunc(got, devcenter.CompareVersions)
		require.Equal(t, want, got, "Sorting %v should give the same order", start)

		for i := range got {
			for j := i + 1; j < len(got); j++ {
				require.Negative(t, devcenter.CompareVersions(got[i], got[j]), "%q should sort before %q", got[i], got[j])
			}
		}
	}
}
