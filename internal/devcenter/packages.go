package devcenter

import (
	"cmp"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/ubuntu/store-publisher/internal/constants"
)

// IncludePackages references the local package files at paths in packages, flagged for upload.
// A package already referenced under the same file name is flagged again instead of being duplicated.
func IncludePackages(paths []string, packages []*Package) []*Package {
	for _, p := range paths {
		name := filepath.Base(p)
		i := slices.IndexFunc(packages, func(pkg *Package) bool { return pkg.FileName == name })
		if i >= 0 {
			packages[i].FileStatus = constants.FileStatusPendingUpload
			continue
		}
		packages = append(packages, &Package{FileName: name, FileStatus: constants.FileStatusPendingUpload})
	}
	return packages
}

// DeleteOldPackages flags for deletion the oldest packages, so that at most keep of them remain.
// Packages are ordered by version. Packages without a comparable version are considered older,
// and ties keep the submission order, first being oldest.
// It returns the number of packages newly flagged.
func DeleteOldPackages(packages []*Package, keep int) int {
	keep = max(keep, 0)

	var live []*Package
	for _, p := range packages {
		if p.FileStatus == constants.FileStatusPendingDelete {
			continue
		}
		live = append(live, p)
	}
	if len(live) <= keep {
		return 0
	}

	slices.SortStableFunc(live, func(a, b *Package) int { return compareVersions(a.Version, b.Version) })

	n := len(live) - keep
	for _, p := range live[:n] {
		p.FileStatus = constants.FileStatusPendingDelete
	}
	return n
}

// compareVersions compares dotted versions such as 1.2.10.0 numerically, part by part.
// Empty versions sort first. Missing parts count as 0. A numeric part sorts before a non numeric one,
// and non numeric parts are compared as strings.
func compareVersions(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}

	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := range max(len(pa), len(pb)) {
		x, y := "0", "0"
		if i < len(pa) && pa[i] != "" {
			x = pa[i]
		}
		if i < len(pb) && pb[i] != "" {
			y = pb[i]
		}

		nx, errX := strconv.Atoi(x)
		ny, errY := strconv.Atoi(y)
		var c int
		switch {
		case errX == nil && errY == nil:
			c = cmp.Compare(nx, ny)
		case errX == nil:
			c = -1
		case errY == nil:
			c = 1
		default:
			c = strings.Compare(x, y)
		}
		if c != 0 {
			return c
		}
	}
	return 0
}
