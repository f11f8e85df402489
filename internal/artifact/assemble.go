package artifact

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ubuntu/store-publisher/internal/constants"
	"github.com/ubuntu/store-publisher/internal/devcenter"
)

// DiscoverPackages returns the absolute paths of the files directly in dir whose extension is an accepted package extension.
// The match is case sensitive. Paths are sorted.
func DiscoverPackages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("could not list package directory: %v", err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("could not resolve package directory: %v", err)
	}

	var packages []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !slices.Contains(constants.PackageExtensions, filepath.Ext(e.Name())) {
			continue
		}
		packages = append(packages, filepath.Join(abs, e.Name()))
	}
	slices.Sort(packages)
	return packages, nil
}

// PendingImages returns the images of every listing and platform override of sub that wait for an upload.
// For each listing, in locale order, base images come first, then the images of each platform override.
func PendingImages(sub devcenter.Submission) []*devcenter.Image {
	var images []*devcenter.Image
	for _, locale := range slices.Sorted(maps.Keys(sub.Listings)) {
		listing := sub.Listings[locale]
		if listing == nil {
			continue
		}
		images = appendPending(images, listing.BaseListing)
		for _, platform := range slices.Sorted(maps.Keys(listing.PlatformOverrides)) {
			images = appendPending(images, listing.PlatformOverrides[platform])
		}
	}
	return images
}

func appendPending(images []*devcenter.Image, l *devcenter.BaseListing) []*devcenter.Image {
	if l == nil {
		return images
	}
	for _, img := range l.Images {
		if img != nil && img.FileStatus == constants.FileStatusPendingUpload {
			images = append(images, img)
		}
	}
	return images
}

// EntryName returns the archive name of a remote file name: backslashes become forward slashes.
func EntryName(fileName string) string {
	return strings.ReplaceAll(fileName, `\`, "/")
}

// Build writes the archive of a submission into workDir, under the fixed artifact name.
// The archive is seeded with the packages, stored under their base name, then the images are added.
// Images are read from imagesDir, following their name.
// On success the returned archive is closed. It may have no entry, and it is up to the caller to skip the upload then.
func Build(workDir string, packages []string, images []*devcenter.Image, imagesDir string, log *slog.Logger) (_ *Archive, err error) {
	if log == nil {
		log = slog.Default()
	}

	arch, err := Create(filepath.Join(workDir, constants.ArtifactName), log)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rmErr := arch.Remove(); rmErr != nil {
				log.Warn("Failed to remove incomplete archive", "file", arch.Path(), "error", rmErr)
			}
		}
	}()

	for _, p := range packages {
		log.Info("Adding package to archive", "file", p)
		if err := arch.AddFile(filepath.Base(p), p); err != nil {
			return nil, err
		}
	}

	for _, img := range images {
		name := EntryName(img.FileName)
		src := filepath.Join(imagesDir, filepath.FromSlash(name))
		log.Info("Adding image to archive", "file", src, "entry", name)
		if err := arch.AddFile(name, src); err != nil {
			return nil, err
		}
	}

	if err := arch.Close(); err != nil {
		return nil, fmt.Errorf("could not finalize archive: %v", err)
	}
	return arch, nil
}
