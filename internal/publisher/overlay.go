package publisher

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/ubuntu/store-publisher/internal/devcenter"
	"github.com/ubuntu/store-publisher/internal/fileutils"
)

// listingOverlay holds base listing members to set, per locale.
type listingOverlay map[string]map[string]json.RawMessage

// readListingOverlay reads a listing overlay file. Images can't be set this way: they come from the submission.
func readListingOverlay(path string) (listingOverlay, error) {
	var o listingOverlay
	if err := fileutils.ReadJSONCFile(path, &o); err != nil {
		return nil, fmt.Errorf("could not read listing file %s: %v", path, err)
	}

	for locale, members := range o {
		if _, ok := members["images"]; ok {
			return nil, fmt.Errorf("listing file %s: images of %s can't be overridden", path, locale)
		}
	}
	return o, nil
}

// apply sets the overlay members in the base listing of the matching locales of sub.
// Locales missing from the submission are skipped.
func (o listingOverlay) apply(sub *devcenter.Submission, log *slog.Logger) {
	for _, locale := range slices.Sorted(maps.Keys(o)) {
		listing, ok := sub.Listings[locale]
		if !ok || listing == nil {
			log.Warn("Listing locale not in submission, skipping", "locale", locale)
			continue
		}
		if listing.BaseListing == nil {
			listing.BaseListing = &devcenter.BaseListing{}
		}
		for name, value := range o[locale] {
			listing.BaseListing.SetField(name, value)
		}
		log.Info("Updated listing", "locale", locale, "fields", len(o[locale]))
	}
}
