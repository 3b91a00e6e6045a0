package reconcile

import (
	"cmp"
	"slices"
	"time"

	"github.com/cyverse/ckan-migrator/internal/discovery"
	"github.com/cyverse/ckan-migrator/internal/models"
)

// DefaultTimezoneOffset is how far catalog timestamps run ahead of source
// timestamps for the same instant.
const DefaultTimezoneOffset = 7 * time.Hour

// FindByTitle returns the first remote record whose title equals title
// exactly, or nil.
func FindByTitle(remote []models.RemoteRecord, title string) *models.RemoteRecord {
	for i := range remote {
		if remote[i].Title == title {
			return &remote[i]
		}
	}
	return nil
}

// IsCurrent reports whether a remote modification time still describes the
// source. The two agree when the strings are equal, or when both parse and
// the remote one is exactly offset ahead. An absent remote value is stale.
//
// The offset is compared as elapsed time, not as an hour difference on the
// same calendar day, so a shift that crosses midnight (20:00 against 03:00
// the next day) still counts as current.
func IsCurrent(source, remote string, offset time.Duration) bool {
	if remote == "" {
		return false
	}
	if source == remote {
		return true
	}
	s, err := time.Parse(discovery.DateLayout, source)
	if err != nil {
		return false
	}
	r, err := time.Parse(discovery.DateLayout, remote)
	if err != nil {
		return false
	}
	return r.Sub(s) == offset
}

// MissingFiles returns the source files whose names match no remote
// resource, in source order.
func MissingFiles(files []models.File, remote []models.RemoteResource) []models.File {
	have := make(map[string]bool, len(remote))
	for _, r := range remote {
		have[r.Name] = true
	}
	var missing []models.File
	for _, f := range files {
		if !have[f.Name] {
			missing = append(missing, f)
		}
	}
	return missing
}

// fileResource describes a source file or folder as a catalog resource.
func fileResource(packageID string, f models.File, format string) models.Resource {
	return models.Resource{
		PackageID:    packageID,
		Name:         f.Name,
		URL:          f.URL,
		Format:       format,
		DateCreated:  f.DateCreated,
		DateModified: f.DateModified,
	}
}

func sortedExtras(extras []models.Extra) []models.Extra {
	out := slices.Clone(extras)
	slices.SortFunc(out, func(a, b models.Extra) int {
		if c := cmp.Compare(a.Key, b.Key); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return out
}
