package metadata

import "github.com/cyverse/ckan-migrator/internal/models"

// Extra keys written by the migrator itself.
const (
	ExtraCitation     = "Citation"
	ExtraDateCreated  = "Date created in discovery environment"
	ExtraDateModified = "Date last modified in discovery environment"
)

// Keys that map onto first-class record fields and never become extras.
// Matching is case-sensitive, so each casing is listed.
var excludedExtraKeys = map[string]bool{
	"title": true, "Title": true,
	"description": true, "Description": true,
	"creator": true, "Creator": true,
	"subject": true, "Subject": true,
	"rights": true, "Rights": true,
	"identifier": true, "Identifier": true,
	"version": true, "Version": true,
	"publicationYear": true, "PublicationYear": true,
	"datacite.creator": true, "datacite.title": true, "datacite.publicationyear": true,
	KeyDateCreated: true, KeyDateModified: true, KeyPath: true,
}

// IsExcludedExtra reports whether key is captured by a canonical field.
func IsExcludedExtra(key string) bool {
	return excludedExtraKeys[key]
}

// Extras converts every metadata key without a first-class slot into a
// key/value pair, in insertion order. Curated datasets get a citation first.
func Extras(m *Metadata, curated bool, catalogName string) ([]models.Extra, error) {
	created, ok := m.Get(KeyDateCreated)
	if !ok {
		return nil, &RequiredFieldError{Key: KeyDateCreated}
	}
	modified, ok := m.Get(KeyDateModified)
	if !ok {
		return nil, &RequiredFieldError{Key: KeyDateModified}
	}

	extras := make([]models.Extra, 0, m.Len()+3)
	if curated {
		citation, err := Citation(m, catalogName)
		if err != nil {
			return nil, err
		}
		extras = append(extras, models.Extra{Key: ExtraCitation, Value: citation})
	}
	extras = append(extras,
		models.Extra{Key: ExtraDateCreated, Value: created.String()},
		models.Extra{Key: ExtraDateModified, Value: modified.String()},
	)

	for _, key := range m.Keys() {
		if excludedExtraKeys[key] {
			continue
		}
		v, _ := m.Get(key)
		extras = append(extras, models.Extra{Key: key, Value: v.String()})
	}
	return extras, nil
}

// ComparableExtras drops the extras that legitimately differ between runs:
// the citation and the two provenance timestamps.
func ComparableExtras(extras []models.Extra) []models.Extra {
	out := make([]models.Extra, 0, len(extras))
	for _, e := range extras {
		switch e.Key {
		case ExtraCitation, ExtraDateCreated, ExtraDateModified:
			continue
		}
		out = append(out, e)
	}
	return out
}
