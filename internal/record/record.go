// Package record assembles the canonical catalog record for a dataset.
package record

import (
	"strings"

	"github.com/cyverse/ckan-migrator/internal/metadata"
	"github.com/cyverse/ckan-migrator/internal/models"
)

// Tag is a catalog tag.
type Tag struct {
	Name string `json:"name"`
}

// Group is a catalog group reference.
type Group struct {
	Name string `json:"name"`
}

// Record is the catalog dataset payload.
type Record struct {
	Name     string         `json:"name"`
	Title    string         `json:"title"`
	Notes    string         `json:"notes"`
	Author   string         `json:"author"`
	OwnerOrg string         `json:"owner_org"`
	Private  bool           `json:"private"`
	Tags     []Tag          `json:"tags"`
	Extras   []models.Extra `json:"extras"`
	Groups   []Group        `json:"groups,omitempty"`
	Version  string         `json:"version,omitempty"`

	LicenseID    string `json:"license_id,omitempty"`
	LicenseTitle string `json:"license_title,omitempty"`
	LicenseURL   string `json:"license_url,omitempty"`
}

// TagNames returns the bare tag strings.
func (r *Record) TagNames() []string {
	names := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		names = append(names, t.Name)
	}
	return names
}

// Overrides are user-supplied values that replace extracted ones. Empty
// strings mean "not supplied".
type Overrides struct {
	Title       string
	Description string
	Author      string
}

// Options controls how a record is built.
type Options struct {
	Organization string
	Curated      bool
	// CatalogName is printed in curated citations.
	CatalogName string
	// CuratedGroup is attached to curated records when set.
	CuratedGroup string
	Overrides    Overrides
}

// Build derives the catalog record from source metadata. It is a pure
// transform: the same metadata and options always give the same record.
func Build(m *metadata.Metadata, opts Options) (*Record, error) {
	title, err := pick(opts.Overrides.Title, metadata.Title, m)
	if err != nil {
		return nil, err
	}
	notes, err := pick(opts.Overrides.Description, metadata.Description, m)
	if err != nil {
		return nil, err
	}
	author, err := pick(opts.Overrides.Author, metadata.Author, m)
	if err != nil {
		return nil, err
	}

	extras, err := metadata.Extras(m, opts.Curated, opts.CatalogName)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		Name:     metadata.NameFromTitle(title),
		Title:    title,
		Notes:    notes,
		Author:   author,
		OwnerOrg: opts.Organization,
		Private:  false,
		Tags:     []Tag{},
		Extras:   extras,
	}
	for _, t := range metadata.Tags(m) {
		rec.Tags = append(rec.Tags, Tag{Name: t})
	}

	if opts.Curated {
		license := metadata.LicenseFor(m)
		rec.LicenseID = license.ID
		rec.LicenseTitle = license.Title
		rec.LicenseURL = license.URL
		if opts.CuratedGroup != "" {
			rec.Groups = []Group{{Name: opts.CuratedGroup}}
		}
	}

	if v, ok := metadata.Version(m); ok {
		rec.Version = v
	}

	return rec, nil
}

func pick(override string, extract func(*metadata.Metadata) (string, error), m *metadata.Metadata) (string, error) {
	if s := strings.TrimSpace(override); s != "" {
		return s, nil
	}
	return extract(m)
}
