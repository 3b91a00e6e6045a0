package metadata

import (
	"errors"
	"strings"

	"github.com/cyverse/ckan-migrator/internal/models"
)

// Candidate keys per field, in precedence order. The first present key wins.
var (
	titleKeys       = []string{"title", "Title", "datacite.title"}
	authorKeys      = []string{"datacite.creator", "creator", "Creator"}
	descriptionKeys = []string{"description", "Description"}
	yearKeys        = []string{"datacite.publicationyear", "publicationYear", "PublicationYear"}
	identifierKeys  = []string{"Identifier", "identifier"}
	versionKeys     = []string{"version", "Version"}
	subjectKeys     = []string{"subject", "Subject"}
)

func field(m *Metadata, name string, keys []string) (Value, error) {
	v, _, ok := m.lookup(keys)
	if !ok {
		return Value{}, &FieldError{Field: name, Keys: keys}
	}
	return v, nil
}

// Title returns the dataset title with surrounding whitespace removed.
func Title(m *Metadata) (string, error) {
	v, err := field(m, "title", titleKeys)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v.String()), nil
}

// Author returns the creator(s), comma-joined.
func Author(m *Metadata) (string, error) {
	v, err := field(m, "author", authorKeys)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// Description returns the dataset description.
func Description(m *Metadata) (string, error) {
	v, err := field(m, "description", descriptionKeys)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// PublicationYear returns the first four characters of the first
// publication year value, which is either a bare year or an ISO date.
func PublicationYear(m *Metadata) (string, error) {
	v, err := field(m, "publication year", yearKeys)
	if err != nil {
		return "", err
	}
	year := []rune(strings.TrimSpace(v.First()))
	if len(year) > 4 {
		year = year[:4]
	}
	return string(year), nil
}

// Version returns the dataset version, if any.
func Version(m *Metadata) (string, bool) {
	v, _, ok := m.lookup(versionKeys)
	if !ok {
		return "", false
	}
	return v.String(), true
}

// Completeness tells which of the key descriptive fields a dataset has.
type Completeness struct {
	Title       bool `json:"title" yaml:"title"`
	Author      bool `json:"author" yaml:"author"`
	Description bool `json:"description" yaml:"description"`
}

// Complete reports whether all fields are present.
func (c Completeness) Complete() bool {
	return c.Title && c.Author && c.Description
}

// CheckCompleteness probes the title, author and description extractors.
func CheckCompleteness(m *Metadata) Completeness {
	_, titleErr := Title(m)
	_, authorErr := Author(m)
	_, descErr := Description(m)
	return Completeness{
		Title:       !errors.Is(titleErr, models.ErrFieldMissing),
		Author:      !errors.Is(authorErr, models.ErrFieldMissing),
		Description: !errors.Is(descErr, models.ErrFieldMissing),
	}
}
