package jsonld

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cyverse/ckan-migrator/internal/metadata"
	"github.com/cyverse/ckan-migrator/internal/models"
	"github.com/cyverse/ckan-migrator/internal/record"
)

// Defaults for fields an imported document leaves out.
const (
	DefaultTitle          = "Untitled dataset"
	DefaultDescription    = "No description provided."
	DefaultAuthor         = "No author provided."
	DefaultResourceName   = "Untitled resource"
	DefaultResourceURL    = "No URL provided."
	DefaultResourceFormat = "Unknown format"
)

// Imported is a dataset read from a Croissant or DCAT document, ready to be
// written to the catalog.
type Imported struct {
	Title       string
	Description string
	Author      string
	Keywords    []string
	Resources   []models.Resource
}

// document holds the fields both dialects share for a dataset.
type document struct {
	Title        *string        `json:"title"`
	Description  *string        `json:"description"`
	Author       any            `json:"author"`
	Keywords     any            `json:"keyword"`
	Distribution []Distribution `json:"distribution"`
}

// ParseCroissant reads a Croissant document.
func ParseCroissant(raw []byte) (*Imported, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse Croissant JSON: %w", err)
	}
	return doc.imported(), nil
}

// ParseDCAT reads the first dataset of a DCAT catalog.
func ParseDCAT(raw []byte) (*Imported, error) {
	var cat struct {
		Dataset []document `json:"dataset"`
	}
	if err := json.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse DCAT JSON: %w", err)
	}
	if len(cat.Dataset) == 0 {
		return nil, fmt.Errorf("DCAT catalog has no datasets")
	}
	return cat.Dataset[0].imported(), nil
}

// ParseCatalog decodes a DCAT document into its typed form.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var cat Catalog
	if err := json.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse DCAT JSON: %w", err)
	}
	return &cat, nil
}

func (d document) imported() *Imported {
	im := &Imported{
		Title:       orDefault(d.Title, DefaultTitle),
		Description: orDefault(d.Description, DefaultDescription),
		Author:      DefaultAuthor,
		Keywords:    stringList(d.Keywords),
	}
	if a := personName(d.Author); a != "" {
		im.Author = a
	}

	for _, dist := range d.Distribution {
		name := dist.Title
		if name == "" {
			name = dist.Name
		}
		if name == "" {
			name = DefaultResourceName
		}
		desc := dist.Description
		if desc == "" {
			desc = DefaultDescription
		}
		url := dist.URL()
		if url == "" {
			url = DefaultResourceURL
		}
		format := dist.EncodingFormat
		if format == "" {
			format = DefaultResourceFormat
		}
		im.Resources = append(im.Resources, models.Resource{
			Name:        name,
			Description: &desc,
			URL:         url,
			Format:      format,
		})
	}
	return im
}

// Record builds the catalog record for an imported dataset.
func (im *Imported) Record(organization string) *record.Record {
	rec := &record.Record{
		Name:     metadata.NameFromTitle(im.Title),
		Title:    im.Title,
		Notes:    im.Description,
		Author:   im.Author,
		OwnerOrg: organization,
		Tags:     []record.Tag{},
		Extras:   []models.Extra{},
	}
	seen := make(map[string]bool, len(im.Keywords))
	for _, k := range im.Keywords {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		rec.Tags = append(rec.Tags, record.Tag{Name: k})
	}
	return rec
}

func orDefault(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

// stringList accepts a string, a list of strings or a list of {"name": ...}.
func stringList(v any) []string {
	switch x := v.(type) {
	case string:
		var out []string
		for _, s := range strings.Split(x, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			switch it := item.(type) {
			case string:
				out = append(out, it)
			case map[string]any:
				if name, ok := it["name"].(string); ok {
					out = append(out, name)
				}
			}
		}
		return out
	default:
		return nil
	}
}

// personName accepts a plain string, a Person object or a list of either.
func personName(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case map[string]any:
		if name, ok := x["name"].(string); ok {
			return strings.TrimSpace(name)
		}
	case []any:
		var names []string
		for _, item := range x {
			if n := personName(item); n != "" {
				names = append(names, n)
			}
		}
		return strings.Join(names, ", ")
	}
	return ""
}
