// Package jsonld builds, validates and parses Croissant and DCAT JSON-LD
// descriptions of datasets.
package jsonld

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/cyverse/ckan-migrator/internal/metadata"
	"github.com/cyverse/ckan-migrator/internal/record"
)

const (
	SchemaOrg        = "https://schema.org/"
	CroissantNS      = "https://mlcommons.org/croissant#"
	DCATNS           = "http://www.w3.org/ns/dcat#"
	CroissantVersion = "http://mlcommons.org/croissant/1.0"

	TypeDataset      = "Dataset"
	TypeCatalog      = "Catalog"
	TypeFileObject   = "FileObject"
	TypeOrganization = "Organization"

	CatalogTitle       = "Dataset Catalog"
	CatalogDescription = "A catalog of datasets."
)

// Organization is a schema.org Organization reference.
type Organization struct {
	Type string `json:"@type"`
	Name string `json:"name"`
}

// Distribution is a FileObject describing one downloadable file.
type Distribution struct {
	Type           string `json:"@type"`
	Name           string `json:"name"`
	Identifier     string `json:"identifier,omitempty"`
	Title          string `json:"title,omitempty"`
	Description    string `json:"description,omitempty"`
	EncodingFormat string `json:"encodingFormat,omitempty"`
	ContentURL     string `json:"contentUrl,omitempty"`
	DownloadURL    string `json:"downloadURL,omitempty"`
	SHA256         string `json:"sha256,omitempty"`
}

// URL returns the content location, falling back to downloadURL.
func (d Distribution) URL() string {
	if d.ContentURL != "" {
		return d.ContentURL
	}
	return d.DownloadURL
}

// ContentHash is the hex SHA-256 of a content URL. Both dialects use it as
// the distribution identifier and checksum.
func ContentHash(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// NewDistribution describes a file reachable at url.
func NewDistribution(title, format, url, description string) Distribution {
	hash := ContentHash(url)
	return Distribution{
		Type:           TypeFileObject,
		Name:           strings.ReplaceAll(title, " ", "_"),
		Identifier:     hash,
		Title:          title,
		Description:    description,
		EncodingFormat: format,
		ContentURL:     url,
		SHA256:         hash,
	}
}

// Input is the dialect-neutral description both documents are built from.
type Input struct {
	Title         string
	Description   string
	Author        string
	Keywords      []string
	Identifier    string
	Publisher     string
	Citation      string
	DatePublished string
	License       string
	Version       string
	Distributions []Distribution
}

// FromRecord fills an Input from a catalog record.
func FromRecord(rec *record.Record, dists []Distribution, identifier, publisher, datePublished string) Input {
	in := Input{
		Title:         rec.Title,
		Description:   rec.Notes,
		Author:        rec.Author,
		Keywords:      rec.TagNames(),
		Identifier:    identifier,
		Publisher:     publisher,
		DatePublished: datePublished,
		License:       rec.LicenseURL,
		Version:       rec.Version,
		Distributions: dists,
	}
	for _, e := range rec.Extras {
		if e.Key == metadata.ExtraCitation {
			in.Citation = e.Value
			break
		}
	}
	return in
}

func publisher(name string) *Organization {
	if name == "" {
		return nil
	}
	return &Organization{Type: TypeOrganization, Name: name}
}

func distributions(d []Distribution) []Distribution {
	if d == nil {
		return []Distribution{}
	}
	return d
}

func keywords(k []string) []string {
	if k == nil {
		return []string{}
	}
	return k
}

// Croissant is an ML Commons Croissant dataset description.
type Croissant struct {
	Context       map[string]string `json:"@context"`
	Type          string            `json:"@type"`
	ConformsTo    string            `json:"conformsTo"`
	Name          string            `json:"name"`
	Title         string            `json:"title,omitempty"`
	Description   string            `json:"description,omitempty"`
	Author        string            `json:"author,omitempty"`
	Identifier    string            `json:"identifier,omitempty"`
	Keywords      []string          `json:"keyword"`
	Publisher     *Organization     `json:"publisher,omitempty"`
	Distribution  []Distribution    `json:"distribution"`
	Citation      string            `json:"citation,omitempty"`
	CiteAs        string            `json:"citeAs,omitempty"`
	DatePublished string            `json:"datePublished,omitempty"`
	License       string            `json:"license,omitempty"`
	Version       string            `json:"version,omitempty"`
}

// CroissantContext is the @context of every Croissant document.
func CroissantContext() map[string]string {
	return map[string]string{
		"@vocab":     SchemaOrg,
		"croissant":  CroissantNS,
		"Dataset":    SchemaOrg + TypeDataset,
		"FileObject": SchemaOrg + TypeFileObject,
	}
}

// NewCroissant builds a Croissant document.
func NewCroissant(in Input) *Croissant {
	return &Croissant{
		Context:       CroissantContext(),
		Type:          TypeDataset,
		ConformsTo:    CroissantVersion,
		Name:          strings.ReplaceAll(in.Title, " ", "_"),
		Title:         in.Title,
		Description:   in.Description,
		Author:        in.Author,
		Identifier:    in.Identifier,
		Keywords:      keywords(in.Keywords),
		Publisher:     publisher(in.Publisher),
		Distribution:  distributions(in.Distributions),
		Citation:      in.Citation,
		CiteAs:        in.Citation,
		DatePublished: in.DatePublished,
		License:       in.License,
		Version:       in.Version,
	}
}

// Catalog is a DCAT catalog wrapping one or more datasets.
type Catalog struct {
	Context     map[string]string `json:"@context"`
	Type        string            `json:"@type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Dataset     []DCATDataset     `json:"dataset"`
}

// DCATDataset is one dataset entry of a DCAT catalog.
type DCATDataset struct {
	Type          string         `json:"@type"`
	Name          string         `json:"name"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Identifier    string         `json:"identifier"`
	Keywords      []string       `json:"keyword"`
	Author        string         `json:"author"`
	Publisher     *Organization  `json:"publisher,omitempty"`
	Distribution  []Distribution `json:"distribution"`
	Citation      string         `json:"citation,omitempty"`
	DatePublished string         `json:"datePublished,omitempty"`
	License       string         `json:"license,omitempty"`
	Version       string         `json:"version,omitempty"`
}

// DCATContext is the @context of every DCAT document.
func DCATContext() map[string]string {
	return map[string]string{
		"@vocab":     SchemaOrg,
		"dcat":       DCATNS,
		"Dataset":    SchemaOrg + TypeDataset,
		"FileObject": SchemaOrg + TypeFileObject,
	}
}

// NewDCAT builds a single-dataset DCAT catalog.
func NewDCAT(in Input) *Catalog {
	return &Catalog{
		Context:     DCATContext(),
		Type:        TypeCatalog,
		Title:       CatalogTitle,
		Description: CatalogDescription,
		Dataset: []DCATDataset{{
			Type:          TypeDataset,
			Name:          strings.ReplaceAll(in.Title, " ", "_"),
			Title:         in.Title,
			Description:   in.Description,
			Identifier:    in.Identifier,
			Keywords:      keywords(in.Keywords),
			Author:        in.Author,
			Publisher:     publisher(in.Publisher),
			Distribution:  distributions(in.Distributions),
			Citation:      in.Citation,
			DatePublished: in.DatePublished,
			License:       in.License,
			Version:       in.Version,
		}},
	}
}

// DCATToCroissant converts every dataset of a catalog into a Croissant document.
func DCATToCroissant(cat *Catalog) []*Croissant {
	out := make([]*Croissant, 0, len(cat.Dataset))
	for _, ds := range cat.Dataset {
		dists := make([]Distribution, 0, len(ds.Distribution))
		for _, d := range ds.Distribution {
			if d.Type == "" {
				d.Type = TypeFileObject
			}
			if d.ContentURL == "" {
				d.ContentURL = d.DownloadURL
				d.DownloadURL = ""
			}
			if d.SHA256 == "" && d.ContentURL != "" {
				d.SHA256 = ContentHash(d.ContentURL)
			}
			if d.Identifier == "" {
				d.Identifier = d.SHA256
			}
			dists = append(dists, d)
		}

		in := Input{
			Title:         ds.Title,
			Description:   ds.Description,
			Author:        ds.Author,
			Keywords:      ds.Keywords,
			Identifier:    ds.Identifier,
			Citation:      ds.Citation,
			DatePublished: ds.DatePublished,
			License:       ds.License,
			Version:       ds.Version,
			Distributions: dists,
		}
		if ds.Publisher != nil {
			in.Publisher = ds.Publisher.Name
		}
		c := NewCroissant(in)
		if ds.Name != "" {
			c.Name = ds.Name
		}
		out = append(out, c)
	}
	return out
}
