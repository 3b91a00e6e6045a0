package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cyverse/ckan-migrator/internal/jsonld"
	"github.com/cyverse/ckan-migrator/internal/metadata"
	"github.com/cyverse/ckan-migrator/internal/models"
	"github.com/cyverse/ckan-migrator/internal/record"
)

// IsCuratedPath reports whether a dataset lives in the curated tree.
func IsCuratedPath(path string) bool {
	return strings.Contains(path, "curated")
}

// MigrateOne creates a catalog record for the dataset at path, regardless
// of what the catalog already holds. With convertCSV, CSV files are
// uploaded as Parquet; everything else is linked.
func (e *Engine) MigrateOne(ctx context.Context, path string, ov record.Overrides, curated, convertCSV bool) (*Outcome, error) {
	ds, err := e.source.FindDataset(ctx, path)
	if err != nil {
		return nil, err
	}
	m, err := e.source.DatasetMetadata(ctx, ds)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Path: ds.Path}
	log := e.logger.With("path", ds.Path)

	rec, err := record.Build(m, e.recordOptions(curated, ov))
	if err != nil {
		out.Action = failureAction(err)
		out.Err = err
		return out, fmt.Errorf("Error creating CKAN dataset: %w", err)
	}

	id, files, err := e.migrate(ctx, log, rec, ds.Path, convertCSV)
	out.FilesAdded = files
	if err != nil {
		out.Action = failureAction(err)
		out.Err = err
		if id == "" {
			return out, fmt.Errorf("Error creating CKAN dataset: %w", err)
		}
		return out, fmt.Errorf("Error adding resource to CKAN dataset: %w", err)
	}

	out.Action = ActionCreated
	if title, err := metadata.Title(m); err == nil {
		out.Title = title
	}
	if ov.Title != "" {
		out.Title = ov.Title
	}
	log.Info("Dataset migrated", "id", id, "files", files)
	return out, nil
}

// Check reports which canonical fields the dataset at path is missing.
func (e *Engine) Check(ctx context.Context, path string) (metadata.Completeness, error) {
	ds, err := e.source.FindDataset(ctx, path)
	if err != nil {
		return metadata.Completeness{}, err
	}
	m, err := e.source.DatasetMetadata(ctx, ds)
	if err != nil {
		return metadata.Completeness{}, err
	}
	return metadata.CheckCompleteness(m), nil
}

// Describe gathers what a JSON-LD export of the dataset at path needs.
func (e *Engine) Describe(ctx context.Context, path string, ov record.Overrides) (jsonld.Input, error) {
	ds, err := e.source.FindDataset(ctx, path)
	if err != nil {
		return jsonld.Input{}, err
	}
	m, err := e.source.DatasetMetadata(ctx, ds)
	if err != nil {
		return jsonld.Input{}, err
	}

	rec, err := record.Build(m, e.recordOptions(IsCuratedPath(ds.Path), ov))
	if err != nil {
		return jsonld.Input{}, err
	}

	listing, err := e.listAll(ctx, ds.Path)
	if err != nil {
		return jsonld.Input{}, err
	}
	dists := make([]jsonld.Distribution, 0, len(listing.Files))
	for _, f := range listing.Files {
		dists = append(dists, jsonld.NewDistribution(f.Name, f.Type, f.URL, ""))
	}

	identifier, err := metadata.Identifier(m)
	if err != nil && !errors.Is(err, models.ErrFieldMissing) {
		return jsonld.Input{}, err
	}
	year, _ := metadata.PublicationYear(m)

	return jsonld.FromRecord(rec, dists, identifier, e.opts.CatalogName, year), nil
}

// Import writes a dataset read from a JSON-LD document to the catalog and
// links each of its resources.
func (e *Engine) Import(ctx context.Context, im *jsonld.Imported) (string, error) {
	id, err := e.catalog.CreateDataset(ctx, im.Record(e.opts.Organization))
	if err != nil {
		return "", fmt.Errorf("Error creating CKAN dataset: %w", err)
	}
	for _, res := range im.Resources {
		res.PackageID = id
		if err := e.catalog.AddResource(ctx, res); err != nil {
			return id, fmt.Errorf("Error adding resource to CKAN dataset: %w", err)
		}
	}
	e.logger.Info("Imported dataset", "id", id, "title", im.Title, "resources", len(im.Resources))
	return id, nil
}
