// Package reconcile decides, per source dataset, whether the catalog needs
// a new record, a rewritten record, missing files, or nothing at all, and
// carries out those writes.
package reconcile

import (
	"context"
	"io"

	"github.com/cyverse/ckan-migrator/internal/metadata"
	"github.com/cyverse/ckan-migrator/internal/models"
	"github.com/cyverse/ckan-migrator/internal/record"
)

// Source is the platform datasets are migrated from.
type Source interface {
	ListDatasets(ctx context.Context, dir string) ([]models.Dataset, error)
	DatasetMetadata(ctx context.Context, ds models.Dataset) (*metadata.Metadata, error)
	ListFiles(ctx context.Context, dir string, limit int) (*models.Listing, error)
	FindDataset(ctx context.Context, path string) (models.Dataset, error)
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// Catalog is the platform datasets are migrated to.
type Catalog interface {
	ListDatasets(ctx context.Context, f models.Filter) ([]models.RemoteRecord, error)
	CreateDataset(ctx context.Context, rec *record.Record) (string, error)
	DeleteDataset(ctx context.Context, id string) error
	AddResource(ctx context.Context, res models.Resource) error
	UploadResource(ctx context.Context, res models.Resource, path string) error
}
