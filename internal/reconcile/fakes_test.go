package reconcile

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/cyverse/ckan-migrator/internal/metadata"
	"github.com/cyverse/ckan-migrator/internal/models"
	"github.com/cyverse/ckan-migrator/internal/record"
)

const (
	created  = "2023-06-01 12:00:00"
	modified = "2023-06-02 08:00:00"
)

func datasetMetadata(path, title string) *metadata.Metadata {
	return metadata.FromPairs(
		metadata.KeyDateCreated, created,
		metadata.KeyDateModified, modified,
		metadata.KeyPath, path,
		"title", title,
		"datacite.creator", "Doe, J.",
		"description", "Samples.",
		"datacite.publicationyear", "2021",
		"Identifier", "10.25739/abcd",
		"subject", "soil, water",
		"rights", "CC0",
	)
}

func file(dir, name string) models.File {
	ext := ""
	if i := strings.LastIndex(name, "."); i >= 0 {
		ext = name[i+1:]
	}
	return models.File{
		ID:           dir + "/" + name,
		Path:         dir + "/" + name,
		Name:         name,
		Type:         ext,
		URL:          "https://dav.example.org" + dir + "/" + name,
		DateCreated:  created,
		DateModified: modified,
	}
}

type fakeSource struct {
	datasets []models.Dataset
	meta     map[string]*metadata.Metadata
	metaErr  map[string]error
	files    map[string]*models.Listing
	content  map[string]string
	listErr  error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		meta:    map[string]*metadata.Metadata{},
		metaErr: map[string]error{},
		files:   map[string]*models.Listing{},
		content: map[string]string{},
	}
}

// addDataset registers a dataset folder with metadata and files.
func (s *fakeSource) addDataset(path, title string, files []string, folders []string) models.Dataset {
	ds := models.Dataset{ID: "id:" + path, Path: path, Label: title, DateCreated: created, DateModified: modified}
	s.datasets = append(s.datasets, ds)
	if title != "" {
		s.meta[ds.ID] = datasetMetadata(path, title)
	} else {
		s.meta[ds.ID] = metadata.FromPairs(metadata.KeyDateCreated, created, metadata.KeyDateModified, modified, metadata.KeyPath, path)
	}
	listing := &models.Listing{Total: len(files)}
	for _, f := range files {
		listing.Files = append(listing.Files, file(path, f))
	}
	for _, f := range folders {
		listing.Folders = append(listing.Folders, file(path, f))
	}
	s.files[path] = listing
	return ds
}

func (s *fakeSource) ListDatasets(_ context.Context, _ string) ([]models.Dataset, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.datasets, nil
}

func (s *fakeSource) DatasetMetadata(_ context.Context, ds models.Dataset) (*metadata.Metadata, error) {
	if err := s.metaErr[ds.ID]; err != nil {
		return nil, err
	}
	m, ok := s.meta[ds.ID]
	if !ok {
		return nil, fmt.Errorf("dataset %s: %w", ds.Path, models.ErrNotFound)
	}
	return m, nil
}

func (s *fakeSource) ListFiles(_ context.Context, dir string, limit int) (*models.Listing, error) {
	l, ok := s.files[dir]
	if !ok {
		return &models.Listing{}, nil
	}
	out := &models.Listing{Total: l.Total, Folders: l.Folders, Files: l.Files}
	if limit < len(out.Files) {
		out.Files = out.Files[:limit]
	}
	return out, nil
}

func (s *fakeSource) FindDataset(_ context.Context, path string) (models.Dataset, error) {
	for _, ds := range s.datasets {
		if ds.Path == path {
			return ds, nil
		}
	}
	return models.Dataset{}, fmt.Errorf("dataset %s: %w", path, models.ErrNotFound)
}

func (s *fakeSource) Open(_ context.Context, url string) (io.ReadCloser, error) {
	body, ok := s.content[url]
	if !ok {
		return nil, fmt.Errorf("%s: %w", url, models.ErrNotFound)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type fakeCatalog struct {
	mu        sync.Mutex
	remote    []models.RemoteRecord
	listErr   error
	createErr error
	calls     []string
	created   []*record.Record
	resources []models.Resource
	uploads   []models.Resource
	uploaded  map[string][]byte
	nextID    int
}

func newFakeCatalog(remote ...models.RemoteRecord) *fakeCatalog {
	return &fakeCatalog{remote: remote, uploaded: map[string][]byte{}}
}

func (c *fakeCatalog) writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *fakeCatalog) ListDatasets(_ context.Context, _ models.Filter) ([]models.RemoteRecord, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.remote, nil
}

func (c *fakeCatalog) CreateDataset(_ context.Context, rec *record.Record) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.createErr != nil {
		return "", c.createErr
	}
	c.nextID++
	c.calls = append(c.calls, "create:"+rec.Name)
	c.created = append(c.created, rec)
	return fmt.Sprintf("pkg-%d", c.nextID), nil
}

func (c *fakeCatalog) DeleteDataset(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "delete:"+id)
	return nil
}

func (c *fakeCatalog) AddResource(_ context.Context, res models.Resource) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "resource:"+res.Name)
	c.resources = append(c.resources, res)
	return nil
}

func (c *fakeCatalog) UploadResource(_ context.Context, res models.Resource, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	c.calls = append(c.calls, "upload:"+res.Name)
	c.uploads = append(c.uploads, res)
	c.uploaded[res.Name] = data
	return nil
}
