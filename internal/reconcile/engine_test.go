package reconcile

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyverse/ckan-migrator/internal/jsonld"
	"github.com/cyverse/ckan-migrator/internal/metadata"
	"github.com/cyverse/ckan-migrator/internal/models"
	"github.com/cyverse/ckan-migrator/internal/record"
	"github.com/cyverse/ckan-migrator/internal/runlog"
)

const root = "/iplant/home/shared/commons_repo/curated"

func newEngine(src Source, cat Catalog, buf *bytes.Buffer) *Engine {
	return NewEngine(src, cat, Options{
		RootPath:       root,
		Organization:   "cyverse",
		Curated:        true,
		CuratedGroup:   "cyverse-curated",
		TimezoneOffset: DefaultTimezoneOffset,
		DatasetTimeout: time.Minute,
	},
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		WithRunLog(runlog.New(buf)),
	)
}

func remoteRecord(id, title, lastModified string, resources ...string) models.RemoteRecord {
	r := models.RemoteRecord{
		ID:    id,
		Title: title,
		Extras: []models.Extra{
			{Key: metadata.ExtraDateCreated, Value: created},
			{Key: metadata.ExtraDateModified, Value: lastModified},
		},
	}
	for _, name := range resources {
		r.Resources = append(r.Resources, models.RemoteResource{ID: "res-" + name, Name: name})
	}
	return r
}

func TestIsCurrent(t *testing.T) {
	tests := []struct {
		name   string
		source string
		remote string
		offset time.Duration
		want   bool
	}{
		{"equal", "2023-06-02 08:00:00", "2023-06-02 08:00:00", 7 * time.Hour, true},
		{"offset ahead", "2023-06-02 08:00:00", "2023-06-02 15:00:00", 7 * time.Hour, true},
		{"offset across midnight", "2023-06-01 20:30:15", "2023-06-02 03:30:15", 7 * time.Hour, true},
		{"offset behind", "2023-06-02 15:00:00", "2023-06-02 08:00:00", 7 * time.Hour, false},
		{"wrong offset", "2023-06-02 08:00:00", "2023-06-02 14:00:00", 7 * time.Hour, false},
		{"seconds differ", "2023-06-02 08:00:00", "2023-06-02 15:00:01", 7 * time.Hour, false},
		{"configured offset", "2023-06-02 08:00:00", "2023-06-02 14:00:00", 6 * time.Hour, true},
		{"remote missing", "2023-06-02 08:00:00", "", 7 * time.Hour, false},
		{"unparseable", "yesterday", "today", 7 * time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCurrent(tt.source, tt.remote, tt.offset))
		})
	}
}

func TestFindByTitle(t *testing.T) {
	remote := []models.RemoteRecord{
		{ID: "1", Title: "Soil Samples"},
		{ID: "2", Title: "Soil samples"},
		{ID: "3", Title: "Soil samples"},
	}

	got := FindByTitle(remote, "Soil samples")
	require.NotNil(t, got)
	assert.Equal(t, "2", got.ID)

	assert.Nil(t, FindByTitle(remote, "soil samples"))
	assert.Nil(t, FindByTitle(nil, "Soil samples"))
}

func TestMissingFiles(t *testing.T) {
	files := []models.File{file("/d", "a"), file("/d", "b"), file("/d", "c"), file("/d", "d"), file("/d", "e")}
	remote := []models.RemoteResource{{Name: "a"}, {Name: "c"}, {Name: "e"}}

	missing := MissingFiles(files, remote)
	require.Len(t, missing, 2)
	assert.Equal(t, "b", missing[0].Name)
	assert.Equal(t, "d", missing[1].Name)
}

func TestRunCreatesNewDataset(t *testing.T) {
	src := newFakeSource()
	src.addDataset(root+"/A", "Soil samples", []string{"data.csv", "README"}, []string{"raw"})
	cat := newFakeCatalog()
	var log bytes.Buffer

	report, err := newEngine(src, cat, &log).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, ActionCreated, report.Outcomes[0].Action)
	assert.Equal(t, 3, report.Outcomes[0].FilesAdded)
	assert.NotEmpty(t, report.RunID)

	assert.Equal(t, []string{"create:soil-samples", "resource:data.csv", "resource:README", "resource:raw"}, cat.calls)

	rec := cat.created[0]
	assert.Equal(t, "cyverse", rec.OwnerOrg)
	assert.Equal(t, "cc-zero", rec.LicenseID)
	assert.Equal(t, []record.Group{{Name: "cyverse-curated"}}, rec.Groups)

	assert.Equal(t, "csv", cat.resources[0].Format)
	assert.Equal(t, "pkg-1", cat.resources[0].PackageID)
	assert.Nil(t, cat.resources[0].Description)
	assert.Equal(t, modified, cat.resources[0].DateModified)
	assert.Equal(t, models.FolderFormat, cat.resources[2].Format)
	assert.Equal(t, created, cat.resources[2].DateCreated)

	assert.Contains(t, log.String(), "0 - Creating New Dataset in CKAN: Soil samples\nCreation Complete.\n")
}

func TestRunSkipsEmptyDataset(t *testing.T) {
	src := newFakeSource()
	src.addDataset(root+"/empty", "", nil, nil)
	cat := newFakeCatalog()
	var log bytes.Buffer

	report, err := newEngine(src, cat, &log).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ActionSkipped, report.Outcomes[0].Action)
	assert.NoError(t, report.Outcomes[0].Err)
	assert.Zero(t, cat.writes())
	assert.Contains(t, log.String(), "0 - Skipping: Empty Dataset\n")
}

func TestRunCurrentAddsOnlyMissingFiles(t *testing.T) {
	src := newFakeSource()
	src.addDataset(root+"/A", "Soil samples", []string{"a.csv", "b.csv", "c.csv", "d.csv", "e.csv"}, nil)
	cat := newFakeCatalog(remoteRecord("pkg-A", "Soil samples", "2023-06-02 15:00:00", "a.csv", "c.csv", "e.csv"))
	var log bytes.Buffer

	report, err := newEngine(src, cat, &log).Run(context.Background())
	require.NoError(t, err)

	out := report.Outcomes[0]
	assert.Equal(t, ActionCurrent, out.Action)
	assert.Equal(t, 2, out.FilesAdded)
	assert.Equal(t, []string{"resource:b.csv", "resource:d.csv"}, cat.calls)
	for _, r := range cat.resources {
		assert.Equal(t, "pkg-A", r.PackageID)
	}
	assert.Contains(t, log.String(), "0 - Matched: Soil samples\n")
	assert.NotContains(t, log.String(), "No Changes Made")
}

func TestRunCurrentWithMatchingCountsWritesNothing(t *testing.T) {
	src := newFakeSource()
	src.addDataset(root+"/A", "Soil samples", []string{"a.csv", "b.csv"}, nil)
	cat := newFakeCatalog(remoteRecord("pkg-A", "Soil samples", modified, "x", "y"))
	var log bytes.Buffer

	report, err := newEngine(src, cat, &log).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ActionCurrent, report.Outcomes[0].Action)
	assert.Zero(t, cat.writes())
	assert.Contains(t, log.String(), "0 - Matched: Soil samples\n\tNo Changes Made. Skipping...\n")
}

func TestRunRewritesStaleDataset(t *testing.T) {
	src := newFakeSource()
	src.addDataset(root+"/A", "Soil samples", []string{"a.csv"}, nil)
	cat := newFakeCatalog(remoteRecord("pkg-old", "Soil samples", "2023-05-01 08:00:00", "a.csv"))
	var log bytes.Buffer

	report, err := newEngine(src, cat, &log).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ActionReplaced, report.Outcomes[0].Action)
	assert.Equal(t, []string{"delete:pkg-old", "create:soil-samples", "resource:a.csv"}, cat.calls)
	assert.Contains(t, log.String(), "0 - Matched: Soil samples\nRewriting\n")
}

func TestRunRemoteWithoutModifiedDateIsStale(t *testing.T) {
	src := newFakeSource()
	src.addDataset(root+"/A", "Soil samples", nil, nil)
	cat := newFakeCatalog(models.RemoteRecord{ID: "pkg-old", Title: "Soil samples"})

	report, err := newEngine(src, cat, &bytes.Buffer{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ActionReplaced, report.Outcomes[0].Action)
	assert.Equal(t, "delete:pkg-old", cat.calls[0])
}

func withoutDescription(path, title string) *metadata.Metadata {
	return metadata.FromPairs(
		metadata.KeyDateCreated, created,
		metadata.KeyDateModified, modified,
		metadata.KeyPath, path,
		"title", title,
		"datacite.creator", "Doe, J.",
		"datacite.publicationyear", "2021",
		"Identifier", "10.25739/abcd",
		"rights", "CC0",
	)
}

func TestRunStaleDatasetWithIncompleteMetadataKeepsRemote(t *testing.T) {
	src := newFakeSource()
	ds := src.addDataset(root+"/A", "Soil samples", []string{"a.csv"}, nil)
	src.meta[ds.ID] = withoutDescription(ds.Path, "Soil samples")
	cat := newFakeCatalog(remoteRecord("pkg-old", "Soil samples", "2023-05-01 08:00:00", "a.csv"))

	report, err := newEngine(src, cat, &bytes.Buffer{}).Run(context.Background())
	require.NoError(t, err)

	out := report.Outcomes[0]
	assert.Equal(t, ActionSkipped, out.Action)
	assert.True(t, errors.Is(out.Err, models.ErrFieldMissing))
	assert.Zero(t, cat.writes())
}

func TestRunNewDatasetWithIncompleteMetadataWritesNothing(t *testing.T) {
	src := newFakeSource()
	ds := src.addDataset(root+"/A", "Soil samples", []string{"a.csv"}, nil)
	src.meta[ds.ID] = withoutDescription(ds.Path, "Soil samples")
	cat := newFakeCatalog()

	report, err := newEngine(src, cat, &bytes.Buffer{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ActionSkipped, report.Outcomes[0].Action)
	assert.Zero(t, cat.writes())
}

// blockingSource stalls metadata reads for the listed datasets until the
// request context ends.
type blockingSource struct {
	*fakeSource
	block map[string]bool
}

func (s *blockingSource) DatasetMetadata(ctx context.Context, ds models.Dataset) (*metadata.Metadata, error) {
	if s.block[ds.ID] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.fakeSource.DatasetMetadata(ctx, ds)
}

func TestRunDatasetTimeoutSkipsAndContinues(t *testing.T) {
	fake := newFakeSource()
	slow := fake.addDataset(root+"/slow", "Slow", nil, nil)
	fake.addDataset(root+"/ok", "Good one", []string{"x.txt"}, nil)
	src := &blockingSource{fakeSource: fake, block: map[string]bool{slow.ID: true}}
	cat := newFakeCatalog()

	eng := newEngine(src, cat, &bytes.Buffer{})
	eng.opts.DatasetTimeout = 20 * time.Millisecond

	report, err := eng.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, ActionSkipped, report.Outcomes[0].Action)
	assert.True(t, errors.Is(report.Outcomes[0].Err, context.DeadlineExceeded))
	assert.Equal(t, ActionCreated, report.Outcomes[1].Action)
	assert.Equal(t, []string{"create:good-one", "resource:x.txt"}, cat.calls)
}

func TestRunFileTransferLogsCarryDatasetContext(t *testing.T) {
	src := newFakeSource()
	src.addDataset(root+"/A", "Soil samples", []string{"a.csv", "b.csv"}, nil)
	cat := newFakeCatalog(remoteRecord("pkg-A", "Soil samples", "2023-06-02 15:00:00", "a.csv"))
	var logs bytes.Buffer

	eng := NewEngine(src, cat, Options{
		RootPath:       root,
		TimezoneOffset: DefaultTimezoneOffset,
	},
		WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
		WithRunLog(runlog.New(&bytes.Buffer{})),
	)
	report, err := eng.Run(context.Background())
	require.NoError(t, err)

	var line string
	for _, l := range strings.Split(logs.String(), "\n") {
		if strings.Contains(l, "Transferring missing file") {
			line = l
		}
	}
	require.NotEmpty(t, line)
	assert.Contains(t, line, "run_id="+report.RunID)
	assert.Contains(t, line, "index=0")
	assert.Contains(t, line, `title="Soil samples"`)
	assert.Contains(t, line, "file=b.csv")
}

func TestMigrateOneIncompleteMetadataWritesNothing(t *testing.T) {
	src := newFakeSource()
	ds := src.addDataset(root+"/A", "Soil samples", []string{"a.csv"}, nil)
	src.meta[ds.ID] = withoutDescription(ds.Path, "Soil samples")
	cat := newFakeCatalog()

	out, err := newEngine(src, cat, &bytes.Buffer{}).MigrateOne(context.Background(), ds.Path, record.Overrides{}, true, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error creating CKAN dataset")
	assert.Equal(t, ActionSkipped, out.Action)
	assert.Zero(t, cat.writes())
}

func TestRunContinuesPastDatasetErrors(t *testing.T) {
	src := newFakeSource()
	broken := src.addDataset(root+"/broken", "Broken", nil, nil)
	src.metaErr[broken.ID] = errors.New("boom")
	untitled := src.addDataset(root+"/untitled", "Untitled", nil, nil)
	src.meta[untitled.ID] = metadata.FromPairs(metadata.KeyDateCreated, created, metadata.KeyDateModified, modified, metadata.KeyPath, untitled.Path, "creator", "Doe")
	src.addDataset(root+"/ok", "Good one", []string{"x.txt"}, nil)
	cat := newFakeCatalog()

	report, err := newEngine(src, cat, &bytes.Buffer{}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, ActionFailed, report.Outcomes[0].Action)
	assert.Equal(t, ActionSkipped, report.Outcomes[1].Action)
	assert.True(t, errors.Is(report.Outcomes[1].Err, models.ErrFieldMissing))
	assert.Equal(t, ActionCreated, report.Outcomes[2].Action)
	assert.Equal(t, 1, report.Count(ActionCreated))
}

func TestRunRecordsRemoteWriteFailure(t *testing.T) {
	src := newFakeSource()
	src.addDataset(root+"/A", "Soil samples", []string{"a.csv"}, nil)
	cat := newFakeCatalog()
	cat.createErr = models.ErrRemoteWrite

	report, err := newEngine(src, cat, &bytes.Buffer{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ActionFailed, report.Outcomes[0].Action)
	assert.True(t, errors.Is(report.Outcomes[0].Err, models.ErrRemoteWrite))
}

func TestRunAbortsOnAuthFailure(t *testing.T) {
	src := newFakeSource()
	first := src.addDataset(root+"/A", "A", nil, nil)
	src.metaErr[first.ID] = models.ErrAuthFailure
	src.addDataset(root+"/B", "B", nil, nil)
	cat := newFakeCatalog()

	report, err := newEngine(src, cat, &bytes.Buffer{}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrAuthFailure))
	assert.Len(t, report.Outcomes, 1)
	assert.Zero(t, cat.writes())
}

func TestRunListingFailuresAreFatal(t *testing.T) {
	src := newFakeSource()
	src.listErr = errors.New("terrain down")
	_, err := newEngine(src, newFakeCatalog(), &bytes.Buffer{}).Run(context.Background())
	assert.Error(t, err)

	cat := newFakeCatalog()
	cat.listErr = errors.New("ckan down")
	_, err = newEngine(newFakeSource(), cat, &bytes.Buffer{}).Run(context.Background())
	assert.Error(t, err)
}

func TestMigrateOneConvertsCSV(t *testing.T) {
	src := newFakeSource()
	ds := src.addDataset(root+"/A", "Soil samples", []string{"data.csv", "notes.txt"}, nil)
	src.content[file(ds.Path, "data.csv").URL] = "site,ph\nA,6.5\n"
	cat := newFakeCatalog()

	eng := newEngine(src, cat, &bytes.Buffer{})
	eng.opts.TempDir = t.TempDir()

	out, err := eng.MigrateOne(context.Background(), ds.Path, record.Overrides{Title: "Custom title"}, false, true)
	require.NoError(t, err)

	assert.Equal(t, ActionCreated, out.Action)
	assert.Equal(t, "Custom title", out.Title)
	assert.Equal(t, 2, out.FilesAdded)
	assert.Equal(t, []string{"create:custom-title", "upload:data.parquet", "resource:notes.txt"}, cat.calls)

	assert.Empty(t, cat.created[0].LicenseID)
	assert.Equal(t, "parquet", cat.uploads[0].Format)
	assert.True(t, bytes.HasPrefix(cat.uploaded["data.parquet"], []byte("PAR1")))
}

func TestMigrateOneUnknownPath(t *testing.T) {
	eng := newEngine(newFakeSource(), newFakeCatalog(), &bytes.Buffer{})
	_, err := eng.MigrateOne(context.Background(), root+"/missing", record.Overrides{}, true, false)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestMigrateOneCreateFailure(t *testing.T) {
	src := newFakeSource()
	ds := src.addDataset(root+"/A", "Soil samples", nil, nil)
	cat := newFakeCatalog()
	cat.createErr = models.ErrRemoteWrite

	out, err := newEngine(src, cat, &bytes.Buffer{}).MigrateOne(context.Background(), ds.Path, record.Overrides{}, true, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error creating CKAN dataset")
	assert.Equal(t, ActionFailed, out.Action)
}

func TestCheck(t *testing.T) {
	src := newFakeSource()
	ds := src.addDataset(root+"/A", "Soil samples", nil, nil)

	c, err := newEngine(src, newFakeCatalog(), &bytes.Buffer{}).Check(context.Background(), ds.Path)
	require.NoError(t, err)
	assert.True(t, c.Complete())
}

func TestDescribe(t *testing.T) {
	src := newFakeSource()
	ds := src.addDataset(root+"/A", "Soil samples", []string{"data.csv", "b.txt"}, []string{"raw"})

	in, err := newEngine(src, newFakeCatalog(), &bytes.Buffer{}).Describe(context.Background(), ds.Path, record.Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "Soil samples", in.Title)
	assert.Equal(t, "10.25739/abcd", in.Identifier)
	assert.Equal(t, "2021", in.DatePublished)
	assert.Equal(t, []string{"soil", "water"}, in.Keywords)
	assert.NotEmpty(t, in.Citation)
	require.Len(t, in.Distributions, 2)
	assert.Equal(t, jsonld.ContentHash(file(ds.Path, "data.csv").URL), in.Distributions[0].SHA256)
}

func TestImport(t *testing.T) {
	cat := newFakeCatalog()
	eng := newEngine(newFakeSource(), cat, &bytes.Buffer{})

	desc := "d"
	id, err := eng.Import(context.Background(), &jsonld.Imported{
		Title:     "Imported set",
		Author:    "Doe",
		Resources: []models.Resource{{Name: "a", URL: "https://x/a", Description: &desc}},
	})
	require.NoError(t, err)
	assert.Equal(t, "pkg-1", id)
	assert.Equal(t, []string{"create:imported-set", "resource:a"}, cat.calls)
	assert.Equal(t, "pkg-1", cat.resources[0].PackageID)
	assert.Equal(t, "cyverse", cat.created[0].OwnerOrg)
}

func TestReportSummary(t *testing.T) {
	r := &Report{
		RunID:   "run-1",
		Started: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Outcomes: []Outcome{
			{Index: 0, Action: ActionCreated, FilesAdded: 2},
			{Index: 1, Action: ActionFailed, Err: errors.New("boom")},
			{Index: 2, Action: ActionCreated},
		},
	}
	s := r.Summary(runlog.RunConfig{Organization: "cyverse"})

	assert.Equal(t, "run-1", s.Config.RunID)
	assert.Equal(t, "cyverse", s.Config.Organization)
	assert.Equal(t, 2, s.Totals["created"])
	assert.Equal(t, "boom", s.Results[1].Error)
}
