package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/cyverse/ckan-migrator/internal/convert"
	"github.com/cyverse/ckan-migrator/internal/metadata"
	"github.com/cyverse/ckan-migrator/internal/models"
	"github.com/cyverse/ckan-migrator/internal/record"
	"github.com/cyverse/ckan-migrator/internal/runlog"
)

// Options configures an Engine.
type Options struct {
	// RootPath is the source directory whose sub-folders are datasets.
	RootPath string
	// Filter selects the remote snapshot compared against.
	Filter       models.Filter
	Organization string
	Curated      bool
	CatalogName  string
	CuratedGroup string
	// TimezoneOffset is the tolerated remote-minus-source clock difference.
	TimezoneOffset time.Duration
	// DatasetTimeout bounds the work done for a single dataset.
	DatasetTimeout time.Duration
	// TempDir holds converted files until they are uploaded.
	TempDir string
}

// Engine reconciles source datasets against the catalog.
type Engine struct {
	source  Source
	catalog Catalog
	opts    Options
	logger  *slog.Logger
	runLog  *runlog.Log
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRunLog sets the plain-text run log.
func WithRunLog(l *runlog.Log) Option {
	return func(e *Engine) { e.runLog = l }
}

// NewEngine creates an Engine.
func NewEngine(src Source, cat Catalog, opts Options, options ...Option) *Engine {
	if opts.DatasetTimeout <= 0 {
		opts.DatasetTimeout = 10 * time.Minute
	}
	if opts.CatalogName == "" {
		opts.CatalogName = metadata.DefaultCatalogName
	}
	e := &Engine{
		source:  src,
		catalog: cat,
		opts:    opts,
		logger:  slog.Default(),
		runLog:  runlog.New(nil),
	}
	for _, o := range options {
		o(e)
	}
	return e
}

func (e *Engine) recordOptions(curated bool, ov record.Overrides) record.Options {
	return record.Options{
		Organization: e.opts.Organization,
		Curated:      curated,
		CatalogName:  e.opts.CatalogName,
		CuratedGroup: e.opts.CuratedGroup,
		Overrides:    ov,
	}
}

// Run reconciles every dataset under the root path. Listing either side
// fails the whole run, as does an authentication failure or cancellation of
// ctx; any other per-dataset error is recorded and the run moves on.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), Started: time.Now()}
	logger := e.logger.With("run_id", report.RunID)
	defer func() { report.Finished = time.Now() }()

	datasets, err := e.source.ListDatasets(ctx, e.opts.RootPath)
	if err != nil {
		return report, fmt.Errorf("failed to list source datasets: %w", err)
	}
	remote, err := e.catalog.ListDatasets(ctx, e.opts.Filter)
	if err != nil {
		return report, fmt.Errorf("failed to list catalog datasets: %w", err)
	}
	logger.Info("Starting reconciliation", "source_datasets", len(datasets), "catalog_datasets", len(remote))

	for i, ds := range datasets {
		out := e.syncDataset(ctx, logger, i, ds, remote)
		report.Outcomes = append(report.Outcomes, out)
		e.runLog.Println("")

		if errors.Is(out.Err, models.ErrAuthFailure) {
			return report, fmt.Errorf("aborting run: %w", out.Err)
		}
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
	}

	logger.Info("Reconciliation complete",
		"created", report.Count(ActionCreated),
		"replaced", report.Count(ActionReplaced),
		"current", report.Count(ActionCurrent),
		"skipped", report.Count(ActionSkipped),
		"failed", report.Count(ActionFailed),
	)
	return report, nil
}

func (e *Engine) syncDataset(ctx context.Context, logger *slog.Logger, index int, ds models.Dataset, remote []models.RemoteRecord) Outcome {
	ctx, cancel := context.WithTimeout(ctx, e.opts.DatasetTimeout)
	defer cancel()

	out := Outcome{Index: index, Path: ds.Path}
	log := logger.With("index", index, "path", ds.Path)

	fail := func(action Action, err error) Outcome {
		out.Action = action
		out.Err = err
		log.Error("Dataset not migrated", "action", action, "err", err)
		return out
	}

	m, err := e.source.DatasetMetadata(ctx, ds)
	if err != nil {
		return fail(failureAction(err), err)
	}
	if metadata.IsEmpty(m) {
		e.runLog.Printf("%d - Skipping: Empty Dataset", index)
		log.Info("Skipping empty dataset")
		out.Action = ActionSkipped
		return out
	}

	title, err := metadata.Title(m)
	if err != nil {
		return fail(ActionSkipped, err)
	}
	out.Title = title
	log = log.With("title", title)

	match := FindByTitle(remote, title)
	if match == nil {
		e.runLog.Printf("%d - Creating New Dataset in CKAN: %s", index, title)
		log.Info("Creating dataset")
		rec, err := record.Build(m, e.recordOptions(e.opts.Curated, record.Overrides{}))
		if err != nil {
			return fail(failureAction(err), err)
		}
		_, files, err := e.migrate(ctx, log, rec, ds.Path, false)
		out.FilesAdded = files
		if err != nil {
			return fail(failureAction(err), err)
		}
		e.runLog.Println("Creation Complete.")
		out.Action = ActionCreated
		return out
	}

	e.runLog.Printf("%d - Matched: %s", index, title)
	remoteModified, _ := match.Extra(metadata.ExtraDateModified)
	sourceModified := ""
	if v, ok := m.Get(metadata.KeyDateModified); ok {
		sourceModified = v.String()
	}

	if !IsCurrent(sourceModified, remoteModified, e.opts.TimezoneOffset) {
		e.explainStale(log, m, match)
		e.runLog.Println("Rewriting")
		log.Info("Rewriting stale dataset", "source_modified", sourceModified, "catalog_modified", remoteModified)

		// The replacement must be buildable before the old record goes.
		rec, err := record.Build(m, e.recordOptions(e.opts.Curated, record.Overrides{}))
		if err != nil {
			return fail(failureAction(err), err)
		}
		if err := e.catalog.DeleteDataset(ctx, match.ID); err != nil {
			return fail(failureAction(err), fmt.Errorf("failed to delete stale dataset %s: %w", match.ID, err))
		}
		_, files, err := e.migrate(ctx, log, rec, ds.Path, false)
		out.FilesAdded = files
		if err != nil {
			return fail(failureAction(err), err)
		}
		out.Action = ActionReplaced
		return out
	}

	added, err := e.checkFiles(ctx, log, ds.Path, match)
	out.FilesAdded = added
	if err != nil {
		return fail(failureAction(err), err)
	}
	if added == 0 {
		e.runLog.Println("\tNo Changes Made. Skipping...")
	}
	log.Info("Dataset current", "files_added", added)
	out.Action = ActionCurrent
	return out
}

// failureAction classifies a migration error: incomplete metadata and an
// expired per-dataset deadline are skips, anything else a failure.
func failureAction(err error) Action {
	if errors.Is(err, models.ErrFieldMissing) || errors.Is(err, models.ErrMissingRequiredField) {
		return ActionSkipped
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ActionSkipped
	}
	return ActionFailed
}

// explainStale logs whether the descriptive extras changed along with the timestamp.
func (e *Engine) explainStale(log *slog.Logger, m *metadata.Metadata, remote *models.RemoteRecord) {
	if !log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	local, err := metadata.Extras(m, e.opts.Curated, e.opts.CatalogName)
	if err != nil {
		return
	}
	same := reflect.DeepEqual(sortedExtras(metadata.ComparableExtras(local)), sortedExtras(metadata.ComparableExtras(remote.Extras)))
	log.Debug("Stale dataset", "extras_changed", !same)
}

// CheckFiles adds any source file missing from an existing catalog record.
// When the counts already agree nothing is written.
func (e *Engine) CheckFiles(ctx context.Context, path string, remote *models.RemoteRecord) (int, error) {
	return e.checkFiles(ctx, e.logger, path, remote)
}

func (e *Engine) checkFiles(ctx context.Context, log *slog.Logger, path string, remote *models.RemoteRecord) (int, error) {
	head, err := e.source.ListFiles(ctx, path, 1)
	if err != nil {
		return 0, fmt.Errorf("failed to count source files: %w", err)
	}
	if head.Total == len(remote.Resources) {
		return 0, nil
	}

	listing, err := e.source.ListFiles(ctx, path, head.Total)
	if err != nil {
		return 0, fmt.Errorf("failed to list source files: %w", err)
	}

	added := 0
	for _, f := range MissingFiles(listing.Files, remote.Resources) {
		log.Debug("Transferring missing file", "dataset", remote.ID, "file", f.Name)
		if err := e.catalog.AddResource(ctx, fileResource(remote.ID, f, f.Type)); err != nil {
			return added, fmt.Errorf("failed to add resource %s: %w", f.Name, err)
		}
		added++
	}
	return added, nil
}

// migrate creates a built record in the catalog and a resource for each of
// the dataset's files and folders.
func (e *Engine) migrate(ctx context.Context, log *slog.Logger, rec *record.Record, path string, convertCSV bool) (string, int, error) {
	id, err := e.catalog.CreateDataset(ctx, rec)
	if err != nil {
		return "", 0, err
	}
	log.Debug("Created dataset", "id", id, "name", rec.Name)

	listing, err := e.listAll(ctx, path)
	if err != nil {
		return id, 0, err
	}

	added := 0
	for _, f := range listing.Files {
		if convertCSV && f.Type == "csv" {
			err = e.uploadParquet(ctx, id, f)
		} else {
			err = e.catalog.AddResource(ctx, fileResource(id, f, f.Type))
		}
		if err != nil {
			return id, added, fmt.Errorf("failed to add resource %s: %w", f.Name, err)
		}
		added++
	}
	for _, f := range listing.Folders {
		if err := e.catalog.AddResource(ctx, fileResource(id, f, models.FolderFormat)); err != nil {
			return id, added, fmt.Errorf("failed to add folder resource %s: %w", f.Name, err)
		}
		added++
	}
	return id, added, nil
}

// listAll lists every file of a dataset: once to learn the total, then
// again with that many.
func (e *Engine) listAll(ctx context.Context, path string) (*models.Listing, error) {
	head, err := e.source.ListFiles(ctx, path, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to count source files: %w", err)
	}
	if head.Total <= 1 {
		return head, nil
	}
	listing, err := e.source.ListFiles(ctx, path, head.Total)
	if err != nil {
		return nil, fmt.Errorf("failed to list source files: %w", err)
	}
	return listing, nil
}

// uploadParquet downloads a CSV file, converts it and uploads the result.
func (e *Engine) uploadParquet(ctx context.Context, packageID string, f models.File) error {
	rc, err := e.source.Open(ctx, f.URL)
	if err != nil {
		return err
	}
	defer rc.Close()

	dir, err := os.MkdirTemp(e.opts.TempDir, "convert-")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	name := convert.ParquetName(f.Name)
	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}

	rows, err := convert.CSVToParquet(rc, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to convert %s: %w", f.Name, err)
	}
	e.logger.Debug("Converted CSV", "file", f.Name, "parquet", name, "rows", rows)

	res := fileResource(packageID, f, "parquet")
	res.Name = name
	res.URL = ""
	return e.catalog.UploadResource(ctx, res, path)
}
