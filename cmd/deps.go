package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cyverse/ckan-migrator/internal/catalog"
	"github.com/cyverse/ckan-migrator/internal/config"
	"github.com/cyverse/ckan-migrator/internal/discovery"
	"github.com/cyverse/ckan-migrator/internal/models"
	"github.com/cyverse/ckan-migrator/internal/reconcile"
)

var (
	_ reconcile.Source  = (*discovery.Client)(nil)
	_ reconcile.Catalog = (*catalog.Client)(nil)
)

const authFailureMessage = "Error obtaining DE API key. Please check username and password."

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configPath)
}

// newSource returns an authenticated Discovery Environment client.
func newSource(ctx context.Context, cfg *config.Config) (*discovery.Client, error) {
	if err := cfg.ValidateDiscovery(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	client := discovery.NewClient(cfg.Discovery.BaseURL, cfg.Discovery.WebDAVURL, discovery.WithLocation(loc))
	if err := client.Authenticate(ctx, cfg.Discovery.Username, cfg.Discovery.Password); err != nil {
		if errors.Is(err, models.ErrAuthFailure) {
			return nil, fmt.Errorf("%s: %w", authFailureMessage, err)
		}
		return nil, err
	}
	return client, nil
}

func newCatalog(cfg *config.Config) (*catalog.Client, error) {
	if err := cfg.ValidateCatalog(); err != nil {
		return nil, err
	}
	return catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.APIKey, catalog.WithRateLimit(cfg.Catalog.RateLimit)), nil
}

func newEngine(cfg *config.Config, src reconcile.Source, cat reconcile.Catalog, opts ...reconcile.Option) *reconcile.Engine {
	opts = append([]reconcile.Option{reconcile.WithLogger(slog.Default())}, opts...)
	return reconcile.NewEngine(src, cat, reconcile.Options{
		RootPath: cfg.Discovery.RootPath,
		Filter: models.Filter{
			Organization: cfg.Catalog.Organization,
			Group:        cfg.Catalog.Group,
		},
		Organization:   cfg.Catalog.Organization,
		Curated:        cfg.Sync.Curated,
		CatalogName:    cfg.Catalog.DisplayName,
		CuratedGroup:   cfg.Catalog.CuratedGroup,
		TimezoneOffset: cfg.Sync.TimezoneOffset,
		DatasetTimeout: cfg.Sync.DatasetTimeout,
	}, opts...)
}
