// Package config loads migrator settings from a YAML file, the environment
// and built-in defaults, in increasing order of precedence: defaults, file,
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cyverse/ckan-migrator/internal/discovery"
	"github.com/cyverse/ckan-migrator/internal/metadata"
	"github.com/cyverse/ckan-migrator/internal/runlog"
)

// DefaultPath is read when no --config flag is given. It may be absent.
const DefaultPath = "ckan-migrator.yaml"

// Config is the full migrator configuration.
type Config struct {
	Discovery Discovery `yaml:"discovery"`
	Catalog   Catalog   `yaml:"catalog"`
	Sync      Sync      `yaml:"sync"`
}

// Discovery configures the source platform.
type Discovery struct {
	BaseURL   string `yaml:"base_url"`
	WebDAVURL string `yaml:"webdav_url"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	RootPath  string `yaml:"root_path"`
	// Timezone is an IANA name used to render source timestamps. Empty means local time.
	Timezone string `yaml:"timezone"`
}

// Catalog configures the CKAN instance.
type Catalog struct {
	BaseURL      string  `yaml:"base_url"`
	APIKey       string  `yaml:"api_key"`
	Organization string  `yaml:"organization"`
	Group        string  `yaml:"group"`
	CuratedGroup string  `yaml:"curated_group"`
	DisplayName  string  `yaml:"display_name"`
	RateLimit    float64 `yaml:"rate_limit"`
}

// Sync configures batch reconciliation.
type Sync struct {
	Curated        bool          `yaml:"curated"`
	TimezoneOffset time.Duration `yaml:"timezone_offset"`
	DatasetTimeout time.Duration `yaml:"dataset_timeout"`
	RunLog         string        `yaml:"run_log"`
	ReportDir      string        `yaml:"report_dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Discovery: Discovery{
			BaseURL:   discovery.DefaultBaseURL,
			WebDAVURL: discovery.DefaultWebDAVURL,
			RootPath:  "/iplant/home/shared/commons_repo/curated",
		},
		Catalog: Catalog{
			Organization: "cyverse",
			CuratedGroup: "cyverse-curated",
			DisplayName:  metadata.DefaultCatalogName,
			RateLimit:    5,
		},
		Sync: Sync{
			Curated:        true,
			TimezoneOffset: 7 * time.Hour,
			DatasetTimeout: 10 * time.Minute,
			RunLog:         runlog.DefaultPath,
			ReportDir:      "runs",
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is an error only when path was given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Discovery.BaseURL, "DE_BASE_URL")
	set(&c.Discovery.Username, "DE_USERNAME")
	set(&c.Discovery.Password, "DE_PASSWORD")
	set(&c.Catalog.BaseURL, "CKAN_URL")
	set(&c.Catalog.APIKey, "CKAN_API_KEY")
	set(&c.Catalog.Organization, "CKAN_ORGANIZATION")
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Discovery.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Discovery.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid discovery.timezone %q: %w", c.Discovery.Timezone, err)
	}
	return loc, nil
}

// ValidateDiscovery checks the settings needed to read from the source platform.
func (c *Config) ValidateDiscovery() error {
	var errs []error
	if c.Discovery.BaseURL == "" {
		errs = append(errs, errors.New("discovery.base_url is required"))
	}
	if c.Discovery.Username == "" || c.Discovery.Password == "" {
		errs = append(errs, errors.New("discovery username and password are required (DE_USERNAME, DE_PASSWORD)"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateCatalog checks the settings needed to write to the catalog.
func (c *Config) ValidateCatalog() error {
	var errs []error
	if c.Catalog.BaseURL == "" {
		errs = append(errs, errors.New("catalog.base_url is required (CKAN_URL)"))
	}
	if c.Catalog.APIKey == "" {
		errs = append(errs, errors.New("catalog.api_key is required (CKAN_API_KEY)"))
	}
	if c.Catalog.Organization == "" {
		errs = append(errs, errors.New("catalog.organization is required (CKAN_ORGANIZATION)"))
	}
	return errors.Join(errs...)
}

// ValidateSync checks the settings of a batch run, including both endpoints.
func (c *Config) ValidateSync() error {
	errs := []error{c.ValidateDiscovery(), c.ValidateCatalog()}
	if c.Discovery.RootPath == "" {
		errs = append(errs, errors.New("discovery.root_path is required"))
	}
	if c.Sync.TimezoneOffset < 0 {
		errs = append(errs, errors.New("sync.timezone_offset must not be negative"))
	}
	if c.Sync.DatasetTimeout <= 0 {
		errs = append(errs, errors.New("sync.dataset_timeout must be positive"))
	}
	return errors.Join(errs...)
}
