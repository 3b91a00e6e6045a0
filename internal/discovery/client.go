// Package discovery is a client for the Discovery Environment (Terrain) API.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cyverse/ckan-migrator/internal/httperr"
	"github.com/cyverse/ckan-migrator/internal/metadata"
	"github.com/cyverse/ckan-migrator/internal/models"
)

// DateLayout is the format source timestamps are rendered in.
const DateLayout = "2006-01-02 15:04:05"

const (
	DefaultBaseURL   = "https://de.cyverse.org/terrain"
	DefaultWebDAVURL = "https://data.cyverse.org/dav-anon"
)

// Client talks to Terrain. It is safe for concurrent use once authenticated.
type Client struct {
	baseURL   string
	webdavURL string
	location  *time.Location
	http      *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLocation sets the time zone dates are rendered in. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithToken sets a bearer token obtained elsewhere.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// NewClient creates a new Terrain client.
func NewClient(baseURL, webdavURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if webdavURL == "" {
		webdavURL = DefaultWebDAVURL
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		webdavURL: strings.TrimRight(webdavURL, "/"),
		location:  time.Local,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticate exchanges a username and password for a bearer token.
// Rejected credentials yield an error wrapping models.ErrAuthFailure.
func (c *Client) Authenticate(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", models.ErrAuthFailure)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/token/keycloak", nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(username, password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to request token: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read token response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %v", models.ErrAuthFailure, httperr.New("terrain", "token", resp, nil))
	case resp.StatusCode != http.StatusOK:
		return httperr.New("terrain", "token", resp, body)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", models.ErrAuthFailure)
	}

	c.mu.Lock()
	c.token = tok.AccessToken
	c.mu.Unlock()

	slog.Debug("Authenticated with Discovery Environment", "user", username)
	return nil
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// getJSON performs an authenticated GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, op, endpoint string, query url.Values, out any) error {
	u := c.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", op, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %v", models.ErrAuthFailure, httperr.New("terrain", op, resp, body))
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %v", models.ErrNotFound, httperr.New("terrain", op, resp, body))
	case resp.StatusCode/100 != 2:
		return httperr.New("terrain", op, resp, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// epochMillis accepts epoch milliseconds encoded as a JSON number or string.
type epochMillis int64

func (e *epochMillis) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*e = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("invalid epoch milliseconds %q: %w", s, err)
		}
		n = int64(f)
	}
	*e = epochMillis(n)
	return nil
}

// FormatDate renders epoch milliseconds as "YYYY-MM-DD HH:MM:SS" in loc.
func FormatDate(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format(DateLayout)
}

type entry struct {
	ID           string      `json:"id"`
	Path         string      `json:"path"`
	Label        string      `json:"label"`
	DateCreated  epochMillis `json:"date-created"`
	DateModified epochMillis `json:"date-modified"`
}

func (c *Client) dataset(e entry) models.Dataset {
	return models.Dataset{
		ID:           e.ID,
		Path:         e.Path,
		Label:        e.Label,
		DateCreated:  FormatDate(int64(e.DateCreated), c.location),
		DateModified: FormatDate(int64(e.DateModified), c.location),
	}
}

func (c *Client) file(e entry) models.File {
	name := e.Label
	if name == "" {
		name = path.Base(e.Path)
	}
	ext := ""
	if i := strings.LastIndex(name, "."); i >= 0 {
		ext = name[i+1:]
	}
	return models.File{
		ID:           e.ID,
		Path:         e.Path,
		Name:         name,
		Type:         ext,
		URL:          c.webdavURL + e.Path,
		DateCreated:  FormatDate(int64(e.DateCreated), c.location),
		DateModified: FormatDate(int64(e.DateModified), c.location),
	}
}

// ListDatasets returns the folders directly under dir; each is a dataset.
func (c *Client) ListDatasets(ctx context.Context, dir string) ([]models.Dataset, error) {
	var out struct {
		Folders []entry `json:"folders"`
	}
	q := url.Values{}
	q.Set("path", dir)
	if err := c.getJSON(ctx, "directory", "/secured/filesystem/directory", q, &out); err != nil {
		return nil, err
	}

	datasets := make([]models.Dataset, 0, len(out.Folders))
	for _, f := range out.Folders {
		datasets = append(datasets, c.dataset(f))
	}
	return datasets, nil
}

// FindDataset locates the dataset at an exact path by listing its parent.
func (c *Client) FindDataset(ctx context.Context, datasetPath string) (models.Dataset, error) {
	datasetPath = strings.TrimRight(datasetPath, "/")
	datasets, err := c.ListDatasets(ctx, path.Dir(datasetPath))
	if err != nil {
		return models.Dataset{}, err
	}
	for _, ds := range datasets {
		if ds.Path == datasetPath {
			return ds, nil
		}
	}
	return models.Dataset{}, fmt.Errorf("dataset %s: %w", datasetPath, models.ErrNotFound)
}

// AVU is one attribute-value-unit triple.
type AVU struct {
	Attr  string `json:"attr"`
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

// Metadata returns the raw AVUs of a data item.
func (c *Client) Metadata(ctx context.Context, id string) ([]AVU, error) {
	var out struct {
		AVUs []AVU `json:"avus"`
	}
	if err := c.getJSON(ctx, "metadata", "/filesystem/"+url.PathEscape(id)+"/metadata", nil, &out); err != nil {
		return nil, err
	}
	return out.AVUs, nil
}

// DatasetMetadata collects a dataset's dates, path and AVUs into Metadata.
// Repeated attributes accumulate into lists in encounter order.
func (c *Client) DatasetMetadata(ctx context.Context, ds models.Dataset) (*metadata.Metadata, error) {
	avus, err := c.Metadata(ctx, ds.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata for %s: %w", ds.Path, err)
	}

	m := metadata.New()
	m.Add(metadata.KeyDateCreated, ds.DateCreated)
	m.Add(metadata.KeyDateModified, ds.DateModified)
	m.Add(metadata.KeyPath, ds.Path)
	for _, avu := range avus {
		m.Add(avu.Attr, avu.Value)
	}
	m.Clean()
	return m, nil
}

// ListFiles returns up to limit files and folders under dir along with the
// total number of files the directory holds.
func (c *Client) ListFiles(ctx context.Context, dir string, limit int) (*models.Listing, error) {
	if limit <= 0 {
		limit = 1
	}
	var out struct {
		Total   *int    `json:"total"`
		Files   []entry `json:"files"`
		Folders []entry `json:"folders"`
	}
	q := url.Values{}
	q.Set("path", dir)
	q.Set("limit", strconv.Itoa(limit))
	if err := c.getJSON(ctx, "paged-directory", "/secured/filesystem/paged-directory", q, &out); err != nil {
		return nil, err
	}

	listing := &models.Listing{}
	if out.Total != nil {
		listing.Total = *out.Total
	}
	for _, f := range out.Files {
		listing.Files = append(listing.Files, c.file(f))
	}
	for _, f := range out.Folders {
		listing.Folders = append(listing.Folders, c.file(f))
	}
	return listing, nil
}

// Open streams the content behind a WebDAV URL. The caller closes the body.
func (c *Client) Open(ctx context.Context, fileURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", fileURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		herr := httperr.New("webdav", "download", resp, body)
		if resp.StatusCode == http.StatusNotFound {
			return nil, errors.Join(models.ErrNotFound, herr)
		}
		return nil, herr
	}
	return resp.Body, nil
}
