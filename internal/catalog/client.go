// Package catalog is a client for the CKAN action API.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/cyverse/ckan-migrator/internal/httperr"
	"github.com/cyverse/ckan-migrator/internal/models"
	"github.com/cyverse/ckan-migrator/internal/record"
)

// PageSize is the number of records requested per package_search call.
const PageSize = 100

// Client represents a CKAN API client.
type Client struct {
	BaseURL    string
	APIKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps requests per second. Zero or negative disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewClient creates a new CKAN client.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the response wrapper of every CKAN action.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"__type"`
	} `json:"error"`
}

func (c *Client) actionURL(action string) string {
	return c.BaseURL + "/api/3/action/" + action
}

// do sends req, unwraps the action envelope and decodes the result into out.
func (c *Client) do(ctx context.Context, action string, req *http.Request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", c.APIKey)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", action, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", action, err)
	}
	slog.Debug("CKAN action", "action", action, "status", resp.StatusCode, "duration", time.Since(start))

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode/100 != 2 {
			return httperr.New("ckan", action, resp, body)
		}
		return fmt.Errorf("failed to decode %s response: %w", action, err)
	}

	if !env.Success {
		rerr := &RemoteWriteError{Action: action, StatusCode: resp.StatusCode}
		if env.Error != nil {
			rerr.Message = env.Error.Message
			rerr.Type = env.Error.Type
		}
		if rerr.Message == "" && resp.StatusCode/100 != 2 {
			rerr.Message = httperr.New("ckan", action, resp, body).Error()
		}
		return rerr
	}

	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", action, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, action string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", action, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.actionURL(action), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(ctx, action, req, out)
}

// CreateDataset creates a package and returns its id.
func (c *Client) CreateDataset(ctx context.Context, rec *record.Record) (string, error) {
	var result struct {
		ID string `json:"id"`
	}
	if err := c.postJSON(ctx, "package_create", rec, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

// DeleteDataset deletes a package by id or name.
func (c *Client) DeleteDataset(ctx context.Context, id string) error {
	return c.postJSON(ctx, "package_delete", map[string]string{"id": id}, nil)
}

// AddResource links a remote file to a package.
func (c *Client) AddResource(ctx context.Context, res models.Resource) error {
	return c.postJSON(ctx, "resource_create", res, nil)
}

// UploadResource uploads a local file as a package resource.
func (c *Client) UploadResource(ctx context.Context, res models.Resource, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open upload %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := []struct{ key, value string }{
		{"package_id", res.PackageID},
		{"name", res.Name},
		{"format", res.Format},
	}
	if res.Description != nil {
		fields = append(fields, struct{ key, value string }{"description", *res.Description})
	}
	if res.DateCreated != "" {
		fields = append(fields, struct{ key, value string }{"Date created in discovery environment", res.DateCreated})
	}
	if res.DateModified != "" {
		fields = append(fields, struct{ key, value string }{"Date last modified in discovery environment", res.DateModified})
	}
	for _, kv := range fields {
		if err := mw.WriteField(kv.key, kv.value); err != nil {
			return fmt.Errorf("failed to write multipart field %s: %w", kv.key, err)
		}
	}

	part, err := mw.CreateFormFile("upload", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to create multipart file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to copy upload %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.actionURL("resource_create"), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(ctx, "resource_create", req, nil)
}

// Query builds the package_search q parameter for a filter.
func Query(f models.Filter) string {
	if f.Group != "" {
		return "groups:" + f.Group
	}
	if f.Organization != "" {
		return "organization:" + f.Organization
	}
	return ""
}

// ListDatasets pages through package_search and returns every matching record.
func (c *Client) ListDatasets(ctx context.Context, f models.Filter) ([]models.RemoteRecord, error) {
	var all []models.RemoteRecord
	for start := 0; ; start += PageSize {
		q := url.Values{}
		q.Set("rows", strconv.Itoa(PageSize))
		q.Set("start", strconv.Itoa(start))
		if query := Query(f); query != "" {
			q.Set("q", query)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.actionURL("package_search")+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}

		var page struct {
			Count   int                   `json:"count"`
			Results []models.RemoteRecord `json:"results"`
		}
		if err := c.do(ctx, "package_search", req, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Results...)

		if len(page.Results) == 0 || len(all) >= page.Count {
			break
		}
	}

	slog.Debug("Listed catalog datasets", "query", Query(f), "count", len(all))
	return all, nil
}
