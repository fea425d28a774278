// Package buildapi talks to the build index, the build manifest API and
// the asset CDN.
package buildapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"build-watcher/internal/engine"
)

// Config configures the client.
type Config struct {
	APIBaseURL   string        // e.g. https://builds.discord.sale/api
	AssetBaseURL string        // e.g. https://canary.discord.com/assets
	Timeout      time.Duration // per request. Default: 30s.
	MaxBytes     int64         // max body size. Default: 64MB.
	UserAgent    string
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 64 << 20
	}
	if c.UserAgent == "" {
		c.UserAgent = "build-watcher/1.0"
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	c.AssetBaseURL = strings.TrimRight(c.AssetBaseURL, "/")
}

type Client struct {
	http *http.Client
	cfg  Config
}

func New(cfg Config) *Client {
	cfg.defaults()
	return &Client{http: &http.Client{Timeout: cfg.Timeout}, cfg: cfg}
}

type paginatedBuilds struct {
	LastPage int                   `json:"last_page"`
	Data     []engine.MinimalBuild `json:"data"`
}

// LatestBuilds returns up to n index entries, newest first.
func (c *Client) LatestBuilds(ctx context.Context, n int) ([]engine.MinimalBuild, error) {
	q := url.Values{}
	q.Set("page", "1")
	q.Set("size", strconv.Itoa(n))

	var resp paginatedBuilds
	if err := c.getJSON(ctx, c.cfg.APIBaseURL+"/builds/raw?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Manifest returns the full manifest of the build with the given hash.
func (c *Client) Manifest(ctx context.Context, hash string) (*engine.BuildManifest, error) {
	var b engine.BuildManifest
	if err := c.getJSON(ctx, c.cfg.APIBaseURL+"/builds/"+url.PathEscape(hash)+"/raw", &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// FetchAsset returns the raw body of a script or stylesheet.
func (c *Client) FetchAsset(ctx context.Context, name string) ([]byte, error) {
	return c.get(ctx, c.cfg.AssetBaseURL+"/"+strings.TrimLeft(name, "/"))
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	body, err := c.get(ctx, u)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", engine.ErrResourceUnavailable, u, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: new request: %v", engine.ErrResourceUnavailable, err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", engine.ErrResourceUnavailable, u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: GET %s: http %d", engine.ErrResourceUnavailable, u, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", engine.ErrResourceUnavailable, u, err)
	}
	log.Debug().Str("url", u).Int("bytes", len(body)).Dur("took", time.Since(start)).Msg("fetched")
	return body, nil
}
