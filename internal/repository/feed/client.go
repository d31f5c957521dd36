package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oshokin/relsync/internal/domain/release"
	"github.com/oshokin/relsync/internal/logger"
	"github.com/oshokin/relsync/internal/version"
)

var (
	// ErrNetwork wraps transport failures and unexpected HTTP statuses.
	ErrNetwork = errors.New("network error")
	// ErrParse wraps bodies that are not valid JSON or lack the expected shape.
	ErrParse = errors.New("parse error")

	errBadHTTPStatus = errors.New("unexpected http status")
)

// Repository defines read access to a release feed.
type Repository interface {
	Manifest(ctx context.Context) (*release.Manifest, error)
	Resolve(ctx context.Context, versionID string, channel release.Channel) (*release.Release, error)
}

// Client fetches the manifest and descriptors of one feed.
// A Client is not safe for concurrent use.
type Client struct {
	// manifestURL is the feed index location.
	manifestURL string
	// httpClient performs requests; its Timeout bounds every call.
	httpClient *http.Client

	// manifest is nil until the first successful Manifest call.
	manifest *release.Manifest
	// descriptors caches fetched descriptors by URL.
	descriptors map[string]*release.Descriptor
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient creates a feed client for the manifest at manifestURL.
func NewClient(manifestURL string, opts ...Option) *Client {
	c := &Client{
		manifestURL: manifestURL,
		httpClient:  http.DefaultClient,
		descriptors: make(map[string]*release.Descriptor),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Manifest returns the feed index, fetching it on the first call only.
func (c *Client) Manifest(ctx context.Context) (*release.Manifest, error) {
	if c.manifest != nil {
		return c.manifest, nil
	}

	logger.DebugKV(ctx, "Fetching manifest", "url", c.manifestURL)

	var manifest release.Manifest
	if err := c.getJSON(ctx, c.manifestURL, &manifest); err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}

	if manifest.Versions == nil {
		return nil, fmt.Errorf("manifest %s has no versions list: %w", c.manifestURL, ErrParse)
	}

	c.manifest = &manifest

	return c.manifest, nil
}

// Descriptor returns the descriptor of entry, fetching it on the first call only.
func (c *Client) Descriptor(ctx context.Context, entry *release.Version) (*release.Descriptor, error) {
	if cached, ok := c.descriptors[entry.URL]; ok {
		return cached, nil
	}

	logger.DebugKV(ctx, "Fetching release descriptor", "version", entry.ID, "url", entry.URL)

	var descriptor release.Descriptor
	if err := c.getJSON(ctx, entry.URL, &descriptor); err != nil {
		return nil, fmt.Errorf("fetch descriptor of %s: %w", entry.ID, err)
	}

	c.descriptors[entry.URL] = &descriptor

	return &descriptor, nil
}

// Resolve finds versionID in the manifest, or the channel's latest version
// when versionID is empty, and fetches its descriptor.
func (c *Client) Resolve(ctx context.Context, versionID string, channel release.Channel) (*release.Release, error) {
	manifest, err := c.Manifest(ctx)
	if err != nil {
		return nil, err
	}

	if versionID == "" {
		versionID, err = manifest.Pointer(channel)
		if err != nil {
			return nil, err
		}

		logger.DebugKV(ctx, "Using latest version", "channel", channel, "version", versionID)
	}

	entry, err := manifest.Lookup(versionID)
	if err != nil {
		return nil, err
	}

	descriptor, err := c.Descriptor(ctx, entry)
	if err != nil {
		return nil, err
	}

	return &release.Release{
		Version:    *entry,
		Descriptor: descriptor,
	}, nil
}

// getJSON performs a GET and decodes the body into target.
func (c *Client) getJSON(ctx context.Context, rawURL string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: build request for %s: %w", ErrNetwork, rawURL, err)
	}

	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s, %s: %w", ErrNetwork, rawURL, response.Status, errBadHTTPStatus)
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("%w: read body of %s: %w", ErrNetwork, rawURL, err)
	}

	if err = json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrParse, rawURL, err)
	}

	return nil
}
