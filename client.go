package repomd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/rpmrepo/repomd/internal/safety"
)

const (
	defaultTimeout = 60 * time.Second

	maxIndexBytes          int64 = 16 * 1024 * 1024
	maxCatalogBytes        int64 = 128 * 1024 * 1024
	maxCatalogDecompressed int64 = 512 * 1024 * 1024
)

// Client fetches repository metadata over HTTP. Construct with NewClient;
// the zero value has no transport.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
}

// NewClient returns a client with default timeouts. A nil logger disables
// logging.
func NewClient(logger *slog.Logger) *Client {
	return NewClientTimeout(logger, defaultTimeout)
}

// NewClientTimeout returns a client with an explicit overall request timeout.
func NewClientTimeout(logger *slog.Logger, timeout time.Duration) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		httpClient: safety.NewHTTPClient(timeout),
		logger:     logger,
		userAgent:  "repomd/1.0",
	}
}

// Load fetches the index under baseURL and loads the XML primary catalog
// into memory using a default client.
func Load(ctx context.Context, baseURL string) (Repository, error) {
	return NewClient(nil).Load(ctx, baseURL)
}

// LoadDB fetches the index under baseURL and loads the SQLite primary
// catalog using a default client.
func LoadDB(ctx context.Context, baseURL string) (Repository, error) {
	return NewClient(nil).LoadDB(ctx, baseURL)
}

// Load fetches the repository index at baseURL and loads the XML primary
// catalog into memory.
func (c *Client) Load(ctx context.Context, baseURL string) (Repository, error) {
	base, ix, err := c.loadIndex(ctx, baseURL)
	if err != nil {
		return nil, err
	}

	entry := ix.Entry("primary")
	if entry == nil {
		return nil, &CatalogNotFoundError{Type: "primary"}
	}
	href, err := cleanHref(entry.Href)
	if err != nil {
		return nil, fmt.Errorf("unsafe primary location in index: %w", err)
	}

	raw, err := c.fetch(ctx, resolveURL(base, href), maxCatalogBytes)
	if err != nil {
		return nil, err
	}

	data, err := decompressAll(catalogFormat(href), raw, maxCatalogDecompressed)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("primary catalog decompressed",
		slog.Int("compressed_bytes", len(raw)),
		slog.Int("decompressed_bytes", len(data)))

	doc, err := parsePrimary(data)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("primary catalog loaded",
		slog.String("base_url", baseURL),
		slog.Int("packages", doc.Count))

	return &xmlRepository{baseURL: baseURL, doc: doc}, nil
}

// LoadDB fetches the repository index at baseURL and loads the SQLite
// primary catalog, staging it in a private temp directory owned by the
// returned Repository.
func (c *Client) LoadDB(ctx context.Context, baseURL string) (Repository, error) {
	base, ix, err := c.loadIndex(ctx, baseURL)
	if err != nil {
		return nil, err
	}

	entry := ix.Entry("primary_db")
	if entry == nil {
		return nil, &CatalogNotFoundError{Type: "primary_db"}
	}
	href, err := cleanHref(entry.Href)
	if err != nil {
		return nil, fmt.Errorf("unsafe primary_db location in index: %w", err)
	}

	// Reject unknown compression before fetching or staging anything.
	format := catalogFormat(href)
	if !supportedFormat(format) {
		return nil, &UnsupportedCompressionError{Format: format}
	}

	raw, err := c.fetch(ctx, resolveURL(base, href), maxCatalogBytes)
	if err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp("", "repomd-")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	keep := false
	defer func() {
		if !keep {
			_ = os.RemoveAll(tempDir)
		}
	}()

	dbPath := filepath.Join(tempDir, "primary.sqlite")
	n, err := decompressToFile(format, bytes.NewReader(raw), dbPath)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("primary database staged",
		slog.String("path", dbPath),
		slog.Int64("bytes", n))

	repo, err := newDBRepository(baseURL, tempDir, dbPath)
	if err != nil {
		return nil, err
	}
	keep = true
	return repo, nil
}

// loadIndex fetches and parses repodata/repomd.xml under baseURL.
func (c *Client) loadIndex(ctx context.Context, baseURL string) (*url.URL, *Index, error) {
	base, err := safety.ValidateHTTPURL(baseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	data, err := c.fetch(ctx, resolveURL(base, "repodata/repomd.xml"), maxIndexBytes)
	if err != nil {
		return nil, nil, err
	}

	ix, err := ParseIndex(data)
	if err != nil {
		return nil, nil, err
	}
	c.logger.Debug("index parsed",
		slog.String("base_url", baseURL),
		slog.Int("entries", len(ix.Entries)))
	return base, ix, nil
}

// fetch performs a GET and returns the body, bounded by limit.
func (c *Client) fetch(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	c.logger.Debug("fetching URL", slog.String("url", rawURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: rawURL}
	}

	data, err := safety.ReadAllWithLimit(resp.Body, limit)
	if err != nil {
		if errors.Is(err, safety.ErrBodyTooLarge) {
			return nil, fmt.Errorf("response exceeded %d bytes for %s: %w", limit, rawURL, err)
		}
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	c.logger.Debug("response body read",
		slog.String("url", rawURL),
		slog.Int("bytes", len(data)))
	return data, nil
}

// resolveURL joins a relative artifact path onto the repository base URL,
// preserving scheme, host and query.
func resolveURL(base *url.URL, ref string) string {
	u := *base
	u.Path = path.Join(u.Path, ref)
	return u.String()
}

// cleanHref validates a catalog href from the index, rejecting absolute
// paths and parent traversal.
func cleanHref(href string) (string, error) {
	clean, err := safety.CleanRelativePath(href)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(clean), nil
}
