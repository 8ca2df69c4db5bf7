package metalink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rpmrepo/repomd/internal/safety"
)

const defaultCacheTTL = 1 * time.Hour
const defaultBaseURL = "https://mirrors.fedoraproject.org/metalink?repo=%s&arch=%s"
const maxMetalinkBytes int64 = 16 * 1024 * 1024

type cacheEntry struct {
	mirrors   []Mirror
	fetchedAt time.Time
}

// Discovery fetches and caches mirror lists. The cache keeps repeated
// lookups for the same repo and arch from hammering the metalink service.
type Discovery struct {
	client   *http.Client
	logger   *slog.Logger
	cache    map[string]cacheEntry
	mu       sync.RWMutex
	cacheTTL time.Duration
	baseURL  string
}

// NewDiscovery creates a Discovery with sensible defaults.
func NewDiscovery(logger *slog.Logger) *Discovery {
	return &Discovery{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:   logger,
		cache:    make(map[string]cacheEntry),
		cacheTTL: defaultCacheTTL,
		baseURL:  defaultBaseURL,
	}
}

// Mirrors fetches and parses the metalink for a repo id such as "epel-9" or
// "fedora-38" and the given architecture, returning mirrors sorted by
// preference. Results are cached.
func (d *Discovery) Mirrors(ctx context.Context, repo, arch string) ([]Mirror, error) {
	mirrors, err := d.MirrorsFromURL(ctx, fmt.Sprintf(d.baseURL, repo, arch))
	if err != nil {
		return nil, fmt.Errorf("metalink for %s %s: %w", repo, arch, err)
	}
	return mirrors, nil
}

// MirrorsFromURL fetches and parses the metalink document at the given URL
// directly, as named by a .repo file's metalink option. Results are cached
// by URL.
func (d *Discovery) MirrorsFromURL(ctx context.Context, url string) ([]Mirror, error) {
	if cached, ok := d.getCache(url); ok {
		return cached, nil
	}

	data, err := d.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching metalink: %w", err)
	}

	mirrors, err := parseMetalink(data)
	if err != nil {
		return nil, fmt.Errorf("parsing metalink: %w", err)
	}

	d.logger.Debug("discovered mirrors", "url", url, "count", len(mirrors))
	d.setCache(url, mirrors)
	return mirrors, nil
}

// fetch performs an HTTP GET with the given context and returns the body.
func (d *Discovery) fetch(ctx context.Context, url string) ([]byte, error) {
	if _, err := safety.ValidateHTTPURL(url); err != nil {
		return nil, fmt.Errorf("invalid fetch URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "repomd/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := safety.ReadAllWithLimit(resp.Body, maxMetalinkBytes)
	if err != nil {
		if errors.Is(err, safety.ErrBodyTooLarge) {
			return nil, fmt.Errorf("response exceeded %d bytes for %s: %w", maxMetalinkBytes, url, err)
		}
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return body, nil
}

func (d *Discovery) getCache(key string) ([]Mirror, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entry, ok := d.cache[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.fetchedAt) > d.cacheTTL {
		return nil, false
	}
	return entry.mirrors, true
}

func (d *Discovery) setCache(key string, mirrors []Mirror) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cache[key] = cacheEntry{
		mirrors:   mirrors,
		fetchedAt: time.Now(),
	}
}
