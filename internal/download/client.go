// Package download fetches repository artifacts with retries and checksum
// verification.
package download

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Options configures a single artifact download.
type Options struct {
	URL          string
	DestPath     string
	Checksum     string // expected digest in hex, empty to skip verification
	ChecksumType string // sha, sha1, sha256 or sha512; defaults to sha256
	ExpectedSize int64  // 0 to skip the size check
	RetryCount   int    // 0 defaults to 3
}

// Result describes a completed download.
type Result struct {
	Path     string
	Size     int64
	Checksum string // computed digest in hex
	Attempts int
	Duration time.Duration
}

// Client performs HTTP downloads with retry and integrity checks.
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	userAgent   string
	backoffFunc func(attempt int) time.Duration
}

// NewClient creates a download client with the given logger.
func NewClient(logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
				TLSHandshakeTimeout:   15 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
			},
			// No overall Timeout — body reads can take as long as needed.
			// Context cancellation still works for user-initiated cancel.
		},
		logger:      logger,
		userAgent:   "repomd/1.0",
		backoffFunc: backoffDelay,
	}
}

// Download fetches opts.URL into opts.DestPath. Each attempt streams to a
// scratch file that is renamed into place only after integrity checks pass,
// so the destination never holds a partial or corrupt artifact.
func (c *Client) Download(ctx context.Context, opts Options) (*Result, error) {
	if opts.RetryCount == 0 {
		opts.RetryCount = 3
	}
	if _, err := newHasher(opts.ChecksumType); err != nil {
		return nil, err
	}

	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= opts.RetryCount; attempt++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("download cancelled: %w", ctx.Err())
		default:
		}

		result, err := c.attempt(ctx, opts)
		if err == nil {
			result.Attempts = attempt
			result.Duration = time.Since(start)
			return result, nil
		}

		lastErr = err
		c.logger.Warn("download attempt failed", "url", opts.URL, "attempt", attempt, "error", err)

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if shouldNotRetry(err) {
			return nil, err
		}

		if attempt < opts.RetryCount {
			delay := c.backoffFunc(attempt)
			c.logger.Debug("retrying download", "url", opts.URL, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("download cancelled during retry: %w", ctx.Err())
			}
		}
	}

	return nil, fmt.Errorf("download failed after %d attempts: %w", opts.RetryCount, lastErr)
}

// attempt performs one download attempt through a scratch file.
func (c *Client) attempt(ctx context.Context, opts Options) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	if dir := filepath.Dir(opts.DestPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	scratch := opts.DestPath + ".part"
	f, err := os.OpenFile(scratch, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating scratch file: %w", err)
	}

	hasher, _ := newHasher(opts.ChecksumType)
	n, err := io.Copy(io.MultiWriter(f, hasher), resp.Body)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(scratch)
		return nil, fmt.Errorf("writing %s: %w", scratch, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(scratch)
		return nil, fmt.Errorf("closing scratch file: %w", err)
	}

	digest := hex.EncodeToString(hasher.Sum(nil))

	// Checksum is authoritative when available; size-only is the fallback.
	if opts.Checksum != "" {
		if !strings.EqualFold(digest, opts.Checksum) {
			_ = os.Remove(scratch)
			return nil, fmt.Errorf("checksum mismatch for %s: got %s, expected %s", opts.URL, digest, opts.Checksum)
		}
		if opts.ExpectedSize > 0 && n != opts.ExpectedSize {
			c.logger.Warn("size differs from metadata but checksum matches, accepting file",
				"path", opts.DestPath, "got_size", n, "expected_size", opts.ExpectedSize)
		}
	} else if opts.ExpectedSize > 0 && n != opts.ExpectedSize {
		_ = os.Remove(scratch)
		return nil, fmt.Errorf("size mismatch for %s: got %d bytes, expected %d", opts.URL, n, opts.ExpectedSize)
	}

	if err := os.Rename(scratch, opts.DestPath); err != nil {
		_ = os.Remove(scratch)
		return nil, fmt.Errorf("moving %s into place: %w", scratch, err)
	}

	return &Result{Path: opts.DestPath, Size: n, Checksum: digest}, nil
}

// newHasher returns the hash for a repodata checksum type. Older repos say
// "sha" when they mean sha1.
func newHasher(checksumType string) (hash.Hash, error) {
	switch strings.ToLower(checksumType) {
	case "", "sha256":
		return sha256.New(), nil
	case "sha", "sha1":
		return sha1.New(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported checksum type %q", checksumType)
	}
}

// backoffDelay calculates exponential backoff with jitter. Base delay is 1s,
// doubling each attempt, plus random jitter up to half the delay.
func backoffDelay(attempt int) time.Duration {
	baseDelay := time.Second
	exponentialDelay := time.Duration(math.Pow(2, float64(attempt-1))) * baseDelay
	maxJitter := exponentialDelay / 2
	jitter := time.Duration(rand.Int63n(int64(maxJitter)))
	return exponentialDelay + jitter
}

// shouldNotRetry returns true if the error should not trigger a retry.
func shouldNotRetry(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		// Don't retry on 4xx errors except 429 (Too Many Requests)
		if httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 && httpErr.StatusCode != 429 {
			return true
		}
	}
	return false
}

// HTTPError represents an HTTP error response.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error %d: %s", e.StatusCode, e.Status)
}
