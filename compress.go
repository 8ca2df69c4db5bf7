package repomd

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/rpmrepo/repomd/internal/safety"
)

// decompressors maps a declared compression tag to a reader constructor.
// Dispatch goes strictly by the tag taken from the catalog href; content is
// never sniffed, so an artifact with a lying suffix fails inside the codec.
// The "sqlite", "xml" and empty tags mean the artifact is stored plain.
var decompressors = map[string]func(io.Reader) (io.Reader, func() error, error){
	"bz2":    newBzip2Reader,
	"bz":     newBzip2Reader,
	"gz":     newGzipReader,
	"xz":     newXZReader,
	"zst":    newZstdReader,
	"sqlite": passthroughReader,
	"xml":    passthroughReader,
	"":       passthroughReader,
}

func newBzip2Reader(r io.Reader) (io.Reader, func() error, error) {
	return bzip2.NewReader(r), func() error { return nil }, nil
}

func newGzipReader(r io.Reader) (io.Reader, func() error, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	return zr, zr.Close, nil
}

func newXZReader(r io.Reader) (io.Reader, func() error, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("creating xz reader: %w", err)
	}
	return xr, func() error { return nil }, nil
}

func newZstdReader(r io.Reader) (io.Reader, func() error, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	return zr, func() error { zr.Close(); return nil }, nil
}

func passthroughReader(r io.Reader) (io.Reader, func() error, error) {
	return r, func() error { return nil }, nil
}

// catalogFormat extracts the compression tag from an artifact href.
func catalogFormat(href string) string {
	return strings.TrimPrefix(path.Ext(href), ".")
}

// supportedFormat reports whether the declared tag has a decompressor.
func supportedFormat(format string) bool {
	_, ok := decompressors[format]
	return ok
}

// newCatalogReader wraps r with the decompressor for the declared tag. The
// returned close func must be called after draining the reader.
func newCatalogReader(format string, r io.Reader) (io.Reader, func() error, error) {
	wrap, ok := decompressors[format]
	if !ok {
		return nil, nil, &UnsupportedCompressionError{Format: format}
	}
	return wrap(r)
}

// decompressAll decompresses data tagged with format fully into memory,
// bounded by limit.
func decompressAll(format string, data []byte, limit int64) ([]byte, error) {
	dr, closeReader, err := newCatalogReader(format, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = closeReader()
	}()

	out, err := safety.ReadAllWithLimit(dr, limit)
	if err != nil {
		if errors.Is(err, safety.ErrBodyTooLarge) {
			return nil, fmt.Errorf("catalog exceeded %d bytes after decompression: %w", limit, err)
		}
		return nil, fmt.Errorf("decompressing %q catalog: %w", format, err)
	}
	return out, nil
}

// decompressToFile streams r through the decompressor for format into dest,
// returning the number of decompressed bytes written.
func decompressToFile(format string, r io.Reader, dest string) (int64, error) {
	dr, closeReader, err := newCatalogReader(format, r)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = closeReader()
	}()

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", dest, err)
	}
	n, err := io.Copy(f, dr)
	if err != nil {
		_ = f.Close()
		return 0, fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("closing %s: %w", dest, err)
	}
	return n, nil
}
