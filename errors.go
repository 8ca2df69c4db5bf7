package repomd

import "fmt"

// HTTPError reports a non-2xx response while fetching repository metadata.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error %d: %s for %s", e.StatusCode, e.Status, e.URL)
}

// CatalogNotFoundError reports that the repository index has no entry of the
// requested catalog type.
type CatalogNotFoundError struct {
	Type string
}

func (e *CatalogNotFoundError) Error() string {
	return fmt.Sprintf("no %q entry in repomd.xml", e.Type)
}

// UnsupportedCompressionError reports a catalog artifact whose declared
// compression format has no decompressor.
type UnsupportedCompressionError struct {
	Format string
}

func (e *UnsupportedCompressionError) Error() string {
	return fmt.Sprintf("unsupported compression format %q", e.Format)
}

// FormatError reports a metadata field whose value cannot be interpreted,
// such as a non-integer epoch.
type FormatError struct {
	Field string
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed %s %q", e.Field, e.Value)
}

func (e *FormatError) Unwrap() error { return e.Err }
