package repomd

import "time"

// Package is a single record from a primary catalog. Both catalog forms
// produce Packages; identity behavior is form-independent.
type Package interface {
	Name() string
	Arch() string
	// Epoch is "0" when the catalog carries no epoch.
	Epoch() string
	Version() string
	Release() string
	Summary() string
	Description() string
	Packager() string
	URL() string
	License() string
	Vendor() string
	Group() string
	BuildHost() string
	SourceRPM() string
	// Checksum is the package checksum (the pkgid); ChecksumType names its
	// algorithm.
	Checksum() string
	ChecksumType() string
	BuildTime() (time.Time, bool)
	PackageSize() (int64, bool)
	InstalledSize() (int64, bool)
	ArchiveSize() (int64, bool)
	// Location is the package path relative to the repository base URL.
	Location() string

	VR() string
	NVR() string
	EVR() (string, error)
	NEVR() (string, error)
	NEVRA() (string, error)
	// Key is the identity 5-tuple; equal Keys mean the same package.
	Key() Key
	String() string
}

// Iterator is a cursor over package records, in catalog storage order.
// Callers check Err after Next returns false and Close when done early.
type Iterator interface {
	Next() bool
	Package() Package
	Err() error
	Close() error
}

// Repository is read-only access to a loaded primary catalog. Construct with
// Client.Load or Client.LoadDB.
type Repository interface {
	BaseURL() string
	Len() (int, error)
	// Packages returns a fresh cursor over the whole catalog.
	Packages() Iterator
	// Find returns the last record matching name, or (nil, nil) when the
	// catalog has none.
	Find(name string) (Package, error)
	// FindAll returns every record matching name in catalog order.
	FindAll(name string) ([]Package, error)
	Close() error
	String() string
}

// xmlRepository serves queries from a fully decoded XML primary catalog. It
// holds no external resources and is safe for concurrent readers.
type xmlRepository struct {
	baseURL string
	doc     *primaryXML
}

func (r *xmlRepository) BaseURL() string { return r.baseURL }
func (r *xmlRepository) String() string  { return r.baseURL }

// Len returns the count declared by the catalog's packages attribute.
func (r *xmlRepository) Len() (int, error) { return r.doc.Count, nil }

func (r *xmlRepository) Packages() Iterator {
	return &xmlIterator{packages: r.doc.Packages}
}

func (r *xmlRepository) Find(name string) (Package, error) {
	var found Package
	for _, elem := range r.doc.Packages {
		if elem.Name == name {
			found = &xmlPackage{elem: elem}
		}
	}
	return found, nil
}

func (r *xmlRepository) FindAll(name string) ([]Package, error) {
	var results []Package
	for _, elem := range r.doc.Packages {
		if elem.Name == name {
			results = append(results, &xmlPackage{elem: elem})
		}
	}
	return results, nil
}

// Close is a no-op for the XML form.
func (r *xmlRepository) Close() error { return nil }

type xmlIterator struct {
	packages []*packageXML
	pos      int
	cur      Package
}

func (it *xmlIterator) Next() bool {
	if it.pos >= len(it.packages) {
		it.cur = nil
		return false
	}
	it.cur = &xmlPackage{elem: it.packages[it.pos]}
	it.pos++
	return true
}

func (it *xmlIterator) Package() Package { return it.cur }
func (it *xmlIterator) Err() error       { return nil }
func (it *xmlIterator) Close() error     { return nil }
