package repomd

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// packageColumns lists the packages-table columns in storage order. The
// schema is stable across createrepo implementations.
const packageColumns = `pkgKey, pkgId, name, arch, version, epoch, release,
	summary, description, url, time_file, time_build, rpm_license, rpm_vendor,
	rpm_group, rpm_buildhost, rpm_sourcerpm, rpm_header_start, rpm_header_end,
	rpm_packager, size_package, size_installed, size_archive, location_href,
	location_base, checksum_type`

// dbRepository serves queries from a primary database staged in a private
// temp directory. It owns the directory and the connection; Close releases
// both.
type dbRepository struct {
	baseURL string
	tempDir string
	dbPath  string
	db      *sql.DB
}

// newDBRepository opens the staged primary database and verifies the
// connection.
func newDBRepository(baseURL, tempDir, dbPath string) (*dbRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening primary database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging primary database: %w", err)
	}
	return &dbRepository{
		baseURL: baseURL,
		tempDir: tempDir,
		dbPath:  dbPath,
		db:      db,
	}, nil
}

func (r *dbRepository) BaseURL() string { return r.baseURL }
func (r *dbRepository) String() string  { return r.baseURL }

// Len counts rows on demand; the database form keeps no cached count.
func (r *dbRepository) Len() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM packages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting packages: %w", err)
	}
	return n, nil
}

func (r *dbRepository) Packages() Iterator {
	rows, err := r.db.Query(`SELECT ` + packageColumns + ` FROM packages`)
	if err != nil {
		return &dbIterator{err: fmt.Errorf("querying packages: %w", err)}
	}
	return &dbIterator{rows: rows}
}

func (r *dbRepository) Find(name string) (Package, error) {
	results, err := r.FindAll(name)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[len(results)-1], nil
}

func (r *dbRepository) FindAll(name string) ([]Package, error) {
	rows, err := r.db.Query(`SELECT `+packageColumns+` FROM packages WHERE name = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("querying packages named %q: %w", name, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []Package
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading package rows: %w", err)
	}
	return results, nil
}

// Close closes the database and removes the temp directory holding it.
// Queries after Close return errors.
func (r *dbRepository) Close() error {
	err := r.db.Close()
	if rmErr := os.RemoveAll(r.tempDir); rmErr != nil && err == nil {
		err = rmErr
	}
	if err != nil {
		return fmt.Errorf("closing primary database: %w", err)
	}
	return nil
}

type dbIterator struct {
	rows *sql.Rows
	cur  Package
	err  error
}

func (it *dbIterator) Next() bool {
	if it.err != nil || it.rows == nil {
		return false
	}
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			it.err = fmt.Errorf("reading package rows: %w", err)
		}
		it.cur = nil
		return false
	}
	pkg, err := scanPackage(it.rows)
	if err != nil {
		it.err = err
		it.cur = nil
		return false
	}
	it.cur = pkg
	return true
}

func (it *dbIterator) Package() Package { return it.cur }
func (it *dbIterator) Err() error       { return it.err }

func (it *dbIterator) Close() error {
	if it.rows == nil {
		return nil
	}
	return it.rows.Close()
}

// rowPackage is a package record materialized from one packages-table row.
// Every column is bound even where no accessor exposes it.
type rowPackage struct {
	pkgKey           int64
	pkgID            string
	name             string
	arch             string
	version          string
	epoch            string
	release          string
	summary          string
	description      string
	url              string
	fileTime         int64
	hasFileTime      bool
	buildTime        int64
	hasBuildTime     bool
	license          string
	vendor           string
	group            string
	buildHost        string
	sourceRPM        string
	headerStart      int64
	headerEnd        int64
	packager         string
	packageSize      int64
	hasPackageSize   bool
	installedSize    int64
	hasInstalledSize bool
	archiveSize      int64
	hasArchiveSize   bool
	locationHref     string
	locationBase     string
	checksumType     string
}

// scanPackage reads the current row into a record. SQLite columns here are
// dynamically typed: numeric fields can arrive as NULL or as an empty string,
// both of which mean absent.
func scanPackage(rows *sql.Rows) (*rowPackage, error) {
	var (
		pkgKey                                            int64
		pkgID, name, arch, version, epoch, release        sql.NullString
		summary, description, url                         sql.NullString
		fileTime, buildTime                               sql.NullString
		license, vendor, group, buildHost, sourceRPM      sql.NullString
		headerStart, headerEnd                            sql.NullString
		packager, packageSize, installedSize, archiveSize sql.NullString
		locationHref, locationBase, checksumType          sql.NullString
	)

	if err := rows.Scan(
		&pkgKey, &pkgID, &name, &arch, &version, &epoch, &release,
		&summary, &description, &url, &fileTime, &buildTime,
		&license, &vendor, &group, &buildHost, &sourceRPM,
		&headerStart, &headerEnd, &packager,
		&packageSize, &installedSize, &archiveSize,
		&locationHref, &locationBase, &checksumType,
	); err != nil {
		return nil, fmt.Errorf("scanning package row: %w", err)
	}

	pkg := &rowPackage{
		pkgKey:       pkgKey,
		pkgID:        pkgID.String,
		name:         name.String,
		arch:         arch.String,
		version:      version.String,
		epoch:        epoch.String,
		release:      release.String,
		summary:      summary.String,
		description:  description.String,
		url:          url.String,
		license:      license.String,
		vendor:       vendor.String,
		group:        group.String,
		buildHost:    buildHost.String,
		sourceRPM:    sourceRPM.String,
		packager:     packager.String,
		locationHref: locationHref.String,
		locationBase: locationBase.String,
		checksumType: checksumType.String,
	}
	if pkg.epoch == "" {
		pkg.epoch = "0"
	}

	var err error
	if pkg.fileTime, pkg.hasFileTime, err = optionalInt(fileTime, "time_file"); err != nil {
		return nil, err
	}
	if pkg.buildTime, pkg.hasBuildTime, err = optionalInt(buildTime, "time_build"); err != nil {
		return nil, err
	}
	if pkg.headerStart, _, err = optionalInt(headerStart, "rpm_header_start"); err != nil {
		return nil, err
	}
	if pkg.headerEnd, _, err = optionalInt(headerEnd, "rpm_header_end"); err != nil {
		return nil, err
	}
	if pkg.packageSize, pkg.hasPackageSize, err = optionalInt(packageSize, "size_package"); err != nil {
		return nil, err
	}
	if pkg.installedSize, pkg.hasInstalledSize, err = optionalInt(installedSize, "size_installed"); err != nil {
		return nil, err
	}
	if pkg.archiveSize, pkg.hasArchiveSize, err = optionalInt(archiveSize, "size_archive"); err != nil {
		return nil, err
	}
	return pkg, nil
}

// optionalInt converts a nullable column value to an int64, treating NULL
// and the empty string as absent.
func optionalInt(v sql.NullString, column string) (int64, bool, error) {
	if !v.Valid || v.String == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(v.String, 10, 64)
	if err != nil {
		return 0, false, &FormatError{Field: column, Value: v.String, Err: err}
	}
	return n, true, nil
}

func (p *rowPackage) Name() string        { return p.name }
func (p *rowPackage) Arch() string        { return p.arch }
func (p *rowPackage) Epoch() string       { return p.epoch }
func (p *rowPackage) Version() string     { return p.version }
func (p *rowPackage) Release() string     { return p.release }
func (p *rowPackage) Summary() string     { return p.summary }
func (p *rowPackage) Description() string { return p.description }
func (p *rowPackage) Packager() string    { return p.packager }
func (p *rowPackage) URL() string         { return p.url }
func (p *rowPackage) License() string     { return p.license }
func (p *rowPackage) Vendor() string      { return p.vendor }
func (p *rowPackage) Group() string       { return p.group }
func (p *rowPackage) BuildHost() string   { return p.buildHost }
func (p *rowPackage) SourceRPM() string   { return p.sourceRPM }

func (p *rowPackage) Checksum() string     { return p.pkgID }
func (p *rowPackage) ChecksumType() string { return p.checksumType }

func (p *rowPackage) BuildTime() (time.Time, bool) {
	if !p.hasBuildTime {
		return time.Time{}, false
	}
	return time.Unix(p.buildTime, 0), true
}

func (p *rowPackage) PackageSize() (int64, bool)   { return p.packageSize, p.hasPackageSize }
func (p *rowPackage) InstalledSize() (int64, bool) { return p.installedSize, p.hasInstalledSize }
func (p *rowPackage) ArchiveSize() (int64, bool)   { return p.archiveSize, p.hasArchiveSize }

func (p *rowPackage) Location() string { return p.locationHref }

func (p *rowPackage) VR() string  { return FormatVR(p.version, p.release) }
func (p *rowPackage) NVR() string { return FormatNVR(p.name, p.version, p.release) }

func (p *rowPackage) EVR() (string, error) {
	return FormatEVR(p.epoch, p.version, p.release)
}

func (p *rowPackage) NEVR() (string, error) {
	return FormatNEVR(p.name, p.epoch, p.version, p.release)
}

func (p *rowPackage) NEVRA() (string, error) {
	return FormatNEVRA(p.name, p.epoch, p.version, p.release, p.arch)
}

func (p *rowPackage) Key() Key {
	return Key{Name: p.name, Epoch: p.epoch, Version: p.version, Release: p.release, Arch: p.arch}
}

func (p *rowPackage) String() string { return packageString(p) }
