package repomd

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// primaryXML models the root element of the XML primary catalog.
type primaryXML struct {
	XMLName  xml.Name      `xml:"http://linux.duke.edu/metadata/common metadata"`
	Count    int           `xml:"packages,attr"`
	Packages []*packageXML `xml:"package"`
}

// packageXML mirrors one <package> element. The time, size and format nodes
// are optional in the schema, hence the pointers.
type packageXML struct {
	Type        string       `xml:"type,attr"`
	Name        string       `xml:"name"`
	Arch        string       `xml:"arch"`
	Version     versionXML   `xml:"version"`
	Checksum    checksumXML  `xml:"checksum"`
	Summary     string       `xml:"summary"`
	Description string       `xml:"description"`
	Packager    string       `xml:"packager"`
	URL         string       `xml:"url"`
	Time        *timeXML     `xml:"time"`
	Size        *sizeXML     `xml:"size"`
	Location    locationXML  `xml:"location"`
	Format      *formatXML   `xml:"format"`
}

type versionXML struct {
	Epoch string `xml:"epoch,attr"`
	Ver   string `xml:"ver,attr"`
	Rel   string `xml:"rel,attr"`
}

type checksumXML struct {
	Type  string `xml:"type,attr"`
	PkgID string `xml:"pkgid,attr"`
	Value string `xml:",chardata"`
}

type timeXML struct {
	File  int64 `xml:"file,attr"`
	Build int64 `xml:"build,attr"`
}

type sizeXML struct {
	Package   int64 `xml:"package,attr"`
	Installed int64 `xml:"installed,attr"`
	Archive   int64 `xml:"archive,attr"`
}

type locationXML struct {
	Href string `xml:"href,attr"`
}

// formatXML holds the rpm-namespace children of <format>. File lists under
// the same node are skipped by the decoder.
type formatXML struct {
	License   string `xml:"license"`
	Vendor    string `xml:"vendor"`
	Group     string `xml:"group"`
	BuildHost string `xml:"buildhost"`
	SourceRPM string `xml:"sourcerpm"`
}

// parsePrimary parses a decompressed primary catalog. The decoder runs in
// lenient mode: real-world repodata occasionally carries undeclared entities.
func parsePrimary(data []byte) (*primaryXML, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Entity = map[string]string{}
	decoder.Strict = false

	var doc primaryXML
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing primary catalog: %w", err)
	}
	return &doc, nil
}

// xmlPackage is a package record backed by a decoded catalog element.
// Accessors read the element on demand; derived strings are computed per
// call, never cached.
type xmlPackage struct {
	elem *packageXML
}

func (p *xmlPackage) Name() string { return p.elem.Name }
func (p *xmlPackage) Arch() string { return p.elem.Arch }

// Epoch returns the package epoch, defaulting to "0" when the catalog omits
// it.
func (p *xmlPackage) Epoch() string {
	if p.elem.Version.Epoch == "" {
		return "0"
	}
	return p.elem.Version.Epoch
}

func (p *xmlPackage) Version() string     { return p.elem.Version.Ver }
func (p *xmlPackage) Release() string     { return p.elem.Version.Rel }
func (p *xmlPackage) Summary() string     { return p.elem.Summary }
func (p *xmlPackage) Description() string { return p.elem.Description }
func (p *xmlPackage) Packager() string    { return p.elem.Packager }
func (p *xmlPackage) URL() string         { return p.elem.URL }

func (p *xmlPackage) License() string {
	if p.elem.Format == nil {
		return ""
	}
	return p.elem.Format.License
}

func (p *xmlPackage) Vendor() string {
	if p.elem.Format == nil {
		return ""
	}
	return p.elem.Format.Vendor
}

func (p *xmlPackage) Group() string {
	if p.elem.Format == nil {
		return ""
	}
	return p.elem.Format.Group
}

func (p *xmlPackage) BuildHost() string {
	if p.elem.Format == nil {
		return ""
	}
	return p.elem.Format.BuildHost
}

func (p *xmlPackage) SourceRPM() string {
	if p.elem.Format == nil {
		return ""
	}
	return p.elem.Format.SourceRPM
}

func (p *xmlPackage) Checksum() string     { return strings.TrimSpace(p.elem.Checksum.Value) }
func (p *xmlPackage) ChecksumType() string { return p.elem.Checksum.Type }

func (p *xmlPackage) BuildTime() (time.Time, bool) {
	if p.elem.Time == nil {
		return time.Time{}, false
	}
	return time.Unix(p.elem.Time.Build, 0), true
}

func (p *xmlPackage) PackageSize() (int64, bool) {
	if p.elem.Size == nil {
		return 0, false
	}
	return p.elem.Size.Package, true
}

func (p *xmlPackage) InstalledSize() (int64, bool) {
	if p.elem.Size == nil {
		return 0, false
	}
	return p.elem.Size.Installed, true
}

func (p *xmlPackage) ArchiveSize() (int64, bool) {
	if p.elem.Size == nil {
		return 0, false
	}
	return p.elem.Size.Archive, true
}

func (p *xmlPackage) Location() string { return p.elem.Location.Href }

func (p *xmlPackage) VR() string  { return FormatVR(p.Version(), p.Release()) }
func (p *xmlPackage) NVR() string { return FormatNVR(p.Name(), p.Version(), p.Release()) }

func (p *xmlPackage) EVR() (string, error) {
	return FormatEVR(p.Epoch(), p.Version(), p.Release())
}

func (p *xmlPackage) NEVR() (string, error) {
	return FormatNEVR(p.Name(), p.Epoch(), p.Version(), p.Release())
}

func (p *xmlPackage) NEVRA() (string, error) {
	return FormatNEVRA(p.Name(), p.Epoch(), p.Version(), p.Release(), p.Arch())
}

func (p *xmlPackage) Key() Key {
	return Key{Name: p.Name(), Epoch: p.Epoch(), Version: p.Version(), Release: p.Release(), Arch: p.Arch()}
}

func (p *xmlPackage) String() string { return packageString(p) }
