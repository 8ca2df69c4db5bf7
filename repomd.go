// Package repomd reads RPM repository metadata. Given a repository base URL
// it fetches the repodata/repomd.xml index, locates the primary package
// catalog in either its XML or SQLite form, and exposes count, iteration and
// find-by-name queries over uniform package records.
package repomd

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Index is the parsed repomd.xml document: the table of contents listing
// every catalog artifact the repository publishes.
type Index struct {
	Revision string
	Entries  []IndexEntry
}

// IndexEntry describes a single catalog artifact from the index.
type IndexEntry struct {
	Type             string
	Href             string
	Checksum         string
	ChecksumType     string
	OpenChecksum     string
	OpenChecksumType string
	Size             int64
	OpenSize         int64
	Timestamp        int64
}

// indexXML structs model repomd.xml. The document always carries the repo
// namespace; anything else is not a repository index.
type indexXML struct {
	XMLName  xml.Name       `xml:"http://linux.duke.edu/metadata/repo repomd"`
	Revision string         `xml:"revision"`
	Data     []indexDataXML `xml:"data"`
}

type indexDataXML struct {
	Type         string           `xml:"type,attr"`
	Location     indexLocationXML `xml:"location"`
	Checksum     indexChecksumXML `xml:"checksum"`
	OpenChecksum indexChecksumXML `xml:"open-checksum"`
	Size         int64            `xml:"size"`
	OpenSize     int64            `xml:"open-size"`
	Timestamp    float64          `xml:"timestamp"` // old createrepo wrote floats
}

type indexLocationXML struct {
	Href string `xml:"href,attr"`
}

type indexChecksumXML struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

// ParseIndex parses a repomd.xml document.
func ParseIndex(data []byte) (*Index, error) {
	var doc indexXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing repomd.xml: %w", err)
	}

	ix := &Index{Revision: strings.TrimSpace(doc.Revision)}
	for _, d := range doc.Data {
		ix.Entries = append(ix.Entries, IndexEntry{
			Type:             d.Type,
			Href:             d.Location.Href,
			Checksum:         strings.TrimSpace(d.Checksum.Value),
			ChecksumType:     d.Checksum.Type,
			OpenChecksum:     strings.TrimSpace(d.OpenChecksum.Value),
			OpenChecksumType: d.OpenChecksum.Type,
			Size:             d.Size,
			OpenSize:         d.OpenSize,
			Timestamp:        int64(d.Timestamp),
		})
	}
	return ix, nil
}

// Entry returns the first entry with the given catalog type, or nil when the
// index has none.
func (ix *Index) Entry(catalogType string) *IndexEntry {
	for i := range ix.Entries {
		if ix.Entries[i].Type == catalogType {
			return &ix.Entries[i]
		}
	}
	return nil
}
