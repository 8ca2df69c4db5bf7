// Package metalink discovers repository mirrors from Metalink 3.0 documents
// of the kind served by mirrors.fedoraproject.org.
package metalink

import (
	"encoding/xml"
	"sort"
	"strings"
)

// Mirror is one repository endpoint discovered from a metalink.
type Mirror struct {
	URL        string `json:"url"`
	Country    string `json:"country"`
	Protocol   string `json:"protocol"`
	Preference int    `json:"preference"`
}

// ProbeResult holds the outcome of probing one mirror.
type ProbeResult struct {
	URL            string  `json:"url"`
	LatencyMs      int     `json:"latency_ms"`
	ThroughputKBps float64 `json:"throughput_kbps"`
	Error          string  `json:"error,omitempty"`
}

// metalinkXML structs model the Metalink 3.0 XML format.
type metalinkXML struct {
	XMLName xml.Name         `xml:"metalink"`
	Files   metalinkFilesXML `xml:"files"`
}

type metalinkFilesXML struct {
	File []metalinkFileXML `xml:"file"`
}

type metalinkFileXML struct {
	Name      string               `xml:"name,attr"`
	Resources metalinkResourcesXML `xml:"resources"`
}

type metalinkResourcesXML struct {
	URLs []metalinkURLXML `xml:"url"`
}

type metalinkURLXML struct {
	Protocol   string `xml:"protocol,attr"`
	Type       string `xml:"type,attr"`
	Location   string `xml:"location,attr"`
	Preference int    `xml:"preference,attr"`
	URL        string `xml:",chardata"`
}

// indexSuffix is stripped from metalink URLs to obtain the base repository URL.
const indexSuffix = "/repodata/repomd.xml"

// parseMetalink parses a Metalink 3.0 document and returns the mirrors it
// names, sorted by preference in descending order.
func parseMetalink(data []byte) ([]Mirror, error) {
	var ml metalinkXML
	if err := xml.Unmarshal(data, &ml); err != nil {
		return nil, err
	}

	var mirrors []Mirror
	for _, file := range ml.Files.File {
		for _, u := range file.Resources.URLs {
			url := strings.TrimSpace(u.URL)
			url = strings.TrimSuffix(url, indexSuffix)

			mirrors = append(mirrors, Mirror{
				URL:        url,
				Country:    u.Location,
				Protocol:   u.Protocol,
				Preference: u.Preference,
			})
		}
	}

	sort.SliceStable(mirrors, func(i, j int) bool {
		return mirrors[i].Preference > mirrors[j].Preference
	})

	return mirrors, nil
}
