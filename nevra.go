package repomd

import (
	"fmt"
	"strconv"
)

// Key identifies a package by name, epoch, version, release and architecture.
// Keys are comparable: two records describe the same package exactly when
// their Keys are equal, regardless of descriptive fields or which catalog
// form they came from.
type Key struct {
	Name    string
	Epoch   string
	Version string
	Release string
	Arch    string
}

// FormatVR renders "version-release".
func FormatVR(version, release string) string {
	return version + "-" + release
}

// FormatNVR renders "name-version-release".
func FormatNVR(name, version, release string) string {
	return name + "-" + FormatVR(version, release)
}

// FormatEVR renders "epoch:version-release", omitting the epoch prefix when
// the epoch parses to zero. The epoch is rendered as given, not normalized.
// A non-integer epoch yields a *FormatError.
func FormatEVR(epoch, version, release string) (string, error) {
	e, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		return "", &FormatError{Field: "epoch", Value: epoch, Err: err}
	}
	if e == 0 {
		return FormatVR(version, release), nil
	}
	return epoch + ":" + FormatVR(version, release), nil
}

// FormatNEVR renders "name-epoch:version-release" with the FormatEVR epoch
// rule.
func FormatNEVR(name, epoch, version, release string) (string, error) {
	evr, err := FormatEVR(epoch, version, release)
	if err != nil {
		return "", err
	}
	return name + "-" + evr, nil
}

// FormatNEVRA renders "name-epoch:version-release.arch" with the FormatEVR
// epoch rule.
func FormatNEVRA(name, epoch, version, release, arch string) (string, error) {
	nevr, err := FormatNEVR(name, epoch, version, release)
	if err != nil {
		return "", err
	}
	return nevr + "." + arch, nil
}

// packageString renders p as its NEVRA, falling back to a raw rendering when
// the epoch cannot be parsed.
func packageString(p Package) string {
	s, err := p.NEVRA()
	if err != nil {
		return fmt.Sprintf("%s-%s:%s.%s", p.Name(), p.Epoch(), p.VR(), p.Arch())
	}
	return s
}
