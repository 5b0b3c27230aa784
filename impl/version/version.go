// Package version has the record kept for each installed image version, and
// the purpose enumeration declared by an image's MANIFEST.
package version

import (
	"fmt"
	"strings"
)

// Purpose classifies what an image is for
type Purpose int

const (
	Unknown Purpose = iota
	Other
	System
	BMC
	Host
	PSU
)

// purposePrefix is the fully-qualified form some manifests use, e.g.
// purpose=xyz.openbmc_project.Software.Version.VersionPurpose.BMC
const purposePrefix = "xyz.openbmc_project.Software.Version.VersionPurpose."

var purposeNames = map[Purpose]string{
	Unknown: "Unknown",
	Other:   "Other",
	System:  "System",
	BMC:     "BMC",
	Host:    "Host",
	PSU:     "PSU",
}

func (p Purpose) String() string {
	if name, ok := purposeNames[p]; ok {
		return name
	}
	return purposeNames[Unknown]
}

// MarshalText renders the purpose by name in JSON and YAML
func (p Purpose) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ParsePurpose converts manifest text to a Purpose. Both the bare name and the
// fully-qualified name are accepted, regardless of case. Unrecognized text
// returns Unknown along with an error: the caller decides whether that matters,
// and the image manager does not fail ingestion because of it.
func ParsePurpose(s string) (Purpose, error) {
	name := strings.TrimSpace(s)
	if len(name) > len(purposePrefix) && strings.EqualFold(name[:len(purposePrefix)], purposePrefix) {
		name = name[len(purposePrefix):]
	}
	for p, pname := range purposeNames {
		if strings.EqualFold(name, pname) {
			return p, nil
		}
	}
	return Unknown, fmt.Errorf("unrecognized purpose: %q", s)
}

// Version is one installed image version. It is created only after the image
// is fully extracted into Path, and never changes after that. Whether it is the
// functional (running) version is not stored here - the registry works that
// out on demand.
type Version struct {
	// Id is derived from the version string (see package identity) and is also
	// the name of the directory holding the image
	Id      string
	Version string
	Purpose Purpose
	// Path is the directory owned by this version
	Path string
	// optional manifest values, empty if the manifest didn't have them
	ExtendedVersion string
	MachineName     string
}

// New returns a Version
func New(id string, ver string, purpose Purpose, path string) Version {
	return Version{
		Id:      id,
		Version: ver,
		Purpose: purpose,
		Path:    path,
	}
}

func (v Version) String() string {
	return fmt.Sprintf("%s %s %s %s", v.Id, v.Version, v.Purpose, v.Path)
}
