// Package release determines which version is running on the device. The running
// version is read from the VERSION_ID line of an os-release style file, which
// uses the same key=value format as an image MANIFEST.
package release

import (
	"strings"

	"github.com/aceeric/imgmgr/impl/manifest"
	"github.com/aceeric/imgmgr/impl/registry"
	"github.com/aceeric/imgmgr/impl/version"

	log "github.com/sirupsen/logrus"
)

const versionKey = "VERSION_ID"

// ActiveVersion returns the VERSION_ID value from the passed release file with
// any surrounding quotes removed, or the empty string if it can't be read.
func ActiveVersion(releaseFile string) string {
	val := manifest.GetValue(releaseFile, versionKey)
	val = strings.Trim(val, `"`)
	if val == "" {
		log.Warnf("unable to get %s from %s", versionKey, releaseFile)
	}
	return val
}

// Functional returns a registry.FunctionalFunc. If 'override' is non-empty then
// a version is functional if its version string equals 'override'. Otherwise the
// release file is read on every call so an update that changes the running
// version is picked up without a restart. An unreadable release file means no
// version is functional.
func Functional(releaseFile string, override string) registry.FunctionalFunc {
	return func(v version.Version) bool {
		active := override
		if active == "" {
			active = ActiveVersion(releaseFile)
		}
		return active != "" && v.Version == active
	}
}
