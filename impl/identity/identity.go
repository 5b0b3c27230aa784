// Package identity derives the id of a version from its version string. The id
// is the first eight hex digits of the SHA-512 digest of the string. This is
// the scheme already used on installed devices, so ids computed here match
// the directory names of versions extracted by earlier software.
package identity

import (
	_ "crypto/sha512"
	"regexp"

	"github.com/opencontainers/go-digest"
)

// IdLen is the number of hex digits in an id
const IdLen = 8

var idRe = regexp.MustCompile(`^[a-f0-9]{8}$`)

// ComputeId returns the id for the passed version string, e.g. "v2.7.0-dev" ->
// "a1b2c3d4". Same input, same output - always.
func ComputeId(version string) string {
	return digest.SHA512.FromString(version).Encoded()[:IdLen]
}

// IsValid returns true if the passed string has the shape of an id. It says
// nothing about whether any version has that id.
func IsValid(id string) bool {
	return idRe.MatchString(id)
}
