package release

import (
	"strings"

	"github.com/aceeric/imgmgr/impl/manifest"
	"github.com/aceeric/imgmgr/impl/version"
)

// PnorInfo has the component versions of the host firmware (PNOR) running on the
// device. Fields are empty if the VERSION file doesn't list the component.
type PnorInfo struct {
	BIOSVersion        string
	BuildVersion       string
	BuildrootVersion   string
	SkibootVersion     string
	HostbootVersion    string
	LinuxVersion       string
	PetitbootVersion   string
	MachineVersion     string
	OccVersion         string
	HostbootBinVersion string
	CappVersion        string
	SbeVersion         string
	Purpose            version.Purpose
}

// pnorPrefixes maps the line prefixes of an OpenPOWER PNOR VERSION file to the
// field each one fills, e.g. "skiboot-v6.0.1" -> SkibootVersion "v6.0.1"
var pnorPrefixes = []struct {
	prefix string
	field  func(*PnorInfo) *string
}{
	{"open-power-", func(p *PnorInfo) *string { return &p.BIOSVersion }},
	{"op-build-", func(p *PnorInfo) *string { return &p.BuildVersion }},
	{"buildroot-", func(p *PnorInfo) *string { return &p.BuildrootVersion }},
	{"skiboot-", func(p *PnorInfo) *string { return &p.SkibootVersion }},
	{"hostboot-", func(p *PnorInfo) *string { return &p.HostbootVersion }},
	{"linux-", func(p *PnorInfo) *string { return &p.LinuxVersion }},
	{"petitboot-", func(p *PnorInfo) *string { return &p.PetitbootVersion }},
	{"machine-xml-", func(p *PnorInfo) *string { return &p.MachineVersion }},
	{"occ-", func(p *PnorInfo) *string { return &p.OccVersion }},
	{"hostboot-binaries-", func(p *PnorInfo) *string { return &p.HostbootBinVersion }},
	{"capp-ucode-", func(p *PnorInfo) *string { return &p.CappVersion }},
	{"sbe-", func(p *PnorInfo) *string { return &p.SbeVersion }},
}

// PnorInfoVersion returns the rest of the first line in 'releaseFile' that
// starts with 'prefix', or the empty string if there is no such line or the file
// can't be read.
func PnorInfoVersion(releaseFile string, prefix string) string {
	lines, err := manifest.Lines(releaseFile)
	if err != nil {
		return ""
	}
	for _, line := range lines {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimPrefix(line, prefix)
		}
	}
	return ""
}

// ReadPnorInfo reads the host firmware VERSION file at 'releaseFile'. Each line
// is matched against the longest component prefix it starts with, so a
// "hostboot-binaries-" line is not taken for hostboot itself. The first line for
// a component wins.
func ReadPnorInfo(releaseFile string) (PnorInfo, error) {
	info := PnorInfo{Purpose: version.Host}
	lines, err := manifest.Lines(releaseFile)
	if err != nil {
		return info, err
	}
	for _, line := range lines {
		best := -1
		for i, p := range pnorPrefixes {
			if strings.HasPrefix(line, p.prefix) && (best < 0 || len(p.prefix) > len(pnorPrefixes[best].prefix)) {
				best = i
			}
		}
		if best < 0 {
			continue
		}
		if field := pnorPrefixes[best].field(&info); *field == "" {
			*field = strings.TrimPrefix(line, pnorPrefixes[best].prefix)
		}
	}
	return info, nil
}
