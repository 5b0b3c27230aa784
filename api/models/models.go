// Package models has the request and response bodies of the REST API defined in
// api/imgmgr.yaml
package models

// VersionInfo is an installed version as presented by the API
type VersionInfo struct {
	Id              string  `json:"id"`
	Version         string  `json:"version"`
	Purpose         string  `json:"purpose"`
	Path            string  `json:"path"`
	Functional      bool    `json:"functional"`
	ExtendedVersion *string `json:"extendedVersion,omitempty"`
	MachineName     *string `json:"machineName,omitempty"`
}

// PnorInfo has the component versions of the running host firmware
type PnorInfo struct {
	BiosVersion        string `json:"biosVersion"`
	BuildVersion       string `json:"buildVersion"`
	BuildrootVersion   string `json:"buildrootVersion"`
	SkibootVersion     string `json:"skibootVersion"`
	HostbootVersion    string `json:"hostbootVersion"`
	LinuxVersion       string `json:"linuxVersion"`
	PetitbootVersion   string `json:"petitbootVersion"`
	MachineVersion     string `json:"machineVersion"`
	OccVersion         string `json:"occVersion"`
	HostbootBinVersion string `json:"hostbootBinVersion"`
	CappVersion        string `json:"cappVersion"`
	SbeVersion         string `json:"sbeVersion"`
	Purpose            string `json:"purpose"`
}

// Message is returned by endpoints that don't return a resource
type Message struct {
	Message string `json:"message"`
}
