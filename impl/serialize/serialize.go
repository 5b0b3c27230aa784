// Package serialize rebuilds the version registry from the upload directory
// when the process starts. The registry itself is not persisted: the version
// directories are the durable state, and each one carries the MANIFEST it was
// extracted from. A version directory only comes into being by renaming a
// fully extracted staging directory, so an id-named directory is complete.
// Staging directories share the workspace prefix and are removed here.
package serialize

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aceeric/imgmgr/impl/globals"
	"github.com/aceeric/imgmgr/impl/identity"
	"github.com/aceeric/imgmgr/impl/manifest"
	"github.com/aceeric/imgmgr/impl/registry"
	"github.com/aceeric/imgmgr/impl/version"

	log "github.com/sirupsen/logrus"
)

// FromFilesystem scans 'uploadPath' and inserts a version into 'reg' for every
// directory that is named by a version id and holds a MANIFEST whose version
// hashes to that id. Workspaces left behind by an interrupted ingest are
// removed. Anything else is logged and left alone. If 'uploadPath' doesn't
// exist it is created. Returns the number of versions loaded.
func FromFilesystem(reg *registry.Registry, uploadPath string) (int, error) {
	start := time.Now()
	log.Infof("load version registry from file system: %s", uploadPath)
	if err := os.MkdirAll(uploadPath, 0755); err != nil {
		return 0, fmt.Errorf("unable to create upload path %s: %w", uploadPath, err)
	}
	entries, err := os.ReadDir(uploadPath)
	if err != nil {
		return 0, err
	}
	itemcnt := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(uploadPath, entry.Name())
		if strings.HasPrefix(entry.Name(), globals.WorkspacePrefix) {
			log.Infof("removing abandoned workspace %s", path)
			if err := os.RemoveAll(path); err != nil {
				log.Errorf("error removing workspace %s: %s", path, err)
			}
			continue
		}
		if !identity.IsValid(entry.Name()) {
			log.Debugf("ignoring directory %s", path)
			continue
		}
		v, err := fromDir(entry.Name(), path)
		if err != nil {
			log.Warnf("not loading %s: %s", path, err)
			continue
		}
		if reg.Insert(v) {
			log.Debugf("loaded version %s (id %s)", v.Version, v.Id)
			itemcnt++
		}
	}
	log.Infof("loaded %d version(s) from the file system in %s", itemcnt, time.Since(start))
	return itemcnt, nil
}

// fromDir builds a version from the MANIFEST in an extracted version directory
func fromDir(id string, path string) (version.Version, error) {
	kvs, err := manifest.Read(filepath.Join(path, globals.ManifestFile))
	if err != nil {
		return version.Version{}, err
	}
	ver, purposeStr := kvs["version"], kvs["purpose"]
	if ver == "" || purposeStr == "" {
		return version.Version{}, errors.New("manifest is missing version or purpose")
	}
	if computed := identity.ComputeId(ver); computed != id {
		return version.Version{}, fmt.Errorf("version %s has id %s", ver, computed)
	}
	purpose, err := version.ParsePurpose(purposeStr)
	if err != nil {
		log.Warnf("%s - setting purpose to %s", err, version.Unknown)
	}
	v := version.New(id, ver, purpose, path)
	v.ExtendedVersion = kvs["ExtendedVersion"]
	v.MachineName = kvs["MachineName"]
	return v, nil
}
