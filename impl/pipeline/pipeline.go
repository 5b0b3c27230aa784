// Package pipeline is the image manager. It turns an uploaded image archive into
// an installed version: the archive's MANIFEST is extracted into a scratch
// workspace and read, the version id is computed from the manifest's version
// string, and the whole archive is extracted into a directory named by the id.
// The archive and the workspace are always removed when ingestion finishes,
// whether it succeeded or not. A failed ingestion leaves nothing behind.
//
// The manager also removes versions, refusing to remove the one that is
// running on the device.
package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/aceeric/imgmgr/impl/extractor"
	"github.com/aceeric/imgmgr/impl/globals"
	"github.com/aceeric/imgmgr/impl/identity"
	"github.com/aceeric/imgmgr/impl/manifest"
	"github.com/aceeric/imgmgr/impl/metrics"
	"github.com/aceeric/imgmgr/impl/notify"
	"github.com/aceeric/imgmgr/impl/registry"
	"github.com/aceeric/imgmgr/impl/version"

	log "github.com/sirupsen/logrus"
)

// manifest keys
const (
	keyVersion         = "version"
	keyPurpose         = "purpose"
	keyExtendedVersion = "ExtendedVersion"
	keyMachineName     = "MachineName"
)

// Extractor extracts archives - satisfied by *extractor.Extractor
type Extractor interface {
	ExtractMember(ctx context.Context, archive string, member string, destDir string) error
	ExtractAll(ctx context.Context, archive string, destDir string) error
}

// Manager ingests archives into, and erases versions from, a registry. All
// workspaces and version directories are created under uploadPath.
type Manager struct {
	uploadPath string
	extractor  Extractor
	registry   *registry.Registry
	notifier   notify.Notifier
}

// NewManager returns a Manager. If 'n' is nil, registry changes are only logged.
func NewManager(uploadPath string, x Extractor, reg *registry.Registry, n notify.Notifier) *Manager {
	if n == nil {
		n = notify.LogNotifier{}
	}
	return &Manager{
		uploadPath: uploadPath,
		extractor:  x,
		registry:   reg,
		notifier:   n,
	}
}

// UploadPath returns the directory the manager works in
func (m *Manager) UploadPath() string {
	return m.uploadPath
}

// Ingest validates and extracts the archive at 'archive', registers the version
// it contains, and returns the version id. If the version is already registered
// nothing is extracted and the id is returned with a nil error. On failure the
// error is an *IngestError and the registry is unchanged. In all cases the archive
// is removed.
func (m *Manager) Ingest(ctx context.Context, archive string) (id string, err error) {
	start := time.Now()
	duplicate := false
	defer func() {
		result := "ok"
		if err != nil {
			result = KindOf(err).String()
		} else if duplicate {
			result = "duplicate"
		}
		metrics.IncIngests(result)
		metrics.ObserveIngestSeconds(time.Since(start).Seconds())
	}()

	fi, err := os.Stat(archive)
	if err != nil {
		log.Errorf("tarball does not exist: %s", archive)
		return "", fail(KindInvalidArchive, archive, err)
	}
	if !fi.Mode().IsRegular() {
		log.Errorf("tarball is not a regular file: %s", archive)
		return "", fail(KindInvalidArchive, archive, errors.New("not a regular file"))
	}
	defer removePath(archive)

	// need a scratch dir to write the MANIFEST file to
	workspace, err := os.MkdirTemp(m.uploadPath, globals.WorkspacePrefix)
	if err != nil {
		log.Errorf("unable to create workspace in %s: %s", m.uploadPath, err)
		return "", fail(KindInternal, archive, err)
	}
	defer removePath(workspace)

	if err := m.extractor.ExtractMember(ctx, archive, globals.ManifestFile, workspace); err != nil {
		if extractor.MemberMissing(err) {
			log.Errorf("no manifest file in %s", archive)
			return "", fail(KindManifest, archive, err)
		}
		log.Errorf("failed to extract manifest from %s", archive)
		return "", fail(KindExtraction, archive, err)
	}

	manifestPath := filepath.Join(workspace, globals.ManifestFile)
	if fi, err := os.Stat(manifestPath); err != nil || !fi.Mode().IsRegular() {
		log.Errorf("no manifest file in %s", archive)
		return "", fail(KindManifest, archive, errors.New("manifest not extracted"))
	}

	ver := manifest.GetValue(manifestPath, keyVersion)
	if ver == "" {
		log.Errorf("unable to read version from manifest file in %s", archive)
		return "", fail(KindManifest, archive, errors.New("manifest has no version"))
	}
	purposeStr := manifest.GetValue(manifestPath, keyPurpose)
	if purposeStr == "" {
		log.Errorf("unable to read purpose from manifest file in %s", archive)
		return "", fail(KindManifest, archive, errors.New("manifest has no purpose"))
	}
	purpose, perr := version.ParsePurpose(purposeStr)
	if perr != nil {
		log.Warnf("%s - setting purpose to %s", perr, version.Unknown)
	}

	id = identity.ComputeId(ver)

	// hold the id until the version is registered (or not) so a concurrent ingest or
	// erase of the same id can't touch the version directory
	release := m.registry.Claim(id)
	defer release()

	if m.registry.Contains(id) {
		log.Infof("version %s (id %s) already exists - ignoring %s", ver, id, archive)
		duplicate = true
		return id, nil
	}

	// the archive is extracted into a staging directory that is renamed to the id
	// only when extraction succeeds. A crash mid-extraction leaves a workspace that
	// the next start-up removes, never a partial version directory.
	staging, err := os.MkdirTemp(m.uploadPath, globals.WorkspacePrefix)
	if err != nil {
		log.Errorf("unable to create staging directory in %s: %s", m.uploadPath, err)
		return "", fail(KindInternal, archive, err)
	}
	defer removeIfExists(staging)

	if err := m.extractor.ExtractAll(ctx, archive, staging); err != nil {
		log.Errorf("error occurred during untar of %s", archive)
		return "", fail(KindExtraction, archive, err)
	}

	target := filepath.Join(m.uploadPath, id)
	if _, err := os.Stat(target); err == nil {
		log.Warnf("removing stale version directory %s", target)
		if err := os.RemoveAll(target); err != nil {
			log.Errorf("unable to remove stale version directory %s: %s", target, err)
			return "", fail(KindInternal, archive, err)
		}
	}
	if err := os.Rename(staging, target); err != nil {
		log.Errorf("error moving %s to %s: %s", staging, target, err)
		return "", fail(KindInternal, archive, err)
	}

	v := version.New(id, ver, purpose, target)
	v.ExtendedVersion = manifest.GetValue(manifestPath, keyExtendedVersion)
	v.MachineName = manifest.GetValue(manifestPath, keyMachineName)
	m.registry.Insert(v)
	log.Infof("ingested version %s (id %s, purpose %s) from %s", ver, id, purpose, archive)

	if err := m.notifier.Added(v); err != nil {
		log.Errorf("error notifying version added %s: %s", id, err)
	}
	return id, nil
}

// Erase removes the version with the passed id. Erasing an id that isn't
// registered is not an error. Erasing the functional version returns
// registry.ErrFunctional and changes nothing.
func (m *Manager) Erase(id string) error {
	removed, err := m.registry.Erase(id)
	if err != nil {
		return err
	}
	if removed {
		if err := m.notifier.Deleted(id); err != nil {
			log.Errorf("error notifying version deleted %s: %s", id, err)
		}
	}
	return nil
}

// Versions returns all registered versions ordered by id
func (m *Manager) Versions() []version.Version {
	return m.registry.List()
}

// Get returns the version with the passed id
func (m *Manager) Get(id string) (version.Version, bool) {
	return m.registry.Get(id)
}

// IsFunctional returns true if the passed version is running on the device
func (m *Manager) IsFunctional(v version.Version) bool {
	return m.registry.IsFunctional(v)
}

// removeIfExists removes a directory that may already have been renamed away
func removeIfExists(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := os.RemoveAll(path); err != nil {
		log.Errorf("error removing %s: %s", path, err)
	}
}

// removePath removes a single-use input. The path is expected to exist, so its
// absence is logged.
func removePath(path string) {
	if _, err := os.Stat(path); err != nil {
		log.Errorf("removable path does not exist: %s", path)
		return
	}
	if err := os.RemoveAll(path); err != nil {
		log.Errorf("error removing %s: %s", path, err)
	}
}
