package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aceeric/imgmgr/impl/extractor"
	"github.com/aceeric/imgmgr/impl/identity"
	"github.com/aceeric/imgmgr/impl/registry"
	"github.com/aceeric/imgmgr/impl/runner"
	"github.com/aceeric/imgmgr/impl/serialize"
	"github.com/aceeric/imgmgr/impl/version"
	"github.com/aceeric/imgmgr/mock"
)

// recordingNotifier counts notifications
type recordingNotifier struct {
	sync.Mutex
	added   []string
	deleted []string
}

func (n *recordingNotifier) Added(v version.Version) error {
	n.Lock()
	defer n.Unlock()
	n.added = append(n.added, v.Id)
	return nil
}

func (n *recordingNotifier) Deleted(id string) error {
	n.Lock()
	defer n.Unlock()
	n.deleted = append(n.deleted, id)
	return nil
}

type fixture struct {
	td       string
	runner   *mock.FakeRunner
	registry *registry.Registry
	notifier *recordingNotifier
	mgr      *Manager
}

// newFixture creates an upload dir and a Manager using a fake tar
func newFixture(t *testing.T, functional registry.FunctionalFunc) fixture {
	td, err := os.MkdirTemp("", "")
	if err != nil {
		t.FailNow()
	}
	f := fixture{
		td:       td,
		runner:   mock.NewFakeRunner(),
		registry: registry.New(functional),
		notifier: &recordingNotifier{},
	}
	f.mgr = NewManager(td, extractor.New(f.runner, "/bin/tar"), f.registry, f.notifier)
	return f
}

// archive drops an archive into the upload dir
func (f fixture) archive(t *testing.T, name string, files map[string]string) string {
	path, err := mock.MakeTarball(f.td, name, files)
	if err != nil {
		t.FailNow()
	}
	return path
}

// entries returns the names in the upload dir
func (f fixture) entries(t *testing.T) []string {
	entries, err := os.ReadDir(f.td)
	if err != nil {
		t.FailNow()
	}
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestIngestSuccess(t *testing.T) {
	f := newFixture(t, nil)
	defer os.RemoveAll(f.td)
	files := mock.ImageFiles("v1.0", "BMC")
	archive := f.archive(t, "image.tar", files)

	id, err := f.mgr.Ingest(context.Background(), archive)
	if err != nil {
		t.Fatalf("ingest failed: %s", err)
	}
	if id != identity.ComputeId("v1.0") {
		t.Fatalf("unexpected id %s", id)
	}
	v, exists := f.registry.Get(id)
	if !exists || f.registry.Len() != 1 {
		t.FailNow()
	}
	if v.Version != "v1.0" || v.Purpose != version.BMC || v.Path != filepath.Join(f.td, id) {
		t.Fatalf("unexpected version %+v", v)
	}
	for name := range files {
		if _, err := os.Stat(filepath.Join(v.Path, name)); err != nil {
			t.Fatalf("%s not extracted", name)
		}
	}
	// archive and workspace are gone - only the version dir remains
	if names := f.entries(t); len(names) != 1 || names[0] != id {
		t.Fatalf("unexpected upload dir contents %v", names)
	}
	if len(f.notifier.added) != 1 || f.notifier.added[0] != id {
		t.FailNow()
	}
}

func TestIngestGzipAndExtendedKeys(t *testing.T) {
	f := newFixture(t, nil)
	defer os.RemoveAll(f.td)
	files := mock.ImageFiles("v2.0", "xyz.openbmc_project.Software.Version.VersionPurpose.Host")
	files["MANIFEST"] += "ExtendedVersion=v2.0-ext\nMachineName=romulus\n"
	archive := f.archive(t, "image.tgz", files)
	id, err := f.mgr.Ingest(context.Background(), archive)
	if err != nil {
		t.Fatalf("ingest failed: %s", err)
	}
	v, _ := f.registry.Get(id)
	if v.Purpose != version.Host || v.ExtendedVersion != "v2.0-ext" || v.MachineName != "romulus" {
		t.Fatalf("unexpected version %+v", v)
	}
}

func TestIngestDuplicate(t *testing.T) {
	f := newFixture(t, nil)
	defer os.RemoveAll(f.td)
	first := f.archive(t, "first.tar", mock.ImageFiles("v1.0", "BMC"))
	second := f.archive(t, "second.tar", mock.ImageFiles("v1.0", "Host"))

	id1, err1 := f.mgr.Ingest(context.Background(), first)
	id2, err2 := f.mgr.Ingest(context.Background(), second)
	if err1 != nil || err2 != nil || id1 != id2 {
		t.Fatalf("unexpected results %s %v %s %v", id1, err1, id2, err2)
	}
	if f.registry.Len() != 1 {
		t.FailNow()
	}
	// the first registration stands
	if v, _ := f.registry.Get(id1); v.Purpose != version.BMC {
		t.FailNow()
	}
	if names := f.entries(t); len(names) != 1 || names[0] != id1 {
		t.Fatalf("unexpected upload dir contents %v", names)
	}
	// manifest + full for the first, manifest only for the second
	if f.runner.CallCount() != 3 {
		t.Fatalf("expected 3 tar invocations, got %d", f.runner.CallCount())
	}
	if len(f.notifier.added) != 1 {
		t.FailNow()
	}
}

func TestMissingManifest(t *testing.T) {
	f := newFixture(t, nil)
	defer os.RemoveAll(f.td)
	archive := f.archive(t, "image.tar", map[string]string{"image-kernel": "kernel"})
	_, err := f.mgr.Ingest(context.Background(), archive)
	if !errors.Is(err, ErrManifest) || KindOf(err) != KindManifest {
		t.Fatalf("expected manifest failure, got %v", err)
	}
	if f.registry.Len() != 0 {
		t.FailNow()
	}
	// no target dir, no workspace, no archive
	if names := f.entries(t); len(names) != 0 {
		t.Fatalf("unexpected upload dir contents %v", names)
	}
}

func TestManifestMissingFields(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{"no version", mock.Manifest("", "BMC")},
		{"no purpose", mock.Manifest("v1.0", "")},
		{"empty version", "version=\npurpose=BMC\n"},
		{"empty purpose", "version=v1.0\npurpose=  \n"},
		{"empty manifest", ""},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			f := newFixture(t, nil)
			defer os.RemoveAll(f.td)
			archive := f.archive(t, "image.tar", map[string]string{"MANIFEST": tst.manifest, "image-kernel": "k"})
			_, err := f.mgr.Ingest(context.Background(), archive)
			if !errors.Is(err, ErrManifest) {
				t.Fatalf("expected manifest failure, got %v", err)
			}
			if f.registry.Len() != 0 || len(f.entries(t)) != 0 {
				t.FailNow()
			}
			// never got as far as full extraction
			if f.runner.CallCount() != 1 {
				t.FailNow()
			}
		})
	}
}

// an unrecognized purpose degrades to Unknown rather than failing
func TestUnknownPurpose(t *testing.T) {
	f := newFixture(t, nil)
	defer os.RemoveAll(f.td)
	archive := f.archive(t, "image.tar", mock.ImageFiles("v1.0", "Frobozz"))
	id, err := f.mgr.Ingest(context.Background(), archive)
	if err != nil {
		t.Fatalf("ingest failed: %s", err)
	}
	if v, _ := f.registry.Get(id); v.Purpose != version.Unknown {
		t.FailNow()
	}
}

func TestExtractionFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*mock.FakeRunner)
	}{
		{"manifest stage exit", func(r *mock.FakeRunner) { r.FailCall(0, 2) }},
		{"manifest stage spawn", func(r *mock.FakeRunner) { r.FailSpawn(0) }},
		{"full stage exit", func(r *mock.FakeRunner) { r.FailCall(1, 2) }},
		{"full stage spawn", func(r *mock.FakeRunner) { r.FailSpawn(1) }},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			f := newFixture(t, nil)
			defer os.RemoveAll(f.td)
			tst.setup(f.runner)
			archive := f.archive(t, "image.tar", mock.ImageFiles("v1.0", "BMC"))
			_, err := f.mgr.Ingest(context.Background(), archive)
			if !errors.Is(err, ErrExtraction) {
				t.Fatalf("expected extraction failure, got %v", err)
			}
			var spawnErr *runner.SpawnError
			var exitErr *runner.ExitError
			if !errors.As(err, &spawnErr) && !errors.As(err, &exitErr) {
				t.Fatalf("runner error not wrapped: %v", err)
			}
			if f.registry.Len() != 0 {
				t.FailNow()
			}
			// the staging dir is removed too
			if names := f.entries(t); len(names) != 0 {
				t.Fatalf("unexpected upload dir contents %v", names)
			}
			if len(f.notifier.added) != 0 {
				t.FailNow()
			}
		})
	}
}

func TestInvalidArchive(t *testing.T) {
	f := newFixture(t, nil)
	defer os.RemoveAll(f.td)
	_, err := f.mgr.Ingest(context.Background(), filepath.Join(f.td, "nope.tar"))
	if !errors.Is(err, ErrInvalidArchive) {
		t.Fatalf("expected invalid archive, got %v", err)
	}
	dir := filepath.Join(f.td, "adir.tar")
	os.Mkdir(dir, 0700)
	_, err = f.mgr.Ingest(context.Background(), dir)
	if !errors.Is(err, ErrInvalidArchive) {
		t.Fatalf("expected invalid archive, got %v", err)
	}
	// a directory that isn't an archive is left alone
	if _, err := os.Stat(dir); err != nil {
		t.FailNow()
	}
	if f.runner.CallCount() != 0 {
		t.FailNow()
	}
}

// the workspace can't be created if the upload dir doesn't exist
func TestInternalFailure(t *testing.T) {
	f := newFixture(t, nil)
	defer os.RemoveAll(f.td)
	archive := f.archive(t, "image.tar", mock.ImageFiles("v1.0", "BMC"))
	mgr := NewManager(filepath.Join(f.td, "does-not-exist"), extractor.New(f.runner, "/bin/tar"), f.registry, nil)
	_, err := mgr.Ingest(context.Background(), archive)
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("expected internal failure, got %v", err)
	}
	if _, err := os.Stat(archive); !os.IsNotExist(err) {
		t.Fatalf("archive was not removed")
	}
}

// crashingExtractor extracts only the MANIFEST when asked for the whole archive,
// then reloads the registry from the upload dir as a restarted process would
type crashingExtractor struct {
	*extractor.Extractor
	uploadPath string
	loaded     int
	idDirs     []string
}

func (x *crashingExtractor) ExtractAll(ctx context.Context, archive string, destDir string) error {
	if err := x.Extractor.ExtractMember(ctx, archive, "MANIFEST", destDir); err != nil {
		return err
	}
	entries, _ := os.ReadDir(x.uploadPath)
	for _, e := range entries {
		if identity.IsValid(e.Name()) {
			x.idDirs = append(x.idDirs, e.Name())
		}
	}
	x.loaded, _ = serialize.FromFilesystem(registry.New(nil), x.uploadPath)
	return errors.New("crashed")
}

// a process that dies part way through extraction leaves nothing that a restart
// would register as installed
func TestCrashDuringExtraction(t *testing.T) {
	f := newFixture(t, nil)
	defer os.RemoveAll(f.td)
	x := &crashingExtractor{Extractor: extractor.New(f.runner, "/bin/tar"), uploadPath: f.td}
	mgr := NewManager(f.td, x, f.registry, nil)
	archive := f.archive(t, "image.tar", mock.ImageFiles("v1.0", "BMC"))
	if _, err := mgr.Ingest(context.Background(), archive); !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected extraction failure, got %v", err)
	}
	if len(x.idDirs) != 0 || x.loaded != 0 {
		t.Fatalf("partial extraction visible as %v, restored %d", x.idDirs, x.loaded)
	}
	if names := f.entries(t); len(names) != 0 {
		t.Fatalf("unexpected upload dir contents %v", names)
	}
}

// a leftover directory from an earlier failed run is replaced
func TestStaleTargetDir(t *testing.T) {
	f := newFixture(t, nil)
	defer os.RemoveAll(f.td)
	id := identity.ComputeId("v1.0")
	stale := filepath.Join(f.td, id)
	os.Mkdir(stale, 0700)
	os.WriteFile(filepath.Join(stale, "junk"), []byte("junk"), 0644)
	archive := f.archive(t, "image.tar", mock.ImageFiles("v1.0", "BMC"))
	if _, err := f.mgr.Ingest(context.Background(), archive); err != nil {
		t.Fatalf("ingest failed: %s", err)
	}
	if _, err := os.Stat(filepath.Join(stale, "junk")); !os.IsNotExist(err) {
		t.Fatalf("stale dir not cleaned")
	}
	if _, err := os.Stat(filepath.Join(stale, "MANIFEST")); err != nil {
		t.FailNow()
	}
}

func TestErase(t *testing.T) {
	f := newFixture(t, func(v version.Version) bool {
		return v.Version == "v1.0"
	})
	defer os.RemoveAll(f.td)
	ctx := context.Background()
	functionalId, err := f.mgr.Ingest(ctx, f.archive(t, "a.tar", mock.ImageFiles("v1.0", "BMC")))
	if err != nil {
		t.FailNow()
	}
	otherId, err := f.mgr.Ingest(ctx, f.archive(t, "b.tar", mock.ImageFiles("v2.0", "BMC")))
	if err != nil {
		t.FailNow()
	}

	if err := f.mgr.Erase(functionalId); !errors.Is(err, registry.ErrFunctional) {
		t.Fatalf("expected functional rejection, got %v", err)
	}
	if _, exists := f.mgr.Get(functionalId); !exists {
		t.FailNow()
	}
	if _, err := os.Stat(filepath.Join(f.td, functionalId, "MANIFEST")); err != nil {
		t.Fatalf("functional version dir was touched")
	}

	if err := f.mgr.Erase(otherId); err != nil {
		t.Fatalf("erase failed: %s", err)
	}
	if _, exists := f.mgr.Get(otherId); exists {
		t.FailNow()
	}
	if _, err := os.Stat(filepath.Join(f.td, otherId)); !os.IsNotExist(err) {
		t.Fatalf("version dir not removed")
	}

	if err := f.mgr.Erase("deadbeef"); err != nil {
		t.FailNow()
	}
	if len(f.notifier.deleted) != 1 || f.notifier.deleted[0] != otherId {
		t.Fatalf("unexpected deletions %v", f.notifier.deleted)
	}
	if len(f.mgr.Versions()) != 1 || !f.mgr.IsFunctional(f.mgr.Versions()[0]) {
		t.FailNow()
	}
}

// after erase the same version can be ingested again
func TestEraseThenReingest(t *testing.T) {
	f := newFixture(t, nil)
	defer os.RemoveAll(f.td)
	ctx := context.Background()
	id, err := f.mgr.Ingest(ctx, f.archive(t, "a.tar", mock.ImageFiles("v1.0", "BMC")))
	if err != nil {
		t.FailNow()
	}
	if f.mgr.Erase(id) != nil {
		t.FailNow()
	}
	id2, err := f.mgr.Ingest(ctx, f.archive(t, "b.tar", mock.ImageFiles("v1.0", "BMC")))
	if err != nil || id2 != id || f.registry.Len() != 1 {
		t.FailNow()
	}
	if _, err := os.Stat(filepath.Join(f.td, id, "image-kernel")); err != nil {
		t.FailNow()
	}
}

// concurrent ingests of the same version: one record and exactly one full extraction
func TestConcurrentSameVersion(t *testing.T) {
	f := newFixture(t, nil)
	defer os.RemoveAll(f.td)
	cnt := 10
	archives := make([]string, cnt)
	for i := 0; i < cnt; i++ {
		archives[i] = f.archive(t, fmt.Sprintf("image%d.tar", i), mock.ImageFiles("v1.0", "BMC"))
	}
	var wg sync.WaitGroup
	errs := make([]error, cnt)
	for i := 0; i < cnt; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.mgr.Ingest(context.Background(), archives[i])
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatalf("ingest failed: %s", err)
		}
	}
	if f.registry.Len() != 1 {
		t.FailNow()
	}
	fullExtractions := 0
	for _, call := range f.runner.Calls {
		if len(call.Args) == 4 {
			fullExtractions++
		}
	}
	if fullExtractions != 1 {
		t.Fatalf("expected one full extraction, got %d", fullExtractions)
	}
	if names := f.entries(t); len(names) != 1 {
		t.Fatalf("unexpected upload dir contents %v", names)
	}
}

func TestConcurrentDifferentVersions(t *testing.T) {
	f := newFixture(t, nil)
	defer os.RemoveAll(f.td)
	cnt := 10
	var wg sync.WaitGroup
	for i := 0; i < cnt; i++ {
		archive := f.archive(t, fmt.Sprintf("image%d.tar", i), mock.ImageFiles(fmt.Sprintf("v1.%d", i), "BMC"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.mgr.Ingest(context.Background(), archive)
		}()
	}
	wg.Wait()
	if f.registry.Len() != cnt || len(f.entries(t)) != cnt {
		t.FailNow()
	}
}

// end to end with the real tar program
func TestIngestRealTar(t *testing.T) {
	tarPath, err := exec.LookPath("tar")
	if err != nil {
		t.Skipf("tar not available: %s", err)
	}
	td, err := os.MkdirTemp("", "")
	if err != nil {
		t.FailNow()
	}
	defer os.RemoveAll(td)
	reg := registry.New(nil)
	mgr := NewManager(td, extractor.New(runner.NewExecRunner(0), tarPath), reg, nil)

	archive, _ := mock.MakeTarball(td, "good.tar", mock.ImageFiles("v1.0", "BMC"))
	id, err := mgr.Ingest(context.Background(), archive)
	if err != nil || id != identity.ComputeId("v1.0") {
		t.Fatalf("ingest failed: %v", err)
	}
	archive, _ = mock.MakeTarball(td, "bad.tar", map[string]string{"image-kernel": "k"})
	if _, err := mgr.Ingest(context.Background(), archive); !errors.Is(err, ErrManifest) {
		t.Fatalf("expected manifest failure, got %v", err)
	}
	if reg.Len() != 1 {
		t.FailNow()
	}
}
