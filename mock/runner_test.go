package mock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aceeric/imgmgr/impl/runner"
)

func TestUntarMember(t *testing.T) {
	td, err := os.MkdirTemp("", "")
	if err != nil {
		t.FailNow()
	}
	defer os.RemoveAll(td)
	archive, err := MakeTarball(td, "image.tar", ImageFiles("v1.0", "BMC"))
	if err != nil {
		t.FailNow()
	}
	dest := filepath.Join(td, "dest")
	os.Mkdir(dest, 0700)
	r := NewFakeRunner()
	if err := r.Run(context.Background(), "/bin/tar", "-xf", archive, "-C", dest, "MANIFEST"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	entries, err := os.ReadDir(dest)
	if err != nil || len(entries) != 1 || entries[0].Name() != "MANIFEST" {
		t.Fatalf("expected only MANIFEST in dest, got %v", entries)
	}
}

// a member named before -C is refused rather than extracted into dest
func TestUntarMemberBeforeDir(t *testing.T) {
	td, err := os.MkdirTemp("", "")
	if err != nil {
		t.FailNow()
	}
	defer os.RemoveAll(td)
	archive, err := MakeTarball(td, "image.tar", ImageFiles("v1.0", "BMC"))
	if err != nil {
		t.FailNow()
	}
	dest := filepath.Join(td, "dest")
	os.Mkdir(dest, 0700)
	r := NewFakeRunner()
	err = r.Run(context.Background(), "/bin/tar", "-xf", archive, "MANIFEST", "-C", dest)
	var exitErr *runner.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected an exit error, got %v", err)
	}
	if entries, _ := os.ReadDir(dest); len(entries) != 0 {
		t.Fatalf("expected nothing extracted, got %v", entries)
	}
}

func TestUntarMissingMember(t *testing.T) {
	td, err := os.MkdirTemp("", "")
	if err != nil {
		t.FailNow()
	}
	defer os.RemoveAll(td)
	archive, err := MakeTarball(td, "image.tar", map[string]string{"image-kernel": "k"})
	if err != nil {
		t.FailNow()
	}
	r := NewFakeRunner()
	err = r.Run(context.Background(), "/bin/tar", "-xf", archive, "-C", td, "MANIFEST")
	var exitErr *runner.ExitError
	if !errors.As(err, &exitErr) || exitErr.Stderr != "tar: MANIFEST: Not found in archive" {
		t.Fatalf("unexpected error %v", err)
	}
}
