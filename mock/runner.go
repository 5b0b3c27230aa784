package mock

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aceeric/imgmgr/impl/runner"
)

// Call records one invocation of the FakeRunner
type Call struct {
	Path string
	Args []string
}

// FakeRunner implements runner.Runner. Each invocation is recorded. If the
// invocation index (zero-relative) is in 'Fail', that error is returned without
// doing anything else. Otherwise if 'Emulate' is true the args are interpreted
// as a tar extraction ('-xf archive [member] -C dir') and performed in-process.
// Otherwise the call succeeds without side effects.
type FakeRunner struct {
	sync.Mutex
	Emulate bool
	Fail    map[int]error
	Calls   []Call
}

// NewFakeRunner returns a FakeRunner that emulates tar
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Emulate: true,
		Fail:    make(map[int]error),
	}
}

// FailCall causes invocation 'idx' to return a non-zero exit
func (r *FakeRunner) FailCall(idx int, code int) {
	r.Lock()
	defer r.Unlock()
	r.Fail[idx] = &runner.ExitError{Path: "tar", Code: code, Stderr: "simulated failure"}
}

// FailSpawn causes invocation 'idx' to return a spawn error
func (r *FakeRunner) FailSpawn(idx int) {
	r.Lock()
	defer r.Unlock()
	r.Fail[idx] = &runner.SpawnError{Path: "tar", Err: os.ErrNotExist}
}

// CallCount returns how many times the runner was invoked
func (r *FakeRunner) CallCount() int {
	r.Lock()
	defer r.Unlock()
	return len(r.Calls)
}

// Run implements the runner.Runner interface
func (r *FakeRunner) Run(ctx context.Context, path string, args ...string) error {
	r.Lock()
	idx := len(r.Calls)
	r.Calls = append(r.Calls, Call{Path: path, Args: append([]string{}, args...)})
	failErr, fail := r.Fail[idx]
	emulate := r.Emulate
	r.Unlock()
	if fail {
		return failErr
	}
	if !emulate {
		return nil
	}
	return untar(path, args)
}

// untar emulates 'tar -xf <archive> -C <dir> [member]'. Like GNU tar, -C only
// applies to the names after it: a member named before -C would be written to
// the working directory, so the emulation refuses it. A missing member is
// reported the way GNU tar reports it.
func untar(path string, args []string) error {
	var archive, member, dir string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-xf":
			i++
			if i < len(args) {
				archive = args[i]
			}
		case "-C":
			i++
			if i < len(args) {
				dir = args[i]
			}
		default:
			if dir == "" {
				return &runner.ExitError{Path: path, Code: 2, Stderr: fmt.Sprintf("tar: %s: member precedes -C", args[i])}
			}
			member = args[i]
		}
	}
	if archive == "" || dir == "" {
		return &runner.ExitError{Path: path, Code: 2, Stderr: "tar: invalid arguments"}
	}
	found, err := extract(archive, member, dir)
	if err != nil {
		return &runner.ExitError{Path: path, Code: 2, Stderr: fmt.Sprintf("tar: %s", err)}
	}
	if member != "" && !found {
		return &runner.ExitError{Path: path, Code: 2, Stderr: fmt.Sprintf("tar: %s: Not found in archive", member)}
	}
	return nil
}

// extract inflates the archive at 'archive' into 'destPath'. If 'member' is
// non-empty then only that entry is extracted and the bool return indicates
// whether it was found.
func extract(archive string, member string, destPath string) (bool, error) {
	f, err := os.Open(archive)
	if err != nil {
		return false, err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var tarReader *tar.Reader
	if strings.HasSuffix(archive, ".tgz") || strings.HasSuffix(archive, ".tar.gz") {
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return false, err
		}
		defer gzr.Close()
		tarReader = tar.NewReader(gzr)
	} else {
		tarReader = tar.NewReader(r)
	}
	found := false
	for {
		header, err := tarReader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return found, err
		}
		if member != "" && header.Name != member {
			continue
		}
		target := filepath.Join(destPath, filepath.Clean("/"+header.Name))
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return found, err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return found, err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
			if err != nil {
				return found, err
			}
			_, err = io.Copy(out, tarReader)
			out.Close()
			if err != nil {
				return found, err
			}
		}
		if member != "" {
			found = true
			break
		}
	}
	return found, nil
}
