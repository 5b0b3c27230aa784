// Package extractor inflates image archives by running the tar program. It can
// pull a single member out of an archive (used to read the MANIFEST before
// committing to a full extraction) or inflate the whole archive. Cleanup of the
// destination on failure is the caller's job.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aceeric/imgmgr/impl/runner"

	log "github.com/sirupsen/logrus"
)

// ErrEmptyArgument is returned without running anything if a required path is
// empty
var ErrEmptyArgument = errors.New("empty argument")

// Error is returned when the tar program could not be started or failed. The
// wrapped error is a *runner.SpawnError or a *runner.ExitError.
type Error struct {
	Op      string
	Archive string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Archive, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Extractor runs the tar program at TarPath using Runner
type Extractor struct {
	Runner  runner.Runner
	TarPath string
}

// New returns an Extractor
func New(r runner.Runner, tarPath string) *Extractor {
	return &Extractor{
		Runner:  r,
		TarPath: tarPath,
	}
}

// ExtractMember extracts the single entry 'member' from 'archive' into 'destDir'.
// tar applies -C only to the names that follow it, so the member goes last.
func (x *Extractor) ExtractMember(ctx context.Context, archive string, member string, destDir string) error {
	if archive == "" || member == "" || destDir == "" {
		log.Errorf("extract member - archive=%q member=%q dest=%q", archive, member, destDir)
		return ErrEmptyArgument
	}
	log.Debugf("extracting %s from %s into %s", member, archive, destDir)
	if err := x.Runner.Run(ctx, x.TarPath, "-xf", archive, "-C", destDir, member); err != nil {
		log.Errorf("failed to extract %s from %s: %s", member, archive, err)
		return &Error{Op: "extract " + member, Archive: archive, Err: err}
	}
	return nil
}

// ExtractAll extracts every entry in 'archive' into 'destDir', which must
// already exist.
func (x *Extractor) ExtractAll(ctx context.Context, archive string, destDir string) error {
	if archive == "" || destDir == "" {
		log.Errorf("extract - archive=%q dest=%q", archive, destDir)
		return ErrEmptyArgument
	}
	log.Infof("untarring %s into %s", archive, destDir)
	if err := x.Runner.Run(ctx, x.TarPath, "-xf", archive, "-C", destDir); err != nil {
		log.Errorf("failed to untar %s: %s", archive, err)
		return &Error{Op: "untar", Archive: archive, Err: err}
	}
	return nil
}

// MemberMissing returns true if the passed error says that tar ran but did not
// find the requested member in the archive. GNU tar and busybox tar both
// report this as "<member>: Not found in archive".
func MemberMissing(err error) bool {
	var exitErr *runner.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	return strings.Contains(strings.ToLower(exitErr.Stderr), "not found in archive")
}
