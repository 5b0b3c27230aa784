package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies why an ingest failed
type Kind int

const (
	// KindInvalidArchive - the archive path is missing or not a regular file
	KindInvalidArchive Kind = iota + 1
	// KindManifest - the archive has no usable MANIFEST
	KindManifest
	// KindExtraction - the tar program could not be started or exited non-zero
	KindExtraction
	// KindInternal - a local file system operation failed
	KindInternal
)

// Sentinels for use with errors.Is
var (
	ErrInvalidArchive = errors.New("invalid archive")
	ErrManifest       = errors.New("manifest file failure")
	ErrExtraction     = errors.New("untar failure")
	ErrInternal       = errors.New("internal failure")
)

var kinds = map[Kind]struct {
	name     string
	sentinel error
}{
	KindInvalidArchive: {"invalid_archive", ErrInvalidArchive},
	KindManifest:       {"manifest", ErrManifest},
	KindExtraction:     {"extraction", ErrExtraction},
	KindInternal:       {"internal", ErrInternal},
}

func (k Kind) String() string {
	if kd, ok := kinds[k]; ok {
		return kd.name
	}
	return "unknown"
}

// IngestError is returned by Manager.Ingest for every failure
type IngestError struct {
	Kind Kind
	// Path is the archive being ingested
	Path string
	Err  error
}

func (e *IngestError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", kinds[e.Kind].sentinel, e.Path)
	}
	return fmt.Sprintf("%s: %s: %s", kinds[e.Kind].sentinel, e.Path, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind, so callers can write
// errors.Is(err, pipeline.ErrManifest)
func (e *IngestError) Is(target error) bool {
	kd, ok := kinds[e.Kind]
	return ok && target == kd.sentinel
}

// KindOf returns the kind of the passed error, or zero if it isn't an IngestError
func KindOf(err error) Kind {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return 0
}

func fail(kind Kind, path string, err error) error {
	return &IngestError{Kind: kind, Path: path, Err: err}
}
