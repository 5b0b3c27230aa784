package importer

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aceeric/imgmgr/impl/globals"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Ingester ingests one archive - satisfied by *pipeline.Manager
type Ingester interface {
	Ingest(ctx context.Context, archive string) (string, error)
}

var (
	waitFor = 100 * time.Millisecond
	mu      sync.Mutex
	timers  = make(map[string]*time.Timer)
	// stopping is set under mu once the importer is shutting down so no new
	// ingest starts after inflight is waited on
	stopping bool
	inflight sync.WaitGroup
)

// Importer creates a file system notifier, watching for archive files to appear
// in 'uploadPath', and hands each one to 'ingester'. Archives already in the
// directory when the watcher starts are ingested too. The function blocks until
// the context is cancelled and any ingest already under way has finished.
//
// fsnotify can emanate many events during creation of a single file so events
// are deduplicated with a timer per file name, based on:
//
// https://github.com/fsnotify/fsnotify/blob/main/cmd/fsnotify/dedup.go
//
// Dedup doesn't catch every duplicate. Since the ingester removes the archive,
// a later event for a file that no longer exists is treated as a duplicate and
// ignored.
func Importer(ctx context.Context, uploadPath string, ingester Ingester) error {
	if fi, err := os.Stat(uploadPath); err != nil {
		if err := os.MkdirAll(uploadPath, 0755); err != nil {
			return err
		}
	} else if !fi.Mode().IsDir() {
		return errors.New("path exists and is not a directory: " + uploadPath)
	}
	mu.Lock()
	stopping = false
	mu.Unlock()
	log.Debug("initializing watcher for " + uploadPath)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	done := make(chan bool, 1)

	go func() {
		for {
			select {
			case err, ok := <-watcher.Errors:
				if !ok {
					// Channel was closed (i.e. Watcher.Close() was called)
					done <- true
					return
				}
				log.Errorf("watcher error: %s", err)
			case event, ok := <-watcher.Events:
				if !ok {
					done <- true
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				// ignore directories - the image manager creates them in the same path
				if fi, err := os.Stat(event.Name); err == nil && fi.Mode().IsDir() {
					continue
				}
				if !IsArchive(event.Name) {
					log.Warn("file has unsupported extension. Ignoring: " + event.Name)
					continue
				}
				schedule(ctx, ingester, event.Name)
			}
		}
	}()
	if err := watcher.Add(uploadPath); err != nil {
		watcher.Close()
		return err
	}
	ingestPending(ctx, ingester, uploadPath)

	go func() {
		<-ctx.Done()
		watcher.Close()
	}()
	<-done
	stopTimers()
	inflight.Wait()
	log.Debug("terminating watcher")
	return nil
}

// IsArchive returns true if the file name has a supported archive extension
func IsArchive(name string) bool {
	for _, ext := range globals.ArchiveExts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// ingestPending schedules archives that were already in the upload directory
func ingestPending(ctx context.Context, ingester Ingester, uploadPath string) {
	entries, err := os.ReadDir(uploadPath)
	if err != nil {
		log.Errorf("unable to read %s: %s", uploadPath, err)
		return
	}
	for _, entry := range entries {
		if entry.Type().IsRegular() && IsArchive(entry.Name()) {
			log.Infof("found pending archive %s", entry.Name())
			schedule(ctx, ingester, filepath.Join(uploadPath, entry.Name()))
		}
	}
}

// schedule (re)starts the dedup timer for 'name'
func schedule(ctx context.Context, ingester Ingester, name string) {
	mu.Lock()
	defer mu.Unlock()
	t, ok := timers[name]
	// No timer yet, so create one.
	if !ok {
		t = time.AfterFunc(math.MaxInt64, func() {
			handleArchive(ctx, ingester, name)
		})
		t.Stop()
		timers[name] = t
	}
	t.Reset(waitFor)
}

// stopTimers cancels pending timers and prevents any more ingests from starting
func stopTimers() {
	mu.Lock()
	defer mu.Unlock()
	stopping = true
	for name, t := range timers {
		t.Stop()
		delete(timers, name)
	}
}

// handleArchive ingests the passed archive. If the file doesn't exist then the
// function assumes it was a dup event and just ignores it.
func handleArchive(ctx context.Context, ingester Ingester, name string) {
	mu.Lock()
	delete(timers, name)
	if stopping || ctx.Err() != nil {
		mu.Unlock()
		return
	}
	inflight.Add(1)
	mu.Unlock()
	defer inflight.Done()

	if _, err := os.Stat(name); err != nil {
		log.Debug("file not found (already processed): " + name)
		return
	}
	if id, err := ingester.Ingest(ctx, name); err != nil {
		log.Errorf("error ingesting archive: %s. Error: %s", name, err)
	} else {
		log.Infof("archive %s ingested as version id %s", name, id)
	}
}
