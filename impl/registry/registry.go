// Package registry is the in-memory set of installed image versions, keyed by
// version id. It is the single source of truth for what is installed. Every id
// in the registry has a fully extracted directory on the file system.
//
// Ingestion and deletion of the same id are serialized with claims: a goroutine
// that holds the claim on an id is the only one that may create or remove that
// id's directory. Different ids never wait on each other.
package registry

import (
	"errors"
	"os"
	"sort"
	"sync"

	"github.com/aceeric/imgmgr/impl/metrics"
	"github.com/aceeric/imgmgr/impl/version"

	log "github.com/sirupsen/logrus"
)

// ErrFunctional is returned by Erase when asked to remove the version that is
// running on the device
var ErrFunctional = errors.New("version is functional and cannot be removed")

// FunctionalFunc reports whether the passed version is the one currently
// running on the device
type FunctionalFunc func(version.Version) bool

// Never is a FunctionalFunc under which no version is functional
func Never(version.Version) bool {
	return false
}

// Registry holds installed versions. Use New to create one.
type Registry struct {
	mu           sync.Mutex
	versions     map[string]version.Version
	claims       map[string]chan struct{}
	isFunctional FunctionalFunc
}

// New returns an empty registry. The passed function decides which version is
// functional. It is called on demand and may read the file system. If nil, no
// version is ever functional.
func New(isFunctional FunctionalFunc) *Registry {
	if isFunctional == nil {
		isFunctional = Never
	}
	return &Registry{
		versions:     make(map[string]version.Version),
		claims:       make(map[string]chan struct{}),
		isFunctional: isFunctional,
	}
}

// Claim blocks until no other goroutine holds the claim on 'id', then takes it.
// The returned function releases the claim and may be called more than once.
func (r *Registry) Claim(id string) func() {
	for {
		r.mu.Lock()
		ch, claimed := r.claims[id]
		if !claimed {
			ch = make(chan struct{})
			r.claims[id] = ch
			r.mu.Unlock()
			var once sync.Once
			return func() {
				once.Do(func() {
					r.mu.Lock()
					delete(r.claims, id)
					r.mu.Unlock()
					close(ch)
				})
			}
		}
		r.mu.Unlock()
		log.Debugf("waiting for claim on version %s", id)
		<-ch
	}
}

// Contains returns true if the registry has a version with the passed id
func (r *Registry) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.versions[id]
	return exists
}

// Get returns the version with the passed id, if present
func (r *Registry) Get(id string) (version.Version, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, exists := r.versions[id]
	return v, exists
}

// Insert adds the passed version unless a version with the same id is already
// present, in which case the registry is unchanged and false is returned. The
// caller should hold the claim on the id.
func (r *Registry) Insert(v version.Version) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.versions[v.Id]; exists {
		return false
	}
	r.versions[v.Id] = v
	metrics.DeltaVersionCount(1)
	return true
}

// List returns a snapshot of all versions ordered by id
func (r *Registry) List() []version.Version {
	r.mu.Lock()
	versions := make([]version.Version, 0, len(r.versions))
	for _, v := range r.versions {
		versions = append(versions, v)
	}
	r.mu.Unlock()
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Id < versions[j].Id
	})
	return versions
}

// Len returns the number of versions in the registry
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.versions)
}

// IsFunctional returns true if the passed version is running on the device
func (r *Registry) IsFunctional(v version.Version) bool {
	return r.isFunctional(v)
}

// Erase removes the version with the passed id and its directory. If the id is
// not in the registry this is a no-op. If the version is functional nothing
// is changed and ErrFunctional is returned. Otherwise the directory is removed
// (best-effort - failures are logged) and the entry is removed regardless. The
// bool return is true if an entry was removed.
func (r *Registry) Erase(id string) (bool, error) {
	release := r.Claim(id)
	defer release()

	v, exists := r.Get(id)
	if !exists {
		log.Debugf("erase: version %s not found", id)
		return false, nil
	}
	if r.isFunctional(v) {
		log.Errorf("version %s (%s) is currently running on the device - unable to remove", id, v.Version)
		metrics.IncRejectedDeletes()
		return false, ErrFunctional
	}
	if _, err := os.Stat(v.Path); err == nil {
		if err := os.RemoveAll(v.Path); err != nil {
			log.Errorf("error removing version directory %s: %s", v.Path, err)
		}
	} else {
		log.Errorf("version %s directory %s does not exist", id, v.Path)
	}
	r.mu.Lock()
	delete(r.versions, id)
	r.mu.Unlock()
	metrics.DeltaVersionCount(-1)
	metrics.IncDeletes()
	log.Infof("removed version %s (%s)", id, v.Version)
	return true, nil
}
