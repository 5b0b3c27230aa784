// Package notify tells the outside world when versions come and go. The
// image manager calls a Notifier after a version is added to the registry and
// after one is removed. Implementations log, publish to NATS, or fan out to
// several other notifiers.
package notify

import (
	"errors"

	"github.com/aceeric/imgmgr/impl/version"

	log "github.com/sirupsen/logrus"
)

// Notifier is told about registry changes
type Notifier interface {
	Added(v version.Version) error
	Deleted(id string) error
}

// LogNotifier just logs
type LogNotifier struct{}

func (LogNotifier) Added(v version.Version) error {
	log.Infof("version added: id=%s version=%s purpose=%s path=%s", v.Id, v.Version, v.Purpose, v.Path)
	return nil
}

func (LogNotifier) Deleted(id string) error {
	log.Infof("version deleted: id=%s", id)
	return nil
}

// Multi notifies each notifier in turn. All are called even if some fail and
// the errors are joined.
type Multi []Notifier

func (m Multi) Added(v version.Version) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.Added(v))
	}
	return errors.Join(errs...)
}

func (m Multi) Deleted(id string) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.Deleted(id))
	}
	return errors.Join(errs...)
}
