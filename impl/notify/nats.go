package notify

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/aceeric/imgmgr/impl/version"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const (
	EventAdded   = "added"
	EventDeleted = "deleted"

	// DefaultSubjectPrefix is used if no prefix is configured
	DefaultSubjectPrefix = "imgmgr.versions"
)

var errEmptySubject = errors.New("empty subject prefix")

// Event is the JSON body published for each registry change. Only Event, Id,
// EventId, and Time are populated for deletions.
type Event struct {
	Event   string    `json:"event"`
	EventId string    `json:"eventId"`
	Time    time.Time `json:"time"`
	Id      string    `json:"id"`
	Version string    `json:"version,omitempty"`
	Purpose string    `json:"purpose,omitempty"`
	Path    string    `json:"path,omitempty"`
}

// publisher is satisfied by *nats.Conn
type publisher interface {
	Publish(subject string, data []byte) error
}

// NatsNotifier publishes an Event to '<prefix>.added' or '<prefix>.deleted' for
// each registry change
type NatsNotifier struct {
	nc     *nats.Conn
	pub    publisher
	prefix string
}

// NewNatsNotifier connects to the NATS server at 'url'. The connection retries
// forever in the background if it drops.
func NewNatsNotifier(url string, prefix string) (*NatsNotifier, error) {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	opts := []nats.Option{
		nats.Name("imgmgr"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warnf("disconnected from NATS: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("reconnected to NATS at %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Infof("NATS connection closed")
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return &NatsNotifier{nc: nc, pub: nc, prefix: prefix}, nil
}

// newWithPublisher supports unit testing
func newWithPublisher(pub publisher, prefix string) *NatsNotifier {
	return &NatsNotifier{pub: pub, prefix: prefix}
}

func (n *NatsNotifier) Added(v version.Version) error {
	return n.publish(Event{
		Event:   EventAdded,
		Id:      v.Id,
		Version: v.Version,
		Purpose: v.Purpose.String(),
		Path:    v.Path,
	})
}

func (n *NatsNotifier) Deleted(id string) error {
	return n.publish(Event{
		Event: EventDeleted,
		Id:    id,
	})
}

func (n *NatsNotifier) publish(evt Event) error {
	if n.prefix == "" {
		return errEmptySubject
	}
	evt.EventId = uuid.New().String()
	evt.Time = time.Now().UTC()
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	subject := n.prefix + "." + evt.Event
	log.Debugf("publishing %s for version %s", subject, evt.Id)
	return n.pub.Publish(subject, data)
}

// Close drains and closes the NATS connection
func (n *NatsNotifier) Close() {
	if n.nc != nil {
		if err := n.nc.Drain(); err != nil {
			n.nc.Close()
		}
	}
}
