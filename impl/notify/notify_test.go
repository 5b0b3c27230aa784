package notify

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/aceeric/imgmgr/impl/version"

	"github.com/google/uuid"
)

type msg struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	msgs []msg
	err  error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.msgs = append(p.msgs, msg{subject, data})
	return p.err
}

func TestNatsEvents(t *testing.T) {
	pub := &fakePublisher{}
	n := newWithPublisher(pub, "bmc.versions")
	v := version.New("deadbeef", "v1.0", version.BMC, "/tmp/images/deadbeef")
	if n.Added(v) != nil || n.Deleted("deadbeef") != nil {
		t.FailNow()
	}
	if len(pub.msgs) != 2 {
		t.FailNow()
	}
	if pub.msgs[0].subject != "bmc.versions.added" || pub.msgs[1].subject != "bmc.versions.deleted" {
		t.Fatalf("unexpected subjects %s %s", pub.msgs[0].subject, pub.msgs[1].subject)
	}
	var added Event
	if err := json.Unmarshal(pub.msgs[0].data, &added); err != nil {
		t.FailNow()
	}
	if added.Id != "deadbeef" || added.Version != "v1.0" || added.Purpose != "BMC" || added.Path != v.Path {
		t.Fatalf("unexpected event %+v", added)
	}
	if _, err := uuid.Parse(added.EventId); err != nil || added.Time.IsZero() {
		t.Fatalf("event id/time not populated")
	}
	var deleted Event
	if err := json.Unmarshal(pub.msgs[1].data, &deleted); err != nil || deleted.Version != "" {
		t.FailNow()
	}
}

type countNotifier struct {
	added, deleted int
	err            error
}

func (c *countNotifier) Added(version.Version) error {
	c.added++
	return c.err
}

func (c *countNotifier) Deleted(string) error {
	c.deleted++
	return c.err
}

// every notifier is called even if an earlier one fails
func TestMulti(t *testing.T) {
	failing := &countNotifier{err: errors.New("frobozz")}
	ok := &countNotifier{}
	m := Multi{LogNotifier{}, failing, ok}
	if err := m.Added(version.Version{Id: "deadbeef"}); err == nil {
		t.FailNow()
	}
	if err := m.Deleted("deadbeef"); err == nil {
		t.FailNow()
	}
	if ok.added != 1 || ok.deleted != 1 || failing.added != 1 {
		t.FailNow()
	}
	if (Multi{LogNotifier{}, ok}).Added(version.Version{}) != nil {
		t.FailNow()
	}
}
