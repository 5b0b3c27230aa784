package version

import (
	"encoding/json"
	"testing"
)

func TestParsePurpose(t *testing.T) {
	tests := []struct {
		text   string
		expect Purpose
		ok     bool
	}{
		{"BMC", BMC, true},
		{"bmc", BMC, true},
		{"Host", Host, true},
		{" System ", System, true},
		{"Other", Other, true},
		{"PSU", PSU, true},
		{"Unknown", Unknown, true},
		{"xyz.openbmc_project.Software.Version.VersionPurpose.BMC", BMC, true},
		{"xyz.openbmc_project.Software.Version.VersionPurpose.Host", Host, true},
		{"xyz.openbmc_project.Software.Version.VersionPurpose.Frobozz", Unknown, false},
		{"xyz.openbmc_project.Software.Version.VersionPurpose.", Unknown, false},
		{"Frobozz", Unknown, false},
		{"", Unknown, false},
	}
	for _, tst := range tests {
		p, err := ParsePurpose(tst.text)
		if p != tst.expect || (err == nil) != tst.ok {
			t.Fatalf("%q: expected %s/%t got %s/%v", tst.text, tst.expect, tst.ok, p, err)
		}
	}
}

func TestPurposeString(t *testing.T) {
	if BMC.String() != "BMC" || Purpose(99).String() != "Unknown" {
		t.FailNow()
	}
	b, err := json.Marshal(struct{ P Purpose }{Host})
	if err != nil || string(b) != `{"P":"Host"}` {
		t.Fatalf("unexpected json: %s", b)
	}
}
