package identity

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"testing"
)

// the id must match a plain sha512 hex prefix so ids line up with
// directories created by earlier software
func TestComputeIdAlgorithm(t *testing.T) {
	for _, v := range []string{"v1.0", "v2.7.0-dev-1234-g5a6b7c8", "", "ünïcödé"} {
		sum := sha512.Sum512([]byte(v))
		expect := hex.EncodeToString(sum[:])[:8]
		if id := ComputeId(v); id != expect {
			t.Fatalf("version %q: expected %s got %s", v, expect, id)
		}
	}
}

func TestDeterminism(t *testing.T) {
	for i := 0; i < 100; i++ {
		v := fmt.Sprintf("v1.%d", i)
		if ComputeId(v) != ComputeId(v) {
			t.FailNow()
		}
	}
}

func TestDistinct(t *testing.T) {
	ids := make(map[string]string)
	for i := 0; i < 200; i++ {
		v := fmt.Sprintf("v2.%d.%d", i/10, i%10)
		id := ComputeId(v)
		if other, exists := ids[id]; exists {
			t.Fatalf("collision between %q and %q", v, other)
		}
		ids[id] = v
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{ComputeId("v1.0"), true},
		{"deadbeef", true},
		{"DEADBEEF", false},
		{"deadbee", false},
		{"deadbeef0", false},
		{"image123", false},
		{"", false},
	}
	for _, tst := range tests {
		if IsValid(tst.id) != tst.valid {
			t.Fatalf("id %q: expected %t", tst.id, tst.valid)
		}
	}
}
