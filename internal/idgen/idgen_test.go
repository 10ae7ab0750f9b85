package idgen

import (
	"strings"
	"testing"
	"time"
)

func TestExternalIDStable(t *testing.T) {
	submitted := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	a := ExternalID("a@x.org", submitted, "Lincoln High School", "Pat Doe")
	b := ExternalID("a@x.org", submitted, "Lincoln High School", "Pat Doe")
	if a != b {
		t.Errorf("same inputs produced different IDs: %q vs %q", a, b)
	}

	// Sub-second jitter in the recorded timestamp must not change the ID.
	c := ExternalID("a@x.org", submitted.Add(500*time.Millisecond), "Lincoln High School", "Pat Doe")
	if a != c {
		t.Errorf("sub-second timestamp jitter changed ID: %q vs %q", a, c)
	}
}

func TestExternalIDCaseAndWhitespaceFolded(t *testing.T) {
	submitted := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	a := ExternalID("A@X.ORG", submitted, "  Lincoln High School ", "Pat Doe")
	b := ExternalID("a@x.org", submitted, "Lincoln High School", "pat doe")
	if a != b {
		t.Errorf("cosmetic differences changed ID: %q vs %q", a, b)
	}
}

func TestExternalIDDistinguishesSubmissions(t *testing.T) {
	submitted := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	a := ExternalID("a@x.org", submitted, "Lincoln High School", "Pat Doe")
	b := ExternalID("a@x.org", submitted.Add(time.Minute), "Lincoln High School", "Pat Doe")
	if a == b {
		t.Error("different submission times yielded the same ID")
	}

	c := ExternalID("b@x.org", submitted, "Lincoln High School", "Pat Doe")
	if a == c {
		t.Error("different emails yielded the same ID")
	}
}

func TestExternalIDShape(t *testing.T) {
	id := ExternalID("a@x.org", time.Unix(1704103200, 0), "Org", "Name")
	if !strings.HasPrefix(id, "evt-") {
		t.Errorf("ID %q missing evt- prefix", id)
	}
	if got := len(id); got != len("evt-")+12 {
		t.Errorf("ID %q has length %d, want %d", id, got, len("evt-")+12)
	}
	for _, r := range id[len("evt-"):] {
		if !strings.ContainsRune(base36Alphabet, r) {
			t.Errorf("ID %q contains non-base36 rune %q", id, r)
		}
	}
}
