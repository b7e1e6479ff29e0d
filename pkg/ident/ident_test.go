package ident

import (
	"math/rand/v2"
	"strings"
	"testing"
)

func TestRandomUsesPrefixAndLength(t *testing.T) {
	g := NewPageGenerator()
	id := g.Next()
	if !strings.HasPrefix(id, PagePrefix) {
		t.Fatalf("expected prefix %q, got %q", PagePrefix, id)
	}
	if len(id) != len(PagePrefix)+DefaultLength {
		t.Fatalf("unexpected length for %q", id)
	}
	for _, r := range strings.TrimPrefix(id, PagePrefix) {
		if !strings.ContainsRune(alphabet, r) {
			t.Fatalf("unexpected rune %q in %q", r, id)
		}
	}
}

func TestRandomNeverRepeats(t *testing.T) {
	// A one-character suffix space forces collisions quickly.
	g := NewRandom("w_", WithLength(1), WithSource(rand.NewPCG(1, 2)))
	seen := map[string]struct{}{}
	for i := 0; i < 200; i++ {
		id := g.Next()
		if _, dup := seen[id]; dup {
			t.Fatalf("identifier %q issued twice", id)
		}
		seen[id] = struct{}{}
	}
}

func TestReserveSkipsKnownIdentifiers(t *testing.T) {
	g := NewRandom("p_", WithLength(1), WithSource(rand.NewPCG(7, 7)))
	var reserved []string
	for _, r := range alphabet[:35] {
		reserved = append(reserved, "p_"+string(r))
	}
	Reserve(g, reserved...)

	id := g.Next()
	if id != "p_"+string(alphabet[35]) && len(id) == len("p_")+1 {
		t.Fatalf("expected the only free identifier or a widened one, got %q", id)
	}
}

func TestUUIDGenerator(t *testing.T) {
	g := UUID(WidgetPrefix)
	a, b := g.Next(), g.Next()
	if a == b {
		t.Fatalf("expected distinct identifiers")
	}
	if !strings.HasPrefix(a, WidgetPrefix) || len(a) != len(WidgetPrefix)+36 {
		t.Fatalf("unexpected uuid identifier %q", a)
	}
	Reserve(g, "ignored")
}
