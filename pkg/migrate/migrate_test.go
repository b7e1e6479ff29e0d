package migrate

import (
	"errors"
	"reflect"
	"testing"

	"github.com/goliatone/go-localhtml/pkg/snapshot"
)

func recordStep(name, target string, calls *[]string) Step {
	return Step{Name: name, Target: target, Migrate: func(s snapshot.Snapshot) (snapshot.Snapshot, error) {
		*calls = append(*calls, name)
		s[name] = true
		return s, nil
	}}
}

func TestChainAppliesOnlyNewerSteps(t *testing.T) {
	var calls []string
	chain, err := NewChain([]Step{
		recordStep("a", "1.0.0", &calls),
		recordStep("b", "1.2.0", &calls),
		recordStep("c", "2.0", &calls),
	})
	if err != nil {
		t.Fatalf("new chain: %v", err)
	}
	in := snapshot.Snapshot{snapshot.KeyVersion: "1.1"}
	out, err := chain.Migrate(in)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !reflect.DeepEqual(calls, []string{"b", "c"}) {
		t.Fatalf("expected steps b and c, got %v", calls)
	}
	if out[snapshot.KeyVersion] != "1.1" {
		t.Fatalf("chain must not restamp the version, got %v", out[snapshot.KeyVersion])
	}
	if _, touched := in["b"]; touched {
		t.Fatalf("chain modified its input")
	}
}

func TestChainTreatsMissingStampAsZero(t *testing.T) {
	var calls []string
	chain, _ := NewChain([]Step{recordStep("first", "0.0.1", &calls)})
	if _, err := chain.Migrator()(snapshot.Snapshot{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("unstamped snapshot should be migrated")
	}
}

func TestChainStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	var calls []string
	chain, _ := NewChain([]Step{
		{Name: "fail", Target: "1.0", Migrate: func(snapshot.Snapshot) (snapshot.Snapshot, error) { return nil, boom }},
		recordStep("after", "2.0", &calls),
	})
	if _, err := chain.Migrate(snapshot.Snapshot{}); !errors.Is(err, boom) {
		t.Fatalf("expected step error, got %v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("steps after a failure must not run")
	}
}

func TestChainRejectsIncompleteSteps(t *testing.T) {
	if _, err := NewChain([]Step{{Name: "x", Target: "1.0"}}); err == nil {
		t.Fatalf("expected error for nil migrator")
	}
	chain, _ := NewChain(nil)
	if err := chain.Add(Step{Name: "y", Migrate: func(s snapshot.Snapshot) (snapshot.Snapshot, error) { return s, nil }}); err == nil {
		t.Fatalf("expected error for missing target")
	}
}

func TestFunctionRegistry(t *testing.T) {
	r := DefaultFunctions()
	got, err := r.Call("VERSIONBEFORE", "1.2", "1.2.1")
	if err != nil || got != true {
		t.Fatalf("versionBefore: %v %v", got, err)
	}
	if got, _ := r.Call("versionBefore", nil, "0.0.1"); got != true {
		t.Fatalf("nil version should count as zero")
	}
	if got, _ := r.Call("compareVersions", "1.2.0", "1.2"); got != int64(1) {
		t.Fatalf("compareVersions: %v", got)
	}
	if _, err := r.Call("versionBefore", "1"); err == nil {
		t.Fatalf("expected arity error")
	}
	if err := r.Register("versionbefore", func(...any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("registration should be case insensitive")
	}
	names := r.Names()
	if !reflect.DeepEqual(names, []string{"compareVersions", "delta", "plainText", "versionBefore"}) {
		t.Fatalf("unexpected names %v", names)
	}
	clone := r.Clone()
	_ = clone.Register("extra", func(...any) (any, error) { return 1, nil })
	if len(r.Names()) != 4 {
		t.Fatalf("clone shares storage with original")
	}
}

func TestCacheStoresPrograms(t *testing.T) {
	cache := NewCache(0)
	cache.Set("k", 42)
	if v, ok := cache.Get("k"); !ok || v != 42 {
		t.Fatalf("cache miss: %v %v", v, ok)
	}
	if _, ok := cache.Get("missing"); ok {
		t.Fatalf("unexpected hit")
	}
}
