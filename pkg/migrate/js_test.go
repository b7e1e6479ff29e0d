//go:build js_eval

package migrate

import (
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-localhtml/pkg/snapshot"
)

func TestJSEvaluator(t *testing.T) {
	e, err := NewEvaluator(EngineJS, NewCache(0), nil)
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	ctx := RuleContext{Snapshot: snapshot.Snapshot{snapshot.KeyVersion: "1.0", "hp": float64(4)}}
	got, err := e.Evaluate(ctx, `versionBefore(version, "1.1") ? hp * 2 : hp`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != int64(8) && got != float64(8) {
		t.Fatalf("unexpected result %#v", got)
	}
}

func TestScriptMigratesInPlaceOrByReturn(t *testing.T) {
	inPlace, err := NewScript("in-place.js", `function migrate(data) { data.renamed = data.old; delete data.old; }`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	out, err := inPlace.Migrate(snapshot.Snapshot{"old": "value"})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if out["renamed"] != "value" || out["old"] != nil {
		t.Fatalf("unexpected result %v", out)
	}

	replaced, _ := NewScript("replace.js", `function migrate(data) { return { fresh: versionBefore(data.sheetVersion, "2.0") }; }`)
	out, err = replaced.Migrate(snapshot.Snapshot{snapshot.KeyVersion: "1.0"})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if out["fresh"] != true || len(out) != 1 {
		t.Fatalf("unexpected result %v", out)
	}
}

func TestScriptErrors(t *testing.T) {
	if _, err := NewScript("bad.js", "function ("); err == nil {
		t.Fatalf("expected compile error")
	}
	missing, _ := NewScript("missing.js", "var x = 1;")
	if _, err := missing.Migrate(snapshot.Snapshot{}); err == nil || !strings.Contains(err.Error(), "migrate(data)") {
		t.Fatalf("expected missing function error, got %v", err)
	}
	looping, _ := NewScript("loop.js", "function migrate(d) { for (;;) {} }", JSWithTimeout(20*time.Millisecond))
	if _, err := looping.Migrate(snapshot.Snapshot{}); err == nil {
		t.Fatalf("expected timeout")
	}
	nonObject, _ := NewScript("scalar.js", "function migrate(d) { return 3; }")
	if _, err := nonObject.Migrate(snapshot.Snapshot{}); err == nil {
		t.Fatalf("expected non-object result to fail")
	}
}
