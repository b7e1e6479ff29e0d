package migrate

import (
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-localhtml/pkg/snapshot"
)

func loadFixtureRules(t *testing.T) *Rules {
	t.Helper()
	f, err := os.Open("../../testdata/migrate_rules.yaml")
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer f.Close()
	rules, err := LoadRules(f, NewCache(time.Minute))
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	return rules
}

func TestRulesFixture(t *testing.T) {
	rules := loadFixtureRules(t)
	if rules.Len() != 4 {
		t.Fatalf("expected 4 rules, got %d", rules.Len())
	}
	in := snapshot.Snapshot{
		snapshot.KeyVersion: "1.0",
		"notes":              "old notes",
		"player":             "Ada",
		"theme":              "dark",
	}
	out, err := rules.Migrate(in)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	want := snapshot.Snapshot{
		snapshot.KeyVersion: "1.0",
		"notes":              map[string]any{"ops": []any{map[string]any{"insert": "old notes\n"}}},
		"characterName":      "Ada",
		"darkMode":           true,
	}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("unexpected migration result:\nwant: %#v\n got: %#v", want, out)
	}
	if in["player"] != "Ada" {
		t.Fatalf("rules modified their input")
	}
}

func TestRulesSkipCurrentSnapshots(t *testing.T) {
	rules := loadFixtureRules(t)
	in := snapshot.Snapshot{snapshot.KeyVersion: "1.2.0", "theme": "dark", "player": "Ada"}
	out, err := rules.Migrate(in)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("current snapshot should pass through unchanged, got %v", out)
	}
}

func TestRulesWhenMustBeTrue(t *testing.T) {
	rules := loadFixtureRules(t)
	delta := map[string]any{"ops": []any{map[string]any{"insert": "already rich\n"}}}
	out, err := rules.Migrate(snapshot.Snapshot{"notes": delta})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !reflect.DeepEqual(out["notes"], delta) {
		t.Fatalf("rich notes should be left alone, got %v", out["notes"])
	}
}

func TestParseRulesRequiresBefore(t *testing.T) {
	_, err := ParseRules(strings.NewReader("rules:\n  - name: nope\n    set:\n      a: '1'\n"))
	if err == nil || !strings.Contains(err.Error(), "before is required") {
		t.Fatalf("expected missing before error, got %v", err)
	}
	if _, err := ParseRules(strings.NewReader("rules:\n  - name: x\n    befor: '1.0'\n")); err == nil {
		t.Fatalf("unknown fields should be rejected")
	}
	file, err := ParseRules(strings.NewReader(""))
	if err != nil || len(file.Rules) != 0 {
		t.Fatalf("empty document should parse: %v", err)
	}
}

func TestRulesCompileErrorsSurfaceEarly(t *testing.T) {
	_, err := NewRules([]Rule{{Name: "broken", Before: "1.0", Set: map[string]string{"x": "1 +"}}})
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Engine != "expr" {
		t.Fatalf("expected expr evaluation error, got %v", err)
	}
}

func TestRulesEvaluationErrorsCarryVersion(t *testing.T) {
	rules, err := NewRules([]Rule{{Name: "calls", Before: "2.0", Set: map[string]string{"x": `versionBefore("1")`}}})
	if err != nil {
		t.Fatalf("new rules: %v", err)
	}
	_, err = rules.Migrate(snapshot.Snapshot{snapshot.KeyVersion: "1.5"})
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Version != "1.5" {
		t.Fatalf("expected evaluation error at version 1.5, got %v", err)
	}
}

func TestCELRules(t *testing.T) {
	evaluator, err := NewEvaluator(EngineCEL, NewCache(0), nil)
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rules, err := NewRules([]Rule{{
		Name:   "double",
		Before: "3.0",
		When:   `versionBefore(version, "2.5")`,
		Set: map[string]string{
			"total":    `count * 2.0`,
			"migrated": `now.getFullYear() == 2026`,
			"dashed":   `data["odd-key"] + "!"`,
		},
	}}, RulesWithEvaluator(evaluator), RulesWithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("new rules: %v", err)
	}
	out, err := rules.Migrate(snapshot.Snapshot{snapshot.KeyVersion: "2.0", "count": float64(21), "odd-key": "hi"})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if out["total"] != float64(42) || out["migrated"] != true || out["dashed"] != "hi!" {
		t.Fatalf("unexpected cel result %v", out)
	}

	skipped, err := rules.Migrate(snapshot.Snapshot{snapshot.KeyVersion: "2.7", "count": float64(1)})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, ok := skipped["total"]; ok {
		t.Fatalf("when clause should have skipped the rule")
	}
}

func TestCELCompileRejectsSyntaxErrors(t *testing.T) {
	if _, err := NewCELEvaluator().Compile("count +"); err == nil {
		t.Fatalf("expected syntax error")
	}
}

func TestNewEvaluatorRejectsUnknownEngine(t *testing.T) {
	if _, err := NewEvaluator("lua", nil, nil); err == nil {
		t.Fatalf("expected unknown engine error")
	}
}

func TestExprEvaluatorBindings(t *testing.T) {
	e := NewExprEvaluator(ExprWithProgramCache(NewCache(0)))
	ctx := RuleContext{Snapshot: snapshot.Snapshot{snapshot.KeyVersion: "1.4", "hp": float64(10)}, Metadata: map[string]any{"source": "import"}}
	got, err := e.Evaluate(ctx, `version + ":" + string(data.hp + hp) + ":" + metadata.source`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != "1.4:20:import" {
		t.Fatalf("unexpected result %v", got)
	}
	if got, _ := e.Evaluate(RuleContext{}, "version"); got != "0.0.0" {
		t.Fatalf("missing stamp should bind the zero version, got %v", got)
	}
	if _, err := e.Evaluate(ctx, ""); err == nil {
		t.Fatalf("empty expression should fail")
	}
}

func TestChainedRenamesMoveTogether(t *testing.T) {
	rules, err := NewRules([]Rule{{
		Name:   "shift",
		Before: "2.0",
		Rename: map[string]string{"a": "b", "b": "c", "c": "d", "x": snapshot.KeyVersion},
	}})
	if err != nil {
		t.Fatalf("new rules: %v", err)
	}
	in := snapshot.Snapshot{"a": "A", "b": "B", "c": "C", "x": "X"}
	for i := 0; i < 20; i++ {
		out, err := rules.Migrate(in)
		if err != nil {
			t.Fatalf("migrate: %v", err)
		}
		want := snapshot.Snapshot{"b": "A", "c": "B", "d": "C", "x": "X"}
		if !reflect.DeepEqual(out, want) {
			t.Fatalf("run %d: want %v, got %v", i, want, out)
		}
	}
}
