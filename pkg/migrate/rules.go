package migrate

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-localhtml/pkg/logging"
	"github.com/goliatone/go-localhtml/pkg/snapshot"
	"github.com/goliatone/go-localhtml/pkg/version"
	"gopkg.in/yaml.v3"
)

// Engine names accepted by NewEvaluator.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// NewEvaluator returns the evaluator registered under engine, sharing cache
// and registry. An empty engine selects expr.
func NewEvaluator(engine string, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineExpr:
		opts := []ExprEvaluatorOption{ExprWithProgramCache(cache)}
		if registry != nil {
			opts = append(opts, ExprWithFunctionRegistry(registry))
		}
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		opts := []CELEvaluatorOption{CELWithProgramCache(cache)}
		if registry != nil {
			opts = append(opts, CELWithFunctionRegistry(registry))
		}
		return NewCELEvaluator(opts...), nil
	case EngineJS:
		if !jsEvaluatorAvailable() {
			return nil, ErrJSUnavailable
		}
		opts := []JSEvaluatorOption{JSWithProgramCache(cache)}
		if registry != nil {
			opts = append(opts, JSWithFunctionRegistry(registry))
		}
		return NewJSEvaluator(opts...), nil
	default:
		return nil, fmt.Errorf("migrate: unknown evaluator %q", engine)
	}
}

// Rule is one declarative migration. It applies to snapshots older than
// Before and, when When is set, for which When evaluates to true. Rename
// runs first and moves every key at once, so {a: b, b: c} moves a to b and
// the old b to c. Then Set (each value is an expression evaluated against the
// renamed snapshot), then Delete.
type Rule struct {
	Name   string            `yaml:"name" json:"name"`
	Before string            `yaml:"before" json:"before"`
	When   string            `yaml:"when,omitempty" json:"when,omitempty"`
	Rename map[string]string `yaml:"rename,omitempty" json:"rename,omitempty"`
	Set    map[string]string `yaml:"set,omitempty" json:"set,omitempty"`
	Delete []string          `yaml:"delete,omitempty" json:"delete,omitempty"`
}

// RuleFile is the on-disk rules document.
type RuleFile struct {
	Engine string `yaml:"engine,omitempty"`
	Rules  []Rule `yaml:"rules"`
}

// ParseRules reads a YAML rules document.
func ParseRules(r io.Reader) (RuleFile, error) {
	var file RuleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return RuleFile{}, fmt.Errorf("migrate: parse rules: %w", err)
	}
	for i, rule := range file.Rules {
		if strings.TrimSpace(rule.Before) == "" {
			return RuleFile{}, fmt.Errorf("migrate: rule %d (%s): before is required", i, rule.Name)
		}
	}
	return file, nil
}

// RulesOption configures Rules.
type RulesOption func(*Rules)

// RulesWithEvaluator replaces the default expr evaluator.
func RulesWithEvaluator(e Evaluator) RulesOption {
	return func(r *Rules) {
		if e != nil {
			r.evaluator = e
		}
	}
}

// RulesWithLogger attaches a logger.
func RulesWithLogger(logger logging.Logger) RulesOption {
	return func(r *Rules) {
		r.log.Logger = logger
	}
}

// RulesWithClock fixes the now binding.
func RulesWithClock(now func() time.Time) RulesOption {
	return func(r *Rules) {
		r.now = now
	}
}

type compiledRule struct {
	rule    Rule
	when    CompiledRule
	set     map[string]CompiledRule
	keys    []string
	renames []string
}

// Rules applies a list of rules in order. Every expression is compiled when
// the Rules value is built.
type Rules struct {
	evaluator Evaluator
	log       logging.Component
	now       func() time.Time
	rules     []compiledRule
}

// NewRules compiles rules.
func NewRules(rules []Rule, opts ...RulesOption) (*Rules, error) {
	r := &Rules{log: logging.Component{Name: "migrate.rules"}, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.evaluator == nil {
		r.evaluator = NewExprEvaluator()
	}
	for _, rule := range rules {
		compiled := compiledRule{rule: rule, set: map[string]CompiledRule{}}
		if rule.When != "" {
			when, err := r.evaluator.Compile(rule.When)
			if err != nil {
				return nil, fmt.Errorf("migrate: rule %s: %w", rule.Name, err)
			}
			compiled.when = when
		}
		for key, expression := range rule.Set {
			program, err := r.evaluator.Compile(expression)
			if err != nil {
				return nil, fmt.Errorf("migrate: rule %s set %s: %w", rule.Name, key, err)
			}
			compiled.set[key] = program
			compiled.keys = append(compiled.keys, key)
		}
		sort.Strings(compiled.keys)
		for from := range rule.Rename {
			compiled.renames = append(compiled.renames, from)
		}
		sort.Strings(compiled.renames)
		r.rules = append(r.rules, compiled)
	}
	return r, nil
}

// LoadRules parses a rules document and compiles it with the evaluator the
// document names.
func LoadRules(src io.Reader, cache ProgramCache, opts ...RulesOption) (*Rules, error) {
	file, err := ParseRules(src)
	if err != nil {
		return nil, err
	}
	evaluator, err := NewEvaluator(file.Engine, cache, nil)
	if err != nil {
		return nil, err
	}
	return NewRules(file.Rules, append([]RulesOption{RulesWithEvaluator(evaluator)}, opts...)...)
}

// Len returns the number of rules.
func (r *Rules) Len() int {
	return len(r.rules)
}

// Migrate applies every matching rule to a copy of in.
func (r *Rules) Migrate(in snapshot.Snapshot) (snapshot.Snapshot, error) {
	current := snapshot.Clone(in)
	if current == nil {
		current = snapshot.Snapshot{}
	}
	stamped := version.Of(current)
	for _, compiled := range r.rules {
		rule := compiled.rule
		if !version.IsOlder(stamped, rule.Before) {
			continue
		}
		ctx := r.context(current)
		if compiled.when != nil {
			ok, err := compiled.when.Evaluate(ctx)
			if err != nil {
				return nil, fmt.Errorf("migrate: rule %s when: %w", rule.Name, err)
			}
			if matched, isBool := ok.(bool); !isBool || !matched {
				continue
			}
		}

		r.rename(current, compiled)

		ctx = r.context(current)
		values := make(map[string]any, len(compiled.keys))
		for _, key := range compiled.keys {
			out, err := compiled.set[key].Evaluate(ctx)
			if err != nil {
				return nil, fmt.Errorf("migrate: rule %s set %s: %w", rule.Name, key, err)
			}
			normalized, err := snapshot.Normalize(out)
			if err != nil {
				return nil, fmt.Errorf("migrate: rule %s set %s: %w", rule.Name, key, err)
			}
			values[key] = normalized
		}
		for key, value := range values {
			current[key] = value
		}

		for _, key := range rule.Delete {
			if key != snapshot.KeyVersion {
				delete(current, key)
			}
		}
		r.log.Debug("applied rule", map[string]any{"rule": rule.Name, "before": rule.Before})
	}
	return current, nil
}

func (r *Rules) rename(current snapshot.Snapshot, compiled compiledRule) {
	moved := make(map[string]any, len(compiled.renames))
	for _, from := range compiled.renames {
		to := compiled.rule.Rename[from]
		if value, present := current[from]; present && !snapshot.Reserved(to) {
			moved[from] = value
		}
	}
	for from := range moved {
		delete(current, from)
	}
	for _, from := range compiled.renames {
		if value, ok := moved[from]; ok {
			current[compiled.rule.Rename[from]] = value
		}
	}
}

func (r *Rules) context(s snapshot.Snapshot) RuleContext {
	now := r.now()
	return RuleContext{Snapshot: s, Now: &now}
}
