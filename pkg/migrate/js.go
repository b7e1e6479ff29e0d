//go:build js_eval

package migrate

import (
	"fmt"
	"time"

	"github.com/dop251/goja"
	"github.com/goliatone/go-localhtml/pkg/snapshot"
)

type jsEvaluator struct {
	cfg jsEvaluatorConfig
}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	return &jsEvaluator{cfg: applyJSEvaluatorOptions(opts)}
}

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("js", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, expression, program)
}

func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("js", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &jsCompiledRule{evaluator: e, expression: expression, program: program}, nil
}

func (e *jsEvaluator) loadOrCompile(expression string) (*goja.Program, error) {
	if e.cfg.cache != nil {
		if cached, ok := e.cfg.cache.Get("js:" + expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", fmt.Sprintf("(function(){ return (%s); })()", expression), false)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, "", err)
	}
	if e.cfg.cache != nil {
		e.cfg.cache.Set("js:"+expression, program)
	}
	return program, nil
}

func (e *jsEvaluator) run(ctx RuleContext, expression string, program *goja.Program) (any, error) {
	vm := newRuntime(e.cfg)
	for key, value := range bindings(ctx) {
		if err := vm.Set(key, value); err != nil {
			return nil, wrapEvaluationError("js", expression, ctx.version(), err)
		}
	}
	defer watchdog(vm, e.cfg.timeout)()
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, ctx.version(), err)
	}
	return value.Export(), nil
}

type jsCompiledRule struct {
	evaluator  *jsEvaluator
	expression string
	program    *goja.Program
}

func (r *jsCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluatorError("js", fmt.Errorf("compiled rule missing evaluator"))
	}
	return r.evaluator.run(ctx.withDefaults(), r.expression, r.program)
}

// Script runs a JavaScript migration defining function migrate(data). The
// function may edit data in place or return a replacement object.
type Script struct {
	name    string
	program *goja.Program
	cfg     jsEvaluatorConfig
}

// NewScript compiles source.
func NewScript(name, source string, opts ...JSEvaluatorOption) (*Script, error) {
	program, err := goja.Compile(name, source, false)
	if err != nil {
		return nil, fmt.Errorf("migrate: compile script %s: %w", name, err)
	}
	return &Script{name: name, program: program, cfg: applyJSEvaluatorOptions(opts)}, nil
}

const scriptEntry = `JSON.stringify((function (d) {
	if (typeof migrate !== "function") { throw new Error("script does not define migrate(data)"); }
	var out = migrate(d);
	return out === undefined ? d : out;
})(JSON.parse(__input)))`

// Migrate runs the script against a copy of in.
func (s *Script) Migrate(in snapshot.Snapshot) (snapshot.Snapshot, error) {
	payload, err := snapshot.Encode(in)
	if err != nil {
		return nil, err
	}
	vm := newRuntime(s.cfg)
	defer watchdog(vm, s.cfg.timeout)()
	if _, err := vm.RunProgram(s.program); err != nil {
		return nil, fmt.Errorf("migrate: script %s: %w", s.name, err)
	}
	if err := vm.Set("__input", string(payload)); err != nil {
		return nil, fmt.Errorf("migrate: script %s: %w", s.name, err)
	}
	result, err := vm.RunString(scriptEntry)
	if err != nil {
		return nil, fmt.Errorf("migrate: script %s: %w", s.name, err)
	}
	return snapshot.Decode([]byte(result.String()), s.name)
}

func newRuntime(cfg jsEvaluatorConfig) *goja.Runtime {
	vm := goja.New()
	if cfg.registry != nil {
		registry := cfg.registry
		_ = vm.Set("call", func(name string, arguments ...any) (any, error) {
			return registry.Call(name, arguments...)
		})
		for _, name := range registry.Names() {
			fn := name
			_ = vm.Set(fn, func(arguments ...any) (any, error) {
				return registry.Call(fn, arguments...)
			})
		}
	}
	return vm
}

// watchdog interrupts vm after timeout; the returned func cancels it.
func watchdog(vm *goja.Runtime, timeout time.Duration) func() {
	if timeout <= 0 {
		return func() {}
	}
	timer := time.AfterFunc(timeout, func() {
		vm.Interrupt(fmt.Sprintf("migrate: script exceeded %s", timeout))
	})
	return func() { timer.Stop() }
}

func jsEvaluatorAvailable() bool {
	return true
}
