package migrate

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"google.golang.org/protobuf/types/known/structpb"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

var celIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var celReserved = map[string]bool{
	"data": true, "version": true, "now": true, "metadata": true, "call": true,
	"in": true, "as": true, "break": true, "const": true, "continue": true,
	"else": true, "for": true, "function": true, "if": true, "import": true,
	"let": true, "loop": true, "package": true, "namespace": true, "return": true,
	"var": true, "void": true, "while": true, "true": true, "false": true, "null": true,
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Snapshot keys that
// are valid CEL identifiers are declared as dyn variables; other keys are
// reachable through data["key"]. Registry functions take one or two
// arguments.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{registry: DefaultFunctions()}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression, variableKeys(ctx.Snapshot))
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.version(), err)
	}
	return e.run(ctx, expression, program)
}

func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	// Variables depend on the snapshot, so only syntax is checked here.
	env, err := e.buildEnv(nil)
	if err != nil {
		return nil, wrapEvaluatorError("cel", err)
	}
	if _, issues := env.Parse(expression); issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError("cel", expression, "", issues.Err())
	}
	return &celCompiledRule{evaluator: e, expression: expression}, nil
}

func (e *celEvaluator) run(ctx RuleContext, expression string, program *celProgram) (any, error) {
	out, _, err := program.program.Eval(bindings(ctx))
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.version(), err)
	}
	value, err := celNative(out)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.version(), err)
	}
	return value, nil
}

func (e *celEvaluator) loadOrCompile(expression string, keys []string) (*celProgram, error) {
	cacheKey := "cel:" + expression + "|" + strings.Join(keys, ",")
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(keys)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}

	bundle := &celProgram{env: env, program: prg}
	if e.cache != nil {
		e.cache.Set(cacheKey, bundle)
	}
	return bundle, nil
}

func (e *celEvaluator) buildEnv(keys []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("version", celgo.StringType),
		celgo.Variable("data", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("metadata", celgo.MapType(celgo.StringType, celgo.DynType)),
	}
	for _, key := range keys {
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	if e.registry != nil {
		for _, name := range e.registry.Names() {
			opts = append(opts, e.declareFunction(name))
		}
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) declareFunction(name string) celgo.EnvOption {
	id := strings.ToLower(name)
	return celgo.Function(name,
		celgo.Overload(id+"_dyn", []*celgo.Type{celgo.DynType}, celgo.DynType,
			celgo.UnaryBinding(func(arg ref.Val) ref.Val {
				return e.callRegistry(name, arg)
			})),
		celgo.Overload(id+"_dyn_dyn", []*celgo.Type{celgo.DynType, celgo.DynType}, celgo.DynType,
			celgo.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
				return e.callRegistry(name, lhs, rhs)
			})),
	)
}

func (e *celEvaluator) callRegistry(name string, values ...ref.Val) ref.Val {
	args := make([]any, 0, len(values))
	for _, val := range values {
		native, err := celNative(val)
		if err != nil {
			return types.NewErr("migrate: %s: %v", name, err)
		}
		args = append(args, native)
	}
	result, err := e.registry.Call(name, args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("compiled rule missing evaluator"))
	}
	return r.evaluator.Evaluate(ctx, r.expression)
}

func variableKeys(s map[string]any) []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		if celIdentifier.MatchString(key) && !celReserved[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

var structValueType = reflect.TypeOf(&structpb.Value{})

// celNative converts a CEL value into the JSON value space.
func celNative(val ref.Val) (any, error) {
	switch val.(type) {
	case traits.Mapper, traits.Lister:
		native, err := val.ConvertToNative(structValueType)
		if err != nil {
			return nil, err
		}
		return native.(*structpb.Value).AsInterface(), nil
	default:
		if types.IsError(val) {
			return nil, fmt.Errorf("%v", val)
		}
		return val.Value(), nil
	}
}
