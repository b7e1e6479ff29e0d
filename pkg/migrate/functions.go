package migrate

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-localhtml/pkg/richtext"
	"github.com/goliatone/go-localhtml/pkg/version"
)

// Function is a callable exposed to rule expressions.
type Function func(args ...any) (any, error)

// FunctionRegistry stores functions by name. Lookups ignore case; Names
// reports the spelling used at registration.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]registered
}

type registered struct {
	name string
	fn   Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: make(map[string]registered)}
}

// DefaultFunctions returns a registry holding the version helpers:
// versionBefore(v, target), compareVersions(a, b), plainText(content) and
// delta(text).
func DefaultFunctions() *FunctionRegistry {
	r := NewFunctionRegistry()
	_ = r.Register("versionBefore", func(args ...any) (any, error) {
		a, b, err := twoVersions("versionBefore", args)
		if err != nil {
			return nil, err
		}
		return version.IsOlder(a, b), nil
	})
	_ = r.Register("compareVersions", func(args ...any) (any, error) {
		a, b, err := twoVersions("compareVersions", args)
		if err != nil {
			return nil, err
		}
		return int64(version.Compare(a, b)), nil
	})
	_ = r.Register("plainText", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("migrate: plainText expects 1 argument, got %d", len(args))
		}
		return richtext.PlainText(args[0]), nil
	})
	_ = r.Register("delta", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("migrate: delta expects 1 argument, got %d", len(args))
		}
		text := fmt.Sprint(args[0])
		if args[0] == nil {
			text = ""
		}
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		return map[string]any{"ops": []any{map[string]any{"insert": text}}}, nil
	})
	return r
}

func twoVersions(name string, args []any) (string, string, error) {
	if len(args) != 2 {
		return "", "", fmt.Errorf("migrate: %s expects 2 arguments, got %d", name, len(args))
	}
	out := [2]string{}
	for i, arg := range args {
		switch typed := arg.(type) {
		case nil:
			out[i] = version.Zero
		case string:
			out[i] = typed
		default:
			out[i] = fmt.Sprint(typed)
		}
	}
	return out[0], out[1], nil
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("migrate: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("migrate: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]registered)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("migrate: function %q already registered", name)
	}
	r.functions[key] = registered{name: name, fn: fn}
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{functions: make(map[string]registered, len(r.functions))}
	for key, entry := range r.functions {
		clone.functions[key] = entry
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("migrate: function registry is nil")
	}
	r.mu.RLock()
	entry, ok := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("migrate: function %q not registered", name)
	}
	return entry.fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for _, entry := range r.functions {
		names = append(names, entry.name)
	}
	sort.Strings(names)
	return names
}
