//go:build !js_eval

package migrate

import (
	"errors"
	"testing"
)

func TestJSUnavailableWithoutTag(t *testing.T) {
	if NewJSEvaluator() != nil {
		t.Fatalf("js evaluator should be nil without the js_eval tag")
	}
	if _, err := NewEvaluator(EngineJS, nil, nil); !errors.Is(err, ErrJSUnavailable) {
		t.Fatalf("expected ErrJSUnavailable, got %v", err)
	}
	if _, err := NewScript("x.js", "function migrate(d) {}"); !errors.Is(err, ErrJSUnavailable) {
		t.Fatalf("expected ErrJSUnavailable, got %v", err)
	}
}
