//go:build !js_eval

package migrate

import "github.com/goliatone/go-localhtml/pkg/snapshot"

// NewJSEvaluator is unavailable without the js_eval build tag.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = applyJSEvaluatorOptions(opts)
	return nil
}

// Script is unavailable without the js_eval build tag.
type Script struct{}

// NewScript returns ErrJSUnavailable without the js_eval build tag.
func NewScript(name, source string, opts ...JSEvaluatorOption) (*Script, error) {
	return nil, ErrJSUnavailable
}

// Migrate returns ErrJSUnavailable.
func (s *Script) Migrate(snapshot.Snapshot) (snapshot.Snapshot, error) {
	return nil, ErrJSUnavailable
}

func jsEvaluatorAvailable() bool {
	return false
}
