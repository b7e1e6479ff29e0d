package migrate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoEvaluator is returned when no evaluator could be configured.
var ErrNoEvaluator = errors.New("migrate: evaluator not configured")

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine  string
	Expr    string
	Version string
	Err     error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("migrate: %s evaluator %s version=%s: %v", e.Engine, describeExpression(e.Expr), e.Version, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}
	if strings.HasPrefix(err.Error(), "migrate:") {
		return err
	}
	return fmt.Errorf("migrate: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, version string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Version == "" {
			evalErr.Version = version
		}
		return evalErr
	}
	return &EvaluationError{Engine: engine, Expr: expr, Version: version, Err: err}
}
