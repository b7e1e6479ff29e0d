package migrate

import (
	"time"

	"github.com/goliatone/go-localhtml/pkg/snapshot"
	"github.com/goliatone/go-localhtml/pkg/version"
)

// RuleContext carries the inputs of one rule evaluation.
type RuleContext struct {
	Snapshot snapshot.Snapshot
	Now      *time.Time
	Metadata map[string]any
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = snapshot.Snapshot{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	return *ctx.withDefaults().Now
}

// version is the stamped version, or the zero version when absent.
func (ctx RuleContext) version() string {
	return version.Of(ctx.Snapshot)
}

// Evaluator executes expressions against a rule context. Expressions see
// every snapshot key as a variable, plus data (the whole snapshot), version,
// now and metadata.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

func bindings(ctx RuleContext) map[string]any {
	env := map[string]any{}
	for key, value := range ctx.Snapshot {
		env[key] = value
	}
	env["data"] = map[string]any(ctx.Snapshot)
	env["version"] = ctx.version()
	env["now"] = ctx.timestamp()
	env["metadata"] = ctx.Metadata
	return env
}
