package graphcache

import (
	"fmt"
	"strings"
	"time"
)

// RuleContext carries the inputs of an identity expression: the entity object
// being normalized and its dotted path from the payload root.
type RuleContext struct {
	Node map[string]any
	Path string
	Now  *time.Time
	Args map[string]any
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Node == nil {
		ctx.Node = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	if ctx.Now == nil {
		return time.Now()
	}
	return *ctx.Now
}

func (ctx RuleContext) pathLabel() string {
	if ctx.Path == "" {
		return "$"
	}
	return ctx.Path
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// newEvaluator builds the named engine wired to cache and registry.
func newEvaluator(engine string, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineExpr:
		return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(registry)), nil
	case EngineCEL:
		return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry)), nil
	case EngineJS:
		evaluator := NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(registry))
		if evaluator == nil {
			return nil, fmt.Errorf("%w: js engine requires the js_eval build tag", ErrNoEvaluator)
		}
		return evaluator, nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrNoEvaluator, engine)
	}
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*graphcache.exprEvaluator":
		return EngineExpr
	case "*graphcache.celEvaluator":
		return EngineCEL
	case "*graphcache.jsEvaluator":
		return EngineJS
	default:
		return "custom"
	}
}
