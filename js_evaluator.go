//go:build js_eval

package graphcache

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	cfg := applyJSEvaluatorOptions(opts)
	return &jsEvaluator{
		cache:    cfg.cache,
		registry: cfg.registry,
	}
}

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(EngineJS, fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(ctx.withDefaults(), expression, program)
}

func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(EngineJS, fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &jsCompiledRule{
		evaluator:  e,
		expression: expression,
		program:    program,
	}, nil
}

func (e *jsEvaluator) loadOrCompile(expression string) (*goja.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey(EngineJS, expression)); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", e.wrapExpression(expression), false)
	if err != nil {
		return nil, wrapEvaluationError(EngineJS, expression, "", err)
	}
	if e.cache != nil {
		e.cache.Set(cacheKey(EngineJS, expression), program)
	}
	return program, nil
}

// run uses a fresh runtime per call; goja runtimes are not safe for
// concurrent use.
func (e *jsEvaluator) run(ctx RuleContext, expression string, program *goja.Program) (any, error) {
	vm := goja.New()
	if err := e.injectContext(vm, ctx); err != nil {
		return nil, wrapEvaluationError(EngineJS, expression, ctx.pathLabel(), err)
	}
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, wrapEvaluationError(EngineJS, expression, ctx.pathLabel(), err)
	}
	return value.Export(), nil
}

func (e *jsEvaluator) injectContext(vm *goja.Runtime, ctx RuleContext) error {
	for key, value := range ctx.Node {
		if err := vm.Set(key, value); err != nil {
			return err
		}
	}
	bindings := map[string]any{
		"node": ctx.Node,
		"path": ctx.Path,
		"now":  ctx.timestamp(),
		"args": ctx.Args,
	}
	if e.registry != nil {
		bindings["call"] = func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}
	}
	for key, value := range bindings {
		if err := vm.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (e *jsEvaluator) wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

type jsCompiledRule struct {
	evaluator  *jsEvaluator
	expression string
	program    *goja.Program
}

func (r *jsCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluatorError(EngineJS, fmt.Errorf("compiled rule missing evaluator"))
	}
	return r.evaluator.run(ctx.withDefaults(), r.expression, r.program)
}

func jsEvaluatorAvailable() bool {
	return true
}
