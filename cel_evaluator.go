package graphcache

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
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

// celEvaluator is statically typed, so the entity is only reachable through
// the node variable: node.apiName + ":" + node.id.
type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(EngineCEL, fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(program, ctx.withDefaults(), expression)
}

func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(EngineCEL, fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &celCompiledRule{
		evaluator:  e,
		program:    program,
		expression: expression,
	}, nil
}

func (e *celEvaluator) loadOrCompile(expression string) (celgo.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey(EngineCEL, expression)); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv()
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, "", err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, "", issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, "", err)
	}
	if e.cache != nil {
		e.cache.Set(cacheKey(EngineCEL, expression), program)
	}
	return program, nil
}

func (e *celEvaluator) buildEnv() (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("node", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("path", celgo.StringType),
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.MapType(celgo.StringType, celgo.DynType)),
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call", celgo.Overload(
			"call_dyn",
			[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
			celgo.DynType,
			celgo.BinaryBinding(e.callBinding()),
		)))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) run(program celgo.Program, ctx RuleContext, expression string) (any, error) {
	out, _, err := program.Eval(map[string]any{
		"node": ctx.Node,
		"path": ctx.Path,
		"now":  ctx.timestamp(),
		"args": ctx.Args,
	})
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, ctx.pathLabel(), err)
	}
	return out.Value(), nil
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	program    celgo.Program
	expression string
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluatorError(EngineCEL, fmt.Errorf("compiled rule missing evaluator"))
	}
	return r.evaluator.run(r.program, ctx.withDefaults(), r.expression)
}

// callBinding exposes the registry as call(name, [args...]).
func (e *celEvaluator) callBinding() functions.BinaryOp {
	return func(lhs, rhs ref.Val) ref.Val {
		name, ok := lhs.Value().(string)
		if !ok {
			return types.NewErr("graphcache: call name must be string")
		}
		var args []any
		if list, ok := rhs.(interface {
			Size() ref.Val
			Get(ref.Val) ref.Val
		}); ok {
			size, _ := list.Size().Value().(int64)
			for i := int64(0); i < size; i++ {
				args = append(args, list.Get(types.Int(i)).Value())
			}
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
}
