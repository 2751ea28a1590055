package graphcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIdentityExpressionWithExpr(t *testing.T) {
	cache, _ := newTestCache(t,
		WithIdentityExpression(`apiName + "/" + slug(id)`),
		WithCustomFunction("slug", func(args ...any) (any, error) {
			s, _ := args[0].(string)
			return strings.ToLower(s), nil
		}),
	)
	payload := map[string]any{
		"id":      "ACC1",
		"apiName": "Account",
		"owner":   map[string]any{"id": "USR9", "apiName": "User", "name": "Una"},
	}

	ref, err := cache.Ingest(context.Background(), payload, nil, nil, time.UnixMilli(1))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if ref.Identity != "Account/acc1" {
		t.Fatalf("unexpected identity %q", ref.Identity)
	}
	record := mustLookup(t, cache, "Account/acc1")
	if link := record.Fields["owner"].Value.(Link); link.Ref != "User/usr9" {
		t.Fatalf("nested identity should use the expression too, got %q", link.Ref)
	}
	if record.Kind != "Account" || record.ID != "ACC1" {
		t.Fatalf("kind and id come from the payload, got %+v", record)
	}
}

func TestIdentityExpressionWithCEL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Evaluator = EngineCEL
	cfg.IdentityExpression = `"acct-" + node.id`
	cache, _ := newTestCache(t, WithConfig(cfg))

	ref, err := cache.Ingest(context.Background(), map[string]any{"id": "42", "name": "x"}, nil, nil, time.UnixMilli(1))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if ref.Identity != "acct-42" {
		t.Fatalf("unexpected identity %q", ref.Identity)
	}
}

func TestIdentityExpressionMustYieldString(t *testing.T) {
	cache, engine := newTestCache(t, WithIdentityExpression(`len(id)`))
	_, err := cache.Ingest(context.Background(), map[string]any{"id": "abc"}, nil, nil, time.UnixMilli(1))
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected shape mismatch, got %v", err)
	}
	if engine.Commits() != 0 {
		t.Fatalf("expected no commits")
	}
}

func TestIdentityExpressionCompileError(t *testing.T) {
	_, err := New(WithIdentityExpression(`id +`))
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Engine != EngineExpr {
		t.Fatalf("expected expr evaluation error, got %v", err)
	}
}

func TestDuplicateCustomFunctionFailsNew(t *testing.T) {
	fn := func(args ...any) (any, error) { return nil, nil }
	if _, err := New(WithCustomFunction("f", fn), WithCustomFunction("F", fn)); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestProgramCacheReusesCompiledPrograms(t *testing.T) {
	programs := NewProgramCache(time.Minute)
	evaluator := NewExprEvaluator(ExprWithProgramCache(programs))

	if _, err := evaluator.Compile(`id`); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, ok := programs.Get(cacheKey(EngineExpr, `id`)); !ok {
		t.Fatalf("expected compiled program to be cached")
	}
	value, err := evaluator.Evaluate(RuleContext{Node: map[string]any{"id": "x"}}, `id`)
	if err != nil || value != "x" {
		t.Fatalf("unexpected evaluation %v err=%v", value, err)
	}
}
