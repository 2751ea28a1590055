package graphcache

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "apiName + id", "owner", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" || evalErr.Expr != "apiName + id" || evalErr.Path != "owner" {
		t.Fatalf("unexpected metadata: %+v", evalErr)
	}
	if !errors.Is(evalErr, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{Engine: "expr", Err: base}

	err := wrapEvaluationError("cel", "rule", "owner.manager", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" || existing.Path != "owner.manager" {
		t.Fatalf("missing metadata should be filled, got %+v", existing)
	}
}

func TestShapeErrorMatchesSentinel(t *testing.T) {
	err := shapeErrorf("owner", "entity id is %T", 12)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	if errors.Is(err, ErrTransport) {
		t.Fatalf("shape error must not match ErrTransport")
	}
	if !strings.Contains(err.Error(), "owner") {
		t.Fatalf("expected path in message, got %q", err.Error())
	}
}

func TestTransportErrorMatchesSentinel(t *testing.T) {
	cause := errors.New("connection reset")
	err := &TransportError{Identity: "account:E1", Status: 503, Err: cause}
	if !errors.Is(err, ErrTransport) || !errors.Is(err, cause) {
		t.Fatalf("expected sentinel and cause to match, got %v", err)
	}
	if !strings.Contains(err.Error(), "status=503") {
		t.Fatalf("expected status in message, got %q", err.Error())
	}
}
