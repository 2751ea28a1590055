package graphcache

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrShapeMismatch = errors.New("graphcache: payload shape mismatch")
	ErrTransport     = errors.New("graphcache: transport failure")
	ErrNoTransport   = errors.New("graphcache: transport not configured")
	ErrNoEvaluator   = errors.New("graphcache: evaluator not configured")
	ErrNotFound      = errors.New("graphcache: record not found")
	ErrClosed        = errors.New("graphcache: cache closed")

	errSuperseded = errors.New("graphcache: refresh superseded by a newer fetch")
)

// ShapeError reports a payload node that cannot be normalized. It aborts the
// ingestion pass that found it.
type ShapeError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ShapeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	path := e.Path
	if path == "" {
		path = "$"
	}
	if e.Err != nil {
		return fmt.Sprintf("graphcache: shape mismatch at %s: %s: %v", path, e.Reason, e.Err)
	}
	return fmt.Sprintf("graphcache: shape mismatch at %s: %s", path, e.Reason)
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrShapeMismatch
}

func (e *ShapeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func shapeErrorf(path, format string, args ...any) error {
	return &ShapeError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// TransportError is a failed fetch. It is cached as a negative result rather
// than evicting anything.
type TransportError struct {
	Identity Identity
	Status   int
	Message  string
	Err      error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "graphcache: fetch %s failed", e.Identity)
	if e.Status != 0 {
		fmt.Fprintf(&b, " status=%d", e.Status)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Path   string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("graphcache: %s evaluator %s path=%s: %v", e.Engine, describeExpression(e.Expr), e.Path, e.Err)
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

	if strings.HasPrefix(err.Error(), "graphcache:") {
		return err
	}
	return fmt.Errorf("graphcache: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, path string, err error) error {
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
		if evalErr.Path == "" {
			evalErr.Path = path
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Path:   path,
		Err:    err,
	}
}
