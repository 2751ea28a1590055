//go:build js_eval

package graphcache

import (
	"context"
	"testing"
	"time"
)

func TestIdentityExpressionWithJS(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Evaluator = EngineJS
	cfg.IdentityExpression = `(node.apiName || "record") + "#" + node.id`
	cache, _ := newTestCache(t, WithConfig(cfg))

	ref, err := cache.Ingest(context.Background(), map[string]any{"id": "7", "apiName": "Case", "subject": "x"}, nil, nil, time.UnixMilli(1))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if ref.Identity != "Case#7" {
		t.Fatalf("unexpected identity %q", ref.Identity)
	}
}
