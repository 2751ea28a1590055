package graphcache

import (
	"testing"
	"time"
)

func TestConfigFromMapOverlaysDefaults(t *testing.T) {
	cfg, err := ConfigFromMap(map[string]any{
		"ttl":                 "2m",
		"negative_ttl":        1500,
		"max_depth":           8,
		"store_dsn":           "memory://",
		"identity_expression": "apiName + ':' + id",
		"evaluator":           "cel",
	})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.TTL != 2*time.Minute {
		t.Fatalf("unexpected ttl %s", cfg.TTL)
	}
	if cfg.NegativeTTL != 1500*time.Millisecond {
		t.Fatalf("expected millisecond integers, got %s", cfg.NegativeTTL)
	}
	if cfg.MaxDepth != 8 || cfg.StoreDSN != "memory://" || cfg.Evaluator != EngineCEL {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestConfigFromMapDefaults(t *testing.T) {
	cfg, err := ConfigFromMap(nil)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestConfigFromMapRejectsInvalidInput(t *testing.T) {
	cases := map[string]map[string]any{
		"unknown key":       {"ttl": "1s", "tll": "2s"},
		"bad duration":      {"ttl": "soon"},
		"zero ttl":          {"ttl": 0},
		"negative depth":    {"max_depth": -1},
		"unknown evaluator": {"evaluator": "lua"},
		"duration type":     {"negative_ttl": true},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ConfigFromMap(raw); err == nil {
				t.Fatalf("expected error for %v", raw)
			}
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	if _, err := New(WithTTL(0)); err == nil {
		t.Fatalf("expected invalid ttl to fail")
	}
	if _, err := New(WithMaxDepth(0)); err == nil {
		t.Fatalf("expected invalid depth to fail")
	}
}

func TestConfigFromLayersPrefersStrongerLayers(t *testing.T) {
	cfg, err := ConfigFromLayers(
		map[string]any{"ttl": "1m"},
		map[string]any{"ttl": "10s", "max_depth": 4},
	)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.TTL != time.Minute || cfg.MaxDepth != 4 || cfg.NegativeTTL != DefaultNegativeTTL {
		t.Fatalf("unexpected config %+v", cfg)
	}
}
