package layering

import (
	"reflect"
	"testing"
)

func TestMergeStrongestFirst(t *testing.T) {
	env := map[string]any{"ttl": "1m", "store": map[string]any{"dsn": "redis://cache:6379"}}
	file := map[string]any{"ttl": "30s", "max_depth": 8, "store": map[string]any{"dsn": "memory://", "prefix": "gc:"}}
	defaults := map[string]any{"negative_ttl": "5s"}

	got := Merge(env, nil, file, defaults)
	want := map[string]any{
		"ttl":          "1m",
		"max_depth":    8,
		"negative_ttl": "5s",
		"store":        map[string]any{"dsn": "redis://cache:6379", "prefix": "gc:"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected merge\nwant %#v\n got %#v", want, got)
	}

	got["store"].(map[string]any)["dsn"] = "changed"
	if env["store"].(map[string]any)["dsn"] != "redis://cache:6379" {
		t.Fatalf("inputs must not be shared with the result")
	}
}

func TestMergeScalarReplacesMap(t *testing.T) {
	got := Merge(map[string]any{"a": 1}, map[string]any{"a": map[string]any{"b": 2}})
	if got["a"] != 1 {
		t.Fatalf("expected scalar to win, got %#v", got["a"])
	}
}

func TestMergeEmpty(t *testing.T) {
	if got := Merge(); len(got) != 0 {
		t.Fatalf("expected empty map, got %#v", got)
	}
}
