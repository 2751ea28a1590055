package deepcopy

import (
	"reflect"
	"testing"
)

type sample struct {
	Name   string
	Tags   []string
	Attrs  map[string]any
	Nested *sample
	hidden int
}

func TestCloneDetachesMapsAndSlices(t *testing.T) {
	original := sample{
		Name:   "root",
		Tags:   []string{"a", "b"},
		Attrs:  map[string]any{"list": []any{1, "two"}, "map": map[string]any{"k": "v"}},
		Nested: &sample{Name: "child"},
		hidden: 7,
	}

	cloned := Clone(original)
	if cloned.hidden != 0 {
		t.Fatalf("expected unexported field to be zeroed, got %d", cloned.hidden)
	}
	cloned.hidden = original.hidden
	if !reflect.DeepEqual(original, cloned) {
		t.Fatalf("clone mismatch:\nwant %#v\n got %#v", original, cloned)
	}

	cloned.Tags[0] = "changed"
	cloned.Attrs["map"].(map[string]any)["k"] = "changed"
	cloned.Attrs["list"].([]any)[0] = 99
	cloned.Nested.Name = "changed"

	if original.Tags[0] != "a" {
		t.Fatalf("slice shared with clone")
	}
	if original.Attrs["map"].(map[string]any)["k"] != "v" {
		t.Fatalf("nested map shared with clone")
	}
	if original.Attrs["list"].([]any)[0] != 1 {
		t.Fatalf("nested slice shared with clone")
	}
	if original.Nested.Name != "child" {
		t.Fatalf("pointer shared with clone")
	}
}

func TestCloneNilValues(t *testing.T) {
	var m map[string]int
	if got := Clone(m); got != nil {
		t.Fatalf("expected nil map, got %v", got)
	}
	var anyValue any
	if got := Clone(anyValue); got != nil {
		t.Fatalf("expected nil interface, got %v", got)
	}
}
