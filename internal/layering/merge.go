// Package layering overlays loosely typed configuration maps.
package layering

// Merge composes layers ordered from strongest to weakest. Nested maps are
// merged key by key; any other value from a stronger layer replaces the weaker
// one outright. Nil layers are skipped and the inputs are never mutated.
func Merge(layers ...map[string]any) map[string]any {
	out := map[string]any{}
	for i := len(layers) - 1; i >= 0; i-- {
		out = overlay(layers[i], out)
	}
	return out
}

func overlay(strong, weak map[string]any) map[string]any {
	out := make(map[string]any, len(weak)+len(strong))
	for key, value := range weak {
		out[key] = clone(value)
	}
	for key, value := range strong {
		strongMap, strongIsMap := value.(map[string]any)
		weakMap, weakIsMap := out[key].(map[string]any)
		if strongIsMap && weakIsMap {
			out[key] = overlay(strongMap, weakMap)
			continue
		}
		out[key] = clone(value)
	}
	return out
}

func clone(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return overlay(v, nil)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = clone(item)
		}
		return out
	default:
		return value
	}
}
