package graphcache

import (
	"context"
	"strings"

	"github.com/goliatone/go-graphcache/fieldtrie"
)

// render rebuilds the payload shape of record restricted to fields. Linked
// entities are expanded only as far as fields reaches into them; beyond that
// they appear as {id, apiName} placeholders. An empty trie renders every top
// level field.
func render(ctx context.Context, lookup lookupFunc, record Record, fields *fieldtrie.Trie) (map[string]any, error) {
	out := identityObject(record)
	names := fields.Names()
	if fields.Empty() {
		names = record.FieldNames()
	}
	for _, name := range names {
		value, ok := record.Fields[name]
		if !ok {
			continue
		}
		rendered, err := renderValue(ctx, lookup, value.Value, fields.Child(name))
		if err != nil {
			return nil, err
		}
		if value.Direct {
			out[name] = rendered
			continue
		}
		out[name] = map[string]any{
			valueKey:        rendered,
			displayValueKey: value.DisplayValue,
		}
	}
	return out, nil
}

func renderValue(ctx context.Context, lookup lookupFunc, value any, child *fieldtrie.Trie) (any, error) {
	switch v := value.(type) {
	case Link:
		return renderLink(ctx, lookup, v, child)
	case []Link:
		list := make([]any, 0, len(v))
		for _, link := range v {
			rendered, err := renderLink(ctx, lookup, link, child)
			if err != nil {
				return nil, err
			}
			list = append(list, rendered)
		}
		return list, nil
	default:
		return value, nil
	}
}

func renderLink(ctx context.Context, lookup lookupFunc, link Link, child *fieldtrie.Trie) (any, error) {
	target, found, err := lookup(ctx, link.Ref)
	if err != nil {
		return nil, err
	}
	if !found {
		return placeholderObject(link.Ref), nil
	}
	if child.Empty() {
		return identityObject(target), nil
	}
	return render(ctx, lookup, target, child)
}

func identityObject(record Record) map[string]any {
	out := map[string]any{idKey: record.ID}
	if record.Kind != "" && record.Kind != DefaultKind {
		out[kindKeys[0]] = record.Kind
	}
	return out
}

// placeholderObject is used for links whose target is not stored.
func placeholderObject(id Identity) map[string]any {
	kind, raw, ok := strings.Cut(string(id), ":")
	if !ok {
		return map[string]any{idKey: string(id)}
	}
	record := Record{Kind: kind, ID: raw}
	return identityObject(record)
}
