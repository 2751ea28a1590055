package graphcache

import (
	"context"
	"strings"

	"github.com/goliatone/go-graphcache/fieldtrie"
)

// markMissing records every optional path of optional that the entity behind
// ref does not carry. Nested paths follow links, so the absence is recorded
// on the entity that actually lacks the field. Records changed here join res
// and are committed with the rest of the pass.
func markMissing(ctx context.Context, res *Resolution, lookup lookupFunc, ref Reference, optional *fieldtrie.Trie) error {
	if optional.Empty() {
		return nil
	}
	for _, path := range optional.Paths() {
		if err := markPath(ctx, res, lookup, ref.Identity, fieldtrie.SplitPath(path)); err != nil {
			return err
		}
	}
	return nil
}

func markPath(ctx context.Context, res *Resolution, lookup lookupFunc, id Identity, segments []string) error {
	if len(segments) == 0 {
		return nil
	}
	record, found, err := resolvedRecord(ctx, res, lookup, id)
	if err != nil || !found {
		return err
	}
	value, ok := record.Fields[segments[0]]
	if !ok {
		if record.addMissing(strings.Join(segments, ".")) {
			res.put(record)
		}
		return nil
	}
	if len(segments) == 1 {
		return nil
	}
	switch v := value.Value.(type) {
	case Link:
		return markPath(ctx, res, lookup, v.Ref, segments[1:])
	case []Link:
		for _, link := range v {
			if err := markPath(ctx, res, lookup, link.Ref, segments[1:]); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolvedRecord prefers the state resolved in this pass over the store.
func resolvedRecord(ctx context.Context, res *Resolution, lookup lookupFunc, id Identity) (Record, bool, error) {
	if record, ok := res.Records[id]; ok {
		return record.Clone(), true, nil
	}
	return lookup(ctx, id)
}

// covers reports whether record can answer every path of fields. A path is
// satisfied when present as data or when it, or a prefix of it, is known
// missing. Anything else is a genuine miss.
func covers(ctx context.Context, lookup lookupFunc, record Record, fields *fieldtrie.Trie) (bool, error) {
	for _, path := range fields.Paths() {
		ok, err := satisfied(ctx, lookup, record, fieldtrie.SplitPath(path))
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func satisfied(ctx context.Context, lookup lookupFunc, record Record, segments []string) (bool, error) {
	if len(segments) == 0 {
		return true, nil
	}
	if record.IsMissing(strings.Join(segments, ".")) {
		return true, nil
	}
	value, ok := record.Fields[segments[0]]
	if !ok {
		return false, nil
	}
	if len(segments) == 1 {
		return true, nil
	}
	switch v := value.Value.(type) {
	case Link:
		return linkSatisfied(ctx, lookup, v, segments[1:])
	case []Link:
		for _, link := range v {
			ok, err := linkSatisfied(ctx, lookup, link, segments[1:])
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	default:
		// null relationship or scalar: nothing further to fetch
		return true, nil
	}
}

func linkSatisfied(ctx context.Context, lookup lookupFunc, link Link, rest []string) (bool, error) {
	target, found, err := lookup(ctx, link.Ref)
	if err != nil || !found {
		return false, err
	}
	return satisfied(ctx, lookup, target, rest)
}
