package graphcache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-graphcache/fieldtrie"
	"github.com/goliatone/go-graphcache/internal/deepcopy"
)

// DefaultKind is used for entities whose payload names no kind.
const DefaultKind = "record"

// Identity is the storage key of one logical entity, "kind:id".
type Identity string

func NewIdentity(kind, id string) Identity {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		kind = DefaultKind
	}
	return Identity(kind + ":" + id)
}

func (id Identity) String() string { return string(id) }

// Reference points at the normalized record produced for a payload root.
type Reference struct {
	Identity Identity `json:"identity"`
}

// Link is a field value pointing at another normalized record. Pending marks
// a placeholder: the payload carried only the linked entity's identity.
type Link struct {
	Ref     Identity
	Pending bool
}

// FieldValue wraps one stored field. Value is a scalar, a Link or a []Link.
// Direct records that the payload carried the value bare rather than inside a
// {value, displayValue} wrapper.
type FieldValue struct {
	Value        any
	DisplayValue any
	Version      Version
	Direct       bool
}

// Record is the normalized form of one entity. Nested entities are only ever
// referenced through links.
type Record struct {
	Identity  Identity              `json:"identity"`
	Kind      string                `json:"kind"`
	ID        string                `json:"id"`
	Fields    map[string]FieldValue `json:"fields"`
	Version   Version               `json:"version"`
	FetchedAt int64                 `json:"fetched_at"`
	Missing   []string              `json:"missing,omitempty"`
}

func (r Record) Clone() Record {
	return deepcopy.Clone(r)
}

// Has reports whether field is present as data.
func (r Record) Has(field string) bool {
	_, ok := r.Fields[field]
	return ok
}

// IsMissing reports whether path, or one of its prefixes, is known absent.
func (r Record) IsMissing(path string) bool {
	for _, missing := range r.Missing {
		if missing == path || strings.HasPrefix(path, missing+".") {
			return true
		}
	}
	return false
}

// FieldNames returns the stored field names in sorted order.
func (r Record) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Record) addMissing(path string) bool {
	idx := sort.SearchStrings(r.Missing, path)
	if idx < len(r.Missing) && r.Missing[idx] == path {
		return false
	}
	r.Missing = append(r.Missing, "")
	copy(r.Missing[idx+1:], r.Missing[idx:])
	r.Missing[idx] = path
	return true
}

// dropMissingFor removes missing entries rooted at a field that is now
// present.
func (r *Record) dropMissingFor(fields map[string]FieldValue) {
	if len(r.Missing) == 0 {
		return
	}
	kept := r.Missing[:0]
	for _, path := range r.Missing {
		head := fieldtrie.SplitPath(path)
		if len(head) > 0 {
			if _, ok := fields[head[0]]; ok {
				continue
			}
		}
		kept = append(kept, path)
	}
	if len(kept) == 0 {
		r.Missing = nil
		return
	}
	r.Missing = kept
}

const (
	refKey     = "__ref"
	refsKey    = "__refs"
	pendingKey = "__pending"
)

type fieldValueJSON struct {
	Value        json.RawMessage `json:"value"`
	DisplayValue json.RawMessage `json:"displayValue,omitempty"`
	Version      Version         `json:"version"`
	Direct       bool            `json:"direct,omitempty"`
}

// MarshalJSON encodes links as {"__ref": id} and collections as
// {"__refs": [...]} so byte oriented engines keep them distinct from data.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	value, err := json.Marshal(encodeValue(v.Value))
	if err != nil {
		return nil, err
	}
	out := fieldValueJSON{Value: value, Version: v.Version, Direct: v.Direct}
	if v.DisplayValue != nil {
		display, err := json.Marshal(v.DisplayValue)
		if err != nil {
			return nil, err
		}
		out.DisplayValue = display
	}
	return json.Marshal(out)
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var raw fieldValueJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	value, err := decodeRaw(raw.Value)
	if err != nil {
		return err
	}
	display, err := decodeRaw(raw.DisplayValue)
	if err != nil {
		return err
	}
	decoded, err := decodeValue(value)
	if err != nil {
		return err
	}
	*v = FieldValue{
		Value:        decoded,
		DisplayValue: display,
		Version:      raw.Version,
		Direct:       raw.Direct,
	}
	return nil
}

func encodeValue(value any) any {
	switch v := value.(type) {
	case Link:
		return encodeLink(v)
	case []Link:
		refs := make([]any, len(v))
		for i, link := range v {
			refs[i] = encodeLink(link)
		}
		return map[string]any{refsKey: refs}
	default:
		return value
	}
}

func encodeLink(link Link) map[string]any {
	out := map[string]any{refKey: string(link.Ref)}
	if link.Pending {
		out[pendingKey] = true
	}
	return out
}

func decodeRaw(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeValue(value any) (any, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return value, nil
	}
	if _, ok := obj[refKey]; ok {
		return decodeLink(obj)
	}
	rawRefs, ok := obj[refsKey].([]any)
	if !ok {
		return nil, fmt.Errorf("graphcache: stored field holds an object without %s or %s", refKey, refsKey)
	}
	links := make([]Link, 0, len(rawRefs))
	for _, raw := range rawRefs {
		entry, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("graphcache: stored collection entry is %T", raw)
		}
		link, err := decodeLink(entry)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, nil
}

func decodeLink(obj map[string]any) (Link, error) {
	ref, ok := obj[refKey].(string)
	if !ok || ref == "" {
		return Link{}, fmt.Errorf("graphcache: stored link has no identity")
	}
	pending, _ := obj[pendingKey].(bool)
	return Link{Ref: Identity(ref), Pending: pending}, nil
}
