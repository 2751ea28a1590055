package graphcache

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// nodeKind is the closed set of payload node shapes. Each node is classified
// once and handed to the matching normalize function.
type nodeKind int

const (
	kindScalar nodeKind = iota
	kindWrapper
	kindEntity
	kindPlaceholder
	kindCollection
	kindUnknown
)

func (k nodeKind) String() string {
	switch k {
	case kindScalar:
		return "scalar"
	case kindWrapper:
		return "wrapper"
	case kindEntity:
		return "entity"
	case kindPlaceholder:
		return "placeholder"
	case kindCollection:
		return "collection"
	default:
		return "unknown"
	}
}

const (
	idKey           = "id"
	valueKey        = "value"
	displayValueKey = "displayValue"
)

// kindKeys name the entity kind, in order of preference.
var kindKeys = []string{"apiName", "type"}

func classify(value any) nodeKind {
	switch v := value.(type) {
	case map[string]any:
		if _, ok := v[idKey]; ok {
			if isPlaceholder(v) {
				return kindPlaceholder
			}
			return kindEntity
		}
		if _, ok := v[valueKey]; ok && isWrapper(v) {
			return kindWrapper
		}
		return kindUnknown
	case []any:
		return kindCollection
	default:
		return kindScalar
	}
}

// isPlaceholder reports whether obj carries nothing but identity keys.
func isPlaceholder(obj map[string]any) bool {
	for key, value := range obj {
		if key == idKey {
			continue
		}
		if _, isString := value.(string); !isString || !isKindKey(key) {
			return false
		}
	}
	return true
}

func isWrapper(obj map[string]any) bool {
	for key := range obj {
		if key != valueKey && key != displayValueKey {
			return false
		}
	}
	return true
}

func isKindKey(key string) bool {
	for _, candidate := range kindKeys {
		if key == candidate {
			return true
		}
	}
	return false
}

func kindOf(obj map[string]any) (kind string, key string) {
	for _, candidate := range kindKeys {
		if value, ok := obj[candidate].(string); ok && value != "" {
			return value, candidate
		}
	}
	return DefaultKind, ""
}

// entityKey is the resolved identity of one payload entity.
type entityKey struct {
	identity Identity
	kind     string
	id       string
	kindKey  string
}

// identifyFunc resolves the identity of an entity object at path.
type identifyFunc func(obj map[string]any, path string) (entityKey, error)

// normalizer walks one payload. It never touches the store: every entity
// becomes a pending write in cm.
type normalizer struct {
	cm       *ConflictMap
	stamp    int64
	maxDepth int
	identify identifyFunc
}

func newNormalizer(cm *ConflictMap, ts time.Time, maxDepth int, identify identifyFunc) *normalizer {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &normalizer{
		cm:       cm,
		stamp:    ts.UnixMilli(),
		maxDepth: maxDepth,
		identify: identify,
	}
}

func (n *normalizer) root(payload map[string]any) (Reference, error) {
	switch kind := classify(payload); kind {
	case kindEntity, kindPlaceholder:
		link, err := n.entity(payload, "", 0)
		if err != nil {
			return Reference{}, err
		}
		return Reference{Identity: link.Ref}, nil
	default:
		return Reference{}, shapeErrorf("", "root must be an entity object, got %s", kind)
	}
}

func (n *normalizer) entity(obj map[string]any, path string, depth int) (Link, error) {
	if depth > n.maxDepth {
		return Link{}, shapeErrorf(path, "nesting exceeds max depth %d", n.maxDepth)
	}
	key, err := n.identify(obj, path)
	if err != nil {
		return Link{}, err
	}
	etag, etagKey := etagFrom(obj)
	version := Version{ETag: etag, Stamp: n.stamp}

	fields := make(map[string]FieldValue, len(obj))
	for _, name := range sortedKeys(obj) {
		if name == idKey || name == key.kindKey || name == etagKey {
			continue
		}
		value, err := n.field(obj[name], joinFieldPath(path, name), depth+1)
		if err != nil {
			return Link{}, err
		}
		value.Version = version
		fields[name] = value
	}

	n.cm.Add(PendingWrite{
		Identity: key.identity,
		Kind:     key.kind,
		ID:       key.id,
		Fields:   fields,
		Version:  version,
		Path:     path,
	})
	return Link{Ref: key.identity}, nil
}

func (n *normalizer) placeholder(obj map[string]any, path string) (Link, error) {
	key, err := n.identify(obj, path)
	if err != nil {
		return Link{}, err
	}
	return Link{Ref: key.identity, Pending: true}, nil
}

func (n *normalizer) collection(list []any, path string, depth int) ([]Link, error) {
	links := make([]Link, 0, len(list))
	for i, element := range list {
		elementPath := path + "[" + strconv.Itoa(i) + "]"
		obj, _ := element.(map[string]any)
		var (
			link Link
			err  error
		)
		switch kind := classify(element); kind {
		case kindEntity:
			link, err = n.entity(obj, elementPath, depth)
		case kindPlaceholder:
			link, err = n.placeholder(obj, elementPath)
		default:
			err = shapeErrorf(elementPath, "collection element is a %s, want an entity", kind)
		}
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, nil
}

func (n *normalizer) wrapper(obj map[string]any, path string, depth int) (FieldValue, error) {
	display := obj[displayValueKey]
	if classify(display) != kindScalar {
		return FieldValue{}, shapeErrorf(path, "displayValue must be a scalar, got %T", display)
	}
	inner := obj[valueKey]
	innerObj, _ := inner.(map[string]any)
	switch kind := classify(inner); kind {
	case kindScalar:
		return FieldValue{Value: inner, DisplayValue: display}, nil
	case kindEntity:
		link, err := n.entity(innerObj, path, depth)
		return FieldValue{Value: link, DisplayValue: display}, err
	case kindPlaceholder:
		link, err := n.placeholder(innerObj, path)
		return FieldValue{Value: link, DisplayValue: display}, err
	case kindCollection:
		links, err := n.collection(inner.([]any), path, depth)
		return FieldValue{Value: links, DisplayValue: display}, err
	default:
		return FieldValue{}, shapeErrorf(path, "wrapped value is a %s", kind)
	}
}

func (n *normalizer) field(value any, path string, depth int) (FieldValue, error) {
	obj, _ := value.(map[string]any)
	switch kind := classify(value); kind {
	case kindScalar:
		return FieldValue{Value: value, Direct: true}, nil
	case kindWrapper:
		return n.wrapper(obj, path, depth)
	case kindEntity:
		link, err := n.entity(obj, path, depth)
		return FieldValue{Value: link, Direct: true}, err
	case kindPlaceholder:
		link, err := n.placeholder(obj, path)
		return FieldValue{Value: link, Direct: true}, err
	case kindCollection:
		links, err := n.collection(value.([]any), path, depth)
		return FieldValue{Value: links, Direct: true}, err
	default:
		return FieldValue{}, shapeErrorf(path, "object is neither an entity nor a {value, displayValue} wrapper")
	}
}

// builtinIdentity derives kind:id from the payload.
func builtinIdentity(obj map[string]any, path string) (entityKey, error) {
	raw, ok := obj[idKey].(string)
	if !ok || raw == "" {
		return entityKey{}, shapeErrorf(path, "entity id must be a non-empty string, got %s", describeValue(obj[idKey]))
	}
	kind, kindKey := kindOf(obj)
	return entityKey{
		identity: NewIdentity(kind, raw),
		kind:     kind,
		id:       raw,
		kindKey:  kindKey,
	}, nil
}

func describeValue(value any) string {
	if s, ok := value.(string); ok {
		return strconv.Quote(s)
	}
	return fmt.Sprintf("%T", value)
}

func joinFieldPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
