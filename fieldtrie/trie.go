// Package fieldtrie models the set of field paths a request asks for. Paths
// are dotted ("owner.name") and each leaf is either required or optional.
// A nil or empty Trie means no fields were requested.
package fieldtrie

import (
	"sort"
	"strings"
)

// Node is one path segment. A node reached by any required path is required.
type Node struct {
	children map[string]*Node
	optional bool
}

// Trie is the root of a field path tree.
type Trie struct {
	root *Node
}

// New returns an empty trie.
func New() *Trie {
	return &Trie{root: &Node{}}
}

// FromPaths builds a trie from dotted required and optional paths.
func FromPaths(required, optional []string) *Trie {
	t := New()
	for _, path := range required {
		t.InsertPath(path, false)
	}
	for _, path := range optional {
		t.InsertPath(path, true)
	}
	return t
}

// InsertPath splits dotted on "." and inserts it.
func (t *Trie) InsertPath(dotted string, optional bool) {
	t.Insert(SplitPath(dotted), optional)
}

// Insert adds path to the trie. Inserting a required path marks every node on
// it required; an optional insert never downgrades an existing node.
func (t *Trie) Insert(path []string, optional bool) {
	if t == nil || len(path) == 0 {
		return
	}
	if t.root == nil {
		t.root = &Node{}
	}
	node := t.root
	for _, segment := range path {
		if segment == "" {
			return
		}
		if node.children == nil {
			node.children = make(map[string]*Node)
		}
		child, ok := node.children[segment]
		if !ok {
			child = &Node{optional: optional}
			node.children[segment] = child
		} else if !optional {
			child.optional = false
		}
		node = child
	}
}

// Contains reports whether path is a prefix of (or equal to) an inserted path.
func (t *Trie) Contains(path []string) bool {
	return t.lookup(path) != nil
}

// IsOptional reports whether the node at path exists and is optional.
func (t *Trie) IsOptional(path []string) bool {
	node := t.lookup(path)
	return node != nil && node.optional
}

func (t *Trie) lookup(path []string) *Node {
	if t == nil || t.root == nil || len(path) == 0 {
		return nil
	}
	node := t.root
	for _, segment := range path {
		child, ok := node.children[segment]
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

// Merge returns the union of t and other. Neither input is modified.
func (t *Trie) Merge(other *Trie) *Trie {
	out := New()
	if t != nil && t.root != nil {
		mergeNode(out.root, t.root)
	}
	if other != nil && other.root != nil {
		mergeNode(out.root, other.root)
	}
	return out
}

func mergeNode(dst, src *Node) {
	for name, srcChild := range src.children {
		if dst.children == nil {
			dst.children = make(map[string]*Node)
		}
		dstChild, ok := dst.children[name]
		if !ok {
			dstChild = &Node{optional: srcChild.optional}
			dst.children[name] = dstChild
		} else if !srcChild.optional {
			dstChild.optional = false
		}
		mergeNode(dstChild, srcChild)
	}
}

// Paths returns the sorted dotted leaf paths.
func (t *Trie) Paths() []string {
	if t == nil || t.root == nil {
		return nil
	}
	var out []string
	collectPaths(t.root, "", func(path string, _ *Node) {
		out = append(out, path)
	})
	sort.Strings(out)
	return out
}

func collectPaths(node *Node, prefix string, visit func(string, *Node)) {
	for name, child := range node.children {
		path := JoinPath(prefix, name)
		if len(child.children) == 0 {
			visit(path, child)
			continue
		}
		collectPaths(child, path, visit)
	}
}

// Child returns the sub-trie below the top-level field name, or nil.
func (t *Trie) Child(name string) *Trie {
	if t == nil || t.root == nil {
		return nil
	}
	child, ok := t.root.children[name]
	if !ok {
		return nil
	}
	return &Trie{root: child}
}

// Names returns the sorted top-level field names.
func (t *Trie) Names() []string {
	if t == nil || t.root == nil {
		return nil
	}
	names := make([]string, 0, len(t.root.children))
	for name := range t.root.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Empty reports whether no fields were requested.
func (t *Trie) Empty() bool {
	return t == nil || t.root == nil || len(t.root.children) == 0
}

// Len returns the number of leaf paths.
func (t *Trie) Len() int {
	return len(t.Paths())
}

// Required returns a trie holding only the leaves that are required.
func (t *Trie) Required() *Trie {
	return t.filter(false)
}

// Optional returns a trie holding only the leaves that are optional.
func (t *Trie) Optional() *Trie {
	return t.filter(true)
}

func (t *Trie) filter(optional bool) *Trie {
	out := New()
	if t == nil || t.root == nil {
		return out
	}
	collectPaths(t.root, "", func(path string, leaf *Node) {
		if leaf.optional == optional {
			out.InsertPath(path, optional)
		}
	})
	return out
}

// Key renders a canonical, order independent form of the trie. Optional
// leaves carry a "?" suffix.
func (t *Trie) Key() string {
	if t.Empty() {
		return ""
	}
	var parts []string
	collectPaths(t.root, "", func(path string, leaf *Node) {
		if leaf.optional {
			path += "?"
		}
		parts = append(parts, path)
	})
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// SplitPath splits a dotted path, dropping empty segments.
func SplitPath(dotted string) []string {
	raw := strings.Split(strings.TrimSpace(dotted), ".")
	out := raw[:0]
	for _, segment := range raw {
		segment = strings.TrimSpace(segment)
		if segment != "" {
			out = append(out, segment)
		}
	}
	return out
}

// JoinPath joins prefix and segment with a dot.
func JoinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}
