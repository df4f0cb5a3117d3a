package yamldoc

import (
	"gopkg.in/yaml.v3"
)

// NewMap returns an empty block mapping.
func NewMap() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

// NewSeq returns an empty block sequence.
func NewSeq() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
}

// NewString returns a string scalar. The encoder quotes it only when the plain
// form would read back as another type.
func NewString(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// NewBool returns a boolean scalar.
func NewBool(b bool) *yaml.Node {
	v := "false"
	if b {
		v = "true"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: v}
}

// NewStringSeq returns a block sequence of string scalars.
func NewStringSeq(items []string) *yaml.Node {
	seq := NewSeq()
	for _, s := range items {
		seq.Content = append(seq.Content, NewString(s))
	}
	return seq
}

// Resolve follows aliases to the node they point at.
func Resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// IsMap reports whether n (after alias resolution) is a mapping.
func IsMap(n *yaml.Node) bool {
	n = Resolve(n)
	return n != nil && n.Kind == yaml.MappingNode
}

// IsSeq reports whether n (after alias resolution) is a sequence.
func IsSeq(n *yaml.Node) bool {
	n = Resolve(n)
	return n != nil && n.Kind == yaml.SequenceNode
}

func isNull(n *yaml.Node) bool {
	return n != nil && n.Kind == yaml.ScalarNode && (n.Tag == "!!null" || (n.Tag == "" && n.Value == ""))
}

// IsEmpty reports whether n holds nothing: nil, a null scalar, or a
// collection without entries.
func IsEmpty(n *yaml.Node) bool {
	n = Resolve(n)
	if n == nil {
		return true
	}
	switch n.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		return len(n.Content) == 0
	case yaml.ScalarNode:
		return isNull(n)
	}
	return false
}

// Len returns the number of entries of a mapping or sequence.
func Len(n *yaml.Node) int {
	n = Resolve(n)
	if n == nil {
		return 0
	}
	switch n.Kind {
	case yaml.MappingNode:
		return len(n.Content) / 2
	case yaml.SequenceNode:
		return len(n.Content)
	}
	return 0
}

// unflow switches an empty flow collection ("{}" or "[]") to block style
// before it gains its first entry.
func unflow(n *yaml.Node) {
	if n != nil && len(n.Content) == 0 && n.Style&yaml.FlowStyle != 0 {
		n.Style &^= yaml.FlowStyle
	}
}

// MapIndex returns the Content index of key's key node, or -1.
func MapIndex(m *yaml.Node, key string) int {
	m = Resolve(m)
	if m == nil || m.Kind != yaml.MappingNode {
		return -1
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return i
		}
	}
	return -1
}

// MapGet returns the value node for key, or nil.
func MapGet(m *yaml.Node, key string) *yaml.Node {
	i := MapIndex(m, key)
	if i < 0 {
		return nil
	}
	return Resolve(m).Content[i+1]
}

// MapHas reports whether m has key.
func MapHas(m *yaml.Node, key string) bool {
	return MapIndex(m, key) >= 0
}

// MapSet replaces the value for key in place, or appends a new entry.
func MapSet(m *yaml.Node, key string, v *yaml.Node) {
	m = Resolve(m)
	if i := MapIndex(m, key); i >= 0 {
		m.Content[i+1] = v
		return
	}
	unflow(m)
	m.Content = append(m.Content, NewString(key), v)
}

// MapDelete removes key and reports whether it was present.
func MapDelete(m *yaml.Node, key string) bool {
	i := MapIndex(m, key)
	if i < 0 {
		return false
	}
	m = Resolve(m)
	m.Content = append(m.Content[:i], m.Content[i+2:]...)
	return true
}

// MapRenameKey renames a key in place, keeping its position, value and the
// key node's comments.
func MapRenameKey(m *yaml.Node, oldKey, newKey string) bool {
	i := MapIndex(m, oldKey)
	if i < 0 {
		return false
	}
	k := Resolve(m).Content[i]
	k.Value = newKey
	k.Tag = "!!str"
	k.Style &^= yaml.TaggedStyle
	return true
}

// MapKeys returns the keys of m in document order.
func MapKeys(m *yaml.Node) []string {
	m = Resolve(m)
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		keys = append(keys, m.Content[i].Value)
	}
	return keys
}

// FirstKey returns the first key of a single-entry mapping such as
// "- wf1: {}" or "- script@1: {}". Entries written as bare scalars
// ("- wf1") yield the scalar value.
func FirstKey(n *yaml.Node) (string, bool) {
	n = Resolve(n)
	if n == nil {
		return "", false
	}
	switch n.Kind {
	case yaml.MappingNode:
		if len(n.Content) >= 2 {
			return n.Content[0].Value, true
		}
	case yaml.ScalarNode:
		if !isNull(n) {
			return n.Value, true
		}
	}
	return "", false
}

// SeqInsert inserts v at index i, clamping i to the sequence bounds.
func SeqInsert(s *yaml.Node, i int, v *yaml.Node) {
	s = Resolve(s)
	if i < 0 {
		i = 0
	}
	if i > len(s.Content) {
		i = len(s.Content)
	}
	unflow(s)
	s.Content = append(s.Content, nil)
	copy(s.Content[i+1:], s.Content[i:])
	s.Content[i] = v
}

// SeqRemove removes the item at index i and returns it.
func SeqRemove(s *yaml.Node, i int) *yaml.Node {
	s = Resolve(s)
	if i < 0 || i >= len(s.Content) {
		return nil
	}
	v := s.Content[i]
	s.Content = append(s.Content[:i], s.Content[i+1:]...)
	return v
}

// SeqFilter keeps the items for which keep returns true and reports how many
// were removed.
func SeqFilter(s *yaml.Node, keep func(*yaml.Node) bool) int {
	s = Resolve(s)
	if s == nil || s.Kind != yaml.SequenceNode {
		return 0
	}
	out := s.Content[:0]
	for _, it := range s.Content {
		if keep(it) {
			out = append(out, it)
		}
	}
	removed := len(s.Content) - len(out)
	for i := len(out); i < len(s.Content); i++ {
		s.Content[i] = nil
	}
	s.Content = out
	return removed
}

// ScalarValues returns the values of a sequence's scalar items.
func ScalarValues(s *yaml.Node) []string {
	s = Resolve(s)
	if s == nil || s.Kind != yaml.SequenceNode {
		return nil
	}
	out := make([]string, 0, len(s.Content))
	for _, it := range s.Content {
		if it = Resolve(it); it.Kind == yaml.ScalarNode {
			out = append(out, it.Value)
		}
	}
	return out
}
