package yamldoc

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Wildcard matches every key of a mapping or every index of a sequence in
// DeleteIn paths.
const Wildcard = "*"

// Path addresses a node from the document root. Elements are string map keys
// or int sequence indices.
type Path []any

// P builds a Path.
func P(elems ...any) Path { return Path(elems) }

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, e := range p {
		parts[i] = fmt.Sprint(e)
	}
	return strings.Join(parts, ".")
}

// Append returns a new path with elems added.
func (p Path) Append(elems ...any) Path {
	out := make(Path, 0, len(p)+len(elems))
	out = append(out, p...)
	return append(out, elems...)
}

// Parent returns p without its last element.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1:len(p)-1]
}

// Match reports whether p matches pattern element-wise, with Wildcard
// elements in pattern matching anything.
func (p Path) Match(pattern Path) bool {
	if len(p) != len(pattern) {
		return false
	}
	for i := range p {
		if pattern[i] != Wildcard && p[i] != pattern[i] {
			return false
		}
	}
	return true
}

// Equal reports element-wise equality.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// child resolves one path element under n.
func child(n *yaml.Node, elem any) *yaml.Node {
	n = Resolve(n)
	if n == nil {
		return nil
	}
	switch e := elem.(type) {
	case string:
		if n.Kind == yaml.MappingNode {
			return MapGet(n, e)
		}
		if n.Kind == yaml.SequenceNode {
			if i, err := strconv.Atoi(e); err == nil && i >= 0 && i < len(n.Content) {
				return n.Content[i]
			}
		}
	case int:
		if n.Kind == yaml.SequenceNode && e >= 0 && e < len(n.Content) {
			return n.Content[e]
		}
	}
	return nil
}

// Get returns the node at path, or nil. Aliases are followed.
func (d *Document) Get(path Path) *yaml.Node {
	n := d.Root()
	for _, e := range path {
		n = child(n, e)
		if n == nil {
			return nil
		}
	}
	return Resolve(n)
}

// Has reports whether path exists.
func (d *Document) Has(path Path) bool {
	return d.Get(path) != nil
}

// GetMap returns the mapping at path, or nil when it is absent or not a mapping.
func (d *Document) GetMap(path Path) *yaml.Node {
	if n := d.Get(path); IsMap(n) {
		return n
	}
	return nil
}

// GetSeq returns the sequence at path, or nil when it is absent or not a sequence.
func (d *Document) GetSeq(path Path) *yaml.Node {
	if n := d.Get(path); IsSeq(n) {
		return n
	}
	return nil
}

// GetOrCreateMap returns the mapping at path, creating it and any missing
// ancestors as empty block mappings. Null values on the way are replaced.
func (d *Document) GetOrCreateMap(path Path) (*yaml.Node, error) {
	return d.getOrCreate(path, yaml.MappingNode)
}

// GetOrCreateSeq is GetOrCreateMap for a sequence container.
func (d *Document) GetOrCreateSeq(path Path) (*yaml.Node, error) {
	return d.getOrCreate(path, yaml.SequenceNode)
}

func (d *Document) getOrCreate(path Path, kind yaml.Kind) (*yaml.Node, error) {
	n := d.Root()
	for i, e := range path {
		next := child(n, e)
		if next == nil || isNull(Resolve(next)) {
			want := yaml.MappingNode
			if i == len(path)-1 {
				want = kind
			} else if _, ok := path[i+1].(int); ok {
				want = yaml.SequenceNode
			}
			created := NewMap()
			if want == yaml.SequenceNode {
				created = NewSeq()
			}
			if err := setChild(n, e, created); err != nil {
				return nil, fmt.Errorf("create %s: %w", path[:i+1], err)
			}
			next = created
		}
		n = Resolve(next)
	}
	if n.Kind != kind {
		return nil, fmt.Errorf("expected a %s at path %q, found %s", kindName(kind), path.String(), kindName(n.Kind))
	}
	return n, nil
}

// setChild stores v under elem in the collection n. A sequence index equal to
// the length appends.
func setChild(n *yaml.Node, elem any, v *yaml.Node) error {
	n = Resolve(n)
	switch e := elem.(type) {
	case string:
		if n.Kind != yaml.MappingNode {
			return fmt.Errorf("key %q on a %s", e, kindName(n.Kind))
		}
		MapSet(n, e, v)
		return nil
	case int:
		if n.Kind != yaml.SequenceNode {
			return fmt.Errorf("index %d on a %s", e, kindName(n.Kind))
		}
		switch {
		case e >= 0 && e < len(n.Content):
			n.Content[e] = v
		case e == len(n.Content):
			unflow(n)
			n.Content = append(n.Content, v)
		default:
			return fmt.Errorf("index %d is out of bounds", e)
		}
		return nil
	}
	return fmt.Errorf("unsupported path element %v", elem)
}

// Set stores v at path, creating missing ancestors.
func (d *Document) Set(path Path, v *yaml.Node) error {
	if len(path) == 0 {
		if !IsMap(v) {
			return fmt.Errorf("document root must be a mapping")
		}
		d.root.Content[0] = v
		return nil
	}
	parent := path.Parent()
	var p *yaml.Node
	var err error
	if _, ok := path[len(path)-1].(int); ok {
		p, err = d.GetOrCreateSeq(parent)
	} else {
		p, err = d.GetOrCreateMap(parent)
	}
	if err != nil {
		return err
	}
	return setChild(p, path[len(path)-1], v)
}

// Delete removes the node at path and reports whether it existed.
func (d *Document) Delete(path Path) bool {
	if len(path) == 0 {
		return false
	}
	var parent *yaml.Node
	if len(path) == 1 {
		parent = d.Root()
	} else {
		parent = d.Get(path.Parent())
	}
	if parent == nil {
		return false
	}
	switch e := path[len(path)-1].(type) {
	case string:
		if parent.Kind == yaml.MappingNode {
			return MapDelete(parent, e)
		}
	case int:
		if parent.Kind == yaml.SequenceNode {
			return SeqRemove(parent, e) != nil
		}
	}
	return false
}

// DeleteIn removes the node at path and then every ancestor that is left
// empty, stopping at keep (which is never removed) or at the root. Both paths
// may contain Wildcard elements.
func (d *Document) DeleteIn(path, keep Path) {
	for _, p := range d.Expand(path) {
		d.deleteIn(p, keep)
	}
}

// DeleteWhere is DeleteIn restricted to the nodes for which match returns true.
func (d *Document) DeleteWhere(path, keep Path, match func(*yaml.Node) bool) {
	for _, p := range d.Expand(path) {
		if n := d.Get(p); n != nil && match(n) {
			d.deleteIn(p, keep)
		}
	}
}

func (d *Document) deleteIn(path, keep Path) {
	d.Delete(path)
	for p := path.Parent(); len(p) > 0; p = p.Parent() {
		if len(keep) > 0 && p.Match(keep) {
			return
		}
		n := d.Get(p)
		if n == nil || n.Kind == yaml.ScalarNode || !IsEmpty(n) {
			return
		}
		d.Delete(p)
	}
}

// Expand resolves Wildcard elements into the concrete paths that exist in the
// document. Sequence indices are produced in descending order so callers can
// delete while iterating.
func (d *Document) Expand(path Path) []Path {
	out := []Path{{}}
	for _, e := range path {
		var next []Path
		for _, p := range out {
			if e != Wildcard {
				next = append(next, p.Append(e))
				continue
			}
			n := d.Get(p)
			if n == nil {
				continue
			}
			switch n.Kind {
			case yaml.MappingNode:
				for _, k := range MapKeys(n) {
					next = append(next, p.Append(k))
				}
			case yaml.SequenceNode:
				for i := len(n.Content) - 1; i >= 0; i-- {
					next = append(next, p.Append(i))
				}
			}
		}
		out = next
	}
	existing := out[:0]
	for _, p := range out {
		if d.Has(p) {
			existing = append(existing, p)
		}
	}
	return existing
}
