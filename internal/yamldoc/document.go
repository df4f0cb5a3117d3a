// Package yamldoc wraps a yaml.v3 node tree and addresses nodes inside it by
// path, so edits touch only the node they target and everything else keeps
// its comments, key order and quoting on re-serialization.
package yamldoc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultIndent = 2

// Document is a parsed configuration document.
type Document struct {
	root   *yaml.Node // DocumentNode; Content[0] is the top-level mapping
	indent int

	// src is the text the document was parsed from, orig the tree as parsed
	// and canon what the encoder produced for it. While the tree still
	// encodes to canon, Encode returns src untouched; after edits it splices
	// the changed entries into src. orig is shared between clones and never
	// mutated.
	src   []byte
	orig  *yaml.Node
	canon []byte
}

// New returns an empty document.
func New() *Document {
	return &Document{
		root:   &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{NewMap()}},
		indent: defaultIndent,
	}
}

// Parse reads a document from YAML text. The top-level node must be a mapping;
// empty input yields an empty document.
func Parse(src []byte) (*Document, error) {
	var n yaml.Node
	if err := yaml.Unmarshal(src, &n); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if n.Kind == 0 {
		d := New()
		d.src = append([]byte(nil), src...)
		d.canon, _ = d.encode()
		return d, nil
	}
	if n.Kind != yaml.DocumentNode || len(n.Content) == 0 {
		return nil, errors.New("parse yaml: no document found")
	}
	top := n.Content[0]
	if isNull(top) {
		n.Content[0] = NewMap()
	} else if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse yaml: top-level node must be a mapping, got %s", kindName(top.Kind))
	}

	d := &Document{
		root:   &n,
		indent: detectIndent(src),
		src:    append([]byte(nil), src...),
		orig:   CloneNode(&n),
	}
	canon, err := d.encode()
	if err != nil {
		return nil, err
	}
	d.canon = canon
	return d, nil
}

// MustParse is Parse for literals in tests and fixtures.
func MustParse(src string) *Document {
	d, err := Parse([]byte(src))
	if err != nil {
		panic(err)
	}
	return d
}

// Root returns the top-level mapping node.
func (d *Document) Root() *yaml.Node {
	return d.root.Content[0]
}

// Encode serializes the document. A document whose tree has not changed since
// parsing is returned byte-for-byte as it was read. After edits, every entry
// outside the edited nodes keeps its source bytes, including blank lines,
// comment spacing and indentation; only the edited nodes are re-rendered.
func (d *Document) Encode() ([]byte, error) {
	out, err := d.encode()
	if err != nil {
		return nil, err
	}
	if d.src != nil && bytes.Equal(out, d.canon) {
		return append([]byte(nil), d.src...), nil
	}
	if spliced, ok := d.splice(); ok {
		return spliced, nil
	}
	return out, nil
}

// String returns the encoded document, or an empty string if encoding fails.
func (d *Document) String() string {
	b, err := d.Encode()
	if err != nil {
		return ""
	}
	return string(b)
}

func (d *Document) encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(d.indent)
	if err := enc.Encode(d.root); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// Clone returns a deep copy. Anchors and aliases inside the copy point at
// copied nodes, never at the original tree.
func (d *Document) Clone() *Document {
	return &Document{
		root:   CloneNode(d.root),
		indent: d.indent,
		src:    d.src,
		orig:   d.orig,
		canon:  d.canon,
	}
}

// Canonical renders the current tree in yaml.v3 style, ignoring the bytes the
// document was parsed from.
func (d *Document) Canonical() string {
	b, err := d.encode()
	if err != nil {
		return ""
	}
	return string(b)
}

// Equal reports whether two documents serialize to the same text.
func Equal(a, b *Document) bool {
	ab, err := a.encode()
	if err != nil {
		return false
	}
	bb, err := b.encode()
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

// Decode decodes the top-level mapping into v.
func (d *Document) Decode(v any) error {
	return d.Root().Decode(v)
}

// CloneNode deep-copies n.
func CloneNode(n *yaml.Node) *yaml.Node {
	seen := make(map[*yaml.Node]*yaml.Node)
	var cp func(*yaml.Node) *yaml.Node
	cp = func(src *yaml.Node) *yaml.Node {
		if src == nil {
			return nil
		}
		if dst, ok := seen[src]; ok {
			return dst
		}
		dst := *src
		seen[src] = &dst
		if src.Content != nil {
			dst.Content = make([]*yaml.Node, len(src.Content))
			for i, c := range src.Content {
				dst.Content[i] = cp(c)
			}
		}
		dst.Alias = cp(src.Alias)
		return &dst
	}
	return cp(n)
}

// detectIndent returns the indentation step the source uses, judged by the
// first indented content line.
func detectIndent(src []byte) int {
	sc := bufio.NewScanner(bytes.NewReader(src))
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimLeft(line, " ")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || trimmed == "---" {
			continue
		}
		n := len(line) - len(trimmed)
		if n == 0 {
			continue
		}
		if n < 2 || n > 9 {
			return defaultIndent
		}
		return n
	}
	return defaultIndent
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "nothing"
}
