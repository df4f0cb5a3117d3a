// Package document implements the structural mutations of an app config
// document and the referential integrity cascades that keep cross references
// consistent. Every mutation is a Mutator; Apply runs one against a copy so
// the caller's document is never touched.
package document

import (
	"fmt"

	"github.com/soochol/appcfg/internal/appcfg"
	"github.com/soochol/appcfg/internal/yamldoc"
	"gopkg.in/yaml.v3"
)

// Mutator edits a document in place. A Mutator that returns an error may have
// left the document half edited; run it through Apply to discard such edits.
type Mutator func(d *yamldoc.Document) error

// Apply runs fn on a deep copy of d and returns the copy. On error d is
// returned unchanged together with the error.
func Apply(d *yamldoc.Document, fn Mutator) (*yamldoc.Document, error) {
	next := d.Clone()
	if err := fn(next); err != nil {
		return d, err
	}
	return next, nil
}

// Chain runs mutators in order and stops at the first error.
func Chain(fns ...Mutator) Mutator {
	return func(d *yamldoc.Document) error {
		for _, fn := range fns {
			if err := fn(d); err != nil {
				return err
			}
		}
		return nil
	}
}

// Source selects the entity map that owns a step list or a triggers block.
type Source string

const (
	SourceWorkflows   Source = appcfg.KeyWorkflows
	SourceStepBundles Source = appcfg.KeyStepBundles
	SourcePipelines   Source = appcfg.KeyPipelines
)

// ParseSource accepts the top-level key of an entity map.
func ParseSource(s string) (Source, error) {
	switch src := Source(s); src {
	case SourceWorkflows, SourceStepBundles, SourcePipelines:
		return src, nil
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// entity returns the mapping at source.id. A null entry ("wf:") is turned into
// an empty mapping so it can take children.
func entity(d *yamldoc.Document, source Source, id string) (*yaml.Node, error) {
	path := yamldoc.P(string(source), id)
	n := d.Get(path)
	if n == nil {
		return nil, appcfg.SourceNotFound(string(source), id)
	}
	if yamldoc.IsMap(n) {
		return n, nil
	}
	if !yamldoc.IsEmpty(n) {
		return nil, appcfg.SourceNotFound(string(source), id)
	}
	return d.GetOrCreateMap(path)
}

// workflowExists reports whether workflows.id is present, including a bare
// "id:" entry with no body.
func workflowExists(d *yamldoc.Document, id string) bool {
	n := d.Get(yamldoc.P(appcfg.KeyWorkflows, id))
	return n != nil && (yamldoc.IsMap(n) || yamldoc.IsEmpty(n))
}

// workflow returns workflows.id as a mapping or a WorkflowNotFound error.
func workflow(d *yamldoc.Document, id string) (*yaml.Node, error) {
	if !workflowExists(d, id) {
		return nil, appcfg.WorkflowNotFound(id)
	}
	return d.GetOrCreateMap(yamldoc.P(appcfg.KeyWorkflows, id))
}

// entryKey returns the id of a list entry written as "- id" or "- id: {...}".
func entryKey(n *yaml.Node) string {
	k, _ := yamldoc.FirstKey(n)
	return k
}

// singleEntry builds the "- id: {}" list entry form.
func singleEntry(id string) *yaml.Node {
	body := yamldoc.NewMap()
	body.Style = yaml.FlowStyle
	m := yamldoc.NewMap()
	yamldoc.MapSet(m, id, body)
	return m
}

// ids returns the keys of the top-level map at key.
func ids(d *yamldoc.Document, key string) []string {
	return yamldoc.MapKeys(d.GetMap(yamldoc.P(key)))
}

// pruneTopLevel drops the given top-level sections when they hold nothing.
func pruneTopLevel(d *yamldoc.Document, keys ...string) {
	for _, k := range keys {
		if n := d.Get(yamldoc.P(k)); n != nil && n.Kind != yaml.ScalarNode && yamldoc.IsEmpty(n) {
			d.Delete(yamldoc.P(k))
		}
	}
}
