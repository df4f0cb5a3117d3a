package document

import (
	"fmt"

	"github.com/soochol/appcfg/internal/appcfg"
	"github.com/soochol/appcfg/internal/yamldoc"
	"gopkg.in/yaml.v3"
)

const (
	envsKey     = "envs"
	optsKey     = "opts"
	isExpandKey = "is_expand"
)

// ResolveEnvVarPath returns the document path of an env var list, or of one
// entry (index >= 0) or one entry's key (index >= 0 and key != "").
func ResolveEnvVarPath(scope appcfg.Scope, scopeID string, index int, key string) (yamldoc.Path, error) {
	var path yamldoc.Path
	switch scope {
	case appcfg.ScopeProject:
		path = yamldoc.P(appcfg.KeyApp, envsKey)
	case appcfg.ScopeWorkflow:
		if scopeID == "" {
			return nil, &appcfg.ScopeError{Scope: scope}
		}
		path = yamldoc.P(appcfg.KeyWorkflows, scopeID, envsKey)
	case appcfg.ScopeContainer:
		if scopeID == "" {
			return nil, &appcfg.ScopeError{Scope: scope}
		}
		path = yamldoc.P(appcfg.KeyContainers, scopeID, envsKey)
	default:
		return nil, fmt.Errorf("unknown env var scope %q", scope)
	}
	if index >= 0 {
		path = path.Append(index)
		if key != "" {
			path = path.Append(key)
		}
	}
	return path, nil
}

// checkEnvOwner verifies the entity that owns the env list exists.
func checkEnvOwner(d *yamldoc.Document, scope appcfg.Scope, scopeID string) error {
	switch scope {
	case appcfg.ScopeWorkflow:
		if !workflowExists(d, scopeID) {
			return appcfg.WorkflowNotFound(scopeID)
		}
	case appcfg.ScopeContainer:
		if d.GetMap(yamldoc.P(appcfg.KeyContainers, scopeID)) == nil {
			return appcfg.ContainerNotFound(scopeID)
		}
	}
	return nil
}

// envSection returns the existing env list for scope.
func envSection(d *yamldoc.Document, scope appcfg.Scope, scopeID string) (*yaml.Node, error) {
	path, err := ResolveEnvVarPath(scope, scopeID, -1, "")
	if err != nil {
		return nil, err
	}
	if scope == appcfg.ScopeProject && !d.Has(yamldoc.P(appcfg.KeyApp)) {
		return nil, appcfg.MissingAppSection()
	}
	if err := checkEnvOwner(d, scope, scopeID); err != nil {
		return nil, err
	}
	seq := d.GetSeq(path)
	if seq == nil {
		return nil, appcfg.MissingEnvsSection(scope, scopeID)
	}
	return seq, nil
}

// envEntry returns the env var mapping at index.
func envEntry(d *yamldoc.Document, scope appcfg.Scope, scopeID string, index int) (*yaml.Node, error) {
	seq, err := envSection(d, scope, scopeID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(seq.Content) || !yamldoc.IsMap(seq.Content[index]) {
		return nil, appcfg.EnvVarIndexError(scope, scopeID, index, len(seq.Content))
	}
	return yamldoc.Resolve(seq.Content[index]), nil
}

// EnvVars lists env vars with their source labels. A nil scope lists the
// project envs followed by every workflow's and then every container's envs.
// With the workflow or container scope, scopeID "*" lists every entity's envs.
func EnvVars(d *yamldoc.Document, scope *appcfg.Scope, scopeID string) ([]appcfg.EnvVar, error) {
	if scope == nil {
		out := append(projectEnvVars(d), allWorkflowEnvVars(d)...)
		return append(out, allContainerEnvVars(d)...), nil
	}
	switch *scope {
	case appcfg.ScopeProject:
		return projectEnvVars(d), nil
	case appcfg.ScopeWorkflow:
		if scopeID == "" {
			return nil, &appcfg.ScopeError{Scope: *scope}
		}
		if scopeID == appcfg.AllWorkflows {
			return allWorkflowEnvVars(d), nil
		}
		if !workflowExists(d, scopeID) {
			return nil, appcfg.WorkflowNotFound(scopeID)
		}
		return readEnvVars(d.Get(yamldoc.P(appcfg.KeyWorkflows, scopeID, envsKey)), appcfg.WorkflowEnvsLabel(scopeID)), nil
	case appcfg.ScopeContainer:
		if scopeID == "" {
			return nil, &appcfg.ScopeError{Scope: *scope}
		}
		if scopeID == appcfg.AllWorkflows {
			return allContainerEnvVars(d), nil
		}
		if err := checkEnvOwner(d, *scope, scopeID); err != nil {
			return nil, err
		}
		return readEnvVars(d.Get(yamldoc.P(appcfg.KeyContainers, scopeID, envsKey)), appcfg.ContainerEnvsLabel(scopeID)), nil
	}
	return nil, fmt.Errorf("unknown env var scope %q", *scope)
}

func projectEnvVars(d *yamldoc.Document) []appcfg.EnvVar {
	return readEnvVars(d.Get(yamldoc.P(appcfg.KeyApp, envsKey)), appcfg.ProjectEnvsLabel)
}

func allWorkflowEnvVars(d *yamldoc.Document) []appcfg.EnvVar {
	out := []appcfg.EnvVar{}
	for _, id := range ids(d, appcfg.KeyWorkflows) {
		out = append(out, readEnvVars(d.Get(yamldoc.P(appcfg.KeyWorkflows, id, envsKey)), appcfg.WorkflowEnvsLabel(id))...)
	}
	return out
}

func allContainerEnvVars(d *yamldoc.Document) []appcfg.EnvVar {
	out := []appcfg.EnvVar{}
	for _, id := range ids(d, appcfg.KeyContainers) {
		out = append(out, readEnvVars(d.Get(yamldoc.P(appcfg.KeyContainers, id, envsKey)), appcfg.ContainerEnvsLabel(id))...)
	}
	return out
}

func readEnvVars(seq *yaml.Node, source string) []appcfg.EnvVar {
	out := []appcfg.EnvVar{}
	if !yamldoc.IsSeq(seq) {
		return out
	}
	for _, item := range yamldoc.Resolve(seq).Content {
		if env, ok := appcfg.EnvVarFromNode(item, source); ok {
			out = append(out, env)
		}
	}
	return out
}

// CreateEnvVar appends a blank env var with is_expand: false.
func CreateEnvVar(scope appcfg.Scope, scopeID string) Mutator {
	return AppendEnvVar(appcfg.EnvVar{IsExpand: appcfg.Bool(false)}, scope, scopeID)
}

// AppendEnvVar appends env to the list for scope, creating the list (and the
// app section) when missing.
func AppendEnvVar(env appcfg.EnvVar, scope appcfg.Scope, scopeID string) Mutator {
	return func(d *yamldoc.Document) error {
		path, err := ResolveEnvVarPath(scope, scopeID, -1, "")
		if err != nil {
			return err
		}
		if err := checkEnvOwner(d, scope, scopeID); err != nil {
			return err
		}
		seq, err := d.GetOrCreateSeq(path)
		if err != nil {
			return err
		}
		yamldoc.SeqInsert(seq, len(seq.Content), appcfg.EnvVarNode(env))
		return nil
	}
}

// RemoveEnvVar deletes the env var at index. An emptied list is removed, and
// for the project scope so is an emptied app section. Workflows and
// containers are kept.
func RemoveEnvVar(index int, scope appcfg.Scope, scopeID string) Mutator {
	return func(d *yamldoc.Document) error {
		if _, err := envEntry(d, scope, scopeID, index); err != nil {
			return err
		}
		path, _ := ResolveEnvVarPath(scope, scopeID, index, "")
		var keep yamldoc.Path
		switch scope {
		case appcfg.ScopeWorkflow:
			keep = yamldoc.P(appcfg.KeyWorkflows, scopeID)
		case appcfg.ScopeContainer:
			keep = yamldoc.P(appcfg.KeyContainers, scopeID)
		}
		d.DeleteIn(path, keep)
		return nil
	}
}

// UpdateEnvVarKey renames the key of the env var at index. The entry must
// still have oldKey, which guards against edits based on a stale index.
func UpdateEnvVarKey(oldKey, newKey string, index int, scope appcfg.Scope, scopeID string) Mutator {
	return func(d *yamldoc.Document) error {
		entry, err := envEntry(d, scope, scopeID, index)
		if err != nil {
			return err
		}
		if !yamldoc.MapHas(entry, oldKey) {
			actual, _ := appcfg.EnvVarKey(entry)
			return &appcfg.KeyMismatchError{Expected: oldKey, Actual: actual}
		}
		yamldoc.MapRenameKey(entry, oldKey, newKey)
		return nil
	}
}

// UpdateEnvVarValue replaces the value of the env var at index. The value is
// stored through yamldoc.ToScalar so numbers and booleans keep their type.
func UpdateEnvVarValue(key, value string, index int, scope appcfg.Scope, scopeID string) Mutator {
	return func(d *yamldoc.Document) error {
		entry, err := envEntry(d, scope, scopeID, index)
		if err != nil {
			return err
		}
		old := yamldoc.MapGet(entry, key)
		if old == nil {
			actual, _ := appcfg.EnvVarKey(entry)
			return &appcfg.KeyMismatchError{Expected: key, Actual: actual}
		}
		v := yamldoc.ToScalar(value)
		v.LineComment = old.LineComment
		yamldoc.MapSet(entry, key, v)
		return nil
	}
}

// UpdateEnvVarIsExpand sets opts.is_expand. true is the default, so it removes
// the option (and an emptied opts) instead of writing it.
func UpdateEnvVarIsExpand(isExpand bool, index int, scope appcfg.Scope, scopeID string) Mutator {
	return func(d *yamldoc.Document) error {
		entry, err := envEntry(d, scope, scopeID, index)
		if err != nil {
			return err
		}
		opts := yamldoc.MapGet(entry, optsKey)
		if isExpand {
			if yamldoc.IsMap(opts) {
				yamldoc.MapDelete(opts, isExpandKey)
			}
			if opts != nil && yamldoc.IsEmpty(opts) {
				yamldoc.MapDelete(entry, optsKey)
			}
			return nil
		}
		if !yamldoc.IsMap(opts) {
			opts = yamldoc.NewMap()
			yamldoc.MapSet(entry, optsKey, opts)
		}
		yamldoc.MapSet(opts, isExpandKey, yamldoc.NewBool(false))
		return nil
	}
}

// ReorderEnvVars permutes the env list so that position i holds the entry
// previously at order[i]. Entry nodes are moved, not rebuilt.
func ReorderEnvVars(order []int, scope appcfg.Scope, scopeID string) Mutator {
	return func(d *yamldoc.Document) error {
		seq, err := envSection(d, scope, scopeID)
		if err != nil {
			return err
		}
		n := len(seq.Content)
		if len(order) != n {
			return &appcfg.LengthMismatchError{Got: len(order), Want: n}
		}
		seen := make([]bool, n)
		items := make([]*yaml.Node, n)
		for i, from := range order {
			if from < 0 || from >= n || seen[from] {
				return appcfg.EnvVarIndexError(scope, scopeID, from, n)
			}
			seen[from] = true
			items[i] = seq.Content[from]
		}
		seq.Content = items
		return nil
	}
}
