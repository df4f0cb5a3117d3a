package appcfg

import (
	"fmt"

	"github.com/soochol/appcfg/internal/yamldoc"
	"gopkg.in/yaml.v3"
)

// Scope is the addressing context of an env var.
type Scope string

const (
	ScopeProject   Scope = "project"
	ScopeWorkflow  Scope = "workflow"
	ScopeContainer Scope = "container"
)

// AllWorkflows as a scope id selects every workflow's envs, or every
// container's with the container scope.
const AllWorkflows = "*"

// ParseScope accepts "project"/"app", "workflow"/"workflows" and
// "container"/"containers".
func ParseScope(s string) (Scope, error) {
	switch s {
	case "project", "app":
		return ScopeProject, nil
	case "workflow", "workflows":
		return ScopeWorkflow, nil
	case "container", "containers":
		return ScopeContainer, nil
	}
	return "", fmt.Errorf("unknown env var scope %q", s)
}

// Source labels shown next to env vars in merged listings.
const ProjectEnvsLabel = "Project envs"

// WorkflowEnvsLabel returns the source label for a workflow's env vars.
func WorkflowEnvsLabel(id string) string { return "Workflow: " + id }

// ContainerEnvsLabel returns the source label for a container's env vars.
func ContainerEnvsLabel(id string) string { return "Container: " + id }

// EnvVar is one element of app.envs, workflows.<id>.envs or
// containers.<id>.envs.
//
// IsExpand is nil when the entry carries no opts.is_expand, which means the
// runner's default expand behavior applies.
type EnvVar struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	IsExpand *bool  `json:"is_expand,omitempty"`
	Source   string `json:"source,omitempty"`
}

// Bool returns a pointer to b, for EnvVar.IsExpand literals.
func Bool(b bool) *bool { return &b }

const optsKey = "opts"
const isExpandKey = "is_expand"

// EnvVarFromNode reads an env var entry: the first key other than opts
// supplies key and value, and opts.is_expand supplies IsExpand.
func EnvVarFromNode(n *yaml.Node, source string) (EnvVar, bool) {
	n = yamldoc.Resolve(n)
	if !yamldoc.IsMap(n) {
		return EnvVar{}, false
	}
	env := EnvVar{Source: source}
	found := false
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i].Value, n.Content[i+1]
		if k == optsKey {
			if b, ok := yamldoc.ScalarBool(yamldoc.MapGet(v, isExpandKey)); ok {
				env.IsExpand = Bool(b)
			}
			continue
		}
		if !found {
			env.Key = k
			env.Value = yamldoc.ScalarText(v)
			found = true
		}
	}
	return env, found
}

// EnvVarNode builds the stored form of env. The value goes through
// yamldoc.ToScalar; opts is written only for an explicit is_expand: false.
func EnvVarNode(env EnvVar) *yaml.Node {
	m := yamldoc.NewMap()
	yamldoc.MapSet(m, env.Key, yamldoc.ToScalar(env.Value))
	if env.IsExpand != nil && !*env.IsExpand {
		opts := yamldoc.NewMap()
		yamldoc.MapSet(opts, isExpandKey, yamldoc.NewBool(false))
		yamldoc.MapSet(m, optsKey, opts)
	}
	return m
}

// EnvVarKey returns the key of an env var entry node.
func EnvVarKey(n *yaml.Node) (string, bool) {
	env, ok := EnvVarFromNode(n, "")
	return env.Key, ok
}
