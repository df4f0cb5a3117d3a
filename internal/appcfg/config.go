// Package appcfg holds the typed read model of an app config document and the
// domain errors and validation rules shared by the mutation and query layers.
package appcfg

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Top-level document keys.
const (
	KeyFormatVersion = "format_version"
	KeyApp           = "app"
	KeyMeta          = "meta"
	KeyContainers    = "containers"
	KeyStepBundles   = "step_bundles"
	KeyPipelines     = "pipelines"
	KeyStages        = "stages"
	KeyWorkflows     = "workflows"
	KeyTriggerMap    = "trigger_map"
)

// Config is a read-only view of the whole document.
type Config struct {
	FormatVersion        string                 `json:"format_version,omitempty" yaml:"format_version,omitempty"`
	DefaultStepLibSource string                 `json:"default_step_lib_source,omitempty" yaml:"default_step_lib_source,omitempty"`
	ProjectType          string                 `json:"project_type,omitempty" yaml:"project_type,omitempty"`
	App                  App                    `json:"app" yaml:"app,omitempty"`
	Meta                 map[string]any         `json:"meta,omitempty" yaml:"meta,omitempty"`
	Containers           map[string]any         `json:"containers,omitempty" yaml:"containers,omitempty"`
	StepBundles          OrderedMap[StepBundle] `json:"step_bundles" yaml:"step_bundles,omitempty"`
	Pipelines            OrderedMap[Pipeline]   `json:"pipelines" yaml:"pipelines,omitempty"`
	Stages               OrderedMap[Stage]      `json:"stages" yaml:"stages,omitempty"`
	Workflows            Workflows              `json:"workflows" yaml:"workflows,omitempty"`
	TriggerMap           []TriggerMapItem       `json:"trigger_map,omitempty" yaml:"trigger_map,omitempty"`
}

// App holds project-level settings.
type App struct {
	Title       string           `json:"title,omitempty" yaml:"title,omitempty"`
	Summary     string           `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Envs        []map[string]any `json:"envs,omitempty" yaml:"envs,omitempty"`
}

// Workflows maps workflow id to definition in document order.
type Workflows = OrderedMap[Workflow]

// Workflow is one entry of the workflows map.
type Workflow struct {
	Title       string           `json:"title,omitempty" yaml:"title,omitempty"`
	Summary     string           `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	BeforeRun   []string         `json:"before_run,omitempty" yaml:"before_run,omitempty"`
	AfterRun    []string         `json:"after_run,omitempty" yaml:"after_run,omitempty"`
	Steps       []map[string]any `json:"steps,omitempty" yaml:"steps,omitempty"`
	Envs        []map[string]any `json:"envs,omitempty" yaml:"envs,omitempty"`
	Meta        map[string]any   `json:"meta,omitempty" yaml:"meta,omitempty"`
	Triggers    map[string]any   `json:"triggers,omitempty" yaml:"triggers,omitempty"`
}

// Chain returns the before_run or after_run list for placement.
func (w Workflow) Chain(p Placement) []string {
	if p == PlacementBeforeRun {
		return w.BeforeRun
	}
	return w.AfterRun
}

// StepBundle is a reusable list of steps.
type StepBundle struct {
	Title string           `json:"title,omitempty" yaml:"title,omitempty"`
	Steps []map[string]any `json:"steps,omitempty" yaml:"steps,omitempty"`
	Envs  []map[string]any `json:"envs,omitempty" yaml:"envs,omitempty"`
}

// Stage is a shared, named list of workflows that pipelines reference by id.
type Stage struct {
	Title           string             `json:"title,omitempty" yaml:"title,omitempty"`
	Summary         string             `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description     string             `json:"description,omitempty" yaml:"description,omitempty"`
	AbortOnFail     *bool              `json:"abort_on_fail,omitempty" yaml:"abort_on_fail,omitempty"`
	ShouldAlwaysRun *bool              `json:"should_always_run,omitempty" yaml:"should_always_run,omitempty"`
	Workflows       []StageWorkflowRef `json:"workflows,omitempty" yaml:"workflows,omitempty"`
}

// StageWorkflowRef is one "- wf_id: {run_if: ...}" entry of a stage.
type StageWorkflowRef struct {
	ID    string `json:"id"`
	RunIf string `json:"run_if,omitempty"`
}

// UnmarshalYAML accepts both "- wf" and "- wf: {run_if: ...}".
func (r *StageWorkflowRef) UnmarshalYAML(n *yaml.Node) error {
	id, body, err := singleKeyEntry(n)
	if err != nil {
		return err
	}
	r.ID = id
	if body != nil {
		var o struct {
			RunIf string `yaml:"run_if"`
		}
		if err := body.Decode(&o); err != nil {
			return fmt.Errorf("stage workflow %q: %w", id, err)
		}
		r.RunIf = o.RunIf
	}
	return nil
}

// Pipeline is one entry of the pipelines map.
type Pipeline struct {
	Title       string             `json:"title,omitempty" yaml:"title,omitempty"`
	Summary     string             `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Stages      []PipelineStageRef `json:"stages,omitempty" yaml:"stages,omitempty"`
	Workflows   map[string]any     `json:"workflows,omitempty" yaml:"workflows,omitempty"`
	Triggers    map[string]any     `json:"triggers,omitempty" yaml:"triggers,omitempty"`
}

// PipelineStageRef is one "- stage_id: {overrides}" entry of a pipeline.
type PipelineStageRef struct {
	ID        string         `json:"id"`
	Overrides map[string]any `json:"overrides,omitempty"`
}

// UnmarshalYAML accepts both "- stage" and "- stage: {...}".
func (r *PipelineStageRef) UnmarshalYAML(n *yaml.Node) error {
	id, body, err := singleKeyEntry(n)
	if err != nil {
		return err
	}
	r.ID = id
	if body != nil && body.Kind == yaml.MappingNode {
		if err := body.Decode(&r.Overrides); err != nil {
			return fmt.Errorf("pipeline stage %q: %w", id, err)
		}
	}
	return nil
}

// TriggerMapItem is a legacy trigger bound to a workflow or pipeline.
type TriggerMapItem struct {
	Workflow                string `json:"workflow,omitempty" yaml:"workflow,omitempty"`
	Pipeline                string `json:"pipeline,omitempty" yaml:"pipeline,omitempty"`
	Type                    string `json:"type,omitempty" yaml:"type,omitempty"`
	PushBranch              string `json:"push_branch,omitempty" yaml:"push_branch,omitempty"`
	PullRequestSourceBranch string `json:"pull_request_source_branch,omitempty" yaml:"pull_request_source_branch,omitempty"`
	PullRequestTargetBranch string `json:"pull_request_target_branch,omitempty" yaml:"pull_request_target_branch,omitempty"`
	Tag                     string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Pattern                 string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	IsPullRequestAllowed    *bool  `json:"is_pull_request_allowed,omitempty" yaml:"is_pull_request_allowed,omitempty"`
	Enabled                 *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// Target returns the workflow or pipeline id the item runs.
func (t TriggerMapItem) Target() string {
	if t.Pipeline != "" {
		return t.Pipeline
	}
	return t.Workflow
}

// singleKeyEntry splits a list entry of the form "id" or "id: body".
func singleKeyEntry(n *yaml.Node) (string, *yaml.Node, error) {
	for n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Value, nil, nil
	case yaml.MappingNode:
		if len(n.Content) < 2 {
			return "", nil, fmt.Errorf("line %d: empty entry", n.Line)
		}
		body := n.Content[1]
		if body.Kind == yaml.ScalarNode && body.Tag == "!!null" {
			body = nil
		}
		return n.Content[0].Value, body, nil
	}
	return "", nil, fmt.Errorf("line %d: expected an id or a single-key mapping", n.Line)
}
