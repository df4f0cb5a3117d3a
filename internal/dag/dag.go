// Package dag answers graph queries over the workflow chain relation
// (before_run/after_run) and the pipeline, stage and workflow containment
// relation. All functions are read-only.
package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/soochol/appcfg/internal/appcfg"
)

// ErrCycle is wrapped by HasCycle when a workflow can reach itself.
var ErrCycle = errors.New("cycle detected in workflow chain")

// walker expands chains while tracking the ids on the current expansion path.
// An id already on the path is not entered again, so cyclic chains terminate.
type walker struct {
	workflows *appcfg.Workflows
	path      []string
}

func (w *walker) enter(id string) bool {
	if slices.Contains(w.path, id) {
		return false
	}
	w.path = append(w.path, id)
	return true
}

func (w *walker) leave() { w.path = w.path[:len(w.path)-1] }

func (w *walker) chain(id string, p appcfg.Placement) []string {
	wf, ok := w.workflows.Get(id)
	if !ok {
		return nil
	}
	var out []string
	for _, ref := range wf.Chain(p) {
		if !w.workflows.Has(ref) || !w.enter(ref) {
			continue
		}
		out = append(out, w.chain(ref, appcfg.PlacementBeforeRun)...)
		out = append(out, ref)
		out = append(out, w.chain(ref, appcfg.PlacementAfterRun)...)
		w.leave()
	}
	return out
}

func newWalker(workflows *appcfg.Workflows, id string) *walker {
	return &walker{workflows: workflows, path: []string{id}}
}

// BeforeRunChain returns every workflow run before id, expanded recursively in
// run order. Ids that do not exist are skipped.
func BeforeRunChain(workflows *appcfg.Workflows, id string) []string {
	return newWalker(workflows, id).chain(id, appcfg.PlacementBeforeRun)
}

// AfterRunChain is the after_run mirror of BeforeRunChain.
func AfterRunChain(workflows *appcfg.Workflows, id string) []string {
	return newWalker(workflows, id).chain(id, appcfg.PlacementAfterRun)
}

// WorkflowChain returns the full run order of id: its before_run chain, id
// itself, then its after_run chain. It is empty when id does not exist.
func WorkflowChain(workflows *appcfg.Workflows, id string) []string {
	if !workflows.Has(id) {
		return []string{}
	}
	w := newWalker(workflows, id)
	out := w.chain(id, appcfg.PlacementBeforeRun)
	out = append(out, id)
	return append(out, w.chain(id, appcfg.PlacementAfterRun)...)
}

// AllWorkflowChains returns the chain of every workflow.
func AllWorkflowChains(workflows *appcfg.Workflows) map[string][]string {
	chains := make(map[string][]string, workflows.Len())
	for _, id := range workflows.Keys() {
		chains[id] = WorkflowChain(workflows, id)
	}
	return chains
}

// UsedBy returns, in document order, every other workflow that runs id
// directly or through its chains.
func UsedBy(workflows *appcfg.Workflows, id string) []string {
	out := []string{}
	for _, wfID := range workflows.Keys() {
		if wfID != id && slices.Contains(WorkflowChain(workflows, wfID), id) {
			out = append(out, wfID)
		}
	}
	return out
}

// Chainable returns the workflows that can be added to id's chains without
// creating a cycle, in document order. id itself is never chainable.
func Chainable(workflows *appcfg.Workflows, id string) []string {
	out := []string{}
	for _, wfID := range workflows.Keys() {
		if !slices.Contains(WorkflowChain(workflows, wfID), id) {
			out = append(out, wfID)
		}
	}
	return out
}

// CanChain reports whether chained may be added to parent's chains.
func CanChain(workflows *appcfg.Workflows, parent, chained string) bool {
	return workflows.Has(chained) && !slices.Contains(WorkflowChain(workflows, chained), parent)
}

// UsedByText summarizes a UsedBy result for display.
func UsedByText(usedBy []string) string {
	switch len(usedBy) {
	case 0:
		return "Not used by other Workflow"
	case 1:
		return "Used by 1 Workflow"
	default:
		return fmt.Sprintf("Used by %d Workflows", len(usedBy))
	}
}

// CountInPipelines returns how many pipelines run workflow id, through a
// shared stage, an inline stage override or a graph pipeline's workflows map.
func CountInPipelines(id string, pipelines *appcfg.OrderedMap[appcfg.Pipeline], stages *appcfg.OrderedMap[appcfg.Stage]) int {
	n := 0
	for _, plID := range pipelines.Keys() {
		pl, _ := pipelines.Get(plID)
		if pipelineUses(pl, id, stages) {
			n++
		}
	}
	return n
}

func pipelineUses(pl appcfg.Pipeline, id string, stages *appcfg.OrderedMap[appcfg.Stage]) bool {
	if _, ok := pl.Workflows[id]; ok {
		return true
	}
	for _, ref := range pl.Stages {
		if overrideUses(ref.Overrides, id) {
			return true
		}
		st, ok := stages.Get(ref.ID)
		if !ok {
			continue
		}
		for _, wf := range st.Workflows {
			if wf.ID == id {
				return true
			}
		}
	}
	return false
}

// overrideUses looks through an inline "workflows: [{id: {...}}]" override.
func overrideUses(overrides map[string]any, id string) bool {
	list, _ := overrides[appcfg.KeyWorkflows].([]any)
	for _, item := range list {
		switch v := item.(type) {
		case string:
			if v == id {
				return true
			}
		case map[string]any:
			if _, ok := v[id]; ok {
				return true
			}
		}
	}
	return false
}

// HasCycle returns an error wrapping ErrCycle that names the first cycle found,
// walking workflows in document order.
func HasCycle(workflows *appcfg.Workflows) error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, workflows.Len())
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		state[id] = visiting
		stack = append(stack, id)
		wf, _ := workflows.Get(id)
		for _, p := range appcfg.Placements {
			for _, ref := range wf.Chain(p) {
				if !workflows.Has(ref) {
					continue
				}
				switch state[ref] {
				case visiting:
					start := slices.Index(stack, ref)
					cycle := append(slices.Clone(stack[start:]), ref)
					return fmt.Errorf("%w: %s", ErrCycle, strings.Join(cycle, " -> "))
				case unvisited:
					if err := visit(ref); err != nil {
						return err
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for _, id := range workflows.Keys() {
		if state[id] == unvisited {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}
