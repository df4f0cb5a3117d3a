package document

import (
	"github.com/soochol/appcfg/internal/appcfg"
	"github.com/soochol/appcfg/internal/yamldoc"
	"gopkg.in/yaml.v3"
)

const dependsOnKey = "depends_on"

// DeleteWorkflow removes a workflow and every reference to it, across the
// whole document:
//
//   - ids in other workflows' before_run and after_run lists;
//   - entries in stage workflow lists; a stage emptied this way is removed;
//   - entries in inline pipeline stage overrides; a pipeline stage entry is
//     dropped when this removal deleted its stage, or emptied its override
//     and its stage does not exist;
//   - the workflow in graph pipelines' workflows maps and depends_on lists;
//   - trigger_map items with workflow: id, and items running a pipeline
//     that the cascade emptied and removed.
//
// Lists, maps and sections emptied by the removal are deleted. A missing
// workflow is a no-op.
func DeleteWorkflow(id string) Mutator {
	return func(d *yamldoc.Document) error {
		workflows := d.GetMap(yamldoc.P(appcfg.KeyWorkflows))
		if !yamldoc.MapDelete(workflows, id) {
			return nil
		}
		removeFromChains(workflows, id)
		emptied := removeFromStages(d, id)
		for _, plID := range removeFromPipelines(d, id, emptied) {
			removeTriggerMapItems(d, pipelineKey, plID)
		}
		removeTriggerMapItems(d, workflowKey, id)
		pruneTopLevel(d, appcfg.KeyWorkflows, appcfg.KeyStages, appcfg.KeyPipelines)
		return nil
	}
}

// DeleteWorkflows deletes each workflow in turn.
func DeleteWorkflows(ids ...string) Mutator {
	fns := make([]Mutator, len(ids))
	for i, id := range ids {
		fns[i] = DeleteWorkflow(id)
	}
	return Chain(fns...)
}

// filterList drops the entries of list that reference id, either as a bare
// scalar or as a key of a mapping entry. A mapping entry left empty is
// dropped. It reports whether anything was removed.
func filterList(list *yaml.Node, id string) bool {
	if !yamldoc.IsSeq(list) {
		return false
	}
	removed := false
	yamldoc.SeqFilter(list, func(n *yaml.Node) bool {
		n = yamldoc.Resolve(n)
		switch n.Kind {
		case yaml.ScalarNode:
			if n.Value == id {
				removed = true
				return false
			}
		case yaml.MappingNode:
			if yamldoc.MapDelete(n, id) {
				removed = true
				return len(n.Content) > 0
			}
		}
		return true
	})
	return removed
}

// filterKey applies filterList to m[key] and deletes the key when the list
// was emptied.
func filterKey(m *yaml.Node, key, id string) bool {
	list := yamldoc.MapGet(m, key)
	if !filterList(list, id) {
		return false
	}
	if yamldoc.IsEmpty(list) {
		yamldoc.MapDelete(m, key)
	}
	return true
}

func removeFromChains(workflows *yaml.Node, id string) {
	for _, wfID := range yamldoc.MapKeys(workflows) {
		wf := yamldoc.MapGet(workflows, wfID)
		if !yamldoc.IsMap(wf) {
			continue
		}
		for _, p := range appcfg.Placements {
			filterKey(wf, string(p), id)
		}
	}
}

// removeFromStages returns the ids of the stages it emptied and removed.
func removeFromStages(d *yamldoc.Document, id string) map[string]bool {
	removed := make(map[string]bool)
	stages := d.GetMap(yamldoc.P(appcfg.KeyStages))
	for _, stID := range yamldoc.MapKeys(stages) {
		st := yamldoc.MapGet(stages, stID)
		if filterKey(st, appcfg.KeyWorkflows, id) && yamldoc.IsEmpty(st) {
			yamldoc.MapDelete(stages, stID)
			removed[stID] = true
		}
	}
	return removed
}

// entryBodies returns the mapping values of a single-key list entry such as
// "- stage: {workflows: [...]}".
func entryBodies(n *yaml.Node) []*yaml.Node {
	n = yamldoc.Resolve(n)
	if n.Kind != yaml.MappingNode {
		return nil
	}
	var out []*yaml.Node
	for i := 1; i < len(n.Content); i += 2 {
		if yamldoc.IsMap(n.Content[i]) {
			out = append(out, yamldoc.Resolve(n.Content[i]))
		}
	}
	return out
}

// removeFromPipelines returns the ids of the pipelines it removed.
// removedStages holds the stages this removal deleted.
func removeFromPipelines(d *yamldoc.Document, id string, removedStages map[string]bool) []string {
	stageIDs := ids(d, appcfg.KeyStages)
	hasStage := func(s string) bool {
		for _, st := range stageIDs {
			if st == s {
				return true
			}
		}
		return false
	}

	var removed []string
	pipelines := d.GetMap(yamldoc.P(appcfg.KeyPipelines))
	for _, plID := range yamldoc.MapKeys(pipelines) {
		pl := yamldoc.MapGet(pipelines, plID)
		if !yamldoc.IsMap(pl) {
			continue
		}
		changed := removeFromPipelineStages(yamldoc.MapGet(pl, stagesKey), id, removedStages, hasStage)
		if changed && yamldoc.IsEmpty(yamldoc.MapGet(pl, stagesKey)) {
			yamldoc.MapDelete(pl, stagesKey)
		}
		if removeFromGraph(pl, id) {
			changed = true
		}
		if changed && yamldoc.IsEmpty(pl) {
			yamldoc.MapDelete(pipelines, plID)
			removed = append(removed, plID)
		}
	}
	return removed
}

// removeFromPipelineStages strips id from inline stage overrides. An entry
// is dropped when its stage is in removedStages, or when its override was
// emptied here and its stage does not exist. Entries this removal did not
// affect are kept even when they name a missing stage.
func removeFromPipelineStages(list *yaml.Node, id string, removedStages map[string]bool, hasStage func(string) bool) bool {
	if !yamldoc.IsSeq(list) {
		return false
	}
	changed := false
	yamldoc.SeqFilter(list, func(n *yaml.Node) bool {
		n = yamldoc.Resolve(n)
		switch n.Kind {
		case yaml.ScalarNode:
			if removedStages[n.Value] {
				changed = true
				return false
			}
		case yaml.MappingNode:
			touched := false
			for _, stID := range yamldoc.MapKeys(n) {
				override := yamldoc.MapGet(n, stID)
				stripped := yamldoc.IsMap(override) && filterKey(override, appcfg.KeyWorkflows, id)
				if stripped {
					changed = true
				}
				if !yamldoc.IsEmpty(override) {
					continue
				}
				if removedStages[stID] || (stripped && !hasStage(stID)) {
					yamldoc.MapDelete(n, stID)
					touched = true
				}
			}
			if touched {
				changed = true
				return len(n.Content) > 0
			}
		}
		return true
	})
	return changed
}

// removeFromGraph removes id from a graph pipeline's workflows map and from
// the depends_on lists of the remaining graph workflows.
func removeFromGraph(pl *yaml.Node, id string) bool {
	graph := yamldoc.MapGet(pl, appcfg.KeyWorkflows)
	if !yamldoc.IsMap(graph) {
		return false
	}
	changed := yamldoc.MapDelete(graph, id)
	for _, wfID := range yamldoc.MapKeys(graph) {
		if body := yamldoc.MapGet(graph, wfID); yamldoc.IsMap(body) && filterKey(body, dependsOnKey, id) {
			changed = true
		}
	}
	if changed && yamldoc.IsEmpty(graph) {
		yamldoc.MapDelete(pl, appcfg.KeyWorkflows)
	}
	return changed
}
