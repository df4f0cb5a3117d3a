package document

import (
	"fmt"

	"github.com/soochol/appcfg/internal/appcfg"
	"github.com/soochol/appcfg/internal/dag"
	"github.com/soochol/appcfg/internal/yamldoc"
	"gopkg.in/yaml.v3"
)

func workflowPath(id string) yamldoc.Path { return yamldoc.P(appcfg.KeyWorkflows, id) }

// CreateWorkflow adds a workflow. With a baseID naming an existing workflow
// the new one starts as a deep copy of it, otherwise it is empty.
func CreateWorkflow(id, baseID string) Mutator {
	return func(d *yamldoc.Document) error {
		if err := checkNewID("workflow", id, ids(d, appcfg.KeyWorkflows), appcfg.ValidateWorkflowName); err != nil {
			return err
		}
		body := yamldoc.NewMap()
		if baseID != "" {
			if base := d.Get(workflowPath(baseID)); yamldoc.IsMap(base) {
				body = yamldoc.CloneNode(base)
			}
		}
		workflows, err := d.GetOrCreateMap(yamldoc.P(appcfg.KeyWorkflows))
		if err != nil {
			return err
		}
		yamldoc.MapSet(workflows, id, body)
		return nil
	}
}

// RenameWorkflow renames a workflow and rewrites every reference to it:
// chains, stage entries, inline pipeline stage overrides, graph pipeline
// workflows with their depends_on lists, and trigger_map entries.
func RenameWorkflow(oldID, newID string) Mutator {
	return func(d *yamldoc.Document) error {
		if !workflowExists(d, oldID) {
			return appcfg.WorkflowNotFound(oldID)
		}
		if oldID == newID {
			return nil
		}
		workflows := d.GetMap(yamldoc.P(appcfg.KeyWorkflows))
		if err := checkNewID("workflow", newID, yamldoc.MapKeys(workflows), appcfg.ValidateWorkflowName); err != nil {
			return err
		}
		yamldoc.MapRenameKey(workflows, oldID, newID)

		rename := func(list *yaml.Node) {
			if !yamldoc.IsSeq(list) {
				return
			}
			list = yamldoc.Resolve(list)
			for i := range list.Content {
				renameEntry(list, i, oldID, newID)
			}
		}
		for _, id := range yamldoc.MapKeys(workflows) {
			wf := yamldoc.MapGet(workflows, id)
			for _, p := range appcfg.Placements {
				rename(yamldoc.MapGet(wf, string(p)))
			}
		}
		for _, stID := range ids(d, appcfg.KeyStages) {
			rename(d.Get(stagePath(stID).Append(appcfg.KeyWorkflows)))
		}
		forEachPipelineStage(d, func(_ string, list *yaml.Node, i int) {
			for _, override := range entryBodies(list.Content[i]) {
				rename(yamldoc.MapGet(override, appcfg.KeyWorkflows))
			}
		})
		for _, plID := range ids(d, appcfg.KeyPipelines) {
			graph := d.GetMap(pipelinePath(plID).Append(appcfg.KeyWorkflows))
			yamldoc.MapRenameKey(graph, oldID, newID)
			for _, id := range yamldoc.MapKeys(graph) {
				rename(yamldoc.MapGet(yamldoc.MapGet(graph, id), dependsOnKey))
			}
		}
		for _, item := range triggerMapItems(d) {
			if v := yamldoc.MapGet(item, workflowKey); v != nil && v.Value == oldID {
				yamldoc.MapSet(item, workflowKey, yamldoc.NewString(newID))
			}
		}
		return nil
	}
}

func chainPath(parentID string, p appcfg.Placement) yamldoc.Path {
	return workflowPath(parentID).Append(string(p))
}

// AddChainedWorkflow inserts chainedID into parentID's before_run or
// after_run list at index; an out of range index appends. It fails with a
// CycleError when chainedID already runs parentID.
func AddChainedWorkflow(chainedID, parentID string, placement appcfg.Placement, index int) Mutator {
	return func(d *yamldoc.Document) error {
		if !placement.Valid() {
			return fmt.Errorf("unknown chain placement %q", placement)
		}
		if _, err := workflow(d, parentID); err != nil {
			return err
		}
		if !workflowExists(d, chainedID) {
			return appcfg.WorkflowNotFound(chainedID)
		}
		cfg, err := appcfg.FromDocument(d)
		if err != nil {
			return err
		}
		if !dag.CanChain(&cfg.Workflows, parentID, chainedID) {
			return &appcfg.CycleError{Parent: parentID, Chained: chainedID}
		}
		list, err := d.GetOrCreateSeq(chainPath(parentID, placement))
		if err != nil {
			return err
		}
		if index < 0 || index > len(list.Content) {
			index = len(list.Content)
		}
		yamldoc.SeqInsert(list, index, yamldoc.NewString(chainedID))
		return nil
	}
}

// SetChainedWorkflows replaces parentID's before_run or after_run list. An
// empty chained removes the list. A missing parent is left alone.
func SetChainedWorkflows(parentID string, placement appcfg.Placement, chained []string) Mutator {
	return func(d *yamldoc.Document) error {
		if !placement.Valid() {
			return fmt.Errorf("unknown chain placement %q", placement)
		}
		if !workflowExists(d, parentID) {
			return nil
		}
		if len(chained) == 0 {
			d.Delete(chainPath(parentID, placement))
			return nil
		}
		return d.Set(chainPath(parentID, placement), yamldoc.NewStringSeq(chained))
	}
}

// DeleteChainedWorkflow removes the entry at index from parentID's
// before_run or after_run list and drops the emptied list. It does nothing
// when the parent, the list or the index does not exist.
func DeleteChainedWorkflow(index int, parentID string, placement appcfg.Placement) Mutator {
	return func(d *yamldoc.Document) error {
		if !placement.Valid() {
			return nil
		}
		list := d.GetSeq(chainPath(parentID, placement))
		if list == nil || index < 0 || index >= len(list.Content) {
			return nil
		}
		d.DeleteIn(chainPath(parentID, placement).Append(index), workflowPath(parentID))
		return nil
	}
}
