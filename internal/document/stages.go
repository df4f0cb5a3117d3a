package document

import (
	"github.com/soochol/appcfg/internal/appcfg"
	"github.com/soochol/appcfg/internal/yamldoc"
	"gopkg.in/yaml.v3"
)

func stagePath(id string) yamldoc.Path { return yamldoc.P(appcfg.KeyStages, id) }

// CreateStage adds an empty stage.
func CreateStage(id string) Mutator {
	return func(d *yamldoc.Document) error {
		existing := ids(d, appcfg.KeyStages)
		if err := checkNewID("stage", id, existing, appcfg.ValidateStageName); err != nil {
			return err
		}
		stages, err := d.GetOrCreateMap(yamldoc.P(appcfg.KeyStages))
		if err != nil {
			return err
		}
		yamldoc.MapSet(stages, id, yamldoc.NewMap())
		return nil
	}
}

// RenameStage renames a stage and every pipeline entry that references it.
func RenameStage(oldID, newID string) Mutator {
	return func(d *yamldoc.Document) error {
		stages := d.GetMap(yamldoc.P(appcfg.KeyStages))
		if !yamldoc.MapHas(stages, oldID) {
			return appcfg.NotFound("stage", oldID)
		}
		if err := checkNewID("stage", newID, yamldoc.MapKeys(stages), appcfg.ValidateStageName); err != nil {
			return err
		}
		yamldoc.MapRenameKey(stages, oldID, newID)
		forEachPipelineStage(d, func(_ string, list *yaml.Node, i int) {
			renameEntry(list, i, oldID, newID)
		})
		return nil
	}
}

// DeleteStage removes a stage and its entries in pipeline stage lists.
// Emptied lists and sections are dropped. Deleting a missing stage is a no-op.
func DeleteStage(id string) Mutator {
	return func(d *yamldoc.Document) error {
		stages := d.GetMap(yamldoc.P(appcfg.KeyStages))
		if !yamldoc.MapDelete(stages, id) {
			return nil
		}
		for _, plID := range ids(d, appcfg.KeyPipelines) {
			path := pipelinePath(plID).Append(stagesKey)
			list := d.GetSeq(path)
			if list == nil {
				continue
			}
			if yamldoc.SeqFilter(list, func(n *yaml.Node) bool { return entryKey(n) != id }) > 0 && yamldoc.IsEmpty(list) {
				d.Delete(path)
			}
		}
		pruneTopLevel(d, appcfg.KeyStages)
		return nil
	}
}

// AddStageWorkflow inserts a "workflowID: {}" entry into a stage at index.
func AddStageWorkflow(stageID, workflowID string, index int) Mutator {
	return func(d *yamldoc.Document) error {
		if !d.Has(stagePath(stageID)) {
			return appcfg.NotFound("stage", stageID)
		}
		if !workflowExists(d, workflowID) {
			return appcfg.WorkflowNotFound(workflowID)
		}
		list, err := d.GetOrCreateSeq(stagePath(stageID).Append(appcfg.KeyWorkflows))
		if err != nil {
			return err
		}
		yamldoc.SeqInsert(list, index, singleEntry(workflowID))
		return nil
	}
}

// RemoveStageWorkflow removes the workflow entry at index from a stage and
// drops the emptied list. The stage itself is kept.
func RemoveStageWorkflow(stageID string, index int) Mutator {
	return func(d *yamldoc.Document) error {
		list := d.GetSeq(stagePath(stageID).Append(appcfg.KeyWorkflows))
		if index < 0 || index >= yamldoc.Len(list) {
			return &appcfg.IndexOutOfBoundsError{What: "Workflow not found in Stage '" + stageID + "'", Index: index, Len: yamldoc.Len(list)}
		}
		d.DeleteIn(stagePath(stageID).Append(appcfg.KeyWorkflows, index), stagePath(stageID))
		return nil
	}
}

// checkNewID validates a new entity id and reports duplicates as conflicts.
func checkNewID(kind, id string, existing []string, validate func(string, []string) (bool, string)) error {
	for _, e := range existing {
		if e == id {
			return &appcfg.ConflictError{Kind: kind, ID: id}
		}
	}
	return appcfg.NameError(validate(id, existing))
}

// renameEntry renames the list entry at i when it is keyed oldID.
func renameEntry(list *yaml.Node, i int, oldID, newID string) {
	n := yamldoc.Resolve(list.Content[i])
	switch n.Kind {
	case yaml.MappingNode:
		yamldoc.MapRenameKey(n, oldID, newID)
	case yaml.ScalarNode:
		if n.Value == oldID {
			n.Value = newID
			n.Tag = "!!str"
		}
	}
}
