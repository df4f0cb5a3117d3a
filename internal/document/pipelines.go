package document

import (
	"github.com/soochol/appcfg/internal/appcfg"
	"github.com/soochol/appcfg/internal/yamldoc"
	"gopkg.in/yaml.v3"
)

const (
	stagesKey   = "stages"
	pipelineKey = "pipeline"
	workflowKey = "workflow"
)

func pipelinePath(id string) yamldoc.Path { return yamldoc.P(appcfg.KeyPipelines, id) }

// forEachPipelineStage calls fn for every entry of every pipeline's stages
// list.
func forEachPipelineStage(d *yamldoc.Document, fn func(pipelineID string, list *yaml.Node, i int)) {
	for _, plID := range ids(d, appcfg.KeyPipelines) {
		list := d.GetSeq(pipelinePath(plID).Append(stagesKey))
		if list == nil {
			continue
		}
		for i := range list.Content {
			fn(plID, list, i)
		}
	}
}

// CreatePipeline adds a pipeline, copying baseID when it names an existing
// pipeline.
func CreatePipeline(id, baseID string) Mutator {
	return func(d *yamldoc.Document) error {
		if err := checkNewID("pipeline", id, ids(d, appcfg.KeyPipelines), appcfg.ValidatePipelineName); err != nil {
			return err
		}
		body := yamldoc.NewMap()
		if baseID != "" {
			if base := d.Get(pipelinePath(baseID)); yamldoc.IsMap(base) {
				body = yamldoc.CloneNode(base)
			}
		}
		pipelines, err := d.GetOrCreateMap(yamldoc.P(appcfg.KeyPipelines))
		if err != nil {
			return err
		}
		yamldoc.MapSet(pipelines, id, body)
		return nil
	}
}

// RenamePipeline renames a pipeline and the trigger_map entries that run it.
func RenamePipeline(oldID, newID string) Mutator {
	return func(d *yamldoc.Document) error {
		pipelines := d.GetMap(yamldoc.P(appcfg.KeyPipelines))
		if !yamldoc.MapHas(pipelines, oldID) {
			return appcfg.NotFound("pipeline", oldID)
		}
		if err := checkNewID("pipeline", newID, yamldoc.MapKeys(pipelines), appcfg.ValidatePipelineName); err != nil {
			return err
		}
		yamldoc.MapRenameKey(pipelines, oldID, newID)
		for _, item := range triggerMapItems(d) {
			if v := yamldoc.MapGet(item, pipelineKey); v != nil && v.Value == oldID {
				yamldoc.MapSet(item, pipelineKey, yamldoc.NewString(newID))
			}
		}
		return nil
	}
}

// DeletePipeline removes a pipeline and the trigger_map entries that run it.
// Deleting a missing pipeline is a no-op.
func DeletePipeline(id string) Mutator {
	return func(d *yamldoc.Document) error {
		if !yamldoc.MapDelete(d.GetMap(yamldoc.P(appcfg.KeyPipelines)), id) {
			return nil
		}
		removeTriggerMapItems(d, pipelineKey, id)
		pruneTopLevel(d, appcfg.KeyPipelines)
		return nil
	}
}

// AddPipelineStage inserts a "stageID: {}" entry into a pipeline at index.
func AddPipelineStage(pipelineID, stageID string, index int) Mutator {
	return func(d *yamldoc.Document) error {
		if !d.Has(pipelinePath(pipelineID)) {
			return appcfg.NotFound("pipeline", pipelineID)
		}
		if !d.Has(stagePath(stageID)) {
			return appcfg.NotFound("stage", stageID)
		}
		list, err := d.GetOrCreateSeq(pipelinePath(pipelineID).Append(stagesKey))
		if err != nil {
			return err
		}
		yamldoc.SeqInsert(list, index, singleEntry(stageID))
		return nil
	}
}

// RemovePipelineStage removes the stage entry at index from a pipeline and
// drops the emptied list. The pipeline itself is kept.
func RemovePipelineStage(pipelineID string, index int) Mutator {
	return func(d *yamldoc.Document) error {
		path := pipelinePath(pipelineID).Append(stagesKey)
		n := yamldoc.Len(d.GetSeq(path))
		if index < 0 || index >= n {
			return &appcfg.IndexOutOfBoundsError{What: "Stage not found in Pipeline '" + pipelineID + "'", Index: index, Len: n}
		}
		d.DeleteIn(path.Append(index), pipelinePath(pipelineID))
		return nil
	}
}
