package document

import (
	"fmt"

	"github.com/soochol/appcfg/internal/appcfg"
	"github.com/soochol/appcfg/internal/yamldoc"
	"gopkg.in/yaml.v3"
)

const (
	triggersKey = "triggers"
	enabledKey  = "enabled"
)

// UpdateTriggersEnabled switches the triggers block of a workflow or pipeline
// on or off. Enabled is the default, so true removes triggers.enabled and an
// emptied triggers map.
func UpdateTriggersEnabled(source Source, id string, enabled bool) Mutator {
	return func(d *yamldoc.Document) error {
		if source != SourceWorkflows && source != SourcePipelines {
			return fmt.Errorf("%s have no triggers", source)
		}
		e, err := entity(d, source, id)
		if err != nil {
			return err
		}
		base := yamldoc.P(string(source), id)
		if enabled {
			d.DeleteIn(base.Append(triggersKey, enabledKey), base)
			return nil
		}
		e.Style &^= yaml.FlowStyle
		triggers, err := d.GetOrCreateMap(base.Append(triggersKey))
		if err != nil {
			return err
		}
		triggers.Style &^= yaml.FlowStyle
		yamldoc.MapSet(triggers, enabledKey, yamldoc.NewBool(false))
		return nil
	}
}

func triggerMapItems(d *yamldoc.Document) []*yaml.Node {
	seq := d.GetSeq(yamldoc.P(appcfg.KeyTriggerMap))
	if seq == nil {
		return nil
	}
	out := make([]*yaml.Node, 0, len(seq.Content))
	for _, it := range seq.Content {
		if yamldoc.IsMap(it) {
			out = append(out, yamldoc.Resolve(it))
		}
	}
	return out
}

// removeTriggerMapItems drops trigger_map entries whose field equals id and
// removes an emptied trigger_map.
func removeTriggerMapItems(d *yamldoc.Document, field, id string) {
	seq := d.GetSeq(yamldoc.P(appcfg.KeyTriggerMap))
	removed := yamldoc.SeqFilter(seq, func(n *yaml.Node) bool {
		return yamldoc.ScalarText(yamldoc.MapGet(n, field)) != id
	})
	if removed > 0 && yamldoc.IsEmpty(seq) {
		d.Delete(yamldoc.P(appcfg.KeyTriggerMap))
	}
}

// AddTriggerMapItem appends a legacy trigger_map entry.
func AddTriggerMapItem(item appcfg.TriggerMapItem) Mutator {
	return func(d *yamldoc.Document) error {
		switch {
		case item.Pipeline != "" && item.Workflow != "":
			return fmt.Errorf("trigger targets both pipeline %q and workflow %q", item.Pipeline, item.Workflow)
		case item.Pipeline != "":
			if !d.Has(pipelinePath(item.Pipeline)) {
				return appcfg.NotFound("pipeline", item.Pipeline)
			}
		case item.Workflow != "":
			if !workflowExists(d, item.Workflow) {
				return appcfg.WorkflowNotFound(item.Workflow)
			}
		default:
			return fmt.Errorf("trigger has no pipeline or workflow")
		}
		var n yaml.Node
		if err := n.Encode(item); err != nil {
			return fmt.Errorf("encode trigger: %w", err)
		}
		seq, err := d.GetOrCreateSeq(yamldoc.P(appcfg.KeyTriggerMap))
		if err != nil {
			return err
		}
		yamldoc.SeqInsert(seq, len(seq.Content), &n)
		return nil
	}
}

// RemoveTriggerMapItem deletes the trigger_map entry at index and removes an
// emptied trigger_map.
func RemoveTriggerMapItem(index int) Mutator {
	return func(d *yamldoc.Document) error {
		n := yamldoc.Len(d.GetSeq(yamldoc.P(appcfg.KeyTriggerMap)))
		if index < 0 || index >= n {
			return &appcfg.IndexOutOfBoundsError{What: "Trigger map item not found", Index: index, Len: n}
		}
		d.DeleteIn(yamldoc.P(appcfg.KeyTriggerMap, index), nil)
		return nil
	}
}
