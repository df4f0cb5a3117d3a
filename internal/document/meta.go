package document

import (
	"github.com/soochol/appcfg/internal/appcfg"
	"github.com/soochol/appcfg/internal/yamldoc"
)

const (
	metaKey          = "meta"
	bitriseIOKey     = "bitrise.io"
	stackKey         = "stack"
	machineTypeIDKey = "machine_type_id"
)

// UpdateStackAndMachine overrides the stack and machine type of a workflow
// under meta."bitrise.io". Both empty removes the override and an emptied
// meta. A missing workflow is left alone.
func UpdateStackAndMachine(workflowID, stack, machineTypeID string) Mutator {
	return func(d *yamldoc.Document) error {
		if !workflowExists(d, workflowID) {
			return nil
		}
		wfPath := yamldoc.P(appcfg.KeyWorkflows, workflowID)
		if stack == "" && machineTypeID == "" {
			d.DeleteIn(wfPath.Append(metaKey, bitriseIOKey), wfPath)
			return nil
		}
		override := yamldoc.NewMap()
		if stack != "" {
			yamldoc.MapSet(override, stackKey, yamldoc.NewString(stack))
		}
		if machineTypeID != "" {
			yamldoc.MapSet(override, machineTypeIDKey, yamldoc.NewString(machineTypeID))
		}
		if _, err := workflow(d, workflowID); err != nil {
			return err
		}
		meta, err := d.GetOrCreateMap(wfPath.Append(metaKey))
		if err != nil {
			return err
		}
		yamldoc.MapSet(meta, bitriseIOKey, override)
		return nil
	}
}
