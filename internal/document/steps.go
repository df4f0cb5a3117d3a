package document

import (
	"fmt"
	"slices"

	"github.com/soochol/appcfg/internal/appcfg"
	"github.com/soochol/appcfg/internal/yamldoc"
	"gopkg.in/yaml.v3"
)

const (
	stepsKey  = "steps"
	inputsKey = "inputs"
)

func stepsPath(source Source, id string) yamldoc.Path {
	return yamldoc.P(string(source), id, stepsKey)
}

func checkStepSource(source Source) error {
	if source != SourceWorkflows && source != SourceStepBundles {
		return fmt.Errorf("%s have no steps", source)
	}
	return nil
}

// step returns the step list entry at index, a single-key "cvs: {...}" map.
func step(d *yamldoc.Document, source Source, id string, index int) (*yaml.Node, error) {
	if err := checkStepSource(source); err != nil {
		return nil, err
	}
	if _, err := entity(d, source, id); err != nil {
		return nil, err
	}
	n := d.Get(stepsPath(source, id).Append(index))
	if n == nil || !yamldoc.IsMap(n) || yamldoc.Len(n) == 0 {
		return nil, appcfg.StepNotFound(string(source), id, index)
	}
	return n, nil
}

// AddStep inserts a "cvs: {}" step at index, creating the step list. An index
// past the end appends.
func AddStep(source Source, id, cvs string, index int) Mutator {
	return func(d *yamldoc.Document) error {
		if err := checkStepSource(source); err != nil {
			return err
		}
		if _, err := entity(d, source, id); err != nil {
			return err
		}
		steps, err := d.GetOrCreateSeq(stepsPath(source, id))
		if err != nil {
			return err
		}
		yamldoc.SeqInsert(steps, index, singleEntry(cvs))
		return nil
	}
}

// MoveStep moves the step at from so that it ends up at index to.
func MoveStep(source Source, id string, from, to int) Mutator {
	return func(d *yamldoc.Document) error {
		s, err := step(d, source, id, from)
		if err != nil {
			return err
		}
		steps := d.GetSeq(stepsPath(source, id))
		yamldoc.SeqRemove(steps, from)
		yamldoc.SeqInsert(steps, to, s)
		return nil
	}
}

// CloneStep inserts a deep copy of the step at index right after it.
func CloneStep(source Source, id string, index int) Mutator {
	return func(d *yamldoc.Document) error {
		s, err := step(d, source, id, index)
		if err != nil {
			return err
		}
		yamldoc.SeqInsert(d.GetSeq(stepsPath(source, id)), index+1, yamldoc.CloneNode(s))
		return nil
	}
}

// DeleteSteps removes the steps at indices. Indices refer to positions before
// the call. An emptied step list is removed; the owner is kept.
func DeleteSteps(source Source, id string, indices ...int) Mutator {
	return func(d *yamldoc.Document) error {
		sorted := slices.Clone(indices)
		slices.Sort(sorted)
		sorted = slices.Compact(sorted)
		slices.Reverse(sorted)
		for _, i := range sorted {
			if _, err := step(d, source, id, i); err != nil {
				return err
			}
			d.DeleteIn(stepsPath(source, id).Append(i), yamldoc.P(string(source), id))
		}
		return nil
	}
}

// stepData returns the body of a step entry, replacing a null body with an
// empty mapping.
func stepData(s *yaml.Node) *yaml.Node {
	body := s.Content[1]
	if yamldoc.IsMap(body) {
		return yamldoc.Resolve(body)
	}
	if yamldoc.IsEmpty(body) {
		body = yamldoc.NewMap()
		s.Content[1] = body
		return body
	}
	return nil
}

// UpdateStepField sets a top-level field of a step such as title or run_if.
// An empty value removes the field.
func UpdateStepField(source Source, id string, index int, field, value string) Mutator {
	return func(d *yamldoc.Document) error {
		s, err := step(d, source, id, index)
		if err != nil {
			return err
		}
		data := stepData(s)
		if data == nil {
			return nil
		}
		if value == "" {
			yamldoc.MapDelete(data, field)
			return nil
		}
		data.Style &^= yaml.FlowStyle
		yamldoc.MapSet(data, field, yamldoc.ToScalar(value))
		return nil
	}
}

// UpdateStepInput sets one entry of a step's inputs list. An empty value
// removes the entry and drops an emptied inputs list.
func UpdateStepInput(source Source, id string, index int, input, value string) Mutator {
	return func(d *yamldoc.Document) error {
		s, err := step(d, source, id, index)
		if err != nil {
			return err
		}
		data := stepData(s)
		if data == nil {
			return nil
		}
		cvs := entryKey(s)
		dataPath := stepsPath(source, id).Append(index, cvs)
		inputs := yamldoc.MapGet(data, inputsKey)
		at := -1
		if yamldoc.IsSeq(inputs) {
			for i, item := range yamldoc.Resolve(inputs).Content {
				if yamldoc.MapHas(item, input) {
					at = i
					break
				}
			}
		}
		if value == "" {
			if at >= 0 {
				d.DeleteIn(dataPath.Append(inputsKey, at), dataPath)
			}
			return nil
		}
		if at >= 0 {
			yamldoc.MapSet(yamldoc.Resolve(inputs).Content[at], input, yamldoc.ToScalar(value))
			return nil
		}
		data.Style &^= yaml.FlowStyle
		seq, err := d.GetOrCreateSeq(dataPath.Append(inputsKey))
		if err != nil {
			return err
		}
		item := yamldoc.NewMap()
		yamldoc.MapSet(item, input, yamldoc.ToScalar(value))
		yamldoc.SeqInsert(seq, len(seq.Content), item)
		return nil
	}
}
