package appcfg

import (
	"errors"
	"fmt"
)

// ScopeError reports a scoped operation called without its scope id.
type ScopeError struct {
	Scope Scope
}

func (e *ScopeError) Error() string {
	if e.Scope == ScopeContainer {
		return "sourceId is required when source is Containers"
	}
	return "sourceId is required when source is Workflows"
}

// NotFoundError reports a directly addressed entity or section that does not
// exist. Graph queries never return it; they skip dangling ids.
type NotFoundError struct {
	Kind string // e.g. "workflow", "stage", "envs", "step"
	ID   string
	msg  string
}

func (e *NotFoundError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// WorkflowNotFound returns the error for a missing workflow id.
func WorkflowNotFound(id string) *NotFoundError {
	return &NotFoundError{
		Kind: "workflow",
		ID:   id,
		msg:  fmt.Sprintf("Workflow %s not found. Ensure that the workflow exists in the 'workflows' section.", id),
	}
}

// ContainerNotFound returns the error for a missing container id.
func ContainerNotFound(id string) *NotFoundError {
	return &NotFoundError{
		Kind: "container",
		ID:   id,
		msg:  fmt.Sprintf("Container '%s' not found. Ensure that the container exists in the 'containers' section.", id),
	}
}

// NotFound returns a NotFoundError with the default message.
func NotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// MissingEnvsSection returns the error for an absent envs list.
func MissingEnvsSection(scope Scope, id string) *NotFoundError {
	switch scope {
	case ScopeProject:
		return &NotFoundError{Kind: "envs", msg: "The 'app.envs' section doesn't exist"}
	case ScopeContainer:
		return &NotFoundError{Kind: "envs", ID: id, msg: fmt.Sprintf("Container '%s' doesn't have an 'envs' section", id)}
	}
	return &NotFoundError{Kind: "envs", ID: id, msg: fmt.Sprintf("Workflow '%s' doesn't have an 'envs' section", id)}
}

// MissingAppSection returns the error for a document without an app section.
func MissingAppSection() *NotFoundError {
	return &NotFoundError{Kind: "app", msg: "The 'app' section is not found"}
}

// SourceNotFound returns the error for a missing workflow or step bundle
// addressed as "<source>.<id>".
func SourceNotFound(source, id string) *NotFoundError {
	return &NotFoundError{Kind: source, ID: id, msg: fmt.Sprintf("%s.%s not found", source, id)}
}

// StepNotFound returns the error for a step index that holds no step.
func StepNotFound(source, id string, index int) *NotFoundError {
	return &NotFoundError{
		Kind: "step",
		ID:   fmt.Sprintf("%s.%s.steps.%d", source, id, index),
		msg:  fmt.Sprintf("Step at index %d not found in %s.%s", index, source, id),
	}
}

// IndexOutOfBoundsError reports a positional operation past the end of its
// container.
type IndexOutOfBoundsError struct {
	What  string // what was looked up, e.g. "Project-level environment variable not found"
	Index int
	Len   int
}

func (e *IndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("%s, index %d is out of bounds", e.What, e.Index)
}

// EnvVarIndexError returns the out-of-bounds error for an env var lookup.
func EnvVarIndexError(scope Scope, id string, index, length int) *IndexOutOfBoundsError {
	what := "Project-level environment variable not found"
	switch scope {
	case ScopeWorkflow:
		what = fmt.Sprintf("Environment variable not found in Workflow '%s'", id)
	case ScopeContainer:
		what = fmt.Sprintf("Environment variable not found in Container '%s'", id)
	}
	return &IndexOutOfBoundsError{What: what, Index: index, Len: length}
}

// KeyMismatchError reports a key-guarded operation whose element no longer
// has the expected key.
type KeyMismatchError struct {
	Expected string
	Actual   string
}

func (e *KeyMismatchError) Error() string {
	return fmt.Sprintf("Environment variable key is not matching %q", e.Expected)
}

// LengthMismatchError reports a reorder permutation of the wrong length.
type LengthMismatchError struct {
	Got  int
	Want int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("The number of indices (%d) should match the number of environment variables (%d)", e.Got, e.Want)
}

// ConflictError reports a create or rename onto an id that already exists.
type ConflictError struct {
	Kind string
	ID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.ID)
}

// CycleError reports a chain edit that would make a workflow run itself.
type CycleError struct {
	Parent  string
	Chained string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("chaining %q into %q would create a cycle", e.Chained, e.Parent)
}

// ErrInvalidName is wrapped by name validation failures surfaced as errors.
var ErrInvalidName = errors.New("invalid name")
