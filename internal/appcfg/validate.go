package appcfg

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var (
	envKeyRe       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	entityNameRe   = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	sanitizeNameRe = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
)

// ValidateEnvVarKey checks an env var key for a form field. It returns true,
// or false with the message to show.
func ValidateEnvVarKey(key string) (bool, string) {
	if strings.TrimSpace(key) == "" {
		return false, "Key is required"
	}
	if !envKeyRe.MatchString(key) {
		return false, "Key should contain letters, numbers, underscores, should not begin with a number"
	}
	return true, ""
}

// ValidateWorkflowName checks a new workflow id against the naming rules and
// the ids already in use.
func ValidateWorkflowName(name string, existing []string) (bool, string) {
	return validateName("Workflow", "", name, existing)
}

// ValidatePipelineName is ValidateWorkflowName for pipelines.
func ValidatePipelineName(name string, existing []string) (bool, string) {
	return validateName("Pipeline", ".", name, existing)
}

// ValidateStageName is ValidateWorkflowName for stages.
func ValidateStageName(name string, existing []string) (bool, string) {
	return validateName("Stage", ".", name, existing)
}

func validateName(kind, suffix, name string, existing []string) (bool, string) {
	if strings.TrimSpace(name) == "" {
		return false, kind + " name is required" + suffix
	}
	if !entityNameRe.MatchString(name) {
		return false, kind + " name must only contain letters, numbers, dashes, underscores or periods" + suffix
	}
	if slices.Contains(existing, name) {
		return false, kind + " name should be unique" + suffix
	}
	return true, ""
}

// NameError turns a failed name validation into an error wrapping
// ErrInvalidName.
func NameError(ok bool, msg string) error {
	if ok {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidName, msg)
}

// SanitizeName drops the characters an entity id may not contain.
func SanitizeName(s string) string {
	return strings.TrimSpace(sanitizeNameRe.ReplaceAllString(s, ""))
}

// IsUtilityWorkflow reports whether id names a utility workflow, which by
// convention starts with an underscore and is only run through chains.
func IsUtilityWorkflow(id string) bool {
	return strings.HasPrefix(id, "_")
}
