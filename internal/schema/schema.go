// Package schema checks the shape of an app config document against an
// embedded JSON schema.
package schema

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"github.com/soochol/appcfg/internal/yamldoc"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed appcfg.schema.json
var schemaJSON []byte

var compiled = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// Problem is one schema violation.
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (p Problem) String() string { return p.Field + ": " + p.Message }

// Validate returns the schema violations of doc, sorted by field. An error is
// returned only when the document cannot be checked at all.
func Validate(doc *yamldoc.Document) ([]Problem, error) {
	s, err := compiled()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	var data map[string]any
	if err := doc.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	result, err := s.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validate document: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	problems := make([]Problem, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, Problem{Field: desc.Field(), Message: desc.Description()})
	}
	sort.SliceStable(problems, func(i, j int) bool { return problems[i].Field < problems[j].Field })
	return problems, nil
}
