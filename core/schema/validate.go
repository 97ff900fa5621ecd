package schema

import (
	"embed"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// DefinitionSchemaID identifies the JSON schema that collection
// definition payloads are validated against.
const DefinitionSchemaID = "https://apiforge.io/schemas/collection-definition.json"

// Validator validates JSON objects against the embedded schemas.
type Validator struct {
	schemaValidators map[string]*gojsonschema.Schema
}

// NewValidator compiles the embedded JSON schemas. Json files under
// schemas/ are used as toplevel schemas, keyed by their $id.
func NewValidator() (*Validator, error) {
	files, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("cannot read schema dir: %w", err)
	}

	validator := Validator{schemaValidators: make(map[string]*gojsonschema.Schema)}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		str, err := schemaFS.ReadFile("schemas/" + f.Name())
		if err != nil {
			return nil, fmt.Errorf("cannot read schema file '%s': %w", f.Name(), err)
		}
		var s struct {
			ID string `json:"$id"`
		}
		if err := json.Unmarshal(str, &s); err != nil {
			return nil, fmt.Errorf("parse error '%v' in schema: '%s'", err, f.Name())
		}
		if s.ID == "" {
			return nil, fmt.Errorf("schema %s does not contain $id", f.Name())
		}
		schema, err := gojsonschema.NewSchemaLoader().Compile(gojsonschema.NewBytesLoader(str))
		if err != nil {
			return nil, fmt.Errorf("cannot compile schema %s: %w", s.ID, err)
		}
		validator.schemaValidators[s.ID] = schema
	}
	return &validator, nil
}

// HasSchema returns true if schemaID is known
func (v *Validator) HasSchema(schemaID string) bool {
	_, ok := v.schemaValidators[schemaID]
	return ok
}

// ValidateString validates the given json against schemaID. If no error is
// returned, then the passed json is valid.
func (v *Validator) ValidateString(json, schemaID string) error {
	return v.validate(gojsonschema.NewStringLoader(json), schemaID)
}

// ValidateBytes validates the given json document against schemaID.
func (v *Validator) ValidateBytes(json []byte, schemaID string) error {
	return v.validate(gojsonschema.NewBytesLoader(json), schemaID)
}

func (v *Validator) validate(loader gojsonschema.JSONLoader, schemaID string) error {
	schema, ok := v.schemaValidators[schemaID]
	if !ok {
		return fmt.Errorf("there is no schema %s", schemaID)
	}
	result, err := schema.Validate(loader)
	if err != nil {
		return fmt.Errorf("cannot validate with schema %s: %w", schemaID, err)
	}
	if !result.Valid() {
		var problems []string
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return &DefinitionError{Problems: problems}
	}
	return nil
}

// DefinitionError lists the semantic problems of a collection definition.
type DefinitionError struct {
	Problems []string
}

func (e *DefinitionError) Error() string {
	return "invalid collection definition: " + strings.Join(e.Problems, "; ")
}

// ValidateFields checks the semantic rules of a field list that the JSON
// schema cannot express: at least one field, unique names (compared
// case-insensitively), select fields need at least one option, relation
// fields need a target collection and must not point at their own
// collection. ownID is the id of the owning collection, or empty for a
// collection that is still being created.
func ValidateFields(fields []Field, ownID string) error {
	var problems []string
	if len(fields) == 0 {
		problems = append(problems, "a collection needs at least one field")
	}
	seen := map[string]bool{}
	for _, f := range fields {
		if f.Name == "" {
			problems = append(problems, "field name must not be empty")
			continue
		}
		key := strings.ToLower(f.Name)
		if seen[key] {
			problems = append(problems, fmt.Sprintf("duplicate field name %q", f.Name))
		}
		seen[key] = true

		switch f.Type {
		case FieldSelect:
			if len(f.Options) == 0 {
				problems = append(problems, fmt.Sprintf("select field %q needs at least one option", f.Name))
			}
		case FieldRelation, FieldRelationMany:
			if f.Relation == nil || f.Relation.CollectionID == "" {
				problems = append(problems, fmt.Sprintf("relation field %q needs a target collection", f.Name))
			} else if ownID != "" && f.Relation.CollectionID == ownID {
				problems = append(problems, fmt.Sprintf("relation field %q must not reference its own collection", f.Name))
			}
		}
	}
	if len(problems) > 0 {
		return &DefinitionError{Problems: problems}
	}
	return nil
}
