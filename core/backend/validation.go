package backend

import (
	"github.com/apiforge-io/apiforge/core/schema"
)

// ValidateAndCoerce checks a raw write payload against the current
// schema fields and produces the data bag that gets persisted. Create
// and update share this path; there is no separate patch semantics.
//
// The steps are, in order:
//  1. collect every required field whose raw value is missing (absent
//     key, null, or empty string; zero and false count as present) and
//     fail with the complete list;
//  2. coerce each schema field present in the payload according to the
//     field type's policy;
//  3. drop payload keys that are not declared by the schema.
func ValidateAndCoerce(fields []schema.Field, raw map[string]interface{}) (map[string]interface{}, error) {
	var missing []string
	for _, f := range fields {
		if !f.Required {
			continue
		}
		value, ok := raw[f.Name]
		if !ok || schema.Missing(value) {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}

	data := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		value, ok := raw[f.Name]
		if !ok {
			continue
		}
		data[f.Name] = f.Type.Coerce(value)
	}
	return data, nil
}
