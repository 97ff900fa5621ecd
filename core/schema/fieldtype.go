package schema

import (
	"strconv"

	"github.com/goccy/go-json"
)

// CoercionPolicy names the write-time normalization rule of a field type.
// The policies are deliberately explicit constants so that tests can
// assert on the policy itself rather than on ad hoc fallback values.
type CoercionPolicy string

// write-time normalization policies
const (
	// PolicyPassThrough stores string values as given, with the empty
	// string normalized to null.
	PolicyPassThrough CoercionPolicy = "pass-through"
	// PolicyNumberNullOnError parses string input as floating point and
	// stores null when parsing fails.
	PolicyNumberNullOnError CoercionPolicy = "number:null-on-parse-error"
	// PolicyJSONNullOnError parses string input as JSON and stores null
	// when parsing fails.
	PolicyJSONNullOnError CoercionPolicy = "json:null-on-parse-error"
	// PolicyBooleanStrict normalizes any truthy or falsy input to a
	// strict boolean.
	PolicyBooleanStrict CoercionPolicy = "boolean:strict"
	// PolicySelectAcceptAny stores select values as given; membership in
	// the option set is an editor-level rule, not enforced by the store.
	PolicySelectAcceptAny CoercionPolicy = "select:accept-any"
	// PolicyRelationRaw stores relation ids as given; referential
	// integrity is resolved at read time by population.
	PolicyRelationRaw CoercionPolicy = "relation:raw-ids"
)

// Policy returns the coercion policy applied to values of the given type.
func (t FieldType) Policy() CoercionPolicy {
	switch t {
	case FieldNumber:
		return PolicyNumberNullOnError
	case FieldJSON:
		return PolicyJSONNullOnError
	case FieldBoolean:
		return PolicyBooleanStrict
	case FieldSelect:
		return PolicySelectAcceptAny
	case FieldRelation, FieldRelationMany:
		return PolicyRelationRaw
	case FieldString, FieldText, FieldEmail, FieldURL, FieldDate, FieldDateTime:
		return PolicyPassThrough
	}
	return PolicyPassThrough
}

// Missing reports whether a raw payload value counts as absent for the
// required-field check. Nil and the empty string are missing; the number
// zero and the boolean false are legitimate present values.
func Missing(value interface{}) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && s == ""
}

// Coerce normalizes a raw payload value according to the field type's
// policy. The input is a value decoded from JSON, so numbers arrive as
// float64 and structured data as maps and slices.
func (t FieldType) Coerce(value interface{}) interface{} {
	if value == nil {
		return nil
	}
	switch t.Policy() {
	case PolicyNumberNullOnError:
		switch v := value.(type) {
		case float64:
			return v
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return nil
			}
			return f
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil
			}
			return f
		default:
			return nil
		}
	case PolicyJSONNullOnError:
		if s, ok := value.(string); ok {
			var parsed interface{}
			if err := json.Unmarshal([]byte(s), &parsed); err != nil {
				return nil
			}
			return parsed
		}
		return value // already structured
	case PolicyBooleanStrict:
		return truthy(value)
	case PolicyRelationRaw, PolicySelectAcceptAny:
		if s, ok := value.(string); ok && s == "" {
			return nil
		}
		return value
	default:
		if s, ok := value.(string); ok && s == "" {
			return nil
		}
		return value
	}
}

// truthy applies loose truthiness: false, zero, the empty string and
// null are falsy, everything else is truthy. Note that the string
// "false" is truthy.
func truthy(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	case nil:
		return false
	default:
		return true
	}
}

// ExampleValue returns a representative value of the given type, used by
// the generated API documentation.
func (t FieldType) ExampleValue() interface{} {
	switch t {
	case FieldString:
		return "Example title"
	case FieldText:
		return "A longer example text."
	case FieldNumber:
		return 42
	case FieldBoolean:
		return true
	case FieldEmail:
		return "user@example.com"
	case FieldURL:
		return "https://example.com"
	case FieldDate:
		return "2024-01-31"
	case FieldDateTime:
		return "2024-01-31T12:00:00Z"
	case FieldSelect:
		return "draft"
	case FieldJSON:
		return map[string]interface{}{"key": "value"}
	case FieldRelation:
		return "target-item-id"
	case FieldRelationMany:
		return []string{"target-item-id"}
	}
	return nil
}
