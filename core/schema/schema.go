/*Package schema defines the user-authored collection model.

A Collection is a named, ordered list of typed fields plus per-operation
route settings. Collections are created and mutated at runtime through
the admin API; the data engine interprets them when serving the
generated REST routes.
*/
package schema

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/apiforge-io/apiforge/core"
)

// FieldType enumerates the supported field types. The set is closed;
// unmarshalling any other value is an error.
type FieldType string

// all supported field types
const (
	FieldString       FieldType = "string"
	FieldText         FieldType = "text"
	FieldNumber       FieldType = "number"
	FieldBoolean      FieldType = "boolean"
	FieldEmail        FieldType = "email"
	FieldURL          FieldType = "url"
	FieldDate         FieldType = "date"
	FieldDateTime     FieldType = "datetime"
	FieldSelect       FieldType = "select"
	FieldJSON         FieldType = "json"
	FieldRelation     FieldType = "relation"
	FieldRelationMany FieldType = "relation_many"
)

// FieldTypes lists all supported field types in documentation order.
var FieldTypes = []FieldType{
	FieldString, FieldText, FieldNumber, FieldBoolean,
	FieldEmail, FieldURL, FieldDate, FieldDateTime,
	FieldSelect, FieldJSON, FieldRelation, FieldRelationMany,
}

// UnmarshalJSON is a custom JSON unmarshaller
func (t *FieldType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = FieldType(s)
	switch *t {
	case FieldString, FieldText, FieldNumber, FieldBoolean,
		FieldEmail, FieldURL, FieldDate, FieldDateTime,
		FieldSelect, FieldJSON, FieldRelation, FieldRelationMany:
		return nil
	default:
		return fmt.Errorf("%s is not a valid FieldType", s)
	}
}

// IsRelation returns true for the two relation field types.
func (t FieldType) IsRelation() bool {
	return t == FieldRelation || t == FieldRelationMany
}

// RelationConfig describes the target of a relation or relation_many field.
type RelationConfig struct {
	// CollectionID is the id of the target collection.
	CollectionID string `json:"collectionId"`
	// DisplayField names the target field shown as a human label. Empty
	// means the target collection's first field.
	DisplayField string `json:"displayField,omitempty"`
	// SelectFields restricts which target fields are embedded when the
	// relation is populated. Empty means all fields.
	SelectFields []string `json:"selectFields,omitempty"`
}

// Field is a single named, typed attribute of a collection.
type Field struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	// DefaultValue is a UI-level default scalar (string, number or bool),
	// applied by form clients, not enforced by the store.
	DefaultValue interface{}     `json:"defaultValue,omitempty"`
	Options      []string        `json:"options,omitempty"`
	Description  string          `json:"description,omitempty"`
	Relation     *RelationConfig `json:"relation,omitempty"`
}

// RouteConfig holds the configuration of one generated route operation.
type RouteConfig struct {
	Enabled   bool   `json:"enabled"`
	IsPrivate bool   `json:"isPrivate"`
	APIKey    string `json:"apiKey,omitempty"`
	// CustomPath overrides the collection slug as the route's path segment.
	CustomPath string `json:"customPath,omitempty"`
	// PopulateFields are the default relation fields expanded on reads
	// when the request has no populate query parameter.
	PopulateFields []string `json:"populateFields,omitempty"`
}

// UnmarshalJSON treats an absent enabled key as true. A partial
// settings object in an update must not silently disable an operation.
func (rc *RouteConfig) UnmarshalJSON(data []byte) error {
	type routeConfig RouteConfig
	decoded := routeConfig{Enabled: true}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*rc = RouteConfig(decoded)
	return nil
}

// RouteSettings maps each route operation to its configuration.
type RouteSettings map[core.Operation]RouteConfig

// DefaultRouteSettings returns the settings used when a collection has
// none: all five operations enabled and public, path = slug.
func DefaultRouteSettings() RouteSettings {
	settings := make(RouteSettings, len(core.Operations))
	for _, op := range core.Operations {
		settings[op] = RouteConfig{Enabled: true}
	}
	return settings
}

// Collection is a user-defined schema that also acts as a REST resource.
type Collection struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Fields      []Field   `json:"fields"`
	// RouteSettings is optional; nil means all defaults.
	RouteSettings RouteSettings `json:"routeSettings,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// NewCollection assembles a collection from a validated definition,
// assigning ids, the slug and timestamps. Field ids are assigned for
// fields that do not have one yet.
func NewCollection(name string, fields []Field, description string) Collection {
	now := time.Now().UTC()
	assigned := make([]Field, len(fields))
	for i, f := range fields {
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		assigned[i] = f
	}
	return Collection{
		ID:          uuid.NewString(),
		Name:        name,
		Slug:        core.Slugify(name),
		Description: description,
		Fields:      assigned,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Field returns the field declaration with the given name.
func (c *Collection) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Route returns the configuration for the given operation, falling back
// to the default when the collection has no explicit settings for it.
func (c *Collection) Route(op core.Operation) RouteConfig {
	if c.RouteSettings != nil {
		if rc, ok := c.RouteSettings[op]; ok {
			return rc
		}
	}
	return RouteConfig{Enabled: true}
}

// Path returns the effective path segment for the given operation:
// the operation's custom path if set, otherwise the collection slug.
func (c *Collection) Path(op core.Operation) string {
	if custom := c.Route(op).CustomPath; custom != "" {
		return custom
	}
	return c.Slug
}
