package backend

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/apiforge-io/apiforge/core"
	"github.com/apiforge-io/apiforge/core/access"
	"github.com/apiforge-io/apiforge/core/schema"
)

type fieldDoc struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Required    bool        `json:"required"`
	Description string      `json:"description,omitempty"`
	Options     []string    `json:"options,omitempty"`
	Example     interface{} `json:"example"`
}

type routeDoc struct {
	Operation   core.Operation         `json:"operation"`
	Method      string                 `json:"method"`
	Path        string                 `json:"path"`
	Enabled     bool                   `json:"enabled"`
	Private     bool                   `json:"private"`
	AuthHeader  string                 `json:"authHeader,omitempty"`
	ExampleBody map[string]interface{} `json:"exampleBody,omitempty"`
}

type collectionDoc struct {
	Collection  string     `json:"collection"`
	Description string     `json:"description,omitempty"`
	Fields      []fieldDoc `json:"fields"`
	Routes      []routeDoc `json:"routes"`
}

// getDocumentation handles GET /collections/{collection_id}/docs. It
// renders the generated API reference of one collection: its fields
// with example values and its five routes as currently configured.
func (b *Backend) getDocumentation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["collection_id"]
	c, err := b.CollectionByID(id)
	if err != nil {
		writeNotFound(w, "Collection not found")
		return
	}

	doc := collectionDoc{
		Collection:  c.Name,
		Description: c.Description,
		Fields:      make([]fieldDoc, 0, len(c.Fields)),
	}
	for _, f := range c.Fields {
		doc.Fields = append(doc.Fields, fieldDoc{
			Name:        f.Name,
			Type:        string(f.Type),
			Required:    f.Required,
			Description: f.Description,
			Options:     f.Options,
			Example:     exampleValue(f),
		})
	}

	for _, spec := range Routes(&c) {
		rd := routeDoc{
			Operation: spec.Operation,
			Method:    spec.Method,
			Path:      spec.Path,
			Enabled:   spec.Enabled,
			Private:   spec.Private,
		}
		if spec.Private {
			rd.AuthHeader = access.APIKeyHeader
		}
		if spec.Operation == core.OperationPost || spec.Operation == core.OperationPut {
			rd.ExampleBody = exampleBody(&c)
		}
		doc.Routes = append(doc.Routes, rd)
	}

	writeSuccess(w, http.StatusOK, doc)
}

// exampleValue prefers the field's configured options and default over
// the generic per-type example.
func exampleValue(f schema.Field) interface{} {
	if f.DefaultValue != nil {
		return f.DefaultValue
	}
	if f.Type == schema.FieldSelect && len(f.Options) > 0 {
		return f.Options[0]
	}
	return f.Type.ExampleValue()
}

func exampleBody(c *schema.Collection) map[string]interface{} {
	body := make(map[string]interface{}, len(c.Fields))
	for _, f := range c.Fields {
		body[f.Name] = exampleValue(f)
	}
	return body
}
