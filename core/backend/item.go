package backend

import (
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/apiforge-io/apiforge/core"
	"github.com/apiforge-io/apiforge/core/schema"
)

// populateFields returns the relation fields to expand for a read
// request. An explicit ?populate= query parameter wins over the route's
// configured default.
func populateFields(r *http.Request, rc schema.RouteConfig) []string {
	if query := r.URL.Query().Get("populate"); query != "" {
		var names []string
		for _, name := range strings.Split(query, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		return names
	}
	return rc.PopulateFields
}

// populatedRelations filters the requested names down to the ones that
// are actual relation fields of the collection, for the response meta.
func populatedRelations(c *schema.Collection, names []string) []string {
	var applied []string
	for _, name := range names {
		if f, ok := c.Field(name); ok && f.Type.IsRelation() {
			applied = append(applied, name)
		}
	}
	return applied
}

// listItems handles GET /api/{collection}
func (b *Backend) listItems(w http.ResponseWriter, r *http.Request) {
	state := b.snapshot()
	c, ok := resolveCollection(state, mux.Vars(r)["collection"], core.OperationGetAll)
	if !ok {
		writeNotFound(w, "Collection not found")
		return
	}
	if !b.checkRouteAccess(w, r, c, core.OperationGetAll) {
		return
	}

	names := populateFields(r, c.Route(core.OperationGetAll))
	items := populateItems(state, state.Items[c.ID], c, names)
	writeList(w, items, listMeta{
		Total:      len(items),
		Collection: c.Name,
		Populated:  populatedRelations(c, names),
	})
}

// createItem handles POST /api/{collection}
func (b *Backend) createItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := b.snapshot()
	c, ok := resolveCollection(state, mux.Vars(r)["collection"], core.OperationPost)
	if !ok {
		writeNotFound(w, "Collection not found")
		return
	}
	if !b.checkRouteAccess(w, r, c, core.OperationPost) {
		return
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", codeValidation)
		return
	}

	item, err := b.CreateItem(ctx, c.ID, raw)
	if err != nil {
		writeEngineError(ctx, w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, item)
}

// getItem handles GET /api/{collection}/{item_id}
func (b *Backend) getItem(w http.ResponseWriter, r *http.Request) {
	state := b.snapshot()
	vars := mux.Vars(r)
	c, ok := resolveCollection(state, vars["collection"], core.OperationGetOne)
	if !ok {
		writeNotFound(w, "Collection not found")
		return
	}
	if !b.checkRouteAccess(w, r, c, core.OperationGetOne) {
		return
	}

	for _, item := range state.Items[c.ID] {
		if item.ID == vars["item_id"] {
			names := populateFields(r, c.Route(core.OperationGetOne))
			writeSuccess(w, http.StatusOK, populateItem(state, item, c, names))
			return
		}
	}
	writeNotFound(w, "Item not found")
}

// updateItem handles PUT /api/{collection}/{item_id}
func (b *Backend) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	c, ok := resolveCollection(b.snapshot(), vars["collection"], core.OperationPut)
	if !ok {
		writeNotFound(w, "Collection not found")
		return
	}
	if !b.checkRouteAccess(w, r, c, core.OperationPut) {
		return
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", codeValidation)
		return
	}

	item, err := b.UpdateItem(ctx, c.ID, vars["item_id"], raw)
	if err != nil {
		if err == ErrNotFound {
			writeNotFound(w, "Item not found")
			return
		}
		writeEngineError(ctx, w, err)
		return
	}
	writeSuccess(w, http.StatusOK, item)
}

// deleteItem handles DELETE /api/{collection}/{item_id}
func (b *Backend) deleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	c, ok := resolveCollection(b.snapshot(), vars["collection"], core.OperationDelete)
	if !ok {
		writeNotFound(w, "Collection not found")
		return
	}
	if !b.checkRouteAccess(w, r, c, core.OperationDelete) {
		return
	}

	if err := b.DeleteItem(ctx, c.ID, vars["item_id"]); err != nil {
		if err == ErrNotFound {
			writeNotFound(w, "Item not found")
			return
		}
		writeEngineError(ctx, w, err)
		return
	}
	writeMessage(w, "Item deleted")
}
