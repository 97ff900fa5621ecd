package backend

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/apiforge-io/apiforge/core/schema"
	"github.com/apiforge-io/apiforge/core/store"
)

// syncDocument is the export and import format of the full builder
// state: every collection definition plus every record, keyed by
// collection id.
type syncDocument struct {
	Collections []schema.Collection     `json:"collections"`
	Items       map[string][]store.Item `json:"items"`
}

// getSync handles GET /sync. It exports the full state.
func (b *Backend) getSync(w http.ResponseWriter, r *http.Request) {
	state := b.snapshot()
	doc := syncDocument{Collections: state.Collections, Items: state.Items}
	if doc.Collections == nil {
		doc.Collections = []schema.Collection{}
	}
	if doc.Items == nil {
		doc.Items = map[string][]store.Item{}
	}
	writeSuccess(w, http.StatusOK, doc)
}

// postSync handles POST /sync. It replaces the full state with the
// imported document in one atomic step. Records of collections that are
// not part of the document are discarded.
func (b *Backend) postSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var doc syncDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", codeValidation)
		return
	}

	next := store.NewState()
	next.Collections = doc.Collections
	ids := map[string]bool{}
	for _, c := range next.Collections {
		ids[c.ID] = true
	}
	for id, items := range doc.Items {
		if ids[id] {
			next.Items[id] = items
		}
	}

	err := b.mutate(ctx, func(state *store.State) error {
		*state = next
		return nil
	})
	if err != nil {
		writeInternalError(ctx, w, err)
		return
	}
	b.notify(ctx, resourceSync, changeUpdate, "", nil)
	writeMessage(w, "State imported")
}
