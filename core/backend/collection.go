package backend

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/apiforge-io/apiforge/core/schema"
)

// listCollections handles GET /collections
func (b *Backend) listCollections(w http.ResponseWriter, r *http.Request) {
	collections := b.Collections()
	writeSuccess(w, http.StatusOK, collections)
}

// createCollection handles POST /collections
func (b *Backend) createCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Cannot read request body", codeValidation)
		return
	}

	if err := b.validator.ValidateBytes(body, schema.DefinitionSchemaID); err != nil {
		var derr *schema.DefinitionError
		if errors.As(err, &derr) {
			writeError(w, http.StatusBadRequest, derr.Error(), codeValidation)
			return
		}
		writeInternalError(ctx, w, err)
		return
	}

	var def CollectionDefinition
	if err := json.Unmarshal(body, &def); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", codeValidation)
		return
	}

	c, err := b.CreateCollection(ctx, def)
	if err != nil {
		writeEngineError(ctx, w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, c)
}

// getCollection handles GET /collections/{collection_id}
func (b *Backend) getCollection(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["collection_id"]
	c, err := b.CollectionByID(id)
	if err != nil {
		writeNotFound(w, "Collection not found")
		return
	}
	writeSuccess(w, http.StatusOK, c)
}

// updateCollection handles PUT /collections/{collection_id}
func (b *Backend) updateCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["collection_id"]

	var update CollectionUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", codeValidation)
		return
	}

	c, err := b.UpdateCollection(ctx, id, update)
	if err != nil {
		writeEngineError(ctx, w, err)
		return
	}
	writeSuccess(w, http.StatusOK, c)
}

// deleteCollection handles DELETE /collections/{collection_id}
func (b *Backend) deleteCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["collection_id"]
	if err := b.DeleteCollection(ctx, id); err != nil {
		writeEngineError(ctx, w, err)
		return
	}
	writeMessage(w, "Collection deleted")
}

// writeEngineError translates engine errors into their HTTP shape.
// Anything not recognized is an internal error.
func writeEngineError(ctx context.Context, w http.ResponseWriter, err error) {
	var verr *ValidationError
	var derr *schema.DefinitionError
	var cerr *ConflictError
	switch {
	case errors.Is(err, ErrNotFound):
		writeNotFound(w, "Collection not found")
	case errors.As(err, &verr):
		writeValidationError(w, verr.Fields)
	case errors.As(err, &derr):
		writeError(w, http.StatusBadRequest, derr.Error(), codeValidation)
	case errors.As(err, &cerr):
		writeError(w, http.StatusConflict, cerr.Error(), codeConflict)
	default:
		writeInternalError(ctx, w, err)
	}
}
