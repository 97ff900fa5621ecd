package backend

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/apiforge-io/apiforge/core/logger"
	"github.com/apiforge-io/apiforge/core/schema"
	"github.com/apiforge-io/apiforge/core/store"
)

// Backend is the schema-driven data engine. It serves the admin API for
// collection definitions and the generated data API for their records.
//
// All state mutations follow the same shape: take the write lock, clone
// the current state, modify the clone, save it through the store, then
// swap it in. A failed save leaves the previous state untouched, and
// readers never observe a half-applied write.
type Backend struct {
	router    *mux.Router
	store     store.Store
	validator *schema.Validator
	notifier  Notifier

	mu    sync.RWMutex
	state store.State
}

// Builder is a builder helper for the Backend
type Builder struct {
	// Store persists the full builder state. This is mandatory.
	Store store.Store
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// Notifier receives change notifications for collections and
	// records. This is optional.
	Notifier Notifier
}

// New realizes the actual backend. It loads the persisted state and
// adds all routes to the router.
func New(bb *Builder) (*Backend, error) {
	if bb.Store == nil {
		panic("Store is missing")
	}
	if bb.Router == nil {
		panic("Router is missing")
	}

	validator, err := schema.NewValidator()
	if err != nil {
		return nil, err
	}

	state, err := bb.Store.Load(context.Background())
	if err != nil {
		return nil, err
	}

	b := &Backend{
		router:    bb.Router,
		store:     bb.Store,
		validator: validator,
		notifier:  bb.Notifier,
		state:     state,
	}

	logger.AddRequestID(b.router)
	b.handleRoutes(b.router)
	return b, nil
}

// MustNew is like New but panics on error.
func MustNew(bb *Builder) *Backend {
	b, err := New(bb)
	if err != nil {
		panic(err)
	}
	return b
}

// handleRoutes adds all handlers: the admin routes for collection
// definitions, the sync routes, and the generated data routes. The data
// routes are registered once with a path variable and resolved against
// the current schemas per request, because collections come and go at
// runtime.
func (b *Backend) handleRoutes(router *mux.Router) {
	nillog := logger.Default()
	nillog.Debugln("backend: handle routes")

	nillog.Debugln("  handle admin routes: /collections GET,POST")
	router.HandleFunc("/collections", b.listCollections).Methods(http.MethodGet)
	router.HandleFunc("/collections", b.createCollection).Methods(http.MethodPost)

	nillog.Debugln("  handle admin routes: /collections/{collection_id} GET,PUT,DELETE")
	router.HandleFunc("/collections/{collection_id}", b.getCollection).Methods(http.MethodGet)
	router.HandleFunc("/collections/{collection_id}", b.updateCollection).Methods(http.MethodPut)
	router.HandleFunc("/collections/{collection_id}", b.deleteCollection).Methods(http.MethodDelete)

	nillog.Debugln("  handle admin route: /collections/{collection_id}/docs GET")
	router.HandleFunc("/collections/{collection_id}/docs", b.getDocumentation).Methods(http.MethodGet)

	nillog.Debugln("  handle sync routes: /sync GET,POST")
	router.HandleFunc("/sync", b.getSync).Methods(http.MethodGet)
	router.HandleFunc("/sync", b.postSync).Methods(http.MethodPost)

	nillog.Debugln("  handle data routes: /api/{collection} GET,POST")
	router.HandleFunc("/api/{collection}", b.listItems).Methods(http.MethodGet)
	router.HandleFunc("/api/{collection}", b.createItem).Methods(http.MethodPost)

	nillog.Debugln("  handle data routes: /api/{collection}/{item_id} GET,PUT,DELETE")
	router.HandleFunc("/api/{collection}/{item_id}", b.getItem).Methods(http.MethodGet)
	router.HandleFunc("/api/{collection}/{item_id}", b.updateItem).Methods(http.MethodPut)
	router.HandleFunc("/api/{collection}/{item_id}", b.deleteItem).Methods(http.MethodDelete)
}

// snapshot returns the current state under the read lock. The returned
// value shares item data maps with the live state; see store.State.Clone.
func (b *Backend) snapshot() store.State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// mutate runs fn on a clone of the current state under the write lock
// and swaps the clone in after a successful save. When fn or the save
// fails, the previous state stays in place.
func (b *Backend) mutate(ctx context.Context, fn func(state *store.State) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := b.state.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := b.store.Save(ctx, next); err != nil {
		return err
	}
	b.state = next
	return nil
}
