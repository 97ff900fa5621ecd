/*Package store persists the full builder state.

The state consists of two documents: the ordered list of collection
definitions and a mapping from collection id to its ordered list of
records. A Store loads and saves both documents together so that a
collection and its records can never diverge across a save.
*/
package store

import (
	"context"
	"time"

	"github.com/apiforge-io/apiforge/core/schema"
)

// Item is one record of a collection. The data bag is schema-less on
// purpose: keys are filtered against the schema at write time, but a
// schema mutation never migrates what is already stored.
type Item struct {
	ID           string                 `json:"id"`
	CollectionID string                 `json:"collectionId"`
	Data         map[string]interface{} `json:"data"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

// State is the full persisted state of the builder.
type State struct {
	Collections []schema.Collection `json:"collections"`
	Items       map[string][]Item   `json:"items"`
}

// NewState returns an empty state.
func NewState() State {
	return State{Items: map[string][]Item{}}
}

// Clone returns a copy of the state whose collections slice, items map
// and item slices are independent of the original. Item data maps are
// shared; mutating code must replace them, never edit them in place.
func (s State) Clone() State {
	clone := State{
		Collections: append([]schema.Collection(nil), s.Collections...),
		Items:       make(map[string][]Item, len(s.Items)),
	}
	for id, items := range s.Items {
		clone.Items[id] = append([]Item(nil), items...)
	}
	return clone
}

// Store loads and saves the full state. Save must be atomic: after a
// failed save, a subsequent load returns the previous state.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}
