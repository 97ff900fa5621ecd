package backend

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/apiforge-io/apiforge/core"
	"github.com/apiforge-io/apiforge/core/schema"
	"github.com/apiforge-io/apiforge/core/store"
)

// CollectionDefinition is the payload for creating a collection.
type CollectionDefinition struct {
	Name          string               `json:"name"`
	Description   string               `json:"description,omitempty"`
	Fields        []schema.Field       `json:"fields"`
	RouteSettings schema.RouteSettings `json:"routeSettings,omitempty"`
}

// CollectionUpdate is a partial update of a collection definition.
// Nil members are left unchanged. A changed name re-derives the slug.
type CollectionUpdate struct {
	Name          *string               `json:"name,omitempty"`
	Description   *string               `json:"description,omitempty"`
	Fields        *[]schema.Field       `json:"fields,omitempty"`
	RouteSettings *schema.RouteSettings `json:"routeSettings,omitempty"`
}

// Collections returns all collection definitions in creation order.
func (b *Backend) Collections() []schema.Collection {
	return b.snapshot().Collections
}

// CollectionByID returns the collection with the given id.
func (b *Backend) CollectionByID(id string) (schema.Collection, error) {
	state := b.snapshot()
	for _, c := range state.Collections {
		if c.ID == id {
			return c, nil
		}
	}
	return schema.Collection{}, ErrNotFound
}

// CollectionBySlug returns the collection whose slug matches.
func (b *Backend) CollectionBySlug(slug string) (schema.Collection, error) {
	state := b.snapshot()
	for _, c := range state.Collections {
		if c.Slug == slug {
			return c, nil
		}
	}
	return schema.Collection{}, ErrNotFound
}

// pathsInUse lists every path segment a collection occupies: its slug
// plus any per-operation custom paths.
func pathsInUse(c *schema.Collection) []string {
	paths := []string{c.Slug}
	for _, op := range core.Operations {
		if custom := c.Route(op).CustomPath; custom != "" {
			paths = append(paths, custom)
		}
	}
	return paths
}

// checkPathConflicts returns a ConflictError when any path segment of
// candidate is already used by another collection. Slugs key route
// resolution, so they must be unique across the whole route surface.
func checkPathConflicts(state *store.State, candidate *schema.Collection) error {
	taken := map[string]bool{}
	for i := range state.Collections {
		other := &state.Collections[i]
		if other.ID == candidate.ID {
			continue
		}
		for _, p := range pathsInUse(other) {
			taken[p] = true
		}
	}
	for _, p := range pathsInUse(candidate) {
		if taken[p] {
			return &ConflictError{Path: p}
		}
	}
	return nil
}

// CreateCollection validates a definition and adds the new collection,
// with ids, slug and timestamps assigned.
func (b *Backend) CreateCollection(ctx context.Context, def CollectionDefinition) (schema.Collection, error) {
	if err := schema.ValidateFields(def.Fields, ""); err != nil {
		return schema.Collection{}, err
	}
	c := schema.NewCollection(def.Name, def.Fields, def.Description)
	c.RouteSettings = def.RouteSettings
	if c.RouteSettings == nil {
		c.RouteSettings = schema.DefaultRouteSettings()
	}

	err := b.mutate(ctx, func(state *store.State) error {
		if err := checkPathConflicts(state, &c); err != nil {
			return err
		}
		state.Collections = append(state.Collections, c)
		state.Items[c.ID] = []store.Item{}
		return nil
	})
	if err != nil {
		return schema.Collection{}, err
	}
	b.notify(ctx, resourceCollection, changeCreate, c.ID, c)
	return c, nil
}

// UpdateCollection applies a partial update to a collection definition
// and bumps its updatedAt timestamp. Existing records are never
// validated or migrated on a schema change.
func (b *Backend) UpdateCollection(ctx context.Context, id string, update CollectionUpdate) (schema.Collection, error) {
	var updated schema.Collection
	err := b.mutate(ctx, func(state *store.State) error {
		for i := range state.Collections {
			c := &state.Collections[i]
			if c.ID != id {
				continue
			}
			if update.Name != nil {
				c.Name = *update.Name
				c.Slug = core.Slugify(*update.Name)
			}
			if update.Description != nil {
				c.Description = *update.Description
			}
			if update.Fields != nil {
				if err := schema.ValidateFields(*update.Fields, id); err != nil {
					return err
				}
				fields := *update.Fields
				for j := range fields {
					if fields[j].ID == "" {
						fields[j].ID = uuid.NewString()
					}
				}
				c.Fields = fields
			}
			if update.RouteSettings != nil {
				c.RouteSettings = *update.RouteSettings
			}
			if err := checkPathConflicts(state, c); err != nil {
				return err
			}
			c.UpdatedAt = time.Now().UTC()
			updated = *c
			return nil
		}
		return ErrNotFound
	})
	if err != nil {
		return schema.Collection{}, err
	}
	b.notify(ctx, resourceCollection, changeUpdate, id, updated)
	return updated, nil
}

// DeleteCollection removes a collection and all of its items. From the
// caller's point of view the cascade is atomic: either both documents
// are updated, or neither.
func (b *Backend) DeleteCollection(ctx context.Context, id string) error {
	err := b.mutate(ctx, func(state *store.State) error {
		for i := range state.Collections {
			if state.Collections[i].ID != id {
				continue
			}
			state.Collections = append(state.Collections[:i], state.Collections[i+1:]...)
			delete(state.Items, id)
			return nil
		}
		return ErrNotFound
	})
	if err != nil {
		return err
	}
	b.notify(ctx, resourceCollection, changeDelete, id, nil)
	return nil
}

// Items returns the records of a collection in creation order.
func (b *Backend) Items(collectionID string) ([]store.Item, error) {
	state := b.snapshot()
	if _, ok := stateCollection(state, collectionID); !ok {
		return nil, ErrNotFound
	}
	return state.Items[collectionID], nil
}

// Item returns one record of a collection.
func (b *Backend) Item(collectionID, itemID string) (store.Item, error) {
	state := b.snapshot()
	if _, ok := stateCollection(state, collectionID); !ok {
		return store.Item{}, ErrNotFound
	}
	for _, item := range state.Items[collectionID] {
		if item.ID == itemID {
			return item, nil
		}
	}
	return store.Item{}, ErrNotFound
}

// CreateItem validates the raw payload against the collection's current
// schema and appends the new record. Unknown payload keys are dropped.
func (b *Backend) CreateItem(ctx context.Context, collectionID string, raw map[string]interface{}) (store.Item, error) {
	var item store.Item
	err := b.mutate(ctx, func(state *store.State) error {
		c, ok := stateCollection(*state, collectionID)
		if !ok {
			return ErrNotFound
		}
		data, err := ValidateAndCoerce(c.Fields, raw)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		item = store.Item{
			ID:           uuid.NewString(),
			CollectionID: collectionID,
			Data:         data,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		state.Items[collectionID] = append(state.Items[collectionID], item)
		return nil
	})
	if err != nil {
		return store.Item{}, err
	}
	b.notify(ctx, resourceItem, changeCreate, item.ID, item)
	return item, nil
}

// UpdateItem validates the raw payload like CreateItem and replaces the
// record's data wholesale: fields omitted from the payload are lost
// unless the caller re-sends them.
func (b *Backend) UpdateItem(ctx context.Context, collectionID, itemID string, raw map[string]interface{}) (store.Item, error) {
	var updated store.Item
	err := b.mutate(ctx, func(state *store.State) error {
		c, ok := stateCollection(*state, collectionID)
		if !ok {
			return ErrNotFound
		}
		items := state.Items[collectionID]
		for i := range items {
			if items[i].ID != itemID {
				continue
			}
			data, err := ValidateAndCoerce(c.Fields, raw)
			if err != nil {
				return err
			}
			items[i].Data = data
			items[i].UpdatedAt = time.Now().UTC()
			updated = items[i]
			return nil
		}
		return ErrNotFound
	})
	if err != nil {
		return store.Item{}, err
	}
	b.notify(ctx, resourceItem, changeUpdate, itemID, updated)
	return updated, nil
}

// DeleteItem removes one record of a collection.
func (b *Backend) DeleteItem(ctx context.Context, collectionID, itemID string) error {
	err := b.mutate(ctx, func(state *store.State) error {
		if _, ok := stateCollection(*state, collectionID); !ok {
			return ErrNotFound
		}
		items := state.Items[collectionID]
		for i := range items {
			if items[i].ID != itemID {
				continue
			}
			state.Items[collectionID] = append(items[:i], items[i+1:]...)
			return nil
		}
		return ErrNotFound
	})
	if err != nil {
		return err
	}
	b.notify(ctx, resourceItem, changeDelete, itemID, nil)
	return nil
}

// Populate expands the named relation fields of the given items against
// the current state. See populateItem for the exact semantics.
func (b *Backend) Populate(items []store.Item, c *schema.Collection, fieldNames []string) []store.Item {
	return populateItems(b.snapshot(), items, c, fieldNames)
}

func stateCollection(state store.State, id string) (*schema.Collection, bool) {
	for i := range state.Collections {
		if state.Collections[i].ID == id {
			return &state.Collections[i], true
		}
	}
	return nil, false
}
