package backend

import (
	"github.com/apiforge-io/apiforge/core/schema"
	"github.com/apiforge-io/apiforge/core/store"
)

// marker keys of a populated sub-document. Callers can only distinguish
// a populated relation from a raw id by looking for these keys.
const (
	populatedIDKey         = "_id"
	populatedCollectionKey = "_collection"
)

// populateItem expands the named relation fields of one item into
// embedded sub-documents. The expansion is exactly one level deep: the
// embedded documents carry the target record's raw field values, and
// relation ids inside them are never expanded further.
//
// Field names that do not exist on the schema, or that are not relation
// fields, are skipped without error. A relation whose target collection
// has been deleted is skipped as well, leaving the raw id(s) in place.
//
// A single relation whose target record is missing keeps its raw id. A
// multi relation drops unresolved ids from the resulting array.
func populateItem(state store.State, item store.Item, c *schema.Collection, fieldNames []string) store.Item {
	data := make(map[string]interface{}, len(item.Data))
	for k, v := range item.Data {
		data[k] = v
	}

	for _, name := range fieldNames {
		field, ok := c.Field(name)
		if !ok || !field.Type.IsRelation() || field.Relation == nil {
			continue
		}
		target, targetItems, ok := relationTarget(state, field.Relation.CollectionID)
		if !ok {
			continue
		}

		switch field.Type {
		case schema.FieldRelation:
			id, ok := data[name].(string)
			if !ok {
				continue
			}
			if embedded, ok := embedTarget(targetItems, target, id, field.Relation.SelectFields); ok {
				data[name] = embedded
			}
		case schema.FieldRelationMany:
			ids, ok := data[name].([]interface{})
			if !ok {
				continue
			}
			embedded := make([]interface{}, 0, len(ids))
			for _, raw := range ids {
				id, ok := raw.(string)
				if !ok {
					continue
				}
				if doc, ok := embedTarget(targetItems, target, id, field.Relation.SelectFields); ok {
					embedded = append(embedded, doc)
				}
			}
			data[name] = embedded
		}
	}

	item.Data = data
	return item
}

// populateItems is the plural form of populateItem.
func populateItems(state store.State, items []store.Item, c *schema.Collection, fieldNames []string) []store.Item {
	populated := make([]store.Item, len(items))
	for i, item := range items {
		populated[i] = populateItem(state, item, c, fieldNames)
	}
	return populated
}

func relationTarget(state store.State, collectionID string) (*schema.Collection, []store.Item, bool) {
	for i := range state.Collections {
		if state.Collections[i].ID == collectionID {
			return &state.Collections[i], state.Items[collectionID], true
		}
	}
	return nil, nil, false
}

// embedTarget builds the projection object for one resolved target
// record: the _id and _collection markers plus either the selected
// fields or all of the record's fields.
func embedTarget(targetItems []store.Item, target *schema.Collection, id string, selectFields []string) (map[string]interface{}, bool) {
	for _, candidate := range targetItems {
		if candidate.ID != id {
			continue
		}
		embedded := map[string]interface{}{
			populatedIDKey:         candidate.ID,
			populatedCollectionKey: target.Name,
		}
		if len(selectFields) > 0 {
			for _, key := range selectFields {
				if value, ok := candidate.Data[key]; ok {
					embedded[key] = value
				}
			}
		} else {
			for key, value := range candidate.Data {
				embedded[key] = value
			}
		}
		return embedded, true
	}
	return nil, false
}
