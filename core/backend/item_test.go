package backend

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiforge-io/apiforge/core"
	"github.com/apiforge-io/apiforge/core/access"
	"github.com/apiforge-io/apiforge/core/schema"
)

func (s *testService) postsAndAuthors(t *testing.T) (posts, authors schema.Collection) {
	t.Helper()
	authors = s.mustCreateCollection(t, CollectionDefinition{
		Name: "Authors",
		Fields: []schema.Field{
			{Name: "name", Type: schema.FieldString, Required: true},
			{Name: "email", Type: schema.FieldEmail},
		},
	})
	posts = s.mustCreateCollection(t, CollectionDefinition{
		Name: "Posts",
		Fields: []schema.Field{
			{Name: "title", Type: schema.FieldString, Required: true},
			{Name: "views", Type: schema.FieldNumber},
			{Name: "published", Type: schema.FieldBoolean},
			{Name: "author", Type: schema.FieldRelation,
				Relation: &schema.RelationConfig{CollectionID: authors.ID}},
			{Name: "reviewers", Type: schema.FieldRelationMany,
				Relation: &schema.RelationConfig{CollectionID: authors.ID, SelectFields: []string{"name"}}},
		},
	})
	return posts, authors
}

func TestItemLifecycle(t *testing.T) {
	s := newTestService(t)
	s.postsAndAuthors(t)

	var created itemEnvelope
	status, err := s.client.RawPost("/api/posts", map[string]interface{}{
		"title":     "First",
		"views":     10,
		"published": true,
	}, &created)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, created.Data.ID)
	assert.Equal(t, float64(10), created.Data.Data["views"])

	var got itemEnvelope
	_, err = s.client.RawGet("/api/posts/"+created.Data.ID, &got)
	require.NoError(t, err)
	assert.Equal(t, "First", got.Data.Data["title"])

	// an update replaces the data wholesale
	var updated itemEnvelope
	_, err = s.client.RawPut("/api/posts/"+created.Data.ID,
		map[string]interface{}{"title": "Second"}, &updated)
	require.NoError(t, err)
	assert.Equal(t, "Second", updated.Data.Data["title"])
	_, hasViews := updated.Data.Data["views"]
	assert.False(t, hasViews, "omitted fields are dropped on update")

	var list itemListEnvelope
	_, err = s.client.RawGet("/api/posts", &list)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Meta.Total)
	assert.Equal(t, "Posts", list.Meta.Collection)

	status, err = s.client.RawDelete("/api/posts/" + created.Data.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.client.RawGet("/api/posts/"+created.Data.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestItemRequiredFields(t *testing.T) {
	s := newTestService(t)
	s.mustCreateCollection(t, CollectionDefinition{
		Name: "Metrics",
		Fields: []schema.Field{
			{Name: "label", Type: schema.FieldString, Required: true},
			{Name: "count", Type: schema.FieldNumber, Required: true},
			{Name: "active", Type: schema.FieldBoolean, Required: true},
		},
	})

	// all missing variants are reported at once
	status, env := rawStatus(t, func(result interface{}) (int, error) {
		return s.client.RawPost("/api/metrics", map[string]interface{}{
			"label": "",
			"count": nil,
		}, result)
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
	assert.ElementsMatch(t, []string{"label", "count", "active"}, env.Fields)

	// zero and false count as present
	var created itemEnvelope
	status, err := s.client.RawPost("/api/metrics", map[string]interface{}{
		"label":  "a",
		"count":  0,
		"active": false,
	}, &created)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(0), created.Data.Data["count"])
	assert.Equal(t, false, created.Data.Data["active"])
}

func TestItemCoercionAndFiltering(t *testing.T) {
	s := newTestService(t)
	s.mustCreateCollection(t, CollectionDefinition{
		Name: "Mixed",
		Fields: []schema.Field{
			{Name: "amount", Type: schema.FieldNumber},
			{Name: "payload", Type: schema.FieldJSON},
			{Name: "flag", Type: schema.FieldBoolean},
			{Name: "status", Type: schema.FieldSelect, Options: []string{"draft", "live"}},
		},
	})

	var created itemEnvelope
	_, err := s.client.RawPost("/api/mixed", map[string]interface{}{
		"amount":    "12.5",
		"payload":   `{"nested":true}`,
		"flag":      "false",
		"status":    "archived",
		"uninvited": "dropped",
	}, &created)
	require.NoError(t, err)

	data := created.Data.Data
	assert.Equal(t, 12.5, data["amount"])
	assert.Equal(t, map[string]interface{}{"nested": true}, data["payload"])
	// a non-empty string is truthy, even "false"
	assert.Equal(t, true, data["flag"])
	// select accepts values outside the configured options
	assert.Equal(t, "archived", data["status"])
	_, ok := data["uninvited"]
	assert.False(t, ok, "unknown keys are dropped")

	// unparseable input becomes null rather than an error
	var second itemEnvelope
	_, err = s.client.RawPost("/api/mixed", map[string]interface{}{
		"amount":  "not a number",
		"payload": "{broken",
	}, &second)
	require.NoError(t, err)
	assert.Nil(t, second.Data.Data["amount"])
	assert.Nil(t, second.Data.Data["payload"])
}

func TestItemPopulate(t *testing.T) {
	s := newTestService(t)
	s.postsAndAuthors(t)

	var alice, bob itemEnvelope
	_, err := s.client.RawPost("/api/authors",
		map[string]interface{}{"name": "Alice", "email": "alice@example.com"}, &alice)
	require.NoError(t, err)
	_, err = s.client.RawPost("/api/authors",
		map[string]interface{}{"name": "Bob", "email": "bob@example.com"}, &bob)
	require.NoError(t, err)

	var post itemEnvelope
	_, err = s.client.RawPost("/api/posts", map[string]interface{}{
		"title":     "Hello",
		"author":    alice.Data.ID,
		"reviewers": []string{bob.Data.ID, "gone"},
	}, &post)
	require.NoError(t, err)

	var list itemListEnvelope
	_, err = s.client.RawGet("/api/posts?populate=author,reviewers", &list)
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.ElementsMatch(t, []string{"author", "reviewers"}, list.Meta.Populated)

	author, ok := list.Data[0].Data["author"].(map[string]interface{})
	require.True(t, ok, "single relation is embedded")
	assert.Equal(t, alice.Data.ID, author["_id"])
	assert.Equal(t, "Authors", author["_collection"])
	assert.Equal(t, "Alice", author["name"])
	assert.Equal(t, "alice@example.com", author["email"])

	reviewers, ok := list.Data[0].Data["reviewers"].([]interface{})
	require.True(t, ok)
	// the dangling id is dropped from the array
	require.Len(t, reviewers, 1)
	reviewer := reviewers[0].(map[string]interface{})
	assert.Equal(t, "Bob", reviewer["name"])
	// the projection keeps only the selected fields plus the markers
	_, hasEmail := reviewer["email"]
	assert.False(t, hasEmail)

	// without populate the raw ids come back untouched
	var plain itemListEnvelope
	_, err = s.client.RawGet("/api/posts", &plain)
	require.NoError(t, err)
	assert.Equal(t, alice.Data.ID, plain.Data[0].Data["author"])
	assert.Empty(t, plain.Meta.Populated)

	// populating a non-relation field leaves it untouched
	var odd itemListEnvelope
	_, err = s.client.RawGet("/api/posts?populate=title", &odd)
	require.NoError(t, err)
	assert.Equal(t, "Hello", odd.Data[0].Data["title"])
	assert.Empty(t, odd.Meta.Populated)
}

func TestItemPopulateIsOneLevelDeep(t *testing.T) {
	s := newTestService(t)
	tags := s.mustCreateCollection(t, CollectionDefinition{
		Name:   "Tags",
		Fields: []schema.Field{{Name: "label", Type: schema.FieldString}},
	})
	writers := s.mustCreateCollection(t, CollectionDefinition{
		Name: "Writers",
		Fields: []schema.Field{
			{Name: "name", Type: schema.FieldString},
			{Name: "tag", Type: schema.FieldRelation,
				Relation: &schema.RelationConfig{CollectionID: tags.ID}},
		},
	})
	s.mustCreateCollection(t, CollectionDefinition{
		Name: "Articles",
		Fields: []schema.Field{
			{Name: "title", Type: schema.FieldString},
			{Name: "writer", Type: schema.FieldRelation,
				Relation: &schema.RelationConfig{CollectionID: writers.ID}},
		},
	})

	var tag itemEnvelope
	_, err := s.client.RawPost("/api/tags", map[string]interface{}{"label": "science"}, &tag)
	require.NoError(t, err)
	var writer itemEnvelope
	_, err = s.client.RawPost("/api/writers",
		map[string]interface{}{"name": "Grace", "tag": tag.Data.ID}, &writer)
	require.NoError(t, err)
	var article itemEnvelope
	_, err = s.client.RawPost("/api/articles",
		map[string]interface{}{"title": "Compilers", "writer": writer.Data.ID}, &article)
	require.NoError(t, err)

	var got itemEnvelope
	_, err = s.client.RawGet("/api/articles/"+article.Data.ID+"?populate=writer", &got)
	require.NoError(t, err)

	embedded, ok := got.Data.Data["writer"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Grace", embedded["name"])
	// relation ids inside the embedded document stay raw ids
	assert.Equal(t, tag.Data.ID, embedded["tag"])
}

func TestBackendPopulate(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	posts, authors := s.postsAndAuthors(t)

	author, err := s.backend.CreateItem(ctx, authors.ID,
		map[string]interface{}{"name": "Alice", "email": "alice@example.com"})
	require.NoError(t, err)
	_, err = s.backend.CreateItem(ctx, posts.ID,
		map[string]interface{}{"title": "Hello", "author": author.ID})
	require.NoError(t, err)

	items, err := s.backend.Items(posts.ID)
	require.NoError(t, err)
	populated := s.backend.Populate(items, &posts, []string{"author"})
	require.Len(t, populated, 1)

	embedded, ok := populated[0].Data["author"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Alice", embedded["name"])
	// the input items keep their raw ids
	assert.Equal(t, author.ID, items[0].Data["author"])
}

func TestItemPopulateDanglingSingleRelation(t *testing.T) {
	s := newTestService(t)
	s.postsAndAuthors(t)

	var post itemEnvelope
	_, err := s.client.RawPost("/api/posts", map[string]interface{}{
		"title":  "Orphan",
		"author": "no-such-author",
	}, &post)
	require.NoError(t, err)

	var got itemEnvelope
	_, err = s.client.RawGet("/api/posts/"+post.Data.ID+"?populate=author", &got)
	require.NoError(t, err)
	// a single relation that cannot be resolved keeps its raw id
	assert.Equal(t, "no-such-author", got.Data.Data["author"])
}

func TestItemRouteSettings(t *testing.T) {
	s := newTestService(t)
	apiKey := access.GenerateAPIKey()
	s.mustCreateCollection(t, CollectionDefinition{
		Name:   "Secrets",
		Fields: []schema.Field{{Name: "value", Type: schema.FieldString}},
		RouteSettings: schema.RouteSettings{
			core.OperationGetAll: {Enabled: true, IsPrivate: true, APIKey: apiKey},
			core.OperationGetOne: {Enabled: false},
			core.OperationPost:   {Enabled: true, CustomPath: "submissions"},
		},
	})

	// private list without key
	status, env := rawStatus(t, func(result interface{}) (int, error) {
		return s.client.RawGet("/api/secrets", result)
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Code)

	// the custom path serves the POST, the slug does not
	var created itemEnvelope
	status, err := s.client.RawPost("/api/submissions", map[string]interface{}{"value": "x"}, &created)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)

	status, _ = rawStatus(t, func(result interface{}) (int, error) {
		return s.client.RawPost("/api/secrets", map[string]interface{}{"value": "x"}, result)
	})
	assert.Equal(t, http.StatusNotFound, status)

	// disabled operations pretend the collection does not exist
	status, env = rawStatus(t, func(result interface{}) (int, error) {
		return s.client.RawGet("/api/secrets/"+created.Data.ID, result)
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Code)

	// with the key the private list works
	authed := s.client.WithAPIKey(apiKey)
	var list itemListEnvelope
	status, err = authed.RawGet("/api/secrets", &list)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, list.Meta.Total)

	// a wrong key is still unauthorized
	status, _ = rawStatus(t, func(result interface{}) (int, error) {
		return s.client.WithAPIKey("ak_wrong").RawGet("/api/secrets", result)
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestItemDefaultPopulateFromRouteSettings(t *testing.T) {
	s := newTestService(t)
	authors := s.mustCreateCollection(t, CollectionDefinition{
		Name:   "People",
		Fields: []schema.Field{{Name: "name", Type: schema.FieldString}},
	})
	s.mustCreateCollection(t, CollectionDefinition{
		Name: "Books",
		Fields: []schema.Field{
			{Name: "title", Type: schema.FieldString},
			{Name: "writer", Type: schema.FieldRelation,
				Relation: &schema.RelationConfig{CollectionID: authors.ID}},
		},
		RouteSettings: schema.RouteSettings{
			core.OperationGetAll: {Enabled: true, PopulateFields: []string{"writer"}},
		},
	})

	var person itemEnvelope
	_, err := s.client.RawPost("/api/people", map[string]interface{}{"name": "Ada"}, &person)
	require.NoError(t, err)
	var book itemEnvelope
	_, err = s.client.RawPost("/api/books",
		map[string]interface{}{"title": "Notes", "writer": person.Data.ID}, &book)
	require.NoError(t, err)

	// the route's default kicks in without a populate parameter
	var list itemListEnvelope
	_, err = s.client.RawGet("/api/books", &list)
	require.NoError(t, err)
	writer, ok := list.Data[0].Data["writer"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Ada", writer["name"])
}

func TestItemUnknownCollection(t *testing.T) {
	s := newTestService(t)
	status, env := rawStatus(t, func(result interface{}) (int, error) {
		return s.client.RawGet("/api/nope", result)
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Code)
}

func TestItemMalformedBody(t *testing.T) {
	s := newTestService(t)
	s.mustCreateCollection(t, CollectionDefinition{
		Name:   "Notes",
		Fields: []schema.Field{{Name: "text", Type: schema.FieldText}},
	})
	status, env := rawStatus(t, func(result interface{}) (int, error) {
		return s.client.RawPost("/api/notes", []byte(`{not json`), result)
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
}
