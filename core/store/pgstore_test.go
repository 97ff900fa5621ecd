package store

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/apiforge-io/apiforge/core/csql"
	"github.com/apiforge-io/apiforge/core/schema"
)

// TestPGStoreRoundTrip spins up a disposable postgres container. It only
// runs when APIFORGE_TEST_DOCKER is set, so the regular test run does
// not require a docker daemon.
func TestPGStoreRoundTrip(t *testing.T) {
	if os.Getenv("APIFORGE_TEST_DOCKER") == "" {
		t.Skip("set APIFORGE_TEST_DOCKER to run container-backed tests")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:15",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer pgC.Terminate(ctx)

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=testuser password=testpass dbname=testdb sslmode=disable",
		host, port.Port())
	db, err := csql.OpenWithSchema(dsn, "apiforge_test")
	require.NoError(t, err)
	defer db.Close()

	pg, err := NewPGStore(db)
	require.NoError(t, err)

	state, err := pg.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, state.Collections)

	c := schema.NewCollection("Tags", []schema.Field{
		{Name: "label", Type: schema.FieldString, Required: true},
	}, "")
	state.Collections = append(state.Collections, c)
	state.Items[c.ID] = []Item{
		{ID: "t1", CollectionID: c.ID, Data: map[string]interface{}{"label": "go"}},
	}
	require.NoError(t, pg.Save(ctx, state))

	loaded, err := pg.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Collections, 1)
	require.Equal(t, "tags", loaded.Collections[0].Slug)
	require.Len(t, loaded.Items[c.ID], 1)
	require.Equal(t, "go", loaded.Items[c.ID][0].Data["label"])

	// overwrite and reload: save replaces, it does not append
	loaded.Items[c.ID] = nil
	require.NoError(t, pg.Save(ctx, loaded))
	again, err := pg.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, again.Items[c.ID])
}
