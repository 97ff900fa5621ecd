package store

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/apiforge-io/apiforge/core/csql"
)

// document keys in the _documents_ table
const (
	documentCollections = "collections"
	documentItems       = "items"
)

// PGStore keeps the state as two JSON documents in a single postgres
// table. Both documents are saved in one transaction, so a collection
// and its records can never diverge.
type PGStore struct {
	db *csql.DB
}

// NewPGStore creates the documents table if it does not exist yet.
func NewPGStore(db *csql.DB) (*PGStore, error) {
	_, err := db.Exec(`CREATE table IF NOT EXISTS ` + db.Schema + `."_documents_"
(key varchar NOT NULL,
value json NOT NULL,
timestamp timestamp NOT NULL,
PRIMARY KEY(key)
);`)
	if err != nil {
		return nil, fmt.Errorf("cannot create documents table: %w", err)
	}
	return &PGStore{db: db}, nil
}

// Load reads both documents. Missing rows yield an empty state.
func (p *PGStore) Load(ctx context.Context) (State, error) {
	state := NewState()
	if err := p.readDocument(ctx, documentCollections, &state.Collections); err != nil {
		return State{}, err
	}
	if err := p.readDocument(ctx, documentItems, &state.Items); err != nil {
		return State{}, err
	}
	if state.Items == nil {
		state.Items = map[string][]Item{}
	}
	return state, nil
}

// Save writes both documents in a single transaction.
func (p *PGStore) Save(ctx context.Context, state State) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cannot begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `INSERT INTO ` + p.db.Schema + `."_documents_"(key,value,timestamp)
VALUES($1,$2,now())
ON CONFLICT (key) DO UPDATE SET value=$2,timestamp=now();`

	documents := []struct {
		key   string
		value interface{}
	}{
		{documentCollections, state.Collections},
		{documentItems, state.Items},
	}
	for _, doc := range documents {
		body, err := json.Marshal(doc.value)
		if err != nil {
			return fmt.Errorf("cannot marshal document %s: %w", doc.key, err)
		}
		if _, err := tx.ExecContext(ctx, upsert, doc.key, string(body)); err != nil {
			return fmt.Errorf("cannot write document %s: %w", doc.key, err)
		}
	}
	return tx.Commit()
}

func (p *PGStore) readDocument(ctx context.Context, key string, out interface{}) error {
	var rawValue json.RawMessage
	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM `+p.db.Schema+`."_documents_" WHERE key=$1;`,
		key).Scan(&rawValue)
	if err == csql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot read document '%s': %w", key, err)
	}
	return json.Unmarshal(rawValue, out)
}
