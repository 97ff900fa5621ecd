package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

const (
	collectionsFile = "collections.json"
	itemsFile       = "items.json"
)

// FileStore keeps the state in two JSON documents inside a data
// directory. Each document is written through a temporary file and an
// atomic rename, so readers never observe a torn write.
type FileStore struct {
	dataDir string
}

// NewFileStore creates the data directory if necessary.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create data dir %s: %w", dataDir, err)
	}
	return &FileStore{dataDir: dataDir}, nil
}

// Load reads both documents. Missing files yield an empty state, so a
// fresh data directory works without initialization.
func (f *FileStore) Load(ctx context.Context) (State, error) {
	state := NewState()
	if err := f.readDocument(collectionsFile, &state.Collections); err != nil {
		return State{}, err
	}
	if err := f.readDocument(itemsFile, &state.Items); err != nil {
		return State{}, err
	}
	if state.Items == nil {
		state.Items = map[string][]Item{}
	}
	return state, nil
}

// Save writes both documents. The items document is written first: if
// the second rename never happens, the worst case is records for a
// collection that does not exist yet, which loaders ignore.
func (f *FileStore) Save(ctx context.Context, state State) error {
	if err := f.writeDocument(itemsFile, state.Items); err != nil {
		return err
	}
	return f.writeDocument(collectionsFile, state.Collections)
}

func (f *FileStore) readDocument(name string, out interface{}) error {
	data, err := os.ReadFile(filepath.Join(f.dataDir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("cannot parse %s: %w", name, err)
	}
	return nil
}

func (f *FileStore) writeDocument(name string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal %s: %w", name, err)
	}
	target := filepath.Join(f.dataDir, name)
	tmp, err := os.CreateTemp(f.dataDir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("cannot create temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("cannot write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("cannot replace %s: %w", name, err)
	}
	return nil
}
