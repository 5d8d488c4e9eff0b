package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"releasewatch/internal/core"
)

// Store keeps one JSON snapshot file per entity under a per-kind directory:
// <root>/movies/<id>.json and <root>/shows/<id>.json. There is no locking;
// concurrent writers are last-writer-wins.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) entityPath(kind core.MediaKind, id int) string {
	return filepath.Join(s.root, dirFor(kind), strconv.Itoa(id)+".json")
}

func dirFor(kind core.MediaKind) string {
	if kind == core.KindShow {
		return "shows"
	}
	return "movies"
}

// Get returns the cached snapshot tree for an entity. A missing file is a
// cache miss, never an error.
func (s *Store) Get(kind core.MediaKind, id int) (map[string]interface{}, bool, error) {
	data, err := os.ReadFile(s.entityPath(kind, id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached %s %d: %w", kind, id, err)
	}

	var tree map[string]interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached %s %d: %w", kind, id, err)
	}
	return tree, true, nil
}

// Put overwrites the cached snapshot for an entity, creating the per-kind
// directory on first use.
func (s *Store) Put(kind core.MediaKind, id int, tree map[string]interface{}) error {
	dir := filepath.Join(s.root, dirFor(kind))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s %d: %w", kind, id, err)
	}
	if err := os.WriteFile(s.entityPath(kind, id), data, 0644); err != nil {
		return fmt.Errorf("failed to write cached %s %d: %w", kind, id, err)
	}
	return nil
}
