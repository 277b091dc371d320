package recordstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Document is one schemaless record in a collection. Values carry JSON
// types only (string, float64, bool, nil, []any, map[string]any); anything
// inserted is normalized to those on the way in.
type Document map[string]any

// Store is an embedded, file-backed document database. All collections
// live in a single JSON file next to the application. Every mutating call
// rewrites the file before returning, so a crash between two calls never
// loses a completed call's effect and never applies half of one.
//
// A single mutex serializes all operations. Individual calls are atomic;
// multi-call sequences (check-then-insert, verify-then-update) are not,
// and callers own that trade-off.
type Store struct {
	mu          sync.Mutex
	path        string
	collections map[string][]Document
}

// Open loads the store file at path, creating the parent directory if
// needed. A missing file is a valid empty store.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("recordstore: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("recordstore: create dir %s: %w", dir, err)
		}
	}

	s := &Store{
		path:        path,
		collections: make(map[string][]Document),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("recordstore: read %s: %w", path, err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.collections); err != nil {
		return nil, fmt.Errorf("recordstore: parse %s: %w", path, err)
	}
	return s, nil
}

// Close flushes the current state one final time.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// Insert adds a document to a collection and returns the stored copy.
// No validation is performed beyond normalization; uniqueness checks are
// the caller's job before inserting.
func (s *Store) Insert(collection string, doc Document) (Document, error) {
	stored, err := normalize(doc)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.collections[collection] = append(s.collections[collection], stored)
	if err := s.persistLocked(); err != nil {
		// Roll back the in-memory append so memory matches disk.
		docs := s.collections[collection]
		s.collections[collection] = docs[:len(docs)-1]
		return nil, err
	}
	return copyDoc(stored), nil
}

// Find returns copies of every document in the collection matching the
// predicate. Result order is unspecified.
func (s *Store) Find(collection string, pred Predicate) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Document
	for _, doc := range s.collections[collection] {
		if pred.Match(doc) {
			out = append(out, copyDoc(doc))
		}
	}
	return out, nil
}

// Update merges the given fields into every document matching the
// predicate, leaving other fields untouched. It returns the number of
// documents that matched.
//
// The merge is applied to copies which replace the collection only for
// the persist attempt; a persist failure restores the previous state,
// so a failed call leaves nothing behind for a later call to commit.
func (s *Store) Update(collection string, partial Document, pred Predicate) (int, error) {
	fields, err := normalize(partial)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.collections[collection]
	updated := make([]Document, len(prev))
	matched := 0
	for i, doc := range prev {
		if pred.Match(doc) {
			merged := copyDoc(doc)
			for k, v := range fields {
				merged[k] = v
			}
			updated[i] = merged
			matched++
		} else {
			updated[i] = doc
		}
	}
	if matched == 0 {
		return 0, nil
	}

	s.collections[collection] = updated
	if err := s.persistLocked(); err != nil {
		s.collections[collection] = prev
		return 0, err
	}
	return matched, nil
}

// Remove deletes every document matching the predicate and returns the
// removed documents. Like Update, the collection is only replaced for
// the persist attempt and restored if the persist fails.
func (s *Store) Remove(collection string, pred Predicate) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.collections[collection]
	var kept []Document
	var removed []Document
	for _, doc := range prev {
		if pred.Match(doc) {
			removed = append(removed, doc)
		} else {
			kept = append(kept, doc)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}

	s.collections[collection] = kept
	if err := s.persistLocked(); err != nil {
		s.collections[collection] = prev
		return nil, err
	}
	return removed, nil
}

// persistLocked writes the whole store to a temp file and renames it over
// the backing file, so readers never observe a torn write. Caller must
// hold s.mu.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.collections, "", "  ")
	if err != nil {
		return fmt.Errorf("recordstore: marshal: %w", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("recordstore: open temp: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("recordstore: write temp: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("recordstore: sync temp: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("recordstore: close temp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("recordstore: replace %s: %w", s.path, err)
	}
	return nil
}

// normalize deep-copies a document through JSON so stored values carry
// JSON types only. This is what makes Eq(42) match a document that was
// persisted and reloaded.
func normalize(doc Document) (Document, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("recordstore: normalize: %w", err)
	}
	var out Document
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("recordstore: normalize: %w", err)
	}
	if out == nil {
		out = Document{}
	}
	return out, nil
}

// copyDoc returns a deep copy of an already-normalized document.
func copyDoc(doc Document) Document {
	out, err := normalize(doc)
	if err != nil {
		// Normalized documents always re-marshal cleanly.
		panic(err)
	}
	return out
}
