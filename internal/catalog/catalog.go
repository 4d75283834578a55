// Package catalog implements the tag-to-product lookup backed by a JSON
// key-value document.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rfidlab/smarttray/internal/model"
)

// docEntry is the on-disk shape of one product. The document is a flat
// mapping: { "<TAG>": {"name": string, "price": number}, ... }.
type docEntry struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Store is a read-mostly catalog. Admin edits persist the whole document.
type Store struct {
	mu   sync.RWMutex
	path string
	m    map[model.Tag]model.Product
}

// New creates an empty in-memory catalog with no backing document.
func New() *Store {
	return &Store{m: make(map[model.Tag]model.Product)}
}

// Open loads the catalog document at path. A missing file yields an empty
// catalog; an unreadable or malformed file is a startup error.
func Open(path string) (*Store, error) {
	s := &Store{path: path, m: make(map[model.Tag]model.Product)}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var doc map[string]docEntry
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	for raw, e := range doc {
		tag := model.NormalizeTag(raw)
		if tag == "" || e.Price < 0 {
			return nil, fmt.Errorf("catalog %s: invalid entry %q", path, raw)
		}
		s.m[tag] = model.Product{Name: e.Name, Price: decimal.NewFromFloat(e.Price)}
	}
	return s, nil
}

// Get returns the product for a tag.
func (s *Store) Get(tag model.Tag) (model.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.m[tag]
	return p, ok
}

// Keys returns all catalog tags in sorted order.
func (s *Store) Keys() []model.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]model.Tag, 0, len(s.m))
	for tag := range s.m {
		keys = append(keys, tag)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// All returns a copy of the catalog contents.
func (s *Store) All() map[model.Tag]model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[model.Tag]model.Product, len(s.m))
	for tag, p := range s.m {
		out[tag] = p
	}
	return out
}

// Len returns the number of catalog entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Set adds or replaces a product and persists the document.
func (s *Store) Set(tag model.Tag, p model.Product) error {
	if tag == "" {
		return fmt.Errorf("empty tag")
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("negative price for %s", tag)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[tag] = p
	return s.saveLocked()
}

// Delete removes a product and persists the document. It reports whether the
// tag was present.
func (s *Store) Delete(tag model.Tag) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[tag]; !ok {
		return false, nil
	}
	delete(s.m, tag)
	return true, s.saveLocked()
}

// saveLocked writes the document atomically. Callers hold the write lock.
func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}
	doc := make(map[string]docEntry, len(s.m))
	for tag, p := range s.m {
		doc[string(tag)] = docEntry{Name: p.Name, Price: p.Price.InexactFloat64()}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}
