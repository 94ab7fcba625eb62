// Package memory stores artifacts in-memory for tests and development.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Object captures one stored artifact.
type Object struct {
	Name        string
	ContentType string
	Data        []byte
}

// Store keeps artifacts in a map and returns pseudo URIs.
type Store struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{objects: make(map[string]Object)}
}

// Put records the artifact and returns a memory:// URI.
func (s *Store) Put(_ context.Context, name string, contentType string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[name] = Object{
		Name:        name,
		ContentType: contentType,
		Data:        append([]byte(nil), data...),
	}
	return fmt.Sprintf("memory://%s", name), nil
}

// Close does nothing.
func (s *Store) Close() error {
	return nil
}

// Object returns the stored artifact for name, if present.
func (s *Store) Object(name string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[name]
	return obj, ok
}

// Len reports how many artifacts have been stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.objects)
}
