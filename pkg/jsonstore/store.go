// Package jsonstore keeps a single JSON document on disk: loaded on first use,
// tracked for modification, and written back atomically.
//
// The launcher uses it for persisted settings and for cached asset indexes.
package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotLoaded is returned by Save when nothing was ever loaded or put.
var ErrNotLoaded = errors.New("jsonstore: document not loaded")

// Mutable
type store[T any] struct {
	path   string
	data   *T
	loaded bool
	dirty  bool
	mu     sync.RWMutex
	opts   *options[T]
}

// Store is a pointer to the internal store implementation.
type Store[T any] = *store[T]

type options[T any] struct {
	indent          string
	fileMode        os.FileMode
	createIfMissing bool
	defaultValue    func() *T
}

// New creates a Store for path. Nothing is read until the first access.
func New[T any](path string, opts ...Option[T]) Store[T] {
	s := &store[T]{
		path: path,
		opts: &options[T]{
			indent:          "  ",
			fileMode:        0644,
			createIfMissing: true,
		},
	}
	for _, opt := range opts {
		opt(s.opts)
	}
	return s
}

// Path returns the backing file.
func (s *store[T]) Path() string { return s.path }

// Exists reports whether the backing file is present on disk.
func (s *store[T]) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Get returns the document, loading it on first call.
func (s *store[T]) Get() (*T, error) {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		return s.data, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.data, nil
	}
	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	return s.data, nil
}

// Modify runs fn against the loaded document and marks it dirty if fn succeeds.
func (s *store[T]) Modify(fn func(*T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if err := s.loadLocked(); err != nil {
			return err
		}
	}
	if err := fn(s.data); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// Put replaces the document without reading the file.
func (s *store[T]) Put(v *T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = v
	s.loaded = true
	s.dirty = true
}

// Save writes the document if it has been modified.
func (s *store[T]) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	if !s.loaded {
		return ErrNotLoaded
	}
	return s.saveLocked()
}

// Reload discards unsaved changes and reads the file again.
func (s *store[T]) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = false
	s.dirty = false
	s.data = nil
	return s.loadLocked()
}

// IsDirty reports unsaved modifications.
func (s *store[T]) IsDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// IsLoaded reports whether the document is in memory.
func (s *store[T]) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Must be called with write lock held.
func (s *store[T]) loadLocked() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read %s: %w", s.path, err)
		}
		if !s.opts.createIfMissing {
			return fmt.Errorf("document not found: %w", err)
		}
		if s.opts.defaultValue != nil {
			s.data = s.opts.defaultValue()
		} else {
			s.data = new(T)
		}
		s.loaded = true
		s.dirty = true
		return nil
	}

	var v T
	if s.opts.defaultValue != nil {
		// Fields absent from the file keep their defaults.
		v = *s.opts.defaultValue()
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", s.path, err)
	}
	s.data = &v
	s.loaded = true
	s.dirty = false
	return nil
}

// Must be called with write lock held.
func (s *store[T]) saveLocked() error {
	var (
		raw []byte
		err error
	)
	if s.opts.indent != "" {
		raw, err = json.MarshalIndent(s.data, "", s.opts.indent)
	} else {
		raw, err = json.Marshal(s.data)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, s.opts.fileMode); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.dirty = false
	return nil
}
