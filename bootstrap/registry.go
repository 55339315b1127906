package bootstrap

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Module is an opaque loaded-module handle: the registry's load
// capability returns one of these rather than a data: URL — the kernel
// only ever holds byte buffers and opaque handles, never a synthesized
// importable URL.
type Module struct {
	Key   uint64
	Name  string
	Bytes []byte
}

// Registry is a content-addressed cache of loaded modules, keyed by an
// xxhash-64 digest of their bytes so the same module body loaded under
// different names (or reloaded) resolves to the same handle.
type Registry struct {
	mu      sync.Mutex
	modules map[uint64]*Module
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{modules: map[uint64]*Module{}}
}

// Load returns the Module for bytes, loading (hashing and caching) it if
// this is the first time these exact bytes have been seen.
func (r *Registry) Load(name string, bytes []byte) (*Module, error) {
	if len(bytes) == 0 {
		return nil, fmt.Errorf("bootstrap: cannot load empty module body for %q", name)
	}
	key := xxhash.Sum64(bytes)

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.modules[key]; ok {
		return m, nil
	}
	m := &Module{Key: key, Name: name, Bytes: bytes}
	r.modules[key] = m
	return m, nil
}

// Lookup returns the cached Module for key, if loaded.
func (r *Registry) Lookup(key uint64) (*Module, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[key]
	return m, ok
}

// Len reports how many distinct module bodies are cached.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.modules)
}
