// Package testutil provides in-memory fakes of the external collaborators.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/coastline-realty/content-backend/pkg/storage"
)

// MemoryObjectStore implements storage.ObjectStore in memory and records calls.
type MemoryObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	PutErr    error
	GetErr    error
	ListErr   error
	DeleteErr error
	// FailPutAfter makes every Put after the first n fail with PutErr. Zero
	// disables it.
	FailPutAfter int

	Puts    []string
	Deletes []string
}

// NewMemoryObjectStore creates an empty store.
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: make(map[string][]byte)}
}

func (m *MemoryObjectStore) Put(_ context.Context, key string, body []byte, _ storage.PutOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil && (m.FailPutAfter == 0 || len(m.Puts) >= m.FailPutAfter) {
		return "", m.PutErr
	}
	m.objects[key] = append([]byte(nil), body...)
	m.Puts = append(m.Puts, key)
	return "https://blob.test/" + key, nil
}

func (m *MemoryObjectStore) List(_ context.Context, prefix string) ([]storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []storage.Object
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.Object{Key: k, URL: "https://blob.test/" + k})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryObjectStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryObjectStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.objects, key)
	m.Deletes = append(m.Deletes, key)
	return nil
}

// Set stores body at key without recording a Put.
func (m *MemoryObjectStore) Set(key string, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = []byte(body)
}

// Object returns the body at key.
func (m *MemoryObjectStore) Object(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return string(data), ok
}

// KeyForURL inverts the URLs returned by Put.
func (m *MemoryObjectStore) KeyForURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, "https://blob.test/")
	return key, ok && key != ""
}

// PutCount returns how many successful Puts targeted key.
func (m *MemoryObjectStore) PutCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, k := range m.Puts {
		if k == key {
			n++
		}
	}
	return n
}

// MemoryBaseline implements storage.BaselineStore in memory.
type MemoryBaseline struct {
	mu    sync.Mutex
	docs  map[string][]byte
	Err   error
	Write int
}

// NewMemoryBaseline creates a baseline seeded with docs (name → JSON).
func NewMemoryBaseline(docs map[string]string) *MemoryBaseline {
	b := &MemoryBaseline{docs: make(map[string][]byte)}
	for k, v := range docs {
		b.docs[k] = []byte(v)
	}
	return b
}

func (b *MemoryBaseline) ReadCollection(_ context.Context, name string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return nil, b.Err
	}
	data, ok := b.docs[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (b *MemoryBaseline) WriteCollection(_ context.Context, name string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	b.docs[name] = append([]byte(nil), data...)
	b.Write++
	return nil
}

// Doc returns the stored document for name.
func (b *MemoryBaseline) Doc(name string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.docs[name])
}
