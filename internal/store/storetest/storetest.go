// Package storetest provides RecordStore wrappers for tests that need to
// observe or break individual writes.
package storetest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"evdealer/backend/internal/store"
)

var ErrInjected = errors.New("injected store failure")

// FailingStore delegates to an inner store and fails Put calls whose key
// starts with a registered prefix.
type FailingStore struct {
	store.RecordStore

	mu       sync.Mutex
	failPuts map[string]int
	puts     []string
}

func NewFailingStore(inner store.RecordStore) *FailingStore {
	return &FailingStore{RecordStore: inner, failPuts: make(map[string]int)}
}

// FailPuts makes the next n Puts under prefix fail. n < 0 fails forever.
func (f *FailingStore) FailPuts(prefix string, n int) {
	f.mu.Lock()
	f.failPuts[prefix] = n
	f.mu.Unlock()
}

func (f *FailingStore) Heal() {
	f.mu.Lock()
	f.failPuts = make(map[string]int)
	f.mu.Unlock()
}

func (f *FailingStore) Put(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	for prefix, remaining := range f.failPuts {
		if !strings.HasPrefix(key, prefix) || remaining == 0 {
			continue
		}
		if remaining > 0 {
			f.failPuts[prefix] = remaining - 1
		}
		f.mu.Unlock()
		return ErrInjected
	}
	f.puts = append(f.puts, key)
	f.mu.Unlock()
	return f.RecordStore.Put(ctx, key, value)
}

// Puts lists the keys written successfully, in order.
func (f *FailingStore) Puts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.puts))
	copy(out, f.puts)
	return out
}
