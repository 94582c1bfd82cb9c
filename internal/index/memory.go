package index

import (
	"sync"
	"time"
)

// Entry is a mounted view the index can expire.
type Entry interface {
	ID() string
	// IdleSince returns when the entry was last used; ok is false while it
	// is in active use.
	IdleSince() (since time.Time, ok bool)
	Close()
}

// MemoryIndex keeps the views mounted by this process, keyed by view id.
type MemoryIndex[T Entry] struct {
	mu        sync.RWMutex
	entries   map[string]T // ID -> view
	lastSweep time.Time    // Timestamp of last sweep
}

// NewMemoryIndex creates a new memory index
func NewMemoryIndex[T Entry]() *MemoryIndex[T] {
	return &MemoryIndex[T]{
		entries: make(map[string]T),
	}
}

// Add stores e under its id
func (idx *MemoryIndex[T]) Add(e T) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.entries[e.ID()] = e
}

// Get retrieves an entry by ID
func (idx *MemoryIndex[T]) Get(id string) (T, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	e, ok := idx.entries[id]
	return e, ok
}

// Remove closes and drops the entry. Unknown ids are ignored.
func (idx *MemoryIndex[T]) Remove(id string) {
	idx.mu.Lock()
	e, ok := idx.entries[id]
	delete(idx.entries, id)
	idx.mu.Unlock()

	if ok {
		e.Close()
	}
}

// RemoveFunc closes and drops every entry match reports true for, and
// returns how many were removed
func (idx *MemoryIndex[T]) RemoveFunc(match func(T) bool) int {
	idx.mu.Lock()
	removed := make([]T, 0)
	for id, e := range idx.entries {
		if match(e) {
			removed = append(removed, e)
			delete(idx.entries, id)
		}
	}
	idx.mu.Unlock()

	for _, e := range removed {
		e.Close()
	}
	return len(removed)
}

// Count returns the number of entries in the index
func (idx *MemoryIndex[T]) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.entries)
}

// Sweep closes and drops entries idle for at least idle, and returns their ids
func (idx *MemoryIndex[T]) Sweep(now time.Time, idle time.Duration) []string {
	idx.mu.Lock()
	expired := make([]T, 0)
	for id, e := range idx.entries {
		since, ok := e.IdleSince()
		if !ok || now.Sub(since) < idle {
			continue
		}
		expired = append(expired, e)
		delete(idx.entries, id)
	}
	idx.lastSweep = now
	idx.mu.Unlock()

	ids := make([]string, 0, len(expired))
	for _, e := range expired {
		e.Close()
		ids = append(ids, e.ID())
	}
	return ids
}

// CloseAll closes and drops every entry, returning how many there were
func (idx *MemoryIndex[T]) CloseAll() int {
	idx.mu.Lock()
	all := idx.entries
	idx.entries = make(map[string]T)
	idx.mu.Unlock()

	for _, e := range all {
		e.Close()
	}
	return len(all)
}

// GetLastSweep returns the timestamp of the last sweep
func (idx *MemoryIndex[T]) GetLastSweep() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastSweep
}
