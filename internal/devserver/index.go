package devserver

import (
	"sync"

	"github.com/starford/grimoire/internal/search"
)

// Index holds the search records of the latest successful build. It is safe
// for concurrent use: the watcher swaps records in while handlers query.
type Index struct {
	mu      sync.RWMutex
	records []search.Record
}

// Set replaces the indexed records.
func (i *Index) Set(records []search.Record) {
	i.mu.Lock()
	i.records = records
	i.mu.Unlock()
}

// Len returns the number of indexed records.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.records)
}

// Query scores the indexed records against q.
func (i *Index) Query(q string, limit int) []search.Result {
	i.mu.RLock()
	records := i.records
	i.mu.RUnlock()
	return search.Query(records, q, limit)
}
