// Package memory implements every port in process. It backs the memory
// storage driver and the workflow scenario tests.
//
// All data lives in a Store guarded by one mutex. A UnitOfWork stages its
// writes and applies them atomically on Commit after re-checking versions and
// terminal states, so the same optimistic-concurrency and immutability rules
// hold as in the PostgreSQL adapter.
package memory

import (
	"context"
	"sync"

	"tradeflow/internal/core/domain/model/header"
	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/record"
	"tradeflow/internal/core/ports"
)

type storedRecord struct {
	seq    int
	record *record.Record
}

// Store is the shared in-memory database.
type Store struct {
	mu sync.RWMutex

	items     map[kernel.UUID]*item.Item
	itemSeq   map[kernel.UUID]int
	headers   map[kernel.UUID]*header.Header
	records   map[kernel.UUID]storedRecord
	audit     []ports.AuditEntry
	seq       int
	inventory *Inventory
}

func NewStore() *Store {
	return &Store{
		items:     make(map[kernel.UUID]*item.Item),
		itemSeq:   make(map[kernel.UUID]int),
		headers:   make(map[kernel.UUID]*header.Header),
		records:   make(map[kernel.UUID]storedRecord),
		inventory: NewInventory(),
	}
}

func (s *Store) nextSeq() int {
	s.seq++
	return s.seq
}

// Inventory returns the stock ledger that shares this store's lifetime.
func (s *Store) Inventory() *Inventory {
	return s.inventory
}

// AuditEntries returns a copy of the audit log, oldest first.
func (s *Store) AuditEntries() []ports.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ports.AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}

// SeedItem stores an item as-is, bypassing version and terminal checks.
// Fixtures use it to place items directly in a given state.
func (s *Store) SeedItem(it *item.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.itemSeq[it.ID()]; !ok {
		s.itemSeq[it.ID()] = s.nextSeq()
	}
	s.items[it.ID()] = it.Clone()
}

// OpenItems returns committed items of kind that are neither closed nor
// deleted, in creation order. A nil kind means every kind.
func (s *Store) OpenItems(_ context.Context, kind *item.Kind) ([]*item.Item, error) {
	uow := &UnitOfWork{store: s}
	var out []*item.Item
	for _, it := range uow.snapshotItems() {
		if kind != nil && it.Kind() != *kind {
			continue
		}
		if it.IsTerminal() || it.IsDeleted() {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}
