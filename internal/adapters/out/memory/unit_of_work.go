package memory

import (
	"context"
	"errors"
	"slices"
	"sort"

	"tradeflow/internal/core/domain/model/header"
	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/record"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/errs"
)

// ErrNoActiveTransaction mirrors gorm.ErrInvalidTransaction for the memory driver.
var ErrNoActiveTransaction = errors.New("no active transaction")

// UnitOfWorkFactory creates memory units of work over one Store.
type UnitOfWorkFactory struct {
	store *Store
}

func NewUnitOfWorkFactory(store *Store) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{store: store}
}

func (f *UnitOfWorkFactory) Create() ports.UnitOfWork {
	return &UnitOfWork{store: f.store}
}

type stagedItem struct {
	item  *item.Item
	isNew bool
	// base is the stored version the first staged write was made against.
	base int64
}

// UnitOfWork stages writes and applies them under the store lock on Commit.
// Without Begin every write commits immediately.
type UnitOfWork struct {
	store  *Store
	active bool

	items        map[kernel.UUID]*stagedItem
	itemOrder    []kernel.UUID
	headers      map[kernel.UUID]*header.Header
	records      map[kernel.UUID]*record.Record
	recordIsNew  map[kernel.UUID]bool
	recordOrder  []kernel.UUID
	auditEntries []ports.AuditEntry
}

func (uow *UnitOfWork) reset() {
	uow.items = make(map[kernel.UUID]*stagedItem)
	uow.itemOrder = nil
	uow.headers = make(map[kernel.UUID]*header.Header)
	uow.records = make(map[kernel.UUID]*record.Record)
	uow.recordIsNew = make(map[kernel.UUID]bool)
	uow.recordOrder = nil
	uow.auditEntries = nil
}

func (uow *UnitOfWork) Begin(_ context.Context) error {
	if uow.active {
		return nil
	}
	uow.reset()
	uow.active = true
	return nil
}

func (uow *UnitOfWork) Commit(_ context.Context) error {
	if !uow.active {
		return ErrNoActiveTransaction
	}
	uow.active = false
	return uow.apply()
}

func (uow *UnitOfWork) Rollback(_ context.Context) error {
	if !uow.active {
		return ErrNoActiveTransaction
	}
	uow.active = false
	uow.reset()
	return nil
}

func (uow *UnitOfWork) ItemRepository() ports.ItemRepository     { return &itemRepository{uow: uow} }
func (uow *UnitOfWork) HeaderRepository() ports.HeaderRepository { return &headerRepository{uow: uow} }
func (uow *UnitOfWork) RecordRepository() ports.RecordRepository { return &recordRepository{uow: uow} }
func (uow *UnitOfWork) AuditRepository() ports.AuditRepository   { return &auditRepository{uow: uow} }

// write runs fn against staged state, committing at once outside a transaction.
func (uow *UnitOfWork) write(fn func() error) error {
	if uow.active {
		return fn()
	}
	uow.reset()
	if err := fn(); err != nil {
		return err
	}
	return uow.apply()
}

// apply verifies every staged write against the store and then applies all
// of them, or none.
func (uow *UnitOfWork) apply() error {
	s := uow.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range uow.itemOrder {
		st := uow.items[id]
		stored, exists := s.items[id]
		switch {
		case st.isNew && exists:
			return errs.NewValueIsInvalidErrorWithCause("item", errors.New("item "+id.String()+" already exists"))
		case !st.isNew && !exists:
			return errs.NewObjectNotFoundError("item", id)
		case !st.isNew && stored.IsTerminal():
			return errs.NewImmutableItemError(id.String(), string(stored.State()))
		case !st.isNew && stored.Version() != st.base:
			return errs.NewConcurrentModificationError(id.String(), st.base)
		}
	}
	for id, isNew := range uow.recordIsNew {
		if _, exists := s.records[id]; !isNew && !exists {
			return errs.NewObjectNotFoundError("record", id)
		}
	}

	for _, id := range uow.itemOrder {
		st := uow.items[id]
		if st.isNew {
			s.itemSeq[id] = s.nextSeq()
		}
		s.items[id] = st.item.Clone()
	}
	for id, h := range uow.headers {
		s.headers[id] = h
	}
	for _, id := range uow.recordOrder {
		if uow.recordIsNew[id] {
			s.records[id] = storedRecord{seq: s.nextSeq(), record: uow.records[id]}
			continue
		}
		existing := s.records[id]
		existing.record = uow.records[id]
		s.records[id] = existing
	}
	s.audit = append(s.audit, uow.auditEntries...)

	uow.reset()
	return nil
}

// lookupItem returns the staged or stored item, cloned.
func (uow *UnitOfWork) lookupItem(id kernel.UUID) (*item.Item, bool) {
	if uow.items != nil {
		if st, ok := uow.items[id]; ok {
			return st.item.Clone(), true
		}
	}
	uow.store.mu.RLock()
	defer uow.store.mu.RUnlock()
	it, ok := uow.store.items[id]
	if !ok {
		return nil, false
	}
	return it.Clone(), true
}

// snapshotItems returns every visible item ordered by creation.
func (uow *UnitOfWork) snapshotItems() []*item.Item {
	s := uow.store
	s.mu.RLock()
	type entry struct {
		seq int
		it  *item.Item
	}
	entries := make([]entry, 0, len(s.items))
	seen := make(map[kernel.UUID]bool, len(s.items))
	for id, it := range s.items {
		if uow.items != nil {
			if st, ok := uow.items[id]; ok {
				it = st.item
			}
		}
		entries = append(entries, entry{seq: s.itemSeq[id], it: it.Clone()})
		seen[id] = true
	}
	maxSeq := s.seq
	s.mu.RUnlock()

	for i, id := range uow.itemOrder {
		if !seen[id] {
			entries = append(entries, entry{seq: maxSeq + i + 1, it: uow.items[id].item.Clone()})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]*item.Item, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.it)
	}
	return out
}

type itemRepository struct {
	uow *UnitOfWork
}

func (r *itemRepository) Add(_ context.Context, aggregate *item.Item) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	return r.uow.write(func() error {
		id := aggregate.ID()
		if _, exists := r.uow.lookupItem(id); exists {
			return errs.NewValueIsInvalidErrorWithCause("item", errors.New("item "+id.String()+" already exists"))
		}
		r.uow.items[id] = &stagedItem{item: aggregate.Clone(), isNew: true}
		r.uow.itemOrder = append(r.uow.itemOrder, id)
		return nil
	})
}

func (r *itemRepository) Update(_ context.Context, aggregate *item.Item) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	return r.uow.write(func() error {
		id := aggregate.ID()
		current, ok := r.uow.lookupItem(id)
		if !ok {
			return errs.NewObjectNotFoundError("item", id)
		}
		if current.IsTerminal() {
			return errs.NewImmutableItemError(id.String(), string(current.State()))
		}
		if current.Version() != aggregate.Version() {
			return errs.NewConcurrentModificationError(id.String(), aggregate.Version())
		}

		next := aggregate.Version() + 1
		staged := aggregate.Clone()
		staged.MarkPersisted(next)

		if st, ok := r.uow.items[id]; ok {
			st.item = staged
		} else {
			r.uow.items[id] = &stagedItem{item: staged, base: current.Version()}
			r.uow.itemOrder = append(r.uow.itemOrder, id)
		}
		aggregate.MarkPersisted(next)
		return nil
	})
}

func (r *itemRepository) Get(_ context.Context, id kernel.UUID) (*item.Item, error) {
	it, ok := r.uow.lookupItem(id)
	if !ok {
		return nil, errs.NewObjectNotFoundError("item", id)
	}
	return it, nil
}

func (r *itemRepository) ListByHeader(_ context.Context, headerID kernel.UUID) ([]*item.Item, error) {
	var out []*item.Item
	for _, it := range r.uow.snapshotItems() {
		if it.HeaderID().IsEqual(headerID) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *itemRepository) ListOpenWithDeadline(_ context.Context, kind *item.Kind) ([]*item.Item, error) {
	var out []*item.Item
	for _, it := range r.uow.snapshotItems() {
		if kind != nil && it.Kind() != *kind {
			continue
		}
		if it.IsDeleted() || it.IsTerminal() || it.SLA().DueAt == nil {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

type headerRepository struct {
	uow *UnitOfWork
}

func (r *headerRepository) Add(_ context.Context, h *header.Header) error {
	if err := h.Validate(); err != nil {
		return err
	}
	return r.uow.write(func() error {
		r.uow.headers[h.ID()] = h
		return nil
	})
}

func (r *headerRepository) Get(_ context.Context, id kernel.UUID) (*header.Header, error) {
	if r.uow.headers != nil {
		if h, ok := r.uow.headers[id]; ok {
			return h, nil
		}
	}
	r.uow.store.mu.RLock()
	defer r.uow.store.mu.RUnlock()
	h, ok := r.uow.store.headers[id]
	if !ok {
		return nil, errs.NewObjectNotFoundError("header", id)
	}
	return h, nil
}

type recordRepository struct {
	uow *UnitOfWork
}

func (r *recordRepository) Add(_ context.Context, rec *record.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return r.uow.write(func() error {
		r.uow.records[rec.ID()] = rec
		r.uow.recordIsNew[rec.ID()] = true
		r.uow.recordOrder = append(r.uow.recordOrder, rec.ID())
		return nil
	})
}

func (r *recordRepository) UpdateStatus(ctx context.Context, rec *record.Record) error {
	if _, err := r.Get(ctx, rec.ID()); err != nil {
		return err
	}
	return r.uow.write(func() error {
		if _, staged := r.uow.records[rec.ID()]; !staged {
			r.uow.recordIsNew[rec.ID()] = false
			r.uow.recordOrder = append(r.uow.recordOrder, rec.ID())
		}
		r.uow.records[rec.ID()] = rec
		return nil
	})
}

func (r *recordRepository) Get(_ context.Context, id kernel.UUID) (*record.Record, error) {
	if r.uow.records != nil {
		if rec, ok := r.uow.records[id]; ok {
			return rec, nil
		}
	}
	r.uow.store.mu.RLock()
	defer r.uow.store.mu.RUnlock()
	sr, ok := r.uow.store.records[id]
	if !ok {
		return nil, errs.NewObjectNotFoundError("record", id)
	}
	return sr.record, nil
}

func (r *recordRepository) ListByItem(_ context.Context, itemID kernel.UUID, kind record.Kind) ([]*record.Record, error) {
	s := r.uow.store
	s.mu.RLock()
	var stored []storedRecord
	for id, sr := range s.records {
		if r.uow.records != nil {
			if staged, ok := r.uow.records[id]; ok {
				sr.record = staged
			}
		}
		stored = append(stored, sr)
	}
	s.mu.RUnlock()
	sort.Slice(stored, func(i, j int) bool { return stored[i].seq < stored[j].seq })

	var out []*record.Record
	matches := func(rec *record.Record) bool {
		return rec.ItemID().IsEqual(itemID) && (kind == "" || rec.Kind() == kind)
	}
	for _, sr := range stored {
		if matches(sr.record) {
			out = append(out, sr.record)
		}
	}
	for _, id := range r.uow.recordOrder {
		if rec := r.uow.records[id]; r.uow.recordIsNew[id] && matches(rec) && !slices.Contains(out, rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

type auditRepository struct {
	uow *UnitOfWork
}

func (r *auditRepository) Append(_ context.Context, entry ports.AuditEntry) error {
	return r.uow.write(func() error {
		r.uow.auditEntries = append(r.uow.auditEntries, entry)
		return nil
	})
}

func (r *auditRepository) ListByRecord(_ context.Context, table, recordID string) ([]ports.AuditEntry, error) {
	var out []ports.AuditEntry
	for _, e := range r.uow.store.AuditEntries() {
		if e.Table == table && e.RecordID == recordID {
			out = append(out, e)
		}
	}
	for _, e := range r.uow.auditEntries {
		if e.Table == table && e.RecordID == recordID {
			out = append(out, e)
		}
	}
	return out, nil
}
