package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/property-reservation/internal/model"
)

// MemoryStore is a process-local Store used when STORAGE_DRIVER=memory
// and by tests.  Units of work are serialised by a single mutex, so every
// property is implicitly locked for the duration of WithinTx.  Writes go
// to a working copy that replaces the committed state only when the unit
// succeeds.
type MemoryStore struct {
	mu   sync.RWMutex
	data memoryData
	now  func() time.Time
}

type memoryData struct {
	nextBookingID uint64
	nextBlockID   uint64
	bookings      map[uint64]model.Booking
	blocks        map[uint64]model.Block
}

func (d *memoryData) clone() memoryData {
	c := memoryData{
		nextBookingID: d.nextBookingID,
		nextBlockID:   d.nextBlockID,
		bookings:      make(map[uint64]model.Booking, len(d.bookings)),
		blocks:        make(map[uint64]model.Block, len(d.blocks)),
	}
	for k, v := range d.bookings {
		c.bookings[k] = v
	}
	for k, v := range d.blocks {
		c.blocks[k] = v
	}
	return c
}

// NewMemoryStore returns an empty store.  IDs start at 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: memoryData{
			bookings: make(map[uint64]model.Booking),
			blocks:   make(map[uint64]model.Block),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithinTx runs fn against a private copy of the data and commits the
// copy when fn returns nil.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.data.clone()
	if err := fn(ctx, &memoryTx{data: &work, now: s.now}); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *MemoryStore) Bookings() BookingStore { return lockedBookings{s: s} }
func (s *MemoryStore) Blocks() BlockStore     { return lockedBlocks{s: s} }
func (s *MemoryStore) Close() error           { return nil }

type memoryTx struct {
	data *memoryData
	now  func() time.Time
}

func (t *memoryTx) Bookings() BookingStore { return memBookings{d: t.data, now: t.now} }
func (t *memoryTx) Blocks() BlockStore     { return memBlocks{d: t.data, now: t.now} }

// LockProperty is a no-op: WithinTx already excludes every other unit.
func (t *memoryTx) LockProperty(ctx context.Context, propertyID string) error { return ctx.Err() }

// ---- bookings ----

type memBookings struct {
	d   *memoryData
	now func() time.Time
}

func (m memBookings) Insert(_ context.Context, b *model.Booking) error {
	m.d.nextBookingID++
	b.ID = m.d.nextBookingID
	now := m.now()
	b.CreatedAt, b.UpdatedAt = now, now
	m.d.bookings[b.ID] = *b
	return nil
}

func (m memBookings) Get(_ context.Context, id uint64) (*model.Booking, error) {
	b, ok := m.d.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m memBookings) Update(_ context.Context, b *model.Booking) error {
	cur, ok := m.d.bookings[b.ID]
	if !ok {
		return ErrNotFound
	}
	b.CreatedAt = cur.CreatedAt
	b.UpdatedAt = m.now()
	m.d.bookings[b.ID] = *b
	return nil
}

func (m memBookings) Delete(_ context.Context, id uint64) error {
	if _, ok := m.d.bookings[id]; !ok {
		return ErrNotFound
	}
	delete(m.d.bookings, id)
	return nil
}

func (m memBookings) FindOverlapping(_ context.Context, propertyID string, r model.DateRange, status *model.BookingStatus) ([]model.Booking, error) {
	out := make([]model.Booking, 0)
	for _, b := range m.d.bookings {
		if b.PropertyID != propertyID || !b.Range.Overlaps(r) {
			continue
		}
		if status != nil && b.Status != *status {
			continue
		}
		out = append(out, b)
	}
	sortBookings(out)
	return out, nil
}

func (m memBookings) List(_ context.Context, f BookingFilter) ([]model.Booking, error) {
	out := make([]model.Booking, 0)
	for _, b := range m.d.bookings {
		if f.PropertyID != "" && b.PropertyID != f.PropertyID {
			continue
		}
		if f.Status != nil && b.Status != *f.Status {
			continue
		}
		out = append(out, b)
	}
	sortBookings(out)
	return out, nil
}

func sortBookings(bs []model.Booking) {
	sort.Slice(bs, func(i, j int) bool {
		if !bs[i].Range.Start.Equal(bs[j].Range.Start) {
			return bs[i].Range.Start.Before(bs[j].Range.Start)
		}
		return bs[i].ID < bs[j].ID
	})
}

// ---- blocks ----

type memBlocks struct {
	d   *memoryData
	now func() time.Time
}

func (m memBlocks) Insert(_ context.Context, b *model.Block) error {
	m.d.nextBlockID++
	b.ID = m.d.nextBlockID
	now := m.now()
	b.CreatedAt, b.UpdatedAt = now, now
	m.d.blocks[b.ID] = *b
	return nil
}

func (m memBlocks) Get(_ context.Context, id uint64) (*model.Block, error) {
	b, ok := m.d.blocks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m memBlocks) Update(_ context.Context, b *model.Block) error {
	cur, ok := m.d.blocks[b.ID]
	if !ok {
		return ErrNotFound
	}
	b.CreatedAt = cur.CreatedAt
	b.UpdatedAt = m.now()
	m.d.blocks[b.ID] = *b
	return nil
}

func (m memBlocks) Delete(_ context.Context, id uint64) error {
	if _, ok := m.d.blocks[id]; !ok {
		return ErrNotFound
	}
	delete(m.d.blocks, id)
	return nil
}

func (m memBlocks) FindOverlapping(_ context.Context, propertyID string, r model.DateRange) ([]model.Block, error) {
	out := make([]model.Block, 0)
	for _, b := range m.d.blocks {
		if b.PropertyID == propertyID && b.Range.Overlaps(r) {
			out = append(out, b)
		}
	}
	sortBlocks(out)
	return out, nil
}

func (m memBlocks) List(_ context.Context, propertyID string) ([]model.Block, error) {
	out := make([]model.Block, 0)
	for _, b := range m.d.blocks {
		if propertyID == "" || b.PropertyID == propertyID {
			out = append(out, b)
		}
	}
	sortBlocks(out)
	return out, nil
}

func sortBlocks(bs []model.Block) {
	sort.Slice(bs, func(i, j int) bool {
		if !bs[i].Range.Start.Equal(bs[j].Range.Start) {
			return bs[i].Range.Start.Before(bs[j].Range.Start)
		}
		return bs[i].ID < bs[j].ID
	})
}

// ---- non-transactional views ----

type lockedBookings struct{ s *MemoryStore }

func (l lockedBookings) view() memBookings { return memBookings{d: &l.s.data, now: l.s.now} }

func (l lockedBookings) Insert(ctx context.Context, b *model.Booking) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.view().Insert(ctx, b)
}

func (l lockedBookings) Get(ctx context.Context, id uint64) (*model.Booking, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	return l.view().Get(ctx, id)
}

func (l lockedBookings) Update(ctx context.Context, b *model.Booking) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.view().Update(ctx, b)
}

func (l lockedBookings) Delete(ctx context.Context, id uint64) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.view().Delete(ctx, id)
}

func (l lockedBookings) FindOverlapping(ctx context.Context, propertyID string, r model.DateRange, status *model.BookingStatus) ([]model.Booking, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	return l.view().FindOverlapping(ctx, propertyID, r, status)
}

func (l lockedBookings) List(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	return l.view().List(ctx, f)
}

type lockedBlocks struct{ s *MemoryStore }

func (l lockedBlocks) view() memBlocks { return memBlocks{d: &l.s.data, now: l.s.now} }

func (l lockedBlocks) Insert(ctx context.Context, b *model.Block) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.view().Insert(ctx, b)
}

func (l lockedBlocks) Get(ctx context.Context, id uint64) (*model.Block, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	return l.view().Get(ctx, id)
}

func (l lockedBlocks) Update(ctx context.Context, b *model.Block) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.view().Update(ctx, b)
}

func (l lockedBlocks) Delete(ctx context.Context, id uint64) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.view().Delete(ctx, id)
}

func (l lockedBlocks) FindOverlapping(ctx context.Context, propertyID string, r model.DateRange) ([]model.Block, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	return l.view().FindOverlapping(ctx, propertyID, r)
}

func (l lockedBlocks) List(ctx context.Context, propertyID string) ([]model.Block, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	return l.view().List(ctx, propertyID)
}
