package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/property-reservation/internal/model"
)

func rng(from, to int) model.DateRange {
	base := time.Date(2030, time.June, 1, 0, 0, 0, 0, time.UTC)
	return model.DateRange{Start: base.AddDate(0, 0, from), End: base.AddDate(0, 0, to)}
}

func TestMemoryStoreAssignsIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	var ids []uint64
	for i := 0; i < 3; i++ {
		b := &model.Booking{PropertyID: "p", Range: rng(i*2, i*2+1), Status: model.BookingActive}
		if err := s.Bookings().Insert(ctx, b); err != nil {
			t.Fatalf("insert: %v", err)
		}
		ids = append(ids, b.ID)
	}
	if ids[0] == 0 || ids[0] >= ids[1] || ids[1] >= ids[2] {
		t.Fatalf("ids not increasing: %v", ids)
	}
	blk := &model.Block{PropertyID: "p", Range: rng(10, 12)}
	if err := s.Blocks().Insert(ctx, blk); err != nil || blk.ID != 1 {
		t.Fatalf("block insert: id=%d err=%v", blk.ID, err)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if _, err := s.Bookings().Get(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get: want ErrNotFound, got %v", err)
	}
	if err := s.Bookings().Delete(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete: want ErrNotFound, got %v", err)
	}
	if err := s.Blocks().Update(ctx, &model.Block{ID: 42}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update: want ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreFindOverlappingFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seed := []model.Booking{
		{PropertyID: "p1", Range: rng(1, 5), Status: model.BookingActive},
		{PropertyID: "p1", Range: rng(3, 7), Status: model.BookingCanceled},
		{PropertyID: "p1", Range: rng(5, 9), Status: model.BookingActive},
		{PropertyID: "p2", Range: rng(1, 5), Status: model.BookingActive},
	}
	for i := range seed {
		if err := s.Bookings().Insert(ctx, &seed[i]); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	all, _ := s.Bookings().FindOverlapping(ctx, "p1", rng(2, 6), nil)
	if len(all) != 3 {
		t.Fatalf("want 3 overlapping bookings of any status, got %d", len(all))
	}
	active := model.BookingActive
	act, _ := s.Bookings().FindOverlapping(ctx, "p1", rng(2, 6), &active)
	if len(act) != 2 {
		t.Fatalf("want 2 active overlapping bookings, got %d", len(act))
	}
	adj, _ := s.Bookings().FindOverlapping(ctx, "p1", rng(9, 12), nil)
	if len(adj) != 0 {
		t.Fatalf("adjacent range must not match, got %d", len(adj))
	}
}

func TestMemoryStoreRollsBackFailedUnit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Bookings().Insert(ctx, &model.Booking{PropertyID: "p", Range: rng(1, 2)}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	list, _ := s.Bookings().List(ctx, BookingFilter{})
	if len(list) != 0 {
		t.Fatalf("rolled back insert is visible: %+v", list)
	}

	if err := s.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Bookings().Insert(ctx, &model.Booking{PropertyID: "p", Range: rng(1, 2)})
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	list, _ = s.Bookings().List(ctx, BookingFilter{PropertyID: "p"})
	if len(list) != 1 {
		t.Fatalf("want 1 committed booking, got %d", len(list))
	}
}

func TestMemoryStoreListOrdersByStart(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, r := range []model.DateRange{rng(8, 9), rng(1, 2), rng(4, 5)} {
		if err := s.Blocks().Insert(ctx, &model.Block{PropertyID: "p", Range: r}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	list, err := s.Blocks().List(ctx, "p")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i := 1; i < len(list); i++ {
		if list[i].Range.Start.Before(list[i-1].Range.Start) {
			t.Fatalf("blocks out of order: %v before %v", list[i-1].Range, list[i].Range)
		}
	}
}
