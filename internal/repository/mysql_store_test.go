package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"github.com/iliyamo/property-reservation/internal/model"
)

var (
	bookingCols = []string{"id", "property_id", "guest_name", "guest_email", "start_date", "end_date", "status", "created_at", "updated_at"}
	blockCols   = []string{"id", "property_id", "reason", "start_date", "end_date", "created_at", "updated_at"}
	stamp       = time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)
)

func newMock(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return NewMySQLStore(db), mock
}

func sqlText(q string) string { return regexp.QuoteMeta(q) }

func bookingRow(id int64, prop string, r model.DateRange, status string) *sqlmock.Rows {
	return sqlmock.NewRows(bookingCols).
		AddRow(id, prop, "Ada", "ada@example.com", r.Start, r.End, status, stamp, stamp)
}

func TestBookingFindOverlappingArgs(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	r := rng(0, 4)

	mock.ExpectQuery(sqlText("FROM bookings WHERE property_id = ? AND start_date < ? AND end_date > ?") + "$").
		WithArgs("prop-1", "2030-06-05", "2030-06-01").
		WillReturnRows(bookingRow(3, "prop-1", rng(2, 6), "CANCELED"))
	got, err := store.Bookings().FindOverlapping(ctx, "prop-1", r, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []model.Booking{{
		ID: 3, PropertyID: "prop-1", GuestName: "Ada", GuestEmail: "ada@example.com",
		Range: rng(2, 6), Status: model.BookingCanceled, CreatedAt: stamp, UpdatedAt: stamp,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("overlaps (-want +got):\n%s", diff)
	}

	active := model.BookingActive
	mock.ExpectQuery(sqlText("WHERE property_id = ? AND start_date < ? AND end_date > ? AND status = ?")).
		WithArgs("prop-1", "2030-06-05", "2030-06-01", "ACTIVE").
		WillReturnRows(sqlmock.NewRows(bookingCols))
	got, err = store.Bookings().FindOverlapping(ctx, "prop-1", r, &active)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("want no rows, got %+v", got)
	}
}

func TestBookingInsertReadsBack(t *testing.T) {
	store, mock := newMock(t)
	r := rng(0, 4)

	mock.ExpectExec(sqlText("INSERT INTO bookings (property_id, guest_name, guest_email, start_date, end_date, status) VALUES (?, ?, ?, ?, ?, ?)")).
		WithArgs("prop-1", "Ada", "ada@example.com", "2030-06-01", "2030-06-05", "ACTIVE").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(sqlText("FROM bookings WHERE id = ?")).
		WithArgs(7).
		WillReturnRows(bookingRow(7, "prop-1", r, "ACTIVE"))

	b := &model.Booking{PropertyID: "prop-1", GuestName: "Ada", GuestEmail: "ada@example.com", Range: r, Status: model.BookingActive}
	if err := store.Bookings().Insert(context.Background(), b); err != nil {
		t.Fatal(err)
	}
	if b.ID != 7 || !b.CreatedAt.Equal(stamp) || b.Range != r {
		t.Fatalf("read back = %+v", b)
	}
}

func TestBookingMissingRows(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(sqlText("FROM bookings WHERE id = ?")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows(bookingCols))
	if _, err := store.Bookings().Get(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get: want ErrNotFound, got %v", err)
	}

	mock.ExpectExec(sqlText("UPDATE bookings")).
		WithArgs("prop-1", "Ada", "ada@example.com", "2030-06-01", "2030-06-05", "CANCELED", 42).
		WillReturnResult(sqlmock.NewResult(0, 0))
	b := &model.Booking{ID: 42, PropertyID: "prop-1", GuestName: "Ada", GuestEmail: "ada@example.com", Range: rng(0, 4), Status: model.BookingCanceled}
	if err := store.Bookings().Update(ctx, b); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update: want ErrNotFound, got %v", err)
	}

	mock.ExpectExec(sqlText("DELETE FROM bookings WHERE id = ?")).
		WithArgs(42).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.Bookings().Delete(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete: want ErrNotFound, got %v", err)
	}
}

func TestBookingListFilters(t *testing.T) {
	store, mock := newMock(t)
	canceled := model.BookingCanceled

	mock.ExpectQuery(sqlText("FROM bookings WHERE property_id = ? AND status = ? ORDER BY start_date ASC, id ASC")).
		WithArgs("prop-1", "CANCELED").
		WillReturnRows(bookingRow(1, "prop-1", rng(0, 2), "CANCELED").
			AddRow(2, "prop-1", "Bo", "bo@example.com", rng(3, 5).Start, rng(3, 5).End, "CANCELED", stamp, stamp))
	got, err := store.Bookings().List(context.Background(), BookingFilter{PropertyID: "prop-1", Status: &canceled})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].GuestName != "Bo" {
		t.Fatalf("list = %+v", got)
	}
}

func TestBlockQueries(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(sqlText("FROM blocks WHERE property_id = ? AND start_date < ? AND end_date > ?")).
		WithArgs("prop-1", "2030-06-05", "2030-06-01").
		WillReturnRows(sqlmock.NewRows(blockCols).AddRow(4, "prop-1", "paint", rng(3, 8).Start, rng(3, 8).End, stamp, stamp))
	got, err := store.Blocks().FindOverlapping(ctx, "prop-1", rng(0, 4))
	if err != nil {
		t.Fatal(err)
	}
	want := []model.Block{{ID: 4, PropertyID: "prop-1", Reason: "paint", Range: rng(3, 8), CreatedAt: stamp, UpdatedAt: stamp}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("overlaps (-want +got):\n%s", diff)
	}

	mock.ExpectQuery(sqlText("FROM blocks ORDER BY start_date ASC, id ASC")).
		WithoutArgs().
		WillReturnRows(sqlmock.NewRows(blockCols))
	if _, err := store.Blocks().List(ctx, ""); err != nil {
		t.Fatal(err)
	}
	mock.ExpectQuery(sqlText("FROM blocks WHERE property_id = ? ORDER BY start_date ASC, id ASC")).
		WithArgs("prop-2").
		WillReturnRows(sqlmock.NewRows(blockCols))
	if _, err := store.Blocks().List(ctx, "prop-2"); err != nil {
		t.Fatal(err)
	}

	mock.ExpectQuery(sqlText("FROM blocks WHERE id = ?")).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows(blockCols))
	if _, err := store.Blocks().Get(ctx, 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get: want ErrNotFound, got %v", err)
	}
	mock.ExpectExec(sqlText("DELETE FROM blocks WHERE id = ?")).
		WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.Blocks().Delete(ctx, 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete: want ErrNotFound, got %v", err)
	}
}

func TestWithinTxCommitsAndLocks(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(sqlText("INSERT INTO property_locks (property_id) VALUES (?) ON DUPLICATE KEY UPDATE property_id = property_id")).
		WithArgs("prop-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(sqlText("SELECT property_id FROM property_locks WHERE property_id = ? FOR UPDATE")).
		WithArgs("prop-1").
		WillReturnRows(sqlmock.NewRows([]string{"property_id"}).AddRow("prop-1"))
	mock.ExpectQuery(sqlText("FROM blocks WHERE property_id = ? AND start_date < ? AND end_date > ?")).
		WithArgs("prop-1", "2030-06-05", "2030-06-01").
		WillReturnRows(sqlmock.NewRows(blockCols))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		if err := tx.LockProperty(ctx, "prop-1"); err != nil {
			return err
		}
		_, err := tx.Blocks().FindOverlapping(ctx, "prop-1", rng(0, 4))
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	store, mock := newMock(t)
	boom := errors.New("overlap")

	mock.ExpectBegin()
	mock.ExpectExec(sqlText("INSERT INTO blocks (property_id, reason, start_date, end_date) VALUES (?, ?, ?, ?)")).
		WithArgs("prop-1", "paint", "2030-06-01", "2030-06-05").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery(sqlText("FROM blocks WHERE id = ?")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(blockCols).AddRow(5, "prop-1", "paint", rng(0, 4).Start, rng(0, 4).End, stamp, stamp))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		if err := tx.Blocks().Insert(ctx, &model.Block{PropertyID: "prop-1", Reason: "paint", Range: rng(0, 4)}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want fn error, got %v", err)
	}
}

func TestLockPropertyFailureAbortsTx(t *testing.T) {
	store, mock := newMock(t)
	busy := errors.New("lock wait timeout exceeded")

	mock.ExpectBegin()
	mock.ExpectExec(sqlText("INSERT INTO property_locks")).
		WithArgs("prop-1").
		WillReturnError(busy)
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.LockProperty(ctx, "prop-1")
	})
	if !errors.Is(err, busy) {
		t.Fatalf("want lock error, got %v", err)
	}
}
