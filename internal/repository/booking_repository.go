package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/property-reservation/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx so that a repository
// can run either on the pool or inside a caller's transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// BookingRepo provides data access to the bookings table.  Dates are
// stored in DATE columns and read back as midnight UTC (the DSN sets
// parseTime=true and loc=UTC).
type BookingRepo struct {
	q querier
}

// NewBookingRepo returns a BookingRepo bound to a pool or a transaction.
func NewBookingRepo(q querier) *BookingRepo { return &BookingRepo{q: q} }

const bookingColumns = `id, property_id, guest_name, guest_email, start_date, end_date, status, created_at, updated_at`

func scanBooking(s rowScanner) (model.Booking, error) {
	var b model.Booking
	var status string
	err := s.Scan(
		&b.ID, &b.PropertyID, &b.GuestName, &b.GuestEmail,
		&b.Range.Start, &b.Range.End, &status, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = model.BookingStatus(status)
	b.Range = model.NewDateRange(b.Range.Start, b.Range.End)
	return b, nil
}

func collectBookings(rows *sql.Rows) ([]model.Booking, error) {
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Insert stores a new booking and populates its ID and timestamps from
// the inserted row.
func (r *BookingRepo) Insert(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (property_id, guest_name, guest_email, start_date, end_date, status) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q,
		b.PropertyID, b.GuestName, b.GuestEmail,
		b.Range.Start.Format(model.DateLayout), b.Range.End.Format(model.DateLayout), string(b.Status),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	fresh, err := r.Get(ctx, uint64(id))
	if err != nil {
		return err
	}
	*b = *fresh
	return nil
}

// Get loads a booking by ID.  It returns ErrNotFound when no row matches.
func (r *BookingRepo) Get(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.q.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Update overwrites the mutable columns of an existing booking.  The DSN
// sets clientFoundRows=true, so RowsAffected counts matched rows and zero
// means the booking does not exist.
func (r *BookingRepo) Update(ctx context.Context, b *model.Booking) error {
	const q = `UPDATE bookings
               SET property_id = ?, guest_name = ?, guest_email = ?, start_date = ?, end_date = ?, status = ?,
                   updated_at = CURRENT_TIMESTAMP
               WHERE id = ?`
	res, err := r.q.ExecContext(ctx, q,
		b.PropertyID, b.GuestName, b.GuestEmail,
		b.Range.Start.Format(model.DateLayout), b.Range.End.Format(model.DateLayout), string(b.Status),
		b.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	fresh, err := r.Get(ctx, b.ID)
	if err != nil {
		return err
	}
	*b = *fresh
	return nil
}

// Delete removes a booking regardless of its status.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FindOverlapping finds all bookings of a property whose range overlaps
// rng.  A booking overlaps when it starts before the proposed end and
// ends after the proposed start, so back-to-back stays are not returned.
func (r *BookingRepo) FindOverlapping(ctx context.Context, propertyID string, rng model.DateRange, status *model.BookingStatus) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + `
          FROM bookings
          WHERE property_id = ? AND start_date < ? AND end_date > ?`
	args := []any{propertyID, rng.End.Format(model.DateLayout), rng.Start.Format(model.DateLayout)}
	if status != nil {
		q += ` AND status = ?`
		args = append(args, string(*status))
	}
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// List returns bookings ordered by start date.
func (r *BookingRepo) List(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	var where []string
	var args []any
	if f.PropertyID != "" {
		where = append(where, "property_id = ?")
		args = append(args, f.PropertyID)
	}
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*f.Status))
	}
	q := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY start_date ASC, id ASC`
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}
