package repository

import (
	"context"
	"database/sql"
)

// MySQLStore implements Store on top of a MySQL connection pool.  Each
// unit of work is one InnoDB transaction.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore wraps an open pool.  The pool must have been opened with
// database.Open so that DATE columns scan into time.Time and matched-row
// counts are reported on UPDATE.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

// DB exposes the underlying sql.DB for health checks and migrations.
func (s *MySQLStore) DB() *sql.DB { return s.db }

func (s *MySQLStore) Bookings() BookingStore { return NewBookingRepo(s.db) }
func (s *MySQLStore) Blocks() BlockStore     { return NewBlockRepo(s.db) }
func (s *MySQLStore) Close() error           { return s.db.Close() }

// WithinTx runs fn inside a transaction.  The transaction is committed
// when fn returns nil and rolled back otherwise, so a rejected operation
// leaves no partial writes behind.
func (s *MySQLStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(ctx, &mysqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

type mysqlTx struct {
	tx *sql.Tx
}

func (t *mysqlTx) Bookings() BookingStore { return NewBookingRepo(t.tx) }
func (t *mysqlTx) Blocks() BlockStore     { return NewBlockRepo(t.tx) }

// LockProperty takes an exclusive row lock on the property's entry in
// property_locks, creating the entry on first use.  Concurrent units on
// the same property queue on this row until the holder commits or rolls
// back; an overlap range query alone would not stop a phantom insert.
func (t *mysqlTx) LockProperty(ctx context.Context, propertyID string) error {
	const upsert = `INSERT INTO property_locks (property_id) VALUES (?) ON DUPLICATE KEY UPDATE property_id = property_id`
	if _, err := t.tx.ExecContext(ctx, upsert, propertyID); err != nil {
		return err
	}
	var got string
	return t.tx.QueryRowContext(ctx,
		`SELECT property_id FROM property_locks WHERE property_id = ? FOR UPDATE`, propertyID,
	).Scan(&got)
}
