package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/property-reservation/internal/model"
)

// BlockRepo provides data access to the blocks table.
type BlockRepo struct {
	q querier
}

// NewBlockRepo returns a BlockRepo bound to a pool or a transaction.
func NewBlockRepo(q querier) *BlockRepo { return &BlockRepo{q: q} }

const blockColumns = `id, property_id, reason, start_date, end_date, created_at, updated_at`

func scanBlock(s rowScanner) (model.Block, error) {
	var b model.Block
	if err := s.Scan(&b.ID, &b.PropertyID, &b.Reason, &b.Range.Start, &b.Range.End, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return model.Block{}, err
	}
	b.Range = model.NewDateRange(b.Range.Start, b.Range.End)
	return b, nil
}

func collectBlocks(rows *sql.Rows) ([]model.Block, error) {
	defer rows.Close()
	out := make([]model.Block, 0)
	for rows.Next() {
		b, err := scanBlock(rows)
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

func (r *BlockRepo) Insert(ctx context.Context, b *model.Block) error {
	const q = `INSERT INTO blocks (property_id, reason, start_date, end_date) VALUES (?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q, b.PropertyID, b.Reason,
		b.Range.Start.Format(model.DateLayout), b.Range.End.Format(model.DateLayout))
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

func (r *BlockRepo) Get(ctx context.Context, id uint64) (*model.Block, error) {
	const q = `SELECT ` + blockColumns + ` FROM blocks WHERE id = ?`
	b, err := scanBlock(r.q.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *BlockRepo) Update(ctx context.Context, b *model.Block) error {
	const q = `UPDATE blocks
               SET property_id = ?, reason = ?, start_date = ?, end_date = ?, updated_at = CURRENT_TIMESTAMP
               WHERE id = ?`
	res, err := r.q.ExecContext(ctx, q, b.PropertyID, b.Reason,
		b.Range.Start.Format(model.DateLayout), b.Range.End.Format(model.DateLayout), b.ID)
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

func (r *BlockRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM blocks WHERE id = ?`, id)
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

// FindOverlapping finds all blocks of a property overlapping rng.  Blocks
// have no status, so every stored block takes part.
func (r *BlockRepo) FindOverlapping(ctx context.Context, propertyID string, rng model.DateRange) ([]model.Block, error) {
	const q = `SELECT ` + blockColumns + `
               FROM blocks
               WHERE property_id = ? AND start_date < ? AND end_date > ?`
	rows, err := r.q.QueryContext(ctx, q, propertyID,
		rng.End.Format(model.DateLayout), rng.Start.Format(model.DateLayout))
	if err != nil {
		return nil, err
	}
	return collectBlocks(rows)
}

func (r *BlockRepo) List(ctx context.Context, propertyID string) ([]model.Block, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if propertyID == "" {
		rows, err = r.q.QueryContext(ctx, `SELECT `+blockColumns+` FROM blocks ORDER BY start_date ASC, id ASC`)
	} else {
		rows, err = r.q.QueryContext(ctx,
			`SELECT `+blockColumns+` FROM blocks WHERE property_id = ? ORDER BY start_date ASC, id ASC`, propertyID)
	}
	if err != nil {
		return nil, err
	}
	return collectBlocks(rows)
}
