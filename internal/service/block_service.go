package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/property-reservation/internal/model"
	"github.com/iliyamo/property-reservation/internal/repository"
)

// BlockInput carries the caller-editable fields of a block.
type BlockInput struct {
	PropertyID string
	Reason     string
	Range      model.DateRange
}

// BlockService manages owner blocks.  A block exists or it does not;
// deleting one frees its range immediately.
type BlockService struct {
	deps Deps
}

func NewBlockService(d Deps) *BlockService {
	return &BlockService{deps: d.withDefaults()}
}

func (s *BlockService) Create(ctx context.Context, in BlockInput) (*model.Block, error) {
	if !in.Range.Valid() {
		return nil, ErrInvalidRange
	}
	b := &model.Block{PropertyID: in.PropertyID, Reason: in.Reason, Range: in.Range}
	err := s.deps.run(ctx, []string{in.PropertyID}, func(ctx context.Context, tx repository.Tx) error {
		if err := checkBlockRange(ctx, tx, in.PropertyID, in.Range, 0); err != nil {
			return err
		}
		if err := tx.Blocks().Insert(ctx, b); err != nil {
			return fmt.Errorf("insert block: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log(b).Info("block created")
	s.deps.publish(ctx, model.NewBlockEvent(model.EventBlockCreated, b, s.deps.Now()))
	return b, nil
}

func (s *BlockService) Get(ctx context.Context, id uint64) (*model.Block, error) {
	b, err := s.deps.Store.Blocks().Get(ctx, id)
	if err != nil {
		return nil, lookupErr(model.KindBlock, id, err)
	}
	return b, nil
}

// List returns the blocks of a property (all blocks for an empty ID).
func (s *BlockService) List(ctx context.Context, propertyID string) ([]model.Block, error) {
	bs, err := s.deps.Store.Blocks().List(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	return bs, nil
}

// Update changes the property, reason and range of a block.  The block is
// excluded from its own block-vs-block check.
func (s *BlockService) Update(ctx context.Context, id uint64, in BlockInput) (*model.Block, error) {
	if !in.Range.Valid() {
		return nil, ErrInvalidRange
	}
	b, err := s.mutate(ctx, id, []string{in.PropertyID}, func(ctx context.Context, tx repository.Tx, b *model.Block) error {
		if err := checkBlockRange(ctx, tx, in.PropertyID, in.Range, b.ID); err != nil {
			return err
		}
		b.PropertyID = in.PropertyID
		b.Reason = in.Reason
		b.Range = in.Range
		return tx.Blocks().Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	s.log(b).Info("block updated")
	s.deps.publish(ctx, model.NewBlockEvent(model.EventBlockUpdated, b, s.deps.Now()))
	return b, nil
}

// Delete removes a block.  It never fails because of overlaps.
func (s *BlockService) Delete(ctx context.Context, id uint64) error {
	b, err := s.mutate(ctx, id, nil, func(ctx context.Context, tx repository.Tx, b *model.Block) error {
		return tx.Blocks().Delete(ctx, b.ID)
	})
	if err != nil {
		return err
	}
	s.log(b).Info("block deleted")
	s.deps.publish(ctx, model.NewBlockEvent(model.EventBlockDeleted, b, s.deps.Now()))
	return nil
}

// mutate loads block id and applies fn to it inside a unit of work that
// holds the block's property plus any extra properties.  The block is
// read once before locking to learn its property and again inside the
// unit, where fn sees the authoritative copy.  When a concurrent update
// moved it in between, the unit is abandoned and retried with the new
// property so locks are always taken in sorted order.
func (s *BlockService) mutate(ctx context.Context, id uint64, extra []string, fn func(ctx context.Context, tx repository.Tx, b *model.Block) error) (*model.Block, error) {
	for attempt := 1; ; attempt++ {
		out, err := s.tryMutate(ctx, id, extra, fn)
		if !errors.Is(err, errMoved) {
			return out, err
		}
		if attempt >= maxMoveRetries {
			return nil, fmt.Errorf("%s %d: %w", model.KindBlock, id, ErrBusy)
		}
		s.deps.Logger.WithFields(logrus.Fields{"block_id": id, "attempt": attempt}).
			Debug("block moved during update; retrying")
	}
}

func (s *BlockService) tryMutate(ctx context.Context, id uint64, extra []string, fn func(ctx context.Context, tx repository.Tx, b *model.Block) error) (*model.Block, error) {
	current, err := s.deps.Store.Blocks().Get(ctx, id)
	if err != nil {
		return nil, lookupErr(model.KindBlock, id, err)
	}
	var out *model.Block
	err = s.deps.run(ctx, append([]string{current.PropertyID}, extra...), func(ctx context.Context, tx repository.Tx) error {
		b, err := tx.Blocks().Get(ctx, id)
		if err != nil {
			return lookupErr(model.KindBlock, id, err)
		}
		if b.PropertyID != current.PropertyID {
			return errMoved
		}
		if err := fn(ctx, tx, b); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return lookupErr(model.KindBlock, id, err)
			}
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BlockService) log(b *model.Block) *logrus.Entry {
	return s.deps.Logger.WithFields(logrus.Fields{
		"block_id":    b.ID,
		"property_id": b.PropertyID,
		"range":       b.Range.String(),
	})
}
