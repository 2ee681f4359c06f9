package repository

import (
	"context"
	"fmt"

	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/repository/dao"
)

// FindExpiries returns the lots of the given items keyed by item id.
func (r *StockRepository) FindExpiries(ctx context.Context, nodeIDs []uint) (map[uint][]domain.ItemExpiry, error) {
	found, err := r.dao.FindExpiries(ctx, nodeIDs)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindExpiries -> %w", err)
	}

	out := make(map[uint][]domain.ItemExpiry)
	for _, row := range found {
		out[row.NodeID] = append(out[row.NodeID], expiryToDomain(row))
	}

	return out, nil
}

func (r *StockRepository) AddExpiry(ctx context.Context, e domain.ItemExpiry) (domain.ItemExpiry, error) {
	created, err := r.dao.InsertExpiry(ctx, dao.ItemExpiry{
		NodeID:     e.NodeID,
		ExpiryDate: e.Date,
		Quantity:   e.Quantity,
		Lot:        e.Lot,
		Note:       e.Note,
		CreatedAt:  e.CreatedAt,
	})
	if err != nil {
		return domain.ItemExpiry{}, fmt.Errorf("r.dao.InsertExpiry -> %w", err)
	}

	return expiryToDomain(created), nil
}

func (r *StockRepository) DeleteExpiry(ctx context.Context, nodeID, expiryID uint) error {
	if err := r.dao.DeleteExpiry(ctx, nodeID, expiryID); err != nil {
		return fmt.Errorf("r.dao.DeleteExpiry -> %w", err)
	}

	return nil
}

func expiryToDomain(row dao.ItemExpiry) domain.ItemExpiry {
	return domain.ItemExpiry{
		ID:        row.ID,
		NodeID:    row.NodeID,
		Date:      row.ExpiryDate,
		Quantity:  row.Quantity,
		Lot:       row.Lot,
		Note:      row.Note,
		CreatedAt: row.CreatedAt,
	}
}
