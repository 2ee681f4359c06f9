package repository

import (
	"context"
	"fmt"

	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/repository/dao"
)

var (
	ErrReassortItemNotFound = dao.ErrReassortItemNotFound
	ErrBatchNotFound        = dao.ErrBatchNotFound
	ErrBatchEmpty           = dao.ErrBatchEmpty
)

type ReassortDAO interface {
	FindItems(ctx context.Context) ([]dao.ReassortItem, error)
	FindItem(ctx context.Context, id uint) (dao.ReassortItem, error)
	InsertItem(ctx context.Context, item dao.ReassortItem) (dao.ReassortItem, error)
	UpdateItem(ctx context.Context, item dao.ReassortItem) (dao.ReassortItem, error)
	DeleteItem(ctx context.Context, id uint) error
	InsertBatch(ctx context.Context, batch dao.ReassortBatch) (dao.ReassortBatch, error)
	FindBatch(ctx context.Context, id uint) (dao.ReassortBatch, error)
	UpdateBatch(ctx context.Context, batch dao.ReassortBatch) (dao.ReassortBatch, error)
	DeleteBatch(ctx context.Context, id uint) error
	FindAvailableBatches(ctx context.Context, nodeID uint) ([]dao.AvailableBatch, error)
}

type ReassortRepository struct {
	dao ReassortDAO
}

func NewReassortRepository(dao ReassortDAO) *ReassortRepository {
	return &ReassortRepository{
		dao: dao,
	}
}

func (r *ReassortRepository) FindItems(ctx context.Context) ([]domain.ReassortItem, error) {
	found, err := r.dao.FindItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindItems -> %w", err)
	}

	items := make([]domain.ReassortItem, 0, len(found))
	for _, it := range found {
		items = append(items, itemToDomain(it))
	}

	return items, nil
}

func (r *ReassortRepository) FindItem(ctx context.Context, id uint) (domain.ReassortItem, error) {
	found, err := r.dao.FindItem(ctx, id)
	if err != nil {
		return domain.ReassortItem{}, fmt.Errorf("r.dao.FindItem -> %w", err)
	}

	return itemToDomain(found), nil
}

func (r *ReassortRepository) CreateItem(ctx context.Context, item domain.ReassortItem) (domain.ReassortItem, error) {
	created, err := r.dao.InsertItem(ctx, itemToDao(item))
	if err != nil {
		return domain.ReassortItem{}, fmt.Errorf("r.dao.InsertItem -> %w", err)
	}

	return itemToDomain(created), nil
}

func (r *ReassortRepository) UpdateItem(ctx context.Context, item domain.ReassortItem) (domain.ReassortItem, error) {
	updated, err := r.dao.UpdateItem(ctx, itemToDao(item))
	if err != nil {
		return domain.ReassortItem{}, fmt.Errorf("r.dao.UpdateItem -> %w", err)
	}

	return itemToDomain(updated), nil
}

func (r *ReassortRepository) DeleteItem(ctx context.Context, id uint) error {
	if err := r.dao.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("r.dao.DeleteItem -> %w", err)
	}

	return nil
}

func (r *ReassortRepository) CreateBatch(ctx context.Context, batch domain.ReassortBatch) (domain.ReassortBatch, error) {
	created, err := r.dao.InsertBatch(ctx, batchToDao(batch))
	if err != nil {
		return domain.ReassortBatch{}, fmt.Errorf("r.dao.InsertBatch -> %w", err)
	}

	return batchToDomain(created), nil
}

func (r *ReassortRepository) FindBatch(ctx context.Context, id uint) (domain.ReassortBatch, error) {
	found, err := r.dao.FindBatch(ctx, id)
	if err != nil {
		return domain.ReassortBatch{}, fmt.Errorf("r.dao.FindBatch -> %w", err)
	}

	return batchToDomain(found), nil
}

func (r *ReassortRepository) UpdateBatch(ctx context.Context, batch domain.ReassortBatch) (domain.ReassortBatch, error) {
	updated, err := r.dao.UpdateBatch(ctx, batchToDao(batch))
	if err != nil {
		return domain.ReassortBatch{}, fmt.Errorf("r.dao.UpdateBatch -> %w", err)
	}

	return batchToDomain(updated), nil
}

func (r *ReassortRepository) DeleteBatch(ctx context.Context, id uint) error {
	if err := r.dao.DeleteBatch(ctx, id); err != nil {
		return fmt.Errorf("r.dao.DeleteBatch -> %w", err)
	}

	return nil
}

// Options lists the non empty batches usable for nodeID. Batches of articles
// earmarked for the node are preferred.
func (r *ReassortRepository) Options(ctx context.Context, nodeID uint) ([]domain.ReassortOption, error) {
	found, err := r.dao.FindAvailableBatches(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindAvailableBatches -> %w", err)
	}

	options := make([]domain.ReassortOption, 0, len(found))
	for _, b := range found {
		options = append(options, domain.ReassortOption{
			BatchID:    b.ID,
			ItemID:     b.ItemID,
			ItemName:   b.ItemName,
			Quantity:   b.Quantity,
			ExpiryDate: b.ExpiryDate,
			Lot:        b.Lot,
			Note:       b.Note,
			Preferred:  b.TargetNodeID != nil && *b.TargetNodeID == nodeID,
		})
	}
	domain.SortOptions(options)

	return options, nil
}

func itemToDao(item domain.ReassortItem) dao.ReassortItem {
	return dao.ReassortItem{
		ID:           item.ID,
		Name:         item.Name,
		Note:         item.Note,
		TargetNodeID: item.TargetNodeID,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}

func itemToDomain(row dao.ReassortItem) domain.ReassortItem {
	item := domain.ReassortItem{
		ID:             row.ID,
		Name:           row.Name,
		Note:           row.Note,
		TargetNodeID:   row.TargetNodeID,
		TargetNodeName: row.TargetNodeName,
		Batches:        make([]domain.ReassortBatch, 0, len(row.Batches)),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	for _, b := range row.Batches {
		item.Batches = append(item.Batches, batchToDomain(b))
	}
	domain.SortBatches(item.Batches)
	item.TotalQuantity = item.Total()

	return item
}

func batchToDao(b domain.ReassortBatch) dao.ReassortBatch {
	return dao.ReassortBatch{
		ID:         b.ID,
		ItemID:     b.ItemID,
		Quantity:   b.Quantity,
		ExpiryDate: b.ExpiryDate,
		Lot:        b.Lot,
		Note:       b.Note,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

func batchToDomain(row dao.ReassortBatch) domain.ReassortBatch {
	return domain.ReassortBatch{
		ID:         row.ID,
		ItemID:     row.ItemID,
		Quantity:   row.Quantity,
		ExpiryDate: row.ExpiryDate,
		Lot:        row.Lot,
		Note:       row.Note,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}
