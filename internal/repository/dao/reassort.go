package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrReassortItemNotFound = errors.New("restocking article not found")
	ErrBatchNotFound        = errors.New("restocking batch not found")
	ErrBatchEmpty           = errors.New("restocking batch is empty")
)

type ReassortItem struct {
	ID uint `gorm:"primaryKey"`

	Name         string          `gorm:"not null;size:120"`
	Note         string          `gorm:"size:500"`
	TargetNodeID *uint           `gorm:"index"`
	Batches      []ReassortBatch `gorm:"foreignKey:ItemID"`

	// TargetNodeName is filled on reads.
	TargetNodeName string `gorm:"-"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (ReassortItem) TableName() string {
	return "reassort_items"
}

type ReassortBatch struct {
	ID uint `gorm:"primaryKey"`

	ItemID     uint `gorm:"not null;index"`
	Quantity   int  `gorm:"not null;default:0"`
	ExpiryDate *time.Time
	Lot        string `gorm:"size:120"`
	Note       string `gorm:"size:500"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (ReassortBatch) TableName() string {
	return "reassort_batches"
}

type ReassortDAO struct {
	db *gorm.DB
}

func NewReassortDAO(db *gorm.DB) *ReassortDAO {
	return &ReassortDAO{
		db: db,
	}
}

func (d *ReassortDAO) FindItems(ctx context.Context) ([]ReassortItem, error) {
	var items []ReassortItem

	result := d.db.WithContext(ctx).Preload("Batches").Order("name, id").Find(&items)
	if result.Error != nil {
		return nil, result.Error
	}
	if err := d.fillTargetNames(ctx, items); err != nil {
		return nil, err
	}

	return items, nil
}

func (d *ReassortDAO) FindItem(ctx context.Context, id uint) (ReassortItem, error) {
	var item ReassortItem

	result := d.db.WithContext(ctx).Preload("Batches").First(&item, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ReassortItem{}, ErrReassortItemNotFound
		}

		return ReassortItem{}, result.Error
	}

	items := []ReassortItem{item}
	if err := d.fillTargetNames(ctx, items); err != nil {
		return ReassortItem{}, err
	}

	return items[0], nil
}

func (d *ReassortDAO) InsertItem(ctx context.Context, item ReassortItem) (ReassortItem, error) {
	item.Batches = nil
	result := d.db.WithContext(ctx).Create(&item)
	if result.Error != nil {
		return ReassortItem{}, result.Error
	}

	return d.FindItem(ctx, item.ID)
}

func (d *ReassortDAO) UpdateItem(ctx context.Context, item ReassortItem) (ReassortItem, error) {
	result := d.db.WithContext(ctx).
		Model(&ReassortItem{ID: item.ID}).
		Select("Name", "Note", "TargetNodeID", "UpdatedAt").
		Updates(ReassortItem{
			Name:         item.Name,
			Note:         item.Note,
			TargetNodeID: item.TargetNodeID,
			UpdatedAt:    item.UpdatedAt,
		})
	if result.Error != nil {
		return ReassortItem{}, result.Error
	}
	if result.RowsAffected == 0 {
		return ReassortItem{}, ErrReassortItemNotFound
	}

	return d.FindItem(ctx, item.ID)
}

// DeleteItem removes an article with all of its batches.
func (d *ReassortDAO) DeleteItem(ctx context.Context, id uint) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", id).Delete(&ReassortBatch{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&ReassortItem{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrReassortItemNotFound
		}

		return nil
	})
}

func (d *ReassortDAO) InsertBatch(ctx context.Context, batch ReassortBatch) (ReassortBatch, error) {
	result := d.db.WithContext(ctx).Create(&batch)
	if result.Error != nil {
		return ReassortBatch{}, result.Error
	}

	return batch, nil
}

func (d *ReassortDAO) FindBatch(ctx context.Context, id uint) (ReassortBatch, error) {
	var batch ReassortBatch

	result := d.db.WithContext(ctx).First(&batch, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ReassortBatch{}, ErrBatchNotFound
		}

		return ReassortBatch{}, result.Error
	}

	return batch, nil
}

func (d *ReassortDAO) UpdateBatch(ctx context.Context, batch ReassortBatch) (ReassortBatch, error) {
	result := d.db.WithContext(ctx).
		Model(&ReassortBatch{ID: batch.ID}).
		Select("Quantity", "ExpiryDate", "Lot", "Note", "UpdatedAt").
		Updates(batch)
	if result.Error != nil {
		return ReassortBatch{}, result.Error
	}
	if result.RowsAffected == 0 {
		return ReassortBatch{}, ErrBatchNotFound
	}

	return d.FindBatch(ctx, batch.ID)
}

func (d *ReassortDAO) DeleteBatch(ctx context.Context, id uint) error {
	result := d.db.WithContext(ctx).Delete(&ReassortBatch{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBatchNotFound
	}

	return nil
}

// AvailableBatch is a non empty batch joined with its article.
type AvailableBatch struct {
	ReassortBatch
	ItemName     string
	TargetNodeID *uint
}

// FindAvailableBatches returns the non empty batches of the articles earmarked
// for nodeID or for no node at all.
func (d *ReassortDAO) FindAvailableBatches(ctx context.Context, nodeID uint) ([]AvailableBatch, error) {
	var rows []AvailableBatch

	result := d.db.WithContext(ctx).
		Table("reassort_batches").
		Select("reassort_batches.*, reassort_items.name AS item_name, reassort_items.target_node_id AS target_node_id").
		Joins("JOIN reassort_items ON reassort_items.id = reassort_batches.item_id").
		Where("reassort_batches.quantity > 0").
		Where("reassort_items.target_node_id = ? OR reassort_items.target_node_id IS NULL", nodeID).
		Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	return rows, nil
}

func (d *ReassortDAO) fillTargetNames(ctx context.Context, items []ReassortItem) error {
	var ids []uint
	for _, it := range items {
		if it.TargetNodeID != nil {
			ids = append(ids, *it.TargetNodeID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	var nodes []StockNode
	if err := d.db.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&nodes).Error; err != nil {
		return err
	}
	names := make(map[uint]string, len(nodes))
	for _, n := range nodes {
		names[n.ID] = n.Name
	}
	for i := range items {
		if items[i].TargetNodeID != nil {
			items[i].TargetNodeName = names[*items[i].TargetNodeID]
		}
	}

	return nil
}
