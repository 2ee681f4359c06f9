package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrExpiryNotFound = errors.New("expiry lot not found")
)

type ItemExpiry struct {
	ID uint `gorm:"primaryKey"`

	NodeID     uint      `gorm:"not null;index"`
	ExpiryDate time.Time `gorm:"not null"`
	Quantity   *int
	Lot        string `gorm:"size:120"`
	Note       string `gorm:"size:500"`

	CreatedAt time.Time `gorm:"not null"`
}

func (ItemExpiry) TableName() string {
	return "stock_item_expiries"
}

func (d *StockDAO) FindExpiries(ctx context.Context, nodeIDs []uint) ([]ItemExpiry, error) {
	var rows []ItemExpiry
	if len(nodeIDs) == 0 {
		return rows, nil
	}

	result := d.db.WithContext(ctx).
		Where("node_id IN ?", nodeIDs).
		Order("node_id, expiry_date, id").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	return rows, nil
}

// InsertExpiry adds a lot to an item and moves the item expiry date to the
// earliest lot.
func (d *StockDAO) InsertExpiry(ctx context.Context, row ItemExpiry) (ItemExpiry, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		return syncItemExpiry(tx, row.NodeID, nil)
	})
	if err != nil {
		return ItemExpiry{}, err
	}

	return row, nil
}

func (d *StockDAO) DeleteExpiry(ctx context.Context, nodeID, expiryID uint) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row ItemExpiry
		result := tx.Where("id = ? AND node_id = ?", expiryID, nodeID).First(&row)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return ErrExpiryNotFound
			}
			return result.Error
		}

		if err := tx.Delete(&row).Error; err != nil {
			return err
		}

		removed := row.ExpiryDate
		return syncItemExpiry(tx, nodeID, &removed)
	})
}

// syncItemExpiry sets the expiry date of an item to its earliest lot. Without
// lots left the date is cleared when it was the one just removed.
func syncItemExpiry(tx *gorm.DB, nodeID uint, removed *time.Time) error {
	var rows []ItemExpiry
	if err := tx.Where("node_id = ?", nodeID).Order("expiry_date, id").Limit(1).Find(&rows).Error; err != nil {
		return err
	}

	if len(rows) > 0 {
		return tx.Model(&StockNode{}).Where("id = ?", nodeID).Update("expiry_date", rows[0].ExpiryDate).Error
	}
	if removed == nil {
		return nil
	}

	var node StockNode
	if err := tx.First(&node, nodeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNodeNotFound
		}
		return err
	}
	if node.ExpiryDate != nil && sameDay(*node.ExpiryDate, *removed) {
		return tx.Model(&StockNode{}).Where("id = ?", nodeID).Update("expiry_date", nil).Error
	}

	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
