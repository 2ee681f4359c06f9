package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type PeriodicRecord struct {
	ID uint `gorm:"primaryKey"`

	NodeID       uint   `gorm:"not null;index:idx_periodic_node_time,priority:1"`
	Status       string `gorm:"not null;size:8"`
	VerifierID   *uint
	VerifierName string `gorm:"not null;size:120"`
	Comment      string `gorm:"size:1000"`
	IssueCode    string `gorm:"size:16"`
	ObservedQty  *int
	MissingQty   *int

	CreatedAt time.Time `gorm:"not null;index:idx_periodic_node_time,priority:2"`
}

func (PeriodicRecord) TableName() string {
	return "periodic_verification_records"
}

type PeriodicDAO struct {
	db *gorm.DB
}

func NewPeriodicDAO(db *gorm.DB) *PeriodicDAO {
	return &PeriodicDAO{
		db: db,
	}
}

func (d *PeriodicDAO) Insert(ctx context.Context, rec PeriodicRecord) (PeriodicRecord, error) {
	result := d.db.WithContext(ctx).Create(&rec)
	if result.Error != nil {
		return PeriodicRecord{}, result.Error
	}

	return rec, nil
}

// InsertMany appends all records in one statement.
func (d *PeriodicDAO) InsertMany(ctx context.Context, records []PeriodicRecord) error {
	if len(records) == 0 {
		return nil
	}

	return d.db.WithContext(ctx).Create(&records).Error
}

func (d *PeriodicDAO) FindByNodes(ctx context.Context, nodeIDs []uint) ([]PeriodicRecord, error) {
	var records []PeriodicRecord
	if len(nodeIDs) == 0 {
		return records, nil
	}

	result := d.db.WithContext(ctx).
		Where("node_id IN ?", nodeIDs).
		Order("created_at, id").
		Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}

	return records, nil
}

func (d *PeriodicDAO) FindRecentByNodes(ctx context.Context, nodeIDs []uint, limit int) ([]PeriodicRecord, error) {
	var records []PeriodicRecord
	if len(nodeIDs) == 0 {
		return records, nil
	}

	result := d.db.WithContext(ctx).
		Where("node_id IN ?", nodeIDs).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}

	return records, nil
}

type ReplaceParams struct {
	NodeID   uint
	BatchID  uint
	Quantity int

	// The lot taken out of the item, by id or else by date. Both may be unset.
	ExpiryID   *uint
	ExpiryDate *time.Time

	Record   PeriodicRecord
	Describe func(ReplaceOutcome) string
}

type ReplaceOutcome struct {
	Used          int
	Remaining     int
	RemovedExpiry *time.Time
	NewExpiry     *time.Time
	ItemName      string
	Lot           string
	Record        PeriodicRecord
}

// Replace takes up to Quantity units out of a restocking batch and puts them
// in a stock item, in one transaction: the batch shrinks, the removed lot of
// the item shrinks or goes away, a lot with the batch expiry is added, and an
// OK record is appended to the periodic ledger.
func (d *PeriodicDAO) Replace(ctx context.Context, p ReplaceParams) (ReplaceOutcome, error) {
	var out ReplaceOutcome

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var node StockNode
		if err := tx.First(&node, p.NodeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNodeNotFound
			}
			return err
		}

		var batch ReassortBatch
		if err := tx.First(&batch, p.BatchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBatchNotFound
			}
			return err
		}
		if batch.Quantity <= 0 {
			return ErrBatchEmpty
		}

		var item ReassortItem
		if err := tx.First(&item, batch.ItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReassortItemNotFound
			}
			return err
		}

		out.Used = min(p.Quantity, batch.Quantity)
		result := tx.Model(&ReassortBatch{}).
			Where("id = ? AND quantity >= ?", batch.ID, out.Used).
			Updates(map[string]interface{}{
				"quantity":   gorm.Expr("quantity - ?", out.Used),
				"updated_at": p.Record.CreatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrBatchEmpty
		}
		out.Remaining = batch.Quantity - out.Used
		out.ItemName = item.Name
		out.Lot = batch.Lot

		removed, err := takeFromLot(tx, p, out.Used)
		if err != nil {
			return err
		}
		out.RemovedExpiry = removed

		if batch.ExpiryDate != nil {
			qty := out.Used
			lot := ItemExpiry{
				NodeID:     node.ID,
				ExpiryDate: *batch.ExpiryDate,
				Quantity:   &qty,
				Lot:        batch.Lot,
				Note:       batch.Note,
				CreatedAt:  p.Record.CreatedAt,
			}
			if err := tx.Create(&lot).Error; err != nil {
				return err
			}
			newExpiry := *batch.ExpiryDate
			out.NewExpiry = &newExpiry
		}

		if err := syncItemExpiry(tx, node.ID, removed); err != nil {
			return err
		}

		rec := p.Record
		rec.NodeID = node.ID
		if p.Describe != nil {
			rec.Comment = p.Describe(out)
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		out.Record = rec

		return nil
	})
	if err != nil {
		return ReplaceOutcome{}, err
	}

	return out, nil
}

// takeFromLot removes used units from the lot picked in p and returns its
// date. An unknown lot is ignored.
func takeFromLot(tx *gorm.DB, p ReplaceParams, used int) (*time.Time, error) {
	if p.ExpiryID == nil && p.ExpiryDate == nil {
		return nil, nil
	}

	var lots []ItemExpiry
	if err := tx.Where("node_id = ?", p.NodeID).Order("id").Find(&lots).Error; err != nil {
		return nil, err
	}

	var picked *ItemExpiry
	for i := range lots {
		if p.ExpiryID != nil && lots[i].ID == *p.ExpiryID {
			picked = &lots[i]
			break
		}
		if p.ExpiryID == nil && sameDay(lots[i].ExpiryDate, *p.ExpiryDate) {
			picked = &lots[i]
			break
		}
	}
	if picked == nil {
		return nil, nil
	}

	removed := picked.ExpiryDate
	if picked.Quantity != nil && *picked.Quantity > used {
		left := *picked.Quantity - used
		if err := tx.Model(picked).Update("quantity", left).Error; err != nil {
			return nil, err
		}
		return &removed, nil
	}

	if err := tx.Delete(picked).Error; err != nil {
		return nil, err
	}

	return &removed, nil
}
