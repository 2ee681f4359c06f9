package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNodeNotFound = errors.New("stock node not found")
)

type StockNode struct {
	ID uint `gorm:"primaryKey"`

	Name       string `gorm:"not null;size:120"`
	Type       string `gorm:"not null;size:8"`
	Quantity   *int
	ExpiryDate *time.Time
	ParentID   *uint       `gorm:"index"`
	Level      int         `gorm:"not null;default:1"`
	Children   []StockNode `gorm:"foreignKey:ParentID"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type StockDAO struct {
	db *gorm.DB
}

func NewStockDAO(db *gorm.DB) *StockDAO {
	return &StockDAO{
		db: db,
	}
}

// Insert creates the node along with any nested Children.
func (d *StockDAO) Insert(ctx context.Context, node StockNode) (StockNode, error) {
	result := d.db.WithContext(ctx).Create(&node)
	if result.Error != nil {
		return StockNode{}, result.Error
	}

	return node, nil
}

func (d *StockDAO) FindByID(ctx context.Context, id uint) (StockNode, error) {
	var node StockNode

	result := d.db.WithContext(ctx).First(&node, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return StockNode{}, ErrNodeNotFound
		}

		return StockNode{}, result.Error
	}

	return node, nil
}

func (d *StockDAO) FindByIDs(ctx context.Context, ids []uint) ([]StockNode, error) {
	var nodes []StockNode
	if len(ids) == 0 {
		return nodes, nil
	}

	result := d.db.WithContext(ctx).Where("id IN ?", ids).Find(&nodes)
	if result.Error != nil {
		return nil, result.Error
	}

	return nodes, nil
}

func (d *StockDAO) FindRoots(ctx context.Context) ([]StockNode, error) {
	var nodes []StockNode

	result := d.db.WithContext(ctx).Where("parent_id IS NULL").Order("name").Find(&nodes)
	if result.Error != nil {
		return nil, result.Error
	}

	return nodes, nil
}

// FindSubtrees returns the given nodes and all of their descendants, loading
// one level per query.
func (d *StockDAO) FindSubtrees(ctx context.Context, rootIDs []uint) ([]StockNode, error) {
	nodes, err := d.FindByIDs(ctx, rootIDs)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint]bool, len(nodes))
	frontier := make([]uint, 0, len(nodes))
	for _, n := range nodes {
		seen[n.ID] = true
		frontier = append(frontier, n.ID)
	}

	for len(frontier) > 0 {
		var level []StockNode
		result := d.db.WithContext(ctx).Where("parent_id IN ?", frontier).Find(&level)
		if result.Error != nil {
			return nil, result.Error
		}

		frontier = frontier[:0]
		for _, n := range level {
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			nodes = append(nodes, n)
			frontier = append(frontier, n.ID)
		}
	}

	return nodes, nil
}

func (d *StockDAO) FindAll(ctx context.Context) ([]StockNode, error) {
	var nodes []StockNode

	result := d.db.WithContext(ctx).Find(&nodes)
	if result.Error != nil {
		return nil, result.Error
	}

	return nodes, nil
}

func (d *StockDAO) FindExpiringBefore(ctx context.Context, before time.Time) ([]StockNode, error) {
	var nodes []StockNode

	result := d.db.WithContext(ctx).
		Where("type = ? AND expiry_date IS NOT NULL AND expiry_date <= ?", "ITEM", before).
		Order("expiry_date").
		Find(&nodes)
	if result.Error != nil {
		return nil, result.Error
	}

	return nodes, nil
}

// Update writes the editable columns of node and shifts the level of the given
// descendants by levelDelta, in one transaction.
func (d *StockDAO) Update(ctx context.Context, node StockNode, descendantIDs []uint, levelDelta int) (StockNode, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&node).
			Select("Name", "Quantity", "ExpiryDate", "ParentID", "Level").
			Updates(node)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNodeNotFound
		}

		if levelDelta != 0 && len(descendantIDs) > 0 {
			result = tx.Model(&StockNode{}).
				Where("id IN ?", descendantIDs).
				Update("level", gorm.Expr("level + ?", levelDelta))
			if result.Error != nil {
				return result.Error
			}
		}

		return nil
	})
	if err != nil {
		return StockNode{}, err
	}

	return d.FindByID(ctx, node.ID)
}

// DeleteSubtree removes the nodes together with every ledger entry, load state,
// expiry lot and event selection that references them. Restocking articles
// earmarked for them are kept without a target.
func (d *StockDAO) DeleteSubtree(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("node_id IN ?", ids).Delete(&Verification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("node_id IN ?", ids).Delete(&ParentLoadState{}).Error; err != nil {
			return err
		}
		if err := tx.Where("node_id IN ?", ids).Delete(&EventRoot{}).Error; err != nil {
			return err
		}
		if err := tx.Where("node_id IN ?", ids).Delete(&PeriodicRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("node_id IN ?", ids).Delete(&ItemExpiry{}).Error; err != nil {
			return err
		}
		err := tx.Model(&ReassortItem{}).
			Where("target_node_id IN ?", ids).
			Update("target_node_id", nil).Error
		if err != nil {
			return err
		}

		return tx.Where("id IN ?", ids).Delete(&StockNode{}).Error
	})
}
