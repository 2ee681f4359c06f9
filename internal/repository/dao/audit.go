package dao

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type AuditLog struct {
	ID uint `gorm:"primaryKey"`

	EventID *uint  `gorm:"index"`
	UserID  *uint  `gorm:"index"`
	Actor   string `gorm:"not null;size:120"`
	Action  string `gorm:"not null;size:40"`
	Details string `gorm:"size:1000"`

	CreatedAt time.Time `gorm:"not null;index"`
}

type AuditDAO struct {
	db *gorm.DB
}

func NewAuditDAO(db *gorm.DB) *AuditDAO {
	return &AuditDAO{
		db: db,
	}
}

func (d *AuditDAO) Insert(ctx context.Context, entry AuditLog) (AuditLog, error) {
	result := d.db.WithContext(ctx).Create(&entry)
	if result.Error != nil {
		return AuditLog{}, result.Error
	}

	return entry, nil
}

// FindAllByEvent returns the whole log of an event, oldest first.
func (d *AuditDAO) FindAllByEvent(ctx context.Context, eventID uint) ([]AuditLog, error) {
	var entries []AuditLog

	result := d.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at, id").
		Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}

	return entries, nil
}

func (d *AuditDAO) FindByEvent(ctx context.Context, eventID uint, limit int) ([]AuditLog, error) {
	var entries []AuditLog

	result := d.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}

	return entries, nil
}
