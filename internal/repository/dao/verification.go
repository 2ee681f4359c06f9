package dao

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Verification struct {
	ID uint `gorm:"primaryKey"`

	EventID      uint   `gorm:"not null;index:idx_verification_event_node_time,priority:1"`
	NodeID       uint   `gorm:"not null;index:idx_verification_event_node_time,priority:2"`
	Status       string `gorm:"not null;size:8"`
	VerifierName string `gorm:"not null;size:120"`
	Quantity     *int
	Comment      string `gorm:"size:500"`
	Source       string `gorm:"not null;size:8"`

	CreatedAt time.Time `gorm:"not null;index:idx_verification_event_node_time,priority:3"`
}

func (Verification) TableName() string {
	return "verification_records"
}

type ParentLoadState struct {
	EventID uint `gorm:"primaryKey;autoIncrement:false"`
	NodeID  uint `gorm:"primaryKey;autoIncrement:false"`

	Loaded      bool   `gorm:"not null;default:false"`
	VehicleName string `gorm:"size:120"`
	UpdatedBy   string `gorm:"size:120"`

	UpdatedAt time.Time `gorm:"not null"`
}

func (ParentLoadState) TableName() string {
	return "event_node_statuses"
}

type VerificationDAO struct {
	db *gorm.DB
}

func NewVerificationDAO(db *gorm.DB) *VerificationDAO {
	return &VerificationDAO{
		db: db,
	}
}

// Insert appends to the ledger. Records are never updated.
func (d *VerificationDAO) Insert(ctx context.Context, rec Verification) (Verification, error) {
	result := d.db.WithContext(ctx).Create(&rec)
	if result.Error != nil {
		return Verification{}, result.Error
	}

	return rec, nil
}

// FindByEvent returns the whole ledger of an event in commit order.
func (d *VerificationDAO) FindByEvent(ctx context.Context, eventID uint) ([]Verification, error) {
	var records []Verification

	result := d.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at, id").
		Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}

	return records, nil
}

func (d *VerificationDAO) FindRecent(ctx context.Context, eventID uint, limit int) ([]Verification, error) {
	var records []Verification

	result := d.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}

	return records, nil
}

func (d *VerificationDAO) FindLoadStates(ctx context.Context, eventID uint) ([]ParentLoadState, error) {
	var states []ParentLoadState

	result := d.db.WithContext(ctx).Where("event_id = ?", eventID).Find(&states)
	if result.Error != nil {
		return nil, result.Error
	}

	return states, nil
}

func (d *VerificationDAO) UpsertLoadState(ctx context.Context, state ParentLoadState) (ParentLoadState, error) {
	result := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "node_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"loaded", "vehicle_name", "updated_by", "updated_at"}),
		}).
		Create(&state)
	if result.Error != nil {
		return ParentLoadState{}, result.Error
	}

	return state, nil
}
