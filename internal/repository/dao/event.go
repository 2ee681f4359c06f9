package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrShareLinkNotFound = errors.New("share link not found")
	ErrShareTokenExists  = errors.New("share token already exists")
)

type Event struct {
	ID uint `gorm:"primaryKey"`

	Title       string    `gorm:"not null;size:200"`
	Date        time.Time `gorm:"not null"`
	Status      string    `gorm:"not null;size:8;default:OPEN;index"`
	CreatedByID uint

	Roots []EventRoot `gorm:"foreignKey:EventID"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// EventRoot selects a stock subtree for an event.
type EventRoot struct {
	EventID  uint `gorm:"primaryKey;autoIncrement:false"`
	NodeID   uint `gorm:"primaryKey;autoIncrement:false;index"`
	Position int  `gorm:"not null;default:0"`
}

func (EventRoot) TableName() string {
	return "event_stock"
}

type ShareLink struct {
	ID uint `gorm:"primaryKey"`

	EventID   uint      `gorm:"not null;index"`
	Token     string    `gorm:"uniqueIndex;not null;size:64"`
	Active    bool      `gorm:"not null;default:true"`
	ExpiresAt time.Time `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
}

func (ShareLink) TableName() string {
	return "event_share_links"
}

type EventDAO struct {
	db *gorm.DB
}

func NewEventDAO(db *gorm.DB) *EventDAO {
	return &EventDAO{
		db: db,
	}
}

// Insert creates the event and its root selection.
func (d *EventDAO) Insert(ctx context.Context, event Event) (Event, error) {
	result := d.db.WithContext(ctx).Create(&event)
	if result.Error != nil {
		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) FindByID(ctx context.Context, id uint) (Event, error) {
	var event Event

	result := d.db.WithContext(ctx).
		Preload("Roots", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		}).
		First(&event, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Event{}, ErrEventNotFound
		}

		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) FindAll(ctx context.Context, status string) ([]Event, error) {
	var events []Event

	query := d.db.WithContext(ctx).
		Preload("Roots", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		}).
		Order("date DESC, id DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	result := query.Find(&events)
	if result.Error != nil {
		return nil, result.Error
	}

	return events, nil
}

func (d *EventDAO) UpdateStatus(ctx context.Context, id uint, status string) (Event, error) {
	result := d.db.WithContext(ctx).
		Model(&Event{ID: id}).
		Update("status", status)
	if result.Error != nil {
		return Event{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Event{}, ErrEventNotFound
	}

	return d.FindByID(ctx, id)
}

func (d *EventDAO) InsertShareLink(ctx context.Context, link ShareLink) (ShareLink, error) {
	result := d.db.WithContext(ctx).Create(&link)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return ShareLink{}, ErrShareTokenExists
		}

		return ShareLink{}, result.Error
	}

	return link, nil
}

// FindActiveShareLink returns the newest active link of the event that is
// still valid at now.
func (d *EventDAO) FindActiveShareLink(ctx context.Context, eventID uint, now time.Time) (ShareLink, error) {
	var link ShareLink

	result := d.db.WithContext(ctx).
		Where("event_id = ? AND active = ? AND expires_at > ?", eventID, true, now).
		Order("created_at DESC, id DESC").
		First(&link)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ShareLink{}, ErrShareLinkNotFound
		}

		return ShareLink{}, result.Error
	}

	return link, nil
}

func (d *EventDAO) FindShareLinkByToken(ctx context.Context, token string) (ShareLink, error) {
	var link ShareLink

	result := d.db.WithContext(ctx).First(&link, "token = ?", token)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ShareLink{}, ErrShareLinkNotFound
		}

		return ShareLink{}, result.Error
	}

	return link, nil
}
