package repository

import (
	"context"
	"fmt"

	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/repository/dao"
)

type AuditDAO interface {
	Insert(ctx context.Context, entry dao.AuditLog) (dao.AuditLog, error)
	FindByEvent(ctx context.Context, eventID uint, limit int) ([]dao.AuditLog, error)
	FindAllByEvent(ctx context.Context, eventID uint) ([]dao.AuditLog, error)
}

type AuditRepository struct {
	dao AuditDAO
}

func NewAuditRepository(dao AuditDAO) *AuditRepository {
	return &AuditRepository{
		dao: dao,
	}
}

func (r *AuditRepository) Record(ctx context.Context, entry domain.AuditEntry) error {
	_, err := r.dao.Insert(ctx, dao.AuditLog{
		EventID:   entry.EventID,
		UserID:    entry.UserID,
		Actor:     entry.Actor,
		Action:    entry.Action,
		Details:   entry.Details,
		CreatedAt: entry.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return nil
}

func (r *AuditRepository) FindByEvent(ctx context.Context, eventID uint, limit int) ([]domain.AuditEntry, error) {
	found, err := r.dao.FindByEvent(ctx, eventID, limit)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByEvent -> %w", err)
	}

	return auditToDomain(found), nil
}

// FindAllByEvent returns the whole log of an event, oldest first.
func (r *AuditRepository) FindAllByEvent(ctx context.Context, eventID uint) ([]domain.AuditEntry, error) {
	found, err := r.dao.FindAllByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindAllByEvent -> %w", err)
	}

	return auditToDomain(found), nil
}

func auditToDomain(found []dao.AuditLog) []domain.AuditEntry {
	entries := make([]domain.AuditEntry, 0, len(found))
	for _, e := range found {
		entries = append(entries, domain.AuditEntry{
			ID:        e.ID,
			EventID:   e.EventID,
			UserID:    e.UserID,
			Actor:     e.Actor,
			Action:    e.Action,
			Details:   e.Details,
			CreatedAt: e.CreatedAt,
		})
	}

	return entries
}
