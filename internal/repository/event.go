package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/repository/dao"
)

var (
	ErrEventNotFound     = dao.ErrEventNotFound
	ErrShareLinkNotFound = dao.ErrShareLinkNotFound
	ErrShareTokenExists  = dao.ErrShareTokenExists
)

type EventDAO interface {
	Insert(ctx context.Context, event dao.Event) (dao.Event, error)
	FindByID(ctx context.Context, id uint) (dao.Event, error)
	FindAll(ctx context.Context, status string) ([]dao.Event, error)
	UpdateStatus(ctx context.Context, id uint, status string) (dao.Event, error)
	InsertShareLink(ctx context.Context, link dao.ShareLink) (dao.ShareLink, error)
	FindActiveShareLink(ctx context.Context, eventID uint, now time.Time) (dao.ShareLink, error)
	FindShareLinkByToken(ctx context.Context, token string) (dao.ShareLink, error)
}

type EventRepository struct {
	dao EventDAO
}

func NewEventRepository(dao EventDAO) *EventRepository {
	return &EventRepository{
		dao: dao,
	}
}

func (r *EventRepository) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	created, err := r.dao.Insert(ctx, r.domainToDao(event))
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *EventRepository) FindByID(ctx context.Context, id uint) (domain.Event, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *EventRepository) FindAll(ctx context.Context, status domain.EventStatus) ([]domain.Event, error) {
	found, err := r.dao.FindAll(ctx, string(status))
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindAll -> %w", err)
	}

	events := make([]domain.Event, 0, len(found))
	for _, e := range found {
		events = append(events, r.daoToDomain(e))
	}

	return events, nil
}

func (r *EventRepository) UpdateStatus(ctx context.Context, id uint, status domain.EventStatus) (domain.Event, error) {
	updated, err := r.dao.UpdateStatus(ctx, id, string(status))
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.UpdateStatus -> %w", err)
	}

	return r.daoToDomain(updated), nil
}

func (r *EventRepository) CreateShareLink(ctx context.Context, link domain.ShareLink) (domain.ShareLink, error) {
	created, err := r.dao.InsertShareLink(ctx, dao.ShareLink{
		EventID:   link.EventID,
		Token:     link.Token,
		Active:    link.Active,
		ExpiresAt: link.ExpiresAt,
	})
	if err != nil {
		return domain.ShareLink{}, fmt.Errorf("r.dao.InsertShareLink -> %w", err)
	}

	return r.shareLinkDaoToDomain(created), nil
}

func (r *EventRepository) FindActiveShareLink(ctx context.Context, eventID uint, now time.Time) (domain.ShareLink, error) {
	found, err := r.dao.FindActiveShareLink(ctx, eventID, now)
	if err != nil {
		return domain.ShareLink{}, fmt.Errorf("r.dao.FindActiveShareLink -> %w", err)
	}

	return r.shareLinkDaoToDomain(found), nil
}

func (r *EventRepository) FindShareLinkByToken(ctx context.Context, token string) (domain.ShareLink, error) {
	found, err := r.dao.FindShareLinkByToken(ctx, token)
	if err != nil {
		return domain.ShareLink{}, fmt.Errorf("r.dao.FindShareLinkByToken -> %w", err)
	}

	return r.shareLinkDaoToDomain(found), nil
}

func (r *EventRepository) domainToDao(e domain.Event) dao.Event {
	event := dao.Event{
		ID:          e.ID,
		Title:       e.Title,
		Date:        e.Date,
		Status:      string(e.Status),
		CreatedByID: e.CreatedByID,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	for i, id := range e.RootIDs {
		event.Roots = append(event.Roots, dao.EventRoot{EventID: e.ID, NodeID: id, Position: i})
	}

	return event
}

func (r *EventRepository) daoToDomain(e dao.Event) domain.Event {
	event := domain.Event{
		ID:          e.ID,
		Title:       e.Title,
		Date:        e.Date,
		Status:      domain.EventStatus(e.Status),
		RootIDs:     make([]uint, 0, len(e.Roots)),
		CreatedByID: e.CreatedByID,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	for _, root := range e.Roots {
		event.RootIDs = append(event.RootIDs, root.NodeID)
	}

	return event
}

func (r *EventRepository) shareLinkDaoToDomain(l dao.ShareLink) domain.ShareLink {
	return domain.ShareLink{
		ID:        l.ID,
		EventID:   l.EventID,
		Token:     l.Token,
		Active:    l.Active,
		ExpiresAt: l.ExpiresAt,
		CreatedAt: l.CreatedAt,
	}
}
