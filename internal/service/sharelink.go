package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/repository"
)

type ShareLinkRepository interface {
	FindByID(ctx context.Context, id uint) (domain.Event, error)
	CreateShareLink(ctx context.Context, link domain.ShareLink) (domain.ShareLink, error)
	FindActiveShareLink(ctx context.Context, eventID uint, now time.Time) (domain.ShareLink, error)
	FindShareLinkByToken(ctx context.Context, token string) (domain.ShareLink, error)
}

// ShareLinkService issues and resolves the public tokens of events.
type ShareLinkService struct {
	repo  ShareLinkRepository
	audit AuditRecorder
	clock clock.Clock
	ttl   atomic.Int64
}

func NewShareLinkService(repo ShareLinkRepository, audit AuditRecorder, clk clock.Clock, ttl time.Duration) *ShareLinkService {
	s := &ShareLinkService{
		repo:  repo,
		audit: audit,
		clock: clk,
	}
	s.SetTTL(ttl)

	return s
}

// SetTTL changes the lifetime of links issued from now on.
func (s *ShareLinkService) SetTTL(ttl time.Duration) {
	s.ttl.Store(int64(ttl))
}

// Issue returns the active link of the event, creating one if needed.
func (s *ShareLinkService) Issue(ctx context.Context, actor domain.User, eventID uint) (domain.ShareLink, error) {
	event, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		return domain.ShareLink{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	now := s.clock.Now()
	link, err := s.repo.FindActiveShareLink(ctx, event.ID, now)
	if err == nil {
		return link, nil
	}
	if !errors.Is(err, repository.ErrShareLinkNotFound) {
		return domain.ShareLink{}, fmt.Errorf("s.repo.FindActiveShareLink -> %w", err)
	}

	for attempt := 0; ; attempt++ {
		link, err = s.repo.CreateShareLink(ctx, domain.ShareLink{
			EventID:   event.ID,
			Token:     uuid.NewString(),
			Active:    true,
			ExpiresAt: now.Add(time.Duration(s.ttl.Load())),
			CreatedAt: now,
		})
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrShareTokenExists) || attempt >= 2 {
			return domain.ShareLink{}, fmt.Errorf("s.repo.CreateShareLink -> %w", err)
		}
	}

	entry := actorEntry(actor, domain.AuditShareLink)
	entry.EventID = &event.ID
	entry.Details = "expires " + link.ExpiresAt.UTC().Format(time.RFC3339)
	recordAudit(ctx, s.audit, entry)

	return link, nil
}

// Resolve returns the event a token grants access to. Expired or revoked
// tokens fail with ErrShareLinkExpired; writes against a closed event fail
// with ErrEventClosed while reads keep working.
func (s *ShareLinkService) Resolve(ctx context.Context, token string, forWrite bool) (domain.Event, error) {
	if _, err := uuid.Parse(token); err != nil {
		return domain.Event{}, ErrShareLinkNotFound
	}

	link, err := s.repo.FindShareLinkByToken(ctx, token)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.FindShareLinkByToken -> %w", err)
	}
	if !link.Usable(s.clock.Now()) {
		return domain.Event{}, ErrShareLinkExpired
	}

	event, err := s.repo.FindByID(ctx, link.EventID)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}
	if forWrite && !event.IsOpen() {
		return domain.Event{}, ErrEventClosed
	}

	return event, nil
}
