package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/juju/clock"

	"github.com/pcprep/pcprep-api/internal/domain"
)

const eventLogLimit = 200

type EventRepository interface {
	Create(ctx context.Context, event domain.Event) (domain.Event, error)
	FindByID(ctx context.Context, id uint) (domain.Event, error)
	FindAll(ctx context.Context, status domain.EventStatus) ([]domain.Event, error)
	UpdateStatus(ctx context.Context, id uint, status domain.EventStatus) (domain.Event, error)
}

type EventLogReader interface {
	FindByEvent(ctx context.Context, eventID uint, limit int) ([]domain.AuditEntry, error)
	FindAllByEvent(ctx context.Context, eventID uint) ([]domain.AuditEntry, error)
}

type TreeBuilder interface {
	Tree(ctx context.Context, event domain.Event) (domain.EventTree, error)
}

type LivePublisher interface {
	Publish(msg domain.LiveMessage)
	Touch(eventID uint, actor string)
}

type EventService struct {
	repo   EventRepository
	stock  SubtreeReader
	status TreeBuilder
	audit  AuditRecorder
	logs   EventLogReader
	live   LivePublisher
	clock  clock.Clock
}

func NewEventService(
	repo EventRepository,
	stock SubtreeReader,
	status TreeBuilder,
	audit AuditRecorder,
	logs EventLogReader,
	live LivePublisher,
	clk clock.Clock,
) *EventService {
	return &EventService{
		repo:   repo,
		stock:  stock,
		status: status,
		audit:  audit,
		logs:   logs,
		live:   live,
		clock:  clk,
	}
}

func (s *EventService) List(ctx context.Context, status domain.EventStatus) ([]domain.Event, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	events, err := s.repo.FindAll(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindAll -> %w", err)
	}

	return events, nil
}

func (s *EventService) Get(ctx context.Context, id uint) (domain.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return event, nil
}

// Create opens a new event over the given stock roots. Roots must be groups;
// duplicates and roots nested inside another selected root are dropped.
func (s *EventService) Create(ctx context.Context, actor domain.User, title string, date time.Time, rootIDs []uint) (domain.Event, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Event{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	roots, err := s.selectRoots(ctx, rootIDs)
	if err != nil {
		return domain.Event{}, err
	}

	created, err := s.repo.Create(ctx, domain.Event{
		Title:       title,
		Date:        date,
		Status:      domain.EventOpen,
		RootIDs:     roots,
		CreatedByID: actor.ID,
	})
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	entry := actorEntry(actor, domain.AuditEventCreated)
	entry.EventID = &created.ID
	entry.Details = created.Title
	recordAudit(ctx, s.audit, entry)

	return created, nil
}

func (s *EventService) selectRoots(ctx context.Context, rootIDs []uint) ([]uint, error) {
	if len(rootIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one stock group is required", ErrInvalidInput)
	}

	flat, err := s.stock.FindSubtrees(ctx, rootIDs)
	if err != nil {
		return nil, fmt.Errorf("s.stock.FindSubtrees -> %w", err)
	}

	byID := make(map[uint]domain.StockNode, len(flat))
	for _, n := range flat {
		byID[n.ID] = n
	}

	selected := make(map[uint]bool, len(rootIDs))
	for _, id := range rootIDs {
		n, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: stock node %d", ErrNodeNotFound, id)
		}
		if !n.IsGroup() {
			return nil, fmt.Errorf("%w: %q is not a group", ErrInvalidInput, n.Name)
		}
		selected[id] = true
	}

	var roots []uint
	seen := make(map[uint]bool, len(rootIDs))
	for _, id := range rootIDs {
		if seen[id] || hasSelectedAncestor(byID[id], byID, selected) {
			continue
		}
		seen[id] = true
		roots = append(roots, id)
	}

	return roots, nil
}

func hasSelectedAncestor(n domain.StockNode, byID map[uint]domain.StockNode, selected map[uint]bool) bool {
	visited := map[uint]bool{n.ID: true}
	for parentID := n.ParentID; parentID != nil; {
		if selected[*parentID] {
			return true
		}
		parent, ok := byID[*parentID]
		if !ok || visited[parent.ID] {
			return false
		}
		visited[parent.ID] = true
		parentID = parent.ParentID
	}

	return false
}

// SetStatus opens or closes an event and notifies its room.
func (s *EventService) SetStatus(ctx context.Context, actor domain.User, id uint, status domain.EventStatus) (domain.Event, error) {
	if !status.Valid() {
		return domain.Event{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	event, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.UpdateStatus -> %w", err)
	}

	entry := actorEntry(actor, domain.AuditEventStatus)
	entry.EventID = &event.ID
	entry.Details = string(event.Status)
	recordAudit(ctx, s.audit, entry)

	tree, err := s.status.Tree(ctx, event)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.status.Tree -> %w", err)
	}

	s.live.Publish(domain.LiveMessage{
		Type:    domain.LiveEventStatus,
		EventID: event.ID,
		Status:  string(event.Status),
		By:      actor.Username,
		At:      s.clock.Now(),
		Tree:    &tree,
	})

	return event, nil
}

func (s *EventService) Tree(ctx context.Context, id uint) (domain.Event, domain.EventTree, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return domain.Event{}, domain.EventTree{}, err
	}

	tree, err := s.status.Tree(ctx, event)
	if err != nil {
		return domain.Event{}, domain.EventTree{}, fmt.Errorf("s.status.Tree -> %w", err)
	}

	return event, tree, nil
}

func (s *EventService) Logs(ctx context.Context, id uint) ([]domain.AuditEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	entries, err := s.logs.FindByEvent(ctx, id, eventLogLimit)
	if err != nil {
		return nil, fmt.Errorf("s.logs.FindByEvent -> %w", err)
	}

	return entries, nil
}

// LogHistory returns the event with its whole log, oldest first.
func (s *EventService) LogHistory(ctx context.Context, id uint) (domain.Event, []domain.AuditEntry, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return domain.Event{}, nil, err
	}

	entries, err := s.logs.FindAllByEvent(ctx, id)
	if err != nil {
		return domain.Event{}, nil, fmt.Errorf("s.logs.FindAllByEvent -> %w", err)
	}

	return event, entries, nil
}
