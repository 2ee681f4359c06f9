package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/juju/clock"

	"github.com/pcprep/pcprep-api/internal/domain"
)

const (
	defaultLatestLimit = 20
	maxLatestLimit     = 200
)

type LedgerRepository interface {
	Append(ctx context.Context, v domain.Verification) (domain.Verification, error)
	FindRecent(ctx context.Context, eventID uint, limit int) ([]domain.Verification, error)
	SaveLoadState(ctx context.Context, state domain.ParentLoadState) (domain.ParentLoadState, error)
}

type EventReader interface {
	FindByID(ctx context.Context, id uint) (domain.Event, error)
}

type VerificationObserver interface {
	ObserveVerification(source domain.VerificationSource, status domain.VerificationStatus)
	ObserveParentLoad(result string)
}

type VerifyInput struct {
	EventID      uint
	NodeID       uint
	Status       domain.VerificationStatus
	VerifierName string
	Quantity     *int
	Comment      string
	Source       domain.VerificationSource
	UserID       *uint
}

type ParentStatusInput struct {
	EventID     uint
	NodeID      uint
	Loaded      bool
	VehicleName string
	By          string
	Source      domain.VerificationSource
	UserID      *uint
}

// VerificationService appends to the ledger and gates the loaded flag of
// groups on the aggregated status.
type VerificationService struct {
	events  EventReader
	ledger  LedgerRepository
	status  TreeBuilder
	audit   AuditRecorder
	live    LivePublisher
	metrics VerificationObserver
	clock   clock.Clock
}

func NewVerificationService(
	events EventReader,
	ledger LedgerRepository,
	status TreeBuilder,
	audit AuditRecorder,
	live LivePublisher,
	metrics VerificationObserver,
	clk clock.Clock,
) *VerificationService {
	return &VerificationService{
		events:  events,
		ledger:  ledger,
		status:  status,
		audit:   audit,
		live:    live,
		metrics: metrics,
		clock:   clk,
	}
}

// Verify records the state of one item. The ledger is append-only: the most
// recent record of an item is its displayed state.
func (s *VerificationService) Verify(ctx context.Context, in VerifyInput) (domain.Verification, domain.EventTree, error) {
	name := strings.TrimSpace(in.VerifierName)
	if name == "" {
		return domain.Verification{}, domain.EventTree{}, fmt.Errorf("%w: verifier name is required", ErrInvalidInput)
	}
	if !in.Status.Valid() {
		return domain.Verification{}, domain.EventTree{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}
	if in.Quantity != nil && *in.Quantity < 0 {
		return domain.Verification{}, domain.EventTree{}, fmt.Errorf("%w: quantity cannot be negative", ErrInvalidInput)
	}

	event, tree, err := s.openEventTree(ctx, in.EventID)
	if err != nil {
		return domain.Verification{}, domain.EventTree{}, err
	}

	node := tree.Find(in.NodeID)
	if node == nil || node.IsGroup() {
		return domain.Verification{}, domain.EventTree{}, ErrNodeNotInEvent
	}

	source := in.Source
	if source == "" {
		source = domain.SourceStaff
	}

	rec, err := s.ledger.Append(ctx, domain.Verification{
		EventID:      event.ID,
		NodeID:       node.ID,
		Status:       in.Status,
		VerifierName: name,
		Quantity:     in.Quantity,
		Comment:      strings.TrimSpace(in.Comment),
		Source:       source,
		CreatedAt:    s.clock.Now(),
	})
	if err != nil {
		return domain.Verification{}, domain.EventTree{}, fmt.Errorf("s.ledger.Append -> %w", err)
	}

	s.live.Touch(event.ID, name)
	if s.metrics != nil {
		s.metrics.ObserveVerification(source, rec.Status)
	}

	entry := domain.AuditEntry{
		EventID: &event.ID,
		UserID:  in.UserID,
		Actor:   name,
		Action:  domain.AuditItemVerified,
		Details: fmt.Sprintf("%s: %s", node.Name, rec.Status),
	}
	recordAudit(ctx, s.audit, entry)

	updated, err := s.status.Tree(ctx, event)
	if err != nil {
		return domain.Verification{}, domain.EventTree{}, fmt.Errorf("s.status.Tree -> %w", err)
	}

	s.live.Publish(domain.LiveMessage{
		Type:    domain.LiveItemVerified,
		EventID: event.ID,
		NodeID:  node.ID,
		Status:  string(rec.Status),
		By:      name,
		At:      rec.CreatedAt,
		Tree:    &updated,
	})

	return rec, updated, nil
}

// SetParentStatus sets the loaded flag of a group. Loading requires every item
// below it to be OK, at least one item, and a vehicle label. Unloading is
// always allowed while the event is open.
func (s *VerificationService) SetParentStatus(ctx context.Context, in ParentStatusInput) (domain.ParentLoadState, domain.EventTree, error) {
	by := strings.TrimSpace(in.By)
	if by == "" {
		return domain.ParentLoadState{}, domain.EventTree{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	event, tree, err := s.openEventTree(ctx, in.EventID)
	if err != nil {
		return domain.ParentLoadState{}, domain.EventTree{}, err
	}

	node := tree.Find(in.NodeID)
	if node == nil || !node.IsGroup() {
		return domain.ParentLoadState{}, domain.EventTree{}, ErrNodeNotInEvent
	}

	vehicle := strings.TrimSpace(in.VehicleName)
	if in.Loaded {
		if err := checkLoadable(node, vehicle); err != nil {
			s.observeLoad("rejected")
			return domain.ParentLoadState{}, domain.EventTree{}, err
		}
	} else {
		vehicle = ""
	}

	state, err := s.ledger.SaveLoadState(ctx, domain.ParentLoadState{
		EventID:     event.ID,
		NodeID:      node.ID,
		Loaded:      in.Loaded,
		VehicleName: vehicle,
		UpdatedBy:   by,
		UpdatedAt:   s.clock.Now(),
	})
	if err != nil {
		return domain.ParentLoadState{}, domain.EventTree{}, fmt.Errorf("s.ledger.SaveLoadState -> %w", err)
	}

	s.live.Touch(event.ID, by)
	if in.Loaded {
		s.observeLoad("loaded")
	} else {
		s.observeLoad("unloaded")
	}

	details := fmt.Sprintf("%s: unloaded", node.Name)
	if in.Loaded {
		details = fmt.Sprintf("%s: loaded in %s", node.Name, vehicle)
	}
	recordAudit(ctx, s.audit, domain.AuditEntry{
		EventID: &event.ID,
		UserID:  in.UserID,
		Actor:   by,
		Action:  domain.AuditParentLoaded,
		Details: details,
	})

	updated, err := s.status.Tree(ctx, event)
	if err != nil {
		return domain.ParentLoadState{}, domain.EventTree{}, fmt.Errorf("s.status.Tree -> %w", err)
	}

	loaded := state.Loaded
	s.live.Publish(domain.LiveMessage{
		Type:    domain.LiveParentLoaded,
		EventID: event.ID,
		NodeID:  node.ID,
		Loaded:  &loaded,
		By:      by,
		At:      state.UpdatedAt,
		Tree:    &updated,
	})

	return state, updated, nil
}

func checkLoadable(node *domain.TreeNode, vehicle string) error {
	if node.TotalItems == 0 {
		return ErrParentHasNoItems
	}
	if !node.Complete {
		return ErrNotAllChildrenVerified
	}
	if vehicle == "" {
		return fmt.Errorf("%w: vehicle name is required", ErrInvalidInput)
	}

	return nil
}

// Latest returns the most recent ledger entries of an event with the names of
// the item and its parent.
func (s *VerificationService) Latest(ctx context.Context, eventID uint, limit int) ([]domain.RecentVerification, error) {
	if limit <= 0 {
		limit = defaultLatestLimit
	}
	if limit > maxLatestLimit {
		limit = maxLatestLimit
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("s.events.FindByID -> %w", err)
	}

	records, err := s.ledger.FindRecent(ctx, event.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("s.ledger.FindRecent -> %w", err)
	}

	tree, err := s.status.Tree(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("s.status.Tree -> %w", err)
	}

	type names struct{ item, parent string }
	index := make(map[uint]names)
	tree.Walk(func(n *domain.TreeNode, ancestors []*domain.TreeNode) bool {
		entry := names{item: n.Name}
		if len(ancestors) > 0 {
			entry.parent = ancestors[len(ancestors)-1].Name
		}
		index[n.ID] = entry
		return true
	})

	out := make([]domain.RecentVerification, 0, len(records))
	for _, rec := range records {
		n := index[rec.NodeID]
		out = append(out, domain.RecentVerification{
			Verification: rec,
			ItemName:     n.item,
			ParentName:   n.parent,
		})
	}

	return out, nil
}

func (s *VerificationService) openEventTree(ctx context.Context, eventID uint) (domain.Event, domain.EventTree, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return domain.Event{}, domain.EventTree{}, fmt.Errorf("s.events.FindByID -> %w", err)
	}
	if !event.IsOpen() {
		return domain.Event{}, domain.EventTree{}, ErrEventClosed
	}

	tree, err := s.status.Tree(ctx, event)
	if err != nil {
		return domain.Event{}, domain.EventTree{}, fmt.Errorf("s.status.Tree -> %w", err)
	}

	return event, tree, nil
}

func (s *VerificationService) observeLoad(result string) {
	if s.metrics != nil {
		s.metrics.ObserveParentLoad(result)
	}
}
