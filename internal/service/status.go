package service

import (
	"context"
	"fmt"

	"github.com/juju/clock"

	"github.com/pcprep/pcprep-api/internal/domain"
)

type SubtreeReader interface {
	FindSubtrees(ctx context.Context, rootIDs []uint) ([]domain.StockNode, error)
}

type LedgerReader interface {
	LatestByNode(ctx context.Context, eventID uint) (map[uint]domain.Verification, error)
	LoadStates(ctx context.Context, eventID uint) (map[uint]domain.ParentLoadState, error)
}

type PresenceReader interface {
	Active(eventID uint) []string
}

// StatusService recomputes the aggregated tree of an event from the stock,
// the ledger and the load states on every call.
type StatusService struct {
	stock    SubtreeReader
	ledger   LedgerReader
	presence PresenceReader
	clock    clock.Clock
}

func NewStatusService(stock SubtreeReader, ledger LedgerReader, presence PresenceReader, clk clock.Clock) *StatusService {
	return &StatusService{
		stock:    stock,
		ledger:   ledger,
		presence: presence,
		clock:    clk,
	}
}

func (s *StatusService) Tree(ctx context.Context, event domain.Event) (domain.EventTree, error) {
	var nodes []domain.StockNode
	if len(event.RootIDs) > 0 {
		found, err := s.stock.FindSubtrees(ctx, event.RootIDs)
		if err != nil {
			return domain.EventTree{}, fmt.Errorf("s.stock.FindSubtrees -> %w", err)
		}
		nodes = found
	}

	latest, err := s.ledger.LatestByNode(ctx, event.ID)
	if err != nil {
		return domain.EventTree{}, fmt.Errorf("s.ledger.LatestByNode -> %w", err)
	}

	loads, err := s.ledger.LoadStates(ctx, event.ID)
	if err != nil {
		return domain.EventTree{}, fmt.Errorf("s.ledger.LoadStates -> %w", err)
	}

	tree := domain.BuildEventTree(domain.TreeInput{
		Event:  event,
		Nodes:  nodes,
		Latest: latest,
		Loads:  loads,
	})
	tree.GeneratedAt = s.clock.Now()
	if s.presence != nil {
		if busy := s.presence.Active(event.ID); busy != nil {
			tree.Busy = busy
		}
	}

	return tree, nil
}

func (s *StatusService) Stats(ctx context.Context, event domain.Event) (domain.EventStats, error) {
	tree, err := s.Tree(ctx, event)
	if err != nil {
		return domain.EventStats{}, err
	}

	return domain.ComputeStats(tree), nil
}
