package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pcprep/pcprep-api/internal/domain"
)

// Expiries lists the dated lots of an item, earliest first.
func (s *StockService) Expiries(ctx context.Context, nodeID uint) ([]domain.ItemExpiry, error) {
	node, err := s.repo.FindByID(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindByID -> %w", err)
	}
	if node.IsGroup() {
		return nil, ErrNotAnItem
	}

	byNode, err := s.repo.FindExpiries(ctx, []uint{nodeID})
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindExpiries -> %w", err)
	}

	lots := byNode[nodeID]
	if lots == nil {
		lots = []domain.ItemExpiry{}
	}
	domain.SortExpiries(lots)

	return lots, nil
}

// AddExpiry adds a dated lot to an item. The item expiry date follows the
// earliest lot.
func (s *StockService) AddExpiry(ctx context.Context, actor domain.User, nodeID uint, lot domain.ItemExpiry) (domain.ItemExpiry, error) {
	node, err := s.repo.FindByID(ctx, nodeID)
	if err != nil {
		return domain.ItemExpiry{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}
	if node.IsGroup() {
		return domain.ItemExpiry{}, ErrNotAnItem
	}
	if lot.Date.IsZero() {
		return domain.ItemExpiry{}, fmt.Errorf("%w: expiry date is required", ErrInvalidInput)
	}
	if lot.Quantity != nil && *lot.Quantity < 0 {
		return domain.ItemExpiry{}, fmt.Errorf("%w: lot quantity must be zero or more", ErrInvalidInput)
	}

	lot.ID = 0
	lot.NodeID = node.ID
	lot.Lot = strings.TrimSpace(lot.Lot)
	lot.Note = strings.TrimSpace(lot.Note)
	lot.CreatedAt = s.clock.Now()

	created, err := s.repo.AddExpiry(ctx, lot)
	if err != nil {
		return domain.ItemExpiry{}, fmt.Errorf("s.repo.AddExpiry -> %w", err)
	}

	entry := actorEntry(actor, domain.AuditExpiryAdded)
	entry.Details = fmt.Sprintf("#%d %s: %s", node.ID, node.Name, created.Date.Format(dateLayout))
	recordAudit(ctx, s.audit, entry)

	return created, nil
}

func (s *StockService) DeleteExpiry(ctx context.Context, actor domain.User, nodeID, expiryID uint) error {
	if err := s.repo.DeleteExpiry(ctx, nodeID, expiryID); err != nil {
		return fmt.Errorf("s.repo.DeleteExpiry -> %w", err)
	}

	entry := actorEntry(actor, domain.AuditExpiryDeleted)
	entry.Details = fmt.Sprintf("#%d lot #%d", nodeID, expiryID)
	recordAudit(ctx, s.audit, entry)

	return nil
}
