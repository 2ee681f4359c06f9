package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/juju/clock"

	"github.com/pcprep/pcprep-api/internal/domain"
)

const maxNoteLength = 500

type ReassortRepository interface {
	FindItems(ctx context.Context) ([]domain.ReassortItem, error)
	FindItem(ctx context.Context, id uint) (domain.ReassortItem, error)
	CreateItem(ctx context.Context, item domain.ReassortItem) (domain.ReassortItem, error)
	UpdateItem(ctx context.Context, item domain.ReassortItem) (domain.ReassortItem, error)
	DeleteItem(ctx context.Context, id uint) error
	CreateBatch(ctx context.Context, batch domain.ReassortBatch) (domain.ReassortBatch, error)
	FindBatch(ctx context.Context, id uint) (domain.ReassortBatch, error)
	UpdateBatch(ctx context.Context, batch domain.ReassortBatch) (domain.ReassortBatch, error)
	DeleteBatch(ctx context.Context, id uint) error
}

type NodeFinder interface {
	FindByID(ctx context.Context, id uint) (domain.StockNode, error)
}

// ReassortService manages the restocking reserve: articles, optionally
// earmarked for a stock node, and their batches with per batch expiry.
type ReassortService struct {
	repo  ReassortRepository
	nodes NodeFinder
	audit AuditRecorder
	clock clock.Clock
}

func NewReassortService(repo ReassortRepository, nodes NodeFinder, audit AuditRecorder, clk clock.Clock) *ReassortService {
	return &ReassortService{
		repo:  repo,
		nodes: nodes,
		audit: audit,
		clock: clk,
	}
}

func (s *ReassortService) ListItems(ctx context.Context) ([]domain.ReassortItem, error) {
	items, err := s.repo.FindItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindItems -> %w", err)
	}

	return items, nil
}

func (s *ReassortService) CreateItem(ctx context.Context, actor domain.User, item domain.ReassortItem) (domain.ReassortItem, error) {
	item.ID = 0
	item.Batches = nil
	item.Name = normalizeName(item.Name)
	item.Note = strings.TrimSpace(item.Note)
	if err := checkName(item.Name); err != nil {
		return domain.ReassortItem{}, err
	}
	if err := checkNote(item.Note); err != nil {
		return domain.ReassortItem{}, err
	}
	if err := s.checkTarget(ctx, item.TargetNodeID); err != nil {
		return domain.ReassortItem{}, err
	}

	now := s.clock.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	created, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		return domain.ReassortItem{}, fmt.Errorf("s.repo.CreateItem -> %w", err)
	}

	s.auditItem(ctx, actor, "created", created)

	return created, nil
}

func (s *ReassortService) UpdateItem(ctx context.Context, actor domain.User, id uint, patch domain.ReassortItemPatch) (domain.ReassortItem, error) {
	item, err := s.repo.FindItem(ctx, id)
	if err != nil {
		return domain.ReassortItem{}, fmt.Errorf("s.repo.FindItem -> %w", err)
	}

	if patch.Name != nil {
		item.Name = normalizeName(*patch.Name)
		if err := checkName(item.Name); err != nil {
			return domain.ReassortItem{}, err
		}
	}
	if patch.Note != nil {
		item.Note = strings.TrimSpace(*patch.Note)
		if err := checkNote(item.Note); err != nil {
			return domain.ReassortItem{}, err
		}
	}
	if patch.ClearTarget {
		item.TargetNodeID = nil
	} else if patch.TargetNodeID != nil {
		if err := s.checkTarget(ctx, patch.TargetNodeID); err != nil {
			return domain.ReassortItem{}, err
		}
		item.TargetNodeID = patch.TargetNodeID
	}
	item.UpdatedAt = s.clock.Now()

	updated, err := s.repo.UpdateItem(ctx, item)
	if err != nil {
		return domain.ReassortItem{}, fmt.Errorf("s.repo.UpdateItem -> %w", err)
	}

	s.auditItem(ctx, actor, "updated", updated)

	return updated, nil
}

// DeleteItem removes an article and its batches.
func (s *ReassortService) DeleteItem(ctx context.Context, actor domain.User, id uint) error {
	item, err := s.repo.FindItem(ctx, id)
	if err != nil {
		return fmt.Errorf("s.repo.FindItem -> %w", err)
	}
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("s.repo.DeleteItem -> %w", err)
	}

	s.auditItem(ctx, actor, "deleted", item)

	return nil
}

func (s *ReassortService) AddBatch(ctx context.Context, actor domain.User, itemID uint, batch domain.ReassortBatch) (domain.ReassortBatch, error) {
	item, err := s.repo.FindItem(ctx, itemID)
	if err != nil {
		return domain.ReassortBatch{}, fmt.Errorf("s.repo.FindItem -> %w", err)
	}

	batch.ID = 0
	batch.ItemID = item.ID
	batch.Lot = strings.TrimSpace(batch.Lot)
	batch.Note = strings.TrimSpace(batch.Note)
	if err := checkBatch(batch); err != nil {
		return domain.ReassortBatch{}, err
	}

	now := s.clock.Now()
	batch.CreatedAt = now
	batch.UpdatedAt = now

	created, err := s.repo.CreateBatch(ctx, batch)
	if err != nil {
		return domain.ReassortBatch{}, fmt.Errorf("s.repo.CreateBatch -> %w", err)
	}

	s.auditBatch(ctx, actor, "added", item.Name, created)

	return created, nil
}

func (s *ReassortService) UpdateBatch(ctx context.Context, actor domain.User, id uint, patch domain.ReassortBatchPatch) (domain.ReassortBatch, error) {
	batch, err := s.repo.FindBatch(ctx, id)
	if err != nil {
		return domain.ReassortBatch{}, fmt.Errorf("s.repo.FindBatch -> %w", err)
	}

	if patch.Quantity != nil {
		batch.Quantity = *patch.Quantity
	}
	if patch.ClearExpiry {
		batch.ExpiryDate = nil
	} else if patch.ExpiryDate != nil {
		batch.ExpiryDate = patch.ExpiryDate
	}
	if patch.Lot != nil {
		batch.Lot = strings.TrimSpace(*patch.Lot)
	}
	if patch.Note != nil {
		batch.Note = strings.TrimSpace(*patch.Note)
	}
	if err := checkBatch(batch); err != nil {
		return domain.ReassortBatch{}, err
	}
	batch.UpdatedAt = s.clock.Now()

	updated, err := s.repo.UpdateBatch(ctx, batch)
	if err != nil {
		return domain.ReassortBatch{}, fmt.Errorf("s.repo.UpdateBatch -> %w", err)
	}

	s.auditBatch(ctx, actor, "updated", "", updated)

	return updated, nil
}

func (s *ReassortService) DeleteBatch(ctx context.Context, actor domain.User, id uint) error {
	batch, err := s.repo.FindBatch(ctx, id)
	if err != nil {
		return fmt.Errorf("s.repo.FindBatch -> %w", err)
	}
	if err := s.repo.DeleteBatch(ctx, id); err != nil {
		return fmt.Errorf("s.repo.DeleteBatch -> %w", err)
	}

	s.auditBatch(ctx, actor, "deleted", "", batch)

	return nil
}

func (s *ReassortService) checkTarget(ctx context.Context, target *uint) error {
	if target == nil {
		return nil
	}
	if _, err := s.nodes.FindByID(ctx, *target); err != nil {
		return fmt.Errorf("s.nodes.FindByID -> %w", err)
	}

	return nil
}

func (s *ReassortService) auditItem(ctx context.Context, actor domain.User, verb string, item domain.ReassortItem) {
	entry := actorEntry(actor, domain.AuditReassortItem)
	entry.Details = fmt.Sprintf("%s #%d %s", verb, item.ID, item.Name)
	recordAudit(ctx, s.audit, entry)
}

func (s *ReassortService) auditBatch(ctx context.Context, actor domain.User, verb, itemName string, batch domain.ReassortBatch) {
	entry := actorEntry(actor, domain.AuditReassortBatch)
	entry.Details = fmt.Sprintf("%s #%d of article #%d: %d", verb, batch.ID, batch.ItemID, batch.Quantity)
	if itemName != "" {
		entry.Details += " " + itemName
	}
	recordAudit(ctx, s.audit, entry)
}

func checkNote(note string) error {
	if utf8.RuneCountInString(note) > maxNoteLength {
		return fmt.Errorf("%w: note is longer than %d characters", ErrInvalidInput, maxNoteLength)
	}

	return nil
}

func checkBatch(b domain.ReassortBatch) error {
	if b.Quantity < 0 {
		return fmt.Errorf("%w: batch quantity must be zero or more", ErrInvalidInput)
	}
	if utf8.RuneCountInString(b.Lot) > domain.MaxNameLength {
		return fmt.Errorf("%w: lot is longer than %d characters", ErrInvalidInput, domain.MaxNameLength)
	}

	return checkNote(b.Note)
}
