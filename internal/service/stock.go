package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/juju/clock"
	"golang.org/x/text/unicode/norm"

	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/seed"
)

const copySuffix = " (copie)"

type StockRepository interface {
	Create(ctx context.Context, node domain.StockNode) (domain.StockNode, error)
	FindByID(ctx context.Context, id uint) (domain.StockNode, error)
	FindByIDs(ctx context.Context, ids []uint) ([]domain.StockNode, error)
	FindRoots(ctx context.Context) ([]domain.StockNode, error)
	FindSubtrees(ctx context.Context, rootIDs []uint) ([]domain.StockNode, error)
	FindAll(ctx context.Context) ([]domain.StockNode, error)
	FindExpiringBefore(ctx context.Context, before time.Time) ([]domain.StockNode, error)
	Update(ctx context.Context, node domain.StockNode, descendantIDs []uint, levelDelta int) (domain.StockNode, error)
	DeleteSubtree(ctx context.Context, ids []uint) error
	FindExpiries(ctx context.Context, nodeIDs []uint) (map[uint][]domain.ItemExpiry, error)
	AddExpiry(ctx context.Context, e domain.ItemExpiry) (domain.ItemExpiry, error)
	DeleteExpiry(ctx context.Context, nodeID, expiryID uint) error
}

type StockService struct {
	repo  StockRepository
	audit AuditRecorder
	clock clock.Clock
}

func NewStockService(repo StockRepository, audit AuditRecorder, clk clock.Clock) *StockService {
	return &StockService{
		repo:  repo,
		audit: audit,
		clock: clk,
	}
}

func (s *StockService) ListRoots(ctx context.Context) ([]domain.StockNode, error) {
	roots, err := s.repo.FindRoots(ctx)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindRoots -> %w", err)
	}
	domain.SortNodes(roots)

	return roots, nil
}

// GetTree returns the node with its descendants nested in display order.
func (s *StockService) GetTree(ctx context.Context, id uint) (domain.StockNode, error) {
	flat, err := s.repo.FindSubtrees(ctx, []uint{id})
	if err != nil {
		return domain.StockNode{}, fmt.Errorf("s.repo.FindSubtrees -> %w", err)
	}

	for _, n := range flat {
		if n.ID == id {
			return nest(n, childrenIndex(flat), 0), nil
		}
	}

	return domain.StockNode{}, ErrNodeNotFound
}

// Create adds node under parentID, or as a new root when parentID is nil.
func (s *StockService) Create(ctx context.Context, actor domain.User, parentID *uint, node domain.StockNode) (domain.StockNode, error) {
	node.ID = 0
	node.Children = nil
	node.Level = 1
	node.ParentID = nil

	if parentID != nil {
		parent, err := s.repo.FindByID(ctx, *parentID)
		if err != nil {
			return domain.StockNode{}, fmt.Errorf("s.repo.FindByID -> %w", err)
		}
		if !parent.IsGroup() {
			return domain.StockNode{}, fmt.Errorf("%w: items cannot have children", ErrInvalidTree)
		}
		if parent.Level >= domain.MaxLevel {
			return domain.StockNode{}, fmt.Errorf("%w: maximum depth is %d", ErrInvalidTree, domain.MaxLevel)
		}

		id := parent.ID
		node.ParentID = &id
		node.Level = parent.Level + 1
	}

	if err := normalizeNode(&node); err != nil {
		return domain.StockNode{}, err
	}

	created, err := s.repo.Create(ctx, node)
	if err != nil {
		return domain.StockNode{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	entry := actorEntry(actor, domain.AuditNodeCreated)
	entry.Details = fmt.Sprintf("#%d %s", created.ID, created.Name)
	recordAudit(ctx, s.audit, entry)

	return created, nil
}

// Update applies patch to a node. Moving a node moves its whole subtree; moves
// that create a cycle or exceed the maximum depth fail with ErrInvalidTree.
func (s *StockService) Update(ctx context.Context, actor domain.User, id uint, patch domain.StockNodePatch) (domain.StockNode, error) {
	subtree, err := s.repo.FindSubtrees(ctx, []uint{id})
	if err != nil {
		return domain.StockNode{}, fmt.Errorf("s.repo.FindSubtrees -> %w", err)
	}

	var node domain.StockNode
	inSubtree := make(map[uint]bool, len(subtree))
	for _, n := range subtree {
		inSubtree[n.ID] = true
		if n.ID == id {
			node = n
		}
	}
	if node.ID == 0 {
		return domain.StockNode{}, ErrNodeNotFound
	}

	if patch.Name != nil {
		node.Name = *patch.Name
	}
	if patch.Quantity != nil {
		if node.IsGroup() {
			return domain.StockNode{}, fmt.Errorf("%w: groups have no quantity", ErrInvalidInput)
		}
		node.Quantity = patch.Quantity
	}
	if patch.ClearExpiry {
		node.ExpiryDate = nil
	} else if patch.ExpiryDate != nil {
		if node.IsGroup() {
			return domain.StockNode{}, fmt.Errorf("%w: groups have no expiry date", ErrInvalidInput)
		}
		node.ExpiryDate = patch.ExpiryDate
	}
	if err := normalizeNode(&node); err != nil {
		return domain.StockNode{}, err
	}

	var descendantIDs []uint
	levelDelta := 0
	if patch.ParentID != nil {
		newLevel := 1
		var newParent *uint

		if *patch.ParentID != 0 {
			if inSubtree[*patch.ParentID] {
				return domain.StockNode{}, fmt.Errorf("%w: a node cannot be moved under itself", ErrInvalidTree)
			}

			parent, err := s.repo.FindByID(ctx, *patch.ParentID)
			if err != nil {
				return domain.StockNode{}, fmt.Errorf("s.repo.FindByID -> %w", err)
			}
			if !parent.IsGroup() {
				return domain.StockNode{}, fmt.Errorf("%w: items cannot have children", ErrInvalidTree)
			}

			pid := parent.ID
			newParent = &pid
			newLevel = parent.Level + 1
		}

		deepest := node.Level
		for _, n := range subtree {
			if n.Level > deepest {
				deepest = n.Level
			}
			if n.ID != node.ID {
				descendantIDs = append(descendantIDs, n.ID)
			}
		}

		levelDelta = newLevel - node.Level
		if deepest+levelDelta > domain.MaxLevel {
			return domain.StockNode{}, fmt.Errorf("%w: maximum depth is %d", ErrInvalidTree, domain.MaxLevel)
		}

		node.ParentID = newParent
		node.Level = newLevel
	}

	updated, err := s.repo.Update(ctx, node, descendantIDs, levelDelta)
	if err != nil {
		return domain.StockNode{}, fmt.Errorf("s.repo.Update -> %w", err)
	}

	entry := actorEntry(actor, domain.AuditNodeUpdated)
	entry.Details = fmt.Sprintf("#%d %s", updated.ID, updated.Name)
	recordAudit(ctx, s.audit, entry)

	return updated, nil
}

// Delete removes a node, its descendants and everything recorded against them.
func (s *StockService) Delete(ctx context.Context, actor domain.User, id uint) error {
	subtree, err := s.repo.FindSubtrees(ctx, []uint{id})
	if err != nil {
		return fmt.Errorf("s.repo.FindSubtrees -> %w", err)
	}
	if len(subtree) == 0 {
		return ErrNodeNotFound
	}

	ids := make([]uint, 0, len(subtree))
	name := ""
	for _, n := range subtree {
		ids = append(ids, n.ID)
		if n.ID == id {
			name = n.Name
		}
	}

	if err := s.repo.DeleteSubtree(ctx, ids); err != nil {
		return fmt.Errorf("s.repo.DeleteSubtree -> %w", err)
	}

	entry := actorEntry(actor, domain.AuditNodeDeleted)
	entry.Details = fmt.Sprintf("#%d %s (%d nodes)", id, name, len(ids))
	recordAudit(ctx, s.audit, entry)

	return nil
}

// Duplicate deep-copies a subtree next to the original.
func (s *StockService) Duplicate(ctx context.Context, actor domain.User, id uint) (domain.StockNode, error) {
	tree, err := s.GetTree(ctx, id)
	if err != nil {
		return domain.StockNode{}, err
	}

	dup := cloneNode(tree)
	dup.ParentID = tree.ParentID
	dup.Name = domain.TruncateName(tree.Name, copySuffix)

	created, err := s.repo.Create(ctx, dup)
	if err != nil {
		return domain.StockNode{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	entry := actorEntry(actor, domain.AuditNodeDuplicated)
	entry.Details = fmt.Sprintf("#%d -> #%d", id, created.ID)
	recordAudit(ctx, s.audit, entry)

	return created, nil
}

// Expiring lists items whose expiry date falls within the next days, including
// everything already expired.
func (s *StockService) Expiring(ctx context.Context, days int) ([]domain.ExpiringItem, error) {
	now := s.clock.Now()
	before := now.AddDate(0, 0, days)

	nodes, err := s.repo.FindExpiringBefore(ctx, before)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindExpiringBefore -> %w", err)
	}
	if len(nodes) == 0 {
		return []domain.ExpiringItem{}, nil
	}

	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindAll -> %w", err)
	}
	byID := make(map[uint]domain.StockNode, len(all))
	for _, n := range all {
		byID[n.ID] = n
	}

	items := make([]domain.ExpiringItem, 0, len(nodes))
	for _, n := range nodes {
		if n.IsGroup() || n.ExpiryDate == nil {
			continue
		}
		state, daysLeft := domain.ClassifyExpiry(*n.ExpiryDate, now)
		items = append(items, domain.ExpiringItem{
			Node:     n,
			Path:     domain.NodePath(n, byID),
			DaysLeft: daysLeft,
			State:    state,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DaysLeft < items[j].DaysLeft
	})

	return items, nil
}

// ImportTemplate creates a new stock root from a template.
func (s *StockService) ImportTemplate(ctx context.Context, actor domain.User, tpl seed.TemplateNode) (domain.StockNode, error) {
	node, err := tpl.StockNode(1)
	if err != nil {
		return domain.StockNode{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := normalizeTree(&node); err != nil {
		return domain.StockNode{}, err
	}

	created, err := s.repo.Create(ctx, node)
	if err != nil {
		return domain.StockNode{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	entry := actorEntry(actor, domain.AuditTemplateApplied)
	entry.Details = fmt.Sprintf("#%d %s", created.ID, created.Name)
	recordAudit(ctx, s.audit, entry)

	return created, nil
}

func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func normalizeNode(n *domain.StockNode) error {
	n.Name = normalizeName(n.Name)
	if err := checkName(n.Name); err != nil {
		return err
	}
	if !n.Type.Valid() {
		return fmt.Errorf("%w: unknown node type %q", ErrInvalidInput, n.Type)
	}

	if n.IsGroup() {
		n.Quantity = nil
		n.ExpiryDate = nil
		return nil
	}

	if len(n.Children) > 0 {
		return fmt.Errorf("%w: items cannot have children", ErrInvalidTree)
	}
	if n.Quantity == nil || *n.Quantity < 0 {
		return fmt.Errorf("%w: items need a quantity of zero or more", ErrInvalidInput)
	}

	return nil
}

func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > domain.MaxNameLength {
		return fmt.Errorf("%w: name is longer than %d characters", ErrInvalidInput, domain.MaxNameLength)
	}

	return nil
}

func normalizeTree(n *domain.StockNode) error {
	n.Name = normalizeName(n.Name)
	if err := checkName(n.Name); err != nil {
		return err
	}
	for i := range n.Children {
		if err := normalizeTree(&n.Children[i]); err != nil {
			return err
		}
	}

	return nil
}

func childrenIndex(flat []domain.StockNode) map[uint][]domain.StockNode {
	children := make(map[uint][]domain.StockNode)
	for _, n := range flat {
		if n.ParentID != nil {
			children[*n.ParentID] = append(children[*n.ParentID], n)
		}
	}
	for id := range children {
		domain.SortNodes(children[id])
	}

	return children
}

func nest(n domain.StockNode, children map[uint][]domain.StockNode, depth int) domain.StockNode {
	n.Children = nil
	if depth > domain.MaxLevel*2 {
		return n
	}

	for _, c := range children[n.ID] {
		n.Children = append(n.Children, nest(c, children, depth+1))
	}

	return n
}

func cloneNode(n domain.StockNode) domain.StockNode {
	out := domain.StockNode{
		Name:       n.Name,
		Type:       n.Type,
		Quantity:   n.Quantity,
		ExpiryDate: n.ExpiryDate,
		Level:      n.Level,
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, cloneNode(c))
	}

	return out
}
