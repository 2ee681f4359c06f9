package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/repository/dao"
)

var (
	ErrNodeNotFound   = dao.ErrNodeNotFound
	ErrExpiryNotFound = dao.ErrExpiryNotFound
)

type StockDAO interface {
	Insert(ctx context.Context, node dao.StockNode) (dao.StockNode, error)
	FindByID(ctx context.Context, id uint) (dao.StockNode, error)
	FindByIDs(ctx context.Context, ids []uint) ([]dao.StockNode, error)
	FindRoots(ctx context.Context) ([]dao.StockNode, error)
	FindSubtrees(ctx context.Context, rootIDs []uint) ([]dao.StockNode, error)
	FindAll(ctx context.Context) ([]dao.StockNode, error)
	FindExpiringBefore(ctx context.Context, before time.Time) ([]dao.StockNode, error)
	Update(ctx context.Context, node dao.StockNode, descendantIDs []uint, levelDelta int) (dao.StockNode, error)
	DeleteSubtree(ctx context.Context, ids []uint) error
	FindExpiries(ctx context.Context, nodeIDs []uint) ([]dao.ItemExpiry, error)
	InsertExpiry(ctx context.Context, row dao.ItemExpiry) (dao.ItemExpiry, error)
	DeleteExpiry(ctx context.Context, nodeID, expiryID uint) error
}

type StockRepository struct {
	dao StockDAO
}

func NewStockRepository(dao StockDAO) *StockRepository {
	return &StockRepository{
		dao: dao,
	}
}

// Create inserts node and its nested Children.
func (r *StockRepository) Create(ctx context.Context, node domain.StockNode) (domain.StockNode, error) {
	created, err := r.dao.Insert(ctx, r.domainToDao(node))
	if err != nil {
		return domain.StockNode{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *StockRepository) FindByID(ctx context.Context, id uint) (domain.StockNode, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.StockNode{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *StockRepository) FindByIDs(ctx context.Context, ids []uint) ([]domain.StockNode, error) {
	found, err := r.dao.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByIDs -> %w", err)
	}

	return r.daosToDomain(found), nil
}

func (r *StockRepository) FindRoots(ctx context.Context) ([]domain.StockNode, error) {
	found, err := r.dao.FindRoots(ctx)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindRoots -> %w", err)
	}

	return r.daosToDomain(found), nil
}

// FindSubtrees returns the flat list of the given nodes and their descendants.
func (r *StockRepository) FindSubtrees(ctx context.Context, rootIDs []uint) ([]domain.StockNode, error) {
	found, err := r.dao.FindSubtrees(ctx, rootIDs)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindSubtrees -> %w", err)
	}

	return r.daosToDomain(found), nil
}

func (r *StockRepository) FindAll(ctx context.Context) ([]domain.StockNode, error) {
	found, err := r.dao.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindAll -> %w", err)
	}

	return r.daosToDomain(found), nil
}

func (r *StockRepository) FindExpiringBefore(ctx context.Context, before time.Time) ([]domain.StockNode, error) {
	found, err := r.dao.FindExpiringBefore(ctx, before)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindExpiringBefore -> %w", err)
	}

	return r.daosToDomain(found), nil
}

func (r *StockRepository) Update(ctx context.Context, node domain.StockNode, descendantIDs []uint, levelDelta int) (domain.StockNode, error) {
	node.Children = nil
	updated, err := r.dao.Update(ctx, r.domainToDao(node), descendantIDs, levelDelta)
	if err != nil {
		return domain.StockNode{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return r.daoToDomain(updated), nil
}

func (r *StockRepository) DeleteSubtree(ctx context.Context, ids []uint) error {
	if err := r.dao.DeleteSubtree(ctx, ids); err != nil {
		return fmt.Errorf("r.dao.DeleteSubtree -> %w", err)
	}

	return nil
}

func (r *StockRepository) domainToDao(n domain.StockNode) dao.StockNode {
	node := dao.StockNode{
		ID:         n.ID,
		Name:       n.Name,
		Type:       string(n.Type),
		Quantity:   n.Quantity,
		ExpiryDate: n.ExpiryDate,
		ParentID:   n.ParentID,
		Level:      n.Level,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
	}
	for _, c := range n.Children {
		node.Children = append(node.Children, r.domainToDao(c))
	}

	return node
}

func (r *StockRepository) daoToDomain(n dao.StockNode) domain.StockNode {
	node := domain.StockNode{
		ID:         n.ID,
		Name:       n.Name,
		Type:       domain.NodeType(n.Type),
		Quantity:   n.Quantity,
		ExpiryDate: n.ExpiryDate,
		ParentID:   n.ParentID,
		Level:      n.Level,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
	}
	for _, c := range n.Children {
		node.Children = append(node.Children, r.daoToDomain(c))
	}

	return node
}

func (r *StockRepository) daosToDomain(nodes []dao.StockNode) []domain.StockNode {
	out := make([]domain.StockNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, r.daoToDomain(n))
	}

	return out
}
