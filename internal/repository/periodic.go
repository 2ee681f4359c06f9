package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/repository/dao"
)

type PeriodicDAO interface {
	Insert(ctx context.Context, rec dao.PeriodicRecord) (dao.PeriodicRecord, error)
	InsertMany(ctx context.Context, records []dao.PeriodicRecord) error
	FindByNodes(ctx context.Context, nodeIDs []uint) ([]dao.PeriodicRecord, error)
	FindRecentByNodes(ctx context.Context, nodeIDs []uint, limit int) ([]dao.PeriodicRecord, error)
	Replace(ctx context.Context, p dao.ReplaceParams) (dao.ReplaceOutcome, error)
}

type PeriodicRepository struct {
	dao PeriodicDAO
}

func NewPeriodicRepository(dao PeriodicDAO) *PeriodicRepository {
	return &PeriodicRepository{
		dao: dao,
	}
}

func (r *PeriodicRepository) Append(ctx context.Context, rec domain.PeriodicRecord) (domain.PeriodicRecord, error) {
	created, err := r.dao.Insert(ctx, periodicToDao(rec))
	if err != nil {
		return domain.PeriodicRecord{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return periodicToDomain(created), nil
}

func (r *PeriodicRepository) AppendMany(ctx context.Context, records []domain.PeriodicRecord) error {
	rows := make([]dao.PeriodicRecord, 0, len(records))
	for _, rec := range records {
		rows = append(rows, periodicToDao(rec))
	}

	if err := r.dao.InsertMany(ctx, rows); err != nil {
		return fmt.Errorf("r.dao.InsertMany -> %w", err)
	}

	return nil
}

// LatestByNode returns the current periodic state of every checked item.
func (r *PeriodicRepository) LatestByNode(ctx context.Context, nodeIDs []uint) (map[uint]domain.PeriodicRecord, error) {
	found, err := r.dao.FindByNodes(ctx, nodeIDs)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByNodes -> %w", err)
	}

	records := make([]domain.PeriodicRecord, 0, len(found))
	for _, row := range found {
		records = append(records, periodicToDomain(row))
	}

	return domain.LatestPeriodicByNode(records), nil
}

// Recent returns the newest records of the given items, newest first.
func (r *PeriodicRepository) Recent(ctx context.Context, nodeIDs []uint, limit int) ([]domain.PeriodicRecord, error) {
	found, err := r.dao.FindRecentByNodes(ctx, nodeIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindRecentByNodes -> %w", err)
	}

	records := make([]domain.PeriodicRecord, 0, len(found))
	for _, row := range found {
		records = append(records, periodicToDomain(row))
	}

	return records, nil
}

// ReplaceRequest moves units of a restocking batch into a stock item. The
// removed lot is picked by id, else by date.
type ReplaceRequest struct {
	NodeID     uint
	BatchID    uint
	Quantity   int
	ExpiryID   *uint
	ExpiryDate *time.Time
	Record     domain.PeriodicRecord
	Describe   func(domain.Replacement, string, string) string
}

func (r *PeriodicRepository) Replace(ctx context.Context, req ReplaceRequest) (domain.Replacement, error) {
	params := dao.ReplaceParams{
		NodeID:     req.NodeID,
		BatchID:    req.BatchID,
		Quantity:   req.Quantity,
		ExpiryID:   req.ExpiryID,
		ExpiryDate: req.ExpiryDate,
		Record:     periodicToDao(req.Record),
	}
	if req.Describe != nil {
		params.Describe = func(o dao.ReplaceOutcome) string {
			return req.Describe(outcomeToDomain(req, o), o.ItemName, o.Lot)
		}
	}

	out, err := r.dao.Replace(ctx, params)
	if err != nil {
		return domain.Replacement{}, fmt.Errorf("r.dao.Replace -> %w", err)
	}

	return outcomeToDomain(req, out), nil
}

func outcomeToDomain(req ReplaceRequest, o dao.ReplaceOutcome) domain.Replacement {
	return domain.Replacement{
		NodeID:         req.NodeID,
		BatchID:        req.BatchID,
		Quantity:       o.Used,
		NewExpiry:      o.NewExpiry,
		RemovedExpiry:  o.RemovedExpiry,
		RemainingBatch: o.Remaining,
		Record:         periodicToDomain(o.Record),
	}
}

func periodicToDao(rec domain.PeriodicRecord) dao.PeriodicRecord {
	return dao.PeriodicRecord{
		ID:           rec.ID,
		NodeID:       rec.NodeID,
		Status:       string(rec.Status),
		VerifierID:   rec.VerifierID,
		VerifierName: rec.VerifierName,
		Comment:      rec.Comment,
		IssueCode:    string(rec.IssueCode),
		ObservedQty:  rec.ObservedQty,
		MissingQty:   rec.MissingQty,
		CreatedAt:    rec.CreatedAt,
	}
}

func periodicToDomain(row dao.PeriodicRecord) domain.PeriodicRecord {
	return domain.PeriodicRecord{
		ID:           row.ID,
		NodeID:       row.NodeID,
		Status:       domain.PeriodicStatus(row.Status),
		VerifierID:   row.VerifierID,
		VerifierName: row.VerifierName,
		Comment:      row.Comment,
		IssueCode:    domain.IssueCode(row.IssueCode),
		ObservedQty:  row.ObservedQty,
		MissingQty:   row.MissingQty,
		CreatedAt:    row.CreatedAt,
	}
}
