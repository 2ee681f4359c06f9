package repository

import (
	"context"
	"fmt"

	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/repository/dao"
)

type VerificationDAO interface {
	Insert(ctx context.Context, rec dao.Verification) (dao.Verification, error)
	FindByEvent(ctx context.Context, eventID uint) ([]dao.Verification, error)
	FindRecent(ctx context.Context, eventID uint, limit int) ([]dao.Verification, error)
	FindLoadStates(ctx context.Context, eventID uint) ([]dao.ParentLoadState, error)
	UpsertLoadState(ctx context.Context, state dao.ParentLoadState) (dao.ParentLoadState, error)
}

type VerificationRepository struct {
	dao VerificationDAO
}

func NewVerificationRepository(dao VerificationDAO) *VerificationRepository {
	return &VerificationRepository{
		dao: dao,
	}
}

func (r *VerificationRepository) Append(ctx context.Context, v domain.Verification) (domain.Verification, error) {
	created, err := r.dao.Insert(ctx, dao.Verification{
		EventID:      v.EventID,
		NodeID:       v.NodeID,
		Status:       string(v.Status),
		VerifierName: v.VerifierName,
		Quantity:     v.Quantity,
		Comment:      v.Comment,
		Source:       string(v.Source),
		CreatedAt:    v.CreatedAt,
	})
	if err != nil {
		return domain.Verification{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

// LatestByNode returns the displayed state of every verified item of the event.
func (r *VerificationRepository) LatestByNode(ctx context.Context, eventID uint) (map[uint]domain.Verification, error) {
	found, err := r.dao.FindByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByEvent -> %w", err)
	}

	records := make([]domain.Verification, 0, len(found))
	for _, v := range found {
		records = append(records, r.daoToDomain(v))
	}

	return domain.LatestByNode(records), nil
}

func (r *VerificationRepository) FindRecent(ctx context.Context, eventID uint, limit int) ([]domain.Verification, error) {
	found, err := r.dao.FindRecent(ctx, eventID, limit)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindRecent -> %w", err)
	}

	records := make([]domain.Verification, 0, len(found))
	for _, v := range found {
		records = append(records, r.daoToDomain(v))
	}

	return records, nil
}

func (r *VerificationRepository) LoadStates(ctx context.Context, eventID uint) (map[uint]domain.ParentLoadState, error) {
	found, err := r.dao.FindLoadStates(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindLoadStates -> %w", err)
	}

	states := make(map[uint]domain.ParentLoadState, len(found))
	for _, s := range found {
		states[s.NodeID] = r.loadStateDaoToDomain(s)
	}

	return states, nil
}

func (r *VerificationRepository) SaveLoadState(ctx context.Context, state domain.ParentLoadState) (domain.ParentLoadState, error) {
	saved, err := r.dao.UpsertLoadState(ctx, dao.ParentLoadState{
		EventID:     state.EventID,
		NodeID:      state.NodeID,
		Loaded:      state.Loaded,
		VehicleName: state.VehicleName,
		UpdatedBy:   state.UpdatedBy,
		UpdatedAt:   state.UpdatedAt,
	})
	if err != nil {
		return domain.ParentLoadState{}, fmt.Errorf("r.dao.UpsertLoadState -> %w", err)
	}

	return r.loadStateDaoToDomain(saved), nil
}

func (r *VerificationRepository) daoToDomain(v dao.Verification) domain.Verification {
	return domain.Verification{
		ID:           v.ID,
		EventID:      v.EventID,
		NodeID:       v.NodeID,
		Status:       domain.VerificationStatus(v.Status),
		VerifierName: v.VerifierName,
		Quantity:     v.Quantity,
		Comment:      v.Comment,
		Source:       domain.VerificationSource(v.Source),
		CreatedAt:    v.CreatedAt,
	}
}

func (r *VerificationRepository) loadStateDaoToDomain(s dao.ParentLoadState) domain.ParentLoadState {
	return domain.ParentLoadState{
		EventID:     s.EventID,
		NodeID:      s.NodeID,
		Loaded:      s.Loaded,
		VehicleName: s.VehicleName,
		UpdatedBy:   s.UpdatedBy,
		UpdatedAt:   s.UpdatedAt,
	}
}
