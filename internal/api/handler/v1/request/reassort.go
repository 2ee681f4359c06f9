package request

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/pcprep/pcprep-api/internal/domain"
)

type CreateReassortItemRequest struct {
	Name         string `json:"name"`
	Note         string `json:"note,omitempty"`
	TargetNodeID *uint  `json:"target_node_id,omitempty"`
}

func (req *CreateReassortItemRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required, validation.RuneLength(1, 120)),
		validation.Field(&req.Note, validation.RuneLength(0, 500)),
		validation.Field(&req.TargetNodeID, validation.Min(uint(1))),
	)
}

func (req *CreateReassortItemRequest) ToDomain() domain.ReassortItem {
	return domain.ReassortItem{
		Name:         req.Name,
		Note:         req.Note,
		TargetNodeID: req.TargetNodeID,
	}
}

// UpdateReassortItemRequest is a partial update. A target_node_id of 0 removes
// the target.
type UpdateReassortItemRequest struct {
	Name         *string `json:"name,omitempty"`
	Note         *string `json:"note,omitempty"`
	TargetNodeID *uint   `json:"target_node_id,omitempty"`
}

func (req *UpdateReassortItemRequest) Validate() error {
	if req.Name == nil && req.Note == nil && req.TargetNodeID == nil {
		return errEmptyPatch
	}

	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.RuneLength(1, 120)),
		validation.Field(&req.Note, validation.RuneLength(0, 500)),
	)
}

func (req *UpdateReassortItemRequest) ToPatch() domain.ReassortItemPatch {
	patch := domain.ReassortItemPatch{
		Name: req.Name,
		Note: req.Note,
	}
	if req.TargetNodeID != nil {
		if *req.TargetNodeID == 0 {
			patch.ClearTarget = true
		} else {
			patch.TargetNodeID = req.TargetNodeID
		}
	}

	return patch
}

type CreateBatchRequest struct {
	Quantity   *int   `json:"quantity"`
	ExpiryDate string `json:"expiry_date,omitempty" format:"YYYY-MM-DD"`
	Lot        string `json:"lot,omitempty"`
	Note       string `json:"note,omitempty"`
}

func (req *CreateBatchRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Quantity, validation.NotNil, validation.Min(0)),
		validation.Field(&req.ExpiryDate, validation.Date(dateLayout)),
		validation.Field(&req.Lot, validation.RuneLength(0, 120)),
		validation.Field(&req.Note, validation.RuneLength(0, 500)),
	)
}

func (req *CreateBatchRequest) ToDomain() domain.ReassortBatch {
	batch := domain.ReassortBatch{
		Lot:  req.Lot,
		Note: req.Note,
	}
	if req.Quantity != nil {
		batch.Quantity = *req.Quantity
	}
	if req.ExpiryDate != "" {
		if expiry, err := time.Parse(dateLayout, req.ExpiryDate); err == nil {
			batch.ExpiryDate = &expiry
		}
	}

	return batch
}

// UpdateBatchRequest is a partial update. An empty expiry_date clears the date.
type UpdateBatchRequest struct {
	Quantity   *int    `json:"quantity,omitempty"`
	ExpiryDate *string `json:"expiry_date,omitempty" format:"YYYY-MM-DD"`
	Lot        *string `json:"lot,omitempty"`
	Note       *string `json:"note,omitempty"`
}

func (req *UpdateBatchRequest) Validate() error {
	if req.Quantity == nil && req.ExpiryDate == nil && req.Lot == nil && req.Note == nil {
		return errEmptyPatch
	}

	return validation.ValidateStruct(
		req,
		validation.Field(&req.Quantity, validation.Min(0)),
		validation.Field(&req.ExpiryDate, validation.Date(dateLayout)),
		validation.Field(&req.Lot, validation.RuneLength(0, 120)),
		validation.Field(&req.Note, validation.RuneLength(0, 500)),
	)
}

func (req *UpdateBatchRequest) ToPatch() (domain.ReassortBatchPatch, error) {
	patch := domain.ReassortBatchPatch{
		Quantity: req.Quantity,
		Lot:      req.Lot,
		Note:     req.Note,
	}

	if req.ExpiryDate != nil {
		if *req.ExpiryDate == "" {
			patch.ClearExpiry = true
		} else {
			expiry, err := time.Parse(dateLayout, *req.ExpiryDate)
			if err != nil {
				return domain.ReassortBatchPatch{}, fmt.Errorf("expiry_date: %w", err)
			}
			patch.ExpiryDate = &expiry
		}
	}

	return patch, nil
}
