package request

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/pcprep/pcprep-api/internal/domain"
)

const dateLayout = "2006-01-02"

var (
	errGroupQuantity = errors.New("groups cannot have a quantity or an expiry date")
)

type CreateNodeRequest struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Quantity   *int   `json:"quantity,omitempty"`
	ExpiryDate string `json:"expiry_date,omitempty" format:"YYYY-MM-DD"`
}

func (req *CreateNodeRequest) Validate() error {
	req.Type = strings.ToUpper(strings.TrimSpace(req.Type))

	quantityRules := []validation.Rule{validation.Min(0)}
	if req.Type == string(domain.NodeItem) {
		quantityRules = append(quantityRules, validation.NotNil)
	}

	err := validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required, validation.RuneLength(1, 120)),
		validation.Field(&req.Type, validation.Required, validation.In(string(domain.NodeGroup), string(domain.NodeItem))),
		validation.Field(&req.Quantity, quantityRules...),
		validation.Field(&req.ExpiryDate, validation.Date(dateLayout)),
	)
	if err != nil {
		return err
	}

	if req.Type == string(domain.NodeGroup) && (req.Quantity != nil || req.ExpiryDate != "") {
		return errGroupQuantity
	}

	return nil
}

func (req *CreateNodeRequest) ToDomain() domain.StockNode {
	node := domain.StockNode{
		Name:     req.Name,
		Type:     domain.NodeType(req.Type),
		Quantity: req.Quantity,
	}
	if req.ExpiryDate != "" {
		if expiry, err := time.Parse(dateLayout, req.ExpiryDate); err == nil {
			node.ExpiryDate = &expiry
		}
	}

	return node
}

// UpdateNodeRequest is a partial update. An empty expiry_date clears the date
// and a parent_id of 0 moves the node to the top level.
type UpdateNodeRequest struct {
	Name       *string `json:"name,omitempty"`
	Quantity   *int    `json:"quantity,omitempty"`
	ExpiryDate *string `json:"expiry_date,omitempty" format:"YYYY-MM-DD"`
	ParentID   *uint   `json:"parent_id,omitempty"`
}

func (req *UpdateNodeRequest) Validate() error {
	if req.Name == nil && req.Quantity == nil && req.ExpiryDate == nil && req.ParentID == nil {
		return errEmptyPatch
	}

	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.RuneLength(1, 120)),
		validation.Field(&req.Quantity, validation.Min(0)),
		validation.Field(&req.ExpiryDate, validation.Date(dateLayout)),
	)
}

func (req *UpdateNodeRequest) ToPatch() (domain.StockNodePatch, error) {
	patch := domain.StockNodePatch{
		Name:     req.Name,
		Quantity: req.Quantity,
		ParentID: req.ParentID,
	}

	if req.ExpiryDate != nil {
		if *req.ExpiryDate == "" {
			patch.ClearExpiry = true
		} else {
			expiry, err := time.Parse(dateLayout, *req.ExpiryDate)
			if err != nil {
				return domain.StockNodePatch{}, fmt.Errorf("expiry_date: %w", err)
			}
			patch.ExpiryDate = &expiry
		}
	}

	return patch, nil
}
