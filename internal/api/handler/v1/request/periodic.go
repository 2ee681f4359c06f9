package request

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/pcprep/pcprep-api/internal/domain"
)

type AddExpiryRequest struct {
	Date     string `json:"date" format:"YYYY-MM-DD"`
	Quantity *int   `json:"quantity,omitempty"`
	Lot      string `json:"lot,omitempty"`
	Note     string `json:"note,omitempty"`
}

func (req *AddExpiryRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Date, validation.Required, validation.Date(dateLayout)),
		validation.Field(&req.Quantity, validation.Min(0)),
		validation.Field(&req.Lot, validation.RuneLength(0, 120)),
		validation.Field(&req.Note, validation.RuneLength(0, 500)),
	)
}

func (req *AddExpiryRequest) ToDomain() domain.ItemExpiry {
	date, _ := time.Parse(dateLayout, req.Date)

	return domain.ItemExpiry{
		Date:     date,
		Quantity: req.Quantity,
		Lot:      req.Lot,
		Note:     req.Note,
	}
}

// PeriodicCheckRequest records OK or NOT_OK for an item. Observed and missing
// quantities below zero are stored as zero.
type PeriodicCheckRequest struct {
	Status      string `json:"status"`
	Comment     string `json:"comment,omitempty"`
	IssueCode   string `json:"issue_code,omitempty"`
	ObservedQty *int   `json:"observed_qty,omitempty"`
	MissingQty  *int   `json:"missing_qty,omitempty"`
}

func (req *PeriodicCheckRequest) Validate() error {
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	req.IssueCode = strings.ToUpper(strings.TrimSpace(req.IssueCode))

	codes := make([]interface{}, 0, len(domain.IssueCodes))
	for _, c := range domain.IssueCodes {
		codes = append(codes, string(c))
	}

	return validation.ValidateStruct(
		req,
		validation.Field(&req.Status, validation.Required, validation.In(string(domain.PeriodicOK), string(domain.PeriodicNotOK))),
		validation.Field(&req.Comment, validation.RuneLength(0, 1000)),
		validation.Field(&req.IssueCode, validation.In(codes...)),
	)
}

func (req *PeriodicCheckRequest) ToDomain() domain.PeriodicCheck {
	return domain.PeriodicCheck{
		Status:      domain.PeriodicStatus(req.Status),
		Comment:     req.Comment,
		IssueCode:   domain.IssueCode(req.IssueCode),
		ObservedQty: req.ObservedQty,
		MissingQty:  req.MissingQty,
	}
}

// ReplaceRequest takes quantity units of a restocking batch. The lot removed
// from the item is named by expiry_id or else by expiry_date.
type ReplaceRequest struct {
	BatchID    uint   `json:"batch_id"`
	Quantity   int    `json:"quantity"`
	ExpiryID   *uint  `json:"expiry_id,omitempty"`
	ExpiryDate string `json:"expiry_date,omitempty" format:"YYYY-MM-DD"`
	Comment    string `json:"comment,omitempty"`
}

func (req *ReplaceRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.BatchID, validation.Required),
		validation.Field(&req.Quantity, validation.Required, validation.Min(1)),
		validation.Field(&req.ExpiryDate, validation.Date(dateLayout)),
		validation.Field(&req.Comment, validation.RuneLength(0, 500)),
	)
}

func (req *ReplaceRequest) ToInput() (domain.ReplaceInput, error) {
	in := domain.ReplaceInput{
		BatchID:  req.BatchID,
		Quantity: req.Quantity,
		ExpiryID: req.ExpiryID,
		Comment:  req.Comment,
	}
	if req.ExpiryDate != "" {
		date, err := time.Parse(dateLayout, req.ExpiryDate)
		if err != nil {
			return domain.ReplaceInput{}, fmt.Errorf("expiry_date: %w", err)
		}
		in.ExpiryDate = &date
	}

	return in, nil
}
