package request

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/pcprep/pcprep-api/internal/domain"
)

var verificationStatuses = []interface{}{
	string(domain.StatusOK),
	string(domain.StatusNotOK),
	string(domain.StatusPending),
}

type CreateEventRequest struct {
	Title   string `json:"title"`
	Date    string `json:"date" format:"YYYY-MM-DD"`
	RootIDs []uint `json:"root_ids"`
}

func (req *CreateEventRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Title, validation.Required, validation.RuneLength(1, 200)),
		validation.Field(&req.Date, validation.Required, validation.Date(dateLayout)),
		validation.Field(&req.RootIDs, validation.Required, validation.Each(validation.Required)),
	)
}

func (req *CreateEventRequest) ParsedDate() time.Time {
	date, _ := time.Parse(dateLayout, req.Date)
	return date
}

type UpdateEventStatusRequest struct {
	Status string `json:"status"`
}

func (req *UpdateEventStatusRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Status, validation.Required, validation.In(string(domain.EventOpen), string(domain.EventClosed))),
	)
}

type VerifyRequest struct {
	NodeID   uint   `json:"node_id"`
	Status   string `json:"status"`
	Quantity *int   `json:"quantity,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

func (req *VerifyRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.NodeID, validation.Required),
		validation.Field(&req.Status, validation.Required, validation.In(verificationStatuses...)),
		validation.Field(&req.Quantity, validation.Min(0)),
		validation.Field(&req.Comment, validation.RuneLength(0, 500)),
	)
}

type PublicVerifyRequest struct {
	VerifyRequest
	VerifierName string `json:"verifier_name"`
}

func (req *PublicVerifyRequest) Validate() error {
	if err := req.VerifyRequest.Validate(); err != nil {
		return err
	}

	return validation.ValidateStruct(
		req,
		validation.Field(&req.VerifierName, validation.Required, validation.RuneLength(1, 80)),
	)
}

type ParentStatusRequest struct {
	NodeID      uint   `json:"node_id"`
	Loaded      bool   `json:"loaded"`
	VehicleName string `json:"vehicle_name,omitempty"`
}

func (req *ParentStatusRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.NodeID, validation.Required),
		validation.Field(&req.VehicleName, validation.RuneLength(0, 80)),
	)
}

type PublicParentStatusRequest struct {
	ParentStatusRequest
	VerifierName string `json:"verifier_name"`
}

func (req *PublicParentStatusRequest) Validate() error {
	if err := req.ParentStatusRequest.Validate(); err != nil {
		return err
	}

	return validation.ValidateStruct(
		req,
		validation.Field(&req.VerifierName, validation.Required, validation.RuneLength(1, 80)),
	)
}
