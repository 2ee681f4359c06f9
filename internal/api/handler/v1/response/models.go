package response

import (
	"time"

	"github.com/pcprep/pcprep-api/internal/domain"
)

type LoginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type ShareLinkResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EventTreeResponse is the payload of the tree endpoints and of public pages.
type EventTreeResponse struct {
	Event domain.Event     `json:"event"`
	Tree  domain.EventTree `json:"tree"`
}

type VerifyResponse struct {
	Verification domain.Verification `json:"verification"`
	Tree         domain.EventTree    `json:"tree"`
}

type ParentStatusResponse struct {
	State domain.ParentLoadState `json:"state"`
	Tree  domain.EventTree       `json:"tree"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// ResetResponse counts the items put back to TODO.
type ResetResponse struct {
	Reset int `json:"reset"`
}
