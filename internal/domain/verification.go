package domain

import "time"

type VerificationStatus string

const (
	StatusOK      VerificationStatus = "OK"
	StatusNotOK   VerificationStatus = "NOT_OK"
	StatusPending VerificationStatus = "PENDING"
)

func (s VerificationStatus) Valid() bool {
	return s == StatusOK || s == StatusNotOK || s == StatusPending
}

type VerificationSource string

const (
	SourceStaff  VerificationSource = "staff"
	SourcePublic VerificationSource = "public"
)

// Verification is one entry of the append-only ledger. The most recent entry
// for an (event, node) pair is the displayed state.
type Verification struct {
	ID           uint               `json:"id"`
	EventID      uint               `json:"event_id"`
	NodeID       uint               `json:"node_id"`
	Status       VerificationStatus `json:"status"`
	VerifierName string             `json:"verifier_name"`
	Quantity     *int               `json:"quantity,omitempty"`
	Comment      string             `json:"comment,omitempty"`
	Source       VerificationSource `json:"source"`
	CreatedAt    time.Time          `json:"created_at"`
}

// After reports whether v was recorded after other. Ties on the timestamp are
// broken by insertion order.
func (v Verification) After(other Verification) bool {
	if v.CreatedAt.Equal(other.CreatedAt) {
		return v.ID > other.ID
	}

	return v.CreatedAt.After(other.CreatedAt)
}

// LatestByNode keeps the most recent verification of every node.
func LatestByNode(records []Verification) map[uint]Verification {
	latest := make(map[uint]Verification, len(records))
	for _, rec := range records {
		if cur, ok := latest[rec.NodeID]; !ok || rec.After(cur) {
			latest[rec.NodeID] = rec
		}
	}

	return latest
}

type ParentLoadState struct {
	EventID     uint      `json:"event_id"`
	NodeID      uint      `json:"node_id"`
	Loaded      bool      `json:"loaded"`
	VehicleName string    `json:"vehicle_name,omitempty"`
	UpdatedBy   string    `json:"updated_by,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RecentVerification is a ledger entry decorated for activity feeds.
type RecentVerification struct {
	Verification
	ItemName   string `json:"item_name"`
	ParentName string `json:"parent_name,omitempty"`
}
