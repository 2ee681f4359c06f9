package domain

import (
	"sort"
	"time"
)

// ItemExpiry is one dated lot of an item. An item may hold several lots with
// different expiry dates; its ExpiryDate mirrors the earliest one.
type ItemExpiry struct {
	ID        uint      `json:"id"`
	NodeID    uint      `json:"node_id"`
	Date      time.Time `json:"date"`
	Quantity  *int      `json:"quantity,omitempty"`
	Lot       string    `json:"lot,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SortExpiries orders lots by date, then by id.
func SortExpiries(expiries []ItemExpiry) {
	sort.SliceStable(expiries, func(i, j int) bool {
		if !expiries[i].Date.Equal(expiries[j].Date) {
			return expiries[i].Date.Before(expiries[j].Date)
		}
		return expiries[i].ID < expiries[j].ID
	})
}

// EarliestExpiry returns the first date of the lots, or nil without lots.
func EarliestExpiry(expiries []ItemExpiry) *time.Time {
	var earliest *time.Time
	for i := range expiries {
		if earliest == nil || expiries[i].Date.Before(*earliest) {
			d := expiries[i].Date
			earliest = &d
		}
	}

	return earliest
}
