package domain

import (
	"sort"
	"strings"
	"time"
)

// ReassortItem is a restocking article kept in reserve, optionally earmarked
// for one stock node.
type ReassortItem struct {
	ID             uint            `json:"id"`
	Name           string          `json:"name"`
	Note           string          `json:"note,omitempty"`
	TargetNodeID   *uint           `json:"target_node_id,omitempty"`
	TargetNodeName string          `json:"target_node_name,omitempty"`
	TotalQuantity  int             `json:"total_quantity"`
	Batches        []ReassortBatch `json:"batches"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type ReassortBatch struct {
	ID         uint       `json:"id"`
	ItemID     uint       `json:"item_id"`
	Quantity   int        `json:"quantity"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	Lot        string     `json:"lot,omitempty"`
	Note       string     `json:"note,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ReassortItemPatch carries the optional fields of an article update.
type ReassortItemPatch struct {
	Name         *string
	Note         *string
	TargetNodeID *uint
	ClearTarget  bool
}

type ReassortBatchPatch struct {
	Quantity    *int
	ExpiryDate  *time.Time
	ClearExpiry bool
	Lot         *string
	Note        *string
}

// SortBatches orders batches by expiry date, undated last, then by id.
func SortBatches(batches []ReassortBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		switch {
		case a.ExpiryDate == nil && b.ExpiryDate != nil:
			return false
		case a.ExpiryDate != nil && b.ExpiryDate == nil:
			return true
		case a.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
		return a.ID < b.ID
	})
}

// Total sums the quantities of the batches.
func (i *ReassortItem) Total() int {
	total := 0
	for _, b := range i.Batches {
		total += b.Quantity
	}

	return total
}

// ReassortOption is a batch that can replace the contents of a stock item.
type ReassortOption struct {
	BatchID    uint       `json:"batch_id"`
	ItemID     uint       `json:"item_id"`
	ItemName   string     `json:"item_name"`
	Quantity   int        `json:"quantity"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	Lot        string     `json:"lot,omitempty"`
	Note       string     `json:"note,omitempty"`
	Preferred  bool       `json:"preferred"`
}

// SortOptions puts the batches earmarked for the node first, then orders by
// article name, expiry date and id.
func SortOptions(options []ReassortOption) {
	sort.SliceStable(options, func(i, j int) bool {
		a, b := options[i], options[j]
		if a.Preferred != b.Preferred {
			return a.Preferred
		}
		if an, bn := strings.ToLower(a.ItemName), strings.ToLower(b.ItemName); an != bn {
			return an < bn
		}
		switch {
		case a.ExpiryDate == nil && b.ExpiryDate != nil:
			return false
		case a.ExpiryDate != nil && b.ExpiryDate == nil:
			return true
		case a.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
		return a.BatchID < b.BatchID
	})
}

// ReplaceInput picks the batch to take from and the lot of the item it
// replaces, by id or else by date.
type ReplaceInput struct {
	BatchID    uint
	Quantity   int
	ExpiryID   *uint
	ExpiryDate *time.Time
	Comment    string
}

// Replacement is the outcome of swapping the contents of an item for a
// restocking batch.
type Replacement struct {
	NodeID         uint           `json:"node_id"`
	BatchID        uint           `json:"batch_id"`
	Quantity       int            `json:"quantity"`
	NewExpiry      *time.Time     `json:"new_expiry,omitempty"`
	RemovedExpiry  *time.Time     `json:"removed_expiry,omitempty"`
	RemainingBatch int            `json:"remaining_batch"`
	Record         PeriodicRecord `json:"record"`
}
