package domain

import "time"

// PeriodicStatus is the state of an item in a periodic stock check, outside
// of any event.
type PeriodicStatus string

const (
	PeriodicOK    PeriodicStatus = "OK"
	PeriodicNotOK PeriodicStatus = "NOT_OK"
	PeriodicTodo  PeriodicStatus = "TODO"
)

func (s PeriodicStatus) Valid() bool {
	return s == PeriodicOK || s == PeriodicNotOK || s == PeriodicTodo
}

type IssueCode string

const (
	IssueMissing  IssueCode = "MISSING"
	IssueExpired  IssueCode = "EXPIRED"
	IssueDamaged  IssueCode = "DAMAGED"
	IssueQuantity IssueCode = "QUANTITY"
	IssueOther    IssueCode = "OTHER"
)

var IssueCodes = []IssueCode{IssueMissing, IssueExpired, IssueDamaged, IssueQuantity, IssueOther}

func (c IssueCode) Valid() bool {
	for _, code := range IssueCodes {
		if c == code {
			return true
		}
	}

	return false
}

// PeriodicRecord is one entry of the periodic check ledger of a stock item.
// Like the event ledger it is append-only; a reset appends TODO entries.
type PeriodicRecord struct {
	ID           uint           `json:"id"`
	NodeID       uint           `json:"node_id"`
	Status       PeriodicStatus `json:"status"`
	VerifierID   *uint          `json:"verifier_id,omitempty"`
	VerifierName string         `json:"verifier_name"`
	Comment      string         `json:"comment,omitempty"`
	IssueCode    IssueCode      `json:"issue_code,omitempty"`
	ObservedQty  *int           `json:"observed_qty,omitempty"`
	MissingQty   *int           `json:"missing_qty,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (r PeriodicRecord) After(other PeriodicRecord) bool {
	if r.CreatedAt.Equal(other.CreatedAt) {
		return r.ID > other.ID
	}

	return r.CreatedAt.After(other.CreatedAt)
}

func LatestPeriodicByNode(records []PeriodicRecord) map[uint]PeriodicRecord {
	latest := make(map[uint]PeriodicRecord, len(records))
	for _, rec := range records {
		if cur, ok := latest[rec.NodeID]; !ok || rec.After(cur) {
			latest[rec.NodeID] = rec
		}
	}

	return latest
}

type NodeRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// PeriodicNode is a stock node decorated with its last periodic check.
type PeriodicNode struct {
	ID         uint       `json:"id"`
	Name       string     `json:"name"`
	Type       NodeType   `json:"type"`
	Quantity   *int       `json:"quantity,omitempty"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`

	Expiries    []ItemExpiry   `json:"expiries,omitempty"`
	LastStatus  PeriodicStatus `json:"last_status,omitempty"`
	LastBy      string         `json:"last_by,omitempty"`
	LastAt      *time.Time     `json:"last_at,omitempty"`
	Comment     string         `json:"comment,omitempty"`
	IssueCode   IssueCode      `json:"issue_code,omitempty"`
	ObservedQty *int           `json:"observed_qty,omitempty"`
	MissingQty  *int           `json:"missing_qty,omitempty"`

	Children []*PeriodicNode `json:"children,omitempty"`
}

type PeriodicStats struct {
	TotalItems int `json:"total_items"`
	OK         int `json:"ok"`
	NotOK      int `json:"not_ok"`
	Todo       int `json:"todo"`
	Percent    int `json:"percent"`
}

type PeriodicTree struct {
	Root  NodeRef       `json:"root"`
	Tree  *PeriodicNode `json:"tree"`
	Stats PeriodicStats `json:"stats"`
}

// PeriodicHistoryEntry is a ledger entry decorated with the item name.
type PeriodicHistoryEntry struct {
	PeriodicRecord
	NodeName string `json:"node_name"`
}

// BuildPeriodicTree nests the flat subtree of root and attaches the latest
// record and the lots of every item. Items never checked are TODO.
func BuildPeriodicTree(root StockNode, nodes []StockNode, latest map[uint]PeriodicRecord, expiries map[uint][]ItemExpiry) PeriodicTree {
	children := make(map[uint][]StockNode)
	for _, n := range nodes {
		if n.ParentID != nil {
			children[*n.ParentID] = append(children[*n.ParentID], n)
		}
	}
	for parentID := range children {
		SortNodes(children[parentID])
	}

	tree := PeriodicTree{Root: NodeRef{ID: root.ID, Name: root.Name}}
	visited := make(map[uint]bool, len(nodes))

	var build func(n StockNode) *PeriodicNode
	build = func(n StockNode) *PeriodicNode {
		visited[n.ID] = true
		out := &PeriodicNode{
			ID:       n.ID,
			Name:     n.Name,
			Type:     n.Type,
			Quantity: n.Quantity,
		}

		if !n.IsGroup() {
			lots := expiries[n.ID]
			SortExpiries(lots)
			out.Expiries = lots
			out.ExpiryDate = n.ExpiryDate
			if earliest := EarliestExpiry(lots); earliest != nil {
				out.ExpiryDate = earliest
			}

			out.LastStatus = PeriodicTodo
			if rec, ok := latest[n.ID]; ok {
				at := rec.CreatedAt
				out.LastStatus = rec.Status
				out.LastBy = rec.VerifierName
				out.LastAt = &at
				out.Comment = rec.Comment
				out.IssueCode = rec.IssueCode
				out.ObservedQty = rec.ObservedQty
				out.MissingQty = rec.MissingQty
			}

			tree.Stats.TotalItems++
			switch out.LastStatus {
			case PeriodicOK:
				tree.Stats.OK++
			case PeriodicNotOK:
				tree.Stats.NotOK++
			default:
				tree.Stats.Todo++
			}
			return out
		}

		for _, c := range children[n.ID] {
			if visited[c.ID] {
				continue
			}
			out.Children = append(out.Children, build(c))
		}
		return out
	}

	tree.Tree = build(root)
	if tree.Stats.TotalItems > 0 {
		tree.Stats.Percent = tree.Stats.OK * 100 / tree.Stats.TotalItems
	}

	return tree
}

// ItemIDs returns the ids of the items among nodes.
func ItemIDs(nodes []StockNode) []uint {
	ids := make([]uint, 0, len(nodes))
	for _, n := range nodes {
		if !n.IsGroup() {
			ids = append(ids, n.ID)
		}
	}

	return ids
}

// PeriodicRootSummary is the progress of the periodic check of one stock root.
type PeriodicRootSummary struct {
	ID    uint          `json:"id"`
	Name  string        `json:"name"`
	Stats PeriodicStats `json:"stats"`
}

// PeriodicCheck is the input of a periodic check of one item.
type PeriodicCheck struct {
	Status      PeriodicStatus
	Comment     string
	IssueCode   IssueCode
	ObservedQty *int
	MissingQty  *int
}
