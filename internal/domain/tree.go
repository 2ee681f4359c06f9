package domain

import (
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// TreeNode is a stock node decorated with the verification state of one event.
type TreeNode struct {
	ID         uint       `json:"id"`
	Name       string     `json:"name"`
	Type       NodeType   `json:"type"`
	Level      int        `json:"level"`
	Quantity   *int       `json:"quantity,omitempty"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`

	Status       VerificationStatus `json:"status,omitempty"`
	LastBy       string             `json:"last_by,omitempty"`
	LastAt       *time.Time         `json:"last_at,omitempty"`
	LastQuantity *int               `json:"last_quantity,omitempty"`
	LastComment  string             `json:"last_comment,omitempty"`

	TotalItems   int    `json:"total_items"`
	OKCount      int    `json:"ok_count"`
	NotOKCount   int    `json:"not_ok_count"`
	PendingCount int    `json:"pending_count"`
	Loaded       bool   `json:"loaded"`
	VehicleName  string `json:"vehicle_name,omitempty"`
	LoadedBy     string `json:"loaded_by,omitempty"`

	Complete bool        `json:"complete"`
	Children []*TreeNode `json:"children,omitempty"`
}

func (n *TreeNode) IsGroup() bool {
	return n.Type == NodeGroup
}

type Progress struct {
	TotalItems int  `json:"total_items"`
	OK         int  `json:"ok"`
	NotOK      int  `json:"not_ok"`
	Pending    int  `json:"pending"`
	Percent    int  `json:"percent"`
	Complete   bool `json:"complete"`
}

// EventTree is the aggregated status of an event: the selected subtrees with
// per-item state and per-group completeness.
type EventTree struct {
	EventID     uint        `json:"event_id"`
	Status      EventStatus `json:"status"`
	Roots       []*TreeNode `json:"roots"`
	Progress    Progress    `json:"progress"`
	Busy        []string    `json:"busy"`
	GeneratedAt time.Time   `json:"generated_at"`
}

type TreeInput struct {
	Event  Event
	Nodes  []StockNode
	Latest map[uint]Verification
	Loads  map[uint]ParentLoadState
}

// BuildEventTree walks the selected subtrees once. An item is complete when its
// latest verification is OK; a group is complete when all of its children are.
// A group without children is complete.
func BuildEventTree(in TreeInput) EventTree {
	byID := make(map[uint]StockNode, len(in.Nodes))
	children := make(map[uint][]StockNode)
	for _, n := range in.Nodes {
		byID[n.ID] = n
		if n.ParentID != nil {
			children[*n.ParentID] = append(children[*n.ParentID], n)
		}
	}
	for parentID := range children {
		SortNodes(children[parentID])
	}

	b := treeBuilder{
		children: children,
		latest:   in.Latest,
		loads:    in.Loads,
		visited:  make(map[uint]bool, len(in.Nodes)),
	}

	tree := EventTree{
		EventID: in.Event.ID,
		Status:  in.Event.Status,
		Roots:   []*TreeNode{},
		Busy:    []string{},
	}

	complete := true
	for _, rootID := range in.Event.RootIDs {
		root, ok := byID[rootID]
		if !ok || b.visited[rootID] {
			continue
		}

		node := b.build(root, 1)
		tree.Roots = append(tree.Roots, node)
		tree.Progress.TotalItems += node.TotalItems
		tree.Progress.OK += node.OKCount
		tree.Progress.NotOK += node.NotOKCount
		tree.Progress.Pending += node.PendingCount
		complete = complete && node.Complete
	}

	tree.Progress.Complete = complete && len(tree.Roots) > 0
	if tree.Progress.TotalItems > 0 {
		tree.Progress.Percent = tree.Progress.OK * 100 / tree.Progress.TotalItems
	}

	return tree
}

type treeBuilder struct {
	children map[uint][]StockNode
	latest   map[uint]Verification
	loads    map[uint]ParentLoadState
	visited  map[uint]bool
}

func (b *treeBuilder) build(n StockNode, depth int) *TreeNode {
	b.visited[n.ID] = true

	node := &TreeNode{
		ID:         n.ID,
		Name:       n.Name,
		Type:       n.Type,
		Level:      n.Level,
		Quantity:   n.Quantity,
		ExpiryDate: n.ExpiryDate,
	}

	if n.Type == NodeItem {
		node.Status = StatusPending
		if rec, ok := b.latest[n.ID]; ok {
			at := rec.CreatedAt
			node.Status = rec.Status
			node.LastBy = rec.VerifierName
			node.LastAt = &at
			node.LastQuantity = rec.Quantity
			node.LastComment = rec.Comment
		}

		node.TotalItems = 1
		switch node.Status {
		case StatusOK:
			node.OKCount = 1
		case StatusNotOK:
			node.NotOKCount = 1
		default:
			node.PendingCount = 1
		}
		node.Complete = node.Status == StatusOK

		return node
	}

	if state, ok := b.loads[n.ID]; ok {
		node.Loaded = state.Loaded
		node.VehicleName = state.VehicleName
		node.LoadedBy = state.UpdatedBy
	}

	node.Complete = true
	if depth >= MaxLevel*2 {
		// Corrupted hierarchy, stop descending.
		return node
	}

	for _, c := range b.children[n.ID] {
		if b.visited[c.ID] {
			continue
		}

		child := b.build(c, depth+1)
		node.Children = append(node.Children, child)
		node.TotalItems += child.TotalItems
		node.OKCount += child.OKCount
		node.NotOKCount += child.NotOKCount
		node.PendingCount += child.PendingCount
		node.Complete = node.Complete && child.Complete
	}

	return node
}

// Find returns the node with the given id, or nil.
func (t EventTree) Find(id uint) *TreeNode {
	var found *TreeNode
	t.Walk(func(n *TreeNode, _ []*TreeNode) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})

	return found
}

// Walk visits nodes depth-first in display order. Returning false stops the walk.
func (t EventTree) Walk(fn func(n *TreeNode, ancestors []*TreeNode) bool) {
	var visit func(n *TreeNode, ancestors []*TreeNode) bool
	visit = func(n *TreeNode, ancestors []*TreeNode) bool {
		if !fn(n, ancestors) {
			return false
		}
		path := append(ancestors[:len(ancestors):len(ancestors)], n)
		for _, c := range n.Children {
			if !visit(c, path) {
				return false
			}
		}
		return true
	}

	for _, root := range t.Roots {
		if !visit(root, nil) {
			return
		}
	}
}

// SortNodes orders siblings groups first, then by name ignoring case and accents.
func SortNodes(nodes []StockNode) {
	c := collate.New(language.French, collate.IgnoreCase, collate.IgnoreDiacritics)
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Type != nodes[j].Type {
			return nodes[i].Type == NodeGroup
		}
		if cmp := c.CompareString(nodes[i].Name, nodes[j].Name); cmp != 0 {
			return cmp < 0
		}
		return nodes[i].ID < nodes[j].ID
	})
}
