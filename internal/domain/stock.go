package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

type NodeType string

const (
	NodeGroup NodeType = "GROUP"
	NodeItem  NodeType = "ITEM"
)

// MaxLevel is the deepest level a stock node may sit at. Roots are level 1.
const MaxLevel = 5

// MaxNameLength is the longest node name, in runes.
const MaxNameLength = 120

func (t NodeType) Valid() bool {
	return t == NodeGroup || t == NodeItem
}

type StockNode struct {
	ID         uint        `json:"id"`
	Name       string      `json:"name"`
	Type       NodeType    `json:"type"`
	Quantity   *int        `json:"quantity,omitempty"`
	ExpiryDate *time.Time  `json:"expiry_date,omitempty"`
	ParentID   *uint       `json:"parent_id,omitempty"`
	Level      int         `json:"level"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Children   []StockNode `json:"children,omitempty"`
}

func (n StockNode) IsGroup() bool {
	return n.Type == NodeGroup
}

func (n StockNode) IsRoot() bool {
	return n.ParentID == nil
}

// TruncateName cuts name so that name+suffix fits in MaxNameLength runes.
func TruncateName(name, suffix string) string {
	room := MaxNameLength - utf8.RuneCountInString(suffix)
	if room < 0 {
		room = 0
	}
	runes := []rune(name)
	if len(runes) > room {
		name = strings.TrimSpace(string(runes[:room]))
	}

	return name + suffix
}

// StockNodePatch carries the optional fields of a stock node update.
// A ParentID pointing at zero moves the node to the top level.
type StockNodePatch struct {
	Name        *string
	Quantity    *int
	ExpiryDate  *time.Time
	ClearExpiry bool
	ParentID    *uint
}

type ExpiryState string

const (
	ExpiryExpired ExpiryState = "EXPIRED"
	ExpirySoon    ExpiryState = "SOON"
	ExpiryOK      ExpiryState = "OK"
)

// SoonThreshold is how close an expiry date has to be to count as SOON.
const SoonThreshold = 30 * 24 * time.Hour

type ExpiringItem struct {
	Node     StockNode   `json:"node"`
	Path     string      `json:"path"`
	DaysLeft int         `json:"days_left"`
	State    ExpiryState `json:"state"`
}

const pathSeparator = " › "

// NodePath renders the names of a node's ancestors, outermost first.
func NodePath(node StockNode, byID map[uint]StockNode) string {
	var names []string
	seen := map[uint]bool{node.ID: true}
	for parentID := node.ParentID; parentID != nil; {
		parent, ok := byID[*parentID]
		if !ok || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		names = append([]string{parent.Name}, names...)
		parentID = parent.ParentID
	}

	return strings.Join(names, pathSeparator)
}

// ClassifyExpiry returns the expiry state of a date relative to now.
func ClassifyExpiry(expiry, now time.Time) (ExpiryState, int) {
	today := truncateDay(now)
	day := truncateDay(expiry)
	daysLeft := int(day.Sub(today).Hours() / 24)

	switch {
	case day.Before(today):
		return ExpiryExpired, daysLeft
	case day.Sub(today) <= SoonThreshold:
		return ExpirySoon, daysLeft
	default:
		return ExpiryOK, daysLeft
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
