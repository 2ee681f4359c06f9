package domain

import "time"

type LiveMessageType string

const (
	LiveSnapshot     LiveMessageType = "snapshot"
	LiveItemVerified LiveMessageType = "item_verified"
	LiveParentLoaded LiveMessageType = "parent_loaded"
	LiveEventStatus  LiveMessageType = "event_status_changed"
)

// LiveMessage is pushed to the subscribers of an event room. Tree carries the
// aggregated status recomputed after the change.
type LiveMessage struct {
	Type    LiveMessageType `json:"type"`
	EventID uint            `json:"event_id"`
	NodeID  uint            `json:"node_id,omitempty"`
	Status  string          `json:"status,omitempty"`
	Loaded  *bool           `json:"loaded,omitempty"`
	By      string          `json:"by,omitempty"`
	At      time.Time       `json:"at"`
	Tree    *EventTree      `json:"tree,omitempty"`
}
