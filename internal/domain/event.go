package domain

import "time"

type EventStatus string

const (
	EventOpen   EventStatus = "OPEN"
	EventClosed EventStatus = "CLOSED"
)

func (s EventStatus) Valid() bool {
	return s == EventOpen || s == EventClosed
}

type Event struct {
	ID          uint        `json:"id"`
	Title       string      `json:"title"`
	Date        time.Time   `json:"date"`
	Status      EventStatus `json:"status"`
	RootIDs     []uint      `json:"root_ids"`
	CreatedByID uint        `json:"created_by_id"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (e Event) IsOpen() bool {
	return e.Status == EventOpen
}

type ShareLink struct {
	ID        uint      `json:"id"`
	EventID   uint      `json:"event_id"`
	Token     string    `json:"token"`
	Active    bool      `json:"active"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Usable reports whether the link can still be used at the given time.
func (l ShareLink) Usable(now time.Time) bool {
	return l.Active && now.Before(l.ExpiresAt)
}

type AuditEntry struct {
	ID        uint      `json:"id"`
	EventID   *uint     `json:"event_id,omitempty"`
	UserID    *uint     `json:"user_id,omitempty"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	AuditLogin           = "login"
	AuditLoginFailed     = "login_failed"
	AuditUserCreated     = "user_created"
	AuditUserUpdated     = "user_updated"
	AuditNodeCreated     = "node_created"
	AuditNodeUpdated     = "node_updated"
	AuditNodeDeleted     = "node_deleted"
	AuditNodeDuplicated  = "node_duplicated"
	AuditTemplateApplied = "template_applied"
	AuditEventCreated    = "event_created"
	AuditEventStatus     = "event_status"
	AuditShareLink       = "share_link"
	AuditItemVerified    = "item_verified"
	AuditParentLoaded    = "parent_loaded"
	AuditExpiryAdded     = "expiry_added"
	AuditExpiryDeleted   = "expiry_deleted"
	AuditPeriodicCheck   = "periodic_check"
	AuditPeriodicReset   = "periodic_reset"
	AuditReassortItem    = "reassort_item"
	AuditReassortBatch   = "reassort_batch"
	AuditReplaced        = "reassort_replaced"
)
