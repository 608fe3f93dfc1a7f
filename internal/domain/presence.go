package domain

import (
	"time"

	"github.com/google/uuid"
)

// PresenceStatus represents a user's chat availability
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusAway    PresenceStatus = "away"
	StatusBusy    PresenceStatus = "busy"
	StatusOffline PresenceStatus = "offline"
)

// ValidPresenceStatus reports whether s is one of the known statuses
func ValidPresenceStatus(s PresenceStatus) bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy, StatusOffline:
		return true
	}
	return false
}

// PresenceRecord is the single source of truth for one user's chat presence.
// One row per user; updated in place, last writer wins.
type PresenceRecord struct {
	UserID       uuid.UUID      `json:"user_id"`
	FullName     string         `json:"full_name"` // cached display name
	Status       PresenceStatus `json:"status"`
	IsOnline     bool           `json:"is_online"` // derived: status == online, never set independently
	LastSeen     *time.Time     `json:"last_seen,omitempty"`
	LastActivity time.Time      `json:"last_activity"`
	ActiveRoom   *uuid.UUID     `json:"active_room,omitempty"`
	TypingInRoom *uuid.UUID     `json:"typing_in_room,omitempty"`
}

// DeriveOnline recomputes IsOnline from Status
func (p *PresenceRecord) DeriveOnline() {
	p.IsOnline = p.Status == StatusOnline
}
