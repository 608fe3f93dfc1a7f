// Package constants defines application-wide constants for timeouts, limits, and durations.
package constants

import "time"

// Time-related constants
const (
	// DefaultTimeout is the default timeout for most operations
	DefaultTimeout = 30 * time.Second

	// WebSocketPingInterval is the interval for WebSocket ping/pong
	WebSocketPingInterval = 60 * time.Second

	// GracefulShutdownTimeout is the timeout for graceful server shutdown
	GracefulShutdownTimeout = 30 * time.Second
)

// Presence constants
const (
	// StalePresenceThreshold is how long a user may stay silent before the
	// sweep demotes them to offline
	StalePresenceThreshold = 10 * time.Minute

	// PresenceSweepInterval is how often the stale-presence sweep runs
	PresenceSweepInterval = 5 * time.Minute

	// ActivityRefreshInterval is how often the activity-status updater runs
	ActivityRefreshInterval = 1 * time.Minute

	// AwayThreshold is how long an online user may idle before the activity
	// updater demotes them to away
	AwayThreshold = 5 * time.Minute
)

// Pagination constants
const (
	// DefaultPageSize is the default number of items per page
	DefaultPageSize = 20

	// MaxPageSize is the maximum number of items per page
	MaxPageSize = 100
)

// Message constants
const (
	// MaxMessageLength is the maximum allowed message length
	MaxMessageLength = 10000

	// MaxAttachmentSize is the maximum allowed attachment size in bytes (25MB)
	MaxAttachmentSize = 25 * 1024 * 1024
)

// Realtime topic prefixes
const (
	// RoomTopicPrefix scopes events to a single room's subscribers
	RoomTopicPrefix = "chat_room_"

	// GlobalTopic carries events broadcast to all connected users
	GlobalTopic = "chat_global"
)
