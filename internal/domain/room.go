package domain

import (
	"time"

	"github.com/google/uuid"
)

// Room represents a named chat channel with a membership list
type Room struct {
	RoomID    uuid.UUID `json:"room_id"`
	Name      string    `json:"room_name"`
	Type      string    `json:"type"` // direct, group, channel
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoomMember represents a user's membership in a room
type RoomMember struct {
	RoomID   uuid.UUID `json:"room_id"`
	UserID   uuid.UUID `json:"user_id"`
	Role     string    `json:"role"` // member, admin
	IsMuted  bool      `json:"is_muted"`
	JoinedAt time.Time `json:"joined_at"`
}

// MemberPermissions is the membership oracle result for one user in one room
type MemberPermissions struct {
	IsMember bool   `json:"is_member"`
	IsMuted  bool   `json:"is_muted"`
	Role     string `json:"role"`
}
