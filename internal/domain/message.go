package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message types
const (
	MessageTypeText      = "Text"
	MessageTypeSystem    = "System"
	MessageTypeBroadcast = "Broadcast"
)

// Message represents a chat message stored in Cassandra
type Message struct {
	MessageID   uuid.UUID     `json:"message_id"`
	RoomID      uuid.UUID     `json:"room_id"`
	SenderID    uuid.UUID     `json:"sender_id"`
	MessageType string        `json:"message_type"`
	Content     string        `json:"content"`
	Attachments []*Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	Bucket      int           `json:"-"` // partition bucket, YYYYMM of CreatedAt
}

// Attachment carries file metadata only; blob storage is out of scope
type Attachment struct {
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
}

// CalculateBucket returns the monthly partition bucket for a timestamp
func CalculateBucket(t time.Time) int {
	return t.Year()*100 + int(t.Month())
}
