package cassandra

import (
	"encoding/json"
	"fmt"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"fchat-backend/internal/domain"
)

// MessageRepository handles message storage in Cassandra.
// Messages are partitioned by (room_id, bucket) where bucket is the
// YYYYMM month of the message timestamp.
type MessageRepository struct {
	session *gocql.Session
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(session *gocql.Session) *MessageRepository {
	return &MessageRepository{session: session}
}

// Save inserts a new message
func (r *MessageRepository) Save(message *domain.Message) error {
	if message.Bucket == 0 {
		message.Bucket = domain.CalculateBucket(message.CreatedAt)
	}
	if message.MessageID == uuid.Nil {
		message.MessageID = uuid.New()
	}

	var attachments []byte
	if len(message.Attachments) > 0 {
		var err error
		attachments, err = json.Marshal(message.Attachments)
		if err != nil {
			return fmt.Errorf("failed to marshal attachments: %w", err)
		}
	}

	query := `
		INSERT INTO messages (
			room_id, bucket, message_id, sender_id, message_type,
			content, attachments, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := r.session.Query(query,
		message.RoomID,
		message.Bucket,
		message.MessageID,
		message.SenderID,
		message.MessageType,
		message.Content,
		attachments,
		message.CreatedAt,
	).Exec()

	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

// GetByRoom retrieves one bucket's messages for a room, newest first,
// with cursor-based pagination via the driver's page state.
func (r *MessageRepository) GetByRoom(
	roomID uuid.UUID,
	bucket int,
	limit int,
	pageState []byte,
) ([]*domain.Message, []byte, error) {
	query := `
		SELECT room_id, bucket, message_id, sender_id, message_type,
		       content, attachments, created_at
		FROM messages
		WHERE room_id = ? AND bucket = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	iter := r.session.Query(query, roomID, bucket, limit).PageState(pageState).Iter()

	var messages []*domain.Message
	for {
		message := &domain.Message{}
		var attachments []byte
		if !iter.Scan(
			&message.RoomID,
			&message.Bucket,
			&message.MessageID,
			&message.SenderID,
			&message.MessageType,
			&message.Content,
			&attachments,
			&message.CreatedAt,
		) {
			break
		}
		if len(attachments) > 0 {
			if err := json.Unmarshal(attachments, &message.Attachments); err != nil {
				iter.Close()
				return nil, nil, fmt.Errorf("failed to unmarshal attachments: %w", err)
			}
		}
		messages = append(messages, message)
	}

	nextPageState := iter.PageState()

	if err := iter.Close(); err != nil {
		return nil, nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return messages, nextPageState, nil
}

// GetByID retrieves one message, or nil when it does not exist
func (r *MessageRepository) GetByID(roomID uuid.UUID, bucket int, messageID uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT room_id, bucket, message_id, sender_id, message_type,
		       content, attachments, created_at
		FROM messages
		WHERE room_id = ? AND bucket = ? AND message_id = ?
		ALLOW FILTERING
	`

	message := &domain.Message{}
	var attachments []byte
	err := r.session.Query(query, roomID, bucket, messageID).Scan(
		&message.RoomID,
		&message.Bucket,
		&message.MessageID,
		&message.SenderID,
		&message.MessageType,
		&message.Content,
		&attachments,
		&message.CreatedAt,
	)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &message.Attachments); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attachments: %w", err)
		}
	}

	return message, nil
}
