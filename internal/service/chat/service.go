package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fchat-backend/internal/domain"
	"fchat-backend/internal/realtime"
	"fchat-backend/pkg/constants"
	"fchat-backend/pkg/errors"
	"fchat-backend/pkg/sanitize"
)

// MessageRepository defines message storage operations
type MessageRepository interface {
	Save(message *domain.Message) error
	GetByRoom(roomID uuid.UUID, bucket, limit int, pageState []byte) ([]*domain.Message, []byte, error)
	GetByID(roomID uuid.UUID, bucket int, messageID uuid.UUID) (*domain.Message, error)
}

// RoomRepository defines the membership lookups messaging needs
type RoomRepository interface {
	GetByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error)
	GetMembers(ctx context.Context, roomID uuid.UUID) ([]*domain.RoomMember, error)
	GetMemberPermissions(ctx context.Context, roomID, userID uuid.UUID) (*domain.MemberPermissions, error)
}

// Service handles message persistence and fan-out
type Service struct {
	messageRepo MessageRepository
	roomRepo    RoomRepository
	publisher   realtime.Publisher
}

// NewService creates a new chat service
func NewService(messageRepo MessageRepository, roomRepo RoomRepository, publisher realtime.Publisher) *Service {
	return &Service{
		messageRepo: messageRepo,
		roomRepo:    roomRepo,
		publisher:   publisher,
	}
}

// BroadcastFailure records one room a broadcast could not reach
type BroadcastFailure struct {
	RoomID uuid.UUID `json:"room_id"`
	Reason string    `json:"reason"`
}

// BroadcastResult summarizes a multi-room broadcast
type BroadcastResult struct {
	SuccessCount int                 `json:"success_count"`
	FailureCount int                 `json:"failure_count"`
	Succeeded    []uuid.UUID         `json:"succeeded"`
	Failed       []*BroadcastFailure `json:"failed,omitempty"`
}

// SendMessage persists a message to a room and publishes it to subscribers
func (s *Service) SendMessage(ctx context.Context, roomID, senderID uuid.UUID, content string, attachments []*domain.Attachment) (*domain.Message, error) {
	if err := s.requireUnmutedMember(ctx, roomID, senderID); err != nil {
		return nil, err
	}

	content = sanitize.MessageContent(content)
	if content == "" && len(attachments) == 0 {
		return nil, errors.ValidationError("message content is empty")
	}
	if len(content) > constants.MaxMessageLength {
		return nil, errors.ValidationError(fmt.Sprintf("message exceeds %d characters", constants.MaxMessageLength))
	}
	if err := cleanAttachments(attachments); err != nil {
		return nil, err
	}

	message := &domain.Message{
		MessageID:   uuid.New(),
		RoomID:      roomID,
		SenderID:    senderID,
		MessageType: domain.MessageTypeText,
		Content:     content,
		Attachments: attachments,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.messageRepo.Save(message); err != nil {
		return nil, err
	}

	s.publisher.PublishToRoom(ctx, roomID, realtime.EventChatMessage, message)

	return message, nil
}

// GetMessages retrieves a page of room messages, newest first. The cursor
// is the opaque page state returned by the previous call. A zero bucket
// means the current month.
func (s *Service) GetMessages(ctx context.Context, roomID, userID uuid.UUID, bucket, limit int, cursor []byte) ([]*domain.Message, []byte, error) {
	perms, err := s.roomRepo.GetMemberPermissions(ctx, roomID, userID)
	if err != nil {
		return nil, nil, err
	}
	if !perms.IsMember {
		return nil, nil, errors.PermissionDenied("you are not a member of this room")
	}

	if bucket == 0 {
		bucket = domain.CalculateBucket(time.Now().UTC())
	}
	if limit <= 0 || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}

	return s.messageRepo.GetByRoom(roomID, bucket, limit, cursor)
}

// GetMessage retrieves a single message by id
func (s *Service) GetMessage(ctx context.Context, roomID, userID, messageID uuid.UUID, bucket int) (*domain.Message, error) {
	perms, err := s.roomRepo.GetMemberPermissions(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !perms.IsMember {
		return nil, errors.PermissionDenied("you are not a member of this room")
	}

	if bucket == 0 {
		bucket = domain.CalculateBucket(time.Now().UTC())
	}

	message, err := s.messageRepo.GetByID(roomID, bucket, messageID)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, errors.NotFound("message")
	}

	return message, nil
}

// PostSystemMessage persists a synthetic system message to a room. System
// messages bypass membership checks so lifecycle managers can post them on
// behalf of any actor.
func (s *Service) PostSystemMessage(ctx context.Context, roomID, actorID uuid.UUID, content string) error {
	message := &domain.Message{
		MessageID:   uuid.New(),
		RoomID:      roomID,
		SenderID:    actorID,
		MessageType: domain.MessageTypeSystem,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.messageRepo.Save(message); err != nil {
		return err
	}

	s.publisher.PublishToRoom(ctx, roomID, realtime.EventChatMessage, message)

	return nil
}

// Broadcast sends one message to many rooms, collecting per-room outcomes.
// A room where the sender lacks membership or is muted counts as a failure
// without aborting the rest of the fan-out.
func (s *Service) Broadcast(ctx context.Context, senderID uuid.UUID, roomIDs []uuid.UUID, content string, attachments []*domain.Attachment) (*BroadcastResult, error) {
	if len(roomIDs) == 0 {
		return nil, errors.ValidationError("no rooms specified")
	}

	content = sanitize.MessageContent(content)
	if content == "" && len(attachments) == 0 {
		return nil, errors.ValidationError("message content is empty")
	}
	if err := cleanAttachments(attachments); err != nil {
		return nil, err
	}

	result := &BroadcastResult{}
	now := time.Now().UTC()

	for _, roomID := range roomIDs {
		if err := s.requireUnmutedMember(ctx, roomID, senderID); err != nil {
			result.FailureCount++
			result.Failed = append(result.Failed, &BroadcastFailure{
				RoomID: roomID,
				Reason: errors.GetAppError(err).Message,
			})
			continue
		}

		message := &domain.Message{
			MessageID:   uuid.New(),
			RoomID:      roomID,
			SenderID:    senderID,
			MessageType: domain.MessageTypeBroadcast,
			Content:     content,
			Attachments: attachments,
			CreatedAt:   now,
		}

		if err := s.messageRepo.Save(message); err != nil {
			result.FailureCount++
			result.Failed = append(result.Failed, &BroadcastFailure{
				RoomID: roomID,
				Reason: "failed to save message",
			})
			continue
		}

		s.publisher.PublishToRoom(ctx, roomID, realtime.EventChatMessage, message)
		result.SuccessCount++
		result.Succeeded = append(result.Succeeded, roomID)
	}

	return result, nil
}

// cleanAttachments sanitizes attachment filenames and enforces the size cap
func cleanAttachments(attachments []*domain.Attachment) error {
	for _, att := range attachments {
		att.FileName = sanitize.Filename(att.FileName)
		if att.FileSize > constants.MaxAttachmentSize {
			return errors.ValidationError(fmt.Sprintf("attachment %s exceeds %d bytes", att.FileName, constants.MaxAttachmentSize))
		}
	}
	return nil
}

func (s *Service) requireUnmutedMember(ctx context.Context, roomID, userID uuid.UUID) error {
	perms, err := s.roomRepo.GetMemberPermissions(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !perms.IsMember {
		return errors.PermissionDenied("you are not a member of this room")
	}
	if perms.IsMuted {
		return errors.PermissionDenied("you are muted in this room")
	}
	return nil
}
