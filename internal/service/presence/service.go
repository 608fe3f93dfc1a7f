package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fchat-backend/internal/domain"
	"fchat-backend/internal/realtime"
	"fchat-backend/pkg/constants"
	"fchat-backend/pkg/errors"
	"fchat-backend/pkg/logger"
	"fchat-backend/pkg/metrics"
)

// PresenceRepository defines presence record storage operations
type PresenceRepository interface {
	Upsert(ctx context.Context, record *domain.PresenceRecord) error
	Get(ctx context.Context, userID uuid.UUID) (*domain.PresenceRecord, error)
	Touch(ctx context.Context, userID uuid.UUID, now time.Time) error
	SetTyping(ctx context.Context, userID uuid.UUID, roomID *uuid.UUID, now time.Time) error
	SetActiveRoom(ctx context.Context, userID uuid.UUID, roomID *uuid.UUID, now time.Time) error
	ListOnline(ctx context.Context) ([]*domain.PresenceRecord, error)
	ListTypingIn(ctx context.Context, roomID uuid.UUID) ([]*domain.PresenceRecord, error)
	ListActiveIn(ctx context.Context, roomID uuid.UUID) ([]*domain.PresenceRecord, error)
	SweepStale(ctx context.Context, now time.Time, threshold time.Duration) (int64, error)
	DemoteIdleOnline(ctx context.Context, now time.Time, threshold time.Duration) (int64, error)
}

// RoomRepository defines the membership lookup the tracker needs
type RoomRepository interface {
	GetMemberPermissions(ctx context.Context, roomID, userID uuid.UUID) (*domain.MemberPermissions, error)
}

// Service tracks user presence and typing state
type Service struct {
	presenceRepo   PresenceRepository
	roomRepo       RoomRepository
	publisher      realtime.Publisher
	metrics        *metrics.Metrics
	staleThreshold time.Duration
}

// NewService creates a new presence service
func NewService(
	presenceRepo PresenceRepository,
	roomRepo RoomRepository,
	publisher realtime.Publisher,
	m *metrics.Metrics,
	staleThreshold time.Duration,
) *Service {
	return &Service{
		presenceRepo:   presenceRepo,
		roomRepo:       roomRepo,
		publisher:      publisher,
		metrics:        m,
		staleThreshold: staleThreshold,
	}
}

// SetStatus upserts a user's presence status. IsOnline is always derived
// from the status, never set independently.
func (s *Service) SetStatus(ctx context.Context, userID uuid.UUID, fullName string, status domain.PresenceStatus) (*domain.PresenceRecord, error) {
	if !domain.ValidPresenceStatus(status) {
		return nil, errors.ValidationError(fmt.Sprintf("invalid presence status: %s", status))
	}

	now := time.Now().UTC()

	record, err := s.presenceRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = &domain.PresenceRecord{UserID: userID}
	}

	if fullName != "" {
		record.FullName = fullName
	}
	record.Status = status
	record.DeriveOnline()
	record.LastActivity = now
	if status != domain.StatusOffline {
		record.LastSeen = &now
	} else {
		record.LastSeen = nil
		record.ActiveRoom = nil
		record.TypingInRoom = nil
	}

	if err := s.presenceRepo.Upsert(ctx, record); err != nil {
		return nil, err
	}

	s.publisher.PublishGlobal(ctx, realtime.EventUserStatusChanged, map[string]interface{}{
		"user_id":   userID,
		"full_name": record.FullName,
		"status":    status,
		"is_online": record.IsOnline,
	})
	s.metrics.RecordPresenceUpdate(string(status))

	return record, nil
}

// Heartbeat refreshes a user's last_activity timestamp. Failures are
// swallowed: heartbeats are high frequency and low value, surfacing or
// logging their errors would only flood the caller and the logs.
func (s *Service) Heartbeat(ctx context.Context, userID uuid.UUID) {
	_ = s.presenceRepo.Touch(ctx, userID, time.Now().UTC())
}

// SetTyping sets or clears the room a user is typing in. The typing event
// is emitted to the room even when no presence record exists yet.
func (s *Service) SetTyping(ctx context.Context, userID uuid.UUID, roomID uuid.UUID, isTyping bool) error {
	now := time.Now().UTC()

	var typingRoom *uuid.UUID
	if isTyping {
		typingRoom = &roomID
	}

	if err := s.presenceRepo.SetTyping(ctx, userID, typingRoom, now); err != nil {
		return err
	}

	s.publisher.PublishToRoom(ctx, roomID, realtime.EventUserTyping, map[string]interface{}{
		"user_id":   userID,
		"room_id":   roomID,
		"is_typing": isTyping,
	})

	return nil
}

// JoinRoom marks a room as the user's active room
func (s *Service) JoinRoom(ctx context.Context, userID, roomID uuid.UUID) error {
	perms, err := s.roomRepo.GetMemberPermissions(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !perms.IsMember {
		return errors.PermissionDenied("you are not a member of this room")
	}

	if err := s.presenceRepo.SetActiveRoom(ctx, userID, &roomID, time.Now().UTC()); err != nil {
		return err
	}

	s.publisher.PublishToRoom(ctx, roomID, realtime.EventUserJoinedRoom, map[string]interface{}{
		"user_id": userID,
		"room_id": roomID,
	})

	return nil
}

// LeaveRoom clears the user's active room and any typing pointer
func (s *Service) LeaveRoom(ctx context.Context, userID, roomID uuid.UUID) error {
	now := time.Now().UTC()

	if err := s.presenceRepo.SetActiveRoom(ctx, userID, nil, now); err != nil {
		return err
	}
	if err := s.presenceRepo.SetTyping(ctx, userID, nil, now); err != nil {
		return err
	}

	s.publisher.PublishToRoom(ctx, roomID, realtime.EventUserLeftRoom, map[string]interface{}{
		"user_id": userID,
		"room_id": roomID,
	})

	return nil
}

// SweepStale demotes every record idle past the staleness threshold to
// offline. Sweep-induced transitions emit no events.
func (s *Service) SweepStale(ctx context.Context) (int64, error) {
	swept, err := s.presenceRepo.SweepStale(ctx, time.Now().UTC(), s.staleThreshold)
	if err != nil {
		return 0, err
	}

	s.metrics.RecordPresenceSweep(swept)
	if swept > 0 {
		logger.Info("Stale presence sweep completed", zap.Int64("swept", swept))
	}

	return swept, nil
}

// RefreshActivity demotes online users idle past the away threshold to
// away. Like the sweep, these transitions emit no events.
func (s *Service) RefreshActivity(ctx context.Context) (int64, error) {
	demoted, err := s.presenceRepo.DemoteIdleOnline(ctx, time.Now().UTC(), constants.AwayThreshold)
	if err != nil {
		return 0, err
	}

	if demoted > 0 {
		logger.Info("Idle users demoted to away", zap.Int64("demoted", demoted))
	}

	return demoted, nil
}

// GetOrCreate returns a user's presence record, creating a default offline
// record when none exists
func (s *Service) GetOrCreate(ctx context.Context, userID uuid.UUID, fullName string) (*domain.PresenceRecord, error) {
	record, err := s.presenceRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}

	record = &domain.PresenceRecord{
		UserID:       userID,
		FullName:     fullName,
		Status:       domain.StatusOffline,
		LastActivity: time.Now().UTC(),
	}
	record.DeriveOnline()

	if err := s.presenceRepo.Upsert(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

// ListOnline returns every user whose status is not offline
func (s *Service) ListOnline(ctx context.Context) ([]*domain.PresenceRecord, error) {
	return s.presenceRepo.ListOnline(ctx)
}

// ListTypingIn returns users currently typing in a room
func (s *Service) ListTypingIn(ctx context.Context, roomID uuid.UUID) ([]*domain.PresenceRecord, error) {
	return s.presenceRepo.ListTypingIn(ctx, roomID)
}

// ListActiveIn returns users whose active room is the given room
func (s *Service) ListActiveIn(ctx context.Context, roomID uuid.UUID) ([]*domain.PresenceRecord, error) {
	return s.presenceRepo.ListActiveIn(ctx, roomID)
}
