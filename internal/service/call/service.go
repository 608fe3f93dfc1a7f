package call

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fchat-backend/internal/domain"
	"fchat-backend/internal/realtime"
	"fchat-backend/pkg/errors"
	"fchat-backend/pkg/logger"
	"fchat-backend/pkg/metrics"
	"fchat-backend/pkg/pagination"
)

// CallRepository defines call session storage operations
type CallRepository interface {
	Create(ctx context.Context, session *domain.CallSession) error
	GetByID(ctx context.Context, sessionID uuid.UUID) (*domain.CallSession, error)
	GetActiveByRoom(ctx context.Context, roomID uuid.UUID) (*domain.CallSession, error)
	UpdateStatus(ctx context.Context, sessionID uuid.UUID, status domain.CallStatus) error
	EndSession(ctx context.Context, sessionID uuid.UUID, status domain.CallStatus, endTime time.Time, totalDuration int) error
	UpsertParticipant(ctx context.Context, p *domain.CallParticipant) error
	GetHistory(ctx context.Context, userID uuid.UUID, roomID *uuid.UUID, limit, offset int) ([]*domain.CallSession, error)
	CountHistory(ctx context.Context, userID uuid.UUID, roomID *uuid.UUID) (int64, error)
}

// RoomRepository defines the membership lookups the call manager needs
type RoomRepository interface {
	GetByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error)
	GetMembers(ctx context.Context, roomID uuid.UUID) ([]*domain.RoomMember, error)
	GetMemberPermissions(ctx context.Context, roomID, userID uuid.UUID) (*domain.MemberPermissions, error)
}

// SystemMessagePoster posts synthetic system messages to a room
type SystemMessagePoster interface {
	PostSystemMessage(ctx context.Context, roomID, actorID uuid.UUID, content string) error
}

// Service manages the call session lifecycle
type Service struct {
	callRepo   CallRepository
	roomRepo   RoomRepository
	messages   SystemMessagePoster
	publisher  realtime.Publisher
	metrics    *metrics.Metrics
	iceServers []domain.ICEServer
}

// NewService creates a new call service. A nil iceServers falls back to the
// default STUN configuration.
func NewService(
	callRepo CallRepository,
	roomRepo RoomRepository,
	messages SystemMessagePoster,
	publisher realtime.Publisher,
	m *metrics.Metrics,
	iceServers []domain.ICEServer,
) *Service {
	if len(iceServers) == 0 {
		iceServers = domain.DefaultICEServers
	}
	return &Service{
		callRepo:   callRepo,
		roomRepo:   roomRepo,
		messages:   messages,
		publisher:  publisher,
		metrics:    m,
		iceServers: iceServers,
	}
}

// SignalPayload is the relayed WebRTC signaling envelope
type SignalPayload struct {
	SessionID  uuid.UUID       `json:"call_session_id"`
	FromUser   uuid.UUID       `json:"from_user"`
	ToUser     *uuid.UUID      `json:"to_user,omitempty"`
	SignalType string          `json:"signal_type"`
	Payload    json.RawMessage `json:"payload"`
}

// Initiate creates a new call session in a room and moves it to Ringing.
// The caller joins immediately; every other target is invited. Passing no
// explicit participants invites every other room member.
func (s *Service) Initiate(ctx context.Context, roomID, callerID uuid.UUID, callType domain.CallType, participants []uuid.UUID) (*domain.CallSession, error) {
	if callType != domain.CallTypeAudio && callType != domain.CallTypeVideo {
		return nil, errors.ValidationError(fmt.Sprintf("invalid call type: %s", callType))
	}

	if err := s.requireMember(ctx, roomID, callerID); err != nil {
		return nil, err
	}

	active, err := s.callRepo.GetActiveByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, errors.Conflict("an active call already exists in this room")
	}

	now := time.Now().UTC()
	session := &domain.CallSession{
		SessionID:    uuid.New(),
		RoomID:       roomID,
		CallType:     callType,
		Status:       domain.CallStatusInitiated,
		InitiatedBy:  callerID,
		SessionToken: uuid.New().String(),
		ICEServers:   s.iceServers,
		StartTime:    now,
	}

	joinedAt := now
	session.Participants = append(session.Participants, &domain.CallParticipant{
		SessionID:  session.SessionID,
		UserID:     callerID,
		Status:     domain.ParticipantJoined,
		JoinedTime: &joinedAt,
	})

	targets := participants
	if len(targets) == 0 {
		members, err := s.roomRepo.GetMembers(ctx, roomID)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			targets = append(targets, m.UserID)
		}
	}

	for _, userID := range targets {
		if userID == callerID || session.Participant(userID) != nil {
			continue
		}
		session.Participants = append(session.Participants, &domain.CallParticipant{
			SessionID: session.SessionID,
			UserID:    userID,
			Status:    domain.ParticipantInvited,
		})
	}

	if err := s.callRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	if err := s.callRepo.UpdateStatus(ctx, session.SessionID, domain.CallStatusRinging); err != nil {
		return nil, err
	}
	session.Status = domain.CallStatusRinging

	if err := s.messages.PostSystemMessage(ctx, roomID, callerID, fmt.Sprintf("%s call initiated", callType)); err != nil {
		logger.Error("Failed to post call-initiated system message",
			zap.String("session_id", session.SessionID.String()),
			zap.Error(err))
	}

	s.publisher.PublishToRoom(ctx, roomID, realtime.EventCallInitiated, session)
	s.metrics.RecordCallInitiated(string(callType))

	return session, nil
}

// Join adds a user to an active call session
func (s *Service) Join(ctx context.Context, sessionID, userID uuid.UUID) (*domain.CallSession, error) {
	session, err := s.callRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errors.NotFound("call session")
	}

	if err := s.requireMember(ctx, session.RoomID, userID); err != nil {
		return nil, err
	}

	if !session.Status.IsActive() {
		return nil, errors.InvalidState(fmt.Sprintf("cannot join a call in status %s", session.Status))
	}

	now := time.Now().UTC()
	p := session.Participant(userID)
	if p == nil {
		p = &domain.CallParticipant{
			SessionID: sessionID,
			UserID:    userID,
		}
		session.Participants = append(session.Participants, p)
	}
	p.Status = domain.ParticipantJoined
	p.JoinedTime = &now

	if err := s.callRepo.UpsertParticipant(ctx, p); err != nil {
		return nil, err
	}

	if session.Status != domain.CallStatusConnected {
		if err := s.callRepo.UpdateStatus(ctx, sessionID, domain.CallStatusConnected); err != nil {
			return nil, err
		}
		session.Status = domain.CallStatusConnected
	}

	s.publisher.PublishToRoom(ctx, session.RoomID, realtime.EventCallParticipantJoined, map[string]interface{}{
		"call_session_id": sessionID,
		"user_id":         userID,
		"call_status":     session.Status,
	})

	return session, nil
}

// Leave removes a user from a call session. When the last joined participant
// leaves, the session ends and its total duration is recorded.
func (s *Service) Leave(ctx context.Context, sessionID, userID uuid.UUID) (*domain.CallSession, error) {
	session, err := s.callRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errors.NotFound("call session")
	}

	p := session.Participant(userID)
	if p == nil {
		return nil, errors.PermissionDenied("you are not a participant in this call")
	}

	if session.Status.IsTerminal() {
		return nil, errors.InvalidState(fmt.Sprintf("cannot leave a call in status %s", session.Status))
	}

	now := time.Now().UTC()
	duration := 0
	if p.JoinedTime != nil {
		duration = int(now.Sub(*p.JoinedTime).Seconds())
	}
	p.Status = domain.ParticipantLeft
	p.LeftTime = &now
	p.Duration = &duration

	if err := s.callRepo.UpsertParticipant(ctx, p); err != nil {
		return nil, err
	}

	callEnded := session.JoinedCount() == 0
	if callEnded {
		total := int(now.Sub(session.StartTime).Seconds())
		if err := s.callRepo.EndSession(ctx, sessionID, domain.CallStatusEnded, now, total); err != nil {
			return nil, err
		}
		session.Status = domain.CallStatusEnded
		session.EndTime = &now
		session.TotalDuration = &total

		if err := s.messages.PostSystemMessage(ctx, session.RoomID, userID, fmt.Sprintf("Call ended (Duration: %ds)", total)); err != nil {
			logger.Error("Failed to post call-ended system message",
				zap.String("session_id", sessionID.String()),
				zap.Error(err))
		}

		s.metrics.RecordCallEnded(string(session.CallType), string(domain.CallStatusEnded), time.Duration(total)*time.Second)
	}

	s.publisher.PublishToRoom(ctx, session.RoomID, realtime.EventCallParticipantLeft, map[string]interface{}{
		"call_session_id": sessionID,
		"user_id":         userID,
		"call_ended":      callEnded,
	})

	return session, nil
}

// Reject marks a user's participant entry as Rejected. Rejection never ends
// the session itself.
func (s *Service) Reject(ctx context.Context, sessionID, userID uuid.UUID) error {
	session, err := s.callRepo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return errors.NotFound("call session")
	}

	p := session.Participant(userID)
	if p == nil {
		return errors.PermissionDenied("you are not a participant in this call")
	}

	if session.Status.IsTerminal() {
		return errors.InvalidState(fmt.Sprintf("cannot reject a call in status %s", session.Status))
	}

	p.Status = domain.ParticipantRejected
	if err := s.callRepo.UpsertParticipant(ctx, p); err != nil {
		return err
	}

	s.publisher.PublishToRoom(ctx, session.RoomID, realtime.EventCallRejected, map[string]interface{}{
		"call_session_id": sessionID,
		"user_id":         userID,
	})

	return nil
}

// RelaySignal re-emits a WebRTC signaling message to the session's room.
// Pure relay: the payload is not inspected and no state changes.
func (s *Service) RelaySignal(ctx context.Context, sessionID, userID uuid.UUID, signalType string, payload json.RawMessage, target *uuid.UUID) error {
	if signalType == "" {
		return errors.ValidationError("signal_type is required")
	}

	session, err := s.callRepo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return errors.NotFound("call session")
	}

	if session.Participant(userID) == nil {
		return errors.PermissionDenied("you are not a participant in this call")
	}

	if session.Status.IsTerminal() {
		return errors.InvalidState(fmt.Sprintf("cannot signal a call in status %s", session.Status))
	}

	s.publisher.PublishToRoom(ctx, session.RoomID, realtime.EventWebRTCSignal, &SignalPayload{
		SessionID:  sessionID,
		FromUser:   userID,
		ToUser:     target,
		SignalType: signalType,
		Payload:    payload,
	})

	return nil
}

// MarkFailed moves a session to Failed on an external failure signal
func (s *Service) MarkFailed(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.callRepo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return errors.NotFound("call session")
	}

	if !domain.CanTransition(session.Status, domain.CallStatusFailed) {
		return errors.InvalidState(fmt.Sprintf("cannot fail a call in status %s", session.Status))
	}

	now := time.Now().UTC()
	total := int(now.Sub(session.StartTime).Seconds())
	if err := s.callRepo.EndSession(ctx, sessionID, domain.CallStatusFailed, now, total); err != nil {
		return err
	}

	s.metrics.RecordCallEnded(string(session.CallType), string(domain.CallStatusFailed), time.Duration(total)*time.Second)

	return nil
}

// ActiveSession returns the room's active call session, or nil when the room
// has no ongoing call
func (s *Service) ActiveSession(ctx context.Context, roomID, userID uuid.UUID) (*domain.CallSession, error) {
	if err := s.requireMember(ctx, roomID, userID); err != nil {
		return nil, err
	}

	return s.callRepo.GetActiveByRoom(ctx, roomID)
}

// History returns past call sessions the user participated in, newest first.
// A nil roomID spans all of the user's rooms; a non-nil one scopes the list
// to that room and requires membership.
func (s *Service) History(ctx context.Context, userID uuid.UUID, roomID *uuid.UUID, params *pagination.Params) ([]*domain.CallSession, *pagination.PagedResponse, error) {
	if roomID != nil {
		if err := s.requireMember(ctx, *roomID, userID); err != nil {
			return nil, nil, err
		}
	}

	sessions, err := s.callRepo.GetHistory(ctx, userID, roomID, params.PageSize, params.Offset)
	if err != nil {
		return nil, nil, err
	}

	total, err := s.callRepo.CountHistory(ctx, userID, roomID)
	if err != nil {
		return nil, nil, err
	}

	return sessions, pagination.Build(params, total), nil
}

func (s *Service) requireMember(ctx context.Context, roomID, userID uuid.UUID) error {
	perms, err := s.roomRepo.GetMemberPermissions(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !perms.IsMember {
		return errors.PermissionDenied("you are not a member of this room")
	}
	return nil
}
