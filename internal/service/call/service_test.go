package call

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"fchat-backend/internal/domain"
	"fchat-backend/pkg/errors"
	"fchat-backend/pkg/metrics"
	"fchat-backend/pkg/pagination"
)

// MockCallRepository is a mock implementation of CallRepository
type MockCallRepository struct {
	mock.Mock
}

func (m *MockCallRepository) Create(ctx context.Context, session *domain.CallSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockCallRepository) GetByID(ctx context.Context, sessionID uuid.UUID) (*domain.CallSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CallSession), args.Error(1)
}

func (m *MockCallRepository) GetActiveByRoom(ctx context.Context, roomID uuid.UUID) (*domain.CallSession, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CallSession), args.Error(1)
}

func (m *MockCallRepository) UpdateStatus(ctx context.Context, sessionID uuid.UUID, status domain.CallStatus) error {
	args := m.Called(ctx, sessionID, status)
	return args.Error(0)
}

func (m *MockCallRepository) EndSession(ctx context.Context, sessionID uuid.UUID, status domain.CallStatus, endTime time.Time, totalDuration int) error {
	args := m.Called(ctx, sessionID, status, endTime, totalDuration)
	return args.Error(0)
}

func (m *MockCallRepository) UpsertParticipant(ctx context.Context, p *domain.CallParticipant) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockCallRepository) GetHistory(ctx context.Context, userID uuid.UUID, roomID *uuid.UUID, limit, offset int) ([]*domain.CallSession, error) {
	args := m.Called(ctx, userID, roomID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CallSession), args.Error(1)
}

func (m *MockCallRepository) CountHistory(ctx context.Context, userID uuid.UUID, roomID *uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID, roomID)
	return args.Get(0).(int64), args.Error(1)
}

// MockRoomRepository is a mock implementation of RoomRepository
type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) GetByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Room), args.Error(1)
}

func (m *MockRoomRepository) GetMembers(ctx context.Context, roomID uuid.UUID) ([]*domain.RoomMember, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RoomMember), args.Error(1)
}

func (m *MockRoomRepository) GetMemberPermissions(ctx context.Context, roomID, userID uuid.UUID) (*domain.MemberPermissions, error) {
	args := m.Called(ctx, roomID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MemberPermissions), args.Error(1)
}

// MockMessagePoster is a mock implementation of SystemMessagePoster
type MockMessagePoster struct {
	mock.Mock
}

func (m *MockMessagePoster) PostSystemMessage(ctx context.Context, roomID, actorID uuid.UUID, content string) error {
	args := m.Called(ctx, roomID, actorID, content)
	return args.Error(0)
}

// MockPublisher records realtime publishes
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishToRoom(ctx context.Context, roomID uuid.UUID, event string, payload interface{}) {
	m.Called(ctx, roomID, event, payload)
}

func (m *MockPublisher) PublishGlobal(ctx context.Context, event string, payload interface{}) {
	m.Called(ctx, event, payload)
}

func newTestService(callRepo *MockCallRepository, roomRepo *MockRoomRepository, messages *MockMessagePoster, publisher *MockPublisher) *Service {
	return NewService(callRepo, roomRepo, messages, publisher, metrics.NewMetrics("test"), nil)
}

func memberPerms() *domain.MemberPermissions {
	return &domain.MemberPermissions{IsMember: true, Role: "member"}
}

func nonMemberPerms() *domain.MemberPermissions {
	return &domain.MemberPermissions{IsMember: false}
}

func TestInitiateCall(t *testing.T) {
	callRepo := new(MockCallRepository)
	roomRepo := new(MockRoomRepository)
	messages := new(MockMessagePoster)
	publisher := new(MockPublisher)
	service := newTestService(callRepo, roomRepo, messages, publisher)

	roomID := uuid.New()
	userA := uuid.New()
	userB := uuid.New()
	userC := uuid.New()

	roomRepo.On("GetMemberPermissions", mock.Anything, roomID, userA).Return(memberPerms(), nil)
	roomRepo.On("GetMembers", mock.Anything, roomID).Return([]*domain.RoomMember{
		{RoomID: roomID, UserID: userA},
		{RoomID: roomID, UserID: userB},
		{RoomID: roomID, UserID: userC},
	}, nil)
	callRepo.On("GetActiveByRoom", mock.Anything, roomID).Return(nil, nil)
	callRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.CallSession")).Return(nil)
	callRepo.On("UpdateStatus", mock.Anything, mock.AnythingOfType("uuid.UUID"), domain.CallStatusRinging).Return(nil)
	messages.On("PostSystemMessage", mock.Anything, roomID, userA, "Audio call initiated").Return(nil)
	publisher.On("PublishToRoom", mock.Anything, roomID, "call_initiated", mock.Anything).Return()

	session, err := service.Initiate(context.Background(), roomID, userA, domain.CallTypeAudio, nil)

	assert.NoError(t, err)
	assert.NotNil(t, session)
	assert.Equal(t, domain.CallStatusRinging, session.Status)
	assert.NotEmpty(t, session.SessionToken)
	assert.Len(t, session.ICEServers, 2)
	assert.Len(t, session.Participants, 3)

	assert.Equal(t, domain.ParticipantJoined, session.Participant(userA).Status)
	assert.NotNil(t, session.Participant(userA).JoinedTime)
	assert.Equal(t, domain.ParticipantInvited, session.Participant(userB).Status)
	assert.Equal(t, domain.ParticipantInvited, session.Participant(userC).Status)

	callRepo.AssertExpectations(t)
	roomRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestInitiateCallConflict(t *testing.T) {
	callRepo := new(MockCallRepository)
	roomRepo := new(MockRoomRepository)
	service := newTestService(callRepo, roomRepo, new(MockMessagePoster), new(MockPublisher))

	roomID := uuid.New()
	userA := uuid.New()

	roomRepo.On("GetMemberPermissions", mock.Anything, roomID, userA).Return(memberPerms(), nil)
	callRepo.On("GetActiveByRoom", mock.Anything, roomID).Return(&domain.CallSession{
		SessionID: uuid.New(),
		RoomID:    roomID,
		Status:    domain.CallStatusConnected,
	}, nil)

	session, err := service.Initiate(context.Background(), roomID, userA, domain.CallTypeVideo, nil)

	assert.Nil(t, session)
	assert.Error(t, err)
	appErr := errors.GetAppError(err)
	assert.Equal(t, errors.ErrCodeConflict, appErr.Code)
	callRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestInitiateCallNotMember(t *testing.T) {
	callRepo := new(MockCallRepository)
	roomRepo := new(MockRoomRepository)
	service := newTestService(callRepo, roomRepo, new(MockMessagePoster), new(MockPublisher))

	roomID := uuid.New()
	outsider := uuid.New()

	roomRepo.On("GetMemberPermissions", mock.Anything, roomID, outsider).Return(&domain.MemberPermissions{IsMember: false}, nil)

	_, err := service.Initiate(context.Background(), roomID, outsider, domain.CallTypeAudio, nil)

	assert.Error(t, err)
	assert.Equal(t, errors.ErrCodePermissionDenied, errors.GetAppError(err).Code)
	callRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestInitiateCallInvalidType(t *testing.T) {
	service := newTestService(new(MockCallRepository), new(MockRoomRepository), new(MockMessagePoster), new(MockPublisher))

	_, err := service.Initiate(context.Background(), uuid.New(), uuid.New(), domain.CallType("Screen"), nil)

	assert.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.GetAppError(err).Code)
}

func TestJoinCall(t *testing.T) {
	callRepo := new(MockCallRepository)
	roomRepo := new(MockRoomRepository)
	publisher := new(MockPublisher)
	service := newTestService(callRepo, roomRepo, new(MockMessagePoster), publisher)

	roomID := uuid.New()
	sessionID := uuid.New()
	userA := uuid.New()
	userB := uuid.New()
	joined := time.Now().UTC().Add(-30 * time.Second)

	session := &domain.CallSession{
		SessionID:   sessionID,
		RoomID:      roomID,
		CallType:    domain.CallTypeAudio,
		Status:      domain.CallStatusRinging,
		InitiatedBy: userA,
		StartTime:   joined,
		Participants: []*domain.CallParticipant{
			{SessionID: sessionID, UserID: userA, Status: domain.ParticipantJoined, JoinedTime: &joined},
			{SessionID: sessionID, UserID: userB, Status: domain.ParticipantInvited},
		},
	}

	callRepo.On("GetByID", mock.Anything, sessionID).Return(session, nil)
	roomRepo.On("GetMemberPermissions", mock.Anything, roomID, userB).Return(memberPerms(), nil)
	callRepo.On("UpsertParticipant", mock.Anything, mock.AnythingOfType("*domain.CallParticipant")).Return(nil)
	callRepo.On("UpdateStatus", mock.Anything, sessionID, domain.CallStatusConnected).Return(nil)
	publisher.On("PublishToRoom", mock.Anything, roomID, "call_participant_joined", mock.Anything).Return()

	result, err := service.Join(context.Background(), sessionID, userB)

	assert.NoError(t, err)
	assert.Equal(t, domain.CallStatusConnected, result.Status)
	assert.Equal(t, domain.ParticipantJoined, result.Participant(userB).Status)
	assert.NotNil(t, result.Participant(userB).JoinedTime)

	callRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestJoinEndedCall(t *testing.T) {
	callRepo := new(MockCallRepository)
	roomRepo := new(MockRoomRepository)
	service := newTestService(callRepo, roomRepo, new(MockMessagePoster), new(MockPublisher))

	roomID := uuid.New()
	sessionID := uuid.New()
	userB := uuid.New()

	session := &domain.CallSession{
		SessionID: sessionID,
		RoomID:    roomID,
		Status:    domain.CallStatusEnded,
		Participants: []*domain.CallParticipant{
			{SessionID: sessionID, UserID: userB, Status: domain.ParticipantInvited},
		},
	}

	callRepo.On("GetByID", mock.Anything, sessionID).Return(session, nil)
	roomRepo.On("GetMemberPermissions", mock.Anything, roomID, userB).Return(memberPerms(), nil)

	_, err := service.Join(context.Background(), sessionID, userB)

	assert.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidState, errors.GetAppError(err).Code)
	assert.Equal(t, domain.ParticipantInvited, session.Participant(userB).Status)
	callRepo.AssertNotCalled(t, "UpsertParticipant", mock.Anything, mock.Anything)
}

func TestLeaveCallLastParticipantEndsSession(t *testing.T) {
	callRepo := new(MockCallRepository)
	roomRepo := new(MockRoomRepository)
	messages := new(MockMessagePoster)
	publisher := new(MockPublisher)
	service := newTestService(callRepo, roomRepo, messages, publisher)

	roomID := uuid.New()
	sessionID := uuid.New()
	userA := uuid.New()
	userB := uuid.New()
	start := time.Now().UTC().Add(-90 * time.Second)
	joinedA := start
	joinedB := time.Now().UTC().Add(-60 * time.Second)

	session := &domain.CallSession{
		SessionID:   sessionID,
		RoomID:      roomID,
		CallType:    domain.CallTypeAudio,
		Status:      domain.CallStatusConnected,
		InitiatedBy: userA,
		StartTime:   start,
		Participants: []*domain.CallParticipant{
			{SessionID: sessionID, UserID: userA, Status: domain.ParticipantJoined, JoinedTime: &joinedA},
			{SessionID: sessionID, UserID: userB, Status: domain.ParticipantJoined, JoinedTime: &joinedB},
		},
	}

	callRepo.On("GetByID", mock.Anything, sessionID).Return(session, nil)
	callRepo.On("UpsertParticipant", mock.Anything, mock.AnythingOfType("*domain.CallParticipant")).Return(nil)
	callRepo.On("EndSession", mock.Anything, sessionID, domain.CallStatusEnded, mock.AnythingOfType("time.Time"), mock.AnythingOfType("int")).Return(nil)
	messages.On("PostSystemMessage", mock.Anything, roomID, userB, mock.AnythingOfType("string")).Return(nil)
	publisher.On("PublishToRoom", mock.Anything, roomID, "call_participant_left", mock.Anything).Return()

	// A leaves first: B is still joined, session stays Connected
	result, err := service.Leave(context.Background(), sessionID, userA)
	assert.NoError(t, err)
	assert.Equal(t, domain.CallStatusConnected, result.Status)
	assert.Equal(t, domain.ParticipantLeft, result.Participant(userA).Status)
	assert.NotNil(t, result.Participant(userA).Duration)
	assert.InDelta(t, 90, *result.Participant(userA).Duration, 2)
	callRepo.AssertNotCalled(t, "EndSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// B leaves: nobody is joined, session ends with total duration
	result, err = service.Leave(context.Background(), sessionID, userB)
	assert.NoError(t, err)
	assert.Equal(t, domain.CallStatusEnded, result.Status)
	assert.NotNil(t, result.EndTime)
	assert.NotNil(t, result.TotalDuration)
	assert.InDelta(t, 90, *result.TotalDuration, 2)

	callRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
	messages.AssertExpectations(t)
}

func TestLeaveCallNeverJoinedZeroDuration(t *testing.T) {
	callRepo := new(MockCallRepository)
	roomRepo := new(MockRoomRepository)
	publisher := new(MockPublisher)
	service := newTestService(callRepo, roomRepo, new(MockMessagePoster), publisher)

	roomID := uuid.New()
	sessionID := uuid.New()
	userA := uuid.New()
	userB := uuid.New()
	start := time.Now().UTC().Add(-30 * time.Second)

	session := &domain.CallSession{
		SessionID: sessionID,
		RoomID:    roomID,
		CallType:  domain.CallTypeVideo,
		Status:    domain.CallStatusRinging,
		StartTime: start,
		Participants: []*domain.CallParticipant{
			{SessionID: sessionID, UserID: userA, Status: domain.ParticipantJoined, JoinedTime: &start},
			{SessionID: sessionID, UserID: userB, Status: domain.ParticipantInvited},
		},
	}

	callRepo.On("GetByID", mock.Anything, sessionID).Return(session, nil)
	callRepo.On("UpsertParticipant", mock.Anything, mock.AnythingOfType("*domain.CallParticipant")).Return(nil)
	publisher.On("PublishToRoom", mock.Anything, roomID, "call_participant_left", mock.Anything).Return()

	result, err := service.Leave(context.Background(), sessionID, userB)

	assert.NoError(t, err)
	assert.Equal(t, 0, *result.Participant(userB).Duration)
	assert.Equal(t, domain.CallStatusRinging, result.Status)
}

func TestRejectDoesNotEndSession(t *testing.T) {
	callRepo := new(MockCallRepository)
	roomRepo := new(MockRoomRepository)
	publisher := new(MockPublisher)
	service := newTestService(callRepo, roomRepo, new(MockMessagePoster), publisher)

	roomID := uuid.New()
	sessionID := uuid.New()
	userA := uuid.New()
	userB := uuid.New()
	start := time.Now().UTC()

	session := &domain.CallSession{
		SessionID: sessionID,
		RoomID:    roomID,
		Status:    domain.CallStatusRinging,
		StartTime: start,
		Participants: []*domain.CallParticipant{
			{SessionID: sessionID, UserID: userA, Status: domain.ParticipantJoined, JoinedTime: &start},
			{SessionID: sessionID, UserID: userB, Status: domain.ParticipantInvited},
		},
	}

	callRepo.On("GetByID", mock.Anything, sessionID).Return(session, nil)
	callRepo.On("UpsertParticipant", mock.Anything, mock.AnythingOfType("*domain.CallParticipant")).Return(nil)
	publisher.On("PublishToRoom", mock.Anything, roomID, "call_rejected", mock.Anything).Return()

	err := service.Reject(context.Background(), sessionID, userB)

	assert.NoError(t, err)
	assert.Equal(t, domain.ParticipantRejected, session.Participant(userB).Status)
	assert.Equal(t, domain.CallStatusRinging, session.Status)
	callRepo.AssertNotCalled(t, "EndSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	callRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestRelaySignalRequiresParticipant(t *testing.T) {
	callRepo := new(MockCallRepository)
	service := newTestService(callRepo, new(MockRoomRepository), new(MockMessagePoster), new(MockPublisher))

	sessionID := uuid.New()
	outsider := uuid.New()

	session := &domain.CallSession{
		SessionID: sessionID,
		RoomID:    uuid.New(),
		Status:    domain.CallStatusConnected,
	}

	callRepo.On("GetByID", mock.Anything, sessionID).Return(session, nil)

	err := service.RelaySignal(context.Background(), sessionID, outsider, "offer", json.RawMessage(`{"sdp":"v=0"}`), nil)

	assert.Error(t, err)
	assert.Equal(t, errors.ErrCodePermissionDenied, errors.GetAppError(err).Code)
}

func TestRelaySignal(t *testing.T) {
	callRepo := new(MockCallRepository)
	publisher := new(MockPublisher)
	service := newTestService(callRepo, new(MockRoomRepository), new(MockMessagePoster), publisher)

	roomID := uuid.New()
	sessionID := uuid.New()
	userA := uuid.New()
	userB := uuid.New()
	now := time.Now().UTC()

	session := &domain.CallSession{
		SessionID: sessionID,
		RoomID:    roomID,
		Status:    domain.CallStatusConnected,
		StartTime: now,
		Participants: []*domain.CallParticipant{
			{SessionID: sessionID, UserID: userA, Status: domain.ParticipantJoined, JoinedTime: &now},
			{SessionID: sessionID, UserID: userB, Status: domain.ParticipantJoined, JoinedTime: &now},
		},
	}

	payload := json.RawMessage(`{"sdp":"v=0"}`)

	callRepo.On("GetByID", mock.Anything, sessionID).Return(session, nil)
	publisher.On("PublishToRoom", mock.Anything, roomID, "webrtc_signal", mock.MatchedBy(func(p interface{}) bool {
		signal, ok := p.(*SignalPayload)
		return ok && signal.FromUser == userA && signal.ToUser != nil && *signal.ToUser == userB && signal.SignalType == "offer"
	})).Return()

	err := service.RelaySignal(context.Background(), sessionID, userA, "offer", payload, &userB)

	assert.NoError(t, err)
	publisher.AssertExpectations(t)
}

func TestHistoryPagination(t *testing.T) {
	callRepo := new(MockCallRepository)
	roomRepo := new(MockRoomRepository)
	service := newTestService(callRepo, roomRepo, new(MockMessagePoster), new(MockPublisher))

	roomID := uuid.New()
	userA := uuid.New()

	roomRepo.On("GetMemberPermissions", mock.Anything, roomID, userA).Return(memberPerms(), nil)
	callRepo.On("GetHistory", mock.Anything, userA, &roomID, 20, 0).Return([]*domain.CallSession{
		{SessionID: uuid.New(), RoomID: roomID, Status: domain.CallStatusEnded},
	}, nil)
	callRepo.On("CountHistory", mock.Anything, userA, &roomID).Return(int64(45), nil)

	params := &pagination.Params{Page: 1, PageSize: 20, Offset: 0}
	sessions, paged, err := service.History(context.Background(), userA, &roomID, params)

	assert.NoError(t, err)
	assert.Len(t, sessions, 1)
	assert.Equal(t, int64(45), paged.TotalCount)
	assert.Equal(t, 3, paged.TotalPages)
	assert.True(t, paged.HasNext)

	// The query is always keyed by the caller, so room membership alone
	// never exposes sessions the caller was not a participant of.
	callRepo.AssertCalled(t, "GetHistory", mock.Anything, userA, &roomID, 20, 0)
}

func TestHistoryAcrossAllRooms(t *testing.T) {
	callRepo := new(MockCallRepository)
	roomRepo := new(MockRoomRepository)
	service := newTestService(callRepo, roomRepo, new(MockMessagePoster), new(MockPublisher))

	userA := uuid.New()

	callRepo.On("GetHistory", mock.Anything, userA, (*uuid.UUID)(nil), 20, 0).Return([]*domain.CallSession{
		{SessionID: uuid.New(), RoomID: uuid.New(), Status: domain.CallStatusEnded},
		{SessionID: uuid.New(), RoomID: uuid.New(), Status: domain.CallStatusFailed},
	}, nil)
	callRepo.On("CountHistory", mock.Anything, userA, (*uuid.UUID)(nil)).Return(int64(2), nil)

	params := &pagination.Params{Page: 1, PageSize: 20, Offset: 0}
	sessions, paged, err := service.History(context.Background(), userA, nil, params)

	assert.NoError(t, err)
	assert.Len(t, sessions, 2)
	assert.Equal(t, int64(2), paged.TotalCount)
	roomRepo.AssertNotCalled(t, "GetMemberPermissions", mock.Anything, mock.Anything, mock.Anything)
}

func TestHistoryRoomScopeRequiresMembership(t *testing.T) {
	callRepo := new(MockCallRepository)
	roomRepo := new(MockRoomRepository)
	service := newTestService(callRepo, roomRepo, new(MockMessagePoster), new(MockPublisher))

	roomID := uuid.New()
	userA := uuid.New()

	roomRepo.On("GetMemberPermissions", mock.Anything, roomID, userA).Return(nonMemberPerms(), nil)

	params := &pagination.Params{Page: 1, PageSize: 20, Offset: 0}
	_, _, err := service.History(context.Background(), userA, &roomID, params)

	assert.Error(t, err)
	assert.Equal(t, errors.ErrCodePermissionDenied, errors.GetAppError(err).Code)
	callRepo.AssertNotCalled(t, "GetHistory", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
