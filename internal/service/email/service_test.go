package email

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"fchat-backend/internal/domain"
	"fchat-backend/pkg/email"
	"fchat-backend/pkg/errors"
	"fchat-backend/pkg/metrics"
)

// MockMessageRepository is a mock implementation of MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) GetByID(roomID uuid.UUID, bucket int, messageID uuid.UUID) (*domain.Message, error) {
	args := m.Called(roomID, bucket, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
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

// MockUserDirectory is a mock implementation of UserDirectory
type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) GetEmailAddresses(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]string), args.Error(1)
}

func (m *MockUserDirectory) GetFullName(ctx context.Context, userID uuid.UUID) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

// MockSender captures the outgoing email
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, e *email.Email) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func TestSendMessageViaEmailDefaultsToRoomMembers(t *testing.T) {
	messageRepo := new(MockMessageRepository)
	roomRepo := new(MockRoomRepository)
	users := new(MockUserDirectory)
	sender := new(MockSender)
	service := NewService(messageRepo, roomRepo, users, sender, metrics.NewMetrics("test"))

	roomID := uuid.New()
	messageID := uuid.New()
	requester := uuid.New()
	other := uuid.New()

	roomRepo.On("GetMemberPermissions", mock.Anything, roomID, requester).Return(&domain.MemberPermissions{IsMember: true}, nil)
	roomRepo.On("GetByID", mock.Anything, roomID).Return(&domain.Room{RoomID: roomID, Name: "Engineering"}, nil)
	roomRepo.On("GetMembers", mock.Anything, roomID).Return([]*domain.RoomMember{
		{RoomID: roomID, UserID: requester},
		{RoomID: roomID, UserID: other},
	}, nil)
	messageRepo.On("GetByID", roomID, domain.CalculateBucket(time.Now().UTC()), messageID).Return(&domain.Message{
		MessageID: messageID,
		RoomID:    roomID,
		SenderID:  requester,
		Content:   "ship it",
		CreatedAt: time.Now().UTC(),
	}, nil)
	users.On("GetEmailAddresses", mock.Anything, []uuid.UUID{other}).Return(map[uuid.UUID]string{
		other: "other@example.com",
	}, nil)
	users.On("GetFullName", mock.Anything, requester).Return("Alex Doe", nil)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(e *email.Email) bool {
		return len(e.To) == 1 && e.To[0] == "other@example.com" &&
			e.Subject == "Message from Engineering" && e.Text == "ship it"
	})).Return(nil)

	err := service.SendMessageViaEmail(context.Background(), roomID, messageID, requester, 0, nil, "", "")

	assert.NoError(t, err)
	sender.AssertExpectations(t)
}

func TestSendMessageViaEmailNotMember(t *testing.T) {
	roomRepo := new(MockRoomRepository)
	sender := new(MockSender)
	service := NewService(new(MockMessageRepository), roomRepo, new(MockUserDirectory), sender, metrics.NewMetrics("test"))

	roomID := uuid.New()
	requester := uuid.New()

	roomRepo.On("GetMemberPermissions", mock.Anything, roomID, requester).Return(&domain.MemberPermissions{IsMember: false}, nil)

	err := service.SendMessageViaEmail(context.Background(), roomID, uuid.New(), requester, 0, nil, "", "")

	assert.Error(t, err)
	assert.Equal(t, errors.ErrCodePermissionDenied, errors.GetAppError(err).Code)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestSendMessageViaEmailInvalidRecipient(t *testing.T) {
	messageRepo := new(MockMessageRepository)
	roomRepo := new(MockRoomRepository)
	sender := new(MockSender)
	service := NewService(messageRepo, roomRepo, new(MockUserDirectory), sender, metrics.NewMetrics("test"))

	roomID := uuid.New()
	messageID := uuid.New()
	requester := uuid.New()

	roomRepo.On("GetMemberPermissions", mock.Anything, roomID, requester).Return(&domain.MemberPermissions{IsMember: true}, nil)
	roomRepo.On("GetByID", mock.Anything, roomID).Return(&domain.Room{RoomID: roomID, Name: "Engineering"}, nil)
	messageRepo.On("GetByID", roomID, domain.CalculateBucket(time.Now().UTC()), messageID).Return(&domain.Message{
		MessageID: messageID,
		RoomID:    roomID,
		Content:   "hello",
		CreatedAt: time.Now().UTC(),
	}, nil)

	err := service.SendMessageViaEmail(context.Background(), roomID, messageID, requester, 0, []string{"not-an-address"}, "", "")

	assert.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.GetAppError(err).Code)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}
