package room

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"fchat-backend/internal/domain"
	"fchat-backend/pkg/errors"
)

// MockRoomRepository is a mock implementation of RoomRepository
type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
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

func (m *MockRoomRepository) AddMember(ctx context.Context, member *domain.RoomMember) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockRoomRepository) RemoveMember(ctx context.Context, roomID, userID uuid.UUID) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *MockRoomRepository) ListUserRooms(ctx context.Context, userID uuid.UUID) ([]*domain.Room, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Room), args.Error(1)
}

func TestCreateRoom(t *testing.T) {
	repo := new(MockRoomRepository)
	service := NewService(repo)

	creator := uuid.New()

	repo.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.Room) bool {
		return r.Name == "Engineering" && r.Type == TypeGroup && r.CreatedBy == creator
	})).Return(nil)

	room, err := service.Create(context.Background(), creator, "  Engineering  ", "")

	assert.NoError(t, err)
	assert.Equal(t, "Engineering", room.Name)
	assert.Equal(t, TypeGroup, room.Type)
	assert.NotEqual(t, uuid.Nil, room.RoomID)
	repo.AssertExpectations(t)
}

func TestCreateRoomEmptyName(t *testing.T) {
	repo := new(MockRoomRepository)
	service := NewService(repo)

	_, err := service.Create(context.Background(), uuid.New(), "   ", TypeGroup)

	assert.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.GetAppError(err).Code)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAddMemberRequiresAdmin(t *testing.T) {
	repo := new(MockRoomRepository)
	service := NewService(repo)

	roomID := uuid.New()
	actor := uuid.New()

	repo.On("GetMemberPermissions", mock.Anything, roomID, actor).Return(&domain.MemberPermissions{
		IsMember: true,
		Role:     "member",
	}, nil)

	err := service.AddMember(context.Background(), roomID, actor, uuid.New(), "member")

	assert.Error(t, err)
	assert.Equal(t, errors.ErrCodePermissionDenied, errors.GetAppError(err).Code)
	repo.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything)
}

func TestRemoveMemberSelfAllowed(t *testing.T) {
	repo := new(MockRoomRepository)
	service := NewService(repo)

	roomID := uuid.New()
	userID := uuid.New()

	repo.On("GetMemberPermissions", mock.Anything, roomID, userID).Return(&domain.MemberPermissions{
		IsMember: true,
		Role:     "member",
	}, nil)
	repo.On("RemoveMember", mock.Anything, roomID, userID).Return(nil)

	err := service.RemoveMember(context.Background(), roomID, userID, userID)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRemoveOtherMemberRequiresAdmin(t *testing.T) {
	repo := new(MockRoomRepository)
	service := NewService(repo)

	roomID := uuid.New()
	actor := uuid.New()
	target := uuid.New()

	repo.On("GetMemberPermissions", mock.Anything, roomID, actor).Return(&domain.MemberPermissions{
		IsMember: true,
		Role:     "member",
	}, nil)

	err := service.RemoveMember(context.Background(), roomID, actor, target)

	assert.Error(t, err)
	assert.Equal(t, errors.ErrCodePermissionDenied, errors.GetAppError(err).Code)
	repo.AssertNotCalled(t, "RemoveMember", mock.Anything, mock.Anything, mock.Anything)
}

func TestMembersRequiresMembership(t *testing.T) {
	repo := new(MockRoomRepository)
	service := NewService(repo)

	roomID := uuid.New()
	userID := uuid.New()

	repo.On("GetMemberPermissions", mock.Anything, roomID, userID).Return(&domain.MemberPermissions{IsMember: false}, nil)

	_, err := service.Members(context.Background(), roomID, userID)

	assert.Error(t, err)
	assert.Equal(t, errors.ErrCodePermissionDenied, errors.GetAppError(err).Code)
}
